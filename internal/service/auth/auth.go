package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kudipay/settler/internal/apperrors"
	"github.com/kudipay/settler/internal/models"
	"github.com/kudipay/settler/internal/repository"
)

const defaultAccessTokenTTL = 30 * time.Minute

type Config struct {
	// Secret key to sign access token payloads
	SecretKey string

	// Hasher to use during registration and login, bcrypt if nil
	Hasher PasswordHasher

	AccessTokenTTL time.Duration
}

type Service struct {
	token   TokenManager
	hasher  PasswordHasher
	storage repository.Storage
}

func NewService(cfg Config, storage repository.Storage) (*Service, error) {
	hasher := cfg.Hasher
	if hasher == nil {
		hasher = DefaultHasher
	}

	ttl := cfg.AccessTokenTTL
	if ttl == 0 {
		ttl = defaultAccessTokenTTL
	}

	tokenManager, err := NewTokenManager(cfg.SecretKey, ttl)
	if err != nil {
		return nil, err
	}

	return &Service{
		token:   tokenManager,
		hasher:  hasher,
		storage: storage,
	}, nil
}

// Register creates the user together with their NGN wallet account, so every
// authenticated user satisfies the account pre-provisioning invariant of the
// payment flows.
func (s *Service) Register(ctx context.Context, username string, password string) (models.User, IssuedToken, error) {
	var user models.User

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return user, IssuedToken{}, fmt.Errorf("can't use this as password, error=%w", err)
	}

	err = s.storage.InTx(ctx, func(storage repository.Storage) error {
		user, err = storage.User().CreateUser(ctx, username, hash)
		if err != nil {
			return err
		}

		_, err = storage.Account().CreateUserAccount(ctx, user.ID, models.AccountTypeWallet, models.CurrencyNGN)
		return err
	})
	if err != nil {
		return user, IssuedToken{}, err
	}

	token, err := s.token.Issue(user.ID)
	if err != nil {
		return user, IssuedToken{}, fmt.Errorf("token could not be generated: %w", err)
	}

	return user, token, nil
}

func (s *Service) Login(ctx context.Context, username string, password string) (models.User, IssuedToken, error) {
	user, err := s.storage.User().GetUserByUsername(ctx, username)
	if err != nil {
		// Do not reveal whether the username exists
		return user, IssuedToken{}, apperrors.ErrUserNotFound
	}

	if err := s.hasher.Compare(user.HashedPassword, password); err != nil {
		return user, IssuedToken{}, apperrors.ErrUserNotFound
	}

	token, err := s.token.Issue(user.ID)
	if err != nil {
		return user, IssuedToken{}, fmt.Errorf("token could not be generated: %w", err)
	}

	return user, token, nil
}

// Auth resolves the request's bearer token into the user it was issued for
func (s *Service) Auth(ctx context.Context, r *http.Request) (models.User, error) {
	var user models.User

	header := r.Header.Get("Authorization")
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found || token == "" {
		return user, errors.New("no bearer token in request")
	}

	userID, err := s.token.ParseAccess(token)
	if err != nil {
		return user, err
	}

	return s.storage.User().GetUserByID(ctx, userID)
}
