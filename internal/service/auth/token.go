package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type AccessTokenClaims struct {
	jwt.RegisteredClaims
	UserID uuid.UUID `json:"uid"`
}

type IssuedToken struct {
	Value     string
	ExpiresAt time.Time
}

type TokenManager struct {
	// Secret key to sign access token
	key string

	// JWT MAC (Message Authentication Code) algorithm
	alg jwt.SigningMethod

	accessTTL time.Duration
}

func NewTokenManager(secretKey string, accessTTL time.Duration) (TokenManager, error) {
	if secretKey == "" {
		return TokenManager{}, errors.New("secret key must not be empty")
	}

	return TokenManager{
		key:       secretKey,
		alg:       jwt.SigningMethodHS256,
		accessTTL: accessTTL,
	}, nil
}

func (m TokenManager) Issue(userID uuid.UUID) (IssuedToken, error) {
	now := time.Now().Truncate(time.Second)
	expiresAt := now.Add(m.accessTTL)

	token := jwt.NewWithClaims(
		m.alg,
		AccessTokenClaims{
			RegisteredClaims: jwt.RegisteredClaims{
				ID:        uuid.NewString(),
				IssuedAt:  jwt.NewNumericDate(now),
				ExpiresAt: jwt.NewNumericDate(expiresAt),
			},
			UserID: userID,
		},
	)

	signed, err := token.SignedString([]byte(m.key))
	if err != nil {
		return IssuedToken{}, fmt.Errorf("error while signing access token. Err: %w", err)
	}

	return IssuedToken{Value: signed, ExpiresAt: expiresAt}, nil
}

// Parse and validate access token
func (m TokenManager) ParseAccess(access string) (userID uuid.UUID, err error) {
	claims := &AccessTokenClaims{}
	token, err := jwt.ParseWithClaims(
		access,
		claims,
		func(t *jwt.Token) (any, error) { return []byte(m.key), nil },
		jwt.WithValidMethods([]string{m.alg.Alg()}),
	)

	switch {
	case err != nil:
		return uuid.Nil, fmt.Errorf("error parsing token. Err: %w", err)
	case token.Valid:
		return claims.UserID, nil
	default:
		return uuid.Nil, errors.New("token is not valid")
	}
}
