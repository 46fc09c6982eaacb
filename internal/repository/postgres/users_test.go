package postgres

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kudipay/settler/internal/apperrors"
	"github.com/kudipay/settler/internal/testutil"
)

func TestUserRepo(t *testing.T) {
	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	inTx := func(t *testing.T, fn func(r *UserRepo)) {
		testutil.InTx(pg.Pool, t, func(tx pgx.Tx) {
			fn(&UserRepo{DB: tx})
		})
	}

	t.Run("create user ok", func(t *testing.T) {
		inTx(t, func(r *UserRepo) {
			user, err := r.CreateUser(t.Context(), "testuser", "hashedpassword123")

			require.NoError(t, err)
			assert.NotEqual(t, uuid.Nil, user.ID, "ID should be generated")
			assert.Equal(t, "testuser", user.Username)
			assert.Equal(t, "hashedpassword123", user.HashedPassword)
			assert.WithinDuration(t, time.Now(), user.CreatedAt, time.Second, "CreatedAt should be recent")
		})
	})

	t.Run("create user duplicate username fails", func(t *testing.T) {
		inTx(t, func(r *UserRepo) {
			_, err := r.CreateUser(t.Context(), "duplicateuser", "hashedpassword123")
			require.NoError(t, err)

			_, err = r.CreateUser(t.Context(), "duplicateuser", "anotherhashedpassword")
			assert.ErrorIs(t, err, apperrors.ErrUserAlreadyExists, "if user exists must return well defined error")
		})
	})

	t.Run("get user by id", func(t *testing.T) {
		inTx(t, func(r *UserRepo) {
			created, err := r.CreateUser(t.Context(), "testuser", "hash")
			require.NoError(t, err)

			user, err := r.GetUserByID(t.Context(), created.ID)
			require.NoError(t, err)
			assert.Equal(t, created.ID, user.ID)
			assert.Equal(t, "testuser", user.Username)
		})
	})

	t.Run("get user by id not found", func(t *testing.T) {
		inTx(t, func(r *UserRepo) {
			_, err := r.GetUserByID(t.Context(), uuid.New())

			assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
		})
	})

	t.Run("get user by username", func(t *testing.T) {
		inTx(t, func(r *UserRepo) {
			created, err := r.CreateUser(t.Context(), "testuser", "hash")
			require.NoError(t, err)

			user, err := r.GetUserByUsername(t.Context(), "testuser")
			require.NoError(t, err)
			assert.Equal(t, created.ID, user.ID)
		})
	})

	t.Run("get user by username not found", func(t *testing.T) {
		inTx(t, func(r *UserRepo) {
			_, err := r.GetUserByUsername(t.Context(), "missing")

			assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
		})
	})
}
