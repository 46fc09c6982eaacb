package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/kudipay/settler/internal/apperrors"
	"github.com/kudipay/settler/internal/models"
)

type AccountRepo struct {
	DB DBTX
}

func (r *AccountRepo) CreateUserAccount(ctx context.Context, userID uuid.UUID, accountType string, currency string) (models.Account, error) {
	const createAccount = `
	INSERT INTO ledger_accounts (id, owner_type, owner_id, account_type, currency)
	VALUES ($1, 'user', $2, $3, $4)
	RETURNING id, created_at, owner_type, owner_id, account_type, currency
	`

	rows, _ := r.DB.Query(ctx, createAccount, uuid.New(), userID, accountType, currency)
	account, err := pgx.CollectOneRow(rows, rowToAccount)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return account, fmt.Errorf("user account already exists: %w", err)
		}

		return account, fmt.Errorf("db error: %w", err)
	}

	return account, nil
}

func (r *AccountRepo) GetUserAccount(ctx context.Context, userID uuid.UUID, accountType string, currency string) (models.Account, error) {
	const getAccount = `
	SELECT id, created_at, owner_type, owner_id, account_type, currency FROM ledger_accounts
	WHERE owner_type = 'user' AND owner_id = $1 AND account_type = $2 AND currency = $3
	`

	rows, _ := r.DB.Query(ctx, getAccount, userID, accountType, currency)
	return collectAccount(rows)
}

func (r *AccountRepo) GetSystemAccount(ctx context.Context, accountType string) (models.Account, error) {
	const getAccount = `
	SELECT id, created_at, owner_type, owner_id, account_type, currency FROM ledger_accounts
	WHERE owner_type = 'system' AND account_type = $1
	`

	rows, _ := r.DB.Query(ctx, getAccount, accountType)
	return collectAccount(rows)
}

func (r *AccountRepo) Balance(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, error) {
	const getBalance = `
	SELECT COALESCE(SUM(amount), 0) FROM ledger_postings
	WHERE account_id = $1
	`

	var balance decimal.Decimal
	err := r.DB.QueryRow(ctx, getBalance, accountID).Scan(&balance)
	if err != nil {
		return balance, fmt.Errorf("db error: %w", err)
	}

	return balance, nil
}

func collectAccount(rows pgx.Rows) (models.Account, error) {
	account, err := pgx.CollectOneRow(rows, rowToAccount)

	switch {
	case err == nil:
		return account, nil
	case errors.Is(err, pgx.ErrNoRows):
		return account, apperrors.ErrAccountNotFound
	default:
		return account, fmt.Errorf("db error: %w", err)
	}
}

func rowToAccount(row pgx.CollectableRow) (models.Account, error) {
	var a models.Account
	err := row.Scan(&a.ID, &a.CreatedAt, &a.OwnerType, &a.OwnerID, &a.AccountType, &a.Currency)
	return a, err
}
