package postgres

import (
	"bytes"
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
	"github.com/kudipay/settler/internal/repository"
)

// LedgerRepo implements the ledger primitive on postgres.
//
// A transfer is one row in ledger_transfers plus a balanced pair of postings,
// committed in a single database transaction. Balances are never stored:
// they are the sum of postings, evaluated here after both account rows are
// locked, so concurrent transfers against the same account serialize and a
// stale read can not double spend.
type LedgerRepo struct {
	DB DBTX
}

func (r *LedgerRepo) Transfer(ctx context.Context, params repository.TransferParams) (models.Transfer, error) {
	var transfer models.Transfer

	if !params.Amount.IsPositive() {
		return transfer, fmt.Errorf("transfer amount must be positive: %w", apperrors.ErrInvalidRequest)
	}
	if params.FromAccount == params.ToAccount {
		return transfer, fmt.Errorf("transfer accounts must differ: %w", apperrors.ErrInvalidRequest)
	}

	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return transfer, fmt.Errorf("db tx error: %w", err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	// Lock both account rows in deterministic order to avoid deadlocks
	// between opposite direction transfers.
	first, second := params.FromAccount, params.ToAccount
	if bytes.Compare(second[:], first[:]) < 0 {
		first, second = second, first
	}
	for _, accountID := range []uuid.UUID{first, second} {
		err := lockAccount(ctx, tx, accountID)
		if err != nil {
			return transfer, err
		}
	}

	// The unique constraint on reference decides idempotency: a committed
	// reference never applies twice.
	const createTransfer = `
	INSERT INTO ledger_transfers (id, reference, from_account, to_account, amount, metadata)
	VALUES ($1, $2, $3, $4, $5, $6)
	RETURNING id, created_at, reference, from_account, to_account, amount
	`

	rows, _ := tx.Query(ctx, createTransfer,
		uuid.New(), params.Reference, params.FromAccount, params.ToAccount, params.Amount, params.Metadata)
	transfer, err = pgx.CollectOneRow(rows, rowToTransfer)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return transfer, apperrors.ErrTransferExists
		}

		return transfer, fmt.Errorf("db error: %w", err)
	}

	// Sufficiency is checked under the lock taken above
	const getBalance = `
	SELECT COALESCE(SUM(amount), 0) FROM ledger_postings
	WHERE account_id = $1
	`

	var balance decimal.Decimal
	if err := tx.QueryRow(ctx, getBalance, params.FromAccount).Scan(&balance); err != nil {
		return transfer, fmt.Errorf("db error: %w", err)
	}
	if balance.LessThan(params.Amount) {
		return transfer, apperrors.ErrBalanceInsufficient
	}

	const createPostings = `
	INSERT INTO ledger_postings (transfer_id, account_id, amount)
	VALUES ($1, $2, $3), ($1, $4, $5)
	`

	_, err = tx.Exec(ctx, createPostings,
		transfer.ID, params.FromAccount, params.Amount.Neg(), params.ToAccount, params.Amount)
	if err != nil {
		return transfer, fmt.Errorf("db error: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return transfer, fmt.Errorf("db tx error: %w", err)
	}

	return transfer, nil
}

func lockAccount(ctx context.Context, tx pgx.Tx, accountID uuid.UUID) error {
	const lockQuery = `
	SELECT id FROM ledger_accounts
	WHERE id = $1
	FOR UPDATE
	`

	var id uuid.UUID
	err := tx.QueryRow(ctx, lockQuery, accountID).Scan(&id)

	switch {
	case err == nil:
		return nil
	case errors.Is(err, pgx.ErrNoRows):
		return apperrors.ErrAccountNotFound
	default:
		return fmt.Errorf("db error: %w", err)
	}
}

func rowToTransfer(row pgx.CollectableRow) (models.Transfer, error) {
	var t models.Transfer
	err := row.Scan(&t.ID, &t.CreatedAt, &t.Reference, &t.FromAccount, &t.ToAccount, &t.Amount)
	return t, err
}
