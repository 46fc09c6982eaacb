package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/kudipay/settler/internal/apperrors"
	"github.com/kudipay/settler/internal/models"
	"github.com/kudipay/settler/internal/repository"
)

type PurchaseRepo struct {
	DB DBTX
}

const purchaseColumns = `id, created_at, modified_at, reference, user_id, category, provider, customer_reference, amount, status, provider_reference, provider_response`

// Insert a pending purchase or fetch the row that already holds the
// reference. The unique constraint arbitrates: of two concurrent identical
// references exactly one insert wins, the loser gets the winner's row back.
const createPurchase = `-- name: CreatePurchase
WITH insert_purchase AS (
	INSERT INTO purchases (id, created_at, modified_at, reference, user_id, category, provider, customer_reference, amount, status)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	ON CONFLICT (reference) DO NOTHING
	RETURNING *
)
SELECT ` + purchaseColumns + ` FROM insert_purchase
UNION
SELECT ` + purchaseColumns + ` FROM purchases WHERE reference = $4
`

func (r *PurchaseRepo) CreatePurchase(ctx context.Context, params repository.CreatePurchaseParams) (models.Purchase, bool, error) {
	now := time.Now()
	purchaseID := uuid.New()

	rows, _ := r.DB.Query(ctx, createPurchase,
		purchaseID, now, now, params.Reference, params.UserID,
		params.Category, params.Provider, params.CustomerReference, params.Amount,
		models.PurchasePending,
	)
	p, err := pgx.CollectOneRow(rows, rowToPurchase)

	// A concurrent winner may have committed after this statement's snapshot
	// was taken: the conflict suppressed our insert and the UNION branch did
	// not see the row yet. Re-read, the row is committed by now.
	if errors.Is(err, pgx.ErrNoRows) {
		p, err = r.GetPurchase(ctx, params.Reference)
		if err != nil {
			return p, false, err
		}
		return p, false, nil
	}
	if err != nil {
		return p, false, fmt.Errorf("db error: %w", err)
	}

	return p, p.ID == purchaseID, nil
}

func (r *PurchaseRepo) GetPurchase(ctx context.Context, reference string) (models.Purchase, error) {
	const getPurchase = `
	SELECT ` + purchaseColumns + ` FROM purchases
	WHERE reference = $1
	`

	rows, _ := r.DB.Query(ctx, getPurchase, reference)
	p, err := pgx.CollectOneRow(rows, rowToPurchase)

	switch {
	case err == nil:
		return p, nil
	case errors.Is(err, pgx.ErrNoRows):
		return p, apperrors.ErrPurchaseNotFound
	default:
		return p, fmt.Errorf("db error: %w", err)
	}
}

func (r *PurchaseRepo) SetStatus(ctx context.Context, reference string, status string, response []byte) error {
	const setStatus = `
	UPDATE purchases
	SET status = $2, modified_at = now(), provider_response = COALESCE($3, provider_response)
	WHERE reference = $1
	`

	tag, err := r.DB.Exec(ctx, setStatus, reference, status, response)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrPurchaseNotFound
	}

	return nil
}

func (r *PurchaseRepo) SetSuccessful(ctx context.Context, reference string, providerRef string, response []byte) error {
	const setSuccessful = `
	UPDATE purchases
	SET status = $2, modified_at = now(), provider_reference = $3, provider_response = $4
	WHERE reference = $1
	`

	tag, err := r.DB.Exec(ctx, setSuccessful, reference, models.PurchaseSuccessful, providerRef, response)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrPurchaseNotFound
	}

	return nil
}

func rowToPurchase(row pgx.CollectableRow) (models.Purchase, error) {
	var p models.Purchase
	err := row.Scan(
		&p.ID, &p.CreatedAt, &p.ModifiedAt, &p.Reference, &p.UserID,
		&p.Category, &p.Provider, &p.CustomerReference, &p.Amount,
		&p.Status, &p.ProviderReference, &p.ProviderResponse,
	)
	return p, err
}
