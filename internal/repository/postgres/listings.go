package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/kudipay/settler/internal/apperrors"
	"github.com/kudipay/settler/internal/models"
	"github.com/kudipay/settler/internal/repository"
)

type ListingRepo struct {
	DB DBTX
}

func (r *ListingRepo) CreateListing(ctx context.Context, params repository.CreateListingParams) (models.Listing, error) {
	const createListing = `
	INSERT INTO market_listings (id, seller_id, title, description, price, currency, status)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	RETURNING id, created_at, seller_id, title, description, price, currency, status
	`

	rows, _ := r.DB.Query(ctx, createListing,
		uuid.New(), params.SellerID, params.Title, params.Description,
		params.Price, params.Currency, models.ListingActive,
	)
	listing, err := pgx.CollectOneRow(rows, rowToListing)
	if err != nil {
		return listing, fmt.Errorf("db error: %w", err)
	}

	return listing, nil
}

func (r *ListingRepo) GetListing(ctx context.Context, listingID uuid.UUID) (models.Listing, error) {
	const getListing = `
	SELECT id, created_at, seller_id, title, description, price, currency, status FROM market_listings
	WHERE id = $1
	`

	rows, _ := r.DB.Query(ctx, getListing, listingID)
	listing, err := pgx.CollectOneRow(rows, rowToListing)

	switch {
	case err == nil:
		return listing, nil
	case errors.Is(err, pgx.ErrNoRows):
		return listing, apperrors.ErrListingNotFound
	default:
		return listing, fmt.Errorf("db error: %w", err)
	}
}

func rowToListing(row pgx.CollectableRow) (models.Listing, error) {
	var l models.Listing
	err := row.Scan(&l.ID, &l.CreatedAt, &l.SellerID, &l.Title, &l.Description, &l.Price, &l.Currency, &l.Status)
	return l, err
}
