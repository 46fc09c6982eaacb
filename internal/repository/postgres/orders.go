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

type OrderRepo struct {
	DB DBTX
}

const orderColumns = `id, created_at, modified_at, buyer_id, seller_id, listing_id, amount, payment_method, status`

func (r *OrderRepo) CreateOrder(ctx context.Context, params repository.CreateOrderParams) (models.Order, error) {
	const createOrder = `
	INSERT INTO market_orders (id, buyer_id, seller_id, listing_id, amount, payment_method, status)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	RETURNING ` + orderColumns + `
	`

	rows, _ := r.DB.Query(ctx, createOrder,
		uuid.New(), params.BuyerID, params.SellerID, params.ListingID,
		params.Amount, params.PaymentMethod, params.Status,
	)
	order, err := pgx.CollectOneRow(rows, rowToMarketOrder)
	if err != nil {
		return order, fmt.Errorf("db error: %w", err)
	}

	return order, nil
}

func (r *OrderRepo) CreateEscrow(ctx context.Context, order models.Order) (models.Escrow, error) {
	const createEscrow = `
	INSERT INTO market_escrows (id, order_id, buyer_id, seller_id, amount, status)
	VALUES ($1, $2, $3, $4, $5, $6)
	RETURNING id, created_at, order_id, buyer_id, seller_id, amount, status
	`

	rows, _ := r.DB.Query(ctx, createEscrow,
		uuid.New(), order.ID, order.BuyerID, order.SellerID, order.Amount, models.EscrowHeld,
	)
	escrow, err := pgx.CollectOneRow(rows, rowToEscrow)
	if err != nil {
		return escrow, fmt.Errorf("db error: %w", err)
	}

	return escrow, nil
}

func (r *OrderRepo) GetOrder(ctx context.Context, orderID uuid.UUID) (models.Order, error) {
	const getOrder = `
	SELECT ` + orderColumns + ` FROM market_orders
	WHERE id = $1
	`

	rows, _ := r.DB.Query(ctx, getOrder, orderID)
	order, err := pgx.CollectOneRow(rows, rowToMarketOrder)

	switch {
	case err == nil:
		return order, nil
	case errors.Is(err, pgx.ErrNoRows):
		return order, apperrors.ErrOrderNotFound
	default:
		return order, fmt.Errorf("db error: %w", err)
	}
}

func (r *OrderRepo) ListOrders(ctx context.Context, buyerID uuid.UUID) ([]models.Order, error) {
	const listOrders = `
	SELECT ` + orderColumns + ` FROM market_orders
	WHERE buyer_id = $1
	ORDER BY created_at DESC
	`

	rows, _ := r.DB.Query(ctx, listOrders, buyerID)
	orders, err := pgx.CollectRows(rows, rowToMarketOrder)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return orders, nil
}

func (r *OrderRepo) GetEscrowByOrder(ctx context.Context, orderID uuid.UUID) (models.Escrow, error) {
	const getEscrow = `
	SELECT id, created_at, order_id, buyer_id, seller_id, amount, status FROM market_escrows
	WHERE order_id = $1
	`

	rows, _ := r.DB.Query(ctx, getEscrow, orderID)
	escrow, err := pgx.CollectOneRow(rows, rowToEscrow)

	switch {
	case err == nil:
		return escrow, nil
	case errors.Is(err, pgx.ErrNoRows):
		return escrow, apperrors.ErrEscrowNotFound
	default:
		return escrow, fmt.Errorf("db error: %w", err)
	}
}

func (r *OrderRepo) SetOrderStatus(ctx context.Context, orderID uuid.UUID, status string) error {
	const setStatus = `
	UPDATE market_orders
	SET status = $2, modified_at = now()
	WHERE id = $1
	`

	tag, err := r.DB.Exec(ctx, setStatus, orderID, status)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrOrderNotFound
	}

	return nil
}

func (r *OrderRepo) SetEscrowStatus(ctx context.Context, escrowID uuid.UUID, status string) error {
	const setStatus = `
	UPDATE market_escrows
	SET status = $2
	WHERE id = $1
	`

	tag, err := r.DB.Exec(ctx, setStatus, escrowID, status)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrEscrowNotFound
	}

	return nil
}

func rowToMarketOrder(row pgx.CollectableRow) (models.Order, error) {
	var o models.Order
	err := row.Scan(&o.ID, &o.CreatedAt, &o.ModifiedAt, &o.BuyerID, &o.SellerID, &o.ListingID, &o.Amount, &o.PaymentMethod, &o.Status)
	return o, err
}

func rowToEscrow(row pgx.CollectableRow) (models.Escrow, error) {
	var e models.Escrow
	err := row.Scan(&e.ID, &e.CreatedAt, &e.OrderID, &e.BuyerID, &e.SellerID, &e.Amount, &e.Status)
	return e, err
}
