package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kudipay/settler/internal/models"
)

// User repository interface
type UserRepo interface {
	// Create user
	// If user with username exists already has to return apperrors.ErrUserAlreadyExists
	CreateUser(ctx context.Context, username string, hashedPassword string) (models.User, error)

	// Get user by id or username
	// If user not found must return apperrors.ErrUserNotFound
	GetUserByID(ctx context.Context, userID uuid.UUID) (models.User, error)
	GetUserByUsername(ctx context.Context, username string) (models.User, error)
}

// Ledger account repository interface
type AccountRepo interface {
	// Create account owned by a user (e.g. the NGN wallet at registration)
	CreateUserAccount(ctx context.Context, userID uuid.UUID, accountType string, currency string) (models.Account, error)

	// Resolve a user account by owner and currency
	// If missing must return apperrors.ErrAccountNotFound
	GetUserAccount(ctx context.Context, userID uuid.UUID, accountType string, currency string) (models.Account, error)

	// Resolve a well known system account by its type
	// If missing must return apperrors.ErrAccountNotFound
	GetSystemAccount(ctx context.Context, accountType string) (models.Account, error)

	// Balance derived from postings. Zero for an account with no postings.
	Balance(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, error)
}

type TransferParams struct {
	FromAccount uuid.UUID
	ToAccount   uuid.UUID
	Amount      decimal.Decimal
	Reference   string
	Metadata    map[string]any
}

// Ledger primitive: atomic double entry transfer between two accounts.
//
// The orchestrators treat this as an opaque external contract. The postgres
// implementation is one implementation of it.
type LedgerRepo interface {
	// Apply the transfer atomically.
	// Must return apperrors.ErrBalanceInsufficient if the source account
	// balance (evaluated against a consistent snapshot) does not cover Amount.
	// Must return apperrors.ErrTransferExists and apply nothing if a transfer
	// with the same reference is already committed.
	Transfer(ctx context.Context, params TransferParams) (models.Transfer, error)
}

type CreatePurchaseParams struct {
	Reference         string
	UserID            uuid.UUID
	Category          string
	Provider          string
	CustomerReference string
	Amount            decimal.Decimal
}

// Purchase repository interface. Purchase rows are owned by the settlement
// orchestrator exclusively, nothing else writes their status.
type PurchaseRepo interface {
	// Insert a pending purchase for the reference, or fetch the existing row.
	// created reports whether this call won the insert. The decision is made
	// by the storage unique constraint, not by a racy read-then-act check.
	CreatePurchase(ctx context.Context, params CreatePurchaseParams) (p models.Purchase, created bool, err error)

	GetPurchase(ctx context.Context, reference string) (models.Purchase, error)

	// Advance the purchase status. Response, when not nil, replaces the
	// stored provider_response diagnostic payload.
	SetStatus(ctx context.Context, reference string, status string, response []byte) error

	// Final successful checkpoint: status, provider reference and raw body at once.
	SetSuccessful(ctx context.Context, reference string, providerRef string, response []byte) error
}

type CreateListingParams struct {
	SellerID    uuid.UUID
	Title       string
	Description *string
	Price       decimal.Decimal
	Currency    string
}

type CreateOrderParams struct {
	BuyerID       uuid.UUID
	SellerID      uuid.UUID
	ListingID     uuid.UUID
	Amount        decimal.Decimal
	PaymentMethod string
	Status        string
}

// Marketplace listing repository interface
type ListingRepo interface {
	CreateListing(ctx context.Context, params CreateListingParams) (models.Listing, error)

	// If listing not found must return apperrors.ErrListingNotFound
	GetListing(ctx context.Context, listingID uuid.UUID) (models.Listing, error)
}

// Marketplace order and escrow repository interface. Rows are owned by the
// escrow orchestrator exclusively.
type OrderRepo interface {
	CreateOrder(ctx context.Context, params CreateOrderParams) (models.Order, error)
	CreateEscrow(ctx context.Context, order models.Order) (models.Escrow, error)

	// If order not found must return apperrors.ErrOrderNotFound
	GetOrder(ctx context.Context, orderID uuid.UUID) (models.Order, error)
	ListOrders(ctx context.Context, buyerID uuid.UUID) ([]models.Order, error)

	// If escrow not found must return apperrors.ErrEscrowNotFound
	GetEscrowByOrder(ctx context.Context, orderID uuid.UUID) (models.Escrow, error)

	SetOrderStatus(ctx context.Context, orderID uuid.UUID, status string) error
	SetEscrowStatus(ctx context.Context, escrowID uuid.UUID, status string) error
}

// Storage bundles all repositories over one connection source
type Storage interface {
	User() UserRepo
	Account() AccountRepo
	Ledger() LedgerRepo
	Purchase() PurchaseRepo
	Listing() ListingRepo
	Order() OrderRepo

	// Run fn with a Storage bound to one database transaction.
	// Rolled back if fn returns an error, committed otherwise.
	InTx(ctx context.Context, fn func(Storage) error) error
}
