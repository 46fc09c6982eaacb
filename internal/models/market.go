package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	ListingActive  = "active"
	ListingSold    = "sold"
	ListingRemoved = "removed"
)

// Order statuses. The reachable chain is
// in_escrow -> delivered -> released. 'pending' and 'cancelled' exist as
// labels only: no flow currently produces them.
const (
	OrderPending   = "pending"
	OrderInEscrow  = "in_escrow"
	OrderDelivered = "delivered"
	OrderReleased  = "released"
	OrderCancelled = "cancelled"
)

const (
	EscrowHeld     = "held"
	EscrowReleased = "released"
)

const (
	PaymentMethodWallet = "wallet"
	PaymentMethodCrypto = "crypto"
)

type Listing struct {
	ID          uuid.UUID
	CreatedAt   time.Time
	SellerID    uuid.UUID
	Title       string
	Description *string
	Price       decimal.Decimal
	Currency    string
	Status      string
}

type Order struct {
	ID            uuid.UUID
	CreatedAt     time.Time
	ModifiedAt    time.Time
	BuyerID       uuid.UUID
	SellerID      uuid.UUID
	ListingID     uuid.UUID
	Amount        decimal.Decimal
	PaymentMethod string
	Status        string
}

// Escrow is a reservation record, one to one with an in_escrow order.
// No funds are locked by it.
type Escrow struct {
	ID        uuid.UUID
	CreatedAt time.Time
	OrderID   uuid.UUID
	BuyerID   uuid.UUID
	SellerID  uuid.UUID
	Amount    decimal.Decimal
	Status    string
}
