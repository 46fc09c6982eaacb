package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	CategoryElectricity = "electricity"
	CategoryBetting     = "betting"

	MeterTypePrepaid  = "prepaid"
	MeterTypePostpaid = "postpaid"
)

// Purchase statuses. Transitions are forward only:
// pending -> debited -> processing -> successful
//                                  -> failed -> refunded
// 'failed' and 'refunded' are terminal: a reference that reached them is
// burned and a retry needs a fresh reference.
const (
	PurchasePending    = "pending"
	PurchaseDebited    = "debited"
	PurchaseProcessing = "processing"
	PurchaseSuccessful = "successful"
	PurchaseFailed     = "failed"
	PurchaseRefunded   = "refunded"
)

// Purchase is the idempotency and status ledger for one bill payment attempt,
// keyed by the caller supplied reference.
type Purchase struct {
	ID                uuid.UUID
	CreatedAt         time.Time
	ModifiedAt        time.Time
	Reference         string
	UserID            uuid.UUID
	Category          string
	Provider          string
	CustomerReference string
	Amount            decimal.Decimal
	Status            string
	ProviderReference *string
	ProviderResponse  []byte // raw provider body, audit only, never rendered to clients
}
