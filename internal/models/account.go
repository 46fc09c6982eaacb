package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	OwnerTypeUser   = "user"
	OwnerTypeSystem = "system"

	// Well known system accounts. Singleton rows seeded by migrations and
	// resolved by (owner_type, account_type), not held in process memory.
	AccountTypeWallet          = "wallet"
	AccountTypeUtilityClearing = "utility_clearing"

	CurrencyNGN = "NGN"
)

// Account is a ledger account. It has no balance column: the balance is
// derived from postings only.
type Account struct {
	ID          uuid.UUID
	CreatedAt   time.Time
	OwnerType   string
	OwnerID     *uuid.UUID // nil for system accounts
	AccountType string
	Currency    string
}

// Transfer is one committed ledger primitive application: a pair of postings
// moving Amount from one account to another under a unique reference.
type Transfer struct {
	ID          uuid.UUID
	CreatedAt   time.Time
	Reference   string
	FromAccount uuid.UUID
	ToAccount   uuid.UUID
	Amount      decimal.Decimal
}
