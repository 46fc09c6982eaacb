package apperrors

import (
	"errors"
)

var (
	ErrUserAlreadyExists = errors.New("user already exists")
	ErrUserNotFound      = errors.New("user not found")

	ErrAccountNotFound = errors.New("ledger account not found")

	// Ledger primitive outcomes. The primitive reports these as typed errors,
	// callers never have to scan error text.
	ErrBalanceInsufficient = errors.New("insufficient balance")
	ErrTransferExists      = errors.New("transfer with this reference already posted")

	ErrInvalidRequest      = errors.New("request is invalid")
	ErrDuplicateInProgress = errors.New("purchase with this reference is in progress")
	ErrDuplicateCompleted  = errors.New("purchase with this reference already completed")
	ErrProviderFailed      = errors.New("provider rejected or failed the request")

	ErrPurchaseNotFound = errors.New("purchase not found")

	ErrListingNotFound  = errors.New("listing not found")
	ErrOwnListing       = errors.New("buyer and seller are the same user")
	ErrOrderNotFound    = errors.New("order not found")
	ErrOrderNotInEscrow = errors.New("order is not in escrow")
	ErrEscrowNotFound   = errors.New("escrow not found")
)
