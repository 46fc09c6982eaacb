package handlers

import (
	"net/http"

	"github.com/kudipay/settler/internal/handlers/render"
)

// Error codes exposed to clients
const (
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeInvalidRequest      = "INVALID_REQUEST"
	CodeDuplicateInProgress = "DUPLICATE_IN_PROGRESS"
	CodeDuplicateCompleted  = "DUPLICATE_COMPLETED"
	CodeInsufficientFunds   = "INSUFFICIENT_FUNDS"
	CodeProviderError       = "PROVIDER_ERROR"
	CodeBackendError        = "BACKEND_ERROR"
	CodeNotFound            = "NOT_FOUND"
	CodeUserExists          = "USER_EXISTS"
)

// Fixed user safe messages per code. Raw provider or ledger error text never
// leaves the server boundary.
var safeMessages = map[string]string{
	CodeUnauthorized:        "Please sign in to continue.",
	CodeInvalidRequest:      "Please check your details and try again.",
	CodeDuplicateInProgress: "This transaction is already in progress. Please wait.",
	CodeDuplicateCompleted:  "This transaction has already been completed.",
	CodeInsufficientFunds:   "Insufficient wallet balance. Please fund your wallet and try again.",
	CodeProviderError:       "We couldn't complete this purchase right now. Please try again shortly.",
	CodeBackendError:        "We couldn't complete your request right now. Please try again.",
	CodeNotFound:            "We couldn't find what you were looking for.",
	CodeUserExists:          "This username is already taken.",
}

func renderCode(w http.ResponseWriter, r *http.Request, code string, status int) {
	message, ok := safeMessages[code]
	if !ok {
		message = safeMessages[CodeBackendError]
	}

	render.Error(w, r, code, message, status)
}
