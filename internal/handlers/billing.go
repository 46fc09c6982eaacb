package handlers

import (
	"errors"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/kudipay/settler/internal/apperrors"
	"github.com/kudipay/settler/internal/handlers/render"
	"github.com/kudipay/settler/internal/handlers/requestid"
	"github.com/kudipay/settler/internal/handlers/userctx"
	"github.com/kudipay/settler/internal/logger"
	"github.com/kudipay/settler/internal/service/billing"
)

func handlePayBill(billingService billingService, l logger.Logger) http.Handler {
	type request struct {
		Category  string          `json:"category" validate:"required,oneof=electricity betting"`
		Reference string          `json:"reference" validate:"required"`
		Amount    decimal.Decimal `json:"amount" validate:"required"`

		Disco       string `json:"disco"`
		MeterNumber string `json:"meter_number"`
		MeterType   string `json:"meter_type"`

		Operator   string `json:"operator"`
		CustomerID string `json:"customer_id"`
	}

	type response struct {
		Success   bool   `json:"success"`
		Reference string `json:"reference"`
		RequestID string `json:"request_id"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := userctx.FromContext(r.Context())
		if !ok {
			renderCode(w, r, CodeBackendError, http.StatusInternalServerError)
			return
		}

		req, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		result, err := billingService.PayBill(r.Context(), user, billing.PayBillRequest{
			Category:    req.Category,
			Reference:   req.Reference,
			Amount:      req.Amount,
			Disco:       req.Disco,
			MeterNumber: req.MeterNumber,
			MeterType:   req.MeterType,
			Operator:    req.Operator,
			CustomerID:  req.CustomerID,
		})

		switch {
		case err == nil:
			render.JSON(w, response{
				Success:   true,
				Reference: result.Reference,
				RequestID: requestid.FromContext(r.Context()),
			})
		case errors.Is(err, apperrors.ErrInvalidRequest):
			renderCode(w, r, CodeInvalidRequest, http.StatusBadRequest)
		case errors.Is(err, apperrors.ErrDuplicateInProgress):
			renderCode(w, r, CodeDuplicateInProgress, http.StatusConflict)
		case errors.Is(err, apperrors.ErrDuplicateCompleted):
			renderCode(w, r, CodeDuplicateCompleted, http.StatusConflict)
		case errors.Is(err, apperrors.ErrBalanceInsufficient):
			renderCode(w, r, CodeInsufficientFunds, http.StatusPaymentRequired)
		case errors.Is(err, apperrors.ErrProviderFailed):
			renderCode(w, r, CodeProviderError, http.StatusBadGateway)
		default:
			l.Error("Bill payment failed", "request_id", requestid.FromContext(r.Context()), "error", err)
			renderCode(w, r, CodeBackendError, http.StatusInternalServerError)
		}
	})
}

func handleWallet(billingService billingService, l logger.Logger) http.Handler {
	type response struct {
		Success   bool            `json:"success"`
		Balance   decimal.Decimal `json:"balance"`
		Currency  string          `json:"currency"`
		RequestID string          `json:"request_id"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := userctx.FromContext(r.Context())
		if !ok {
			renderCode(w, r, CodeBackendError, http.StatusInternalServerError)
			return
		}

		balance, err := billingService.WalletBalance(r.Context(), user)
		if err != nil {
			l.Error("Failed to get wallet balance", "request_id", requestid.FromContext(r.Context()), "error", err)
			renderCode(w, r, CodeBackendError, http.StatusInternalServerError)
			return
		}

		render.JSON(w, response{
			Success:   true,
			Balance:   balance,
			Currency:  "NGN",
			RequestID: requestid.FromContext(r.Context()),
		})
	})
}
