package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/kudipay/settler/internal/apperrors"
	"github.com/kudipay/settler/internal/logger"
	"github.com/kudipay/settler/internal/models"
	"github.com/kudipay/settler/internal/provider/paystack"
	"github.com/kudipay/settler/internal/repository"
)

// Provider is the outbound bill payment API as the orchestrator sees it
type Provider interface {
	SubmitBill(ctx context.Context, category string, payload map[string]any) (paystack.Result, error)
}

// Service is the settlement orchestrator for bill payments: it validates,
// deduplicates on the caller supplied reference, debits the wallet, invokes
// the provider and finalizes the purchase, compensating the debit when the
// provider does not confirm.
type Service struct {
	storage  repository.Storage
	provider Provider
	logger   logger.Logger
}

func NewService(storage repository.Storage, provider Provider, l logger.Logger) *Service {
	return &Service{
		storage:  storage,
		provider: provider,
		logger:   l,
	}
}

type PayBillRequest struct {
	Category  string
	Reference string
	Amount    decimal.Decimal

	// electricity
	Disco       string
	MeterNumber string
	MeterType   string

	// betting
	Operator   string
	CustomerID string
}

type PayBillResult struct {
	Reference string
	Status    string
}

// billOrder is the validated, provider ready form of a request
type billOrder struct {
	provider          string
	customerReference string
	payload           map[string]any
}

// PayBill performs one bill payment attempt for the reference.
//
// Guarantee: at most one debit and at most one compensating credit per
// reference, no matter how often the same reference is submitted.
func (s *Service) PayBill(ctx context.Context, user models.User, req PayBillRequest) (PayBillResult, error) {
	var result PayBillResult

	order, err := validateRequest(&req)
	if err != nil {
		return result, err
	}

	// Both accounts must exist before any side effect (pre-provisioning
	// invariant): the wallet is created at registration, the clearing
	// account is seeded by migrations.
	userAccount, err := s.storage.Account().GetUserAccount(ctx, user.ID, models.AccountTypeWallet, models.CurrencyNGN)
	if err != nil {
		return result, fmt.Errorf("can't resolve user wallet: %w", err)
	}
	clearingAccount, err := s.storage.Account().GetSystemAccount(ctx, models.AccountTypeUtilityClearing)
	if err != nil {
		return result, fmt.Errorf("can't resolve clearing account: %w", err)
	}

	// Idempotency dispatch. The insert either wins the reference or surfaces
	// the row of the attempt that did, arbitrated by the unique constraint.
	purchase, created, err := s.storage.Purchase().CreatePurchase(ctx, repository.CreatePurchaseParams{
		Reference:         req.Reference,
		UserID:            user.ID,
		Category:          req.Category,
		Provider:          order.provider,
		CustomerReference: order.customerReference,
		Amount:            req.Amount,
	})
	if err != nil {
		return result, fmt.Errorf("can't create purchase: %w", err)
	}

	if !created {
		switch purchase.Status {
		case models.PurchaseSuccessful:
			// Safe replay: identical success response, no new postings
			return PayBillResult{Reference: req.Reference, Status: models.PurchaseSuccessful}, nil
		case models.PurchasePending, models.PurchaseDebited, models.PurchaseProcessing:
			return result, apperrors.ErrDuplicateInProgress
		case models.PurchaseFailed, models.PurchaseRefunded:
			// The reference is burned: a retry needs a fresh one
			return result, apperrors.ErrDuplicateCompleted
		default:
			return result, fmt.Errorf("purchase %q has unexpected status %q", req.Reference, purchase.Status)
		}
	}

	// Debit user -> clearing under the caller's reference
	_, err = s.storage.Ledger().Transfer(ctx, repository.TransferParams{
		FromAccount: userAccount.ID,
		ToAccount:   clearingAccount.ID,
		Amount:      req.Amount,
		Reference:   req.Reference,
		Metadata: map[string]any{
			"type":               req.Category,
			"provider":           order.provider,
			"customer_reference": order.customerReference,
		},
	})
	switch {
	case errors.Is(err, apperrors.ErrBalanceInsufficient):
		// The debit never happened, nothing to compensate
		s.setStatus(ctx, req.Reference, models.PurchaseFailed, []byte(`{"reason": "insufficient_funds"}`))
		return result, apperrors.ErrBalanceInsufficient
	case err != nil:
		return result, fmt.Errorf("ledger transfer failed: %w", err)
	}

	// Crash recovery checkpoints: from here on the debit exists, so every
	// failure before provider confirmation routes through compensation.
	if err := s.storage.Purchase().SetStatus(ctx, req.Reference, models.PurchaseDebited, nil); err != nil {
		s.failAndRefund(ctx, req, userAccount, clearingAccount, []byte(`{"reason": "checkpoint_write_failed"}`))
		return result, fmt.Errorf("can't checkpoint purchase: %w", err)
	}
	if err := s.storage.Purchase().SetStatus(ctx, req.Reference, models.PurchaseProcessing, nil); err != nil {
		s.failAndRefund(ctx, req, userAccount, clearingAccount, []byte(`{"reason": "checkpoint_write_failed"}`))
		return result, fmt.Errorf("can't checkpoint purchase: %w", err)
	}

	providerResult, err := s.provider.SubmitBill(ctx, req.Category, order.payload)
	if err != nil || !providerResult.OK {
		diagnostic := diagnosticResponse(req.Category, providerResult, err)
		s.failAndRefund(ctx, req, userAccount, clearingAccount, diagnostic)
		return result, apperrors.ErrProviderFailed
	}

	// Provider confirmed: never compensate past this point, the money was
	// delivered. A failed final write leaves the purchase in processing for
	// reconciliation.
	if err := s.storage.Purchase().SetSuccessful(ctx, req.Reference, providerResult.Reference, providerResult.Raw); err != nil {
		s.logger.Error("Failed to finalize successful purchase", "reference", req.Reference, "error", err)
	}

	return PayBillResult{Reference: req.Reference, Status: models.PurchaseSuccessful}, nil
}

// WalletBalance reports the user's NGN wallet balance, derived from postings
func (s *Service) WalletBalance(ctx context.Context, user models.User) (decimal.Decimal, error) {
	account, err := s.storage.Account().GetUserAccount(ctx, user.ID, models.AccountTypeWallet, models.CurrencyNGN)
	if err != nil {
		return decimal.Zero, fmt.Errorf("can't resolve user wallet: %w", err)
	}

	return s.storage.Account().Balance(ctx, account.ID)
}

// failAndRefund marks the purchase failed and issues the compensating
// transfer clearing -> user under <reference>-REFUND. A compensation failure
// is logged, not surfaced: the purchase then stays failed without a refund
// and is reconciled out of band.
func (s *Service) failAndRefund(ctx context.Context, req PayBillRequest, userAccount, clearingAccount models.Account, diagnostic []byte) {
	s.setStatus(ctx, req.Reference, models.PurchaseFailed, diagnostic)

	_, err := s.storage.Ledger().Transfer(ctx, repository.TransferParams{
		FromAccount: clearingAccount.ID,
		ToAccount:   userAccount.ID,
		Amount:      req.Amount,
		Reference:   req.Reference + "-REFUND",
		Metadata: map[string]any{
			"reason": req.Category + "_purchase_failed",
		},
	})
	// An already committed refund reference means a previous attempt got
	// here first, the compensation itself is idempotent
	if err != nil && !errors.Is(err, apperrors.ErrTransferExists) {
		s.logger.Error("Compensation transfer failed, purchase left unrefunded",
			"reference", req.Reference, "amount", req.Amount, "error", err)
		return
	}

	s.setStatus(ctx, req.Reference, models.PurchaseRefunded, nil)
}

func (s *Service) setStatus(ctx context.Context, reference string, status string, response []byte) {
	if err := s.storage.Purchase().SetStatus(ctx, reference, status, response); err != nil {
		s.logger.Error("Failed to update purchase status", "reference", reference, "status", status, "error", err)
	}
}

func validateRequest(req *PayBillRequest) (billOrder, error) {
	var order billOrder

	req.Reference = strings.TrimSpace(req.Reference)
	if req.Reference == "" || !req.Amount.IsPositive() {
		return order, apperrors.ErrInvalidRequest
	}

	switch req.Category {
	case models.CategoryElectricity:
		req.Disco = strings.TrimSpace(req.Disco)
		req.MeterNumber = strings.TrimSpace(req.MeterNumber)
		req.MeterType = strings.TrimSpace(req.MeterType)

		if req.Disco == "" || req.MeterNumber == "" {
			return order, apperrors.ErrInvalidRequest
		}
		if req.MeterType != models.MeterTypePrepaid && req.MeterType != models.MeterTypePostpaid {
			return order, apperrors.ErrInvalidRequest
		}

		return billOrder{
			provider:          req.Disco,
			customerReference: req.MeterNumber,
			payload: map[string]any{
				"disco":        req.Disco,
				"meter_number": req.MeterNumber,
				"meter_type":   req.MeterType,
				"amount":       req.Amount,
				"reference":    req.Reference,
			},
		}, nil

	case models.CategoryBetting:
		req.Operator = strings.TrimSpace(req.Operator)
		req.CustomerID = strings.TrimSpace(req.CustomerID)

		if req.Operator == "" || req.CustomerID == "" {
			return order, apperrors.ErrInvalidRequest
		}

		return billOrder{
			provider:          req.Operator,
			customerReference: req.CustomerID,
			payload: map[string]any{
				"operator":    req.Operator,
				"customer_id": req.CustomerID,
				"amount":      req.Amount,
				"reference":   req.Reference,
			},
		}, nil

	default:
		return order, apperrors.ErrInvalidRequest
	}
}

// diagnosticResponse builds the provider_response audit payload for a failed
// attempt. Stored only, never rendered to clients.
func diagnosticResponse(category string, result paystack.Result, submitErr error) []byte {
	payload := map[string]any{
		"category": category,
	}
	if len(result.Raw) > 0 {
		payload["provider_response"] = json.RawMessage(result.Raw)
	}
	if submitErr != nil {
		payload["error"] = submitErr.Error()
	}

	b, err := json.Marshal(payload)
	if err != nil {
		return []byte(`{"reason": "provider_failed"}`)
	}
	return b
}
