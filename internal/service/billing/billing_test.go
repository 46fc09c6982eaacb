package billing

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/kudipay/settler/internal/apperrors"
	"github.com/kudipay/settler/internal/logger"
	"github.com/kudipay/settler/internal/models"
	"github.com/kudipay/settler/internal/provider/paystack"
	"github.com/kudipay/settler/internal/repository"
	"github.com/kudipay/settler/internal/repository/postgres"
	"github.com/kudipay/settler/internal/service/auth"
	"github.com/kudipay/settler/internal/testutil"
)

// fakeProvider stands in for the bill payment API
type fakeProvider struct {
	result paystack.Result
	err    error

	calls        int
	lastCategory string
	lastPayload  map[string]any
}

func (f *fakeProvider) SubmitBill(ctx context.Context, category string, payload map[string]any) (paystack.Result, error) {
	f.calls++
	f.lastCategory = category
	f.lastPayload = payload
	return f.result, f.err
}

func electricityRequest(reference string, amount int64) PayBillRequest {
	return PayBillRequest{
		Category:    models.CategoryElectricity,
		Reference:   reference,
		Amount:      decimal.NewFromInt(amount),
		Disco:       "ikeja-electric",
		MeterNumber: "45070001111",
		MeterType:   models.MeterTypePrepaid,
	}
}

func TestPayBill(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	type env struct {
		service  *Service
		provider *fakeProvider
		storage  repository.Storage
		user     models.User
		wallet   models.Account
		clearing models.Account
	}

	// Fund the wallet outside the ledger primitive: a raw transfer with both
	// postings, so the clearing balance check does not apply to test setup
	fund := func(t *testing.T, tx pgx.Tx, e env, amount decimal.Decimal) {
		transferID := uuid.New()
		_, err := tx.Exec(t.Context(),
			`INSERT INTO ledger_transfers (id, reference, from_account, to_account, amount)
			 VALUES ($1, $2, $3, $4, $5)`,
			transferID, "fund-"+transferID.String(), e.clearing.ID, e.wallet.ID, amount)
		require.NoError(t, err, "funding transfer should not fail")

		_, err = tx.Exec(t.Context(),
			`INSERT INTO ledger_postings (transfer_id, account_id, amount)
			 VALUES ($1, $2, $3), ($1, $4, $5)`,
			transferID, e.clearing.ID, amount.Neg(), e.wallet.ID, amount)
		require.NoError(t, err, "funding postings should not fail")
	}

	// Helper to run test function with service, funded user and fake provider
	// created within transaction
	inTx := func(t *testing.T, balance int64, fn func(tx pgx.Tx, e env)) {
		testutil.InTx(pg.Pool, t, func(tx pgx.Tx) {
			storage := postgres.NewStorage(tx)

			authService, err := auth.NewService(auth.Config{SecretKey: "test-secret"}, storage)
			require.NoError(t, err, "auth service should be created without errors")
			user, _, err := authService.Register(t.Context(), "test-user", "password123")
			require.NoError(t, err, "creating user should not fail")

			wallet, err := storage.Account().GetUserAccount(t.Context(), user.ID, models.AccountTypeWallet, models.CurrencyNGN)
			require.NoError(t, err, "wallet should be provisioned at registration")
			clearing, err := storage.Account().GetSystemAccount(t.Context(), models.AccountTypeUtilityClearing)
			require.NoError(t, err, "clearing account should be seeded by migrations")

			provider := &fakeProvider{
				result: paystack.Result{OK: true, Reference: "PSK-001", Raw: json.RawMessage(`{"status": true}`)},
			}

			e := env{
				service:  NewService(storage, provider, logger.NewNoOpLogger()),
				provider: provider,
				storage:  storage,
				user:     user,
				wallet:   wallet,
				clearing: clearing,
			}

			if balance > 0 {
				fund(t, tx, e, decimal.NewFromInt(balance))
			}

			fn(tx, e)
		})
	}

	countPostings := func(t *testing.T, tx pgx.Tx, accountID uuid.UUID) int {
		var count int
		err := tx.QueryRow(t.Context(),
			`SELECT COUNT(*) FROM ledger_postings WHERE account_id = $1`, accountID).Scan(&count)
		require.NoError(t, err)
		return count
	}

	t.Run("successful payment", func(t *testing.T) {
		inTx(t, 10_000, func(tx pgx.Tx, e env) {
			result, err := e.service.PayBill(t.Context(), e.user, electricityRequest("ref-001", 5000))

			require.NoError(t, err, "payment with sufficient funds should succeed")
			require.Equal(t, "ref-001", result.Reference)
			require.Equal(t, models.PurchaseSuccessful, result.Status)
			require.Equal(t, 1, e.provider.calls, "provider should be invoked exactly once")

			balance, err := e.storage.Account().Balance(t.Context(), e.wallet.ID)
			require.NoError(t, err)
			require.True(t, balance.Equal(decimal.NewFromInt(5000)), "wallet should be debited once, got %s", balance)

			purchase, err := e.storage.Purchase().GetPurchase(t.Context(), "ref-001")
			require.NoError(t, err)
			require.Equal(t, models.PurchaseSuccessful, purchase.Status)
			require.NotNil(t, purchase.ProviderReference, "provider reference should be recorded")
			require.Equal(t, "PSK-001", *purchase.ProviderReference)
		})
	})

	t.Run("betting payment ok", func(t *testing.T) {
		inTx(t, 10_000, func(tx pgx.Tx, e env) {
			_, err := e.service.PayBill(t.Context(), e.user, PayBillRequest{
				Category:   models.CategoryBetting,
				Reference:  "ref-bet-001",
				Amount:     decimal.NewFromInt(2000),
				Operator:   "bet9ja",
				CustomerID: "777001",
			})

			require.NoError(t, err)
			require.Equal(t, models.CategoryBetting, e.provider.lastCategory)
			require.Equal(t, "777001", e.provider.lastPayload["customer_id"])
		})
	})

	t.Run("insufficient funds", func(t *testing.T) {
		inTx(t, 1000, func(tx pgx.Tx, e env) {
			_, err := e.service.PayBill(t.Context(), e.user, electricityRequest("ref-poor", 5000))

			require.Error(t, err)
			require.ErrorIs(t, err, apperrors.ErrBalanceInsufficient)
			require.Equal(t, 0, e.provider.calls, "provider must not be called when the debit fails")

			// No debit happened so no compensation either
			balance, err := e.storage.Account().Balance(t.Context(), e.wallet.ID)
			require.NoError(t, err)
			require.True(t, balance.Equal(decimal.NewFromInt(1000)), "balance should be untouched, got %s", balance)

			purchase, err := e.storage.Purchase().GetPurchase(t.Context(), "ref-poor")
			require.NoError(t, err)
			require.Equal(t, models.PurchaseFailed, purchase.Status)
		})
	})

	t.Run("provider declines", func(t *testing.T) {
		inTx(t, 10_000, func(tx pgx.Tx, e env) {
			e.provider.result = paystack.Result{OK: false, Raw: json.RawMessage(`{"status": false, "message": "meter not found"}`)}

			_, err := e.service.PayBill(t.Context(), e.user, electricityRequest("ref-decline", 5000))

			require.Error(t, err)
			require.ErrorIs(t, err, apperrors.ErrProviderFailed)

			// Debit then compensating credit: balance restored
			balance, err := e.storage.Account().Balance(t.Context(), e.wallet.ID)
			require.NoError(t, err)
			require.True(t, balance.Equal(decimal.NewFromInt(10_000)), "balance should be restored, got %s", balance)
			require.Equal(t, 3, countPostings(t, tx, e.wallet.ID), "funding, debit and refund postings expected")

			purchase, err := e.storage.Purchase().GetPurchase(t.Context(), "ref-decline")
			require.NoError(t, err)
			require.Equal(t, models.PurchaseRefunded, purchase.Status)

			// Refund carries the derived reference
			var refundCount int
			err = tx.QueryRow(t.Context(),
				`SELECT COUNT(*) FROM ledger_transfers WHERE reference = $1`, "ref-decline-REFUND").Scan(&refundCount)
			require.NoError(t, err)
			require.Equal(t, 1, refundCount, "exactly one compensating transfer expected")
		})
	})

	t.Run("provider transport error", func(t *testing.T) {
		inTx(t, 10_000, func(tx pgx.Tx, e env) {
			e.provider.result = paystack.Result{}
			e.provider.err = errors.New("connection reset by peer")

			_, err := e.service.PayBill(t.Context(), e.user, electricityRequest("ref-neterr", 5000))

			require.ErrorIs(t, err, apperrors.ErrProviderFailed)

			balance, err := e.storage.Account().Balance(t.Context(), e.wallet.ID)
			require.NoError(t, err)
			require.True(t, balance.Equal(decimal.NewFromInt(10_000)), "balance should be restored, got %s", balance)

			purchase, err := e.storage.Purchase().GetPurchase(t.Context(), "ref-neterr")
			require.NoError(t, err)
			require.Equal(t, models.PurchaseRefunded, purchase.Status)
		})
	})

	t.Run("replay", func(t *testing.T) {
		t.Run("successful purchase replays success", func(t *testing.T) {
			inTx(t, 10_000, func(tx pgx.Tx, e env) {
				_, err := e.service.PayBill(t.Context(), e.user, electricityRequest("ref-replay", 5000))
				require.NoError(t, err, "first attempt should succeed")

				result, err := e.service.PayBill(t.Context(), e.user, electricityRequest("ref-replay", 5000))

				require.NoError(t, err, "replay of a successful reference should succeed")
				require.Equal(t, models.PurchaseSuccessful, result.Status)
				require.Equal(t, 1, e.provider.calls, "provider must not be called twice for one reference")

				balance, err := e.storage.Account().Balance(t.Context(), e.wallet.ID)
				require.NoError(t, err)
				require.True(t, balance.Equal(decimal.NewFromInt(5000)), "replay must not debit again, got %s", balance)
			})
		})

		t.Run("in flight purchase conflicts", func(t *testing.T) {
			inTx(t, 10_000, func(tx pgx.Tx, e env) {
				for _, status := range []string{models.PurchasePending, models.PurchaseDebited, models.PurchaseProcessing} {
					_, _, err := e.storage.Purchase().CreatePurchase(t.Context(), repository.CreatePurchaseParams{
						Reference:         "ref-" + status,
						UserID:            e.user.ID,
						Category:          models.CategoryElectricity,
						Provider:          "ikeja-electric",
						CustomerReference: "45070001111",
						Amount:            decimal.NewFromInt(5000),
					})
					require.NoError(t, err)
					if status != models.PurchasePending {
						require.NoError(t, e.storage.Purchase().SetStatus(t.Context(), "ref-"+status, status, nil))
					}

					_, err = e.service.PayBill(t.Context(), e.user, electricityRequest("ref-"+status, 5000))

					require.ErrorIs(t, err, apperrors.ErrDuplicateInProgress, "status %q should conflict as in progress", status)
				}
				require.Equal(t, 0, e.provider.calls)
			})
		})

		t.Run("terminal failure burns the reference", func(t *testing.T) {
			inTx(t, 10_000, func(tx pgx.Tx, e env) {
				e.provider.result = paystack.Result{OK: false}
				_, err := e.service.PayBill(t.Context(), e.user, electricityRequest("ref-burned", 5000))
				require.ErrorIs(t, err, apperrors.ErrProviderFailed)

				e.provider.result = paystack.Result{OK: true, Reference: "PSK-002"}
				_, err = e.service.PayBill(t.Context(), e.user, electricityRequest("ref-burned", 5000))

				require.ErrorIs(t, err, apperrors.ErrDuplicateCompleted, "a failed reference must not be retried")
				require.Equal(t, 1, e.provider.calls, "only the first attempt should reach the provider")
			})
		})
	})

	t.Run("validation", func(t *testing.T) {
		tests := []struct {
			name   string
			mutate func(r *PayBillRequest)
		}{
			{"unknown category", func(r *PayBillRequest) { r.Category = "airtime" }},
			{"empty reference", func(r *PayBillRequest) { r.Reference = "  " }},
			{"zero amount", func(r *PayBillRequest) { r.Amount = decimal.Zero }},
			{"negative amount", func(r *PayBillRequest) { r.Amount = decimal.NewFromInt(-100) }},
			{"missing disco", func(r *PayBillRequest) { r.Disco = "" }},
			{"missing meter number", func(r *PayBillRequest) { r.MeterNumber = "" }},
			{"bad meter type", func(r *PayBillRequest) { r.MeterType = "smart" }},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				inTx(t, 10_000, func(tx pgx.Tx, e env) {
					req := electricityRequest("ref-invalid", 5000)
					tt.mutate(&req)

					_, err := e.service.PayBill(t.Context(), e.user, req)

					require.ErrorIs(t, err, apperrors.ErrInvalidRequest)
					require.Equal(t, 0, e.provider.calls, "invalid request must not reach the provider")

					// Validation rejects before any row is written
					_, err = e.storage.Purchase().GetPurchase(t.Context(), "ref-invalid")
					require.ErrorIs(t, err, apperrors.ErrPurchaseNotFound)
				})
			})
		}

		t.Run("betting requires operator and customer", func(t *testing.T) {
			inTx(t, 10_000, func(tx pgx.Tx, e env) {
				_, err := e.service.PayBill(t.Context(), e.user, PayBillRequest{
					Category:  models.CategoryBetting,
					Reference: "ref-bet-bad",
					Amount:    decimal.NewFromInt(2000),
					Operator:  "bet9ja",
				})

				require.ErrorIs(t, err, apperrors.ErrInvalidRequest)
			})
		})
	})

	t.Run("postings always balance", func(t *testing.T) {
		inTx(t, 10_000, func(tx pgx.Tx, e env) {
			_, err := e.service.PayBill(t.Context(), e.user, electricityRequest("ref-ok", 3000))
			require.NoError(t, err)

			e.provider.result = paystack.Result{OK: false}
			_, err = e.service.PayBill(t.Context(), e.user, electricityRequest("ref-bad", 2000))
			require.ErrorIs(t, err, apperrors.ErrProviderFailed)

			var total decimal.Decimal
			err = tx.QueryRow(t.Context(), `SELECT COALESCE(SUM(amount), 0) FROM ledger_postings`).Scan(&total)
			require.NoError(t, err)
			require.True(t, total.IsZero(), "postings must sum to zero, got %s", total)
		})
	})
}

func TestWalletBalance(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	testutil.InTx(pg.Pool, t, func(tx pgx.Tx) {
		storage := postgres.NewStorage(tx)

		authService, err := auth.NewService(auth.Config{SecretKey: "test-secret"}, storage)
		require.NoError(t, err)
		user, _, err := authService.Register(t.Context(), "balance-user", "password123")
		require.NoError(t, err)

		service := NewService(storage, &fakeProvider{}, logger.NewNoOpLogger())

		balance, err := service.WalletBalance(t.Context(), user)

		require.NoError(t, err, "balance for a fresh wallet should be readable")
		require.True(t, balance.IsZero(), "fresh wallet should hold zero")
	})
}
