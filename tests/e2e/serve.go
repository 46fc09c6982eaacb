package e2e

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stretchr/testify/require"

	"github.com/kudipay/settler/internal/handlers"
	"github.com/kudipay/settler/internal/logger"
	"github.com/kudipay/settler/internal/provider/paystack"
	"github.com/kudipay/settler/internal/repository"
	"github.com/kudipay/settler/internal/repository/postgres"
	"github.com/kudipay/settler/internal/service/auth"
	"github.com/kudipay/settler/internal/service/billing"
	"github.com/kudipay/settler/internal/service/market"
	"github.com/kudipay/settler/internal/testutil"
)

type Services struct {
	AuthService    *auth.Service
	BillingService *billing.Service
	MarketService  *market.Service
	Storage        repository.Storage
	Paystack       *PaystackStub
}

// PaystackStub plays the remote billing provider. Tests call SetAccept to
// make the provider decline following submissions.
type PaystackStub struct {
	mu        sync.Mutex
	accept    bool
	Reference string
}

func (p *PaystackStub) SetAccept(v bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.accept = v
}

func (p *PaystackStub) accepting() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.accept
}

func (p *PaystackStub) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		if !p.accepting() {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"status": false, "message": "Bill payment failed"}`))
			return
		}

		_, _ = w.Write([]byte(`{"status": true, "data": {"reference": "` + p.Reference + `"}}`))
	})
}

// Create db transaction and run server with that connection (one connection cause one transaction)
// The created transaction passed to inner function: so, you can safely use testutil.InTx with it
func ServeInTx(dbpool *pgxpool.Pool, t *testing.T, fn func(tx pgx.Tx, srvURL string, services Services)) {
	testutil.InTx(dbpool, t, func(tx pgx.Tx) {
		storage := postgres.NewStorage(tx)

		as, err := auth.NewService(auth.Config{SecretKey: "test-secret"}, storage)
		require.NoError(t, err, "auth service starting error")

		// Fake provider endpoint so the real http client gets exercised
		stub := &PaystackStub{accept: true, Reference: "PSK-E2E-001"}
		providerSrv := httptest.NewServer(stub.handler())
		defer providerSrv.Close()

		provider := paystack.NewClient(providerSrv.URL, "sk_test_secret", logger.NewNoOpLogger())

		bs := billing.NewService(storage, provider, logger.NewNoOpLogger())
		ms := market.NewService(storage, logger.NewNoOpLogger())

		// Complete all together as router
		router := handlers.NewRouter(as, bs, ms, logger.NewNoOpLogger())

		// Run http server with the router in transaction
		srv := httptest.NewServer(router)
		defer srv.Close()

		fn(tx, srv.URL, Services{
			AuthService:    as,
			BillingService: bs,
			MarketService:  ms,
			Storage:        storage,
			Paystack:       stub,
		})
	})
}
