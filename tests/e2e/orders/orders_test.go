package orders

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/kudipay/settler/internal/testutil"
	"github.com/kudipay/settler/tests/e2e"
)

const (
	ListingsURL = "/api/market/listings"
	OrdersURL   = "/api/market/orders"
	ApproveURL  = "/api/market/orders/approve-delivery"
)

func Test_Orders(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	e2e.ServeInTx(pg.Pool, t, func(tx pgx.Tx, srvURL string, s e2e.Services) {
		do := func(t *testing.T, method string, url string, token string, data string) (*http.Response, string) {
			t.Helper()

			var body io.Reader
			if data != "" {
				body = strings.NewReader(data)
			}
			req, err := http.NewRequestWithContext(t.Context(), method, url, body)
			require.NoError(t, err)
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("Authorization", "Bearer "+token)

			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			raw, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()

			return resp, string(raw)
		}

		register := func(t *testing.T, username string) string {
			t.Helper()

			_, token, err := s.AuthService.Register(t.Context(), username, "StrongEnoughPassword")
			require.NoError(t, err)
			return token.Value
		}

		t.Run("escrow flow", func(t *testing.T) {
			testutil.InTx(tx, t, func(_ pgx.Tx) {
				seller := register(t, "seller")
				buyer := register(t, "buyer")

				// Seller lists the goods
				resp, body := do(t, http.MethodPost, srvURL+ListingsURL, seller, `{"title": "iPhone 13 Pro", "price": 450000}`)
				require.Equalf(t, http.StatusOK, resp.StatusCode, "not expected code. Body: %s", body)

				var listing struct {
					ListingID string `json:"listing_id"`
				}
				require.NoError(t, json.Unmarshal([]byte(body), &listing))

				// Buyer places the order, funds go on hold
				resp, body = do(t, http.MethodPost, srvURL+OrdersURL, buyer, `{"listing_id": "`+listing.ListingID+`"}`)
				require.Equalf(t, http.StatusOK, resp.StatusCode, "not expected code. Body: %s", body)
				require.Contains(t, body, `"status":"in_escrow"`)

				var order struct {
					OrderID string `json:"order_id"`
				}
				require.NoError(t, json.Unmarshal([]byte(body), &order))

				// Buyer confirms delivery, escrow releases
				resp, body = do(t, http.MethodPost, srvURL+ApproveURL, buyer, `{"order_id": "`+order.OrderID+`"}`)
				require.Equalf(t, http.StatusOK, resp.StatusCode, "not expected code. Body: %s", body)
				require.Contains(t, body, `"status":"released"`)

				// Second approval has nothing to release
				resp, body = do(t, http.MethodPost, srvURL+ApproveURL, buyer, `{"order_id": "`+order.OrderID+`"}`)
				require.Equalf(t, http.StatusBadRequest, resp.StatusCode, "not expected code. Body: %s", body)
				require.Contains(t, body, "Order is not in escrow.")

				// The order shows up in the buyer's history but not the seller's
				resp, body = do(t, http.MethodGet, srvURL+OrdersURL, buyer, "")
				require.Equal(t, http.StatusOK, resp.StatusCode)
				require.Contains(t, body, order.OrderID)

				resp, body = do(t, http.MethodGet, srvURL+OrdersURL, seller, "")
				require.Equal(t, http.StatusOK, resp.StatusCode)
				require.NotContains(t, body, order.OrderID)
			})
		})

		t.Run("own listing cannot be bought", func(t *testing.T) {
			testutil.InTx(tx, t, func(_ pgx.Tx) {
				seller := register(t, "seller")

				resp, body := do(t, http.MethodPost, srvURL+ListingsURL, seller, `{"title": "PS5 Slim", "price": 320000}`)
				require.Equalf(t, http.StatusOK, resp.StatusCode, "not expected code. Body: %s", body)

				var listing struct {
					ListingID string `json:"listing_id"`
				}
				require.NoError(t, json.Unmarshal([]byte(body), &listing))

				resp, body = do(t, http.MethodPost, srvURL+OrdersURL, seller, `{"listing_id": "`+listing.ListingID+`"}`)
				require.Equalf(t, http.StatusBadRequest, resp.StatusCode, "not expected code. Body: %s", body)
				require.Contains(t, body, "You cannot buy your own listing.")
			})
		})

		t.Run("foreign order approval looks missing", func(t *testing.T) {
			testutil.InTx(tx, t, func(_ pgx.Tx) {
				seller := register(t, "seller")
				buyer := register(t, "buyer")
				other := register(t, "other")

				resp, body := do(t, http.MethodPost, srvURL+ListingsURL, seller, `{"title": "MacBook Air M2", "price": 980000}`)
				require.Equalf(t, http.StatusOK, resp.StatusCode, "not expected code. Body: %s", body)

				var listing struct {
					ListingID string `json:"listing_id"`
				}
				require.NoError(t, json.Unmarshal([]byte(body), &listing))

				resp, body = do(t, http.MethodPost, srvURL+OrdersURL, buyer, `{"listing_id": "`+listing.ListingID+`"}`)
				require.Equalf(t, http.StatusOK, resp.StatusCode, "not expected code. Body: %s", body)

				var order struct {
					OrderID string `json:"order_id"`
				}
				require.NoError(t, json.Unmarshal([]byte(body), &order))

				resp, body = do(t, http.MethodPost, srvURL+ApproveURL, other, `{"order_id": "`+order.OrderID+`"}`)
				require.Equalf(t, http.StatusNotFound, resp.StatusCode, "not expected code. Body: %s", body)
				require.Contains(t, body, `"code":"NOT_FOUND"`)
			})
		})
	})
}
