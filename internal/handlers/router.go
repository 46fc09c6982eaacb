package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kudipay/settler/internal/handlers/middleware"
	"github.com/kudipay/settler/internal/logger"
	"github.com/kudipay/settler/internal/models"
	"github.com/kudipay/settler/internal/service/auth"
	"github.com/kudipay/settler/internal/service/billing"
	"github.com/kudipay/settler/internal/service/market"
)

// chain applies middlewares in the given order: m1(m2(...(h)))
func chain(h http.Handler, mds ...func(next http.Handler) http.Handler) http.Handler {
	for i := len(mds) - 1; i >= 0; i-- {
		h = mds[i](h)
	}
	return h
}

func NewRouter(
	authService authService,
	billingService billingService,
	marketService marketService,
	logger logger.Logger,
) http.Handler {
	authMiddleware := middleware.AuthMiddleware(authService)
	withAuth := func(h http.Handler) http.Handler {
		return authMiddleware(h)
	}

	apiuser := http.NewServeMux()
	apiuser.Handle("POST /register", handleRegister(authService, logger))
	apiuser.Handle("POST /login", handleLogin(authService, logger))
	apiuser.Handle("POST /bills/pay", withAuth(handlePayBill(billingService, logger)))
	apiuser.Handle("GET /wallet", withAuth(handleWallet(billingService, logger)))

	apimarket := http.NewServeMux()
	apimarket.Handle("POST /listings", withAuth(handleCreateListing(marketService, logger)))
	apimarket.Handle("POST /orders", withAuth(handleCreateOrder(marketService, logger)))
	apimarket.Handle("GET /orders", withAuth(handleListOrders(marketService, logger)))
	apimarket.Handle("POST /orders/approve-delivery", withAuth(handleApproveDelivery(marketService, logger)))

	root := http.NewServeMux()
	root.Handle("/api/user/", http.StripPrefix("/api/user", apiuser))
	root.Handle("/api/market/", http.StripPrefix("/api/market", apimarket))

	handler := chain(root,
		middleware.RequestIDMiddleware(),
		middleware.LoggerMiddleware(logger),
	)

	return handler
}

type authService interface {
	// Register user with username and password and provision the NGN wallet
	// Has to return apperrors.ErrUserAlreadyExists if user already exists
	Register(ctx context.Context, username string, password string) (models.User, auth.IssuedToken, error)

	// Login user with username and password
	// Has to return apperrors.ErrUserNotFound if credentials do not match
	Login(ctx context.Context, username string, password string) (models.User, auth.IssuedToken, error)

	// Get request and return user if it authenticated or error
	Auth(ctx context.Context, r *http.Request) (models.User, error)
}

type billingService interface {
	PayBill(ctx context.Context, user models.User, req billing.PayBillRequest) (billing.PayBillResult, error)
	WalletBalance(ctx context.Context, user models.User) (decimal.Decimal, error)
}

type marketService interface {
	CreateListing(ctx context.Context, user models.User, req market.CreateListingRequest) (models.Listing, error)
	CreateOrder(ctx context.Context, user models.User, listingID uuid.UUID, paymentMethod string) (models.Order, error)
	ListOrders(ctx context.Context, user models.User) ([]models.Order, error)
	ApproveDelivery(ctx context.Context, user models.User, orderID uuid.UUID) (models.Order, error)
}
