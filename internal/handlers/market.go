package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kudipay/settler/internal/apperrors"
	"github.com/kudipay/settler/internal/handlers/render"
	"github.com/kudipay/settler/internal/handlers/requestid"
	"github.com/kudipay/settler/internal/handlers/userctx"
	"github.com/kudipay/settler/internal/logger"
	"github.com/kudipay/settler/internal/service/market"
)

func handleCreateListing(marketService marketService, l logger.Logger) http.Handler {
	type request struct {
		Title       string          `json:"title" validate:"required,min=3"`
		Description *string         `json:"description"`
		Price       decimal.Decimal `json:"price" validate:"required"`
	}

	type response struct {
		Success   bool   `json:"success"`
		ListingID string `json:"listing_id"`
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

		listing, err := marketService.CreateListing(r.Context(), user, market.CreateListingRequest{
			Title:       req.Title,
			Description: req.Description,
			Price:       req.Price,
		})

		switch {
		case err == nil:
			render.JSON(w, response{
				Success:   true,
				ListingID: listing.ID.String(),
				RequestID: requestid.FromContext(r.Context()),
			})
		case errors.Is(err, apperrors.ErrInvalidRequest):
			renderCode(w, r, CodeInvalidRequest, http.StatusBadRequest)
		default:
			l.Error("Failed to create listing", "request_id", requestid.FromContext(r.Context()), "error", err)
			renderCode(w, r, CodeBackendError, http.StatusInternalServerError)
		}
	})
}

func handleCreateOrder(marketService marketService, l logger.Logger) http.Handler {
	type request struct {
		ListingID     uuid.UUID `json:"listing_id" validate:"required"`
		PaymentMethod string    `json:"payment_method"`
	}

	type response struct {
		Success   bool   `json:"success"`
		OrderID   string `json:"order_id"`
		Status    string `json:"status"`
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

		order, err := marketService.CreateOrder(r.Context(), user, req.ListingID, req.PaymentMethod)

		switch {
		case err == nil:
			render.JSON(w, response{
				Success:   true,
				OrderID:   order.ID.String(),
				Status:    order.Status,
				RequestID: requestid.FromContext(r.Context()),
			})
		case errors.Is(err, apperrors.ErrListingNotFound):
			renderCode(w, r, CodeNotFound, http.StatusNotFound)
		case errors.Is(err, apperrors.ErrOwnListing):
			render.Error(w, r, CodeInvalidRequest, "You cannot buy your own listing.", http.StatusBadRequest)
		default:
			l.Error("Failed to create order", "request_id", requestid.FromContext(r.Context()), "error", err)
			renderCode(w, r, CodeBackendError, http.StatusInternalServerError)
		}
	})
}

func handleListOrders(marketService marketService, l logger.Logger) http.Handler {
	type order struct {
		OrderID   string          `json:"order_id"`
		ListingID string          `json:"listing_id"`
		Amount    decimal.Decimal `json:"amount"`
		Status    string          `json:"status"`
		CreatedAt time.Time       `json:"created_at"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := userctx.FromContext(r.Context())
		if !ok {
			renderCode(w, r, CodeBackendError, http.StatusInternalServerError)
			return
		}

		list, err := marketService.ListOrders(r.Context(), user)
		if err != nil {
			l.Error("Failed to list orders", "request_id", requestid.FromContext(r.Context()), "error", err)
			renderCode(w, r, CodeBackendError, http.StatusInternalServerError)
			return
		}

		orders := make([]order, 0, len(list))
		for _, o := range list {
			orders = append(orders, order{
				OrderID:   o.ID.String(),
				ListingID: o.ListingID.String(),
				Amount:    o.Amount,
				Status:    o.Status,
				CreatedAt: o.CreatedAt,
			})
		}
		render.JSON(w, orders)
	})
}

func handleApproveDelivery(marketService marketService, l logger.Logger) http.Handler {
	type request struct {
		OrderID uuid.UUID `json:"order_id" validate:"required"`
	}

	type response struct {
		Success   bool   `json:"success"`
		OrderID   string `json:"order_id"`
		Status    string `json:"status"`
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

		order, err := marketService.ApproveDelivery(r.Context(), user, req.OrderID)

		switch {
		case err == nil:
			render.JSON(w, response{
				Success:   true,
				OrderID:   order.ID.String(),
				Status:    order.Status,
				RequestID: requestid.FromContext(r.Context()),
			})
		case errors.Is(err, apperrors.ErrOrderNotFound):
			renderCode(w, r, CodeNotFound, http.StatusNotFound)
		case errors.Is(err, apperrors.ErrOrderNotInEscrow):
			render.Error(w, r, CodeInvalidRequest, "Order is not in escrow.", http.StatusBadRequest)
		default:
			l.Error("Failed to approve delivery", "request_id", requestid.FromContext(r.Context()), "error", err)
			renderCode(w, r, CodeBackendError, http.StatusInternalServerError)
		}
	})
}
