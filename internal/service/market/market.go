package market

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kudipay/settler/internal/apperrors"
	"github.com/kudipay/settler/internal/logger"
	"github.com/kudipay/settler/internal/models"
	"github.com/kudipay/settler/internal/repository"
)

// Service is the escrow orchestrator for marketplace orders: it creates the
// order and its escrow hold, and walks them through release on delivery
// approval. No funds move in these flows, the escrow is a reservation record.
type Service struct {
	storage repository.Storage
	logger  logger.Logger
}

func NewService(storage repository.Storage, l logger.Logger) *Service {
	return &Service{
		storage: storage,
		logger:  l,
	}
}

type CreateListingRequest struct {
	Title       string
	Description *string
	Price       decimal.Decimal
}

func (s *Service) CreateListing(ctx context.Context, user models.User, req CreateListingRequest) (models.Listing, error) {
	var listing models.Listing

	req.Title = strings.TrimSpace(req.Title)
	if len(req.Title) < 3 || !req.Price.IsPositive() {
		return listing, apperrors.ErrInvalidRequest
	}

	listing, err := s.storage.Listing().CreateListing(ctx, repository.CreateListingParams{
		SellerID:    user.ID,
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
		Currency:    models.CurrencyNGN,
	})
	if err != nil {
		return listing, fmt.Errorf("can't create listing: %w", err)
	}

	return listing, nil
}

// CreateOrder reserves a listing for the buyer: Order{in_escrow} plus
// Escrow{held} in one storage transaction. The listing must be active and the
// buyer must not be the seller.
func (s *Service) CreateOrder(ctx context.Context, user models.User, listingID uuid.UUID, paymentMethod string) (models.Order, error) {
	var order models.Order

	listing, err := s.storage.Listing().GetListing(ctx, listingID)
	if err != nil {
		return order, err
	}
	// An inactive listing is indistinguishable from a missing one
	if listing.Status != models.ListingActive {
		return order, apperrors.ErrListingNotFound
	}
	if listing.SellerID == user.ID {
		return order, apperrors.ErrOwnListing
	}

	if paymentMethod != models.PaymentMethodCrypto {
		paymentMethod = models.PaymentMethodWallet
	}

	err = s.storage.InTx(ctx, func(storage repository.Storage) error {
		order, err = storage.Order().CreateOrder(ctx, repository.CreateOrderParams{
			BuyerID:       user.ID,
			SellerID:      listing.SellerID,
			ListingID:     listing.ID,
			Amount:        listing.Price,
			PaymentMethod: paymentMethod,
			Status:        models.OrderInEscrow,
		})
		if err != nil {
			return err
		}

		_, err = storage.Order().CreateEscrow(ctx, order)
		return err
	})
	if err != nil {
		return order, fmt.Errorf("can't create order: %w", err)
	}

	return order, nil
}

// ApproveDelivery releases the escrow for an in_escrow order of the calling
// buyer: Order -> delivered, Escrow -> released, Order -> released.
//
// Settlement of the amount to the seller is not wired here: releasing the
// escrow changes statuses only, the actual payout runs out of band.
func (s *Service) ApproveDelivery(ctx context.Context, user models.User, orderID uuid.UUID) (models.Order, error) {
	order, err := s.storage.Order().GetOrder(ctx, orderID)
	if err != nil {
		return order, err
	}
	// A foreign order is indistinguishable from a missing one
	if order.BuyerID != user.ID {
		return order, apperrors.ErrOrderNotFound
	}
	if order.Status != models.OrderInEscrow {
		return order, apperrors.ErrOrderNotInEscrow
	}

	err = s.storage.InTx(ctx, func(storage repository.Storage) error {
		if err := storage.Order().SetOrderStatus(ctx, order.ID, models.OrderDelivered); err != nil {
			return err
		}

		escrow, err := storage.Order().GetEscrowByOrder(ctx, order.ID)
		if err != nil {
			return err
		}
		if err := storage.Order().SetEscrowStatus(ctx, escrow.ID, models.EscrowReleased); err != nil {
			return err
		}

		return storage.Order().SetOrderStatus(ctx, order.ID, models.OrderReleased)
	})
	if err != nil {
		return order, fmt.Errorf("can't release escrow: %w", err)
	}

	order.Status = models.OrderReleased
	return order, nil
}

func (s *Service) ListOrders(ctx context.Context, user models.User) ([]models.Order, error) {
	orders, err := s.storage.Order().ListOrders(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("can't list orders: %w", err)
	}

	return orders, nil
}
