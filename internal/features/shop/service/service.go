package service

import (
	"context"
	"time"

	apperrors "telegram-shop-backend/internal/common/errors"
	"telegram-shop-backend/internal/common/logger"
	"telegram-shop-backend/internal/features/shop/models"
	"telegram-shop-backend/internal/features/shop/repository"
)

// AdminNotifier announces a new order on a side channel. Implementations are
// best-effort: the orchestrator never waits on them.
type AdminNotifier interface {
	NotifyNewOrder(ctx context.Context, order *models.Order)
}

// ShopService exposes the storefront operations, checkout included.
type ShopService interface {
	// Checkout converts the user's cart into exactly one active order.
	// Re-entry while an active order exists returns that order unchanged.
	Checkout(ctx context.Context, tgID int64, req models.CheckoutRequest) (*models.Order, error)

	ListCategories(ctx context.Context) ([]models.Category, error)
	ListProducts(ctx context.Context, categoryID *int64) ([]models.Product, error)
	AddCartItem(ctx context.Context, tgID, productID int64, quantity int) error
	GetCart(ctx context.Context, tgID int64) ([]models.CartLine, error)
	RemoveCartItem(ctx context.Context, tgID, productID int64) error
	ClearCart(ctx context.Context, tgID int64) (int64, error)
	ListOrders(ctx context.Context, tgID int64) ([]models.Order, error)
}

type shopService struct {
	repo     repository.ShopRepository
	notifier AdminNotifier
}

func NewShopService(repo repository.ShopRepository, notifier AdminNotifier) ShopService {
	return &shopService{repo: repo, notifier: notifier}
}

func (s *shopService) Checkout(ctx context.Context, tgID int64, req models.CheckoutRequest) (*models.Order, error) {
	var (
		order   *models.Order
		created bool
	)

	err := s.repo.InTx(ctx, func(tx repository.Tx) error {
		if err := tx.EnsureUser(tgID); err != nil {
			return apperrors.NewDatabaseError("ensure user", err)
		}

		existing, err := tx.ActiveOrder(tgID)
		if err != nil {
			return apperrors.NewDatabaseError("load active order", err)
		}
		if existing != nil {
			// Idempotent re-entry: the active order is returned unchanged.
			order = existing
			return nil
		}

		lines, err := tx.CartLines(tgID)
		if err != nil {
			return apperrors.NewDatabaseError("load cart", err)
		}
		if len(lines) == 0 {
			return apperrors.NewEmptyCartError(tgID)
		}

		profile, err := tx.ActivePaymentProfile()
		if err != nil {
			return apperrors.NewDatabaseError("load payment profile", err)
		}
		if profile == nil {
			return apperrors.NewNoPaymentProfileError()
		}

		order = buildOrder(tgID, req, lines, profile)
		if err := tx.CreateOrder(order); err != nil {
			return apperrors.NewDatabaseError("create order", err)
		}
		if err := tx.ClearCart(tgID); err != nil {
			return apperrors.NewDatabaseError("clear cart", err)
		}
		created = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if created {
		logger.Info().
			Int64("tg_id", tgID).
			Int64("order_id", order.ID).
			Float64("total", order.TotalAmount).
			Msg("Order created")

		if s.notifier != nil {
			// Fire-and-forget: a failed notification never affects the
			// checkout response.
			notifyOrder := *order
			go func() {
				notifyCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				s.notifier.NotifyNewOrder(notifyCtx, &notifyOrder)
			}()
		}
	}

	return order, nil
}

// buildOrder snapshots the cart lines at their current unit prices and the
// payment requisites onto a fresh order.
func buildOrder(tgID int64, req models.CheckoutRequest, lines []models.CartLine, profile *models.PaymentProfile) *models.Order {
	order := &models.Order{
		TgUserID:        tgID,
		Status:          models.OrderStatusNew,
		PayBank:         profile.BankName,
		PayCard:         profile.CardNumber,
		PayHolder:       profile.CardHolder,
		FullName:        req.FullName,
		Phone:           req.Phone,
		DeliveryType:    req.DeliveryType,
		DeliveryAddress: req.DeliveryAddress,
	}
	for _, line := range lines {
		order.Items = append(order.Items, models.OrderItem{
			ProductID:   line.ProductID,
			ProductName: line.ProductName,
			Quantity:    line.Quantity,
			Price:       line.Price,
		})
		order.TotalAmount += line.Price * float64(line.Quantity)
	}
	return order
}

func (s *shopService) ListCategories(ctx context.Context) ([]models.Category, error) {
	return s.repo.ListCategories(ctx)
}

func (s *shopService) ListProducts(ctx context.Context, categoryID *int64) ([]models.Product, error) {
	return s.repo.ListProducts(ctx, categoryID)
}

func (s *shopService) AddCartItem(ctx context.Context, tgID, productID int64, quantity int) error {
	return s.repo.AddCartItem(ctx, tgID, productID, quantity)
}

func (s *shopService) GetCart(ctx context.Context, tgID int64) ([]models.CartLine, error) {
	return s.repo.GetCart(ctx, tgID)
}

func (s *shopService) RemoveCartItem(ctx context.Context, tgID, productID int64) error {
	return s.repo.RemoveCartItem(ctx, tgID, productID)
}

func (s *shopService) ClearCart(ctx context.Context, tgID int64) (int64, error) {
	return s.repo.ClearCart(ctx, tgID)
}

func (s *shopService) ListOrders(ctx context.Context, tgID int64) ([]models.Order, error) {
	return s.repo.ListOrders(ctx, tgID)
}
