package repository

import (
	"context"

	"telegram-shop-backend/internal/features/shop/models"
)

// Tx is the set of operations available inside a checkout transaction. The
// implementation must make them atomic with respect to concurrent checkouts
// for the same user.
type Tx interface {
	// EnsureUser creates the user row if missing and locks it for the rest
	// of the transaction, serializing concurrent checkouts per user.
	EnsureUser(tgID int64) error
	// ActiveOrder returns the user's order in an active status, or nil.
	ActiveOrder(tgID int64) (*models.Order, error)
	// CartLines returns the user's cart joined with current product prices.
	CartLines(tgID int64) ([]models.CartLine, error)
	// ActivePaymentProfile returns the active profile with the lowest sort
	// order, or nil when none is configured.
	ActivePaymentProfile() (*models.PaymentProfile, error)
	// CreateOrder inserts the order and its items, filling in generated ids
	// and timestamps.
	CreateOrder(order *models.Order) error
	// ClearCart removes every cart line of the user.
	ClearCart(tgID int64) error
}

// ShopRepository is the persistence collaborator for catalog, cart and
// orders.
type ShopRepository interface {
	// InTx runs fn inside a single database transaction.
	InTx(ctx context.Context, fn func(tx Tx) error) error

	ListCategories(ctx context.Context) ([]models.Category, error)
	ListProducts(ctx context.Context, categoryID *int64) ([]models.Product, error)

	AddCartItem(ctx context.Context, tgID, productID int64, quantity int) error
	GetCart(ctx context.Context, tgID int64) ([]models.CartLine, error)
	RemoveCartItem(ctx context.Context, tgID, productID int64) error
	ClearCart(ctx context.Context, tgID int64) (int64, error)

	ListOrders(ctx context.Context, tgID int64) ([]models.Order, error)
}
