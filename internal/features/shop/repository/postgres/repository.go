package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq"

	"telegram-shop-backend/internal/features/shop/models"
	"telegram-shop-backend/internal/features/shop/repository"
)

type shopRepository struct {
	db *sql.DB
}

func NewShopRepository(db *sql.DB) repository.ShopRepository {
	return &shopRepository{db: db}
}

// InTx runs fn inside a single transaction, rolling back on error.
func (r *shopRepository) InTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(&shopTx{ctx: ctx, tx: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

type shopTx struct {
	ctx context.Context
	tx  *sql.Tx
}

var _ repository.Tx = (*shopTx)(nil)

// EnsureUser creates the user row if missing and takes a row lock on it. The
// lock serializes concurrent checkouts for the same user, so the
// check-then-create on the active order cannot race.
func (t *shopTx) EnsureUser(tgID int64) error {
	const insert = `INSERT INTO telegram_users (tg_id, created_at, updated_at) VALUES ($1, now(), now()) ON CONFLICT (tg_id) DO NOTHING`
	if _, err := t.tx.ExecContext(t.ctx, insert, tgID); err != nil {
		return fmt.Errorf("ensure user: %w", err)
	}
	const lock = `SELECT tg_id FROM telegram_users WHERE tg_id = $1 FOR UPDATE`
	var id int64
	if err := t.tx.QueryRowContext(t.ctx, lock, tgID).Scan(&id); err != nil {
		return fmt.Errorf("lock user: %w", err)
	}
	return nil
}

func (t *shopTx) ActiveOrder(tgID int64) (*models.Order, error) {
	const q = orderSelect + `
WHERE tg_user_id = $1 AND status IN ('new', 'in_progress')
ORDER BY id
LIMIT 1`
	order, err := scanOrder(t.tx.QueryRowContext(t.ctx, q, tgID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	order.Items, err = loadOrderItems(t.ctx, t.tx, order.ID)
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (t *shopTx) CartLines(tgID int64) ([]models.CartLine, error) {
	return queryCartLines(t.ctx, t.tx, tgID)
}

func (t *shopTx) ActivePaymentProfile() (*models.PaymentProfile, error) {
	const q = `
SELECT id, bank_name, card_number, card_holder, is_active, sort_order
FROM payment_profiles
WHERE is_active
ORDER BY sort_order, id
LIMIT 1`
	var p models.PaymentProfile
	err := t.tx.QueryRowContext(t.ctx, q).Scan(&p.ID, &p.BankName, &p.CardNumber, &p.CardHolder, &p.IsActive, &p.SortOrder)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (t *shopTx) CreateOrder(order *models.Order) error {
	const insertOrder = `
INSERT INTO orders (tg_user_id, status, total_amount, pay_bank, pay_card, pay_holder, full_name, phone, delivery_type, delivery_address, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NULLIF($10, ''), now(), now())
RETURNING id, created_at, updated_at`
	err := t.tx.QueryRowContext(t.ctx, insertOrder,
		order.TgUserID, order.Status, order.TotalAmount,
		order.PayBank, order.PayCard, order.PayHolder,
		order.FullName, order.Phone, order.DeliveryType, order.DeliveryAddress,
	).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	const insertItem = `
INSERT INTO order_items (order_id, product_id, product_name, quantity, price)
VALUES ($1, $2, $3, $4, $5)
RETURNING id`
	for i := range order.Items {
		item := &order.Items[i]
		item.OrderID = order.ID
		if err := t.tx.QueryRowContext(t.ctx, insertItem,
			item.OrderID, item.ProductID, item.ProductName, item.Quantity, item.Price,
		).Scan(&item.ID); err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}
	return nil
}

func (t *shopTx) ClearCart(tgID int64) error {
	_, err := t.tx.ExecContext(t.ctx, `DELETE FROM cart_items WHERE tg_user_id = $1`, tgID)
	return err
}

// Catalog reads.

func (r *shopRepository) ListCategories(ctx context.Context) ([]models.Category, error) {
	const q = `SELECT id, name, parent_id FROM categories ORDER BY name, id`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []models.Category
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.ParentID); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (r *shopRepository) ListProducts(ctx context.Context, categoryID *int64) ([]models.Product, error) {
	q := `SELECT id, name, COALESCE(description, ''), price, old_price, category_id FROM products`
	var args []interface{}
	if categoryID != nil {
		q += ` WHERE category_id = $1`
		args = append(args, *categoryID)
	}
	q += ` ORDER BY name, id`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		var p models.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.OldPrice, &p.CategoryID); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// Cart operations.

func (r *shopRepository) AddCartItem(ctx context.Context, tgID, productID int64, quantity int) error {
	const q = `
INSERT INTO cart_items (tg_user_id, product_id, quantity)
VALUES ($1, $2, $3)
ON CONFLICT (tg_user_id, product_id) DO UPDATE SET
	quantity = cart_items.quantity + EXCLUDED.quantity`
	_, err := r.db.ExecContext(ctx, q, tgID, productID, quantity)
	return err
}

func (r *shopRepository) GetCart(ctx context.Context, tgID int64) ([]models.CartLine, error) {
	return queryCartLines(ctx, r.db, tgID)
}

func (r *shopRepository) RemoveCartItem(ctx context.Context, tgID, productID int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE tg_user_id = $1 AND product_id = $2`, tgID, productID)
	return err
}

func (r *shopRepository) ClearCart(ctx context.Context, tgID int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE tg_user_id = $1`, tgID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *shopRepository) ListOrders(ctx context.Context, tgID int64) ([]models.Order, error) {
	const q = orderSelect + `
WHERE tg_user_id = $1
ORDER BY id DESC`
	rows, err := r.db.QueryContext(ctx, q, tgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range orders {
		items, err := loadOrderItems(ctx, r.db, orders[i].ID)
		if err != nil {
			return nil, err
		}
		orders[i].Items = items
	}
	return orders, nil
}

// Shared scan helpers.

const orderSelect = `
SELECT id, tg_user_id, status, total_amount, COALESCE(pay_bank, ''), COALESCE(pay_card, ''), COALESCE(pay_holder, ''), COALESCE(full_name, ''), COALESCE(phone, ''), COALESCE(delivery_type, ''), COALESCE(delivery_address, ''), created_at, updated_at
FROM orders`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanOrder(row rowScanner) (*models.Order, error) {
	var o models.Order
	err := row.Scan(
		&o.ID, &o.TgUserID, &o.Status, &o.TotalAmount,
		&o.PayBank, &o.PayCard, &o.PayHolder,
		&o.FullName, &o.Phone, &o.DeliveryType, &o.DeliveryAddress,
		&o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

func loadOrderItems(ctx context.Context, q querier, orderID int64) ([]models.OrderItem, error) {
	const query = `
SELECT id, order_id, product_id, product_name, quantity, price
FROM order_items
WHERE order_id = $1
ORDER BY id`
	rows, err := q.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.OrderItem
	for rows.Next() {
		var item models.OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.ProductName, &item.Quantity, &item.Price); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func queryCartLines(ctx context.Context, q querier, tgID int64) ([]models.CartLine, error) {
	const query = `
SELECT ci.product_id, p.name, p.price, ci.quantity
FROM cart_items ci
JOIN products p ON p.id = ci.product_id
WHERE ci.tg_user_id = $1
ORDER BY ci.id`
	rows, err := q.QueryContext(ctx, query, tgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []models.CartLine
	for rows.Next() {
		var line models.CartLine
		if err := rows.Scan(&line.ProductID, &line.ProductName, &line.Price, &line.Quantity); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}
