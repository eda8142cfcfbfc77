package models

import "time"

// OrderStatus is the lifecycle state of an order. New and InProgress are the
// active states: a user may hold at most one active order at a time.
type OrderStatus string

const (
	OrderStatusNew        OrderStatus = "new"
	OrderStatusInProgress OrderStatus = "in_progress"
	OrderStatusDone       OrderStatus = "done"
	OrderStatusCanceled   OrderStatus = "canceled"
)

type Category struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	ParentID *int64 `json:"parent_id,omitempty"`
}

type Product struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Price       float64  `json:"price"`
	OldPrice    *float64 `json:"old_price,omitempty"`
	CategoryID  *int64   `json:"category_id,omitempty"`
}

// CartLine is one cart position joined with its product, priced at read time.
type CartLine struct {
	ProductID   int64   `json:"product_id"`
	ProductName string  `json:"product_name"`
	Price       float64 `json:"price"`
	Quantity    int     `json:"quantity"`
}

// PaymentProfile holds the requisites shown to the buyer. The active profile
// with the lowest sort order is snapshotted onto each new order.
type PaymentProfile struct {
	ID         int64  `json:"id"`
	BankName   string `json:"bank_name"`
	CardNumber string `json:"card_number"`
	CardHolder string `json:"card_holder"`
	IsActive   bool   `json:"is_active"`
	SortOrder  int    `json:"sort_order"`
}

type OrderItem struct {
	ID          int64  `json:"id"`
	OrderID     int64  `json:"order_id"`
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
	// Price is the unit price at checkout time; later catalog edits do not
	// touch it.
	Price float64 `json:"price"`
}

type Order struct {
	ID          int64       `json:"id"`
	TgUserID    int64       `json:"tg_user_id"`
	Status      OrderStatus `json:"status"`
	TotalAmount float64     `json:"total_amount"`

	// Payment requisites snapshotted from the profile at checkout time.
	PayBank   string `json:"pay_bank"`
	PayCard   string `json:"pay_card"`
	PayHolder string `json:"pay_holder"`

	FullName        string `json:"full_name"`
	Phone           string `json:"phone"`
	DeliveryType    string `json:"delivery_type"`
	DeliveryAddress string `json:"delivery_address,omitempty"`

	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
	Items     []OrderItem `json:"items"`
}

// IsActive reports whether the order still occupies the user's single active
// slot.
func (o *Order) IsActive() bool {
	return o.Status == OrderStatusNew || o.Status == OrderStatusInProgress
}

// CheckoutRequest carries the delivery details supplied at checkout.
type CheckoutRequest struct {
	FullName        string `json:"full_name" binding:"required"`
	Phone           string `json:"phone" binding:"required"`
	DeliveryType    string `json:"delivery_type" binding:"required,oneof=cdek post_ru meet"`
	DeliveryAddress string `json:"delivery_address"`
}
