package models

import "time"

// Product represents an item in the mineral catalog
type Product struct {
	ID          int64     `db:"id" json:"id"`
	Slug        string    `db:"slug" json:"slug"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	Price       int64     `db:"price" json:"price"`
	Stock       int       `db:"stock" json:"stock"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Order represents a purchase attempt and its lifecycle state.
// All money fields are server-computed; client-supplied totals are never stored.
type Order struct {
	ID             string    `db:"id" json:"id"`
	Subtotal       int64     `db:"subtotal" json:"subtotal"`
	ShippingCost   int64     `db:"shipping_cost" json:"shipping_cost"`
	Discount       int64     `db:"discount" json:"discount"`
	Total          int64     `db:"total" json:"total"`
	DeliveryMethod string    `db:"delivery_method" json:"delivery_method"`
	PaymentMethod  string    `db:"payment_method" json:"payment_method"`
	Status         string    `db:"status" json:"status"`
	PaymentID      string    `db:"payment_id" json:"payment_id,omitempty"`
	CustomerName   string    `db:"customer_name" json:"customer_name"`
	CustomerEmail  string    `db:"customer_email" json:"customer_email"`
	CustomerPhone  string    `db:"customer_phone" json:"customer_phone"`
	Address        string    `db:"address" json:"address"`
	City           string    `db:"city" json:"city"`
	Region         string    `db:"region" json:"region"`
	PostalCode     string    `db:"postal_code" json:"postal_code,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// OrderItem is a line of an order. Title and unit price are snapshots of the
// catalog at purchase time.
type OrderItem struct {
	ID        int64  `db:"id" json:"id"`
	OrderID   string `db:"order_id" json:"order_id"`
	ProductID int64  `db:"product_id" json:"product_id"`
	Title     string `db:"title" json:"title"`
	UnitPrice int64  `db:"unit_price" json:"unit_price"`
	Quantity  int    `db:"quantity" json:"quantity"`
}

// Order statuses
const (
	OrderStatusPending          = "pending"
	OrderStatusAwaitingTransfer = "awaiting_transfer"
	OrderStatusPaid             = "paid"
)

// Delivery methods
const (
	DeliveryMethodPickup   = "pickup"
	DeliveryMethodDelivery = "delivery"
)

// Payment methods
const (
	PaymentMethodGateway  = "gateway"
	PaymentMethodTransfer = "transfer"
)

// ProcessedEvent for notification idempotency
type ProcessedEvent struct {
	EventID     string    `db:"event_id"`
	EventType   string    `db:"event_type"`
	ProcessedAt time.Time `db:"processed_at"`
}
