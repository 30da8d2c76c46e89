package models

import "time"

// Event types
const (
	EventTypeOrderCreated = "ORDER_CREATED"
	EventTypeOrderPaid    = "ORDER_PAID"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderCreatedEvent published when a checkout persists a new order
type OrderCreatedEvent struct {
	BaseEvent
	OrderID       string `json:"order_id"`
	Total         int64  `json:"total"`
	PaymentMethod string `json:"payment_method"`
}

// OrderPaidEvent published when a payment is reconciled and the order
// transitions to paid. The notification worker consumes it.
type OrderPaidEvent struct {
	BaseEvent
	OrderID       string `json:"order_id"`
	PaymentID     string `json:"payment_id"`
	Amount        int64  `json:"amount"`
	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email"`
}
