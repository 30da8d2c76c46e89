package store

import (
	"context"

	"mineral-shop/internal/models"
)

// CreateOrder persists a new order
func (s *Store) CreateOrder(ctx context.Context, order *models.Order) error {
	query := `
		INSERT INTO orders (
			id, subtotal, shipping_cost, discount, total,
			delivery_method, payment_method, status,
			customer_name, customer_email, customer_phone,
			address, city, region, postal_code
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING created_at, updated_at`

	row := s.db.QueryRowxContext(ctx, query,
		order.ID, order.Subtotal, order.ShippingCost, order.Discount, order.Total,
		order.DeliveryMethod, order.PaymentMethod, order.Status,
		order.CustomerName, order.CustomerEmail, order.CustomerPhone,
		order.Address, order.City, order.Region, order.PostalCode)

	return row.Scan(&order.CreatedAt, &order.UpdatedAt)
}

// GetOrderByID retrieves an order by ID
func (s *Store) GetOrderByID(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, "SELECT * FROM orders WHERE id = $1", id)
	if err != nil {
		return nil, notFound(err, "order "+id)
	}
	return &order, nil
}

// MarkOrderPaid transitions an order to paid and records the payment id.
// The WHERE clause is the idempotency guard: the update only applies while
// the order is still awaiting payment, so concurrent webhook and
// verification calls cannot both win. Returns true if this call performed
// the transition.
func (s *Store) MarkOrderPaid(ctx context.Context, orderID, paymentID string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE orders
		 SET status = $1, payment_id = $2, updated_at = NOW()
		 WHERE id = $3 AND status IN ($4, $5)`,
		models.OrderStatusPaid, paymentID, orderID,
		models.OrderStatusPending, models.OrderStatusAwaitingTransfer)
	if err != nil {
		return false, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

// CreateOrderItem persists an order line
func (s *Store) CreateOrderItem(ctx context.Context, item *models.OrderItem) error {
	query := `
		INSERT INTO order_items (order_id, product_id, title, unit_price, quantity)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	return s.db.GetContext(ctx, &item.ID, query,
		item.OrderID, item.ProductID, item.Title, item.UnitPrice, item.Quantity)
}

// GetOrderItems retrieves all lines of an order
func (s *Store) GetOrderItems(ctx context.Context, orderID string) ([]models.OrderItem, error) {
	var items []models.OrderItem
	err := s.db.SelectContext(ctx, &items,
		"SELECT * FROM order_items WHERE order_id = $1 ORDER BY id", orderID)
	return items, err
}
