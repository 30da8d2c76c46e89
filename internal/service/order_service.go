package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mineral-shop/internal/gateway"
	"mineral-shop/internal/models"
	"mineral-shop/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service-level errors translated by the API layer.
var (
	ErrUnknownProduct = errors.New("unknown product in cart")
	ErrEmptyCart      = errors.New("cart is empty")
)

// OrderStore is the persistence surface the controller needs.
type OrderStore interface {
	CreateOrder(ctx context.Context, order *models.Order) error
	CreateOrderItem(ctx context.Context, item *models.OrderItem) error
	GetOrderByID(ctx context.Context, id string) (*models.Order, error)
	GetOrderItems(ctx context.Context, orderID string) ([]models.OrderItem, error)
	GetProductsByIDs(ctx context.Context, ids []int64) ([]models.Product, error)
	MarkOrderPaid(ctx context.Context, orderID, paymentID string) (bool, error)
}

// PaymentGateway is the processor boundary.
type PaymentGateway interface {
	CreatePreference(ctx context.Context, order *models.Order, items []models.OrderItem) (*gateway.Preference, error)
	GetPayment(ctx context.Context, paymentID string) (*gateway.PaymentStatus, error)
}

// EventPublisher emits domain events for the notification pipeline.
type EventPublisher interface {
	PublishOrderCreated(ctx context.Context, event *models.OrderCreatedEvent) error
	PublishOrderPaid(ctx context.Context, event *models.OrderPaidEvent) error
}

// OrderService is the order lifecycle controller: checkout, webhook
// reconciliation and client-side verification all funnel through it.
type OrderService struct {
	store    OrderStore
	gateway  PaymentGateway
	events   EventPublisher
	pricing  PricingPolicy
	currency string
	logger   *zap.Logger
}

// NewOrderService creates a new order service
func NewOrderService(store OrderStore, gw PaymentGateway, events EventPublisher, pricing PricingPolicy, currency string) *OrderService {
	return &OrderService{
		store:    store,
		gateway:  gw,
		events:   events,
		pricing:  pricing,
		currency: currency,
		logger:   util.GetLogger(),
	}
}

// CheckoutItem is a cart line. Unit price and title are accepted for display
// parity with the storefront but the catalog values are what get stored.
type CheckoutItem struct {
	ProductID int64  `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,min=1"`
	UnitPrice int64  `json:"unit_price"`
	Title     string `json:"title"`
}

// ShippingRequest carries the recipient record. Postal code is the only
// optional field.
type ShippingRequest struct {
	Name       string `json:"name" binding:"required"`
	Email      string `json:"email" binding:"required,email"`
	Phone      string `json:"phone" binding:"required"`
	Address    string `json:"address" binding:"required"`
	City       string `json:"city" binding:"required"`
	Region     string `json:"region" binding:"required"`
	PostalCode string `json:"postal_code"`
}

// CheckoutRequest is the public checkout payload.
type CheckoutRequest struct {
	Items          []CheckoutItem  `json:"items" binding:"required,min=1,dive"`
	Shipping       ShippingRequest `json:"shipping" binding:"required"`
	DeliveryMethod string          `json:"delivery_method" binding:"required,oneof=pickup delivery"`
}

// CheckoutResponse is returned by the gateway flow.
type CheckoutResponse struct {
	OrderID      string `json:"order_id"`
	PreferenceID string `json:"preference_id"`
	InitPoint    string `json:"init_point"`
}

// TransferCheckoutResponse is returned by the transfer flow.
type TransferCheckoutResponse struct {
	OrderID  string `json:"order_id"`
	Status   string `json:"status"`
	Subtotal int64  `json:"subtotal"`
	Shipping int64  `json:"shipping_cost"`
	Discount int64  `json:"discount"`
	Total    int64  `json:"total"`
}

// Checkout is the gateway-flow entry point: price the cart from the
// catalog, persist a pending order and create the payment session.
func (s *OrderService) Checkout(ctx context.Context, req *CheckoutRequest) (*CheckoutResponse, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.Checkout")
	defer span.End()

	order, items, err := s.buildOrder(ctx, req, models.PaymentMethodGateway)
	if err != nil {
		return nil, err
	}

	if err := s.persistOrder(ctx, order, items); err != nil {
		util.OrdersFailedTotal.WithLabelValues("db_error").Inc()
		return nil, err
	}

	pref, err := s.gateway.CreatePreference(ctx, order, items)
	if err != nil {
		// The pending order stays persisted; checkout can be retried
		// against a fresh preference and unused orders simply expire.
		util.OrdersFailedTotal.WithLabelValues("gateway_error").Inc()
		return nil, fmt.Errorf("failed to create payment session: %w", err)
	}

	s.logger.Info("Checkout created",
		zap.String("order_id", order.ID),
		zap.String("preference_id", pref.ID),
		zap.Int64("total", order.Total))

	return &CheckoutResponse{
		OrderID:      order.ID,
		PreferenceID: pref.ID,
		InitPoint:    pref.InitPoint,
	}, nil
}

// CheckoutTransfer is the manual bank-transfer entry point. The alternate
// pricing policy applies and the processor is never contacted.
func (s *OrderService) CheckoutTransfer(ctx context.Context, req *CheckoutRequest) (*TransferCheckoutResponse, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.CheckoutTransfer")
	defer span.End()

	order, items, err := s.buildOrder(ctx, req, models.PaymentMethodTransfer)
	if err != nil {
		return nil, err
	}

	if err := s.persistOrder(ctx, order, items); err != nil {
		util.OrdersFailedTotal.WithLabelValues("db_error").Inc()
		return nil, err
	}

	s.logger.Info("Transfer order created",
		zap.String("order_id", order.ID),
		zap.Int64("total", order.Total))

	return &TransferCheckoutResponse{
		OrderID:  order.ID,
		Status:   order.Status,
		Subtotal: order.Subtotal,
		Shipping: order.ShippingCost,
		Discount: order.Discount,
		Total:    order.Total,
	}, nil
}

// buildOrder resolves the cart against the catalog and prices it. Unit
// prices come from the product rows, never from the request.
func (s *OrderService) buildOrder(ctx context.Context, req *CheckoutRequest, paymentMethod string) (*models.Order, []models.OrderItem, error) {
	products, err := s.resolveProducts(ctx, req.Items)
	if err != nil {
		return nil, nil, err
	}

	orderID := uuid.New().String()

	items := make([]models.OrderItem, 0, len(req.Items))
	for _, line := range req.Items {
		product := products[line.ProductID]
		items = append(items, models.OrderItem{
			OrderID:   orderID,
			ProductID: product.ID,
			Title:     product.Name,
			UnitPrice: product.Price,
			Quantity:  line.Quantity,
		})
	}

	var quote Quote
	status := models.OrderStatusPending
	if paymentMethod == models.PaymentMethodTransfer {
		quote = s.pricing.QuoteTransfer(items, req.DeliveryMethod)
		status = models.OrderStatusAwaitingTransfer
	} else {
		quote = s.pricing.QuoteGateway(items, req.DeliveryMethod)
	}

	order := &models.Order{
		ID:             orderID,
		Subtotal:       quote.Subtotal,
		ShippingCost:   quote.ShippingCost,
		Discount:       quote.Discount,
		Total:          quote.Total,
		DeliveryMethod: req.DeliveryMethod,
		PaymentMethod:  paymentMethod,
		Status:         status,
		CustomerName:   req.Shipping.Name,
		CustomerEmail:  req.Shipping.Email,
		CustomerPhone:  req.Shipping.Phone,
		Address:        req.Shipping.Address,
		City:           req.Shipping.City,
		Region:         req.Shipping.Region,
		PostalCode:     req.Shipping.PostalCode,
	}

	return order, items, nil
}

func (s *OrderService) persistOrder(ctx context.Context, order *models.Order, items []models.OrderItem) error {
	if err := s.store.CreateOrder(ctx, order); err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}

	for i := range items {
		if err := s.store.CreateOrderItem(ctx, &items[i]); err != nil {
			return fmt.Errorf("failed to create order item: %w", err)
		}
	}

	util.OrdersCreatedTotal.WithLabelValues(order.PaymentMethod).Inc()

	event := &models.OrderCreatedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderCreated,
			Timestamp: time.Now(),
		},
		OrderID:       order.ID,
		Total:         order.Total,
		PaymentMethod: order.PaymentMethod,
	}
	if err := s.events.PublishOrderCreated(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderCreated event", zap.Error(err))
	}

	return nil
}

// resolveProducts loads the referenced catalog rows and rejects carts
// pointing at unknown products.
func (s *OrderService) resolveProducts(ctx context.Context, items []CheckoutItem) (map[int64]models.Product, error) {
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	ids := make([]int64, len(items))
	for i, item := range items {
		ids[i] = item.ProductID
	}

	products, err := s.store.GetProductsByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load products: %w", err)
	}

	productMap := make(map[int64]models.Product, len(products))
	for _, p := range products {
		productMap[p.ID] = p
	}

	for _, item := range items {
		if _, ok := productMap[item.ProductID]; !ok {
			util.OrdersFailedTotal.WithLabelValues("unknown_product").Inc()
			return nil, fmt.Errorf("%w: %d", ErrUnknownProduct, item.ProductID)
		}
	}

	return productMap, nil
}

// GetOrder retrieves an order and its lines
func (s *OrderService) GetOrder(ctx context.Context, orderID string) (*models.Order, []models.OrderItem, error) {
	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}

	items, err := s.store.GetOrderItems(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}

	return order, items, nil
}
