package service

import (
	"context"
	"fmt"

	"mineral-shop/internal/gateway"
	"mineral-shop/internal/models"
	"mineral-shop/internal/store"
)

// fakeStore is an in-memory OrderStore. MarkOrderPaid mirrors the real
// conditional update: it only succeeds while the order is awaiting payment.
type fakeStore struct {
	orders    map[string]*models.Order
	items     map[string][]models.OrderItem
	products  map[int64]models.Product
	createErr error

	markPaidCalls int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		orders:   make(map[string]*models.Order),
		items:    make(map[string][]models.OrderItem),
		products: make(map[int64]models.Product),
	}
}

func (f *fakeStore) CreateOrder(_ context.Context, order *models.Order) error {
	if f.createErr != nil {
		return f.createErr
	}
	copied := *order
	f.orders[order.ID] = &copied
	return nil
}

func (f *fakeStore) CreateOrderItem(_ context.Context, item *models.OrderItem) error {
	item.ID = int64(len(f.items[item.OrderID]) + 1)
	f.items[item.OrderID] = append(f.items[item.OrderID], *item)
	return nil
}

func (f *fakeStore) GetOrderByID(_ context.Context, id string) (*models.Order, error) {
	order, ok := f.orders[id]
	if !ok {
		return nil, fmt.Errorf("order %s: %w", id, store.ErrNotFound)
	}
	copied := *order
	return &copied, nil
}

func (f *fakeStore) GetOrderItems(_ context.Context, orderID string) ([]models.OrderItem, error) {
	return f.items[orderID], nil
}

func (f *fakeStore) GetProductsByIDs(_ context.Context, ids []int64) ([]models.Product, error) {
	var out []models.Product
	for _, id := range ids {
		if p, ok := f.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeStore) MarkOrderPaid(_ context.Context, orderID, paymentID string) (bool, error) {
	f.markPaidCalls++

	order, ok := f.orders[orderID]
	if !ok {
		return false, nil
	}
	if order.Status != models.OrderStatusPending && order.Status != models.OrderStatusAwaitingTransfer {
		return false, nil
	}
	order.Status = models.OrderStatusPaid
	order.PaymentID = paymentID
	return true, nil
}

type fakeGateway struct {
	pref    *gateway.Preference
	prefErr error

	payments map[string]*gateway.PaymentStatus
	fetchErr error

	createCalls int
	fetchCalls  int
	lastOrder   *models.Order
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		pref:     &gateway.Preference{ID: "pref-1", InitPoint: "https://mp/checkout/pref-1"},
		payments: make(map[string]*gateway.PaymentStatus),
	}
}

func (f *fakeGateway) CreatePreference(_ context.Context, order *models.Order, _ []models.OrderItem) (*gateway.Preference, error) {
	f.createCalls++
	f.lastOrder = order
	if f.prefErr != nil {
		return nil, f.prefErr
	}
	return f.pref, nil
}

func (f *fakeGateway) GetPayment(_ context.Context, paymentID string) (*gateway.PaymentStatus, error) {
	f.fetchCalls++
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	status, ok := f.payments[paymentID]
	if !ok {
		return nil, fmt.Errorf("payment %s not found", paymentID)
	}
	return status, nil
}

type fakePublisher struct {
	created []*models.OrderCreatedEvent
	paid    []*models.OrderPaidEvent
}

func (f *fakePublisher) PublishOrderCreated(_ context.Context, event *models.OrderCreatedEvent) error {
	f.created = append(f.created, event)
	return nil
}

func (f *fakePublisher) PublishOrderPaid(_ context.Context, event *models.OrderPaidEvent) error {
	f.paid = append(f.paid, event)
	return nil
}

func testPolicy() PricingPolicy {
	return PricingPolicy{ShippingCost: 100, FreeShippingMin: 5000}
}

func newTestService() (*OrderService, *fakeStore, *fakeGateway, *fakePublisher) {
	st := newFakeStore()
	gw := newFakeGateway()
	pub := &fakePublisher{}
	svc := NewOrderService(st, gw, pub, testPolicy(), "ARS")
	return svc, st, gw, pub
}
