package worker

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"mineral-shop/internal/broker"
	"mineral-shop/internal/mailer"
	"mineral-shop/internal/models"
	"mineral-shop/internal/util"
)

// NotificationStore is the persistence surface the worker needs: the order
// for mail content, and the processed-event table for dedup.
type NotificationStore interface {
	GetOrderByID(ctx context.Context, id string) (*models.Order, error)
	GetOrderItems(ctx context.Context, orderID string) ([]models.OrderItem, error)
	IsEventProcessed(ctx context.Context, eventID string) (bool, error)
	MarkEventProcessed(ctx context.Context, eventID, eventType string) error
}

// NotificationWorker consumes OrderPaid events off the critical path and
// sends the customer confirmation plus the owner sale alert. Mail failures
// are logged and never bubble up: at-most-once best effort per channel.
type NotificationWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	store        NotificationStore
	mailer       *mailer.Mailer
	logger       *zap.Logger
}

// NewNotificationWorker creates a new notification worker
func NewNotificationWorker(consumer *broker.Consumer, store NotificationStore, m *mailer.Mailer) *NotificationWorker {
	w := &NotificationWorker{
		consumer: consumer,
		store:    store,
		mailer:   m,
		logger:   util.GetLogger(),
	}

	eventHandler := broker.NewEventHandler()
	eventHandler.OnOrderPaid(w.handleOrderPaid)
	w.eventHandler = eventHandler

	return w
}

// Start starts the worker
func (w *NotificationWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting notification worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *NotificationWorker) Stop() error {
	w.logger.Info("Stopping notification worker")
	return w.consumer.Close()
}

func (w *NotificationWorker) handleOrderPaid(ctx context.Context, event *models.OrderPaidEvent) error {
	processed, err := w.store.IsEventProcessed(ctx, event.EventID)
	if err != nil {
		return fmt.Errorf("failed to check event processed: %w", err)
	}
	if processed {
		w.logger.Info("Event already processed",
			zap.String("event_id", event.EventID))
		return nil
	}

	order, err := w.store.GetOrderByID(ctx, event.OrderID)
	if err != nil {
		return fmt.Errorf("failed to load order %s: %w", event.OrderID, err)
	}

	items, err := w.store.GetOrderItems(ctx, event.OrderID)
	if err != nil {
		return fmt.Errorf("failed to load order items: %w", err)
	}

	// Mark before sending so a crash mid-send cannot double-mail on
	// redelivery; losing a mail is the accepted failure mode.
	if err := w.store.MarkEventProcessed(ctx, event.EventID, event.EventType); err != nil {
		return fmt.Errorf("failed to mark event processed: %w", err)
	}

	if err := w.mailer.SendOrderConfirmation(order, items); err != nil {
		w.logger.Error("Failed to send order confirmation",
			zap.String("order_id", order.ID),
			zap.Error(err))
		util.NotificationsSentTotal.WithLabelValues("customer", "error").Inc()
	} else {
		util.NotificationsSentTotal.WithLabelValues("customer", "ok").Inc()
	}

	if err := w.mailer.SendSaleAlert(order, items); err != nil {
		w.logger.Error("Failed to send sale alert",
			zap.String("order_id", order.ID),
			zap.Error(err))
		util.NotificationsSentTotal.WithLabelValues("owner", "error").Inc()
	} else {
		util.NotificationsSentTotal.WithLabelValues("owner", "ok").Inc()
	}

	w.logger.Info("Notifications dispatched", zap.String("order_id", order.ID))
	return nil
}
