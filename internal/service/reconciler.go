package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"mineral-shop/internal/models"
	"mineral-shop/internal/store"
	"mineral-shop/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TopicPayment is the webhook discriminator for payment events.
const TopicPayment = "payment"

// VerificationResult is returned to the shopper's browser after a redirect
// back from the processor.
type VerificationResult struct {
	Verified bool    `json:"verified"`
	Status   string  `json:"status"`
	OrderID  string  `json:"order_id,omitempty"`
	Amount   float64 `json:"amount,omitempty"`
}

// HandleWebhook processes an asynchronous processor notification. The
// callback payload is never trusted: only the payment id is taken from it,
// and the order is resolved from a fresh status fetch. A nil return means
// the notification was handled or safely ignorable and must be acknowledged;
// an error means the processor should retry later.
func (s *OrderService) HandleWebhook(ctx context.Context, topic, paymentID string) error {
	ctx, span := util.StartSpan(ctx, "OrderService.HandleWebhook")
	defer span.End()

	if topic != TopicPayment || paymentID == "" {
		util.WebhookEventsTotal.WithLabelValues(util.WebhookOutcomeIgnored).Inc()
		return nil
	}

	_, err := s.settle(ctx, paymentID)
	return err
}

// VerifyPayment is the synchronous verification entry point. It shares the
// settle path with the webhook, so the two triggers race safely.
func (s *OrderService) VerifyPayment(ctx context.Context, paymentID string) (*VerificationResult, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.VerifyPayment")
	defer span.End()

	return s.settle(ctx, paymentID)
}

// settle fetches the authoritative payment status and, when it reports an
// approved payment whose amount exactly matches the stored order total,
// performs the one atomic transition to paid. Whichever trigger wins the
// conditional update owns the notification dispatch; the loser observes
// paid and no-ops.
func (s *OrderService) settle(ctx context.Context, paymentID string) (*VerificationResult, error) {
	status, err := s.gateway.GetPayment(ctx, paymentID)
	if err != nil {
		util.WebhookEventsTotal.WithLabelValues(util.WebhookOutcomeError).Inc()
		return nil, fmt.Errorf("failed to fetch payment status: %w", err)
	}

	result := &VerificationResult{
		Status:  status.Status,
		OrderID: status.ExternalReference,
		Amount:  status.TransactionAmount,
	}

	if !status.Approved() {
		// Not a failure: the order stays pending so payment can be retried.
		s.logger.Info("Payment not approved, leaving order untouched",
			zap.String("payment_id", paymentID),
			zap.String("status", status.Status))
		util.WebhookEventsTotal.WithLabelValues(util.WebhookOutcomeIgnored).Inc()
		return result, nil
	}

	if s.currency != "" && status.CurrencyID != s.currency {
		s.logger.Warn("Approved payment in unexpected currency",
			zap.String("payment_id", paymentID),
			zap.String("currency", status.CurrencyID))
		util.WebhookEventsTotal.WithLabelValues(util.WebhookOutcomeIgnored).Inc()
		return result, nil
	}

	order, err := s.store.GetOrderByID(ctx, status.ExternalReference)
	if errors.Is(err, store.ErrNotFound) {
		// Acknowledge: retrying against permanently-missing data would
		// keep the processor calling back forever.
		s.logger.Error("Payment references unknown order",
			zap.String("payment_id", paymentID),
			zap.String("external_reference", status.ExternalReference))
		util.WebhookEventsTotal.WithLabelValues(util.WebhookOutcomeUnknownOrder).Inc()
		return result, nil
	}
	if err != nil {
		util.WebhookEventsTotal.WithLabelValues(util.WebhookOutcomeError).Inc()
		return nil, fmt.Errorf("failed to load order: %w", err)
	}

	if order.Status == models.OrderStatusPaid {
		result.Verified = true
		util.WebhookEventsTotal.WithLabelValues(util.WebhookOutcomeAlreadyPaid).Inc()
		return result, nil
	}

	if status.TransactionAmount != float64(order.Total) {
		// Suspicious or partial payment: withhold the transition and leave
		// the order recoverable for manual reconciliation.
		s.logger.Warn("Payment amount does not match order total",
			zap.String("order_id", order.ID),
			zap.String("payment_id", paymentID),
			zap.Float64("reported", status.TransactionAmount),
			zap.Int64("expected", order.Total))
		util.PaymentMismatchTotal.Inc()
		util.WebhookEventsTotal.WithLabelValues(util.WebhookOutcomeMismatch).Inc()
		return result, nil
	}

	updated, err := s.store.MarkOrderPaid(ctx, order.ID, strconv.FormatInt(status.ID, 10))
	if err != nil {
		util.WebhookEventsTotal.WithLabelValues(util.WebhookOutcomeError).Inc()
		return nil, fmt.Errorf("failed to mark order paid: %w", err)
	}

	result.Verified = true

	if !updated {
		// Lost the race against the other trigger; it owns the notification.
		util.WebhookEventsTotal.WithLabelValues(util.WebhookOutcomeAlreadyPaid).Inc()
		return result, nil
	}

	util.OrdersPaidTotal.Inc()
	util.WebhookEventsTotal.WithLabelValues(util.WebhookOutcomeSettled).Inc()

	s.logger.Info("Order paid",
		zap.String("order_id", order.ID),
		zap.String("payment_id", paymentID),
		zap.Int64("total", order.Total))

	event := &models.OrderPaidEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderPaid,
			Timestamp: time.Now(),
		},
		OrderID:       order.ID,
		PaymentID:     strconv.FormatInt(status.ID, 10),
		Amount:        order.Total,
		CustomerName:  order.CustomerName,
		CustomerEmail: order.CustomerEmail,
	}
	if err := s.events.PublishOrderPaid(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderPaid event",
			zap.String("order_id", order.ID),
			zap.Error(err))
	}

	return result, nil
}
