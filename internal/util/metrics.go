package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_created_total",
		Help: "Total number of orders created",
	}, []string{"payment_method"})

	OrdersPaidTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_paid_total",
		Help: "Total number of orders transitioned to paid",
	})

	OrdersFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_failed_total",
		Help: "Total number of rejected or failed checkout attempts",
	}, []string{"reason"})

	PaymentMismatchTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payment_amount_mismatch_total",
		Help: "Approved payments whose amount did not match the order total",
	})

	WebhookEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_total",
		Help: "Webhook notifications by outcome",
	}, []string{"outcome"})

	PreferenceCreateLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "gateway_preference_create_latency_seconds",
		Help:    "Latency of payment preference creation",
		Buckets: prometheus.DefBuckets,
	})

	PaymentFetchLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "gateway_payment_fetch_latency_seconds",
		Help:    "Latency of payment status lookups",
		Buckets: prometheus.DefBuckets,
	})

	NotificationsSentTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notifications_sent_total",
		Help: "Outbound emails by channel and result",
	}, []string{"channel", "result"})

	CheckoutThrottledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "checkout_throttled_total",
		Help: "Requests rejected by the checkout throttle",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)

// Webhook outcome label values
const (
	WebhookOutcomeSettled      = "settled"
	WebhookOutcomeIgnored      = "ignored"
	WebhookOutcomeAlreadyPaid  = "already_paid"
	WebhookOutcomeUnknownOrder = "unknown_order"
	WebhookOutcomeMismatch     = "amount_mismatch"
	WebhookOutcomeError        = "error"
)
