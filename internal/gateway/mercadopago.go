// Package gateway wraps the Mercado Pago HTTP API. It is the only place the
// external processor is spoken to; callers decide retry policy.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"mineral-shop/internal/models"
	"mineral-shop/internal/util"

	"github.com/google/uuid"
)

// Payment status values reported by the processor
const (
	StatusApproved = "approved"
	StatusPending  = "pending"
	StatusRejected = "rejected"
)

// Preference is a created checkout session
type Preference struct {
	ID        string `json:"id"`
	InitPoint string `json:"init_point"`
}

// PaymentStatus is the authoritative state of a payment, fetched from the
// processor by payment id. ExternalReference carries our order id.
type PaymentStatus struct {
	ID                int64                  `json:"id"`
	Status            string                 `json:"status"`
	StatusDetail      string                 `json:"status_detail"`
	TransactionAmount float64                `json:"transaction_amount"`
	CurrencyID        string                 `json:"currency_id"`
	ExternalReference string                 `json:"external_reference"`
	Metadata          map[string]interface{} `json:"metadata"`
}

// Approved reports whether the payment reached the approved terminal state.
func (ps *PaymentStatus) Approved() bool {
	return ps.Status == StatusApproved
}

// BackURLs are the three shopper redirect targets of a preference.
type BackURLs struct {
	Success string `json:"success"`
	Failure string `json:"failure"`
	Pending string `json:"pending"`
}

// Config holds gateway credentials and URLs.
type Config struct {
	AccessToken     string
	BaseURL         string
	BackURLs        BackURLs
	NotificationURL string
	Currency        string
	Timeout         time.Duration
}

type Client struct {
	cfg        Config
	httpClient *http.Client
}

// NewClient creates a Mercado Pago client with a bounded request timeout.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.mercadopago.com"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}

	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// Sandbox reports whether the configured credential is a test token.
func (c *Client) Sandbox() bool {
	return strings.HasPrefix(c.cfg.AccessToken, "TEST-")
}

type preferenceItem struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	UnitPrice  float64 `json:"unit_price"`
	Quantity   int     `json:"quantity"`
	CurrencyID string  `json:"currency_id"`
}

type preferencePayer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone struct {
		Number string `json:"number"`
	} `json:"phone"`
}

type preferenceRequest struct {
	Items             []preferenceItem       `json:"items"`
	Payer             preferencePayer        `json:"payer"`
	BackURLs          BackURLs               `json:"back_urls"`
	AutoReturn        string                 `json:"auto_return"`
	NotificationURL   string                 `json:"notification_url"`
	ExternalReference string                 `json:"external_reference"`
	BinaryMode        bool                   `json:"binary_mode"`
	Metadata          map[string]interface{} `json:"metadata"`
}

type preferenceResponse struct {
	ID               string `json:"id"`
	InitPoint        string `json:"init_point"`
	SandboxInitPoint string `json:"sandbox_init_point"`
}

// CreatePreference creates a checkout session for an order. One preference
// item per order line, plus an explicit shipping line when shipping is
// charged. Binary mode restricts outcomes to approved/rejected. A fresh
// idempotency key is attached per call so a client retry cannot create a
// duplicate session.
func (c *Client) CreatePreference(ctx context.Context, order *models.Order, items []models.OrderItem) (*Preference, error) {
	start := time.Now()
	defer func() {
		util.PreferenceCreateLatency.Observe(time.Since(start).Seconds())
	}()

	prefItems := make([]preferenceItem, 0, len(items)+1)
	for _, item := range items {
		prefItems = append(prefItems, preferenceItem{
			ID:         fmt.Sprintf("%d", item.ProductID),
			Title:      item.Title,
			UnitPrice:  float64(item.UnitPrice),
			Quantity:   item.Quantity,
			CurrencyID: c.cfg.Currency,
		})
	}
	if order.ShippingCost > 0 {
		prefItems = append(prefItems, preferenceItem{
			ID:         "shipping",
			Title:      "Envío",
			UnitPrice:  float64(order.ShippingCost),
			Quantity:   1,
			CurrencyID: c.cfg.Currency,
		})
	}

	payer := preferencePayer{
		Name:  order.CustomerName,
		Email: order.CustomerEmail,
	}
	payer.Phone.Number = order.CustomerPhone

	reqBody := preferenceRequest{
		Items:             prefItems,
		Payer:             payer,
		BackURLs:          c.cfg.BackURLs,
		AutoReturn:        "approved",
		NotificationURL:   c.cfg.NotificationURL,
		ExternalReference: order.ID,
		BinaryMode:        true,
		Metadata:          map[string]interface{}{"order_id": order.ID},
	}

	var resp preferenceResponse
	if err := c.do(ctx, http.MethodPost, "/checkout/preferences", &reqBody, &resp); err != nil {
		return nil, fmt.Errorf("create preference for order %s: %w", order.ID, err)
	}

	initPoint := resp.InitPoint
	if c.Sandbox() && resp.SandboxInitPoint != "" {
		initPoint = resp.SandboxInitPoint
	}

	return &Preference{ID: resp.ID, InitPoint: initPoint}, nil
}

// GetPayment fetches the authoritative status of a payment by its
// processor-assigned id.
func (c *Client) GetPayment(ctx context.Context, paymentID string) (*PaymentStatus, error) {
	start := time.Now()
	defer func() {
		util.PaymentFetchLatency.Observe(time.Since(start).Seconds())
	}()

	var status PaymentStatus
	if err := c.do(ctx, http.MethodGet, "/v1/payments/"+paymentID, nil, &status); err != nil {
		return nil, fmt.Errorf("fetch payment %s: %w", paymentID, err)
	}
	return &status, nil
}

// do performs one authenticated request. Transport and processor-side errors
// surface to the caller; there are no retries here.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.cfg.AccessToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Idempotency-Key", uuid.New().String())
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("processor returned %d: %s", resp.StatusCode, respBody)
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
