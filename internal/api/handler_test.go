package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mineral-shop/internal/models"
	"mineral-shop/internal/service"
	"mineral-shop/internal/store"
)

type stubOrders struct {
	webhookTopics []string
	webhookIDs    []string
	webhookErr    error

	verifyResult *service.VerificationResult
	verifyErr    error

	checkoutResp *service.CheckoutResponse
	checkoutErr  error
}

func (s *stubOrders) Checkout(_ context.Context, _ *service.CheckoutRequest) (*service.CheckoutResponse, error) {
	return s.checkoutResp, s.checkoutErr
}

func (s *stubOrders) CheckoutTransfer(_ context.Context, _ *service.CheckoutRequest) (*service.TransferCheckoutResponse, error) {
	return nil, errors.New("not used")
}

func (s *stubOrders) GetOrder(_ context.Context, id string) (*models.Order, []models.OrderItem, error) {
	return nil, nil, fmt.Errorf("order %s: %w", id, store.ErrNotFound)
}

func (s *stubOrders) HandleWebhook(_ context.Context, topic, paymentID string) error {
	s.webhookTopics = append(s.webhookTopics, topic)
	s.webhookIDs = append(s.webhookIDs, paymentID)
	return s.webhookErr
}

func (s *stubOrders) VerifyPayment(_ context.Context, _ string) (*service.VerificationResult, error) {
	return s.verifyResult, s.verifyErr
}

type stubCatalog struct{}

func (stubCatalog) GetProducts(_ context.Context) ([]models.Product, error) {
	return []models.Product{{ID: 7, Slug: "amatista-pulida", Name: "Amatista pulida", Price: 1200}}, nil
}

func (stubCatalog) GetProductBySlug(_ context.Context, slug string) (*models.Product, error) {
	return nil, fmt.Errorf("product %s: %w", slug, store.ErrNotFound)
}

type stubThrottle struct {
	allowed bool
}

func (s stubThrottle) Allow(_ context.Context, _ string, _ int, _ time.Duration) (bool, error) {
	return s.allowed, nil
}

func newTestRouter(orders Orders, throttle Throttle) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	h := NewHandler(orders, stubCatalog{}, throttle, ThrottleConfig{Limit: 10, Window: time.Minute})
	h.SetupRoutes(router)
	return router
}

func TestPaymentWebhook_QueryParams(t *testing.T) {
	orders := &stubOrders{}
	router := newTestRouter(orders, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/webhook?topic=payment&id=987", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, orders.webhookIDs, 1)
	assert.Equal(t, "payment", orders.webhookTopics[0])
	assert.Equal(t, "987", orders.webhookIDs[0])
}

func TestPaymentWebhook_JSONBody(t *testing.T) {
	orders := &stubOrders{}
	router := newTestRouter(orders, nil)

	body := `{"type":"payment","action":"payment.updated","data":{"id":"987"}}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/webhook", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, orders.webhookIDs, 1)
	assert.Equal(t, "987", orders.webhookIDs[0])
}

func TestPaymentWebhook_AlwaysAcknowledgesIgnorable(t *testing.T) {
	orders := &stubOrders{}
	router := newTestRouter(orders, nil)

	// unknown topics and missing ids still get a fast 200
	for _, target := range []string{
		"/api/v1/payments/webhook?topic=merchant_order&id=555",
		"/api/v1/payments/webhook?topic=payment",
		"/api/v1/payments/webhook",
	} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, target, nil)
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code, target)
	}
}

func TestPaymentWebhook_InternalErrorInvitesRetry(t *testing.T) {
	orders := &stubOrders{webhookErr: errors.New("db down")}
	router := newTestRouter(orders, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/webhook?topic=payment&id=987", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestVerifyPayment_ReturnsResult(t *testing.T) {
	orders := &stubOrders{
		verifyResult: &service.VerificationResult{
			Verified: true,
			Status:   "approved",
			OrderID:  "ord-1",
			Amount:   2500,
		},
	}
	router := newTestRouter(orders, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/payments/verify?payment_id=987", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var result service.VerificationResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.True(t, result.Verified)
	assert.Equal(t, "ord-1", result.OrderID)
	assert.Equal(t, float64(2500), result.Amount)
}

func TestVerifyPayment_RequiresPaymentID(t *testing.T) {
	router := newTestRouter(&stubOrders{}, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/payments/verify", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCheckout_RejectsInvalidBody(t *testing.T) {
	router := newTestRouter(&stubOrders{}, nil)

	// missing shipping fields
	body := `{"items":[{"product_id":7,"quantity":1}],"delivery_method":"delivery"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCheckout_Throttled(t *testing.T) {
	orders := &stubOrders{checkoutResp: &service.CheckoutResponse{OrderID: "ord-1"}}
	router := newTestRouter(orders, stubThrottle{allowed: false})

	body := `{"items":[{"product_id":7,"quantity":1}],
		"shipping":{"name":"Ana","email":"ana@example.com","phone":"1",
		"address":"Calle 1","city":"BA","region":"CABA"},
		"delivery_method":"delivery"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestGetOrder_NotFound(t *testing.T) {
	router := newTestRouter(&stubOrders{}, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/missing", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListProducts(t *testing.T) {
	router := newTestRouter(&stubOrders{}, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "amatista-pulida")
}
