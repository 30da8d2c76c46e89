package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mineral-shop/internal/models"
)

func testOrder() (*models.Order, []models.OrderItem) {
	order := &models.Order{
		ID:             "ord-abc",
		Subtotal:       2400,
		ShippingCost:   100,
		Total:          2500,
		DeliveryMethod: models.DeliveryMethodDelivery,
		Status:         models.OrderStatusPending,
		CustomerName:   "Ana García",
		CustomerEmail:  "ana@example.com",
		CustomerPhone:  "+54 11 5555 0000",
	}
	items := []models.OrderItem{
		{ProductID: 7, Title: "Amatista pulida", UnitPrice: 1200, Quantity: 2},
	}
	return order, items
}

func TestCreatePreference_RequestShape(t *testing.T) {
	var captured preferenceRequest
	var idempotencyKey string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/checkout/preferences", r.URL.Path)
		assert.Equal(t, "Bearer TEST-token", r.Header.Get("Authorization"))
		idempotencyKey = r.Header.Get("X-Idempotency-Key")

		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		json.NewEncoder(w).Encode(preferenceResponse{
			ID:               "pref-1",
			InitPoint:        "https://mp/checkout/pref-1",
			SandboxInitPoint: "https://sandbox.mp/checkout/pref-1",
		})
	}))
	defer srv.Close()

	client := NewClient(Config{
		AccessToken:     "TEST-token",
		BaseURL:         srv.URL,
		Currency:        "ARS",
		NotificationURL: "https://shop/api/v1/payments/webhook",
	})

	order, items := testOrder()
	pref, err := client.CreatePreference(context.Background(), order, items)
	require.NoError(t, err)

	assert.Equal(t, "pref-1", pref.ID)
	// TEST- credential selects the sandbox checkout URL
	assert.Equal(t, "https://sandbox.mp/checkout/pref-1", pref.InitPoint)

	assert.NotEmpty(t, idempotencyKey)
	assert.True(t, captured.BinaryMode)
	assert.Equal(t, "ord-abc", captured.ExternalReference)
	assert.Equal(t, "ord-abc", captured.Metadata["order_id"])
	assert.Equal(t, "https://shop/api/v1/payments/webhook", captured.NotificationURL)

	// one line per order item plus the shipping line
	require.Len(t, captured.Items, 2)
	assert.Equal(t, "Amatista pulida", captured.Items[0].Title)
	assert.Equal(t, float64(1200), captured.Items[0].UnitPrice)
	assert.Equal(t, 2, captured.Items[0].Quantity)
	assert.Equal(t, "shipping", captured.Items[1].ID)
	assert.Equal(t, float64(100), captured.Items[1].UnitPrice)
}

func TestCreatePreference_LiveInitPoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(preferenceResponse{
			ID:               "pref-2",
			InitPoint:        "https://mp/checkout/pref-2",
			SandboxInitPoint: "https://sandbox.mp/checkout/pref-2",
		})
	}))
	defer srv.Close()

	client := NewClient(Config{AccessToken: "APP_USR-live", BaseURL: srv.URL, Currency: "ARS"})

	order, items := testOrder()
	pref, err := client.CreatePreference(context.Background(), order, items)
	require.NoError(t, err)
	assert.Equal(t, "https://mp/checkout/pref-2", pref.InitPoint)
}

func TestCreatePreference_NoShippingLineForPickup(t *testing.T) {
	var captured preferenceRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&captured)
		json.NewEncoder(w).Encode(preferenceResponse{ID: "pref-3", InitPoint: "https://mp/3"})
	}))
	defer srv.Close()

	client := NewClient(Config{AccessToken: "APP_USR-live", BaseURL: srv.URL, Currency: "ARS"})

	order, items := testOrder()
	order.ShippingCost = 0
	order.DeliveryMethod = models.DeliveryMethodPickup

	_, err := client.CreatePreference(context.Background(), order, items)
	require.NoError(t, err)
	require.Len(t, captured.Items, 1)
}

func TestGetPayment_ParsesStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/payments/987", r.URL.Path)
		assert.Empty(t, r.Header.Get("X-Idempotency-Key"))

		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":                 987,
			"status":             "approved",
			"status_detail":      "accredited",
			"transaction_amount": 2500,
			"currency_id":        "ARS",
			"external_reference": "ord-abc",
			"metadata":           map[string]interface{}{"order_id": "ord-abc"},
		})
	}))
	defer srv.Close()

	client := NewClient(Config{AccessToken: "APP_USR-live", BaseURL: srv.URL})

	status, err := client.GetPayment(context.Background(), "987")
	require.NoError(t, err)
	assert.Equal(t, int64(987), status.ID)
	assert.True(t, status.Approved())
	assert.Equal(t, float64(2500), status.TransactionAmount)
	assert.Equal(t, "ARS", status.CurrencyID)
	assert.Equal(t, "ord-abc", status.ExternalReference)
}

func TestGetPayment_ProcessorErrorSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"message":"Payment not found"}`))
	}))
	defer srv.Close()

	client := NewClient(Config{AccessToken: "APP_USR-live", BaseURL: srv.URL})

	_, err := client.GetPayment(context.Background(), "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}
