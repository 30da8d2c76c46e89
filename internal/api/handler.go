package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"mineral-shop/internal/models"
	"mineral-shop/internal/service"
	"mineral-shop/internal/store"
	"mineral-shop/internal/util"
)

// Orders is the slice of the order service the handlers need.
type Orders interface {
	Checkout(ctx context.Context, req *service.CheckoutRequest) (*service.CheckoutResponse, error)
	CheckoutTransfer(ctx context.Context, req *service.CheckoutRequest) (*service.TransferCheckoutResponse, error)
	GetOrder(ctx context.Context, orderID string) (*models.Order, []models.OrderItem, error)
	HandleWebhook(ctx context.Context, topic, paymentID string) error
	VerifyPayment(ctx context.Context, paymentID string) (*service.VerificationResult, error)
}

// Catalog is the read-only product surface.
type Catalog interface {
	GetProducts(ctx context.Context) ([]models.Product, error)
	GetProductBySlug(ctx context.Context, slug string) (*models.Product, error)
}

// Throttle is the shared keyed counter guarding public endpoints.
type Throttle interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// ThrottleConfig caps requests per client within a window.
type ThrottleConfig struct {
	Limit  int
	Window time.Duration
}

// Handler contains HTTP handlers
type Handler struct {
	orders      Orders
	catalog     Catalog
	throttle    Throttle
	throttleCfg ThrottleConfig
	logger      *zap.Logger
}

// NewHandler creates a new HTTP handler. throttle may be nil, in which case
// public endpoints are not rate limited.
func NewHandler(orders Orders, catalog Catalog, throttle Throttle, throttleCfg ThrottleConfig) *Handler {
	return &Handler{
		orders:      orders,
		catalog:     catalog,
		throttle:    throttle,
		throttleCfg: throttleCfg,
		logger:      util.GetLogger(),
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.POST("/orders", h.throttled(), h.checkout)
		v1.POST("/orders/transfer", h.throttled(), h.checkoutTransfer)
		v1.GET("/orders/:id", h.getOrder)

		v1.POST("/payments/webhook", h.paymentWebhook)
		v1.GET("/payments/verify", h.verifyPayment)

		v1.GET("/products", h.listProducts)
		v1.GET("/products/:slug", h.getProduct)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// checkout handles the public gateway-flow checkout
func (h *Handler) checkout(c *gin.Context) {
	var req service.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid checkout request"})
		return
	}

	resp, err := h.orders.Checkout(c.Request.Context(), &req)
	if err != nil {
		h.checkoutError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// checkoutTransfer handles the manual bank-transfer checkout
func (h *Handler) checkoutTransfer(c *gin.Context) {
	var req service.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid checkout request"})
		return
	}

	resp, err := h.orders.CheckoutTransfer(c.Request.Context(), &req)
	if err != nil {
		h.checkoutError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// checkoutError maps service errors to client responses. Internal details
// stay in the logs.
func (h *Handler) checkoutError(c *gin.Context, err error) {
	if errors.Is(err, service.ErrUnknownProduct) || errors.Is(err, service.ErrEmptyCart) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid cart"})
		return
	}

	h.logger.Error("Checkout failed", zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not process the order"})
}

// getOrder handles get order by ID
func (h *Handler) getOrder(c *gin.Context) {
	order, items, err := h.orders.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
			return
		}
		h.logger.Error("Failed to load order", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not load the order"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"order": order,
		"items": items,
	})
}

// webhookBody is the JSON shape the processor posts. The payment id also
// arrives as a query parameter on some notification versions.
type webhookBody struct {
	Type   string `json:"type"`
	Action string `json:"action"`
	Data   struct {
		ID string `json:"id"`
	} `json:"data"`
}

// paymentWebhook handles the processor's server-to-server notification. It
// always acknowledges handled and ignorable notifications quickly; only an
// unexpected internal failure returns 500 so the processor retries later.
func (h *Handler) paymentWebhook(c *gin.Context) {
	topic := c.Query("topic")
	if topic == "" {
		topic = c.Query("type")
	}
	paymentID := c.Query("data.id")
	if paymentID == "" {
		paymentID = c.Query("id")
	}

	if topic == "" || paymentID == "" {
		var body webhookBody
		if err := c.ShouldBindJSON(&body); err == nil {
			if topic == "" {
				topic = body.Type
			}
			if paymentID == "" {
				paymentID = body.Data.ID
			}
		}
	}

	if err := h.orders.HandleWebhook(c.Request.Context(), topic, paymentID); err != nil {
		h.logger.Error("Webhook processing failed",
			zap.String("topic", topic),
			zap.String("payment_id", paymentID),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// verifyPayment handles the shopper's return from the payment redirect
func (h *Handler) verifyPayment(c *gin.Context) {
	paymentID := c.Query("payment_id")
	if paymentID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "payment_id is required"})
		return
	}

	result, err := h.orders.VerifyPayment(c.Request.Context(), paymentID)
	if err != nil {
		h.logger.Error("Payment verification failed",
			zap.String("payment_id", paymentID),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not verify the payment"})
		return
	}

	c.JSON(http.StatusOK, result)
}

// listProducts handles the public catalog listing
func (h *Handler) listProducts(c *gin.Context) {
	products, err := h.catalog.GetProducts(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to list products", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not load products"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"products": products})
}

// getProduct handles a single catalog read by slug
func (h *Handler) getProduct(c *gin.Context) {
	product, err := h.catalog.GetProductBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
			return
		}
		h.logger.Error("Failed to load product", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not load product"})
		return
	}

	c.JSON(http.StatusOK, product)
}

// throttled caps checkout attempts per client IP using the shared counter.
// Redis being down fails open: checkout availability beats throttling.
func (h *Handler) throttled() gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.throttle == nil {
			c.Next()
			return
		}

		allowed, err := h.throttle.Allow(c.Request.Context(), c.ClientIP(),
			h.throttleCfg.Limit, h.throttleCfg.Window)
		if err != nil {
			h.logger.Warn("Throttle check failed", zap.Error(err))
			c.Next()
			return
		}

		if !allowed {
			util.CheckoutThrottledTotal.Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests"})
			return
		}

		c.Next()
	}
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
