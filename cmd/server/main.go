package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mineral-shop/config"
	"mineral-shop/internal/api"
	"mineral-shop/internal/broker"
	"mineral-shop/internal/gateway"
	"mineral-shop/internal/mailer"
	"mineral-shop/internal/redisclient"
	"mineral-shop/internal/service"
	"mineral-shop/internal/store"
	"mineral-shop/internal/util"
	"mineral-shop/internal/worker"

	"github.com/gin-gonic/gin"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting mineral shop service")

	tp, err := util.InitTracer("mineral-shop", cfg.Observ.JaegerEndpoint)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down tracer: %v", err)
		}
	}()

	db, err := store.NewStore(cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Database connected")

	redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()
	log.Println("Redis connected")

	producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicOrder)
	defer producer.Close()
	log.Println("Kafka producer initialized")

	eventPublisher := broker.NewEventPublisher(producer)

	gatewayClient := gateway.NewClient(gateway.Config{
		AccessToken: cfg.Gateway.AccessToken,
		BaseURL:     cfg.Gateway.BaseURL,
		BackURLs: gateway.BackURLs{
			Success: cfg.Gateway.SuccessURL,
			Failure: cfg.Gateway.FailureURL,
			Pending: cfg.Gateway.PendingURL,
		},
		NotificationURL: cfg.Gateway.NotificationURL,
		Currency:        cfg.Gateway.Currency,
		Timeout:         time.Duration(cfg.Gateway.TimeoutSeconds) * time.Second,
	})

	orderService := service.NewOrderService(db, gatewayClient, eventPublisher,
		service.PricingPolicy{
			ShippingCost:    cfg.Checkout.ShippingCost,
			FreeShippingMin: cfg.Checkout.FreeShippingMin,
		},
		cfg.Gateway.Currency)

	mail := mailer.New(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username,
		cfg.SMTP.Password, cfg.SMTP.From, cfg.SMTP.OwnerEmail)

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	orderConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicOrder, cfg.Kafka.ConsumerGroup)
	notificationWorker := worker.NewNotificationWorker(orderConsumer, db, mail)
	go func() {
		if err := notificationWorker.Start(workerCtx); err != nil {
			log.Printf("Notification worker error: %v", err)
		}
	}()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	handler := api.NewHandler(orderService, db, redisClient, api.ThrottleConfig{
		Limit:  cfg.Checkout.ThrottleLimit,
		Window: time.Duration(cfg.Checkout.ThrottleWindowSec) * time.Second,
	})
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Printf("Starting HTTP server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	workerCancel()
	notificationWorker.Stop()

	log.Println("Server exited")
}
