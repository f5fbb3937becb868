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

	"hawker-order-service/config"
	"hawker-order-service/internal/api"
	"hawker-order-service/internal/broker"
	"hawker-order-service/internal/redisclient"
	"hawker-order-service/internal/service"
	"hawker-order-service/internal/store"
	"hawker-order-service/internal/util"
	"hawker-order-service/internal/worker"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {

	cfg := config.Load()

	sink := util.FileSink{
		Path:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	}
	if err := util.InitLogger(cfg.Server.Env, sink); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting hawker order service")

	tp, err := util.InitTracer("hawker-order-service", cfg.Observ.JaegerEndpoint)
	if err != nil {
		logger.Fatal("Failed to initialize tracer", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			logger.Warn("Error shutting down tracer", zap.Error(err))
		}
	}()

	ctx := context.Background()

	db, err := store.NewStore(cfg.Database.URL)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()
	if err := db.Migrate(ctx); err != nil {
		logger.Fatal("Failed to migrate database", zap.Error(err))
	}
	logger.Info("Database connected")

	redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()
	logger.Info("Redis connected")

	producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicOrder)
	defer producer.Close()
	logger.Info("Kafka producer initialized")

	eventPublisher := broker.NewEventPublisher(producer)

	stallCounter := service.NewStallOrderCounter(redisClient, cfg.Business.StallNames)
	stallCounter.SetCallTimeout(cfg.Business.RemoteCallTimeout)

	session := service.NewSession()
	cart := service.NewCartStore()
	orderRepo := store.NewOrderRepository(db, cfg.Business.OrdersStorageKey)
	orderStore := service.NewOrderStore(stallCounter, orderRepo, eventPublisher, session)
	orderStore.LoadOrders(ctx)
	paymentService := service.NewPaymentService(cart, orderStore)

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	orderStore.Start(workerCtx)
	defer orderStore.Close()

	readyTicker := worker.NewReadyTicker(orderStore, cfg.Business.TickInterval)
	go func() {
		if err := readyTicker.Start(workerCtx); err != nil && err != context.Canceled {
			logger.Error("Ready ticker error", zap.Error(err))
		}
	}()

	eventConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicOrder, cfg.Kafka.ConsumerGroup)
	eventWorker := worker.NewEventWorker(eventConsumer)
	go func() {
		if err := eventWorker.Start(workerCtx); err != nil && err != context.Canceled {
			logger.Error("Event worker error", zap.Error(err))
		}
	}()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handler := api.NewHandler(session, cart, orderStore, paymentService, stallCounter)
	handler.AddReadinessCheck("postgres", db.Ping)
	handler.AddReadinessCheck("redis", redisClient.Ping)
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Server forced to shutdown", zap.Error(err))
	}

	workerCancel()
	if err := eventWorker.Stop(); err != nil {
		logger.Warn("Error stopping event worker", zap.Error(err))
	}

	logger.Info("Server exited")
}
