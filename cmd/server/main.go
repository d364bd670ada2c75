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

	"pos-terminal/config"
	"pos-terminal/internal/api"
	"pos-terminal/internal/audit"
	"pos-terminal/internal/broker"
	"pos-terminal/internal/catalog"
	"pos-terminal/internal/checkout"
	"pos-terminal/internal/gateway"
	"pos-terminal/internal/httpx"
	"pos-terminal/internal/kvstore"
	"pos-terminal/internal/store"
	"pos-terminal/internal/util"
	"pos-terminal/internal/worker"

	"github.com/gin-gonic/gin"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting POS terminal service")

	tp, err := util.InitTracer("pos-terminal", cfg.Observ.JaegerEndpoint)
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

	kv, err := kvstore.NewRedisStore(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer kv.Close()
	log.Println("Redis connected")

	producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicTx)
	defer producer.Close()
	log.Println("Kafka producer initialized")

	eventPublisher := broker.NewEventPublisher(producer)

	auditLog := audit.NewLogger(kv, cfg.Checkout.AuditRetention)

	catalogService := catalog.NewService(db, kv)

	retryPolicy := httpx.NewRetryPolicy(cfg.Checkout.RetryMaxAttempts, cfg.Checkout.RetryBackoff)
	gatewayClient := gateway.NewHTTPClient(cfg.Gateway.URL, cfg.Gateway.Timeout, retryPolicy)

	refreshWorker := worker.NewRefreshWorker(catalogService, cfg.Checkout.RefreshInterval)

	processor := checkout.NewProcessor(
		kv,
		gatewayClient,
		catalogService,
		db,
		auditLog,
		eventPublisher,
		refreshWorker.Trigger,
		cfg.Checkout,
	)
	logger.Info("Checkout processor ready")

	ctx := context.Background()
	if err := catalogService.SyncToCache(ctx); err != nil {
		log.Printf("Failed to sync catalog to cache: %v", err)
	}

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	go func() {
		if err := refreshWorker.Start(workerCtx); err != nil && err != context.Canceled {
			log.Printf("Refresh worker error: %v", err)
		}
	}()

	reconcileWorker := worker.NewReconcileWorker(
		kv, gatewayClient, db, eventPublisher, auditLog, cfg.Checkout.ReconcileInterval)
	go func() {
		if err := reconcileWorker.Start(workerCtx); err != nil && err != context.Canceled {
			log.Printf("Reconcile worker error: %v", err)
		}
	}()

	auditConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicTx, cfg.Kafka.ConsumerGroup)
	auditWorker := worker.NewAuditWorker(auditConsumer, auditLog)
	go func() {
		if err := auditWorker.Start(workerCtx); err != nil {
			log.Printf("Audit worker error: %v", err)
		}
	}()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	handler := api.NewHandler(processor, catalogService, kv, auditLog, cfg)
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
	auditWorker.Stop()

	log.Println("Server exited")
}
