package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tienda-service/config"
	"tienda-service/internal/api"
	"tienda-service/internal/broker"
	"tienda-service/internal/redisclient"
	"tienda-service/internal/service"
	"tienda-service/internal/store"
	"tienda-service/internal/util"
	"tienda-service/internal/worker"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const serviceName = "tienda-service"

func main() {

	cfg := config.Load()

	if err := util.InitLogger(serviceName, cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting tienda service", zap.String("env", cfg.Server.Env))

	tp, err := util.InitTracer(serviceName, cfg.Server.Env, cfg.Observ.JaegerEndpoint)
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

	location, err := time.LoadLocation(cfg.Business.Timezone)
	if err != nil {
		logger.Fatal("Invalid BUSINESS_TIMEZONE", zap.String("timezone", cfg.Business.Timezone), zap.Error(err))
	}

	db, err := store.NewStore(cfg.Database.URL)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()
	logger.Info("Database connected")

	ctx := context.Background()
	if cfg.Database.AutoMigrate {
		if err := db.Migrate(ctx); err != nil {
			logger.Fatal("Failed to migrate database", zap.Error(err))
		}
	}

	redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()
	logger.Info("Redis connected")

	producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicInventory)
	defer producer.Close()
	logger.Info("Kafka producer initialized", zap.String("topic", cfg.Kafka.TopicInventory))

	eventPublisher := broker.NewEventPublisher(producer)

	userService := service.NewUserService(db)
	customerService := service.NewCustomerService(db)
	catalogService := service.NewCatalogService(db)
	inventoryService := service.NewInventoryService(db, eventPublisher)
	saleService := service.NewSaleService(db, eventPublisher)
	dashboardService := service.NewDashboardService(db, redisClient, service.DashboardConfig{
		WindowDays: cfg.Business.DashboardWindowDays,
		Location:   location,
		CacheTTL:   time.Duration(cfg.Business.DashboardCacheTTLSeconds) * time.Second,
	})

	if cfg.Business.SeedAdminEmail != "" {
		if _, err := userService.EnsureAdmin(ctx, cfg.Business.SeedAdminEmail); err != nil {
			logger.Error("Failed to seed admin user", zap.Error(err))
		}
	}

	if err := worker.SyncStockMirror(ctx, db, redisClient); err != nil {
		logger.Warn("Failed to sync stock mirror to Redis", zap.Error(err))
	}

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	consumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicInventory, cfg.Kafka.ConsumerGroup)
	projectionWorker := worker.NewProjectionWorker(consumer, db, redisClient, cfg.Business.LowStockThreshold)
	go func() {
		if err := projectionWorker.Start(workerCtx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Projection worker error", zap.Error(err))
		}
	}()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handler := api.NewHandler(serviceName, api.Services{
		Users:     userService,
		Customers: customerService,
		Catalog:   catalogService,
		Inventory: inventoryService,
		Sales:     saleService,
		Dashboard: dashboardService,
	}, map[string]api.Pinger{
		"postgres": db,
		"redis":    redisClient,
	})
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

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Server forced to shutdown", zap.Error(err))
	}

	workerCancel()
	if err := projectionWorker.Stop(); err != nil {
		logger.Warn("Error stopping projection worker", zap.Error(err))
	}

	logger.Info("Server exited")
}
