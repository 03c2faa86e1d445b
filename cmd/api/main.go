package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"

	"github.com/amirhossein-jamali/wallet-gateway/internal/domain/port/core"
	"github.com/amirhossein-jamali/wallet-gateway/internal/domain/port/messaging"
	"github.com/amirhossein-jamali/wallet-gateway/internal/domain/signature"
	gatewayUseCase "github.com/amirhossein-jamali/wallet-gateway/internal/domain/usecase/gateway"
	roundUseCase "github.com/amirhossein-jamali/wallet-gateway/internal/domain/usecase/round"
	"github.com/amirhossein-jamali/wallet-gateway/internal/infrastructure/adapter/api/handler"
	"github.com/amirhossein-jamali/wallet-gateway/internal/infrastructure/adapter/api/routes"
	"github.com/amirhossein-jamali/wallet-gateway/internal/infrastructure/adapter/database"
	"github.com/amirhossein-jamali/wallet-gateway/internal/infrastructure/adapter/database/migration"
	"github.com/amirhossein-jamali/wallet-gateway/internal/infrastructure/adapter/events"
	"github.com/amirhossein-jamali/wallet-gateway/internal/infrastructure/adapter/logger"
	"github.com/amirhossein-jamali/wallet-gateway/internal/infrastructure/adapter/metrics"
	timeProvider "github.com/amirhossein-jamali/wallet-gateway/internal/infrastructure/adapter/time"
	"github.com/amirhossein-jamali/wallet-gateway/internal/infrastructure/config"
	"github.com/amirhossein-jamali/wallet-gateway/internal/infrastructure/worker"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if cfg.Environment == config.Production {
		gin.SetMode(gin.ReleaseMode)
	}

	appLogger := logger.NewZapLogger(cfg.Environment == config.Production)
	appLogger.SetLevel(logger.ParseLevel(cfg.Logger.Level))
	defer func() { _ = appLogger.Flush() }()

	tp := timeProvider.NewRealTimeProvider()

	conn, err := database.NewConnection(database.FromAppConfig(cfg))
	if err != nil {
		appLogger.Error("Failed to connect to database", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
	defer func() { _ = conn.Close() }()

	migrationMgr := migration.NewMigrationManager(conn.DB, appLogger, tp)
	if err := migrationMgr.MigrateAll(); err != nil {
		appLogger.Error("Failed to run migrations", map[string]any{"error": err.Error()})
		os.Exit(1)
	}

	uow := database.NewUnitOfWork(conn.DB, appLogger, tp)

	// Seed wallets for local development
	if cfg.Environment == config.Development {
		if err := migration.CreateSeedWallets(context.Background(), uow.GetWalletRepository(context.Background()), tp, appLogger); err != nil {
			appLogger.Error("Failed to create seed wallets", map[string]any{"error": err.Error()})
		}
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.NewDefault()
	}

	scheduler := worker.NewAsynqScheduler(asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, appLogger)
	defer func() { _ = scheduler.Close() }()

	tracker := roundUseCase.NewTracker(
		uow,
		scheduler,
		tp,
		appLogger,
		cfg.Reconciler.MaxAttempts,
		core.Duration(cfg.Reconciler.BaseBackoff),
	)

	var publisher messaging.LedgerEventPublisher
	if cfg.Kafka.Enabled {
		kafkaPublisher := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, appLogger)
		defer func() { _ = kafkaPublisher.Close() }()
		publisher = kafkaPublisher
	}

	gatewayService := gatewayUseCase.NewGatewayService(
		uow,
		tp,
		appLogger,
		core.Duration(cfg.Provider.OperationTimeout),
	).WithRoundTracker(tracker)
	if publisher != nil {
		gatewayService.WithPublisher(publisher)
	}

	signer := signature.NewSigner(cfg.Provider.Secret)
	providerHandler := handler.NewProviderHandler(gatewayService, tracker, signer, appLogger, m)
	healthHandler := handler.NewHealthHandler(conn)

	router := gin.New()
	routes.SetupMiddlewares(router, appLogger)

	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	routes.SetupRoutes(router, providerHandler, healthHandler, metricsPath)

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	go func() {
		appLogger.Info("Starting server", map[string]any{
			"port": cfg.Server.Port,
			"env":  cfg.Environment,
		})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("Failed to start server", map[string]any{"error": err.Error()})
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...", nil)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		appLogger.Error("Server forced to shutdown", map[string]any{"error": err.Error()})
	}

	appLogger.Info("Server exited gracefully", nil)
}
