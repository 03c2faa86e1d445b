package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/amirhossein-jamali/wallet-gateway/internal/domain/port/core"
	roundUseCase "github.com/amirhossein-jamali/wallet-gateway/internal/domain/usecase/round"
	"github.com/amirhossein-jamali/wallet-gateway/internal/infrastructure/adapter/database"
	"github.com/amirhossein-jamali/wallet-gateway/internal/infrastructure/adapter/database/migration"
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

	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}

	scheduler := worker.NewAsynqScheduler(redisOpt, appLogger)
	defer func() { _ = scheduler.Close() }()

	tracker := roundUseCase.NewTracker(
		uow,
		scheduler,
		tp,
		appLogger,
		cfg.Reconciler.MaxAttempts,
		core.Duration(cfg.Reconciler.BaseBackoff),
	)

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.NewDefault()
	}

	srv := worker.NewServer(worker.ServerConfig{
		RedisOpt:      redisOpt,
		Concurrency:   cfg.Reconciler.Concurrency,
		SweepSchedule: cfg.Reconciler.SweepSchedule,
		SweepLimit:    cfg.Reconciler.SweepLimit,
	}, tracker, appLogger, m)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		appLogger.Info("Shutting down worker...", nil)
		srv.Shutdown()
	}()

	if err := srv.Start(); err != nil {
		appLogger.Error("Worker stopped with error", map[string]any{"error": err.Error()})
		os.Exit(1)
	}

	appLogger.Info("Worker exited gracefully", nil)
}
