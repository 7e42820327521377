// cmd/lifecycle-server/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"credit-lifecycle/internal/common/config"
	"credit-lifecycle/internal/common/database"
	"credit-lifecycle/internal/common/logger"
	"credit-lifecycle/internal/common/observability"
	"credit-lifecycle/internal/httpapi"
	"credit-lifecycle/internal/lifecycle"
	"credit-lifecycle/internal/notify"
	"credit-lifecycle/internal/registry"
	"credit-lifecycle/internal/schedule"
	"credit-lifecycle/internal/store"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting lifecycle server...",
		zap.String("environment", cfg.App.Environment),
	)

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --- Postgres with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
		defer pingCancel()
		return pg.Ping(pingCtx)
	}, 10, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres unavailable", zap.Error(err))
	}
	defer pg.Close()
	db := pg.GetDB()

	// --- Redis (cache only; a failed ping degrades to direct lookups) ---
	rdb, err := database.NewRedis(cfg.Database.Redis)
	if err != nil {
		zapLog.Fatal("redis client init failed", zap.Error(err))
	}
	defer rdb.Close()
	if err := rdb.Ping(ctx); err != nil {
		zapLog.Warn("redis unavailable, methodology lookups will hit postgres", zap.Error(err))
	}

	// --- Domain wiring ---
	outbox := notify.NewOutbox(db, log)
	apps := store.NewApplicationStore(db, outbox, log)
	methodologies := registry.NewMethodologyRegistry(
		db,
		rdb.GetClient(),
		time.Duration(cfg.Database.Redis.MethodologyCacheTTL)*time.Second,
		log,
	)
	projects := registry.NewProjectStore(db)
	documents := registry.NewDocumentStore(db)
	deadlines := schedule.NewDeadlineScheduler(db, log)

	service := lifecycle.NewService(
		apps,
		methodologies,
		projects,
		documents,
		deadlines,
		lifecycle.Settings{
			DefaultReviewPeriodDays: cfg.Lifecycle.DefaultReviewPeriodDays,
			SystemActor:             cfg.Lifecycle.SystemActor,
		},
		log,
	)

	// --- Notification relay ---
	transport, err := notify.NewAWSTransport(ctx, cfg.Notifications, log)
	if err != nil {
		zapLog.Fatal("notification transport init failed", zap.Error(err))
	}
	relay := notify.NewRelay(outbox, transport, cfg.Outbox, log)
	go relay.Run(ctx)

	// --- HTTP server ---
	handlers := httpapi.NewHandlers(service, db, rdb.GetClient(), log)
	server := httpapi.NewServer(cfg.HTTP, handlers, obs, log)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		zapLog.Info("shutdown signal received", zap.String("signal", sig.String()))
	case err := <-serverErr:
		if err != nil {
			zapLog.Error("http server failed", zap.Error(err))
		}
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("http shutdown failed", zap.Error(err))
	}

	zapLog.Info("lifecycle server stopped")
}
