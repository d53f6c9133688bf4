package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/segyhp/microloan-engine/internal/app"
	"github.com/segyhp/microloan-engine/internal/config"
	"github.com/segyhp/microloan-engine/internal/logging"
	"github.com/segyhp/microloan-engine/internal/service"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("Failed to load configuration", zap.Error(err))
	}

	logger, err := logging.NewLogger(cfg.Logging)
	if err != nil {
		zap.NewExample().Fatal("Failed to build logger", zap.Error(err))
	}
	defer logger.Sync()
	logger.Info("Starting reconcile scheduler...")

	startCtx, startCancel := context.WithTimeout(context.Background(), 30*time.Second)
	application, err := app.New(startCtx, cfg, logger)
	startCancel()
	if err != nil {
		logger.Fatal("Failed to initialize application", zap.Error(err))
	}
	defer application.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := cron.New(
		cron.WithSeconds(),
		cron.WithLocation(cfg.Location()),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)

	if err := setupCronJobs(ctx, c, cfg, application.Service, logger); err != nil {
		logger.Fatal("Error scheduling reconcile job", zap.Error(err))
	}

	// Start the scheduler
	c.Start()
	logger.Info("Scheduler started successfully", zap.String("schedule", cfg.Scheduler.ReconcileCron))

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down scheduler...")
	cancel()
	<-c.Stop().Done()
	logger.Info("Scheduler stopped")
}

func setupCronJobs(ctx context.Context, c *cron.Cron, cfg *config.Config, svc *service.LoanService, logger *zap.Logger) error {
	_, err := c.AddFunc(cfg.Scheduler.ReconcileCron, func() {
		runReconcile(ctx, svc, logger)
	})
	return err
}

// runReconcile closes every released loan that has been settled
func runReconcile(ctx context.Context, svc *service.LoanService, logger *zap.Logger) {
	start := time.Now()
	closed, err := svc.ReconcileAll(ctx, svc.Now())
	if err != nil {
		logger.Error("Reconcile sweep finished with failures",
			zap.Int("closed", len(closed)),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)
		return
	}
	logger.Info("Reconcile sweep finished",
		zap.Int("closed", len(closed)),
		zap.Duration("duration", time.Since(start)),
	)
}
