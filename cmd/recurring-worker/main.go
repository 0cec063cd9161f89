package main

import (
	"context"
	"os"
	"time"

	"moneyflow/internal/backend"
	"moneyflow/internal/cli"
	"moneyflow/internal/config"
	"moneyflow/internal/ledger"
	applog "moneyflow/internal/log"
)

// Standalone recurring expansion worker. Runs against the same local
// storage as the main app so expansion keeps happening while the app
// itself is closed.
func main() {
	cli.LoadEnvFile()

	cfg := config.Load()
	logger := cli.SetupLogger(cfg.LogLevel, applog.ComponentWorker)

	logger.Info("Starting recurring worker")

	// The worker only makes sense against local storage; the remote
	// backend's server expands rules itself.
	cfg.LedgerBackend = "local"
	cli.ValidateConfig(logger, cfg)

	center, closeNotify := cli.NewNotificationCenter(cfg, logger)

	ctx, done := cli.GracefulShutdown(logger, 10*time.Second, closeNotify)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	factory := backend.NewFactory(logger.Logger, center, nil)
	result, err := factory.CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to create backend", "error", err)
		os.Exit(1)
	}
	if result.Cleanup != nil {
		defer func() {
			if err := result.Cleanup(); err != nil {
				logger.Warn("Backend cleanup failed", "error", err)
			}
		}()
	}

	store, ok := result.Ledger.(*ledger.LocalStore)
	if !ok {
		logger.Error("Recurring worker requires the local backend")
		os.Exit(1)
	}
	if err := store.Init(ctx); err != nil {
		logger.Error("Failed to initialize ledger", "error", err)
		os.Exit(1)
	}

	logger.Info("Recurring worker started", "interval", cfg.RecurringInterval.String())

	go func() {
		expand(ctx, store, logger)
		ticker := time.NewTicker(cfg.RecurringInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				expand(ctx, store, logger)
			}
		}
	}()

	cli.WaitForShutdown(ctx, done)
}

func expand(ctx context.Context, store *ledger.LocalStore, logger *applog.Logger) {
	generated, err := store.ExpandDue(ctx, time.Now())
	if err != nil {
		logger.Warn("Recurring expansion failed", "error", err)
		return
	}
	if generated > 0 {
		logger.Info("Recurring expansion complete", "generated", generated)
	}
}
