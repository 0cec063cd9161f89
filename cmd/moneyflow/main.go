package main

import (
	"context"
	"os"
	"time"

	"moneyflow/internal/auth"
	"moneyflow/internal/backend"
	"moneyflow/internal/cli"
	"moneyflow/internal/config"
	"moneyflow/internal/export"
	"moneyflow/internal/fx"
	"moneyflow/internal/ledger"
	applog "moneyflow/internal/log"
	"moneyflow/internal/storage"
)

func main() {
	cli.LoadEnvFile()

	cfg := config.Load()
	logger := cli.SetupLogger(cfg.LogLevel, applog.ComponentApp)

	logger.Info("Starting moneyflow")
	cli.ValidateConfig(logger, cfg)

	center, closeNotify := cli.NewNotificationCenter(cfg, logger)

	ctx, done := cli.GracefulShutdown(logger, 10*time.Second, closeNotify)

	// The session gate persists separately from the ledger so a backend
	// switch does not sign the user out.
	sessionStore, err := newSessionStore(cfg)
	if err != nil {
		logger.Error("Failed to initialize session storage", "error", err)
		os.Exit(1)
	}
	gate := auth.NewGate(sessionStore)
	gate.Init(ctx)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	factory := backend.NewFactory(logger.Logger, center, gate)
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

	if err := result.Ledger.Init(ctx); err != nil {
		logger.Error("Failed to initialize ledger", "error", err)
		os.Exit(1)
	}

	// Exchange rates share the session store; staleness is tolerable,
	// a missing table is not.
	rates := fx.NewService(fx.NewFetcher(cfg.FXEndpoint, cfg.RequestTimeout), sessionStore, center)
	rates.Init(ctx)
	go refreshRatesLoop(ctx, rates, cfg.FXRefresh, logger.WithComponent(applog.ComponentFX))

	// The local backend expands recurring rules in-process and owns the
	// spreadsheet export. The remote backend's server does both.
	if local, ok := result.Ledger.(*ledger.LocalStore); ok {
		go expandRecurringLoop(ctx, local, cfg.RecurringInterval, logger.WithComponent(applog.ComponentRecurring))

		if cfg.GoogleSpreadsheetID != "" {
			exporter, err := export.NewFromEnv(ctx)
			if err != nil {
				logger.Warn("Sheet export disabled", "error", err)
			} else {
				inc := export.NewIncremental(exporter, sessionStore)
				go exportLoop(ctx, inc, local, cfg.GoogleExportInterval, logger.WithComponent(applog.ComponentExport))
			}
		}
	}

	logger.Info("moneyflow started",
		"backend", cfg.LedgerBackend,
		"storage", cfg.StorageBackend)

	cli.WaitForShutdown(ctx, done)
}

// newSessionStore picks where the session and rate table live, mirroring
// the ledger's own storage choice.
func newSessionStore(cfg *config.Config) (storage.Store, error) {
	switch cfg.StorageBackend {
	case "sqlite":
		if err := storage.RunMigrations(cfg.SQLitePath); err != nil {
			return nil, err
		}
		return storage.NewSQLiteStore(cfg.SQLitePath)
	case "memory":
		return storage.NewMemoryStore(), nil
	default:
		return storage.NewFileStore(cfg.DataDir)
	}
}

func refreshRatesLoop(ctx context.Context, rates *fx.Service, interval time.Duration, logger *applog.Logger) {
	if interval <= 0 {
		return
	}
	if err := rates.Refresh(ctx); err != nil {
		logger.Warn("Initial rate refresh failed", "error", err)
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := rates.Refresh(ctx); err != nil {
				logger.Warn("Rate refresh failed", "error", err)
			}
		}
	}
}

func exportLoop(ctx context.Context, inc *export.Incremental, store *ledger.LocalStore, interval time.Duration, logger *applog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := inc.Run(ctx, store, store); err != nil {
				logger.Warn("Sheet export failed", "error", err)
			}
		}
	}
}

func expandRecurringLoop(ctx context.Context, store *ledger.LocalStore, interval time.Duration, logger *applog.Logger) {
	// Catch up immediately: a machine that slept past due dates owes
	// transactions on startup.
	if _, err := store.ExpandDue(ctx, time.Now()); err != nil {
		logger.Warn("Startup recurring expansion failed", "error", err)
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := store.ExpandDue(ctx, time.Now()); err != nil {
				logger.Warn("Recurring expansion failed", "error", err)
			}
		}
	}
}
