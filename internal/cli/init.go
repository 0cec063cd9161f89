// Package cli consolidates the initialization shared by cmd/moneyflow
// and cmd/recurring-worker.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"moneyflow/internal/config"
	applog "moneyflow/internal/log"
	"moneyflow/internal/notify"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger initializes structured logging for the given component and
// sets it as the default logger.
func SetupLogger(level, component string) *applog.Logger {
	logger := applog.New(applog.Config{
		Level:     applog.ParseLevel(level),
		Component: component,
	})
	applog.SetDefault(logger)
	return logger
}

// ValidateConfig validates the loaded configuration or exits the process.
func ValidateConfig(logger *applog.Logger, cfg *config.Config) {
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
}

// NewNotificationCenter builds the notification center with a slog
// subscriber and, when configured, an AMQP publisher. The returned
// cleanup func closes the publisher and must be called at shutdown.
func NewNotificationCenter(cfg *config.Config, logger *applog.Logger) (*notify.Center, func()) {
	center := notify.NewCenter()
	center.Subscribe(notify.SlogSubscriber(logger.Logger))

	cleanup := func() {}
	if cfg.AMQPURL != "" {
		publisher, err := notify.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP publisher, continuing without it", "error", err)
		} else {
			center.Subscribe(publisher.Subscriber())
			cleanup = func() {
				if err := publisher.Close(); err != nil {
					logger.Warn("Failed to close AMQP publisher", "error", err)
				}
			}
			logger.Info("AMQP notification publishing enabled",
				"exchange", cfg.AMQPExchange,
				"queue", cfg.AMQPQueue)
		}
	}
	return center, cleanup
}

// GracefulShutdown installs SIGINT/SIGTERM handling. The returned context
// is cancelled once a signal arrives and cleanup has run; the done channel
// closes after a short grace period for background loops to drain.
func GracefulShutdown(logger *applog.Logger, timeout time.Duration, cleanup func()) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		if cleanup != nil {
			cleanup()
		}
		cancel()

		grace := time.NewTimer(2 * time.Second)
		defer grace.Stop()
		deadline := time.NewTimer(timeout)
		defer deadline.Stop()
		select {
		case <-deadline.C:
			logger.Warn("Shutdown timeout reached")
		case <-grace.C:
			logger.Info("Shutdown complete")
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the shutdown sequence has finished.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
