// Package cli consolidates the initialization steps shared by
// cmd/spendbook and cmd/spendbook-backup.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"spendbook/internal/backend"
	"spendbook/internal/config"
	applog "spendbook/internal/log"
)

// SetupLogger initializes structured logging with default settings and
// installs it as the process default.
func SetupLogger() *applog.Logger {
	logger := applog.New(applog.DefaultConfig())
	applog.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development. Errors are
// ignored; the file is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it, exiting the
// process on failure.
func LoadAndValidateConfig(logger *applog.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// OpenBackend opens the configured key-value store or exits the process.
func OpenBackend(logger *applog.Logger, cfg *config.Config) *backend.Result {
	result, err := backend.Open(cfg, logger.WithComponent(applog.ComponentBackend))
	if err != nil {
		logger.Error("Failed to open backend", applog.FieldError, err, "backend", cfg.Backend)
		os.Exit(1)
	}
	return result
}

// GracefulShutdown returns a context cancelled on SIGINT/SIGTERM and a
// channel closed once the cleanup has run. The cleanup is responsible
// for bounding its own work; timeout only caps the wait for stragglers.
func GracefulShutdown(logger *applog.Logger, timeout time.Duration, cleanup func()) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		defer close(done)

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		finished := make(chan struct{})
		go func() {
			defer close(finished)
			if cleanup != nil {
				cleanup()
			}
		}()

		select {
		case <-finished:
		case <-time.After(timeout):
			logger.Warn("Cleanup did not finish in time", "timeout", timeout)
		}
		cancel()
	}()

	return ctx, done
}
