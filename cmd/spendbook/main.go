package main

import (
	"context"
	"net/http"
	"time"

	"spendbook/internal/balance"
	"spendbook/internal/cli"
	"spendbook/internal/events"
	apphttp "spendbook/internal/http"
	"spendbook/internal/ledger"
	applog "spendbook/internal/log"
	"spendbook/internal/recorder"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()
	cfg := cli.LoadAndValidateConfig(logger)

	result := cli.OpenBackend(logger, cfg)
	store := ledger.New(result.Store)

	// Events feed is optional; without an AMQP URL mutations just skip
	// publishing.
	var pub *events.Publisher
	if cfg.AMQPURL != "" {
		var err error
		pub, err = events.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize event publisher", "error", err)
			result.Cleanup()
			return
		}
		logger.Info("Event publisher initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("Events disabled - no AMQP_URL provided")
	}

	rec := recorder.New(store, pub)
	tracker := balance.NewTracker(store, pub)

	srv := apphttp.NewServer(":"+cfg.Port, store, rec, tracker, cfg.CacheTTL)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 20 // data-URI attachments arrive in forms

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 25*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		if pub != nil {
			if err := pub.Close(); err != nil {
				logger.Error("Event publisher close error", "error", err)
			}
		}
		if err := result.Cleanup(); err != nil {
			logger.Error("Store close error", "error", err)
		}
	})

	httpLog := logger.WithComponent(applog.ComponentHTTP)
	httpLog.Info("Starting spendbook server", "port", cfg.Port, "backend", cfg.Backend)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		httpLog.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		return
	}

	<-ctx.Done()
	<-done
	httpLog.Info("Server stopped gracefully")
}
