package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"spendbook/internal/cli"
	"spendbook/internal/events"
	"spendbook/internal/ledger"
	applog "spendbook/internal/log"
	"spendbook/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger().WithComponent(applog.ComponentWorker)
	logger.Info("Starting spendbook-backup")

	cfg := cli.LoadAndValidateConfig(logger)
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the backup worker")
		os.Exit(1)
	}

	result := cli.OpenBackend(logger, cfg)
	defer result.Cleanup()
	store := ledger.New(result.Store)

	consumer, err := events.NewConsumer(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize event consumer", "error", err)
		os.Exit(1)
	}
	defer consumer.Close()

	w := worker.NewBackupWorker(store, cfg.BackupDir, cfg.BackupInterval)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// One snapshot up front so a fresh deployment has a baseline before
	// any event arrives.
	if err := w.WriteSnapshot(ctx); err != nil {
		logger.Error("Initial snapshot failed", "error", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return w.Run(gctx)
	})
	g.Go(func() error {
		return consumer.Consume(gctx, func(event *events.LedgerEvent) error {
			return w.HandleEvent(gctx, event)
		})
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Backup worker failed", "error", err)
		os.Exit(1)
	}
	logger.Info("Backup worker stopped gracefully")
}
