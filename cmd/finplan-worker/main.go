package main

import (
	"context"
	"errors"
	"os"
	"time"

	"finplan/internal/amqp"
	"finplan/internal/backend"
	"finplan/internal/cli"
	"finplan/internal/log"
	"finplan/internal/services"
	"finplan/internal/worker"
)

func main() {
	os.Exit(run())
}

// run returns the exit code so deferred cleanup runs before exiting.
func run() int {
	cfg, logger := cli.LoadConfig()
	logger = logger.WithComponent(log.ComponentWorker)
	logger.Info("Starting finplan-worker")

	if cfg.AMQPURL == "" || cfg.RedisURL == "" {
		logger.Error("finplan-worker needs AMQP_URL to receive events and REDIS_URL for the shared cache")
		return 1
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	snapshots, err := cli.OpenSnapshotCache(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize snapshot cache", "error", err)
		return 1
	}
	defer snapshots.Close()

	// Warm-up needs the same records the API serves. An in-memory backend
	// lives inside the API process, so the worker can only invalidate.
	var warmer worker.Warmer
	if cfg.DataBackend != string(backend.MemoryBackend) {
		backendCfg, err := backend.FromAppConfig(cfg)
		if err != nil {
			logger.Error("Invalid backend configuration", "error", err)
			return 1
		}
		store, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
		if err != nil {
			logger.Error("Failed to initialize records backend", "error", err, log.FieldBackend, cfg.DataBackend)
			return 1
		}
		defer store.Close()
		warmer = services.NewFinanceService(store.Store, nil, snapshots.Snapshots)
	} else {
		logger.Info("Memory backend configured, snapshot warm-up disabled")
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		return 1
	}
	defer client.Close()

	w := worker.NewInvalidationWorker(snapshots.Snapshots, warmer)
	logger.Info("Consuming record events", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	if err := client.Consume(ctx, w.HandleEvent); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", "error", err)
		return 1
	}

	cli.WaitForShutdown(ctx, done)
	processed, warmed := w.Stats()
	logger.Info("Worker stopped", "events", processed, "warmed", warmed)
	return 0
}
