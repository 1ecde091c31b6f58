// Package cli provides the start-up and shutdown steps shared by
// cmd/finplan, cmd/finplan-worker and cmd/finplan-cli.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"finplan/internal/amqp"
	"finplan/internal/cache"
	"finplan/internal/config"
	"finplan/internal/insights"
	"finplan/internal/log"
	"finplan/internal/services"
)

const snapshotPrefix = "finplan:snapshot:"

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger builds the process logger from LOG_LEVEL and LOG_FORMAT and
// installs it as the slog default. Unknown levels fall back to info.
func SetupLogger(level, format string) *log.Logger {
	lvl, err := log.ParseLevel(level)
	logger := log.New(log.Config{
		Level:     lvl,
		Component: log.ComponentApp,
		Handler:   log.NewHandler(os.Stdout, format, lvl),
	})
	log.SetDefault(logger)
	if err != nil {
		logger.Warn("Unknown log level, using info", "level", level)
	}
	return logger
}

// LoadConfig loads .env and the environment, sets up logging and validates.
// It exits the process on validation failure.
func LoadConfig() (*config.Config, *log.Logger) {
	LoadEnvFile()
	cfg := config.Load()
	logger := SetupLogger(cfg.LogLevel, cfg.LogFormat)
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	return cfg, logger
}

// SnapshotStore is the insights cache together with its lifecycle hooks.
type SnapshotStore struct {
	Snapshots *services.SnapshotCache
	Backend   string // "redis" or "lru"
	Ping      func(ctx context.Context) error
	Close     func()
}

// OpenSnapshotCache uses Redis when REDIS_URL is set, so every process
// shares one cache, and an in-process LRU otherwise.
func OpenSnapshotCache(ctx context.Context, cfg *config.Config, logger *log.Logger) (*SnapshotStore, error) {
	logger = logger.WithComponent(log.ComponentCache)
	if cfg.RedisURL != "" {
		client, err := cache.OpenRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("open redis cache: %w", err)
		}
		logger.Info("Using Redis snapshot cache", "ttl", cfg.CacheTTL.String())
		return &SnapshotStore{
			Snapshots: services.NewSnapshotCache(cache.NewRedisCache[insights.Snapshot](client, snapshotPrefix, cfg.CacheTTL)),
			Backend:   "redis",
			Ping:      func(ctx context.Context) error { return client.Ping(ctx).Err() },
			Close:     func() { _ = client.Close() },
		}, nil
	}

	lru := cache.NewLRUCache[insights.Snapshot](cfg.CacheSize, cfg.CacheTTL)
	manager := cache.NewManager()
	manager.Register(lru)
	manager.StartCleanup(cfg.CacheTTL)
	logger.Info("Using in-process snapshot cache", "size", cfg.CacheSize, "ttl", cfg.CacheTTL.String())
	return &SnapshotStore{
		Snapshots: services.NewSnapshotCache(lru),
		Backend:   "lru",
		Close:     manager.Stop,
	}, nil
}

// OpenPublisher connects to AMQP_URL. It returns nil when events are not
// configured or the broker is unreachable; the server keeps running without events.
func OpenPublisher(cfg *config.Config, logger *log.Logger) *amqp.Client {
	if cfg.AMQPURL == "" {
		return nil
	}
	logger = logger.WithComponent(log.ComponentAMQP)
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Warn("Failed to initialize AMQP client, continuing without events", "error", err)
		return nil
	}
	logger.Info("Initialized AMQP client", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	return client
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// Returns a context that will be cancelled on shutdown signals,
// and a channel that is closed once cleanup has finished or timed out.
func GracefulShutdown(logger *log.Logger, timeout time.Duration, cleanup func(ctx context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		defer close(done)
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
		case <-ctx.Done():
		}
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		finished := make(chan struct{})
		go func() {
			if cleanup != nil {
				cleanup(shutdownCtx)
			}
			close(finished)
		}()

		select {
		case <-finished:
			logger.Info("Shutdown complete")
		case <-shutdownCtx.Done():
			logger.Warn("Shutdown timeout reached")
		}
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled and cleanup is over.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
