package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"finplan/internal/backend"
	"finplan/internal/cli"
	apphttp "finplan/internal/http"
	"finplan/internal/log"
	"finplan/internal/middleware/ratelimit"
	"finplan/internal/middleware/security"
	"finplan/internal/services"
	"finplan/internal/session"
)

func main() {
	cfg, logger := cli.LoadConfig()
	ctx := context.Background()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	store, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize records backend", "error", err, log.FieldBackend, cfg.DataBackend)
		os.Exit(1)
	}

	snapshots, err := cli.OpenSnapshotCache(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize snapshot cache", "error", err)
		os.Exit(1)
	}

	// a nil *amqp.Client must not end up inside the Publisher interface
	var publisher services.Publisher
	if p := cli.OpenPublisher(cfg, logger); p != nil {
		publisher = p
	}
	finance := services.NewFinanceService(store.Store, publisher, snapshots.Snapshots)

	advisor, err := services.NewAdvisor(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		logger.Error("Failed to initialize advisor", "error", err)
		os.Exit(1)
	}
	if !advisor.Enabled() {
		logger.Info("Advisor disabled, GEMINI_API_KEY not set")
	}

	checks := map[string]apphttp.Check{}
	if store.Ping != nil {
		checks["records"] = apphttp.Check(store.Ping)
	}
	if snapshots.Ping != nil {
		checks["cache"] = snapshots.Ping
	}

	opts := apphttp.Options{
		Finance:  finance,
		Advisor:  advisor,
		DevEmail: cfg.SessionDevEmail,
		Logger:   logger,
		RateLimit: ratelimit.Config{
			RequestsPerMinute: cfg.RateLimitPerMinute,
			Burst:             10,
			CleanupInterval:   5 * time.Minute,
			MutationsOnly:     true,
		},
		Checks: checks,
	}
	if cfg.SessionURL != "" {
		opts.Sessions = session.NewClient(cfg.SessionURL, nil)
	}
	opts.Headers = security.DefaultHeadersConfig()
	opts.Headers.AllowedOrigins = cfg.CORSOrigins

	srv := apphttp.NewServer(":"+cfg.Port, opts)
	srv.MaxHeaderBytes = 1 << 16

	shutdownCtx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		if err := finance.Close(); err != nil {
			logger.Error("Failed to release records backend", "error", err)
		}
		snapshots.Close()
	})

	logger.Info("Starting finplan server",
		"port", cfg.Port,
		log.FieldBackend, cfg.DataBackend,
		"cache", snapshots.Backend,
		"events", publisher != nil,
		"advisor", advisor.Enabled())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(shutdownCtx, done)
	logger.Info("Server stopped gracefully")
}
