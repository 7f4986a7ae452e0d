package main

import (
	"context"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"budgetbook/internal/cache"
	"budgetbook/internal/cli"
	apphttp "budgetbook/internal/http"
	"budgetbook/internal/log"
)

const (
	shutdownTimeout = 30 * time.Second
	cleanupInterval = 10 * time.Minute
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	sess, err := cli.Open(ctx, cfg, logger, true)
	if err != nil {
		logger.Error("Failed to open ledger", log.FieldError, err.Error(), log.FieldBackend, cfg.DataBackend)
		os.Exit(1)
	}
	defer sess.Cleanup()
	l := sess.Ledger

	srv := apphttp.NewServer(":"+cfg.Port, l, logger, apphttp.Options{
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		CacheTTL:           cfg.CacheTTL,
		Remote:             sess.Remote,
	})

	caches := cache.NewManager(logger)
	for _, c := range srv.Caches() {
		caches.Register(c)
	}

	logger.Info("Starting budgetbook server",
		"port", cfg.Port,
		log.FieldBackend, cfg.DataBackend,
		"mirror", cfg.MirrorMode,
		log.FieldCount, l.Len())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(gctx, shutdownTimeout) })
	g.Go(func() error { return caches.Run(gctx, cleanupInterval) })

	if err := g.Wait(); err != nil && err != context.Canceled {
		logger.Error("Server error", log.FieldError, err.Error(), "port", cfg.Port)
		sess.Cleanup()
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
