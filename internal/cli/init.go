// Package cli provides common initialization utilities shared by
// cmd/budgetbook, cmd/budgetbook-worker and cmd/bbctl.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"budgetbook/internal/backend"
	"budgetbook/internal/config"
	"budgetbook/internal/ledger"
	"budgetbook/internal/log"
	"budgetbook/internal/remote"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger initializes structured logging at the given level and sets
// it as the default logger.
func SetupLogger(level string) *log.Logger {
	logger := log.New(log.Config{Level: log.ParseLevel(level), Component: log.ComponentApp})
	log.SetDefault(logger)
	return logger
}

// LoadConfig loads and validates configuration.
func LoadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *log.Logger) *config.Config {
	cfg, err := LoadConfig()
	if err != nil {
		logger.Error("Configuration validation failed",
			log.FieldError, err.Error(), log.FieldErrorType, log.ErrorTypeConfiguration)
		os.Exit(1)
	}
	return cfg
}

// InsertOrder maps the configured insert order to the ledger's.
func InsertOrder(cfg *config.Config) ledger.Order {
	if cfg.InsertOrder == config.OrderOldest {
		return ledger.OldestFirst
	}
	return ledger.NewestFirst
}

// Session is an opened ledger plus what was opened alongside it.
type Session struct {
	Ledger *ledger.Ledger
	// Remote reads back mirrored rows; nil unless the mirror supports it.
	Remote  remote.RowLister
	Cleanup func()
}

// Open creates the configured storage backend and, when withMirror is set,
// the remote mirror, then opens the ledger over them. Session.Cleanup
// closes everything that was opened.
func Open(ctx context.Context, cfg *config.Config, logger *log.Logger, withMirror bool) (*Session, error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	factory := backend.NewFactory(logger)

	store, err := factory.CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, err
	}
	cleanups := []backend.CleanupFunc{store.Cleanup}
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			if err := cleanups[i](); err != nil {
				logger.Warn("Cleanup failed", log.FieldError, err.Error())
			}
		}
	}

	sess := &Session{Cleanup: cleanup}
	opts := []ledger.Option{
		ledger.WithOrder(InsertOrder(cfg)),
		ledger.WithLogger(logger),
	}
	if withMirror {
		mirror, err := factory.CreateMirror(ctx, bcfg)
		if err != nil {
			cleanup()
			return nil, err
		}
		cleanups = append(cleanups, mirror.Cleanup)
		if mirror.Mirror != nil {
			opts = append(opts, ledger.WithMirror(mirror.Mirror))
		}
		sess.Remote = mirror.Rows
	}

	sess.Ledger, err = ledger.Open(ctx, store.KV, opts...)
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	return sess, nil
}

// OpenLedger is Open for callers that only need the ledger.
func OpenLedger(ctx context.Context, cfg *config.Config, logger *log.Logger, withMirror bool) (*ledger.Ledger, func(), error) {
	sess, err := Open(ctx, cfg, logger, withMirror)
	if err != nil {
		return nil, nil, err
	}
	return sess.Ledger, sess.Cleanup, nil
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(logger *log.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
