// Package http exposes the ledger as a JSON API.
package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"budgetbook/internal/cache"
	"budgetbook/internal/core"
	"budgetbook/internal/ledger"
	"budgetbook/internal/log"
	"budgetbook/internal/remote"
)

// Options tune a Server. Zero values fall back to the defaults below.
type Options struct {
	RateLimitPerMinute int
	CacheTTL           time.Duration
	CacheSize          int
	// Remote lists mirrored rows for /api/remote/rows. Nil serves an
	// empty list.
	Remote remote.RowLister
}

const (
	defaultRateLimit = 60
	defaultCacheTTL  = 5 * time.Minute
	defaultCacheSize = 100
	maxBodyBytes     = 5 << 20
)

// Server is an http.Server routing the ledger API.
type Server struct {
	http.Server

	ledger    *ledger.Ledger
	logger    *log.Logger
	limiter   *rateLimiter
	totals    *cache.Views[core.Totals]
	breakdown *cache.Views[[]core.CategoryShare]
	remote    remote.RowLister
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, l *ledger.Ledger, logger *log.Logger, opts Options) *Server {
	if opts.RateLimitPerMinute == 0 {
		opts.RateLimitPerMinute = defaultRateLimit
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = defaultCacheTTL
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = defaultCacheSize
	}
	if logger == nil {
		logger = log.Nop()
	}

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		ledger:    l,
		logger:    logger.WithComponent(log.ComponentHTTP),
		limiter:   newRateLimiter(opts.RateLimitPerMinute, time.Minute),
		totals:    cache.NewViews[core.Totals](opts.CacheSize, opts.CacheTTL),
		breakdown: cache.NewViews[[]core.CategoryShare](opts.CacheSize, opts.CacheTTL),
		remote:    opts.Remote,
	}
	s.Handler = s.routes()
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(requestID)
	r.Use(log.Middleware(s.logger))
	r.Use(log.RequestIDMiddleware(func(r *http.Request) string {
		return RequestIDFromContext(r.Context())
	}))
	r.Use(accessLog)
	r.Use(middleware.Recoverer)
	r.Use(securityHeaders)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", "no route for "+r.URL.Path)
	})

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", handleReady)

	r.Route("/api", func(r chi.Router) {
		r.Use(s.limitMutations)

		r.Get("/transactions", s.handleListTransactions)
		r.Post("/transactions", s.handleCreateTransaction)
		r.Delete("/transactions/{id}", s.handleDeleteTransaction)

		r.Get("/totals", s.handleTotals)
		r.Get("/breakdown", s.handleBreakdown)

		r.Get("/budgets", s.handleListBudgets)
		r.Put("/budgets/{category}", s.handleSetBudget)
		r.Delete("/budgets/{category}", s.handleDeleteBudget)

		r.Get("/categories", s.handleListCategories)
		r.Post("/categories", s.handleCreateCategory)
		r.Delete("/categories/{key}", s.handleDeleteCategory)

		r.Get("/settings", s.handleGetSettings)
		r.Put("/settings", s.handleUpdateSettings)

		r.Get("/export.csv", s.handleExportCSV)
		r.Get("/export.json", s.handleExportJSON)
		r.Get("/export.pdf", s.handleExportPDF)
		r.Get("/export.xlsx", s.handleExportExcel)
		r.Post("/import", s.handleImport)
		r.Post("/reset", s.handleReset)

		r.Get("/remote/rows", s.handleRemoteRows)
	})

	return r
}

// Caches returns everything the cache manager should sweep.
func (s *Server) Caches() []cache.Cleaner {
	return []cache.Cleaner{s.totals, s.breakdown, s.limiter}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, shutdownTimeout time.Duration) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", "addr", s.Addr)
		if err := s.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down HTTP server", log.FieldOperation, log.OpShutdown)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.Shutdown(shutdownCtx)
}
