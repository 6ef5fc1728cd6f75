package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/iho/welth/internal/adapter/http/handler"
	"github.com/iho/welth/internal/adapter/http/middleware"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	AccountHandler     *handler.AccountHandler
	TransactionHandler *handler.TransactionHandler
	BudgetHandler      *handler.BudgetHandler
	DashboardHandler   *handler.DashboardHandler
	ReceiptHandler     *handler.ReceiptHandler
	AdminHandler       *handler.AdminHandler
	HealthHandler      *handler.HealthHandler

	Authenticator *middleware.Authenticator
	// RateLimiter guards transaction writes and receipt scans. Nil disables it.
	RateLimiter       middleware.Allower
	RateLimitObserver middleware.RateLimitObserver
	// IdempotencyStore enables Idempotency-Key handling. Nil disables it.
	IdempotencyStore middleware.IdempotencyStore
	IdempotencyTTL   time.Duration
	Logger           zerolog.Logger
	// MetricsHandler serves /metrics; promhttp.Handler() when nil.
	MetricsHandler http.Handler
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Recovery)
	r.Use(middleware.Metrics)
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger).Wrap)

	// Health endpoints
	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)

	metricsHandler := cfg.MetricsHandler
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	r.Handle("/metrics", metricsHandler)

	limited := func(r chi.Router) chi.Router {
		if cfg.RateLimiter == nil {
			return r
		}
		return r.With(middleware.RateLimit(cfg.RateLimiter, cfg.RateLimitObserver))
	}

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(cfg.Authenticator.Wrap)

		// Idempotency middleware for mutating requests
		if cfg.IdempotencyStore != nil {
			r.Use(middleware.NewIdempotencyMiddleware(cfg.IdempotencyStore, cfg.IdempotencyTTL).Wrap)
		}

		r.Get("/dashboard", cfg.DashboardHandler.Get)

		// Accounts
		r.Route("/accounts", func(r chi.Router) {
			r.Post("/", cfg.AccountHandler.Create)
			r.Get("/", cfg.AccountHandler.List)
			r.Get("/{id}", cfg.AccountHandler.Get)
			r.Put("/{id}/default", cfg.AccountHandler.SetDefault)
		})

		// Transactions
		r.Route("/transactions", func(r chi.Router) {
			limited(r).Post("/", cfg.TransactionHandler.Create)
			r.Get("/", cfg.TransactionHandler.List)
			r.Post("/bulk-delete", cfg.TransactionHandler.BulkDelete)
			r.Get("/{id}", cfg.TransactionHandler.Get)
			limited(r).Put("/{id}", cfg.TransactionHandler.Update)
			r.Delete("/{id}", cfg.TransactionHandler.Delete)
		})

		// Budget
		r.Route("/budget", func(r chi.Router) {
			r.Get("/", cfg.BudgetHandler.Get)
			r.Put("/", cfg.BudgetHandler.Upsert)
		})

		if cfg.ReceiptHandler != nil {
			limited(r).Post("/receipts/scan", cfg.ReceiptHandler.Scan)
		}

		// Operator endpoints
		if cfg.AdminHandler != nil {
			r.Route("/admin", func(r chi.Router) {
				r.Use(middleware.RequireAdmin)
				r.Get("/jobs", cfg.AdminHandler.ListJobs)
				r.Post("/jobs/{name}/run", cfg.AdminHandler.RunJob)
				r.Get("/reconciliation", cfg.AdminHandler.Reconcile)
			})
		}
	})

	return r
}
