// Package http exposes the rent ledger and invoice store as a JSON API.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"rentbook/internal/core"
	"rentbook/internal/invoices"
	"rentbook/internal/log"
	"rentbook/internal/middleware/ratelimit"
	"rentbook/internal/middleware/security"
)

// RentService is what the API needs from the service layer.
type RentService interface {
	AddTenant(ctx context.Context, t core.Tenant) error
	ApplyPayment(ctx context.Context, name string, method core.PaymentMethod, tag core.PeriodTag, amount core.Money) (core.Tenant, error)
	FindTenant(name string) (core.Tenant, error)
	UnpaidTenants() []core.Tenant
	Tenants() []core.Tenant
	Payments() []core.Tenant
	StoreInvoice(ctx context.Context, label string, data []byte) error
	GetInvoice(ctx context.Context, label string) (invoices.Invoice, error)
	ListInvoices(ctx context.Context) ([]invoices.Invoice, error)
	ExportRoster(ctx context.Context) (int, error)
	Ready(ctx context.Context) error
}

// Options tunes the API server.
type Options struct {
	MaxInvoiceBytes int64
	RateLimitRPS    float64
	RateLimitBurst  int
}

const defaultMaxInvoiceBytes = 10 << 20

type Server struct {
	http.Server
	svc             RentService
	rateLimiter     *ratelimit.Limiter
	maxInvoiceBytes int64

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, svc RentService, logger *log.Logger, opts Options) *Server {
	if logger == nil {
		logger = log.Discard()
	}
	if opts.MaxInvoiceBytes <= 0 {
		opts.MaxInvoiceBytes = defaultMaxInvoiceBytes
	}

	s := &Server{
		svc:             svc,
		maxInvoiceBytes: opts.MaxInvoiceBytes,
		rateLimiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerSecond: opts.RateLimitRPS,
			Burst:             opts.RateLimitBurst,
			KeyFunc:           security.ClientIP,
		}),
	}

	r := chi.NewRouter()
	r.Use(
		chimw.Recoverer,
		log.Middleware(logger),
		security.Headers(security.DefaultHeadersConfig()),
	)

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", s.handleReady)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.rateLimiter.Middleware)

		r.Route("/tenants", func(r chi.Router) {
			r.Get("/", s.handleListTenants)
			r.Post("/", s.handleAddTenant)
			r.Get("/unpaid", s.handleUnpaidTenants)
			r.Get("/{name}", s.handleGetTenant)
		})
		r.Route("/payments", func(r chi.Router) {
			r.Get("/", s.handleListPayments)
			r.Post("/", s.handleApplyPayment)
		})
		r.Route("/invoices", func(r chi.Router) {
			r.Get("/", s.handleListInvoices)
			r.Post("/", s.handleStoreInvoice)
			r.Get("/{label}", s.handleGetInvoice)
		})
		r.Post("/exports/sheets", s.handleExportSheets)
	})

	s.Server = http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// Shutdown stops the rate limiter and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
