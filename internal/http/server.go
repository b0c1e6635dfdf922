// Package http exposes the back-office services as a JSON API.
package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"backoffice/internal/ledger"
	"backoffice/internal/log"
	"backoffice/internal/middleware/ratelimit"
	"backoffice/internal/middleware/security"
	"backoffice/internal/services"
)

// Services are the use cases served by the API.
type Services struct {
	Invoices  *services.InvoiceService
	Expenses  *services.ExpenseService
	Offers    *services.OfferService
	Recurring *services.RecurringService
	Dashboard *services.DashboardService
	Ledger    *ledger.Ledger
}

// Config holds server settings.
type Config struct {
	Addr              string
	RequestsPerMinute int
	// DefaultActor is used when a request carries no identity headers.
	DefaultActor ledger.Actor
	// Ready reports whether backing stores are reachable; nil means always ready.
	Ready  func(ctx context.Context) error
	Logger *log.Logger
}

// Server is the HTTP front of the back office.
type Server struct {
	*http.Server
	svc     Services
	cfg     Config
	limiter *ratelimit.Limiter
}

func NewServer(cfg Config, svc Services) *Server {
	if cfg.Logger == nil {
		cfg.Logger = log.New(log.DefaultConfig())
	}
	s := &Server{
		svc:     svc,
		cfg:     cfg,
		limiter: ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.RequestsPerMinute}),
	}
	s.Server = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(log.RequestLogger(s.cfg.Logger))
	r.Use(middleware.Recoverer)
	r.Use(security.Headers(security.DefaultHeadersConfig()))

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.limiter.Middleware(func(r *http.Request) string { return r.RemoteAddr }, s.handleRateLimited))

		r.Route("/invoices", func(r chi.Router) {
			r.Get("/", s.handleListInvoices)
			r.Post("/", s.handleCreateInvoice)
			r.Get("/next-number", s.handleNextInvoiceNumber)
			r.Get("/{id}", s.handleGetInvoice)
			r.Put("/{id}", s.handleUpdateInvoice)
			r.Delete("/{id}", s.handleDeleteInvoice)
			r.Post("/{id}/status", s.handleInvoiceStatus)
			r.Post("/{id}/remind", s.handleInvoiceReminder)
		})

		r.Route("/expenses", func(r chi.Router) {
			r.Get("/", s.handleListExpenses)
			r.Post("/", s.handleCreateExpense)
			r.Get("/categories", s.handleExpenseCategories)
			r.Get("/{id}", s.handleGetExpense)
			r.Put("/{id}", s.handleUpdateExpense)
			r.Delete("/{id}", s.handleDeleteExpense)
		})

		r.Route("/offers", func(r chi.Router) {
			r.Get("/", s.handleListOffers)
			r.Post("/", s.handleCreateOffer)
			r.Get("/{id}", s.handleGetOffer)
			r.Put("/{id}", s.handleUpdateOffer)
			r.Delete("/{id}", s.handleDeleteOffer)
			r.Post("/{id}/status", s.handleOfferStatus)
		})

		r.Route("/recurring-payments", func(r chi.Router) {
			r.Get("/", s.handleListRecurring)
			r.Post("/", s.handleCreateRecurring)
			r.Get("/{id}", s.handleGetRecurring)
			r.Put("/{id}", s.handleUpdateRecurring)
			r.Delete("/{id}", s.handleDeleteRecurring)
			r.Post("/{id}/toggle", s.handleToggleRecurring)
		})

		r.Get("/history", s.handleListHistory)
		r.Post("/history/{id}/revert", s.handleRevert)

		r.Get("/dashboard", s.handleDashboard)
	})

	return r
}

func (s *Server) actor(r *http.Request) ledger.Actor {
	return actorFromRequest(r, s.cfg.DefaultActor)
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)
	_, _ = w.Write([]byte(`{"error":"rate limit exceeded"}` + "\n"))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.cfg.Ready(ctx); err != nil {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"error":"not ready"}` + "\n"))
			return
		}
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ready"})
}

// RunLimiterCleanup drops stale rate limiter clients every interval until ctx is done.
func (s *Server) RunLimiterCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.limiter.Cleanup()
		}
	}
}
