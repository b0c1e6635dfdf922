// Package app assembles the back-office services from configuration. Every
// binary builds on it so they share one wiring.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"backoffice/internal/amqp"
	"backoffice/internal/backend"
	"backoffice/internal/cache"
	"backoffice/internal/config"
	apphttp "backoffice/internal/http"
	"backoffice/internal/ledger"
	"backoffice/internal/log"
	"backoffice/internal/services"
	"backoffice/internal/worker"
)

const dashboardCacheSize = 32

// App holds the wired services and the resources they depend on.
type App struct {
	Config  *config.Config
	Backend *backend.BackendResult
	Ledger  *ledger.Ledger
	Events  *amqp.Client

	Invoices  *services.InvoiceService
	Expenses  *services.ExpenseService
	Offers    *services.OfferService
	Recurring *services.RecurringService
	Dashboard *services.DashboardService

	dashboardCache *cache.LRU[services.Summary]
	logger         *log.Logger
}

// New opens the record store, loads the history and builds every service.
// Optional integrations that fail to start are logged and skipped.
func New(ctx context.Context, cfg *config.Config, logger *log.Logger) (*App, error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	be, err := backend.NewFactory(logger.Logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, err
	}

	a := &App{Config: cfg, Backend: be, logger: logger}
	a.Ledger = ledger.New(be.Store)
	if err := a.Ledger.Load(ctx); err != nil {
		_ = be.Close()
		return nil, fmt.Errorf("load history: %w", err)
	}

	a.Events, err = backend.NewEventClient(cfg)
	if err != nil {
		logger.WarnContext(ctx, "Failed to initialize AMQP client, history will not be mirrored", "error", err)
	}
	if a.Events != nil {
		a.Ledger.Subscribe(worker.PublishEntries(a.Events))
	}

	fs, err := backend.NewFileStore(ctx, cfg)
	if err != nil {
		logger.WarnContext(ctx, "Failed to initialize file store, attachments are disabled", "error", err, "backend", cfg.FilesBackend)
		fs = nil
	}
	var opts []services.Option
	if fs != nil {
		opts = append(opts, services.WithFiles(fs))
	}

	var summaries cache.Cache[services.Summary]
	if cfg.DashboardCacheTTL > 0 {
		a.dashboardCache = cache.NewLRU[services.Summary](dashboardCacheSize, cfg.DashboardCacheTTL)
		summaries = a.dashboardCache
	}

	store := be.Store
	a.Invoices = services.NewInvoiceService(store, a.Ledger, backend.NewMailer(cfg), opts...)
	a.Expenses = services.NewExpenseService(store, a.Ledger, opts...)
	a.Offers = services.NewOfferService(store, a.Ledger, opts...)
	a.Recurring = services.NewRecurringService(store, a.Ledger, opts...)
	a.Dashboard = services.NewDashboardService(store, a.Ledger, summaries, opts...)

	logger.InfoContext(ctx, "Back office ready",
		"backend", bcfg.Type,
		"history_entries", a.Ledger.Len(),
		"amqp_enabled", a.Events != nil,
		"mail_enabled", cfg.MailEnabled(),
		"files_backend", cfg.FilesBackend)
	return a, nil
}

// DefaultActor is the user recorded when a request carries no identity.
func (a *App) DefaultActor() ledger.Actor {
	return ledger.Actor{Name: a.Config.UserName, Email: a.Config.UserEmail}
}

// Server builds the HTTP API on top of the services.
func (a *App) Server() *apphttp.Server {
	return apphttp.NewServer(apphttp.Config{
		Addr:              ":" + a.Config.Port,
		RequestsPerMinute: 300,
		DefaultActor:      a.DefaultActor(),
		Ready:             a.Backend.Ready,
		Logger:            a.logger,
	}, apphttp.Services{
		Invoices:  a.Invoices,
		Expenses:  a.Expenses,
		Offers:    a.Offers,
		Recurring: a.Recurring,
		Dashboard: a.Dashboard,
		Ledger:    a.Ledger,
	})
}

// RunMaintenance evicts expired dashboard summaries until ctx is done.
func (a *App) RunMaintenance(ctx context.Context, interval time.Duration) {
	if a.dashboardCache == nil {
		<-ctx.Done()
		return
	}
	a.dashboardCache.RunJanitor(ctx, interval)
}

// Close releases the broker connection and the record store.
func (a *App) Close() error {
	var errs []error
	if a.Events != nil {
		errs = append(errs, a.Events.Close())
	}
	errs = append(errs, a.Backend.Close())
	return errors.Join(errs...)
}
