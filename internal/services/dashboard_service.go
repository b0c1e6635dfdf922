package services

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"backoffice/internal/cache"
	"backoffice/internal/core"
	"backoffice/internal/ledger"
	"backoffice/internal/records"
)

const (
	dashboardMonths   = 6
	upcomingPayments  = 5
	expiringOfferDays = 7
)

// Summary is the dashboard read model.
type Summary struct {
	GeneratedAt      time.Time             `json:"generatedAt"`
	Totals           core.Totals           `json:"totals"`
	Comparison       core.PeriodComparison `json:"comparison"`
	MonthlyRecurring core.Money            `json:"monthlyRecurring"`
	Categories       []core.CategoryAmount `json:"categories"`
	Months           []core.MonthOverview  `json:"months"`
	OverdueInvoices  []core.Invoice        `json:"overdueInvoices"`
	ExpiringOffers   []OfferView           `json:"expiringOffers"`
	UpcomingPayments []RecurringView       `json:"upcomingPayments"`
}

// DashboardService computes the financial summary across all record kinds.
type DashboardService struct {
	base
	store records.Store
	cache cache.Cache[Summary]
}

// NewDashboardService creates the service. When c is non-nil summaries are
// cached per day and purged whenever the ledger records a mutation.
func NewDashboardService(store records.Store, l *ledger.Ledger, c cache.Cache[Summary], opts ...Option) *DashboardService {
	s := &DashboardService{base: newBase(l, opts), store: store, cache: c}
	if l != nil && c != nil {
		l.Subscribe(func(context.Context, ledger.Entry) { c.Purge() })
	}
	return s
}

// Summary loads every record kind concurrently and aggregates them as of now.
func (s *DashboardService) Summary(ctx context.Context) (Summary, error) {
	now := s.now()
	key := core.DateOf(now).String()
	if s.cache != nil {
		if sum, ok := s.cache.Get(key); ok {
			return sum, nil
		}
	}

	var (
		invoices  []core.Invoice
		expenses  []core.Expense
		offers    []core.Offer
		recurring []core.RecurringPayment
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		invoices, err = s.store.ListInvoices(gctx)
		return core.WrapStoreError("list invoices", err)
	})
	g.Go(func() (err error) {
		expenses, err = s.store.ListExpenses(gctx)
		return core.WrapStoreError("list expenses", err)
	})
	g.Go(func() (err error) {
		offers, err = s.store.ListOffers(gctx)
		return core.WrapStoreError("list offers", err)
	})
	g.Go(func() (err error) {
		recurring, err = s.store.ListRecurringPayments(gctx)
		return core.WrapStoreError("list recurring payments", err)
	})
	if err := g.Wait(); err != nil {
		slog.ErrorContext(ctx, "Failed to load dashboard data", "error", err)
		return Summary{}, err
	}

	sum := Summary{
		GeneratedAt:      now.UTC(),
		Totals:           core.ComputeTotals(invoices, expenses, recurring, now),
		Comparison:       core.ComparePeriods(invoices, expenses, recurring, now),
		MonthlyRecurring: core.MonthlyRecurring(recurring),
		Categories:       core.ExpensesByCategory(expenses),
		Months:           core.MonthlySeries(invoices, expenses, now, dashboardMonths),
		OverdueInvoices:  overdueInvoices(invoices, core.DateOf(now)),
		ExpiringOffers:   expiringOffers(offers, now),
		UpcomingPayments: upcoming(recurring, core.DateOf(now)),
	}

	if s.cache != nil {
		s.cache.Set(key, sum)
	}
	return sum, nil
}

func overdueInvoices(invoices []core.Invoice, today core.Date) []core.Invoice {
	out := []core.Invoice{}
	for _, inv := range invoices {
		if inv.Status == core.InvoiceOverdue || inv.IsUnpaidPastDue(today) {
			out = append(out, inv)
		}
	}
	return out
}

// expiringOffers returns open offers expiring within a week, soonest first.
func expiringOffers(offers []core.Offer, now time.Time) []OfferView {
	out := []OfferView{}
	for _, o := range offers {
		if o.Status != core.OfferDraft && o.Status != core.OfferSent {
			continue
		}
		days := core.DaysToExpiration(o.ExpirationDate, now)
		if days < 0 || days > expiringOfferDays {
			continue
		}
		out = append(out, OfferView{Offer: o, DaysToExpiration: days, ExpirationLevel: core.LevelForDays(days)})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DaysToExpiration < out[j].DaysToExpiration })
	return out
}

// upcoming returns the next active recurring payments by next occurrence.
func upcoming(payments []core.RecurringPayment, today core.Date) []RecurringView {
	out := []RecurringView{}
	for _, p := range payments {
		if !p.Active {
			continue
		}
		next, err := core.NextOccurrence(p.NextPayment, today, p.Frequency)
		if err != nil {
			continue
		}
		out = append(out, RecurringView{RecurringPayment: p, NextOccurrence: next})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].NextOccurrence.Before(out[j].NextOccurrence) })
	if len(out) > upcomingPayments {
		out = out[:upcomingPayments]
	}
	return out
}
