// Package memory is an in-process record store, used by tests and the
// memory data backend.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"backoffice/internal/core"
	"backoffice/internal/ledger"
)

// table holds the rows of one record kind.
type table[T core.Record] struct {
	kind  core.RecordType
	rows  map[string]T
	less  func(a, b T) bool
	setID func(T, string) T
}

func newTable[T core.Record](kind core.RecordType, less func(a, b T) bool, setID func(T, string) T) *table[T] {
	return &table[T]{kind: kind, rows: make(map[string]T), less: less, setID: setID}
}

func (t *table[T]) list() []T {
	out := make([]T, 0, len(t.rows))
	for _, r := range t.rows {
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if t.less(out[i], out[j]) {
			return true
		}
		if t.less(out[j], out[i]) {
			return false
		}
		return out[i].RecordID() < out[j].RecordID()
	})
	return out
}

func (t *table[T]) get(id string) (T, error) {
	r, ok := t.rows[id]
	if !ok {
		var zero T
		return zero, core.NotFound(t.kind, id)
	}
	return r, nil
}

func (t *table[T]) create(r T) T {
	if r.RecordID() == "" {
		r = t.setID(r, uuid.NewString())
	}
	t.rows[r.RecordID()] = r
	return r
}

func (t *table[T]) update(r T) (T, error) {
	if _, ok := t.rows[r.RecordID()]; !ok {
		var zero T
		return zero, core.NotFound(t.kind, r.RecordID())
	}
	t.rows[r.RecordID()] = r
	return r, nil
}

func (t *table[T]) delete(id string) error {
	if _, ok := t.rows[id]; !ok {
		return core.NotFound(t.kind, id)
	}
	delete(t.rows, id)
	return nil
}

// Store implements records.Store in memory. Safe for concurrent use.
type Store struct {
	mu        sync.Mutex
	invoices  *table[core.Invoice]
	expenses  *table[core.Expense]
	offers    *table[core.Offer]
	recurring *table[core.RecurringPayment]
	history   []ledger.Entry // newest first
}

func New() *Store {
	return &Store{
		invoices: newTable(core.TypeInvoice,
			func(a, b core.Invoice) bool { return a.Date.After(b.Date) },
			func(r core.Invoice, id string) core.Invoice { r.ID = id; return r }),
		expenses: newTable(core.TypeExpense,
			func(a, b core.Expense) bool { return a.Date.After(b.Date) },
			func(r core.Expense, id string) core.Expense { r.ID = id; return r }),
		offers: newTable(core.TypeOffer,
			func(a, b core.Offer) bool { return a.CreatedDate.After(b.CreatedDate) },
			func(r core.Offer, id string) core.Offer { r.ID = id; return r }),
		recurring: newTable(core.TypeRecurringPayment,
			func(a, b core.RecurringPayment) bool { return a.NextPayment.Before(b.NextPayment) },
			func(r core.RecurringPayment, id string) core.RecurringPayment { r.ID = id; return r }),
	}
}

func (s *Store) ListInvoices(_ context.Context) ([]core.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.invoices.list(), nil
}

func (s *Store) GetInvoice(_ context.Context, id string) (core.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.invoices.get(id)
}

func (s *Store) CreateInvoice(_ context.Context, inv core.Invoice) (core.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.invoices.create(inv), nil
}

func (s *Store) UpdateInvoice(_ context.Context, inv core.Invoice) (core.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.invoices.update(inv)
}

func (s *Store) DeleteInvoice(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.invoices.delete(id)
}

func (s *Store) ListExpenses(_ context.Context) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expenses.list(), nil
}

func (s *Store) GetExpense(_ context.Context, id string) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expenses.get(id)
}

func (s *Store) CreateExpense(_ context.Context, e core.Expense) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expenses.create(e), nil
}

func (s *Store) UpdateExpense(_ context.Context, e core.Expense) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expenses.update(e)
}

func (s *Store) DeleteExpense(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expenses.delete(id)
}

func (s *Store) ListOffers(_ context.Context) ([]core.Offer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.offers.list(), nil
}

func (s *Store) GetOffer(_ context.Context, id string) (core.Offer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.offers.get(id)
}

func (s *Store) CreateOffer(_ context.Context, o core.Offer) (core.Offer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.offers.create(o), nil
}

func (s *Store) UpdateOffer(_ context.Context, o core.Offer) (core.Offer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.offers.update(o)
}

func (s *Store) DeleteOffer(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.offers.delete(id)
}

func (s *Store) ListRecurringPayments(_ context.Context) ([]core.RecurringPayment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recurring.list(), nil
}

func (s *Store) GetRecurringPayment(_ context.Context, id string) (core.RecurringPayment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recurring.get(id)
}

func (s *Store) CreateRecurringPayment(_ context.Context, p core.RecurringPayment) (core.RecurringPayment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recurring.create(p), nil
}

func (s *Store) UpdateRecurringPayment(_ context.Context, p core.RecurringPayment) (core.RecurringPayment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recurring.update(p)
}

func (s *Store) DeleteRecurringPayment(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recurring.delete(id)
}

// AppendEntry stores a history entry.
func (s *Store) AppendEntry(_ context.Context, e ledger.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append([]ledger.Entry{e}, s.history...)
	return nil
}

// ListEntries returns the stored history, newest first.
func (s *Store) ListEntries(_ context.Context) ([]ledger.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ledger.Entry(nil), s.history...), nil
}
