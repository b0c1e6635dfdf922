package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"backoffice/internal/core"
	"backoffice/internal/ledger"
	"backoffice/internal/records"
)

// ExpenseService manages expenses. Expenses have no status machine.
type ExpenseService struct {
	base
	store records.ExpenseStore
}

func NewExpenseService(store records.ExpenseStore, l *ledger.Ledger, opts ...Option) *ExpenseService {
	s := &ExpenseService{base: newBase(l, opts), store: store}
	s.register(core.TypeExpense, s)
	return s
}

// List returns expenses, newest first. category "" or "all" selects every expense.
func (s *ExpenseService) List(ctx context.Context, category string) ([]core.Expense, error) {
	all, err := s.store.ListExpenses(ctx)
	if err != nil {
		return nil, core.WrapStoreError("list expenses", err)
	}
	if category == "" || category == ledger.FilterAll {
		return all, nil
	}
	out := make([]core.Expense, 0, len(all))
	for _, e := range all {
		if e.Category == category {
			out = append(out, e)
		}
	}
	return out, nil
}

// Categories returns the distinct expense categories in use, sorted.
func (s *ExpenseService) Categories(ctx context.Context) ([]string, error) {
	all, err := s.store.ListExpenses(ctx)
	if err != nil {
		return nil, core.WrapStoreError("list expenses", err)
	}
	seen := make(map[string]struct{})
	var out []string
	for _, e := range all {
		if _, ok := seen[e.Category]; ok {
			continue
		}
		seen[e.Category] = struct{}{}
		out = append(out, e.Category)
	}
	sort.Strings(out)
	return out, nil
}

func (s *ExpenseService) Get(ctx context.Context, id string) (core.Expense, error) {
	e, err := s.store.GetExpense(ctx, id)
	if err != nil {
		return core.Expense{}, core.WrapStoreError("get expense", err)
	}
	return e, nil
}

func (s *ExpenseService) Create(ctx context.Context, e core.Expense, pdf *Attachment, actor ledger.Actor) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	e.ID = ""
	e.CreatedAt = s.now().UTC()
	if url := s.upload(ctx, core.TypeExpense, pdf); url != "" {
		e.PDFURL = url
	}

	created, err := s.store.CreateExpense(ctx, e)
	if err != nil {
		return core.Expense{}, core.WrapStoreError("create expense", err)
	}

	slog.InfoContext(ctx, "Expense created",
		"id", created.ID,
		"category", created.Category,
		"amount_cents", created.Amount.Cents)

	s.record(ctx, ledger.RecordInput{
		Action:      ledger.ActionAdded,
		Type:        core.TypeExpense,
		ItemID:      created.ID,
		Description: expenseLabel(created),
		Changes:     ledger.NewChanges(core.TypeExpense, nil, created),
		Actor:       actor,
	})
	return created, nil
}

func (s *ExpenseService) Update(ctx context.Context, id string, in core.Expense, pdf *Attachment, actor ledger.Actor) (core.Expense, error) {
	before, err := s.Get(ctx, id)
	if err != nil {
		return core.Expense{}, err
	}
	if err := in.Validate(); err != nil {
		return core.Expense{}, err
	}

	after := in
	after.ID = before.ID
	after.CreatedAt = before.CreatedAt
	if after.PDFURL == "" {
		after.PDFURL = before.PDFURL
	}
	if url := s.upload(ctx, core.TypeExpense, pdf); url != "" {
		after.PDFURL = url
	}

	updated, err := s.store.UpdateExpense(ctx, after)
	if err != nil {
		return core.Expense{}, core.WrapStoreError("update expense", err)
	}
	if updated.PDFURL != before.PDFURL {
		s.discard(ctx, before.PDFURL)
	}

	slog.InfoContext(ctx, "Expense updated", "id", updated.ID, "amount_cents", updated.Amount.Cents)

	s.record(ctx, ledger.RecordInput{
		Action:      ledger.ActionEdited,
		Type:        core.TypeExpense,
		ItemID:      updated.ID,
		Description: expenseLabel(updated),
		Changes:     ledger.NewChanges(core.TypeExpense, before, updated),
		Actor:       actor,
	})
	return updated, nil
}

func (s *ExpenseService) Delete(ctx context.Context, id string, actor ledger.Actor) error {
	before, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteExpense(ctx, id); err != nil {
		return core.WrapStoreError("delete expense", err)
	}
	s.discard(ctx, before.PDFURL)

	slog.InfoContext(ctx, "Expense deleted", "id", id)

	s.record(ctx, ledger.RecordInput{
		Action:      ledger.ActionDeleted,
		Type:        core.TypeExpense,
		ItemID:      id,
		Description: expenseLabel(before),
		Changes:     ledger.NewChanges(core.TypeExpense, before, nil),
		Actor:       actor,
	})
	return nil
}

// Restore re-applies an expense snapshot; it backs ledger reverts.
func (s *ExpenseService) Restore(ctx context.Context, id string, snapshot core.Record) error {
	e, err := snapshotAs[core.Expense](snapshot)
	if err != nil {
		return err
	}
	current, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	e.ID = id
	e.PDFURL = current.PDFURL
	if _, err := s.store.UpdateExpense(ctx, e); err != nil {
		return core.WrapStoreError("restore expense", err)
	}
	return nil
}

func expenseLabel(e core.Expense) string {
	return fmt.Sprintf("Expense %q (%s)", e.Description, e.Amount)
}
