package memory

import (
	"context"
	"errors"
	"testing"

	"backoffice/internal/core"
	"backoffice/internal/ledger"
	"backoffice/internal/records"
)

var _ records.Store = (*Store)(nil)

func TestInvoicesOrderedByDateDesc(t *testing.T) {
	s := New()
	ctx := context.Background()
	for _, d := range []int{3, 20, 11} {
		if _, err := s.CreateInvoice(ctx, core.Invoice{Date: core.NewDate(2024, 3, d)}); err != nil {
			t.Fatal(err)
		}
	}
	got, _ := s.ListInvoices(ctx)
	if len(got) != 3 || got[0].Date.Day() != 20 || got[2].Date.Day() != 3 {
		t.Fatalf("unexpected order: %v %v %v", got[0].Date, got[1].Date, got[2].Date)
	}
	for _, inv := range got {
		if inv.ID == "" {
			t.Fatal("create should assign an id")
		}
	}
}

func TestRecurringOrderedByNextPaymentAsc(t *testing.T) {
	s := New()
	ctx := context.Background()
	for _, m := range []int{5, 1, 3} {
		s.CreateRecurringPayment(ctx, core.RecurringPayment{NextPayment: core.NewDate(2024, m, 1)})
	}
	got, _ := s.ListRecurringPayments(ctx)
	if got[0].NextPayment.Month() != 1 || got[2].NextPayment.Month() != 5 {
		t.Fatalf("unexpected order: %+v", got)
	}
}

func TestOffersOrderedByCreatedDesc(t *testing.T) {
	s := New()
	ctx := context.Background()
	s.CreateOffer(ctx, core.Offer{ID: "old", CreatedDate: core.NewDate(2024, 1, 1)})
	s.CreateOffer(ctx, core.Offer{ID: "new", CreatedDate: core.NewDate(2024, 2, 1)})
	got, _ := s.ListOffers(ctx)
	if got[0].ID != "new" {
		t.Fatalf("expected newest offer first, got %s", got[0].ID)
	}
}

func TestMissingRecordsReturnNotFound(t *testing.T) {
	s := New()
	ctx := context.Background()
	if _, err := s.GetExpense(ctx, "nope"); !errors.Is(err, core.ErrRecordNotFound) {
		t.Fatalf("get: %v", err)
	}
	if _, err := s.UpdateOffer(ctx, core.Offer{ID: "nope"}); !errors.Is(err, core.ErrRecordNotFound) {
		t.Fatalf("update: %v", err)
	}
	if err := s.DeleteRecurringPayment(ctx, "nope"); !errors.Is(err, core.ErrRecordNotFound) {
		t.Fatalf("delete: %v", err)
	}
}

func TestUpdateAndDelete(t *testing.T) {
	s := New()
	ctx := context.Background()
	e, _ := s.CreateExpense(ctx, core.Expense{Description: "a"})
	e.Description = "b"
	if _, err := s.UpdateExpense(ctx, e); err != nil {
		t.Fatal(err)
	}
	got, _ := s.GetExpense(ctx, e.ID)
	if got.Description != "b" {
		t.Fatalf("update not applied: %+v", got)
	}
	if err := s.DeleteExpense(ctx, e.ID); err != nil {
		t.Fatal(err)
	}
	if list, _ := s.ListExpenses(ctx); len(list) != 0 {
		t.Fatalf("expected empty list, got %d", len(list))
	}
}

func TestHistoryNewestFirst(t *testing.T) {
	s := New()
	ctx := context.Background()
	s.AppendEntry(ctx, ledger.Entry{ID: "1"})
	s.AppendEntry(ctx, ledger.Entry{ID: "2"})
	got, _ := s.ListEntries(ctx)
	if len(got) != 2 || got[0].ID != "2" {
		t.Fatalf("unexpected history: %+v", got)
	}
}
