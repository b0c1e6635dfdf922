package core

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{NewDate(2024, 2, 30), true},     // normalizes to March 1
		{Date{Time: time.Time{}}, false}, // zero time
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && !errors.Is(err, ErrZeroDate) {
			t.Fatalf("case %d expected ErrZeroDate, got %v", i, err)
		}
	}
	if got := NewDate(2024, 2, 30).String(); got != "2024-03-01" {
		t.Errorf("NewDate(2024, 2, 30) = %s, want 2024-03-01", got)
	}
}

func TestDateJSON(t *testing.T) {
	var d Date
	if err := json.Unmarshal([]byte(`"2024-03-05"`), &d); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if d.String() != "2024-03-05" {
		t.Fatalf("got %s", d)
	}
	if err := json.Unmarshal([]byte(`"2024-03-05T23:10:00Z"`), &d); err != nil || d.String() != "2024-03-05" {
		t.Fatalf("timestamp input: got %s err=%v", d, err)
	}
	if err := json.Unmarshal([]byte(`null`), &d); err != nil || !d.IsZero() {
		t.Fatalf("null should reset date, got %s err=%v", d, err)
	}
	if err := json.Unmarshal([]byte(`"05/03/2024"`), &d); err == nil {
		t.Fatal("expected error for non ISO date")
	}
}

func TestMoneyValidate(t *testing.T) {
	if err := (Money{Cents: 1}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Money{Cents: 0}).Validate(); err == nil {
		t.Fatalf("expected error for zero")
	}
}

func validInvoice() Invoice {
	return Invoice{
		InvoiceNumber:        "1/03/2024",
		Date:                 NewDate(2024, 3, 1),
		Client:               "ACME",
		Amount:               Money{Cents: 1000000},
		VATRate:              23,
		Status:               InvoiceCreated,
		DueDate:              NewDate(2024, 3, 31),
		RepresentativeName:   "Jan Kowalski",
		RepresentativeEmail:  "jan@acme.test",
		RepresentativeGender: Male,
	}
}

func TestInvoiceValidate(t *testing.T) {
	if err := validInvoice().Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	mutations := map[string]func(*Invoice){
		"zero date":     func(i *Invoice) { i.Date = Date{} },
		"zero due date": func(i *Invoice) { i.DueDate = Date{} },
		"empty client":  func(i *Invoice) { i.Client = "  " },
		"zero amount":   func(i *Invoice) { i.Amount = Money{} },
		"vat too high":  func(i *Invoice) { i.VATRate = 101 },
		"negative vat":  func(i *Invoice) { i.VATRate = -1 },
		"no rep name":   func(i *Invoice) { i.RepresentativeName = "" },
		"bad email":     func(i *Invoice) { i.RepresentativeEmail = "not-an-email" },
		"bad gender":    func(i *Invoice) { i.RepresentativeGender = "other" },
		"bad status":    func(i *Invoice) { i.Status = "Archived" },
	}
	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			inv := validInvoice()
			mutate(&inv)
			err := inv.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestInvoiceTransitions(t *testing.T) {
	cases := []struct {
		from, to InvoiceStatus
		ok       bool
	}{
		{InvoiceCreated, InvoiceSent, true},
		{InvoiceCreated, InvoiceOverdue, true},
		{InvoiceSent, InvoicePaid, true},
		{InvoiceSent, InvoiceOverdue, true},
		{InvoiceOverdue, InvoiceSent, true},
		{InvoiceOverdue, InvoicePaid, true},
		{InvoicePaid, InvoiceSent, false},
		{InvoicePaid, InvoiceOverdue, false},
		{InvoiceSent, InvoiceCreated, false},
		{InvoiceCreated, "Lost", false},
	}
	for _, tc := range cases {
		err := Invoice{Status: tc.from}.CanTransition(tc.to)
		if tc.ok && err != nil {
			t.Errorf("%s -> %s: unexpected error %v", tc.from, tc.to, err)
		}
		if !tc.ok && !errors.Is(err, ErrValidation) {
			t.Errorf("%s -> %s: expected validation error, got %v", tc.from, tc.to, err)
		}
	}
}

func TestInvoiceIsUnpaidPastDue(t *testing.T) {
	today := NewDate(2024, 6, 10)
	inv := validInvoice()
	inv.DueDate = NewDate(2024, 6, 9)

	if !inv.IsUnpaidPastDue(today) {
		t.Error("created invoice past due should be flagged")
	}
	inv.Status = InvoicePaid
	if inv.IsUnpaidPastDue(today) {
		t.Error("paid invoice must not be flagged")
	}
	inv.Status = InvoiceSent
	inv.DueDate = today
	if inv.IsUnpaidPastDue(today) {
		t.Error("invoice due today is not past due")
	}
}

func TestExpenseValidate(t *testing.T) {
	good := Expense{
		Date:        NewDate(2025, 1, 1),
		Description: "ok",
		Amount:      Money{Cents: 100},
		Category:    "Office",
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Expense{
		{Date: Date{Time: time.Time{}}, Description: "a", Amount: Money{Cents: 1}, Category: "c"}, // zero date
		{Date: NewDate(2025, 1, 1), Description: "", Amount: Money{Cents: 1}, Category: "c"},
		{Date: NewDate(2025, 1, 1), Description: strings.Repeat("x", 201), Amount: Money{Cents: 1}, Category: "c"},
		{Date: NewDate(2025, 1, 1), Description: "a", Amount: Money{Cents: 0}, Category: "c"},
		{Date: NewDate(2025, 1, 1), Description: "a", Amount: Money{Cents: 1}, Category: ""},
	}
	for i, e := range bads {
		if err := e.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestOfferValidate(t *testing.T) {
	good := Offer{
		Title:          "Website",
		Client:         "ACME",
		Amount:         Money{Cents: 500000},
		ExpirationDate: NewDate(2024, 7, 1),
		Status:         OfferDraft,
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	bad := good
	bad.ExpirationDate = Date{}
	if err := bad.Validate(); err == nil {
		t.Fatal("expected error for missing expiration date")
	}
	bad = good
	bad.Status = "Pending"
	if err := bad.Validate(); err == nil {
		t.Fatal("expected error for unknown status")
	}
}

func TestRecurringPaymentValidate(t *testing.T) {
	good := RecurringPayment{
		Name:        "Rent",
		Amount:      Money{Cents: 120000},
		Frequency:   Monthly,
		Category:    "Office",
		NextPayment: NewDate(2024, 1, 15),
		Active:      true,
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	bad := good
	bad.Frequency = "Weekly"
	err := bad.Validate()
	if !errors.Is(err, ErrUnknownFrequency) || !errors.Is(err, ErrValidation) {
		t.Fatalf("expected unknown frequency validation error, got %v", err)
	}
}
