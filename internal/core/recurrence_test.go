package core

import (
	"errors"
	"testing"
)

func TestNextOccurrence(t *testing.T) {
	cases := []struct {
		name   string
		anchor string
		today  string
		freq   Frequency
		want   string
	}{
		{"future anchor unchanged", "2099-01-15", "2024-06-01", Monthly, "2099-01-15"},
		{"anchor today", "2024-06-01", "2024-06-01", Yearly, "2024-06-01"},
		{"day still ahead this month", "2024-01-20", "2024-06-10", Monthly, "2024-06-20"},
		{"day passed monthly", "2024-01-05", "2024-06-10", Monthly, "2024-07-05"},
		{"day passed quarterly", "2024-01-05", "2024-06-10", Quarterly, "2024-09-05"},
		{"day passed yearly", "2023-01-05", "2024-06-10", Yearly, "2025-06-05"},
		{"same day as today", "2024-01-10", "2024-06-10", Monthly, "2024-06-10"},
		{"day overflow normalizes", "2024-01-31", "2024-02-10", Monthly, "2024-03-02"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NextOccurrence(MustParseDate(tc.anchor), MustParseDate(tc.today), tc.freq)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.String() != tc.want {
				t.Fatalf("got %s want %s", got, tc.want)
			}
		})
	}
}

func TestNextOccurrenceUnknownFrequency(t *testing.T) {
	_, err := NextOccurrence(MustParseDate("2024-01-05"), MustParseDate("2024-06-10"), "Weekly")
	if !errors.Is(err, ErrUnknownFrequency) {
		t.Fatalf("expected ErrUnknownFrequency, got %v", err)
	}
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("unknown frequency should be a validation error")
	}
}

func TestElapsedMonths(t *testing.T) {
	cases := []struct {
		anchor, end string
		want        int
	}{
		{"2024-01-15", "2024-01-14", 0},
		{"2024-01-15", "2024-01-15", 1},
		{"2024-01-15", "2024-02-14", 1},
		{"2024-01-15", "2024-02-15", 2},
		{"2023-11-30", "2024-01-01", 2},
		{"2025-01-01", "2024-01-01", 0}, // clamped
	}
	for _, tc := range cases {
		if got := ElapsedMonths(MustParseDate(tc.anchor), MustParseDate(tc.end)); got != tc.want {
			t.Errorf("%s..%s: got %d want %d", tc.anchor, tc.end, got, tc.want)
		}
	}
}

func TestAccumulated(t *testing.T) {
	payments := []RecurringPayment{
		{Amount: Money{Cents: 10000}, Frequency: Monthly, NextPayment: MustParseDate("2024-01-10"), Active: true},
		{Amount: Money{Cents: 30000}, Frequency: Quarterly, NextPayment: MustParseDate("2024-01-10"), Active: true},
		{Amount: Money{Cents: 120000}, Frequency: Yearly, NextPayment: MustParseDate("2024-01-10"), Active: true},
	}
	// 2024-06-10: monthsDiff = 5 + 1 = 6 -> 6 monthly, 2 quarterly, 0 yearly
	got := Accumulated(payments, MustParseDate("2024-06-10"))
	if want := int64(6*10000 + 2*30000); got.Cents != want {
		t.Fatalf("got %d want %d", got.Cents, want)
	}
}

func TestAccumulatedInactiveContributesZero(t *testing.T) {
	anchors := []string{"2000-01-01", "2024-06-15", "2099-12-31"}
	ends := []string{"1999-01-01", "2024-06-15", "2150-01-01"}
	for _, a := range anchors {
		for _, e := range ends {
			p := RecurringPayment{Amount: Money{Cents: 999}, Frequency: Monthly, NextPayment: MustParseDate(a), Active: false}
			if got := Accumulated([]RecurringPayment{p}, MustParseDate(e)); got.Cents != 0 {
				t.Fatalf("inactive %s..%s accrued %d", a, e, got.Cents)
			}
		}
	}
}

func TestAccumulatedMonotonic(t *testing.T) {
	payments := []RecurringPayment{
		{Amount: Money{Cents: 5000}, Frequency: Monthly, NextPayment: MustParseDate("2023-03-31"), Active: true},
		{Amount: Money{Cents: 9000}, Frequency: Quarterly, NextPayment: MustParseDate("2023-05-15"), Active: true},
		{Amount: Money{Cents: 70000}, Frequency: Yearly, NextPayment: MustParseDate("2022-02-28"), Active: true},
		{Amount: Money{Cents: 1}, Frequency: Monthly, NextPayment: MustParseDate("2023-01-01"), Active: false},
	}
	end := MustParseDate("2022-01-01")
	prev := Accumulated(payments, end)
	for i := 0; i < 1200; i++ {
		end = end.AddDate(0, 0, 1)
		cur := Accumulated(payments, end)
		if cur.Cents < prev.Cents {
			t.Fatalf("accumulated decreased on %s: %d < %d", end, cur.Cents, prev.Cents)
		}
		prev = cur
	}
}

func TestMonthlyRecurring(t *testing.T) {
	payments := []RecurringPayment{
		{Amount: Money{Cents: 100}, Frequency: Monthly, Active: true},
		{Amount: Money{Cents: 200}, Frequency: Monthly, Active: false},
		{Amount: Money{Cents: 400}, Frequency: Yearly, Active: true},
	}
	if got := MonthlyRecurring(payments); got.Cents != 100 {
		t.Fatalf("got %d want 100", got.Cents)
	}
}
