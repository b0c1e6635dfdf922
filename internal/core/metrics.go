package core

import (
	"math"
	"sort"
	"time"
)

// Totals is the all-time financial summary shown on the dashboard.
type Totals struct {
	Revenue              Money `json:"revenue"`
	VAT                  Money `json:"vat"`
	Expenses             Money `json:"expenses"`
	AccumulatedRecurring Money `json:"accumulatedRecurring"`
	NetProfit            Money `json:"netProfit"`
}

// ComputeTotals derives the all-time totals. Recurring liability is accrued up to now.
func ComputeTotals(invoices []Invoice, expenses []Expense, recurring []RecurringPayment, now time.Time) Totals {
	var t Totals
	for _, inv := range invoices {
		t.Revenue = t.Revenue.Add(inv.Amount)
		t.VAT = t.VAT.Add(inv.Tax)
	}
	for _, e := range expenses {
		t.Expenses = t.Expenses.Add(e.Amount)
	}
	t.AccumulatedRecurring = Accumulated(recurring, DateOf(now))
	t.NetProfit = t.Revenue.Sub(t.VAT).Sub(t.Expenses).Sub(t.AccumulatedRecurring)
	return t
}

// PeriodMetrics holds the figures of a single calendar month.
type PeriodMetrics struct {
	Year     int   `json:"year"`
	Month    int   `json:"month"`
	Revenue  Money `json:"revenue"`
	VAT      Money `json:"vat"`
	Expenses Money `json:"expenses"`
	Income   Money `json:"income"`
}

// PeriodChange holds percentage changes between two periods.
type PeriodChange struct {
	Revenue  float64 `json:"revenue"`
	VAT      float64 `json:"vat"`
	Expenses float64 `json:"expenses"`
	Income   float64 `json:"income"`
}

// PeriodComparison compares the current calendar month with the previous one.
type PeriodComparison struct {
	Current  PeriodMetrics `json:"current"`
	Previous PeriodMetrics `json:"previous"`
	Change   PeriodChange  `json:"change"`
}

// ComparePeriods buckets invoices and expenses by their date into now's month
// and the month before. Income only subtracts active monthly recurring
// payments, not the accrued liability.
func ComparePeriods(invoices []Invoice, expenses []Expense, recurring []RecurringPayment, now time.Time) PeriodComparison {
	first := NewDate(now.Year(), int(now.Month()), 1)
	prev := first.AddDate(0, -1, 0)
	monthly := MonthlyRecurring(recurring)

	current := periodMetrics(invoices, expenses, first.Year(), first.Month(), monthly)
	previous := periodMetrics(invoices, expenses, prev.Year(), prev.Month(), monthly)

	return PeriodComparison{
		Current:  current,
		Previous: previous,
		Change: PeriodChange{
			Revenue:  PercentChange(current.Revenue.Float(), previous.Revenue.Float()),
			VAT:      PercentChange(current.VAT.Float(), previous.VAT.Float()),
			Expenses: PercentChange(current.Expenses.Float(), previous.Expenses.Float()),
			Income:   PercentChange(current.Income.Float(), previous.Income.Float()),
		},
	}
}

func periodMetrics(invoices []Invoice, expenses []Expense, year, month int, monthly Money) PeriodMetrics {
	p := PeriodMetrics{Year: year, Month: month}
	for _, inv := range invoices {
		if inv.Date.Year() == year && inv.Date.Month() == month {
			p.Revenue = p.Revenue.Add(inv.Amount)
			p.VAT = p.VAT.Add(inv.Tax)
		}
	}
	for _, e := range expenses {
		if e.Date.Year() == year && e.Date.Month() == month {
			p.Expenses = p.Expenses.Add(e.Amount)
		}
	}
	p.Income = p.Revenue.Sub(p.VAT).Sub(p.Expenses).Sub(monthly)
	return p
}

// PercentChange returns the relative change from previous to current in percent.
// A zero previous value yields 100 when current is positive and 0 otherwise.
func PercentChange(current, previous float64) float64 {
	if previous == 0 {
		if current > 0 {
			return 100
		}
		return 0
	}
	return (current - previous) / previous * 100
}

// Expiration levels of an offer.
type ExpirationLevel string

const (
	ExpirationCritical ExpirationLevel = "critical"
	ExpirationWarning  ExpirationLevel = "warning"
	ExpirationNormal   ExpirationLevel = "normal"
)

// DaysToExpiration rounds the time left until the expiration day up to whole days.
func DaysToExpiration(expiration Date, now time.Time) int {
	return int(math.Ceil(expiration.Sub(now).Hours() / 24))
}

// LevelForDays maps days to expiration to a display level.
func LevelForDays(days int) ExpirationLevel {
	switch {
	case days <= 3:
		return ExpirationCritical
	case days <= 7:
		return ExpirationWarning
	default:
		return ExpirationNormal
	}
}

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string `json:"name"`
	Amount Money  `json:"amount"`
}

// ExpensesByCategory totals expenses per category, largest first.
func ExpensesByCategory(expenses []Expense) []CategoryAmount {
	sums := make(map[string]int64)
	for _, e := range expenses {
		sums[e.Category] += e.Amount.Cents
	}
	out := make([]CategoryAmount, 0, len(sums))
	for name, cents := range sums {
		out = append(out, CategoryAmount{Name: name, Amount: Money{Cents: cents}})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Amount.Cents != out[j].Amount.Cents {
			return out[i].Amount.Cents > out[j].Amount.Cents
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// MonthOverview is a compact summary for a specific year+month.
type MonthOverview struct {
	Year     int   `json:"year"`
	Month    int   `json:"month"` // 1-12
	Revenue  Money `json:"revenue"`
	Expenses Money `json:"expenses"`
}

// MonthlySeries returns the last n months ending with now's month, oldest first.
func MonthlySeries(invoices []Invoice, expenses []Expense, now time.Time, n int) []MonthOverview {
	if n <= 0 {
		return nil
	}
	first := NewDate(now.Year(), int(now.Month()), 1)
	out := make([]MonthOverview, n)
	index := make(map[[2]int]int, n)
	for i := 0; i < n; i++ {
		d := first.AddDate(0, i-n+1, 0)
		out[i] = MonthOverview{Year: d.Year(), Month: d.Month()}
		index[[2]int{d.Year(), d.Month()}] = i
	}
	for _, inv := range invoices {
		if i, ok := index[[2]int{inv.Date.Year(), inv.Date.Month()}]; ok {
			out[i].Revenue = out[i].Revenue.Add(inv.Amount)
		}
	}
	for _, e := range expenses {
		if i, ok := index[[2]int{e.Date.Year(), e.Date.Month()}]; ok {
			out[i].Expenses = out[i].Expenses.Add(e.Amount)
		}
	}
	return out
}
