// This file implements the recurring payment date engine. Each frequency has
// its own period strategy, looked up from a registry.

package core

import "fmt"

// PeriodStrategy encapsulates the calendar arithmetic of one frequency.
type PeriodStrategy interface {
	// Advance moves d forward by one period.
	Advance(d Date) Date
	// Periods converts an elapsed calendar month count to whole periods.
	Periods(months int) int
}

// MonthlyPeriod implements PeriodStrategy for monthly payments.
type MonthlyPeriod struct{}

func (MonthlyPeriod) Advance(d Date) Date    { return d.AddDate(0, 1, 0) }
func (MonthlyPeriod) Periods(months int) int { return months }

// QuarterlyPeriod implements PeriodStrategy for quarterly payments.
type QuarterlyPeriod struct{}

func (QuarterlyPeriod) Advance(d Date) Date    { return d.AddDate(0, 3, 0) }
func (QuarterlyPeriod) Periods(months int) int { return months / 3 }

// YearlyPeriod implements PeriodStrategy for yearly payments.
type YearlyPeriod struct{}

func (YearlyPeriod) Advance(d Date) Date    { return d.AddDate(1, 0, 0) }
func (YearlyPeriod) Periods(months int) int { return months / 12 }

var periodStrategies = map[Frequency]PeriodStrategy{
	Monthly:   MonthlyPeriod{},
	Quarterly: QuarterlyPeriod{},
	Yearly:    YearlyPeriod{},
}

// GetPeriodStrategy returns the strategy for f, or ErrUnknownFrequency.
func GetPeriodStrategy(f Frequency) (PeriodStrategy, error) {
	s, ok := periodStrategies[f]
	if !ok {
		return nil, fmt.Errorf("frequency %q: %w", f, ErrUnknownFrequency)
	}
	return s, nil
}

// NextOccurrence projects the anchor date of a recurring payment onto the
// first occurrence on or after today. Anchors not yet reached are returned
// unchanged. Day overflow follows time.Date normalization (Jan 31 in
// February becomes early March).
func NextOccurrence(anchor, today Date, f Frequency) (Date, error) {
	strategy, err := GetPeriodStrategy(f)
	if err != nil {
		return Date{}, err
	}
	if !anchor.Before(today) {
		return anchor, nil
	}
	candidate := NewDate(today.Year(), today.Month(), anchor.Day())
	if candidate.Before(today) {
		candidate = strategy.Advance(candidate)
	}
	return candidate, nil
}

// ElapsedMonths counts calendar months from anchor to end, including the
// month of end once its anchor day is reached. Never negative.
func ElapsedMonths(anchor, end Date) int {
	months := (end.Year()-anchor.Year())*12 + (end.Month() - anchor.Month())
	if end.Day() >= anchor.Day() {
		months++
	}
	if months < 0 {
		return 0
	}
	return months
}

// Accumulated sums what active payments have accrued from their anchors up to end.
// Payments with an unknown frequency contribute nothing.
func Accumulated(payments []RecurringPayment, end Date) Money {
	var total Money
	for _, p := range payments {
		if !p.Active {
			continue
		}
		strategy, err := GetPeriodStrategy(p.Frequency)
		if err != nil {
			continue
		}
		periods := strategy.Periods(ElapsedMonths(p.NextPayment, end))
		total = total.Add(p.Amount.Times(periods))
	}
	return total
}

// MonthlyRecurring sums the amounts of active monthly payments.
func MonthlyRecurring(payments []RecurringPayment) Money {
	var total Money
	for _, p := range payments {
		if p.Active && p.Frequency == Monthly {
			total = total.Add(p.Amount)
		}
	}
	return total
}
