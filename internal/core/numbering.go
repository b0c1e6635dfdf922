package core

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Invoice numbers have the shape n/MM/YYYY. The sequence n restarts at 1 in
// every calendar (month, year) bucket.

var (
	invoiceSeqRe   = regexp.MustCompile(`^[1-9][0-9]*$`)
	invoiceMonthRe = regexp.MustCompile(`^(0[1-9]|1[0-2])$`)
	invoiceYearRe  = regexp.MustCompile(`^[0-9]+$`)
)

// MinInvoiceYear is the earliest year accepted in an invoice number.
const MinInvoiceYear = 2000

// FormatInvoiceNumber renders seq in the bucket of the given month and year.
func FormatInvoiceNumber(seq, month, year int) string {
	return fmt.Sprintf("%d/%02d/%d", seq, month, year)
}

// NextInvoiceNumber returns the next free number in now's bucket.
// Numbers from other buckets and numbers that do not parse are ignored.
func NextInvoiceNumber(existing []string, now time.Time) string {
	month, year := int(now.Month()), now.Year()
	highest := 0
	for _, number := range existing {
		seq, m, y, ok := splitInvoiceNumber(number)
		if !ok || m != month || y != year {
			continue
		}
		if seq > highest {
			highest = seq
		}
	}
	return FormatInvoiceNumber(highest+1, month, year)
}

// splitInvoiceNumber parses the three numeric parts of number.
// ok is false unless there are exactly three parts and the sequence is positive.
func splitInvoiceNumber(number string) (seq, month, year int, ok bool) {
	parts := strings.Split(strings.TrimSpace(number), "/")
	if len(parts) != 3 {
		return 0, 0, 0, false
	}
	seq, err := strconv.Atoi(parts[0])
	if err != nil || seq <= 0 {
		return 0, 0, 0, false
	}
	month, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, 0, false
	}
	year, err = strconv.Atoi(parts[2])
	if err != nil {
		return 0, 0, 0, false
	}
	return seq, month, year, true
}

// ValidateInvoiceNumber checks a user-supplied invoice number.
// The year must lie in [MinInvoiceYear, now.Year()].
func ValidateInvoiceNumber(candidate string, now time.Time) error {
	parts := strings.Split(candidate, "/")
	if len(parts) != 3 {
		return &FormatError{Input: candidate, Reason: "expected n/MM/YYYY"}
	}
	if !invoiceSeqRe.MatchString(parts[0]) {
		return &FormatError{Input: candidate, Reason: "sequence must be a positive integer without leading zeros"}
	}
	if !invoiceMonthRe.MatchString(parts[1]) {
		return &FormatError{Input: candidate, Reason: "month must be 01 to 12"}
	}
	if !invoiceYearRe.MatchString(parts[2]) {
		return &FormatError{Input: candidate, Reason: "year must be numeric"}
	}
	year, err := strconv.Atoi(parts[2])
	if err != nil || year < MinInvoiceYear || year > now.Year() {
		return &FormatError{Input: candidate, Reason: fmt.Sprintf("year must be between %d and %d", MinInvoiceYear, now.Year())}
	}
	return nil
}
