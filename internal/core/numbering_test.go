package core

import (
	"errors"
	"testing"
	"time"
)

func TestNextInvoiceNumber(t *testing.T) {
	march2024 := time.Date(2024, 3, 18, 10, 0, 0, 0, time.UTC)
	cases := []struct {
		name     string
		existing []string
		now      time.Time
		want     string
	}{
		{"ignores invalid", []string{"2/03/2024", "5/03/2024", "x/03/2024"}, march2024, "6/03/2024"},
		{"empty bucket", nil, march2024, "1/03/2024"},
		{"other buckets only", []string{"9/02/2024", "4/03/2023"}, march2024, "1/03/2024"},
		{"duplicates", []string{"3/03/2024", "3/03/2024"}, march2024, "4/03/2024"},
		{"wrong shape", []string{"7-03-2024", "7/03", "0/03/2024", "-2/03/2024"}, march2024, "1/03/2024"},
		{"unordered", []string{"10/03/2024", "2/03/2024", "9/03/2024"}, march2024, "11/03/2024"},
		{"december", []string{"1/12/2025"}, time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC), "2/12/2025"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := NextInvoiceNumber(tc.existing, tc.now); got != tc.want {
				t.Fatalf("got %q want %q", got, tc.want)
			}
		})
	}
}

func TestNextInvoiceNumberIsValid(t *testing.T) {
	now := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	n := NextInvoiceNumber([]string{"41/01/2024"}, now)
	if err := ValidateInvoiceNumber(n, now); err != nil {
		t.Fatalf("allocated number %q does not validate: %v", n, err)
	}
}

func TestValidateInvoiceNumber(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		in string
		ok bool
	}{
		{"3/01/2024", true},
		{"12/12/2000", true},
		{"0/01/2024", false},
		{"03/01/2024", false},
		{"3/13/2024", false},
		{"3/1/2024", false},
		{"3/00/2024", false},
		{"3/01/1999", false},
		{"3/01/2025", false},
		{"3/01/20x4", false},
		{"3/01", false},
		{"3/01/2024/1", false},
		{" 3/01/2024", false},
		{"", false},
	}
	for _, tc := range cases {
		err := ValidateInvoiceNumber(tc.in, now)
		if tc.ok && err != nil {
			t.Errorf("%q: unexpected error %v", tc.in, err)
		}
		if !tc.ok {
			var fe *FormatError
			if !errors.As(err, &fe) {
				t.Errorf("%q: expected FormatError, got %v", tc.in, err)
				continue
			}
			if !errors.Is(err, ErrValidation) {
				t.Errorf("%q: FormatError should match ErrValidation", tc.in)
			}
		}
	}
}
