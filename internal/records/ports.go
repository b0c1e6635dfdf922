// Package records declares the record store consumed by the services.
package records

import (
	"context"

	"backoffice/internal/core"
	"backoffice/internal/ledger"
)

// Ports for outbound adapters. Get, Update and Delete return an error
// matching core.ErrRecordNotFound when the id is unknown. Create assigns the id.
type (
	// InvoiceStore lists invoices by date, newest first.
	InvoiceStore interface {
		ListInvoices(ctx context.Context) ([]core.Invoice, error)
		GetInvoice(ctx context.Context, id string) (core.Invoice, error)
		CreateInvoice(ctx context.Context, inv core.Invoice) (core.Invoice, error)
		UpdateInvoice(ctx context.Context, inv core.Invoice) (core.Invoice, error)
		DeleteInvoice(ctx context.Context, id string) error
	}

	// ExpenseStore lists expenses by date, newest first.
	ExpenseStore interface {
		ListExpenses(ctx context.Context) ([]core.Expense, error)
		GetExpense(ctx context.Context, id string) (core.Expense, error)
		CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error)
		UpdateExpense(ctx context.Context, e core.Expense) (core.Expense, error)
		DeleteExpense(ctx context.Context, id string) error
	}

	// OfferStore lists offers by created date, newest first.
	OfferStore interface {
		ListOffers(ctx context.Context) ([]core.Offer, error)
		GetOffer(ctx context.Context, id string) (core.Offer, error)
		CreateOffer(ctx context.Context, o core.Offer) (core.Offer, error)
		UpdateOffer(ctx context.Context, o core.Offer) (core.Offer, error)
		DeleteOffer(ctx context.Context, id string) error
	}

	// RecurringStore lists recurring payments by next payment date, earliest first.
	RecurringStore interface {
		ListRecurringPayments(ctx context.Context) ([]core.RecurringPayment, error)
		GetRecurringPayment(ctx context.Context, id string) (core.RecurringPayment, error)
		CreateRecurringPayment(ctx context.Context, p core.RecurringPayment) (core.RecurringPayment, error)
		UpdateRecurringPayment(ctx context.Context, p core.RecurringPayment) (core.RecurringPayment, error)
		DeleteRecurringPayment(ctx context.Context, id string) error
	}

	// HistoryStore persists ledger entries, listed newest first.
	HistoryStore interface {
		ledger.Store
	}

	// Store is the full record store of one user.
	Store interface {
		InvoiceStore
		ExpenseStore
		OfferStore
		RecurringStore
		HistoryStore
	}
)
