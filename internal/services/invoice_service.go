package services

import (
	"context"
	"fmt"
	"log/slog"

	"backoffice/internal/core"
	"backoffice/internal/ledger"
	"backoffice/internal/mail"
	"backoffice/internal/records"
)

// InvoiceFilter narrows InvoiceService.List. Empty fields match everything.
type InvoiceFilter struct {
	Status string // an InvoiceStatus or "all"
	Search string // matched against number, client and representative
}

// InvoiceService manages invoices, their numbering and overdue reminders.
type InvoiceService struct {
	base
	store  records.InvoiceStore
	mailer mail.Mailer
}

// NewInvoiceService creates the service and registers it as the ledger
// restorer for invoices.
func NewInvoiceService(store records.InvoiceStore, l *ledger.Ledger, mailer mail.Mailer, opts ...Option) *InvoiceService {
	s := &InvoiceService{
		base:   newBase(l, opts),
		store:  store,
		mailer: mailer,
	}
	s.register(core.TypeInvoice, s)
	return s
}

func (s *InvoiceService) List(ctx context.Context, f InvoiceFilter) ([]core.Invoice, error) {
	all, err := s.store.ListInvoices(ctx)
	if err != nil {
		return nil, core.WrapStoreError("list invoices", err)
	}
	out := make([]core.Invoice, 0, len(all))
	for _, inv := range all {
		if f.Status != "" && f.Status != ledger.FilterAll && string(inv.Status) != f.Status {
			continue
		}
		if !containsFold(f.Search, inv.InvoiceNumber, inv.Client, inv.RepresentativeName) {
			continue
		}
		out = append(out, inv)
	}
	return out, nil
}

func (s *InvoiceService) Get(ctx context.Context, id string) (core.Invoice, error) {
	inv, err := s.store.GetInvoice(ctx, id)
	if err != nil {
		return core.Invoice{}, core.WrapStoreError("get invoice", err)
	}
	return inv, nil
}

// NextNumber proposes the next free number in the current month's bucket.
func (s *InvoiceService) NextNumber(ctx context.Context) (string, error) {
	numbers, err := s.numbers(ctx, "")
	if err != nil {
		return "", err
	}
	return core.NextInvoiceNumber(numbers, s.now()), nil
}

// numbers returns the invoice numbers in use, skipping the invoice excludeID.
func (s *InvoiceService) numbers(ctx context.Context, excludeID string) ([]string, error) {
	all, err := s.store.ListInvoices(ctx)
	if err != nil {
		return nil, core.WrapStoreError("list invoices", err)
	}
	numbers := make([]string, 0, len(all))
	for _, inv := range all {
		if inv.ID != excludeID {
			numbers = append(numbers, inv.InvoiceNumber)
		}
	}
	return numbers, nil
}

// checkNumber validates a user-supplied number and rejects numbers already in use.
func (s *InvoiceService) checkNumber(ctx context.Context, number, excludeID string) error {
	if err := core.ValidateInvoiceNumber(number, s.now()); err != nil {
		return err
	}
	return s.checkUnique(ctx, number, excludeID)
}

// checkUnique rejects a number held by any invoice other than excludeID.
func (s *InvoiceService) checkUnique(ctx context.Context, number, excludeID string) error {
	numbers, err := s.numbers(ctx, excludeID)
	if err != nil {
		return err
	}
	for _, n := range numbers {
		if n == number {
			return core.NewValidationError("invoiceNumber", number, "invoice number already in use")
		}
	}
	return nil
}

// Create stores a new invoice. An empty number is allocated automatically and
// the tax is derived from amount and VAT rate.
func (s *InvoiceService) Create(ctx context.Context, inv core.Invoice, pdf *Attachment, actor ledger.Actor) (core.Invoice, error) {
	if inv.InvoiceNumber == "" {
		next, err := s.NextNumber(ctx)
		if err != nil {
			return core.Invoice{}, err
		}
		inv.InvoiceNumber = next
	} else if err := s.checkNumber(ctx, inv.InvoiceNumber, ""); err != nil {
		return core.Invoice{}, err
	}
	if inv.Status == "" {
		inv.Status = core.InvoiceCreated
	}
	if err := inv.Validate(); err != nil {
		return core.Invoice{}, err
	}
	if inv.Status == core.InvoiceSent && inv.SentDate == nil {
		inv.SentDate = s.today().Ptr()
	}

	inv.ID = ""
	inv.Tax = inv.Amount.Percent(inv.VATRate)
	inv.CreatedAt = s.now().UTC()
	inv.UpdatedAt = inv.CreatedAt
	if url := s.upload(ctx, core.TypeInvoice, pdf); url != "" {
		inv.PDFURL = url
	}

	created, err := s.store.CreateInvoice(ctx, inv)
	if err != nil {
		return core.Invoice{}, core.WrapStoreError("create invoice", err)
	}

	slog.InfoContext(ctx, "Invoice created",
		"id", created.ID,
		"invoice_number", created.InvoiceNumber,
		"amount_cents", created.Amount.Cents,
		"tax_cents", created.Tax.Cents)

	s.record(ctx, ledger.RecordInput{
		Action:      ledger.ActionAdded,
		Type:        core.TypeInvoice,
		ItemID:      created.ID,
		Description: invoiceLabel(created),
		Changes:     ledger.NewChanges(core.TypeInvoice, nil, created),
		Actor:       actor,
	})
	return created, nil
}

// Update replaces the editable fields of an invoice. Tax is recomputed when
// the amount or VAT rate changes; a status change must be a valid transition.
func (s *InvoiceService) Update(ctx context.Context, id string, in core.Invoice, pdf *Attachment, actor ledger.Actor) (core.Invoice, error) {
	before, err := s.Get(ctx, id)
	if err != nil {
		return core.Invoice{}, err
	}

	after := in
	after.ID = before.ID
	after.CreatedAt = before.CreatedAt
	if after.InvoiceNumber == "" {
		after.InvoiceNumber = before.InvoiceNumber
	} else if after.InvoiceNumber != before.InvoiceNumber {
		if err := s.checkNumber(ctx, after.InvoiceNumber, id); err != nil {
			return core.Invoice{}, err
		}
	}
	if after.Status == "" {
		after.Status = before.Status
	} else if after.Status != before.Status {
		if err := before.CanTransition(after.Status); err != nil {
			return core.Invoice{}, err
		}
	}
	if after.SentDate == nil {
		after.SentDate = before.SentDate
	}
	if after.Status == core.InvoiceSent && after.SentDate == nil {
		after.SentDate = s.today().Ptr()
	}
	if err := after.Validate(); err != nil {
		return core.Invoice{}, err
	}

	if after.Amount != before.Amount || after.VATRate != before.VATRate {
		after.Tax = after.Amount.Percent(after.VATRate)
	} else {
		after.Tax = before.Tax
	}
	if after.PDFURL == "" {
		after.PDFURL = before.PDFURL
	}
	if url := s.upload(ctx, core.TypeInvoice, pdf); url != "" {
		after.PDFURL = url
	}
	after.UpdatedAt = s.now().UTC()

	updated, err := s.store.UpdateInvoice(ctx, after)
	if err != nil {
		return core.Invoice{}, core.WrapStoreError("update invoice", err)
	}
	if updated.PDFURL != before.PDFURL {
		s.discard(ctx, before.PDFURL)
	}

	slog.InfoContext(ctx, "Invoice updated",
		"id", updated.ID,
		"invoice_number", updated.InvoiceNumber,
		"amount_cents", updated.Amount.Cents)

	s.record(ctx, ledger.RecordInput{
		Action:      ledger.ActionEdited,
		Type:        core.TypeInvoice,
		ItemID:      updated.ID,
		Description: invoiceLabel(updated),
		Changes:     ledger.NewChanges(core.TypeInvoice, before, updated),
		Actor:       actor,
	})
	return updated, nil
}

// ChangeStatus moves an invoice to status. Moving to Sent stamps the sent date.
func (s *InvoiceService) ChangeStatus(ctx context.Context, id string, status core.InvoiceStatus, actor ledger.Actor) (core.Invoice, error) {
	before, err := s.Get(ctx, id)
	if err != nil {
		return core.Invoice{}, err
	}
	if err := before.CanTransition(status); err != nil {
		return core.Invoice{}, err
	}

	after := before
	after.Status = status
	if status == core.InvoiceSent {
		after.SentDate = s.today().Ptr()
	}
	after.UpdatedAt = s.now().UTC()

	updated, err := s.store.UpdateInvoice(ctx, after)
	if err != nil {
		return core.Invoice{}, core.WrapStoreError("update invoice status", err)
	}

	slog.InfoContext(ctx, "Invoice status changed",
		"id", updated.ID,
		"invoice_number", updated.InvoiceNumber,
		"from", before.Status,
		"to", updated.Status)

	s.record(ctx, ledger.RecordInput{
		Action:      ledger.ActionEdited,
		Type:        core.TypeInvoice,
		ItemID:      updated.ID,
		Description: fmt.Sprintf("%s status changed from %s to %s", invoiceLabel(updated), before.Status, updated.Status),
		Changes:     ledger.NewChanges(core.TypeInvoice, before, updated),
		Actor:       actor,
	})
	return updated, nil
}

func (s *InvoiceService) Delete(ctx context.Context, id string, actor ledger.Actor) error {
	before, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteInvoice(ctx, id); err != nil {
		return core.WrapStoreError("delete invoice", err)
	}
	s.discard(ctx, before.PDFURL)

	slog.InfoContext(ctx, "Invoice deleted", "id", id, "invoice_number", before.InvoiceNumber)

	s.record(ctx, ledger.RecordInput{
		Action:      ledger.ActionDeleted,
		Type:        core.TypeInvoice,
		ItemID:      id,
		Description: invoiceLabel(before),
		Changes:     ledger.NewChanges(core.TypeInvoice, before, nil),
		Actor:       actor,
	})
	return nil
}

// SendReminder mails the payment reminder for an overdue invoice. A delivery
// failure is returned as *core.MailError and nothing is recorded.
func (s *InvoiceService) SendReminder(ctx context.Context, id string, actor ledger.Actor) error {
	inv, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if inv.Status != core.InvoiceOverdue && !inv.IsUnpaidPastDue(s.today()) {
		return core.NewValidationError("status", string(inv.Status), "reminders can only be sent for overdue invoices")
	}
	if s.mailer == nil {
		return &core.MailError{To: inv.RepresentativeEmail, Err: fmt.Errorf("no mailer configured")}
	}

	msg, err := mail.ReminderMessage(inv)
	if err != nil {
		return &core.MailError{To: inv.RepresentativeEmail, Err: err}
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to send invoice reminder",
			"id", inv.ID,
			"invoice_number", inv.InvoiceNumber,
			"error", err)
		return &core.MailError{To: inv.RepresentativeEmail, Err: err}
	}

	slog.InfoContext(ctx, "Invoice reminder sent",
		"id", inv.ID,
		"invoice_number", inv.InvoiceNumber,
		"to", inv.RepresentativeEmail)

	s.record(ctx, ledger.RecordInput{
		Action:      ledger.ActionReminderSent,
		Type:        core.TypeInvoice,
		ItemID:      inv.ID,
		Description: fmt.Sprintf("Reminder for %s sent to %s", invoiceLabel(inv), inv.RepresentativeEmail),
		Actor:       actor,
	})
	return nil
}

// SweepOverdue marks every unpaid invoice past its due date as Overdue and
// returns how many were changed. Per-invoice failures are logged and skipped.
func (s *InvoiceService) SweepOverdue(ctx context.Context) (int, error) {
	all, err := s.store.ListInvoices(ctx)
	if err != nil {
		return 0, core.WrapStoreError("list invoices", err)
	}

	today := s.today()
	swept := 0
	for _, before := range all {
		if !before.IsUnpaidPastDue(today) {
			continue
		}
		after := before
		after.Status = core.InvoiceOverdue
		after.UpdatedAt = s.now().UTC()

		updated, err := s.store.UpdateInvoice(ctx, after)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to mark invoice overdue",
				"id", before.ID,
				"invoice_number", before.InvoiceNumber,
				"error", err)
			continue
		}

		s.record(ctx, ledger.RecordInput{
			Action:      ledger.ActionEdited,
			Type:        core.TypeInvoice,
			ItemID:      updated.ID,
			Description: invoiceLabel(updated) + " marked overdue",
			Changes:     ledger.NewChanges(core.TypeInvoice, before, updated),
			Actor:       ledger.System,
		})
		swept++
	}

	if swept > 0 {
		slog.InfoContext(ctx, "Overdue sweep completed", "swept", swept, "date", today.String())
	}
	return swept, nil
}

// Restore re-applies an invoice snapshot; it backs ledger reverts. The
// current attachment is kept since replaced files are deleted on update, and
// a number taken by another invoice in the meantime is rejected.
func (s *InvoiceService) Restore(ctx context.Context, id string, snapshot core.Record) error {
	inv, err := snapshotAs[core.Invoice](snapshot)
	if err != nil {
		return err
	}
	current, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if inv.InvoiceNumber != current.InvoiceNumber {
		if err := s.checkUnique(ctx, inv.InvoiceNumber, id); err != nil {
			return err
		}
	}
	inv.ID = id
	inv.PDFURL = current.PDFURL
	if _, err := s.store.UpdateInvoice(ctx, inv); err != nil {
		return core.WrapStoreError("restore invoice", err)
	}
	return nil
}

func invoiceLabel(inv core.Invoice) string {
	return fmt.Sprintf("Invoice %s (%s)", inv.InvoiceNumber, inv.Client)
}
