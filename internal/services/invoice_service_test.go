package services

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"backoffice/internal/core"
	"backoffice/internal/ledger"
	"backoffice/internal/mail"
	"backoffice/internal/records/memory"
)

var testNow = time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

func clock() time.Time { return testNow }

type fakeMailer struct {
	sent []mail.Message
	err  error
}

func (m *fakeMailer) Send(_ context.Context, msg mail.Message) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

type fakeFiles struct {
	uploaded []string
	deleted  []string
	err      error
}

func (f *fakeFiles) Upload(_ context.Context, name, _ string, _ io.Reader) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.uploaded = append(f.uploaded, name)
	return "https://files.test/" + name, nil
}

func (f *fakeFiles) Delete(_ context.Context, url string) error {
	f.deleted = append(f.deleted, url)
	return nil
}

func newInvoiceFixture(t *testing.T, mailer mail.Mailer, opts ...Option) (*InvoiceService, *memory.Store, *ledger.Ledger) {
	t.Helper()
	store := memory.New()
	l := ledger.New(store, ledger.WithClock(clock))
	opts = append([]Option{WithClock(clock)}, opts...)
	return NewInvoiceService(store, l, mailer, opts...), store, l
}

func sampleInvoice() core.Invoice {
	return core.Invoice{
		Date:                 core.NewDate(2024, 3, 10),
		DueDate:              core.NewDate(2024, 4, 10),
		Client:               "ACME",
		Amount:               core.Money{Cents: 10000},
		VATRate:              23,
		RepresentativeName:   "Jan Kowalski",
		RepresentativeEmail:  "jan@acme.test",
		RepresentativeGender: core.Male,
	}
}

func seedInvoice(t *testing.T, store *memory.Store, number string, mutate func(*core.Invoice)) core.Invoice {
	t.Helper()
	inv := sampleInvoice()
	inv.InvoiceNumber = number
	inv.Status = core.InvoiceCreated
	if mutate != nil {
		mutate(&inv)
	}
	created, err := store.CreateInvoice(context.Background(), inv)
	if err != nil {
		t.Fatalf("seed invoice: %v", err)
	}
	return created
}

func TestInvoiceService_CreateAllocatesNumberAndTax(t *testing.T) {
	ctx := context.Background()
	svc, store, l := newInvoiceFixture(t, nil)
	seedInvoice(t, store, "2/03/2024", nil)
	seedInvoice(t, store, "5/03/2024", nil)
	seedInvoice(t, store, "9/02/2024", nil)

	created, err := svc.Create(ctx, sampleInvoice(), nil, ledger.Actor{Name: "Ola", Email: "ola@backoffice.test"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if created.InvoiceNumber != "6/03/2024" {
		t.Errorf("InvoiceNumber = %q, want 6/03/2024", created.InvoiceNumber)
	}
	if created.Tax.Cents != 2300 {
		t.Errorf("Tax = %d, want 2300", created.Tax.Cents)
	}
	if created.Status != core.InvoiceCreated {
		t.Errorf("Status = %q, want Created", created.Status)
	}

	entries := l.List(ledger.FilterAll)
	if len(entries) != 1 {
		t.Fatalf("ledger has %d entries, want 1", len(entries))
	}
	e := entries[0]
	if e.Action != ledger.ActionAdded || e.ItemID != created.ID || e.User.Name != "Ola" {
		t.Errorf("unexpected entry %+v", e)
	}
	if e.Changes == nil || e.Changes.Before != nil || e.Changes.After == nil {
		t.Errorf("Added entry should carry only an after snapshot: %+v", e.Changes)
	}
}

func TestInvoiceService_CreateRejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*core.Invoice)
	}{
		{"zero sequence", func(i *core.Invoice) { i.InvoiceNumber = "0/01/2024" }},
		{"month out of range", func(i *core.Invoice) { i.InvoiceNumber = "3/13/2024" }},
		{"year before 2000", func(i *core.Invoice) { i.InvoiceNumber = "3/01/1999" }},
		{"number already used", func(i *core.Invoice) { i.InvoiceNumber = "1/03/2024" }},
		{"missing client", func(i *core.Invoice) { i.Client = " " }},
		{"bad email", func(i *core.Invoice) { i.RepresentativeEmail = "not-an-email" }},
		{"zero amount", func(i *core.Invoice) { i.Amount = core.Money{} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store, l := newInvoiceFixture(t, nil)
			seedInvoice(t, store, "1/03/2024", nil)

			inv := sampleInvoice()
			tt.mutate(&inv)
			_, err := svc.Create(context.Background(), inv, nil, ledger.Actor{})
			if !errors.Is(err, core.ErrValidation) {
				t.Fatalf("Create() error = %v, want validation error", err)
			}
			all, _ := store.ListInvoices(context.Background())
			if len(all) != 1 {
				t.Errorf("store has %d invoices, want 1 (no write)", len(all))
			}
			if l.Len() != 0 {
				t.Errorf("ledger has %d entries, want 0", l.Len())
			}
		})
	}
}

func TestInvoiceService_UpdateTax(t *testing.T) {
	ctx := context.Background()
	svc, _, l := newInvoiceFixture(t, nil)
	created, err := svc.Create(ctx, sampleInvoice(), nil, ledger.Actor{})
	if err != nil {
		t.Fatal(err)
	}

	edit := created
	edit.Client = "ACME Sp. z o.o."
	edit.Tax = core.Money{Cents: 1}
	updated, err := svc.Update(ctx, created.ID, edit, nil, ledger.Actor{})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.Tax.Cents != 2300 {
		t.Errorf("tax changed without amount or rate change: %d", updated.Tax.Cents)
	}

	edit = updated
	edit.VATRate = 8
	updated, err = svc.Update(ctx, created.ID, edit, nil, ledger.Actor{})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.Tax.Cents != 800 {
		t.Errorf("Tax = %d, want 800 after rate change", updated.Tax.Cents)
	}

	entries := l.List(string(core.TypeInvoice))
	if len(entries) != 3 || entries[0].Action != ledger.ActionEdited {
		t.Fatalf("unexpected ledger %+v", entries)
	}
	before := entries[0].Changes.Before.(core.Invoice)
	if before.VATRate != 23 {
		t.Errorf("before snapshot VATRate = %d, want 23", before.VATRate)
	}
}

func TestInvoiceService_UpdateMissing(t *testing.T) {
	svc, _, l := newInvoiceFixture(t, nil)
	_, err := svc.Update(context.Background(), "missing", sampleInvoice(), nil, ledger.Actor{})
	if !errors.Is(err, core.ErrRecordNotFound) {
		t.Fatalf("Update() error = %v, want not found", err)
	}
	if l.Len() != 0 {
		t.Error("ledger should be unchanged")
	}
}

func TestInvoiceService_ChangeStatus(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newInvoiceFixture(t, nil)
	created, err := svc.Create(ctx, sampleInvoice(), nil, ledger.Actor{})
	if err != nil {
		t.Fatal(err)
	}

	sent, err := svc.ChangeStatus(ctx, created.ID, core.InvoiceSent, ledger.Actor{})
	if err != nil {
		t.Fatalf("ChangeStatus(Sent) error = %v", err)
	}
	if sent.SentDate == nil || sent.SentDate.String() != "2024-03-15" {
		t.Errorf("SentDate = %v, want 2024-03-15", sent.SentDate)
	}

	if _, err := svc.ChangeStatus(ctx, created.ID, core.InvoicePaid, ledger.Actor{}); err != nil {
		t.Fatalf("ChangeStatus(Paid) error = %v", err)
	}
	if _, err := svc.ChangeStatus(ctx, created.ID, core.InvoiceSent, ledger.Actor{}); !errors.Is(err, core.ErrValidation) {
		t.Errorf("Paid -> Sent error = %v, want validation error", err)
	}
	if _, err := svc.ChangeStatus(ctx, created.ID, "Lost", ledger.Actor{}); !errors.Is(err, core.ErrValidation) {
		t.Errorf("unknown status error = %v, want validation error", err)
	}
}

func TestInvoiceService_SendReminder(t *testing.T) {
	ctx := context.Background()
	overdue := func(i *core.Invoice) {
		i.Status = core.InvoiceOverdue
		i.DueDate = core.NewDate(2024, 3, 1)
	}

	t.Run("not overdue", func(t *testing.T) {
		m := &fakeMailer{}
		svc, store, _ := newInvoiceFixture(t, m)
		inv := seedInvoice(t, store, "1/03/2024", nil)
		err := svc.SendReminder(ctx, inv.ID, ledger.Actor{})
		if !errors.Is(err, core.ErrValidation) {
			t.Fatalf("SendReminder() error = %v, want validation error", err)
		}
		if len(m.sent) != 0 {
			t.Error("no mail should be sent")
		}
	})

	t.Run("mail failure records nothing", func(t *testing.T) {
		m := &fakeMailer{err: errors.New("smtp down")}
		svc, store, l := newInvoiceFixture(t, m)
		inv := seedInvoice(t, store, "1/03/2024", overdue)
		err := svc.SendReminder(ctx, inv.ID, ledger.Actor{})
		var mailErr *core.MailError
		if !errors.As(err, &mailErr) || mailErr.To != "jan@acme.test" {
			t.Fatalf("SendReminder() error = %v, want MailError", err)
		}
		if l.Len() != 0 {
			t.Errorf("ledger has %d entries, want 0", l.Len())
		}
	})

	t.Run("sent and not revertible", func(t *testing.T) {
		m := &fakeMailer{}
		svc, store, l := newInvoiceFixture(t, m)
		inv := seedInvoice(t, store, "1/03/2024", overdue)
		if err := svc.SendReminder(ctx, inv.ID, ledger.Actor{}); err != nil {
			t.Fatalf("SendReminder() error = %v", err)
		}
		if len(m.sent) != 1 || !strings.Contains(m.sent[0].HTML, "Dear Mr.") {
			t.Fatalf("unexpected mails %+v", m.sent)
		}
		entries := l.List(ledger.FilterAll)
		if len(entries) != 1 || entries[0].Action != ledger.ActionReminderSent || entries[0].Revertible {
			t.Fatalf("unexpected ledger %+v", entries)
		}
		if _, err := l.Revert(ctx, entries[0].ID, ledger.Actor{}); !errors.Is(err, core.ErrNotRevertible) {
			t.Errorf("Revert() error = %v, want ErrNotRevertible", err)
		}
		if l.Len() != 1 {
			t.Errorf("revert appended an entry")
		}
	})
}

func TestInvoiceService_SweepOverdue(t *testing.T) {
	ctx := context.Background()
	svc, store, l := newInvoiceFixture(t, nil)
	past := seedInvoice(t, store, "1/03/2024", func(i *core.Invoice) { i.DueDate = core.NewDate(2024, 3, 14) })
	seedInvoice(t, store, "2/03/2024", func(i *core.Invoice) { i.DueDate = core.NewDate(2024, 3, 15) })
	seedInvoice(t, store, "3/03/2024", func(i *core.Invoice) {
		i.DueDate = core.NewDate(2024, 1, 1)
		i.Status = core.InvoicePaid
	})
	sent := seedInvoice(t, store, "4/03/2024", func(i *core.Invoice) {
		i.DueDate = core.NewDate(2024, 2, 1)
		i.Status = core.InvoiceSent
	})

	n, err := svc.SweepOverdue(ctx)
	if err != nil {
		t.Fatalf("SweepOverdue() error = %v", err)
	}
	if n != 2 {
		t.Errorf("swept %d invoices, want 2", n)
	}
	for _, id := range []string{past.ID, sent.ID} {
		inv, _ := store.GetInvoice(ctx, id)
		if inv.Status != core.InvoiceOverdue {
			t.Errorf("invoice %s status = %s, want Overdue", inv.InvoiceNumber, inv.Status)
		}
	}
	for _, e := range l.List(ledger.FilterAll) {
		if e.User != ledger.System || e.Action != ledger.ActionEdited {
			t.Errorf("unexpected sweep entry %+v", e)
		}
	}

	// A second run finds nothing to do.
	if n, _ := svc.SweepOverdue(ctx); n != 0 {
		t.Errorf("second sweep changed %d invoices", n)
	}
}

func TestInvoiceService_RevertRoundTrip(t *testing.T) {
	ctx := context.Background()
	svc, store, l := newInvoiceFixture(t, nil)
	created, err := svc.Create(ctx, sampleInvoice(), nil, ledger.Actor{})
	if err != nil {
		t.Fatal(err)
	}
	edit := created
	edit.Client = "Globex"
	edited, err := svc.Update(ctx, created.ID, edit, nil, ledger.Actor{})
	if err != nil {
		t.Fatal(err)
	}
	editEntry := l.List(ledger.FilterAll)[0]

	reverted, err := l.Revert(ctx, editEntry.ID, ledger.Actor{Name: "Ola"})
	if err != nil {
		t.Fatalf("Revert() error = %v", err)
	}
	got, _ := store.GetInvoice(ctx, created.ID)
	if got.Client != "ACME" {
		t.Errorf("after revert client = %q, want ACME", got.Client)
	}

	if _, err := l.Revert(ctx, reverted.ID, ledger.Actor{}); err != nil {
		t.Fatalf("Revert(revert) error = %v", err)
	}
	got, _ = store.GetInvoice(ctx, created.ID)
	if got.Client != edited.Client || got.UpdatedAt != edited.UpdatedAt {
		t.Errorf("revert(revert(edit)) = %+v, want %+v", got, edited)
	}
}

func TestInvoiceService_RevertAfterDelete(t *testing.T) {
	ctx := context.Background()
	svc, _, l := newInvoiceFixture(t, nil)
	created, _ := svc.Create(ctx, sampleInvoice(), nil, ledger.Actor{})
	edit := created
	edit.Client = "Globex"
	if _, err := svc.Update(ctx, created.ID, edit, nil, ledger.Actor{}); err != nil {
		t.Fatal(err)
	}
	editEntry := l.List(ledger.FilterAll)[0]
	if err := svc.Delete(ctx, created.ID, ledger.Actor{}); err != nil {
		t.Fatal(err)
	}
	deleteEntry := l.List(ledger.FilterAll)[0]

	for _, id := range []string{editEntry.ID, deleteEntry.ID} {
		if _, err := l.Revert(ctx, id, ledger.Actor{}); !errors.Is(err, core.ErrRecordNotFound) {
			t.Errorf("Revert(%s) error = %v, want not found", id, err)
		}
	}
	if l.Len() != 3 {
		t.Errorf("ledger has %d entries, want 3", l.Len())
	}
}

func TestInvoiceService_Attachments(t *testing.T) {
	ctx := context.Background()
	pdf := func() *Attachment {
		return &Attachment{Name: "inv.pdf", ContentType: "application/pdf", Body: strings.NewReader("%PDF")}
	}

	t.Run("upload failure keeps the invoice", func(t *testing.T) {
		fs := &fakeFiles{err: errors.New("quota")}
		svc, _, _ := newInvoiceFixture(t, nil, WithFiles(fs))
		created, err := svc.Create(ctx, sampleInvoice(), pdf(), ledger.Actor{})
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if created.PDFURL != "" {
			t.Errorf("PDFURL = %q, want empty", created.PDFURL)
		}
	})

	t.Run("replace and delete", func(t *testing.T) {
		fs := &fakeFiles{}
		svc, _, _ := newInvoiceFixture(t, nil, WithFiles(fs))
		created, err := svc.Create(ctx, sampleInvoice(), pdf(), ledger.Actor{})
		if err != nil {
			t.Fatal(err)
		}
		if created.PDFURL != "https://files.test/inv.pdf" {
			t.Fatalf("PDFURL = %q", created.PDFURL)
		}
		edit := created
		edit.PDFURL = ""
		replaced := pdf()
		replaced.Name = "inv-v2.pdf"
		updated, err := svc.Update(ctx, created.ID, edit, replaced, ledger.Actor{})
		if err != nil {
			t.Fatal(err)
		}
		if updated.PDFURL != "https://files.test/inv-v2.pdf" {
			t.Errorf("PDFURL = %q after replace", updated.PDFURL)
		}
		if err := svc.Delete(ctx, created.ID, ledger.Actor{}); err != nil {
			t.Fatal(err)
		}
		want := []string{"https://files.test/inv.pdf", "https://files.test/inv-v2.pdf"}
		if strings.Join(fs.deleted, ",") != strings.Join(want, ",") {
			t.Errorf("deleted = %v, want %v", fs.deleted, want)
		}
	})

	t.Run("revert after replace keeps the current file", func(t *testing.T) {
		fs := &fakeFiles{}
		svc, _, l := newInvoiceFixture(t, nil, WithFiles(fs))
		created, err := svc.Create(ctx, sampleInvoice(), pdf(), ledger.Actor{})
		if err != nil {
			t.Fatal(err)
		}
		edit := created
		edit.PDFURL = ""
		edit.Amount = core.Money{Cents: 20000}
		replaced := pdf()
		replaced.Name = "inv-v2.pdf"
		if _, err := svc.Update(ctx, created.ID, edit, replaced, ledger.Actor{}); err != nil {
			t.Fatal(err)
		}
		if _, err := l.Revert(ctx, l.List(ledger.FilterAll)[0].ID, ledger.Actor{}); err != nil {
			t.Fatalf("Revert() error = %v", err)
		}
		got, _ := svc.Get(ctx, created.ID)
		if got.Amount.Cents != 10000 {
			t.Errorf("amount after revert = %d, want 10000", got.Amount.Cents)
		}
		if got.PDFURL != "https://files.test/inv-v2.pdf" {
			t.Errorf("PDFURL after revert = %q, want the replacement", got.PDFURL)
		}
		if len(fs.deleted) != 1 || fs.deleted[0] != "https://files.test/inv.pdf" {
			t.Errorf("deleted = %v", fs.deleted)
		}
	})
}

func TestInvoiceService_RevertRejectsTakenNumber(t *testing.T) {
	ctx := context.Background()
	svc, _, l := newInvoiceFixture(t, nil)
	first, err := svc.Create(ctx, sampleInvoice(), nil, ledger.Actor{})
	if err != nil {
		t.Fatal(err)
	}
	edit := first
	edit.InvoiceNumber = "5/03/2024"
	if _, err := svc.Update(ctx, first.ID, edit, nil, ledger.Actor{}); err != nil {
		t.Fatal(err)
	}
	renumber := l.List(ledger.FilterAll)[0]

	other := sampleInvoice()
	other.InvoiceNumber = first.InvoiceNumber
	if _, err := svc.Create(ctx, other, nil, ledger.Actor{}); err != nil {
		t.Fatalf("Create() with the freed number error = %v", err)
	}
	before := l.Len()

	_, err = l.Revert(ctx, renumber.ID, ledger.Actor{})
	var ve *core.ValidationError
	if !errors.As(err, &ve) || ve.Field != "invoiceNumber" {
		t.Fatalf("Revert() error = %v, want invoiceNumber validation error", err)
	}
	if l.Len() != before {
		t.Errorf("ledger grew to %d entries, want %d", l.Len(), before)
	}
	got, _ := svc.Get(ctx, first.ID)
	if got.InvoiceNumber != "5/03/2024" {
		t.Errorf("invoice number = %q, want unchanged 5/03/2024", got.InvoiceNumber)
	}
}

func TestInvoiceService_List(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newInvoiceFixture(t, nil)
	seedInvoice(t, store, "1/03/2024", nil)
	seedInvoice(t, store, "2/03/2024", func(i *core.Invoice) {
		i.Client = "Globex"
		i.Status = core.InvoicePaid
	})

	tests := []struct {
		filter InvoiceFilter
		want   int
	}{
		{InvoiceFilter{}, 2},
		{InvoiceFilter{Status: "all"}, 2},
		{InvoiceFilter{Status: "Paid"}, 1},
		{InvoiceFilter{Search: "glob"}, 1},
		{InvoiceFilter{Search: "2/03"}, 1},
		{InvoiceFilter{Status: "Created", Search: "glob"}, 0},
	}
	for _, tt := range tests {
		got, err := svc.List(ctx, tt.filter)
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != tt.want {
			t.Errorf("List(%+v) returned %d, want %d", tt.filter, len(got), tt.want)
		}
	}
}
