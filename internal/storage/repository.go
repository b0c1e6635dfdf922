// Package storage implements the record store on SQLite.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"backoffice/internal/core"
	"backoffice/internal/ledger"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Run migrations
	if _, err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// timestampLayout is fixed width so stored timestamps sort as text.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

func nullDate(d *core.Date) sql.NullString {
	if d == nil || d.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func scanDate(s string) (core.Date, error) {
	if s == "" {
		return core.Date{}, nil
	}
	return core.ParseDate(s)
}

func scanNullDate(s sql.NullString) (*core.Date, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	d, err := core.ParseDate(s.String)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func scanTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(timestampLayout, s)
}

type rowScanner interface {
	Scan(dest ...any) error
}

// exec runs a write and maps "no rows affected" to a not-found error.
func (r *SQLiteRepository) exec(ctx context.Context, kind core.RecordType, id, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s %s: %w", kind, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s %s rows affected: %w", kind, id, err)
	}
	if n == 0 {
		return core.NotFound(kind, id)
	}
	return nil
}

func notFoundOr(kind core.RecordType, id string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return core.NotFound(kind, id)
	}
	return fmt.Errorf("get %s %s: %w", kind, id, err)
}

// Invoices

const invoiceColumns = `id, invoice_number, date, sent_date, client, amount_cents, tax_cents, vat_rate,
	status, pdf_url, due_date, representative_name, representative_email, representative_gender,
	created_at, updated_at`

func scanInvoice(s rowScanner) (core.Invoice, error) {
	var (
		inv                         core.Invoice
		date, due, created, updated string
		sent                        sql.NullString
		status, gender              string
		err                         error
	)
	if err = s.Scan(&inv.ID, &inv.InvoiceNumber, &date, &sent, &inv.Client, &inv.Amount.Cents, &inv.Tax.Cents,
		&inv.VATRate, &status, &inv.PDFURL, &due, &inv.RepresentativeName, &inv.RepresentativeEmail,
		&gender, &created, &updated); err != nil {
		return inv, err
	}
	inv.Status = core.InvoiceStatus(status)
	inv.RepresentativeGender = core.Gender(gender)
	if inv.Date, err = scanDate(date); err != nil {
		return inv, err
	}
	if inv.DueDate, err = scanDate(due); err != nil {
		return inv, err
	}
	if inv.SentDate, err = scanNullDate(sent); err != nil {
		return inv, err
	}
	if inv.CreatedAt, err = scanTime(created); err != nil {
		return inv, err
	}
	if inv.UpdatedAt, err = scanTime(updated); err != nil {
		return inv, err
	}
	return inv, nil
}

func (r *SQLiteRepository) ListInvoices(ctx context.Context) ([]core.Invoice, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+invoiceColumns+` FROM invoices ORDER BY date DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	defer rows.Close()

	var out []core.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("scan invoice: %w", err)
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) GetInvoice(ctx context.Context, id string) (core.Invoice, error) {
	inv, err := scanInvoice(r.db.QueryRowContext(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = ?`, id))
	if err != nil {
		return core.Invoice{}, notFoundOr(core.TypeInvoice, id, err)
	}
	return inv, nil
}

func (r *SQLiteRepository) CreateInvoice(ctx context.Context, inv core.Invoice) (core.Invoice, error) {
	if inv.ID == "" {
		inv.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx, `INSERT INTO invoices (`+invoiceColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.ID, inv.InvoiceNumber, inv.Date.String(), nullDate(inv.SentDate), inv.Client, inv.Amount.Cents,
		inv.Tax.Cents, inv.VATRate, string(inv.Status), inv.PDFURL, inv.DueDate.String(), inv.RepresentativeName,
		inv.RepresentativeEmail, string(inv.RepresentativeGender),
		inv.CreatedAt.UTC().Format(timestampLayout), inv.UpdatedAt.UTC().Format(timestampLayout))
	if err != nil {
		return core.Invoice{}, fmt.Errorf("create invoice: %w", err)
	}

	slog.InfoContext(ctx, "Invoice saved to SQLite",
		"id", inv.ID,
		"invoice_number", inv.InvoiceNumber,
		"amount_cents", inv.Amount.Cents)
	return inv, nil
}

func (r *SQLiteRepository) UpdateInvoice(ctx context.Context, inv core.Invoice) (core.Invoice, error) {
	err := r.exec(ctx, core.TypeInvoice, inv.ID, `UPDATE invoices SET invoice_number = ?, date = ?, sent_date = ?,
		client = ?, amount_cents = ?, tax_cents = ?, vat_rate = ?, status = ?, pdf_url = ?, due_date = ?,
		representative_name = ?, representative_email = ?, representative_gender = ?, created_at = ?, updated_at = ?
		WHERE id = ?`,
		inv.InvoiceNumber, inv.Date.String(), nullDate(inv.SentDate), inv.Client, inv.Amount.Cents, inv.Tax.Cents,
		inv.VATRate, string(inv.Status), inv.PDFURL, inv.DueDate.String(), inv.RepresentativeName,
		inv.RepresentativeEmail, string(inv.RepresentativeGender),
		inv.CreatedAt.UTC().Format(timestampLayout), inv.UpdatedAt.UTC().Format(timestampLayout), inv.ID)
	if err != nil {
		return core.Invoice{}, err
	}
	return inv, nil
}

func (r *SQLiteRepository) DeleteInvoice(ctx context.Context, id string) error {
	return r.exec(ctx, core.TypeInvoice, id, `DELETE FROM invoices WHERE id = ?`, id)
}

// Expenses

const expenseColumns = `id, date, description, amount_cents, category, pdf_url, created_at`

func scanExpense(s rowScanner) (core.Expense, error) {
	var (
		e             core.Expense
		date, created string
		err           error
	)
	if err = s.Scan(&e.ID, &date, &e.Description, &e.Amount.Cents, &e.Category, &e.PDFURL, &created); err != nil {
		return e, err
	}
	if e.Date, err = scanDate(date); err != nil {
		return e, err
	}
	if e.CreatedAt, err = scanTime(created); err != nil {
		return e, err
	}
	return e, nil
}

func (r *SQLiteRepository) ListExpenses(ctx context.Context) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+expenseColumns+` FROM expenses ORDER BY date DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var out []core.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) GetExpense(ctx context.Context, id string) (core.Expense, error) {
	e, err := scanExpense(r.db.QueryRowContext(ctx, `SELECT `+expenseColumns+` FROM expenses WHERE id = ?`, id))
	if err != nil {
		return core.Expense{}, notFoundOr(core.TypeExpense, id, err)
	}
	return e, nil
}

func (r *SQLiteRepository) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx, `INSERT INTO expenses (`+expenseColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Date.String(), e.Description, e.Amount.Cents, e.Category, e.PDFURL,
		e.CreatedAt.UTC().Format(timestampLayout))
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}

	slog.InfoContext(ctx, "Expense saved to SQLite",
		"id", e.ID,
		"description", e.Description,
		"amount_cents", e.Amount.Cents,
		"date", e.Date.String())
	return e, nil
}

func (r *SQLiteRepository) UpdateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	err := r.exec(ctx, core.TypeExpense, e.ID, `UPDATE expenses SET date = ?, description = ?, amount_cents = ?,
		category = ?, pdf_url = ?, created_at = ? WHERE id = ?`,
		e.Date.String(), e.Description, e.Amount.Cents, e.Category, e.PDFURL,
		e.CreatedAt.UTC().Format(timestampLayout), e.ID)
	if err != nil {
		return core.Expense{}, err
	}
	return e, nil
}

func (r *SQLiteRepository) DeleteExpense(ctx context.Context, id string) error {
	return r.exec(ctx, core.TypeExpense, id, `DELETE FROM expenses WHERE id = ?`, id)
}

// Offers

const offerColumns = `id, title, client, amount_cents, created_date, sent_date, expiration_date, status,
	google_docs_url, description`

func scanOffer(s rowScanner) (core.Offer, error) {
	var (
		o                   core.Offer
		created, expiration string
		sent                sql.NullString
		status              string
		err                 error
	)
	if err = s.Scan(&o.ID, &o.Title, &o.Client, &o.Amount.Cents, &created, &sent, &expiration, &status,
		&o.GoogleDocsURL, &o.Description); err != nil {
		return o, err
	}
	o.Status = core.OfferStatus(status)
	if o.CreatedDate, err = scanDate(created); err != nil {
		return o, err
	}
	if o.ExpirationDate, err = scanDate(expiration); err != nil {
		return o, err
	}
	if o.SentDate, err = scanNullDate(sent); err != nil {
		return o, err
	}
	return o, nil
}

func (r *SQLiteRepository) ListOffers(ctx context.Context) ([]core.Offer, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+offerColumns+` FROM offers ORDER BY created_date DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list offers: %w", err)
	}
	defer rows.Close()

	var out []core.Offer
	for rows.Next() {
		o, err := scanOffer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan offer: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) GetOffer(ctx context.Context, id string) (core.Offer, error) {
	o, err := scanOffer(r.db.QueryRowContext(ctx, `SELECT `+offerColumns+` FROM offers WHERE id = ?`, id))
	if err != nil {
		return core.Offer{}, notFoundOr(core.TypeOffer, id, err)
	}
	return o, nil
}

func (r *SQLiteRepository) CreateOffer(ctx context.Context, o core.Offer) (core.Offer, error) {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx, `INSERT INTO offers (`+offerColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.ID, o.Title, o.Client, o.Amount.Cents, o.CreatedDate.String(), nullDate(o.SentDate),
		o.ExpirationDate.String(), string(o.Status), o.GoogleDocsURL, o.Description)
	if err != nil {
		return core.Offer{}, fmt.Errorf("create offer: %w", err)
	}
	return o, nil
}

func (r *SQLiteRepository) UpdateOffer(ctx context.Context, o core.Offer) (core.Offer, error) {
	err := r.exec(ctx, core.TypeOffer, o.ID, `UPDATE offers SET title = ?, client = ?, amount_cents = ?,
		created_date = ?, sent_date = ?, expiration_date = ?, status = ?, google_docs_url = ?, description = ?
		WHERE id = ?`,
		o.Title, o.Client, o.Amount.Cents, o.CreatedDate.String(), nullDate(o.SentDate), o.ExpirationDate.String(),
		string(o.Status), o.GoogleDocsURL, o.Description, o.ID)
	if err != nil {
		return core.Offer{}, err
	}
	return o, nil
}

func (r *SQLiteRepository) DeleteOffer(ctx context.Context, id string) error {
	return r.exec(ctx, core.TypeOffer, id, `DELETE FROM offers WHERE id = ?`, id)
}

// Recurring payments

const recurringColumns = `id, name, amount_cents, frequency, category, next_payment, active, pdf_url, created_at`

func scanRecurring(s rowScanner) (core.RecurringPayment, error) {
	var (
		p                  core.RecurringPayment
		frequency          string
		nextPayment, ctime string
		err                error
	)
	if err = s.Scan(&p.ID, &p.Name, &p.Amount.Cents, &frequency, &p.Category, &nextPayment, &p.Active,
		&p.PDFURL, &ctime); err != nil {
		return p, err
	}
	p.Frequency = core.Frequency(frequency)
	if p.NextPayment, err = scanDate(nextPayment); err != nil {
		return p, err
	}
	if p.CreatedAt, err = scanTime(ctime); err != nil {
		return p, err
	}
	return p, nil
}

func (r *SQLiteRepository) ListRecurringPayments(ctx context.Context) ([]core.RecurringPayment, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+recurringColumns+` FROM recurring_payments ORDER BY next_payment ASC, id`)
	if err != nil {
		return nil, fmt.Errorf("list recurring payments: %w", err)
	}
	defer rows.Close()

	var out []core.RecurringPayment
	for rows.Next() {
		p, err := scanRecurring(rows)
		if err != nil {
			return nil, fmt.Errorf("scan recurring payment: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) GetRecurringPayment(ctx context.Context, id string) (core.RecurringPayment, error) {
	p, err := scanRecurring(r.db.QueryRowContext(ctx, `SELECT `+recurringColumns+` FROM recurring_payments WHERE id = ?`, id))
	if err != nil {
		return core.RecurringPayment{}, notFoundOr(core.TypeRecurringPayment, id, err)
	}
	return p, nil
}

func (r *SQLiteRepository) CreateRecurringPayment(ctx context.Context, p core.RecurringPayment) (core.RecurringPayment, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx, `INSERT INTO recurring_payments (`+recurringColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Amount.Cents, string(p.Frequency), p.Category, p.NextPayment.String(), p.Active, p.PDFURL,
		p.CreatedAt.UTC().Format(timestampLayout))
	if err != nil {
		return core.RecurringPayment{}, fmt.Errorf("create recurring payment: %w", err)
	}
	return p, nil
}

func (r *SQLiteRepository) UpdateRecurringPayment(ctx context.Context, p core.RecurringPayment) (core.RecurringPayment, error) {
	err := r.exec(ctx, core.TypeRecurringPayment, p.ID, `UPDATE recurring_payments SET name = ?, amount_cents = ?,
		frequency = ?, category = ?, next_payment = ?, active = ?, pdf_url = ?, created_at = ? WHERE id = ?`,
		p.Name, p.Amount.Cents, string(p.Frequency), p.Category, p.NextPayment.String(), p.Active, p.PDFURL,
		p.CreatedAt.UTC().Format(timestampLayout), p.ID)
	if err != nil {
		return core.RecurringPayment{}, err
	}
	return p, nil
}

func (r *SQLiteRepository) DeleteRecurringPayment(ctx context.Context, id string) error {
	return r.exec(ctx, core.TypeRecurringPayment, id, `DELETE FROM recurring_payments WHERE id = ?`, id)
}

// History

// AppendEntry stores a ledger entry. Snapshots are kept as JSON.
func (r *SQLiteRepository) AppendEntry(ctx context.Context, e ledger.Entry) error {
	var changes sql.NullString
	if e.Changes != nil {
		data, err := json.Marshal(e.Changes)
		if err != nil {
			return fmt.Errorf("marshal changes of entry %s: %w", e.ID, err)
		}
		changes = sql.NullString{String: string(data), Valid: true}
	}
	_, err := r.db.ExecContext(ctx, `INSERT INTO history
		(id, timestamp, user_name, user_email, action, type, item_id, description, changes, revertible)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Timestamp.UTC().Format(timestampLayout), e.User.Name, e.User.Email, string(e.Action), string(e.Type),
		e.ItemID, e.Description, changes, e.Revertible)
	if err != nil {
		return fmt.Errorf("append history entry: %w", err)
	}
	return nil
}

// ListEntries returns the history, newest first. Insertion order breaks timestamp ties.
func (r *SQLiteRepository) ListEntries(ctx context.Context) ([]ledger.Entry, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, timestamp, user_name, user_email, action, type, item_id,
		description, changes, revertible FROM history ORDER BY timestamp DESC, seq DESC`)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	var out []ledger.Entry
	for rows.Next() {
		var (
			e            ledger.Entry
			ts           string
			action, kind string
			changes      sql.NullString
		)
		if err := rows.Scan(&e.ID, &ts, &e.User.Name, &e.User.Email, &action, &kind, &e.ItemID,
			&e.Description, &changes, &e.Revertible); err != nil {
			return nil, fmt.Errorf("scan history entry: %w", err)
		}
		e.Action = ledger.Action(action)
		e.Type = core.RecordType(kind)
		if e.Timestamp, err = scanTime(ts); err != nil {
			return nil, fmt.Errorf("parse timestamp of entry %s: %w", e.ID, err)
		}
		if changes.Valid {
			var c ledger.Changes
			if err := json.Unmarshal([]byte(changes.String), &c); err != nil {
				return nil, fmt.Errorf("decode changes of entry %s: %w", e.ID, err)
			}
			e.Changes = &c
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
