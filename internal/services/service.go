// Package services implements the back-office use cases on top of the record
// store and the history ledger.
package services

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"time"

	"backoffice/internal/core"
	"backoffice/internal/files"
	"backoffice/internal/ledger"
)

// Attachment is an optional PDF uploaded alongside a record.
type Attachment struct {
	Name        string
	ContentType string
	Body        io.Reader
}

// Option configures the collaborators shared by every service.
type Option func(*base)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(b *base) { b.now = now }
}

// WithFiles sets the attachment store. Without it uploads are skipped.
func WithFiles(fs files.Store) Option {
	return func(b *base) { b.files = fs }
}

type base struct {
	ledger *ledger.Ledger
	files  files.Store
	now    func() time.Time
}

func newBase(l *ledger.Ledger, opts []Option) base {
	b := base{ledger: l, files: files.Nop{}, now: time.Now}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

func (b base) register(kind core.RecordType, r ledger.Restorer) {
	if b.ledger != nil {
		b.ledger.RegisterRestorer(kind, r)
	}
}

func (b base) today() core.Date {
	return core.DateOf(b.now())
}

// record appends a ledger entry. Persistence failures are logged only; the
// mutation they describe has already been applied.
func (b base) record(ctx context.Context, in ledger.RecordInput) {
	if b.ledger == nil {
		return
	}
	if _, err := b.ledger.Record(ctx, in); err != nil {
		slog.ErrorContext(ctx, "Failed to record history entry",
			"action", in.Action,
			"type", in.Type,
			"item_id", in.ItemID,
			"error", err)
	}
}

// upload stores a, returning its URL. A failed upload yields an empty URL.
func (b base) upload(ctx context.Context, kind core.RecordType, a *Attachment) string {
	if a == nil || a.Body == nil {
		return ""
	}
	url, err := b.files.Upload(ctx, a.Name, a.ContentType, a.Body)
	if err != nil {
		slog.WarnContext(ctx, "Attachment upload failed, continuing without file",
			"type", kind,
			"name", a.Name,
			"error", err)
		return ""
	}
	return url
}

// discard deletes a previously uploaded file; failures are logged.
func (b base) discard(ctx context.Context, url string) {
	if url == "" {
		return
	}
	if err := b.files.Delete(ctx, url); err != nil {
		slog.WarnContext(ctx, "Failed to delete attachment", "url", url, "error", err)
	}
}

// containsFold reports whether any field contains query, ignoring case.
func containsFold(query string, fields ...string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}

// snapshotAs asserts a ledger snapshot to the record kind a restorer owns.
func snapshotAs[T core.Record](snapshot core.Record) (T, error) {
	var zero T
	if snapshot == nil {
		return zero, core.NewValidationError("snapshot", nil, "missing snapshot")
	}
	rec, ok := snapshot.(T)
	if !ok {
		return zero, core.NewValidationError("snapshot", string(snapshot.Kind()), "snapshot kind does not match "+string(zero.Kind()))
	}
	return rec, nil
}
