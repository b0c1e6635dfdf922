package worker

import (
	"context"
	"log/slog"
	"time"

	"backoffice/internal/ledger"
)

// EntryPublisher sends history entries to the broker.
type EntryPublisher interface {
	PublishLedgerEntry(ctx context.Context, e ledger.Entry) error
}

const publishTimeout = 5 * time.Second

// PublishEntries returns a ledger subscriber forwarding every recorded entry
// to p. Failures are logged; the entry stays in the local history and is
// picked up by the mirror worker's startup check.
func PublishEntries(p EntryPublisher) ledger.Subscriber {
	return func(ctx context.Context, e ledger.Entry) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
		defer cancel()
		if err := p.PublishLedgerEntry(ctx, e); err != nil {
			slog.WarnContext(ctx, "Failed to publish history entry", "entry_id", e.ID, "error", err)
		}
	}
}
