// Package worker runs the background jobs of the back office: the history
// mirror and the overdue invoice sweep.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"backoffice/internal/amqp"
	"backoffice/internal/ledger"
)

// EntrySink receives mirrored history entries. Appends must be idempotent by
// entry id since deliveries can repeat.
type EntrySink interface {
	AppendEntry(ctx context.Context, e ledger.Entry) error
}

// MirrorWorker copies history entries from the broker into an external sink.
type MirrorWorker struct {
	sink      EntrySink
	history   ledger.Store
	batchSize int
}

func NewMirrorWorker(sink EntrySink, history ledger.Store, batchSize int) *MirrorWorker {
	if batchSize < 1 {
		batchSize = 50
	}
	return &MirrorWorker{
		sink:      sink,
		history:   history,
		batchSize: batchSize,
	}
}

// HandleEntryMessage mirrors a single entry delivered over AMQP.
func (w *MirrorWorker) HandleEntryMessage(ctx context.Context, msg *amqp.LedgerEntryMessage) error {
	slog.InfoContext(ctx, "Processing history entry",
		"entry_id", msg.Entry.ID,
		"action", msg.Entry.Action,
		"type", msg.Entry.Type)

	if err := w.sink.AppendEntry(ctx, msg.Entry); err != nil {
		return fmt.Errorf("mirror entry %s: %w", msg.Entry.ID, err)
	}
	return nil
}

// StartupSyncCheck re-mirrors the most recent persisted entries, oldest
// first, to recover from messages lost while the worker was down.
func (w *MirrorWorker) StartupSyncCheck(ctx context.Context) error {
	if w.history == nil {
		return nil
	}
	entries, err := w.history.ListEntries(ctx)
	if err != nil {
		return fmt.Errorf("list history for startup check: %w", err)
	}
	if len(entries) > w.batchSize {
		entries = entries[:w.batchSize]
	}
	if len(entries) == 0 {
		slog.InfoContext(ctx, "No history entries found on startup")
		return nil
	}
	entries = slices.Clone(entries)
	slices.Reverse(entries)

	successCount, errorCount := 0, 0
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.sink.AppendEntry(ctx, e); err != nil {
			slog.ErrorContext(ctx, "Failed to mirror entry during startup", "entry_id", e.ID, "error", err)
			errorCount++
			continue
		}
		successCount++
	}

	slog.InfoContext(ctx, "Startup sync completed",
		"total", len(entries),
		"synced", successCount,
		"errors", errorCount)
	return nil
}
