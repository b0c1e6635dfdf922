package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"backoffice/internal/core"
)

// ErrEntryNotFound is returned when a history entry id is unknown.
var ErrEntryNotFound = fmt.Errorf("history entry: %w", core.ErrRecordNotFound)

// FilterAll selects every entry in List.
const FilterAll = "all"

// Store persists history entries.
type Store interface {
	AppendEntry(ctx context.Context, e Entry) error
	// ListEntries returns all entries, newest first.
	ListEntries(ctx context.Context) ([]Entry, error)
}

// Restorer re-applies a snapshot to the record identified by id.
// It returns core.ErrRecordNotFound when the record no longer exists.
type Restorer interface {
	Restore(ctx context.Context, id string, snapshot core.Record) error
}

// RestorerFunc adapts a function to the Restorer interface.
type RestorerFunc func(ctx context.Context, id string, snapshot core.Record) error

func (f RestorerFunc) Restore(ctx context.Context, id string, snapshot core.Record) error {
	return f(ctx, id, snapshot)
}

// Subscriber is notified after every appended entry.
type Subscriber func(ctx context.Context, e Entry)

// RecordInput describes a mutation to log.
type RecordInput struct {
	Action      Action
	Type        core.RecordType
	ItemID      string
	Description string
	Changes     *Changes
	Actor       Actor
}

// Ledger is the in-memory history log backed by a Store. Safe for concurrent use.
type Ledger struct {
	mu          sync.RWMutex
	entries     []Entry // newest first
	store       Store
	now         func() time.Time
	newID       func() string
	restorers   map[core.RecordType]Restorer
	subscribers []Subscriber
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// WithIDGenerator overrides entry id generation.
func WithIDGenerator(gen func() string) Option {
	return func(l *Ledger) { l.newID = gen }
}

// New creates a ledger. store may be nil for a purely in-memory log.
func New(store Store, opts ...Option) *Ledger {
	l := &Ledger{
		store:     store,
		now:       time.Now,
		newID:     uuid.NewString,
		restorers: make(map[core.RecordType]Restorer),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// RegisterRestorer sets the restorer used to revert entries of the given kind.
func (l *Ledger) RegisterRestorer(kind core.RecordType, r Restorer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.restorers[kind] = r
}

// Subscribe registers fn to be called after each appended entry.
func (l *Ledger) Subscribe(fn Subscriber) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.subscribers = append(l.subscribers, fn)
}

// Load merges the entries held by the store into the in-memory log. Other
// processes sharing the store append to it, so readers call Load (or Entries)
// to see their entries.
func (l *Ledger) Load(ctx context.Context) error {
	if l.store == nil {
		return nil
	}
	stored, err := l.store.ListEntries(ctx)
	if err != nil {
		return core.WrapStoreError("list history", err)
	}
	l.mu.Lock()
	l.entries = mergeEntries(stored, l.entries)
	n := len(l.entries)
	l.mu.Unlock()
	slog.DebugContext(ctx, "History loaded", "entries", n)
	return nil
}

// mergeEntries returns the union of stored and local by id, newest first.
// Local entries missing from stored either failed to persist or were appended
// after the store was read.
func mergeEntries(stored, local []Entry) []Entry {
	seen := make(map[string]struct{}, len(stored))
	out := make([]Entry, 0, len(stored)+len(local))
	for _, e := range stored {
		seen[e.ID] = struct{}{}
		out = append(out, e)
	}
	extra := false
	for _, e := range local {
		if _, ok := seen[e.ID]; !ok {
			out = append(out, e)
			extra = true
		}
	}
	if extra {
		sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	}
	return out
}

// Record prepends a new entry. The in-memory append always happens; a failure
// to persist is returned as a *core.StoreError together with the entry.
func (l *Ledger) Record(ctx context.Context, in RecordInput) (Entry, error) {
	if !in.Action.IsValid() {
		return Entry{}, core.NewValidationError("action", string(in.Action), "unknown history action")
	}
	if !in.Type.IsValid() {
		return Entry{}, core.NewValidationError("type", string(in.Type), "unknown record type")
	}

	e := Entry{
		ID:          l.newID(),
		Timestamp:   l.now().UTC(),
		User:        in.Actor.OrSystem(),
		Action:      in.Action,
		Type:        in.Type,
		ItemID:      in.ItemID,
		Description: in.Description,
		Changes:     in.Changes,
		Revertible:  in.Action.Revertible(),
	}

	l.mu.Lock()
	l.entries = append([]Entry{e}, l.entries...)
	subscribers := append([]Subscriber(nil), l.subscribers...)
	l.mu.Unlock()

	var persistErr error
	if l.store != nil {
		if err := l.store.AppendEntry(ctx, e); err != nil {
			persistErr = core.WrapStoreError("append history entry", err)
			slog.ErrorContext(ctx, "Failed to persist history entry",
				"entry_id", e.ID, "action", e.Action, "type", e.Type, "error", err)
		}
	}

	for _, fn := range subscribers {
		fn(ctx, e)
	}

	return e, persistErr
}

// Revert re-applies the before snapshot of an entry and logs a Reverted entry
// by actor. Nothing is appended when the revert fails.
func (l *Ledger) Revert(ctx context.Context, entryID string, actor Actor) (Entry, error) {
	target, ok := l.Get(entryID)
	if !ok && l.store != nil {
		if err := l.Load(ctx); err != nil {
			return Entry{}, err
		}
		target, ok = l.Get(entryID)
	}
	if !ok {
		return Entry{}, ErrEntryNotFound
	}
	if !target.Revertible || target.Changes == nil || target.Changes.Before == nil {
		return Entry{}, fmt.Errorf("entry %s (%s): %w", target.ID, target.Action, core.ErrNotRevertible)
	}

	l.mu.RLock()
	restorer := l.restorers[target.Type]
	l.mu.RUnlock()
	if restorer == nil {
		return Entry{}, fmt.Errorf("no restorer for %s: %w", target.Type, core.ErrNotRevertible)
	}

	if err := restorer.Restore(ctx, target.ItemID, target.Changes.Before); err != nil {
		if errors.Is(err, core.ErrRecordNotFound) || errors.Is(err, core.ErrValidation) {
			return Entry{}, fmt.Errorf("revert %s: %w", target.ID, err)
		}
		return Entry{}, core.WrapStoreError("restore "+string(target.Type), err)
	}

	changes := &Changes{
		Type:     target.Type,
		Before:   target.Changes.After,
		After:    target.Changes.Before,
		Reverted: target.ID,
	}
	return l.Record(ctx, RecordInput{
		Action:      ActionReverted,
		Type:        target.Type,
		ItemID:      target.ItemID,
		Description: "Reverted: " + target.Description,
		Changes:     changes,
		Actor:       actor,
	})
}

// Entries reloads the store and returns the entries matching filter, newest
// first. Use it wherever the history may have been written by another process.
func (l *Ledger) Entries(ctx context.Context, filter string) ([]Entry, error) {
	if err := l.Load(ctx); err != nil {
		return nil, err
	}
	return l.List(filter), nil
}

// List returns the in-memory entries matching filter, newest first. An empty filter or
// FilterAll selects every entry; otherwise the record type must match exactly.
func (l *Ledger) List(filter string) []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Entry, 0, len(l.entries))
	for _, e := range l.entries {
		if filter == "" || filter == FilterAll || string(e.Type) == filter {
			out = append(out, e)
		}
	}
	return out
}

// Get returns the entry with the given id.
func (l *Ledger) Get(id string) (Entry, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, e := range l.entries {
		if e.ID == id {
			return e, true
		}
	}
	return Entry{}, false
}

// Len returns the number of entries in memory.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}
