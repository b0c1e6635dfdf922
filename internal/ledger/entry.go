// Package ledger keeps the append-only history of record mutations and
// implements reverting an entry by re-applying its before snapshot.
package ledger

import (
	"encoding/json"
	"fmt"
	"time"

	"backoffice/internal/core"
)

// Action names what happened to a record.
type Action string

const (
	ActionAdded        Action = "Added"
	ActionEdited       Action = "Edited"
	ActionDeleted      Action = "Deleted"
	ActionReminderSent Action = "Reminder Sent"
	ActionReverted     Action = "Reverted"
)

// IsValid reports whether a is a known action.
func (a Action) IsValid() bool {
	switch a {
	case ActionAdded, ActionEdited, ActionDeleted, ActionReminderSent, ActionReverted:
		return true
	}
	return false
}

// Revertible reports whether entries with this action can be reverted.
func (a Action) Revertible() bool {
	return a != ActionReminderSent
}

// Actor identifies who performed a mutation.
type Actor struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// System is the actor used for scheduled jobs and when no user is known.
var System = Actor{Name: "System", Email: "system@backoffice.local"}

// OrSystem returns a, or System when a carries no identity.
func (a Actor) OrSystem() Actor {
	if a.Name == "" && a.Email == "" {
		return System
	}
	return a
}

// Entry is one line of the history.
type Entry struct {
	ID          string          `json:"id"`
	Timestamp   time.Time       `json:"timestamp"`
	User        Actor           `json:"user"`
	Action      Action          `json:"action"`
	Type        core.RecordType `json:"type"`
	ItemID      string          `json:"itemId"`
	Description string          `json:"description"`
	Changes     *Changes        `json:"changes,omitempty"`
	Revertible  bool            `json:"revertible"`
}

// Changes carries full snapshots of the record before and after a mutation.
// Before and After hold the concrete type matching Type.
type Changes struct {
	Type     core.RecordType
	Before   core.Record
	After    core.Record
	Reverted string
}

// NewChanges builds Changes for a record kind. Nil snapshots are allowed.
func NewChanges(kind core.RecordType, before, after core.Record) *Changes {
	return &Changes{Type: kind, Before: before, After: after}
}

type changesJSON struct {
	Type     core.RecordType `json:"type"`
	Before   json.RawMessage `json:"before,omitempty"`
	After    json.RawMessage `json:"after,omitempty"`
	Reverted string          `json:"reverted,omitempty"`
}

func (c Changes) MarshalJSON() ([]byte, error) {
	out := changesJSON{Type: c.Type, Reverted: c.Reverted}
	var err error
	if c.Before != nil {
		if out.Before, err = json.Marshal(c.Before); err != nil {
			return nil, fmt.Errorf("marshal before snapshot: %w", err)
		}
	}
	if c.After != nil {
		if out.After, err = json.Marshal(c.After); err != nil {
			return nil, fmt.Errorf("marshal after snapshot: %w", err)
		}
	}
	return json.Marshal(out)
}

func (c *Changes) UnmarshalJSON(data []byte) error {
	var in changesJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	before, err := DecodeRecord(in.Type, in.Before)
	if err != nil {
		return fmt.Errorf("decode before snapshot: %w", err)
	}
	after, err := DecodeRecord(in.Type, in.After)
	if err != nil {
		return fmt.Errorf("decode after snapshot: %w", err)
	}
	*c = Changes{Type: in.Type, Before: before, After: after, Reverted: in.Reverted}
	return nil
}

// DecodeRecord decodes a snapshot into the concrete record type for kind.
// An empty or null payload decodes to a nil record.
func DecodeRecord(kind core.RecordType, raw json.RawMessage) (core.Record, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	switch kind {
	case core.TypeInvoice:
		var v core.Invoice
		err := json.Unmarshal(raw, &v)
		return v, err
	case core.TypeExpense:
		var v core.Expense
		err := json.Unmarshal(raw, &v)
		return v, err
	case core.TypeOffer:
		var v core.Offer
		err := json.Unmarshal(raw, &v)
		return v, err
	case core.TypeRecurringPayment:
		var v core.RecurringPayment
		err := json.Unmarshal(raw, &v)
		return v, err
	default:
		return nil, fmt.Errorf("unknown record type %q", kind)
	}
}
