package services

import (
	"context"
	"fmt"
	"log/slog"

	"backoffice/internal/core"
	"backoffice/internal/ledger"
	"backoffice/internal/records"
)

// RecurringView is a recurring payment with its next due date as of today.
type RecurringView struct {
	core.RecurringPayment
	NextOccurrence core.Date `json:"nextOccurrence"`
}

// RecurringService manages recurring payments.
type RecurringService struct {
	base
	store records.RecurringStore
}

func NewRecurringService(store records.RecurringStore, l *ledger.Ledger, opts ...Option) *RecurringService {
	s := &RecurringService{base: newBase(l, opts), store: store}
	s.register(core.TypeRecurringPayment, s)
	return s
}

func (s *RecurringService) view(ctx context.Context, p core.RecurringPayment) RecurringView {
	next, err := core.NextOccurrence(p.NextPayment, s.today(), p.Frequency)
	if err != nil {
		slog.WarnContext(ctx, "Cannot compute next occurrence", "id", p.ID, "frequency", p.Frequency, "error", err)
	}
	return RecurringView{RecurringPayment: p, NextOccurrence: next}
}

// List returns recurring payments by anchor date, each with its next occurrence.
func (s *RecurringService) List(ctx context.Context) ([]RecurringView, error) {
	all, err := s.store.ListRecurringPayments(ctx)
	if err != nil {
		return nil, core.WrapStoreError("list recurring payments", err)
	}
	out := make([]RecurringView, 0, len(all))
	for _, p := range all {
		out = append(out, s.view(ctx, p))
	}
	return out, nil
}

func (s *RecurringService) Get(ctx context.Context, id string) (RecurringView, error) {
	p, err := s.store.GetRecurringPayment(ctx, id)
	if err != nil {
		return RecurringView{}, core.WrapStoreError("get recurring payment", err)
	}
	return s.view(ctx, p), nil
}

func (s *RecurringService) Create(ctx context.Context, p core.RecurringPayment, pdf *Attachment, actor ledger.Actor) (RecurringView, error) {
	if err := p.Validate(); err != nil {
		return RecurringView{}, err
	}
	p.ID = ""
	p.CreatedAt = s.now().UTC()
	if url := s.upload(ctx, core.TypeRecurringPayment, pdf); url != "" {
		p.PDFURL = url
	}

	created, err := s.store.CreateRecurringPayment(ctx, p)
	if err != nil {
		return RecurringView{}, core.WrapStoreError("create recurring payment", err)
	}

	slog.InfoContext(ctx, "Recurring payment created",
		"id", created.ID,
		"frequency", created.Frequency,
		"amount_cents", created.Amount.Cents)

	s.record(ctx, ledger.RecordInput{
		Action:      ledger.ActionAdded,
		Type:        core.TypeRecurringPayment,
		ItemID:      created.ID,
		Description: recurringLabel(created),
		Changes:     ledger.NewChanges(core.TypeRecurringPayment, nil, created),
		Actor:       actor,
	})
	return s.view(ctx, created), nil
}

func (s *RecurringService) Update(ctx context.Context, id string, in core.RecurringPayment, pdf *Attachment, actor ledger.Actor) (RecurringView, error) {
	before, err := s.store.GetRecurringPayment(ctx, id)
	if err != nil {
		return RecurringView{}, core.WrapStoreError("get recurring payment", err)
	}
	if err := in.Validate(); err != nil {
		return RecurringView{}, err
	}

	after := in
	after.ID = before.ID
	after.CreatedAt = before.CreatedAt
	if after.PDFURL == "" {
		after.PDFURL = before.PDFURL
	}
	if url := s.upload(ctx, core.TypeRecurringPayment, pdf); url != "" {
		after.PDFURL = url
	}

	updated, err := s.store.UpdateRecurringPayment(ctx, after)
	if err != nil {
		return RecurringView{}, core.WrapStoreError("update recurring payment", err)
	}
	if updated.PDFURL != before.PDFURL {
		s.discard(ctx, before.PDFURL)
	}

	slog.InfoContext(ctx, "Recurring payment updated", "id", updated.ID, "amount_cents", updated.Amount.Cents)

	s.record(ctx, ledger.RecordInput{
		Action:      ledger.ActionEdited,
		Type:        core.TypeRecurringPayment,
		ItemID:      updated.ID,
		Description: recurringLabel(updated),
		Changes:     ledger.NewChanges(core.TypeRecurringPayment, before, updated),
		Actor:       actor,
	})
	return s.view(ctx, updated), nil
}

// Toggle flips the active flag of a recurring payment.
func (s *RecurringService) Toggle(ctx context.Context, id string, actor ledger.Actor) (RecurringView, error) {
	before, err := s.store.GetRecurringPayment(ctx, id)
	if err != nil {
		return RecurringView{}, core.WrapStoreError("get recurring payment", err)
	}
	after := before
	after.Active = !before.Active

	updated, err := s.store.UpdateRecurringPayment(ctx, after)
	if err != nil {
		return RecurringView{}, core.WrapStoreError("toggle recurring payment", err)
	}

	state := "paused"
	if updated.Active {
		state = "activated"
	}
	slog.InfoContext(ctx, "Recurring payment toggled", "id", updated.ID, "active", updated.Active)

	s.record(ctx, ledger.RecordInput{
		Action:      ledger.ActionEdited,
		Type:        core.TypeRecurringPayment,
		ItemID:      updated.ID,
		Description: recurringLabel(updated) + " " + state,
		Changes:     ledger.NewChanges(core.TypeRecurringPayment, before, updated),
		Actor:       actor,
	})
	return s.view(ctx, updated), nil
}

func (s *RecurringService) Delete(ctx context.Context, id string, actor ledger.Actor) error {
	before, err := s.store.GetRecurringPayment(ctx, id)
	if err != nil {
		return core.WrapStoreError("get recurring payment", err)
	}
	if err := s.store.DeleteRecurringPayment(ctx, id); err != nil {
		return core.WrapStoreError("delete recurring payment", err)
	}
	s.discard(ctx, before.PDFURL)

	slog.InfoContext(ctx, "Recurring payment deleted", "id", id)

	s.record(ctx, ledger.RecordInput{
		Action:      ledger.ActionDeleted,
		Type:        core.TypeRecurringPayment,
		ItemID:      id,
		Description: recurringLabel(before),
		Changes:     ledger.NewChanges(core.TypeRecurringPayment, before, nil),
		Actor:       actor,
	})
	return nil
}

// Restore re-applies a recurring payment snapshot; it backs ledger reverts.
func (s *RecurringService) Restore(ctx context.Context, id string, snapshot core.Record) error {
	p, err := snapshotAs[core.RecurringPayment](snapshot)
	if err != nil {
		return err
	}
	current, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	p.ID = id
	p.PDFURL = current.PDFURL
	if _, err := s.store.UpdateRecurringPayment(ctx, p); err != nil {
		return core.WrapStoreError("restore recurring payment", err)
	}
	return nil
}

func recurringLabel(p core.RecurringPayment) string {
	return fmt.Sprintf("Recurring payment %q (%s %s)", p.Name, p.Amount, p.Frequency)
}
