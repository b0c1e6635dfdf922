package services

import (
	"context"
	"fmt"
	"log/slog"

	"backoffice/internal/core"
	"backoffice/internal/ledger"
	"backoffice/internal/records"
)

// OfferView is an offer with its derived expiration fields.
type OfferView struct {
	core.Offer
	DaysToExpiration int                  `json:"daysToExpiration"`
	ExpirationLevel  core.ExpirationLevel `json:"expirationLevel"`
}

// OfferService manages offers (quotes).
type OfferService struct {
	base
	store records.OfferStore
}

func NewOfferService(store records.OfferStore, l *ledger.Ledger, opts ...Option) *OfferService {
	s := &OfferService{base: newBase(l, opts), store: store}
	s.register(core.TypeOffer, s)
	return s
}

func (s *OfferService) view(o core.Offer) OfferView {
	days := core.DaysToExpiration(o.ExpirationDate, s.now())
	return OfferView{Offer: o, DaysToExpiration: days, ExpirationLevel: core.LevelForDays(days)}
}

// List returns offers, newest first, matching search on title, client or description.
func (s *OfferService) List(ctx context.Context, search string) ([]OfferView, error) {
	all, err := s.store.ListOffers(ctx)
	if err != nil {
		return nil, core.WrapStoreError("list offers", err)
	}
	out := make([]OfferView, 0, len(all))
	for _, o := range all {
		if containsFold(search, o.Title, o.Client, o.Description) {
			out = append(out, s.view(o))
		}
	}
	return out, nil
}

func (s *OfferService) Get(ctx context.Context, id string) (OfferView, error) {
	o, err := s.store.GetOffer(ctx, id)
	if err != nil {
		return OfferView{}, core.WrapStoreError("get offer", err)
	}
	return s.view(o), nil
}

// Create stores a new offer dated today, in Draft unless a status is given.
func (s *OfferService) Create(ctx context.Context, o core.Offer, actor ledger.Actor) (OfferView, error) {
	if o.Status == "" {
		o.Status = core.OfferDraft
	}
	if err := o.Validate(); err != nil {
		return OfferView{}, err
	}
	o.ID = ""
	o.CreatedDate = s.today()
	if o.Status == core.OfferSent && o.SentDate == nil {
		o.SentDate = s.today().Ptr()
	}

	created, err := s.store.CreateOffer(ctx, o)
	if err != nil {
		return OfferView{}, core.WrapStoreError("create offer", err)
	}

	slog.InfoContext(ctx, "Offer created",
		"id", created.ID,
		"client", created.Client,
		"amount_cents", created.Amount.Cents)

	s.record(ctx, ledger.RecordInput{
		Action:      ledger.ActionAdded,
		Type:        core.TypeOffer,
		ItemID:      created.ID,
		Description: offerLabel(created),
		Changes:     ledger.NewChanges(core.TypeOffer, nil, created),
		Actor:       actor,
	})
	return s.view(created), nil
}

func (s *OfferService) Update(ctx context.Context, id string, in core.Offer, actor ledger.Actor) (OfferView, error) {
	before, err := s.store.GetOffer(ctx, id)
	if err != nil {
		return OfferView{}, core.WrapStoreError("get offer", err)
	}

	after := in
	after.ID = before.ID
	after.CreatedDate = before.CreatedDate
	if after.Status == "" {
		after.Status = before.Status
	}
	if after.SentDate == nil {
		after.SentDate = before.SentDate
	}
	if after.Status == core.OfferSent && after.SentDate == nil {
		after.SentDate = s.today().Ptr()
	}
	if err := after.Validate(); err != nil {
		return OfferView{}, err
	}

	updated, err := s.store.UpdateOffer(ctx, after)
	if err != nil {
		return OfferView{}, core.WrapStoreError("update offer", err)
	}

	slog.InfoContext(ctx, "Offer updated", "id", updated.ID, "status", updated.Status)

	s.record(ctx, ledger.RecordInput{
		Action:      ledger.ActionEdited,
		Type:        core.TypeOffer,
		ItemID:      updated.ID,
		Description: offerLabel(updated),
		Changes:     ledger.NewChanges(core.TypeOffer, before, updated),
		Actor:       actor,
	})
	return s.view(updated), nil
}

// ChangeStatus sets the offer status. Moving to Sent stamps the sent date.
func (s *OfferService) ChangeStatus(ctx context.Context, id string, status core.OfferStatus, actor ledger.Actor) (OfferView, error) {
	if !status.IsValid() {
		return OfferView{}, core.NewValidationError("status", string(status), "unknown offer status")
	}
	before, err := s.store.GetOffer(ctx, id)
	if err != nil {
		return OfferView{}, core.WrapStoreError("get offer", err)
	}

	after := before
	after.Status = status
	if status == core.OfferSent {
		after.SentDate = s.today().Ptr()
	}

	updated, err := s.store.UpdateOffer(ctx, after)
	if err != nil {
		return OfferView{}, core.WrapStoreError("update offer status", err)
	}

	slog.InfoContext(ctx, "Offer status changed", "id", updated.ID, "from", before.Status, "to", updated.Status)

	s.record(ctx, ledger.RecordInput{
		Action:      ledger.ActionEdited,
		Type:        core.TypeOffer,
		ItemID:      updated.ID,
		Description: fmt.Sprintf("%s status changed from %s to %s", offerLabel(updated), before.Status, updated.Status),
		Changes:     ledger.NewChanges(core.TypeOffer, before, updated),
		Actor:       actor,
	})
	return s.view(updated), nil
}

func (s *OfferService) Delete(ctx context.Context, id string, actor ledger.Actor) error {
	before, err := s.store.GetOffer(ctx, id)
	if err != nil {
		return core.WrapStoreError("get offer", err)
	}
	if err := s.store.DeleteOffer(ctx, id); err != nil {
		return core.WrapStoreError("delete offer", err)
	}

	slog.InfoContext(ctx, "Offer deleted", "id", id)

	s.record(ctx, ledger.RecordInput{
		Action:      ledger.ActionDeleted,
		Type:        core.TypeOffer,
		ItemID:      id,
		Description: offerLabel(before),
		Changes:     ledger.NewChanges(core.TypeOffer, before, nil),
		Actor:       actor,
	})
	return nil
}

// Restore re-applies an offer snapshot; it backs ledger reverts.
func (s *OfferService) Restore(ctx context.Context, id string, snapshot core.Record) error {
	o, err := snapshotAs[core.Offer](snapshot)
	if err != nil {
		return err
	}
	o.ID = id
	if _, err := s.store.UpdateOffer(ctx, o); err != nil {
		return core.WrapStoreError("restore offer", err)
	}
	return nil
}

func offerLabel(o core.Offer) string {
	return fmt.Sprintf("Offer %q for %s", o.Title, o.Client)
}
