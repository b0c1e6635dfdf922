package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"backoffice/internal/core"
	"backoffice/internal/log"
	"backoffice/internal/services"
)

type statusRequest struct {
	Status string `json:"status"`
}

func (s *Server) handleListInvoices(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	list, err := s.svc.Invoices.List(r.Context(), services.InvoiceFilter{
		Status: sanitizeInput(q.Get("status")),
		Search: sanitizeInput(q.Get("search")),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, list)
}

func (s *Server) handleGetInvoice(w http.ResponseWriter, r *http.Request) {
	inv, err := s.svc.Invoices.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, inv)
}

func (s *Server) handleNextInvoiceNumber(w http.ResponseWriter, r *http.Request) {
	next, err := s.svc.Invoices.NextNumber(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"invoiceNumber": next})
}

func (s *Server) handleCreateInvoice(w http.ResponseWriter, r *http.Request) {
	in, pdf, err := decodeRecord[core.Invoice](w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	created, err := s.svc.Invoices.Create(r.Context(), in, pdf, s.actor(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.sweepOverdue(r.Context())
	// Re-read so a same-day sweep is reflected in the response.
	if fresh, err := s.svc.Invoices.Get(r.Context(), created.ID); err == nil {
		created = fresh
	}
	writeJSON(w, r, http.StatusCreated, created)
}

func (s *Server) handleUpdateInvoice(w http.ResponseWriter, r *http.Request) {
	in, pdf, err := decodeRecord[core.Invoice](w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	id := chi.URLParam(r, "id")
	if _, err := s.svc.Invoices.Update(r.Context(), id, in, pdf, s.actor(r)); err != nil {
		writeError(w, r, err)
		return
	}
	s.sweepOverdue(r.Context())
	s.writeInvoice(w, r, id)
}

func (s *Server) handleDeleteInvoice(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Invoices.Delete(r.Context(), chi.URLParam(r, "id"), s.actor(r)); err != nil {
		writeError(w, r, err)
		return
	}
	s.sweepOverdue(r.Context())
	writeNoContent(w)
}

func (s *Server) handleInvoiceStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	id := chi.URLParam(r, "id")
	if _, err := s.svc.Invoices.ChangeStatus(r.Context(), id, core.InvoiceStatus(req.Status), s.actor(r)); err != nil {
		writeError(w, r, err)
		return
	}
	s.sweepOverdue(r.Context())
	s.writeInvoice(w, r, id)
}

// handleInvoiceReminder sends the payment reminder. The explicit POST is the
// user's confirmation.
func (s *Server) handleInvoiceReminder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.svc.Invoices.SendReminder(r.Context(), id, s.actor(r)); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"id": id, "sent": true})
}

func (s *Server) writeInvoice(w http.ResponseWriter, r *http.Request, id string) {
	inv, err := s.svc.Invoices.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, inv)
}

// sweepOverdue re-runs the overdue sweep after a change to the invoice collection.
func (s *Server) sweepOverdue(ctx context.Context) {
	if _, err := s.svc.Invoices.SweepOverdue(ctx); err != nil {
		log.FromContext(ctx).ErrorContext(ctx, "Overdue sweep failed",
			log.FieldOperation, log.OpSweep,
			log.FieldError, err)
	}
}
