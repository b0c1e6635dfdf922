package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"backoffice/internal/core"
)

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	list, err := s.svc.Expenses.List(r.Context(), sanitizeInput(r.URL.Query().Get("category")))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, list)
}

func (s *Server) handleExpenseCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.svc.Expenses.Categories(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, cats)
}

func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	e, err := s.svc.Expenses.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, e)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	in, pdf, err := decodeRecord[core.Expense](w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	created, err := s.svc.Expenses.Create(r.Context(), in, pdf, s.actor(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, created)
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	in, pdf, err := decodeRecord[core.Expense](w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	updated, err := s.svc.Expenses.Update(r.Context(), chi.URLParam(r, "id"), in, pdf, s.actor(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, updated)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Expenses.Delete(r.Context(), chi.URLParam(r, "id"), s.actor(r)); err != nil {
		writeError(w, r, err)
		return
	}
	writeNoContent(w)
}

func (s *Server) handleListOffers(w http.ResponseWriter, r *http.Request) {
	list, err := s.svc.Offers.List(r.Context(), sanitizeInput(r.URL.Query().Get("search")))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, list)
}

func (s *Server) handleGetOffer(w http.ResponseWriter, r *http.Request) {
	o, err := s.svc.Offers.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, o)
}

func (s *Server) handleCreateOffer(w http.ResponseWriter, r *http.Request) {
	var in core.Offer
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	created, err := s.svc.Offers.Create(r.Context(), in, s.actor(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, created)
}

func (s *Server) handleUpdateOffer(w http.ResponseWriter, r *http.Request) {
	var in core.Offer
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	updated, err := s.svc.Offers.Update(r.Context(), chi.URLParam(r, "id"), in, s.actor(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, updated)
}

func (s *Server) handleOfferStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	updated, err := s.svc.Offers.ChangeStatus(r.Context(), chi.URLParam(r, "id"), core.OfferStatus(req.Status), s.actor(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, updated)
}

func (s *Server) handleDeleteOffer(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Offers.Delete(r.Context(), chi.URLParam(r, "id"), s.actor(r)); err != nil {
		writeError(w, r, err)
		return
	}
	writeNoContent(w)
}

func (s *Server) handleListRecurring(w http.ResponseWriter, r *http.Request) {
	list, err := s.svc.Recurring.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, list)
}

func (s *Server) handleGetRecurring(w http.ResponseWriter, r *http.Request) {
	p, err := s.svc.Recurring.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, p)
}

func (s *Server) handleCreateRecurring(w http.ResponseWriter, r *http.Request) {
	in, pdf, err := decodeRecord[core.RecurringPayment](w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	created, err := s.svc.Recurring.Create(r.Context(), in, pdf, s.actor(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, created)
}

func (s *Server) handleUpdateRecurring(w http.ResponseWriter, r *http.Request) {
	in, pdf, err := decodeRecord[core.RecurringPayment](w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	updated, err := s.svc.Recurring.Update(r.Context(), chi.URLParam(r, "id"), in, pdf, s.actor(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, updated)
}

func (s *Server) handleToggleRecurring(w http.ResponseWriter, r *http.Request) {
	updated, err := s.svc.Recurring.Toggle(r.Context(), chi.URLParam(r, "id"), s.actor(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, updated)
}

func (s *Server) handleDeleteRecurring(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Recurring.Delete(r.Context(), chi.URLParam(r, "id"), s.actor(r)); err != nil {
		writeError(w, r, err)
		return
	}
	writeNoContent(w)
}
