package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"backoffice/internal/core"
)

func (s *Server) handleListHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := s.svc.Ledger.Entries(r.Context(), sanitizeInput(r.URL.Query().Get("type")))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, entries)
}

func (s *Server) handleRevert(w http.ResponseWriter, r *http.Request) {
	entry, err := s.svc.Ledger.Revert(r.Context(), chi.URLParam(r, "id"), s.actor(r))
	if err != nil && entry.ID == "" {
		writeError(w, r, err)
		return
	}
	// A persistence failure after a successful revert is logged by the ledger.
	if entry.Type == core.TypeInvoice {
		s.sweepOverdue(r.Context())
	}
	writeJSON(w, r, http.StatusOK, entry)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	sum, err := s.svc.Dashboard.Summary(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, sum)
}
