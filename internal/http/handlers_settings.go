package http

import (
	"net/http"

	"spendwise/internal/view"
)

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	st, err := s.cycles.Settings(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view.FromSettings(st))
}

// handleUpdateSettings replaces the settings. An omitted category list keeps
// the stored catalog.
func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var in view.Settings
	if err := decodeBody(w, r, &in); err != nil {
		fail(w, r, err)
		return
	}
	saved, err := s.cycles.UpdateSettings(r.Context(), in.ToSettings())
	if err != nil {
		fail(w, r, err)
		return
	}
	s.logger.InfoContext(r.Context(), "Settings updated",
		"billing_day", saved.BillingDay,
		"monthly_limit", saved.MonthlyLimit)
	writeJSON(w, http.StatusOK, view.FromSettings(saved))
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	st, err := s.cycles.Settings(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": view.FromCategories(st.Categories)})
}
