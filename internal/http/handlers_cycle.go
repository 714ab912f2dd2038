package http

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"spendwise/internal/view"
)

func (s *Server) handleCurrentCycle(w http.ResponseWriter, r *http.Request) {
	st, err := s.cycles.Settings(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	sum, err := s.cycles.Current(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view.FromSummary(sum, st.Categories))
}

func (s *Server) handleCycle(w http.ResponseWriter, r *http.Request) {
	st, err := s.cycles.Settings(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	sum, err := s.cycles.Summary(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view.FromSummary(sum, st.Categories))
}

// handleCycleHistory serves the current cycle plus ?count past cycles.
func (s *Server) handleCycleHistory(w http.ResponseWriter, r *http.Request) {
	count := s.historyCount
	if v := r.URL.Query().Get("count"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			fail(w, r, fmt.Errorf("%w: count must be a non-negative integer", errBadRequest))
			return
		}
		count = n
	}

	st, err := s.cycles.Settings(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	history, err := s.cycles.History(r.Context(), count)
	if err != nil {
		fail(w, r, err)
		return
	}
	out := make([]view.Summary, len(history))
	for i, sum := range history {
		out[i] = view.FromSummary(sum, st.Categories)
	}
	writeJSON(w, http.StatusOK, map[string]any{"cycles": out})
}

// handleCompareCycles compares {id} with ?with, defaulting to the preceding
// cycle. The id "current" names the running cycle.
func (s *Server) handleCompareCycles(w http.ResponseWriter, r *http.Request) {
	st, err := s.cycles.Settings(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	id := mux.Vars(r)["id"]
	if id == "current" {
		id = ""
	}
	cmp, err := s.cycles.Compare(r.Context(), id, r.URL.Query().Get("with"))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view.FromComparison(cmp, st.Categories))
}

func (s *Server) handleBudget(w http.ResponseWriter, r *http.Request) {
	status, sum, err := s.cycles.Budget(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view.FromBudget(sum.CycleID, status))
}
