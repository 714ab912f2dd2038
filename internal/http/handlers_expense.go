package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"spendwise/internal/core"
	"spendwise/internal/view"
)

// amount accepts a JSON number or a decimal string such as "12,50".
type amount float64

func (a *amount) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		v, err := core.ParseAmount(s)
		if err != nil {
			return err
		}
		*a = amount(v)
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*a = amount(f)
	return nil
}

type expenseInput struct {
	Amount   amount `json:"amount"`
	Category string `json:"category"`
	Merchant string `json:"merchant"`
	Note     string `json:"note"`
	Date     string `json:"date"`
}

func (s *Server) toExpense(in expenseInput) (core.Expense, error) {
	date, err := view.ParseDate(in.Date, s.cycles.Location(), false)
	if err != nil {
		return core.Expense{}, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return core.Expense{
		Amount:   float64(in.Amount),
		Category: strings.TrimSpace(in.Category),
		Merchant: strings.TrimSpace(in.Merchant),
		Note:     strings.TrimSpace(in.Note),
		Date:     date,
	}, nil
}

func (s *Server) handleCreateExpenses(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Expenses []expenseInput `json:"expenses"`
	}
	if err := decodeBody(w, r, &body); err != nil {
		fail(w, r, err)
		return
	}

	items := make([]core.Expense, len(body.Expenses))
	for i, in := range body.Expenses {
		e, err := s.toExpense(in)
		if err != nil {
			fail(w, r, fmt.Errorf("expense %d: %w", i, err))
			return
		}
		items[i] = e
	}

	added, err := s.expenses.AddExpenses(r.Context(), items, core.SourceManual)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"expenses": view.FromExpenses(added)})
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	loc := s.cycles.Location()

	start, err := view.ParseDate(q.Get("start"), loc, false)
	if err != nil {
		fail(w, r, fmt.Errorf("%w: start: %v", errBadRequest, err))
		return
	}
	end, err := view.ParseDate(q.Get("end"), loc, true)
	if err != nil {
		fail(w, r, fmt.Errorf("%w: end: %v", errBadRequest, err))
		return
	}
	limit := 0
	if v := q.Get("limit"); v != "" {
		if limit, err = strconv.Atoi(v); err != nil || limit < 0 {
			fail(w, r, fmt.Errorf("%w: limit must be a non-negative integer", errBadRequest))
			return
		}
	}

	expenses, err := s.expenses.ListExpenses(r.Context(), start, end, limit)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"expenses": view.FromExpenses(expenses)})
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	var in expenseInput
	if err := decodeBody(w, r, &in); err != nil {
		fail(w, r, err)
		return
	}
	e, err := s.toExpense(in)
	if err != nil {
		fail(w, r, err)
		return
	}
	e.ID = mux.Vars(r)["id"]

	updated, err := s.expenses.UpdateExpense(r.Context(), e)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view.FromExpense(updated))
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	if err := s.expenses.DeleteExpense(r.Context(), mux.Vars(r)["id"]); err != nil {
		fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
