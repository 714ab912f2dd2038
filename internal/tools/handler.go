package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	"spendwise/internal/core"
	"spendwise/internal/services"
	"spendwise/internal/view"
)

const maxBodyBytes = 1 << 20

// errInvalidParams marks argument problems reported with CodeInvalidParams.
var errInvalidParams = errors.New("invalid params")

type Handler struct {
	cycles       *services.CycleService
	expenses     *services.ExpenseService
	info         ServerInfo
	historyCount int
	currency     string
}

type Option func(*Handler)

func WithServerInfo(info ServerInfo) Option {
	return func(h *Handler) { h.info = info }
}

// WithHistoryCount sets how many past cycles get_cycle_history returns by default.
func WithHistoryCount(n int) Option {
	return func(h *Handler) {
		if n > 0 {
			h.historyCount = n
		}
	}
}

func WithCurrency(c string) Option {
	return func(h *Handler) { h.currency = c }
}

func NewHandler(cycles *services.CycleService, expenses *services.ExpenseService, opts ...Option) *Handler {
	h := &Handler{
		cycles:       cycles,
		expenses:     expenses,
		info:         ServerInfo{Name: "spendwise-expense-tracker", Version: "1.0.0"},
		historyCount: 6,
		currency:     core.DefaultCurrency,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) Manifest() Manifest {
	return Manifest{
		ProtocolVersion: ProtocolVersion,
		Capabilities:    map[string]any{"tools": map[string]any{}},
		ServerInfo:      h.info,
		Tools:           Definitions(h.currency),
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, h.Manifest())
	case http.MethodPost:
		body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
		if err != nil {
			writeJSON(w, errorResponse(nil, CodeParseError, "read body: "+err.Error()))
			return
		}
		var req Request
		if err := json.Unmarshal(body, &req); err != nil {
			writeJSON(w, errorResponse(nil, CodeParseError, "parse error"))
			return
		}
		writeJSON(w, h.Handle(r.Context(), req))
	default:
		w.Header().Set("Allow", "GET, POST")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// Handle dispatches one JSON-RPC request.
func (h *Handler) Handle(ctx context.Context, req Request) Response {
	switch req.Method {
	case "initialize":
		m := h.Manifest()
		m.Tools = nil
		return Response{JSONRPC: "2.0", ID: req.ID, Result: m}
	case "tools/list":
		return Response{JSONRPC: "2.0", ID: req.ID, Result: map[string]any{"tools": Definitions(h.currency)}}
	case "tools/call":
		var p callParams
		if err := json.Unmarshal(req.Params, &p); err != nil || p.Name == "" {
			return errorResponse(req.ID, CodeInvalidParams, "params must name a tool")
		}
		result, err := h.call(ctx, p.Name, p.Arguments)
		if err != nil {
			code := CodeToolFailure
			if errors.Is(err, errInvalidParams) || isValidationError(err) {
				code = CodeInvalidParams
			}
			slog.WarnContext(ctx, "Tool call failed", "tool", p.Name, "error", err)
			return errorResponse(req.ID, code, err.Error())
		}
		out, err := textResult(result)
		if err != nil {
			return errorResponse(req.ID, CodeToolFailure, err.Error())
		}
		return Response{JSONRPC: "2.0", ID: req.ID, Result: out}
	default:
		return errorResponse(req.ID, CodeMethodNotFound, "Method not found")
	}
}

func (h *Handler) call(ctx context.Context, name string, args json.RawMessage) (any, error) {
	switch name {
	case ToolAddExpenses:
		return h.addExpenses(ctx, args)
	case ToolGetSummary:
		status, sum, err := h.cycles.Budget(ctx)
		if err != nil {
			return nil, err
		}
		return view.FromBudget(sum.CycleID, status), nil
	case ToolGetExpenses:
		return h.getExpenses(ctx, args)
	case ToolGetCycleHistory:
		return h.cycleHistory(ctx, args)
	case ToolCompareCycles:
		return h.compareCycles(ctx, args)
	default:
		return nil, fmt.Errorf("%w: unknown tool %q", errInvalidParams, name)
	}
}

type addExpensesArgs struct {
	Expenses []struct {
		Amount   float64 `json:"amount"`
		Category string  `json:"category"`
		Merchant string  `json:"merchant"`
		Note     string  `json:"note"`
		Date     string  `json:"date"`
	} `json:"expenses"`
}

func (h *Handler) addExpenses(ctx context.Context, raw json.RawMessage) (any, error) {
	var args addExpensesArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	if len(args.Expenses) == 0 {
		return nil, fmt.Errorf("%w: expenses must not be empty", errInvalidParams)
	}

	items := make([]core.Expense, len(args.Expenses))
	for i, in := range args.Expenses {
		date, err := h.parseDate(in.Date, false)
		if err != nil {
			return nil, fmt.Errorf("%w: expense %d: %v", errInvalidParams, i, err)
		}
		items[i] = core.Expense{
			Amount:   in.Amount,
			Category: strings.TrimSpace(in.Category),
			Merchant: strings.TrimSpace(in.Merchant),
			Note:     strings.TrimSpace(in.Note),
			Date:     date,
		}
	}

	added, err := h.expenses.AddExpenses(ctx, items, core.SourceAssistant)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(added))
	for i, e := range added {
		ids[i] = e.ID
	}
	return map[string]any{
		"success": true,
		"message": fmt.Sprintf("Added %d expense(s)", len(added)),
		"ids":     ids,
	}, nil
}

func (h *Handler) getExpenses(ctx context.Context, raw json.RawMessage) (any, error) {
	var args struct {
		StartDate string `json:"startDate"`
		EndDate   string `json:"endDate"`
		Limit     int    `json:"limit"`
	}
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	start, err := h.parseDate(args.StartDate, false)
	if err != nil {
		return nil, fmt.Errorf("%w: startDate: %v", errInvalidParams, err)
	}
	end, err := h.parseDate(args.EndDate, true)
	if err != nil {
		return nil, fmt.Errorf("%w: endDate: %v", errInvalidParams, err)
	}
	limit := args.Limit
	if limit <= 0 {
		limit = services.DefaultListLimit
	}

	all, err := h.expenses.ListExpenses(ctx, start, end, math.MaxInt32)
	if err != nil {
		return nil, err
	}
	shown := all
	if len(shown) > limit {
		shown = shown[:limit]
	}
	return map[string]any{
		"expenses": view.FromExpenses(shown),
		"total":    len(all),
	}, nil
}

func (h *Handler) cycleHistory(ctx context.Context, raw json.RawMessage) (any, error) {
	var args struct {
		Count *int `json:"count"`
	}
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	count := h.historyCount
	if args.Count != nil {
		count = *args.Count
	}

	history, err := h.cycles.History(ctx, count)
	if err != nil {
		return nil, err
	}
	st, err := h.cycles.Settings(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]view.Summary, len(history))
	for i, s := range history {
		out[i] = view.FromSummary(s, st.Categories)
	}
	return map[string]any{"cycles": out}, nil
}

func (h *Handler) compareCycles(ctx context.Context, raw json.RawMessage) (any, error) {
	var args struct {
		CycleID     string `json:"cycleId"`
		CompareWith string `json:"compareWith"`
	}
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	cmp, err := h.cycles.Compare(ctx, args.CycleID, args.CompareWith)
	if err != nil {
		return nil, err
	}
	st, err := h.cycles.Settings(ctx)
	if err != nil {
		return nil, err
	}
	return view.FromComparison(cmp, st.Categories), nil
}

func (h *Handler) parseDate(s string, endOfDay bool) (time.Time, error) {
	return view.ParseDate(s, h.cycles.Location(), endOfDay)
}

func decodeArgs(raw json.RawMessage, v any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %v", errInvalidParams, err)
	}
	return nil
}

func isValidationError(err error) bool {
	return core.IsValidationError(err) ||
		errors.Is(err, services.ErrFutureCycle) ||
		errors.Is(err, services.ErrNoExpenses)
}

func errorResponse(id json.RawMessage, code int, msg string) Response {
	return Response{JSONRPC: "2.0", ID: id, Error: &Error{Code: code, Message: msg}}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode JSON-RPC response", "error", err)
	}
}
