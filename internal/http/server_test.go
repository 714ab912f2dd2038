package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"spendwise/internal/core"
	"spendwise/internal/log"
	"spendwise/internal/memory"
	"spendwise/internal/services"
	"spendwise/internal/tools"
)

var testNow = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	srv   *Server
	store *memory.Store
}

func newTestEnv(t *testing.T, mutate func(*Deps)) *testEnv {
	t.Helper()
	st := core.DefaultSettings()
	st.MonthlyLimit = 1000
	store := memory.New(st)
	cycles := services.NewCycleService(store, store,
		services.WithClock(func() time.Time { return testNow }),
		services.WithLocation(time.UTC))
	expenses := services.NewExpenseService(store, cycles, nil)

	deps := Deps{
		Cycles:       cycles,
		Expenses:     expenses,
		Tools:        tools.NewHandler(cycles, expenses),
		Logger:       log.New(log.Config{Output: io.Discard}),
		RateLimitRPM: 1000,
		HistoryCount: 2,
	}
	if mutate != nil {
		mutate(&deps)
	}
	srv := NewServer(":0", deps)
	t.Cleanup(func() { srv.Shutdown(context.Background()) })
	return &testEnv{srv: srv, store: store}
}

func (e *testEnv) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.srv.Handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) seed(t *testing.T, amount float64, category string, date time.Time) core.Expense {
	t.Helper()
	exp, err := e.store.AddExpense(context.Background(), core.Expense{Amount: amount, Category: category, Date: date})
	if err != nil {
		t.Fatal(err)
	}
	return exp
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestHealthAndReady(t *testing.T) {
	env := newTestEnv(t, nil)
	for _, path := range []string{"/healthz", "/readyz"} {
		if rec := env.do(t, http.MethodGet, path, ""); rec.Code != http.StatusOK {
			t.Errorf("%s status = %d", path, rec.Code)
		}
	}

	down := newTestEnv(t, func(d *Deps) {
		d.Ready = func(context.Context) error { return errors.New("db locked") }
	})
	rec := down.do(t, http.MethodGet, "/readyz", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("readyz status = %d, want 503", rec.Code)
	}
}

func TestMiddlewareHeaders(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(t, http.MethodGet, "/api/budget", "")
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID")
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("missing security headers")
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestCreateAndListExpenses(t *testing.T) {
	env := newTestEnv(t, nil)

	body := `{"expenses":[{"amount":"12,50","category":"dining","merchant":" Cafe "},{"amount":100,"category":"fuel","date":"2024-02-20"}]}`
	rec := env.do(t, http.MethodPost, "/api/expenses", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d body %s", rec.Code, rec.Body)
	}
	created := decode(t, rec)["expenses"].([]any)
	if len(created) != 2 {
		t.Fatalf("created = %v", created)
	}
	first := created[0].(map[string]any)
	if first["amount"] != 12.5 || first["merchant"] != "Cafe" || first["source"] != "manual" {
		t.Errorf("first = %v", first)
	}

	rec = env.do(t, http.MethodGet, "/api/expenses", "")
	if got := decode(t, rec)["expenses"].([]any); len(got) != 2 {
		t.Errorf("listed %d, want 2", len(got))
	}
	rec = env.do(t, http.MethodGet, "/api/expenses?start=2024-02-20&end=2024-02-20", "")
	if got := decode(t, rec)["expenses"].([]any); len(got) != 1 {
		t.Errorf("listed %d on 2024-02-20, want 1", len(got))
	}

	cur := decode(t, env.do(t, http.MethodGet, "/api/cycles/current", ""))
	if cur["totalSpent"] != 112.5 || cur["cycleId"] != "2024-02-15" {
		t.Errorf("current = %v / %v", cur["totalSpent"], cur["cycleId"])
	}
}

func TestCreateExpenses_Errors(t *testing.T) {
	env := newTestEnv(t, nil)
	tests := []struct {
		name string
		body string
		want int
	}{
		{"malformed", `{"expenses":[`, http.StatusBadRequest},
		{"unknown field", `{"expenses":[],"user":"x"}`, http.StatusBadRequest},
		{"bad amount string", `{"expenses":[{"amount":"abc","category":"x"}]}`, http.StatusBadRequest},
		{"bad date", `{"expenses":[{"amount":1,"category":"x","date":"soon"}]}`, http.StatusBadRequest},
		{"negative amount", `{"expenses":[{"amount":-1,"category":"x"}]}`, http.StatusUnprocessableEntity},
		{"missing category", `{"expenses":[{"amount":1}]}`, http.StatusUnprocessableEntity},
		{"empty", `{"expenses":[]}`, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/expenses", tt.body)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d (%s)", rec.Code, tt.want, rec.Body)
			}
			if _, ok := decode(t, rec)["error"]; !ok {
				t.Error("error body missing")
			}
		})
	}

	if rec := env.do(t, http.MethodGet, "/api/expenses?limit=-3", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("negative limit status = %d", rec.Code)
	}
}

func TestUpdateAndDeleteExpense(t *testing.T) {
	env := newTestEnv(t, nil)
	e := env.seed(t, 40, "groceries", time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))

	rec := env.do(t, http.MethodPut, "/api/expenses/"+e.ID, `{"amount":55,"category":"dining"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d body %s", rec.Code, rec.Body)
	}
	got := decode(t, rec)
	if got["amount"] != 55.0 || got["category"] != "dining" {
		t.Errorf("updated = %v", got)
	}

	if rec := env.do(t, http.MethodPut, "/api/expenses/missing", `{"amount":1,"category":"x"}`); rec.Code != http.StatusNotFound {
		t.Errorf("update missing status = %d", rec.Code)
	}
	if rec := env.do(t, http.MethodDelete, "/api/expenses/"+e.ID, ""); rec.Code != http.StatusNoContent {
		t.Errorf("delete status = %d", rec.Code)
	}
	if rec := env.do(t, http.MethodDelete, "/api/expenses/"+e.ID, ""); rec.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d", rec.Code)
	}
}

func TestCycleEndpoints(t *testing.T) {
	env := newTestEnv(t, nil)
	env.seed(t, 200, "fuel", time.Date(2024, 2, 20, 0, 0, 0, 0, time.UTC))
	env.seed(t, 100, "fuel", time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC))

	hist := decode(t, env.do(t, http.MethodGet, "/api/cycles", ""))
	if n := len(hist["cycles"].([]any)); n != 3 {
		t.Errorf("default history = %d, want 3", n)
	}
	hist = decode(t, env.do(t, http.MethodGet, "/api/cycles?count=1", ""))
	if n := len(hist["cycles"].([]any)); n != 2 {
		t.Errorf("count=1 history = %d, want 2", n)
	}
	if rec := env.do(t, http.MethodGet, "/api/cycles?count=many", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("bad count status = %d", rec.Code)
	}

	tests := []struct {
		target string
		want   int
	}{
		{"/api/cycles/2024-01-15", http.StatusOK},
		{"/api/cycles/2024-01-16", http.StatusBadRequest},
		{"/api/cycles/not-a-date", http.StatusBadRequest},
		{"/api/cycles/2030-01-15", http.StatusNotFound},
		{"/api/cycles/current/compare", http.StatusOK},
		{"/api/cycles/2024-01-15/compare?with=2023-12-15", http.StatusOK},
		{"/api/cycles/2024-01-15/compare?with=bad", http.StatusBadRequest},
	}
	for _, tt := range tests {
		if rec := env.do(t, http.MethodGet, tt.target, ""); rec.Code != tt.want {
			t.Errorf("GET %s status = %d, want %d (%s)", tt.target, rec.Code, tt.want, rec.Body)
		}
	}

	past := decode(t, env.do(t, http.MethodGet, "/api/cycles/2024-01-15", ""))
	cycle := past["cycle"].(map[string]any)
	if cycle["daysRemaining"] != 0.0 || past["totalSpent"] != 100.0 {
		t.Errorf("past cycle = %v total %v", cycle, past["totalSpent"])
	}

	cmp := decode(t, env.do(t, http.MethodGet, "/api/cycles/current/compare", ""))
	if cmp["overallTrend"] != "worsened" || cmp["totalSpentDiff"] != 100.0 {
		t.Errorf("compare = %v %v", cmp["overallTrend"], cmp["totalSpentDiff"])
	}
}

func TestBudget(t *testing.T) {
	env := newTestEnv(t, nil)
	env.seed(t, 1200, "rent", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))

	got := decode(t, env.do(t, http.MethodGet, "/api/budget", ""))
	if got["status"] != "danger" || got["remaining"] != -200.0 || got["dailyBudget"] != 0.0 {
		t.Errorf("budget = %v", got)
	}
}

func TestSettingsAndCategories(t *testing.T) {
	env := newTestEnv(t, nil)

	cats := decode(t, env.do(t, http.MethodGet, "/api/categories", ""))["categories"].([]any)
	if len(cats) != 10 {
		t.Fatalf("categories = %d", len(cats))
	}
	if c := cats[0].(map[string]any); c["color"] != "#22c55e" || c["icon"] != "ShoppingCart" {
		t.Errorf("first category = %v", c)
	}

	rec := env.do(t, http.MethodPut, "/api/settings", `{"monthlyLimit":500,"billingDay":31,"currency":"$"}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("billing day 31 status = %d", rec.Code)
	}

	rec = env.do(t, http.MethodPut, "/api/settings", `{"monthlyLimit":500,"billingDay":1,"currency":"$","alertThresholds":[80]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d body %s", rec.Code, rec.Body)
	}
	got := decode(t, env.do(t, http.MethodGet, "/api/settings", ""))
	if got["billingDay"] != 1.0 || got["currency"] != "$" {
		t.Errorf("settings = %v", got)
	}
	if n := len(got["categories"].([]any)); n != 10 {
		t.Errorf("catalog should be kept, got %d categories", n)
	}

	cur := decode(t, env.do(t, http.MethodGet, "/api/cycles/current", ""))
	if cur["cycleId"] != "2024-03-01" {
		t.Errorf("cycleId after anchor change = %v", cur["cycleId"])
	}
}

func TestRoutingErrors(t *testing.T) {
	env := newTestEnv(t, nil)
	for _, tt := range []struct {
		method, path string
	}{
		{http.MethodPatch, "/api/budget"},
		{http.MethodDelete, "/api/settings"},
		{http.MethodPost, "/api/cycles/current"},
		{http.MethodPatch, "/api/mcp"},
		{http.MethodPost, "/healthz"},
	} {
		rec := env.do(t, tt.method, tt.path, "")
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("%s %s status = %d, want 405", tt.method, tt.path, rec.Code)
			continue
		}
		if decode(t, rec)["error"] != "method not allowed" {
			t.Errorf("%s %s body = %s", tt.method, tt.path, rec.Body)
		}
	}
	rec := env.do(t, http.MethodGet, "/api/nothing", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown route status = %d", rec.Code)
	}
	if decode(t, rec)["error"] != "not found" {
		t.Errorf("body = %s", rec.Body)
	}
}

func TestRateLimit(t *testing.T) {
	env := newTestEnv(t, func(d *Deps) { d.RateLimitRPM = 2 })
	for i := 0; i < 2; i++ {
		if rec := env.do(t, http.MethodGet, "/api/budget", ""); rec.Code != http.StatusOK {
			t.Fatalf("request %d status = %d", i+1, rec.Code)
		}
	}
	rec := env.do(t, http.MethodGet, "/api/budget", "")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After")
	}
	// Probes are not rate limited.
	if rec := env.do(t, http.MethodGet, "/healthz", ""); rec.Code != http.StatusOK {
		t.Errorf("healthz status = %d", rec.Code)
	}
	if rec := env.do(t, http.MethodGet, "/api/mcp", ""); rec.Code != http.StatusTooManyRequests {
		t.Errorf("mcp status = %d, want 429", rec.Code)
	}
}

func TestToolsMounted(t *testing.T) {
	env := newTestEnv(t, nil)
	got := decode(t, env.do(t, http.MethodGet, "/api/mcp", ""))
	if got["protocolVersion"] != tools.ProtocolVersion {
		t.Errorf("manifest = %v", got)
	}

	rec := env.do(t, http.MethodPost, "/api/mcp", `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"get_summary","arguments":{}}}`)
	res := decode(t, rec)["result"].(map[string]any)
	content := res["content"].([]any)[0].(map[string]any)
	if content["type"] != "text" || !strings.Contains(content["text"].(string), `"status": "good"`) {
		t.Errorf("content = %v", content)
	}
}
