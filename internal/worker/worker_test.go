package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"spendwise/internal/amqp"
	"spendwise/internal/core"
	"spendwise/internal/log"
	"spendwise/internal/memory"
	"spendwise/internal/ports"
	"spendwise/internal/services"
)

type recordingExporter struct {
	mu      sync.Mutex
	exports []core.CycleSummary
	trends  []core.Trend
	err     error
}

func (e *recordingExporter) ExportSummary(_ context.Context, s core.CycleSummary, trend core.Trend) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return e.err
	}
	e.exports = append(e.exports, s)
	e.trends = append(e.trends, trend)
	return nil
}

type recordingPublisher struct {
	events []ports.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e ports.Event) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, e)
	return nil
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

func discardLogger() *log.Logger {
	return log.New(log.Config{Output: io.Discard})
}

func newReporterEnv(t *testing.T) (*CycleReporter, *clock, *recordingExporter, *recordingPublisher) {
	t.Helper()
	st := core.DefaultSettings()
	st.MonthlyLimit = 1000
	store := memory.New(st)

	ctx := context.Background()
	for _, e := range []core.Expense{
		{Amount: 300, Category: "fuel", Date: time.Date(2024, 2, 20, 9, 0, 0, 0, time.UTC)},
		{Amount: 100, Category: "fuel", Date: time.Date(2024, 1, 20, 9, 0, 0, 0, time.UTC)},
	} {
		if _, err := store.AddExpense(ctx, e); err != nil {
			t.Fatal(err)
		}
	}

	clk := &clock{now: time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)}
	cycles := services.NewCycleService(store, store,
		services.WithClock(clk.Now),
		services.WithLocation(time.UTC))
	exp := &recordingExporter{}
	pub := &recordingPublisher{}
	return NewCycleReporter(cycles, exp, pub, discardLogger()), clk, exp, pub
}

func TestCycleReporter_ReportsNewlyClosedCycleOnce(t *testing.T) {
	r, clk, exp, pub := newReporterEnv(t)
	ctx := context.Background()

	if ran, err := r.Run(ctx); err != nil || !ran {
		t.Fatalf("first Run() = %v, %v", ran, err)
	}
	if ran, err := r.Run(ctx); err != nil || ran {
		t.Fatalf("Run() before close = %v, %v", ran, err)
	}

	clk.Set(time.Date(2024, 3, 15, 0, 5, 0, 0, time.UTC))
	ran, err := r.Run(ctx)
	if err != nil || !ran {
		t.Fatalf("Run() after close = %v, %v", ran, err)
	}
	if len(exp.exports) != 2 {
		t.Fatalf("exports = %d, want 2", len(exp.exports))
	}
	got := exp.exports[1]
	if core.CycleID(got.Cycle) != "2024-02-15" || got.TotalSpent != 300 {
		t.Errorf("exported %s total %v", core.CycleID(got.Cycle), got.TotalSpent)
	}
	if got.Cycle.DaysRemaining != 0 {
		t.Errorf("closed cycle DaysRemaining = %d", got.Cycle.DaysRemaining)
	}
	if exp.trends[1] != core.TrendWorsened {
		t.Errorf("trend = %v, want worsened", exp.trends[1])
	}

	if len(pub.events) != 2 {
		t.Fatalf("events = %d, want 2", len(pub.events))
	}
	ev := pub.events[1]
	payload, ok := ev.Payload.(amqp.CycleClosedPayload)
	if ev.Type != ports.EventCycleClosed || ev.CycleID != "2024-02-15" || !ok {
		t.Fatalf("event = %+v", ev)
	}
	if payload.TotalSpent != 300 || payload.PercentUsed != 30 || payload.Trend != string(core.TrendWorsened) {
		t.Errorf("payload = %+v", payload)
	}

	if ran, err := r.Run(ctx); err != nil || ran {
		t.Errorf("second Run() = %v, %v", ran, err)
	}
	if r.LastReported() != "2024-02-15" {
		t.Errorf("LastReported() = %q", r.LastReported())
	}
}

func TestCycleReporter_PrimeWithoutExporter(t *testing.T) {
	r, _, _, pub := newReporterEnv(t)
	r.exporter = nil
	ctx := context.Background()

	id, err := r.Prime(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if id != "2024-01-15" {
		t.Fatalf("Prime() = %q, want 2024-01-15", id)
	}
	if ran, err := r.Run(ctx); err != nil || ran {
		t.Errorf("Run() after Prime = %v, %v", ran, err)
	}
	if len(pub.events) != 0 {
		t.Errorf("events = %d, want 0", len(pub.events))
	}
}

func TestCycleReporter_PrimeWithExporterKeepsReportAcrossRestart(t *testing.T) {
	r, clk, exp, _ := newReporterEnv(t)
	ctx := context.Background()
	// The February cycle closed a few minutes before the worker came back up.
	clk.Set(time.Date(2024, 3, 15, 0, 5, 0, 0, time.UTC))

	id, err := r.Prime(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if id != "" || r.LastReported() != "" {
		t.Fatalf("Prime() = %q, LastReported() = %q, want nothing marked", id, r.LastReported())
	}
	if ran, err := r.Run(ctx); err != nil || !ran {
		t.Fatalf("Run() = %v, %v", ran, err)
	}
	if len(exp.exports) != 1 || core.CycleID(exp.exports[0].Cycle) != "2024-02-15" {
		t.Fatalf("exports = %d, want the 2024-02-15 cycle", len(exp.exports))
	}
}

func TestCycleReporter_UnprimedReportsLastClosed(t *testing.T) {
	r, _, exp, _ := newReporterEnv(t)
	if ran, err := r.Run(context.Background()); err != nil || !ran {
		t.Fatalf("Run() = %v, %v", ran, err)
	}
	if got := core.CycleID(exp.exports[0].Cycle); got != "2024-01-15" {
		t.Errorf("exported %s, want 2024-01-15", got)
	}
}

func TestCycleReporter_ExportFailureRetries(t *testing.T) {
	r, _, exp, pub := newReporterEnv(t)
	exp.err = errors.New("quota exceeded")

	if _, err := r.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if len(pub.events) != 0 {
		t.Error("event published despite failed export")
	}
	if r.LastReported() != "" {
		t.Errorf("LastReported() = %q after failure", r.LastReported())
	}

	exp.err = nil
	if ran, err := r.Run(context.Background()); err != nil || !ran {
		t.Errorf("retry Run() = %v, %v", ran, err)
	}
}

func TestCycleReporter_PublishFailureIsNotFatal(t *testing.T) {
	r, _, exp, pub := newReporterEnv(t)
	pub.err = errors.New("broker down")

	if ran, err := r.Run(context.Background()); err != nil || !ran {
		t.Fatalf("Run() = %v, %v", ran, err)
	}
	if len(exp.exports) != 1 {
		t.Errorf("exports = %d", len(exp.exports))
	}
}

func TestCycleReporter_NoSinks(t *testing.T) {
	r, _, _, _ := newReporterEnv(t)
	r.exporter = nil
	r.publisher = nil
	if ran, err := r.Run(context.Background()); err != nil || !ran {
		t.Errorf("Run() = %v, %v", ran, err)
	}
}

func TestValidateSchedule(t *testing.T) {
	for _, spec := range []string{"5 0 * * *", "*/15 * * * *", "@daily"} {
		if err := ValidateSchedule(spec); err != nil {
			t.Errorf("ValidateSchedule(%q) = %v", spec, err)
		}
	}
	for _, spec := range []string{"", "every day", "0 0 0 * * *"} {
		if err := ValidateSchedule(spec); err == nil {
			t.Errorf("ValidateSchedule(%q) = nil, want error", spec)
		}
	}
}

func TestScheduler_RunsJob(t *testing.T) {
	ran := make(chan struct{}, 1)
	job := func(context.Context) error {
		select {
		case ran <- struct{}{}:
		default:
		}
		return nil
	}
	s, err := NewScheduler(context.Background(), "@every 1s", time.UTC, job, discardLogger())
	if err != nil {
		t.Fatal(err)
	}
	s.Start()
	defer s.Stop(context.Background())

	if s.Next().IsZero() {
		t.Error("Next() is zero after Start")
	}
	select {
	case <-ran:
	case <-time.After(3 * time.Second):
		t.Fatal("job did not run")
	}
}

func TestNewScheduler_InvalidSchedule(t *testing.T) {
	if _, err := NewScheduler(context.Background(), "not a schedule", nil, func(context.Context) error { return nil }, nil); err == nil {
		t.Error("expected error")
	}
}

type countingInvalidator struct{ n int }

func (c *countingInvalidator) Invalidate() { c.n++ }

func event(t *testing.T, typ string, payload any) *amqp.CycleEvent {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatal(err)
	}
	return &amqp.CycleEvent{Type: typ, CycleID: "2024-02-15", Payload: raw, Timestamp: time.Now()}
}

func TestEventHandler(t *testing.T) {
	var buf bytes.Buffer
	inv := &countingInvalidator{}
	h := NewEventHandler(log.New(log.Config{Output: &buf}), inv)
	ctx := context.Background()

	tests := []struct {
		name string
		ev   *amqp.CycleEvent
		want string
	}{
		{"expense added", event(t, ports.EventExpenseAdded, amqp.ExpensePayload{IDs: []string{"a", "b"}, Total: 30, Source: "manual"}), "Expenses recorded"},
		{"threshold", event(t, ports.EventThresholdCrossed, amqp.ThresholdPayload{Thresholds: []float64{75}, PercentUsed: 80, Spent: 800, Limit: 1000}), "Budget threshold crossed"},
		{"over budget", event(t, ports.EventThresholdCrossed, amqp.ThresholdPayload{Thresholds: []float64{100}, PercentUsed: 110, Spent: 1100, Limit: 1000}), "Budget exceeded"},
		{"cycle closed", event(t, ports.EventCycleClosed, amqp.CycleClosedPayload{TotalSpent: 900, ExpenseCount: 12, Trend: "stable"}), "Cycle closed"},
		{"unknown", &amqp.CycleEvent{Type: "something.else"}, "Ignoring unknown event"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf.Reset()
			if err := h.Handle(ctx, tt.ev); err != nil {
				t.Fatalf("Handle() error = %v", err)
			}
			if !strings.Contains(buf.String(), tt.want) {
				t.Errorf("log %q does not contain %q", buf.String(), tt.want)
			}
		})
	}
	if inv.n != 1 {
		t.Errorf("Invalidate called %d times, want 1", inv.n)
	}
}

func TestEventHandler_BadPayload(t *testing.T) {
	h := NewEventHandler(discardLogger(), nil)
	ev := &amqp.CycleEvent{Type: ports.EventCycleClosed, Payload: json.RawMessage(`"nope"`)}
	if err := h.Handle(context.Background(), ev); err == nil {
		t.Error("expected decode error")
	}
	if err := h.Handle(context.Background(), &amqp.CycleEvent{Type: ports.EventExpenseAdded}); err == nil {
		t.Error("expected error for missing payload")
	}
}
