package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"spendwise/internal/core"
	"spendwise/internal/memory"
	"spendwise/internal/ports"
)

// fixedNow sits inside the cycle that starts 2024-02-15 for billing day 15.
var fixedNow = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

type recordingPublisher struct {
	mu     sync.Mutex
	events []ports.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e ports.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

func testSettings() core.Settings {
	s := core.DefaultSettings()
	s.BillingDay = 15
	s.MonthlyLimit = 1000
	s.NotificationsEnabled = true
	s.AlertThresholds = []float64{50, 75}
	return s
}

func newTestServices() (*memory.Store, *CycleService, *ExpenseService, *recordingPublisher) {
	store := memory.New(testSettings())
	cycles := NewCycleService(store, store, WithClock(func() time.Time { return fixedNow }), WithLocation(time.UTC))
	pub := &recordingPublisher{}
	return store, cycles, NewExpenseService(store, cycles, pub), pub
}

func day(m time.Month, d int) time.Time {
	y := 2024
	if m > time.March {
		y = 2023
	}
	return time.Date(y, m, d, 10, 0, 0, 0, time.UTC)
}

func mustAdd(store *memory.Store, amount float64, category string, date time.Time) core.Expense {
	e, err := store.AddExpense(context.Background(), core.Expense{Amount: amount, Category: category, Date: date})
	if err != nil {
		panic(fmt.Sprintf("seed expense: %v", err))
	}
	return e
}
