// Package ports declares the outbound interfaces the services depend on.
package ports

import (
	"context"
	"errors"
	"time"

	"spendwise/internal/core"
)

// ErrNotFound is returned by stores when a record does not exist.
var ErrNotFound = errors.New("not found")

// Event types published on the cycle event bus.
const (
	EventExpenseAdded     = "expense.added"
	EventThresholdCrossed = "budget.threshold_crossed"
	EventCycleClosed      = "cycle.closed"
)

// Ports for outbound adapters.
type (
	ExpenseWriter interface {
		// AddExpense stores e and returns it with ID and timestamps filled in.
		AddExpense(ctx context.Context, e core.Expense) (core.Expense, error)
		UpdateExpense(ctx context.Context, e core.Expense) (core.Expense, error)
		DeleteExpense(ctx context.Context, id string) error
	}

	ExpenseLister interface {
		GetExpense(ctx context.Context, id string) (core.Expense, error)
		// ListExpenses returns expenses dated within [start, end], newest
		// first. A limit of 0 or less returns all of them.
		ListExpenses(ctx context.Context, start, end time.Time, limit int) ([]core.Expense, error)
	}

	// SettingsStore persists the user settings, category catalog included.
	SettingsStore interface {
		GetSettings(ctx context.Context) (core.Settings, error)
		SaveSettings(ctx context.Context, s core.Settings) (core.Settings, error)
	}

	// Store is everything a data backend provides.
	Store interface {
		ExpenseWriter
		ExpenseLister
		SettingsStore
		Close() error
	}

	// SummaryExporter writes closed-cycle reports to an external destination.
	SummaryExporter interface {
		ExportSummary(ctx context.Context, s core.CycleSummary, trend core.Trend) error
	}

	EventPublisher interface {
		Publish(ctx context.Context, event Event) error
	}
)

// Event is a domain notification about a billing cycle.
type Event struct {
	Type      string
	CycleID   string
	Payload   any
	Timestamp time.Time
}
