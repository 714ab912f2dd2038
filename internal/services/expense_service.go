package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"spendwise/internal/amqp"
	"spendwise/internal/core"
	"spendwise/internal/ports"
)

// DefaultListLimit is the page size used when a caller does not ask for one.
const DefaultListLimit = 20

// ErrNoExpenses is returned when AddExpenses is called with an empty batch.
var ErrNoExpenses = errors.New("no expenses given")

type expenseStore interface {
	ports.ExpenseWriter
	ports.ExpenseLister
}

// ExpenseService orchestrates expense writes across the store, the summary
// cache and the event bus.
type ExpenseService struct {
	store     expenseStore
	cycles    *CycleService
	publisher ports.EventPublisher
}

// NewExpenseService wires the service. publisher may be nil, in which case
// events are skipped.
func NewExpenseService(store expenseStore, cycles *CycleService, publisher ports.EventPublisher) *ExpenseService {
	return &ExpenseService{
		store:     store,
		cycles:    cycles,
		publisher: publisher,
	}
}

// AddExpenses validates and stores a batch. Nothing is stored if any item is
// invalid. Expenses without a date are dated now; source tags every item.
func (s *ExpenseService) AddExpenses(ctx context.Context, items []core.Expense, source core.Source) ([]core.Expense, error) {
	if len(items) == 0 {
		return nil, ErrNoExpenses
	}
	if source == "" {
		source = core.SourceManual
	}

	now := s.cycles.Now()
	prepared := make([]core.Expense, len(items))
	for i, e := range items {
		e.ID = uuid.NewString()
		e.Source = source
		if e.Date.IsZero() {
			e.Date = now
		}
		if err := e.Validate(); err != nil {
			return nil, fmt.Errorf("expense %d: %w", i, err)
		}
		prepared[i] = e
	}

	before, err := s.cycles.Current(ctx)
	if err != nil {
		return nil, err
	}

	added := make([]core.Expense, 0, len(prepared))
	total := 0.0
	for _, e := range prepared {
		saved, err := s.store.AddExpense(ctx, e)
		if err != nil {
			s.cycles.Invalidate()
			return added, fmt.Errorf("save expense: %w", err)
		}
		added = append(added, saved)
		total += saved.Amount
	}
	s.cycles.Invalidate()

	ids := make([]string, len(added))
	for i, e := range added {
		ids[i] = e.ID
	}
	slog.InfoContext(ctx, "Expenses added",
		"expense_count", len(added),
		"total", total,
		"source", string(source))

	s.publish(ctx, ports.Event{
		Type:    ports.EventExpenseAdded,
		CycleID: before.CycleID,
		Payload: amqp.ExpensePayload{IDs: ids, Total: core.RoundAmount(total, 2), Source: string(source)},
	})
	s.checkThresholds(ctx, before)

	return added, nil
}

// checkThresholds publishes an alert when the write pushed the current cycle
// past one of the configured thresholds.
func (s *ExpenseService) checkThresholds(ctx context.Context, before core.CycleSummary) {
	st, err := s.cycles.Settings(ctx)
	if err != nil || !st.NotificationsEnabled {
		return
	}
	after, err := s.cycles.Current(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to reload cycle after write", "error", err)
		return
	}
	if after.CycleID != before.CycleID {
		before = core.CycleSummary{}
	}

	crossed := core.CrossedThresholds(before.PercentUsed, after.PercentUsed, st.AlertThresholds)
	if len(crossed) == 0 {
		return
	}
	slog.WarnContext(ctx, "Budget threshold crossed",
		"cycle_id", after.CycleID,
		"thresholds", crossed,
		"percent_used", after.PercentUsed)

	s.publish(ctx, ports.Event{
		Type:    ports.EventThresholdCrossed,
		CycleID: after.CycleID,
		Payload: amqp.ThresholdPayload{
			Thresholds:  crossed,
			PercentUsed: core.RoundAmount(after.PercentUsed, 2),
			Spent:       after.TotalSpent,
			Limit:       after.BudgetLimit,
		},
	})
}

func (s *ExpenseService) UpdateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	current, err := s.store.GetExpense(ctx, e.ID)
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense: %w", err)
	}
	if e.Date.IsZero() {
		e.Date = current.Date
	}
	e.Source = current.Source
	e.CreatedAt = current.CreatedAt
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}

	updated, err := s.store.UpdateExpense(ctx, e)
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense: %w", err)
	}
	s.cycles.Invalidate()
	return updated, nil
}

func (s *ExpenseService) DeleteExpense(ctx context.Context, id string) error {
	if err := s.store.DeleteExpense(ctx, id); err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	s.cycles.Invalidate()
	slog.InfoContext(ctx, "Expense deleted", "expense_id", id)
	return nil
}

// ListExpenses returns expenses in [start, end], newest first. A zero bound
// defaults to the matching edge of the current cycle and a non-positive limit
// to DefaultListLimit.
func (s *ExpenseService) ListExpenses(ctx context.Context, start, end time.Time, limit int) ([]core.Expense, error) {
	if start.IsZero() || end.IsZero() {
		cycle, err := s.cycles.CurrentCycle(ctx)
		if err != nil {
			return nil, err
		}
		if start.IsZero() {
			start = cycle.StartDate
		}
		if end.IsZero() {
			end = cycle.EndDate
		}
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}

	expenses, err := s.store.ListExpenses(ctx, start, end, limit)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return expenses, nil
}

func (s *ExpenseService) publish(ctx context.Context, e ports.Event) {
	if s.publisher == nil {
		slog.DebugContext(ctx, "Event publisher not configured, skipping event", "type", e.Type)
		return
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = s.cycles.Now()
	}
	if err := s.publisher.Publish(ctx, e); err != nil {
		// The write already succeeded; events are best effort.
		slog.ErrorContext(ctx, "Failed to publish event",
			"type", e.Type,
			"cycle_id", e.CycleID,
			"error", err)
	}
}
