// Package worker runs the background jobs: closed-cycle reports on a cron
// schedule and handling of cycle events from the message bus.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"spendwise/internal/amqp"
	"spendwise/internal/core"
	"spendwise/internal/log"
	"spendwise/internal/ports"
	"spendwise/internal/services"
)

// CycleReporter reports each billing cycle once, after it closes.
type CycleReporter struct {
	cycles    *services.CycleService
	exporter  ports.SummaryExporter
	publisher ports.EventPublisher
	logger    *log.Logger

	mu           sync.Mutex
	lastReported string
}

// NewCycleReporter creates a reporter. exporter and publisher may be nil.
func NewCycleReporter(cycles *services.CycleService, exporter ports.SummaryExporter, publisher ports.EventPublisher, logger *log.Logger) *CycleReporter {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &CycleReporter{
		cycles:    cycles,
		exporter:  exporter,
		publisher: publisher,
		logger:    logger.WithComponent(log.ComponentWorker),
	}
}

// Prime marks the most recently closed cycle as already reported, so a
// restart does not announce it twice, and returns its id. With an exporter
// configured nothing is marked and Prime returns "": the exporter skips
// cycles it already holds, and a cycle that closed while the worker was down
// still gets its report on the next run.
func (r *CycleReporter) Prime(ctx context.Context) (string, error) {
	if r.exporter != nil {
		return "", nil
	}
	id, err := r.lastClosedID(ctx)
	if err != nil {
		return "", err
	}
	r.mu.Lock()
	r.lastReported = id
	r.mu.Unlock()
	return id, nil
}

// LastReported returns the id of the last cycle handled, or "".
func (r *CycleReporter) LastReported() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastReported
}

// Run reports the most recently closed cycle unless it was already reported.
// It returns whether a report was produced.
func (r *CycleReporter) Run(ctx context.Context) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, err := r.lastClosedID(ctx)
	if err != nil {
		return false, err
	}
	if id == r.lastReported {
		r.logger.DebugContext(ctx, "No newly closed cycle", log.FieldCycleID, id)
		return false, nil
	}

	// Compare against the cycle before so the report carries a trend.
	cmp, err := r.cycles.Compare(ctx, id, "")
	if err != nil {
		return false, fmt.Errorf("compare closed cycle %s: %w", id, err)
	}
	closed := cmp.Cycle1

	if r.exporter != nil {
		if err := r.exporter.ExportSummary(ctx, closed, cmp.OverallTrend); err != nil {
			return false, fmt.Errorf("export cycle %s: %w", id, err)
		}
	}

	if r.publisher != nil {
		event := ports.Event{
			Type:    ports.EventCycleClosed,
			CycleID: id,
			Payload: amqp.CycleClosedPayload{
				TotalSpent:   closed.TotalSpent,
				BudgetLimit:  closed.BudgetLimit,
				PercentUsed:  core.RoundAmount(closed.PercentUsed, 1),
				ExpenseCount: closed.ExpenseCount,
				Trend:        string(cmp.OverallTrend),
			},
			Timestamp: r.cycles.Now(),
		}
		if err := r.publisher.Publish(ctx, event); err != nil {
			// The export already happened; the event is best effort.
			r.logger.WarnContext(ctx, "Failed to publish cycle closed event",
				log.FieldCycleID, id, log.FieldError, err)
		}
	}

	r.lastReported = id
	r.logger.InfoContext(ctx, "Cycle report completed", log.NewFields().
		WithCycle(id, closed.Cycle.StartDate.Format(time.DateOnly), closed.Cycle.EndDate.Format(time.DateOnly), 0).
		WithSpending(closed.TotalSpent, closed.PercentUsed, closed.ExpenseCount).
		ToSlice()...)
	return true, nil
}

func (r *CycleReporter) lastClosedID(ctx context.Context) (string, error) {
	st, err := r.cycles.Settings(ctx)
	if err != nil {
		return "", err
	}
	current := core.ComputeCycle(st.BillingDay, r.cycles.Now())
	return core.CycleID(core.PreviousCycle(st.BillingDay, current)), nil
}
