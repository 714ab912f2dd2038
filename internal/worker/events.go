package worker

import (
	"context"
	"fmt"

	"spendwise/internal/amqp"
	"spendwise/internal/log"
	"spendwise/internal/ports"
)

// Invalidator drops cached summaries. *services.CycleService satisfies it.
type Invalidator interface {
	Invalidate()
}

// EventHandler reacts to cycle events consumed from the bus.
type EventHandler struct {
	logger *log.Logger
	cache  Invalidator
}

// NewEventHandler creates a handler. cache may be nil.
func NewEventHandler(logger *log.Logger, cache Invalidator) *EventHandler {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &EventHandler{
		logger: logger.WithComponent(log.ComponentWorker),
		cache:  cache,
	}
}

// Handle processes one event. Payload decoding failures are returned so the
// delivery is retried.
func (h *EventHandler) Handle(ctx context.Context, ev *amqp.CycleEvent) error {
	switch ev.Type {
	case ports.EventExpenseAdded:
		var p amqp.ExpensePayload
		if err := ev.DecodePayload(&p); err != nil {
			return fmt.Errorf("decode %s payload: %w", ev.Type, err)
		}
		// Another process wrote to the shared store.
		if h.cache != nil {
			h.cache.Invalidate()
		}
		h.logger.InfoContext(ctx, "Expenses recorded",
			log.FieldCycleID, ev.CycleID,
			log.FieldExpenseCount, len(p.IDs),
			log.FieldAmount, p.Total,
			"source", p.Source)

	case ports.EventThresholdCrossed:
		var p amqp.ThresholdPayload
		if err := ev.DecodePayload(&p); err != nil {
			return fmt.Errorf("decode %s payload: %w", ev.Type, err)
		}
		args := []any{
			log.FieldCycleID, ev.CycleID,
			"thresholds", p.Thresholds,
			log.FieldPercentUsed, p.PercentUsed,
			log.FieldTotalSpent, p.Spent,
			"limit", p.Limit,
		}
		if p.Spent > p.Limit {
			h.logger.ErrorContext(ctx, "Budget exceeded", args...)
		} else {
			h.logger.WarnContext(ctx, "Budget threshold crossed", args...)
		}

	case ports.EventCycleClosed:
		var p amqp.CycleClosedPayload
		if err := ev.DecodePayload(&p); err != nil {
			return fmt.Errorf("decode %s payload: %w", ev.Type, err)
		}
		h.logger.InfoContext(ctx, "Cycle closed",
			log.FieldCycleID, ev.CycleID,
			log.FieldTotalSpent, p.TotalSpent,
			log.FieldPercentUsed, p.PercentUsed,
			log.FieldExpenseCount, p.ExpenseCount,
			log.FieldTrend, p.Trend)

	default:
		h.logger.WarnContext(ctx, "Ignoring unknown event", log.FieldEventType, ev.Type)
	}
	return nil
}
