package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"spendwise/internal/ports"
)

// CycleEvent is the wire form of ports.Event. The payload is kept raw so
// consumers decode only the event types they handle.
type CycleEvent struct {
	Type      string          `json:"type"`
	CycleID   string          `json:"cycle_id"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// ThresholdPayload accompanies budget.threshold_crossed events.
type ThresholdPayload struct {
	Thresholds  []float64 `json:"thresholds"`
	PercentUsed float64   `json:"percent_used"`
	Spent       float64   `json:"spent"`
	Limit       float64   `json:"limit"`
}

// ExpensePayload accompanies expense.added events.
type ExpensePayload struct {
	IDs    []string `json:"ids"`
	Total  float64  `json:"total"`
	Source string   `json:"source"`
}

// CycleClosedPayload accompanies cycle.closed events.
type CycleClosedPayload struct {
	TotalSpent   float64 `json:"total_spent"`
	BudgetLimit  float64 `json:"budget_limit"`
	PercentUsed  float64 `json:"percent_used"`
	ExpenseCount int     `json:"expense_count"`
	Trend        string  `json:"trend"`
}

// NewCycleEvent encodes e for publishing. A zero timestamp is set to now.
func NewCycleEvent(e ports.Event) (*CycleEvent, error) {
	if !knownEventType(e.Type) {
		return nil, fmt.Errorf("unknown event type %q", e.Type)
	}
	msg := &CycleEvent{
		Type:      e.Type,
		CycleID:   e.CycleID,
		Timestamp: e.Timestamp,
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	if e.Payload != nil {
		raw, err := json.Marshal(e.Payload)
		if err != nil {
			return nil, fmt.Errorf("marshal payload: %w", err)
		}
		msg.Payload = raw
	}
	return msg, nil
}

func (m *CycleEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// DecodePayload unmarshals the payload into v.
func (m *CycleEvent) DecodePayload(v any) error {
	if len(m.Payload) == 0 {
		return fmt.Errorf("event %s has no payload", m.Type)
	}
	return json.Unmarshal(m.Payload, v)
}

func CycleEventFromJSON(data []byte) (*CycleEvent, error) {
	var msg CycleEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if !knownEventType(msg.Type) {
		return nil, fmt.Errorf("unknown event type %q", msg.Type)
	}
	return &msg, nil
}

func knownEventType(t string) bool {
	switch t {
	case ports.EventExpenseAdded, ports.EventThresholdCrossed, ports.EventCycleClosed:
		return true
	default:
		return false
	}
}
