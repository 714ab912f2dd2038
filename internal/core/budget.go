package core

import (
	"math"
	"sort"
)

const (
	BudgetGood    BudgetHealth = "good"
	BudgetWarning BudgetHealth = "warning"
	BudgetDanger  BudgetHealth = "danger"
)

// warningShare is the fraction of the limit below which remaining budget is a warning.
const warningShare = 0.1

type BudgetHealth string

// BudgetStatus is the compact "how am I doing" view of the current cycle.
type BudgetStatus struct {
	Spent         float64
	Limit         float64
	Remaining     float64
	PercentUsed   float64 // rounded to a whole percent
	DaysRemaining int
	DailyBudget   float64 // whole units that can still be spent per remaining day
	Status        BudgetHealth
}

// StatusOf derives a BudgetStatus from a cycle summary.
func StatusOf(s CycleSummary) BudgetStatus {
	remaining := s.BudgetLimit - s.TotalSpent

	var daily float64
	if s.Cycle.DaysRemaining > 0 && remaining > 0 {
		daily = math.Floor(remaining / float64(s.Cycle.DaysRemaining))
	}

	health := BudgetGood
	switch {
	case remaining < 0:
		health = BudgetDanger
	case remaining < s.BudgetLimit*warningShare:
		health = BudgetWarning
	}

	return BudgetStatus{
		Spent:         s.TotalSpent,
		Limit:         s.BudgetLimit,
		Remaining:     remaining,
		PercentUsed:   math.Round(s.PercentUsed),
		DaysRemaining: s.Cycle.DaysRemaining,
		DailyBudget:   daily,
		Status:        health,
	}
}

// CrossedThresholds returns, in ascending order, the thresholds t with
// previous < t <= current.
func CrossedThresholds(previous, current float64, thresholds []float64) []float64 {
	crossed := make([]float64, 0)
	for _, t := range thresholds {
		if previous < t && t <= current {
			crossed = append(crossed, t)
		}
	}
	sort.Float64s(crossed)
	return crossed
}
