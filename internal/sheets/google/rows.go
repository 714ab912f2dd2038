package google

import (
	"time"

	"spendwise/internal/core"
)

// lastColumn is the column of the final summary field.
const lastColumn = "J"

func summaryHeader() []any {
	return []any{
		"Cycle", "Start", "End", "Total Spent", "Budget",
		"Percent Used", "Expenses", "Avg Daily", "Top Category", "Trend",
	}
}

// summaryRow lays out s in header order. Amounts are rounded to cents and
// dates use the cycle's own calendar days.
func summaryRow(s core.CycleSummary, trend core.Trend) []any {
	id := s.CycleID
	if id == "" {
		id = core.CycleID(s.Cycle)
	}
	top := ""
	if c, ok := s.TopCategory(); ok {
		top = c.CategoryName
	}
	return []any{
		id,
		s.Cycle.StartDate.Format(time.DateOnly),
		s.Cycle.EndDate.Format(time.DateOnly),
		core.RoundAmount(s.TotalSpent, 2),
		core.RoundAmount(s.BudgetLimit, 2),
		core.RoundAmount(s.PercentUsed, 1),
		s.ExpenseCount,
		core.RoundAmount(s.AvgDailySpending, 2),
		top,
		string(trend),
	}
}
