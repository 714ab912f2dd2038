package core

import (
	"sort"

	"github.com/shopspring/decimal"
)

// TopExpenseCount is how many of the largest expenses a summary keeps.
const TopExpenseCount = 5

// CategorySpending aggregates one category's expenses within a cycle.
type CategorySpending struct {
	CategoryID     string
	CategoryName   string
	Amount         float64
	ExpenseCount   int
	PercentOfTotal float64
}

// CycleSummary is the aggregated picture of one billing cycle.
type CycleSummary struct {
	Cycle             BillingCycle
	CycleID           string
	TotalSpent        float64
	BudgetLimit       float64
	PercentUsed       float64
	IsOverBudget      bool
	ExpenseCount      int
	AvgDailySpending  float64
	CategoryBreakdown []CategorySpending
	TopExpenses       []Expense
}

// Summarize reduces expenses into a CycleSummary for cycle.
//
// Expenses dated outside the cycle window are dropped before aggregation, so
// callers that over-fetch never double count. Categories are resolved against
// catalog; unknown ids are named UnknownCategoryName. The input slice is not
// reordered.
func Summarize(cycle BillingCycle, expenses []Expense, budgetLimit float64, catalog []Category) CycleSummary {
	inCycle := make([]Expense, 0, len(expenses))
	for _, e := range expenses {
		if CycleContains(cycle, e.Date) {
			inCycle = append(inCycle, e)
		}
	}

	type bucket struct {
		amount decimal.Decimal
		count  int
	}
	total := decimal.Zero
	buckets := make(map[string]*bucket)
	order := make([]string, 0)
	for _, e := range inCycle {
		amt := decimal.NewFromFloat(e.Amount)
		total = total.Add(amt)
		b, ok := buckets[e.Category]
		if !ok {
			b = &bucket{amount: decimal.Zero}
			buckets[e.Category] = b
			order = append(order, e.Category)
		}
		b.amount = b.amount.Add(amt)
		b.count++
	}
	totalSpent := total.InexactFloat64()

	breakdown := make([]CategorySpending, 0, len(order))
	for _, id := range order {
		b := buckets[id]
		amount := b.amount.InexactFloat64()
		breakdown = append(breakdown, CategorySpending{
			CategoryID:     id,
			CategoryName:   CategoryName(catalog, id),
			Amount:         amount,
			ExpenseCount:   b.count,
			PercentOfTotal: percentOf(amount, totalSpent),
		})
	}
	sort.SliceStable(breakdown, func(i, j int) bool {
		return breakdown[i].Amount > breakdown[j].Amount
	})

	return CycleSummary{
		Cycle:             cycle,
		CycleID:           CycleID(cycle),
		TotalSpent:        totalSpent,
		BudgetLimit:       budgetLimit,
		PercentUsed:       percentOf(totalSpent, budgetLimit),
		IsOverBudget:      totalSpent > budgetLimit,
		ExpenseCount:      len(inCycle),
		AvgDailySpending:  ratio(totalSpent, float64(cycle.DaysElapsed)),
		CategoryBreakdown: breakdown,
		TopExpenses:       topExpenses(inCycle, TopExpenseCount),
	}
}

// topExpenses returns the n largest expenses, ties kept in input order.
func topExpenses(expenses []Expense, n int) []Expense {
	sorted := make([]Expense, len(expenses))
	copy(sorted, expenses)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Amount > sorted[j].Amount
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

// LargestExpense is the amount of the biggest expense, or 0 when there are none.
func (s CycleSummary) LargestExpense() float64 {
	if len(s.TopExpenses) == 0 {
		return 0
	}
	return s.TopExpenses[0].Amount
}

// TopCategory returns the highest-spend category, if any.
func (s CycleSummary) TopCategory() (CategorySpending, bool) {
	if len(s.CategoryBreakdown) == 0 {
		return CategorySpending{}, false
	}
	return s.CategoryBreakdown[0], true
}

// percentOf returns part/whole*100, or 0 when whole is not positive.
func percentOf(part, whole float64) float64 {
	return ratio(part, whole) * 100
}

func ratio(num, den float64) float64 {
	if den <= 0 {
		return 0
	}
	return num / den
}
