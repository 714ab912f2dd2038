package core

import (
	"math"
	"sort"
)

const (
	TrendImproved Trend = "improved"
	TrendStable   Trend = "stable"
	TrendWorsened Trend = "worsened"
)

// TrendThreshold is the percent change beyond which spending is no longer stable.
const TrendThreshold = 5.0

// Trend classifies a spending change; less spending is an improvement.
type Trend string

type (
	CategoryComparison struct {
		CategoryID    string
		CategoryName  string
		Cycle1Amount  float64
		Cycle2Amount  float64
		Difference    float64
		PercentChange float64
		Trend         Trend
	}

	MetricComparison struct {
		Cycle1        float64
		Cycle2        float64
		Difference    float64
		PercentChange float64
	}

	AmountComparison struct {
		Cycle1     float64
		Cycle2     float64
		Difference float64
	}

	CountComparison struct {
		Cycle1        int
		Cycle2        int
		Difference    int
		PercentChange float64
	}

	MetricsComparison struct {
		AvgDailySpending MetricComparison
		LargestExpense   AmountComparison
		ExpenseCount     CountComparison
	}

	// CycleComparison is the delta report of Cycle1 (usually the newer cycle)
	// against Cycle2.
	CycleComparison struct {
		Cycle1                CycleSummary
		Cycle2                CycleSummary
		TotalSpentDiff        float64
		TotalSpentDiffPercent float64
		BudgetPerformanceDiff float64
		CategoryComparisons   []CategoryComparison
		Metrics               MetricsComparison
		OverallTrend          Trend
	}
)

// ClassifyTrend maps a percent change onto a Trend using TrendThreshold.
func ClassifyTrend(percentChange float64) Trend {
	switch {
	case percentChange < -TrendThreshold:
		return TrendImproved
	case percentChange > TrendThreshold:
		return TrendWorsened
	default:
		return TrendStable
	}
}

// Compare builds the delta report of a against b. Categories present in
// either breakdown are compared, missing sides counting as zero, and the
// result is ordered by the size of the swing, largest first.
func Compare(a, b CycleSummary) CycleComparison {
	totalDiff := a.TotalSpent - b.TotalSpent
	totalDiffPercent := percentOf(totalDiff, b.TotalSpent)

	return CycleComparison{
		Cycle1:                a,
		Cycle2:                b,
		TotalSpentDiff:        totalDiff,
		TotalSpentDiffPercent: totalDiffPercent,
		BudgetPerformanceDiff: a.PercentUsed - b.PercentUsed,
		CategoryComparisons:   compareCategories(a.CategoryBreakdown, b.CategoryBreakdown),
		Metrics:               compareMetrics(a, b),
		OverallTrend:          ClassifyTrend(totalDiffPercent),
	}
}

func compareCategories(first, second []CategorySpending) []CategoryComparison {
	byID1 := make(map[string]CategorySpending, len(first))
	byID2 := make(map[string]CategorySpending, len(second))
	ids := make([]string, 0, len(first)+len(second))
	for _, c := range first {
		if _, seen := byID1[c.CategoryID]; !seen {
			ids = append(ids, c.CategoryID)
		}
		byID1[c.CategoryID] = c
	}
	for _, c := range second {
		_, inFirst := byID1[c.CategoryID]
		_, seen := byID2[c.CategoryID]
		if !inFirst && !seen {
			ids = append(ids, c.CategoryID)
		}
		byID2[c.CategoryID] = c
	}

	out := make([]CategoryComparison, 0, len(ids))
	for _, id := range ids {
		c1, ok1 := byID1[id]
		c2, ok2 := byID2[id]

		name := UnknownCategoryName
		switch {
		case ok1 && c1.CategoryName != "":
			name = c1.CategoryName
		case ok2 && c2.CategoryName != "":
			name = c2.CategoryName
		}

		diff := c1.Amount - c2.Amount
		pct := percentOf(diff, c2.Amount)
		out = append(out, CategoryComparison{
			CategoryID:    id,
			CategoryName:  name,
			Cycle1Amount:  c1.Amount,
			Cycle2Amount:  c2.Amount,
			Difference:    diff,
			PercentChange: pct,
			Trend:         ClassifyTrend(pct),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return math.Abs(out[i].Difference) > math.Abs(out[j].Difference)
	})
	return out
}

func compareMetrics(a, b CycleSummary) MetricsComparison {
	avgDiff := a.AvgDailySpending - b.AvgDailySpending
	largest1, largest2 := a.LargestExpense(), b.LargestExpense()
	countDiff := a.ExpenseCount - b.ExpenseCount

	return MetricsComparison{
		AvgDailySpending: MetricComparison{
			Cycle1:        a.AvgDailySpending,
			Cycle2:        b.AvgDailySpending,
			Difference:    avgDiff,
			PercentChange: percentOf(avgDiff, b.AvgDailySpending),
		},
		LargestExpense: AmountComparison{
			Cycle1:     largest1,
			Cycle2:     largest2,
			Difference: largest1 - largest2,
		},
		ExpenseCount: CountComparison{
			Cycle1:        a.ExpenseCount,
			Cycle2:        b.ExpenseCount,
			Difference:    countDiff,
			PercentChange: percentOf(float64(countDiff), float64(b.ExpenseCount)),
		},
	}
}
