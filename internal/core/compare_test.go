package core

import (
	"testing"
)

func TestCompare_Totals(t *testing.T) {
	c := march2024()
	day := date(2024, 3, 1)
	a := Summarize(c, []Expense{exp("1", "groceries", 5000, day)}, 10000, DefaultCategories())
	b := Summarize(c, []Expense{exp("2", "groceries", 4000, day)}, 10000, DefaultCategories())

	got := Compare(a, b)
	if !approx(got.TotalSpentDiff, 1000) {
		t.Errorf("TotalSpentDiff = %v, want 1000", got.TotalSpentDiff)
	}
	if !approx(got.TotalSpentDiffPercent, 25) {
		t.Errorf("TotalSpentDiffPercent = %v, want 25", got.TotalSpentDiffPercent)
	}
	if got.OverallTrend != TrendWorsened {
		t.Errorf("OverallTrend = %s, want worsened", got.OverallTrend)
	}
	if !approx(got.BudgetPerformanceDiff, 10) {
		t.Errorf("BudgetPerformanceDiff = %v, want 10", got.BudgetPerformanceDiff)
	}
}

func TestCompare_SelfIsStable(t *testing.T) {
	day := date(2024, 3, 1)
	s := Summarize(march2024(), []Expense{
		exp("1", "groceries", 300, day),
		exp("2", "dining", 120, day),
		exp("3", "fuel", 75.5, day),
	}, 1000, DefaultCategories())

	got := Compare(s, s)
	if got.TotalSpentDiff != 0 || got.TotalSpentDiffPercent != 0 || got.BudgetPerformanceDiff != 0 {
		t.Errorf("non-zero totals comparing a summary with itself: %+v", got)
	}
	if got.OverallTrend != TrendStable {
		t.Errorf("OverallTrend = %s, want stable", got.OverallTrend)
	}
	if len(got.CategoryComparisons) != 3 {
		t.Fatalf("CategoryComparisons len = %d, want 3", len(got.CategoryComparisons))
	}
	for _, cc := range got.CategoryComparisons {
		if cc.Difference != 0 || cc.Trend != TrendStable {
			t.Errorf("category %s: diff %v trend %s", cc.CategoryID, cc.Difference, cc.Trend)
		}
	}
	if got.Metrics.ExpenseCount.Difference != 0 || got.Metrics.LargestExpense.Difference != 0 {
		t.Errorf("metrics not zero: %+v", got.Metrics)
	}
}

func TestCompare_CategoryUnion(t *testing.T) {
	c := march2024()
	day := date(2024, 3, 1)
	a := Summarize(c, []Expense{
		exp("1", "groceries", 3000, day),
		exp("2", "dining", 1000, day),
	}, 10000, DefaultCategories())
	b := Summarize(c, []Expense{
		exp("3", "dining", 2000, day),
		exp("4", "fuel", 500, day),
	}, 10000, DefaultCategories())

	got := Compare(a, b).CategoryComparisons

	want := []struct {
		id    string
		diff  float64
		pct   float64
		trend Trend
	}{
		// New category in cycle 1: the previous amount is zero so the change
		// percentage is guarded to 0.
		{"groceries", 3000, 0, TrendStable},
		{"dining", -1000, -50, TrendImproved},
		{"fuel", -500, -100, TrendImproved},
	}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i, w := range want {
		if got[i].CategoryID != w.id {
			t.Errorf("[%d] CategoryID = %s, want %s", i, got[i].CategoryID, w.id)
			continue
		}
		if !approx(got[i].Difference, w.diff) || !approx(got[i].PercentChange, w.pct) || got[i].Trend != w.trend {
			t.Errorf("[%d] %+v, want diff %v pct %v trend %s", i, got[i], w.diff, w.pct, w.trend)
		}
	}
	if got[2].CategoryName != "Fuel" {
		t.Errorf("fuel name = %q, want Fuel", got[2].CategoryName)
	}
}

func TestCompare_ZeroSummaries(t *testing.T) {
	empty := Summarize(march2024(), nil, 0, nil)
	got := Compare(empty, empty)

	if got.TotalSpentDiffPercent != 0 || got.OverallTrend != TrendStable {
		t.Errorf("got %+v", got)
	}
	if got.CategoryComparisons == nil || len(got.CategoryComparisons) != 0 {
		t.Errorf("CategoryComparisons = %#v, want empty non-nil", got.CategoryComparisons)
	}
	if got.Metrics.AvgDailySpending.PercentChange != 0 || got.Metrics.ExpenseCount.PercentChange != 0 {
		t.Errorf("metrics percent changes should be 0: %+v", got.Metrics)
	}
}

func TestCompare_Metrics(t *testing.T) {
	c := march2024()
	day := date(2024, 3, 1)
	a := Summarize(c, []Expense{
		exp("1", "other", 400, day),
		exp("2", "other", 100, day),
		exp("3", "other", 100, day),
	}, 1000, nil)
	b := Summarize(c, []Expense{
		exp("4", "other", 250, day),
		exp("5", "other", 250, day),
	}, 1000, nil)

	m := Compare(a, b).Metrics
	if m.LargestExpense.Cycle1 != 400 || m.LargestExpense.Cycle2 != 250 || m.LargestExpense.Difference != 150 {
		t.Errorf("LargestExpense = %+v", m.LargestExpense)
	}
	if m.ExpenseCount.Difference != 1 || !approx(m.ExpenseCount.PercentChange, 50) {
		t.Errorf("ExpenseCount = %+v", m.ExpenseCount)
	}
	if !approx(m.AvgDailySpending.Difference, 100.0/25) || !approx(m.AvgDailySpending.PercentChange, 20) {
		t.Errorf("AvgDailySpending = %+v", m.AvgDailySpending)
	}
}

func TestClassifyTrend(t *testing.T) {
	tests := []struct {
		pct  float64
		want Trend
	}{
		{-5.01, TrendImproved},
		{-5, TrendStable},
		{0, TrendStable},
		{5, TrendStable},
		{5.01, TrendWorsened},
		{-100, TrendImproved},
	}
	for _, tt := range tests {
		if got := ClassifyTrend(tt.pct); got != tt.want {
			t.Errorf("ClassifyTrend(%v) = %s, want %s", tt.pct, got, tt.want)
		}
	}
}
