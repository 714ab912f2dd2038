// Package view shapes core values into the JSON documents served by the HTTP
// API and the assistant tools, and parses the dates those clients send.
package view

import (
	"fmt"
	"strings"
	"time"

	"spendwise/internal/core"
)

// DateFormat is used for dates that carry no meaningful time of day.
const DateFormat = "2006-01-02"

type (
	Expense struct {
		ID        string    `json:"id"`
		Amount    float64   `json:"amount"`
		Category  string    `json:"category"`
		Merchant  string    `json:"merchant,omitempty"`
		Note      string    `json:"note,omitempty"`
		Date      time.Time `json:"date"`
		Source    string    `json:"source"`
		CreatedAt time.Time `json:"createdAt"`
	}

	Category struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Icon  string `json:"icon"`
		Color string `json:"color"`
	}

	Cycle struct {
		ID            string    `json:"id"`
		StartDate     time.Time `json:"startDate"`
		EndDate       time.Time `json:"endDate"`
		DaysTotal     int       `json:"daysTotal"`
		DaysElapsed   int       `json:"daysElapsed"`
		DaysRemaining int       `json:"daysRemaining"`
	}

	CategorySpending struct {
		CategoryID     string  `json:"categoryId"`
		CategoryName   string  `json:"categoryName"`
		Icon           string  `json:"icon"`
		Color          string  `json:"color"`
		Amount         float64 `json:"amount"`
		ExpenseCount   int     `json:"expenseCount"`
		PercentOfTotal float64 `json:"percentOfTotal"`
	}

	Summary struct {
		Cycle             Cycle              `json:"cycle"`
		CycleID           string             `json:"cycleId"`
		TotalSpent        float64            `json:"totalSpent"`
		BudgetLimit       float64            `json:"budgetLimit"`
		PercentUsed       float64            `json:"percentUsed"`
		IsOverBudget      bool               `json:"isOverBudget"`
		ExpenseCount      int                `json:"expenseCount"`
		AvgDailySpending  float64            `json:"avgDailySpending"`
		CategoryBreakdown []CategorySpending `json:"categoryBreakdown"`
		TopExpenses       []Expense          `json:"topExpenses"`
	}

	CategoryComparison struct {
		CategoryID    string  `json:"categoryId"`
		CategoryName  string  `json:"categoryName"`
		Cycle1Amount  float64 `json:"cycle1Amount"`
		Cycle2Amount  float64 `json:"cycle2Amount"`
		Difference    float64 `json:"difference"`
		PercentChange float64 `json:"percentChange"`
		Trend         string  `json:"trend"`
	}

	Metric struct {
		Cycle1        float64  `json:"cycle1"`
		Cycle2        float64  `json:"cycle2"`
		Difference    float64  `json:"difference"`
		PercentChange *float64 `json:"percentChange,omitempty"`
	}

	Metrics struct {
		AvgDailySpending Metric `json:"avgDailySpending"`
		LargestExpense   Metric `json:"largestExpense"`
		ExpenseCount     Metric `json:"expenseCount"`
	}

	Comparison struct {
		Cycle1                Summary              `json:"cycle1"`
		Cycle2                Summary              `json:"cycle2"`
		TotalSpentDiff        float64              `json:"totalSpentDiff"`
		TotalSpentDiffPercent float64              `json:"totalSpentDiffPercent"`
		BudgetPerformanceDiff float64              `json:"budgetPerformanceDiff"`
		CategoryComparisons   []CategoryComparison `json:"categoryComparisons"`
		Metrics               Metrics              `json:"metrics"`
		OverallTrend          string               `json:"overallTrend"`
	}

	// Budget is the compact status returned to the assistant and the dashboard.
	Budget struct {
		CycleID       string  `json:"cycleId,omitempty"`
		Spent         float64 `json:"spent"`
		Limit         float64 `json:"limit"`
		Remaining     float64 `json:"remaining"`
		PercentUsed   float64 `json:"percentUsed"`
		DaysRemaining int     `json:"daysRemaining"`
		DailyBudget   float64 `json:"dailyBudget"`
		Status        string  `json:"status"`
	}

	Settings struct {
		MonthlyLimit         float64    `json:"monthlyLimit"`
		BillingDay           int        `json:"billingDay"`
		Currency             string     `json:"currency"`
		Categories           []Category `json:"categories"`
		NotificationsEnabled bool       `json:"notificationsEnabled"`
		AlertThresholds      []float64  `json:"alertThresholds"`
	}
)

func FromExpense(e core.Expense) Expense {
	return Expense{
		ID:        e.ID,
		Amount:    e.Amount,
		Category:  e.Category,
		Merchant:  e.Merchant,
		Note:      e.Note,
		Date:      e.Date,
		Source:    string(e.Source),
		CreatedAt: e.CreatedAt,
	}
}

func FromExpenses(in []core.Expense) []Expense {
	out := make([]Expense, len(in))
	for i, e := range in {
		out[i] = FromExpense(e)
	}
	return out
}

// FromCategories resolves the presentation icon and colour of each category.
func FromCategories(in []core.Category) []Category {
	out := make([]Category, len(in))
	for i, c := range in {
		out[i] = Category{
			ID:    c.ID,
			Name:  c.Name,
			Icon:  string(ResolveIcon(c.Icon)),
			Color: ResolveColor(c.Color, i),
		}
	}
	return out
}

func FromCycle(c core.BillingCycle) Cycle {
	return Cycle{
		ID:            core.CycleID(c),
		StartDate:     c.StartDate,
		EndDate:       c.EndDate,
		DaysTotal:     c.DaysTotal,
		DaysElapsed:   c.DaysElapsed,
		DaysRemaining: c.DaysRemaining,
	}
}

// FromSummary converts s, decorating the breakdown with catalog icons and colours.
func FromSummary(s core.CycleSummary, catalog []core.Category) Summary {
	breakdown := make([]CategorySpending, len(s.CategoryBreakdown))
	for i, cs := range s.CategoryBreakdown {
		icon, color := categoryStyle(catalog, cs.CategoryID)
		breakdown[i] = CategorySpending{
			CategoryID:     cs.CategoryID,
			CategoryName:   cs.CategoryName,
			Icon:           icon,
			Color:          color,
			Amount:         core.RoundAmount(cs.Amount, 2),
			ExpenseCount:   cs.ExpenseCount,
			PercentOfTotal: core.RoundAmount(cs.PercentOfTotal, 2),
		}
	}
	return Summary{
		Cycle:             FromCycle(s.Cycle),
		CycleID:           s.CycleID,
		TotalSpent:        core.RoundAmount(s.TotalSpent, 2),
		BudgetLimit:       s.BudgetLimit,
		PercentUsed:       core.RoundAmount(s.PercentUsed, 2),
		IsOverBudget:      s.IsOverBudget,
		ExpenseCount:      s.ExpenseCount,
		AvgDailySpending:  core.RoundAmount(s.AvgDailySpending, 2),
		CategoryBreakdown: breakdown,
		TopExpenses:       FromExpenses(s.TopExpenses),
	}
}

func FromComparison(c core.CycleComparison, catalog []core.Category) Comparison {
	cats := make([]CategoryComparison, len(c.CategoryComparisons))
	for i, cc := range c.CategoryComparisons {
		cats[i] = CategoryComparison{
			CategoryID:    cc.CategoryID,
			CategoryName:  cc.CategoryName,
			Cycle1Amount:  cc.Cycle1Amount,
			Cycle2Amount:  cc.Cycle2Amount,
			Difference:    core.RoundAmount(cc.Difference, 2),
			PercentChange: core.RoundAmount(cc.PercentChange, 2),
			Trend:         string(cc.Trend),
		}
	}

	m := c.Metrics
	avgPct := core.RoundAmount(m.AvgDailySpending.PercentChange, 2)
	countPct := core.RoundAmount(m.ExpenseCount.PercentChange, 2)
	return Comparison{
		Cycle1:                FromSummary(c.Cycle1, catalog),
		Cycle2:                FromSummary(c.Cycle2, catalog),
		TotalSpentDiff:        core.RoundAmount(c.TotalSpentDiff, 2),
		TotalSpentDiffPercent: core.RoundAmount(c.TotalSpentDiffPercent, 2),
		BudgetPerformanceDiff: core.RoundAmount(c.BudgetPerformanceDiff, 2),
		CategoryComparisons:   cats,
		Metrics: Metrics{
			AvgDailySpending: Metric{
				Cycle1:        core.RoundAmount(m.AvgDailySpending.Cycle1, 2),
				Cycle2:        core.RoundAmount(m.AvgDailySpending.Cycle2, 2),
				Difference:    core.RoundAmount(m.AvgDailySpending.Difference, 2),
				PercentChange: &avgPct,
			},
			LargestExpense: Metric{
				Cycle1:     m.LargestExpense.Cycle1,
				Cycle2:     m.LargestExpense.Cycle2,
				Difference: core.RoundAmount(m.LargestExpense.Difference, 2),
			},
			ExpenseCount: Metric{
				Cycle1:        float64(m.ExpenseCount.Cycle1),
				Cycle2:        float64(m.ExpenseCount.Cycle2),
				Difference:    float64(m.ExpenseCount.Difference),
				PercentChange: &countPct,
			},
		},
		OverallTrend: string(c.OverallTrend),
	}
}

func FromBudget(cycleID string, b core.BudgetStatus) Budget {
	return Budget{
		CycleID:       cycleID,
		Spent:         core.RoundAmount(b.Spent, 2),
		Limit:         b.Limit,
		Remaining:     core.RoundAmount(b.Remaining, 2),
		PercentUsed:   b.PercentUsed,
		DaysRemaining: b.DaysRemaining,
		DailyBudget:   b.DailyBudget,
		Status:        string(b.Status),
	}
}

func FromSettings(s core.Settings) Settings {
	thresholds := s.AlertThresholds
	if thresholds == nil {
		thresholds = []float64{}
	}
	return Settings{
		MonthlyLimit:         s.MonthlyLimit,
		BillingDay:           s.BillingDay,
		Currency:             s.Currency,
		Categories:           FromCategories(s.Categories),
		NotificationsEnabled: s.NotificationsEnabled,
		AlertThresholds:      thresholds,
	}
}

// ToSettings converts a settings document back into core form. Icons and
// colours are stored as given; resolution happens on the way out.
func (s Settings) ToSettings() core.Settings {
	cats := make([]core.Category, len(s.Categories))
	for i, c := range s.Categories {
		cats[i] = core.Category{ID: c.ID, Name: c.Name, Icon: c.Icon, Color: c.Color}
	}
	return core.Settings{
		MonthlyLimit:         s.MonthlyLimit,
		BillingDay:           s.BillingDay,
		Currency:             s.Currency,
		Categories:           cats,
		NotificationsEnabled: s.NotificationsEnabled,
		AlertThresholds:      s.AlertThresholds,
	}
}

func categoryStyle(catalog []core.Category, id string) (icon, color string) {
	for i, c := range catalog {
		if c.ID == id {
			return string(ResolveIcon(c.Icon)), ResolveColor(c.Color, i)
		}
	}
	return string(DefaultIcon), ResolveColor("", len(catalog))
}

// ParseDate accepts RFC 3339 timestamps and plain YYYY-MM-DD dates in loc.
// A plain date used as an end bound covers the whole day. Empty input yields
// the zero time.
func ParseDate(s string, loc *time.Location, endOfDay bool) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if loc == nil {
		loc = time.Local
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.In(loc), nil
	}
	d, err := time.Parse(DateFormat, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("unrecognised date %q", s)
	}
	y, m, day := d.Date()
	if endOfDay {
		return core.StartOfDate(y, m, day+1, loc).Add(-time.Nanosecond), nil
	}
	return core.StartOfDate(y, m, day, loc), nil
}
