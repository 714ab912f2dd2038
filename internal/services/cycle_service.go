package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"spendwise/internal/cache"
	"spendwise/internal/core"
	"spendwise/internal/ports"
)

// MaxHistory bounds how many past cycles a history request may load.
const MaxHistory = 24

// ErrFutureCycle is returned for cycle ids that start after the current cycle.
var ErrFutureCycle = errors.New("cycle has not started yet")

// CycleService answers billing-cycle questions from stored expenses and the
// current settings. Summaries are cached until the next write.
type CycleService struct {
	expenses ports.ExpenseLister
	settings ports.SettingsStore
	cache    cache.Cache[core.CycleSummary]
	loc      *time.Location
	now      func() time.Time
}

type CycleOption func(*CycleService)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) CycleOption {
	return func(s *CycleService) { s.now = now }
}

// WithLocation sets the zone billing days are evaluated in.
func WithLocation(loc *time.Location) CycleOption {
	return func(s *CycleService) {
		if loc != nil {
			s.loc = loc
		}
	}
}

func WithSummaryCache(c cache.Cache[core.CycleSummary]) CycleOption {
	return func(s *CycleService) { s.cache = c }
}

func NewCycleService(expenses ports.ExpenseLister, settings ports.SettingsStore, opts ...CycleOption) *CycleService {
	s := &CycleService{
		expenses: expenses,
		settings: settings,
		cache:    cache.NewLRUCache[core.CycleSummary](128, 5*time.Minute),
		loc:      time.Local,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Now is the service clock in the billing location.
func (s *CycleService) Now() time.Time {
	return s.now().In(s.loc)
}

// Location is the zone cycles are computed in.
func (s *CycleService) Location() *time.Location {
	return s.loc
}

func (s *CycleService) Settings(ctx context.Context) (core.Settings, error) {
	st, err := s.settings.GetSettings(ctx)
	if err != nil {
		return core.Settings{}, fmt.Errorf("load settings: %w", err)
	}
	return st, nil
}

// UpdateSettings validates and stores st. Cached summaries are dropped since
// the anchor day, limit or catalog may have changed.
func (s *CycleService) UpdateSettings(ctx context.Context, st core.Settings) (core.Settings, error) {
	saved, err := s.settings.SaveSettings(ctx, st)
	if err != nil {
		return core.Settings{}, fmt.Errorf("save settings: %w", err)
	}
	s.Invalidate()
	return saved, nil
}

// Invalidate drops every cached summary.
func (s *CycleService) Invalidate() {
	s.cache.Purge()
}

// CurrentCycle returns the cycle containing now.
func (s *CycleService) CurrentCycle(ctx context.Context) (core.BillingCycle, error) {
	st, err := s.Settings(ctx)
	if err != nil {
		return core.BillingCycle{}, err
	}
	return core.ComputeCycle(st.BillingDay, s.Now()), nil
}

func (s *CycleService) Current(ctx context.Context) (core.CycleSummary, error) {
	st, err := s.Settings(ctx)
	if err != nil {
		return core.CycleSummary{}, err
	}
	return s.summarize(ctx, st, core.ComputeCycle(st.BillingDay, s.Now()))
}

// Summary returns the summary of the cycle identified by id. Past cycles are
// reported as fully elapsed.
func (s *CycleService) Summary(ctx context.Context, id string) (core.CycleSummary, error) {
	st, err := s.Settings(ctx)
	if err != nil {
		return core.CycleSummary{}, err
	}
	cycle, err := s.resolve(st.BillingDay, id)
	if err != nil {
		return core.CycleSummary{}, err
	}
	return s.summarize(ctx, st, cycle)
}

// History returns the current cycle followed by count past cycles, most
// recent first. Cycles are loaded concurrently.
func (s *CycleService) History(ctx context.Context, count int) ([]core.CycleSummary, error) {
	if count < 0 {
		count = 0
	}
	if count > MaxHistory {
		count = MaxHistory
	}
	st, err := s.Settings(ctx)
	if err != nil {
		return nil, err
	}

	now := s.Now()
	cycles := append([]core.BillingCycle{core.ComputeCycle(st.BillingDay, now)},
		core.PastCycles(st.BillingDay, now, count)...)

	summaries := make([]core.CycleSummary, len(cycles))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, c := range cycles {
		g.Go(func() error {
			sum, err := s.summarize(gctx, st, c)
			if err != nil {
				return err
			}
			summaries[i] = sum
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return summaries, nil
}

// Compare reports cycle idA against idB. An empty idA means the current
// cycle; an empty idB means the cycle preceding idA.
func (s *CycleService) Compare(ctx context.Context, idA, idB string) (core.CycleComparison, error) {
	st, err := s.Settings(ctx)
	if err != nil {
		return core.CycleComparison{}, err
	}

	var a core.BillingCycle
	if idA == "" {
		a = core.ComputeCycle(st.BillingDay, s.Now())
	} else if a, err = s.resolve(st.BillingDay, idA); err != nil {
		return core.CycleComparison{}, err
	}

	var b core.BillingCycle
	if idB == "" {
		b = core.PreviousCycle(st.BillingDay, a)
	} else if b, err = s.resolve(st.BillingDay, idB); err != nil {
		return core.CycleComparison{}, err
	}

	var sumA, sumB core.CycleSummary
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		sumA, err = s.summarize(gctx, st, a)
		return err
	})
	g.Go(func() (err error) {
		sumB, err = s.summarize(gctx, st, b)
		return err
	})
	if err := g.Wait(); err != nil {
		return core.CycleComparison{}, err
	}
	return core.Compare(sumA, sumB), nil
}

// Budget returns the budget status of the current cycle with its summary.
func (s *CycleService) Budget(ctx context.Context) (core.BudgetStatus, core.CycleSummary, error) {
	sum, err := s.Current(ctx)
	if err != nil {
		return core.BudgetStatus{}, core.CycleSummary{}, err
	}
	return core.StatusOf(sum), sum, nil
}

// resolve turns a cycle id into the window to summarise: the live view for the
// current cycle and the fully elapsed view for past ones.
func (s *CycleService) resolve(anchorDay int, id string) (core.BillingCycle, error) {
	parsed, err := core.ParseCycleID(id, anchorDay, s.loc)
	if err != nil {
		return core.BillingCycle{}, err
	}
	if core.CycleID(parsed) != id {
		// The id's date is not an anchor day, so it names a day inside parsed.
		return core.BillingCycle{}, fmt.Errorf("%w: %q does not start a cycle with billing day %d",
			core.ErrInvalidCycleID, id, anchorDay)
	}

	now := s.Now()
	switch {
	case core.CycleContains(parsed, now):
		return core.ComputeCycle(anchorDay, now), nil
	case parsed.Closed(now):
		return core.ComputeCycle(anchorDay, parsed.EndDate), nil
	default:
		return core.BillingCycle{}, fmt.Errorf("%w: %s", ErrFutureCycle, id)
	}
}

func (s *CycleService) summarize(ctx context.Context, st core.Settings, c core.BillingCycle) (core.CycleSummary, error) {
	key := fmt.Sprintf("%s|%d|%d|%g", core.CycleID(c), st.BillingDay, c.DaysElapsed, st.MonthlyLimit)
	if sum, ok := s.cache.Get(key); ok {
		return sum, nil
	}

	expenses, err := s.expenses.ListExpenses(ctx, c.StartDate, c.EndDate, 0)
	if err != nil {
		return core.CycleSummary{}, fmt.Errorf("list expenses for cycle %s: %w", core.CycleID(c), err)
	}

	sum := core.Summarize(c, expenses, st.MonthlyLimit, st.Categories)
	s.cache.Set(key, sum)

	slog.DebugContext(ctx, "Cycle summarized",
		"cycle_id", sum.CycleID,
		"expense_count", sum.ExpenseCount,
		"total_spent", sum.TotalSpent)
	return sum, nil
}
