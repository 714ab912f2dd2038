// Command spendwise-report prints the current billing cycle, the cycles
// before it and how the current cycle compares with the previous one.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/schollz/progressbar/v3"

	"spendwise/internal/backend"
	"spendwise/internal/cli"
	"spendwise/internal/core"
	"spendwise/internal/log"
	"spendwise/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(envOr("LOG_LEVEL", "warn"), log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	count := flag.Int("count", cfg.HistoryCount, "number of past cycles to include")
	quiet := flag.Bool("q", false, "hide the progress bar")
	flag.Parse()

	if *count < 0 || *count > services.MaxHistory {
		fmt.Fprintf(os.Stderr, "count must be between 0 and %d\n", services.MaxHistory)
		os.Exit(2)
	}

	loc, err := cfg.Location()
	if err != nil {
		logger.Error("Invalid timezone", "timezone", cfg.Timezone, log.FieldError, err)
		os.Exit(1)
	}
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	// Reports are read-only; events are never published from here.
	backendCfg.AMQPURL = ""

	ctx := context.Background()
	res, err := backend.NewFactory(logger.Logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err)
		os.Exit(1)
	}
	defer res.Cleanup()

	cycles := services.NewCycleService(res.Store, res.Store, services.WithLocation(loc))

	var progress io.Writer = os.Stderr
	if *quiet {
		progress = io.Discard
	}
	rep, err := buildReport(ctx, cycles, *count, progress)
	if err != nil {
		logger.Error("Failed to build report", log.FieldError, err)
		os.Exit(1)
	}
	if err := rep.render(os.Stdout, cfg.Currency); err != nil {
		logger.Error("Failed to write report", log.FieldError, err)
		os.Exit(1)
	}
}

type report struct {
	summaries  []core.CycleSummary // current first
	comparison core.CycleComparison
	status     core.BudgetStatus
}

// buildReport loads the current cycle and count past cycles one at a time so
// progress can be shown.
func buildReport(ctx context.Context, cycles *services.CycleService, count int, progress io.Writer) (report, error) {
	st, err := cycles.Settings(ctx)
	if err != nil {
		return report{}, err
	}
	now := cycles.Now()
	current := core.ComputeCycle(st.BillingDay, now)
	ids := []string{core.CycleID(current)}
	for _, c := range core.PastCycles(st.BillingDay, now, count) {
		ids = append(ids, core.CycleID(c))
	}

	bar := progressbar.NewOptions(len(ids),
		progressbar.OptionSetWriter(progress),
		progressbar.OptionSetDescription("Loading cycles"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish())

	rep := report{summaries: make([]core.CycleSummary, 0, len(ids))}
	for _, id := range ids {
		s, err := cycles.Summary(ctx, id)
		if err != nil {
			return report{}, fmt.Errorf("summarize %s: %w", id, err)
		}
		rep.summaries = append(rep.summaries, s)
		_ = bar.Add(1)
	}
	_ = bar.Finish()

	var previous core.CycleSummary
	if len(rep.summaries) > 1 {
		previous = rep.summaries[1]
	} else {
		prevID := core.CycleID(core.PreviousCycle(st.BillingDay, current))
		if previous, err = cycles.Summary(ctx, prevID); err != nil {
			return report{}, fmt.Errorf("summarize %s: %w", prevID, err)
		}
	}
	rep.comparison = core.Compare(rep.summaries[0], previous)
	rep.status = core.StatusOf(rep.summaries[0])
	return rep, nil
}

func (r report) render(w io.Writer, currency string) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CYCLE\tSTART\tEND\tSPENT\tBUDGET\tUSED\tEXPENSES\tAVG/DAY\tTOP CATEGORY")
	for _, s := range r.summaries {
		top := "-"
		if c, ok := s.TopCategory(); ok {
			top = c.CategoryName
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%.1f%%\t%d\t%s\t%s\n",
			s.CycleID,
			s.Cycle.StartDate.Format("Jan 02"),
			s.Cycle.EndDate.Format("Jan 02"),
			money(currency, s.TotalSpent),
			money(currency, s.BudgetLimit),
			s.PercentUsed,
			s.ExpenseCount,
			money(currency, s.AvgDailySpending),
			top)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	st := r.status
	fmt.Fprintf(w, "\nBudget: %s remaining of %s, %d days left, %s per day (%s)\n",
		money(currency, st.Remaining), money(currency, st.Limit),
		st.DaysRemaining, money(currency, st.DailyBudget), st.Status)

	c := r.comparison
	fmt.Fprintf(w, "Versus %s: %+.2f (%+.1f%%), %s\n",
		c.Cycle2.CycleID, c.TotalSpentDiff, c.TotalSpentDiffPercent, c.OverallTrend)
	for i, cc := range c.CategoryComparisons {
		if i == 3 {
			break
		}
		fmt.Fprintf(w, "  %-16s %+.2f %s\n", cc.CategoryName, cc.Difference, cc.Trend)
	}
	return nil
}

func money(currency string, v float64) string {
	return fmt.Sprintf("%s%.2f", currency, core.RoundAmount(v, 2))
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
