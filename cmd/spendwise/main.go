package main

import (
	"context"
	"os"
	"time"

	"spendwise/internal/backend"
	"spendwise/internal/cache"
	"spendwise/internal/cli"
	"spendwise/internal/core"
	apphttp "spendwise/internal/http"
	"spendwise/internal/log"
	"spendwise/internal/services"
	"spendwise/internal/tools"
)

const version = "1.0.0"

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

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
	res, err := backend.NewFactory(logger.Logger).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", "backend", cfg.DataBackend, log.FieldError, err)
		os.Exit(1)
	}

	summaries := cache.NewLRUCache[core.CycleSummary](cfg.CacheSize, cfg.CacheTTL)
	cacheLogger := logger.WithComponent(log.ComponentCache)
	cacheManager := cache.NewManager(func(removed int) {
		cacheLogger.Debug("Expired cycle summaries removed", "count", removed)
	})
	cacheManager.Register(summaries)

	cycles := services.NewCycleService(res.Store, res.Store,
		services.WithLocation(loc),
		services.WithSummaryCache(summaries))
	expenses := services.NewExpenseService(res.Store, cycles, res.Publisher)

	toolsHandler := tools.NewHandler(cycles, expenses,
		tools.WithServerInfo(tools.ServerInfo{Name: "spendwise-expense-tracker", Version: version}),
		tools.WithHistoryCount(cfg.HistoryCount),
		tools.WithCurrency(cfg.Currency))

	var ready func(ctx context.Context) error
	if p, ok := res.Store.(interface{ Ping(context.Context) error }); ok {
		ready = p.Ping
	}

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Cycles:       cycles,
		Expenses:     expenses,
		Tools:        toolsHandler,
		Ready:        ready,
		CacheManager: cacheManager,
		Logger:       logger,
		RateLimitRPM: cfg.RateLimitRPM,
		HistoryCount: cfg.HistoryCount,
	})

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", log.FieldError, err)
		}
	})

	logger.Info("Starting spendwise server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"billing_day", cfg.BillingStartDay,
		"timezone", loc.String())
	if err := srv.ListenAndServe(); err != nil {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
