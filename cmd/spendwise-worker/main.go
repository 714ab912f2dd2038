package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"spendwise/internal/amqp"
	"spendwise/internal/backend"
	"spendwise/internal/cli"
	"spendwise/internal/log"
	"spendwise/internal/ports"
	"spendwise/internal/services"
	gsheet "spendwise/internal/sheets/google"
	"spendwise/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), log.ComponentWorker)
	logger.Info("Starting spendwise-worker")
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
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", log.FieldError, err)
		}
	}()

	cycles := services.NewCycleService(res.Store, res.Store, services.WithLocation(loc))

	var exporter ports.SummaryExporter
	if cfg.SheetsEnabled() {
		client, err := gsheet.New(context.Background(), gsheet.Config{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			SheetName:       cfg.GoogleSummarySheetName,
			CredentialsJSON: cfg.GoogleServiceAccountJSON,
			CredentialsFile: cfg.GoogleServiceAccountFile,
		})
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
			os.Exit(1)
		}
		exporter = client
		logger.Info("Google Sheets export enabled",
			"spreadsheet_id", cfg.GoogleSpreadsheetID,
			"sheet", cfg.GoogleSummarySheetName)
	} else {
		logger.Info("Google Sheets export disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	reporter := worker.NewCycleReporter(cycles, exporter, res.Publisher, logger)
	if id, err := reporter.Prime(ctx); err != nil {
		logger.Error("Failed to determine last closed cycle", log.FieldError, err)
		os.Exit(1)
	} else if id != "" {
		logger.Info("Reporting cycles closed after", log.FieldCycleID, id)
	} else {
		logger.Info("Last closed cycle will be checked against the export on the next run")
	}

	scheduler, err := worker.NewScheduler(ctx, cfg.ReportSchedule, loc, func(ctx context.Context) error {
		_, err := reporter.Run(ctx)
		return err
	}, logger)
	if err != nil {
		logger.Error("Failed to schedule cycle reports", log.FieldError, err)
		os.Exit(1)
	}
	scheduler.Start()

	g, gctx := errgroup.WithContext(ctx)
	if client, ok := res.Publisher.(*amqp.Client); ok {
		handler := worker.NewEventHandler(logger, cycles)
		g.Go(func() error {
			err := client.Consume(gctx, handler.Handle)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	} else {
		logger.Info("AMQP disabled - cycle events will not be consumed")
	}

	if err := g.Wait(); err != nil {
		logger.Error("Event consumer stopped", log.FieldError, err)
	}
	cli.WaitForShutdown(ctx, done)

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	scheduler.Stop(stopCtx)
	logger.Info("Worker stopped gracefully")
}
