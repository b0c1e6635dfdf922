package main

import (
	"context"
	"os"
	"time"

	"backoffice/internal/app"
	"backoffice/internal/cli"
	"backoffice/internal/config"
	"backoffice/internal/log"
	"backoffice/internal/worker"
)

func main() {
	cfg, logger := cli.LoadAndValidateConfig(log.ComponentScheduler)
	logger.Info("Starting overdue-worker", "schedule", cfg.OverdueSchedule)

	if cfg.DataBackend == config.BackendMemory {
		logger.Warn("Memory backend selected, the worker cannot see records of other processes")
	}

	a, err := app.New(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize back office", "error", err)
		os.Exit(1)
	}

	scheduler, err := worker.NewOverdueScheduler(cfg.OverdueSchedule, a.Invoices.SweepOverdue)
	if err != nil {
		logger.Error("Failed to create scheduler", "error", err)
		os.Exit(1)
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(context.Context) {
		if err := a.Close(); err != nil {
			logger.Error("Failed to release resources", "error", err)
		}
	})

	scheduler.Run(ctx)
	cli.WaitForShutdown(ctx, done)
	logger.Info("Overdue-worker shutdown complete")
}
