package main

import (
	"context"
	"errors"
	"os"
	"time"

	"backoffice/internal/backend"
	"backoffice/internal/cli"
	"backoffice/internal/log"
	gsheet "backoffice/internal/sheets/google"
	"backoffice/internal/worker"
)

const startupBatchSize = 200

func main() {
	cfg, logger := cli.LoadAndValidateConfig(log.ComponentWorker)
	logger.Info("Starting ledger-worker")

	if cfg.AMQPURL == "" || !cfg.HistoryMirrorEnabled() {
		logger.Error("ledger-worker requires AMQP_URL and GOOGLE_SPREADSHEET_ID")
		os.Exit(1)
	}

	bootCtx := context.Background()
	be := cli.InitBackend(bootCtx, logger, cfg)

	creds, err := cfg.GoogleCredentials()
	if err != nil {
		logger.Error("Failed to read Google credentials", "error", err)
		os.Exit(1)
	}
	sheets, err := gsheet.New(bootCtx, creds, cfg.GoogleSpreadsheetID, cfg.GoogleHistorySheet)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", "error", err)
		os.Exit(1)
	}

	amqpClient, err := backend.NewEventClient(cfg)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(context.Context) {
		if err := amqpClient.Close(); err != nil {
			logger.Error("Failed to close AMQP client", "error", err)
		}
		if err := be.Close(); err != nil {
			logger.Error("Failed to close backend", "error", err)
		}
	})

	mirror := worker.NewMirrorWorker(sheets, be.Store, startupBatchSize)

	logger.Info("Performing startup sync check...")
	if err := mirror.StartupSyncCheck(ctx); err != nil {
		logger.Error("Failed startup sync check", "error", err)
	}

	if err := amqpClient.ConsumeLedgerEntries(ctx, mirror.HandleEntryMessage); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", "error", err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Ledger-worker shutdown complete")
}
