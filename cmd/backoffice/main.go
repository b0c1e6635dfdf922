package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"backoffice/internal/app"
	"backoffice/internal/cli"
	"backoffice/internal/log"
)

func main() {
	cfg, logger := cli.LoadAndValidateConfig(log.ComponentApp)
	logger.Info("Starting backoffice server")

	a, err := app.New(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize back office", "error", err)
		os.Exit(1)
	}

	// Catch up on invoices that fell due while the server was down.
	if n, err := a.Invoices.SweepOverdue(context.Background()); err != nil {
		logger.Warn("Startup overdue sweep failed", "error", err)
	} else if n > 0 {
		logger.Info("Startup overdue sweep complete", "invoices_marked", n)
	}

	srv := a.Server()
	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		if err := a.Close(); err != nil {
			logger.Error("Failed to release resources", "error", err)
		}
	})

	go srv.RunLimiterCleanup(ctx, time.Minute)
	go a.RunMaintenance(ctx, time.Minute)

	logger.Info("Listening", "addr", srv.Addr, "backend", cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "addr", srv.Addr)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
