package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"backoffice/internal/app"
	"backoffice/internal/cli"
	"backoffice/internal/core"
	"backoffice/internal/log"
)

var version = "1.0.0"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "backofficectl",
		Short: "Administer the back office from the command line",
		Long: `backofficectl runs back-office operations against the configured record
store: invoice numbering, recurring payment dates, the overdue sweep, the
history ledger and financial totals.

Configuration is read from the environment and an optional .env file, the
same way the server reads it.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newNextNumberCmd(),
		newValidateNumberCmd(),
		newNextPaymentCmd(),
		newSweepCmd(),
		newHistoryCmd(),
		newRevertCmd(),
		newTotalsCmd(),
	)
	return root
}

// withApp opens the configured store for the duration of fn.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	cfg, logger := cli.LoadAndValidateConfig(log.ComponentApp)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

// dateFlag parses an optional YYYY-MM-DD flag, defaulting to now.
func dateFlag(cmd *cobra.Command, name string) (time.Time, error) {
	v, _ := cmd.Flags().GetString(name)
	if v == "" {
		return time.Now(), nil
	}
	d, err := core.ParseDate(v)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --%s: %w", name, err)
	}
	return d.Time, nil
}
