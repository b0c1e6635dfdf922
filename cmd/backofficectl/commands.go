package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"backoffice/internal/app"
	"backoffice/internal/core"
	"backoffice/internal/ledger"
)

func newNextNumberCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "next-number",
		Short: "Print the next free invoice number for the current month",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				n, err := a.Invoices.NextNumber(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), n)
				return nil
			})
		},
	}
}

func newValidateNumberCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "validate-number <number>",
		Short:   "Check an invoice number of the form N/MM/YYYY",
		Example: "  backofficectl validate-number 3/01/2024 --date 2024-06-01",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			now, err := dateFlag(cmd, "date")
			if err != nil {
				return err
			}
			if err := core.ValidateInvoiceNumber(args[0], now); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is valid\n", args[0])
			return nil
		},
	}
	cmd.Flags().String("date", "", "Reference date (format: YYYY-MM-DD, default: today)")
	return cmd
}

func newNextPaymentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "next-payment <anchor> <frequency>",
		Short:   "Print the next occurrence of a recurring payment",
		Example: "  backofficectl next-payment 2024-01-31 Monthly --today 2024-03-01",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			anchor, err := core.ParseDate(args[0])
			if err != nil {
				return fmt.Errorf("invalid anchor: %w", err)
			}
			today, err := dateFlag(cmd, "today")
			if err != nil {
				return err
			}
			next, err := core.NextOccurrence(anchor, core.DateOf(today), core.Frequency(args[1]))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), next)
			return nil
		},
	}
	cmd.Flags().String("today", "", "Reference date (format: YYYY-MM-DD, default: today)")
	return cmd
}

func newSweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Mark unpaid invoices past their due date as overdue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				n, err := a.Invoices.SweepOverdue(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d invoice(s) marked overdue\n", n)
				return nil
			})
		},
	}
}

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List history entries, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			kind, _ := cmd.Flags().GetString("type")
			limit, _ := cmd.Flags().GetInt("limit")
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				entries, err := a.Ledger.Entries(ctx, kind)
				if err != nil {
					return err
				}
				if limit > 0 && len(entries) > limit {
					entries = entries[:limit]
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tTIME\tUSER\tACTION\tTYPE\tDESCRIPTION\tREVERTIBLE")
				for _, e := range entries {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%t\n",
						e.ID, e.Timestamp.Format("2006-01-02 15:04"), e.User.Name, e.Action, e.Type, e.Description, e.Revertible)
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().String("type", ledger.FilterAll, "Record type to show (Invoice, Expense, Offer, RecurringPayment or all)")
	cmd.Flags().Int("limit", 50, "Maximum number of entries to print (0 for all)")
	return cmd
}

func newRevertCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "revert <entry-id>",
		Short: "Restore the record state captured before a history entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, _ := cmd.Flags().GetString("user")
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				actor := a.DefaultActor()
				if user != "" {
					actor = ledger.Actor{Name: user}
				}
				entry, err := a.Ledger.Revert(ctx, args[0], actor)
				if err != nil && entry.ID == "" {
					return err
				}
				if err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Reverted: %s (entry %s)\n", entry.Description, entry.ID)
				return nil
			})
		},
	}
	cmd.Flags().String("user", "", "Name recorded as the acting user (default: USER_NAME)")
	return cmd
}

func newTotalsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "totals",
		Short: "Print revenue, VAT, expenses and net profit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				sum, err := a.Dashboard.Summary(ctx)
				if err != nil {
					return err
				}
				t, c := sum.Totals, sum.Comparison
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', tabwriter.AlignRight)
				fmt.Fprintf(tw, "Revenue\t%s\t\n", t.Revenue)
				fmt.Fprintf(tw, "VAT\t%s\t\n", t.VAT)
				fmt.Fprintf(tw, "Expenses\t%s\t\n", t.Expenses)
				fmt.Fprintf(tw, "Recurring (accrued)\t%s\t\n", t.AccumulatedRecurring)
				fmt.Fprintf(tw, "Net profit\t%s\t\n", t.NetProfit)
				fmt.Fprintf(tw, "Monthly recurring\t%s\t\n", sum.MonthlyRecurring)
				fmt.Fprintf(tw, "Revenue vs last month\t%+.1f%%\t\n", c.Change.Revenue)
				fmt.Fprintf(tw, "Income vs last month\t%+.1f%%\t\n", c.Change.Income)
				return tw.Flush()
			})
		},
	}
}
