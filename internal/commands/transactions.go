package commands

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"moneydrain/internal/cli"
	"moneydrain/internal/core"
	"moneydrain/internal/format"
)

func newInitCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the ledger schema and seed default categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.withApp(cmd, func(ctx context.Context, app *cli.App) error {
				cats, err := app.Service.ListCategories(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Ledger ready (%s backend, %d categories).\n", rt.cfg.DataBackend, len(cats))
				return nil
			})
		},
	}
}

func newAddCommand(rt *runtime) *cobra.Command {
	var (
		typ      string
		category string
		note     string
		date     string
	)

	cmd := &cobra.Command{
		Use:   "add <amount>",
		Short: "Record an income or expense",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := core.ParseAmount(args[0])
			if err != nil {
				return err
			}
			t, err := core.ParseTransactionType(typ)
			if err != nil {
				return err
			}
			n := core.NewTransaction{Amount: amount, Type: t, Category: category, Note: note}
			if date != "" {
				if n.Date, err = time.Parse(time.DateOnly, date); err != nil {
					return &core.ValidationError{Field: "date", Err: fmt.Errorf("want YYYY-MM-DD: %w", err)}
				}
			}

			return rt.withApp(cmd, func(ctx context.Context, app *cli.App) error {
				tx, err := app.Service.AddTransaction(ctx, n)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added #%d %s %s on %s\n",
					tx.ID, format.SignedCurrency(tx, rt.cfg.Currency), tx.Category, format.Date(tx.Date))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&typ, "type", "t", string(core.Expense), "income or expense")
	cmd.Flags().StringVarP(&category, "category", "c", "", "category name (required)")
	_ = cmd.MarkFlagRequired("category")
	cmd.Flags().StringVarP(&note, "note", "n", "", "free-form note")
	cmd.Flags().StringVarP(&date, "date", "d", "", "date as YYYY-MM-DD (default now)")

	return cmd
}

func newListCommand(rt *runtime) *cobra.Command {
	var limit, offset int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the latest transactions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.withApp(cmd, func(ctx context.Context, app *cli.App) error {
				txs, err := app.Service.ListTransactions(ctx, limit, offset)
				if err != nil {
					return err
				}
				return printTransactions(cmd.OutOrStdout(), txs, rt.cfg.Currency, rt.now())
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "maximum rows")
	cmd.Flags().IntVar(&offset, "offset", 0, "rows to skip")

	return cmd
}

func newMonthCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "month [YYYY-MM]",
		Short: "List the transactions of a month",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := rt.parseMonthArg(args)
			if err != nil {
				return err
			}
			return rt.withApp(cmd, func(ctx context.Context, app *cli.App) error {
				txs, err := app.Service.ListTransactionsByMonth(ctx, m.Year, m.Month)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), format.MonthLabel(m))
				return printTransactions(cmd.OutOrStdout(), txs, rt.cfg.Currency, rt.now())
			})
		},
	}
}

func newDeleteCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid id %q", args[0])
			}
			return rt.withApp(cmd, func(ctx context.Context, app *cli.App) error {
				if err := app.Service.DeleteTransaction(ctx, id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted #%d\n", id)
				return nil
			})
		},
	}
}

func newClearCommand(rt *runtime) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every transaction, keeping categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to clear without --yes")
			}
			return rt.withApp(cmd, func(ctx context.Context, app *cli.App) error {
				n, err := app.Service.ClearTransactions(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d transactions\n", n)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "confirm deletion")

	return cmd
}

func newBalanceCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "balance",
		Short: "Show total income, expense and balance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.withApp(cmd, func(ctx context.Context, app *cli.App) error {
				b, err := app.Service.Balance(ctx)
				if err != nil {
					return err
				}
				return printBalance(cmd.OutOrStdout(), b, rt.cfg.Currency)
			})
		},
	}
}

func newStatsCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "stats [YYYY-MM]",
		Short: "Show a month's totals and expense breakdown",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := rt.parseMonthArg(args)
			if err != nil {
				return err
			}
			return rt.withApp(cmd, func(ctx context.Context, app *cli.App) error {
				st, err := app.Service.MonthlyStats(ctx, m.Year, m.Month)
				if err != nil {
					return err
				}
				return printStats(cmd.OutOrStdout(), st, rt.cfg.Currency)
			})
		},
	}
}
