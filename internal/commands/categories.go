package commands

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"moneydrain/internal/cli"
	"moneydrain/internal/core"
)

func newCategoriesCommand(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "categories",
		Aliases: []string{"cat"},
		Short:   "Manage categories",
	}
	cmd.AddCommand(newCategoriesListCommand(rt), newCategoriesAddCommand(rt), newCategoriesDeleteCommand(rt))
	return cmd
}

func newCategoriesListCommand(rt *runtime) *cobra.Command {
	var typ string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.withApp(cmd, func(ctx context.Context, app *cli.App) error {
				var (
					cats []core.Category
					err  error
				)
				if typ != "" {
					t, perr := core.ParseTransactionType(typ)
					if perr != nil {
						return perr
					}
					cats, err = app.Service.CategoriesOfType(ctx, t)
				} else {
					cats, err = app.Service.ListCategories(ctx)
				}
				if err != nil {
					return err
				}
				return printCategories(cmd.OutOrStdout(), cats)
			})
		},
	}

	cmd.Flags().StringVarP(&typ, "type", "t", "", "only income or expense categories")

	return cmd
}

func newCategoriesAddCommand(rt *runtime) *cobra.Command {
	var n core.NewCategory
	var typ string

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Create a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := core.ParseTransactionType(typ)
			if err != nil {
				return err
			}
			n.Name = args[0]
			n.Type = t
			return rt.withApp(cmd, func(ctx context.Context, app *cli.App) error {
				c, err := app.Service.AddCategory(ctx, n)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added category #%d %s (%s)\n", c.ID, c.Name, c.Type)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&typ, "type", "t", string(core.Expense), "income or expense")
	cmd.Flags().StringVar(&n.Color, "color", "", "hex color such as #ef4444")
	cmd.Flags().StringVar(&n.Icon, "icon", "", "icon, usually an emoji")

	return cmd
}

func newCategoriesDeleteCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a category; existing transactions keep their snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid id %q", args[0])
			}
			return rt.withApp(cmd, func(ctx context.Context, app *cli.App) error {
				if err := app.Service.DeleteCategory(ctx, id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted category #%d\n", id)
				return nil
			})
		},
	}
}
