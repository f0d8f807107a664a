package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"moneydrain/internal/cli"
	"moneydrain/internal/core"
	"moneydrain/internal/export"
)

func newExportCommand(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the latest transactions",
	}
	cmd.AddCommand(newExportCSVCommand(rt), newExportSheetsCommand(rt))
	return cmd
}

func newExportCSVCommand(rt *runtime) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "csv",
		Short: fmt.Sprintf("Write up to %d transactions as CSV", export.Limit),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.withApp(cmd, func(ctx context.Context, app *cli.App) error {
				txs, err := app.Service.ExportTransactions(ctx)
				if err != nil {
					return err
				}

				if output == "" || output == "-" {
					err = export.WriteCSV(cmd.OutOrStdout(), txs)
				} else {
					err = writeCSVFile(output, txs)
				}
				if err != nil {
					return err
				}
				rt.logger.Info("Exported transactions", "rows", len(txs), "output", output)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "file to write (default stdout)")

	return cmd
}

func newExportSheetsCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "sheets",
		Short: "Replace the configured Google Sheet with the latest transactions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.withApp(cmd, func(ctx context.Context, app *cli.App) error {
				exporter, err := cli.NewSheetsExporter(ctx, rt.cfg)
				if err != nil {
					return err
				}
				txs, err := app.Service.ExportTransactions(ctx)
				if err != nil {
					return err
				}
				rng, err := exporter.Export(ctx, txs)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Exported %d transactions to %s\n", len(txs), rng)
				return nil
			})
		},
	}
}

func writeCSVFile(path string, txs []core.Transaction) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	return closeAfter(f, path, func(w io.Writer) error { return export.WriteCSV(w, txs) })
}

// closeAfter runs write against wc and always closes it. A close failure
// is reported when the write itself succeeded.
func closeAfter(wc io.WriteCloser, name string, write func(io.Writer) error) error {
	werr := write(wc)
	cerr := wc.Close()
	if werr != nil {
		return werr
	}
	if cerr != nil {
		return fmt.Errorf("close %s: %w", name, cerr)
	}
	return nil
}
