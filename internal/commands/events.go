package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"moneydrain/internal/cli"
	"moneydrain/internal/worker"
)

func newEventsCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "events",
		Short: "Consume ledger change events, refreshing the Google Sheet when configured",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !rt.cfg.AMQPEnabled() {
				return fmt.Errorf("AMQP_URL is not set")
			}
			ctx, cancel := cli.SignalContext(cmd.Context(), rt.logger)
			defer cancel()
			cmd.SetContext(ctx)

			return rt.withApp(cmd, func(ctx context.Context, app *cli.App) error {
				if app.Publisher == nil {
					return fmt.Errorf("AMQP client unavailable")
				}

				var exporter worker.Exporter
				if rt.cfg.SheetsConfigured() {
					sx, err := cli.NewSheetsExporter(ctx, rt.cfg)
					if err != nil {
						return err
					}
					exporter = sx
					rt.logger.Info("Google Sheets export enabled", "spreadsheet_id", rt.cfg.GoogleSpreadsheetID)
				} else {
					rt.logger.Info("Google Sheets disabled - events are only logged")
				}

				w := worker.NewEventWorker(app.Service, exporter)
				err := app.Publisher.Consume(ctx, w.HandleEvent)
				rt.logger.Info("Event worker stopped", "handled", w.Counts())
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			})
		},
	}
}
