package commands

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"moneydrain/internal/cache"
	"moneydrain/internal/cli"
	apphttp "moneydrain/internal/http"
	"moneydrain/internal/log"
)

const cacheSweepInterval = 10 * time.Minute

func newServeCommand(rt *runtime) *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the ledger as a JSON API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if port == "" {
				port = rt.cfg.Port
			}
			ctx, cancel := cli.SignalContext(cmd.Context(), rt.logger)
			defer cancel()
			cmd.SetContext(ctx)

			return rt.withApp(cmd, func(ctx context.Context, app *cli.App) error {
				caches := cache.NewManager()
				caches.Register(app.Service.CategoryCache())
				caches.StartCleanup(cacheSweepInterval)
				defer caches.Stop()

				srv := apphttp.NewServer(":"+port, app.Service, apphttp.Options{
					RateLimitPerMinute: rt.cfg.RateLimitPerMinute,
					Currency:           rt.cfg.Currency,
					Logger:             log.NewText(cmd.ErrOrStderr(), rt.level, log.ComponentHTTP),
				})

				errCh := make(chan error, 1)
				go func() {
					rt.logger.Info("Starting moneydrain server", "port", port, "backend", rt.cfg.DataBackend)
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						errCh <- err
					}
					close(errCh)
				}()

				select {
				case err := <-errCh:
					if err != nil {
						rt.logger.Error("Server error", "error", err, "port", port)
						return err
					}
				case <-ctx.Done():
				}

				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), rt.cfg.ShutdownTimeout)
				defer shutdownCancel()
				if err := srv.Shutdown(shutdownCtx); err != nil {
					rt.logger.Error("Server shutdown error", "error", err)
					return err
				}
				rt.logger.Info("Server stopped gracefully")
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "", "listen port (overrides PORT)")

	return cmd
}
