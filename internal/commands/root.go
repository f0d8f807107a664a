// Package commands defines the moneydrain command line.
package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"moneydrain/internal/buildinfo"
	"moneydrain/internal/cli"
	"moneydrain/internal/config"
	"moneydrain/internal/core"
	"moneydrain/internal/log"
)

// runtime is filled in by the root command before any subcommand runs.
type runtime struct {
	cfg      *config.Config
	logger   *slog.Logger
	level    slog.Level
	logLevel string
	now      func() time.Time
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	return newRootCommand(time.Now)
}

func newRootCommand(now func() time.Time) *cobra.Command {
	rt := &runtime{now: now}

	rootCmd := &cobra.Command{
		Use:     "moneydrain",
		Short:   "Track income and expenses",
		Version: buildinfo.String(),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return rt.setup(cmd)
		},
	}
	rootCmd.PersistentFlags().StringVar(&rt.logLevel, "log-level", "", "log level (overrides LOG_LEVEL)")

	rootCmd.AddCommand(
		newInitCommand(rt),
		newAddCommand(rt),
		newListCommand(rt),
		newMonthCommand(rt),
		newDeleteCommand(rt),
		newClearCommand(rt),
		newBalanceCommand(rt),
		newStatsCommand(rt),
		newCategoriesCommand(rt),
		newExportCommand(rt),
		newServeCommand(rt),
		newEventsCommand(rt),
	)

	return rootCmd
}

func (rt *runtime) setup(cmd *cobra.Command) error {
	cli.LoadEnvFile()
	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		return err
	}
	level := cfg.LogLevel
	if rt.logLevel != "" {
		level = rt.logLevel
	}
	logger, err := cli.SetupLogger(cmd.ErrOrStderr(), level)
	if err != nil {
		return err
	}
	rt.cfg = cfg
	rt.logger = logger
	rt.level, _ = log.ParseLevel(level)
	return nil
}

// withApp opens the configured ledger for the duration of fn.
func (rt *runtime) withApp(cmd *cobra.Command, fn func(ctx context.Context, app *cli.App) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	app, err := cli.OpenApp(ctx, rt.logger, rt.cfg)
	if err != nil {
		return err
	}
	defer app.Close()
	return fn(ctx, app)
}

// parseMonthArg reads an optional YYYY-MM argument, defaulting to the
// current month.
func (rt *runtime) parseMonthArg(args []string) (core.Month, error) {
	if len(args) == 0 {
		return core.MonthOf(rt.now()), nil
	}
	t, err := time.Parse("2006-01", strings.TrimSpace(args[0]))
	if err != nil {
		return core.Month{}, fmt.Errorf("month must look like 2025-06: %w", err)
	}
	return core.MonthOf(t), nil
}
