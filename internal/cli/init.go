// Package cli provides the process bootstrap shared by every command:
// logging, environment, configuration, store wiring and shutdown.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"moneydrain/internal/amqp"
	"moneydrain/internal/backend"
	"moneydrain/internal/config"
	"moneydrain/internal/export/sheets"
	"moneydrain/internal/log"
	"moneydrain/internal/services"
)

// SetupLogger installs a text logger at the given level as the default.
// Logs go to w so command output on stdout stays clean.
func SetupLogger(w io.Writer, level string) (*slog.Logger, error) {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	logger := log.NewText(w, lvl, log.ComponentApp)
	log.SetDefault(logger)
	return logger.Logger, nil
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration from the environment and
// validates it.
func LoadAndValidateConfig() (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// App bundles the wired ledger service with the resources it holds.
type App struct {
	Config    *config.Config
	Service   *services.LedgerService
	Publisher *amqp.Client

	closeStore backend.CleanupFunc
}

// OpenApp creates the configured store, initializes it and wraps it in a
// LedgerService. AMQP publishing is enabled when AMQP_URL is set; a broker
// that cannot be reached only disables events.
func OpenApp(ctx context.Context, logger *slog.Logger, cfg *config.Config) (*App, error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, fmt.Errorf("create backend: %w", err)
	}

	app := &App{Config: cfg, closeStore: res.Cleanup}
	var publisher services.EventPublisher
	if cfg.AMQPEnabled() {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without events", "error", err)
		} else {
			logger.Info("Initialized AMQP client", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
			app.Publisher = client
			publisher = client
		}
	}

	app.Service = services.NewLedgerService(res.Store, publisher)
	if err := app.Service.Init(ctx); err != nil {
		app.Close()
		return nil, err
	}
	logger.Debug("Ledger ready", "backend", bcfg.Type)
	return app, nil
}

// Close releases the publisher and the store.
func (a *App) Close() {
	if a.Publisher != nil {
		if err := a.Publisher.Close(); err != nil {
			slog.Warn("Failed to close AMQP client", "error", err)
		}
	}
	if a.closeStore != nil {
		if err := a.closeStore(); err != nil {
			slog.Warn("Failed to close store", "error", err)
		}
	}
}

// NewSheetsExporter builds a Google Sheets exporter from the configuration.
func NewSheetsExporter(ctx context.Context, cfg *config.Config) (*sheets.Exporter, error) {
	return sheets.New(ctx, sheets.Config{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		SheetName:       cfg.GoogleSheetName,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: cfg.GoogleServiceAccountFile,
	})
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(parent context.Context, logger *slog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}
