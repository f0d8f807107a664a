package cli

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moneydrain/internal/config"
	"moneydrain/internal/core"
)

func TestSetupLogger(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	logger, err := SetupLogger(&buf, "warn")
	require.NoError(t, err)

	logger.Info("hidden")
	slog.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")

	_, err = SetupLogger(&buf, "loud")
	assert.Error(t, err)
}

func TestOpenAppMemory(t *testing.T) {
	ctx := context.Background()
	cfg := &config.Config{DataBackend: "memory", AMQPExchange: "moneydrain", AMQPQueue: "ledger_events"}

	app, err := OpenApp(ctx, slog.Default(), cfg)
	require.NoError(t, err)
	defer app.Close()

	assert.Nil(t, app.Publisher)
	tx, err := app.Service.AddTransaction(ctx, core.NewTransaction{
		Amount:   decimal.NewFromInt(9),
		Type:     core.Expense,
		Category: "Health",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, tx.CategoryIcon)
}

func TestAppCloseReleasesStore(t *testing.T) {
	ctx := context.Background()
	cfg := &config.Config{
		DataBackend:  "sqlite",
		SQLiteDBPath: filepath.Join(t.TempDir(), "ledger.db"),
		AMQPExchange: "moneydrain",
		AMQPQueue:    "ledger_events",
	}

	app, err := OpenApp(ctx, slog.Default(), cfg)
	require.NoError(t, err)
	_, err = app.Service.Balance(ctx)
	require.NoError(t, err)

	app.Close()
	_, err = app.Service.Balance(ctx)
	assert.Error(t, err)
}

func TestOpenAppInvalidBackend(t *testing.T) {
	_, err := OpenApp(context.Background(), slog.Default(), &config.Config{DataBackend: "sheets"})
	assert.Error(t, err)
}

func TestSignalContextCancel(t *testing.T) {
	ctx, cancel := SignalContext(context.Background(), slog.Default())
	cancel()
	<-ctx.Done()
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
}
