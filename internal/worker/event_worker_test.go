package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moneydrain/internal/amqp"
	"moneydrain/internal/core"
	"moneydrain/internal/ledger/memory"
)

type fakeExporter struct {
	calls int
	rows  int
	err   error
}

func (f *fakeExporter) Export(_ context.Context, txs []core.Transaction) (string, error) {
	f.calls++
	f.rows = len(txs)
	return "Transactions!A1", f.err
}

func seededStore(t *testing.T) *memory.Store {
	t.Helper()
	ctx := context.Background()
	store := memory.New(nil)
	require.NoError(t, store.Init(ctx))
	_, err := store.AddTransaction(ctx, core.NewTransaction{Amount: decimal.NewFromInt(4), Type: core.Expense, Category: "Food"})
	require.NoError(t, err)
	return store
}

func TestHandleEventRefreshesExportOnTransactionChanges(t *testing.T) {
	exp := &fakeExporter{}
	w := NewEventWorker(seededStore(t), exp)
	ctx := context.Background()

	require.NoError(t, w.HandleEvent(ctx, amqp.NewEvent(amqp.TransactionCreated, 1)))
	require.NoError(t, w.HandleEvent(ctx, amqp.NewEvent(amqp.CategoryCreated, 3)))
	require.NoError(t, w.HandleEvent(ctx, amqp.ClearedEvent(1)))

	assert.Equal(t, 2, exp.calls)
	assert.Equal(t, 1, exp.rows)
	assert.Equal(t, map[amqp.EventType]int64{
		amqp.TransactionCreated:  1,
		amqp.CategoryCreated:     1,
		amqp.TransactionsCleared: 1,
	}, w.Counts())
}

func TestHandleEventWithoutExporter(t *testing.T) {
	w := NewEventWorker(seededStore(t), nil)
	require.NoError(t, w.HandleEvent(context.Background(), amqp.NewEvent(amqp.TransactionDeleted, 1)))
	assert.Equal(t, int64(1), w.Counts()[amqp.TransactionDeleted])
}

func TestHandleEventExportFailureRequestsRedelivery(t *testing.T) {
	exp := &fakeExporter{err: errors.New("quota exceeded")}
	w := NewEventWorker(seededStore(t), exp)
	err := w.HandleEvent(context.Background(), amqp.NewEvent(amqp.TransactionCreated, 1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
}
