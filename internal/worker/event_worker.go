// Package worker consumes ledger change events.
package worker

import (
	"context"
	"fmt"
	"sync"

	"moneydrain/internal/amqp"
	"moneydrain/internal/core"
	"moneydrain/internal/export"
	"moneydrain/internal/ledger"
	"moneydrain/internal/log"
)

// Exporter writes a snapshot of transactions somewhere, returning a
// reference to what was written.
type Exporter interface {
	Export(ctx context.Context, txs []core.Transaction) (string, error)
}

func exportLog(ctx context.Context) *log.Logger {
	return log.FromContext(ctx).WithComponent(log.ComponentExport)
}

// EventWorker logs every ledger event it receives and, when an exporter is
// configured, refreshes the export after each transaction change.
type EventWorker struct {
	reader   ledger.TransactionReader
	exporter Exporter

	mu     sync.Mutex
	counts map[amqp.EventType]int64
}

// NewEventWorker creates a worker. exporter may be nil.
func NewEventWorker(reader ledger.TransactionReader, exporter Exporter) *EventWorker {
	return &EventWorker{
		reader:   reader,
		exporter: exporter,
		counts:   make(map[amqp.EventType]int64),
	}
}

// HandleEvent processes a single event. A returned error asks the broker
// to redeliver it.
func (w *EventWorker) HandleEvent(ctx context.Context, ev *amqp.Event) error {
	exportLog(ctx).InfoContext(ctx, "Processing ledger event",
		"event_id", ev.ID,
		"event_type", ev.Type,
		"entity_id", ev.EntityID,
		"count", ev.Count)

	w.mu.Lock()
	w.counts[ev.Type]++
	w.mu.Unlock()

	if w.exporter == nil || !changesTransactions(ev.Type) {
		return nil
	}
	if err := w.refreshExport(ctx); err != nil {
		exportLog(ctx).ErrorContext(ctx, "Failed to refresh export", "event_id", ev.ID, "error", err)
		return err
	}
	return nil
}

// Counts returns how many events of each type have been handled.
func (w *EventWorker) Counts() map[amqp.EventType]int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make(map[amqp.EventType]int64, len(w.counts))
	for k, v := range w.counts {
		out[k] = v
	}
	return out
}

func (w *EventWorker) refreshExport(ctx context.Context) error {
	txs, err := export.Latest(ctx, w.reader)
	if err != nil {
		return err
	}
	ref, err := w.exporter.Export(ctx, txs)
	if err != nil {
		return fmt.Errorf("export transactions: %w", err)
	}
	exportLog(ctx).InfoContext(ctx, "Export refreshed", "ref", ref, "rows", len(txs))
	return nil
}

func changesTransactions(t amqp.EventType) bool {
	switch t {
	case amqp.TransactionCreated, amqp.TransactionDeleted, amqp.TransactionsCleared:
		return true
	default:
		return false
	}
}
