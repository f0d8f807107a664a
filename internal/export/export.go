// Package export turns stored transactions into tabular rows for CSV files
// and spreadsheets.
package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"moneydrain/internal/core"
	"moneydrain/internal/ledger"
)

// Limit caps how many of the most recent transactions an export includes.
const Limit = 1000

// DateLayout is the timestamp format written to exported rows.
const DateLayout = time.RFC3339

var Header = []string{"Date", "Type", "Category", "Amount", "Note"}

// Latest loads the transactions an export covers, most recent first.
func Latest(ctx context.Context, r ledger.TransactionReader) ([]core.Transaction, error) {
	txs, err := r.ListTransactions(ctx, Limit, 0)
	if err != nil {
		return nil, fmt.Errorf("load transactions for export: %w", err)
	}
	return txs, nil
}

// Row renders a single transaction in Header order.
func Row(t core.Transaction) []string {
	return []string{
		t.Date.UTC().Format(DateLayout),
		string(t.Type),
		t.Category,
		t.Amount.StringFixed(core.AmountPlaces),
		t.Note,
	}
}

// Rows renders txs without the header.
func Rows(txs []core.Transaction) [][]string {
	out := make([][]string, 0, len(txs))
	for _, t := range txs {
		out = append(out, Row(t))
	}
	return out
}

// WriteCSV writes the header followed by one record per transaction.
func WriteCSV(w io.Writer, txs []core.Transaction) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	if err := cw.WriteAll(Rows(txs)); err != nil {
		return fmt.Errorf("write csv rows: %w", err)
	}
	return nil
}
