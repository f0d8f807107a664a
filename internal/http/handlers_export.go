package http

import (
	"bytes"
	"fmt"
	"net/http"

	"moneydrain/internal/export"
	"moneydrain/internal/log"
)

// handleExportCSV streams the latest transactions as a CSV download. The
// file is built in memory first so a store failure still yields a JSON
// error instead of a truncated download.
func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	txs, err := s.ledger.ExportTransactions(r.Context())
	if err != nil {
		s.fail(w, r, log.OpExport, err)
		return
	}
	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, txs); err != nil {
		s.fail(w, r, log.OpExport, fmt.Errorf("write csv: %w", err))
		return
	}
	name := fmt.Sprintf("transactions-%s.csv", s.now().UTC().Format("2006-01-02"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
