// Package sheets exports transactions to a Google Sheets tab.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"moneydrain/internal/core"
	"moneydrain/internal/export"
	"moneydrain/internal/log"
)

var ErrNotConfigured = errors.New("google sheets export not configured")

func exportLog(ctx context.Context) *log.Logger {
	return log.FromContext(ctx).WithComponent(log.ComponentExport)
}

type Config struct {
	SpreadsheetID string
	SheetName     string
	// Service account credentials, inline JSON takes precedence over the file.
	CredentialsJSON string
	CredentialsFile string
}

// valuesAPI is the slice of the Sheets values service the exporter needs.
type valuesAPI interface {
	Clear(ctx context.Context, spreadsheetID, rng string) error
	Update(ctx context.Context, spreadsheetID, rng string, rows [][]any) (string, error)
}

type Exporter struct {
	values        valuesAPI
	spreadsheetID string
	sheetName     string
}

// New creates an exporter authenticated with service account credentials.
func New(ctx context.Context, cfg Config) (*Exporter, error) {
	spreadsheetID := strings.TrimSpace(cfg.SpreadsheetID)
	if spreadsheetID == "" {
		return nil, fmt.Errorf("%w: missing GOOGLE_SPREADSHEET_ID", ErrNotConfigured)
	}
	svc, err := newSheetsService(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return newExporter(serviceValues{svc: svc}, spreadsheetID, cfg.SheetName), nil
}

func newExporter(values valuesAPI, spreadsheetID, sheetName string) *Exporter {
	sheetName = strings.TrimSpace(sheetName)
	if sheetName == "" {
		sheetName = "Transactions"
	}
	return &Exporter{values: values, spreadsheetID: spreadsheetID, sheetName: sheetName}
}

func newSheetsService(ctx context.Context, cfg Config) (*gsheet.Service, error) {
	credentialsJSON := []byte(strings.TrimSpace(cfg.CredentialsJSON))
	file := strings.TrimSpace(cfg.CredentialsFile)
	if len(credentialsJSON) == 0 && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	switch {
	case len(credentialsJSON) > 0:
		exportLog(ctx).DebugContext(ctx, "Using inline service account credentials")
	case file != "":
		var err error
		credentialsJSON, err = os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		exportLog(ctx).DebugContext(ctx, "Read service account credentials", "path", file, "size", len(credentialsJSON))
	default:
		return nil, fmt.Errorf("%w: set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_APPLICATION_CREDENTIALS", ErrNotConfigured)
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// Export replaces the sheet's A:E columns with the header and one row per
// transaction. It returns the range that was written.
func (e *Exporter) Export(ctx context.Context, txs []core.Transaction) (string, error) {
	if e.values == nil {
		return "", errors.New("sheets service not initialized")
	}

	clearRange := fmt.Sprintf("%s!A:E", quoteSheet(e.sheetName))
	if err := e.values.Clear(ctx, e.spreadsheetID, clearRange); err != nil {
		return "", fmt.Errorf("clear %s: %w", clearRange, err)
	}

	values := make([][]any, 0, len(txs)+1)
	values = append(values, toAny(export.Header))
	for _, row := range export.Rows(txs) {
		values = append(values, toAny(row))
	}

	rng := fmt.Sprintf("%s!A1:E%d", quoteSheet(e.sheetName), len(values))
	updated, err := e.values.Update(ctx, e.spreadsheetID, rng, values)
	if err != nil {
		return "", fmt.Errorf("update %s: %w", rng, err)
	}
	exportLog(ctx).InfoContext(ctx, "Exported transactions to sheet",
		"spreadsheet_id", e.spreadsheetID,
		"range", updated,
		"rows", len(txs))
	return updated, nil
}

// quoteSheet quotes sheet names that A1 notation would otherwise misread.
func quoteSheet(name string) string {
	if strings.ContainsAny(name, " '!:") {
		return "'" + strings.ReplaceAll(name, "'", "''") + "'"
	}
	return name
}

func toAny(row []string) []any {
	out := make([]any, len(row))
	for i, v := range row {
		out[i] = v
	}
	return out
}

type serviceValues struct {
	svc *gsheet.Service
}

func (s serviceValues) Clear(ctx context.Context, spreadsheetID, rng string) error {
	_, err := s.svc.Spreadsheets.Values.Clear(spreadsheetID, rng, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do()
	return err
}

func (s serviceValues) Update(ctx context.Context, spreadsheetID, rng string, rows [][]any) (string, error) {
	// RAW keeps notes starting with "=" from being evaluated as formulas.
	resp, err := s.svc.Spreadsheets.Values.Update(spreadsheetID, rng, &gsheet.ValueRange{Values: rows}).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return "", err
	}
	return resp.UpdatedRange, nil
}
