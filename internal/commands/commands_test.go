package commands

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moneydrain/internal/export/sheets"
)

var fixedNow = time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

func setupEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATA_BACKEND", "sqlite")
	t.Setenv("SQLITE_DB_PATH", filepath.Join(t.TempDir(), "ledger.db"))
	t.Setenv("CURRENCY", "USD")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("SEED_CATEGORIES_FILE", "")
	t.Setenv("AMQP_URL", "")
	t.Setenv("GOOGLE_SPREADSHEET_ID", "")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", "")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", "")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCommand(func() time.Time { return fixedNow })
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := run(t, args...)
	require.NoError(t, err, "moneydrain %s", strings.Join(args, " "))
	return out
}

func TestInitSeedsCategories(t *testing.T) {
	setupEnv(t)

	out := mustRun(t, "init")
	assert.Equal(t, "Ledger ready (sqlite backend, 12 categories).\n", out)

	out = mustRun(t, "categories", "list", "--type", "income")
	assert.Contains(t, out, "Salary")
	assert.NotContains(t, out, "Shopping")
}

func TestAddListAndBalance(t *testing.T) {
	setupEnv(t)

	out := mustRun(t, "add", "2500", "--type", "income", "--category", "Salary", "--date", "2025-06-01")
	assert.Equal(t, "Added #1 +$2,500 Salary on Jun 1, 2025\n", out)
	mustRun(t, "add", "12,5", "-c", "Food & Dining", "-n", "lunch", "-d", "2025-06-14")
	mustRun(t, "add", "40", "-c", "Transportation", "-d", "2025-04-20")

	out = mustRun(t, "list")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], "AMOUNT")
	assert.Contains(t, lines[1], "Yesterday")
	assert.Contains(t, lines[1], "-$12.5")
	assert.Contains(t, lines[1], "lunch")
	assert.Contains(t, lines[3], "Apr 20, 2025")

	out = mustRun(t, "list", "--limit", "1", "--offset", "1")
	assert.Contains(t, out, "Salary")
	assert.NotContains(t, out, "lunch")

	out = mustRun(t, "balance")
	assert.Contains(t, out, "$2,500")
	assert.Contains(t, out, "$52.5")
	assert.Contains(t, out, "$2,447.5")

	out = mustRun(t, "month", "2025-04")
	assert.Contains(t, out, "April 2025")
	assert.Contains(t, out, "Transportation")
	assert.NotContains(t, out, "Salary")
}

func TestAddRejectsInvalidInput(t *testing.T) {
	setupEnv(t)

	_, err := run(t, "add", "-3", "-c", "Other")
	assert.Error(t, err)

	_, err = run(t, "add", "3", "-c", "Salary")
	assert.Error(t, err, "expense into an income category")

	_, err = run(t, "add", "3", "-c", "Other", "-d", "15/06/2025")
	assert.Error(t, err)

	_, err = run(t, "add", "3")
	assert.Error(t, err, "category flag is required")
}

func TestStats(t *testing.T) {
	setupEnv(t)
	mustRun(t, "add", "100", "-c", "Shopping", "-d", "2025-06-02")
	mustRun(t, "add", "25", "-c", "Health", "-d", "2025-06-03")
	mustRun(t, "add", "1000", "-t", "income", "-c", "Freelance", "-d", "2025-06-04")

	out := mustRun(t, "stats")
	assert.Contains(t, out, "June 2025")
	assert.Contains(t, out, "$875")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	last := lines[len(lines)-2:]
	assert.Contains(t, last[0], "Shopping")
	assert.Contains(t, last[0], "100%")
	assert.Contains(t, last[1], "Health")
	assert.Contains(t, last[1], "25%")

	out = mustRun(t, "stats", "2025-01")
	assert.Contains(t, out, "No expenses this month.")

	_, err := run(t, "stats", "June")
	assert.Error(t, err)
}

func TestDeleteAndClear(t *testing.T) {
	setupEnv(t)
	mustRun(t, "add", "5", "-c", "Other", "-d", "2025-06-10")
	mustRun(t, "add", "6", "-c", "Other", "-d", "2025-06-11")

	assert.Equal(t, "Deleted #1\n", mustRun(t, "delete", "1"))

	_, err := run(t, "delete", "x")
	assert.Error(t, err)

	_, err = run(t, "clear")
	assert.Error(t, err)

	assert.Equal(t, "Deleted 1 transactions\n", mustRun(t, "clear", "--yes"))
	assert.Equal(t, "No transactions.\n", mustRun(t, "list"))
}

func TestCategoriesAddAndDelete(t *testing.T) {
	setupEnv(t)

	out := mustRun(t, "categories", "add", "Pets", "--color", "#aabbcc", "--icon", "🐶")
	assert.Equal(t, "Added category #13 Pets (expense)\n", out)

	_, err := run(t, "categories", "add", "Pets")
	assert.Error(t, err)

	mustRun(t, "add", "9", "-c", "Pets", "-d", "2025-06-12")
	mustRun(t, "categories", "delete", "13")

	out = mustRun(t, "categories", "list")
	assert.NotContains(t, out, "Pets")

	out = mustRun(t, "list")
	assert.Contains(t, out, "🐶 Pets", "transactions keep their category snapshot")
}

func TestExportCSV(t *testing.T) {
	setupEnv(t)
	mustRun(t, "add", "7.5", "-c", "Other", "-n", "a \"quoted\" note", "-d", "2025-06-10")

	out := mustRun(t, "export", "csv")
	assert.Equal(t, "Date,Type,Category,Amount,Note\n"+
		`2025-06-10T00:00:00Z,expense,Other,7.50,"a ""quoted"" note"`+"\n", out)

	path := filepath.Join(t.TempDir(), "out.csv")
	out = mustRun(t, "export", "csv", "-o", path)
	assert.Empty(t, out)
	assert.FileExists(t, path)
}

type failingCloser struct {
	bytes.Buffer
	err error
}

func (f *failingCloser) Close() error { return f.err }

func TestCloseAfterReportsCloseError(t *testing.T) {
	diskFull := errors.New("no space left on device")
	write := func(w io.Writer) error {
		_, err := io.WriteString(w, "Date,Type\n")
		return err
	}

	err := closeAfter(&failingCloser{err: diskFull}, "out.csv", write)
	require.ErrorIs(t, err, diskFull)
	assert.Contains(t, err.Error(), "close out.csv")

	writeErr := errors.New("write failed")
	err = closeAfter(&failingCloser{err: diskFull}, "out.csv", func(io.Writer) error { return writeErr })
	assert.ErrorIs(t, err, writeErr)

	wc := &failingCloser{}
	require.NoError(t, closeAfter(wc, "out.csv", write))
	assert.Equal(t, "Date,Type\n", wc.String())
}

func TestExportSheetsRequiresConfiguration(t *testing.T) {
	setupEnv(t)

	_, err := run(t, "export", "sheets")
	assert.True(t, errors.Is(err, sheets.ErrNotConfigured), "got %v", err)
}

func TestEventsRequiresAMQP(t *testing.T) {
	setupEnv(t)

	_, err := run(t, "events")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AMQP_URL")
}

func TestInvalidConfiguration(t *testing.T) {
	setupEnv(t)
	t.Setenv("CURRENCY", "dollars")

	_, err := run(t, "balance")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid currency")
}
