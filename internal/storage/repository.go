package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"moneydrain/internal/core"
	"moneydrain/internal/ledger"
	"moneydrain/internal/log"
)

// DateLayout is the fixed-width UTC layout of the date column. Fixed width
// keeps lexical and chronological order identical.
const DateLayout = "2006-01-02 15:04:05.000"

func storageLog(ctx context.Context) *log.Logger {
	return log.FromContext(ctx).WithComponent(log.ComponentStorage)
}

type SQLiteRepository struct {
	dsn     string
	db      *sql.DB
	queries *Queries
	seed    []core.NewCategory
	now     func() time.Time
	ready   atomic.Bool
}

var _ ledger.Store = (*SQLiteRepository)(nil)

// NewSQLiteRepository opens the database file at dbPath, creating its
// directory if needed. The schema is created by Init. A nil seed uses
// core.DefaultCategories.
func NewSQLiteRepository(dbPath string, seed []core.NewCategory) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := dbPath + "?_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if seed == nil {
		seed = core.DefaultCategories()
	}
	return &SQLiteRepository{
		dsn:     dsn,
		db:      db,
		queries: New(db),
		seed:    seed,
		now:     time.Now,
	}, nil
}

// WithClock replaces the clock used to stamp transactions without a date.
func (r *SQLiteRepository) WithClock(now func() time.Time) *SQLiteRepository {
	r.now = now
	return r
}

// Init creates the schema if absent and seeds categories when the table is
// empty. Safe to call more than once.
func (r *SQLiteRepository) Init(ctx context.Context) error {
	if _, err := migrateLedger(ctx, r.dsn); err != nil {
		return core.StorageFailure("init", err)
	}
	if err := r.seedCategories(ctx); err != nil {
		return core.StorageFailure("seed categories", err)
	}
	r.ready.Store(true)
	return nil
}

func (r *SQLiteRepository) seedCategories(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed: %w", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)
	count, err := q.CountCategories(ctx)
	if err != nil {
		return fmt.Errorf("count categories: %w", err)
	}
	if count > 0 {
		return nil
	}
	for _, c := range r.seed {
		if _, err := q.CreateCategory(ctx, CreateCategoryParams{
			Name:  c.Name,
			Color: c.Color,
			Icon:  c.Icon,
			Type:  c.Type.String(),
		}); err != nil {
			return fmt.Errorf("insert category %q: %w", c.Name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit seed: %w", err)
	}
	storageLog(ctx).InfoContext(ctx, "Seeded default categories", "count", len(r.seed))
	return nil
}

func (r *SQLiteRepository) Close() error {
	r.ready.Store(false)
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) check() error {
	if !r.ready.Load() {
		return core.ErrStorageUninitialized
	}
	return nil
}

func (r *SQLiteRepository) AddTransaction(ctx context.Context, n core.NewTransaction) (int64, error) {
	n, err := n.Normalize()
	if err != nil {
		return 0, err
	}
	if err := r.check(); err != nil {
		return 0, err
	}
	t := n.Build(0, r.now())
	id, err := r.queries.CreateTransaction(ctx, CreateTransactionParams{
		Amount:        t.Amount.InexactFloat64(),
		Type:          t.Type.String(),
		Category:      t.Category,
		CategoryIcon:  t.CategoryIcon,
		CategoryColor: t.CategoryColor,
		Note:          t.Note,
		Date:          formatDate(t.Date),
	})
	if err != nil {
		return 0, core.StorageFailure("create transaction", err)
	}

	storageLog(ctx).DebugContext(ctx, "Transaction saved to SQLite",
		"id", id,
		"type", t.Type,
		"category", t.Category,
		"amount", t.Amount.StringFixed(core.AmountPlaces))
	return id, nil
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context, limit, offset int) ([]core.Transaction, error) {
	if err := r.check(); err != nil {
		return nil, err
	}
	limit, offset = ledger.Page(limit, offset)
	rows, err := r.queries.ListTransactions(ctx, ListTransactionsParams{Limit: int64(limit), Offset: int64(offset)})
	if err != nil {
		return nil, core.StorageFailure("list transactions", err)
	}
	return toTransactions(rows)
}

func (r *SQLiteRepository) ListTransactionsByMonth(ctx context.Context, year, month int) ([]core.Transaction, error) {
	m, err := core.NewMonth(year, month)
	if err != nil {
		return nil, err
	}
	if err := r.check(); err != nil {
		return nil, err
	}
	rows, err := r.queries.ListTransactionsBetween(ctx, monthRange(m))
	if err != nil {
		return nil, core.StorageFailure("list transactions by month", err)
	}
	return toTransactions(rows)
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id int64) error {
	if err := r.check(); err != nil {
		return err
	}
	if err := r.queries.DeleteTransaction(ctx, id); err != nil {
		return core.StorageFailure("delete transaction", err)
	}
	storageLog(ctx).DebugContext(ctx, "Transaction deleted", "id", id)
	return nil
}

func (r *SQLiteRepository) ClearTransactions(ctx context.Context) (int64, error) {
	if err := r.check(); err != nil {
		return 0, err
	}
	n, err := r.queries.DeleteAllTransactions(ctx)
	if err != nil {
		return 0, core.StorageFailure("clear transactions", err)
	}
	storageLog(ctx).DebugContext(ctx, "All transactions deleted", "count", n)
	return n, nil
}

func (r *SQLiteRepository) Balance(ctx context.Context) (core.Balance, error) {
	if err := r.check(); err != nil {
		return core.Balance{}, err
	}
	totals, err := r.queries.GetTotals(ctx)
	if err != nil {
		return core.Balance{}, core.StorageFailure("get balance", err)
	}
	return core.NewBalance(core.AmountFromFloat(totals.Income), core.AmountFromFloat(totals.Expense)), nil
}

func (r *SQLiteRepository) MonthlyStats(ctx context.Context, year, month int) (core.MonthlyStats, error) {
	m, err := core.NewMonth(year, month)
	if err != nil {
		return core.MonthlyStats{}, err
	}
	if err := r.check(); err != nil {
		return core.MonthlyStats{}, err
	}
	window := monthRange(m)

	totals, err := r.queries.GetTotalsBetween(ctx, window)
	if err != nil {
		return core.MonthlyStats{}, core.StorageFailure("get month totals", err)
	}
	rows, err := r.queries.GetCategoryBreakdown(ctx, window)
	if err != nil {
		return core.MonthlyStats{}, core.StorageFailure("get category breakdown", err)
	}

	b := core.NewBalance(core.AmountFromFloat(totals.Income), core.AmountFromFloat(totals.Expense))
	stats := core.MonthlyStats{
		Year:              m.Year,
		Month:             m.Month,
		Income:            b.Income,
		Expense:           b.Expense,
		Balance:           b.Balance,
		CategoryBreakdown: make([]core.CategoryStat, 0, len(rows)),
	}
	for _, row := range rows {
		stats.CategoryBreakdown = append(stats.CategoryBreakdown, core.CategoryStat{
			Category:      row.Category,
			CategoryIcon:  row.CategoryIcon,
			CategoryColor: row.CategoryColor,
			Total:         core.AmountFromFloat(row.Total),
			Count:         int(row.Count),
		})
	}
	return stats, nil
}

func (r *SQLiteRepository) ListCategories(ctx context.Context) ([]core.Category, error) {
	if err := r.check(); err != nil {
		return nil, err
	}
	rows, err := r.queries.ListCategories(ctx)
	if err != nil {
		return nil, core.StorageFailure("list categories", err)
	}
	out := make([]core.Category, 0, len(rows))
	for _, c := range rows {
		out = append(out, core.Category{
			ID:    c.ID,
			Name:  c.Name,
			Color: c.Color,
			Icon:  c.Icon,
			Type:  core.TransactionType(c.Type),
		})
	}
	return out, nil
}

func (r *SQLiteRepository) AddCategory(ctx context.Context, n core.NewCategory) (int64, error) {
	n, err := n.Normalize()
	if err != nil {
		return 0, err
	}
	if err := r.check(); err != nil {
		return 0, err
	}
	id, err := r.queries.CreateCategory(ctx, CreateCategoryParams{
		Name:  n.Name,
		Color: n.Color,
		Icon:  n.Icon,
		Type:  n.Type.String(),
	})
	if isUniqueViolation(err) {
		return 0, core.ErrDuplicateCategory
	}
	if err != nil {
		return 0, core.StorageFailure("create category", err)
	}
	storageLog(ctx).DebugContext(ctx, "Category created", "id", id, "name", n.Name, "type", n.Type)
	return id, nil
}

func (r *SQLiteRepository) DeleteCategory(ctx context.Context, id int64) error {
	if err := r.check(); err != nil {
		return err
	}
	if err := r.queries.DeleteCategory(ctx, id); err != nil {
		return core.StorageFailure("delete category", err)
	}
	storageLog(ctx).DebugContext(ctx, "Category deleted", "id", id)
	return nil
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return false
}

func monthRange(m core.Month) DateRangeParams {
	start, end := m.Range()
	return DateRangeParams{Start: formatDate(start), End: formatDate(end)}
}

func formatDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

func parseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}

func toTransactions(rows []Transaction) ([]core.Transaction, error) {
	out := make([]core.Transaction, 0, len(rows))
	for _, row := range rows {
		date, err := parseDate(row.Date)
		if err != nil {
			return nil, core.StorageFailure("read transaction", err)
		}
		out = append(out, core.Transaction{
			ID:            row.ID,
			Amount:        core.AmountFromFloat(row.Amount),
			Type:          core.TransactionType(row.Type),
			Category:      row.Category,
			CategoryIcon:  row.CategoryIcon,
			CategoryColor: row.CategoryColor,
			Note:          row.Note,
			Date:          date,
		})
	}
	return out, nil
}
