// Package postgres implements ledger.Store on PostgreSQL through pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"moneydrain/internal/core"
	"moneydrain/internal/ledger"
	"moneydrain/internal/log"
)

const uniqueViolation = "23505"

const schema = `
CREATE TABLE IF NOT EXISTS transactions (
    id             BIGSERIAL PRIMARY KEY,
    amount         NUMERIC(14, 2) NOT NULL CHECK (amount > 0),
    type           TEXT NOT NULL CHECK (type IN ('income', 'expense')),
    category       TEXT NOT NULL,
    category_icon  TEXT NOT NULL DEFAULT '',
    category_color TEXT NOT NULL DEFAULT '',
    note           TEXT NOT NULL DEFAULT '',
    "date"         TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_transactions_date ON transactions ("date" DESC, id DESC);
CREATE TABLE IF NOT EXISTS categories (
    id    BIGSERIAL PRIMARY KEY,
    name  TEXT NOT NULL UNIQUE,
    color TEXT NOT NULL DEFAULT '',
    icon  TEXT NOT NULL DEFAULT '',
    type  TEXT NOT NULL CHECK (type IN ('income', 'expense'))
);`

const transactionColumns = `id, amount::text, type, category, category_icon, category_color, note, "date"`

func storageLog(ctx context.Context) *log.Logger {
	return log.FromContext(ctx).WithComponent(log.ComponentStorage)
}

type Store struct {
	db    *pgxpool.Pool
	seed  []core.NewCategory
	now   func() time.Time
	ready atomic.Bool
}

var _ ledger.Store = (*Store)(nil)

// Connect opens a pool for url and verifies it with a ping.
func Connect(ctx context.Context, url string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.MaxConns = 5
	cfg.MinConns = 1
	cfg.MaxConnIdleTime = 2 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// New wraps pool. The store owns the pool and closes it on Close. A nil seed
// uses core.DefaultCategories.
func New(pool *pgxpool.Pool, seed []core.NewCategory) *Store {
	if seed == nil {
		seed = core.DefaultCategories()
	}
	return &Store{db: pool, seed: seed, now: time.Now}
}

func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func (s *Store) Init(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return core.StorageFailure("init", fmt.Errorf("create schema: %w", err))
	}
	if err := s.seedCategories(ctx); err != nil {
		return core.StorageFailure("seed categories", err)
	}
	s.ready.Store(true)
	return nil
}

func (s *Store) seedCategories(ctx context.Context) error {
	return pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		var count int64
		if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM categories`).Scan(&count); err != nil {
			return fmt.Errorf("count categories: %w", err)
		}
		if count > 0 {
			return nil
		}
		batch := &pgx.Batch{}
		for _, c := range s.seed {
			batch.Queue(`INSERT INTO categories(name, color, icon, type) VALUES ($1, $2, $3, $4)`,
				c.Name, c.Color, c.Icon, c.Type.String())
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert categories: %w", err)
		}
		storageLog(ctx).InfoContext(ctx, "Seeded default categories", "count", len(s.seed))
		return nil
	})
}

func (s *Store) Close() error {
	s.ready.Store(false)
	s.db.Close()
	return nil
}

func (s *Store) check() error {
	if !s.ready.Load() {
		return core.ErrStorageUninitialized
	}
	return nil
}

func (s *Store) AddTransaction(ctx context.Context, n core.NewTransaction) (int64, error) {
	n, err := n.Normalize()
	if err != nil {
		return 0, err
	}
	if err := s.check(); err != nil {
		return 0, err
	}
	t := n.Build(0, s.now())
	var id int64
	err = s.db.QueryRow(ctx,
		`INSERT INTO transactions(amount, type, category, category_icon, category_color, note, "date")
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id`,
		t.Amount.StringFixed(core.AmountPlaces), t.Type.String(), t.Category, t.CategoryIcon,
		t.CategoryColor, t.Note, t.Date,
	).Scan(&id)
	if err != nil {
		return 0, core.StorageFailure("create transaction", err)
	}
	storageLog(ctx).DebugContext(ctx, "Transaction saved to PostgreSQL",
		"id", id,
		"type", t.Type,
		"category", t.Category,
		"amount", t.Amount.StringFixed(core.AmountPlaces))
	return id, nil
}

func (s *Store) ListTransactions(ctx context.Context, limit, offset int) ([]core.Transaction, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	limit, offset = ledger.Page(limit, offset)
	rows, err := s.db.Query(ctx,
		`SELECT `+transactionColumns+`
		   FROM transactions
		  ORDER BY "date" DESC, id DESC
		  LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, core.StorageFailure("list transactions", err)
	}
	return scanTransactions(rows)
}

func (s *Store) ListTransactionsByMonth(ctx context.Context, year, month int) ([]core.Transaction, error) {
	m, err := core.NewMonth(year, month)
	if err != nil {
		return nil, err
	}
	if err := s.check(); err != nil {
		return nil, err
	}
	start, end := m.Range()
	rows, err := s.db.Query(ctx,
		`SELECT `+transactionColumns+`
		   FROM transactions
		  WHERE "date" >= $1 AND "date" < $2
		  ORDER BY "date" DESC, id DESC`,
		start, end,
	)
	if err != nil {
		return nil, core.StorageFailure("list transactions by month", err)
	}
	return scanTransactions(rows)
}

func scanTransactions(rows pgx.Rows) ([]core.Transaction, error) {
	defer rows.Close()
	out := []core.Transaction{}
	for rows.Next() {
		var t core.Transaction
		var amt, typ string
		if err := rows.Scan(&t.ID, &amt, &typ, &t.Category, &t.CategoryIcon, &t.CategoryColor, &t.Note, &t.Date); err != nil {
			return nil, core.StorageFailure("scan transaction", err)
		}
		d, err := decimal.NewFromString(amt)
		if err != nil {
			return nil, core.StorageFailure("scan transaction", err)
		}
		t.Amount = d
		t.Type = core.TransactionType(typ)
		t.Date = t.Date.UTC()
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, core.StorageFailure("list transactions", err)
	}
	return out, nil
}

func (s *Store) DeleteTransaction(ctx context.Context, id int64) error {
	if err := s.check(); err != nil {
		return err
	}
	if _, err := s.db.Exec(ctx, `DELETE FROM transactions WHERE id=$1`, id); err != nil {
		return core.StorageFailure("delete transaction", err)
	}
	storageLog(ctx).DebugContext(ctx, "Transaction deleted", "id", id)
	return nil
}

func (s *Store) ClearTransactions(ctx context.Context) (int64, error) {
	if err := s.check(); err != nil {
		return 0, err
	}
	tag, err := s.db.Exec(ctx, `DELETE FROM transactions`)
	if err != nil {
		return 0, core.StorageFailure("clear transactions", err)
	}
	storageLog(ctx).DebugContext(ctx, "All transactions deleted", "count", tag.RowsAffected())
	return tag.RowsAffected(), nil
}

const totalsQuery = `
SELECT COALESCE(SUM(amount) FILTER (WHERE type = 'income'), 0)::text,
       COALESCE(SUM(amount) FILTER (WHERE type = 'expense'), 0)::text
  FROM transactions`

func (s *Store) Balance(ctx context.Context) (core.Balance, error) {
	if err := s.check(); err != nil {
		return core.Balance{}, err
	}
	b, err := s.totals(ctx, totalsQuery)
	if err != nil {
		return core.Balance{}, core.StorageFailure("get balance", err)
	}
	return b, nil
}

func (s *Store) totals(ctx context.Context, query string, args ...any) (core.Balance, error) {
	var inc, exp string
	if err := s.db.QueryRow(ctx, query, args...).Scan(&inc, &exp); err != nil {
		return core.Balance{}, err
	}
	income, err := decimal.NewFromString(inc)
	if err != nil {
		return core.Balance{}, err
	}
	expense, err := decimal.NewFromString(exp)
	if err != nil {
		return core.Balance{}, err
	}
	return core.NewBalance(income, expense), nil
}

func (s *Store) MonthlyStats(ctx context.Context, year, month int) (core.MonthlyStats, error) {
	m, err := core.NewMonth(year, month)
	if err != nil {
		return core.MonthlyStats{}, err
	}
	if err := s.check(); err != nil {
		return core.MonthlyStats{}, err
	}
	start, end := m.Range()

	b, err := s.totals(ctx, totalsQuery+` WHERE "date" >= $1 AND "date" < $2`, start, end)
	if err != nil {
		return core.MonthlyStats{}, core.StorageFailure("get month totals", err)
	}

	rows, err := s.db.Query(ctx, `
		WITH month_expenses AS (
		    SELECT amount, category, category_icon, category_color,
		           ROW_NUMBER() OVER (PARTITION BY category ORDER BY "date" DESC, id DESC) AS rn
		      FROM transactions
		     WHERE type = 'expense' AND "date" >= $1 AND "date" < $2
		)
		SELECT category,
		       COALESCE(MAX(category_icon) FILTER (WHERE rn = 1), ''),
		       COALESCE(MAX(category_color) FILTER (WHERE rn = 1), ''),
		       SUM(amount)::text,
		       COUNT(*)
		  FROM month_expenses
		 GROUP BY category
		 ORDER BY SUM(amount) DESC, category COLLATE "C" ASC`,
		start, end,
	)
	if err != nil {
		return core.MonthlyStats{}, core.StorageFailure("get category breakdown", err)
	}
	defer rows.Close()

	stats := core.MonthlyStats{
		Year:              m.Year,
		Month:             m.Month,
		Income:            b.Income,
		Expense:           b.Expense,
		Balance:           b.Balance,
		CategoryBreakdown: []core.CategoryStat{},
	}
	for rows.Next() {
		var c core.CategoryStat
		var total string
		var count int64
		if err := rows.Scan(&c.Category, &c.CategoryIcon, &c.CategoryColor, &total, &count); err != nil {
			return core.MonthlyStats{}, core.StorageFailure("scan category breakdown", err)
		}
		if c.Total, err = decimal.NewFromString(total); err != nil {
			return core.MonthlyStats{}, core.StorageFailure("scan category breakdown", err)
		}
		c.Count = int(count)
		stats.CategoryBreakdown = append(stats.CategoryBreakdown, c)
	}
	if err := rows.Err(); err != nil {
		return core.MonthlyStats{}, core.StorageFailure("get category breakdown", err)
	}
	return stats, nil
}

func (s *Store) ListCategories(ctx context.Context) ([]core.Category, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	rows, err := s.db.Query(ctx,
		`SELECT id, name, color, icon, type FROM categories ORDER BY type COLLATE "C", name COLLATE "C"`)
	if err != nil {
		return nil, core.StorageFailure("list categories", err)
	}
	defer rows.Close()

	out := []core.Category{}
	for rows.Next() {
		var c core.Category
		var typ string
		if err := rows.Scan(&c.ID, &c.Name, &c.Color, &c.Icon, &typ); err != nil {
			return nil, core.StorageFailure("scan category", err)
		}
		c.Type = core.TransactionType(typ)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, core.StorageFailure("list categories", err)
	}
	return out, nil
}

func (s *Store) AddCategory(ctx context.Context, n core.NewCategory) (int64, error) {
	n, err := n.Normalize()
	if err != nil {
		return 0, err
	}
	if err := s.check(); err != nil {
		return 0, err
	}
	var id int64
	err = s.db.QueryRow(ctx,
		`INSERT INTO categories(name, color, icon, type) VALUES ($1, $2, $3, $4) RETURNING id`,
		n.Name, n.Color, n.Icon, n.Type.String(),
	).Scan(&id)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return 0, core.ErrDuplicateCategory
	}
	if err != nil {
		return 0, core.StorageFailure("create category", err)
	}
	storageLog(ctx).DebugContext(ctx, "Category created", "id", id, "name", n.Name, "type", n.Type)
	return id, nil
}

func (s *Store) DeleteCategory(ctx context.Context, id int64) error {
	if err := s.check(); err != nil {
		return err
	}
	if _, err := s.db.Exec(ctx, `DELETE FROM categories WHERE id=$1`, id); err != nil {
		return core.StorageFailure("delete category", err)
	}
	storageLog(ctx).DebugContext(ctx, "Category deleted", "id", id)
	return nil
}
