package storage

import (
	"context"
	"database/sql"
)

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	PrepareContext(context.Context, string) (*sql.Stmt, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type Transaction struct {
	ID            int64
	Amount        float64
	Type          string
	Category      string
	CategoryIcon  string
	CategoryColor string
	Note          string
	Date          string
}

type Category struct {
	ID    int64
	Name  string
	Color string
	Icon  string
	Type  string
}

const createTransaction = `-- name: CreateTransaction :one
INSERT INTO transactions (amount, type, category, category_icon, category_color, note, date)
VALUES (?, ?, ?, ?, ?, ?, ?)
RETURNING id
`

type CreateTransactionParams struct {
	Amount        float64
	Type          string
	Category      string
	CategoryIcon  string
	CategoryColor string
	Note          string
	Date          string
}

func (q *Queries) CreateTransaction(ctx context.Context, arg CreateTransactionParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, createTransaction,
		arg.Amount,
		arg.Type,
		arg.Category,
		arg.CategoryIcon,
		arg.CategoryColor,
		arg.Note,
		arg.Date,
	)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const listTransactions = `-- name: ListTransactions :many
SELECT id, amount, type, category, category_icon, category_color, note, date
FROM transactions
ORDER BY date DESC, id DESC
LIMIT ? OFFSET ?
`

type ListTransactionsParams struct {
	Limit  int64
	Offset int64
}

func (q *Queries) ListTransactions(ctx context.Context, arg ListTransactionsParams) ([]Transaction, error) {
	rows, err := q.db.QueryContext(ctx, listTransactions, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	return scanTransactions(rows)
}

const listTransactionsBetween = `-- name: ListTransactionsBetween :many
SELECT id, amount, type, category, category_icon, category_color, note, date
FROM transactions
WHERE date >= ? AND date < ?
ORDER BY date DESC, id DESC
`

type DateRangeParams struct {
	Start string
	End   string
}

func (q *Queries) ListTransactionsBetween(ctx context.Context, arg DateRangeParams) ([]Transaction, error) {
	rows, err := q.db.QueryContext(ctx, listTransactionsBetween, arg.Start, arg.End)
	if err != nil {
		return nil, err
	}
	return scanTransactions(rows)
}

func scanTransactions(rows *sql.Rows) ([]Transaction, error) {
	defer rows.Close()
	items := []Transaction{}
	for rows.Next() {
		var i Transaction
		if err := rows.Scan(
			&i.ID,
			&i.Amount,
			&i.Type,
			&i.Category,
			&i.CategoryIcon,
			&i.CategoryColor,
			&i.Note,
			&i.Date,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const deleteTransaction = `-- name: DeleteTransaction :exec
DELETE FROM transactions WHERE id = ?
`

func (q *Queries) DeleteTransaction(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, deleteTransaction, id)
	return err
}

const deleteAllTransactions = `-- name: DeleteAllTransactions :execrows
DELETE FROM transactions
`

func (q *Queries) DeleteAllTransactions(ctx context.Context) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteAllTransactions)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const getTotals = `-- name: GetTotals :one
SELECT
    COALESCE(SUM(CASE WHEN type = 'income' THEN amount END), 0.0) AS income,
    COALESCE(SUM(CASE WHEN type = 'expense' THEN amount END), 0.0) AS expense
FROM transactions
`

type TotalsRow struct {
	Income  float64
	Expense float64
}

func (q *Queries) GetTotals(ctx context.Context) (TotalsRow, error) {
	row := q.db.QueryRowContext(ctx, getTotals)
	var i TotalsRow
	err := row.Scan(&i.Income, &i.Expense)
	return i, err
}

const getTotalsBetween = `-- name: GetTotalsBetween :one
SELECT
    COALESCE(SUM(CASE WHEN type = 'income' THEN amount END), 0.0) AS income,
    COALESCE(SUM(CASE WHEN type = 'expense' THEN amount END), 0.0) AS expense
FROM transactions
WHERE date >= ? AND date < ?
`

func (q *Queries) GetTotalsBetween(ctx context.Context, arg DateRangeParams) (TotalsRow, error) {
	row := q.db.QueryRowContext(ctx, getTotalsBetween, arg.Start, arg.End)
	var i TotalsRow
	err := row.Scan(&i.Income, &i.Expense)
	return i, err
}

// Icon and color come from the most recent transaction of each category.
const getCategoryBreakdown = `-- name: GetCategoryBreakdown :many
WITH month_expenses AS (
    SELECT amount, category, category_icon, category_color,
           ROW_NUMBER() OVER (PARTITION BY category ORDER BY date DESC, id DESC) AS rn
    FROM transactions
    WHERE type = 'expense' AND date >= ? AND date < ?
)
SELECT category,
       COALESCE(MAX(CASE WHEN rn = 1 THEN category_icon END), '') AS category_icon,
       COALESCE(MAX(CASE WHEN rn = 1 THEN category_color END), '') AS category_color,
       SUM(amount) AS total,
       COUNT(*) AS count
FROM month_expenses
GROUP BY category
ORDER BY ROUND(SUM(amount), 2) DESC, category ASC
`

type CategoryBreakdownRow struct {
	Category      string
	CategoryIcon  string
	CategoryColor string
	Total         float64
	Count         int64
}

func (q *Queries) GetCategoryBreakdown(ctx context.Context, arg DateRangeParams) ([]CategoryBreakdownRow, error) {
	rows, err := q.db.QueryContext(ctx, getCategoryBreakdown, arg.Start, arg.End)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []CategoryBreakdownRow{}
	for rows.Next() {
		var i CategoryBreakdownRow
		if err := rows.Scan(
			&i.Category,
			&i.CategoryIcon,
			&i.CategoryColor,
			&i.Total,
			&i.Count,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listCategories = `-- name: ListCategories :many
SELECT id, name, color, icon, type
FROM categories
ORDER BY type ASC, name ASC
`

func (q *Queries) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := q.db.QueryContext(ctx, listCategories)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Category{}
	for rows.Next() {
		var i Category
		if err := rows.Scan(&i.ID, &i.Name, &i.Color, &i.Icon, &i.Type); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const countCategories = `-- name: CountCategories :one
SELECT COUNT(*) FROM categories
`

func (q *Queries) CountCategories(ctx context.Context) (int64, error) {
	row := q.db.QueryRowContext(ctx, countCategories)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const createCategory = `-- name: CreateCategory :one
INSERT INTO categories (name, color, icon, type)
VALUES (?, ?, ?, ?)
RETURNING id
`

type CreateCategoryParams struct {
	Name  string
	Color string
	Icon  string
	Type  string
}

func (q *Queries) CreateCategory(ctx context.Context, arg CreateCategoryParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, createCategory, arg.Name, arg.Color, arg.Icon, arg.Type)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const deleteCategory = `-- name: DeleteCategory :exec
DELETE FROM categories WHERE id = ?
`

func (q *Queries) DeleteCategory(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, deleteCategory, id)
	return err
}
