package ledger

import (
	"context"

	"moneydrain/internal/core"
)

// DefaultPageSize is used by ListTransactions when limit is not positive.
const DefaultPageSize = 50

// Ports for the persistence backends.
type (
	TransactionWriter interface {
		AddTransaction(ctx context.Context, n core.NewTransaction) (int64, error)
		DeleteTransaction(ctx context.Context, id int64) error
		// ClearTransactions removes every transaction and returns how many
		// were deleted. Categories are kept.
		ClearTransactions(ctx context.Context) (int64, error)
	}

	TransactionReader interface {
		// ListTransactions returns transactions most recent first.
		ListTransactions(ctx context.Context, limit, offset int) ([]core.Transaction, error)
		// ListTransactionsByMonth returns every transaction of the given
		// UTC calendar month, most recent first.
		ListTransactionsByMonth(ctx context.Context, year, month int) ([]core.Transaction, error)
	}

	// StatsReader aggregates over the stored transactions on every call.
	StatsReader interface {
		Balance(ctx context.Context) (core.Balance, error)
		MonthlyStats(ctx context.Context, year, month int) (core.MonthlyStats, error)
	}

	CategoryStore interface {
		ListCategories(ctx context.Context) ([]core.Category, error)
		AddCategory(ctx context.Context, n core.NewCategory) (int64, error)
		DeleteCategory(ctx context.Context, id int64) error
	}

	// Store is the full data layer. Init must complete before any other
	// method is used; until then they fail with core.ErrStorageUninitialized.
	Store interface {
		Init(ctx context.Context) error
		Close() error

		TransactionWriter
		TransactionReader
		StatsReader
		CategoryStore
	}
)

// Page normalizes pagination arguments.
func Page(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
