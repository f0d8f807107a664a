package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moneydrain/internal/amqp"
	"moneydrain/internal/core"
	"moneydrain/internal/ledger/memory"
)

type fakePublisher struct {
	mu     sync.Mutex
	events []*amqp.Event
	err    error
}

func (f *fakePublisher) Publish(_ context.Context, ev *amqp.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return f.err
}

func (f *fakePublisher) types() []amqp.EventType {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []amqp.EventType
	for _, ev := range f.events {
		out = append(out, ev.Type)
	}
	return out
}

var fixedNow = time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

func newService(t *testing.T, pub EventPublisher) (*LedgerService, *memory.Store) {
	t.Helper()
	store := memory.New(nil).WithClock(func() time.Time { return fixedNow })
	svc := NewLedgerService(store, pub).WithClock(func() time.Time { return fixedNow })
	require.NoError(t, svc.Init(context.Background()))
	return svc, store
}

func TestAddTransactionFillsCategorySnapshot(t *testing.T) {
	pub := &fakePublisher{}
	svc, _ := newService(t, pub)
	ctx := context.Background()

	tx, err := svc.AddTransaction(ctx, core.NewTransaction{
		Amount:   decimal.RequireFromString("12.499"),
		Type:     core.Expense,
		Category: " Food & Dining ",
	})
	require.NoError(t, err)

	assert.NotZero(t, tx.ID)
	assert.Equal(t, "Food & Dining", tx.Category)
	assert.Equal(t, "12.50", tx.Amount.StringFixed(2))
	assert.NotEmpty(t, tx.CategoryIcon)
	assert.NotEmpty(t, tx.CategoryColor)
	assert.True(t, tx.Date.Equal(fixedNow))

	stored, err := svc.ListTransactions(ctx, 1, 0)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, tx.CategoryIcon, stored[0].CategoryIcon)
	assert.Equal(t, tx.CategoryColor, stored[0].CategoryColor)

	require.Len(t, pub.events, 1)
	assert.Equal(t, amqp.TransactionCreated, pub.events[0].Type)
	assert.Equal(t, tx.ID, pub.events[0].EntityID)
	require.NotNil(t, pub.events[0].Transaction)
}

func TestAddTransactionKeepsExplicitSnapshot(t *testing.T) {
	svc, _ := newService(t, nil)
	tx, err := svc.AddTransaction(context.Background(), core.NewTransaction{
		Amount:        decimal.NewFromInt(5),
		Type:          core.Expense,
		Category:      "Food & Dining",
		CategoryIcon:  "🍣",
		CategoryColor: "#123456",
	})
	require.NoError(t, err)
	assert.Equal(t, "🍣", tx.CategoryIcon)
	assert.Equal(t, "#123456", tx.CategoryColor)
}

func TestAddTransactionUnknownCategory(t *testing.T) {
	svc, _ := newService(t, nil)
	tx, err := svc.AddTransaction(context.Background(), core.NewTransaction{
		Amount:   decimal.NewFromInt(5),
		Type:     core.Expense,
		Category: "Garden",
	})
	require.NoError(t, err)
	assert.Empty(t, tx.CategoryIcon)
}

func TestAddTransactionTypeMismatch(t *testing.T) {
	pub := &fakePublisher{}
	svc, _ := newService(t, pub)
	_, err := svc.AddTransaction(context.Background(), core.NewTransaction{
		Amount:   decimal.NewFromInt(5),
		Type:     core.Income,
		Category: "Food & Dining",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrTypeMismatch)
	assert.True(t, core.IsValidation(err))
	assert.Empty(t, pub.events)
}

func TestAddTransactionValidation(t *testing.T) {
	svc, _ := newService(t, nil)
	_, err := svc.AddTransaction(context.Background(), core.NewTransaction{
		Amount:   decimal.Zero,
		Type:     core.Expense,
		Category: "Food & Dining",
	})
	assert.ErrorIs(t, err, core.ErrInvalidAmount)
}

func TestPublishFailureDoesNotFailWrite(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker down")}
	svc, _ := newService(t, pub)
	ctx := context.Background()

	tx, err := svc.AddTransaction(ctx, core.NewTransaction{
		Amount:   decimal.NewFromInt(100),
		Type:     core.Income,
		Category: "Salary",
	})
	require.NoError(t, err)

	b, err := svc.Balance(ctx)
	require.NoError(t, err)
	assert.True(t, b.Income.Equal(decimal.NewFromInt(100)))
	assert.NotZero(t, tx.ID)
}

func TestCategoryCacheInvalidation(t *testing.T) {
	pub := &fakePublisher{}
	svc, store := newService(t, pub)
	ctx := context.Background()

	before, err := svc.ListCategories(ctx)
	require.NoError(t, err)

	// A write behind the service's back stays invisible until the cache is invalidated.
	_, err = store.AddCategory(ctx, core.NewCategory{Name: "Hidden", Type: core.Expense})
	require.NoError(t, err)
	cached, err := svc.ListCategories(ctx)
	require.NoError(t, err)
	assert.Len(t, cached, len(before))

	pets, err := svc.AddCategory(ctx, core.NewCategory{Name: "Pets", Icon: "🐶", Color: "#abcdef", Type: core.Expense})
	require.NoError(t, err)
	after, err := svc.ListCategories(ctx)
	require.NoError(t, err)
	assert.Len(t, after, len(before)+2)

	require.NoError(t, svc.DeleteCategory(ctx, pets.ID))
	final, err := svc.ListCategories(ctx)
	require.NoError(t, err)
	assert.Len(t, final, len(before)+1)

	assert.Equal(t, []amqp.EventType{amqp.CategoryCreated, amqp.CategoryDeleted}, pub.types())
}

func TestListCategoriesReturnsCopy(t *testing.T) {
	svc, _ := newService(t, nil)
	ctx := context.Background()

	cats, err := svc.ListCategories(ctx)
	require.NoError(t, err)
	cats[0].Name = "mutated"

	again, err := svc.ListCategories(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, "mutated", again[0].Name)
}

func TestAddCategoryDuplicate(t *testing.T) {
	svc, _ := newService(t, nil)
	_, err := svc.AddCategory(context.Background(), core.NewCategory{Name: "Salary", Type: core.Income})
	assert.ErrorIs(t, err, core.ErrDuplicateCategory)
}

func TestCategoriesOfType(t *testing.T) {
	svc, _ := newService(t, nil)
	income, err := svc.CategoriesOfType(context.Background(), core.Income)
	require.NoError(t, err)
	require.NotEmpty(t, income)
	for _, c := range income {
		assert.Equal(t, core.Income, c.Type)
	}

	_, err = svc.CategoriesOfType(context.Background(), "transfer")
	assert.ErrorIs(t, err, core.ErrInvalidType)
}

func TestDeleteAndClearPublish(t *testing.T) {
	pub := &fakePublisher{}
	svc, _ := newService(t, pub)
	ctx := context.Background()

	tx, err := svc.AddTransaction(ctx, core.NewTransaction{Amount: decimal.NewFromInt(1), Type: core.Expense, Category: "Shopping"})
	require.NoError(t, err)
	_, err = svc.AddTransaction(ctx, core.NewTransaction{Amount: decimal.NewFromInt(2), Type: core.Expense, Category: "Shopping"})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteTransaction(ctx, tx.ID))
	n, err := svc.ClearTransactions(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	assert.Equal(t, []amqp.EventType{
		amqp.TransactionCreated,
		amqp.TransactionCreated,
		amqp.TransactionDeleted,
		amqp.TransactionsCleared,
	}, pub.types())
	assert.Equal(t, int64(1), pub.events[3].Count)

	cats, err := svc.ListCategories(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, cats, "clearing keeps categories")
}

func TestDashboard(t *testing.T) {
	svc, _ := newService(t, nil)
	ctx := context.Background()

	for i := 0; i < RecentLimit+3; i++ {
		_, err := svc.AddTransaction(ctx, core.NewTransaction{
			Amount:   decimal.NewFromInt(10),
			Type:     core.Expense,
			Category: "Transportation",
			Date:     fixedNow.AddDate(0, 0, -i),
		})
		require.NoError(t, err)
	}
	_, err := svc.AddTransaction(ctx, core.NewTransaction{
		Amount:   decimal.NewFromInt(1000),
		Type:     core.Income,
		Category: "Salary",
		Date:     fixedNow.AddDate(0, -1, 0),
	})
	require.NoError(t, err)

	d, err := svc.Dashboard(ctx)
	require.NoError(t, err)

	assert.True(t, d.Balance.Balance.Equal(decimal.NewFromInt(1000-10*(RecentLimit+3))))
	assert.Len(t, d.Recent, RecentLimit)
	assert.True(t, d.Recent[0].Date.Equal(fixedNow))
	assert.Equal(t, 2025, d.Month.Year)
	assert.Equal(t, 6, d.Month.Month)
	// June 15 back to June 1.
	assert.True(t, d.Month.Expense.Equal(decimal.NewFromInt(150)))
	assert.True(t, d.Month.Income.IsZero())
}

func TestDashboardUninitialized(t *testing.T) {
	svc := NewLedgerService(memory.New(nil), nil)
	_, err := svc.Dashboard(context.Background())
	assert.ErrorIs(t, err, core.ErrStorageUninitialized)
}

func TestExportTransactions(t *testing.T) {
	svc, _ := newService(t, nil)
	ctx := context.Background()
	_, err := svc.AddTransaction(ctx, core.NewTransaction{Amount: decimal.NewFromInt(3), Type: core.Expense, Category: "Bills & Utilities"})
	require.NoError(t, err)

	txs, err := svc.ExportTransactions(ctx)
	require.NoError(t, err)
	assert.Len(t, txs, 1)
}
