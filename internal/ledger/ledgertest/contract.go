// Package ledgertest holds the behavioral contract every ledger.Store
// implementation must satisfy.
package ledgertest

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moneydrain/internal/core"
	"moneydrain/internal/ledger"
)

// Factory returns a fresh, uninitialized store seeded with
// core.DefaultCategories. It should register its own cleanup.
type Factory func(t *testing.T) ledger.Store

// Run executes the contract suite against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("Uninitialized", func(t *testing.T) { testUninitialized(t, newStore(t)) })
	t.Run("InitIdempotent", func(t *testing.T) { testInitIdempotent(t, newStore(t)) })
	t.Run("AddAndList", func(t *testing.T) { testAddAndList(t, ready(t, newStore)) })
	t.Run("Pagination", func(t *testing.T) { testPagination(t, ready(t, newStore)) })
	t.Run("SubMillisecondDates", func(t *testing.T) { testSubMillisecondDates(t, ready(t, newStore)) })
	t.Run("DefaultDate", func(t *testing.T) { testDefaultDate(t, ready(t, newStore)) })
	t.Run("Validation", func(t *testing.T) { testValidation(t, ready(t, newStore)) })
	t.Run("Delete", func(t *testing.T) { testDelete(t, ready(t, newStore)) })
	t.Run("Clear", func(t *testing.T) { testClear(t, ready(t, newStore)) })
	t.Run("BalanceExample", func(t *testing.T) { testBalanceExample(t, ready(t, newStore)) })
	t.Run("BalanceProperty", func(t *testing.T) { testBalanceProperty(t, ready(t, newStore)) })
	t.Run("MonthWindow", func(t *testing.T) { testMonthWindow(t, ready(t, newStore)) })
	t.Run("MonthlyStats", func(t *testing.T) { testMonthlyStats(t, ready(t, newStore)) })
	t.Run("Categories", func(t *testing.T) { testCategories(t, ready(t, newStore)) })
}

func ready(t *testing.T, newStore Factory) ledger.Store {
	t.Helper()
	s := newStore(t)
	require.NoError(t, s.Init(context.Background()))
	return s
}

func at(y, m, d, h int) time.Time {
	return time.Date(y, time.Month(m), d, h, 0, 0, 0, time.UTC)
}

func add(t *testing.T, s ledger.Store, typ core.TransactionType, amount, category string, date time.Time) int64 {
	t.Helper()
	id, err := s.AddTransaction(context.Background(), core.NewTransaction{
		Amount:   decimal.RequireFromString(amount),
		Type:     typ,
		Category: category,
		Date:     date,
	})
	require.NoError(t, err)
	require.Positive(t, id)
	return id
}

func ids(txs []core.Transaction) []int64 {
	out := make([]int64, 0, len(txs))
	for _, t := range txs {
		out = append(out, t.ID)
	}
	return out
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), append([]any{"want %s, got %s", want, got.String()}, msgAndArgs...)...)
}

func testUninitialized(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	_, err := s.AddTransaction(ctx, core.NewTransaction{Amount: dec("1"), Type: core.Expense, Category: "Food"})
	assert.ErrorIs(t, err, core.ErrStorageUninitialized)
	_, err = s.ListTransactions(ctx, 10, 0)
	assert.ErrorIs(t, err, core.ErrStorageUninitialized)
	_, err = s.ListTransactionsByMonth(ctx, 2025, 1)
	assert.ErrorIs(t, err, core.ErrStorageUninitialized)
	assert.ErrorIs(t, s.DeleteTransaction(ctx, 1), core.ErrStorageUninitialized)
	_, err = s.ClearTransactions(ctx)
	assert.ErrorIs(t, err, core.ErrStorageUninitialized)
	_, err = s.Balance(ctx)
	assert.ErrorIs(t, err, core.ErrStorageUninitialized)
	_, err = s.MonthlyStats(ctx, 2025, 1)
	assert.ErrorIs(t, err, core.ErrStorageUninitialized)
	_, err = s.ListCategories(ctx)
	assert.ErrorIs(t, err, core.ErrStorageUninitialized)
	_, err = s.AddCategory(ctx, core.NewCategory{Name: "X", Type: core.Expense})
	assert.ErrorIs(t, err, core.ErrStorageUninitialized)
	assert.ErrorIs(t, s.DeleteCategory(ctx, 1), core.ErrStorageUninitialized)
}

func testInitIdempotent(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	require.NoError(t, s.Init(ctx))
	first, err := s.ListCategories(ctx)
	require.NoError(t, err)
	assert.Len(t, first, len(core.DefaultCategories()))

	require.NoError(t, s.Init(ctx))
	second, err := s.ListCategories(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	for i := 1; i < len(second); i++ {
		prev, cur := second[i-1], second[i]
		ordered := prev.Type < cur.Type || (prev.Type == cur.Type && prev.Name <= cur.Name)
		assert.True(t, ordered, "%s/%s before %s/%s", prev.Type, prev.Name, cur.Type, cur.Name)
	}
}

func testAddAndList(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	id, err := s.AddTransaction(ctx, core.NewTransaction{
		Amount:        dec("12.345"),
		Type:          core.Expense,
		Category:      "Food",
		CategoryIcon:  "🍔",
		CategoryColor: "#ef4444",
		Note:          "lunch, with \"friends\"",
		Date:          at(2025, 3, 4, 12),
	})
	require.NoError(t, err)

	txs, err := s.ListTransactions(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	got := txs[0]
	assert.Equal(t, id, got.ID)
	assertDecimal(t, "12.35", got.Amount)
	assert.Equal(t, core.Expense, got.Type)
	assert.Equal(t, "Food", got.Category)
	assert.Equal(t, "🍔", got.CategoryIcon)
	assert.Equal(t, "#ef4444", got.CategoryColor)
	assert.Equal(t, "lunch, with \"friends\"", got.Note)
	assert.True(t, got.Date.Equal(at(2025, 3, 4, 12)), "date %s", got.Date)
	assert.Equal(t, time.UTC, got.Date.Location())
}

func testPagination(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	a := add(t, s, core.Expense, "1", "Food", at(2025, 1, 1, 9))
	c := add(t, s, core.Expense, "3", "Food", at(2025, 1, 3, 9))
	b := add(t, s, core.Expense, "2", "Food", at(2025, 1, 2, 9))

	latest, err := s.ListTransactions(ctx, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, []int64{c}, ids(latest))

	page, err := s.ListTransactions(ctx, 2, 1)
	require.NoError(t, err)
	assert.Equal(t, []int64{b, a}, ids(page))

	all, err := s.ListTransactions(ctx, 0, -5)
	require.NoError(t, err)
	assert.Equal(t, []int64{c, b, a}, ids(all))

	empty, err := s.ListTransactions(ctx, 10, 10)
	require.NoError(t, err)
	assert.Empty(t, empty)

	rest, err := s.ListTransactions(ctx, math.MaxInt, 1)
	require.NoError(t, err)
	assert.Equal(t, []int64{b, a}, ids(rest))

	// Same timestamp: higher id first.
	d := add(t, s, core.Expense, "4", "Food", at(2025, 1, 3, 9))
	top, err := s.ListTransactions(ctx, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, []int64{d, c}, ids(top))
}

func testSubMillisecondDates(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	base := at(2025, 2, 10, 8)
	first := add(t, s, core.Expense, "1", "Food", base.Add(900*time.Microsecond))
	second := add(t, s, core.Expense, "2", "Food", base.Add(100*time.Microsecond))
	later := add(t, s, core.Expense, "3", "Food", base.Add(1500*time.Microsecond))

	txs, err := s.ListTransactions(ctx, 0, 0)
	require.NoError(t, err)
	// The first two share a millisecond, so the higher id wins the tie.
	assert.Equal(t, []int64{later, second, first}, ids(txs))
	assert.True(t, txs[0].Date.Equal(base.Add(time.Millisecond)), "date %s", txs[0].Date)
	assert.True(t, txs[1].Date.Equal(base), "date %s", txs[1].Date)
	assert.True(t, txs[2].Date.Equal(base), "date %s", txs[2].Date)
}

func testDefaultDate(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	before := time.Now().UTC().Add(-time.Second)
	_, err := s.AddTransaction(ctx, core.NewTransaction{Amount: dec("5"), Type: core.Income, Category: "Gift"})
	require.NoError(t, err)
	after := time.Now().UTC().Add(time.Second)

	txs, err := s.ListTransactions(ctx, 1, 0)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.True(t, txs[0].Date.After(before) && txs[0].Date.Before(after), "date %s", txs[0].Date)
}

func testValidation(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	bad := []core.NewTransaction{
		{Amount: dec("0"), Type: core.Expense, Category: "Food"},
		{Amount: dec("-3"), Type: core.Expense, Category: "Food"},
		{Amount: dec("3"), Type: "transfer", Category: "Food"},
		{Amount: dec("3"), Type: core.Expense, Category: ""},
	}
	for _, n := range bad {
		_, err := s.AddTransaction(ctx, n)
		assert.True(t, core.IsValidation(err), "expected validation error for %+v, got %v", n, err)
	}
	txs, err := s.ListTransactions(ctx, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, txs)

	_, err = s.ListTransactionsByMonth(ctx, 2025, 13)
	assert.ErrorIs(t, err, core.ErrInvalidMonth)
	_, err = s.MonthlyStats(ctx, 2025, 0)
	assert.ErrorIs(t, err, core.ErrInvalidMonth)
}

func testDelete(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	keep := add(t, s, core.Expense, "1", "Food", at(2025, 2, 1, 9))
	gone := add(t, s, core.Expense, "2", "Food", at(2025, 2, 2, 9))

	require.NoError(t, s.DeleteTransaction(ctx, gone))
	require.NoError(t, s.DeleteTransaction(ctx, gone))
	require.NoError(t, s.DeleteTransaction(ctx, 999999))

	txs, err := s.ListTransactions(ctx, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, []int64{keep}, ids(txs))

	b, err := s.Balance(ctx)
	require.NoError(t, err)
	assertDecimal(t, "1", b.Expense)

	// Ids are never reused.
	next := add(t, s, core.Expense, "3", "Food", at(2025, 2, 3, 9))
	assert.NotEqual(t, gone, next)
}

func testClear(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	add(t, s, core.Expense, "1", "Food", at(2025, 2, 1, 9))
	add(t, s, core.Income, "2", "Salary", at(2025, 2, 2, 9))

	n, err := s.ClearTransactions(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	txs, err := s.ListTransactions(ctx, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, txs)

	cats, err := s.ListCategories(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, cats)
}

func testBalanceExample(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	zero, err := s.Balance(ctx)
	require.NoError(t, err)
	assertDecimal(t, "0", zero.Income)
	assertDecimal(t, "0", zero.Expense)
	assertDecimal(t, "0", zero.Balance)

	add(t, s, core.Income, "1000", "Salary", at(2025, 6, 1, 9))
	add(t, s, core.Expense, "200", "Food", at(2025, 6, 2, 9))
	add(t, s, core.Expense, "50", "Food", at(2025, 6, 3, 9))

	b, err := s.Balance(ctx)
	require.NoError(t, err)
	assertDecimal(t, "1000", b.Income)
	assertDecimal(t, "250", b.Expense)
	assertDecimal(t, "750", b.Balance)

	stats, err := s.MonthlyStats(ctx, 2025, 6)
	require.NoError(t, err)
	require.Len(t, stats.CategoryBreakdown, 1)
	food := stats.CategoryBreakdown[0]
	assert.Equal(t, "Food", food.Category)
	assertDecimal(t, "250", food.Total)
	assert.Equal(t, 2, food.Count)
}

func testBalanceProperty(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	amounts := []string{"0.10", "0.20", "19.99", "1234.56", "0.01", "7", "3.33", "250.05"}
	income, expense := decimal.Zero, decimal.Zero
	for i, a := range amounts {
		typ := core.Expense
		if i%3 == 0 {
			typ = core.Income
			income = income.Add(dec(a))
		} else {
			expense = expense.Add(dec(a))
		}
		add(t, s, typ, a, "Misc", at(2025, 1+i%12, 1+i, 8))

		b, err := s.Balance(ctx)
		require.NoError(t, err)
		assert.True(t, b.Income.Equal(income), "income %s != %s", b.Income, income)
		assert.True(t, b.Expense.Equal(expense), "expense %s != %s", b.Expense, expense)
		assert.True(t, b.Balance.Equal(income.Sub(expense)), "balance %s", b.Balance)
	}
}

func testMonthWindow(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	add(t, s, core.Expense, "1", "Food", time.Date(2024, 11, 30, 23, 59, 59, 0, time.UTC))
	first := add(t, s, core.Expense, "2", "Food", time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC))
	last := add(t, s, core.Expense, "3", "Food", time.Date(2024, 12, 31, 23, 59, 59, 0, time.UTC))
	jan := add(t, s, core.Expense, "4", "Food", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))

	dec24, err := s.ListTransactionsByMonth(ctx, 2024, 12)
	require.NoError(t, err)
	assert.Equal(t, []int64{last, first}, ids(dec24))

	jan25, err := s.ListTransactionsByMonth(ctx, 2025, 1)
	require.NoError(t, err)
	assert.Equal(t, []int64{jan}, ids(jan25))

	none, err := s.ListTransactionsByMonth(ctx, 2023, 5)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func testMonthlyStats(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	addFull := func(typ core.TransactionType, amount, category, icon, color string, date time.Time) {
		t.Helper()
		_, err := s.AddTransaction(ctx, core.NewTransaction{
			Amount: dec(amount), Type: typ, Category: category,
			CategoryIcon: icon, CategoryColor: color, Date: date,
		})
		require.NoError(t, err)
	}
	addFull(core.Expense, "10.10", "Food", "🍔", "#ef4444", at(2025, 2, 3, 9))
	addFull(core.Expense, "14.90", "Food", "🍕", "#f97316", at(2025, 2, 20, 9))
	addFull(core.Expense, "40", "Rent", "🏠", "#8b5cf6", at(2025, 2, 5, 9))
	addFull(core.Expense, "25", "Bus", "🚌", "#3b82f6", at(2025, 2, 6, 9))
	addFull(core.Income, "500", "Salary", "💼", "#22c55e", at(2025, 2, 7, 9))
	addFull(core.Expense, "999", "Rent", "🏠", "#8b5cf6", at(2025, 3, 1, 0))
	addFull(core.Expense, "999", "Rent", "🏠", "#8b5cf6", at(2025, 1, 31, 23))

	stats, err := s.MonthlyStats(ctx, 2025, 2)
	require.NoError(t, err)
	assert.Equal(t, 2025, stats.Year)
	assert.Equal(t, 2, stats.Month)
	assertDecimal(t, "500", stats.Income)
	assertDecimal(t, "90", stats.Expense)
	assertDecimal(t, "410", stats.Balance)

	require.Len(t, stats.CategoryBreakdown, 3)
	var names []string
	sum := decimal.Zero
	for i, c := range stats.CategoryBreakdown {
		names = append(names, c.Category)
		sum = sum.Add(c.Total)
		if i > 0 {
			assert.False(t, c.Total.GreaterThan(stats.CategoryBreakdown[i-1].Total))
		}
	}
	assert.Equal(t, []string{"Rent", "Bus", "Food"}, names)
	assert.True(t, sum.Equal(stats.Expense))

	food := stats.CategoryBreakdown[2]
	assertDecimal(t, "25", food.Total)
	assert.Equal(t, 2, food.Count)
	assert.Equal(t, "🍕", food.CategoryIcon)
	assert.Equal(t, "#f97316", food.CategoryColor)

	month, err := s.ListTransactionsByMonth(ctx, 2025, 2)
	require.NoError(t, err)
	want := core.Summarize(month)
	assert.True(t, want.Income.Equal(stats.Income))
	assert.True(t, want.Expense.Equal(stats.Expense))
	assert.True(t, want.Balance.Equal(stats.Balance))

	empty, err := s.MonthlyStats(ctx, 2030, 7)
	require.NoError(t, err)
	assert.Empty(t, empty.CategoryBreakdown)
	assertDecimal(t, "0", empty.Balance)
}

func testCategories(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	before, err := s.ListCategories(ctx)
	require.NoError(t, err)

	id, err := s.AddCategory(ctx, core.NewCategory{Name: "Pets", Color: "#a855f7", Icon: "🐶", Type: core.Expense})
	require.NoError(t, err)
	require.Positive(t, id)

	_, err = s.AddCategory(ctx, core.NewCategory{Name: "Pets", Color: "#000000", Icon: "🐱", Type: core.Income})
	assert.ErrorIs(t, err, core.ErrDuplicateCategory)

	_, err = s.AddCategory(ctx, core.NewCategory{Name: "", Type: core.Expense})
	assert.ErrorIs(t, err, core.ErrEmptyName)

	cats, err := s.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, cats, len(before)+1)
	var pets core.Category
	for _, c := range cats {
		if c.ID == id {
			pets = c
		}
	}
	assert.Equal(t, core.Category{ID: id, Name: "Pets", Color: "#a855f7", Icon: "🐶", Type: core.Expense}, pets)

	_, err = s.AddTransaction(ctx, core.NewTransaction{
		Amount: dec("30"), Type: core.Expense, Category: "Pets", CategoryIcon: "🐶", CategoryColor: "#a855f7",
		Date: at(2025, 4, 1, 9),
	})
	require.NoError(t, err)

	require.NoError(t, s.DeleteCategory(ctx, id))
	require.NoError(t, s.DeleteCategory(ctx, id))

	cats, err = s.ListCategories(ctx)
	require.NoError(t, err)
	assert.Len(t, cats, len(before))

	txs, err := s.ListTransactions(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, "Pets", txs[0].Category)
	assert.Equal(t, "🐶", txs[0].CategoryIcon)

	// The name is free again once deleted.
	_, err = s.AddCategory(ctx, core.NewCategory{Name: "Pets", Type: core.Expense})
	assert.NoError(t, err)
}
