package core

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTransactionType(t *testing.T) {
	got, err := ParseTransactionType(" Expense ")
	require.NoError(t, err)
	assert.Equal(t, Expense, got)

	_, err = ParseTransactionType("transfer")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidType))
	assert.True(t, IsValidation(err))
}

func TestNewTransactionNormalize(t *testing.T) {
	n, err := NewTransaction{
		Amount:        decimal.RequireFromString("12.345"),
		Type:          Expense,
		Category:      "  Food  ",
		CategoryColor: "#ef4444",
		Note:          " lunch ",
	}.Normalize()
	require.NoError(t, err)
	assert.Equal(t, "12.35", n.Amount.StringFixed(2))
	assert.Equal(t, "Food", n.Category)
	assert.Equal(t, "lunch", n.Note)
}

func TestNormalizeStampsDateToMilliseconds(t *testing.T) {
	n, err := NewTransaction{
		Amount:   decimal.NewFromInt(5),
		Type:     Income,
		Category: "Salary",
		Date:     time.Date(2025, 3, 1, 12, 0, 0, 900_500, time.FixedZone("EST", -5*3600)),
	}.Normalize()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 1, 17, 0, 0, 0, time.UTC), n.Date)
	assert.Equal(t, time.UTC, n.Date.Location())
}

func TestNewTransactionValidate(t *testing.T) {
	good := NewTransaction{Amount: decimal.NewFromInt(1), Type: Income, Category: "Salary"}
	require.NoError(t, good.Validate())

	cases := []struct {
		name string
		mod  func(*NewTransaction)
		want error
	}{
		{"zero amount", func(n *NewTransaction) { n.Amount = decimal.Zero }, ErrInvalidAmount},
		{"negative amount", func(n *NewTransaction) { n.Amount = decimal.NewFromInt(-5) }, ErrInvalidAmount},
		{"bad type", func(n *NewTransaction) { n.Type = "refund" }, ErrInvalidType},
		{"empty category", func(n *NewTransaction) { n.Category = " " }, ErrEmptyCategory},
		{"bad color", func(n *NewTransaction) { n.CategoryColor = "red" }, ErrInvalidColor},
		{"long note", func(n *NewTransaction) { n.Note = strings.Repeat("x", 501) }, ErrNoteTooLong},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			n := good
			tc.mod(&n)
			err := n.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.want)
			var ve *ValidationError
			assert.ErrorAs(t, err, &ve)
		})
	}
}

func TestNormalizeRejectsAmountRoundingToZero(t *testing.T) {
	_, err := NewTransaction{
		Amount:   decimal.RequireFromString("0.004"),
		Type:     Expense,
		Category: "Food",
	}.Normalize()
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestBuildStampsDate(t *testing.T) {
	now := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)
	tx := NewTransaction{Amount: decimal.NewFromInt(3), Type: Expense, Category: "Food"}.Build(7, now)
	assert.Equal(t, int64(7), tx.ID)
	assert.True(t, tx.Date.Equal(now))

	fine := time.Date(2025, 3, 14, 9, 30, 0, 1_900_000, time.FixedZone("CET", 3600))
	tx = NewTransaction{Amount: decimal.NewFromInt(3), Type: Expense, Category: "Food"}.Build(9, fine)
	assert.Equal(t, time.Date(2025, 3, 14, 8, 30, 0, 1_000_000, time.UTC), tx.Date)

	explicit := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	tx = NewTransaction{Amount: decimal.NewFromInt(3), Type: Expense, Category: "Food", Date: explicit}.Build(8, now)
	assert.True(t, tx.Date.Equal(explicit))
}

func TestNewCategoryValidate(t *testing.T) {
	c, err := NewCategory{Name: " Pets ", Color: "#abc", Icon: "🐶", Type: Expense}.Normalize()
	require.NoError(t, err)
	assert.Equal(t, "Pets", c.Name)

	_, err = NewCategory{Name: "", Type: Expense}.Normalize()
	assert.ErrorIs(t, err, ErrEmptyName)

	_, err = NewCategory{Name: "Pets", Type: "other"}.Normalize()
	assert.ErrorIs(t, err, ErrInvalidType)

	_, err = NewCategory{Name: "Pets", Color: "#12345", Type: Expense}.Normalize()
	assert.ErrorIs(t, err, ErrInvalidColor)
}

func TestDefaultCategoriesAreValidAndUnique(t *testing.T) {
	seen := map[string]bool{}
	var income, expense int
	for _, c := range DefaultCategories() {
		require.NoError(t, c.Validate(), c.Name)
		assert.False(t, seen[c.Name], "duplicate %s", c.Name)
		seen[c.Name] = true
		if c.Type == Income {
			income++
		} else {
			expense++
		}
	}
	assert.Equal(t, 4, income)
	assert.Equal(t, 8, expense)
}

func TestSortCategories(t *testing.T) {
	cats := []Category{
		{Name: "Salary", Type: Income},
		{Name: "Shopping", Type: Expense},
		{Name: "Freelance", Type: Income},
		{Name: "Bills", Type: Expense},
	}
	SortCategories(cats)
	var names []string
	for _, c := range cats {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"Bills", "Shopping", "Freelance", "Salary"}, names)
}

func TestStorageFailure(t *testing.T) {
	assert.NoError(t, StorageFailure("insert", nil))
	assert.Same(t, ErrStorageUninitialized, StorageFailure("insert", ErrStorageUninitialized))
	assert.ErrorIs(t, StorageFailure("insert", ErrDuplicateCategory), ErrDuplicateCategory)

	cause := errors.New("disk full")
	err := StorageFailure("insert", cause)
	var se *StorageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "insert", se.Op)
	assert.ErrorIs(t, err, cause)
	assert.False(t, IsValidation(err))
}
