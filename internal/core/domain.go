package core

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

// AmountPlaces is the number of fractional digits kept for every stored amount.
const AmountPlaces = 2

// DatePrecision is the finest date resolution every store can hold.
const DatePrecision = time.Millisecond

// StampDate brings t to UTC at DatePrecision, the form dates are stored in.
func StampDate(t time.Time) time.Time {
	return t.UTC().Truncate(DatePrecision)
}

const maxNoteLength = 500

type (
	TransactionType string

	// Transaction is a recorded money movement. Category, CategoryIcon and
	// CategoryColor are a snapshot of the category at creation time, so later
	// category edits never rewrite history.
	Transaction struct {
		ID            int64           `json:"id"`
		Amount        decimal.Decimal `json:"amount"`
		Type          TransactionType `json:"type"`
		Category      string          `json:"category"`
		CategoryIcon  string          `json:"categoryIcon"`
		CategoryColor string          `json:"categoryColor"`
		Note          string          `json:"note"`
		Date          time.Time       `json:"date"`
	}

	// NewTransaction carries the caller-supplied fields of a transaction.
	// A zero Date means "now".
	NewTransaction struct {
		Amount        decimal.Decimal
		Type          TransactionType
		Category      string
		CategoryIcon  string
		CategoryColor string
		Note          string
		Date          time.Time
	}

	Category struct {
		ID    int64           `json:"id"`
		Name  string          `json:"name"`
		Color string          `json:"color"`
		Icon  string          `json:"icon"`
		Type  TransactionType `json:"type"`
	}

	NewCategory struct {
		Name  string          `yaml:"name"`
		Color string          `yaml:"color"`
		Icon  string          `yaml:"icon"`
		Type  TransactionType `yaml:"type"`
	}
)

var hexColor = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// ParseTransactionType accepts "income" or "expense" in any case.
func ParseTransactionType(s string) (TransactionType, error) {
	t := TransactionType(strings.ToLower(strings.TrimSpace(s)))
	if err := t.Validate(); err != nil {
		return "", err
	}
	return t, nil
}

func (t TransactionType) Validate() error {
	switch t {
	case Income, Expense:
		return nil
	default:
		return invalid("type", ErrInvalidType)
	}
}

func (t TransactionType) String() string {
	return string(t)
}

// Normalize trims text fields, rounds the amount to AmountPlaces, stamps
// the date to DatePrecision and validates the result.
func (n NewTransaction) Normalize() (NewTransaction, error) {
	n.Amount = n.Amount.Round(AmountPlaces)
	n.Category = strings.TrimSpace(n.Category)
	n.CategoryIcon = strings.TrimSpace(n.CategoryIcon)
	n.CategoryColor = strings.TrimSpace(n.CategoryColor)
	n.Note = strings.TrimSpace(n.Note)
	if !n.Date.IsZero() {
		n.Date = StampDate(n.Date)
	}
	return n, n.Validate()
}

func (n NewTransaction) Validate() error {
	if !n.Amount.IsPositive() {
		return invalid("amount", ErrInvalidAmount)
	}
	if err := n.Type.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(n.Category) == "" {
		return invalid("category", ErrEmptyCategory)
	}
	if n.CategoryColor != "" && !hexColor.MatchString(n.CategoryColor) {
		return invalid("categoryColor", ErrInvalidColor)
	}
	if len(n.Note) > maxNoteLength {
		return invalid("note", ErrNoteTooLong)
	}
	return nil
}

// Build turns the input into a Transaction with the given id, stamping
// now when no date was supplied.
func (n NewTransaction) Build(id int64, now time.Time) Transaction {
	date := n.Date
	if date.IsZero() {
		date = StampDate(now)
	}
	return Transaction{
		ID:            id,
		Amount:        n.Amount,
		Type:          n.Type,
		Category:      n.Category,
		CategoryIcon:  n.CategoryIcon,
		CategoryColor: n.CategoryColor,
		Note:          n.Note,
		Date:          date,
	}
}

func (n NewCategory) Normalize() (NewCategory, error) {
	n.Name = strings.TrimSpace(n.Name)
	n.Color = strings.TrimSpace(n.Color)
	n.Icon = strings.TrimSpace(n.Icon)
	return n, n.Validate()
}

func (n NewCategory) Validate() error {
	if n.Name == "" {
		return invalid("name", ErrEmptyName)
	}
	if n.Color != "" && !hexColor.MatchString(n.Color) {
		return invalid("color", ErrInvalidColor)
	}
	return n.Type.Validate()
}

func (n NewCategory) Build(id int64) Category {
	return Category{ID: id, Name: n.Name, Color: n.Color, Icon: n.Icon, Type: n.Type}
}

// IsIncome reports whether the transaction adds to the balance.
func (t Transaction) IsIncome() bool {
	return t.Type == Income
}
