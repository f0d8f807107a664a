package core

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Balance is income minus expense over some set of transactions.
type Balance struct {
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
	Balance decimal.Decimal `json:"balance"`
}

// CategoryStat aggregates one category's expenses within a month.
type CategoryStat struct {
	Category      string          `json:"category"`
	CategoryIcon  string          `json:"categoryIcon"`
	CategoryColor string          `json:"categoryColor"`
	Total         decimal.Decimal `json:"total"`
	Count         int             `json:"count"`
}

// MonthlyStats is the balance of a single month plus its expense breakdown,
// sorted by total descending.
type MonthlyStats struct {
	Year              int             `json:"year"`
	Month             int             `json:"month"`
	Income            decimal.Decimal `json:"income"`
	Expense           decimal.Decimal `json:"expense"`
	Balance           decimal.Decimal `json:"balance"`
	CategoryBreakdown []CategoryStat  `json:"categoryBreakdown"`
}

// Month identifies a calendar month.
type Month struct {
	Year  int
	Month int // 1-12
}

func NewMonth(year, month int) (Month, error) {
	if month < 1 || month > 12 {
		return Month{}, invalid("month", ErrInvalidMonth)
	}
	return Month{Year: year, Month: month}, nil
}

// MonthOf returns the UTC month containing t.
func MonthOf(t time.Time) Month {
	t = t.UTC()
	return Month{Year: t.Year(), Month: int(t.Month())}
}

// Range returns the half-open UTC interval [first day, first day of next month).
func (m Month) Range() (start, end time.Time) {
	start = time.Date(m.Year, time.Month(m.Month), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}

// Contains reports whether t falls inside the month's range.
func (m Month) Contains(t time.Time) bool {
	start, end := m.Range()
	return !t.Before(start) && t.Before(end)
}

func (m Month) Next() Month {
	if m.Month == 12 {
		return Month{Year: m.Year + 1, Month: 1}
	}
	return Month{Year: m.Year, Month: m.Month + 1}
}

func (m Month) Prev() Month {
	if m.Month == 1 {
		return Month{Year: m.Year - 1, Month: 12}
	}
	return Month{Year: m.Year, Month: m.Month - 1}
}

func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, m.Month)
}

// NewBalance builds a Balance from the two totals.
func NewBalance(income, expense decimal.Decimal) Balance {
	return Balance{Income: income, Expense: expense, Balance: income.Sub(expense)}
}

// Summarize computes the balance of txs.
func Summarize(txs []Transaction) Balance {
	income, expense := decimal.Zero, decimal.Zero
	for _, t := range txs {
		if t.IsIncome() {
			income = income.Add(t.Amount)
		} else {
			expense = expense.Add(t.Amount)
		}
	}
	return NewBalance(income, expense)
}

// SummarizeMonth computes the stats of month m from txs. Transactions
// outside the month are ignored.
func SummarizeMonth(m Month, txs []Transaction) MonthlyStats {
	inMonth := make([]Transaction, 0, len(txs))
	for _, t := range txs {
		if m.Contains(t.Date) {
			inMonth = append(inMonth, t)
		}
	}
	b := Summarize(inMonth)

	type acc struct {
		stat   CategoryStat
		latest Transaction
	}
	byName := map[string]*acc{}
	for _, t := range inMonth {
		if t.IsIncome() {
			continue
		}
		a, ok := byName[t.Category]
		if !ok {
			a = &acc{stat: CategoryStat{Category: t.Category, Total: decimal.Zero}, latest: t}
			byName[t.Category] = a
		}
		a.stat.Total = a.stat.Total.Add(t.Amount)
		a.stat.Count++
		if newer(t, a.latest) {
			a.latest = t
		}
	}

	breakdown := make([]CategoryStat, 0, len(byName))
	for _, a := range byName {
		a.stat.CategoryIcon = a.latest.CategoryIcon
		a.stat.CategoryColor = a.latest.CategoryColor
		breakdown = append(breakdown, a.stat)
	}
	SortBreakdown(breakdown)

	return MonthlyStats{
		Year:              m.Year,
		Month:             m.Month,
		Income:            b.Income,
		Expense:           b.Expense,
		Balance:           b.Balance,
		CategoryBreakdown: breakdown,
	}
}

// SortBreakdown orders stats by total descending, then by category name.
func SortBreakdown(stats []CategoryStat) {
	sort.SliceStable(stats, func(i, j int) bool {
		if c := stats[i].Total.Cmp(stats[j].Total); c != 0 {
			return c > 0
		}
		return stats[i].Category < stats[j].Category
	})
}

// SortTransactions orders txs most recent first; equal dates put the
// higher id first.
func SortTransactions(txs []Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		return newer(txs[i], txs[j])
	})
}

func newer(a, b Transaction) bool {
	if !a.Date.Equal(b.Date) {
		return a.Date.After(b.Date)
	}
	return a.ID > b.ID
}

// Shares returns each breakdown entry's total as a fraction of the largest
// total. The denominator is never below 1.
func (s MonthlyStats) Shares() []float64 {
	largest := decimal.NewFromInt(1)
	for _, c := range s.CategoryBreakdown {
		if c.Total.GreaterThan(largest) {
			largest = c.Total
		}
	}
	out := make([]float64, len(s.CategoryBreakdown))
	for i, c := range s.CategoryBreakdown {
		out[i] = c.Total.Div(largest).InexactFloat64()
	}
	return out
}

// FlowShares splits the month's money flow into the income and expense
// fractions of income plus expense. A month with no flow is 0, 0.
func (s MonthlyStats) FlowShares() (income, expense float64) {
	flow := s.Income.Add(s.Expense)
	if flow.IsZero() {
		return 0, 0
	}
	return s.Income.Div(flow).InexactFloat64(), s.Expense.Div(flow).InexactFloat64()
}
