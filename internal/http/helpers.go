package http

import (
	"time"

	"moneydrain/internal/core"
	"moneydrain/internal/format"
)

// transactionView adds display strings to a transaction.
type transactionView struct {
	core.Transaction
	Display   string `json:"display"`
	DateLabel string `json:"dateLabel"`
}

func (s *Server) transactionViews(txs []core.Transaction, now time.Time) []transactionView {
	out := make([]transactionView, len(txs))
	for i, t := range txs {
		out[i] = s.transactionView(t, now)
	}
	return out
}

func (s *Server) transactionView(t core.Transaction, now time.Time) transactionView {
	return transactionView{
		Transaction: t,
		Display:     format.SignedCurrency(t, s.currency),
		DateLabel:   format.RelativeDate(t.Date, now),
	}
}

type balanceView struct {
	core.Balance
	IncomeDisplay  string `json:"incomeDisplay"`
	ExpenseDisplay string `json:"expenseDisplay"`
	BalanceDisplay string `json:"balanceDisplay"`
}

func (s *Server) balanceView(b core.Balance) balanceView {
	return balanceView{
		Balance:        b,
		IncomeDisplay:  format.Currency(b.Income, s.currency),
		ExpenseDisplay: format.Currency(b.Expense, s.currency),
		BalanceDisplay: format.Currency(b.Balance, s.currency),
	}
}

type categoryStatView struct {
	core.CategoryStat
	Display string  `json:"display"`
	Share   float64 `json:"share"`
	Percent string  `json:"percent"`
}

type monthRef struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

type statsView struct {
	Year              int                `json:"year"`
	Month             int                `json:"month"`
	Label             string             `json:"label"`
	Balance           balanceView        `json:"balance"`
	CategoryBreakdown []categoryStatView `json:"categoryBreakdown"`
	IncomeShare       float64            `json:"incomeShare"`
	ExpenseShare      float64            `json:"expenseShare"`
	Prev              monthRef           `json:"prev"`
	Next              monthRef           `json:"next"`
}

// statsView pairs each breakdown entry with its share of the largest
// category, which is what a bar chart needs.
func (s *Server) statsView(st core.MonthlyStats) statsView {
	m := core.Month{Year: st.Year, Month: st.Month}
	shares := st.Shares()
	breakdown := make([]categoryStatView, len(st.CategoryBreakdown))
	for i, c := range st.CategoryBreakdown {
		breakdown[i] = categoryStatView{
			CategoryStat: c,
			Display:      format.Currency(c.Total, s.currency),
			Share:        shares[i],
			Percent:      format.Percent(shares[i]),
		}
	}
	prev, next := m.Prev(), m.Next()
	income, expense := st.FlowShares()
	return statsView{
		Year:              st.Year,
		Month:             st.Month,
		Label:             format.MonthLabel(m),
		Balance:           s.balanceView(core.NewBalance(st.Income, st.Expense)),
		CategoryBreakdown: breakdown,
		IncomeShare:       income,
		ExpenseShare:      expense,
		Prev:              monthRef{Year: prev.Year, Month: prev.Month},
		Next:              monthRef{Year: next.Year, Month: next.Month},
	}
}

type dashboardView struct {
	Balance balanceView       `json:"balance"`
	Recent  []transactionView `json:"recent"`
	Month   statsView         `json:"month"`
}
