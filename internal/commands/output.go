package commands

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"moneydrain/internal/core"
	"moneydrain/internal/format"
)

const barWidth = 20

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func printTransactions(w io.Writer, txs []core.Transaction, currency string, now time.Time) error {
	if len(txs) == 0 {
		_, err := fmt.Fprintln(w, "No transactions.")
		return err
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tDATE\tCATEGORY\tAMOUNT\tNOTE")
	for _, t := range txs {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n",
			t.ID,
			format.RelativeDate(t.Date, now),
			strings.TrimSpace(t.CategoryIcon+" "+t.Category),
			format.SignedCurrency(t, currency),
			t.Note)
	}
	return tw.Flush()
}

func printBalance(w io.Writer, b core.Balance, currency string) error {
	tw := newTable(w)
	fmt.Fprintf(tw, "Income\t%s\n", format.Currency(b.Income, currency))
	fmt.Fprintf(tw, "Expense\t%s\n", format.Currency(b.Expense, currency))
	fmt.Fprintf(tw, "Balance\t%s\n", format.Currency(b.Balance, currency))
	return tw.Flush()
}

// printStats renders the month totals and a bar per expense category,
// scaled to the largest category.
func printStats(w io.Writer, st core.MonthlyStats, currency string) error {
	m := core.Month{Year: st.Year, Month: st.Month}
	fmt.Fprintln(w, format.MonthLabel(m))
	if err := printBalance(w, core.NewBalance(st.Income, st.Expense), currency); err != nil {
		return err
	}
	if len(st.CategoryBreakdown) == 0 {
		_, err := fmt.Fprintln(w, "\nNo expenses this month.")
		return err
	}
	fmt.Fprintln(w)
	shares := st.Shares()
	tw := newTable(w)
	for i, c := range st.CategoryBreakdown {
		bar := strings.Repeat("█", max(1, int(shares[i]*barWidth+0.5)))
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n",
			strings.TrimSpace(c.CategoryIcon+" "+c.Category),
			format.Currency(c.Total, currency),
			c.Count,
			format.Percent(shares[i]),
			bar)
	}
	return tw.Flush()
}

func printCategories(w io.Writer, cats []core.Category) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tTYPE\tICON\tNAME\tCOLOR")
	for _, c := range cats {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", c.ID, c.Type, c.Icon, c.Name, c.Color)
	}
	return tw.Flush()
}
