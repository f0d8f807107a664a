// Package format renders amounts and dates for people.
package format

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"

	"moneydrain/internal/core"
)

const DateLayout = "Jan 2, 2006"

var symbols = map[string]string{
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"JPY": "¥",
	"INR": "₹",
	"KRW": "₩",
	"CAD": "CA$",
	"AUD": "A$",
}

// Currency formats amount with thousands separators and at most two
// fractional digits, dropping trailing zeros: 1234.5 USD is "$1,234.5".
// Codes without a known symbol are prefixed with the code itself.
func Currency(amount decimal.Decimal, code string) string {
	code = strings.ToUpper(code)
	rounded := amount.Round(core.AmountPlaces)
	sign := ""
	if rounded.IsNegative() {
		sign = "-"
	}
	// Rounded first: humanize truncates extra digits.
	digits := humanize.CommafWithDigits(rounded.Abs().InexactFloat64(), core.AmountPlaces)
	if sym, ok := symbols[code]; ok {
		return sign + sym + digits
	}
	return sign + code + " " + digits
}

// SignedCurrency prefixes income with "+" and expense with "-".
func SignedCurrency(t core.Transaction, code string) string {
	if t.IsIncome() {
		return "+" + Currency(t.Amount, code)
	}
	return "-" + Currency(t.Amount, code)
}

// Date formats t like "Jan 2, 2006" in UTC.
func Date(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// RelativeDate describes t relative to now: "Today", "Yesterday",
// "N days ago" within a week, "N weeks ago" within 30 days, and the
// absolute date otherwise. Future dates count as today.
func RelativeDate(t, now time.Time) string {
	days := int(now.Sub(t).Hours() / 24)
	switch {
	case days <= 0:
		return "Today"
	case days == 1:
		return "Yesterday"
	case days < 7:
		return fmt.Sprintf("%d days ago", days)
	case days < 14:
		return "1 week ago"
	case days < 30:
		return fmt.Sprintf("%d weeks ago", days/7)
	default:
		return Date(t)
	}
}

// Percent renders a 0..1 share as a whole percentage.
func Percent(share float64) string {
	return fmt.Sprintf("%.0f%%", share*100)
}

// MonthLabel names a month like "June 2025".
func MonthLabel(m core.Month) string {
	return time.Date(m.Year, time.Month(m.Month), 1, 0, 0, 0, 0, time.UTC).Format("January 2006")
}
