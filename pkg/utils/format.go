// Package utils provides market-clock, ticker and display helpers for TickerLens.
package utils

import (
	"fmt"
	"math"
	"strings"
)

// FormatPrice formats a price for display. INR (and an empty currency)
// uses the ₹ sign with Indian digit grouping (₹12,34,567.89); any other
// currency is printed with its code and western grouping.
func FormatPrice(amount float64, currency string) string {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	negative := amount < 0
	paise := int64(math.Round(math.Abs(amount) * 100))
	whole, frac := paise/100, paise%100

	var body string
	if currency == "" || currency == "INR" {
		body = fmt.Sprintf("₹%s.%02d", groupIndian(whole), frac)
	} else {
		body = fmt.Sprintf("%s %s.%02d", currency, groupWestern(whole), frac)
	}
	if negative {
		return "-" + body
	}
	return body
}

// FormatPct formats a percentage value with sign and suffix.
// e.g., 2.45 → "+2.45%", -1.23 → "-1.23%"
func FormatPct(pct float64) string {
	if pct >= 0 {
		return fmt.Sprintf("+%.2f%%", pct)
	}
	return fmt.Sprintf("%.2f%%", pct)
}

// FormatOptional prints a nil pointer as "n/a".
func FormatOptional(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", *v)
}

// groupIndian formats n with Indian grouping (last 3, then 2s).
func groupIndian(n int64) string {
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}
	result := s[len(s)-3:]
	remaining := s[:len(s)-3]
	for len(remaining) > 2 {
		result = remaining[len(remaining)-2:] + "," + result
		remaining = remaining[:len(remaining)-2]
	}
	return remaining + "," + result
}

func groupWestern(n int64) string {
	s := fmt.Sprintf("%d", n)
	for i := len(s) - 3; i > 0; i -= 3 {
		s = s[:i] + "," + s[i:]
	}
	return s
}
