package util //nolint:revive // package name util hosts shared formatting and response-shape helpers

import (
	"fmt"
	"strings"
)

// FormatAmount renders minor currency units for display, e.g. 12550 NOK as
// "125.50 NOK". An empty currency prints the number only.
func FormatAmount(cents int64, currency string) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	out := fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
	if c := strings.ToUpper(strings.TrimSpace(currency)); c != "" {
		out += " " + c
	}
	return out
}

// Truncate shortens s to at most n runes, marking the cut with "...".
func Truncate(s string, n int) string {
	r := []rune(strings.TrimSpace(s))
	if n <= 0 || len(r) <= n {
		return string(r)
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}
