// Package core defines the finance domain: entities, dates, signed
// decimal amounts, and the error taxonomy shared by every layer.
package core

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount converts user- or CSV-supplied text into a signed decimal.
//
// It tolerates the formats seen in real bank exports: a leading currency
// symbol, thousands separators, and a decimal comma when no dot is
// present ("12,34" -> 12.34, "1,234.56" -> 1234.56). Negative amounts
// are outflows and fully allowed.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.TrimSpace(strings.ReplaceAll(s, "$", ""))
	if strings.Contains(s, ",") {
		if strings.Contains(s, ".") {
			// Comma is a thousands separator.
			s = strings.ReplaceAll(s, ",", "")
		} else {
			// Comma is the decimal separator.
			s = strings.Replace(s, ",", ".", 1)
		}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return d, nil
}

// FormatAmount renders an amount with two decimal places for display.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}
