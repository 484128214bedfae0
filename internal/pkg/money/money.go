// Package money formats and converts amounts held in centavos.
package money

import (
	"strings"

	"github.com/shopspring/decimal"
)

// FromCents converts an amount in centavos to a decimal in reais.
func FromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// ToCents rounds a decimal amount in reais half-up to centavos.
func ToCents(d decimal.Decimal) int64 {
	return d.Shift(2).Round(0).IntPart()
}

// FormatBRL renders centavos the way the storefront shows prices, e.g. "R$ 1.234,50".
func FormatBRL(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}

	whole := cents / 100
	frac := cents % 100

	digits := decimal.NewFromInt(whole).String()
	var grouped strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			grouped.WriteByte('.')
		}
		grouped.WriteRune(r)
	}

	return sign + "R$ " + grouped.String() + "," + twoDigits(frac)
}

func twoDigits(n int64) string {
	if n < 10 {
		return "0" + decimal.NewFromInt(n).String()
	}
	return decimal.NewFromInt(n).String()
}
