// Package core provides money parsing and handling utilities.
//
// Amounts are carried as decimal.Decimal so sums stay exact. Input coming
// from users, spreadsheets or JSON bodies may be a number, a string with a
// decimal comma, or garbage; garbage becomes zero.
package core

import (
	"encoding/json"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

const DefaultCurrency = "EUR"

// ParseAmount converts a decimal string to a Decimal.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and
// ignores spaces used as thousand separators. When both separators appear,
// the last one is the decimal separator.
//
// Examples:
//
//	ParseAmount("12.34")     -> 12.34, nil
//	ParseAmount("12,34")     -> 12.34, nil
//	ParseAmount("1 234,5")   -> 1234.5, nil
//	ParseAmount("1,234.50")  -> 1234.5, nil
//	ParseAmount("1.234,56")  -> 1234.56, nil
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	s = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\u00a0', '\u202f', '€', '$':
			return -1
		}
		return r
	}, s)
	if s == "" {
		return decimal.Zero, ErrInvalidInput
	}
	comma, dot := strings.LastIndex(s, ","), strings.LastIndex(s, ".")
	switch {
	case comma >= 0 && dot >= 0 && dot > comma:
		// 1,234.50
		s = strings.ReplaceAll(s, ",", "")
	case comma >= 0 && dot >= 0:
		// 1.234,50
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	default:
		s = strings.ReplaceAll(s, ",", ".")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidInput
	}
	return d, nil
}

// CoerceAmount turns any loosely typed numeric value into a Decimal. Values
// that cannot be interpreted as a number yield zero.
func CoerceAmount(v any) decimal.Decimal {
	switch n := v.(type) {
	case nil:
		return decimal.Zero
	case decimal.Decimal:
		return n
	case float64:
		return decimal.NewFromFloat(n)
	case float32:
		return decimal.NewFromFloat32(n)
	case int:
		return decimal.NewFromInt(int64(n))
	case int64:
		return decimal.NewFromInt(n)
	case json.Number:
		d, err := ParseAmount(n.String())
		if err != nil {
			return decimal.Zero
		}
		return d
	case string:
		d, err := ParseAmount(n)
		if err != nil {
			return decimal.Zero
		}
		return d
	default:
		return decimal.Zero
	}
}

// FormatMoney renders an amount in the given ISO currency, falling back to
// EUR for unknown codes.
func FormatMoney(d decimal.Decimal, currency string) string {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	c := money.GetCurrency(currency)
	if c == nil {
		currency = DefaultCurrency
		c = money.GetCurrency(currency)
	}
	minor := d.Shift(int32(c.Fraction)).Round(0).IntPart()
	return money.New(minor, currency).Display()
}
