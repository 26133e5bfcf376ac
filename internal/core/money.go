// Package core provides the domain model shared by every other package.
//
// This file contains the Money type: an amount of home currency stored as
// integer cents, serialized on the wire as a plain decimal number.
package core

import (
	"bytes"
	"strconv"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

type Money struct {
	Cents int64
}

// Dollars builds a Money value from a decimal amount, rounding half away
// from zero to the nearest cent.
func Dollars(d decimal.Decimal) Money {
	return Money{Cents: d.Round(2).Shift(2).IntPart()}
}

// FromFloat converts a float amount such as 12.34 to Money.
func FromFloat(f float64) Money {
	return Dollars(decimal.NewFromFloat(f))
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Decimal returns the amount as a decimal number of currency units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// Float returns the amount as float64 currency units.
func (m Money) Float() float64 {
	return m.Decimal().InexactFloat64()
}

func (m Money) Add(o Money) Money {
	return Money{Cents: m.Cents + o.Cents}
}

// MulRate returns m scaled by rate, rounded to the cent.
func (m Money) MulRate(rate float64) Money {
	return Dollars(m.Decimal().Mul(decimal.NewFromFloat(rate)))
}

// Ratio returns m / o, or 0 when o is not positive.
func (m Money) Ratio(o Money) float64 {
	if o.Cents <= 0 {
		return 0
	}
	return float64(m.Cents) / float64(o.Cents)
}

// String renders the amount without trailing zeros ("500", "12.5").
func (m Money) String() string {
	return m.Decimal().String()
}

// Fixed renders the amount with exactly two decimals ("12.50").
func (m Money) Fixed() string {
	return m.Decimal().StringFixed(2)
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.Fixed()), nil
}

func (m *Money) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(bytes.TrimSpace(data), `"`)
	if len(data) == 0 || string(data) == "null" {
		m.Cents = 0
		return nil
	}
	d, err := decimal.NewFromString(string(data))
	if err != nil {
		return ErrInvalidAmount
	}
	*m = Dollars(d)
	return nil
}

// ParseDecimalToCents converts a decimal string to cents with proper rounding.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and performs
// half-up rounding on the third decimal place. A leading "$" is ignored.
// Returns an error for invalid formats, negative values, or zero amounts.
func ParseDecimalToCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "$")
	if s == "" {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, ErrInvalidAmount
	}
	if strings.Count(s, ".") > 1 {
		return 0, ErrInvalidAmount
	}
	for _, r := range s {
		if r != '.' && !unicode.IsDigit(r) {
			return 0, ErrInvalidAmount
		}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	const maxSafeInt64 = (1<<63 - 1) / 100
	if d.GreaterThan(decimal.NewFromInt(maxSafeInt64)) {
		return 0, ErrInvalidAmount
	}
	cents := Dollars(d).Cents
	if cents <= 0 {
		return 0, ErrInvalidAmount
	}
	return cents, nil
}

// FormatDollars renders cents as "$12.34" (or "-$12.34").
func FormatDollars(cents int64) string {
	neg := cents < 0
	if neg {
		cents = -cents
	}
	s := "$" + strconv.FormatInt(cents/100, 10) + "." + pad2(cents%100)
	if neg {
		return "-" + s
	}
	return s
}

func pad2(n int64) string {
	if n < 10 {
		return "0" + strconv.FormatInt(n, 10)
	}
	return strconv.FormatInt(n, 10)
}
