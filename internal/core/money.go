// Package core provides money parsing and handling utilities.
//
// Amounts are kept as integer cents. Parsing and formatting go through
// shopspring/decimal so no float ever touches a balance.
package core

import (
	"errors"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Money is a signed amount in cents. Rent and payments are non-negative,
// a balance may be either sign.
type Money struct {
	Cents int64
}

// ErrMalformedAmount is returned for text that is not a plain decimal number.
var ErrMalformedAmount = errors.New("malformed amount")

// digits with at most one decimal point
var plainDecimal = regexp.MustCompile(`^(\d+\.?\d*|\.\d+)$`)

var maxAmount = decimal.NewFromInt((1<<63 - 1) / 100)

// ParseCents converts a plain decimal string to cents with half-up rounding
// on the third decimal place. Zero is accepted; signs, separators other than
// a single dot, and exponents are not.
//
// Examples:
//
//	ParseCents("12.34")  -> 1234, nil
//	ParseCents("12.345") -> 1235, nil (rounds up)
//	ParseCents("12.344") -> 1234, nil (rounds down)
//	ParseCents("0")      -> 0, nil
func ParseCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if !plainDecimal.MatchString(s) {
		return 0, ErrMalformedAmount
	}
	if strings.HasPrefix(s, ".") {
		s = "0" + s
	}
	s = strings.TrimSuffix(s, ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrMalformedAmount
	}
	if d.GreaterThan(maxAmount) {
		return 0, ErrMalformedAmount
	}
	return d.Round(2).Shift(2).IntPart(), nil
}

// ParseDecimalToCents is ParseCents restricted to strictly positive amounts.
func ParseDecimalToCents(s string) (int64, error) {
	cents, err := ParseCents(s)
	if err != nil {
		return 0, err
	}
	if cents <= 0 {
		return 0, ErrMalformedAmount
	}
	return cents, nil
}

// NewMoney builds Money from a decimal string, see ParseCents.
func NewMoney(s string) (Money, error) {
	cents, err := ParseCents(s)
	if err != nil {
		return Money{}, err
	}
	return Money{Cents: cents}, nil
}

func (m Money) Add(o Money) Money {
	return Money{Cents: m.Cents + o.Cents}
}

func (m Money) Sub(o Money) Money {
	return Money{Cents: m.Cents - o.Cents}
}

func (m Money) IsPositive() bool {
	return m.Cents > 0
}

// Decimal returns the amount in currency units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.NewFromInt(m.Cents).Shift(-2)
}

// String formats the amount with two decimals, e.g. "-200.00".
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}
