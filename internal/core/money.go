package core

import (
	"math"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// plain ASCII digits with an optional fraction; no sign, no exponent
var amountPattern = regexp.MustCompile(`^(?:[0-9]+(?:\.[0-9]*)?|\.[0-9]+)$`)

var maxCents = decimal.NewFromInt(math.MaxInt64)

// ParseDecimalToCents reads a user-entered amount such as "12.34" or "12,34"
// and rounds half-up to whole cents, so "12.345" is 1235. Zero is accepted;
// signs, exponents and anything non-numeric give ErrInvalidAmount.
func ParseDecimalToCents(s string) (int64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if !amountPattern.MatchString(s) {
		return 0, ErrInvalidAmount
	}
	if strings.HasPrefix(s, ".") {
		s = "0" + s
	}
	s = strings.TrimSuffix(s, ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	return toCents(d)
}

func toCents(d decimal.Decimal) (int64, error) {
	cents := d.Round(2).Shift(2)
	if cents.IsNegative() || cents.GreaterThan(maxCents) {
		return 0, ErrInvalidAmount
	}
	return cents.IntPart(), nil
}

// ParseMoney is ParseDecimalToCents returning Money.
func ParseMoney(s string) (Money, error) {
	cents, err := ParseDecimalToCents(s)
	if err != nil {
		return Money{}, err
	}
	return Money{Cents: cents}, nil
}

// MoneyFromFloat converts a JSON number to cents. The float is read at its
// shortest decimal form first, so 1.005 becomes 101 rather than 100.
func MoneyFromFloat(v float64) (Money, error) {
	if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return Money{}, ErrInvalidAmount
	}
	cents, err := toCents(decimal.NewFromFloat(v))
	if err != nil {
		return Money{}, err
	}
	return Money{Cents: cents}, nil
}

// Dollars is for display and JSON only; arithmetic stays in cents.
func (m Money) Dollars() float64 {
	return m.decimal().InexactFloat64()
}

// String renders the amount as a plain decimal with two places, e.g. "12.30".
func (m Money) String() string {
	return m.decimal().StringFixed(2)
}

func (m Money) decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}
