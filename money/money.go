// Package money holds the fixed-point currency type used for every wallet amount.
//
// Amounts are whole Rupiah (the smallest unit the back office settles in). There is
// no floating point anywhere in the type, so balances never drift.
package money

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Symbol is prefixed to every formatted amount.
const Symbol = "Rp"

var (
	// ErrNegativeResult is returned when a subtraction would go below zero.
	ErrNegativeResult = errors.New("money: result would be negative")
	// ErrFractional is returned when an input has digits below the smallest unit.
	ErrFractional = errors.New("money: amount has a fractional part")
	// ErrOutOfRange is returned when an input does not fit the representation.
	ErrOutOfRange = errors.New("money: amount out of range")
)

// Money is an integer count of the smallest currency unit.
type Money int64

// Zero is the empty amount.
const Zero Money = 0

// MaxAmount bounds every amount and running total: one quadrillion Rupiah.
const MaxAmount Money = 1_000_000_000_000_000

// New wraps a raw unit count.
func New(units int64) Money { return Money(units) }

// Int64 returns the raw unit count.
func (m Money) Int64() int64 { return int64(m) }

func (m Money) IsZero() bool     { return m == 0 }
func (m Money) IsPositive() bool { return m > 0 }
func (m Money) IsNegative() bool { return m < 0 }

// Neg returns the amount with its sign flipped.
func (m Money) Neg() Money { return -m }

// Abs returns the magnitude of m.
func (m Money) Abs() Money {
	if m < 0 {
		return -m
	}
	return m
}

// Add returns m+o, failing with ErrOutOfRange when the sum leaves [-MaxAmount, MaxAmount].
func (m Money) Add(o Money) (Money, error) {
	sum := m + o
	if (o > 0 && sum < m) || (o < 0 && sum > m) || sum > MaxAmount || sum < -MaxAmount {
		return m, fmt.Errorf("%w: %d + %d", ErrOutOfRange, m, o)
	}
	return sum, nil
}

// Sub returns m-o, failing with ErrNegativeResult if the result would be below zero.
func (m Money) Sub(o Money) (Money, error) {
	if o > m {
		return m, ErrNegativeResult
	}
	return m - o, nil
}

// Cmp returns -1, 0 or 1.
func (m Money) Cmp(o Money) int {
	switch {
	case m < o:
		return -1
	case m > o:
		return 1
	}
	return 0
}

// Decimal converts m for display or export.
func (m Money) Decimal() decimal.Decimal { return decimal.NewFromInt(int64(m)) }

// FromDecimal converts a user supplied decimal amount. Inputs such as "50000.00" are
// accepted, "50000.5" is not.
func FromDecimal(d decimal.Decimal) (Money, error) {
	if !d.IsInteger() {
		return 0, ErrFractional
	}
	if d.Abs().GreaterThan(decimal.NewFromInt(int64(MaxAmount))) {
		return 0, ErrOutOfRange
	}
	return Money(d.IntPart()), nil
}

// Parse reads a plain decimal string, optionally prefixed with the currency symbol.
func Parse(s string) (Money, error) {
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), Symbol))
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("money: invalid amount %q: %w", s, err)
	}
	return FromDecimal(d)
}

// Format renders m with the digit grouping of the given locale, e.g. "Rp 50.000" for
// Indonesian and "Rp 50,000" for English.
func (m Money) Format(tag language.Tag) string {
	p := message.NewPrinter(tag)
	if m < 0 {
		return "-" + Symbol + " " + p.Sprintf("%d", int64(-m))
	}
	return Symbol + " " + p.Sprintf("%d", int64(m))
}

// String formats using the Indonesian locale.
func (m Money) String() string { return m.Format(language.Indonesian) }
