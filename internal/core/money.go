// Package core provides money parsing and handling utilities.
//
// This file contains functions for converting decimal amounts coming from
// requests into cents and rendering cents back as JSON numbers.
package core

import "github.com/shopspring/decimal"

var (
	// minAmount is one cent.
	minAmount = decimal.New(1, -2)
	// maxAmount bounds a single entry so cent sums cannot overflow int64.
	maxAmount = decimal.New(1, 12)
)

// Money is an amount in cents.
type Money struct {
	Cents int64
}

// MoneyFromDecimal converts d to cents. Amounts below 0.01, above the
// maximum, or with a non-zero digit past the cents are rejected, never rounded.
//
// Examples:
//
//	MoneyFromDecimal(12.34)  -> 1234
//	MoneyFromDecimal(12.340) -> 1234
//	MoneyFromDecimal(12.345) -> ErrInvalidAmount
//	MoneyFromDecimal(0.005)  -> ErrInvalidAmount
func MoneyFromDecimal(d decimal.Decimal) (Money, error) {
	if d.LessThan(minAmount) || d.GreaterThan(maxAmount) {
		return Money{}, ErrInvalidAmount
	}
	if !d.Equal(d.Truncate(2)) {
		return Money{}, ErrInvalidAmount
	}
	return Money{Cents: d.Shift(2).IntPart()}, nil
}

// Decimal returns the amount in currency units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

func (m Money) Add(o Money) Money {
	return Money{Cents: m.Cents + o.Cents}
}

func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// MarshalJSON renders the amount as a bare JSON number, e.g. 12.5.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.Decimal().String()), nil
}
