// Package money provides a fixed-point monetary value type.
//
// Amounts are stored as integers in minor currency units (e.g. cents for
// USD), so allocation arithmetic never touches binary floating point.
// Operations across different currencies are rejected; the engine does not
// perform conversion.
package money

import (
	"errors"
	"fmt"
)

var (
	// ErrCurrencyMismatch is returned when an operation combines values of
	// different currencies.
	ErrCurrencyMismatch = errors.New("currency mismatch")

	// ErrNegativeAmount is returned when a value that must be non-negative
	// (prices, tax, tip, discount, bill totals) is negative.
	ErrNegativeAmount = errors.New("amount must not be negative")
)

// Money is an amount in minor units of a single currency.
type Money struct {
	// Amount is the value in minor units (cents for USD, yen for JPY, ...).
	Amount int64 `json:"amount"`

	// Currency is the ISO 4217 code, e.g. "USD".
	Currency string `json:"currency"`
}

// New returns a Money of amount minor units in the given currency.
func New(amount int64, currency string) Money {
	return Money{Amount: amount, Currency: currency}
}

// Zero returns the zero value in the given currency.
func Zero(currency string) Money {
	return Money{Currency: currency}
}

// FromMajor returns a Money of major whole units, e.g. FromMajor(33, "USD")
// is 33.00 USD. Assumes two decimal places.
func FromMajor(major int64, currency string) Money {
	return Money{Amount: major * 100, Currency: currency}
}

// Add returns m + o. Fails if the currencies differ.
func (m Money) Add(o Money) (Money, error) {
	if err := m.sameCurrency(o); err != nil {
		return Money{}, err
	}
	return Money{Amount: m.Amount + o.Amount, Currency: m.Currency}, nil
}

// Sub returns m - o. Fails if the currencies differ.
func (m Money) Sub(o Money) (Money, error) {
	if err := m.sameCurrency(o); err != nil {
		return Money{}, err
	}
	return Money{Amount: m.Amount - o.Amount, Currency: m.Currency}, nil
}

// Neg returns -m.
func (m Money) Neg() Money {
	return Money{Amount: -m.Amount, Currency: m.Currency}
}

// MulInt returns m scaled by n (e.g. unit price times quantity).
func (m Money) MulInt(n int64) Money {
	return Money{Amount: m.Amount * n, Currency: m.Currency}
}

// Cmp compares m and o, returning -1, 0 or +1. Fails if the currencies differ.
func (m Money) Cmp(o Money) (int, error) {
	if err := m.sameCurrency(o); err != nil {
		return 0, err
	}
	switch {
	case m.Amount < o.Amount:
		return -1, nil
	case m.Amount > o.Amount:
		return 1, nil
	default:
		return 0, nil
	}
}

// IsZero reports whether the amount is zero.
func (m Money) IsZero() bool {
	return m.Amount == 0
}

// IsNegative reports whether the amount is below zero.
func (m Money) IsNegative() bool {
	return m.Amount < 0
}

// String renders the amount as major.minor units, e.g. "33.00 USD".
// Assumes two decimal places, which holds for every currency the engine is
// used with today.
func (m Money) String() string {
	sign := ""
	amount := m.Amount
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	return fmt.Sprintf("%s%d.%02d %s", sign, amount/100, amount%100, m.Currency)
}

func (m Money) sameCurrency(o Money) error {
	if m.Currency != o.Currency {
		return fmt.Errorf("%w: %s vs %s", ErrCurrencyMismatch, m.Currency, o.Currency)
	}
	return nil
}
