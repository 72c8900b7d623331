// Package money provides an exact fixed-point amount paired with an
// ISO 4217 currency code. Amounts never pass through floating point.
package money

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Money is an exact monetary amount in a single currency
type Money struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

// New creates a Money value from a decimal amount and currency code
func New(amount decimal.Decimal, currency string) (Money, error) {
	code := strings.ToUpper(strings.TrimSpace(currency))
	if len(code) != 3 {
		return Money{}, fmt.Errorf("invalid currency code: %q", currency)
	}
	return Money{Amount: amount, Currency: code}, nil
}

// FromString parses a decimal string amount, e.g. "100.00"
func FromString(amount, currency string) (Money, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return Money{}, fmt.Errorf("invalid amount %q: %w", amount, err)
	}
	return New(d, currency)
}

// Zero returns a zero amount in the given currency
func Zero(currency string) Money {
	return Money{Amount: decimal.Zero, Currency: strings.ToUpper(currency)}
}

// Add returns m + other; the currencies must match
func (m Money) Add(other Money) (Money, error) {
	if err := m.assertSameCurrency(other); err != nil {
		return Money{}, err
	}
	return Money{Amount: m.Amount.Add(other.Amount), Currency: m.Currency}, nil
}

// Sub returns m - other; the currencies must match
func (m Money) Sub(other Money) (Money, error) {
	if err := m.assertSameCurrency(other); err != nil {
		return Money{}, err
	}
	return Money{Amount: m.Amount.Sub(other.Amount), Currency: m.Currency}, nil
}

// Cmp compares amounts: -1 if m < other, 0 if equal, 1 if m > other
func (m Money) Cmp(other Money) (int, error) {
	if err := m.assertSameCurrency(other); err != nil {
		return 0, err
	}
	return m.Amount.Cmp(other.Amount), nil
}

// IsPositive reports whether the amount is greater than zero
func (m Money) IsPositive() bool {
	return m.Amount.IsPositive()
}

// IsZero reports whether the amount is exactly zero
func (m Money) IsZero() bool {
	return m.Amount.IsZero()
}

// IsNegative reports whether the amount is less than zero
func (m Money) IsNegative() bool {
	return m.Amount.IsNegative()
}

// String renders the amount and currency, e.g. "100.00 USD"
func (m Money) String() string {
	return m.Amount.String() + " " + m.Currency
}

func (m Money) assertSameCurrency(other Money) error {
	if m.Currency != other.Currency {
		return fmt.Errorf("currency mismatch: %s vs %s", m.Currency, other.Currency)
	}
	return nil
}
