// Package money provides an exact minor-unit money value type.
// Amounts from different currencies never combine silently; every
// cross-value operation checks the currency pair and returns
// ErrCurrencyMismatch on disagreement.
package money

import (
	"errors"
	"fmt"
)

// ErrCurrencyMismatch is returned when two amounts of different
// currencies are combined or compared.
var ErrCurrencyMismatch = errors.New("currency mismatch")

// Currency is an ISO 4217 alphabetic code.
type Currency string

const (
	JPY Currency = "JPY"
	USD Currency = "USD"
	EUR Currency = "EUR"
	KRW Currency = "KRW"
)

// Money is an amount in minor units (yen, cents) of a single currency.
// The zero value is not meaningful; use New or Zero.
type Money struct {
	Amount   int64
	Currency Currency
}

func New(amount int64, currency Currency) Money {
	return Money{Amount: amount, Currency: currency}
}

func Zero(currency Currency) Money {
	return Money{Currency: currency}
}

// Add returns m + o. Fails if the currencies differ.
func (m Money) Add(o Money) (Money, error) {
	if m.Currency != o.Currency {
		return Money{}, fmt.Errorf("adding %s to %s: %w", o.Currency, m.Currency, ErrCurrencyMismatch)
	}

	return Money{Amount: m.Amount + o.Amount, Currency: m.Currency}, nil
}

// Sub returns m - o. Fails if the currencies differ.
func (m Money) Sub(o Money) (Money, error) {
	if m.Currency != o.Currency {
		return Money{}, fmt.Errorf("subtracting %s from %s: %w", o.Currency, m.Currency, ErrCurrencyMismatch)
	}

	return Money{Amount: m.Amount - o.Amount, Currency: m.Currency}, nil
}

// Cmp compares m against o: -1 if m < o, 0 if equal, 1 if m > o.
// Fails if the currencies differ.
func (m Money) Cmp(o Money) (int, error) {
	if m.Currency != o.Currency {
		return 0, fmt.Errorf("comparing %s with %s: %w", m.Currency, o.Currency, ErrCurrencyMismatch)
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

func (m Money) IsPositive() bool {
	return m.Amount > 0
}

func (m Money) IsNegative() bool {
	return m.Amount < 0
}

func (m Money) IsZero() bool {
	return m.Amount == 0
}

func (m Money) String() string {
	return fmt.Sprintf("%d %s", m.Amount, m.Currency)
}
