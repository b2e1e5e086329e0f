package money

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidCurrency = errors.New("money: invalid currency code")
	ErrNotPositive     = errors.New("money: amount must be positive")
)

// Money keeps amounts in minor units to avoid floating point issues.
type Money struct {
	Amount   int64
	Currency string
}

func New(amount int64, currency string) (Money, error) {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if len(currency) != 3 {
		return Money{}, ErrInvalidCurrency
	}
	return Money{Amount: amount, Currency: currency}, nil
}

// NewPositive is New with the additional requirement that the amount is above zero.
func NewPositive(amount int64, currency string) (Money, error) {
	m, err := New(amount, currency)
	if err != nil {
		return Money{}, err
	}
	if amount <= 0 {
		return Money{}, ErrNotPositive
	}
	return m, nil
}

func Must(amount int64, currency string) Money {
	m, err := New(amount, currency)
	if err != nil {
		panic(err)
	}
	return m
}

func (m Money) String() string {
	return fmt.Sprintf("%d.%02d %s", m.Amount/100, abs(m.Amount%100), m.Currency)
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
