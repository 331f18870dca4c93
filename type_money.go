package rebalance

import (
	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Money represents a monetary value used in operator facing messages.
type Money struct {
	value decimal.Decimal // as major unit value
	cur   string
}

// M creates a Money in currency cur. An empty currency formats as USD.
func M[T float32 | float64 | int | int32 | int64 | uint | uint32 | uint64 | decimal.Decimal](value T, cur string) Money {
	return Money{value: newDecimal(value), cur: cur}
}

// currency returns the money's currency
func (m Money) currency() money.Currency {
	code := m.cur
	if code == "" {
		code = money.USD
	}
	// to get a never nil currency I need to call the Money constructor
	return *money.New(0, code).Currency()
}

// String returns the string representation of the money value.
func (m Money) String() string {
	cur := m.currency()
	dec := m.value.Shift(int32(cur.Fraction)).Round(0)
	return cur.Formatter().Format(dec.IntPart())
}

// Price formats a unit price, keeping up to four decimals so sub-cent ticks stay visible.
func (m Money) Price() string {
	cur := m.currency()
	if m.value.Exponent() >= -int32(cur.Fraction) {
		return m.String()
	}
	return cur.Grapheme + m.value.Round(4).String()
}

// SignedString returns the string representation of the money value with a sign.
// 0 is represented as a "-"
func (m Money) SignedString() string {
	if m.value.IsZero() {
		return "-"
	}
	if m.value.IsPositive() {
		return "+" + m.String()
	}
	return m.String()
}
