package rebalance

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Side of an order.
type Side int

const (
	Buy Side = iota + 1
	Sell
)

func (s Side) String() string {
	switch s {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	default:
		return "?"
	}
}

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

// Sign applies the side's sign to a non negative quantity.
func (s Side) Sign(q decimal.Decimal) decimal.Decimal {
	if s == Sell {
		return q.Neg()
	}
	return q
}

// SideOf derives the side from a signed value: positive or zero buys, negative sells.
func SideOf(v decimal.Decimal) Side {
	if v.IsNegative() {
		return Sell
	}
	return Buy
}

// ParseSide accepts "buy"/"sell" and their one letter forms, case insensitive.
func ParseSide(s string) (Side, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "BUY", "B":
		return Buy, nil
	case "SELL", "S":
		return Sell, nil
	}
	return 0, fmt.Errorf("invalid side %q", s)
}
