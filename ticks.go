package rebalance

import (
	"sort"

	"github.com/shopspring/decimal"
)

// DefaultTick is the price increment used when an instrument has no tick rules.
var DefaultTick = decimal.New(1, -2)

// TickBand applies Increment to prices at or above From.
type TickBand struct {
	From      decimal.Decimal
	Increment decimal.Decimal
}

// TickTable is a price ladder of increments. An empty table uses DefaultTick.
type TickTable []TickBand

// Increment returns the tick size that applies at price p.
func (t TickTable) Increment(p decimal.Decimal) decimal.Decimal {
	bands := make(TickTable, 0, len(t))
	for _, b := range t {
		if b.Increment.IsPositive() {
			bands = append(bands, b)
		}
	}
	if len(bands) == 0 {
		return DefaultTick
	}
	sort.SliceStable(bands, func(i, j int) bool { return bands[i].From.LessThan(bands[j].From) })
	inc := bands[0].Increment
	for _, b := range bands {
		if p.GreaterThanOrEqual(b.From) {
			inc = b.Increment
		}
	}
	return inc
}

// Normalize rounds p to the nearest valid tick. On a tie it rounds toward the
// aggressive side: up for a buy, down for a sell. Aligned prices are returned unchanged.
func (t TickTable) Normalize(p decimal.Decimal, side Side) decimal.Decimal {
	inc := t.Increment(p)
	rem := p.Mod(inc)
	if rem.IsZero() {
		return p
	}
	if rem.IsNegative() {
		rem = rem.Add(inc)
	}
	lower := p.Sub(rem)
	upper := lower.Add(inc)
	switch down, up := rem, inc.Sub(rem); {
	case down.LessThan(up):
		return lower
	case up.LessThan(down):
		return upper
	case side == Sell:
		return lower
	default:
		return upper
	}
}
