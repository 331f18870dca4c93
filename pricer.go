package rebalance

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Formula selects how a limit price is derived from a quote.
type Formula int

const (
	// Patience interpolates inside the spread: 0 crosses it, 100 rests on the passive side.
	Patience Formula = iota
	// SpeedVsGreed undercuts the passive quote by a fraction 1/divisor of its distance to the reference.
	SpeedVsGreed
)

func (f Formula) String() string {
	if f == SpeedVsGreed {
		return "speed-vs-greed"
	}
	return "patience"
}

// ParseFormula accepts the names returned by Formula.String.
func ParseFormula(s string) (Formula, error) {
	switch s {
	case "", "patience":
		return Patience, nil
	case "speed-vs-greed":
		return SpeedVsGreed, nil
	}
	return 0, fmt.Errorf("unknown pricing formula %q", s)
}

var (
	hundred        = decimal.NewFromInt(100)
	MinPatience    = decimal.Zero
	MaxPatience    = hundred
	DefaultDivisor = decimal.NewFromInt(20)
)

// Pricer computes limit prices.
type Pricer struct {
	Formula  Formula
	Patience decimal.Decimal // 0..100, for Patience
	Divisor  decimal.Decimal // >= 1, for SpeedVsGreed
	// Tick is the increment of instruments without a tick table. DefaultTick when zero.
	Tick decimal.Decimal
}

// Validate checks the pricer parameters are in range.
func (p Pricer) Validate() error {
	switch p.Formula {
	case Patience:
		if p.Patience.LessThan(MinPatience) || p.Patience.GreaterThan(MaxPatience) {
			return fmt.Errorf("patience %s out of range [0, 100]", p.Patience)
		}
	case SpeedVsGreed:
		if p.Divisor.LessThan(decimal.NewFromInt(1)) {
			return fmt.Errorf("speed-vs-greed divisor %s must be at least 1", p.Divisor)
		}
	}
	return nil
}

// Limit returns the tick aligned limit price for side, or ErrUnpriceable.
func (p Pricer) Limit(q QuoteSnapshot, side Side, ticks TickTable) (decimal.Decimal, error) {
	var (
		raw decimal.Decimal
		err error
	)
	switch p.Formula {
	case SpeedVsGreed:
		raw, err = SpeedVsGreedPrice(q, side, p.Divisor)
	default:
		raw, err = PatiencePrice(q, side, p.Patience)
	}
	if err != nil {
		return decimal.Zero, err
	}
	if !raw.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: computed price %s", ErrUnpriceable, raw)
	}
	if len(ticks) == 0 && p.Tick.IsPositive() {
		ticks = TickTable{{From: decimal.Zero, Increment: p.Tick}}
	}
	limit := ticks.Normalize(raw, side)
	if !limit.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: price %s rounds to zero", ErrUnpriceable, raw)
	}
	return limit, nil
}

// PatiencePrice prices inside the bid/ask spread.
//
// With both quotes, a buy starts at the ask and moves toward the bid as
// patience grows (0 to 100); a sell mirrors it from the bid toward the ask.
// Without them it anchors on the reference (mark, last, close) and moves
// toward the day low (buy) or high (sell) by patience percent of the gap. A
// bare reference is returned when no extreme is known, and a lone bid or ask
// when there is no reference either.
func PatiencePrice(q QuoteSnapshot, side Side, patience decimal.Decimal) (decimal.Decimal, error) {
	f := decimal.Min(decimal.Max(patience, MinPatience), MaxPatience).Div(hundred)
	bid, ask := q.Bid, q.Ask
	if bid.Valid && ask.Valid && bid.Decimal.IsPositive() && ask.Decimal.IsPositive() {
		spread := ask.Decimal.Sub(bid.Decimal)
		if side == Buy {
			return ask.Decimal.Sub(spread.Mul(f)), nil
		}
		return bid.Decimal.Add(spread.Mul(f)), nil
	}
	if ref, ok := q.Reference(); ok {
		extreme := q.Low
		if side == Sell {
			extreme = q.High
		}
		if extreme.Valid && extreme.Decimal.IsPositive() {
			return ref.Add(extreme.Decimal.Sub(ref).Mul(f)), nil
		}
		return ref, nil
	}
	if v, ok := firstPositive(ask, bid); ok {
		return v, nil
	}
	return decimal.Zero, ErrUnpriceable
}

// SpeedVsGreedPrice moves past the passive quote by 1/divisor of its distance
// to the reference: a buy bids below the bid, a sell offers above the ask.
// Without the passive quote it anchors on the reference and moves toward the
// day low (buy) or high (sell) by 1/divisor of the gap.
func SpeedVsGreedPrice(q QuoteSnapshot, side Side, divisor decimal.Decimal) (decimal.Decimal, error) {
	d := orOne(divisor)
	passive, extreme := q.Bid, q.Low
	if side == Sell {
		passive, extreme = q.Ask, q.High
	}
	ref, hasRef := q.Reference()
	switch {
	case hasRef && passive.Valid && passive.Decimal.IsPositive():
		return passive.Decimal.Sub(ref.Sub(passive.Decimal).Div(d)), nil
	case hasRef && extreme.Valid && extreme.Decimal.IsPositive():
		return ref.Sub(ref.Sub(extreme.Decimal).Div(d)), nil
	case hasRef:
		return ref, nil
	}
	if v, ok := firstPositive(passive); ok {
		return v, nil
	}
	return decimal.Zero, ErrUnpriceable
}

func firstPositive(vs ...decimal.NullDecimal) (decimal.Decimal, bool) {
	for _, v := range vs {
		if v.Valid && v.Decimal.IsPositive() {
			return v.Decimal, true
		}
	}
	return decimal.Zero, false
}
