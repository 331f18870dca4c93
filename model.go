package rebalance

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// InstrumentID is the broker issued identifier of a tradable contract.
type InstrumentID string

// PortfolioRow is one target position of the portfolio.
//
// Target is the signed dollar amount to hold: positive for a long target,
// negative for a short one. Percentage allocations are converted to dollars
// before rows reach the resolver.
type PortfolioRow struct {
	Ticker    string
	AltTicker string // takes priority over Ticker when set
	Name      string
	Target    decimal.Decimal
	MIC       string
}

// Symbol returns the ticker to look up, cleaned of terminal suffixes.
func (r PortfolioRow) Symbol() string {
	if t := CleanTicker(r.AltTicker); t != "" {
		return t
	}
	return CleanTicker(r.Ticker)
}

// Option returns the option terms if the row describes an option.
func (r PortfolioRow) Option() (OptionSpec, bool) {
	for _, t := range []string{r.AltTicker, r.Ticker} {
		if o, ok := ParseOption(t); ok {
			return o, true
		}
	}
	return OptionSpec{}, false
}

// IsOption reports rows that describe an option, by ticker or by name.
func (r PortfolioRow) IsOption() bool {
	_, ok := r.Option()
	return ok || looksLikeOption(r.Name)
}

// Validate checks the row can enter the resolver.
func (r PortfolioRow) Validate() error {
	if r.Symbol() == "" && strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("row has neither ticker nor name")
	}
	if r.MIC != "" {
		if err := ValidateMIC(r.MIC); err != nil {
			return err
		}
	}
	return nil
}

func (r PortfolioRow) String() string {
	s := r.Symbol()
	if s == "" {
		return r.Name
	}
	if r.MIC != "" {
		s += "@" + r.MIC
	}
	if r.Name != "" {
		s += " (" + r.Name + ")"
	}
	return s
}

// Candidate is a contract returned by an instrument lookup.
type Candidate struct {
	ID         InstrumentID
	Symbol     string
	Name       string
	MIC        string
	Currency   string
	Multiplier decimal.Decimal // zero means 1
	Ticks      TickTable
}

// ResolvedInstrument is a row mapped to a unique broker instrument.
type ResolvedInstrument struct {
	ID           InstrumentID
	Symbol       string
	Name         string
	MIC          string
	Currency     string
	Multiplier   decimal.Decimal
	Ticks        TickTable
	NameMismatch bool
	Step         string // the resolver strategy that found it
	Row          PortfolioRow
}

func newResolved(row PortfolioRow, c Candidate, step string, mismatch bool) ResolvedInstrument {
	return ResolvedInstrument{
		ID:           c.ID,
		Symbol:       c.Symbol,
		Name:         c.Name,
		MIC:          c.MIC,
		Currency:     strings.ToUpper(c.Currency),
		Multiplier:   c.Multiplier,
		Ticks:        c.Ticks,
		NameMismatch: mismatch,
		Step:         step,
		Row:          row,
	}
}

// QuoteSnapshot is a market data snapshot. Missing fields are invalid NullDecimals.
type QuoteSnapshot struct {
	Bid   decimal.NullDecimal
	Ask   decimal.NullDecimal
	Last  decimal.NullDecimal
	Close decimal.NullDecimal
	Mark  decimal.NullDecimal
	High  decimal.NullDecimal
	Low   decimal.NullDecimal
}

// IsEmpty reports a snapshot without any price.
func (q QuoteSnapshot) IsEmpty() bool {
	for _, v := range []decimal.NullDecimal{q.Bid, q.Ask, q.Last, q.Close, q.Mark, q.High, q.Low} {
		if v.Valid {
			return false
		}
	}
	return true
}

// Reference returns the first available of mark, last and close.
func (q QuoteSnapshot) Reference() (decimal.Decimal, bool) {
	for _, v := range []decimal.NullDecimal{q.Mark, q.Last, q.Close} {
		if v.Valid && v.Decimal.IsPositive() {
			return v.Decimal, true
		}
	}
	return decimal.Zero, false
}

// Known returns a valid NullDecimal holding d.
func Known(d decimal.Decimal) decimal.NullDecimal { return decimal.NewNullDecimal(d) }

// PricedInstrument is a resolved instrument with a limit price and a planned order.
type PricedInstrument struct {
	ResolvedInstrument
	Quote    QuoteSnapshot
	FX       decimal.Decimal // instrument currency units per account currency unit
	Limit    decimal.Decimal
	Side     Side
	Quantity decimal.Decimal // signed, whole units
	Amount   decimal.Decimal // signed, account currency
}

// Holding is a current position.
type Holding struct {
	ID          InstrumentID
	Symbol      string
	Name        string
	MIC         string
	Currency    string
	Quantity    decimal.Decimal // signed
	Multiplier  decimal.Decimal
	MarketValue decimal.Decimal // account currency
}

// OpenOrder is an order resting unfilled at the broker.
type OpenOrder struct {
	OrderID   string
	ID        InstrumentID
	Symbol    string
	MIC       string
	Side      Side
	Remaining decimal.Decimal // unsigned
	Limit     decimal.Decimal
}

// Signed returns the remaining quantity signed by side.
func (o OpenOrder) Signed() decimal.Decimal { return o.Side.Sign(o.Remaining.Abs()) }

func (o OpenOrder) String() string {
	return fmt.Sprintf("#%s %s %s %s @ %s on %s", o.OrderID, o.Side, formatQuantity(o.Remaining), o.Symbol, o.Limit, o.MIC)
}

// OrderDelta is an order the reconciliation asks for.
type OrderDelta struct {
	ID         InstrumentID
	Symbol     string
	Name       string
	MIC        string
	Currency   string
	Side       Side
	Quantity   decimal.Decimal // strictly positive, in the direction of Side
	Limit      decimal.Decimal
	Multiplier decimal.Decimal
	FX         decimal.Decimal
	Eligible   bool // the exchange is open
	Extra      bool // closes a position absent from the targets
}

// Amount is the dollar value of the order in account currency, unsigned.
func (d OrderDelta) Amount() decimal.Decimal {
	return d.Quantity.Mul(d.Limit).Mul(orOne(d.Multiplier)).Div(orOne(d.FX)).Abs()
}

// Notional is the order value in the instrument's currency, unsigned.
func (d OrderDelta) Notional() decimal.Decimal {
	return d.Quantity.Mul(d.Limit).Mul(orOne(d.Multiplier)).Abs()
}

// Modify returns a copy of d with new quantity, price and side.
func (d OrderDelta) Modify(qty, limit decimal.Decimal, side Side) OrderDelta {
	d.Quantity = qty
	d.Limit = limit
	d.Side = side
	return d
}

func (d OrderDelta) String() string {
	return fmt.Sprintf("%s %s %s @ %s on %s", d.Side, formatQuantity(d.Quantity), d.Symbol, M(d.Limit, d.Currency).Price(), d.MIC)
}
