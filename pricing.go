package rebalance

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Plan prices r against q and plans the order that reaches its target.
//
// The planned quantity is the target converted to the instrument currency,
// divided by the limit and the multiplier, truncated toward zero. The planned
// amount is the value of that quantity back in account currency.
func Plan(r ResolvedInstrument, q QuoteSnapshot, fx decimal.Decimal, p Pricer) (PricedInstrument, error) {
	side := SideOf(r.Row.Target)
	limit, err := p.Limit(q, side, r.Ticks)
	if err != nil {
		return PricedInstrument{}, err
	}
	if !fx.IsPositive() {
		return PricedInstrument{}, fmt.Errorf("%w: no exchange rate for %s", ErrUnpriceable, r.Currency)
	}
	mult := orOne(r.Multiplier)
	qty := wholeUnits(r.Row.Target.Abs().Mul(fx).Div(limit.Mul(mult)))
	return PricedInstrument{
		ResolvedInstrument: r,
		Quote:              q,
		FX:                 fx,
		Limit:              limit,
		Side:               side,
		Quantity:           side.Sign(qty),
		Amount:             side.Sign(qty.Mul(limit).Mul(mult).Div(fx)).Round(2),
	}, nil
}

// Pricing fetches quotes and exchange rates and plans every instrument.
type Pricing struct {
	Source QuoteSource
	Pricer Pricer
	Ticks  TickSource // optional
	log    zerolog.Logger
}

// NewPricing returns a Pricing stage reading market data from src. When src
// is also a TickSource it fills in missing tick tables.
func NewPricing(src QuoteSource, p Pricer, logger zerolog.Logger) *Pricing {
	s := &Pricing{Source: src, Pricer: p, log: logger.With().Str("component", "pricing").Logger()}
	if ts, ok := src.(TickSource); ok {
		s.Ticks = ts
	}
	return s
}

// PriceAll plans instruments in input order. Instruments without usable data
// are dropped with a *DropError; only a failure to reach the quote source at
// all is returned as an error.
func (s *Pricing) PriceAll(ctx context.Context, instruments []ResolvedInstrument) ([]PricedInstrument, []*DropError, error) {
	ids := make([]InstrumentID, 0, len(instruments))
	for _, r := range instruments {
		ids = append(ids, r.ID)
	}
	quotes, err := s.Source.Quotes(ctx, ids)
	if err != nil {
		return nil, nil, fmt.Errorf("fetching quotes: %w", err)
	}
	rates, rateErrs := s.rates(ctx, instruments)

	var (
		priced []PricedInstrument
		drops  []*DropError
	)
	for _, r := range instruments {
		drop := func(err error) {
			d := &DropError{Stage: "pricing", Subject: r.Symbol + " " + string(r.ID), Err: err}
			s.log.Warn().Err(err).Str("id", string(r.ID)).Str("symbol", r.Symbol).Msg("instrument dropped")
			drops = append(drops, d)
		}
		if err, ok := rateErrs[r.Currency]; ok {
			drop(fmt.Errorf("%w: no exchange rate for %s: %v", ErrUnpriceable, r.Currency, err))
			continue
		}
		q := quotes[r.ID]
		if q.IsEmpty() {
			drop(fmt.Errorf("%w: no quote data", ErrUnpriceable))
			continue
		}
		if len(r.Ticks) == 0 {
			r.Ticks = s.tickTable(ctx, r.ID)
		}
		p, err := Plan(r, q, rates[r.Currency], s.Pricer)
		if err != nil {
			drop(err)
			continue
		}
		if p.Quantity.IsZero() && !r.Row.Target.IsZero() {
			s.log.Info().Str("symbol", r.Symbol).Str("limit", p.Limit.String()).Msg("target smaller than one unit")
		}
		priced = append(priced, p)
	}
	return priced, drops, nil
}

// tickTable fetches the tick table of id. Nil selects the pricer's default increment.
func (s *Pricing) tickTable(ctx context.Context, id InstrumentID) TickTable {
	if s.Ticks == nil {
		return nil
	}
	ticks, err := s.Ticks.TickTable(ctx, id)
	if err != nil {
		s.log.Warn().Err(err).Str("id", string(id)).Msg("no tick table, using default increment")
		return nil
	}
	return ticks
}

// rates fetches one exchange rate per distinct currency.
func (s *Pricing) rates(ctx context.Context, instruments []ResolvedInstrument) (map[string]decimal.Decimal, map[string]error) {
	set := map[string]bool{}
	for _, r := range instruments {
		set[r.Currency] = true
	}
	currencies := make([]string, 0, len(set))
	for c := range set {
		currencies = append(currencies, c)
	}
	sort.Strings(currencies)

	rates := map[string]decimal.Decimal{}
	errs := map[string]error{}
	for _, c := range currencies {
		if c == "" {
			rates[c] = decimal.NewFromInt(1)
			continue
		}
		fx, err := s.Source.ExchangeRate(ctx, c)
		if err == nil && !fx.IsPositive() {
			err = errors.New("non positive rate")
		}
		if err != nil {
			errs[c] = err
			continue
		}
		rates[c] = fx
	}
	return rates, errs
}
