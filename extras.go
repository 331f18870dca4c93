package rebalance

import (
	"context"
	"fmt"
	"strings"
)

// ExtraPolicy is what to do with positions absent from the targets.
type ExtraPolicy int

const (
	// IgnoreExtras drops them silently from the run output.
	IgnoreExtras ExtraPolicy = iota
	// ReportExtras lists them to the operator.
	ReportExtras
	// LiquidateExtras lists them and queues closing orders after the target orders.
	LiquidateExtras
)

func (p ExtraPolicy) String() string {
	switch p {
	case ReportExtras:
		return "report"
	case LiquidateExtras:
		return "liquidate"
	}
	return "ignore"
}

// ParseExtraPolicy accepts the names returned by ExtraPolicy.String.
func ParseExtraPolicy(s string) (ExtraPolicy, error) {
	switch strings.ToLower(s) {
	case "ignore":
		return IgnoreExtras, nil
	case "", "report":
		return ReportExtras, nil
	case "liquidate":
		return LiquidateExtras, nil
	}
	return 0, fmt.Errorf("unknown extra position policy %q", s)
}

// Liquidate prices closing orders for extras. Extras already flat once their
// working orders fill produce no order.
func (s *Pricing) Liquidate(ctx context.Context, extras []Extra, cal ExchangeCalendar, allExchanges bool) (ready, closed []OrderDelta, drops []*DropError, err error) {
	var ids []InstrumentID
	for _, e := range extras {
		ids = append(ids, e.ID)
	}
	if len(ids) == 0 {
		return nil, nil, nil, nil
	}
	quotes, err := s.Source.Quotes(ctx, ids)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("fetching quotes: %w", err)
	}
	instruments := make([]ResolvedInstrument, 0, len(extras))
	for _, e := range extras {
		instruments = append(instruments, ResolvedInstrument{ID: e.ID, Currency: strings.ToUpper(e.Currency)})
	}
	rates, rateErrs := s.rates(ctx, instruments)

	for _, e := range extras {
		net := e.Net()
		if net.IsZero() {
			continue
		}
		subject := e.Symbol + " " + string(e.ID)
		cur := strings.ToUpper(e.Currency)
		if rerr, ok := rateErrs[cur]; ok {
			drops = append(drops, &DropError{Stage: "liquidation", Subject: subject, Err: fmt.Errorf("%w: no exchange rate for %s: %v", ErrUnpriceable, cur, rerr)})
			continue
		}
		side := SideOf(net)
		limit, perr := s.Pricer.Limit(quotes[e.ID], side, s.tickTable(ctx, e.ID))
		if perr != nil {
			drops = append(drops, &DropError{Stage: "liquidation", Subject: subject, Err: perr})
			continue
		}
		d := OrderDelta{
			ID:         e.ID,
			Symbol:     e.Symbol,
			Name:       e.Name,
			MIC:        e.MIC,
			Currency:   cur,
			Side:       side,
			Quantity:   net.Abs(),
			Limit:      limit,
			Multiplier: e.Multiplier,
			FX:         rates[cur],
			Eligible:   cal == nil || cal.IsOpen(e.MIC),
			Extra:      true,
		}
		if d.Eligible || allExchanges {
			ready = append(ready, d)
		} else {
			closed = append(closed, d)
		}
	}
	for _, d := range drops {
		s.log.Warn().Err(d.Err).Str("subject", d.Subject).Msg("extra position not liquidated")
	}
	return ready, closed, drops, nil
}
