package rebalance

import (
	"context"

	"github.com/rs/zerolog"
)

// CancelDecision is the operator's answer about a working order.
type CancelDecision int

const (
	CancelOne CancelDecision = iota + 1
	CancelAll
	CancelExchange
	KeepOne
	KeepExchange
	KeepAll
)

// CancelPrompter asks the operator whether to cancel an order.
type CancelPrompter interface {
	ConfirmCancel(ctx context.Context, o OpenOrder, index, total int) (CancelDecision, error)
}

// CancelReport summarizes a cancellation run.
type CancelReport struct {
	Cancelled []OpenOrder
	Kept      []OpenOrder
	Failed    []OpenOrder
}

// consent is the cancellation mode carried from one order to the next.
type consent struct {
	all, none bool
	yes, no   map[string]bool
}

func (c consent) decided(mic string) (cancel, ok bool) {
	switch {
	case c.none || c.no[mic]:
		return false, true
	case c.all || c.yes[mic]:
		return true, true
	}
	return false, false
}

func (c consent) apply(d CancelDecision, mic string) consent {
	switch d {
	case CancelAll:
		c.all = true
	case CancelExchange:
		c.yes = with(c.yes, mic)
	case KeepExchange:
		c.no = with(c.no, mic)
	case KeepAll:
		c.none = true
	}
	return c
}

// CancelOrders walks the operator through orders and cancels the approved
// ones. Orders on exchanges cal reports closed are kept unless allExchanges
// is set. A prompt failure keeps the remaining orders.
func CancelOrders(ctx context.Context, orders []OpenOrder, c OrderCanceller, p CancelPrompter, cal ExchangeCalendar, allExchanges bool, logger zerolog.Logger) CancelReport {
	log := logger.With().Str("component", "cancel").Logger()
	var (
		rep   CancelReport
		state consent
	)
	var eligible []OpenOrder
	for _, o := range orders {
		if allExchanges || cal == nil || cal.IsOpen(o.MIC) {
			eligible = append(eligible, o)
		} else {
			rep.Kept = append(rep.Kept, o)
		}
	}
	for i, o := range eligible {
		cancel, ok := state.decided(o.MIC)
		if !ok {
			d, err := p.ConfirmCancel(ctx, o, i+1, len(eligible))
			if err != nil {
				log.Warn().Err(err).Msg("no decision, keeping remaining orders")
				rep.Kept = append(rep.Kept, eligible[i:]...)
				return rep
			}
			state = state.apply(d, o.MIC)
			cancel = d == CancelOne || d == CancelAll || d == CancelExchange
		}
		if !cancel {
			rep.Kept = append(rep.Kept, o)
			continue
		}
		if err := c.CancelOrder(ctx, o.OrderID); err != nil {
			log.Error().Err(err).Str("order", o.String()).Msg("cancel failed")
			rep.Failed = append(rep.Failed, o)
			continue
		}
		log.Info().Str("order", o.String()).Msg("order cancelled")
		rep.Cancelled = append(rep.Cancelled, o)
	}
	return rep
}
