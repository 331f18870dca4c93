package rebalance

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Prompt is presented to the operator for one order.
type Prompt struct {
	Delta    OrderDelta
	Index    int // 1 based position in the pass
	Total    int
	Deferred bool // the order is re-presented after the main pass
}

// Prompter asks the operator about an order.
type Prompter interface {
	Confirm(ctx context.Context, p Prompt) (Decision, error)
}

// Outcome is the fate of one order.
type Outcome struct {
	Delta    OrderDelta
	ClientID string
	OrderID  string
	Auto     bool // confirmed without a prompt
	Deferred bool
	Err      error
}

// Report summarizes a confirmation run.
type Report struct {
	Placed    []Outcome
	Rejected  []Outcome
	Skipped   []OrderDelta
	Abandoned []OrderDelta // not decided because of a quit
	Quit      bool
}

// Submitted reports whether at least one submission reached the broker.
func (r Report) Submitted() bool { return len(r.Placed)+len(r.Rejected) > 0 }

// Engine walks the operator through the orders and submits the confirmed ones.
type Engine struct {
	Submitter OrderSubmitter
	Prompter  Prompter
	// Threshold is the order amount above which auto-confirmation is overridden.
	Threshold decimal.Decimal
	// MaxRetries bounds the prompts for one order when the prompter fails.
	MaxRetries int

	run       string
	submitted map[string]bool
	log       zerolog.Logger
}

// NewEngine returns an Engine with a fresh run identifier.
func NewEngine(sub OrderSubmitter, p Prompter, threshold decimal.Decimal, logger zerolog.Logger) *Engine {
	run := uuid.NewString()
	return &Engine{
		Submitter:  sub,
		Prompter:   p,
		Threshold:  threshold,
		MaxRetries: 3,
		run:        run,
		submitted:  map[string]bool{},
		log:        logger.With().Str("component", "confirm").Str("run", run).Logger(),
	}
}

// key identifies the i-th order of the run across prompts, modifications and passes.
func (e *Engine) key(i int) string { return fmt.Sprintf("%s-%d", e.run, i) }

// Run processes deltas in order. Orders deferred by the threshold are
// re-presented one by one after the main pass. A Quit, or a cancelled ctx,
// stops immediately: orders already confirmed stay submitted, the others are
// abandoned.
func (e *Engine) Run(ctx context.Context, deltas []OrderDelta) Report {
	var (
		rep      Report
		state    State
		deferred []int
	)
	for i, d := range deltas {
		if ctx.Err() != nil {
			state = state.Apply(Quit, d.MIC)
		}
		switch state.Next(d, e.Threshold) {
		case Stop:
			rep.Abandoned = append(rep.Abandoned, deltas[i:]...)
			rep.Quit = true
			for _, j := range deferred {
				rep.Abandoned = append(rep.Abandoned, deltas[j])
			}
			return rep
		case AutoSkip:
			rep.Skipped = append(rep.Skipped, d)
		case Defer:
			e.log.Info().Str("order", d.String()).Str("amount", d.Amount().StringFixed(2)).Msg("above auto-confirm threshold, deferred")
			deferred = append(deferred, i)
		case AutoConfirm:
			e.submit(ctx, &rep, i, d, true, false)
		case Ask:
			state = e.ask(ctx, &rep, state, i, d, Prompt{Delta: d, Index: i + 1, Total: len(deltas)})
		}
	}

	if state.Quitting() {
		for _, j := range deferred {
			rep.Abandoned = append(rep.Abandoned, deltas[j])
		}
		rep.Quit = true
		return rep
	}

	// Manual pass: every deferred order is prompted, whatever the mode.
	var manual State
	manual.skip = state.skip
	for n, i := range deferred {
		d := deltas[i]
		if ctx.Err() != nil {
			manual = manual.Apply(Quit, d.MIC)
		}
		if manual.Quitting() {
			for _, j := range deferred[n:] {
				rep.Abandoned = append(rep.Abandoned, deltas[j])
			}
			rep.Quit = true
			return rep
		}
		if manual.Skipping(d.MIC) {
			rep.Skipped = append(rep.Skipped, d)
			continue
		}
		manual = e.ask(ctx, &rep, manual, i, d, Prompt{Delta: d, Index: n + 1, Total: len(deferred), Deferred: true})
		manual.all, manual.confirm = false, nil
	}
	if manual.Quitting() {
		rep.Quit = true
	}
	return rep
}

// ask prompts for delta i and acts on the decision.
func (e *Engine) ask(ctx context.Context, rep *Report, state State, i int, d OrderDelta, p Prompt) State {
	for attempt := 0; ; attempt++ {
		dec, err := e.Prompter.Confirm(ctx, p)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) || attempt+1 >= max(e.MaxRetries, 1) {
				e.log.Warn().Err(err).Str("order", d.String()).Msg("no decision, quitting")
				rep.Abandoned = append(rep.Abandoned, d)
				return state.Apply(Quit, d.MIC)
			}
			e.log.Warn().Err(err).Msg("prompt failed, asking again")
			continue
		}
		switch dec.Kind {
		case Confirm, ConfirmAll, ConfirmExchange:
			e.submit(ctx, rep, i, d, false, p.Deferred)
		case Skip, SkipExchange:
			rep.Skipped = append(rep.Skipped, d)
		case Modify:
			if !dec.Quantity.IsPositive() || !dec.Limit.IsPositive() || (dec.Side != Buy && dec.Side != Sell) {
				e.log.Warn().Str("quantity", dec.Quantity.String()).Str("limit", dec.Limit.String()).Msg("invalid modification, asking again")
				continue
			}
			m := d.Modify(dec.Quantity, dec.Limit, dec.Side)
			e.log.Info().Str("from", d.String()).Str("to", m.String()).Msg("order modified")
			e.submit(ctx, rep, i, m, false, p.Deferred)
		case Quit:
			rep.Abandoned = append(rep.Abandoned, d)
		default:
			e.log.Warn().Int("decision", int(dec.Kind)).Msg("unknown decision, asking again")
			continue
		}
		return state.Apply(dec.Kind, d.MIC)
	}
}

// submit places delta i once. A second call for the same delta is a no-op.
func (e *Engine) submit(ctx context.Context, rep *Report, i int, d OrderDelta, auto, deferred bool) {
	key := e.key(i)
	if e.submitted[key] {
		e.log.Warn().Str("order", d.String()).Msg("already submitted, ignored")
		return
	}
	e.submitted[key] = true

	out := Outcome{Delta: d, ClientID: key, Auto: auto, Deferred: deferred}
	out.OrderID, out.Err = e.Submitter.SubmitOrder(ctx, OrderTicket{
		ClientID: key,
		ID:       d.ID,
		Symbol:   d.Symbol,
		MIC:      d.MIC,
		Side:     d.Side,
		Quantity: d.Quantity,
		Limit:    d.Limit,
	})
	if out.Err != nil {
		e.log.Error().Err(out.Err).Str("order", d.String()).Msg("order not placed")
		rep.Rejected = append(rep.Rejected, out)
		return
	}
	e.log.Info().Str("order", d.String()).Str("order_id", out.OrderID).Bool("auto", auto).Msg("order placed")
	rep.Placed = append(rep.Placed, out)
}
