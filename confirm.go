package rebalance

import (
	"maps"

	"github.com/shopspring/decimal"
)

// DecisionKind is the operator's answer to an order prompt.
type DecisionKind int

const (
	Confirm DecisionKind = iota + 1
	ConfirmAll
	ConfirmExchange
	Skip
	SkipExchange
	Modify
	Quit
)

func (k DecisionKind) String() string {
	switch k {
	case Confirm:
		return "confirm"
	case ConfirmAll:
		return "confirm all"
	case ConfirmExchange:
		return "confirm exchange"
	case Skip:
		return "skip"
	case SkipExchange:
		return "skip exchange"
	case Modify:
		return "modify"
	case Quit:
		return "quit"
	}
	return "unknown"
}

// Decision is the operator's answer. Quantity, Limit and Side are only read for Modify.
type Decision struct {
	Kind     DecisionKind
	Quantity decimal.Decimal
	Limit    decimal.Decimal
	Side     Side
}

// Action is what the engine does with the next order.
type Action int

const (
	// Ask the operator.
	Ask Action = iota + 1
	// AutoConfirm submits without asking.
	AutoConfirm
	// AutoSkip drops the order without asking.
	AutoSkip
	// Defer keeps the order for the manual pass.
	Defer
	// Stop ends the run.
	Stop
)

// State is the confirmation mode carried from one order to the next.
// It is a value: transitions return a new State and never modify the receiver.
type State struct {
	all     bool
	confirm map[string]bool // exchanges confirmed for the rest of the run
	skip    map[string]bool // exchanges skipped for the rest of the run
	quit    bool
}

// AutoConfirmExchange reports whether remaining orders on mic are confirmed.
func (s State) AutoConfirmExchange(mic string) bool { return s.confirm[mic] }

// Skipping reports whether remaining orders on mic are skipped.
func (s State) Skipping(mic string) bool { return s.skip[mic] }

// Quitting reports a Quit decision.
func (s State) Quitting() bool { return s.quit }

// Next decides what happens to d. An auto-confirmed order whose amount exceeds
// threshold is deferred instead. A zero threshold disables deferral.
func (s State) Next(d OrderDelta, threshold decimal.Decimal) Action {
	switch {
	case s.quit:
		return Stop
	case s.skip[d.MIC]:
		return AutoSkip
	case s.all || s.confirm[d.MIC]:
		if threshold.IsPositive() && d.Amount().GreaterThan(threshold) {
			return Defer
		}
		return AutoConfirm
	}
	return Ask
}

// Apply returns the state after decision k on an order listed on mic.
func (s State) Apply(k DecisionKind, mic string) State {
	switch k {
	case ConfirmAll:
		s.all = true
	case ConfirmExchange:
		s.confirm = with(s.confirm, mic)
	case SkipExchange:
		s.skip = with(s.skip, mic)
	case Quit:
		s.quit = true
	}
	return s
}

// with returns a copy of set with key added.
func with(set map[string]bool, key string) map[string]bool {
	out := maps.Clone(set)
	if out == nil {
		out = map[string]bool{}
	}
	out[key] = true
	return out
}
