package rebalance

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
)

// decimalEqual compares decimals by value, so 1.50 equals 1.5.
var decimalEqual = cmp.Comparer(func(a, b decimal.Decimal) bool { return a.Equal(b) })

func known(f float64) decimal.NullDecimal { return Known(decimal.NewFromFloat(f)) }

// fakeLookup answers lookups from static tables keyed by "symbol@mic", name and option string.
type fakeLookup struct {
	symbols map[string][]Candidate
	names   map[string][]Candidate
	options map[string][]Candidate
	fail    map[string]error // keyed like the tables, returned instead of data

	mu    sync.Mutex
	calls []string
}

func (f *fakeLookup) record(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, key)
	return f.fail[key]
}

func (f *fakeLookup) LookupSymbol(_ context.Context, symbol, mic string) ([]Candidate, error) {
	key := symbol + "@" + mic
	if err := f.record(key); err != nil {
		return nil, err
	}
	return f.symbols[key], nil
}

func (f *fakeLookup) SearchName(_ context.Context, name string) ([]Candidate, error) {
	if err := f.record(name); err != nil {
		return nil, err
	}
	return f.names[name], nil
}

func (f *fakeLookup) LookupOption(_ context.Context, spec OptionSpec) ([]Candidate, error) {
	key := spec.String()
	if err := f.record(key); err != nil {
		return nil, err
	}
	return f.options[key], nil
}

type fakeSuggester struct {
	c   *Candidate
	err error
	n   int
}

func (f *fakeSuggester) Suggest(context.Context, PortfolioRow) (*Candidate, error) {
	f.n++
	return f.c, f.err
}

// fakeQuotes serves static quotes and rates.
type fakeQuotes struct {
	quotes map[InstrumentID]QuoteSnapshot
	rates  map[string]decimal.Decimal
	err    error
}

func (f *fakeQuotes) Quotes(_ context.Context, ids []InstrumentID) (map[InstrumentID]QuoteSnapshot, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := map[InstrumentID]QuoteSnapshot{}
	for _, id := range ids {
		if q, ok := f.quotes[id]; ok {
			out[id] = q
		}
	}
	return out, nil
}

func (f *fakeQuotes) ExchangeRate(_ context.Context, cur string) (decimal.Decimal, error) {
	if r, ok := f.rates[cur]; ok {
		return r, nil
	}
	if cur == "USD" {
		return decimal.NewFromInt(1), nil
	}
	return decimal.Zero, fmt.Errorf("no rate for %s", cur)
}

// recordingSubmitter records every submission.
type recordingSubmitter struct {
	tickets []OrderTicket
	reject  map[InstrumentID]bool
}

func (s *recordingSubmitter) SubmitOrder(_ context.Context, t OrderTicket) (string, error) {
	s.tickets = append(s.tickets, t)
	if s.reject[t.ID] {
		return "", &RejectedError{Reason: "invalid tick"}
	}
	return fmt.Sprintf("o%d", len(s.tickets)), nil
}

func (s *recordingSubmitter) ids() []InstrumentID {
	var out []InstrumentID
	for _, t := range s.tickets {
		out = append(out, t.ID)
	}
	return out
}

// scriptedPrompter answers prompts from a script, then falls back to Default.
type scriptedPrompter struct {
	script  []Decision
	Default DecisionKind
	prompts []Prompt
}

func (p *scriptedPrompter) Confirm(_ context.Context, pr Prompt) (Decision, error) {
	p.prompts = append(p.prompts, pr)
	if len(p.script) > 0 {
		d := p.script[0]
		p.script = p.script[1:]
		return d, nil
	}
	if p.Default == 0 {
		return Decision{}, errors.New("script exhausted")
	}
	return Decision{Kind: p.Default}, nil
}

func (p *scriptedPrompter) prompted() []InstrumentID {
	var out []InstrumentID
	for _, pr := range p.prompts {
		out = append(out, pr.Delta.ID)
	}
	return out
}

// staticCalendar reports exchanges in open as open.
type staticCalendar map[string]bool

func (c staticCalendar) IsOpen(mic string) bool { return c[mic] }

// memGateStore keeps the invalidation time in memory.
type memGateStore struct {
	at      time.Time
	ok      bool
	records int
}

func (m *memGateStore) LastInvalidation(context.Context) (time.Time, bool, error) {
	return m.at, m.ok, nil
}

func (m *memGateStore) RecordInvalidation(_ context.Context, at time.Time) error {
	m.at, m.ok = at, true
	m.records++
	return nil
}

type countingInvalidator struct {
	n   int
	err error
}

func (c *countingInvalidator) InvalidatePositions(context.Context) error {
	c.n++
	return c.err
}

type fakeCanceller struct {
	cancelled []string
	fail      map[string]bool
}

func (f *fakeCanceller) CancelOrder(_ context.Context, id string) error {
	if f.fail[id] {
		return errors.New("already filled")
	}
	f.cancelled = append(f.cancelled, id)
	return nil
}

type scriptedCancelPrompter struct {
	script []CancelDecision
	asked  []string
}

func (p *scriptedCancelPrompter) ConfirmCancel(_ context.Context, o OpenOrder, _, _ int) (CancelDecision, error) {
	p.asked = append(p.asked, o.OrderID)
	if len(p.script) == 0 {
		return 0, errors.New("script exhausted")
	}
	d := p.script[0]
	p.script = p.script[1:]
	return d, nil
}
