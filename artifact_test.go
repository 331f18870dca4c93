package rebalance

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
)

func TestArtifact_RoundTrip(t *testing.T) {
	r := ResolvedInstrument{
		ID: "265598", Symbol: "AAPL", Name: "APPLE INC", MIC: "XNAS", Currency: "USD",
		Ticks: TickTable{{From: D(0), Increment: D(0.01)}}, Step: "symbol",
		Row: PortfolioRow{Ticker: "AAPL US Equity", AltTicker: "AAPL", Name: "Apple, Inc.", Target: D(10000), MIC: "XNAS"},
	}
	opt := ResolvedInstrument{
		ID: "777", Symbol: "SPY", Name: "SPY 600 C", MIC: "XCBO", Currency: "USD", Multiplier: D(100), NameMismatch: true, Step: "option",
		Row: PortfolioRow{Ticker: "SPY US 12/19/25 C600", Name: "Calls on SPY", Target: D(-2500)},
	}
	a, err := Plan(r, QuoteSnapshot{Bid: known(199.5), Ask: known(200.5), Last: known(200), High: known(201)}, D(1), Pricer{Patience: D(50)})
	if err != nil {
		t.Fatal(err)
	}
	b, err := Plan(opt, QuoteSnapshot{Mark: known(4.1), Low: known(4)}, D(1), Pricer{Patience: D(50)})
	if err != nil {
		t.Fatal(err)
	}
	want := []PricedInstrument{a, b}

	var buf bytes.Buffer
	if err := EncodeArtifact(&buf, want); err != nil {
		t.Fatal(err)
	}
	got, err := DecodeArtifact(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(want, got, decimalEqual); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestArtifact_RepriceReusesIDs(t *testing.T) {
	r := ResolvedInstrument{ID: "42", Symbol: "XYZ", Currency: "USD", Row: PortfolioRow{Ticker: "XYZ", Target: D(1000)}}
	first, err := Plan(r, QuoteSnapshot{Bid: known(10), Ask: known(10)}, D(1), Pricer{})
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := EncodeArtifact(&buf, []PricedInstrument{first}); err != nil {
		t.Fatal(err)
	}
	loaded, err := DecodeArtifact(&buf)
	if err != nil {
		t.Fatal(err)
	}

	src := &fakeQuotes{quotes: map[InstrumentID]QuoteSnapshot{"42": {Bid: known(20), Ask: known(20)}}}
	repriced, drops, err := NewPricing(src, Pricer{}, zerolog.Nop()).PriceAll(context.Background(), Resolved(loaded))
	if err != nil || len(drops) != 0 {
		t.Fatalf("PriceAll() = %v, %v", drops, err)
	}
	if len(repriced) != 1 || repriced[0].ID != "42" {
		t.Fatalf("PriceAll() = %v; want instrument 42", repriced)
	}
	if !repriced[0].Limit.Equal(D(20)) || !repriced[0].Quantity.Equal(D(50)) {
		t.Errorf("repriced %s @ %s; want 50 @ 20", repriced[0].Quantity, repriced[0].Limit)
	}
}

func TestDecodeArtifact_Errors(t *testing.T) {
	testCases := []struct {
		name  string
		input string
	}{
		{"missing id column", "ticker,target\nAAPL,100\n"},
		{"empty id", "instrument_id,target\n,100\n"},
		{"bad decimal", "instrument_id,target\n1,abc\n"},
		{"bad side", "instrument_id,target,side\n1,100,HOLD\n"},
		{"bad ticks", "instrument_id,target,ticks\n1,100,0.01\n"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := DecodeArtifact(strings.NewReader(tc.input)); err == nil {
				t.Errorf("DecodeArtifact(%q) succeeded; want an error", tc.input)
			}
		})
	}
}

func TestDecodeArtifact_MinimalColumns(t *testing.T) {
	got, err := DecodeArtifact(strings.NewReader("instrument_id,target,extra\n7,-300,x\n"))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != "7" || got[0].Side != Sell {
		t.Errorf("DecodeArtifact() = %+v", got)
	}
}
