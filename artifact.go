package rebalance

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ArtifactColumns is the column set of the enriched portfolio artifact, in order.
var ArtifactColumns = []string{
	"ticker", "security_ticker", "name", "target", "mic",
	"instrument_id", "resolved_symbol", "resolved_name", "resolved_mic", "currency", "multiplier", "ticks", "name_mismatch", "step",
	"bid", "ask", "last", "close", "mark", "day_high", "day_low",
	"fx", "limit", "side", "quantity", "amount",
}

// EncodeArtifact writes one row per priced instrument.
func EncodeArtifact(w io.Writer, priced []PricedInstrument) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ArtifactColumns); err != nil {
		return err
	}
	for _, p := range priced {
		q := p.Quote
		rec := []string{
			p.Row.Ticker, p.Row.AltTicker, p.Row.Name, p.Row.Target.String(), p.Row.MIC,
			string(p.ID), p.Symbol, p.Name, p.MIC, p.Currency, optional(p.Multiplier), formatTicks(p.Ticks), strconv.FormatBool(p.NameMismatch), p.Step,
			nullable(q.Bid), nullable(q.Ask), nullable(q.Last), nullable(q.Close), nullable(q.Mark), nullable(q.High), nullable(q.Low),
			p.FX.String(), p.Limit.String(), p.Side.String(), p.Quantity.String(), p.Amount.String(),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// DecodeArtifact reads an artifact written by EncodeArtifact. Columns are
// matched by name; unknown columns are ignored.
func DecodeArtifact(r io.Reader) ([]PricedInstrument, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading artifact header: %w", err)
	}
	col := map[string]int{}
	for i, h := range header {
		col[strings.TrimSpace(h)] = i
	}
	for _, required := range []string{"instrument_id", "target"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("artifact has no %q column", required)
		}
	}

	var priced []PricedInstrument
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			return priced, nil
		}
		if err != nil {
			return nil, fmt.Errorf("artifact line %d: %w", line, err)
		}
		p, err := decodeRecord(rec, col)
		if err != nil {
			return nil, fmt.Errorf("artifact line %d: %w", line, err)
		}
		priced = append(priced, p)
	}
}

func decodeRecord(rec []string, col map[string]int) (PricedInstrument, error) {
	get := func(name string) string {
		i, ok := col[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}
	var (
		p   PricedInstrument
		err error
	)
	dec := func(name string) decimal.Decimal {
		s := get(name)
		if s == "" || err != nil {
			return decimal.Zero
		}
		var d decimal.Decimal
		d, err = decimal.NewFromString(s)
		if err != nil {
			err = fmt.Errorf("column %s: %w", name, err)
		}
		return d
	}
	null := func(name string) decimal.NullDecimal {
		if get(name) == "" {
			return decimal.NullDecimal{}
		}
		return Known(dec(name))
	}

	p.Row = PortfolioRow{
		Ticker:    get("ticker"),
		AltTicker: get("security_ticker"),
		Name:      get("name"),
		Target:    dec("target"),
		MIC:       get("mic"),
	}
	p.ID = InstrumentID(get("instrument_id"))
	if p.ID == "" {
		return p, fmt.Errorf("empty instrument_id")
	}
	p.Symbol = get("resolved_symbol")
	p.Name = get("resolved_name")
	p.MIC = get("resolved_mic")
	p.Currency = get("currency")
	p.Multiplier = dec("multiplier")
	p.NameMismatch = get("name_mismatch") == "true"
	p.Step = get("step")
	p.Quote = QuoteSnapshot{
		Bid: null("bid"), Ask: null("ask"), Last: null("last"), Close: null("close"),
		Mark: null("mark"), High: null("day_high"), Low: null("day_low"),
	}
	p.FX = dec("fx")
	p.Limit = dec("limit")
	p.Quantity = dec("quantity")
	p.Amount = dec("amount")
	if err != nil {
		return p, err
	}
	ticks, err := parseTicks(get("ticks"))
	if err != nil {
		return p, err
	}
	p.Ticks = ticks
	if s := get("side"); s != "" {
		side, serr := ParseSide(s)
		if serr != nil {
			return p, serr
		}
		p.Side = side
	} else {
		p.Side = SideOf(p.Row.Target)
	}
	return p, nil
}

// Resolved returns the resolution part of each priced instrument, for re-pricing.
func Resolved(priced []PricedInstrument) []ResolvedInstrument {
	out := make([]ResolvedInstrument, 0, len(priced))
	for _, p := range priced {
		out = append(out, p.ResolvedInstrument)
	}
	return out
}

func nullable(d decimal.NullDecimal) string {
	if !d.Valid {
		return ""
	}
	return d.Decimal.String()
}

func optional(d decimal.Decimal) string {
	if d.IsZero() {
		return ""
	}
	return d.String()
}

// formatTicks writes bands as "from:increment" pairs joined by ";".
func formatTicks(t TickTable) string {
	parts := make([]string, 0, len(t))
	for _, b := range t {
		parts = append(parts, b.From.String()+":"+b.Increment.String())
	}
	return strings.Join(parts, ";")
}

func parseTicks(s string) (TickTable, error) {
	if s == "" {
		return nil, nil
	}
	var t TickTable
	for _, part := range strings.Split(s, ";") {
		from, inc, ok := strings.Cut(part, ":")
		if !ok {
			return nil, fmt.Errorf("invalid tick band %q", part)
		}
		f, err := decimal.NewFromString(from)
		if err != nil {
			return nil, fmt.Errorf("invalid tick band %q: %w", part, err)
		}
		i, err := decimal.NewFromString(inc)
		if err != nil {
			return nil, fmt.Errorf("invalid tick band %q: %w", part, err)
		}
		t = append(t, TickBand{From: f, Increment: i})
	}
	return t, nil
}
