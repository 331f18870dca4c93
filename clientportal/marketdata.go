package clientportal

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/etnz/rebalance"
	"github.com/shopspring/decimal"
)

// Snapshot field codes.
const (
	fieldLast  = "31"
	fieldBid   = "84"
	fieldAsk   = "86"
	fieldHigh  = "70"
	fieldLow   = "71"
	fieldClose = "7296"
	fieldMark  = "7635"
)

var snapshotFields = strings.Join([]string{fieldLast, fieldBid, fieldAsk, fieldHigh, fieldLow, fieldClose, fieldMark}, ",")

// snapshotBatch is how many instruments one snapshot request carries.
const snapshotBatch = 50

// Quotes returns market data snapshots. The gateway answers the first request
// for an instrument without data, so requests are repeated until every
// instrument has a price or polling gives up.
func (c *Client) Quotes(ctx context.Context, ids []rebalance.InstrumentID) (map[rebalance.InstrumentID]rebalance.QuoteSnapshot, error) {
	out := make(map[rebalance.InstrumentID]rebalance.QuoteSnapshot, len(ids))
	for start := 0; start < len(ids); start += snapshotBatch {
		end := min(start+snapshotBatch, len(ids))
		if err := c.pollSnapshots(ctx, ids[start:end], out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (c *Client) pollSnapshots(ctx context.Context, ids []rebalance.InstrumentID, out map[rebalance.InstrumentID]rebalance.QuoteSnapshot) error {
	conids := make([]string, len(ids))
	for i, id := range ids {
		conids[i] = string(id)
	}
	query := url.Values{"conids": {strings.Join(conids, ",")}, "fields": {snapshotFields}}
	for poll := 0; poll < max(c.snapshotPoll, 1); poll++ {
		if poll > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.pollInterval):
			}
		}
		var doc any
		if err := c.get(ctx, "/iserver/marketdata/snapshot", query, &doc); err != nil {
			return fmt.Errorf("market data snapshot: %w", err)
		}
		for _, entry := range items(doc, "") {
			id := rebalance.InstrumentID(text("$.conid", entry))
			if q := quoteOf(entry); !q.IsEmpty() {
				out[id] = q
			}
		}
		if complete(ids, out) {
			return nil
		}
	}
	for _, id := range ids {
		if _, ok := out[id]; !ok {
			c.log.Warn().Str("id", string(id)).Msg("no market data")
		}
	}
	return nil
}

func complete(ids []rebalance.InstrumentID, got map[rebalance.InstrumentID]rebalance.QuoteSnapshot) bool {
	for _, id := range ids {
		if _, ok := got[id]; !ok {
			return false
		}
	}
	return true
}

func quoteOf(entry any) rebalance.QuoteSnapshot {
	field := func(code string) decimal.NullDecimal {
		d, ok := number(`$["`+code+`"]`, entry)
		if !ok || !d.IsPositive() {
			return decimal.NullDecimal{}
		}
		return rebalance.Known(d)
	}
	return rebalance.QuoteSnapshot{
		Bid:   field(fieldBid),
		Ask:   field(fieldAsk),
		Last:  field(fieldLast),
		Close: field(fieldClose),
		Mark:  field(fieldMark),
		High:  field(fieldHigh),
		Low:   field(fieldLow),
	}
}

// ExchangeRate returns how many units of currency one unit of the account
// currency buys. Rates are fetched once per client.
func (c *Client) ExchangeRate(ctx context.Context, currency string) (decimal.Decimal, error) {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" || currency == c.currency {
		return decimal.NewFromInt(1), nil
	}
	c.mu.Lock()
	r, ok := c.rates[currency]
	c.mu.Unlock()
	if ok {
		return r, nil
	}
	var doc any
	if err := c.get(ctx, "/iserver/exchangerate", url.Values{"source": {c.currency}, "target": {currency}}, &doc); err != nil {
		return decimal.Zero, fmt.Errorf("exchange rate %s/%s: %w", c.currency, currency, err)
	}
	r, ok = number("$.rate", doc)
	if !ok || !r.IsPositive() {
		return decimal.Zero, fmt.Errorf("exchange rate %s/%s: no rate in answer", c.currency, currency)
	}
	c.mu.Lock()
	c.rates[currency] = r
	c.mu.Unlock()
	return r, nil
}
