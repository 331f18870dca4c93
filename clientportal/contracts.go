package clientportal

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/etnz/rebalance"
	"github.com/shopspring/decimal"
)

// LookupSymbol returns the stock listings of symbol. With a MIC, only the
// listings on that MIC are kept.
func (c *Client) LookupSymbol(ctx context.Context, symbol, mic string) ([]rebalance.Candidate, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	var doc map[string]any
	if err := c.lookup(ctx, "/trsrv/stocks", url.Values{"symbols": {symbol}}, &doc); err != nil {
		return nil, fmt.Errorf("looking up %s: %w", symbol, err)
	}
	var cs []rebalance.Candidate
	for _, entry := range items(doc[symbol], "") {
		if class := text("$.assetClass", entry); class != "" && class != "STK" {
			continue
		}
		name := text("$.name", entry)
		for _, contract := range items(entry, "contracts") {
			exchange := text("$.exchange", contract)
			listing := MIC(exchange)
			if mic != "" {
				if !slices.Contains(MICs(exchange), mic) {
					continue
				}
				listing = mic
			}
			cs = append(cs, rebalance.Candidate{
				ID:     rebalance.InstrumentID(text("$.conid", contract)),
				Symbol: symbol,
				Name:   name,
				MIC:    listing,
			})
		}
	}
	return c.enrich(ctx, cs)
}

// SearchName runs the gateway's company name search and returns its stock hits.
func (c *Client) SearchName(ctx context.Context, name string) ([]rebalance.Candidate, error) {
	payload := map[string]any{"symbol": name, "name": true, "secType": "STK"}
	var doc any
	if err := c.search(ctx, "/iserver/secdef/search", payload, &doc); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && !apiErr.IsRetryable() {
			// the gateway answers unknown names with an error
			return nil, nil
		}
		return nil, fmt.Errorf("searching %q: %w", name, err)
	}
	var cs []rebalance.Candidate
	for _, hit := range items(doc, "") {
		if !isStock(hit) {
			continue
		}
		cs = append(cs, rebalance.Candidate{
			ID:     rebalance.InstrumentID(text("$.conid", hit)),
			Symbol: text("$.symbol", hit),
			Name:   text("$.companyName", hit),
			MIC:    MIC(text("$.description", hit)),
		})
	}
	return c.enrich(ctx, cs)
}

func isStock(hit any) bool {
	sections := items(hit, "sections")
	if len(sections) == 0 {
		return true
	}
	for _, s := range sections {
		if text("$.secType", s) == "STK" {
			return true
		}
	}
	return false
}

// LookupOption finds the listed option with spec's terms.
func (c *Client) LookupOption(ctx context.Context, spec rebalance.OptionSpec) ([]rebalance.Candidate, error) {
	under, err := c.LookupSymbol(ctx, spec.Underlying, "")
	if err != nil {
		return nil, err
	}
	if len(under) == 0 {
		return nil, nil
	}
	query := url.Values{
		"conid":    {string(under[0].ID)},
		"secType":  {"OPT"},
		"month":    {strings.ToUpper(spec.Expiry.Format("Jan06"))},
		"right":    {string(spec.Right)},
		"strike":   {spec.Strike.String()},
		"exchange": {"SMART"},
	}
	var doc any
	if err := c.lookup(ctx, "/iserver/secdef/info", query, &doc); err != nil {
		return nil, fmt.Errorf("looking up option %s: %w", spec, err)
	}
	maturity := spec.Expiry.Format("20060102")
	var cs []rebalance.Candidate
	for _, o := range items(doc, "") {
		if m := text("$.maturityDate", o); m != "" && m != maturity {
			continue
		}
		mult, _ := number("$.multiplier", o)
		name := text("$.desc2", o)
		if name == "" {
			name = spec.String()
		}
		cs = append(cs, rebalance.Candidate{
			ID:         rebalance.InstrumentID(text("$.conid", o)),
			Symbol:     text("$.symbol", o),
			Name:       name,
			MIC:        MIC(text("$.listingExchange", o)),
			Currency:   text("$.currency", o),
			Multiplier: mult,
		})
	}
	return cs, nil
}

// enrich completes candidates with their trading currency and multiplier.
func (c *Client) enrich(ctx context.Context, cs []rebalance.Candidate) ([]rebalance.Candidate, error) {
	var ids []string
	for _, cand := range cs {
		if cand.Currency == "" && !slices.Contains(ids, string(cand.ID)) {
			ids = append(ids, string(cand.ID))
		}
	}
	if len(ids) == 0 {
		return cs, nil
	}
	var doc any
	if err := c.lookup(ctx, "/trsrv/secdef", url.Values{"conids": {strings.Join(ids, ",")}}, &doc); err != nil {
		return nil, fmt.Errorf("reading contract definitions: %w", err)
	}
	type def struct {
		currency   string
		multiplier decimal.Decimal
	}
	defs := map[string]def{}
	for _, d := range items(doc, "secdef") {
		mult, _ := number("$.multiplier", d)
		defs[text("$.conid", d)] = def{currency: text("$.currency", d), multiplier: mult}
	}
	for i := range cs {
		d, ok := defs[string(cs[i].ID)]
		if !ok {
			continue
		}
		if cs[i].Currency == "" {
			cs[i].Currency = d.currency
		}
		if cs[i].Multiplier.IsZero() && d.multiplier.IsPositive() {
			cs[i].Multiplier = d.multiplier
		}
	}
	return cs, nil
}

// TickTable returns the price increments of id, from its trading rules.
func (c *Client) TickTable(ctx context.Context, id rebalance.InstrumentID) (rebalance.TickTable, error) {
	c.mu.Lock()
	t, ok := c.ticks[id]
	c.mu.Unlock()
	if ok {
		return t, nil
	}
	var doc any
	path := "/iserver/contract/" + url.PathEscape(string(id)) + "/info-and-rules"
	if err := c.lookup(ctx, path, url.Values{"isBuy": {"true"}}, &doc); err != nil {
		return nil, fmt.Errorf("reading trading rules of %s: %w", id, err)
	}
	rules, _ := at("$.rules.incrementRules", doc)
	for _, r := range items(rules, "") {
		from, ok1 := number("$.lowerEdge", r)
		inc, ok2 := number("$.increment", r)
		if ok1 && ok2 && inc.IsPositive() {
			t = append(t, rebalance.TickBand{From: from, Increment: inc})
		}
	}
	if len(t) == 0 {
		if inc, ok := number("$.rules.increment", doc); ok && inc.IsPositive() {
			t = rebalance.TickTable{{From: decimal.Zero, Increment: inc}}
		}
	}
	c.mu.Lock()
	c.ticks[id] = t
	c.mu.Unlock()
	return t, nil
}
