package clientportal

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/etnz/rebalance"
	"github.com/shopspring/decimal"
)

// maxPositionPages bounds position paging in case the gateway never returns an empty page.
const maxPositionPages = 100

// position is one entry of the portfolio positions endpoint.
type position struct {
	Conid           json.Number     `json:"conid"`
	Position        decimal.Decimal `json:"position"`
	MarketValue     decimal.Decimal `json:"mktValue"`
	Currency        string          `json:"currency"`
	ContractDesc    string          `json:"contractDesc"`
	Ticker          string          `json:"ticker"`
	Name            string          `json:"name"`
	ListingExchange string          `json:"listingExchange"`
	Multiplier      decimal.Decimal `json:"multiplier"`
}

// Holdings returns every non flat position. Market values are converted to
// the account currency.
func (c *Client) Holdings(ctx context.Context) ([]rebalance.Holding, error) {
	acct, err := c.Account(ctx)
	if err != nil {
		return nil, err
	}
	var all []position
	for page := 0; page < maxPositionPages; page++ {
		var batch []position
		path := fmt.Sprintf("/portfolio/%s/positions/%d", url.PathEscape(acct), page)
		if err := c.get(ctx, path, nil, &batch); err != nil {
			return nil, fmt.Errorf("listing positions: %w", err)
		}
		if len(batch) == 0 {
			break
		}
		all = append(all, batch...)
	}

	var out []rebalance.Holding
	for _, p := range all {
		if p.Position.IsZero() {
			continue
		}
		symbol := p.Ticker
		if symbol == "" {
			symbol = p.ContractDesc
		}
		name := p.Name
		if name == "" {
			name = p.ContractDesc
		}
		value := p.MarketValue
		if fx, err := c.ExchangeRate(ctx, p.Currency); err == nil {
			value = value.Div(fx).Round(2)
		} else {
			c.log.Warn().Err(err).Str("symbol", symbol).Msg("market value left in position currency")
		}
		out = append(out, rebalance.Holding{
			ID:          rebalance.InstrumentID(p.Conid.String()),
			Symbol:      symbol,
			Name:        name,
			MIC:         MIC(p.ListingExchange),
			Currency:    strings.ToUpper(p.Currency),
			Quantity:    p.Position,
			Multiplier:  p.Multiplier,
			MarketValue: value,
		})
	}
	return out, nil
}

// workingStatus lists the order statuses that still rest at the broker.
var workingStatus = map[string]bool{
	"PendingSubmit":    true,
	"PreSubmitted":     true,
	"Submitted":        true,
	"ApiPending":       true,
	"PendingActivated": true,
}

// OpenOrders returns the orders still working. The endpoint answers its first
// call with a partial list, so it is called twice.
func (c *Client) OpenOrders(ctx context.Context) ([]rebalance.OpenOrder, error) {
	acct, err := c.Account(ctx)
	if err != nil {
		return nil, err
	}
	var doc any
	if err := c.get(ctx, "/iserver/account/orders", nil, &doc); err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	if err := c.get(ctx, "/iserver/account/orders", nil, &doc); err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}

	var out []rebalance.OpenOrder
	for _, o := range items(doc, "orders") {
		if a := text("$.acct", o); a != "" && a != acct {
			continue
		}
		if !workingStatus[text("$.status", o)] {
			continue
		}
		side, err := rebalance.ParseSide(text("$.side", o))
		if err != nil {
			c.log.Warn().Err(err).Str("order", text("$.orderId", o)).Msg("order with unknown side ignored")
			continue
		}
		remaining, ok := number("$.remainingQuantity", o)
		if !ok || !remaining.IsPositive() {
			continue
		}
		limit, _ := number("$.price", o)
		out = append(out, rebalance.OpenOrder{
			OrderID:   text("$.orderId", o),
			ID:        rebalance.InstrumentID(text("$.conid", o)),
			Symbol:    text("$.ticker", o),
			MIC:       MIC(text("$.listingExchange", o)),
			Side:      side,
			Remaining: remaining,
			Limit:     limit,
		})
	}
	return out, nil
}

// NetLiquidation returns the account value percentage targets are taken of.
func (c *Client) NetLiquidation(ctx context.Context) (decimal.Decimal, error) {
	acct, err := c.Account(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	var doc any
	if err := c.get(ctx, "/portfolio/"+url.PathEscape(acct)+"/summary", nil, &doc); err != nil {
		return decimal.Zero, fmt.Errorf("account summary: %w", err)
	}
	v, ok := number("$.netliquidation.amount", doc)
	if !ok {
		return decimal.Zero, fmt.Errorf("account summary has no net liquidation value")
	}
	return v, nil
}
