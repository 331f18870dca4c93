package rebalance

import (
	"github.com/shopspring/decimal"
)

// Comparison is one line of the target versus actual report.
type Comparison struct {
	ID             InstrumentID
	Symbol         string
	Name           string
	MIC            string
	TargetQuantity decimal.Decimal
	TargetAmount   decimal.Decimal
	ActualQuantity decimal.Decimal
	ActualAmount   decimal.Decimal
	OpenQuantity   decimal.Decimal
}

// QuantityGap is target minus actual minus open.
func (c Comparison) QuantityGap() decimal.Decimal {
	return c.TargetQuantity.Sub(c.ActualQuantity).Sub(c.OpenQuantity)
}

// AmountGap is target minus actual value.
func (c Comparison) AmountGap() decimal.Decimal { return c.TargetAmount.Sub(c.ActualAmount) }

// Compare lines targets up with holdings by instrument. Targets come first in
// their order, then holdings without a target.
func Compare(targets []PricedInstrument, holdings []Holding, open []OpenOrder) []Comparison {
	index := map[InstrumentID]int{}
	var rows []Comparison
	get := func(id InstrumentID) *Comparison {
		if i, ok := index[id]; ok {
			return &rows[i]
		}
		index[id] = len(rows)
		rows = append(rows, Comparison{ID: id})
		return &rows[len(rows)-1]
	}
	for _, t := range targets {
		c := get(t.ID)
		c.Symbol, c.Name, c.MIC = t.Symbol, t.Name, t.MIC
		c.TargetQuantity = c.TargetQuantity.Add(t.Quantity)
		c.TargetAmount = c.TargetAmount.Add(t.Amount)
	}
	for _, h := range holdings {
		c := get(h.ID)
		if c.Symbol == "" {
			c.Symbol, c.Name, c.MIC = h.Symbol, h.Name, h.MIC
		}
		c.ActualQuantity = c.ActualQuantity.Add(h.Quantity)
		c.ActualAmount = c.ActualAmount.Add(h.MarketValue)
	}
	for _, o := range open {
		if _, ok := index[o.ID]; !ok {
			continue
		}
		c := get(o.ID)
		c.OpenQuantity = c.OpenQuantity.Add(o.Signed())
	}
	return rows
}
