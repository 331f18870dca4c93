package rebalance

import (
	"github.com/shopspring/decimal"
)

// ReconcileOptions tunes Reconcile.
type ReconcileOptions struct {
	// BuyAll orders the full target, ignoring holdings and open orders.
	BuyAll bool
	// AllExchanges forwards deltas whatever the state of their exchange.
	AllExchanges bool
	// Tolerance is the absolute net quantity under which no order is emitted.
	Tolerance decimal.Decimal
	// Calendar decides eligibility. A nil calendar treats every exchange as open.
	Calendar ExchangeCalendar
}

// Extra is a position or working order on an instrument absent from the targets.
type Extra struct {
	ID         InstrumentID
	Symbol     string
	Name       string
	MIC        string
	Currency   string
	Multiplier decimal.Decimal
	Held       decimal.Decimal // signed
	Open       decimal.Decimal // signed
}

// Net is the signed quantity that would flatten the extra.
func (e Extra) Net() decimal.Decimal { return e.Held.Add(e.Open).Neg() }

// Reconciliation is the result of Reconcile.
type Reconciliation struct {
	// Deltas are forwarded to ordering, in target order.
	Deltas []OrderDelta
	// Closed are computed deltas held back because their exchange is closed.
	Closed []OrderDelta
	// Noops are targets already met.
	Noops []InstrumentID
	// Extras are held or working instruments without a target.
	Extras []Extra
}

// DesiredQuantity is the signed whole quantity the target buys at the planned limit.
func DesiredQuantity(p PricedInstrument) decimal.Decimal { return p.Quantity }

// NetQuantity is desired - held - open.
func NetQuantity(desired, held, open decimal.Decimal) decimal.Decimal {
	return desired.Sub(held).Sub(open)
}

// Reconcile computes the orders that move holdings and working orders to the targets.
//
// Targets sharing an instrument are summed. With BuyAll the net quantity is
// the desired one. The exchange filter only decides which deltas are
// forwarded; it never changes a quantity.
func Reconcile(targets []PricedInstrument, holdings []Holding, open []OpenOrder, opts ReconcileOptions) Reconciliation {
	held := map[InstrumentID]decimal.Decimal{}
	for _, h := range holdings {
		held[h.ID] = held[h.ID].Add(h.Quantity)
	}
	working := map[InstrumentID]decimal.Decimal{}
	for _, o := range open {
		working[o.ID] = working[o.ID].Add(o.Signed())
	}

	var order []InstrumentID
	desired := map[InstrumentID]decimal.Decimal{}
	first := map[InstrumentID]PricedInstrument{}
	for _, t := range targets {
		if _, ok := first[t.ID]; !ok {
			order = append(order, t.ID)
			first[t.ID] = t
		}
		desired[t.ID] = desired[t.ID].Add(DesiredQuantity(t))
	}

	var rec Reconciliation
	for _, id := range order {
		t := first[id]
		net := desired[id]
		if !opts.BuyAll {
			net = NetQuantity(net, held[id], working[id])
		}
		if net.Abs().LessThanOrEqual(opts.Tolerance.Abs()) {
			rec.Noops = append(rec.Noops, id)
			continue
		}
		d := OrderDelta{
			ID:         id,
			Symbol:     t.Symbol,
			Name:       t.Name,
			MIC:        t.MIC,
			Currency:   t.Currency,
			Side:       SideOf(net),
			Quantity:   net.Abs(),
			Limit:      t.Limit,
			Multiplier: t.Multiplier,
			FX:         t.FX,
			Eligible:   opts.Calendar == nil || opts.Calendar.IsOpen(t.MIC),
		}
		if d.Eligible || opts.AllExchanges {
			rec.Deltas = append(rec.Deltas, d)
		} else {
			rec.Closed = append(rec.Closed, d)
		}
	}
	rec.Extras = Extras(targets, holdings, open)
	return rec
}

// Extras lists held or working instruments that no target mentions, in the
// order they first appear in holdings then open orders.
func Extras(targets []PricedInstrument, holdings []Holding, open []OpenOrder) []Extra {
	wanted := map[InstrumentID]bool{}
	for _, t := range targets {
		wanted[t.ID] = true
	}
	var extras []Extra
	index := map[InstrumentID]int{}
	get := func(id InstrumentID) *Extra {
		if i, ok := index[id]; ok {
			return &extras[i]
		}
		index[id] = len(extras)
		extras = append(extras, Extra{ID: id})
		return &extras[len(extras)-1]
	}
	for _, h := range holdings {
		if wanted[h.ID] || h.Quantity.IsZero() {
			continue
		}
		e := get(h.ID)
		e.Symbol, e.Name, e.MIC, e.Currency, e.Multiplier = h.Symbol, h.Name, h.MIC, h.Currency, h.Multiplier
		e.Held = e.Held.Add(h.Quantity)
	}
	for _, o := range open {
		if wanted[o.ID] {
			continue
		}
		e := get(o.ID)
		if e.Symbol == "" {
			e.Symbol, e.MIC = o.Symbol, o.MIC
		}
		e.Open = e.Open.Add(o.Signed())
	}
	return extras
}

// StaleOptions tunes StaleOrders.
type StaleOptions struct {
	// Tolerance is the relative price drift above which an order is stale.
	Tolerance decimal.Decimal
	// IlliquidTolerance replaces Tolerance on IlliquidMICs.
	IlliquidTolerance decimal.Decimal
	IlliquidMICs      []string
}

// DefaultStaleOptions matches the drift accepted on liquid and illiquid venues.
var DefaultStaleOptions = StaleOptions{
	Tolerance:         decimal.New(5, -3),
	IlliquidTolerance: decimal.New(5, -2),
	IlliquidMICs:      []string{"XFRA", "OTCM"},
}

// StaleOrders returns the working orders on target instruments whose limit
// drifted from the new limit by more than the tolerance, or whose side
// opposes the target's. Orders on instruments without a target are extras
// and not considered here.
func StaleOrders(targets []PricedInstrument, open []OpenOrder, opts StaleOptions) []OpenOrder {
	limits := map[InstrumentID]PricedInstrument{}
	for _, t := range targets {
		if _, ok := limits[t.ID]; !ok {
			limits[t.ID] = t
		}
	}
	illiquid := map[string]bool{}
	for _, m := range opts.IlliquidMICs {
		illiquid[m] = true
	}
	var stale []OpenOrder
	for _, o := range open {
		t, ok := limits[o.ID]
		if !ok || !t.Limit.IsPositive() {
			continue
		}
		tol := opts.Tolerance
		if illiquid[o.MIC] || illiquid[t.MIC] {
			tol = opts.IlliquidTolerance
		}
		drift := o.Limit.Sub(t.Limit).Abs().Div(t.Limit)
		if drift.GreaterThan(tol) || (!t.Quantity.IsZero() && o.Side != t.Side) {
			stale = append(stale, o)
		}
	}
	return stale
}

// Without returns open minus the orders whose IDs are in removed.
func Without(open []OpenOrder, removed []OpenOrder) []OpenOrder {
	gone := map[string]bool{}
	for _, o := range removed {
		gone[o.OrderID] = true
	}
	var out []OpenOrder
	for _, o := range open {
		if !gone[o.OrderID] {
			out = append(out, o)
		}
	}
	return out
}
