package renderer

import (
	"errors"

	"github.com/etnz/rebalance"
	"github.com/shopspring/decimal"
)

// Summary is the order summary of a confirmation run.
type Summary struct {
	Orders    []OrderLine `json:"orders"`
	Placed    int         `json:"placed"`
	Rejected  int         `json:"rejected"`
	Skipped   int         `json:"skipped"`
	Abandoned int         `json:"abandoned"`
	Quit      bool        `json:"quit"`
	Drops     []Drop      `json:"drops"`
}

// OrderLine is one order of the summary.
type OrderLine struct {
	Index       int    `json:"index"`
	Description string `json:"description"`
	Amount      string `json:"amount"`
	Status      string `json:"status"`
	OrderID     string `json:"orderId"`
}

// Drop is a row or instrument left out of the run.
type Drop struct {
	Stage   string `json:"stage"`
	Subject string `json:"subject"`
	Reason  string `json:"reason"`
}

// NewSummary builds the summary of report, listing the orders in their
// original order. drops are the errors collected by the earlier stages.
func NewSummary(report rebalance.Report, currency string, drops []error) *Summary {
	s := &Summary{
		Placed:    len(report.Placed),
		Rejected:  len(report.Rejected),
		Skipped:   len(report.Skipped),
		Abandoned: len(report.Abandoned),
		Quit:      report.Quit,
		Drops:     NewDrops(drops),
	}
	add := func(d rebalance.OrderDelta, status, id string) {
		s.Orders = append(s.Orders, OrderLine{
			Index:       len(s.Orders) + 1,
			Description: d.String(),
			Amount:      rebalance.M(d.Amount(), currency).String(),
			Status:      status,
			OrderID:     id,
		})
	}
	for _, o := range report.Placed {
		status := "placed"
		switch {
		case o.Deferred:
			status = "placed (deferred)"
		case o.Auto:
			status = "placed (auto)"
		}
		add(o.Delta, status, o.OrderID)
	}
	for _, o := range report.Rejected {
		status := "rejected"
		var r *rebalance.RejectedError
		if errors.As(o.Err, &r) {
			status += ": " + r.Reason
		} else if o.Err != nil {
			status += ": " + o.Err.Error()
		}
		add(o.Delta, status, "")
	}
	for _, d := range report.Skipped {
		add(d, "skipped", "")
	}
	for _, d := range report.Abandoned {
		add(d, "abandoned", "")
	}
	return s
}

// NewDrops lists dropped rows and instruments.
func NewDrops(errs []error) []Drop {
	var drops []Drop
	for _, err := range errs {
		var (
			drop       *rebalance.DropError
			unresolved *rebalance.UnresolvedError
		)
		switch {
		case errors.As(err, &drop):
			drops = append(drops, Drop{Stage: drop.Stage, Subject: drop.Subject, Reason: drop.Err.Error()})
		case errors.As(err, &unresolved):
			drops = append(drops, Drop{Stage: "resolve", Subject: unresolved.Row.String(), Reason: unresolved.Reason().String()})
		default:
			drops = append(drops, Drop{Stage: "run", Subject: "-", Reason: err.Error()})
		}
	}
	return drops
}

// Comparison is the target versus actual report.
type Comparison struct {
	Rows        []ComparisonRow `json:"rows"`
	TargetTotal string          `json:"targetTotal"`
	ActualTotal string          `json:"actualTotal"`
}

// ComparisonRow is one instrument of the comparison.
type ComparisonRow struct {
	Symbol         string `json:"symbol"`
	MIC            string `json:"mic"`
	TargetQuantity string `json:"targetQuantity"`
	ActualQuantity string `json:"actualQuantity"`
	OpenQuantity   string `json:"openQuantity"`
	QuantityGap    string `json:"quantityGap"`
	TargetAmount   string `json:"targetAmount"`
	ActualAmount   string `json:"actualAmount"`
	AmountGap      string `json:"amountGap"`
}

// NewComparison formats rows in currency.
func NewComparison(rows []rebalance.Comparison, currency string) *Comparison {
	c := &Comparison{}
	target, actual := decimal.Zero, decimal.Zero
	for _, r := range rows {
		c.Rows = append(c.Rows, ComparisonRow{
			Symbol:         r.Symbol,
			MIC:            r.MIC,
			TargetQuantity: r.TargetQuantity.String(),
			ActualQuantity: r.ActualQuantity.String(),
			OpenQuantity:   r.OpenQuantity.String(),
			QuantityGap:    signed(r.QuantityGap()),
			TargetAmount:   rebalance.M(r.TargetAmount, currency).String(),
			ActualAmount:   rebalance.M(r.ActualAmount, currency).String(),
			AmountGap:      rebalance.M(r.AmountGap(), currency).SignedString(),
		})
		target = target.Add(r.TargetAmount)
		actual = actual.Add(r.ActualAmount)
	}
	c.TargetTotal = rebalance.M(target, currency).String()
	c.ActualTotal = rebalance.M(actual, currency).String()
	return c
}

func signed(d decimal.Decimal) string {
	switch {
	case d.IsZero():
		return "-"
	case d.IsPositive():
		return "+" + d.String()
	}
	return d.String()
}

// Cancel is the outcome of a cancellation run.
type Cancel struct {
	Orders []CancelLine `json:"orders"`
}

// CancelLine is one working order.
type CancelLine struct {
	Status      string `json:"status"`
	Description string `json:"description"`
}

// NewCancel lists cancelled orders, then failed, then kept ones.
func NewCancel(r rebalance.CancelReport) *Cancel {
	c := &Cancel{}
	for _, group := range []struct {
		status string
		orders []rebalance.OpenOrder
	}{{"cancelled", r.Cancelled}, {"failed", r.Failed}, {"kept", r.Kept}} {
		for _, o := range group.orders {
			c.Orders = append(c.Orders, CancelLine{Status: group.status, Description: o.String()})
		}
	}
	return c
}
