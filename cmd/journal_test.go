package cmd

import (
	"strings"
	"testing"
	"time"

	"github.com/etnz/rebalance"
	"github.com/etnz/rebalance/journal"
	"github.com/shopspring/decimal"
)

func TestPrintSubmissions(t *testing.T) {
	at := time.Date(2026, 3, 2, 15, 4, 0, 0, time.UTC)
	subs := []journal.Submission{
		{
			ClientID: "a",
			Ticket:   rebalance.OrderTicket{Symbol: "AAPL", MIC: "XNAS", Side: rebalance.Buy, Quantity: decimal.NewFromInt(10), Limit: decimal.RequireFromString("182.5")},
			Status:   journal.Placed,
			OrderID:  "1234",
			Created:  at,
		},
		{
			ClientID: "b",
			Ticket:   rebalance.OrderTicket{Symbol: "SAP", MIC: "XETR", Side: rebalance.Sell, Quantity: decimal.NewFromInt(3), Limit: decimal.NewFromInt(120)},
			Status:   journal.Rejected,
			Error:    "order rejected: no shares to borrow",
			Created:  at.Add(time.Minute),
		},
	}
	var b strings.Builder
	printSubmissions(&b, subs, time.UTC)

	want := "2026-03-02 15:04  placed   BUY 10 AAPL@XNAS @ 182.5 #1234\n" +
		"2026-03-02 15:05  rejected SELL 3 SAP@XETR @ 120: order rejected: no shares to borrow\n"
	if got := b.String(); got != want {
		t.Errorf("printSubmissions() =\n%s\nwant\n%s", got, want)
	}
}
