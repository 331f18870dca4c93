package rebalance

import (
	"testing"

	"github.com/shopspring/decimal"
	"pgregory.net/rapid"
)

// ladder is a typical sub-dollar/above-dollar tick ladder.
var ladder = TickTable{
	{From: D(1), Increment: D(0.01)},
	{From: D(0), Increment: D(0.0001)},
	{From: D(1000), Increment: D(0.5)},
}

func TestTickTable_Increment(t *testing.T) {
	testCases := []struct {
		table TickTable
		price float64
		want  float64
	}{
		{nil, 12.345, 0.01},
		{ladder, 0.5, 0.0001},
		{ladder, 1, 0.01},
		{ladder, 999.99, 0.01},
		{ladder, 1000, 0.5},
		{TickTable{{From: D(0), Increment: decimal.Zero}}, 3, 0.01},
	}
	for _, tc := range testCases {
		got := tc.table.Increment(decimal.NewFromFloat(tc.price))
		if want := decimal.NewFromFloat(tc.want); !got.Equal(want) {
			t.Errorf("Increment(%v) = %s; want %s", tc.price, got, want)
		}
	}
}

func TestTickTable_Normalize(t *testing.T) {
	testCases := []struct {
		name  string
		table TickTable
		price float64
		side  Side
		want  float64
	}{
		{"aligned", nil, 10.07, Buy, 10.07},
		{"nearest below", nil, 10.071, Buy, 10.07},
		{"nearest above", nil, 10.079, Sell, 10.08},
		{"buy tie goes up", nil, 10.075, Buy, 10.08},
		{"sell tie goes down", nil, 10.075, Sell, 10.07},
		{"sub dollar band", ladder, 0.12345, Buy, 0.1235},
		{"half point band", ladder, 1234.3, Sell, 1234.5},
		{"half point band tie", ladder, 1234.25, Sell, 1234},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := tc.table.Normalize(decimal.NewFromFloat(tc.price), tc.side)
			if want := decimal.NewFromFloat(tc.want); !got.Equal(want) {
				t.Errorf("Normalize(%v, %s) = %s; want %s", tc.price, tc.side, got, want)
			}
		})
	}
}

func TestTickTable_NormalizeIdempotent(t *testing.T) {
	tables := []TickTable{nil, ladder, {{From: D(0), Increment: D(0.05)}}}
	rapid.Check(t, func(t *rapid.T) {
		table := tables[rapid.IntRange(0, len(tables)-1).Draw(t, "table")]
		price := decimal.New(rapid.Int64Range(1, 100_000_000).Draw(t, "price"), -4)
		side := rapid.SampledFrom([]Side{Buy, Sell}).Draw(t, "side")

		once := table.Normalize(price, side)
		twice := table.Normalize(once, side)
		if !once.Equal(twice) {
			t.Fatalf("Normalize not idempotent: %s -> %s -> %s", price, once, twice)
		}
		if !once.Mod(table.Increment(once)).IsZero() {
			t.Fatalf("Normalize(%s) = %s is not on a tick", price, once)
		}
	})
}
