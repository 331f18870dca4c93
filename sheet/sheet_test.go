package sheet

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/etnz/rebalance"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func workbook(t *testing.T, dir, name string, rows [][]any) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &r))
	}
	path := filepath.Join(dir, name)
	require.NoError(t, f.SaveAs(path))
	return path
}

var header = []any{ColTicker, ColAltTicker, ColName, ColAllocation, ColMIC, "Sector"}

func TestReadAllocations(t *testing.T) {
	path := workbook(t, t.TempDir(), "basket.xlsx", [][]any{
		header,
		{"AAPL US Equity", "", "Apple Inc", 12.5, "XNAS", "Tech"},
		{"7203 JT Equity", "TM", "Toyota Motor", "3", "xtks"},
		{"", "", "-", 1.0, ""},
		{"", "", "", "", ""},
		{"SPY US 12/19/25 P500 Equity", "", "Puts on SPY", -0.5, ""},
		{"XYZ US Equity", "", "Broken Row", "n/a", "XNYS"},
		{"Total", "", "", 100, ""},
	})

	allocs, drops, err := ReadAllocations(path)
	require.NoError(t, err)
	require.Len(t, allocs, 3)

	assert.Equal(t, "AAPL", allocs[0].Row.Symbol())
	assert.Equal(t, "Apple Inc", allocs[0].Row.Name)
	assert.True(t, allocs[0].Weight.Equal(decimal.RequireFromString("12.5")))
	assert.False(t, allocs[0].Dollars)

	assert.Equal(t, "TM", allocs[1].Row.Symbol())
	assert.Equal(t, "XTKS", allocs[1].Row.MIC)

	assert.True(t, allocs[2].Row.IsOption())
	assert.True(t, allocs[2].Weight.IsNegative())

	require.Len(t, drops, 1)
	assert.Equal(t, "ingest", drops[0].Stage)
	assert.Contains(t, drops[0].Subject, "XYZ")
}

func TestReadAllocationsInvalidMIC(t *testing.T) {
	path := workbook(t, t.TempDir(), "mics.xlsx", [][]any{
		header,
		{"MSFT US Equity", "", "Microsoft", 5, "XNAS"},
		{"IBM US Equity", "", "IBM", 5, "N.Y.S.E."},
		{"KO US Equity", "", "Coca-Cola", 5, "NY"},
	})
	allocs, drops, err := ReadAllocations(path)
	require.NoError(t, err)
	require.Len(t, allocs, 1)
	assert.Equal(t, "MSFT", allocs[0].Row.Symbol())

	require.Len(t, drops, 2)
	for _, d := range drops {
		assert.Equal(t, "ingest", d.Stage)
		assert.ErrorContains(t, d, "invalid MIC")
	}
}

func TestReadDollarAllocations(t *testing.T) {
	path := workbook(t, t.TempDir(), "dollars.xlsx", [][]any{
		{ColTicker, ColName, ColDollars},
		{"MSFT", "Microsoft", "10,000"},
	})
	allocs, drops, err := ReadAllocations(path)
	require.NoError(t, err)
	assert.Empty(t, drops)
	require.Len(t, allocs, 1)
	assert.True(t, allocs[0].Dollars)
	assert.False(t, NeedsNetLiquidation(allocs))

	rows := Targets(allocs, decimal.Zero)
	assert.Equal(t, "10000", rows[0].Target.String())
}

func TestReadMissingColumns(t *testing.T) {
	path := workbook(t, t.TempDir(), "bad.xlsx", [][]any{{ColTicker, ColName}, {"MSFT", "Microsoft"}})
	_, _, err := ReadAllocations(path)
	assert.Error(t, err)
}

func TestTargets(t *testing.T) {
	allocs := []Allocation{
		{Row: rebalance.PortfolioRow{Ticker: "AAPL", Name: "Apple"}, Weight: decimal.RequireFromString("12.5")},
		{Row: rebalance.PortfolioRow{Ticker: "TSLA", Name: "Tesla"}, Weight: decimal.RequireFromString("-2")},
	}
	rows := Targets(allocs, decimal.NewFromInt(80000))
	require.Len(t, rows, 2)
	assert.Equal(t, "10000", rows[0].Target.String())
	assert.Equal(t, "-1600", rows[1].Target.String())
	assert.True(t, NeedsNetLiquidation(allocs))
}

func TestLatestWorkbook(t *testing.T) {
	dir := t.TempDir()
	old := workbook(t, dir, "old.xlsx", [][]any{header})
	recent := workbook(t, dir, "recent.xlsx", [][]any{header})
	lock := workbook(t, dir, "~$recent.xlsx", [][]any{header})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	now := time.Now()
	require.NoError(t, os.Chtimes(old, now.Add(-2*time.Hour), now.Add(-2*time.Hour)))
	require.NoError(t, os.Chtimes(recent, now.Add(-time.Hour), now.Add(-time.Hour)))
	require.NoError(t, os.Chtimes(lock, now, now))

	got, err := LatestWorkbook(dir)
	require.NoError(t, err)
	assert.Equal(t, recent, got)

	_, err = LatestWorkbook(t.TempDir())
	assert.True(t, errors.Is(err, ErrNoWorkbook))
}

func alloc(ticker, alt, name string, w string) Allocation {
	return Allocation{
		Row:    rebalance.PortfolioRow{Ticker: ticker, AltTicker: alt, Name: name},
		Weight: decimal.RequireFromString(w),
	}
}

func TestApplyRedirects(t *testing.T) {
	allocs := []Allocation{
		alloc("GOOG US Equity", "", "Alphabet C", "2"),
		alloc("GOOGL US Equity", "", "Alphabet A", "3"),
		alloc("X", "GOOGL", "Alphabet A bis", "1"),
		alloc("SPX US 12/19/25 C6000 Index", "", "Calls on SPX", "1"),
		alloc("SPY US 12/19/25 C600 Equity", "", "Calls on SPY", "0"),
		alloc("BRK/B US Equity", "", "Berkshire", "4"),
	}
	out := ApplyRedirects(allocs, Redirects{
		Stocks:  map[string]string{"GOOG": "GOOGL", "BRK/B": "BRK.B"},
		Options: map[string]string{"SPX": "SPY"},
	}, zerolog.Nop())

	require.Len(t, out, 4)
	assert.Equal(t, "Alphabet A", out[0].Row.Name)
	assert.Equal(t, "4.5", out[0].Weight.String(), "3 + 2*3/4")
	assert.Equal(t, "1.5", out[1].Weight.String(), "1 + 2*1/4")
	assert.Equal(t, "Calls on SPY", out[2].Row.Name)
	assert.Equal(t, "1", out[2].Weight.String(), "zero weights share evenly")
	assert.Equal(t, "Berkshire", out[3].Row.Name, "redirect without target keeps the source")
}

func TestWriteComparison(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "compare.xlsx")
	rows := []rebalance.Comparison{
		{ID: "1", Symbol: "AAPL", TargetQuantity: decimal.NewFromInt(10), TargetAmount: decimal.NewFromInt(1800), ActualQuantity: decimal.NewFromInt(10), ActualAmount: decimal.NewFromInt(1790)},
		{ID: "2", Symbol: "MSFT", TargetQuantity: decimal.NewFromInt(5), TargetAmount: decimal.NewFromInt(2000)},
	}
	require.NoError(t, WriteComparison(path, rows))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	got, err := f.GetRows(comparisonSheet)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "Quantity Gap", got[0][9])
	assert.Equal(t, "MSFT", got[2][1])
	assert.Equal(t, "5", got[2][9])
	assert.Equal(t, "10", got[1][6])
}
