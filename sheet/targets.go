// Package sheet reads target portfolios from xlsx workbooks and writes the
// comparison workbook.
package sheet

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/etnz/rebalance"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// Header names of the target workbook.
const (
	ColTicker     = "Ticker"
	ColAltTicker  = "Security Ticker"
	ColName       = "Name"
	ColAllocation = "Basket Allocation"
	ColDollars    = "Dollar Allocation"
	ColMIC        = "MIC Primary Exchange"
)

// ErrNoWorkbook is returned when a directory holds no workbook.
var ErrNoWorkbook = errors.New("no .xlsx workbook found")

// Allocation is a row of the target workbook.
type Allocation struct {
	Row rebalance.PortfolioRow
	// Weight is a percentage of the account, or an amount when Dollars is set.
	Weight  decimal.Decimal
	Dollars bool
}

// LatestWorkbook returns the most recently modified .xlsx in dir, ignoring
// office lock files.
func LatestWorkbook(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}
	var (
		latest string
		mod    time.Time
	)
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.EqualFold(filepath.Ext(name), ".xlsx") || strings.HasPrefix(name, "~$") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return "", err
		}
		if latest == "" || info.ModTime().After(mod) {
			latest, mod = filepath.Join(dir, name), info.ModTime()
		}
	}
	if latest == "" {
		return "", fmt.Errorf("%w in %s", ErrNoWorkbook, dir)
	}
	return latest, nil
}

// ReadAllocations reads the first sheet of the workbook at path.
//
// Rows without a name, or named "-" (the cash line), are summary lines and
// skipped silently. Rows whose allocation is not a number, or whose MIC is
// malformed, are returned as drops.
func ReadAllocations(path string) ([]Allocation, []*rebalance.DropError, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, fmt.Errorf("%s has no sheet", path)
	}
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("%s is empty", path)
	}

	col := map[string]int{}
	for i, h := range rows[0] {
		col[strings.TrimSpace(h)] = i
	}
	if _, ok := col[ColName]; !ok {
		return nil, nil, fmt.Errorf("%s: missing %q column", path, ColName)
	}
	weightCol, dollars := ColAllocation, false
	if _, ok := col[ColAllocation]; !ok {
		if _, ok := col[ColDollars]; !ok {
			return nil, nil, fmt.Errorf("%s: missing %q or %q column", path, ColAllocation, ColDollars)
		}
		weightCol, dollars = ColDollars, true
	}
	cell := func(row []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var (
		allocs []Allocation
		drops  []*rebalance.DropError
	)
	for _, row := range rows[1:] {
		name := cell(row, ColName)
		if name == "" || name == "-" {
			continue
		}
		r := rebalance.PortfolioRow{
			Ticker:    cell(row, ColTicker),
			AltTicker: cell(row, ColAltTicker),
			Name:      name,
			MIC:       strings.ToUpper(cell(row, ColMIC)),
		}
		if err := r.Validate(); err != nil {
			drops = append(drops, &rebalance.DropError{Stage: "ingest", Subject: r.String(), Err: err})
			continue
		}
		w, err := parseWeight(cell(row, weightCol))
		if err != nil {
			drops = append(drops, &rebalance.DropError{Stage: "ingest", Subject: r.String(), Err: err})
			continue
		}
		allocs = append(allocs, Allocation{Row: r, Weight: w, Dollars: dollars})
	}
	return allocs, drops, nil
}

func parseWeight(s string) (decimal.Decimal, error) {
	s = strings.NewReplacer(",", "", "$", "", "%", "").Replace(s)
	if s == "" {
		return decimal.Decimal{}, errors.New("empty allocation")
	}
	w, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid allocation %q", s)
	}
	return w, nil
}

// Targets converts allocations into portfolio rows. Percentages are taken
// of netLiquidation.
func Targets(allocs []Allocation, netLiquidation decimal.Decimal) []rebalance.PortfolioRow {
	rows := make([]rebalance.PortfolioRow, 0, len(allocs))
	for _, a := range allocs {
		r := a.Row
		if a.Dollars {
			r.Target = a.Weight
		} else {
			r.Target = a.Weight.Mul(netLiquidation).Div(decimal.NewFromInt(100)).Round(2)
		}
		rows = append(rows, r)
	}
	return rows
}

// NeedsNetLiquidation reports whether any allocation is a percentage.
func NeedsNetLiquidation(allocs []Allocation) bool {
	for _, a := range allocs {
		if !a.Dollars {
			return true
		}
	}
	return false
}
