package sheet

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/etnz/rebalance"
	"github.com/xuri/excelize/v2"
)

const comparisonSheet = "Comparison"

var comparisonHeader = []any{
	"Instrument", "Symbol", "Name", "MIC",
	"Target Quantity", "Target Amount",
	"Actual Quantity", "Actual Amount",
	"Open Quantity", "Quantity Gap", "Amount Gap",
}

// WriteComparison writes the target versus actual report to path. Lines
// with a quantity gap are highlighted.
func WriteComparison(path string, rows []rebalance.Comparison) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", comparisonSheet); err != nil {
		return err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	gap, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"FFEB9C"}},
	})
	if err != nil {
		return err
	}

	if err := f.SetSheetRow(comparisonSheet, "A1", &comparisonHeader); err != nil {
		return err
	}
	last, _ := excelize.CoordinatesToCellName(len(comparisonHeader), 1)
	if err := f.SetCellStyle(comparisonSheet, "A1", last, bold); err != nil {
		return err
	}

	for i, c := range rows {
		line := []any{
			string(c.ID), c.Symbol, c.Name, c.MIC,
			c.TargetQuantity.InexactFloat64(), c.TargetAmount.Round(2).InexactFloat64(),
			c.ActualQuantity.InexactFloat64(), c.ActualAmount.Round(2).InexactFloat64(),
			c.OpenQuantity.InexactFloat64(), c.QuantityGap().InexactFloat64(), c.AmountGap().Round(2).InexactFloat64(),
		}
		first, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(comparisonSheet, first, &line); err != nil {
			return err
		}
		if !c.QuantityGap().IsZero() {
			end, _ := excelize.CoordinatesToCellName(len(line), i+2)
			if err := f.SetCellStyle(comparisonSheet, first, end, gap); err != nil {
				return err
			}
		}
	}
	if err := f.SetColWidth(comparisonSheet, "C", "C", 40); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("saving %s: %w", path, err)
	}
	return nil
}
