package report

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/cleared-dev/stmtcheck/internal/reconcile"
)

// SummarySheet is the worksheet holding the reconciliation table.
const SummarySheet = "Reconciliation"

// WriteWorkbook writes the reconciliation table to an XLSX file with a column
// chart of the discrepancy per statement. Cells hold float values for
// charting; reconciliation.csv remains the exact record.
func WriteWorkbook(path string, results []reconcile.Result) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SummarySheet); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}

	for i, h := range strings.Split(SummaryHeader, ",") {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return fmt.Errorf("header cell: %w", err)
		}
		if err := f.SetCellValue(SummarySheet, cell, h); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}

	for i, r := range results {
		row := i + 2
		values := []any{
			r.StatementID,
			r.StartingBalance.InexactFloat64(),
			r.ClaimedEnding.InexactFloat64(),
			r.ComputedEnding.InexactFloat64(),
			r.Discrepancy.InexactFloat64(),
			r.Balanced,
		}
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return fmt.Errorf("row %d: %w", row, err)
		}
		if err := f.SetSheetRow(SummarySheet, cell, &values); err != nil {
			return fmt.Errorf("writing row %d: %w", row, err)
		}
	}

	if len(results) > 0 {
		last := len(results) + 1
		err := f.AddChart(SummarySheet, "H2", &excelize.Chart{
			Type: excelize.Col,
			Series: []excelize.ChartSeries{{
				Name:       fmt.Sprintf("%s!$E$1", SummarySheet),
				Categories: fmt.Sprintf("%s!$A$2:$A$%d", SummarySheet, last),
				Values:     fmt.Sprintf("%s!$E$2:$E$%d", SummarySheet, last),
			}},
			Title:  []excelize.RichTextRun{{Text: "Balance discrepancies across statements"}},
			Legend: excelize.ChartLegend{Position: "none"},
		})
		if err != nil {
			return fmt.Errorf("adding chart: %w", err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("saving workbook: %w", err)
	}
	return nil
}
