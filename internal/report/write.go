// Package report writes reconciliation results as CSV, JSON, Markdown and
// XLSX files.
package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/cleared-dev/stmtcheck/internal/model"
)

// Output file names.
const (
	SummaryFile      = "reconciliation.csv"
	ErrorsFile       = "errors.csv"
	TransactionsFile = "extracted_transactions.csv"
	ExtractedFile    = "output.json"
	DiscrepancyFile  = "discrepancy_report.md"
	WorkbookFile     = "reconciliation.xlsx"
)

// WriteAll writes every report for rep into dir, creating it if needed, and
// returns the paths written.
func WriteAll(dir string, rep Report, statements []model.RawStatement) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output dir: %w", err)
	}

	writers := []struct {
		name  string
		write func(io.Writer) error
	}{
		{SummaryFile, func(w io.Writer) error { return WriteSummary(w, rep.Results) }},
		{ErrorsFile, func(w io.Writer) error { return WriteErrors(w, rep.Failures) }},
		{TransactionsFile, func(w io.Writer) error { return WriteTransactions(w, rep.Results) }},
		{ExtractedFile, func(w io.Writer) error { return WriteExtracted(w, statements) }},
		{DiscrepancyFile, func(w io.Writer) error { return WriteDiscrepancyReport(w, rep) }},
	}

	var written []string
	for _, wr := range writers {
		path := filepath.Join(dir, wr.name)
		if err := writeFile(path, wr.write); err != nil {
			return written, err
		}
		written = append(written, path)
	}

	path := filepath.Join(dir, WorkbookFile)
	if err := WriteWorkbook(path, rep.Results); err != nil {
		return written, fmt.Errorf("writing %s: %w", WorkbookFile, err)
	}
	return append(written, path), nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", path, err)
	}
	return nil
}
