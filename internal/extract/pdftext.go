package extract

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/dslipak/pdf"

	"github.com/cleared-dev/stmtcheck/internal/model"
)

// PDFTextExtractor reads the text layer of a PDF locally. It needs no
// service but only works on statements with selectable text.
type PDFTextExtractor struct{}

// Name returns the extractor name.
func (p *PDFTextExtractor) Name() string { return "pdftext" }

// Extract reads the PDF text and applies FromLayout to LayoutFromText.
func (p *PDFTextExtractor) Extract(ctx context.Context, path string) (model.RawStatement, error) {
	if err := ctx.Err(); err != nil {
		return model.RawStatement{}, err
	}

	f, err := os.Open(path)
	if err != nil {
		return model.RawStatement{}, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return model.RawStatement{}, fmt.Errorf("stat %s: %w", path, err)
	}
	r, err := pdf.NewReader(f, info.Size())
	if err != nil {
		return model.RawStatement{}, fmt.Errorf("reading PDF %s: %w", path, err)
	}
	text, err := r.GetPlainText()
	if err != nil {
		return model.RawStatement{}, fmt.Errorf("extracting text from %s: %w", path, err)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(text); err != nil {
		return model.RawStatement{}, fmt.Errorf("extracting text from %s: %w", path, err)
	}

	return stamp(FromLayout(LayoutFromText(buf.String())), path, p.Name()), nil
}

const amountExpr = `[-+]?\(?[-+]?[$€£]?\s?[-+]?\d[\d,]*\.\d{2}\)?-?(?:\s?(?i:CR|DR))?`

var (
	balanceLine     = regexp.MustCompile(`^(.*?\b(?i:balance|bal)\b.*?)[\s:]+(` + amountExpr + `)\s*$`)
	transactionLine = regexp.MustCompile(`^(\d{1,2}/\d{1,2}(?:/\d{2,4})?|\d{4}-\d{2}-\d{2})\s+(.+?)\s+(` + amountExpr + `)(?:\s+` + amountExpr + `)?\s*$`)
)

// LayoutFromText turns statement text into a Layout. Lines carrying a balance
// label and an amount become key/value pairs; lines that start with a date
// and end with an amount (optionally followed by a running balance) become
// rows of a single table whose header row is synthetic.
func LayoutFromText(text string) Layout {
	var l Layout
	table := Table{Cells: []Cell{
		{Row: 0, Column: 0, Content: "Date"},
		{Row: 0, Column: 1, Content: "Description"},
		{Row: 0, Column: 2, Content: "Amount"},
	}}

	row := 1
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if m := transactionLine.FindStringSubmatch(line); m != nil && !isStartingLabel(m[2]) && !isEndingLabel(m[2]) {
			table.Cells = append(table.Cells,
				Cell{Row: row, Column: 0, Content: m[1]},
				Cell{Row: row, Column: 1, Content: m[2]},
				Cell{Row: row, Column: 2, Content: m[3]},
			)
			row++
			continue
		}
		if m := balanceLine.FindStringSubmatch(line); m != nil {
			if key := strings.TrimSpace(m[1]); isStartingLabel(key) || isEndingLabel(key) {
				l.KeyValues = append(l.KeyValues, KeyValue{Key: key, Value: strings.TrimSpace(m[2])})
			}
		}
	}

	if row > 1 {
		l.Tables = append(l.Tables, table)
	}
	return l
}
