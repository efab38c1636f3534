package extract

import (
	"regexp"
	"sort"
	"strings"

	"github.com/cleared-dev/stmtcheck/internal/model"
)

// KeyValue is a labelled field found on the document, e.g. "Opening balance" / "$1,000.00".
type KeyValue struct {
	Key   string
	Value string
}

// Cell is one table cell.
type Cell struct {
	Row     int
	Column  int
	Content string
}

// Table is a grid of cells. Row 0 is the header row.
type Table struct {
	Cells []Cell
}

// Layout is the document structure returned by a layout-analysis service.
type Layout struct {
	KeyValues []KeyValue
	Tables    []Table
}

var (
	startingBalancePattern = regexp.MustCompile(`\b(starting|beginning|previous|opening|prior|initial)\b.*\b(balance|bal)\b`)
	endingBalancePattern   = regexp.MustCompile(`\b(ending|current|closing|new|final)\b.*\b(balance|bal)\b`)
)

func isStartingLabel(s string) bool { return startingBalancePattern.MatchString(strings.ToLower(s)) }
func isEndingLabel(s string) bool   { return endingBalancePattern.MatchString(strings.ToLower(s)) }

// FromLayout pulls balances and transaction lines out of a layout.
//
// Balances are searched in order: labelled key/value pairs, then table cells
// with a matching label next to a nonzero amount, then the first row (start)
// or last row (end) of any table. A balance that is never found is left blank.
// Transactions are table rows after the header with date, description and
// amount in the first three columns; blank amounts and balance rows are skipped.
func FromLayout(l Layout) model.RawStatement {
	var raw model.RawStatement

	start, end := balancesFromKeyValues(l.KeyValues)
	if start == "" || end == "" {
		tStart, tEnd := balancesFromLabelledCells(l.Tables)
		if start == "" {
			start = tStart
		}
		if end == "" {
			end = tEnd
		}
	}
	if start == "" {
		start = firstAmountInRow(l.Tables, func(rows [][]Cell) []Cell { return rows[0] })
	}
	if end == "" {
		end = firstAmountInRow(l.Tables, func(rows [][]Cell) []Cell { return rows[len(rows)-1] })
	}
	raw.StartingBalance = model.Text(start)
	raw.EndingBalance = model.Text(end)

	for _, t := range l.Tables {
		rows := t.rows()
		for r := 1; r < len(rows); r++ {
			row := rows[r]
			if len(row) < 3 {
				continue
			}
			date, desc, amount := cellText(row[0]), cellText(row[1]), cellText(row[2])
			if amount == "" {
				continue
			}
			if isStartingLabel(desc) || isEndingLabel(desc) || isStartingLabel(date) || isEndingLabel(date) {
				continue
			}
			raw.Transactions = append(raw.Transactions, model.RawTransaction{
				Date:        date,
				Description: desc,
				Amount:      model.Text(amount),
			})
		}
	}
	return raw
}

func balancesFromKeyValues(kvs []KeyValue) (start, end string) {
	for _, kv := range kvs {
		value := strings.TrimSpace(kv.Value)
		if value == "" {
			continue
		}
		if start == "" && isStartingLabel(kv.Key) {
			start = value
		}
		if end == "" && isEndingLabel(kv.Key) {
			end = value
		}
	}
	return start, end
}

func balancesFromLabelledCells(tables []Table) (start, end string) {
	for _, t := range tables {
		for _, c := range t.Cells {
			if start == "" && isStartingLabel(c.Content) {
				start = adjacentAmount(t, c)
			}
			if end == "" && isEndingLabel(c.Content) {
				end = adjacentAmount(t, c)
			}
		}
	}
	return start, end
}

// adjacentAmount returns the nonzero amount right of c, else left of c.
func adjacentAmount(t Table, c Cell) string {
	for _, col := range []int{c.Column + 1, c.Column - 1} {
		for _, other := range t.Cells {
			if other.Row == c.Row && other.Column == col && isNonzeroAmount(other.Content) {
				return cellText(other)
			}
		}
	}
	return ""
}

func firstAmountInRow(tables []Table, pick func([][]Cell) []Cell) string {
	for _, t := range tables {
		rows := t.rows()
		if len(rows) == 0 {
			continue
		}
		for _, c := range pick(rows) {
			if isNonzeroAmount(c.Content) {
				return cellText(c)
			}
		}
	}
	return ""
}

func isNonzeroAmount(s string) bool {
	d, err := model.ParseAmount(s)
	return err == nil && !d.IsZero()
}

func cellText(c Cell) string { return strings.TrimSpace(c.Content) }

// rows groups cells by row index, each row sorted by column. Empty rows
// between populated ones are dropped.
func (t Table) rows() [][]Cell {
	byRow := make(map[int][]Cell)
	for _, c := range t.Cells {
		byRow[c.Row] = append(byRow[c.Row], c)
	}
	idx := make([]int, 0, len(byRow))
	for r := range byRow {
		idx = append(idx, r)
	}
	sort.Ints(idx)

	rows := make([][]Cell, 0, len(idx))
	for _, r := range idx {
		row := byRow[r]
		sort.Slice(row, func(i, j int) bool { return row[i].Column < row[j].Column })
		rows = append(rows, row)
	}
	return rows
}
