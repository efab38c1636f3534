package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/cleared-dev/stmtcheck/internal/reconcile"
)

// SummaryHeader is the CSV header for reconciliation.csv.
const SummaryHeader = "statement_id,starting_balance,ending_balance_claimed,ending_balance_computed,discrepancy,is_balanced"

// ErrorsHeader is the CSV header for errors.csv.
const ErrorsHeader = "statement_id,error"

// TransactionsHeader is the CSV header for extracted_transactions.csv.
const TransactionsHeader = "statement_id,line,date,description,amount,running_balance"

const (
	numSummaryFields = 6
	colStatementID   = 0
	colStarting      = 1
	colClaimed       = 2
	colComputed      = 3
	colDiscrepancy   = 4
	colBalanced      = 5

	numLineFields  = 6
	colLineStmt    = 0
	colLineIndex   = 1
	colLineDate    = 2
	colLineDesc    = 3
	colLineAmount  = 4
	colLineRunning = 5

	dateFormat = "2006-01-02"
)

// WriteSummary writes one row per reconciled statement (including header).
func WriteSummary(w io.Writer, results []reconcile.Result) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(strings.Split(SummaryHeader, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, r := range results {
		if err := cw.Write(MarshalResult(r)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// MarshalResult converts a Result to a reconciliation.csv row.
func MarshalResult(r reconcile.Result) []string {
	row := make([]string, numSummaryFields)
	row[colStatementID] = r.StatementID
	row[colStarting] = r.StartingBalance.StringFixed(2)
	row[colClaimed] = r.ClaimedEnding.StringFixed(2)
	row[colComputed] = r.ComputedEnding.StringFixed(2)
	row[colDiscrepancy] = r.Discrepancy.StringFixed(2)
	row[colBalanced] = strconv.FormatBool(r.Balanced)
	return row
}

// WriteErrors writes the statements excluded from the summary (including header).
func WriteErrors(w io.Writer, failures []reconcile.Failure) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(strings.Split(ErrorsHeader, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, f := range failures {
		if err := cw.Write([]string{f.StatementID, f.Err.Error()}); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteTransactions writes every transaction line of every result, in
// statement then input order, with its running balance (including header).
func WriteTransactions(w io.Writer, results []reconcile.Result) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(strings.Split(TransactionsHeader, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, r := range results {
		for _, line := range r.Lines {
			if err := cw.Write(marshalLine(r.StatementID, line)); err != nil {
				return fmt.Errorf("writing %s line %d: %w", r.StatementID, line.Index+1, err)
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

func marshalLine(statementID string, line reconcile.Line) []string {
	row := make([]string, numLineFields)
	row[colLineStmt] = statementID
	row[colLineIndex] = strconv.Itoa(line.Index + 1)
	if !line.Transaction.Date.IsZero() {
		row[colLineDate] = line.Transaction.Date.Format(dateFormat)
	} else {
		row[colLineDate] = line.Transaction.DateText
	}
	row[colLineDesc] = line.Transaction.Description
	row[colLineAmount] = line.Transaction.Amount.Decimal.StringFixed(2)
	row[colLineRunning] = line.RunningBalance.StringFixed(2)
	return row
}
