// Package reconcile checks that a statement's transactions account for the
// change between its starting and claimed ending balance.
package reconcile

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/stmtcheck/internal/model"
)

// DefaultTolerance is one cent. A statement is balanced when the absolute
// discrepancy is strictly less than the tolerance.
var DefaultTolerance = decimal.New(1, -2)

// Options controls reconciliation.
type Options struct {
	// Tolerance absorbs sub-cent rounding on the source statement.
	// Zero or negative means DefaultTolerance.
	Tolerance decimal.Decimal
	// Workers bounds Batch parallelism. Zero or negative means GOMAXPROCS.
	Workers int
}

func (o Options) tolerance() decimal.Decimal {
	if o.Tolerance.IsPositive() {
		return o.Tolerance
	}
	return DefaultTolerance
}

// Line is one transaction with the balance after applying it.
type Line struct {
	Index          int
	Transaction    model.Transaction
	RunningBalance decimal.Decimal
}

// Result is the outcome of reconciling one statement.
type Result struct {
	StatementID      string
	StartingBalance  decimal.Decimal
	ClaimedEnding    decimal.Decimal
	ComputedEnding   decimal.Decimal // starting + sum of amounts
	Total            decimal.Decimal // sum of amounts
	TransactionCount int
	Discrepancy      decimal.Decimal // computed - claimed
	Balanced         bool
	Lines            []Line // input order
}

// Reconcile computes the expected ending balance of rec and compares it to
// the claimed one. An unbalanced statement is a normal result. A missing
// balance or transaction amount returns a *model.ValidationError.
func Reconcile(rec model.StatementRecord, opts Options) (Result, error) {
	if !rec.StartingBalance.Valid {
		return Result{}, missing(rec.ID, "starting_balance")
	}
	if !rec.EndingBalance.Valid {
		return Result{}, missing(rec.ID, "ending_balance")
	}

	start := rec.StartingBalance.Decimal
	running := start
	total := decimal.Zero
	lines := make([]Line, 0, len(rec.Transactions))
	for i, txn := range rec.Transactions {
		if !txn.Amount.Valid {
			return Result{}, missing(rec.ID, fmt.Sprintf("transactions[%d].amount", i))
		}
		total = total.Add(txn.Amount.Decimal)
		running = running.Add(txn.Amount.Decimal)
		lines = append(lines, Line{Index: i, Transaction: txn, RunningBalance: running})
	}

	computed := start.Add(total)
	claimed := rec.EndingBalance.Decimal
	discrepancy := computed.Sub(claimed)

	return Result{
		StatementID:      rec.ID,
		StartingBalance:  start,
		ClaimedEnding:    claimed,
		ComputedEnding:   computed,
		Total:            total,
		TransactionCount: len(rec.Transactions),
		Discrepancy:      discrepancy,
		Balanced:         discrepancy.Abs().LessThan(opts.tolerance()),
		Lines:            lines,
	}, nil
}

func missing(statementID, field string) error {
	return &model.ValidationError{StatementID: statementID, Field: field, Reason: "missing"}
}
