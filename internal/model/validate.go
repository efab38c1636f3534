package model

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ValidationError reports a statement whose required numeric field is missing
// or not a number. Such statements are excluded from reconciliation totals.
type ValidationError struct {
	StatementID string
	Field       string
	Value       string
	Reason      string
}

func (e *ValidationError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("statement %s: %s %q: %s", e.StatementID, e.Field, e.Value, e.Reason)
	}
	return fmt.Sprintf("statement %s: %s: %s", e.StatementID, e.Field, e.Reason)
}

// ParseStatement converts extractor output into a StatementRecord.
//
// Blank balances and amounts become null decimals; text that is present but
// not a number is rejected with a *ValidationError. Unparseable dates are kept
// as text only, since the date is optional.
func ParseStatement(raw RawStatement) (StatementRecord, error) {
	rec := StatementRecord{ID: raw.ID}

	var err error
	if rec.StartingBalance, err = parseNullable(raw.ID, "starting_balance", raw.StartingBalance); err != nil {
		return StatementRecord{}, err
	}
	if rec.EndingBalance, err = parseNullable(raw.ID, "ending_balance", raw.EndingBalance); err != nil {
		return StatementRecord{}, err
	}

	rec.Transactions = make([]Transaction, 0, len(raw.Transactions))
	for i, rt := range raw.Transactions {
		amount, err := parseNullable(raw.ID, fmt.Sprintf("transactions[%d].amount", i), rt.Amount)
		if err != nil {
			return StatementRecord{}, err
		}
		date, _ := ParseDate(rt.Date)
		rec.Transactions = append(rec.Transactions, Transaction{
			Date:        date,
			DateText:    rt.Date,
			Description: rt.Description,
			Amount:      amount,
		})
	}
	return rec, nil
}

func parseNullable(statementID, field string, v Text) (decimal.NullDecimal, error) {
	d, err := ParseAmount(string(v))
	if errors.Is(err, ErrEmptyAmount) {
		return decimal.NullDecimal{}, nil
	}
	if err != nil {
		return decimal.NullDecimal{}, &ValidationError{
			StatementID: statementID,
			Field:       field,
			Value:       string(v),
			Reason:      "not a number",
		}
	}
	return decimal.NewNullDecimal(d), nil
}
