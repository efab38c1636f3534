package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is one extracted statement line.
type Transaction struct {
	Date        time.Time // zero if the statement omits it or it did not parse
	DateText    string    // date as printed on the statement
	Description string
	Amount      decimal.NullDecimal // negative = debit, positive = credit
}

// StatementRecord is a parsed statement ready for reconciliation.
// Balances are nullable so a field the extractor could not find is reported
// instead of silently treated as zero.
type StatementRecord struct {
	ID              string
	StartingBalance decimal.NullDecimal
	EndingBalance   decimal.NullDecimal // as claimed by the statement
	Transactions    []Transaction
}

// RawTransaction is a transaction line as emitted by an extractor.
type RawTransaction struct {
	Date        string `json:"date,omitempty"`
	Description string `json:"description"`
	Amount      Text   `json:"amount"`
}

// RawStatement is the extractor output for one source document. All numbers
// are kept as printed; ParseStatement turns them into decimals.
type RawStatement struct {
	ID              string           `json:"id,omitempty"`
	Source          string           `json:"source,omitempty"`
	Extractor       string           `json:"extractor,omitempty"`
	StartingBalance Text             `json:"starting_balance"`
	EndingBalance   Text             `json:"ending_balance"`
	Transactions    []RawTransaction `json:"transactions"`
}
