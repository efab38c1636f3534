package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/charmbracelet/glamour"
	"github.com/shopspring/decimal"

	"github.com/cleared-dev/stmtcheck/internal/reconcile"
)

// Report is everything produced by one run.
type Report struct {
	RunID       string
	GeneratedAt time.Time
	Currency    string // ISO 4217 code used to format amounts
	Results     []reconcile.Result
	Failures    []reconcile.Failure
}

// FormatMoney formats d in the given currency, e.g. "$1,234.56" or "-$10.00".
// Unknown currency codes fall back to "1234.56 XYZ".
func FormatMoney(d decimal.Decimal, currency string) string {
	cur := money.GetCurrency(currency)
	if cur == nil {
		return strings.TrimSpace(d.StringFixed(2) + " " + currency)
	}
	minor := d.Shift(int32(cur.Fraction)).Round(0)
	return cur.Formatter().Format(minor.IntPart())
}

// WriteDiscrepancyReport writes a Markdown report listing every unbalanced
// statement and every statement that could not be reconciled.
func WriteDiscrepancyReport(w io.Writer, rep Report) error {
	var b strings.Builder
	fm := func(d decimal.Decimal) string { return FormatMoney(d, rep.Currency) }

	b.WriteString("# Bank Statement Discrepancy Report\n\n")
	fmt.Fprintf(&b, "Run `%s`, generated %s.\n\n", rep.RunID, rep.GeneratedAt.UTC().Format(time.RFC3339))

	unbalanced := reconcile.BatchResult{Results: rep.Results}.Unbalanced()
	fmt.Fprintf(&b, "%d statements reconciled, %d with discrepancies, %d excluded.\n\n",
		len(rep.Results), len(unbalanced), len(rep.Failures))

	b.WriteString("## Discrepancies\n\n")
	if len(unbalanced) == 0 {
		b.WriteString("No discrepancies found in any statements.\n\n")
	}
	for _, r := range unbalanced {
		fmt.Fprintf(&b, "### %s\n\n", r.StatementID)
		fmt.Fprintf(&b, "| | |\n|---|---:|\n")
		fmt.Fprintf(&b, "| Starting balance | %s |\n", fm(r.StartingBalance))
		fmt.Fprintf(&b, "| Total transactions (%d) | %s |\n", r.TransactionCount, fm(r.Total))
		fmt.Fprintf(&b, "| Computed ending balance | %s |\n", fm(r.ComputedEnding))
		fmt.Fprintf(&b, "| Claimed ending balance | %s |\n", fm(r.ClaimedEnding))
		fmt.Fprintf(&b, "| **Discrepancy** | **%s** |\n\n", fm(r.Discrepancy))
	}

	if len(rep.Failures) > 0 {
		b.WriteString("## Excluded statements\n\n")
		for _, f := range rep.Failures {
			fmt.Fprintf(&b, "- **%s**: %s\n", f.StatementID, f.Err)
		}
		b.WriteString("\n")
	}

	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("writing discrepancy report: %w", err)
	}
	return nil
}

// Render renders Markdown for a terminal. style is a glamour standard style
// name such as "dark", "light" or "notty".
func Render(markdown, style string) (string, error) {
	out, err := glamour.Render(markdown, style)
	if err != nil {
		return "", fmt.Errorf("rendering report: %w", err)
	}
	return out, nil
}
