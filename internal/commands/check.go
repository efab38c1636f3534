package commands

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/stmtcheck/internal/model"
	"github.com/cleared-dev/stmtcheck/internal/reconcile"
	"github.com/cleared-dev/stmtcheck/internal/report"
)

func newCheckCommand(g *globalFlags) *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "check <output.json>",
		Short: "Reconcile previously extracted statements",
		Long: "Reconcile statements from an output.json written by a previous run,\n" +
			"or from a single statement JSON file, and print the results.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			return runCheck(args[0], reconcile.Options{Tolerance: cfg.ToleranceDecimal(), Workers: cfg.Workers}, strict)
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "exit 1 when any statement is unbalanced or invalid")

	return cmd
}

func runCheck(path string, opts reconcile.Options, strict bool) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	raws, err := report.ReadExtracted(f)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	var records []model.StatementRecord
	var invalid []reconcile.Failure
	for _, raw := range raws {
		rec, err := model.ParseStatement(raw)
		if err != nil {
			invalid = append(invalid, reconcile.Failure{StatementID: raw.ID, Err: err})
			continue
		}
		records = append(records, rec)
	}
	batch := reconcile.Batch(records, opts)
	batch.Errors = append(invalid, batch.Errors...)
	sort.SliceStable(batch.Errors, func(i, j int) bool {
		return batch.Errors[i].StatementID < batch.Errors[j].StatementID
	})

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STATEMENT\tSTART\tCLAIMED\tCOMPUTED\tDISCREPANCY\tSTATUS")
	for _, r := range batch.Results {
		status := "ok"
		if !r.Balanced {
			status = "UNBALANCED"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.StatementID,
			r.StartingBalance.StringFixed(2),
			r.ClaimedEnding.StringFixed(2),
			r.ComputedEnding.StringFixed(2),
			r.Discrepancy.StringFixed(2),
			status)
	}
	for _, e := range batch.Errors {
		fmt.Fprintf(tw, "%s\t\t\t\t\tEXCLUDED: %v\n", e.StatementID, e.Err)
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("writing table: %w", err)
	}

	unbalanced := len(batch.Unbalanced())
	fmt.Printf("\n%d statements checked, %d unbalanced, %d excluded\n", len(raws), unbalanced, len(batch.Errors))

	if strict && (unbalanced > 0 || len(batch.Errors) > 0) {
		return errUnbalanced
	}
	return nil
}
