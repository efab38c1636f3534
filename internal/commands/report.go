package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/stmtcheck/internal/report"
)

func newReportCommand(g *globalFlags) *cobra.Command {
	var plain bool
	var style string

	cmd := &cobra.Command{
		Use:   "report [output-dir]",
		Short: "Show the discrepancy report from the last run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := ""
			if len(args) > 0 {
				dir = args[0]
			} else {
				cfg, err := g.loadConfig()
				if err != nil {
					return err
				}
				dir = cfg.OutputDir
			}

			data, err := os.ReadFile(filepath.Join(dir, report.DiscrepancyFile))
			if err != nil {
				return fmt.Errorf("reading report: %w", err)
			}
			if plain {
				fmt.Print(string(data))
				return nil
			}

			out, err := report.Render(string(data), style)
			if err != nil {
				return err
			}
			fmt.Print(out)
			return nil
		},
	}

	cmd.Flags().BoolVar(&plain, "plain", false, "print raw Markdown")
	cmd.Flags().StringVar(&style, "style", "dark", "glamour style: dark, light, notty, ...")

	return cmd
}
