package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/stmtcheck/internal/config"
	"github.com/cleared-dev/stmtcheck/internal/gitops"
	"github.com/cleared-dev/stmtcheck/internal/pipeline"
	"github.com/cleared-dev/stmtcheck/internal/reconcile"
)

type runFlags struct {
	extractor string
	input     string
	output    string
	workers   int
	archive   bool
	commit    bool
	strict    bool
}

func newRunCommand(g *globalFlags) *cobra.Command {
	var f runFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Extract, reconcile and report every statement in the input directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			applyRunFlags(cmd, cfg, f)
			return runRun(cmd, g, cfg, f.strict)
		},
	}

	cmd.Flags().StringVar(&f.extractor, "extractor", "", "extractor: azure, gemini, pdftext or json")
	cmd.Flags().StringVar(&f.input, "input", "", "directory of statement PDFs")
	cmd.Flags().StringVar(&f.output, "output", "", "directory for reports")
	cmd.Flags().IntVar(&f.workers, "workers", 0, "concurrent extractions")
	cmd.Flags().BoolVar(&f.archive, "archive", false, "move reconciled PDFs to <input>/processed")
	cmd.Flags().BoolVar(&f.commit, "commit", false, "commit reports to the enclosing git repository")
	cmd.Flags().BoolVar(&f.strict, "strict", false, "exit 1 when any statement is unbalanced or excluded")

	return cmd
}

// applyRunFlags overrides config values with flags the user actually set.
func applyRunFlags(cmd *cobra.Command, cfg *config.Config, f runFlags) {
	flags := cmd.Flags()
	if flags.Changed("extractor") {
		cfg.Extractor.Kind = f.extractor
	}
	if flags.Changed("input") {
		cfg.InputDir = f.input
	}
	if flags.Changed("output") {
		cfg.OutputDir = f.output
	}
	if flags.Changed("workers") && f.workers > 0 {
		cfg.Workers = f.workers
	}
	if flags.Changed("archive") {
		cfg.Archive = f.archive
	}
	if flags.Changed("commit") {
		cfg.Git.Commit = f.commit
	}
}

func runRun(cmd *cobra.Command, g *globalFlags, cfg *config.Config, strict bool) error {
	ctx := cmd.Context()
	log := g.logger()

	reg, err := newRegistry(ctx, cfg, log)
	if err != nil {
		return err
	}
	ex, err := selectExtractor(reg, cfg.Extractor.Kind)
	if err != nil {
		return err
	}

	sum, err := pipeline.Run(ctx, pipeline.Options{
		InputDir:  cfg.InputDir,
		OutputDir: cfg.OutputDir,
		LogDir:    cfg.LogDir,
		Extractor: ex,
		Reconcile: reconcile.Options{Tolerance: cfg.ToleranceDecimal(), Workers: cfg.Workers},
		Currency:  cfg.Currency,
		Workers:   cfg.Workers,
		Archive:   cfg.Archive,
		Logger:    log,
	})
	if err != nil {
		return err
	}

	unbalanced := len(sum.Batch.Unbalanced())
	fmt.Printf("Run %s: %d reconciled, %d unbalanced, %d excluded\n",
		sum.RunID, len(sum.Batch.Results), unbalanced, len(sum.Batch.Errors))
	fmt.Printf("Reports written to %s\n", cfg.OutputDir)

	if cfg.Git.Commit {
		if err := commitRun(cfg, sum); err != nil {
			return err
		}
	}

	if strict && (unbalanced > 0 || len(sum.Batch.Errors) > 0) {
		return errUnbalanced
	}
	return nil
}

func commitRun(cfg *config.Config, sum *pipeline.Summary) error {
	root, ok := gitops.FindRoot(cfg.OutputDir)
	if !ok {
		return fmt.Errorf("--commit: %s is not inside a git repository", cfg.OutputDir)
	}

	msg := fmt.Sprintf("run %s: %d statements reconciled, %d unbalanced, %d excluded",
		sum.RunID, len(sum.Batch.Results), len(sum.Batch.Unbalanced()), len(sum.Batch.Errors))
	hash, err := gitops.CommitPaths(root, msg, cfg.Git.AuthorName, cfg.Git.AuthorEmail, sum.Files...)
	if err != nil {
		return fmt.Errorf("committing reports: %w", err)
	}
	if hash == "" {
		fmt.Println("Reports unchanged, nothing to commit")
		return nil
	}
	fmt.Printf("Committed reports (%s)\n", hash)
	return nil
}
