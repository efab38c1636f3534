package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/stmtcheck/internal/config"
	"github.com/cleared-dev/stmtcheck/internal/gitops"
	"github.com/cleared-dev/stmtcheck/internal/pipeline"
)

const envExample = `# Azure AI Document Intelligence
AZURE_ENDPOINT=https://<resource>.cognitiveservices.azure.com
AZURE_API_KEY=

# Gemini (extractor kind "gemini")
GEMINI_API_KEY=
`

func newInitCommand() *cobra.Command {
	var force bool
	var noGit bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new stmtcheck project",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}

			return runInit(absDir, force, !noGit)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing "+config.FileName)
	cmd.Flags().BoolVar(&noGit, "no-git", false, "skip git init and the initial commit")

	return cmd
}

func runInit(dir string, force, useGit bool) error {
	cfgPath := filepath.Join(dir, config.FileName)
	if _, err := os.Stat(cfgPath); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", cfgPath)
	}

	cfg := config.Default()

	dirs := []string{
		cfg.InputDir,
		filepath.Join(cfg.InputDir, pipeline.ProcessedDir),
		cfg.OutputDir,
		cfg.LogDir,
	}
	for _, d := range dirs {
		if err := os.MkdirAll(filepath.Join(dir, d), 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", d, err)
		}
	}

	if err := config.Save(cfgPath, cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	files := []struct {
		name    string
		content string
	}{
		{".env.example", envExample},
		{".gitignore", ".env\n" + cfg.InputDir + "/\n"},
		{filepath.Join(cfg.OutputDir, ".gitkeep"), ""},
	}
	for _, f := range files {
		if err := os.WriteFile(filepath.Join(dir, f.name), []byte(f.content), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", f.name, err)
		}
	}

	if !useGit {
		fmt.Printf("Initialized stmtcheck project at %s\n", dir)
		return nil
	}

	if !gitops.IsRepo(dir) {
		if err := gitops.Init(dir); err != nil {
			return fmt.Errorf("git init: %w", err)
		}
	}

	hash, err := gitops.CommitPaths(dir, "init: stmtcheck project", cfg.Git.AuthorName, cfg.Git.AuthorEmail, ".")
	if err != nil {
		return fmt.Errorf("initial commit: %w", err)
	}

	fmt.Printf("Initialized stmtcheck project at %s (%s)\n", dir, hash)
	return nil
}
