package commands

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/cleared-dev/stmtcheck/internal/buildinfo"
	"github.com/cleared-dev/stmtcheck/internal/config"
	"github.com/cleared-dev/stmtcheck/internal/extract"
)

// errUnbalanced is returned under --strict so the process exits 1.
var errUnbalanced = errors.New("unbalanced or invalid statements found")

type globalFlags struct {
	configPath string
	configSet  bool // --config given explicitly
	envPath    string
	verbose    bool
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	g := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:     "stmtcheck",
		Short:   "Reconcile bank statement balances",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", buildinfo.Version, buildinfo.Commit, buildinfo.Date),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			g.configSet = cmd.Flags().Changed("config")
		},
	}

	rootCmd.PersistentFlags().StringVar(&g.configPath, "config", config.FileName, "config file")
	rootCmd.PersistentFlags().StringVar(&g.envPath, "env", ".env", "dotenv file with API keys")
	rootCmd.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(newInitCommand())
	rootCmd.AddCommand(newRunCommand(g))
	rootCmd.AddCommand(newExtractCommand(g))
	rootCmd.AddCommand(newCheckCommand(g))
	rootCmd.AddCommand(newReportCommand(g))

	return rootCmd
}

func (g *globalFlags) logger() zerolog.Logger {
	level := zerolog.InfoLevel
	if g.verbose {
		level = zerolog.DebugLevel
	}
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// loadConfig reads the config file, falling back to defaults when the default
// file does not exist, then applies .env and the environment. Relative directories are
// resolved against the config file's directory.
func (g *globalFlags) loadConfig() (*config.Config, error) {
	if err := config.LoadEnv(g.envPath); err != nil {
		return nil, err
	}

	cfg, err := config.Load(g.configPath)
	switch {
	case errors.Is(err, fs.ErrNotExist) && !g.configSet:
		cfg = config.Default()
	case err != nil:
		return nil, err
	}
	cfg.ApplyEnv(os.Getenv)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", g.configPath, err)
	}

	base, err := filepath.Abs(filepath.Dir(g.configPath))
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}
	cfg.Resolve(base)
	return cfg, nil
}

// newRegistry registers every extractor the configuration can support.
// The offline extractors are always available.
func newRegistry(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*extract.Registry, error) {
	reg := extract.NewRegistry()

	az := cfg.Extractor.Azure
	if az.Endpoint != "" && cfg.Secrets.AzureKey != "" {
		reg.Register(extract.NewAzureExtractor(extract.AzureConfig{
			Endpoint:     az.Endpoint,
			Key:          cfg.Secrets.AzureKey,
			ModelID:      az.ModelID,
			APIVersion:   az.APIVersion,
			PollInterval: az.PollInterval,
			Timeout:      az.Timeout,
		}, &http.Client{Timeout: 60 * time.Second}, log.With().Str("extractor", "azure").Logger()))
	}

	if cfg.Secrets.GeminiKey != "" {
		gem, err := extract.NewGeminiExtractor(ctx, cfg.Secrets.GeminiKey, cfg.Extractor.Gemini.Model)
		if err != nil {
			return nil, err
		}
		reg.Register(gem)
	}

	reg.Register(&extract.PDFTextExtractor{})
	reg.Register(&extract.SidecarExtractor{})
	return reg, nil
}

func selectExtractor(reg *extract.Registry, name string) (extract.Extractor, error) {
	if ex := reg.Get(name); ex != nil {
		return ex, nil
	}
	hint := ""
	switch strings.ToLower(name) {
	case "azure":
		hint = fmt.Sprintf(" (set %s and %s)", config.EnvAzureEndpoint, config.EnvAzureKey)
	case "gemini":
		hint = fmt.Sprintf(" (set %s)", config.EnvGeminiKey)
	}
	return nil, fmt.Errorf("%w %q%s; available: %s", extract.ErrUnknownExtractor, name, hint, strings.Join(reg.Names(), ", "))
}
