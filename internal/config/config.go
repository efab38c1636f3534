package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// FileName is the default config file name.
const FileName = "stmtcheck.yaml"

// Environment variables holding secrets. They are never written to the YAML file.
const (
	EnvAzureEndpoint = "AZURE_ENDPOINT"
	EnvAzureKey      = "AZURE_API_KEY"
	EnvGeminiKey     = "GEMINI_API_KEY"
)

// Config represents the top-level stmtcheck.yaml configuration.
type Config struct {
	InputDir  string          `yaml:"input_dir"`
	OutputDir string          `yaml:"output_dir"`
	LogDir    string          `yaml:"log_dir"`
	Currency  string          `yaml:"currency"`
	Tolerance string          `yaml:"tolerance"` // decimal, e.g. "0.01"
	Workers   int             `yaml:"workers"`
	Archive   bool            `yaml:"archive"` // move processed PDFs to <input_dir>/processed
	Extractor ExtractorConfig `yaml:"extractor"`
	Git       GitConfig       `yaml:"git"`
	Secrets   Secrets         `yaml:"-"`
}

// ExtractorConfig selects and configures the extraction service.
type ExtractorConfig struct {
	Kind   string       `yaml:"kind"` // azure, gemini, pdftext or json
	Azure  AzureConfig  `yaml:"azure"`
	Gemini GeminiConfig `yaml:"gemini"`
}

// AzureConfig configures Azure AI Document Intelligence.
type AzureConfig struct {
	Endpoint     string        `yaml:"endpoint,omitempty"`
	ModelID      string        `yaml:"model_id"`
	APIVersion   string        `yaml:"api_version"`
	PollInterval time.Duration `yaml:"poll_interval"`
	Timeout      time.Duration `yaml:"timeout"`
}

// GeminiConfig configures the Gemini extractor.
type GeminiConfig struct {
	Model string `yaml:"model"`
}

// GitConfig controls committing reports after a run.
type GitConfig struct {
	Commit      bool   `yaml:"commit"`
	AuthorName  string `yaml:"author_name"`
	AuthorEmail string `yaml:"author_email"`
}

// Secrets are read from the environment (or a .env file) only.
type Secrets struct {
	AzureKey  string
	GeminiKey string
}

// Load reads a stmtcheck.yaml file from disk.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config with sensible defaults for a new project.
func Default() *Config {
	return &Config{
		InputDir:  "Bank_statements",
		OutputDir: "output_folder",
		LogDir:    "logs",
		Currency:  money.USD,
		Tolerance: "0.01",
		Workers:   4,
		Extractor: ExtractorConfig{
			Kind: "azure",
			Azure: AzureConfig{
				ModelID:      "prebuilt-document",
				APIVersion:   "2023-07-31",
				PollInterval: time.Second,
				Timeout:      2 * time.Minute,
			},
			Gemini: GeminiConfig{
				Model: "gemini-2.0-flash",
			},
		},
		Git: GitConfig{
			AuthorName:  "stmtcheck",
			AuthorEmail: "stmtcheck@localhost",
		},
	}
}

// LoadEnv loads a .env file into the process environment without
// overriding variables already set. A missing file is not an error.
func LoadEnv(path string) error {
	err := godotenv.Load(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// ApplyEnv copies secrets and the Azure endpoint from the environment.
// An endpoint in the environment overrides the file.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv(EnvAzureEndpoint); v != "" {
		c.Extractor.Azure.Endpoint = v
	}
	c.Secrets.AzureKey = getenv(EnvAzureKey)
	c.Secrets.GeminiKey = getenv(EnvGeminiKey)
}

// Validate checks values that cannot be caught by YAML decoding.
func (c *Config) Validate() error {
	tol, err := decimal.NewFromString(c.Tolerance)
	if err != nil {
		return fmt.Errorf("tolerance %q: %w", c.Tolerance, err)
	}
	if !tol.IsPositive() {
		return fmt.Errorf("tolerance %q must be positive", c.Tolerance)
	}
	if money.GetCurrency(c.Currency) == nil {
		return fmt.Errorf("unknown currency %q", c.Currency)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.InputDir == "" || c.OutputDir == "" {
		return fmt.Errorf("input_dir and output_dir are required")
	}
	return nil
}

// ToleranceDecimal returns the parsed tolerance. Call Validate first.
func (c *Config) ToleranceDecimal() decimal.Decimal {
	d, _ := decimal.NewFromString(c.Tolerance)
	return d
}

// Resolve makes relative directories absolute against baseDir, normally the
// directory holding the config file.
func (c *Config) Resolve(baseDir string) {
	for _, p := range []*string{&c.InputDir, &c.OutputDir, &c.LogDir} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(baseDir, *p)
		}
	}
}
