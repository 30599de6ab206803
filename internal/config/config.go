package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// FileName is the config file at the root of a bankrec repo.
const FileName = "bankrec.yaml"

// EnvDatabaseURL overrides store.database_url when set.
const EnvDatabaseURL = "BANKREC_DATABASE_URL"

// Store drivers.
const (
	DriverCSV      = "csv"
	DriverPostgres = "postgres"
)

// Config represents the top-level bankrec.yaml configuration.
type Config struct {
	Business     BusinessConfig `yaml:"business"`
	Store        StoreConfig    `yaml:"store"`
	BankAccounts []BankAccount  `yaml:"bank_accounts,omitempty"`
	Logging      LoggingConfig  `yaml:"logging"`
	Metrics      MetricsConfig  `yaml:"metrics,omitempty"`
	Git          GitConfig      `yaml:"git"`
}

// BusinessConfig identifies the business whose books are reconciled.
type BusinessConfig struct {
	Name string `yaml:"name"`
}

// StoreConfig selects the Record Store.
type StoreConfig struct {
	Driver      string `yaml:"driver"`
	DatabaseURL string `yaml:"database_url,omitempty"`
}

// BankAccount maps a bank feed to the ledger account it reconciles against.
type BankAccount struct {
	Name      string `yaml:"name"`
	Type      string `yaml:"type"`
	LastFour  string `yaml:"last_four"`
	AccountID int    `yaml:"account_id"`
	Currency  string `yaml:"currency,omitempty"`
}

// LoggingConfig sets the zerolog level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "console" or "json"
}

// MetricsConfig points at a node-exporter textfile. Empty disables it.
type MetricsConfig struct {
	Textfile string `yaml:"textfile,omitempty"`
}

// GitConfig controls git integration.
type GitConfig struct {
	AutoCommit  bool   `yaml:"auto_commit"`
	AuthorName  string `yaml:"author_name"`
	AuthorEmail string `yaml:"author_email"`
}

// Load reads a bankrec.yaml file from disk, applies environment overrides
// and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.applyDefaults()
	if v := strings.TrimSpace(os.Getenv(EnvDatabaseURL)); v != "" {
		cfg.Store.DatabaseURL = v
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
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

// Default returns a Config with sensible defaults for a new repo.
func Default(businessName string) *Config {
	cfg := &Config{
		Business: BusinessConfig{Name: businessName},
		Git: GitConfig{
			AutoCommit:  true,
			AuthorName:  "bankrec",
			AuthorEmail: "bankrec@localhost",
		},
	}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Store.Driver == "" {
		c.Store.Driver = DriverCSV
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}
	for i := range c.BankAccounts {
		if c.BankAccounts[i].Currency == "" {
			c.BankAccounts[i].Currency = "USD"
		}
	}
}

// Validate reports every problem found, joined.
func (c *Config) Validate() error {
	var errs []error
	switch c.Store.Driver {
	case DriverCSV:
	case DriverPostgres:
		if c.Store.DatabaseURL == "" {
			errs = append(errs, fmt.Errorf("store: postgres driver needs database_url or %s", EnvDatabaseURL))
		}
	default:
		errs = append(errs, fmt.Errorf("store: unknown driver %q", c.Store.Driver))
	}

	seen := make(map[int]bool, len(c.BankAccounts))
	for i, ba := range c.BankAccounts {
		if ba.AccountID <= 0 {
			errs = append(errs, fmt.Errorf("bank_accounts[%d]: account_id must be positive", i))
			continue
		}
		if seen[ba.AccountID] {
			errs = append(errs, fmt.Errorf("bank_accounts[%d]: duplicate account_id %d", i, ba.AccountID))
		}
		seen[ba.AccountID] = true
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
