// Package config provides configuration management for walletvet.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/walletvet/walletvet/internal/fileutil"
	veterr "github.com/walletvet/walletvet/pkg/errors"
)

// Registry backends.
const (
	BackendLevelDB = "leveldb"
	BackendMemory  = "memory"
)

// Config represents the application configuration.
type Config struct {
	Version  int            `yaml:"version"`
	Home     string         `yaml:"home"`
	Ledger   LedgerConfig   `yaml:"ledger"`
	Registry RegistryConfig `yaml:"registry"`
	Batch    BatchConfig    `yaml:"batch"`
	Report   ReportConfig   `yaml:"report"`
	Output   OutputConfig   `yaml:"output"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Operator OperatorConfig `yaml:"operator"`
}

// LedgerConfig defines the Tronscan upstream, its rate limits and retries.
type LedgerConfig struct {
	BaseURL      string        `yaml:"base_url"`
	APIKey       string        `yaml:"api_key,omitempty"`
	USDTContract string        `yaml:"usdt_contract"`
	Timeout      time.Duration `yaml:"timeout"`

	// Requests per second and burst for each upstream.
	FactsRPS float64 `yaml:"facts_rps"`
	RiskRPS  float64 `yaml:"risk_rps"`
	Burst    int     `yaml:"burst"`

	RetryAttempts  int           `yaml:"retry_attempts"`
	RetryBaseDelay time.Duration `yaml:"retry_base_delay"`
	RetryMaxDelay  time.Duration `yaml:"retry_max_delay"`

	// CacheTTL of ledger snapshots. Zero disables the cache.
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

// RegistryConfig selects the registry backend.
type RegistryConfig struct {
	Backend string `yaml:"backend"`
	// Path of the LevelDB directory. Relative paths are under Home.
	Path string `yaml:"path"`
}

// BatchConfig defines batch pipeline settings.
type BatchConfig struct {
	Concurrency int `yaml:"concurrency"`
	// Timeout bounds a whole batch run. Zero means no limit.
	Timeout time.Duration `yaml:"timeout"`
}

// ReportConfig defines report rendering settings.
type ReportConfig struct {
	DisplayOffsetHours int `yaml:"display_offset_hours"`
}

// OutputConfig defines output formatting settings.
type OutputConfig struct {
	DefaultFormat string `yaml:"default_format"`
	Color         string `yaml:"color"`
	Verbose       bool   `yaml:"verbose"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// MetricsConfig defines the optional Prometheus listener.
type MetricsConfig struct {
	Listen string `yaml:"listen"`
}

// OperatorConfig identifies who runs registry mutations.
type OperatorConfig struct {
	Name string `yaml:"name"`
}

// Load reads configuration from path on top of Defaults.
func Load(path string) (*Config, error) {
	// #nosec G304 -- config file path is from validated user input
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, veterr.WithDetails(veterr.ErrConfigNotFound, map[string]string{"path": path})
	}
	if err != nil {
		return nil, veterr.Wrap(err, "reading config")
	}
	return Parse(data)
}

// Parse decodes YAML on top of Defaults.
func Parse(data []byte) (*Config, error) {
	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, veterr.WithCause(veterr.ErrConfigInvalid, err)
	}
	return cfg, nil
}

// Save writes configuration to path atomically.
func Save(cfg *Config, path string) error {
	if err := fileutil.EnsureDir(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	return fileutil.WriteAtomicFunc(path, 0o600, func(w io.Writer) error {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(cfg); err != nil {
			return err
		}
		return enc.Close()
	})
}

// Validate checks values the rest of the program relies on.
func (c *Config) Validate() error {
	invalid := func(field, format string, args ...any) error {
		return veterr.WithDetails(veterr.ErrConfigInvalid, map[string]string{
			"field":  field,
			"reason": fmt.Sprintf(format, args...),
		})
	}

	u, err := url.Parse(c.Ledger.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return invalid("ledger.base_url", "must be an absolute http(s) URL, got %q", c.Ledger.BaseURL)
	}
	if c.Ledger.FactsRPS <= 0 || c.Ledger.RiskRPS <= 0 {
		return invalid("ledger.facts_rps", "rates must be positive")
	}
	if c.Ledger.Burst < 1 {
		return invalid("ledger.burst", "must be at least 1")
	}
	if c.Ledger.RetryAttempts < 1 {
		return invalid("ledger.retry_attempts", "must be at least 1")
	}
	if c.Ledger.Timeout <= 0 {
		return invalid("ledger.timeout", "must be positive")
	}
	if c.Ledger.CacheTTL < 0 {
		return invalid("ledger.cache_ttl", "must not be negative")
	}
	if !slices.Contains([]string{BackendLevelDB, BackendMemory}, c.Registry.Backend) {
		return invalid("registry.backend", "must be %q or %q", BackendLevelDB, BackendMemory)
	}
	if c.Batch.Concurrency < 1 || c.Batch.Concurrency > MaxConcurrency {
		return invalid("batch.concurrency", "must be between 1 and %d", MaxConcurrency)
	}
	if c.Report.DisplayOffsetHours < -12 || c.Report.DisplayOffsetHours > 14 {
		return invalid("report.display_offset_hours", "must be between -12 and 14")
	}
	if !slices.Contains([]string{"off", "none", "error", "info", "debug"}, strings.ToLower(c.Logging.Level)) {
		return invalid("logging.level", "unknown level %q", c.Logging.Level)
	}
	return nil
}

// RegistryPath returns the absolute LevelDB directory.
func (c *Config) RegistryPath() string {
	p := ExpandHome(c.Registry.Path)
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(ExpandHome(c.Home), p)
}

// Path returns the config file path inside home.
func Path(home string) string {
	return filepath.Join(home, "config.yaml")
}

// GetHome returns the walletvet home directory.
func (c *Config) GetHome() string {
	return ExpandHome(c.Home)
}

// ColorEnabled reports whether colored output is allowed. "auto" defers to
// the terminal check done by the caller.
func (c *Config) ColorEnabled() bool {
	return c.Output.Color != "never"
}

// DefaultHome returns the default walletvet home directory.
func DefaultHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".walletvet"
	}
	return filepath.Join(home, ".walletvet")
}

// ExpandHome replaces a leading "~/" with the user's home directory.
func ExpandHome(p string) string {
	if !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, p[2:])
}
