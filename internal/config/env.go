package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/mrz1836/go-sanitize"
)

// Environment variable names.
const (
	EnvHome            = "WALLETVET_HOME"
	EnvLedgerURL       = "WALLETVET_LEDGER_URL"
	EnvAPIKey          = "TRONSCAN_API_KEY" // #nosec G101 -- variable name, not a credential
	EnvRegistryBackend = "WALLETVET_REGISTRY_BACKEND"
	EnvConcurrency     = "WALLETVET_CONCURRENCY"
	EnvOutputFormat    = "WALLETVET_OUTPUT_FORMAT"
	EnvVerbose         = "WALLETVET_VERBOSE"
	EnvLogLevel        = "WALLETVET_LOG_LEVEL"
	EnvMetricsAddr     = "WALLETVET_METRICS_ADDR"
	EnvOperator        = "WALLETVET_OPERATOR"
	EnvNoColor         = "NO_COLOR"
)

// ApplyEnvironment applies environment variable overrides to the configuration.
//
//nolint:gocognit,gocyclo // Environment variable overrides require sequential checks
func ApplyEnvironment(cfg *Config) {
	if v := os.Getenv(EnvHome); v != "" {
		cfg.Home = v
	}

	if v := os.Getenv(EnvLedgerURL); v != "" {
		cfg.Ledger.BaseURL = SanitizeURL(v)
	}

	if v := strings.TrimSpace(os.Getenv(EnvAPIKey)); v != "" {
		cfg.Ledger.APIKey = v
	}

	if v := os.Getenv(EnvRegistryBackend); v != "" {
		cfg.Registry.Backend = strings.ToLower(strings.TrimSpace(v))
	}

	if v := os.Getenv(EnvConcurrency); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n > 0 {
			cfg.Batch.Concurrency = n
		}
	}

	if v := os.Getenv(EnvOutputFormat); v != "" {
		cfg.Output.DefaultFormat = strings.ToLower(v)
	}

	if v := os.Getenv(EnvVerbose); v != "" {
		cfg.Output.Verbose = parseBool(v)
	}

	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}

	if v := os.Getenv(EnvMetricsAddr); v != "" {
		cfg.Metrics.Listen = strings.TrimSpace(v)
	}

	if v := os.Getenv(EnvOperator); v != "" {
		cfg.Operator.Name = strings.TrimSpace(v)
	}

	// NO_COLOR disables colored output whatever its value
	if _, ok := os.LookupEnv(EnvNoColor); ok {
		cfg.Output.Color = "never"
	}
}

// parseBool parses a boolean string value.
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "1" || s == "true" || s == "yes" || s == "on" {
		return true
	}
	b, _ := strconv.ParseBool(s)
	return b
}

// SanitizeURL strips whitespace and characters that are not valid in a URL,
// which removes copy-paste artifacts from operator supplied endpoints.
func SanitizeURL(url string) string {
	return sanitize.URL(strings.TrimSpace(url))
}
