package config

import "time"

// Upstream defaults.
const (
	DefaultLedgerURL    = "https://apilist.tronscanapi.com/api"
	DefaultUSDTContract = "TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t"
)

// MaxConcurrency caps the batch worker pool.
const MaxConcurrency = 64

// Defaults returns the default configuration.
func Defaults() *Config {
	return &Config{
		Version: 1,
		Home:    "~/.walletvet",
		Ledger: LedgerConfig{
			BaseURL:        DefaultLedgerURL,
			USDTContract:   DefaultUSDTContract,
			Timeout:        10 * time.Second,
			FactsRPS:       5,
			RiskRPS:        5,
			Burst:          5,
			RetryAttempts:  3,
			RetryBaseDelay: 500 * time.Millisecond,
			RetryMaxDelay:  4 * time.Second,
			CacheTTL:       5 * time.Minute,
		},
		Registry: RegistryConfig{
			Backend: BackendLevelDB,
			Path:    "registry",
		},
		Batch: BatchConfig{
			Concurrency: 5,
		},
		Report: ReportConfig{
			DisplayOffsetHours: 7,
		},
		Output: OutputConfig{
			DefaultFormat: "auto",
			Color:         "auto",
		},
		Logging: LoggingConfig{
			Level:      "error",
			File:       "~/.walletvet/walletvet.log",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}
