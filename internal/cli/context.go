package cli

import (
	"time"

	"github.com/walletvet/walletvet/internal/config"
	"github.com/walletvet/walletvet/internal/ledger"
	"github.com/walletvet/walletvet/internal/ledger/tronscan"
	"github.com/walletvet/walletvet/internal/output"
	"github.com/walletvet/walletvet/internal/registry"
	"github.com/walletvet/walletvet/internal/report"
	"github.com/walletvet/walletvet/internal/service/compliance"
)

// CommandContext holds dependencies for CLI commands.
type CommandContext struct {
	Config    *config.Config
	Logger    LogWriter
	Formatter *output.Formatter
	Store     registry.Store
	Ledger    ledger.Fetcher
	Service   *compliance.Service
}

// newCommandContext opens the registry and wires the ledger client and
// compliance service from the global configuration. The store is closed by
// cleanup.
func newCommandContext() (*CommandContext, error) {
	store, err := openStore(cfg)
	if err != nil {
		return nil, err
	}
	cmdCtxCleanup = append(cmdCtxCleanup, func() {
		if err := store.Close(); err != nil {
			logger.Error("closing registry: %v", err)
		}
	})

	fetcher := newLedger(cfg, logger)
	svc := compliance.NewService(&compliance.Config{
		Store:       store,
		Ledger:      fetcher,
		Logger:      logger,
		Concurrency: cfg.Batch.Concurrency,
		Operator:    cfg.Operator.Name,
	})

	return &CommandContext{
		Config:    cfg,
		Logger:    logger,
		Formatter: formatter,
		Store:     store,
		Ledger:    fetcher,
		Service:   svc,
	}, nil
}

func openStore(c *config.Config) (registry.Store, error) {
	if c.Registry.Backend == config.BackendMemory {
		return registry.NewMemory(), nil
	}
	return registry.OpenLevelDB(c.RegistryPath())
}

// newLedger builds the Tronscan-backed ledger client. One limiter is shared
// by both upstreams, each with its own bucket.
func newLedger(c *config.Config, log LogWriter) *ledger.Client {
	api := tronscan.NewClient(&tronscan.ClientOptions{
		APIKey:       c.Ledger.APIKey,
		BaseURL:      c.Ledger.BaseURL,
		USDTContract: c.Ledger.USDTContract,
		Timeout:      c.Ledger.Timeout,
		Logger:       log,
	})

	limiter := ledger.NewRateLimiter(c.Ledger.FactsRPS, c.Ledger.Burst)
	limiter.SetRate(ledger.UpstreamRisk, c.Ledger.RiskRPS)

	opts := &ledger.ClientOptions{
		Limiter: limiter,
		Retry: &ledger.RetryConfig{
			MaxAttempts: c.Ledger.RetryAttempts,
			BaseDelay:   c.Ledger.RetryBaseDelay,
			MaxDelay:    c.Ledger.RetryMaxDelay,
		},
		Logger: log,
	}
	if c.Ledger.CacheTTL > 0 {
		opts.Cache = ledger.NewSnapshotCache(c.Ledger.CacheTTL)
	}
	return ledger.NewClient(api, api, opts)
}

// displayZone returns the configured report time zone.
func displayZone() *time.Location {
	return report.Zone(cfg.Report.DisplayOffsetHours)
}
