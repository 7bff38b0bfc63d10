package ledger

import (
	"context"
	"time"

	"github.com/walletvet/walletvet/internal/address"
	"github.com/walletvet/walletvet/internal/metrics"
	"github.com/walletvet/walletvet/internal/model"
	veterr "github.com/walletvet/walletvet/pkg/errors"
)

// Logger is the logging surface used by the ledger client.
type Logger interface {
	Debug(format string, args ...any)
	Error(format string, args ...any)
}

// NopLogger discards all log output.
type NopLogger struct{}

// Debug discards the message.
func (NopLogger) Debug(string, ...any) {}

// Error discards the message.
func (NopLogger) Error(string, ...any) {}

// Compile-time interface check
var _ Fetcher = (*Client)(nil)

// Client merges the facts and risk upstreams into ledger snapshots.
// A single Client is shared by all batch workers; its limiter bounds the
// aggregate request rate.
type Client struct {
	facts   FactsSource
	risk    RiskSource
	limiter Limiter
	retry   RetryConfig
	cache   *SnapshotCache
	logger  Logger
	now     func() time.Time
}

// ClientOptions configures the ledger client.
type ClientOptions struct {
	// Limiter overrides the default per-upstream rate limiter.
	Limiter Limiter
	// Retry overrides the default retry configuration.
	Retry *RetryConfig
	// Cache enables snapshot caching when set.
	Cache *SnapshotCache
	// Logger receives debug output for every upstream call.
	Logger Logger
	// Now overrides the clock used for FetchedAt.
	Now func() time.Time
}

// NewClient creates a ledger client over the two upstreams.
func NewClient(facts FactsSource, risk RiskSource, opts *ClientOptions) *Client {
	c := &Client{
		facts:   facts,
		risk:    risk,
		limiter: DefaultRateLimiter(),
		retry:   DefaultRetryConfig(),
		logger:  NopLogger{},
		now:     time.Now,
	}

	if opts != nil {
		if opts.Limiter != nil {
			c.limiter = opts.Limiter
		}
		if opts.Retry != nil {
			c.retry = *opts.Retry
		}
		if opts.Cache != nil {
			c.cache = opts.Cache
		}
		if opts.Logger != nil {
			c.logger = opts.Logger
		}
		if opts.Now != nil {
			c.now = opts.Now
		}
	}

	return c
}

// Fetch returns a merged snapshot of the wallet. A wallet with no history is
// a valid result with zero counts and no creation date.
//
// Failures are ErrUpstreamUnavailable (retries exhausted or a non-retryable
// upstream error), ErrUpstreamMalformedResponse, or ErrCanceled when ctx
// ends first.
func (c *Client) Fetch(ctx context.Context, addr address.Address) (*model.LedgerSnapshot, error) {
	if !addr.IsValid() {
		return nil, veterr.WithDetails(veterr.ErrInvalidFormat, map[string]string{"address": addr.String()})
	}
	key := addr.String()

	if c.cache != nil {
		if snap, ok, age := c.cache.Get(key); ok {
			metrics.CacheHits.Inc()
			c.logger.Debug("ledger: cache hit for %s (age %s)", key, age.Round(time.Millisecond))
			return snap, nil
		}
		metrics.CacheMisses.Inc()
	}

	facts, err := call(ctx, c, UpstreamFacts, func(ctx context.Context) (*WalletFacts, error) {
		return c.facts.GetWalletFacts(ctx, key)
	})
	if err != nil {
		return nil, normalize(UpstreamFacts, key, err)
	}
	if first, ok := c.facts.(FirstActivitySource); ok && facts != nil && facts.CreationDate.IsZero() && facts.TxTotal > 0 {
		created, err := call(ctx, c, UpstreamFacts, func(ctx context.Context) (time.Time, error) {
			return first.GetFirstActivity(ctx, key)
		})
		if err != nil {
			return nil, normalize(UpstreamFacts, key, err)
		}
		facts.CreationDate = created
	}

	risk, err := call(ctx, c, UpstreamRisk, func(ctx context.Context) (*RiskFlag, error) {
		return c.risk.GetRiskFlag(ctx, key)
	})
	if err != nil {
		return nil, normalize(UpstreamRisk, key, err)
	}

	snap := merge(key, facts, risk, c.now().UTC())
	if c.cache != nil {
		c.cache.Set(snap)
	}
	return snap, nil
}

// call runs one upstream operation under the limiter and retry policy,
// recording metrics for every attempt.
func call[T any](ctx context.Context, c *Client, upstream string, op func(context.Context) (T, error)) (T, error) {
	cfg := c.retry
	cfg.OnRetry = func(attempt int, delay time.Duration, err error) {
		metrics.Retries.WithLabelValues(upstream).Inc()
		c.logger.Debug("ledger: %s retry %d in %s: %v", upstream, attempt, delay.Round(time.Millisecond), err)
	}

	return RetryWithConfig(ctx, cfg, func(ctx context.Context) (T, error) {
		var zero T
		if err := c.limiter.Wait(ctx, upstream); err != nil {
			return zero, err
		}

		start := time.Now()
		result, err := op(ctx)
		elapsed := time.Since(start)
		metrics.RecordUpstreamCall(upstream, callStatus(err), elapsed)
		if err != nil {
			c.logger.Debug("ledger: %s call failed after %s: %v", upstream, elapsed.Round(time.Millisecond), err)
		} else {
			c.logger.Debug("ledger: %s call ok in %s", upstream, elapsed.Round(time.Millisecond))
		}
		return result, err
	})
}

func callStatus(err error) string {
	switch {
	case err == nil:
		return metrics.StatusOK
	case veterr.Is(err, veterr.ErrUpstreamRateLimited):
		return metrics.StatusRateLimited
	case veterr.Is(err, veterr.ErrUpstreamMalformedResponse):
		return metrics.StatusMalformed
	default:
		return metrics.StatusError
	}
}

// normalize maps any failure onto the upstream taxonomy and tags it with
// the upstream and address.
func normalize(upstream, addr string, err error) error {
	details := map[string]string{"upstream": upstream, "address": addr}
	switch veterr.Code(err) {
	case veterr.CodeCanceled, veterr.CodeUpstreamUnavailable, veterr.CodeUpstreamMalformedResponse:
		return veterr.WithDetails(err, details)
	}
	return veterr.WithDetails(veterr.WithCause(veterr.ErrUpstreamUnavailable, err), details)
}
