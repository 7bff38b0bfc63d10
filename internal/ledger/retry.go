package ledger

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net"
	"strconv"
	"time"

	veterr "github.com/walletvet/walletvet/pkg/errors"
)

// ErrRetryable marks a transient upstream failure (transport error, 5xx).
//
//nolint:gochecknoglobals // Sentinel error
var ErrRetryable = &veterr.VetError{
	Code:     "RETRYABLE_ERROR",
	Message:  "transient upstream failure",
	ExitCode: veterr.ExitUpstream,
}

// RetryConfig configures retry behavior.
type RetryConfig struct {
	MaxAttempts int           // Maximum number of attempts (including initial)
	BaseDelay   time.Duration // Initial backoff ceiling
	MaxDelay    time.Duration // Upper bound on any backoff ceiling

	// OnRetry, when set, is called before each backoff sleep.
	OnRetry func(attempt int, delay time.Duration, err error)
}

// DefaultRetryConfig returns the default retry configuration:
// 3 attempts, backoff ceilings 500ms then 1s, capped at 4s.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    4 * time.Second,
	}
}

// Retry executes the operation with the default configuration.
func Retry[T any](ctx context.Context, operation func(ctx context.Context) (T, error)) (T, error) {
	return RetryWithConfig(ctx, DefaultRetryConfig(), operation)
}

// RetryWithConfig executes the operation, retrying retryable failures with
// exponential backoff and full jitter.
//
// Caller cancellation fails with ErrCanceled. Non-retryable failures are
// returned as they are. When attempts run out the last failure is wrapped in
// ErrUpstreamUnavailable.
func RetryWithConfig[T any](ctx context.Context, cfg RetryConfig, operation func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	var err error

	attempts := max(cfg.MaxAttempts, 1)

	for attempt := 0; attempt < attempts; attempt++ {
		if ctx.Err() != nil {
			return zero, canceled(ctx, err)
		}

		var result T
		result, err = operation(ctx)
		if err == nil {
			return result, nil
		}

		if ctx.Err() != nil {
			return zero, canceled(ctx, err)
		}

		if !IsRetryable(err) {
			return zero, err
		}

		// Don't delay after the last attempt
		if attempt < attempts-1 {
			delay := calculateDelay(attempt, cfg.BaseDelay, cfg.MaxDelay)
			if hint := retryAfterHint(err); hint > delay {
				delay = min(hint, max(cfg.MaxDelay, cfg.BaseDelay))
			}
			if cfg.OnRetry != nil {
				cfg.OnRetry(attempt+1, delay, err)
			}

			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return zero, canceled(ctx, err)
			case <-timer.C:
			}
		}
	}

	return zero, veterr.WithDetails(veterr.WithCause(veterr.ErrUpstreamUnavailable, err), map[string]string{
		"attempts": strconv.Itoa(attempts),
	})
}

// calculateDelay returns a full-jitter delay: uniform in [0, min(max, base*2^attempt)).
func calculateDelay(attempt int, baseDelay, maxDelay time.Duration) time.Duration {
	if baseDelay <= 0 {
		return 0
	}
	ceiling := baseDelay
	for i := 0; i < attempt && ceiling < maxDelay; i++ {
		ceiling *= 2
	}
	if maxDelay > 0 && ceiling > maxDelay {
		ceiling = maxDelay
	}
	return rand.N(ceiling) //nolint:gosec // G404: Jitter does not require cryptographic randomness
}

// retryAfterHint returns the server-provided Retry-After carried in the
// error details, if any.
func retryAfterHint(err error) time.Duration {
	var ve *veterr.VetError
	if !errors.As(err, &ve) {
		return 0
	}
	return ParseRetryAfter(ve.Details["retry_after"])
}

func canceled(ctx context.Context, last error) error {
	cause := context.Cause(ctx)
	if last != nil {
		cause = fmt.Errorf("%w (last error: %w)", cause, last)
	}
	return veterr.WithCause(veterr.ErrCanceled, cause)
}

// IsRetryable returns true if the error should trigger a retry.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, veterr.ErrUpstreamMalformedResponse) {
		return false
	}

	if errors.Is(err, ErrRetryable) ||
		errors.Is(err, veterr.ErrUpstreamRateLimited) ||
		errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// ParseRetryAfter parses the Retry-After header value.
// Returns the duration to wait, or 0 if parsing fails.
func ParseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}

	seconds, err := strconv.Atoi(header)
	if err != nil || seconds < 0 {
		return 0
	}

	return time.Duration(seconds) * time.Second
}

// WrapRetryable wraps an error to mark it as retryable.
func WrapRetryable(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrRetryable, err)
}
