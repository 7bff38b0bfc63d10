package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	veterr "github.com/walletvet/walletvet/pkg/errors"
)

func TestCalculateDelay_FullJitterBounds(t *testing.T) {
	t.Parallel()
	base := 500 * time.Millisecond
	maxDelay := 4 * time.Second

	ceilings := []time.Duration{
		500 * time.Millisecond,
		time.Second,
		2 * time.Second,
		4 * time.Second,
		4 * time.Second,
		4 * time.Second,
	}

	for attempt, ceiling := range ceilings {
		for range 200 {
			d := calculateDelay(attempt, base, maxDelay)
			assert.GreaterOrEqual(t, d, time.Duration(0))
			assert.Less(t, d, ceiling, "attempt %d", attempt)
		}
	}
}

func TestCalculateDelay_ZeroBase(t *testing.T) {
	t.Parallel()
	assert.Equal(t, time.Duration(0), calculateDelay(3, 0, time.Second))
}

func TestRetryAfterHint(t *testing.T) {
	t.Parallel()
	err := veterr.WithDetails(veterr.ErrUpstreamRateLimited, map[string]string{"retry_after": "2"})
	assert.Equal(t, 2*time.Second, retryAfterHint(err))
	assert.Equal(t, time.Duration(0), retryAfterHint(veterr.ErrUpstreamRateLimited))
	assert.Equal(t, time.Duration(0), retryAfterHint(nil))
}
