package ledger_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walletvet/walletvet/internal/ledger"
)

func TestRateLimiter_Allow(t *testing.T) {
	t.Parallel()
	rl := ledger.NewRateLimiter(10, 10) // 10/sec with burst of 10

	for i := 0; i < 10; i++ {
		assert.True(t, rl.Allow("test"), "should allow request %d in burst", i)
	}

	assert.False(t, rl.Allow("test"), "should deny request after burst exhausted")
}

func TestRateLimiter_Wait(t *testing.T) {
	t.Parallel()
	rl := ledger.NewRateLimiter(100, 1)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.NoError(t, rl.Wait(ctx, ledger.UpstreamFacts))

	start := time.Now()
	require.NoError(t, rl.Wait(ctx, ledger.UpstreamFacts))

	// Should have waited approximately 10ms (1/100 second)
	assert.GreaterOrEqual(t, time.Since(start), 5*time.Millisecond)
}

func TestRateLimiter_SeparateUpstreams(t *testing.T) {
	t.Parallel()
	rl := ledger.NewRateLimiter(10, 2)

	assert.True(t, rl.Allow(ledger.UpstreamFacts))
	assert.True(t, rl.Allow(ledger.UpstreamFacts))
	assert.False(t, rl.Allow(ledger.UpstreamFacts))

	// risk is independent
	assert.True(t, rl.Allow(ledger.UpstreamRisk))
	assert.True(t, rl.Allow(ledger.UpstreamRisk))
}

func TestRateLimiter_SetRate(t *testing.T) {
	t.Parallel()
	rl := ledger.NewRateLimiter(1000, 1)
	rl.SetRate(ledger.UpstreamRisk, 1)

	require.NoError(t, rl.Wait(context.Background(), ledger.UpstreamRisk))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	require.Error(t, rl.Wait(ctx, ledger.UpstreamRisk), "1/s limiter cannot serve a second token within 50ms")
}

func TestRateLimiter_ContextCancellation(t *testing.T) {
	t.Parallel()
	rl := ledger.NewRateLimiter(1, 1)

	require.NoError(t, rl.Wait(context.Background(), "test"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Error(t, rl.Wait(ctx, "test"))
}

func TestRateLimiter_Concurrent(t *testing.T) {
	t.Parallel()
	rl := ledger.NewRateLimiter(100, 100)

	var wg sync.WaitGroup
	successes := make(chan bool, 200)

	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			successes <- rl.Allow("test")
		}()
	}

	wg.Wait()
	close(successes)

	count := 0
	for s := range successes {
		if s {
			count++
		}
	}

	// Should have allowed approximately 100 (the burst size)
	assert.GreaterOrEqual(t, count, 90)
	assert.LessOrEqual(t, count, 110)
}

func TestNoLimit(t *testing.T) {
	t.Parallel()
	var l ledger.Limiter = ledger.NoLimit{}
	require.NoError(t, l.Wait(context.Background(), "any"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, l.Wait(ctx, "any"), context.Canceled)
}
