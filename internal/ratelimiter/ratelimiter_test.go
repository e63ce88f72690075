package ratelimiter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name      string
		perSecond float64
		burst     int
		unlimited bool
	}{
		{name: "standard rate", perSecond: 100, burst: 20},
		{name: "fractional rate", perSecond: 0.5, burst: 1},
		{name: "zero burst", perSecond: 10, burst: 0},
		{name: "unlimited", perSecond: 0, burst: 0, unlimited: true},
		{name: "negative rate", perSecond: -1, burst: 5, unlimited: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limiter := New(tt.perSecond, tt.burst)
			require.NotNil(t, limiter)
			assert.Equal(t, tt.unlimited, limiter.Unlimited())
		})
	}
}

func TestWaitEnforcesBurst(t *testing.T) {
	limiter := New(10, 5)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 5; i++ {
		require.NoError(t, limiter.Wait(ctx), "request %d is within the burst", i)
	}
	assert.Less(t, time.Since(start), 50*time.Millisecond, "burst should not wait")

	// 10/s refills one token every 100ms.
	start = time.Now()
	require.NoError(t, limiter.Wait(ctx))
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
}

func TestUnlimitedNeverBlocks(t *testing.T) {
	limiter := New(0, 0)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	for i := 0; i < 1000; i++ {
		require.NoError(t, limiter.Wait(ctx))
	}
}

func TestWaitThrottles(t *testing.T) {
	limiter := New(20, 1)
	ctx := context.Background()

	require.NoError(t, limiter.Wait(ctx))

	start := time.Now()
	require.NoError(t, limiter.Wait(ctx))
	require.NoError(t, limiter.Wait(ctx))

	// Two more tokens at 20/s take about 100ms.
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
}

func TestWaitHonoursCancellation(t *testing.T) {
	limiter := New(0.1, 1)
	require.NoError(t, limiter.Wait(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Error(t, limiter.Wait(ctx))
}
