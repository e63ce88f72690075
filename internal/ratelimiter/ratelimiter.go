// Package ratelimiter throttles background work, such as the scrubber's
// per-file hash checks, so it cannot starve foreground I/O.
package ratelimiter

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimiter is a token bucket over golang.org/x/time/rate.
//
// Each unit of work (one file checked) consumes one token. Tokens refill
// at perSecond and the bucket holds at most burst tokens, so a scrub pass
// may start with a short burst and then settles to the sustained rate.
//
// Thread safety:
// All methods are safe for concurrent use.
type RateLimiter struct {
	limiter *rate.Limiter
}

// New creates a RateLimiter.
//
// Parameters:
//   - perSecond: Sustained rate in units per second. 0 disables limiting.
//   - burst: Bucket capacity. 0 selects 1.
//
// Example:
//
//	// Check at most 50 files per second, 10 back-to-back at the start
//	limiter := ratelimiter.New(50, 10)
func New(perSecond float64, burst int) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}

	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}

	return &RateLimiter{
		limiter: rate.NewLimiter(limit, burst),
	}
}

// Unlimited reports whether the limiter never delays.
func (r *RateLimiter) Unlimited() bool {
	return r.limiter.Limit() == rate.Inf
}

// Wait blocks until a token is available or ctx is done.
//
// Returns:
//   - nil if a token was acquired
//   - ctx's error, or an error if the wait would outlast ctx's deadline
func (r *RateLimiter) Wait(ctx context.Context) error {
	return r.limiter.Wait(ctx)
}
