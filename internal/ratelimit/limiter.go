// internal/ratelimit/limiter.go
package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Limiter is the shared request throttle.
//
// There is exactly one limiter per run: even when N workers fetch detail
// pages concurrently, the aggregate rate never exceeds one request per
// configured interval. Workers must not sleep independently; they all
// Wait on the same limiter.
type Limiter interface {
	// Wait blocks until the next request may proceed.
	// If the context is cancelled before the limiter allows, an error is returned.
	Wait(ctx context.Context) error

	// Allow reports whether a request may proceed immediately without blocking.
	Allow() bool

	// Interval returns the configured minimum spacing between requests.
	Interval() time.Duration
}

// SharedLimiter implements Limiter with a token bucket of burst 1,
// refilled once per interval.
type SharedLimiter struct {
	limiter  *rate.Limiter
	interval time.Duration
}

// NewShared creates a limiter that releases one request per interval.
// A non-positive interval disables throttling.
func NewShared(interval time.Duration) *SharedLimiter {
	if interval <= 0 {
		return &SharedLimiter{
			limiter:  rate.NewLimiter(rate.Inf, 1),
			interval: 0,
		}
	}
	return &SharedLimiter{
		limiter:  rate.NewLimiter(rate.Every(interval), 1),
		interval: interval,
	}
}

// Wait blocks until the request can proceed according to the shared rate
func (l *SharedLimiter) Wait(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	return l.limiter.Wait(ctx)
}

// Allow checks if a request can proceed immediately without blocking
func (l *SharedLimiter) Allow() bool {
	return l.limiter.Allow()
}

// Interval returns the configured spacing between requests
func (l *SharedLimiter) Interval() time.Duration {
	return l.interval
}

// SetInterval updates the spacing between requests at runtime
func (l *SharedLimiter) SetInterval(interval time.Duration) {
	l.interval = interval
	if interval <= 0 {
		l.limiter.SetLimit(rate.Inf)
		return
	}
	l.limiter.SetLimit(rate.Every(interval))
}
