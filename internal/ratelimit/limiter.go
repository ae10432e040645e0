// Package ratelimit throttles snapshot reads and budgets drift scans per tenant.
package ratelimit

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/time/rate"
)

// ReadLimiter rate-limits document reads with one token bucket per snapshot root,
// so a slow network share backing one side does not starve the other.
type ReadLimiter struct {
	perSecond float64
	burst     int

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewReadLimiter returns a limiter allowing perSecond reads per root.
// A non-positive rate disables limiting and returns nil; a nil *ReadLimiter never blocks.
func NewReadLimiter(perSecond float64, burst int) *ReadLimiter {
	if perSecond <= 0 {
		return nil
	}
	if burst < 1 {
		burst = int(perSecond)
		if burst < 1 {
			burst = 1
		}
	}
	return &ReadLimiter{
		perSecond: perSecond,
		burst:     burst,
		limiters:  make(map[string]*rate.Limiter),
	}
}

// Wait blocks until a read token is available for root, or ctx is cancelled.
func (l *ReadLimiter) Wait(ctx context.Context, root string) error {
	if l == nil {
		return nil
	}
	if err := l.limiter(root).Wait(ctx); err != nil {
		return fmt.Errorf("rate limit %s: %w", root, err)
	}
	return nil
}

func (l *ReadLimiter) limiter(root string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	lim, ok := l.limiters[root]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(l.perSecond), l.burst)
		l.limiters[root] = lim
	}
	return lim
}
