package cache

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Limiter bounds concurrent requests to a single upstream provider. It is
// shared process-wide like the cache, so simultaneous top-level requests
// stay within a provider's rate limit collectively.
type Limiter struct {
	sem *semaphore.Weighted
}

// NewLimiter creates a limiter allowing at most n concurrent acquisitions.
func NewLimiter(n int64) *Limiter {
	return &Limiter{sem: semaphore.NewWeighted(n)}
}

// Acquire blocks until a slot is available or the context is done.
func (l *Limiter) Acquire(ctx context.Context) error {
	return l.sem.Acquire(ctx, 1)
}

// Release returns a slot.
func (l *Limiter) Release() {
	l.sem.Release(1)
}
