// Package ratelimit throttles the credential endpoints per client key. It
// is an injected component with an explicit Reset so tests get a fresh
// instance per run instead of sharing module-level state.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter keeps one token bucket per key: burst of limit hits, refilling
// one hit per period.
type Limiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rate     rate.Limit
	burst    int

	now func() time.Time
}

// New allows limit hits per key per period.
func New(limit int, period time.Duration) *Limiter {
	return &Limiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     rate.Every(period),
		burst:    limit,
		now:      time.Now,
	}
}

// Allow records a hit for key and reports whether it is within the limit.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	lim, ok := l.limiters[key]
	if !ok {
		lim = rate.NewLimiter(l.rate, l.burst)
		l.limiters[key] = lim
	}
	l.mu.Unlock()

	return lim.AllowN(l.now(), 1)
}

// Reset drops all buckets.
func (l *Limiter) Reset() {
	l.mu.Lock()
	l.limiters = make(map[string]*rate.Limiter)
	l.mu.Unlock()
}
