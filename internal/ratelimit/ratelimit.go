// Package ratelimit keeps a token-bucket limiter per client key.
package ratelimit

import (
	"sync"

	"golang.org/x/time/rate"
)

// Limiter manages one rate.Limiter per key (here: client IP).
type Limiter struct {
	rps   float64
	burst int

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// New returns a Limiter allowing rps requests per second with the given
// burst per key. rps <= 0 disables limiting.
func New(rps float64, burst int) *Limiter {
	return &Limiter{
		rps:      rps,
		burst:    burst,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Allow reports whether a request for key may proceed now.
func (l *Limiter) Allow(key string) bool {
	if l == nil || l.rps <= 0 {
		return true
	}
	l.mu.Lock()
	lim, ok := l.limiters[key]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(l.rps), l.burst)
		l.limiters[key] = lim
	}
	l.mu.Unlock()
	return lim.Allow()
}
