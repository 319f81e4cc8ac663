package scheduler

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// hostLimiter enforces the per-host minimum inter-request interval, plus an
// optional cooldown window applied after 429 responses.
type hostLimiter struct {
	limiter *rate.Limiter

	mu        sync.Mutex
	notBefore time.Time
}

// newHostLimiter creates a limiter allowing one request per minInterval.
func newHostLimiter(minInterval time.Duration) *hostLimiter {
	return &hostLimiter{
		limiter: rate.NewLimiter(rate.Every(minInterval), 1),
	}
}

// Wait blocks until the host may be contacted again or ctx is cancelled.
func (h *hostLimiter) Wait(ctx context.Context) error {
	h.mu.Lock()
	wait := time.Until(h.notBefore)
	h.mu.Unlock()

	if wait > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}

	return h.limiter.Wait(ctx)
}

// Cooldown pushes back the host's next allowed request, applied when the
// host answers 429.
func (h *hostLimiter) Cooldown(d time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()

	until := time.Now().Add(d)
	if until.After(h.notBefore) {
		h.notBefore = until
	}
}

// limiterSet hands out one hostLimiter per host.
type limiterSet struct {
	mu          sync.Mutex
	minInterval time.Duration
	limiters    map[string]*hostLimiter
}

// newLimiterSet creates the per-host limiter registry.
func newLimiterSet(minInterval time.Duration) *limiterSet {
	return &limiterSet{
		minInterval: minInterval,
		limiters:    make(map[string]*hostLimiter),
	}
}

// Get returns the limiter for host, creating it on first use.
func (s *limiterSet) Get(host string) *hostLimiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	limiter, ok := s.limiters[host]
	if !ok {
		limiter = newHostLimiter(s.minInterval)
		s.limiters[host] = limiter
	}

	return limiter
}
