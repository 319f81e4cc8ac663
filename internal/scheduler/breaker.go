package scheduler

import (
	"errors"
	"sync"
)

// ErrHostCircuitOpen is returned when a host has been taken out of rotation
// after too many consecutive failures.
var ErrHostCircuitOpen = errors.New("host circuit open")

// circuitBreaker tracks consecutive failures per host and opens after the
// configured threshold. An open circuit stays open for the remainder of the
// run. Reads are concurrent; mutations take the write lock.
type circuitBreaker struct {
	threshold int

	mu       sync.RWMutex
	failures map[string]int
	open     map[string]struct{}
}

// newCircuitBreaker creates a breaker that opens after threshold
// consecutive failures on one host.
func newCircuitBreaker(threshold int) *circuitBreaker {
	return &circuitBreaker{
		threshold: threshold,
		failures:  make(map[string]int),
		open:      make(map[string]struct{}),
	}
}

// IsOpen reports whether the host has been taken out of rotation.
func (b *circuitBreaker) IsOpen(host string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()

	_, openNow := b.open[host]

	return openNow
}

// RecordFailure counts a terminal failure and reports whether it tripped
// the circuit for this host.
func (b *circuitBreaker) RecordFailure(host string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, openAlready := b.open[host]; openAlready {
		return false
	}

	b.failures[host]++
	if b.failures[host] >= b.threshold {
		b.open[host] = struct{}{}
		return true
	}

	return false
}

// RecordSuccess resets the host's consecutive failure count.
func (b *circuitBreaker) RecordSuccess(host string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.failures, host)
}
