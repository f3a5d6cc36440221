package tika

import (
	"sync"
	"time"

	"github.com/parchment-labs/extractd/internal/core/domain"
)

// Breaker state names, exposed for observability.
const (
	StateClosed   = "closed"
	StateOpen     = "open"
	StateHalfOpen = "half-open"
)

// Circuit breaker defaults.
const (
	DefaultFailureThreshold = 5
	DefaultCooldown         = 30 * time.Second
	maxCooldown             = 240 * time.Second
)

// CircuitBreaker protects the extraction service from being hammered
// while it is down.
//
// Closed: calls pass through; consecutive connection/timeout failures
// count toward the threshold. Open: calls fail fast with
// domain.ErrCircuitOpen for the cool-down period. Half-open: a single
// probe call is allowed; success closes the circuit, failure re-opens
// it with a doubled (capped) cool-down.
type CircuitBreaker struct {
	mu        sync.Mutex
	state     string
	failures  int
	threshold int

	cooldown     time.Duration
	baseCooldown time.Duration
	openedAt     time.Time
	probing      bool

	// now is injectable for tests.
	now func() time.Time
}

// NewCircuitBreaker creates a closed breaker. Zero values select the
// defaults.
func NewCircuitBreaker(threshold int, cooldown time.Duration) *CircuitBreaker {
	if threshold <= 0 {
		threshold = DefaultFailureThreshold
	}
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &CircuitBreaker{
		state:        StateClosed,
		threshold:    threshold,
		cooldown:     cooldown,
		baseCooldown: cooldown,
		now:          time.Now,
	}
}

// Allow reports whether a call may proceed. In the open state it
// returns domain.ErrCircuitOpen until the cool-down elapses, then
// admits exactly one probe.
func (b *CircuitBreaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return nil
	case StateOpen:
		if b.now().Sub(b.openedAt) < b.cooldown {
			return domain.ErrCircuitOpen
		}
		b.state = StateHalfOpen
		b.probing = true
		return nil
	case StateHalfOpen:
		if b.probing {
			return domain.ErrCircuitOpen
		}
		b.probing = true
		return nil
	}
	return nil
}

// RecordSuccess closes the circuit and resets the failure counter and
// cool-down.
func (b *CircuitBreaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = StateClosed
	b.failures = 0
	b.probing = false
	b.cooldown = b.baseCooldown
}

// ReleaseProbe frees the half-open probe slot after a call that says
// nothing about the service's health, such as an unprocessable
// document. State, counters and cool-down are untouched; the next
// call may probe.
func (b *CircuitBreaker) ReleaseProbe() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.probing = false
}

// RecordFailure counts a connection/timeout failure. Unprocessable
// documents must not be recorded here: they say nothing about the
// service's health.
func (b *CircuitBreaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateHalfOpen:
		// Failed probe: re-open with a doubled, capped cool-down.
		b.cooldown *= 2
		if b.cooldown > maxCooldown {
			b.cooldown = maxCooldown
		}
		b.open()
	case StateClosed:
		b.failures++
		if b.failures >= b.threshold {
			b.open()
		}
	}
}

// open transitions to the open state. Callers hold mu.
func (b *CircuitBreaker) open() {
	b.state = StateOpen
	b.openedAt = b.now()
	b.probing = false
	b.failures = 0
}

// State returns the current breaker state name.
func (b *CircuitBreaker) State() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Cooldown returns the remaining time before an open circuit admits a
// probe, or zero in any other state.
func (b *CircuitBreaker) Cooldown() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != StateOpen {
		return 0
	}
	remaining := b.cooldown - b.now().Sub(b.openedAt)
	if remaining < 0 {
		return 0
	}
	return remaining
}
