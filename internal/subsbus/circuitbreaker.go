package subsbus

import (
	"sync"
	"time"

	"github.com/fraiseql/fraiseql-engine/internal/ferr"
)

// BreakerState is one of Closed, Open, HalfOpen.
type BreakerState int

const (
	Closed BreakerState = iota
	Open
	HalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// CircuitBreaker guards an upstream publisher that may fail: it opens
// after FailureThreshold consecutive failures, stays Open for
// OpenTimeout, then allows exactly one probe call through in HalfOpen —
// success closes it, failure reopens it.
type CircuitBreaker struct {
	mu               sync.Mutex
	state            BreakerState
	failureThreshold int
	openTimeout      time.Duration
	consecutiveFails int
	openedAt         time.Time
	probeInFlight    bool
}

// NewCircuitBreaker builds a breaker with the given failure threshold and
// open-state timeout.
func NewCircuitBreaker(failureThreshold int, openTimeout time.Duration) *CircuitBreaker {
	return &CircuitBreaker{failureThreshold: failureThreshold, openTimeout: openTimeout, state: Closed}
}

// State returns the breaker's current state.
func (b *CircuitBreaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Allow reports whether a call may proceed now, transitioning Open ->
// HalfOpen once the timeout elapses and reserving the single probe slot.
func (b *CircuitBreaker) Allow(now time.Time) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Closed:
		return true, nil
	case Open:
		if now.Sub(b.openedAt) < b.openTimeout {
			return false, ferr.Validation("circuit breaker open")
		}
		b.state = HalfOpen
		b.probeInFlight = true
		return true, nil
	case HalfOpen:
		if b.probeInFlight {
			return false, ferr.Validation("circuit breaker half-open probe in flight")
		}
		b.probeInFlight = true
		return true, nil
	default:
		return false, ferr.Validation("circuit breaker unknown state")
	}
}

// RecordSuccess reports a successful call: in HalfOpen this closes the
// breaker and resets the failure count; in Closed it resets the count.
func (b *CircuitBreaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.consecutiveFails = 0
	b.probeInFlight = false
	b.state = Closed
}

// RecordFailure reports a failed call: in HalfOpen it reopens the
// breaker immediately; in Closed it counts toward FailureThreshold.
func (b *CircuitBreaker) RecordFailure(now time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.probeInFlight = false

	if b.state == HalfOpen {
		b.state = Open
		b.openedAt = now
		b.consecutiveFails = b.failureThreshold
		return
	}

	b.consecutiveFails++
	if b.consecutiveFails >= b.failureThreshold {
		b.state = Open
		b.openedAt = now
	}
}
