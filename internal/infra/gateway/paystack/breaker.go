package paystack

import (
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned without calling Paystack while the breaker is open
var ErrCircuitOpen = errors.New("paystack circuit breaker is open")

// CircuitState represents the state of the circuit breaker
type CircuitState int

const (
	CircuitClosed   CircuitState = iota // Normal operation
	CircuitOpen                         // Too many failures, blocking requests
	CircuitHalfOpen                     // One trial request in flight
)

// CircuitBreaker stops calling Paystack after consecutive outages and lets a
// single trial request through once the cooldown has passed
type CircuitBreaker struct {
	maxFailures     int
	cooldownPeriod  time.Duration
	failures        int
	lastFailureTime time.Time
	trialStarted    time.Time
	state           CircuitState
	mu              sync.Mutex
	now             func() time.Time
}

// NewCircuitBreaker creates a new circuit breaker
func NewCircuitBreaker(maxFailures int, cooldownPeriod time.Duration) *CircuitBreaker {
	if maxFailures < 1 {
		maxFailures = 1
	}
	return &CircuitBreaker{
		maxFailures:    maxFailures,
		cooldownPeriod: cooldownPeriod,
		state:          CircuitClosed,
		now:            time.Now,
	}
}

// CanAttempt reports whether a request may be sent. After the cooldown the
// first caller moves the breaker to half-open and is the only one let through.
func (cb *CircuitBreaker) CanAttempt() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitClosed:
		return true
	case CircuitOpen:
		if cb.now().Sub(cb.lastFailureTime) > cb.cooldownPeriod {
			cb.state = CircuitHalfOpen
			cb.trialStarted = cb.now()
			return true
		}
		return false
	default:
		// a trial that never reported back is replaced after another cooldown
		if cb.now().Sub(cb.trialStarted) > cb.cooldownPeriod {
			cb.trialStarted = cb.now()
			return true
		}
		return false
	}
}

// RecordSuccess closes the breaker
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures = 0
	cb.state = CircuitClosed
}

// RecordFailure counts an outage. A failed half-open trial reopens at once.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++
	cb.lastFailureTime = cb.now()

	if cb.state == CircuitHalfOpen || cb.failures >= cb.maxFailures {
		cb.state = CircuitOpen
	}
}

// State returns the current state
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}
