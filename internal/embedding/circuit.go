package embedding

import (
	"sync"
	"time"
)

// breakerState tracks one provider's health.
type breakerState int

const (
	// stateClosed passes requests through.
	stateClosed breakerState = iota
	// stateOpen skips the provider entirely.
	stateOpen
	// stateHalfOpen lets probe requests test recovery.
	stateHalfOpen
)

func (s breakerState) String() string {
	switch s {
	case stateClosed:
		return "closed"
	case stateOpen:
		return "open"
	case stateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Breaker defaults: five straight failures open the circuit, two probe
// successes close it again, probes start after the cooldown.
const (
	breakerFailureThreshold = 5
	breakerSuccessThreshold = 2
	breakerCooldown         = 30 * time.Second
)

// breaker is a per-provider circuit breaker. An open breaker removes a
// flapping provider from consideration so requests stop paying its
// timeout before moving down the try-order.
type breaker struct {
	mu sync.Mutex

	state       breakerState
	failures    int
	successes   int
	lastFailure time.Time

	failureThreshold int
	successThreshold int
	cooldown         time.Duration
}

func newBreaker() *breaker {
	return &breaker{
		state:            stateClosed,
		failureThreshold: breakerFailureThreshold,
		successThreshold: breakerSuccessThreshold,
		cooldown:         breakerCooldown,
	}
}

// allow reports whether a request may go to the provider, transitioning
// open breakers to half-open once the cooldown has passed.
func (b *breaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case stateOpen:
		if time.Since(b.lastFailure) > b.cooldown {
			b.state = stateHalfOpen
			b.successes = 0
			return true
		}
		return false
	default:
		return true
	}
}

// success records a completed call.
func (b *breaker) success() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case stateHalfOpen:
		b.successes++
		if b.successes >= b.successThreshold {
			b.state = stateClosed
			b.failures = 0
			b.successes = 0
		}
	case stateClosed:
		b.failures = 0
	}
}

// failure records a failed call, opening the circuit at the threshold.
// A failed half-open probe reopens immediately.
func (b *breaker) failure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	b.lastFailure = time.Now()

	switch b.state {
	case stateClosed:
		if b.failures >= b.failureThreshold {
			b.state = stateOpen
		}
	case stateHalfOpen:
		b.state = stateOpen
		b.successes = 0
	}
}

// current returns the state for logging.
func (b *breaker) current() breakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
