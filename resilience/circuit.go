package resilience

import (
	"sync"
	"time"
)

// State represents the circuit breaker state.
type State int

const (
	// StateClosed means the circuit is operating normally.
	StateClosed State = iota
	// StateOpen means the circuit is blocking all requests.
	StateOpen
	// StateHalfOpen means the circuit is probing for recovery.
	StateHalfOpen
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// BreakerConfig configures a Breaker.
type BreakerConfig struct {
	// FailureThreshold is the number of failures before opening.
	// Default: 5
	FailureThreshold int

	// ResetTimeout is how long an open circuit waits before probing.
	// Default: 30 seconds
	ResetTimeout time.Duration

	// HalfOpenMaxAttempts bounds probe attempts while half-open, so a flood
	// of retries cannot immediately re-trigger failures while the target is
	// still unavailable.
	// Default: 1
	HalfOpenMaxAttempts int

	// OnStateChange is called when the circuit state changes.
	OnStateChange func(from, to State)

	// Clock supplies the current time, making transitions deterministic
	// under simulated time. Default: time.Now.
	Clock func() time.Time
}

// Breaker is a three-state circuit breaker for a target that may become
// systemically unavailable. One breaker may guard a single target or be
// shared across many; that is the caller's choice.
//
// The open-to-half-open transition is evaluated lazily on state reads based
// on elapsed time, never by a background timer.
type Breaker struct {
	config BreakerConfig

	mu               sync.Mutex
	state            State
	failures         int
	successes        int
	lastStateChange  time.Time
	halfOpenAttempts int
	lastFailure      time.Time
	lastSuccess      time.Time
}

// BreakerMetrics is a snapshot of breaker counters.
type BreakerMetrics struct {
	State            State
	Failures         int
	Successes        int
	LastStateChange  time.Time
	HalfOpenAttempts int
	LastFailure      time.Time
	LastSuccess      time.Time
}

// NewBreaker creates a circuit breaker in the closed state.
func NewBreaker(config BreakerConfig) *Breaker {
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = 5
	}
	if config.ResetTimeout <= 0 {
		config.ResetTimeout = 30 * time.Second
	}
	if config.HalfOpenMaxAttempts <= 0 {
		config.HalfOpenMaxAttempts = 1
	}
	if config.Clock == nil {
		config.Clock = time.Now
	}

	return &Breaker{
		config:          config,
		state:           StateClosed,
		lastStateChange: config.Clock(),
	}
}

// State returns the current state, transitioning open to half-open when the
// reset timeout has elapsed.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.currentStateLocked()
}

// IsOpen reports whether the breaker is currently blocking requests.
func (b *Breaker) IsOpen() bool {
	return b.State() == StateOpen
}

// Overwhelmed is a domain alias for IsOpen: the guarded responders cannot
// absorb more work.
func (b *Breaker) Overwhelmed() bool {
	return b.IsOpen()
}

// Check returns ErrCircuitOpen when the breaker is open, nil otherwise.
func (b *Breaker) Check() error {
	if b.IsOpen() {
		return ErrCircuitOpen
	}
	return nil
}

// CanAttempt reports whether a request may proceed: true when closed, or
// half-open with probe budget remaining. Open always refuses.
func (b *Breaker) CanAttempt() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.currentStateLocked() {
	case StateClosed:
		return true
	case StateHalfOpen:
		return b.halfOpenAttempts < b.config.HalfOpenMaxAttempts
	default:
		return false
	}
}

// RecordAttempt consumes one probe slot while half-open. Outside half-open
// it is a no-op.
func (b *Breaker) RecordAttempt() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.currentStateLocked() == StateHalfOpen {
		b.halfOpenAttempts++
	}
}

// RecordFailure counts a failure. At FailureThreshold consecutive failures a
// closed circuit opens; any failure while half-open re-opens immediately.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	b.lastFailure = b.config.Clock()

	switch b.currentStateLocked() {
	case StateClosed:
		if b.failures >= b.config.FailureThreshold {
			b.setStateLocked(StateOpen)
		}
	case StateHalfOpen:
		// Probe failed: no half-open grace.
		b.setStateLocked(StateOpen)
	}
}

// RecordSuccess counts a success. While half-open a single success closes
// the circuit and resets the failure counter.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.successes++
	b.lastSuccess = b.config.Clock()

	if b.currentStateLocked() == StateHalfOpen {
		b.failures = 0
		b.setStateLocked(StateClosed)
	}
}

// FailureRate returns failures/(failures+successes), zero with no data.
func (b *Breaker) FailureRate() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	total := b.failures + b.successes
	if total == 0 {
		return 0
	}
	return float64(b.failures) / float64(total)
}

// Metrics returns a snapshot of the breaker counters.
func (b *Breaker) Metrics() BreakerMetrics {
	b.mu.Lock()
	defer b.mu.Unlock()

	return BreakerMetrics{
		State:            b.currentStateLocked(),
		Failures:         b.failures,
		Successes:        b.successes,
		LastStateChange:  b.lastStateChange,
		HalfOpenAttempts: b.halfOpenAttempts,
		LastFailure:      b.lastFailure,
		LastSuccess:      b.lastSuccess,
	}
}

// Reset force-closes the breaker and zeroes all counters.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	oldState := b.state
	b.state = StateClosed
	b.failures = 0
	b.successes = 0
	b.halfOpenAttempts = 0
	b.lastStateChange = b.config.Clock()

	if oldState != StateClosed && b.config.OnStateChange != nil {
		b.config.OnStateChange(oldState, StateClosed)
	}
}

func (b *Breaker) currentStateLocked() State {
	if b.state == StateOpen && b.config.Clock().Sub(b.lastStateChange) >= b.config.ResetTimeout {
		b.state = StateHalfOpen
		b.halfOpenAttempts = 0
		b.lastStateChange = b.config.Clock()
		if b.config.OnStateChange != nil {
			b.config.OnStateChange(StateOpen, StateHalfOpen)
		}
	}
	return b.state
}

func (b *Breaker) setStateLocked(state State) {
	if b.state == state {
		return
	}
	from := b.state
	b.state = state
	b.lastStateChange = b.config.Clock()
	if state == StateHalfOpen {
		b.halfOpenAttempts = 0
	}
	if b.config.OnStateChange != nil {
		b.config.OnStateChange(from, state)
	}
}
