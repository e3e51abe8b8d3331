package resilience

import (
	"strings"
	"sync"
	"time"
)

// ExhaustedInfo describes a request whose retry budget ran out.
type ExhaustedInfo struct {
	// RequestID identifies the exhausted request.
	RequestID string

	// Attempts is the number of attempts recorded.
	Attempts int

	// Duration is the time elapsed since the first recorded attempt.
	Duration time.Duration
}

// RetryPolicyConfig configures a RetryPolicy.
type RetryPolicyConfig struct {
	// MaxRetries is the number of retries allowed after the initial attempt.
	// Default: 3
	MaxRetries int

	// RetryableErrors is a list of tokens matched against error messages by
	// substring. Empty means every error is retryable. Substring (rather
	// than exact) matching is deliberate: error messages may carry extra
	// context around a known token.
	RetryableErrors []string

	// OnExhausted is called exactly once per request id, at the moment
	// RecordAttempt first detects exhaustion.
	OnExhausted func(info ExhaustedInfo)

	// Clock supplies the current time. Default: time.Now.
	Clock func() time.Time
}

// RetryOverrides adjusts a single ShouldRetryWith decision without touching
// the policy's configuration.
type RetryOverrides struct {
	// MaxRetries overrides the configured limit when greater than zero.
	MaxRetries int

	// RetryableErrors overrides the configured token list when non-nil.
	RetryableErrors []string
}

type retryState struct {
	attempts  int
	startedAt time.Time
	notified  bool
}

// RetryPolicy decides whether attempts should be retried and tracks per
// request attempt counts. Each policy instance owns its tracked state; ids
// tracked by one policy are invisible to another.
type RetryPolicy struct {
	config RetryPolicyConfig

	mu     sync.Mutex
	states map[string]*retryState
}

// NewRetryPolicy creates a retry policy.
func NewRetryPolicy(config RetryPolicyConfig) *RetryPolicy {
	if config.MaxRetries <= 0 {
		config.MaxRetries = 3
	}
	if config.Clock == nil {
		config.Clock = time.Now
	}

	return &RetryPolicy{
		config: config,
		states: make(map[string]*retryState),
	}
}

// NewHumanRetryPolicy creates a policy tuned for human responders: five
// retries, and busy/away/do-not-disturb treated as retryable alongside
// timeouts and unavailability. Human unavailability is transient and worth
// waiting out; an explicit rejection is not.
func NewHumanRetryPolicy(config RetryPolicyConfig) *RetryPolicy {
	if config.MaxRetries <= 0 {
		config.MaxRetries = 5
	}
	if config.RetryableErrors == nil {
		config.RetryableErrors = []string{"TIMEOUT", "UNAVAILABLE", "BUSY", "AWAY", "DO_NOT_DISTURB"}
	}
	return NewRetryPolicy(config)
}

// ShouldRetry reports whether another attempt should be made after the given
// 0-indexed attempt. It is false once attempt reaches MaxRetries. When err
// is non-nil and a retryable token list is configured, the error message
// must contain one of the tokens. A nil err applies the limit check only.
func (p *RetryPolicy) ShouldRetry(attempt int, err error) bool {
	return p.ShouldRetryWith(attempt, err, RetryOverrides{})
}

// ShouldRetryWith is ShouldRetry with per-call overrides.
func (p *RetryPolicy) ShouldRetryWith(attempt int, err error, o RetryOverrides) bool {
	maxRetries := p.config.MaxRetries
	if o.MaxRetries > 0 {
		maxRetries = o.MaxRetries
	}
	if attempt >= maxRetries {
		return false
	}

	if err == nil {
		return true
	}

	tokens := p.config.RetryableErrors
	if o.RetryableErrors != nil {
		tokens = o.RetryableErrors
	}
	if len(tokens) == 0 {
		return true
	}

	msg := err.Error()
	for _, token := range tokens {
		if strings.Contains(msg, token) {
			return true
		}
	}
	return false
}

// RecordAttempt increments the attempt counter for the given request id,
// creating tracking state on first use. When the recorded attempts first
// exceed MaxRetries the OnExhausted callback fires, exactly once per id.
// Returns the updated attempt count.
func (p *RetryPolicy) RecordAttempt(id string) int {
	p.mu.Lock()

	state, ok := p.states[id]
	if !ok {
		state = &retryState{startedAt: p.config.Clock()}
		p.states[id] = state
	}
	state.attempts++

	var info *ExhaustedInfo
	if state.attempts > p.config.MaxRetries && !state.notified {
		state.notified = true
		info = &ExhaustedInfo{
			RequestID: id,
			Attempts:  state.attempts,
			Duration:  p.config.Clock().Sub(state.startedAt),
		}
	}
	attempts := state.attempts
	p.mu.Unlock()

	// Callback runs outside the lock so it may call back into the policy.
	if info != nil && p.config.OnExhausted != nil {
		p.config.OnExhausted(*info)
	}
	return attempts
}

// Attempts returns the recorded attempt count for a request id, zero if the
// id is not tracked.
func (p *RetryPolicy) Attempts(id string) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	if state, ok := p.states[id]; ok {
		return state.attempts
	}
	return 0
}

// IsExhausted reports whether the recorded attempts for id strictly exceed
// MaxRetries. The strict comparison is deliberate: ShouldRetry already stops
// the next attempt at the limit, so exhaustion means the limit was passed.
func (p *RetryPolicy) IsExhausted(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	state, ok := p.states[id]
	return ok && state.attempts > p.config.MaxRetries
}

// Reset clears tracking for a request id. Used after success or abandonment.
func (p *RetryPolicy) Reset(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.states, id)
}

// Config returns the policy configuration.
func (p *RetryPolicy) Config() RetryPolicyConfig {
	return p.config
}
