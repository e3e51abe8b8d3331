package resilience

import (
	"context"
	"time"
)

// Escalation describes an exhausted execution handed to recovery.
type Escalation struct {
	// RequestID is the id supplied in ExecConfig, if any.
	RequestID string

	// Attempts is the number of attempts made.
	Attempts int

	// LastErr is the error from the final attempt.
	LastErr error

	// TotalDuration is the wall time spent across all attempts and sleeps.
	TotalDuration time.Duration
}

// ExecConfig configures one Execute call.
type ExecConfig[T any] struct {
	// MaxRetries is the number of retries after the initial attempt.
	// Default: 3
	MaxRetries int

	// Backoff supplies inter-attempt delays. Default: NewBackoff defaults.
	Backoff *Backoff

	// Breaker, when set, is consulted before the first attempt and records
	// every outcome.
	Breaker *Breaker

	// SLA and RequestID, when both set, fail the execution fast with a
	// *SLAViolationError once the request's deadline passes. The check runs
	// before every attempt, substituting for preemptive cancellation.
	SLA       *SLATracker
	RequestID string

	// OnEscalate is called once when all attempts are exhausted.
	OnEscalate func(ctx context.Context, esc Escalation)

	// Recover, when set, supplies the result after exhaustion instead of a
	// *RetryError. It runs after OnEscalate.
	Recover func(ctx context.Context, esc Escalation) (T, error)
}

// Execute runs op with retries, composing circuit breaking, SLA deadline
// checks, and backoff sleeps around it.
//
// Per-attempt errors are local and silent; only the last one surfaces,
// wrapped in *RetryError. A breaker rejection (ErrCircuitOpen) or missed
// deadline (*SLAViolationError) short-circuits before any attempt, so those
// never wrap an operation error.
func Execute[T any](ctx context.Context, config ExecConfig[T], op func(context.Context) (T, error)) (T, error) {
	var zero T

	if config.MaxRetries <= 0 {
		config.MaxRetries = 3
	}
	if config.Backoff == nil {
		config.Backoff = NewBackoff(BackoffConfig{})
	}

	if config.Breaker != nil {
		if err := config.Breaker.Check(); err != nil {
			return zero, err
		}
	}

	start := time.Now()
	var lastErr error
	attempts := 0

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		if config.SLA != nil && config.RequestID != "" {
			violated, err := config.SLA.IsViolated(config.RequestID)
			if err == nil && violated {
				deadline, _ := config.SLA.Deadline(config.RequestID)
				return zero, &SLAViolationError{RequestID: config.RequestID, Deadline: deadline}
			}
		}

		attempts++
		result, err := op(ctx)
		if err == nil {
			if config.Breaker != nil {
				config.Breaker.RecordSuccess()
			}
			return result, nil
		}

		if config.Breaker != nil {
			config.Breaker.RecordFailure()
		}
		lastErr = err

		if attempt >= config.MaxRetries {
			break
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(config.Backoff.DelayWithJitter(attempt)):
		}
	}

	esc := Escalation{
		RequestID:     config.RequestID,
		Attempts:      attempts,
		LastErr:       lastErr,
		TotalDuration: time.Since(start),
	}
	if config.OnEscalate != nil {
		config.OnEscalate(ctx, esc)
	}
	if config.Recover != nil {
		return config.Recover(ctx, esc)
	}
	return zero, &RetryError{Attempts: attempts, LastErr: lastErr}
}
