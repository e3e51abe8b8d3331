// Package resilience provides the retry, circuit breaking, and deadline
// tracking primitives used to dispatch work to slow, unreliable responders.
//
// Unlike machine-scale retry stacks measured in milliseconds, the human-tuned
// constructors in this package default to minutes-to-hours of patience: a
// person who is busy or away is usually worth waiting out, while an explicit
// rejection is not.
//
// # Components
//
//   - Backoff: pure attempt-number-to-delay schedule with jitter.
//
//   - RetryPolicy: decides whether an attempt should be retried and tracks
//     per-request attempt counts, with an exhaustion callback.
//
//   - Breaker: a three-state circuit breaker (closed, open, half-open) with a
//     bounded probe budget while half-open.
//
//   - SLATracker: per-request deadline registry with a background sweep that
//     surfaces warnings and violations even when nobody polls.
//
//   - Execute: composes all of the above around an arbitrary operation.
//
// # Usage
//
//	backoff := resilience.NewHumanBackoff(resilience.BackoffConfig{})
//	breaker := resilience.NewBreaker(resilience.BreakerConfig{
//	    FailureThreshold: 3,
//	    ResetTimeout:     30 * time.Minute,
//	})
//	sla := resilience.NewSLATracker(resilience.SLAConfig{
//	    Deadline: 2 * time.Hour,
//	})
//	defer sla.Stop()
//
//	result, err := resilience.Execute(ctx, resilience.ExecConfig[string]{
//	    MaxRetries: 5,
//	    Backoff:    backoff,
//	    Breaker:    breaker,
//	    SLA:        sla,
//	    RequestID:  "task-42",
//	}, func(ctx context.Context) (string, error) {
//	    return askReviewer(ctx)
//	})
//
// Failure causes stay distinguishable: errors.Is(err, ErrCircuitOpen)
// identifies a breaker rejection, errors.As against *SLAViolationError a
// missed deadline, and errors.As against *RetryError exhausted attempts.
package resilience
