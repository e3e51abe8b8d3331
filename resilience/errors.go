package resilience

import (
	"errors"
	"fmt"
	"time"
)

// ErrCircuitOpen is returned when the circuit breaker is open.
var ErrCircuitOpen = errors.New("resilience: circuit breaker is open")

// ErrUnknownRequest is returned when a request id is not tracked.
var ErrUnknownRequest = errors.New("resilience: unknown request id")

// RetryError is returned when all retry attempts are exhausted. It carries
// the attempt count and the last underlying error so callers can decide
// whether to escalate.
type RetryError struct {
	// Attempts is the total number of attempts made.
	Attempts int

	// LastErr is the error from the final attempt.
	LastErr error
}

func (e *RetryError) Error() string {
	return fmt.Sprintf("resilience: %d attempts exhausted: %v", e.Attempts, e.LastErr)
}

func (e *RetryError) Unwrap() error {
	return e.LastErr
}

// SLAViolationError is returned when a request's deadline has passed before
// an attempt could be made. It should generally not be retried by an outer
// layer: the deadline is already missed.
type SLAViolationError struct {
	// RequestID identifies the tracked request.
	RequestID string

	// Deadline is the absolute deadline that was missed.
	Deadline time.Time
}

func (e *SLAViolationError) Error() string {
	return fmt.Sprintf("resilience: SLA violated for request %q (deadline %s)", e.RequestID, e.Deadline.Format(time.RFC3339))
}
