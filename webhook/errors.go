package webhook

import "errors"

var (
	// ErrInvalidURL is returned when a hook URL is not http or https.
	ErrInvalidURL = errors.New("webhook: url must be http or https")

	// ErrNoEvents is returned when a hook subscribes to no event types.
	ErrNoEvents = errors.New("webhook: event set must not be empty")

	// ErrUnknownWebhook is returned when a webhook ID is not registered.
	ErrUnknownWebhook = errors.New("webhook: unknown webhook id")

	// ErrDisabled is returned when delivering to a disabled webhook.
	ErrDisabled = errors.New("webhook: webhook is disabled")
)

// StatusError reports a non-2xx delivery response.
type StatusError struct {
	StatusCode int
	Status     string
}

// Error returns a description of the HTTP failure.
func (e *StatusError) Error() string {
	return "webhook: delivery failed with status " + e.Status
}

// Retryable reports whether the status is worth retrying. Client errors
// (4xx) are permanent; everything else is treated as transient.
func (e *StatusError) Retryable() bool {
	return e.StatusCode < 400 || e.StatusCode >= 500
}
