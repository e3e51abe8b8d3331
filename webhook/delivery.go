package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/dispatchops/dispatchops/observe"
)

// Transport issues webhook HTTP requests. The default implementation
// wraps http.Client; tests substitute their own.
type Transport interface {
	Do(req *http.Request) (*http.Response, error)
}

func newHTTPTransport(timeout time.Duration) Transport {
	return &http.Client{Timeout: timeout}
}

// DeliveryResult reports a single delivery outcome. Failures are carried
// here rather than returned as errors so fan-out callers can inspect each
// destination's result individually.
type DeliveryResult struct {
	WebhookID  string
	EventID    string
	Success    bool
	StatusCode int
	Attempts   int
	Error      error
}

func (d DeliveryResult) errorString() string {
	if d.Error == nil {
		return ""
	}
	return d.Error.Error()
}

// Deliver signs and POSTs a single event to the identified hook. Success
// means any 2xx response. The result is never accompanied by a panic; all
// failures, including unknown or disabled hooks, are reported in the
// DeliveryResult.
func (r *Registry) Deliver(ctx context.Context, webhookID string, event Event) DeliveryResult {
	result := DeliveryResult{WebhookID: webhookID, EventID: event.ID, Attempts: 1}

	r.mu.Lock()
	hook, ok := r.hooks[webhookID]
	r.mu.Unlock()
	if !ok {
		result.Error = ErrUnknownWebhook
		return result
	}
	if !hook.Enabled {
		result.Error = ErrDisabled
		return result
	}

	payload, err := json.Marshal(event)
	if err != nil {
		result.Error = fmt.Errorf("webhook: marshal event: %w", err)
		return result
	}

	return r.post(ctx, hook, payload, deliveryHeaders{
		eventType: event.Type,
		eventID:   event.ID,
	})
}

// DeliverWithRetry delivers with exponential backoff between attempts.
// 4xx responses short-circuit immediately since client errors are not
// transient; 5xx and network errors are retried. After exhausting
// retries the event is pushed onto the dead-letter queue.
func (r *Registry) DeliverWithRetry(ctx context.Context, webhookID string, event Event) DeliveryResult {
	var result DeliveryResult
	for attempt := 0; attempt <= r.config.MaxRetries; attempt++ {
		if attempt > 0 {
			r.config.Collector.RecordRetry("webhook")
			select {
			case <-ctx.Done():
				result.Error = ctx.Err()
				result.Attempts = attempt
				r.deadLetter(webhookID, event, result, attempt)
				return result
			case <-time.After(r.backoff.DelayWithJitter(attempt - 1)):
			}
		}

		result = r.Deliver(ctx, webhookID, event)
		result.Attempts = attempt + 1
		if result.Success {
			return result
		}
		if !retryable(result) {
			break
		}

		r.config.Logger.Debug(ctx, "delivery attempt failed",
			observe.Field{Key: "webhook_id", Value: webhookID},
			observe.Field{Key: "attempt", Value: attempt + 1},
			observe.Field{Key: "status", Value: result.StatusCode},
		)
	}

	r.deadLetter(webhookID, event, result, result.Attempts)
	return result
}

// flushBatch posts accumulated events as one request with an X-Batch
// header and an {"events": [...]} body.
func (r *Registry) flushBatch(ctx context.Context, hook Hook, events []Event) DeliveryResult {
	payload, err := json.Marshal(map[string][]Event{"events": events})
	if err != nil {
		return DeliveryResult{
			WebhookID: hook.ID,
			Attempts:  1,
			Error:     fmt.Errorf("webhook: marshal batch: %w", err),
		}
	}
	return r.post(ctx, hook, payload, deliveryHeaders{batch: len(events)})
}

type deliveryHeaders struct {
	eventType string
	eventID   string
	batch     int
}

func (r *Registry) post(ctx context.Context, hook Hook, payload []byte, hdr deliveryHeaders) DeliveryResult {
	result := DeliveryResult{WebhookID: hook.ID, EventID: hdr.eventID, Attempts: 1}

	start := r.config.Clock()
	timestampMs := start.UnixMilli()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, hook.URL, bytes.NewReader(payload))
	if err != nil {
		result.Error = fmt.Errorf("webhook: build request: %w", err)
		return result
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Webhook-ID", hook.ID)
	req.Header.Set("X-Signature", SignPayload(payload, hook.Secret, timestampMs))
	req.Header.Set("X-Timestamp", strconv.FormatInt(timestampMs, 10))
	if hdr.batch > 0 {
		req.Header.Set("X-Batch", strconv.Itoa(hdr.batch))
	} else {
		req.Header.Set("X-Event-Type", hdr.eventType)
	}
	if r.minter != nil {
		token, err := r.minter.Mint(hook.ID)
		if err != nil {
			result.Error = err
			return result
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := r.config.Transport.Do(req)
	if err != nil {
		result.Error = fmt.Errorf("webhook: post %s: %w", hook.URL, err)
		r.record(ctx, result, start)
		return result
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	result.StatusCode = resp.StatusCode
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		result.Success = true
	} else {
		result.Error = &StatusError{StatusCode: resp.StatusCode, Status: resp.Status}
	}
	r.record(ctx, result, start)
	return result
}

func (r *Registry) record(ctx context.Context, result DeliveryResult, start time.Time) {
	r.config.Collector.RecordDelivery(result.Success)
	if !result.Success {
		r.config.Logger.Debug(ctx, "delivery failed",
			observe.Field{Key: "webhook_id", Value: result.WebhookID},
			observe.Field{Key: "status", Value: result.StatusCode},
			observe.Field{Key: "elapsed", Value: r.config.Clock().Sub(start).String()},
		)
	}
}

// retryable reports whether a failed delivery should be attempted again.
func retryable(result DeliveryResult) bool {
	var statusErr *StatusError
	if errors.As(result.Error, &statusErr) {
		return statusErr.Retryable()
	}
	// Unknown and disabled hooks cannot succeed on retry.
	if errors.Is(result.Error, ErrUnknownWebhook) || errors.Is(result.Error, ErrDisabled) {
		return false
	}
	// Network errors are transient.
	return true
}
