// Package webhook delivers events to registered HTTP endpoints with HMAC
// signing, retry with exponential backoff, per-hook batching, and a
// bounded dead-letter queue.
//
// # Registration and delivery
//
//	registry := webhook.NewRegistry(webhook.RegistryConfig{MaxRetries: 3})
//	hook, err := registry.Register(webhook.Hook{
//	    URL:     "https://example.com/hooks",
//	    Events:  []string{"task.completed"},
//	    Secret:  "s3cret",
//	    Enabled: true,
//	})
//
//	results := registry.Emit(ctx, "task.completed", payload)
//
// Each delivery POSTs a JSON event with X-Webhook-ID, X-Event-Type,
// X-Signature, and X-Timestamp headers. The signature is an HMAC-SHA256
// over "{timestampMs}.{body}"; receivers check it with VerifySignature,
// which compares in constant time.
//
// # Failure handling
//
// Delivery failures are returned in DeliveryResult values, never as
// panics, so fan-out callers can inspect each destination independently.
// 4xx responses are treated as permanent and are not retried; 5xx and
// network errors retry with backoff. Events that exhaust their retries
// land in a bounded FIFO dead-letter queue, redeliverable in a single
// shot via RetryDeadLetters.
//
// # Batching
//
// With RegistryConfig.Batching enabled, emitted events accumulate per
// hook and flush as one POST carrying {"events": [...]} when the window
// elapses or MaxBatchSize is reached. Flush forces immediate delivery
// and clears the pending timer.
package webhook
