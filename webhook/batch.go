package webhook

import (
	"context"
	"time"

	"github.com/dispatchops/dispatchops/observe"
)

// BatchConfig configures per-hook event batching.
type BatchConfig struct {
	// Enabled turns batching on. When off, Emit delivers each event
	// immediately.
	Enabled bool

	// Window is how long events accumulate before an automatic flush.
	// Default: 5 seconds
	Window time.Duration

	// MaxBatchSize flushes a batch early once this many events are
	// buffered.
	// Default: 10
	MaxBatchSize int
}

// hookBatch buffers events for one hook. Guarded by the registry lock.
type hookBatch struct {
	events []Event
	timer  *time.Timer
}

// stopTimerLocked cancels the pending flush timer if one is armed.
func (b *hookBatch) stopTimerLocked() {
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
}

// enqueue buffers an event for a hook, flushing immediately when the
// batch reaches MaxBatchSize and otherwise arming the window timer.
func (r *Registry) enqueue(webhookID string, event Event) {
	r.mu.Lock()

	batch, ok := r.batches[webhookID]
	if !ok {
		batch = &hookBatch{}
		r.batches[webhookID] = batch
	}
	batch.events = append(batch.events, event)

	if len(batch.events) >= r.config.Batching.MaxBatchSize {
		events := r.takeBatchLocked(webhookID, batch)
		r.mu.Unlock()
		r.sendBatch(context.Background(), webhookID, events)
		return
	}

	if batch.timer == nil {
		batch.timer = time.AfterFunc(r.config.Batching.Window, func() {
			r.Flush(context.Background(), webhookID)
		})
	}
	r.mu.Unlock()
}

// Flush delivers the pending batch for a hook immediately. The window
// timer is cleared first so a later fire cannot deliver the same events
// twice. Returns the zero DeliveryResult when nothing is buffered.
func (r *Registry) Flush(ctx context.Context, webhookID string) DeliveryResult {
	r.mu.Lock()
	batch, ok := r.batches[webhookID]
	if !ok || len(batch.events) == 0 {
		r.mu.Unlock()
		return DeliveryResult{WebhookID: webhookID}
	}
	events := r.takeBatchLocked(webhookID, batch)
	r.mu.Unlock()

	return r.sendBatch(ctx, webhookID, events)
}

// FlushAll drains every pending batch and returns the per-hook results.
func (r *Registry) FlushAll(ctx context.Context) []DeliveryResult {
	r.mu.Lock()
	ids := make([]string, 0, len(r.batches))
	for id, batch := range r.batches {
		if len(batch.events) > 0 {
			ids = append(ids, id)
		}
	}
	r.mu.Unlock()

	results := make([]DeliveryResult, 0, len(ids))
	for _, id := range ids {
		results = append(results, r.Flush(ctx, id))
	}
	return results
}

// takeBatchLocked removes and returns the buffered events, disarming the
// flush timer. Callers hold the registry lock.
func (r *Registry) takeBatchLocked(webhookID string, batch *hookBatch) []Event {
	batch.stopTimerLocked()
	events := batch.events
	batch.events = nil
	delete(r.batches, webhookID)
	return events
}

func (r *Registry) sendBatch(ctx context.Context, webhookID string, events []Event) DeliveryResult {
	r.mu.Lock()
	hook, ok := r.hooks[webhookID]
	r.mu.Unlock()
	if !ok {
		return DeliveryResult{WebhookID: webhookID, Attempts: 1, Error: ErrUnknownWebhook}
	}
	if !hook.Enabled {
		return DeliveryResult{WebhookID: webhookID, Attempts: 1, Error: ErrDisabled}
	}

	result := r.flushBatch(ctx, hook, events)
	if !result.Success {
		r.config.Logger.Warn(ctx, "batch delivery failed",
			observe.Field{Key: "webhook_id", Value: webhookID},
			observe.Field{Key: "events", Value: len(events)},
			observe.Field{Key: "status", Value: result.StatusCode},
		)
		for _, event := range events {
			r.deadLetter(webhookID, event, result, result.Attempts)
		}
	}
	return result
}
