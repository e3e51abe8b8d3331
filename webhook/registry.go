package webhook

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dispatchops/dispatchops/observe"
	"github.com/dispatchops/dispatchops/resilience"
)

// Hook is a registered webhook destination.
type Hook struct {
	// ID identifies the hook. Generated when left empty at registration.
	ID string

	// URL is the delivery endpoint. Must be http or https.
	URL string

	// Events are the event types the hook subscribes to. Must be non-empty.
	Events []string

	// Secret signs delivery payloads.
	Secret string

	// Enabled gates delivery. Disabled hooks are skipped by Emit.
	Enabled bool

	// Description is free-form operator text.
	Description string

	// Metadata carries arbitrary key/value annotations.
	Metadata map[string]string
}

// Subscribes reports whether the hook listens for the given event type.
func (h Hook) Subscribes(eventType string) bool {
	for _, e := range h.Events {
		if e == eventType {
			return true
		}
	}
	return false
}

// Event is the unit of webhook delivery.
type Event struct {
	ID        string            `json:"id"`
	Type      string            `json:"type"`
	Timestamp time.Time         `json:"timestamp"`
	Data      any               `json:"data"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// RegistryConfig configures a Registry.
type RegistryConfig struct {
	// MaxRetries bounds delivery attempts beyond the first.
	// Default: 3
	MaxRetries int

	// Backoff spaces retry attempts. Defaults to resilience.NewBackoff
	// with 1s base delay.
	Backoff *resilience.Backoff

	// Timeout bounds each HTTP request.
	// Default: 10 seconds
	Timeout time.Duration

	// MaxDeadLetterQueueSize bounds the dead-letter queue. Oldest items
	// are evicted on overflow.
	// Default: 100
	MaxDeadLetterQueueSize int

	// Batching accumulates events per hook instead of delivering each
	// one immediately.
	Batching BatchConfig

	// Auth optionally attaches bearer tokens to deliveries.
	Auth AuthConfig

	// Transport issues HTTP requests. Defaults to an http.Client with
	// the configured Timeout.
	Transport Transport

	// Logger receives delivery diagnostics. Defaults to a noop logger.
	Logger observe.Logger

	// Collector receives delivery and dead-letter counters. Optional.
	Collector *observe.Collector

	// Clock overrides time.Now for tests.
	Clock func() time.Time
}

// Registry manages webhook registration, delivery, batching, and the
// dead-letter queue.
type Registry struct {
	config  RegistryConfig
	backoff *resilience.Backoff
	minter  *tokenMinter

	mu      sync.Mutex
	hooks   map[string]Hook
	dlq     *deadLetterQueue
	batches map[string]*hookBatch
}

// NewRegistry creates a webhook registry.
func NewRegistry(config RegistryConfig) *Registry {
	// Apply defaults
	if config.MaxRetries <= 0 {
		config.MaxRetries = 3
	}
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	if config.MaxDeadLetterQueueSize <= 0 {
		config.MaxDeadLetterQueueSize = 100
	}
	if config.Batching.Enabled {
		if config.Batching.Window <= 0 {
			config.Batching.Window = 5 * time.Second
		}
		if config.Batching.MaxBatchSize <= 0 {
			config.Batching.MaxBatchSize = 10
		}
	}
	if config.Transport == nil {
		config.Transport = newHTTPTransport(config.Timeout)
	}
	if config.Logger == nil {
		config.Logger = observe.NewNoopLogger()
	}
	if config.Clock == nil {
		config.Clock = time.Now
	}
	if config.Backoff == nil {
		config.Backoff = resilience.NewBackoff(resilience.BackoffConfig{
			BaseDelay: time.Second,
		})
	}

	r := &Registry{
		config:  config,
		backoff: config.Backoff,
		hooks:   make(map[string]Hook),
		dlq:     newDeadLetterQueue(config.MaxDeadLetterQueueSize),
		batches: make(map[string]*hookBatch),
	}
	if config.Auth.Enabled {
		r.minter = newTokenMinter(config.Auth, config.Clock)
	}
	return r
}

// Register validates and stores a hook, generating an ID when absent.
// Returns the stored hook.
func (r *Registry) Register(hook Hook) (Hook, error) {
	parsed, err := url.Parse(hook.URL)
	if err != nil {
		return Hook{}, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return Hook{}, fmt.Errorf("%w: got %q", ErrInvalidURL, parsed.Scheme)
	}
	if len(hook.Events) == 0 {
		return Hook{}, ErrNoEvents
	}
	if hook.ID == "" {
		hook.ID = uuid.NewString()
	}

	r.mu.Lock()
	r.hooks[hook.ID] = hook
	r.mu.Unlock()

	return hook, nil
}

// Unregister removes a hook. Returns false if the ID was not registered.
// Any pending batch for the hook is discarded.
func (r *Registry) Unregister(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.hooks[id]; !ok {
		return false
	}
	delete(r.hooks, id)
	if batch, ok := r.batches[id]; ok {
		batch.stopTimerLocked()
		delete(r.batches, id)
	}
	return true
}

// Get returns a registered hook by ID.
func (r *Registry) Get(id string) (Hook, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	hook, ok := r.hooks[id]
	return hook, ok
}

// Hooks returns all registered hooks.
func (r *Registry) Hooks() []Hook {
	r.mu.Lock()
	defer r.mu.Unlock()

	hooks := make([]Hook, 0, len(r.hooks))
	for _, h := range r.hooks {
		hooks = append(hooks, h)
	}
	return hooks
}

// SetEnabled toggles delivery for a hook.
func (r *Registry) SetEnabled(id string, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	hook, ok := r.hooks[id]
	if !ok {
		return ErrUnknownWebhook
	}
	hook.Enabled = enabled
	r.hooks[id] = hook
	return nil
}

// NewEvent builds an event of the given type with a generated ID and the
// registry's current time.
func (r *Registry) NewEvent(eventType string, data any) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: r.config.Clock(),
		Data:      data,
	}
}

// Emit fans an event out to every enabled hook subscribed to its type.
// Deliveries run concurrently and the per-hook results are returned in
// no particular order. With batching enabled the event is queued instead
// and Emit returns no results; batches flush when the window elapses or
// MaxBatchSize is reached.
func (r *Registry) Emit(ctx context.Context, eventType string, data any) []DeliveryResult {
	event := r.NewEvent(eventType, data)

	r.mu.Lock()
	targets := make([]Hook, 0, len(r.hooks))
	for _, h := range r.hooks {
		if h.Enabled && h.Subscribes(eventType) {
			targets = append(targets, h)
		}
	}
	r.mu.Unlock()

	if len(targets) == 0 {
		return nil
	}

	if r.config.Batching.Enabled {
		for _, hook := range targets {
			r.enqueue(hook.ID, event)
		}
		return nil
	}

	results := make([]DeliveryResult, len(targets))
	g, gctx := errgroup.WithContext(ctx)
	for i, hook := range targets {
		i, hook := i, hook
		g.Go(func() error {
			results[i] = r.DeliverWithRetry(gctx, hook.ID, event)
			return nil
		})
	}
	// Goroutines never return errors; results carry per-hook outcomes.
	_ = g.Wait()
	return results
}

// RetryDeadLetters attempts a single redelivery of every dead-lettered
// event. Successes are removed; failures are requeued with their attempt
// count incremented. Returns the number of successful redeliveries.
func (r *Registry) RetryDeadLetters(ctx context.Context) int {
	r.mu.Lock()
	items := r.dlq.drain()
	r.mu.Unlock()

	recovered := 0
	for _, item := range items {
		result := r.Deliver(ctx, item.WebhookID, item.Event)
		if result.Success {
			recovered++
			continue
		}
		r.mu.Lock()
		r.dlq.push(DeadLetterItem{
			WebhookID: item.WebhookID,
			Event:     item.Event,
			Error:     result.errorString(),
			Attempts:  item.Attempts + 1,
			AddedAt:   r.config.Clock(),
		})
		r.mu.Unlock()
	}

	r.config.Logger.Info(ctx, "dead letter retry complete",
		observe.Field{Key: "recovered", Value: recovered},
		observe.Field{Key: "attempted", Value: len(items)},
	)
	return recovered
}

// DeadLetters returns a copy of the dead-letter queue in FIFO order.
func (r *Registry) DeadLetters() []DeadLetterItem {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dlq.snapshot()
}

// RegistryMetrics summarizes registry state.
type RegistryMetrics struct {
	Hooks          int
	DeadLetters    int
	PendingBatched int
}

// Metrics returns a snapshot of registry state.
func (r *Registry) Metrics() RegistryMetrics {
	r.mu.Lock()
	defer r.mu.Unlock()

	pending := 0
	for _, b := range r.batches {
		pending += len(b.events)
	}
	return RegistryMetrics{
		Hooks:          len(r.hooks),
		DeadLetters:    r.dlq.len(),
		PendingBatched: pending,
	}
}

// Stop cancels pending batch timers. Buffered events are not flushed;
// call FlushAll first to drain them.
func (r *Registry) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, batch := range r.batches {
		batch.stopTimerLocked()
		delete(r.batches, id)
	}
}

func (r *Registry) deadLetter(webhookID string, event Event, result DeliveryResult, attempts int) {
	r.mu.Lock()
	r.dlq.push(DeadLetterItem{
		WebhookID: webhookID,
		Event:     event,
		Error:     result.errorString(),
		Attempts:  attempts,
		AddedAt:   r.config.Clock(),
	})
	r.mu.Unlock()

	r.config.Collector.RecordDeadLetter()
	r.config.Logger.Warn(context.Background(), "event dead-lettered",
		observe.Field{Key: "webhook_id", Value: webhookID},
		observe.Field{Key: "event_id", Value: event.ID},
		observe.Field{Key: "attempts", Value: attempts},
	)
}
