package observe

import "sync"

// Collector holds instance-scoped counters consumed by balancers and the
// webhook registry. Each collector's state is wholly private: unrelated
// collectors never share counts, and there is no package-level default —
// callers construct one per component, or deliberately pass the same
// instance to several components to aggregate them.
//
// All methods are safe on a nil *Collector, so instrumented code does not
// need nil guards.
type Collector struct {
	mu     sync.Mutex
	counts map[string]int64
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{counts: make(map[string]int64)}
}

// Inc increments a named counter by one.
func (c *Collector) Inc(name string) {
	c.Add(name, 1)
}

// Add increments a named counter by delta.
func (c *Collector) Add(name string, delta int64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[name] += delta
}

// Get returns a counter's value, zero when never recorded.
func (c *Collector) Get(name string) int64 {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[name]
}

// Snapshot returns a copy of all counters.
func (c *Collector) Snapshot() map[string]int64 {
	if c == nil {
		return map[string]int64{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(map[string]int64, len(c.counts))
	for k, v := range c.counts {
		out[k] = v
	}
	return out
}

// Reset clears all counters.
func (c *Collector) Reset() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts = make(map[string]int64)
}

// RecordRoute counts one routing decision under
// "route.<strategy>.matched" or "route.<strategy>.unmatched".
func (c *Collector) RecordRoute(strategy string, matched bool) {
	if matched {
		c.Inc("route." + strategy + ".matched")
	} else {
		c.Inc("route." + strategy + ".unmatched")
	}
}

// RecordDelivery counts one webhook delivery attempt.
func (c *Collector) RecordDelivery(success bool) {
	if success {
		c.Inc("webhook.delivery.success")
	} else {
		c.Inc("webhook.delivery.failure")
	}
}

// RecordDeadLetter counts one dead-lettered event.
func (c *Collector) RecordDeadLetter() {
	c.Inc("webhook.deadletter")
}

// RecordRetry counts one retry for a named component.
func (c *Collector) RecordRetry(component string) {
	c.Inc("retry." + component)
}
