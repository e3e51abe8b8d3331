package observe

import (
	"sync"
	"testing"
)

// TestCollector_IncAndGet verifies basic counter arithmetic.
func TestCollector_IncAndGet(t *testing.T) {
	c := NewCollector()

	c.Inc("routes")
	c.Inc("routes")
	c.Add("routes", 3)

	if got := c.Get("routes"); got != 5 {
		t.Errorf("Get(routes) = %d, want 5", got)
	}
	if got := c.Get("never"); got != 0 {
		t.Errorf("Get(never) = %d, want 0", got)
	}
}

// TestCollector_NilSafe verifies every method is safe on a nil collector.
func TestCollector_NilSafe(t *testing.T) {
	var c *Collector

	c.Inc("x")
	c.Add("x", 2)
	c.RecordRoute("round-robin", true)
	c.RecordDelivery(false)
	c.RecordDeadLetter()
	c.RecordRetry("webhook")
	c.Reset()

	if got := c.Get("x"); got != 0 {
		t.Errorf("nil Get(x) = %d, want 0", got)
	}
	if snap := c.Snapshot(); len(snap) != 0 {
		t.Errorf("nil Snapshot() = %v, want empty", snap)
	}
}

// TestCollector_Isolation verifies unrelated collectors never share counts.
func TestCollector_Isolation(t *testing.T) {
	a := NewCollector()
	b := NewCollector()

	a.Inc("routes")

	if got := b.Get("routes"); got != 0 {
		t.Errorf("collector b saw %d, want 0 (no cross-talk)", got)
	}
}

// TestCollector_SharedAggregation verifies deliberate sharing aggregates.
func TestCollector_SharedAggregation(t *testing.T) {
	shared := NewCollector()

	shared.RecordRoute("round-robin", true)
	shared.RecordRoute("least-busy", true)
	shared.RecordRoute("least-busy", false)

	if got := shared.Get("route.round-robin.matched"); got != 1 {
		t.Errorf("route.round-robin.matched = %d, want 1", got)
	}
	if got := shared.Get("route.least-busy.matched"); got != 1 {
		t.Errorf("route.least-busy.matched = %d, want 1", got)
	}
	if got := shared.Get("route.least-busy.unmatched"); got != 1 {
		t.Errorf("route.least-busy.unmatched = %d, want 1", got)
	}
}

// TestCollector_SnapshotIsCopy verifies mutating a snapshot leaves the
// collector untouched.
func TestCollector_SnapshotIsCopy(t *testing.T) {
	c := NewCollector()
	c.Inc("x")

	snap := c.Snapshot()
	snap["x"] = 100

	if got := c.Get("x"); got != 1 {
		t.Errorf("Get(x) = %d after snapshot mutation, want 1", got)
	}
}

// TestCollector_Reset verifies counters clear.
func TestCollector_Reset(t *testing.T) {
	c := NewCollector()
	c.Inc("x")
	c.Reset()

	if got := c.Get("x"); got != 0 {
		t.Errorf("Get(x) = %d after Reset, want 0", got)
	}
}

// TestCollector_RecordHelpers verifies the counter key conventions.
func TestCollector_RecordHelpers(t *testing.T) {
	c := NewCollector()

	c.RecordDelivery(true)
	c.RecordDelivery(false)
	c.RecordDeadLetter()
	c.RecordRetry("resilience")

	want := map[string]int64{
		"webhook.delivery.success": 1,
		"webhook.delivery.failure": 1,
		"webhook.deadletter":       1,
		"retry.resilience":         1,
	}
	for key, value := range want {
		if got := c.Get(key); got != value {
			t.Errorf("Get(%s) = %d, want %d", key, got, value)
		}
	}
}

// TestCollector_ConcurrentAccess exercises the collector under parallel
// writers; run with -race.
func TestCollector_ConcurrentAccess(t *testing.T) {
	c := NewCollector()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Inc("concurrent")
				c.Snapshot()
			}
		}()
	}
	wg.Wait()

	if got := c.Get("concurrent"); got != 1000 {
		t.Errorf("Get(concurrent) = %d, want 1000", got)
	}
}
