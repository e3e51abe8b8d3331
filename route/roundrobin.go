package route

import (
	"time"

	"github.com/dispatchops/dispatchops/observe"
)

// StrategyRoundRobin names the round-robin balancer.
const StrategyRoundRobin = "round-robin"

// RoundRobinConfig configures a RoundRobin balancer.
type RoundRobinConfig struct {
	// Collector, when set, counts routing outcomes.
	Collector *observe.Collector
}

// RoundRobin cycles through the roster in order. The pointer advances even
// when an index is skipped for unavailability, so a failed rotation still
// makes forward progress.
type RoundRobin struct {
	roster
	config RoundRobinConfig
	next   int
}

// NewRoundRobin creates a round-robin balancer.
func NewRoundRobin(config RoundRobinConfig) *RoundRobin {
	return &RoundRobin{config: config}
}

// Route picks the next routable agent in cyclic order.
func (b *RoundRobin) Route(task TaskRequest) RouteResult {
	b.mu.Lock()
	defer b.mu.Unlock()

	result := RouteResult{
		Task:      task,
		Strategy:  StrategyRoundRobin,
		Timestamp: time.Now(),
	}

	n := len(b.agents)
	for i := 0; i < n; i++ {
		idx := (b.next + i) % n
		agent := b.agents[idx]
		if !agent.Status.Routable() {
			continue
		}
		b.next = (idx + 1) % n
		result.Agent = &agent
		b.config.Collector.RecordRoute(StrategyRoundRobin, true)
		return result
	}

	// Full cycle with no hit; keep the pointer moving regardless.
	if n > 0 {
		b.next = (b.next + 1) % n
	}
	result.Reason = ReasonNoAvailableAgents
	b.config.Collector.RecordRoute(StrategyRoundRobin, false)
	return result
}
