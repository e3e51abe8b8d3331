package route

import (
	"sort"
	"time"

	"github.com/dispatchops/dispatchops/observe"
)

// StrategyLeastBusy names the least-busy balancer.
const StrategyLeastBusy = "least-busy"

// LeastBusyConfig configures a LeastBusy balancer.
type LeastBusyConfig struct {
	// Collector, when set, counts routing outcomes.
	Collector *observe.Collector
}

// LeastBusy routes to the agent with the lowest load ratio. It keeps its own
// tracked load per agent, incremented on every route, separate from the
// externally set CurrentLoad; ReleaseLoad, SetLoad and SyncLoad let callers
// reconcile the two explicitly instead of letting them drift.
type LeastBusy struct {
	roster
	config LeastBusyConfig
	loads  map[string]int
	last   int
}

// NewLeastBusy creates a least-busy balancer.
func NewLeastBusy(config LeastBusyConfig) *LeastBusy {
	return &LeastBusy{
		config: config,
		loads:  make(map[string]int),
		last:   -1,
	}
}

// AddAgent adds or replaces an agent, seeding its tracked load from
// CurrentLoad.
func (b *LeastBusy) AddAgent(agent AgentInfo) {
	b.roster.AddAgent(agent)

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.loads[agent.ID]; !ok {
		b.loads[agent.ID] = agent.CurrentLoad
	}
}

// RemoveAgent removes an agent and drops its tracked load.
func (b *LeastBusy) RemoveAgent(id string) bool {
	removed := b.roster.RemoveAgent(id)

	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.loads, id)
	return removed
}

// Route picks the routable agent with spare capacity and the lowest
// load/MaxLoad ratio. Ties break by forward distance from the last routed
// index, giving round-robin fairness among equally loaded agents. The
// winner's tracked load is incremented.
func (b *LeastBusy) Route(task TaskRequest) RouteResult {
	b.mu.Lock()
	defer b.mu.Unlock()

	result := RouteResult{
		Task:      task,
		Strategy:  StrategyLeastBusy,
		Timestamp: time.Now(),
	}

	type candidate struct {
		idx   int
		ratio float64
	}
	n := len(b.agents)
	var candidates []candidate
	for i, agent := range b.agents {
		if !agent.Status.Routable() {
			continue
		}
		load := b.loads[agent.ID]
		if agent.MaxLoad <= 0 || load >= agent.MaxLoad {
			continue
		}
		candidates = append(candidates, candidate{
			idx:   i,
			ratio: float64(load) / float64(agent.MaxLoad),
		})
	}

	if len(candidates) == 0 {
		result.Reason = ReasonNoAvailableAgents
		b.config.Collector.RecordRoute(StrategyLeastBusy, false)
		return result
	}

	forward := func(idx int) int {
		return (idx - b.last - 1 + n) % n
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].ratio != candidates[j].ratio {
			return candidates[i].ratio < candidates[j].ratio
		}
		return forward(candidates[i].idx) < forward(candidates[j].idx)
	})

	pick := candidates[0]
	agent := b.agents[pick.idx]
	b.loads[agent.ID]++
	b.last = pick.idx

	result.Agent = &agent
	b.config.Collector.RecordRoute(StrategyLeastBusy, true)
	return result
}

// Load returns the tracked load for an agent.
func (b *LeastBusy) Load(id string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.loads[id]
}

// ReleaseLoad decrements the tracked load for an agent, flooring at zero.
// Called when a routed task finishes.
func (b *LeastBusy) ReleaseLoad(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.loads[id] > 0 {
		b.loads[id]--
	}
}

// SetLoad overwrites the tracked load for an agent.
func (b *LeastBusy) SetLoad(id string, load int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if load < 0 {
		load = 0
	}
	b.loads[id] = load
}

// SyncLoad reconciles the tracked load with the roster's CurrentLoad, the
// external ground truth.
func (b *LeastBusy) SyncLoad(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, agent := range b.agents {
		if agent.ID == id {
			b.loads[id] = agent.CurrentLoad
			return
		}
	}
}
