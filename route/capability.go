package route

import (
	"sort"
	"time"

	"github.com/dispatchops/dispatchops/observe"
)

// StrategyCapability names the capability router.
const StrategyCapability = "capability"

// CapabilityConfig configures a Capability router.
type CapabilityConfig struct {
	// PreferExactMatch orders qualifying agents by how closely their skill
	// count matches the task's requirement, keeping overqualified agents
	// free for broader tasks.
	PreferExactMatch bool

	// Collector, when set, counts routing outcomes.
	Collector *observe.Collector
}

// Capability routes tasks to agents possessing every required skill. Partial
// matches never qualify.
type Capability struct {
	roster
	config CapabilityConfig
}

// NewCapability creates a capability router.
func NewCapability(config CapabilityConfig) *Capability {
	return &Capability{config: config}
}

// Route picks a routable agent holding all of the task's required skills.
// MatchScore is the fraction of required skills the pick holds: 1.0 for any
// qualifying pick, 0 when the task requires nothing.
func (b *Capability) Route(task TaskRequest) RouteResult {
	b.mu.Lock()
	defer b.mu.Unlock()

	result := RouteResult{
		Task:      task,
		Strategy:  StrategyCapability,
		Timestamp: time.Now(),
	}

	var candidates []AgentInfo
	for _, agent := range b.agents {
		if !agent.Status.Routable() {
			continue
		}
		if !agent.HasSkills(task.RequiredSkills) {
			continue
		}
		candidates = append(candidates, agent)
	}

	if len(candidates) == 0 {
		result.Reason = ReasonNoCapableAgents
		b.config.Collector.RecordRoute(StrategyCapability, false)
		return result
	}

	if b.config.PreferExactMatch {
		want := len(task.RequiredSkills)
		sort.SliceStable(candidates, func(i, j int) bool {
			return absDiff(len(candidates[i].Skills), want) < absDiff(len(candidates[j].Skills), want)
		})
	}

	pick := candidates[0]
	result.Agent = &pick
	if len(task.RequiredSkills) > 0 {
		result.MatchScore = 1.0
	}
	b.config.Collector.RecordRoute(StrategyCapability, true)
	return result
}

func absDiff(a, b int) int {
	if a > b {
		return a - b
	}
	return b - a
}
