package route

import (
	"sort"
	"time"

	"github.com/dispatchops/dispatchops/observe"
)

// StrategyRuleEngine names the rule-engine balancer.
const StrategyRuleEngine = "rule-engine"

// RuleMatch is a declarative rule condition. Zero-valued fields are not
// checked; set fields must all hold.
type RuleMatch struct {
	// RequiredSkillsContains requires the task's RequiredSkills to include
	// this skill.
	RequiredSkillsContains string

	// PriorityGTE requires task priority >= this value (0 = unchecked).
	PriorityGTE int

	// PriorityLTE requires task priority <= this value (0 = unchecked).
	PriorityLTE int

	// MetadataEquals requires every listed metadata key to equal its value.
	MetadataEquals map[string]any
}

func (m RuleMatch) matches(task TaskRequest) bool {
	if m.RequiredSkillsContains != "" {
		found := false
		for _, skill := range task.RequiredSkills {
			if skill == m.RequiredSkillsContains {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if m.PriorityGTE > 0 && task.Priority < m.PriorityGTE {
		return false
	}
	if m.PriorityLTE > 0 && task.Priority > m.PriorityLTE {
		return false
	}
	for key, want := range m.MetadataEquals {
		if task.Metadata[key] != want {
			return false
		}
	}
	return true
}

// Rule is one routing rule. Either Condition (arbitrary predicate) or Match
// (declarative) gates the rule; when both are set, both must hold. Action
// picks an agent from the candidate roster, returning nil to decline.
type Rule struct {
	Name      string
	Priority  int
	Enabled   bool
	Condition func(task TaskRequest) bool
	Match     *RuleMatch
	Action    func(task TaskRequest, agents []AgentInfo) *AgentInfo
}

// RuleEngineConfig configures a RuleEngine.
type RuleEngineConfig struct {
	// Default is the fallback balancer used when no rule yields an agent.
	// Typically a RoundRobin, LeastBusy, or Capability over the same
	// roster. Nil means no fallback.
	Default Balancer

	// Collector, when set, counts routing outcomes.
	Collector *observe.Collector
}

// RuleEngine routes by evaluating enabled rules in descending priority
// order; the first rule whose condition matches and whose action yields an
// agent wins.
type RuleEngine struct {
	roster
	config RuleEngineConfig
	rules  []Rule
}

// NewRuleEngine creates a rule-engine balancer.
func NewRuleEngine(config RuleEngineConfig) *RuleEngine {
	return &RuleEngine{config: config}
}

// AddRule registers a rule. Rules evaluate in descending Priority order;
// registration order breaks ties.
func (b *RuleEngine) AddRule(rule Rule) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.rules = append(b.rules, rule)
	sort.SliceStable(b.rules, func(i, j int) bool {
		return b.rules[i].Priority > b.rules[j].Priority
	})
}

// RemoveRule removes a rule by name, reporting whether it was present.
func (b *RuleEngine) RemoveRule(name string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i := range b.rules {
		if b.rules[i].Name == name {
			b.rules = append(b.rules[:i], b.rules[i+1:]...)
			return true
		}
	}
	return false
}

// SetRuleEnabled toggles a rule, reporting whether it was found.
func (b *RuleEngine) SetRuleEnabled(name string, enabled bool) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i := range b.rules {
		if b.rules[i].Name == name {
			b.rules[i].Enabled = enabled
			return true
		}
	}
	return false
}

// Route evaluates rules in order; when none yields an agent the default
// balancer decides, with UsedDefault set on its result.
func (b *RuleEngine) Route(task TaskRequest) RouteResult {
	b.mu.Lock()
	// Snapshot: rule actions run outside the lock.
	rules := make([]Rule, len(b.rules))
	copy(rules, b.rules)
	agents := make([]AgentInfo, 0, len(b.agents))
	for _, agent := range b.agents {
		if agent.Status.Routable() {
			agents = append(agents, agent)
		}
	}
	b.mu.Unlock()

	result := RouteResult{
		Task:      task,
		Strategy:  StrategyRuleEngine,
		Timestamp: time.Now(),
	}

	for _, rule := range rules {
		if !rule.Enabled {
			continue
		}
		if rule.Condition != nil && !rule.Condition(task) {
			continue
		}
		if rule.Match != nil && !rule.Match.matches(task) {
			continue
		}
		if rule.Action == nil {
			continue
		}
		if agent := rule.Action(task, agents); agent != nil {
			result.Agent = agent
			result.MatchedRule = rule.Name
			b.config.Collector.RecordRoute(StrategyRuleEngine, true)
			return result
		}
	}

	if b.config.Default != nil {
		fallback := b.config.Default.Route(task)
		fallback.Strategy = StrategyRuleEngine
		fallback.Task = task
		fallback.UsedDefault = true
		b.config.Collector.RecordRoute(StrategyRuleEngine, fallback.Agent != nil)
		return fallback
	}

	result.Reason = ReasonNoAvailableAgents
	b.config.Collector.RecordRoute(StrategyRuleEngine, false)
	return result
}
