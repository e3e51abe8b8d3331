package route

import (
	"time"

	"github.com/dispatchops/dispatchops/observe"
)

// StrategyComposite names the composite balancer.
const StrategyComposite = "composite"

// Strategy is one entry in a composite cascade: either a full Balancer or a
// bare routing func, with a weight recorded into StrategyScores.
type Strategy struct {
	Name     string
	Weight   float64
	Balancer Balancer
	Func     func(task TaskRequest) RouteResult
}

// CompositeConfig configures a Composite balancer.
type CompositeConfig struct {
	// Strategies are tried in order.
	Strategies []Strategy

	// FallbackNextStrategy cascades to the next strategy when one fails to
	// produce an agent. When false, the first failure ends the route.
	FallbackNextStrategy bool

	// Collector, when set, counts routing outcomes.
	Collector *observe.Collector
}

// Composite tries an ordered list of strategies, returning the first
// result carrying an agent. The result records every strategy tried and a
// per-strategy score (the strategy's weight on success, zero on failure).
type Composite struct {
	roster
	config CompositeConfig
}

// NewComposite creates a composite balancer.
func NewComposite(config CompositeConfig) *Composite {
	return &Composite{config: config}
}

// AddAgent adds the agent to the composite roster and every sub-balancer.
func (b *Composite) AddAgent(agent AgentInfo) {
	b.roster.AddAgent(agent)
	for _, s := range b.config.Strategies {
		if s.Balancer != nil {
			s.Balancer.AddAgent(agent)
		}
	}
}

// RemoveAgent removes the agent from the composite roster and every
// sub-balancer.
func (b *Composite) RemoveAgent(id string) bool {
	removed := b.roster.RemoveAgent(id)
	for _, s := range b.config.Strategies {
		if s.Balancer != nil {
			s.Balancer.RemoveAgent(id)
		}
	}
	return removed
}

// Route tries each strategy in order until one produces an agent.
func (b *Composite) Route(task TaskRequest) RouteResult {
	result := RouteResult{
		Task:           task,
		Strategy:       StrategyComposite,
		Timestamp:      time.Now(),
		StrategyScores: make(map[string]float64, len(b.config.Strategies)),
	}

	for i, s := range b.config.Strategies {
		result.Strategies = append(result.Strategies, s.Name)

		var attempt RouteResult
		switch {
		case s.Balancer != nil:
			attempt = s.Balancer.Route(task)
		case s.Func != nil:
			attempt = s.Func(task)
		default:
			continue
		}

		if attempt.Agent != nil {
			result.Agent = attempt.Agent
			result.MatchScore = attempt.MatchScore
			result.StrategyScores[s.Name] = s.Weight
			result.UsedFallback = i > 0
			b.config.Collector.RecordRoute(StrategyComposite, true)
			return result
		}

		result.StrategyScores[s.Name] = 0
		if !b.config.FallbackNextStrategy {
			break
		}
	}

	result.Reason = ReasonAllStrategiesLost
	b.config.Collector.RecordRoute(StrategyComposite, false)
	return result
}
