package route

import (
	"fmt"
	"sync"
	"time"
)

// Status represents an agent's availability.
type Status int

const (
	// StatusAvailable means the agent can take work immediately.
	StatusAvailable Status = iota
	// StatusBusy means the agent is working but remains routable.
	StatusBusy
	// StatusAway means the agent is temporarily unreachable.
	StatusAway
	// StatusOffline means the agent is gone.
	StatusOffline
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusAvailable:
		return "available"
	case StatusBusy:
		return "busy"
	case StatusAway:
		return "away"
	case StatusOffline:
		return "offline"
	default:
		return "unknown"
	}
}

// Routable reports whether agents in this status are routing candidates.
// Away and offline agents never are, regardless of strategy.
func (s Status) Routable() bool {
	return s == StatusAvailable || s == StatusBusy
}

// Channel identifies a contact channel.
type Channel int

const (
	ChannelEmail Channel = iota
	ChannelSlack
	ChannelSMS
	ChannelPhone
	ChannelWebhook
)

// String returns the string representation of the channel.
func (c Channel) String() string {
	switch c {
	case ChannelEmail:
		return "email"
	case ChannelSlack:
		return "slack"
	case ChannelSMS:
		return "sms"
	case ChannelPhone:
		return "phone"
	case ChannelWebhook:
		return "webhook"
	default:
		return "unknown"
	}
}

// Contact is one way to reach an agent. Keeping the channel a closed enum
// (rather than an open string-keyed map) makes channel resolution
// exhaustively matchable.
type Contact struct {
	Channel Channel
	Address string
}

// AgentInfo describes a worker that can receive routed tasks. Status and
// CurrentLoad are mutated externally as ground truth changes.
type AgentInfo struct {
	ID          string
	Name        string
	Status      Status
	Skills      []string
	CurrentLoad int
	MaxLoad     int
	Contacts    []Contact
	Metadata    map[string]any
}

// HasSkills reports whether the agent possesses every required skill.
func (a AgentInfo) HasSkills(required []string) bool {
	for _, want := range required {
		found := false
		for _, have := range a.Skills {
			if have == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Priority bounds for tasks.
const (
	MinPriority = 1
	MaxPriority = 10
)

// TaskRequest is a unit of work to be routed.
type TaskRequest struct {
	ID             string
	Name           string
	RequiredSkills []string
	Priority       int
	Metadata       map[string]any
	EnqueuedAt     time.Time
}

// Validate checks the task priority lies in [MinPriority, MaxPriority].
// Out-of-range values are an error, never silently clamped.
func (t TaskRequest) Validate() error {
	if t.Priority < MinPriority || t.Priority > MaxPriority {
		return fmt.Errorf("route: task %q priority %d out of range [%d, %d]", t.ID, t.Priority, MinPriority, MaxPriority)
	}
	return nil
}

// Routing failure reason codes.
const (
	ReasonNoAvailableAgents = "no-available-agents"
	ReasonNoCapableAgents   = "no-capable-agents"
	ReasonQueueEmpty        = "queue-empty"
	ReasonInvalidPriority   = "invalid-priority"
	ReasonAllStrategiesLost = "all-strategies-failed"
)

// RouteResult is the immutable outcome of one routing decision. A nil Agent
// signals routing failure, with Reason set; balancers report failure this
// way rather than erroring so callers choose their own fallback policy.
type RouteResult struct {
	Agent     *AgentInfo
	Task      TaskRequest
	Strategy  string
	Timestamp time.Time
	Reason    string

	// MatchScore is the fraction of required skills the picked agent has
	// (capability routing only).
	MatchScore float64

	// MatchedRule names the winning rule (rule engine only).
	MatchedRule string

	// UsedDefault marks a rule-engine decision that fell through to the
	// default strategy.
	UsedDefault bool

	// UsedFallback marks a composite decision served by a non-first
	// strategy.
	UsedFallback bool

	// Strategies lists composite strategies tried, in order.
	Strategies []string

	// StrategyScores records a per-strategy score for composite routing.
	StrategyScores map[string]float64
}

// Balancer is the common contract all routing strategies expose.
type Balancer interface {
	// Route picks an agent for the task. Failures are reported in the
	// result, never as a panic or error.
	Route(task TaskRequest) RouteResult

	// AddAgent adds or replaces an agent in the roster.
	AddAgent(agent AgentInfo)

	// RemoveAgent removes an agent by id, reporting whether it was present.
	RemoveAgent(id string) bool

	// Agents returns a snapshot of the roster.
	Agents() []AgentInfo
}

// roster is the mutex-guarded agent list shared by balancer implementations.
type roster struct {
	mu     sync.Mutex
	agents []AgentInfo
}

func (r *roster) AddAgent(agent AgentInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.agents {
		if r.agents[i].ID == agent.ID {
			r.agents[i] = agent
			return
		}
	}
	r.agents = append(r.agents, agent)
}

func (r *roster) RemoveAgent(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.agents {
		if r.agents[i].ID == id {
			r.agents = append(r.agents[:i], r.agents[i+1:]...)
			return true
		}
	}
	return false
}

func (r *roster) Agents() []AgentInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]AgentInfo, len(r.agents))
	copy(out, r.agents)
	return out
}
