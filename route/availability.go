package route

import (
	"sync"
	"time"
)

// AvailabilityConfig configures an AvailabilityTracker.
type AvailabilityConfig struct {
	// HeartbeatTimeout marks agents offline once silent this long.
	// Default: 5 minutes
	HeartbeatTimeout time.Duration

	// Clock supplies the current time. Default: time.Now.
	Clock func() time.Time
}

// AgentAvailability is the tracked state for one agent.
type AgentAvailability struct {
	AgentID     string
	Status      Status
	LastSeen    time.Time
	CurrentLoad int
	MaxLoad     int
}

// Capacity aggregates load across non-offline agents.
type Capacity struct {
	Total       int
	Used        int
	Available   int
	Utilization float64
}

// StatusListener observes agent status transitions.
type StatusListener func(agentID string, from, to Status)

// AvailabilityTracker maintains heartbeat-driven agent availability for
// balancer candidate pools. Timeout detection is caller-driven via
// CheckTimeouts; the tracker runs no internal timer.
type AvailabilityTracker struct {
	config AvailabilityConfig

	mu        sync.Mutex
	agents    map[string]*AgentAvailability
	listeners []StatusListener
}

// NewAvailabilityTracker creates a tracker.
func NewAvailabilityTracker(config AvailabilityConfig) *AvailabilityTracker {
	if config.HeartbeatTimeout <= 0 {
		config.HeartbeatTimeout = 5 * time.Minute
	}
	if config.Clock == nil {
		config.Clock = time.Now
	}

	return &AvailabilityTracker{
		config: config,
		agents: make(map[string]*AgentAvailability),
	}
}

// OnStatusChange registers a listener. Listeners fire only on actual status
// transitions, never for redundant updates.
func (t *AvailabilityTracker) OnStatusChange(listener StatusListener) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.listeners = append(t.listeners, listener)
}

// UpdateStatus records a heartbeat with the agent's current status,
// creating tracking state on first sight.
func (t *AvailabilityTracker) UpdateStatus(agentID string, status Status) {
	t.mu.Lock()

	agent, ok := t.agents[agentID]
	if !ok {
		agent = &AgentAvailability{AgentID: agentID, Status: status}
		t.agents[agentID] = agent
	}
	from := agent.Status
	changed := ok && from != status
	agent.Status = status
	agent.LastSeen = t.config.Clock()

	listeners := t.listeners
	t.mu.Unlock()

	if changed {
		for _, l := range listeners {
			l(agentID, from, status)
		}
	}
}

// UpdateLoad records an agent's load alongside a heartbeat.
func (t *AvailabilityTracker) UpdateLoad(agentID string, current, max int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	agent, ok := t.agents[agentID]
	if !ok {
		agent = &AgentAvailability{AgentID: agentID, Status: StatusAvailable}
		t.agents[agentID] = agent
	}
	agent.CurrentLoad = current
	agent.MaxLoad = max
	agent.LastSeen = t.config.Clock()
}

// Get returns the tracked state for an agent.
func (t *AvailabilityTracker) Get(agentID string) (AgentAvailability, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	agent, ok := t.agents[agentID]
	if !ok {
		return AgentAvailability{}, false
	}
	return *agent, true
}

// CheckTimeouts forces agents silent past the heartbeat timeout to offline,
// returning the ids it transitioned. Listeners fire for each.
func (t *AvailabilityTracker) CheckTimeouts() []string {
	now := t.config.Clock()

	t.mu.Lock()
	type transition struct {
		id   string
		from Status
	}
	var timedOut []transition
	for id, agent := range t.agents {
		if agent.Status == StatusOffline {
			continue
		}
		if now.Sub(agent.LastSeen) > t.config.HeartbeatTimeout {
			timedOut = append(timedOut, transition{id: id, from: agent.Status})
			agent.Status = StatusOffline
		}
	}
	listeners := t.listeners
	t.mu.Unlock()

	ids := make([]string, 0, len(timedOut))
	for _, tr := range timedOut {
		ids = append(ids, tr.id)
		for _, l := range listeners {
			l(tr.id, tr.from, StatusOffline)
		}
	}
	return ids
}

// OverallCapacity aggregates total, used, and available load over all
// non-offline agents.
func (t *AvailabilityTracker) OverallCapacity() Capacity {
	t.mu.Lock()
	defer t.mu.Unlock()

	var c Capacity
	for _, agent := range t.agents {
		if agent.Status == StatusOffline {
			continue
		}
		c.Total += agent.MaxLoad
		c.Used += agent.CurrentLoad
	}
	c.Available = c.Total - c.Used
	if c.Available < 0 {
		c.Available = 0
	}
	if c.Total > 0 {
		c.Utilization = float64(c.Used) / float64(c.Total)
	}
	return c
}
