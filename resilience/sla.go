package resilience

import (
	"sync"
	"time"
)

// SLATier configures the deadline for one priority tier.
type SLATier struct {
	// Deadline is the time budget for requests in this tier.
	Deadline time.Duration
}

// SLAConfig configures an SLATracker.
type SLAConfig struct {
	// Deadline is the flat time budget used when no tier matches.
	// Default: 5 minutes
	Deadline time.Duration

	// WarningThreshold fires OnWarning when remaining time drops to or
	// below it. Zero disables warnings.
	WarningThreshold time.Duration

	// Tiers maps a priority to its deadline. Tier resolution happens once,
	// at Track time.
	Tiers map[int]SLATier

	// SweepInterval is how often the background sweep runs.
	// Default: 1 second
	SweepInterval time.Duration

	// OnWarning is called at most once per request when it nears its
	// deadline.
	OnWarning func(requestID string, remaining time.Duration)

	// OnViolation is called exactly once per request when its deadline
	// passes.
	OnViolation func(requestID string, deadline time.Time)

	// Clock supplies the current time. Default: time.Now.
	Clock func() time.Time
}

type trackedRequest struct {
	requestID      string
	deadline       time.Time
	priority       int
	startedAt      time.Time
	violated       bool
	warningEmitted bool
}

// CompletedRequest is the history entry for a completed tracked request.
type CompletedRequest struct {
	RequestID   string
	Deadline    time.Time
	StartedAt   time.Time
	CompletedAt time.Time
	Violated    bool
}

// TrackInfo is returned by Track.
type TrackInfo struct {
	// Deadline is the absolute deadline resolved for the request.
	Deadline time.Time

	// Remaining is the time budget at track time.
	Remaining time.Duration
}

// SLAMetrics summarizes completed requests.
type SLAMetrics struct {
	Completed      int
	Violated       int
	ComplianceRate float64
	AvgCompletion  time.Duration
}

// SLATracker tracks per-request deadlines. A background sweep surfaces
// warning and violation callbacks even when nobody polls IsViolated.
//
// The sweep goroutine is an owned resource: Stop must be called or the
// goroutine leaks.
type SLATracker struct {
	config SLAConfig

	mu        sync.Mutex
	live      map[string]*trackedRequest
	completed []CompletedRequest

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewSLATracker creates a tracker and starts its sweep goroutine.
func NewSLATracker(config SLAConfig) *SLATracker {
	if config.Deadline <= 0 {
		config.Deadline = 5 * time.Minute
	}
	if config.SweepInterval <= 0 {
		config.SweepInterval = time.Second
	}
	if config.Clock == nil {
		config.Clock = time.Now
	}

	t := &SLATracker{
		config: config,
		live:   make(map[string]*trackedRequest),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go t.sweepLoop()
	return t
}

// Track begins deadline tracking for a request. The deadline resolves from
// Tiers[priority] when present, else the flat default, and is immutable for
// the life of the request. Priority zero means untiered.
func (t *SLATracker) Track(requestID string, priority int) TrackInfo {
	budget := t.config.Deadline
	if tier, ok := t.config.Tiers[priority]; ok && tier.Deadline > 0 {
		budget = tier.Deadline
	}

	now := t.config.Clock()
	req := &trackedRequest{
		requestID: requestID,
		deadline:  now.Add(budget),
		priority:  priority,
		startedAt: now,
	}

	t.mu.Lock()
	t.live[requestID] = req
	t.mu.Unlock()

	return TrackInfo{Deadline: req.deadline, Remaining: budget}
}

// Remaining returns max(0, deadline-now) for a tracked request.
func (t *SLATracker) Remaining(requestID string) (time.Duration, error) {
	t.mu.Lock()
	req, ok := t.live[requestID]
	t.mu.Unlock()

	if !ok {
		return 0, ErrUnknownRequest
	}

	remaining := req.deadline.Sub(t.config.Clock())
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// Deadline returns the absolute deadline for a tracked request.
func (t *SLATracker) Deadline(requestID string) (time.Time, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	req, ok := t.live[requestID]
	if !ok {
		return time.Time{}, ErrUnknownRequest
	}
	return req.deadline, nil
}

// IsViolated reports whether the request's deadline has passed. The first
// check past the deadline flips the violated flag and fires OnViolation;
// later checks are idempotent.
func (t *SLATracker) IsViolated(requestID string) (bool, error) {
	t.mu.Lock()
	req, ok := t.live[requestID]
	if !ok {
		t.mu.Unlock()
		return false, ErrUnknownRequest
	}

	var fire bool
	if !req.violated && t.config.Clock().After(req.deadline) {
		req.violated = true
		fire = true
	}
	violated := req.violated
	deadline := req.deadline
	t.mu.Unlock()

	if fire && t.config.OnViolation != nil {
		t.config.OnViolation(requestID, deadline)
	}
	return violated, nil
}

// Complete moves a tracked request into the completed history, marking it
// violated when completion postdates the deadline. This covers requests
// nobody polled before completion.
func (t *SLATracker) Complete(requestID string) error {
	now := t.config.Clock()

	t.mu.Lock()
	req, ok := t.live[requestID]
	if !ok {
		t.mu.Unlock()
		return ErrUnknownRequest
	}
	delete(t.live, requestID)

	if now.After(req.deadline) {
		req.violated = true
	}
	t.completed = append(t.completed, CompletedRequest{
		RequestID:   requestID,
		Deadline:    req.deadline,
		StartedAt:   req.startedAt,
		CompletedAt: now,
		Violated:    req.violated,
	})
	t.mu.Unlock()
	return nil
}

// Metrics summarizes the completed history. ComplianceRate is 1 when
// nothing has completed yet.
func (t *SLATracker) Metrics() SLAMetrics {
	t.mu.Lock()
	defer t.mu.Unlock()

	m := SLAMetrics{Completed: len(t.completed), ComplianceRate: 1}
	if m.Completed == 0 {
		return m
	}

	var total time.Duration
	for _, c := range t.completed {
		if c.Violated {
			m.Violated++
		}
		total += c.CompletedAt.Sub(c.StartedAt)
	}
	m.ComplianceRate = float64(m.Completed-m.Violated) / float64(m.Completed)
	m.AvgCompletion = total / time.Duration(m.Completed)
	return m
}

// Tracked reports whether a request id is currently live.
func (t *SLATracker) Tracked(requestID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.live[requestID]
	return ok
}

// Stop halts the sweep goroutine. It is idempotent and must be called to
// release the tracker.
func (t *SLATracker) Stop() {
	t.stopOnce.Do(func() {
		close(t.stop)
	})
	<-t.done
}

func (t *SLATracker) sweepLoop() {
	defer close(t.done)

	ticker := time.NewTicker(t.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-t.stop:
			return
		case <-ticker.C:
			t.sweep()
		}
	}
}

type slaCallback struct {
	requestID string
	deadline  time.Time
	remaining time.Duration
	violation bool
}

func (t *SLATracker) sweep() {
	now := t.config.Clock()

	t.mu.Lock()
	var fire []slaCallback
	for id, req := range t.live {
		if !req.violated && now.After(req.deadline) {
			req.violated = true
			fire = append(fire, slaCallback{requestID: id, deadline: req.deadline, violation: true})
			continue
		}
		if t.config.WarningThreshold > 0 && !req.warningEmitted && !req.violated {
			remaining := req.deadline.Sub(now)
			if remaining <= t.config.WarningThreshold {
				req.warningEmitted = true
				fire = append(fire, slaCallback{requestID: id, remaining: remaining})
			}
		}
	}
	t.mu.Unlock()

	for _, cb := range fire {
		if cb.violation {
			if t.config.OnViolation != nil {
				t.config.OnViolation(cb.requestID, cb.deadline)
			}
		} else if t.config.OnWarning != nil {
			t.config.OnWarning(cb.requestID, cb.remaining)
		}
	}
}
