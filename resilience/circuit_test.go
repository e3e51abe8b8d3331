package resilience

import (
	"errors"
	"testing"
	"time"
)

func TestNewBreaker_Defaults(t *testing.T) {
	b := NewBreaker(BreakerConfig{})

	if b.config.FailureThreshold != 5 {
		t.Errorf("FailureThreshold = %d, want 5", b.config.FailureThreshold)
	}
	if b.config.ResetTimeout != 30*time.Second {
		t.Errorf("ResetTimeout = %v, want 30s", b.config.ResetTimeout)
	}
	if b.config.HalfOpenMaxAttempts != 1 {
		t.Errorf("HalfOpenMaxAttempts = %d, want 1", b.config.HalfOpenMaxAttempts)
	}
	if b.State() != StateClosed {
		t.Errorf("initial State = %v, want closed", b.State())
	}
}

func TestBreaker_OpensAtThreshold(t *testing.T) {
	b := NewBreaker(BreakerConfig{FailureThreshold: 3})

	b.RecordFailure()
	b.RecordFailure()
	if b.State() != StateClosed {
		t.Fatalf("State after 2 failures = %v, want closed", b.State())
	}

	b.RecordFailure()
	if b.State() != StateOpen {
		t.Fatalf("State after 3 failures = %v, want open", b.State())
	}
	if !b.IsOpen() {
		t.Error("IsOpen = false, want true")
	}
	if !b.Overwhelmed() {
		t.Error("Overwhelmed = false, want true")
	}
	if b.CanAttempt() {
		t.Error("CanAttempt while open = true, want false")
	}
}

func TestBreaker_Check(t *testing.T) {
	b := NewBreaker(BreakerConfig{FailureThreshold: 1})

	if err := b.Check(); err != nil {
		t.Errorf("Check while closed = %v, want nil", err)
	}

	b.RecordFailure()
	if err := b.Check(); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("Check while open = %v, want ErrCircuitOpen", err)
	}
}

func TestBreaker_LazyHalfOpenTransition(t *testing.T) {
	clock := newFakeClock()
	b := NewBreaker(BreakerConfig{
		FailureThreshold: 1,
		ResetTimeout:     time.Minute,
		Clock:            clock.Now,
	})

	b.RecordFailure()
	if b.State() != StateOpen {
		t.Fatalf("State = %v, want open", b.State())
	}

	clock.Advance(59 * time.Second)
	if b.State() != StateOpen {
		t.Fatalf("State before reset timeout = %v, want open", b.State())
	}

	clock.Advance(time.Second)
	if b.State() != StateHalfOpen {
		t.Fatalf("State after reset timeout = %v, want half-open", b.State())
	}
}

func TestBreaker_HalfOpenSuccessCloses(t *testing.T) {
	clock := newFakeClock()
	b := NewBreaker(BreakerConfig{
		FailureThreshold: 2,
		ResetTimeout:     time.Minute,
		Clock:            clock.Now,
	})

	b.RecordFailure()
	b.RecordFailure()
	clock.Advance(time.Minute)
	if b.State() != StateHalfOpen {
		t.Fatalf("State = %v, want half-open", b.State())
	}

	b.RecordSuccess()
	if b.State() != StateClosed {
		t.Fatalf("State after half-open success = %v, want closed", b.State())
	}
	if got := b.Metrics().Failures; got != 0 {
		t.Errorf("Failures after close = %d, want 0", got)
	}
}

func TestBreaker_HalfOpenFailureReopens(t *testing.T) {
	clock := newFakeClock()
	b := NewBreaker(BreakerConfig{
		FailureThreshold: 1,
		ResetTimeout:     time.Minute,
		Clock:            clock.Now,
	})

	b.RecordFailure()
	clock.Advance(time.Minute)
	if b.State() != StateHalfOpen {
		t.Fatalf("State = %v, want half-open", b.State())
	}

	b.RecordFailure()
	if b.State() != StateOpen {
		t.Fatalf("State after half-open failure = %v, want open", b.State())
	}

	// The open window restarts from the probe failure.
	clock.Advance(59 * time.Second)
	if b.State() != StateOpen {
		t.Errorf("State = %v, want open", b.State())
	}
	clock.Advance(time.Second)
	if b.State() != StateHalfOpen {
		t.Errorf("State = %v, want half-open", b.State())
	}
}

func TestBreaker_HalfOpenProbeBudget(t *testing.T) {
	clock := newFakeClock()
	b := NewBreaker(BreakerConfig{
		FailureThreshold:    1,
		ResetTimeout:        time.Minute,
		HalfOpenMaxAttempts: 2,
		Clock:               clock.Now,
	})

	b.RecordFailure()
	clock.Advance(time.Minute)

	if !b.CanAttempt() {
		t.Fatal("CanAttempt with full probe budget = false, want true")
	}
	b.RecordAttempt()
	if !b.CanAttempt() {
		t.Fatal("CanAttempt with 1 of 2 probes used = false, want true")
	}
	b.RecordAttempt()
	if b.CanAttempt() {
		t.Fatal("CanAttempt with probe budget spent = true, want false")
	}
}

func TestBreaker_RecordAttempt_NoopOutsideHalfOpen(t *testing.T) {
	b := NewBreaker(BreakerConfig{FailureThreshold: 3})

	b.RecordAttempt()
	b.RecordAttempt()
	if got := b.Metrics().HalfOpenAttempts; got != 0 {
		t.Errorf("HalfOpenAttempts while closed = %d, want 0", got)
	}
}

func TestBreaker_FailureRate(t *testing.T) {
	b := NewBreaker(BreakerConfig{FailureThreshold: 100})

	if got := b.FailureRate(); got != 0 {
		t.Errorf("FailureRate with no data = %v, want 0", got)
	}

	b.RecordFailure()
	b.RecordSuccess()
	b.RecordSuccess()
	b.RecordSuccess()
	if got := b.FailureRate(); got != 0.25 {
		t.Errorf("FailureRate = %v, want 0.25", got)
	}
}

func TestBreaker_Reset(t *testing.T) {
	b := NewBreaker(BreakerConfig{FailureThreshold: 1})

	b.RecordFailure()
	if b.State() != StateOpen {
		t.Fatalf("State = %v, want open", b.State())
	}

	b.Reset()
	if b.State() != StateClosed {
		t.Errorf("State after Reset = %v, want closed", b.State())
	}
	m := b.Metrics()
	if m.Failures != 0 || m.Successes != 0 || m.HalfOpenAttempts != 0 {
		t.Errorf("Metrics after Reset = %+v, want zeroed counters", m)
	}
}

func TestBreaker_OnStateChange(t *testing.T) {
	clock := newFakeClock()
	type change struct{ from, to State }
	var changes []change
	b := NewBreaker(BreakerConfig{
		FailureThreshold: 1,
		ResetTimeout:     time.Minute,
		Clock:            clock.Now,
		OnStateChange: func(from, to State) {
			changes = append(changes, change{from, to})
		},
	})

	b.RecordFailure()          // closed -> open
	clock.Advance(time.Minute) //
	b.State()                  // open -> half-open (lazy)
	b.RecordSuccess()          // half-open -> closed

	want := []change{
		{StateClosed, StateOpen},
		{StateOpen, StateHalfOpen},
		{StateHalfOpen, StateClosed},
	}
	if len(changes) != len(want) {
		t.Fatalf("got %d state changes, want %d", len(changes), len(want))
	}
	for i, w := range want {
		if changes[i] != w {
			t.Errorf("change[%d] = %v->%v, want %v->%v", i, changes[i].from, changes[i].to, w.from, w.to)
		}
	}
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateClosed, "closed"},
		{StateOpen, "open"},
		{StateHalfOpen, "half-open"},
		{State(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}
