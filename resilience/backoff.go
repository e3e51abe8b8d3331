package resilience

import (
	"math"
	"math/rand"
	"time"
)

// BackoffConfig configures an exponential backoff schedule.
type BackoffConfig struct {
	// BaseDelay is the delay for attempt 0.
	// Default: 100ms
	BaseDelay time.Duration

	// Multiplier is the growth factor per attempt. Values below 1 are
	// treated as the default.
	// Default: 2.0
	Multiplier float64

	// MaxDelay caps the computed delay. Zero means no cap.
	MaxDelay time.Duration

	// JitterFactor is the fraction of the delay used as uniform random
	// noise, in [0, 1]. The jittered delay lies in
	// delay ± delay*JitterFactor.
	// Default: 0.1 when unset (negative disables jitter).
	JitterFactor float64
}

// Backoff computes retry delays. It is stateless: the same attempt number
// always yields the same base delay, and instances are safe for concurrent
// use.
type Backoff struct {
	config BackoffConfig
}

// NewBackoff creates a backoff schedule with machine-scale defaults.
func NewBackoff(config BackoffConfig) *Backoff {
	if config.BaseDelay <= 0 {
		config.BaseDelay = 100 * time.Millisecond
	}
	if config.Multiplier < 1 {
		config.Multiplier = 2.0
	}
	if config.JitterFactor == 0 {
		config.JitterFactor = 0.1
	}
	if config.JitterFactor < 0 {
		config.JitterFactor = 0
	}
	if config.JitterFactor > 1 {
		config.JitterFactor = 1
	}

	return &Backoff{config: config}
}

// NewHumanBackoff creates a backoff schedule tuned for human responders:
// base delay of one minute, capped at one hour. Humans need minutes-to-hours
// of patience, not the milliseconds-to-seconds of machine retries. Fields
// set in config override individual defaults.
func NewHumanBackoff(config BackoffConfig) *Backoff {
	if config.BaseDelay <= 0 {
		config.BaseDelay = time.Minute
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = time.Hour
	}
	return NewBackoff(config)
}

// Delay returns the deterministic delay for the given 0-indexed attempt:
// min(BaseDelay * Multiplier^attempt, MaxDelay).
func (b *Backoff) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}

	scaled := float64(b.config.BaseDelay) * math.Pow(b.config.Multiplier, float64(attempt))
	delay := time.Duration(scaled)
	if scaled >= float64(math.MaxInt64) {
		delay = time.Duration(math.MaxInt64)
	}

	if b.config.MaxDelay > 0 && delay > b.config.MaxDelay {
		delay = b.config.MaxDelay
	}
	return delay
}

// DelayWithJitter returns Delay(attempt) perturbed by uniform random noise
// in ±(delay * JitterFactor), rounded to whole milliseconds. With a zero
// jitter factor it equals Delay(attempt) exactly.
func (b *Backoff) DelayWithJitter(attempt int) time.Duration {
	delay := b.Delay(attempt)
	if b.config.JitterFactor == 0 || delay <= 0 {
		return delay
	}

	span := float64(delay) * b.config.JitterFactor
	// #nosec G404 -- jitter is non-cryptographic timing variance.
	noise := (rand.Float64()*2 - 1) * span

	jittered := time.Duration(float64(delay) + noise).Round(time.Millisecond)
	if jittered < 0 {
		jittered = 0
	}
	return jittered
}

// Config returns the backoff configuration.
func (b *Backoff) Config() BackoffConfig {
	return b.config
}
