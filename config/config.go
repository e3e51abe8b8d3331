package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dispatchops/dispatchops/observe"
	"github.com/dispatchops/dispatchops/resilience"
	"github.com/dispatchops/dispatchops/route"
	"github.com/dispatchops/dispatchops/webhook"
)

var (
	ErrUnknownStrategy = errors.New("config: unknown balancer strategy")
	ErrNoWebhookEvents = errors.New("config: webhook events list is empty")
)

// Profile is the top-level dispatch configuration file.
type Profile struct {
	Resilience ResilienceSettings `yaml:"resilience"`
	Balancer   BalancerSettings   `yaml:"balancer"`
	Webhooks   WebhookSettings    `yaml:"webhooks"`
	Observe    ObserveSettings    `yaml:"observe"`
}

// ResilienceSettings configures retry, backoff, circuit breaking, and
// SLA tracking. Durations are Go duration strings.
type ResilienceSettings struct {
	MaxRetries int             `yaml:"max_retries"`
	Backoff    BackoffSettings `yaml:"backoff"`
	Breaker    BreakerSettings `yaml:"breaker"`
	SLA        SLASettings     `yaml:"sla"`
}

// BackoffSettings declares the exponential backoff schedule.
type BackoffSettings struct {
	BaseDelay    string  `yaml:"base_delay"`
	Multiplier   float64 `yaml:"multiplier"`
	MaxDelay     string  `yaml:"max_delay"`
	JitterFactor float64 `yaml:"jitter_factor"`
}

// BreakerSettings declares circuit breaker thresholds.
type BreakerSettings struct {
	FailureThreshold    int    `yaml:"failure_threshold"`
	ResetTimeout        string `yaml:"reset_timeout"`
	HalfOpenMaxAttempts int    `yaml:"half_open_max_attempts"`
}

// SLASettings declares deadline tracking, with optional per-priority
// tiers keyed by priority level.
type SLASettings struct {
	Deadline         string         `yaml:"deadline"`
	WarningThreshold string         `yaml:"warning_threshold"`
	SweepInterval    string         `yaml:"sweep_interval"`
	Tiers            map[int]string `yaml:"tiers"`
}

// BalancerSettings picks a routing strategy.
type BalancerSettings struct {
	Strategy string `yaml:"strategy"`
}

// WebhookSettings declares delivery behavior and hook registrations.
// URL and Secret values support strict ${VAR} environment expansion.
type WebhookSettings struct {
	MaxRetries             int            `yaml:"max_retries"`
	Timeout                string         `yaml:"timeout"`
	MaxDeadLetterQueueSize int            `yaml:"max_dead_letter_queue_size"`
	Batching               BatchSettings  `yaml:"batching"`
	Hooks                  []HookSettings `yaml:"hooks"`
}

// BatchSettings declares per-hook event batching.
type BatchSettings struct {
	Enabled      bool   `yaml:"enabled"`
	Window       string `yaml:"window"`
	MaxBatchSize int    `yaml:"max_batch_size"`
}

// HookSettings declares one webhook registration.
type HookSettings struct {
	ID          string   `yaml:"id"`
	URL         string   `yaml:"url"`
	Events      []string `yaml:"events"`
	Secret      string   `yaml:"secret"`
	Enabled     bool     `yaml:"enabled"`
	Description string   `yaml:"description"`
}

// ObserveSettings declares telemetry wiring.
type ObserveSettings struct {
	ServiceName     string  `yaml:"service_name"`
	TracingEnabled  bool    `yaml:"tracing_enabled"`
	TracingExporter string  `yaml:"tracing_exporter"`
	SamplePct       float64 `yaml:"sample_pct"`
	MetricsEnabled  bool    `yaml:"metrics_enabled"`
	MetricsExporter string  `yaml:"metrics_exporter"`
	LoggingEnabled  bool    `yaml:"logging_enabled"`
	LogLevel        string  `yaml:"log_level"`
}

// Load parses and validates a YAML profile from disk. ${VAR} references
// in webhook URLs and secrets are expanded from the environment; missing
// variables are an error.
func Load(path string) (Profile, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("config: read %q: %w", path, err)
	}
	return Parse(b)
}

// Parse parses and validates a YAML profile.
func Parse(b []byte) (Profile, error) {
	var p Profile
	if err := yaml.Unmarshal(b, &p); err != nil {
		return Profile{}, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := p.expand(); err != nil {
		return Profile{}, err
	}
	if err := p.Validate(); err != nil {
		return Profile{}, err
	}
	return p, nil
}

func (p *Profile) expand() error {
	for i := range p.Webhooks.Hooks {
		hook := &p.Webhooks.Hooks[i]

		url, err := ExpandEnvStrict(hook.URL)
		if err != nil {
			return fmt.Errorf("config: webhook %q url: %w", hook.ID, err)
		}
		hook.URL = url

		secret, err := ExpandEnvStrict(hook.Secret)
		if err != nil {
			return fmt.Errorf("config: webhook %q secret: %w", hook.ID, err)
		}
		hook.Secret = secret
	}
	return nil
}

var knownStrategies = map[string]bool{
	"":                          true,
	route.StrategyRoundRobin:    true,
	route.StrategyLeastBusy:     true,
	route.StrategyCapability:    true,
	route.StrategyPriorityQueue: true,
	route.StrategyRuleEngine:    true,
	route.StrategyComposite:     true,
}

// Validate enforces structural correctness before runtime.
func (p Profile) Validate() error {
	if !knownStrategies[p.Balancer.Strategy] {
		return fmt.Errorf("%w: %q", ErrUnknownStrategy, p.Balancer.Strategy)
	}

	durations := map[string]string{
		"resilience.backoff.base_delay":    p.Resilience.Backoff.BaseDelay,
		"resilience.backoff.max_delay":     p.Resilience.Backoff.MaxDelay,
		"resilience.breaker.reset_timeout": p.Resilience.Breaker.ResetTimeout,
		"resilience.sla.deadline":          p.Resilience.SLA.Deadline,
		"resilience.sla.warning_threshold": p.Resilience.SLA.WarningThreshold,
		"resilience.sla.sweep_interval":    p.Resilience.SLA.SweepInterval,
		"webhooks.timeout":                 p.Webhooks.Timeout,
		"webhooks.batching.window":         p.Webhooks.Batching.Window,
	}
	for field, value := range durations {
		if value == "" {
			continue
		}
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("config: invalid %s: %w", field, err)
		}
	}
	for priority, deadline := range p.Resilience.SLA.Tiers {
		if priority < route.MinPriority || priority > route.MaxPriority {
			return fmt.Errorf("config: sla tier priority %d out of range [%d, %d]",
				priority, route.MinPriority, route.MaxPriority)
		}
		if _, err := time.ParseDuration(deadline); err != nil {
			return fmt.Errorf("config: invalid sla tier %d deadline: %w", priority, err)
		}
	}

	seen := make(map[string]struct{}, len(p.Webhooks.Hooks))
	for _, hook := range p.Webhooks.Hooks {
		if len(hook.Events) == 0 {
			return fmt.Errorf("%w: webhook %q", ErrNoWebhookEvents, hook.ID)
		}
		if hook.ID != "" {
			if _, dup := seen[hook.ID]; dup {
				return fmt.Errorf("config: duplicate webhook id %q", hook.ID)
			}
			seen[hook.ID] = struct{}{}
		}
	}

	obs := p.Observe.ObserveConfig()
	if obs.ServiceName != "" || p.Observe.TracingEnabled || p.Observe.MetricsEnabled || p.Observe.LoggingEnabled {
		if obs.ServiceName == "" {
			obs.ServiceName = "dispatchops"
		}
		if err := obs.Validate(); err != nil {
			return fmt.Errorf("config: observe: %w", err)
		}
	}
	return nil
}

// parseDuration returns the parsed duration or zero for an empty string.
// Validate has already rejected malformed values.
func parseDuration(s string) time.Duration {
	if s == "" {
		return 0
	}
	d, _ := time.ParseDuration(s)
	return d
}

// BackoffConfig materializes the backoff schedule. Zero-value fields
// fall back to resilience defaults.
func (s ResilienceSettings) BackoffConfig() resilience.BackoffConfig {
	return resilience.BackoffConfig{
		BaseDelay:    parseDuration(s.Backoff.BaseDelay),
		Multiplier:   s.Backoff.Multiplier,
		MaxDelay:     parseDuration(s.Backoff.MaxDelay),
		JitterFactor: s.Backoff.JitterFactor,
	}
}

// BreakerConfig materializes circuit breaker settings.
func (s ResilienceSettings) BreakerConfig() resilience.BreakerConfig {
	return resilience.BreakerConfig{
		FailureThreshold:    s.Breaker.FailureThreshold,
		ResetTimeout:        parseDuration(s.Breaker.ResetTimeout),
		HalfOpenMaxAttempts: s.Breaker.HalfOpenMaxAttempts,
	}
}

// SLAConfig materializes SLA tracker settings including priority tiers.
func (s ResilienceSettings) SLAConfig() resilience.SLAConfig {
	cfg := resilience.SLAConfig{
		Deadline:         parseDuration(s.SLA.Deadline),
		WarningThreshold: parseDuration(s.SLA.WarningThreshold),
		SweepInterval:    parseDuration(s.SLA.SweepInterval),
	}
	if len(s.SLA.Tiers) > 0 {
		cfg.Tiers = make(map[int]resilience.SLATier, len(s.SLA.Tiers))
		for priority, deadline := range s.SLA.Tiers {
			cfg.Tiers[priority] = resilience.SLATier{Deadline: parseDuration(deadline)}
		}
	}
	return cfg
}

// RegistryConfig materializes webhook delivery settings. Hook
// registrations are applied separately via Hooks.
func (s WebhookSettings) RegistryConfig() webhook.RegistryConfig {
	return webhook.RegistryConfig{
		MaxRetries:             s.MaxRetries,
		Timeout:                parseDuration(s.Timeout),
		MaxDeadLetterQueueSize: s.MaxDeadLetterQueueSize,
		Batching: webhook.BatchConfig{
			Enabled:      s.Batching.Enabled,
			Window:       parseDuration(s.Batching.Window),
			MaxBatchSize: s.Batching.MaxBatchSize,
		},
	}
}

// HookConfigs materializes the declared webhook registrations.
func (s WebhookSettings) HookConfigs() []webhook.Hook {
	hooks := make([]webhook.Hook, 0, len(s.Hooks))
	for _, h := range s.Hooks {
		hooks = append(hooks, webhook.Hook{
			ID:          h.ID,
			URL:         h.URL,
			Events:      h.Events,
			Secret:      h.Secret,
			Enabled:     h.Enabled,
			Description: h.Description,
		})
	}
	return hooks
}

// ObserveConfig materializes telemetry settings.
func (s ObserveSettings) ObserveConfig() observe.Config {
	return observe.Config{
		ServiceName: s.ServiceName,
		Tracing: observe.TracingConfig{
			Enabled:   s.TracingEnabled,
			Exporter:  s.TracingExporter,
			SamplePct: s.SamplePct,
		},
		Metrics: observe.MetricsConfig{
			Enabled:  s.MetricsEnabled,
			Exporter: s.MetricsExporter,
		},
		Logging: observe.LoggingConfig{
			Enabled: s.LoggingEnabled,
			Level:   s.LogLevel,
		},
	}
}

// NewBalancer builds the configured routing strategy with the given
// collector. An empty strategy defaults to round-robin.
func (p Profile) NewBalancer(collector *observe.Collector) (route.Balancer, error) {
	switch p.Balancer.Strategy {
	case "", route.StrategyRoundRobin:
		return route.NewRoundRobin(route.RoundRobinConfig{Collector: collector}), nil
	case route.StrategyLeastBusy:
		return route.NewLeastBusy(route.LeastBusyConfig{Collector: collector}), nil
	case route.StrategyCapability:
		return route.NewCapability(route.CapabilityConfig{Collector: collector}), nil
	case route.StrategyPriorityQueue:
		return route.NewPriorityQueue(route.PriorityQueueConfig{Collector: collector}), nil
	case route.StrategyRuleEngine:
		return route.NewRuleEngine(route.RuleEngineConfig{Collector: collector}), nil
	case route.StrategyComposite:
		// Composite needs sub-strategies and weights; build it with
		// route.NewComposite directly.
		return nil, errors.New("config: composite strategy requires programmatic construction")
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, p.Balancer.Strategy)
	}
}
