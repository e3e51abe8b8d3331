package config

import (
	"errors"
	"testing"
	"time"

	"github.com/dispatchops/dispatchops/route"
)

const sampleProfile = `
resilience:
  max_retries: 5
  backoff:
    base_delay: 200ms
    multiplier: 2.5
    max_delay: 1m
  breaker:
    failure_threshold: 4
    reset_timeout: 45s
    half_open_max_attempts: 2
  sla:
    deadline: 10m
    warning_threshold: 2m
    sweep_interval: 5s
    tiers:
      9: 1m
      5: 5m
balancer:
  strategy: least-busy
webhooks:
  max_retries: 2
  timeout: 15s
  max_dead_letter_queue_size: 50
  batching:
    enabled: true
    window: 3s
    max_batch_size: 20
  hooks:
    - id: hook-1
      url: https://hooks.example.com/dispatch
      events: [task.completed, task.failed]
      secret: s3cret
      enabled: true
observe:
  service_name: dispatch-test
  logging_enabled: true
  log_level: info
`

func TestParseProfile(t *testing.T) {
	p, err := Parse([]byte(sampleProfile))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if p.Resilience.MaxRetries != 5 {
		t.Errorf("MaxRetries = %d, want 5", p.Resilience.MaxRetries)
	}
	if p.Balancer.Strategy != route.StrategyLeastBusy {
		t.Errorf("Strategy = %q, want %q", p.Balancer.Strategy, route.StrategyLeastBusy)
	}

	backoff := p.Resilience.BackoffConfig()
	if backoff.BaseDelay != 200*time.Millisecond {
		t.Errorf("BaseDelay = %v, want 200ms", backoff.BaseDelay)
	}
	if backoff.Multiplier != 2.5 {
		t.Errorf("Multiplier = %v, want 2.5", backoff.Multiplier)
	}

	breaker := p.Resilience.BreakerConfig()
	if breaker.FailureThreshold != 4 {
		t.Errorf("FailureThreshold = %d, want 4", breaker.FailureThreshold)
	}
	if breaker.ResetTimeout != 45*time.Second {
		t.Errorf("ResetTimeout = %v, want 45s", breaker.ResetTimeout)
	}

	sla := p.Resilience.SLAConfig()
	if sla.Deadline != 10*time.Minute {
		t.Errorf("Deadline = %v, want 10m", sla.Deadline)
	}
	if got := sla.Tiers[9].Deadline; got != time.Minute {
		t.Errorf("tier 9 deadline = %v, want 1m", got)
	}

	registry := p.Webhooks.RegistryConfig()
	if registry.MaxRetries != 2 {
		t.Errorf("webhook MaxRetries = %d, want 2", registry.MaxRetries)
	}
	if !registry.Batching.Enabled || registry.Batching.Window != 3*time.Second {
		t.Errorf("Batching = %+v, want enabled with 3s window", registry.Batching)
	}

	hooks := p.Webhooks.HookConfigs()
	if len(hooks) != 1 {
		t.Fatalf("hooks = %d, want 1", len(hooks))
	}
	if hooks[0].URL != "https://hooks.example.com/dispatch" {
		t.Errorf("hook URL = %q", hooks[0].URL)
	}
	if len(hooks[0].Events) != 2 {
		t.Errorf("hook events = %d, want 2", len(hooks[0].Events))
	}

	obs := p.Observe.ObserveConfig()
	if obs.ServiceName != "dispatch-test" {
		t.Errorf("ServiceName = %q, want dispatch-test", obs.ServiceName)
	}
	if !obs.Logging.Enabled || obs.Logging.Level != "info" {
		t.Errorf("Logging = %+v, want enabled at info", obs.Logging)
	}
}

func TestParseExpandsWebhookEnv(t *testing.T) {
	t.Setenv("HOOK_HOST", "hooks.example.com")
	t.Setenv("HOOK_SECRET", "expanded-secret")

	p, err := Parse([]byte(`
webhooks:
  hooks:
    - id: hook-1
      url: https://${HOOK_HOST}/dispatch
      events: [task.completed]
      secret: ${HOOK_SECRET}
`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	hook := p.Webhooks.Hooks[0]
	if hook.URL != "https://hooks.example.com/dispatch" {
		t.Errorf("URL = %q, want expanded host", hook.URL)
	}
	if hook.Secret != "expanded-secret" {
		t.Errorf("Secret = %q, want expanded secret", hook.Secret)
	}
}

func TestParseMissingEnvFails(t *testing.T) {
	_, err := Parse([]byte(`
webhooks:
  hooks:
    - id: hook-1
      url: https://example.com/hook
      events: [task.completed]
      secret: ${DISPATCH_CONFIG_TEST_MISSING}
`))
	if err == nil {
		t.Fatal("Parse() succeeded with missing environment variable")
	}
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want error
	}{
		{
			name: "unknown strategy",
			yaml: "balancer:\n  strategy: random\n",
			want: ErrUnknownStrategy,
		},
		{
			name: "webhook without events",
			yaml: "webhooks:\n  hooks:\n    - id: hook-1\n      url: https://example.com\n",
			want: ErrNoWebhookEvents,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if !errors.Is(err, tt.want) {
				t.Errorf("Parse() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestValidateRejectsBadDurations(t *testing.T) {
	_, err := Parse([]byte("resilience:\n  backoff:\n    base_delay: soon\n"))
	if err == nil {
		t.Fatal("Parse() accepted invalid duration")
	}
}

func TestValidateRejectsTierOutOfRange(t *testing.T) {
	_, err := Parse([]byte("resilience:\n  sla:\n    tiers:\n      11: 1m\n"))
	if err == nil {
		t.Fatal("Parse() accepted out-of-range tier priority")
	}
}

func TestValidateDuplicateHookIDs(t *testing.T) {
	_, err := Parse([]byte(`
webhooks:
  hooks:
    - id: hook-1
      url: https://example.com/a
      events: [task.completed]
    - id: hook-1
      url: https://example.com/b
      events: [task.completed]
`))
	if err == nil {
		t.Fatal("Parse() accepted duplicate hook ids")
	}
}

func TestNewBalancer(t *testing.T) {
	strategies := []string{
		"",
		route.StrategyRoundRobin,
		route.StrategyLeastBusy,
		route.StrategyCapability,
		route.StrategyPriorityQueue,
		route.StrategyRuleEngine,
	}

	for _, strategy := range strategies {
		p := Profile{Balancer: BalancerSettings{Strategy: strategy}}
		balancer, err := p.NewBalancer(nil)
		if err != nil {
			t.Errorf("NewBalancer(%q) error = %v", strategy, err)
			continue
		}
		if balancer == nil {
			t.Errorf("NewBalancer(%q) = nil", strategy)
		}
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/dispatch.yaml"); err == nil {
		t.Fatal("Load() succeeded for missing file")
	}
}
