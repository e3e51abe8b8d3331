package observe

import (
	"context"
	"errors"
	"testing"
)

// TestConfigValidate_Valid verifies a fully valid config passes.
func TestConfigValidate_Valid(t *testing.T) {
	cfg := Config{
		ServiceName: "dispatch-test",
		Version:     "1.0.0",
		Tracing: TracingConfig{
			Enabled:   true,
			Exporter:  "stdout",
			SamplePct: 1.0,
		},
		Metrics: MetricsConfig{
			Enabled:  true,
			Exporter: "stdout",
		},
		Logging: LoggingConfig{
			Enabled: true,
			Level:   "info",
		},
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("expected nil error, got: %v", err)
	}
}

// TestConfigValidate_MissingServiceName verifies empty ServiceName fails.
func TestConfigValidate_MissingServiceName(t *testing.T) {
	cfg := Config{}

	if err := cfg.Validate(); !errors.Is(err, ErrMissingServiceName) {
		t.Errorf("expected ErrMissingServiceName, got: %v", err)
	}
}

// TestConfigValidate_BadExporters verifies unknown exporters fail.
func TestConfigValidate_BadExporters(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want error
	}{
		{
			name: "bad tracing exporter",
			cfg: Config{
				ServiceName: "s",
				Tracing:     TracingConfig{Enabled: true, Exporter: "jaeger"},
			},
			want: ErrInvalidTracingExporter,
		},
		{
			name: "bad metrics exporter",
			cfg: Config{
				ServiceName: "s",
				Metrics:     MetricsConfig{Enabled: true, Exporter: "statsd"},
			},
			want: ErrInvalidMetricsExporter,
		},
		{
			name: "bad log level",
			cfg: Config{
				ServiceName: "s",
				Logging:     LoggingConfig{Enabled: true, Level: "verbose"},
			},
			want: ErrInvalidLogLevel,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got: %v", tt.want, err)
			}
		})
	}
}

// TestConfigValidate_SamplePctBounds verifies the sample percentage range.
func TestConfigValidate_SamplePctBounds(t *testing.T) {
	for _, pct := range []float64{-0.1, 1.1} {
		cfg := Config{
			ServiceName: "s",
			Tracing:     TracingConfig{Enabled: true, Exporter: "stdout", SamplePct: pct},
		}
		if err := cfg.Validate(); !errors.Is(err, ErrInvalidSamplePct) {
			t.Errorf("SamplePct %v: expected ErrInvalidSamplePct, got: %v", pct, err)
		}
	}
}

// TestNewObserver_Disabled verifies an all-disabled observer still yields
// working noop primitives.
func TestNewObserver_Disabled(t *testing.T) {
	obs, err := NewObserver(context.Background(), Config{ServiceName: "dispatch-test"})
	if err != nil {
		t.Fatalf("NewObserver() error = %v", err)
	}
	defer obs.Shutdown(context.Background())

	if obs.Tracer() == nil {
		t.Error("Tracer() = nil")
	}
	if obs.Meter() == nil {
		t.Error("Meter() = nil")
	}
	if obs.Logger() == nil {
		t.Error("Logger() = nil")
	}

	// Noop primitives must be usable without panicking.
	_, span := obs.Tracer().Start(context.Background(), "test")
	span.End()
	obs.Logger().Info(context.Background(), "noop")
}

// TestNewObserver_StdoutExporters verifies the stdout pipeline wires up.
func TestNewObserver_StdoutExporters(t *testing.T) {
	obs, err := NewObserver(context.Background(), Config{
		ServiceName: "dispatch-test",
		Tracing:     TracingConfig{Enabled: true, Exporter: "none", SamplePct: 1.0},
		Metrics:     MetricsConfig{Enabled: true, Exporter: "none"},
		Logging:     LoggingConfig{Enabled: true, Level: "error"},
	})
	if err != nil {
		t.Fatalf("NewObserver() error = %v", err)
	}

	if err := obs.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
	// Shutdown is idempotent.
	if err := obs.Shutdown(context.Background()); err != nil {
		t.Errorf("second Shutdown() error = %v", err)
	}
}

// TestNewObserver_InvalidConfig verifies construction fails fast.
func TestNewObserver_InvalidConfig(t *testing.T) {
	if _, err := NewObserver(context.Background(), Config{}); err == nil {
		t.Fatal("expected error for empty config, got nil")
	}
}

// TestNewNoopLogger verifies the exported noop logger is inert and chainable.
func TestNewNoopLogger(t *testing.T) {
	logger := NewNoopLogger()
	derived := logger.WithComponent("route")

	derived.Info(context.Background(), "nothing happens")
	derived.Error(context.Background(), "still nothing")
}
