// Package observe provides telemetry for dispatch components: structured
// logging, OpenTelemetry tracing and metrics, and lightweight in-process
// counters.
//
// # Observer
//
// Observer wires a tracer, meter, and logger from one Config:
//
//	obs, err := observe.NewObserver(ctx, observe.Config{
//	    ServiceName: "dispatchops",
//	    Metrics:     observe.MetricsConfig{Enabled: true, Exporter: "prometheus"},
//	    Logging:     observe.LoggingConfig{Enabled: true, Level: "info"},
//	})
//	defer obs.Shutdown(ctx)
//
// # Collector
//
// Collector is the counter set balancers and the webhook registry report
// into. Collectors are always passed explicitly; there is no package-level
// default instance. One collector per component isolates counts, while
// passing the same instance to several components aggregates them:
//
//	collector := observe.NewCollector()
//	balancer := route.NewRoundRobin(route.RoundRobinConfig{Collector: collector})
package observe
