package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records dispatch execution metrics.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordRoute records one routing decision.
	RecordRoute(ctx context.Context, strategy string, matched bool)

	// RecordDelivery records one webhook delivery attempt with its
	// duration.
	RecordDelivery(ctx context.Context, success bool, duration time.Duration)

	// RecordRetry records one retry of a named component's operation.
	RecordRetry(ctx context.Context, component string)
}

type metricsImpl struct {
	meter         metric.Meter
	routeCount    metric.Int64Counter
	deliveryCount metric.Int64Counter
	deliveryHist  metric.Float64Histogram
	retryCount    metric.Int64Counter
}

// NewMetrics creates a Metrics instance backed by the given meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	routeCount, err := meter.Int64Counter(
		"dispatch.route.total",
		metric.WithDescription("Total number of routing decisions"),
		metric.WithUnit("{route}"),
	)
	if err != nil {
		return nil, err
	}

	deliveryCount, err := meter.Int64Counter(
		"dispatch.delivery.total",
		metric.WithDescription("Total number of webhook delivery attempts"),
		metric.WithUnit("{delivery}"),
	)
	if err != nil {
		return nil, err
	}

	deliveryHist, err := meter.Float64Histogram(
		"dispatch.delivery.duration_ms",
		metric.WithDescription("Webhook delivery duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	retryCount, err := meter.Int64Counter(
		"dispatch.retry.total",
		metric.WithDescription("Total number of retried operations"),
		metric.WithUnit("{retry}"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		meter:         meter,
		routeCount:    routeCount,
		deliveryCount: deliveryCount,
		deliveryHist:  deliveryHist,
		retryCount:    retryCount,
	}, nil
}

func (m *metricsImpl) RecordRoute(ctx context.Context, strategy string, matched bool) {
	m.routeCount.Add(ctx, 1, metric.WithAttributes(
		attribute.String("dispatch.strategy", strategy),
		attribute.Bool("dispatch.matched", matched),
	))
}

func (m *metricsImpl) RecordDelivery(ctx context.Context, success bool, duration time.Duration) {
	opt := metric.WithAttributes(attribute.Bool("dispatch.success", success))
	m.deliveryCount.Add(ctx, 1, opt)
	m.deliveryHist.Record(ctx, float64(duration.Milliseconds()), opt)
}

func (m *metricsImpl) RecordRetry(ctx context.Context, component string) {
	m.retryCount.Add(ctx, 1, metric.WithAttributes(
		attribute.String("dispatch.component", component),
	))
}

// NoopMetrics returns a Metrics implementation that records nothing.
func NoopMetrics() Metrics {
	return &noopMetrics{}
}

type noopMetrics struct{}

func (m *noopMetrics) RecordRoute(ctx context.Context, strategy string, matched bool)           {}
func (m *noopMetrics) RecordDelivery(ctx context.Context, success bool, duration time.Duration) {}
func (m *noopMetrics) RecordRetry(ctx context.Context, component string)                        {}
