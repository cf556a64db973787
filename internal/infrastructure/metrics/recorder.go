// Package metrics records engine measurements through the OpenTelemetry meter API.
package metrics

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/TWankio2/lipaworld-orca/internal/infrastructure/metrics"

// Recorder implements port.DecisionMetrics.
type Recorder struct {
	decisions       metric.Int64Counter
	providerCalls   metric.Int64Counter
	limitChecks     metric.Int64Counter
	providerLatency metric.Float64Histogram
}

// NewRecorder creates the engine instruments on the given meter provider.
func NewRecorder(provider metric.MeterProvider) (*Recorder, error) {
	meter := provider.Meter(meterName)

	decisions, err := meter.Int64Counter("orca.decisions",
		metric.WithDescription("Final decisions by outcome."))
	if err != nil {
		return nil, fmt.Errorf("failed to create decisions counter: %w", err)
	}

	providerCalls, err := meter.Int64Counter("orca.provider.calls",
		metric.WithDescription("External risk provider calls by outcome."))
	if err != nil {
		return nil, fmt.Errorf("failed to create provider calls counter: %w", err)
	}

	limitChecks, err := meter.Int64Counter("orca.limit.checks",
		metric.WithDescription("Limit checks by result."))
	if err != nil {
		return nil, fmt.Errorf("failed to create limit checks counter: %w", err)
	}

	providerLatency, err := meter.Float64Histogram("orca.provider.latency",
		metric.WithDescription("External risk provider call latency."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.05, 0.1, 0.25, 0.5, 1, 2, 3, 5),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider latency histogram: %w", err)
	}

	return &Recorder{
		decisions:       decisions,
		providerCalls:   providerCalls,
		limitChecks:     limitChecks,
		providerLatency: providerLatency,
	}, nil
}

// DecisionMade counts a final decision.
func (r *Recorder) DecisionMade(ctx context.Context, decision string) {
	r.decisions.Add(ctx, 1, metric.WithAttributes(attribute.String("decision", decision)))
}

// ProviderCalled counts a provider call. Skipped and short-circuited calls carry no latency.
func (r *Recorder) ProviderCalled(ctx context.Context, outcome string, latency time.Duration) {
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	r.providerCalls.Add(ctx, 1, attrs)
	if latency > 0 {
		r.providerLatency.Record(ctx, latency.Seconds(), attrs)
	}
}

// LimitsChecked counts a limits check.
func (r *Recorder) LimitsChecked(ctx context.Context, result string) {
	r.limitChecks.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}
