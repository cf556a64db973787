package port

import (
	"context"
	"time"
)

// Provider call outcomes reported to DecisionMetrics.
const (
	ProviderOutcomeOK          = "ok"
	ProviderOutcomeMalformed   = "malformed"
	ProviderOutcomeError       = "error"
	ProviderOutcomeTimeout     = "timeout"
	ProviderOutcomeCircuitOpen = "circuit_open"
	ProviderOutcomeSkipped     = "skipped"
)

// DecisionMetrics records engine-level measurements.
type DecisionMetrics interface {
	DecisionMade(ctx context.Context, decision string)
	ProviderCalled(ctx context.Context, outcome string, latency time.Duration)
	LimitsChecked(ctx context.Context, result string)
}
