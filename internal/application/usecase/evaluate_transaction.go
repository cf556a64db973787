package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/TWankio2/lipaworld-orca/internal/application/dto"
	"github.com/TWankio2/lipaworld-orca/internal/domain/model"
	"github.com/TWankio2/lipaworld-orca/internal/domain/port"
	"github.com/TWankio2/lipaworld-orca/internal/domain/service"
)

const tracerName = "github.com/TWankio2/lipaworld-orca/internal/application/usecase"

// ErrInvariantViolation is returned when an evaluator produces a malformed
// verdict. It indicates a programming error and is never coerced into a decision.
var ErrInvariantViolation = errors.New("risk verdict invariant violated")

// Limit check results reported to DecisionMetrics.
const (
	limitsWithin   = "within"
	limitsExceeded = "exceeded"
	limitsDegraded = "degraded"
)

// EngineSettings controls the orchestration choices of the engine.
type EngineSettings struct {
	// ProviderTimeout bounds each provider call.
	ProviderTimeout time.Duration
	// ShortCircuitOnBlock skips the provider when local rules or limits already block.
	ShortCircuitOnBlock bool
	// AuditShortCircuited persists and publishes decisions made without the provider.
	AuditShortCircuited bool
	// ReserveLimitsOnAllow counts an allowed transaction against the user's
	// limits at decision time instead of waiting for RecordCompleted.
	ReserveLimitsOnAllow bool
}

// EvaluationServices groups the domain services the engine orchestrates.
type EvaluationServices struct {
	Rules      *service.RuleEvaluator
	Limits     *service.LimitsTracker
	Normalizer *service.Normalizer
	Combiner   *service.DecisionCombiner
}

// EvaluateTransaction is the use case that produces a FinalDecision for a transaction.
type EvaluateTransaction struct {
	services  EvaluationServices
	provider  port.ProviderClient
	repo      port.DecisionRepository
	publisher port.EventPublisher
	metrics   port.DecisionMetrics
	tracer    trace.Tracer
	logger    *slog.Logger
	settings  EngineSettings
}

// NewEvaluateTransaction creates a new EvaluateTransaction use case.
func NewEvaluateTransaction(
	services EvaluationServices,
	provider port.ProviderClient,
	repo port.DecisionRepository,
	publisher port.EventPublisher,
	metrics port.DecisionMetrics,
	settings EngineSettings,
	logger *slog.Logger,
) *EvaluateTransaction {
	return &EvaluateTransaction{
		services:  services,
		provider:  provider,
		repo:      repo,
		publisher: publisher,
		metrics:   metrics,
		tracer:    otel.Tracer(tracerName),
		logger:    logger,
		settings:  settings,
	}
}

// Execute evaluates the transaction. Provider and limits-store failures
// degrade to ALLOW with a diagnostic reason; only invalid input and invariant
// violations are returned as errors.
func (uc *EvaluateTransaction) Execute(ctx context.Context, req dto.EvaluateTransactionRequest) (dto.DecisionResponse, error) {
	// 1. Build and validate the domain request.
	txn, err := req.ToModel()
	if err != nil {
		return dto.DecisionResponse{}, fmt.Errorf("failed to build transaction request: %w", err)
	}

	ctx, span := uc.tracer.Start(ctx, "EvaluateTransaction", trace.WithAttributes(
		attribute.String("transaction_id", txn.TransactionID()),
		attribute.String("provider", txn.Provider().String()),
	))
	defer span.End()

	// 2. Run the local rules.
	local := uc.services.Rules.Evaluate(txn)
	if err := uc.checkVerdict(txn, "local", local); err != nil {
		return dto.DecisionResponse{}, err
	}

	// 3. Check the user's limits and fold the result into the local side.
	limitsVerdict, results := uc.checkLimits(ctx, txn)
	if err := uc.checkVerdict(txn, "limits", limitsVerdict); err != nil {
		return dto.DecisionResponse{}, err
	}
	local = uc.services.Combiner.Merge(local, limitsVerdict)

	outcome := model.EvaluationOutcome{
		LimitsCheckID:  limitsVerdict.CheckID(),
		LimitsDegraded: anyDegraded(results),
	}

	// 4. Consult the provider unless the local side already blocks.
	var providerVerdict model.RiskVerdict
	if uc.settings.ShortCircuitOnBlock && local.Decision().IsBlock() {
		providerVerdict = uc.services.Normalizer.Skipped()
		outcome.ProviderSkipped = true
		uc.metrics.ProviderCalled(ctx, port.ProviderOutcomeSkipped, 0)
	} else {
		providerVerdict = uc.consultProvider(ctx, txn)
		if err := uc.checkVerdict(txn, "provider", providerVerdict); err != nil {
			return dto.DecisionResponse{}, err
		}
		outcome.ProviderDegraded = strings.HasPrefix(providerVerdict.CheckID(), service.CheckIDPrefixFallback)
	}

	// 5. Combine.
	final := uc.services.Combiner.Combine(local, providerVerdict)

	// 6. Reserve the amount against the user's limits.
	if uc.settings.ReserveLimitsOnAllow && final.Decision().IsAllow() {
		final = uc.reserve(ctx, txn, final, &outcome)
	}

	uc.metrics.DecisionMade(ctx, final.Decision().String())
	span.SetAttributes(
		attribute.String("decision", final.Decision().String()),
		attribute.Int("risk_score", final.RiskScore()),
	)

	uc.logger.Info("transaction evaluated",
		slog.String("transaction_id", txn.TransactionID()),
		slog.String("user_id", txn.UserID()),
		slog.String("decision", final.Decision().String()),
		slog.Int("risk_score", final.RiskScore()),
		slog.Bool("provider_skipped", outcome.ProviderSkipped),
	)

	// 7. Persist the audit record and publish events.
	recordID := ""
	if !outcome.ProviderSkipped || uc.settings.AuditShortCircuited {
		recordID = uc.audit(ctx, txn, final, outcome)
	}

	return dto.FromFinal(txn, final, outcome, recordID), nil
}

func (uc *EvaluateTransaction) checkLimits(ctx context.Context, txn model.TransactionRequest) (model.RiskVerdict, []model.LimitsResult) {
	ctx, span := uc.tracer.Start(ctx, "LimitsTracker.Check")
	defer span.End()

	verdict, results := uc.services.Limits.Check(ctx, txn.UserID(), txn.Amount())

	result := limitsWithin
	switch {
	case anyDegraded(results):
		result = limitsDegraded
	case verdict.Decision().IsBlock():
		result = limitsExceeded
	}
	uc.metrics.LimitsChecked(ctx, result)
	span.SetAttributes(attribute.String("result", result))

	return verdict, results
}

func (uc *EvaluateTransaction) consultProvider(ctx context.Context, txn model.TransactionRequest) model.RiskVerdict {
	ctx, span := uc.tracer.Start(ctx, "ProviderClient.CheckTransaction")
	defer span.End()

	callCtx, cancel := context.WithTimeout(ctx, uc.settings.ProviderTimeout)
	defer cancel()

	start := time.Now()
	body, err := uc.provider.CheckTransaction(callCtx, providerPayload(txn))
	latency := time.Since(start)

	if err != nil {
		outcome := port.ProviderOutcomeError
		switch {
		case errors.Is(err, port.ErrCircuitOpen):
			outcome = port.ProviderOutcomeCircuitOpen
		case errors.Is(err, context.DeadlineExceeded):
			outcome = port.ProviderOutcomeTimeout
		}
		uc.metrics.ProviderCalled(ctx, outcome, latency)
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, outcome)

		uc.logger.Warn("risk provider unavailable, failing open",
			slog.String("transaction_id", txn.TransactionID()),
			slog.String("outcome", outcome),
			slog.String("error", err.Error()),
		)
		return uc.services.Normalizer.Normalize(service.ProviderFailure{Err: err})
	}

	verdict := uc.services.Normalizer.Normalize(service.ProviderReply{Body: body})
	if !strings.HasPrefix(verdict.CheckID(), service.CheckIDPrefixFallback) {
		uc.metrics.ProviderCalled(ctx, port.ProviderOutcomeOK, latency)
		return verdict
	}

	uc.metrics.ProviderCalled(ctx, port.ProviderOutcomeMalformed, latency)
	span.SetStatus(otelcodes.Error, port.ProviderOutcomeMalformed)
	uc.logger.Warn("risk provider returned an unreadable response, failing open",
		slog.String("transaction_id", txn.TransactionID()),
		slog.Int("body_bytes", len(body)),
	)
	return verdict
}

// reserve admits the transaction against the user's limits. A lost race
// escalates the decision to BLOCK; a store failure keeps the decision.
func (uc *EvaluateTransaction) reserve(
	ctx context.Context,
	txn model.TransactionRequest,
	final model.FinalDecision,
	outcome *model.EvaluationOutcome,
) model.FinalDecision {
	entry := model.LimitEntry{
		TransactionID: txn.TransactionID(),
		Amount:        txn.Amount().Amount(),
		Currency:      txn.Currency(),
		OccurredAt:    time.Now().UTC(),
	}

	admitted, _, err := uc.services.Limits.Admit(ctx, txn.UserID(), entry)
	if err != nil {
		uc.logger.Warn("failed to reserve limits, failing open",
			slog.String("transaction_id", txn.TransactionID()),
			slog.String("error", err.Error()),
		)
		outcome.LimitsDegraded = true
		return final
	}
	if !admitted.Decision().IsBlock() {
		return final
	}

	for _, reason := range admitted.Reasons() {
		final = final.Escalate(admitted.Decision(), admitted.RiskScore(), reason)
	}
	return final
}

func (uc *EvaluateTransaction) audit(
	ctx context.Context,
	txn model.TransactionRequest,
	final model.FinalDecision,
	outcome model.EvaluationOutcome,
) string {
	record := model.NewDecisionRecord(txn, final, outcome)

	if err := uc.repo.Save(ctx, record); err != nil {
		uc.logger.Error("failed to save decision record",
			slog.String("transaction_id", txn.TransactionID()),
			slog.String("error", err.Error()),
		)
		return ""
	}

	evts := record.ClearEvents()
	if len(evts) > 0 {
		if err := uc.publisher.Publish(ctx, evts...); err != nil {
			uc.logger.Error("failed to publish decision events",
				slog.String("transaction_id", txn.TransactionID()),
				slog.String("decision_id", record.ID().String()),
				slog.String("error", err.Error()),
			)
		}
	}
	return record.ID().String()
}

func (uc *EvaluateTransaction) checkVerdict(txn model.TransactionRequest, source string, v model.RiskVerdict) error {
	if err := v.Validate(); err != nil {
		uc.logger.Error("evaluator produced an invalid verdict",
			slog.String("transaction_id", txn.TransactionID()),
			slog.String("source", source),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("%w: %s: %v", ErrInvariantViolation, source, err)
	}
	return nil
}

func providerPayload(txn model.TransactionRequest) port.ProviderPayload {
	return port.ProviderPayload{
		TransactionID: txn.TransactionID(),
		UserID:        txn.UserID(),
		Amount:        txn.Amount().Amount().String(),
		Currency:      txn.Currency(),
		Direction:     txn.Direction().String(),
		Provider:      txn.Provider().String(),
		PaymentMethod: txn.PaymentMethod(),
		Metadata:      txn.Metadata(),
	}
}

func anyDegraded(results []model.LimitsResult) bool {
	for _, r := range results {
		if r.Degraded {
			return true
		}
	}
	return false
}
