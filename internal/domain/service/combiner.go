package service

import (
	"github.com/TWankio2/lipaworld-orca/internal/domain/model"
	"github.com/TWankio2/lipaworld-orca/internal/domain/valueobject"
)

// DecisionCombiner merges verdicts into a FinalDecision. It trusts its inputs
// to be well-formed verdicts and performs no validation.
type DecisionCombiner struct{}

// NewDecisionCombiner creates a new DecisionCombiner.
func NewDecisionCombiner() *DecisionCombiner {
	return &DecisionCombiner{}
}

// Combine takes the more restrictive decision and the higher score of the two
// verdicts. The level is derived again from the combined score. Reasons are the
// local reasons followed by the provider reasons, without deduplication.
func (c *DecisionCombiner) Combine(local, provider model.RiskVerdict) model.FinalDecision {
	reasons := make([]string, 0, len(local.Reasons())+len(provider.Reasons()))
	reasons = append(reasons, local.Reasons()...)
	reasons = append(reasons, provider.Reasons()...)

	decidedAt := local.EvaluatedAt()
	if provider.EvaluatedAt().After(decidedAt) {
		decidedAt = provider.EvaluatedAt()
	}

	return model.NewFinalDecision(
		valueobject.MaxDecision(local.Decision(), provider.Decision()),
		max(local.RiskScore(), provider.RiskScore()),
		reasons,
		model.Provenance{
			LocalCheckID:    local.CheckID(),
			ProviderCheckID: provider.CheckID(),
		},
		decidedAt,
	)
}

// Merge folds extra into base on the same side of a combination: the decision
// and score take the maximum, extra's reasons follow base's, and base's check
// ID and timestamp are kept.
func (c *DecisionCombiner) Merge(base, extra model.RiskVerdict) model.RiskVerdict {
	reasons := append(base.Reasons(), extra.Reasons()...)
	return model.NewRiskVerdict(
		valueobject.MaxDecision(base.Decision(), extra.Decision()),
		max(base.RiskScore(), extra.RiskScore()),
		reasons,
		base.CheckID(),
		base.EvaluatedAt(),
	)
}
