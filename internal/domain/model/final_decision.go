package model

import (
	"slices"
	"time"

	"github.com/TWankio2/lipaworld-orca/internal/domain/valueobject"
)

// Provenance references the verdicts that contributed to a FinalDecision.
type Provenance struct {
	LocalCheckID    string
	ProviderCheckID string
}

// FinalDecision is the merged outcome of the local and provider verdicts.
type FinalDecision struct {
	decidedAt  time.Time
	decision   valueobject.Decision
	riskLevel  valueobject.RiskLevel
	provenance Provenance
	reasons    []string
	riskScore  int
}

// NewFinalDecision creates a FinalDecision, deriving the risk level from the score.
func NewFinalDecision(
	decision valueobject.Decision,
	riskScore int,
	reasons []string,
	provenance Provenance,
	decidedAt time.Time,
) FinalDecision {
	return FinalDecision{
		decision:   decision,
		riskScore:  riskScore,
		riskLevel:  valueobject.RiskLevelFromScore(riskScore),
		reasons:    slices.Clone(reasons),
		provenance: provenance,
		decidedAt:  decidedAt,
	}
}

// Escalate returns a copy raised to at least the given decision and score,
// with reason appended. Provenance is kept.
func (d FinalDecision) Escalate(decision valueobject.Decision, score int, reason string) FinalDecision {
	reasons := append(slices.Clone(d.reasons), reason)
	return NewFinalDecision(
		valueobject.MaxDecision(d.decision, decision),
		max(d.riskScore, score),
		reasons,
		d.provenance,
		d.decidedAt,
	)
}

// --- Accessors ---

func (d FinalDecision) Decision() valueobject.Decision   { return d.decision }
func (d FinalDecision) RiskScore() int                   { return d.riskScore }
func (d FinalDecision) RiskLevel() valueobject.RiskLevel { return d.riskLevel }
func (d FinalDecision) Provenance() Provenance           { return d.provenance }
func (d FinalDecision) DecidedAt() time.Time             { return d.decidedAt }

// Reasons returns a copy of the ordered reason list.
func (d FinalDecision) Reasons() []string {
	return slices.Clone(d.reasons)
}
