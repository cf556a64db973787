package model

import (
	"fmt"
	"slices"
	"time"

	"github.com/TWankio2/lipaworld-orca/internal/domain/valueobject"
)

// RiskVerdict is the canonical decision unit produced by any evaluator.
// The risk level is derived from the score and cannot be set independently.
type RiskVerdict struct {
	evaluatedAt time.Time
	decision    valueobject.Decision
	riskLevel   valueobject.RiskLevel
	checkID     string
	reasons     []string
	riskScore   int
}

// NewRiskVerdict creates a verdict, deriving the risk level from the score.
func NewRiskVerdict(
	decision valueobject.Decision,
	riskScore int,
	reasons []string,
	checkID string,
	evaluatedAt time.Time,
) RiskVerdict {
	return RiskVerdict{
		decision:    decision,
		riskScore:   riskScore,
		riskLevel:   valueobject.RiskLevelFromScore(riskScore),
		reasons:     slices.Clone(reasons),
		checkID:     checkID,
		evaluatedAt: evaluatedAt,
	}
}

// ReconstructRiskVerdict rebuilds a verdict from persisted data (no derivation, no validation).
func ReconstructRiskVerdict(
	decision valueobject.Decision,
	riskScore int,
	riskLevel valueobject.RiskLevel,
	reasons []string,
	checkID string,
	evaluatedAt time.Time,
) RiskVerdict {
	return RiskVerdict{
		decision:    decision,
		riskScore:   riskScore,
		riskLevel:   riskLevel,
		reasons:     slices.Clone(reasons),
		checkID:     checkID,
		evaluatedAt: evaluatedAt,
	}
}

// Validate checks the verdict's internal invariants.
func (v RiskVerdict) Validate() error {
	if !v.decision.IsValid() {
		return fmt.Errorf("verdict %s: decision %q is not enumerated", v.checkID, v.decision.String())
	}
	if v.riskScore < 0 || v.riskScore > 100 {
		return fmt.Errorf("verdict %s: risk score must be between 0 and 100, got %d", v.checkID, v.riskScore)
	}
	if !v.riskLevel.Equal(valueobject.RiskLevelFromScore(v.riskScore)) {
		return fmt.Errorf("verdict %s: risk level %s does not match score %d", v.checkID, v.riskLevel, v.riskScore)
	}
	if v.checkID == "" {
		return fmt.Errorf("verdict check ID is required")
	}
	return nil
}

// --- Accessors ---

func (v RiskVerdict) Decision() valueobject.Decision   { return v.decision }
func (v RiskVerdict) RiskScore() int                   { return v.riskScore }
func (v RiskVerdict) RiskLevel() valueobject.RiskLevel { return v.riskLevel }
func (v RiskVerdict) CheckID() string                  { return v.checkID }
func (v RiskVerdict) EvaluatedAt() time.Time           { return v.evaluatedAt }

// Reasons returns a copy of the ordered reason list.
func (v RiskVerdict) Reasons() []string {
	return slices.Clone(v.reasons)
}
