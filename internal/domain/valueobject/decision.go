package valueobject

import "fmt"

// Decision is an immutable value object representing the outcome of a risk check.
// Decisions are totally ordered by restrictiveness: ALLOW < REVIEW < BLOCK.
type Decision struct {
	value string
}

var (
	DecisionAllow  = Decision{value: "ALLOW"}
	DecisionReview = Decision{value: "REVIEW"}
	DecisionBlock  = Decision{value: "BLOCK"}
)

// DecisionFromString reconstructs a Decision from its string representation.
// Matching is case-sensitive.
func DecisionFromString(s string) (Decision, error) {
	switch s {
	case "ALLOW":
		return DecisionAllow, nil
	case "REVIEW":
		return DecisionReview, nil
	case "BLOCK":
		return DecisionBlock, nil
	default:
		return Decision{}, fmt.Errorf("invalid decision: %q", s)
	}
}

// MaxDecision returns the more restrictive of a and b.
func MaxDecision(a, b Decision) Decision {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}

// Rank returns the restrictiveness of the decision (1..3). Zero means the
// decision is not one of the enumerated values.
func (d Decision) Rank() int {
	switch d.value {
	case "ALLOW":
		return 1
	case "REVIEW":
		return 2
	case "BLOCK":
		return 3
	default:
		return 0
	}
}

// IsValid reports whether the decision is one of ALLOW, REVIEW or BLOCK.
func (d Decision) IsValid() bool {
	return d.Rank() > 0
}

// String returns the string representation.
func (d Decision) String() string {
	return d.value
}

// IsZero returns true if the decision has not been set.
func (d Decision) IsZero() bool {
	return d.value == ""
}

// Equal checks equality with another Decision.
func (d Decision) Equal(other Decision) bool {
	return d.value == other.value
}

func (d Decision) IsAllow() bool  { return d.value == "ALLOW" }
func (d Decision) IsReview() bool { return d.value == "REVIEW" }
func (d Decision) IsBlock() bool  { return d.value == "BLOCK" }
