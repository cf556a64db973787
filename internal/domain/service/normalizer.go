package service

import (
	"encoding/json"
	"time"

	"github.com/TWankio2/lipaworld-orca/internal/domain/model"
	"github.com/TWankio2/lipaworld-orca/internal/domain/valueobject"
)

// Reasons emitted by the normalizer.
const (
	ReasonProviderUnavailable = "risk provider unavailable"
	ReasonGenericProviderRule = "provider rule triggered"
)

var (
	actionKeys = []string{"action", "decision", "recommendation"}
	rulesKeys  = []string{"rules", "triggered_rules", "reasons"}
)

// ProviderScores is the categorical mapping for provider verdicts. An
// unrecognized action maps to ALLOW and therefore to score 0.
var ProviderScores = ScoreMapping{Allow: 0, Review: 75, Block: 100}

// ProviderResponse is the outcome of a provider call as seen by the normalizer.
// It is one of ProviderReply or ProviderFailure.
type ProviderResponse interface {
	isProviderResponse()
}

// ProviderReply carries the raw body returned by the provider.
type ProviderReply struct {
	Body []byte
}

// ProviderFailure carries the error from a provider call that did not return a body.
type ProviderFailure struct {
	Err error
}

func (ProviderReply) isProviderResponse()   {}
func (ProviderFailure) isProviderResponse() {}

// NormalizerPolicy configures how provider actions are mapped.
type NormalizerPolicy struct {
	// ActionAliases maps provider-native action tags to canonical decisions.
	// The canonical names ALLOW, REVIEW and BLOCK are always recognized.
	ActionAliases map[string]valueobject.Decision
	Scores        ScoreMapping
}

// Normalizer maps provider responses of any shape into a RiskVerdict.
// Normalize is total: it never panics and never returns an error.
type Normalizer struct {
	actions map[string]valueobject.Decision
	scores  ScoreMapping
	now     func() time.Time
}

// NewNormalizer creates a Normalizer for the given policy.
func NewNormalizer(policy NormalizerPolicy) *Normalizer {
	actions := map[string]valueobject.Decision{
		valueobject.DecisionAllow.String():  valueobject.DecisionAllow,
		valueobject.DecisionReview.String(): valueobject.DecisionReview,
		valueobject.DecisionBlock.String():  valueobject.DecisionBlock,
	}
	for tag, decision := range policy.ActionAliases {
		if decision.IsValid() {
			actions[tag] = decision
		}
	}

	return &Normalizer{
		actions: actions,
		scores:  policy.Scores,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Normalize converts a provider response into a verdict. Transport failures
// and unparseable bodies yield the unavailable verdict (ALLOW, score 0).
func (n *Normalizer) Normalize(resp ProviderResponse) model.RiskVerdict {
	switch r := resp.(type) {
	case ProviderReply:
		return n.normalizeBody(r.Body)
	case ProviderFailure:
		return n.Unavailable()
	default:
		return n.Unavailable()
	}
}

// Unavailable returns the fail-open verdict used when the provider cannot be consulted.
func (n *Normalizer) Unavailable() model.RiskVerdict {
	return model.NewRiskVerdict(
		valueobject.DecisionAllow,
		0,
		[]string{ReasonProviderUnavailable},
		newCheckID(CheckIDPrefixFallback),
		n.now(),
	)
}

func (n *Normalizer) normalizeBody(body []byte) model.RiskVerdict {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil || payload == nil {
		return n.Unavailable()
	}

	decision := valueobject.DecisionAllow
	score := 0
	if action, ok := firstString(payload, actionKeys); ok {
		if mapped, known := n.actions[action]; known {
			decision = mapped
			score = n.scores.ScoreFor(mapped)
		}
	}

	return model.NewRiskVerdict(
		decision,
		score,
		extractReasons(payload),
		newCheckID(CheckIDPrefixProvider),
		n.now(),
	)
}

func firstString(payload map[string]any, keys []string) (string, bool) {
	for _, key := range keys {
		if s, ok := payload[key].(string); ok {
			return s, true
		}
	}
	return "", false
}

func extractReasons(payload map[string]any) []string {
	reasons := make([]string, 0)
	for _, key := range rulesKeys {
		entries, ok := payload[key].([]any)
		if !ok {
			continue
		}
		for _, entry := range entries {
			reasons = append(reasons, reasonFromEntry(entry))
		}
		return reasons
	}
	return reasons
}

func reasonFromEntry(entry any) string {
	switch e := entry.(type) {
	case string:
		return e
	case map[string]any:
		if s, ok := e["description"].(string); ok && s != "" {
			return s
		}
		if s, ok := e["name"].(string); ok && s != "" {
			return s
		}
		return ReasonGenericProviderRule
	default:
		return ReasonGenericProviderRule
	}
}

// Skipped returns the neutral verdict standing in for a provider call that was
// not made. It carries no reasons and cannot raise a combined decision.
func (n *Normalizer) Skipped() model.RiskVerdict {
	return model.NewRiskVerdict(
		valueobject.DecisionAllow,
		0,
		nil,
		newCheckID(CheckIDPrefixSkipped),
		n.now(),
	)
}
