package service

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/TWankio2/lipaworld-orca/internal/domain/model"
	"github.com/TWankio2/lipaworld-orca/internal/domain/valueobject"
)

// Reasons emitted by the built-in local rules.
const (
	ReasonSingleTransactionLimit = "amount exceeds single transaction limit"
	ReasonVoucherReview          = "high-value voucher purchase requires review"
)

// ScoreMapping assigns the categorical score for each decision.
type ScoreMapping struct {
	Allow  int
	Review int
	Block  int
}

// ScoreFor returns the categorical score for the decision.
func (m ScoreMapping) ScoreFor(d valueobject.Decision) int {
	switch {
	case d.IsBlock():
		return m.Block
	case d.IsReview():
		return m.Review
	default:
		return m.Allow
	}
}

// LocalScores is the default mapping for the local rule evaluator.
var LocalScores = ScoreMapping{Allow: 25, Review: 75, Block: 100}

// RulePolicy holds the static thresholds used by the local rules.
type RulePolicy struct {
	SingleTransactionCeiling decimal.Decimal
	VoucherCeiling           decimal.Decimal
	// HighScrutinyCeilings maps a currency code to the amount above which
	// transactions in that currency require review.
	HighScrutinyCeilings map[string]decimal.Decimal
	Scores               ScoreMapping
}

// Escalation is the outcome of a rule that fired.
type Escalation struct {
	Decision valueobject.Decision
	Reason   string
}

// Rule inspects a request and returns an escalation when it fires.
type Rule struct {
	Apply func(req model.TransactionRequest) (Escalation, bool)
	Name  string
}

// RuleEvaluator applies an ordered rule list to a request. It performs no I/O.
type RuleEvaluator struct {
	rules  []Rule
	scores ScoreMapping
	now    func() time.Time
}

// NewRuleEvaluator creates an evaluator with the built-in rules derived from policy.
func NewRuleEvaluator(policy RulePolicy) *RuleEvaluator {
	return &RuleEvaluator{
		rules:  DefaultRules(policy),
		scores: policy.Scores,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// NewRuleEvaluatorWithRules creates an evaluator for an explicit rule list.
func NewRuleEvaluatorWithRules(rules []Rule, scores ScoreMapping) *RuleEvaluator {
	return &RuleEvaluator{
		rules:  rules,
		scores: scores,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// DefaultRules returns the built-in rules in evaluation order.
func DefaultRules(policy RulePolicy) []Rule {
	return []Rule{
		{
			Name: "single_transaction_ceiling",
			Apply: func(req model.TransactionRequest) (Escalation, bool) {
				if req.Amount().Exceeds(policy.SingleTransactionCeiling) {
					return Escalation{Decision: valueobject.DecisionBlock, Reason: ReasonSingleTransactionLimit}, true
				}
				return Escalation{}, false
			},
		},
		{
			Name: "voucher_ceiling",
			Apply: func(req model.TransactionRequest) (Escalation, bool) {
				if req.Provider().IsVoucher() && req.Amount().Exceeds(policy.VoucherCeiling) {
					return Escalation{Decision: valueobject.DecisionReview, Reason: ReasonVoucherReview}, true
				}
				return Escalation{}, false
			},
		},
		{
			Name: "high_scrutiny_currency",
			Apply: func(req model.TransactionRequest) (Escalation, bool) {
				ceiling, ok := policy.HighScrutinyCeilings[req.Currency()]
				if ok && req.Amount().Exceeds(ceiling) {
					return Escalation{
						Decision: valueobject.DecisionReview,
						Reason:   fmt.Sprintf("high-value %s transaction requires review", req.Currency()),
					}, true
				}
				return Escalation{}, false
			},
		},
	}
}

// Evaluate folds the rules over the request. Each fired rule can only raise
// the running decision, never lower it. The score is categorical.
func (e *RuleEvaluator) Evaluate(req model.TransactionRequest) model.RiskVerdict {
	decision := valueobject.DecisionAllow
	reasons := make([]string, 0)

	for _, rule := range e.rules {
		esc, fired := rule.Apply(req)
		if !fired {
			continue
		}
		decision = valueobject.MaxDecision(decision, esc.Decision)
		reasons = append(reasons, esc.Reason)
	}

	return model.NewRiskVerdict(
		decision,
		e.scores.ScoreFor(decision),
		reasons,
		newCheckID(CheckIDPrefixLocal),
		e.now(),
	)
}
