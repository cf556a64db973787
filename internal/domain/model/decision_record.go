package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/TWankio2/lipaworld-orca/internal/domain/event"
	"github.com/TWankio2/lipaworld-orca/pkg/events"
)

// EvaluationOutcome carries the engine-level facts about how a decision was reached.
type EvaluationOutcome struct {
	LimitsCheckID    string
	ProviderSkipped  bool
	ProviderDegraded bool
	LimitsDegraded   bool
}

// DecisionRecord is the aggregate root persisted for every evaluated transaction.
// It is the audit trail correlating a FinalDecision with its inputs.
type DecisionRecord struct {
	events.EventCollector
	createdAt     time.Time
	amount        decimal.Decimal
	final         FinalDecision
	outcome       EvaluationOutcome
	transactionID string
	userID        string
	currency      string
	provider      string
	direction     string
	id            uuid.UUID
}

// NewDecisionRecord creates the audit record for a decision and records its domain events.
func NewDecisionRecord(req TransactionRequest, final FinalDecision, outcome EvaluationOutcome) *DecisionRecord {
	r := &DecisionRecord{
		id:            uuid.New(),
		transactionID: req.TransactionID(),
		userID:        req.UserID(),
		amount:        req.Amount().Amount(),
		currency:      req.Currency(),
		provider:      req.Provider().String(),
		direction:     req.Direction().String(),
		final:         final,
		outcome:       outcome,
		createdAt:     time.Now().UTC(),
	}

	r.Record(event.NewDecisionMade(event.DecisionMade{
		DecisionID:      r.id.String(),
		TransactionID:   r.transactionID,
		UserID:          r.userID,
		Amount:          r.amount.String(),
		Currency:        r.currency,
		Decision:        final.Decision().String(),
		RiskScore:       final.RiskScore(),
		RiskLevel:       final.RiskLevel().String(),
		Reasons:         final.Reasons(),
		LocalCheckID:    final.Provenance().LocalCheckID,
		ProviderCheckID: final.Provenance().ProviderCheckID,
		ProviderSkipped: outcome.ProviderSkipped,
		DecidedAt:       final.DecidedAt(),
	}))

	if final.Decision().IsBlock() {
		r.Record(event.NewTransactionBlocked(event.TransactionBlocked{
			DecisionID:    r.id.String(),
			TransactionID: r.transactionID,
			UserID:        r.userID,
			RiskScore:     final.RiskScore(),
			Reasons:       final.Reasons(),
			BlockedAt:     final.DecidedAt(),
		}))
	}

	return r
}

// ReconstructDecisionRecord rebuilds a DecisionRecord from persisted data (no validation, no events).
func ReconstructDecisionRecord(
	id uuid.UUID,
	transactionID, userID string,
	amount decimal.Decimal,
	currency, provider, direction string,
	final FinalDecision,
	outcome EvaluationOutcome,
	createdAt time.Time,
) *DecisionRecord {
	return &DecisionRecord{
		id:            id,
		transactionID: transactionID,
		userID:        userID,
		amount:        amount,
		currency:      currency,
		provider:      provider,
		direction:     direction,
		final:         final,
		outcome:       outcome,
		createdAt:     createdAt,
	}
}

// --- Accessors ---

func (r *DecisionRecord) ID() uuid.UUID              { return r.id }
func (r *DecisionRecord) TransactionID() string      { return r.transactionID }
func (r *DecisionRecord) UserID() string             { return r.userID }
func (r *DecisionRecord) Amount() decimal.Decimal    { return r.amount }
func (r *DecisionRecord) Currency() string           { return r.currency }
func (r *DecisionRecord) Provider() string           { return r.provider }
func (r *DecisionRecord) Direction() string          { return r.direction }
func (r *DecisionRecord) Final() FinalDecision       { return r.final }
func (r *DecisionRecord) Outcome() EvaluationOutcome { return r.outcome }
func (r *DecisionRecord) CreatedAt() time.Time       { return r.createdAt }
