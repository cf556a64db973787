package dto

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/TWankio2/lipaworld-orca/internal/domain/model"
	"github.com/TWankio2/lipaworld-orca/internal/domain/valueobject"
	"github.com/TWankio2/lipaworld-orca/pkg/money"
)

// EvaluateTransactionRequest is the input DTO for the EvaluateTransaction use case.
type EvaluateTransactionRequest struct {
	Amount        decimal.Decimal   `json:"amount"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	TransactionID string            `json:"transaction_id"`
	UserID        string            `json:"user_id"`
	Currency      string            `json:"currency"`
	Direction     string            `json:"direction"`
	Provider      string            `json:"provider"`
	PaymentMethod string            `json:"payment_method,omitempty"`
}

// ToModel validates the request shape and builds the domain request.
// All errors wrap model.ErrInvalidRequest.
func (r EvaluateTransactionRequest) ToModel() (model.TransactionRequest, error) {
	cur, err := money.NewCurrency(r.Currency)
	if err != nil {
		return model.TransactionRequest{}, fmt.Errorf("%w: %v", model.ErrInvalidRequest, err)
	}
	direction, err := valueobject.DirectionFromString(r.Direction)
	if err != nil {
		return model.TransactionRequest{}, fmt.Errorf("%w: %v", model.ErrInvalidRequest, err)
	}
	provider, err := valueobject.ProviderFromString(r.Provider)
	if err != nil {
		return model.TransactionRequest{}, fmt.Errorf("%w: %v", model.ErrInvalidRequest, err)
	}

	return model.NewTransactionRequest(
		r.TransactionID,
		r.UserID,
		money.New(r.Amount, cur),
		direction,
		provider,
		r.PaymentMethod,
		r.Metadata,
	)
}

// DecisionResponse is the output DTO for an evaluated or retrieved decision.
type DecisionResponse struct {
	DecidedAt        time.Time `json:"decided_at"`
	Reasons          []string  `json:"reasons"`
	DecisionID       string    `json:"decision_id,omitempty"`
	TransactionID    string    `json:"transaction_id"`
	UserID           string    `json:"user_id"`
	Decision         string    `json:"decision"`
	RiskLevel        string    `json:"risk_level"`
	LocalCheckID     string    `json:"local_check_id"`
	ProviderCheckID  string    `json:"provider_check_id"`
	LimitsCheckID    string    `json:"limits_check_id,omitempty"`
	RiskScore        int       `json:"risk_score"`
	ProviderSkipped  bool      `json:"provider_skipped"`
	ProviderDegraded bool      `json:"provider_degraded"`
	LimitsDegraded   bool      `json:"limits_degraded"`
}

// FromFinal maps a final decision to the response DTO. recordID is empty when
// the decision was not persisted.
func FromFinal(req model.TransactionRequest, final model.FinalDecision, outcome model.EvaluationOutcome, recordID string) DecisionResponse {
	return DecisionResponse{
		DecisionID:       recordID,
		TransactionID:    req.TransactionID(),
		UserID:           req.UserID(),
		Decision:         final.Decision().String(),
		RiskScore:        final.RiskScore(),
		RiskLevel:        final.RiskLevel().String(),
		Reasons:          final.Reasons(),
		LocalCheckID:     final.Provenance().LocalCheckID,
		ProviderCheckID:  final.Provenance().ProviderCheckID,
		LimitsCheckID:    outcome.LimitsCheckID,
		ProviderSkipped:  outcome.ProviderSkipped,
		ProviderDegraded: outcome.ProviderDegraded,
		LimitsDegraded:   outcome.LimitsDegraded,
		DecidedAt:        final.DecidedAt(),
	}
}

// FromRecord maps a persisted decision record to the response DTO.
func FromRecord(r *model.DecisionRecord) DecisionResponse {
	final := r.Final()
	outcome := r.Outcome()
	return DecisionResponse{
		DecisionID:       r.ID().String(),
		TransactionID:    r.TransactionID(),
		UserID:           r.UserID(),
		Decision:         final.Decision().String(),
		RiskScore:        final.RiskScore(),
		RiskLevel:        final.RiskLevel().String(),
		Reasons:          final.Reasons(),
		LocalCheckID:     final.Provenance().LocalCheckID,
		ProviderCheckID:  final.Provenance().ProviderCheckID,
		LimitsCheckID:    outcome.LimitsCheckID,
		ProviderSkipped:  outcome.ProviderSkipped,
		ProviderDegraded: outcome.ProviderDegraded,
		LimitsDegraded:   outcome.LimitsDegraded,
		DecidedAt:        final.DecidedAt(),
	}
}

// RecordCompletedRequest is the input DTO for the RecordCompleted use case.
type RecordCompletedRequest struct {
	CompletedAt   time.Time       `json:"completed_at"`
	Amount        decimal.Decimal `json:"amount"`
	TransactionID string          `json:"transaction_id"`
	UserID        string          `json:"user_id"`
	Currency      string          `json:"currency"`
}

// Validate checks the request shape.
func (r RecordCompletedRequest) Validate() error {
	if r.TransactionID == "" {
		return fmt.Errorf("%w: transaction ID is required", model.ErrInvalidRequest)
	}
	if r.UserID == "" {
		return fmt.Errorf("%w: user ID is required", model.ErrInvalidRequest)
	}
	if !r.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive", model.ErrInvalidRequest)
	}
	if _, err := money.NewCurrency(r.Currency); err != nil {
		return fmt.Errorf("%w: %v", model.ErrInvalidRequest, err)
	}
	return nil
}

// GetDecisionRequest is the input DTO for retrieving a decision. Exactly one
// of DecisionID and TransactionID is expected to be set.
type GetDecisionRequest struct {
	TransactionID string    `json:"transaction_id,omitempty"`
	DecisionID    uuid.UUID `json:"decision_id,omitempty"`
}
