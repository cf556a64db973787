package event

import (
	"time"

	"github.com/TWankio2/lipaworld-orca/pkg/events"
)

const (
	// EventTypeDecisionMade is emitted for every final risk decision.
	EventTypeDecisionMade = "risk.decision.made"

	// EventTypeTransactionBlocked is emitted when the final decision is BLOCK.
	EventTypeTransactionBlocked = "risk.transaction.blocked"

	// EventTypeTransactionRecorded is emitted when a completed transaction is
	// counted against the user's limits.
	EventTypeTransactionRecorded = "risk.transaction.recorded"

	AggregateTypeDecision   = "RiskDecision"
	AggregateTypeLimitEntry = "LimitEntry"
)

// DecisionMade is published for every evaluated transaction.
type DecisionMade struct {
	events.BaseEvent
	DecidedAt       time.Time `json:"decided_at"`
	DecisionID      string    `json:"decision_id"`
	TransactionID   string    `json:"transaction_id"`
	UserID          string    `json:"user_id"`
	Amount          string    `json:"amount"`
	Currency        string    `json:"currency"`
	Decision        string    `json:"decision"`
	RiskLevel       string    `json:"risk_level"`
	LocalCheckID    string    `json:"local_check_id"`
	ProviderCheckID string    `json:"provider_check_id,omitempty"`
	Reasons         []string  `json:"reasons"`
	RiskScore       int       `json:"risk_score"`
	ProviderSkipped bool      `json:"provider_skipped"`
}

// NewDecisionMade creates a DecisionMade event keyed by the decision ID.
func NewDecisionMade(e DecisionMade) DecisionMade {
	e.BaseEvent = events.NewBaseEvent(EventTypeDecisionMade, e.DecisionID, AggregateTypeDecision)
	return e
}

// TransactionBlocked is published when a transaction is blocked, so that
// downstream systems can alert or hold the user's account.
type TransactionBlocked struct {
	events.BaseEvent
	BlockedAt     time.Time `json:"blocked_at"`
	DecisionID    string    `json:"decision_id"`
	TransactionID string    `json:"transaction_id"`
	UserID        string    `json:"user_id"`
	Reasons       []string  `json:"reasons"`
	RiskScore     int       `json:"risk_score"`
}

// NewTransactionBlocked creates a TransactionBlocked event keyed by the decision ID.
func NewTransactionBlocked(e TransactionBlocked) TransactionBlocked {
	e.BaseEvent = events.NewBaseEvent(EventTypeTransactionBlocked, e.DecisionID, AggregateTypeDecision)
	return e
}

// TransactionRecorded is published after a completed transaction is recorded.
type TransactionRecorded struct {
	events.BaseEvent
	CompletedAt   time.Time `json:"completed_at"`
	TransactionID string    `json:"transaction_id"`
	UserID        string    `json:"user_id"`
	Amount        string    `json:"amount"`
	Currency      string    `json:"currency"`
}

// NewTransactionRecorded creates a TransactionRecorded event keyed by the transaction ID.
func NewTransactionRecorded(e TransactionRecorded) TransactionRecorded {
	e.BaseEvent = events.NewBaseEvent(EventTypeTransactionRecorded, e.TransactionID, AggregateTypeLimitEntry)
	return e
}
