package grpc

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/TWankio2/lipaworld-orca/internal/application/dto"
	"github.com/TWankio2/lipaworld-orca/internal/application/usecase"
	"github.com/TWankio2/lipaworld-orca/internal/domain/model"
	"github.com/TWankio2/lipaworld-orca/pkg/auth"
)

// requireRole checks that the caller has at least one of the given roles.
func requireRole(ctx context.Context, roles ...string) error {
	claims, ok := auth.ClaimsFromContext(ctx)
	if !ok {
		return status.Error(codes.Unauthenticated, "authentication required")
	}
	for _, role := range roles {
		if claims.HasRole(role) {
			return nil
		}
	}
	return status.Error(codes.PermissionDenied, "insufficient permissions")
}

// Evaluator produces a final decision for a transaction.
type Evaluator interface {
	Execute(ctx context.Context, req dto.EvaluateTransactionRequest) (dto.DecisionResponse, error)
}

// CompletedRecorder counts a completed transaction against the user's limits.
type CompletedRecorder interface {
	Execute(ctx context.Context, req dto.RecordCompletedRequest) error
}

// DecisionFinder looks up an audited decision.
type DecisionFinder interface {
	Execute(ctx context.Context, req dto.GetDecisionRequest) (dto.DecisionResponse, error)
}

// Compile-time assertion that RiskServiceHandler implements RiskServiceServer.
var _ RiskServiceServer = (*RiskServiceHandler)(nil)

// RiskServiceHandler implements the gRPC RiskServiceServer interface.
type RiskServiceHandler struct {
	UnimplementedRiskServiceServer
	evaluate        Evaluator
	recordCompleted CompletedRecorder
	getDecision     DecisionFinder
	logger          *slog.Logger
}

// NewRiskServiceHandler creates a new gRPC handler.
func NewRiskServiceHandler(
	evaluate Evaluator,
	recordCompleted CompletedRecorder,
	getDecision DecisionFinder,
	logger *slog.Logger,
) *RiskServiceHandler {
	return &RiskServiceHandler{
		evaluate:        evaluate,
		recordCompleted: recordCompleted,
		getDecision:     getDecision,
		logger:          logger,
	}
}

// Proto-aligned request/response message types.

// MoneyMsg represents the proto Money message.
type MoneyMsg struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

// EvaluateTransactionRequest represents the proto EvaluateTransactionRequest message.
type EvaluateTransactionRequest struct {
	Amount        *MoneyMsg         `json:"amount"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	TransactionID string            `json:"transaction_id"`
	UserID        string            `json:"user_id"`
	Direction     string            `json:"direction"`
	Provider      string            `json:"provider"`
	PaymentMethod string            `json:"payment_method,omitempty"`
}

// DecisionMsg represents the proto Decision message.
type DecisionMsg struct {
	DecisionID       string   `json:"decision_id,omitempty"`
	TransactionID    string   `json:"transaction_id"`
	UserID           string   `json:"user_id"`
	Decision         string   `json:"decision"`
	RiskLevel        string   `json:"risk_level"`
	LocalCheckID     string   `json:"local_check_id"`
	ProviderCheckID  string   `json:"provider_check_id"`
	LimitsCheckID    string   `json:"limits_check_id,omitempty"`
	DecidedAt        string   `json:"decided_at"`
	Reasons          []string `json:"reasons"`
	RiskScore        int32    `json:"risk_score"`
	ProviderSkipped  bool     `json:"provider_skipped"`
	ProviderDegraded bool     `json:"provider_degraded"`
	LimitsDegraded   bool     `json:"limits_degraded"`
}

// EvaluateTransactionResponse represents the proto EvaluateTransactionResponse message.
type EvaluateTransactionResponse struct {
	Decision *DecisionMsg `json:"decision"`
}

// RecordCompletedTransactionRequest represents the proto RecordCompletedTransactionRequest message.
// CompletedAt is RFC 3339; empty means now.
type RecordCompletedTransactionRequest struct {
	Amount        *MoneyMsg `json:"amount"`
	TransactionID string    `json:"transaction_id"`
	UserID        string    `json:"user_id"`
	CompletedAt   string    `json:"completed_at,omitempty"`
}

// RecordCompletedTransactionResponse represents the proto RecordCompletedTransactionResponse message.
type RecordCompletedTransactionResponse struct {
	Recorded bool `json:"recorded"`
}

// GetDecisionRequest represents the proto GetDecisionRequest message.
// Exactly one of DecisionID and TransactionID is expected.
type GetDecisionRequest struct {
	DecisionID    string `json:"decision_id,omitempty"`
	TransactionID string `json:"transaction_id,omitempty"`
}

// GetDecisionResponse represents the proto GetDecisionResponse message.
type GetDecisionResponse struct {
	Decision *DecisionMsg `json:"decision"`
}

// EvaluateTransaction handles a transaction evaluation request.
func (h *RiskServiceHandler) EvaluateTransaction(ctx context.Context, req *EvaluateTransactionRequest) (*EvaluateTransactionResponse, error) {
	if err := requireRole(ctx, auth.RoleAdmin, auth.RoleEvaluator); err != nil {
		return nil, err
	}

	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	amount, currency, err := parseMoney(req.Amount)
	if err != nil {
		return nil, err
	}

	result, err := h.evaluate.Execute(ctx, dto.EvaluateTransactionRequest{
		TransactionID: req.TransactionID,
		UserID:        req.UserID,
		Amount:        amount,
		Currency:      currency,
		Direction:     req.Direction,
		Provider:      req.Provider,
		PaymentMethod: req.PaymentMethod,
		Metadata:      req.Metadata,
	})
	if err != nil {
		return nil, h.toStatus("failed to evaluate transaction", req.TransactionID, err)
	}

	return &EvaluateTransactionResponse{Decision: toDecisionMsg(result)}, nil
}

// RecordCompletedTransaction handles a completed transaction notification.
func (h *RiskServiceHandler) RecordCompletedTransaction(ctx context.Context, req *RecordCompletedTransactionRequest) (*RecordCompletedTransactionResponse, error) {
	if err := requireRole(ctx, auth.RoleAdmin, auth.RoleRecorder); err != nil {
		return nil, err
	}

	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	amount, currency, err := parseMoney(req.Amount)
	if err != nil {
		return nil, err
	}

	var completedAt time.Time
	if req.CompletedAt != "" {
		completedAt, err = time.Parse(time.RFC3339, req.CompletedAt)
		if err != nil {
			return nil, status.Errorf(codes.InvalidArgument, "invalid completed_at: %v", err)
		}
	}

	err = h.recordCompleted.Execute(ctx, dto.RecordCompletedRequest{
		TransactionID: req.TransactionID,
		UserID:        req.UserID,
		Amount:        amount,
		Currency:      currency,
		CompletedAt:   completedAt,
	})
	if err != nil {
		return nil, h.toStatus("failed to record completed transaction", req.TransactionID, err)
	}

	return &RecordCompletedTransactionResponse{Recorded: true}, nil
}

// GetDecision handles a decision lookup.
func (h *RiskServiceHandler) GetDecision(ctx context.Context, req *GetDecisionRequest) (*GetDecisionResponse, error) {
	if err := requireRole(ctx, auth.RoleAdmin, auth.RoleEvaluator, auth.RoleAuditor); err != nil {
		return nil, err
	}

	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	var query dto.GetDecisionRequest
	switch {
	case req.DecisionID != "":
		id, err := uuid.Parse(req.DecisionID)
		if err != nil {
			return nil, status.Errorf(codes.InvalidArgument, "invalid decision_id: %v", err)
		}
		query.DecisionID = id
	case req.TransactionID != "":
		query.TransactionID = req.TransactionID
	default:
		return nil, status.Error(codes.InvalidArgument, "decision_id or transaction_id is required")
	}

	result, err := h.getDecision.Execute(ctx, query)
	if err != nil {
		return nil, h.toStatus("failed to get decision", req.TransactionID, err)
	}

	return &GetDecisionResponse{Decision: toDecisionMsg(result)}, nil
}

// toStatus maps use case errors to gRPC status codes. Internal errors are
// logged and their detail withheld from the caller.
func (h *RiskServiceHandler) toStatus(msg, transactionID string, err error) error {
	switch {
	case errors.Is(err, model.ErrInvalidRequest):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, usecase.ErrDecisionNotFound):
		return status.Error(codes.NotFound, "decision not found")
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, "request canceled")
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, "deadline exceeded")
	}

	h.logger.Error(msg,
		slog.String("transaction_id", transactionID),
		slog.String("error", err.Error()),
	)
	return status.Error(codes.Internal, "internal error")
}

func parseMoney(m *MoneyMsg) (decimal.Decimal, string, error) {
	if m == nil {
		return decimal.Decimal{}, "", status.Error(codes.InvalidArgument, "amount is required")
	}
	amount, err := decimal.NewFromString(m.Amount)
	if err != nil {
		return decimal.Decimal{}, "", status.Errorf(codes.InvalidArgument, "invalid amount: %v", err)
	}
	return amount, m.Currency, nil
}

func toDecisionMsg(r dto.DecisionResponse) *DecisionMsg {
	return &DecisionMsg{
		DecisionID:       r.DecisionID,
		TransactionID:    r.TransactionID,
		UserID:           r.UserID,
		Decision:         r.Decision,
		RiskScore:        int32(r.RiskScore),
		RiskLevel:        r.RiskLevel,
		Reasons:          r.Reasons,
		LocalCheckID:     r.LocalCheckID,
		ProviderCheckID:  r.ProviderCheckID,
		LimitsCheckID:    r.LimitsCheckID,
		ProviderSkipped:  r.ProviderSkipped,
		ProviderDegraded: r.ProviderDegraded,
		LimitsDegraded:   r.LimitsDegraded,
		DecidedAt:        r.DecidedAt.UTC().Format(time.RFC3339Nano),
	}
}
