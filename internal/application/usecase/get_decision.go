package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/TWankio2/lipaworld-orca/internal/application/dto"
	"github.com/TWankio2/lipaworld-orca/internal/domain/model"
	"github.com/TWankio2/lipaworld-orca/internal/domain/port"
)

// ErrDecisionNotFound is returned when no audit record matches the lookup.
var ErrDecisionNotFound = errors.New("decision not found")

// GetDecision is the use case for retrieving a recorded decision.
type GetDecision struct {
	repo port.DecisionRepository
}

// NewGetDecision creates a new GetDecision use case.
func NewGetDecision(repo port.DecisionRepository) *GetDecision {
	return &GetDecision{repo: repo}
}

// Execute retrieves a decision by its ID, or by transaction ID when no
// decision ID is given.
func (uc *GetDecision) Execute(ctx context.Context, req dto.GetDecisionRequest) (dto.DecisionResponse, error) {
	var (
		record *model.DecisionRecord
		err    error
	)
	switch {
	case req.DecisionID != uuid.Nil:
		record, err = uc.repo.FindByID(ctx, req.DecisionID)
	case req.TransactionID != "":
		record, err = uc.repo.FindByTransactionID(ctx, req.TransactionID)
	default:
		return dto.DecisionResponse{}, fmt.Errorf("%w: decision ID or transaction ID is required", model.ErrInvalidRequest)
	}
	if err != nil {
		return dto.DecisionResponse{}, fmt.Errorf("failed to find decision: %w", err)
	}
	if record == nil {
		return dto.DecisionResponse{}, ErrDecisionNotFound
	}

	return dto.FromRecord(record), nil
}
