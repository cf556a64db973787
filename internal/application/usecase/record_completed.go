package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/TWankio2/lipaworld-orca/internal/application/dto"
	"github.com/TWankio2/lipaworld-orca/internal/domain/event"
	"github.com/TWankio2/lipaworld-orca/internal/domain/model"
	"github.com/TWankio2/lipaworld-orca/internal/domain/port"
	"github.com/TWankio2/lipaworld-orca/internal/domain/service"
)

// RecordCompleted is the use case that counts a completed transaction
// against the user's limits.
type RecordCompleted struct {
	limits    *service.LimitsTracker
	publisher port.EventPublisher
	logger    *slog.Logger
}

// NewRecordCompleted creates a new RecordCompleted use case.
func NewRecordCompleted(
	limits *service.LimitsTracker,
	publisher port.EventPublisher,
	logger *slog.Logger,
) *RecordCompleted {
	return &RecordCompleted{
		limits:    limits,
		publisher: publisher,
		logger:    logger,
	}
}

// Execute records the transaction. Recording a transaction ID twice is a no-op
// at the store, so redelivered completions are safe.
func (uc *RecordCompleted) Execute(ctx context.Context, req dto.RecordCompletedRequest) error {
	// 1. Validate the request.
	if err := req.Validate(); err != nil {
		return fmt.Errorf("failed to validate completed transaction: %w", err)
	}

	completedAt := req.CompletedAt.UTC()
	if req.CompletedAt.IsZero() {
		completedAt = time.Now().UTC()
	}

	// 2. Record against the user's limits.
	entry := model.LimitEntry{
		TransactionID: req.TransactionID,
		Amount:        req.Amount,
		Currency:      req.Currency,
		OccurredAt:    completedAt,
	}
	if err := uc.limits.Record(ctx, req.UserID, entry); err != nil {
		return fmt.Errorf("failed to record completed transaction: %w", err)
	}

	// 3. Publish the bookkeeping event.
	evt := event.NewTransactionRecorded(event.TransactionRecorded{
		TransactionID: req.TransactionID,
		UserID:        req.UserID,
		Amount:        req.Amount.String(),
		Currency:      req.Currency,
		CompletedAt:   completedAt,
	})
	if err := uc.publisher.Publish(ctx, evt); err != nil {
		uc.logger.Error("failed to publish transaction recorded event",
			slog.String("transaction_id", req.TransactionID),
			slog.String("error", err.Error()),
		)
	}

	return nil
}
