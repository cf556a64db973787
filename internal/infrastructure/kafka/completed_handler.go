package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/TWankio2/lipaworld-orca/internal/application/dto"
	"github.com/TWankio2/lipaworld-orca/internal/domain/model"
	pkgkafka "github.com/TWankio2/lipaworld-orca/pkg/kafka"
)

// CompletedRecorder records a completed transaction against the user's limits.
type CompletedRecorder interface {
	Execute(ctx context.Context, req dto.RecordCompletedRequest) error
}

// NewCompletedHandler returns a consumer handler for the payments completion
// topic. Malformed or invalid messages are reported as permanent failures;
// store failures are left for the consumer to retry.
func NewCompletedHandler(recorder CompletedRecorder, logger *slog.Logger) pkgkafka.Handler {
	return func(ctx context.Context, msg pkgkafka.Message) error {
		var req dto.RecordCompletedRequest
		if err := json.Unmarshal(msg.Value, &req); err != nil {
			return pkgkafka.Permanent(fmt.Errorf("failed to decode completed transaction: %w", err))
		}

		if err := recorder.Execute(ctx, req); err != nil {
			if errors.Is(err, model.ErrInvalidRequest) {
				return pkgkafka.Permanent(err)
			}
			return err
		}

		logger.DebugContext(ctx, "recorded completed transaction",
			slog.String("transaction_id", req.TransactionID),
			slog.String("user_id", req.UserID),
		)
		return nil
	}
}
