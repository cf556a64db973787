package kafka

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TWankio2/lipaworld-orca/internal/application/dto"
	"github.com/TWankio2/lipaworld-orca/internal/domain/model"
	pkgkafka "github.com/TWankio2/lipaworld-orca/pkg/kafka"
)

type recorderFunc func(ctx context.Context, req dto.RecordCompletedRequest) error

func (f recorderFunc) Execute(ctx context.Context, req dto.RecordCompletedRequest) error {
	return f(ctx, req)
}

func TestCompletedHandler(t *testing.T) {
	const body = `{"transaction_id":"tx-9","user_id":"user-1","amount":"120.50","currency":"USD","completed_at":"2024-03-14T15:00:00Z"}`

	t.Run("decodes and records", func(t *testing.T) {
		var got dto.RecordCompletedRequest
		handler := NewCompletedHandler(recorderFunc(func(_ context.Context, req dto.RecordCompletedRequest) error {
			got = req
			return nil
		}), testLogger())

		require.NoError(t, handler(context.Background(), pkgkafka.Message{Value: []byte(body)}))

		assert.Equal(t, "tx-9", got.TransactionID)
		assert.Equal(t, "user-1", got.UserID)
		assert.Equal(t, "120.5", got.Amount.String())
		assert.Equal(t, "USD", got.Currency)
		assert.Equal(t, 2024, got.CompletedAt.Year())
	})

	tests := []struct {
		name          string
		value         string
		recorderErr   error
		wantPermanent bool
	}{
		{name: "malformed json", value: `{"transaction_id":`, wantPermanent: true},
		{name: "invalid request", value: body, recorderErr: fmt.Errorf("validate: %w", model.ErrInvalidRequest), wantPermanent: true},
		{name: "store failure", value: body, recorderErr: errors.New("connection reset"), wantPermanent: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewCompletedHandler(recorderFunc(func(context.Context, dto.RecordCompletedRequest) error {
				return tt.recorderErr
			}), testLogger())

			err := handler(context.Background(), pkgkafka.Message{Value: []byte(tt.value)})

			require.Error(t, err)
			assert.Equal(t, tt.wantPermanent, pkgkafka.IsPermanent(err))
		})
	}
}
