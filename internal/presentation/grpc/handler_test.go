package grpc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/TWankio2/lipaworld-orca/internal/application/dto"
	"github.com/TWankio2/lipaworld-orca/internal/application/usecase"
	"github.com/TWankio2/lipaworld-orca/internal/domain/model"
	"github.com/TWankio2/lipaworld-orca/pkg/auth"
)

// --- Fakes ---

type fakeEvaluator struct {
	fn  func(ctx context.Context, req dto.EvaluateTransactionRequest) (dto.DecisionResponse, error)
	got dto.EvaluateTransactionRequest
}

func (f *fakeEvaluator) Execute(ctx context.Context, req dto.EvaluateTransactionRequest) (dto.DecisionResponse, error) {
	f.got = req
	if f.fn != nil {
		return f.fn(ctx, req)
	}
	return sampleDecision(req.TransactionID), nil
}

type fakeRecorder struct {
	err error
	got dto.RecordCompletedRequest
}

func (f *fakeRecorder) Execute(_ context.Context, req dto.RecordCompletedRequest) error {
	f.got = req
	return f.err
}

type fakeFinder struct {
	err error
	got dto.GetDecisionRequest
}

func (f *fakeFinder) Execute(_ context.Context, req dto.GetDecisionRequest) (dto.DecisionResponse, error) {
	f.got = req
	if f.err != nil {
		return dto.DecisionResponse{}, f.err
	}
	return sampleDecision("tx-1"), nil
}

// --- Helpers ---

func sampleDecision(txID string) dto.DecisionResponse {
	return dto.DecisionResponse{
		DecisionID:      uuid.NewString(),
		TransactionID:   txID,
		UserID:          "user-1",
		Decision:        "REVIEW",
		RiskScore:       75,
		RiskLevel:       "MEDIUM",
		Reasons:         []string{"voucher amount exceeds ceiling"},
		LocalCheckID:    "local_1",
		ProviderCheckID: "provider_1",
		DecidedAt:       time.Date(2024, 3, 14, 15, 0, 0, 0, time.UTC),
	}
}

func contextWithRoles(roles ...string) context.Context {
	return auth.ContextWithClaims(context.Background(), &auth.Claims{Roles: roles})
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

type handlerFixture struct {
	evaluator *fakeEvaluator
	recorder  *fakeRecorder
	finder    *fakeFinder
}

func newHandlerFixture() *handlerFixture {
	return &handlerFixture{
		evaluator: &fakeEvaluator{},
		recorder:  &fakeRecorder{},
		finder:    &fakeFinder{},
	}
}

func (f *handlerFixture) build() *RiskServiceHandler {
	return NewRiskServiceHandler(f.evaluator, f.recorder, f.finder, testLogger())
}

func validEvaluateRequest() *EvaluateTransactionRequest {
	return &EvaluateTransactionRequest{
		TransactionID: "tx-1",
		UserID:        "user-1",
		Amount:        &MoneyMsg{Amount: "1500.00", Currency: "USD"},
		Direction:     "OUTBOUND",
		Provider:      "VOUCHER",
		Metadata:      map[string]string{"channel": "app"},
	}
}

func requireGRPCCode(t *testing.T, err error, code codes.Code) {
	t.Helper()
	require.Error(t, err)
	st, ok := status.FromError(err)
	require.True(t, ok, "expected gRPC status error, got %T: %v", err, err)
	assert.Equal(t, code, st.Code(), "expected gRPC code %s, got %s: %s", code, st.Code(), st.Message())
}

// --- Tests ---

func TestEvaluateTransaction(t *testing.T) {
	t.Run("maps request and response", func(t *testing.T) {
		f := newHandlerFixture()
		h := f.build()

		resp, err := h.EvaluateTransaction(contextWithRoles(auth.RoleEvaluator), validEvaluateRequest())
		require.NoError(t, err)

		assert.Equal(t, "tx-1", f.evaluator.got.TransactionID)
		assert.Equal(t, "1500", f.evaluator.got.Amount.String())
		assert.Equal(t, "USD", f.evaluator.got.Currency)
		assert.Equal(t, "VOUCHER", f.evaluator.got.Provider)
		assert.Equal(t, "app", f.evaluator.got.Metadata["channel"])

		require.NotNil(t, resp.Decision)
		assert.Equal(t, "REVIEW", resp.Decision.Decision)
		assert.Equal(t, int32(75), resp.Decision.RiskScore)
		assert.Equal(t, "2024-03-14T15:00:00Z", resp.Decision.DecidedAt)
	})

	tests := []struct {
		name     string
		ctx      context.Context
		req      *EvaluateTransactionRequest
		evalErr  error
		wantCode codes.Code
	}{
		{name: "no claims", ctx: context.Background(), req: validEvaluateRequest(), wantCode: codes.Unauthenticated},
		{name: "auditor may not evaluate", ctx: contextWithRoles(auth.RoleAuditor), req: validEvaluateRequest(), wantCode: codes.PermissionDenied},
		{name: "nil request", ctx: contextWithRoles(auth.RoleAdmin), req: nil, wantCode: codes.InvalidArgument},
		{
			name:     "missing amount",
			ctx:      contextWithRoles(auth.RoleAdmin),
			req:      &EvaluateTransactionRequest{TransactionID: "tx-1"},
			wantCode: codes.InvalidArgument,
		},
		{
			name:     "unparseable amount",
			ctx:      contextWithRoles(auth.RoleAdmin),
			req:      &EvaluateTransactionRequest{TransactionID: "tx-1", Amount: &MoneyMsg{Amount: "lots", Currency: "USD"}},
			wantCode: codes.InvalidArgument,
		},
		{
			name:     "validation error from use case",
			ctx:      contextWithRoles(auth.RoleEvaluator),
			req:      validEvaluateRequest(),
			evalErr:  fmt.Errorf("%w: direction is required", model.ErrInvalidRequest),
			wantCode: codes.InvalidArgument,
		},
		{
			name:     "invariant violation is internal",
			ctx:      contextWithRoles(auth.RoleEvaluator),
			req:      validEvaluateRequest(),
			evalErr:  fmt.Errorf("%w: score 150", usecase.ErrInvariantViolation),
			wantCode: codes.Internal,
		},
		{
			name:     "deadline exceeded",
			ctx:      contextWithRoles(auth.RoleEvaluator),
			req:      validEvaluateRequest(),
			evalErr:  fmt.Errorf("reading limits: %w", context.DeadlineExceeded),
			wantCode: codes.DeadlineExceeded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newHandlerFixture()
			if tt.evalErr != nil {
				f.evaluator.fn = func(context.Context, dto.EvaluateTransactionRequest) (dto.DecisionResponse, error) {
					return dto.DecisionResponse{}, tt.evalErr
				}
			}

			_, err := f.build().EvaluateTransaction(tt.ctx, tt.req)
			requireGRPCCode(t, err, tt.wantCode)
		})
	}

	t.Run("internal errors hide detail", func(t *testing.T) {
		f := newHandlerFixture()
		f.evaluator.fn = func(context.Context, dto.EvaluateTransactionRequest) (dto.DecisionResponse, error) {
			return dto.DecisionResponse{}, errors.New("pq: password authentication failed")
		}

		_, err := f.build().EvaluateTransaction(contextWithRoles(auth.RoleEvaluator), validEvaluateRequest())
		requireGRPCCode(t, err, codes.Internal)
		assert.NotContains(t, err.Error(), "password")
	})
}

func TestRecordCompletedTransaction(t *testing.T) {
	valid := func() *RecordCompletedTransactionRequest {
		return &RecordCompletedTransactionRequest{
			TransactionID: "tx-7",
			UserID:        "user-1",
			Amount:        &MoneyMsg{Amount: "250", Currency: "KES"},
			CompletedAt:   "2024-03-14T15:00:00Z",
		}
	}

	t.Run("records", func(t *testing.T) {
		f := newHandlerFixture()

		resp, err := f.build().RecordCompletedTransaction(contextWithRoles(auth.RoleRecorder), valid())
		require.NoError(t, err)
		assert.True(t, resp.Recorded)

		assert.Equal(t, "tx-7", f.recorder.got.TransactionID)
		assert.Equal(t, "KES", f.recorder.got.Currency)
		assert.Equal(t, time.Date(2024, 3, 14, 15, 0, 0, 0, time.UTC), f.recorder.got.CompletedAt.UTC())
	})

	t.Run("empty completed_at is left for the use case", func(t *testing.T) {
		f := newHandlerFixture()
		req := valid()
		req.CompletedAt = ""

		_, err := f.build().RecordCompletedTransaction(contextWithRoles(auth.RoleRecorder), req)
		require.NoError(t, err)
		assert.True(t, f.recorder.got.CompletedAt.IsZero())
	})

	tests := []struct {
		name     string
		ctx      context.Context
		mutate   func(*RecordCompletedTransactionRequest)
		err      error
		wantCode codes.Code
	}{
		{name: "evaluator may not record", ctx: contextWithRoles(auth.RoleEvaluator), wantCode: codes.PermissionDenied},
		{name: "bad timestamp", ctx: contextWithRoles(auth.RoleRecorder), mutate: func(r *RecordCompletedTransactionRequest) { r.CompletedAt = "yesterday" }, wantCode: codes.InvalidArgument},
		{name: "invalid request", ctx: contextWithRoles(auth.RoleRecorder), err: fmt.Errorf("%w: user ID is required", model.ErrInvalidRequest), wantCode: codes.InvalidArgument},
		{name: "store failure", ctx: contextWithRoles(auth.RoleRecorder), err: errors.New("connection refused"), wantCode: codes.Internal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newHandlerFixture()
			f.recorder.err = tt.err
			req := valid()
			if tt.mutate != nil {
				tt.mutate(req)
			}

			_, err := f.build().RecordCompletedTransaction(tt.ctx, req)
			requireGRPCCode(t, err, tt.wantCode)
		})
	}
}

func TestGetDecision(t *testing.T) {
	t.Run("by decision id", func(t *testing.T) {
		f := newHandlerFixture()
		id := uuid.New()

		resp, err := f.build().GetDecision(contextWithRoles(auth.RoleAuditor), &GetDecisionRequest{DecisionID: id.String()})
		require.NoError(t, err)
		assert.Equal(t, id, f.finder.got.DecisionID)
		assert.Equal(t, "REVIEW", resp.Decision.Decision)
	})

	t.Run("by transaction id", func(t *testing.T) {
		f := newHandlerFixture()

		_, err := f.build().GetDecision(contextWithRoles(auth.RoleEvaluator), &GetDecisionRequest{TransactionID: "tx-1"})
		require.NoError(t, err)
		assert.Equal(t, "tx-1", f.finder.got.TransactionID)
		assert.Equal(t, uuid.Nil, f.finder.got.DecisionID)
	})

	tests := []struct {
		name     string
		ctx      context.Context
		req      *GetDecisionRequest
		err      error
		wantCode codes.Code
	}{
		{name: "recorder may not read", ctx: contextWithRoles(auth.RoleRecorder), req: &GetDecisionRequest{TransactionID: "tx-1"}, wantCode: codes.PermissionDenied},
		{name: "neither key", ctx: contextWithRoles(auth.RoleAdmin), req: &GetDecisionRequest{}, wantCode: codes.InvalidArgument},
		{name: "bad uuid", ctx: contextWithRoles(auth.RoleAdmin), req: &GetDecisionRequest{DecisionID: "nope"}, wantCode: codes.InvalidArgument},
		{name: "not found", ctx: contextWithRoles(auth.RoleAdmin), req: &GetDecisionRequest{TransactionID: "tx-404"}, err: usecase.ErrDecisionNotFound, wantCode: codes.NotFound},
		{name: "repository failure", ctx: contextWithRoles(auth.RoleAdmin), req: &GetDecisionRequest{TransactionID: "tx-1"}, err: errors.New("timeout"), wantCode: codes.Internal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newHandlerFixture()
			f.finder.err = tt.err

			_, err := f.build().GetDecision(tt.ctx, tt.req)
			requireGRPCCode(t, err, tt.wantCode)
		})
	}
}
