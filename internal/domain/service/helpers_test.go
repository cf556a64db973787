package service_test

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/TWankio2/lipaworld-orca/internal/domain/model"
	"github.com/TWankio2/lipaworld-orca/internal/domain/port"
	"github.com/TWankio2/lipaworld-orca/internal/domain/valueobject"
	"github.com/TWankio2/lipaworld-orca/pkg/money"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newRequest(t *testing.T, amount, currency string, provider valueobject.Provider) model.TransactionRequest {
	t.Helper()
	m, err := money.NewFromString(amount, currency)
	require.NoError(t, err)

	req, err := model.NewTransactionRequest(
		"txn-1",
		"user-1",
		m,
		valueobject.DirectionOutbound,
		provider,
		"card",
		nil,
	)
	require.NoError(t, err)
	return req
}

func verdict(decision valueobject.Decision, score int, checkID string, reasons ...string) model.RiskVerdict {
	return model.NewRiskVerdict(decision, score, reasons, checkID, time.Date(2024, 3, 14, 12, 0, 0, 0, time.UTC))
}

// fakeLimitsStore is an in-memory LimitsStore with injectable failures and a
// read delay that widens any check-then-record race.
type fakeLimitsStore struct {
	mu        sync.Mutex
	entries   map[string][]model.LimitEntry
	readErr   error
	recordErr error
	readDelay time.Duration
}

func newFakeLimitsStore() *fakeLimitsStore {
	return &fakeLimitsStore{entries: make(map[string][]model.LimitEntry)}
}

func (s *fakeLimitsStore) ReadWindow(_ context.Context, userID, currency string, since time.Time) (model.WindowUsage, error) {
	if s.readErr != nil {
		return model.WindowUsage{}, s.readErr
	}
	s.mu.Lock()
	snapshot := append([]model.LimitEntry(nil), s.entries[userID]...)
	s.mu.Unlock()

	if s.readDelay > 0 {
		time.Sleep(s.readDelay)
	}

	usage := model.WindowUsage{Sum: decimal.Zero}
	for _, e := range snapshot {
		if e.OccurredAt.Before(since) {
			continue
		}
		if e.Currency == currency {
			usage.Sum = usage.Sum.Add(e.Amount)
		}
		usage.Count++
	}
	return usage, nil
}

func (s *fakeLimitsStore) Record(_ context.Context, userID string, entry model.LimitEntry) error {
	if s.recordErr != nil {
		return s.recordErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[userID] = append(s.entries[userID], entry)
	return nil
}

func (s *fakeLimitsStore) count(userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries[userID])
}

// lockingLimitsStore adds a store-wide user lock, standing in for a store
// shared by several engine instances.
type lockingLimitsStore struct {
	*fakeLimitsStore
	userMu  sync.Mutex
	lockErr error
	calls   atomic.Int32
}

func newLockingLimitsStore() *lockingLimitsStore {
	return &lockingLimitsStore{fakeLimitsStore: newFakeLimitsStore()}
}

func (s *lockingLimitsStore) WithUserLock(_ context.Context, _ string, fn func(store port.LimitsStore) error) error {
	s.calls.Add(1)
	if s.lockErr != nil {
		return s.lockErr
	}
	s.userMu.Lock()
	defer s.userMu.Unlock()
	return fn(s.fakeLimitsStore)
}

func (s *lockingLimitsStore) lockCalls() int {
	return int(s.calls.Load())
}
