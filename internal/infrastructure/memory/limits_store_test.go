package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TWankio2/lipaworld-orca/internal/domain/model"
)

var now = time.Date(2024, 3, 14, 15, 0, 0, 0, time.UTC)

func newTestStore() *LimitsStore {
	s := NewLimitsStore(DefaultRetention)
	s.now = func() time.Time { return now }
	return s
}

func limitEntry(id string, amount int64, at time.Time) model.LimitEntry {
	return model.LimitEntry{
		TransactionID: id,
		Amount:        decimal.NewFromInt(amount),
		Currency:      "USD",
		OccurredAt:    at,
	}
}

func limitEntryIn(id string, amount int64, currency string, at time.Time) model.LimitEntry {
	e := limitEntry(id, amount, at)
	e.Currency = currency
	return e
}

func TestLimitsStore_ReadWindow(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	require.NoError(t, s.Record(ctx, "user-1", limitEntry("t1", 100, now.Add(-2*time.Hour))))
	require.NoError(t, s.Record(ctx, "user-1", limitEntry("t2", 250, now.Add(-30*time.Minute))))
	require.NoError(t, s.Record(ctx, "user-2", limitEntry("t3", 999, now)))

	tests := []struct {
		name  string
		since time.Time
		sum   int64
		count int
	}{
		{"all entries", now.Add(-24 * time.Hour), 350, 2},
		{"last hour", now.Add(-time.Hour), 250, 1},
		{"boundary is inclusive", now.Add(-30 * time.Minute), 250, 1},
		{"future", now.Add(time.Minute), 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			usage, err := s.ReadWindow(ctx, "user-1", "USD", tt.since)
			require.NoError(t, err)
			assert.True(t, usage.Sum.Equal(decimal.NewFromInt(tt.sum)), "sum %s", usage.Sum)
			assert.Equal(t, tt.count, usage.Count)
		})
	}

	t.Run("unknown user", func(t *testing.T) {
		usage, err := s.ReadWindow(ctx, "nobody", "USD", now.Add(-time.Hour))
		require.NoError(t, err)
		assert.True(t, usage.Sum.IsZero())
		assert.Equal(t, 0, usage.Count)
	})
}

func TestLimitsStore_ReadWindowByCurrency(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	require.NoError(t, s.Record(ctx, "user-1", limitEntryIn("t1", 70000, "KES", now.Add(-time.Hour))))
	require.NoError(t, s.Record(ctx, "user-1", limitEntryIn("t2", 300, "USD", now.Add(-time.Hour))))

	tests := []struct {
		currency string
		sum      int64
	}{
		{"KES", 70000},
		{"USD", 300},
		{"NGN", 0},
	}

	for _, tt := range tests {
		t.Run(tt.currency, func(t *testing.T) {
			usage, err := s.ReadWindow(ctx, "user-1", tt.currency, now.Add(-24*time.Hour))
			require.NoError(t, err)
			assert.True(t, usage.Sum.Equal(decimal.NewFromInt(tt.sum)), "sum %s", usage.Sum)
			assert.Equal(t, 2, usage.Count)
		})
	}
}

func TestLimitsStore_RecordIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	require.NoError(t, s.Record(ctx, "user-1", limitEntry("t1", 100, now)))
	require.NoError(t, s.Record(ctx, "user-1", limitEntry("t1", 100, now)))

	usage, err := s.ReadWindow(ctx, "user-1", "USD", now.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, usage.Count)
}

func TestLimitsStore_RecordRequiresTransactionID(t *testing.T) {
	err := newTestStore().Record(context.Background(), "user-1", limitEntry("", 100, now))
	require.Error(t, err)
}

func TestLimitsStore_PrunesExpiredEntries(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	require.NoError(t, s.Record(ctx, "user-1", limitEntry("old", 100, now.Add(-40*24*time.Hour))))
	require.NoError(t, s.Record(ctx, "user-1", limitEntry("new", 50, now)))

	usage, err := s.ReadWindow(ctx, "user-1", "USD", time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 1, usage.Count)
	assert.True(t, usage.Sum.Equal(decimal.NewFromInt(50)))
	assert.NotContains(t, s.seen, "old")
}

func TestLimitsStore_Prune(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	require.NoError(t, s.Record(ctx, "idle", limitEntry("idle-1", 100, now.Add(-10*24*time.Hour))))
	require.NoError(t, s.Record(ctx, "idle", limitEntry("idle-2", 100, now.Add(-9*24*time.Hour))))
	require.NoError(t, s.Record(ctx, "active", limitEntry("active-1", 100, now.Add(-10*24*time.Hour))))
	require.NoError(t, s.Record(ctx, "active", limitEntry("active-2", 100, now)))

	removed, err := s.Prune(ctx, now.Add(-24*time.Hour))

	require.NoError(t, err)
	assert.Equal(t, int64(3), removed)
	assert.NotContains(t, s.entries, "idle")
	assert.Len(t, s.entries["active"], 1)
	assert.Equal(t, map[string]string{"active-2": "active"}, s.seen)

	t.Run("pruned transaction IDs can be recorded again", func(t *testing.T) {
		require.NoError(t, s.Record(ctx, "idle", limitEntry("idle-1", 100, now)))

		usage, err := s.ReadWindow(ctx, "idle", "USD", now.Add(-time.Hour))
		require.NoError(t, err)
		assert.Equal(t, 1, usage.Count)
	})
}

func TestLimitsStore_ConcurrentRecords(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := "t" + string(rune('A'+i%50))
			_ = s.Record(ctx, "user-1", limitEntry(id, 1, now))
		}(i)
	}
	wg.Wait()

	usage, err := s.ReadWindow(ctx, "user-1", "USD", now.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 50, usage.Count)
}
