package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/TWankio2/lipaworld-orca/internal/domain/model"
)

// DefaultRetention covers the longest limits window (a calendar month) plus slack.
const DefaultRetention = 32 * 24 * time.Hour

// LimitsStore keeps limit entries in process memory. It is safe for concurrent
// use. Every write drops the writing user's expired entries; Prune sweeps the
// whole store so users who stop transacting are released too. State is lost
// on restart.
type LimitsStore struct {
	entries   map[string][]model.LimitEntry // key: user ID
	seen      map[string]string             // transaction ID -> user ID
	now       func() time.Time
	retention time.Duration
	mu        sync.RWMutex
}

// NewLimitsStore creates an empty in-memory store.
func NewLimitsStore(retention time.Duration) *LimitsStore {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &LimitsStore{
		entries:   make(map[string][]model.LimitEntry),
		seen:      make(map[string]string),
		now:       func() time.Time { return time.Now().UTC() },
		retention: retention,
	}
}

// ReadWindow sums the user's entries in currency that occurred at or after
// since. The count includes entries in every currency.
func (s *LimitsStore) ReadWindow(_ context.Context, userID, currency string, since time.Time) (model.WindowUsage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	usage := model.WindowUsage{Sum: decimal.Zero}
	for _, e := range s.entries[userID] {
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

// Record appends the entry. Recording the same transaction ID twice is a no-op.
func (s *LimitsStore) Record(_ context.Context, userID string, entry model.LimitEntry) error {
	if entry.TransactionID == "" {
		return errors.New("limit entry transaction ID is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, dup := s.seen[entry.TransactionID]; dup {
		return nil
	}
	s.seen[entry.TransactionID] = userID
	s.entries[userID] = append(s.entries[userID], entry)
	s.pruneUser(userID, s.now().Add(-s.retention))
	return nil
}

// Prune drops every entry that occurred before cutoff and reports how many
// were removed. Users left without entries are forgotten.
func (s *LimitsStore) Prune(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	for userID := range s.entries {
		removed += s.pruneUser(userID, cutoff)
	}
	return removed, nil
}

// pruneUser must be called with the write lock held.
func (s *LimitsStore) pruneUser(userID string, cutoff time.Time) int64 {
	var removed int64
	kept := s.entries[userID][:0]
	for _, e := range s.entries[userID] {
		if e.OccurredAt.Before(cutoff) {
			delete(s.seen, e.TransactionID)
			removed++
			continue
		}
		kept = append(kept, e)
	}
	if len(kept) == 0 {
		delete(s.entries, userID)
		return removed
	}
	s.entries[userID] = kept
	return removed
}
