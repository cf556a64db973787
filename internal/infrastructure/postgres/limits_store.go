package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/TWankio2/lipaworld-orca/internal/domain/model"
	"github.com/TWankio2/lipaworld-orca/internal/domain/port"
	pgutil "github.com/TWankio2/lipaworld-orca/pkg/postgres"
)

// limitsLockClass namespaces the per-user advisory locks taken by WithUserLock.
const limitsLockClass int32 = 0x6c696d

// LimitsStore implements port.LimitsStore and port.LimitsLocker using
// PostgreSQL. Engine instances that share the database see the same usage,
// and their reservations for one user are serialized by WithUserLock.
type LimitsStore struct {
	db pgutil.Querier
}

// NewLimitsStore creates a new PostgreSQL-backed limits store.
func NewLimitsStore(db pgutil.Querier) *LimitsStore {
	return &LimitsStore{db: db}
}

// ReadWindow returns the usage of the user's entries at or after since. The
// sum only covers entries in currency; the count covers every currency.
func (s *LimitsStore) ReadWindow(ctx context.Context, userID, currency string, since time.Time) (model.WindowUsage, error) {
	query := `
		SELECT COALESCE(SUM(amount) FILTER (WHERE currency = $3), 0), COUNT(*)
		FROM limit_entries
		WHERE user_id = $1 AND occurred_at >= $2`

	var (
		sum   decimal.Decimal
		count int
	)
	if err := s.db.QueryRow(ctx, query, userID, since.UTC(), currency).Scan(&sum, &count); err != nil {
		return model.WindowUsage{}, fmt.Errorf("failed to read limit window: %w", err)
	}

	return model.WindowUsage{Sum: sum, Count: count}, nil
}

// WithUserLock runs fn inside a transaction that holds a transaction-scoped
// advisory lock on userID. The store passed to fn reads and writes through
// that transaction; the lock is released on commit or rollback. When the
// store is already bound to a transaction the lock joins it.
func (s *LimitsStore) WithUserLock(ctx context.Context, userID string, fn func(store port.LimitsStore) error) error {
	beginner, ok := s.db.(pgutil.TxBeginner)
	if !ok {
		if err := lockUser(ctx, s.db, userID); err != nil {
			return err
		}
		return fn(s)
	}

	return pgutil.WithTransaction(ctx, beginner, pgx.TxOptions{}, func(q pgutil.Querier) error {
		if err := lockUser(ctx, q, userID); err != nil {
			return err
		}
		return fn(NewLimitsStore(q))
	})
}

func lockUser(ctx context.Context, q pgutil.Querier, userID string) error {
	if _, err := q.Exec(ctx, `SELECT pg_advisory_xact_lock($1, hashtext($2))`, limitsLockClass, userID); err != nil {
		return fmt.Errorf("failed to lock user limits: %w", err)
	}
	return nil
}

// Record stores a completed transaction. A transaction already recorded is left untouched.
func (s *LimitsStore) Record(ctx context.Context, userID string, entry model.LimitEntry) error {
	if entry.TransactionID == "" {
		return errors.New("limit entry requires a transaction id")
	}

	query := `
		INSERT INTO limit_entries (transaction_id, user_id, amount, currency, occurred_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (transaction_id) DO NOTHING`

	_, err := s.db.Exec(ctx, query,
		entry.TransactionID,
		userID,
		entry.Amount,
		entry.Currency,
		entry.OccurredAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to record limit entry: %w", err)
	}

	return nil
}

// Prune deletes entries that occurred before cutoff and reports how many were removed.
func (s *LimitsStore) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM limit_entries WHERE occurred_at < $1`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to prune limit entries: %w", err)
	}
	return tag.RowsAffected(), nil
}
