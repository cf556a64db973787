package port

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/TWankio2/lipaworld-orca/internal/domain/model"
	"github.com/TWankio2/lipaworld-orca/pkg/events"
)

// DecisionRepository defines the persistence port for the decision audit trail.
type DecisionRepository interface {
	// Save persists a decision record.
	Save(ctx context.Context, record *model.DecisionRecord) error

	// FindByID retrieves a decision record by its identifier. Returns nil, nil when absent.
	FindByID(ctx context.Context, id uuid.UUID) (*model.DecisionRecord, error)

	// FindByTransactionID retrieves the latest decision for a transaction. Returns nil, nil when absent.
	FindByTransactionID(ctx context.Context, transactionID string) (*model.DecisionRecord, error)
}

// LimitsStore is the persistence port for the limits tracker. Entries are
// keyed by transaction ID; recording the same transaction twice is a no-op.
type LimitsStore interface {
	// ReadWindow returns the usage of the user's entries at or after since.
	// Sum only covers entries in currency. Count covers every currency.
	ReadWindow(ctx context.Context, userID, currency string, since time.Time) (model.WindowUsage, error)

	// Record stores a completed transaction for the user.
	Record(ctx context.Context, userID string, entry model.LimitEntry) error
}

// LimitsLocker is implemented by limits stores shared between engine
// instances. WithUserLock runs fn while holding a lock on the user that every
// instance honours, passing a store bound to that lock.
type LimitsLocker interface {
	WithUserLock(ctx context.Context, userID string, fn func(store LimitsStore) error) error
}

// EventPublisher defines the port for publishing domain events.
type EventPublisher interface {
	// Publish sends one or more domain events to the messaging infrastructure.
	Publish(ctx context.Context, evts ...events.DomainEvent) error
}
