package model

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/TWankio2/lipaworld-orca/internal/domain/valueobject"
)

// LimitEntry is one completed transaction counted against a user's limits.
type LimitEntry struct {
	OccurredAt    time.Time
	Amount        decimal.Decimal
	TransactionID string
	Currency      string
}

// WindowUsage is the aggregate of a user's entries inside a window.
type WindowUsage struct {
	Sum   decimal.Decimal
	Count int
}

// LimitsResult is the outcome of checking one window. Decision is only ever
// ALLOW or BLOCK. A zero ceiling means the dimension is not limited.
type LimitsResult struct {
	Window          valueobject.Window
	Decision        valueobject.Decision
	UsedAmount      decimal.Decimal
	RemainingAmount decimal.Decimal
	AmountCeiling   decimal.Decimal
	Reasons         []string
	UsedCount       int
	RemainingCount  int
	CountCeiling    int
	WithinLimits    bool
	Degraded        bool
}
