package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/TWankio2/lipaworld-orca/internal/domain/model"
	"github.com/TWankio2/lipaworld-orca/internal/domain/port"
	"github.com/TWankio2/lipaworld-orca/internal/domain/valueobject"
	"github.com/TWankio2/lipaworld-orca/pkg/money"
	"github.com/TWankio2/lipaworld-orca/pkg/syncutil"
)

// ReasonLimitsUnavailable marks a limits check that failed open.
const ReasonLimitsUnavailable = "limits check unavailable"

// LimitsPolicy holds the ceilings enforced by the limits tracker. A window
// without an entry in a ceiling map is not limited on that dimension. Amount
// ceilings are applied to each currency separately: usage in one currency
// never counts against another, and no conversion takes place. Count
// ceilings cover every currency.
type LimitsPolicy struct {
	SingleTransactionCeiling decimal.Decimal
	AmountCeilings           map[valueobject.Window]decimal.Decimal
	CountCeilings            map[valueobject.Window]int
}

// windows returns the windows to evaluate, shortest first. DAILY is always
// included because it carries the single-transaction ceiling.
func (p LimitsPolicy) windows() []valueobject.Window {
	out := make([]valueobject.Window, 0, len(valueobject.AllWindows))
	for _, w := range valueobject.AllWindows {
		_, hasAmount := p.AmountCeilings[w]
		_, hasCount := p.CountCeilings[w]
		if hasAmount || hasCount || w.Equal(valueobject.WindowDaily) {
			out = append(out, w)
		}
	}
	return out
}

// LimitsTracker answers whether a transaction would exceed a user's limits
// and records completed transactions. All reads and writes for one user are
// serialized by a per-user lock; different users never contend. When the
// store also implements port.LimitsLocker, admissions additionally take the
// store's lock so that instances sharing the store observe each other.
type LimitsTracker struct {
	store  port.LimitsStore
	locks  *syncutil.KeyedMutex
	logger *slog.Logger
	now    func() time.Time
	policy LimitsPolicy
}

// NewLimitsTracker creates a LimitsTracker backed by store.
func NewLimitsTracker(store port.LimitsStore, policy LimitsPolicy, logger *slog.Logger) *LimitsTracker {
	return &LimitsTracker{
		store:  store,
		locks:  syncutil.NewKeyedMutex(),
		policy: policy,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the tracker's time source.
func (t *LimitsTracker) WithClock(now func() time.Time) *LimitsTracker {
	t.now = now
	return t
}

// CheckAndPreview reports whether amount fits within the user's limits for
// one window. It does not record anything. If the store cannot be read the
// check fails open.
func (t *LimitsTracker) CheckAndPreview(ctx context.Context, userID string, amount money.Money, window valueobject.Window) model.LimitsResult {
	unlock, err := t.locks.LockContext(ctx, userID)
	if err != nil {
		return t.failOpen(window, userID, err)
	}
	defer unlock()

	return t.checkWindow(ctx, t.store, userID, amount, window, t.policy, t.now())
}

// Check evaluates every window in the policy and folds the results into a
// verdict that is BLOCK (score 100) if any window is exceeded and ALLOW
// (score 0) otherwise.
func (t *LimitsTracker) Check(ctx context.Context, userID string, amount money.Money) (model.RiskVerdict, []model.LimitsResult) {
	unlock, err := t.locks.LockContext(ctx, userID)
	if err != nil {
		result := t.failOpen(valueobject.WindowDaily, userID, err)
		return t.verdict([]model.LimitsResult{result}), []model.LimitsResult{result}
	}
	defer unlock()

	results := t.checkAll(ctx, t.store, userID, amount, t.now())
	return t.verdict(results), results
}

// Record counts a completed transaction against the user's limits.
func (t *LimitsTracker) Record(ctx context.Context, userID string, entry model.LimitEntry) error {
	unlock, err := t.locks.LockContext(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to acquire limits lock: %w", err)
	}
	defer unlock()

	if err := t.store.Record(ctx, userID, entry); err != nil {
		return fmt.Errorf("failed to record limit entry: %w", err)
	}
	return nil
}

// Admit checks the entry against every window and, if it fits, records it
// while still holding the user's lock. Concurrent admissions for one user
// therefore always observe each other.
func (t *LimitsTracker) Admit(ctx context.Context, userID string, entry model.LimitEntry) (model.RiskVerdict, []model.LimitsResult, error) {
	amount, err := entryAmount(entry)
	if err != nil {
		return model.RiskVerdict{}, nil, err
	}

	unlock, err := t.locks.LockContext(ctx, userID)
	if err != nil {
		return model.RiskVerdict{}, nil, fmt.Errorf("failed to acquire limits lock: %w", err)
	}
	defer unlock()

	locker, shared := t.store.(port.LimitsLocker)
	if !shared {
		return t.admit(ctx, t.store, userID, amount, entry)
	}

	var (
		verdict model.RiskVerdict
		results []model.LimitsResult
	)
	err = locker.WithUserLock(ctx, userID, func(store port.LimitsStore) error {
		var admitErr error
		verdict, results, admitErr = t.admit(ctx, store, userID, amount, entry)
		return admitErr
	})
	if err != nil && results == nil {
		return model.RiskVerdict{}, nil, fmt.Errorf("failed to acquire limits lock: %w", err)
	}
	return verdict, results, err
}

func (t *LimitsTracker) admit(
	ctx context.Context,
	store port.LimitsStore,
	userID string,
	amount money.Money,
	entry model.LimitEntry,
) (model.RiskVerdict, []model.LimitsResult, error) {
	results := t.checkAll(ctx, store, userID, amount, t.now())
	verdict := t.verdict(results)
	if verdict.Decision().IsBlock() {
		return verdict, results, nil
	}

	if err := store.Record(ctx, userID, entry); err != nil {
		return verdict, results, fmt.Errorf("failed to record limit entry: %w", err)
	}
	return verdict, results, nil
}

func entryAmount(entry model.LimitEntry) (money.Money, error) {
	currency, err := money.NewCurrency(entry.Currency)
	if err != nil {
		return money.Money{}, fmt.Errorf("invalid limit entry: %w", err)
	}
	return money.New(entry.Amount, currency), nil
}

func (t *LimitsTracker) checkAll(ctx context.Context, store port.LimitsStore, userID string, amount money.Money, now time.Time) []model.LimitsResult {
	windows := t.policy.windows()
	results := make([]model.LimitsResult, 0, len(windows))
	for _, w := range windows {
		policy := t.policy
		if !w.Equal(valueobject.WindowDaily) {
			policy.SingleTransactionCeiling = decimal.Zero
		}
		result := t.checkWindow(ctx, store, userID, amount, w, policy, now)
		results = append(results, result)
		if result.Degraded {
			break
		}
	}
	return results
}

// checkWindow must be called with the user's lock held.
func (t *LimitsTracker) checkWindow(
	ctx context.Context,
	store port.LimitsStore,
	userID string,
	amount money.Money,
	window valueobject.Window,
	policy LimitsPolicy,
	now time.Time,
) model.LimitsResult {
	usage, err := store.ReadWindow(ctx, userID, amount.Currency().Code(), window.Start(now))
	if err != nil {
		return t.failOpen(window, userID, err)
	}
	return EvaluateWindow(policy, window, usage, amount.Amount())
}

func (t *LimitsTracker) failOpen(window valueobject.Window, userID string, err error) model.LimitsResult {
	t.logger.Warn("limits store unavailable, failing open",
		slog.String("user_id", userID),
		slog.String("window", window.String()),
		slog.String("error", err.Error()),
	)
	return model.LimitsResult{
		Window:          window,
		Decision:        valueobject.DecisionAllow,
		WithinLimits:    true,
		Degraded:        true,
		UsedAmount:      decimal.Zero,
		RemainingAmount: decimal.Zero,
		Reasons:         []string{ReasonLimitsUnavailable},
	}
}

func (t *LimitsTracker) verdict(results []model.LimitsResult) model.RiskVerdict {
	decision := valueobject.DecisionAllow
	reasons := make([]string, 0)
	for _, r := range results {
		decision = valueobject.MaxDecision(decision, r.Decision)
		reasons = append(reasons, r.Reasons...)
	}

	score := 0
	if decision.IsBlock() {
		score = 100
	}
	return model.NewRiskVerdict(decision, score, reasons, newCheckID(CheckIDPrefixLimits), t.now())
}

// EvaluateWindow compares usage plus amount against the policy for one window.
func EvaluateWindow(policy LimitsPolicy, window valueobject.Window, usage model.WindowUsage, amount decimal.Decimal) model.LimitsResult {
	result := model.LimitsResult{
		Window:          window,
		UsedAmount:      usage.Sum,
		UsedCount:       usage.Count,
		RemainingAmount: decimal.Zero,
		Reasons:         make([]string, 0),
	}
	name := strings.ToLower(window.String())

	if policy.SingleTransactionCeiling.IsPositive() && amount.GreaterThan(policy.SingleTransactionCeiling) {
		result.Reasons = append(result.Reasons, ReasonSingleTransactionLimit)
	}

	if ceiling, ok := policy.AmountCeilings[window]; ok {
		result.AmountCeiling = ceiling
		remaining := ceiling.Sub(usage.Sum)
		if remaining.IsPositive() {
			result.RemainingAmount = remaining
		}
		if usage.Sum.Add(amount).GreaterThan(ceiling) {
			result.Reasons = append(result.Reasons, fmt.Sprintf("%s amount limit exceeded", name))
		}
	}

	if ceiling, ok := policy.CountCeilings[window]; ok {
		result.CountCeiling = ceiling
		result.RemainingCount = max(ceiling-usage.Count, 0)
		if usage.Count+1 > ceiling {
			result.Reasons = append(result.Reasons, fmt.Sprintf("%s transaction count limit exceeded", name))
		}
	}

	result.WithinLimits = len(result.Reasons) == 0
	result.Decision = valueobject.DecisionAllow
	if !result.WithinLimits {
		result.Decision = valueobject.DecisionBlock
	}
	return result
}
