package usecase_test

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/TWankio2/lipaworld-orca/internal/application/usecase"
	"github.com/TWankio2/lipaworld-orca/internal/domain/model"
	"github.com/TWankio2/lipaworld-orca/internal/domain/port"
	"github.com/TWankio2/lipaworld-orca/internal/domain/service"
	"github.com/TWankio2/lipaworld-orca/internal/domain/valueobject"
	"github.com/TWankio2/lipaworld-orca/internal/infrastructure/memory"
	"github.com/TWankio2/lipaworld-orca/pkg/events"
)

// --- Mock implementations ---

type mockDecisionRepository struct {
	mu                      sync.Mutex
	saved                   []*model.DecisionRecord
	saveFunc                func(ctx context.Context, record *model.DecisionRecord) error
	findByIDFunc            func(ctx context.Context, id uuid.UUID) (*model.DecisionRecord, error)
	findByTransactionIDFunc func(ctx context.Context, transactionID string) (*model.DecisionRecord, error)
}

func (m *mockDecisionRepository) Save(ctx context.Context, record *model.DecisionRecord) error {
	if m.saveFunc != nil {
		return m.saveFunc(ctx, record)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = append(m.saved, record)
	return nil
}

func (m *mockDecisionRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.DecisionRecord, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockDecisionRepository) FindByTransactionID(ctx context.Context, transactionID string) (*model.DecisionRecord, error) {
	if m.findByTransactionIDFunc != nil {
		return m.findByTransactionIDFunc(ctx, transactionID)
	}
	return nil, nil
}

func (m *mockDecisionRepository) savedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.saved)
}

type mockEventPublisher struct {
	mu              sync.Mutex
	publishedEvents []events.DomainEvent
	publishFunc     func(ctx context.Context, evts ...events.DomainEvent) error
}

func (m *mockEventPublisher) Publish(ctx context.Context, evts ...events.DomainEvent) error {
	if m.publishFunc != nil {
		return m.publishFunc(ctx, evts...)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.publishedEvents = append(m.publishedEvents, evts...)
	return nil
}

func (m *mockEventPublisher) eventTypes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	types := make([]string, 0, len(m.publishedEvents))
	for _, e := range m.publishedEvents {
		types = append(types, e.EventType())
	}
	return types
}

type mockProviderClient struct {
	mu        sync.Mutex
	calls     []port.ProviderPayload
	checkFunc func(ctx context.Context, payload port.ProviderPayload) ([]byte, error)
}

func (m *mockProviderClient) CheckTransaction(ctx context.Context, payload port.ProviderPayload) ([]byte, error) {
	m.mu.Lock()
	m.calls = append(m.calls, payload)
	m.mu.Unlock()
	if m.checkFunc != nil {
		return m.checkFunc(ctx, payload)
	}
	return []byte(`{"action":"ALLOW"}`), nil
}

func (m *mockProviderClient) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func respondWith(body string) func(context.Context, port.ProviderPayload) ([]byte, error) {
	return func(context.Context, port.ProviderPayload) ([]byte, error) {
		return []byte(body), nil
	}
}

type mockMetrics struct {
	mu        sync.Mutex
	decisions []string
	providers []string
	limits    []string
}

func (m *mockMetrics) DecisionMade(_ context.Context, decision string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.decisions = append(m.decisions, decision)
}

func (m *mockMetrics) ProviderCalled(_ context.Context, outcome string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.providers = append(m.providers, outcome)
}

func (m *mockMetrics) LimitsChecked(_ context.Context, result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.limits = append(m.limits, result)
}

type failingLimitsStore struct {
	err error
}

func (s failingLimitsStore) ReadWindow(context.Context, string, string, time.Time) (model.WindowUsage, error) {
	return model.WindowUsage{}, s.err
}

func (s failingLimitsStore) Record(context.Context, string, model.LimitEntry) error {
	return s.err
}

// --- Fixtures ---

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testRulePolicy() service.RulePolicy {
	return service.RulePolicy{
		SingleTransactionCeiling: decimal.NewFromInt(50000),
		VoucherCeiling:           decimal.NewFromInt(1000),
		HighScrutinyCeilings:     map[string]decimal.Decimal{},
		Scores:                   service.LocalScores,
	}
}

func testLimitsPolicy() service.LimitsPolicy {
	return service.LimitsPolicy{
		AmountCeilings: map[valueobject.Window]decimal.Decimal{
			valueobject.WindowDaily: decimal.NewFromInt(100000),
		},
		CountCeilings: map[valueobject.Window]int{
			valueobject.WindowHourly: 10,
		},
	}
}

func testSettings() usecase.EngineSettings {
	return usecase.EngineSettings{
		ProviderTimeout:     time.Second,
		ShortCircuitOnBlock: true,
		AuditShortCircuited: true,
	}
}

type engineFixture struct {
	repo      *mockDecisionRepository
	publisher *mockEventPublisher
	provider  *mockProviderClient
	metrics   *mockMetrics
	store     port.LimitsStore
	rules     *service.RuleEvaluator
	settings  usecase.EngineSettings
}

func newEngineFixture() *engineFixture {
	return &engineFixture{
		repo:      &mockDecisionRepository{},
		publisher: &mockEventPublisher{},
		provider:  &mockProviderClient{},
		metrics:   &mockMetrics{},
		store:     memory.NewLimitsStore(memory.DefaultRetention),
		rules:     service.NewRuleEvaluator(testRulePolicy()),
		settings:  testSettings(),
	}
}

func (f *engineFixture) tracker() *service.LimitsTracker {
	return service.NewLimitsTracker(f.store, testLimitsPolicy(), testLogger())
}

func (f *engineFixture) build() *usecase.EvaluateTransaction {
	return f.buildWith(f.tracker())
}

func (f *engineFixture) buildWith(tracker *service.LimitsTracker) *usecase.EvaluateTransaction {
	return usecase.NewEvaluateTransaction(
		usecase.EvaluationServices{
			Rules:  f.rules,
			Limits: tracker,
			Normalizer: service.NewNormalizer(service.NormalizerPolicy{
				ActionAliases: map[string]valueobject.Decision{
					"APPROVE": valueobject.DecisionAllow,
					"DECLINE": valueobject.DecisionBlock,
				},
				Scores: service.ProviderScores,
			}),
			Combiner: service.NewDecisionCombiner(),
		},
		f.provider,
		f.repo,
		f.publisher,
		f.metrics,
		f.settings,
		testLogger(),
	)
}
