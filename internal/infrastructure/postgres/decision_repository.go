package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/TWankio2/lipaworld-orca/internal/domain/model"
	"github.com/TWankio2/lipaworld-orca/internal/domain/valueobject"
	pgutil "github.com/TWankio2/lipaworld-orca/pkg/postgres"
)

const decisionColumns = `
	id, transaction_id, user_id, amount, currency, provider, direction,
	decision, risk_score, risk_level, reasons,
	local_check_id, provider_check_id, limits_check_id,
	provider_skipped, provider_degraded, limits_degraded,
	decided_at, created_at`

// DecisionRepository implements port.DecisionRepository using PostgreSQL.
type DecisionRepository struct {
	db pgutil.Querier
}

// NewDecisionRepository creates a new PostgreSQL-backed decision repository.
// db is usually a *pgxpool.Pool but may be a pgx.Tx.
func NewDecisionRepository(db pgutil.Querier) *DecisionRepository {
	return &DecisionRepository{db: db}
}

// Save inserts a decision record. Records are immutable; saving the same ID twice fails.
func (r *DecisionRepository) Save(ctx context.Context, record *model.DecisionRecord) error {
	final := record.Final()
	outcome := record.Outcome()

	reasons := final.Reasons()
	if reasons == nil {
		reasons = []string{}
	}

	query := `INSERT INTO risk_decisions (` + decisionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`

	_, err := r.db.Exec(ctx, query,
		record.ID(),
		record.TransactionID(),
		record.UserID(),
		record.Amount(),
		record.Currency(),
		record.Provider(),
		record.Direction(),
		final.Decision().String(),
		final.RiskScore(),
		final.RiskLevel().String(),
		reasons,
		final.Provenance().LocalCheckID,
		final.Provenance().ProviderCheckID,
		outcome.LimitsCheckID,
		outcome.ProviderSkipped,
		outcome.ProviderDegraded,
		outcome.LimitsDegraded,
		final.DecidedAt(),
		record.CreatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert decision: %w", err)
	}

	return nil
}

// FindByID retrieves a decision record by ID. Returns nil, nil when absent.
func (r *DecisionRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.DecisionRecord, error) {
	query := `SELECT ` + decisionColumns + ` FROM risk_decisions WHERE id = $1`
	return r.scanOne(r.db.QueryRow(ctx, query, id))
}

// FindByTransactionID retrieves the most recent decision for a transaction.
// Returns nil, nil when absent.
func (r *DecisionRepository) FindByTransactionID(ctx context.Context, transactionID string) (*model.DecisionRecord, error) {
	query := `SELECT ` + decisionColumns + ` FROM risk_decisions
		WHERE transaction_id = $1
		ORDER BY created_at DESC
		LIMIT 1`
	return r.scanOne(r.db.QueryRow(ctx, query, transactionID))
}

func (r *DecisionRepository) scanOne(row pgx.Row) (*model.DecisionRecord, error) {
	var dr decisionRow
	err := row.Scan(
		&dr.id, &dr.transactionID, &dr.userID, &dr.amount, &dr.currency, &dr.provider, &dr.direction,
		&dr.decision, &dr.riskScore, &dr.riskLevel, &dr.reasons,
		&dr.localCheckID, &dr.providerCheckID, &dr.limitsCheckID,
		&dr.providerSkipped, &dr.providerDegraded, &dr.limitsDegraded,
		&dr.decidedAt, &dr.createdAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan decision: %w", err)
	}

	return dr.toModel()
}

// decisionRow mirrors one risk_decisions row.
type decisionRow struct {
	decidedAt        time.Time
	createdAt        time.Time
	amount           decimal.Decimal
	transactionID    string
	userID           string
	currency         string
	provider         string
	direction        string
	decision         string
	riskLevel        string
	localCheckID     string
	providerCheckID  string
	limitsCheckID    string
	reasons          []string
	riskScore        int
	id               uuid.UUID
	providerSkipped  bool
	providerDegraded bool
	limitsDegraded   bool
}

func (dr decisionRow) toModel() (*model.DecisionRecord, error) {
	decision, err := valueobject.DecisionFromString(dr.decision)
	if err != nil {
		return nil, fmt.Errorf("failed to parse decision: %w", err)
	}

	// Risk level is derived from the score; the stored column only guards against drift.
	level, err := valueobject.RiskLevelFromString(dr.riskLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to parse risk level: %w", err)
	}

	final := model.NewFinalDecision(
		decision,
		dr.riskScore,
		dr.reasons,
		model.Provenance{LocalCheckID: dr.localCheckID, ProviderCheckID: dr.providerCheckID},
		dr.decidedAt,
	)
	if !final.RiskLevel().Equal(level) {
		return nil, fmt.Errorf("decision %s: stored risk level %s does not match score %d", dr.id, level, dr.riskScore)
	}

	return model.ReconstructDecisionRecord(
		dr.id,
		dr.transactionID,
		dr.userID,
		dr.amount,
		dr.currency,
		dr.provider,
		dr.direction,
		final,
		model.EvaluationOutcome{
			LimitsCheckID:    dr.limitsCheckID,
			ProviderSkipped:  dr.providerSkipped,
			ProviderDegraded: dr.providerDegraded,
			LimitsDegraded:   dr.limitsDegraded,
		},
		dr.createdAt,
	), nil
}
