package postgres

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRow() decisionRow {
	return decisionRow{
		id:               uuid.New(),
		transactionID:    "tx-1",
		userID:           "user-1",
		amount:           decimal.RequireFromString("1500.00"),
		currency:         "USD",
		provider:         "VOUCHER",
		direction:        "OUTBOUND",
		decision:         "REVIEW",
		riskScore:        75,
		riskLevel:        "MEDIUM",
		reasons:          []string{"voucher amount exceeds ceiling"},
		localCheckID:     "local_abc",
		providerCheckID:  "fallback_def",
		limitsCheckID:    "limits_ghi",
		providerDegraded: true,
		decidedAt:        time.Date(2024, 3, 14, 15, 0, 0, 0, time.UTC),
		createdAt:        time.Date(2024, 3, 14, 15, 0, 1, 0, time.UTC),
	}
}

func TestNewDecisionRepository(t *testing.T) {
	repo := NewDecisionRepository(nil)
	assert.NotNil(t, repo)
}

func TestDecisionRow_ToModel(t *testing.T) {
	t.Run("maps all columns", func(t *testing.T) {
		dr := validRow()

		record, err := dr.toModel()
		require.NoError(t, err)

		assert.Equal(t, dr.id, record.ID())
		assert.Equal(t, "tx-1", record.TransactionID())
		assert.Equal(t, "user-1", record.UserID())
		assert.True(t, dr.amount.Equal(record.Amount()))
		assert.Equal(t, "VOUCHER", record.Provider())
		assert.Equal(t, "OUTBOUND", record.Direction())

		final := record.Final()
		assert.Equal(t, "REVIEW", final.Decision().String())
		assert.Equal(t, 75, final.RiskScore())
		assert.Equal(t, "MEDIUM", final.RiskLevel().String())
		assert.Equal(t, []string{"voucher amount exceeds ceiling"}, final.Reasons())
		assert.Equal(t, "local_abc", final.Provenance().LocalCheckID)
		assert.Equal(t, "fallback_def", final.Provenance().ProviderCheckID)
		assert.Equal(t, dr.decidedAt, final.DecidedAt())

		outcome := record.Outcome()
		assert.Equal(t, "limits_ghi", outcome.LimitsCheckID)
		assert.True(t, outcome.ProviderDegraded)
		assert.False(t, outcome.ProviderSkipped)
		assert.False(t, outcome.LimitsDegraded)
		assert.Empty(t, record.Events())
	})

	tests := []struct {
		name   string
		mutate func(*decisionRow)
	}{
		{name: "unknown decision", mutate: func(dr *decisionRow) { dr.decision = "MAYBE" }},
		{name: "unknown risk level", mutate: func(dr *decisionRow) { dr.riskLevel = "EXTREME" }},
		{name: "risk level out of step with score", mutate: func(dr *decisionRow) { dr.riskLevel = "HIGH" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dr := validRow()
			tt.mutate(&dr)

			_, err := dr.toModel()
			assert.Error(t, err)
		})
	}
}
