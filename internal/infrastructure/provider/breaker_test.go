package provider

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestBreaker(threshold int, cooldown time.Duration) (*Breaker, *fakeClock) {
	clock := &fakeClock{now: time.Date(2024, 3, 14, 12, 0, 0, 0, time.UTC)}
	b := NewBreaker(threshold, cooldown, nil)
	b.now = clock.Now
	return b, clock
}

func TestBreaker_AllowWhenClosed(t *testing.T) {
	b, _ := newTestBreaker(3, time.Second)

	assert.True(t, b.Allow())
	assert.Equal(t, StateClosed, b.State())
}

func TestBreaker_TripsAfterThreshold(t *testing.T) {
	b, _ := newTestBreaker(3, time.Second)

	b.RecordFailure()
	b.RecordFailure()
	assert.True(t, b.Allow(), "should still allow before threshold")

	b.RecordFailure()
	assert.False(t, b.Allow())
	assert.Equal(t, StateOpen, b.State())
}

func TestBreaker_SuccessResetsFailureCount(t *testing.T) {
	b, _ := newTestBreaker(3, time.Second)

	b.RecordFailure()
	b.RecordFailure()
	b.RecordSuccess()
	b.RecordFailure()
	b.RecordFailure()

	assert.Equal(t, StateClosed, b.State())
}

func TestBreaker_HalfOpenTrial(t *testing.T) {
	t.Run("single trial request after cooldown", func(t *testing.T) {
		b, clock := newTestBreaker(2, time.Second)
		b.RecordFailure()
		b.RecordFailure()
		require.False(t, b.Allow())

		clock.Advance(time.Second)

		assert.True(t, b.Allow())
		assert.Equal(t, StateHalfOpen, b.State())
		assert.False(t, b.Allow(), "second request while probing is rejected")
	})

	t.Run("successful trial closes", func(t *testing.T) {
		b, clock := newTestBreaker(2, time.Second)
		b.RecordFailure()
		b.RecordFailure()
		clock.Advance(time.Second)
		require.True(t, b.Allow())

		b.RecordSuccess()

		assert.Equal(t, StateClosed, b.State())
		assert.True(t, b.Allow())
	})

	t.Run("failed trial reopens", func(t *testing.T) {
		b, clock := newTestBreaker(2, time.Second)
		b.RecordFailure()
		b.RecordFailure()
		clock.Advance(time.Second)
		require.True(t, b.Allow())

		b.RecordFailure()

		assert.Equal(t, StateOpen, b.State())
		assert.False(t, b.Allow())
	})
}

func TestBreaker_CountsTransitions(t *testing.T) {
	reg := prometheus.NewRegistry()
	b := NewBreaker(1, time.Second, reg)

	b.RecordFailure()

	assert.Equal(t, 1.0, testutil.ToFloat64(b.transitions.WithLabelValues("closed", "open")))
	count, err := testutil.GatherAndCount(reg, "orca_provider_breaker_state_transitions_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "half_open", StateHalfOpen.String())
	assert.Equal(t, "unknown", State(42).String())
}
