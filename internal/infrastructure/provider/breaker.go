package provider

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// State represents the circuit breaker state.
type State int

const (
	StateClosed   State = iota // requests flow through
	StateOpen                  // requests are rejected
	StateHalfOpen              // one trial request is in flight
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// Breaker guards the provider. It opens after threshold consecutive failures
// and, once cooldown has elapsed, lets a single trial request through.
type Breaker struct {
	lastFailure time.Time
	transitions *prometheus.CounterVec
	now         func() time.Time
	cooldown    time.Duration
	threshold   int
	failures    int
	state       State
	mu          sync.Mutex
}

// NewBreaker creates a breaker. If reg is non-nil the state transition
// counter is registered on it.
func NewBreaker(threshold int, cooldown time.Duration, reg prometheus.Registerer) *Breaker {
	if threshold <= 0 {
		threshold = 5
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}

	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "orca",
		Subsystem: "provider_breaker",
		Name:      "state_transitions_total",
		Help:      "Risk provider circuit breaker transitions by from-state and to-state.",
	}, []string{"from_state", "to_state"})
	if reg != nil {
		reg.MustRegister(transitions)
	}

	return &Breaker{
		transitions: transitions,
		now:         time.Now,
		cooldown:    cooldown,
		threshold:   threshold,
	}
}

// Allow reports whether a request may proceed. An open breaker whose
// cooldown has elapsed moves to half-open and allows one trial request.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateOpen:
		if b.now().Sub(b.lastFailure) >= b.cooldown {
			b.transition(StateHalfOpen)
			return true
		}
		return false
	case StateHalfOpen:
		return false
	default:
		return true
	}
}

// RecordSuccess resets the failure count and closes a half-open breaker.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures = 0
	if b.state == StateHalfOpen {
		b.transition(StateClosed)
	}
}

// RecordFailure counts a failure and opens the breaker at the threshold.
// A failed trial request reopens it immediately.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	b.lastFailure = b.now()

	switch {
	case b.state == StateHalfOpen:
		b.transition(StateOpen)
	case b.state == StateClosed && b.failures >= b.threshold:
		b.transition(StateOpen)
	}
}

// State returns the current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// transition must be called with b.mu held.
func (b *Breaker) transition(to State) {
	from := b.state
	if from == to {
		return
	}
	b.state = to
	b.transitions.WithLabelValues(from.String(), to.String()).Inc()
}
