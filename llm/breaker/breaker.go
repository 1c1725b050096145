// Package breaker implements the two-state circuit breaker that backs each
// provider instance's active flag.
//
// Unlike a classic three-state breaker, there is no timeout-driven half-open
// recovery: once open, an instance stays excluded from selection until the
// health-check loop runs an explicit probe and that probe succeeds.
package breaker

import (
	"sync"

	"go.uber.org/zap"
)

// State is the breaker's two-valued state.
type State int

const (
	// StateClosed means the instance is eligible for selection.
	StateClosed State = iota
	// StateOpen means the instance is excluded from selection.
	StateOpen
)

func (s State) String() string {
	if s == StateOpen {
		return "Open"
	}
	return "Closed"
}

// Threshold is the consecutive-error count that opens the breaker.
const Threshold = 3

// Breaker tracks the open/closed state and error count for one provider
// instance. It holds no reference back to the instance; callers read
// State()/Errors() and feed outcomes through RecordSuccess/RecordFailure.
type Breaker struct {
	logger *zap.Logger

	mu     sync.Mutex
	state  State
	errors int
}

// New creates a closed breaker.
func New(logger *zap.Logger) *Breaker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Breaker{logger: logger, state: StateClosed}
}

// State returns the current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Errors returns the current consecutive-error count.
func (b *Breaker) Errors() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.errors
}

// RecordSuccess resets the error count. A successful dispatch never happens
// against an already-open instance, so this never transitions Open->Closed
// by itself — only ProbeSucceeded does that.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.errors = 0
}

// RecordFailure increments the error count and opens the breaker once it
// reaches Threshold. Returns true if this call opened the breaker.
func (b *Breaker) RecordFailure() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.errors++
	if b.state == StateClosed && b.errors >= Threshold {
		b.state = StateOpen
		b.logger.Warn("circuit opened", zap.Int("errors", b.errors))
		return true
	}
	return false
}

// ProbeSucceeded closes the breaker and resets the error count. Called only
// after a successful health-check probe against an open instance.
func (b *Breaker) ProbeSucceeded() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateOpen {
		b.logger.Info("circuit closed by health probe")
	}
	b.state = StateClosed
	b.errors = 0
}

// ProbeFailed leaves the breaker open.
func (b *Breaker) ProbeFailed() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.logger.Debug("health probe failed, circuit remains open")
}
