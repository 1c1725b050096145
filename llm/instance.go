package llm

import (
	"sync"
	"time"

	"github.com/BaSui01/llmpool/llm/breaker"
)

// Instance is a single (family, api_key, api_base, model, rate_limit) tuple
// with live selection/rate-limit/health state. All mutable fields are
// guarded by mu; BuildRequest/ParseResponse never touch this state directly
// — only the Balancer's dispatch path does, under mu.
type Instance struct {
	ID       string
	Family   Family
	APIKey   string
	APIBase  string
	Model    string
	RateLimit int

	mu             sync.Mutex
	window         []time.Time // bounded to RateLimit entries, oldest first
	activeRequests int
	totalRequests  int64
	totalTokens    int64
	lastUsedAt     time.Time

	breaker *breaker.Breaker
}

// NewInstance constructs an instance with an empty window and a closed
// breaker.
func NewInstance(id string, family Family, apiKey, apiBase, model string, rateLimit int) *Instance {
	return &Instance{
		ID:        id,
		Family:    family,
		APIKey:    apiKey,
		APIBase:   apiBase,
		Model:     model,
		RateLimit: rateLimit,
		window:    make([]time.Time, 0, rateLimit),
		breaker:   breaker.New(nil),
	}
}

// Active reports whether the instance's breaker is closed.
func (inst *Instance) Active() bool {
	return inst.breaker.State() == breaker.StateClosed
}

// ErrorCount returns the breaker's consecutive-error count.
func (inst *Instance) ErrorCount() int {
	return inst.breaker.Errors()
}

// Score computes the selection score: active_requests*1.0 + error_count*0.1.
func (inst *Instance) Score() float64 {
	inst.mu.Lock()
	active := inst.activeRequests
	inst.mu.Unlock()
	return float64(active) + float64(inst.ErrorCount())*0.1
}

// LastUsedAt returns the last dispatch time, for tie-breaking selection.
func (inst *Instance) LastUsedAt() time.Time {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	return inst.lastUsedAt
}

// hasCapacityLocked reports whether the sliding 60s window has room for one more
// request, pruning expired timestamps first. Caller must hold mu.
func (inst *Instance) hasCapacityLocked(now time.Time) bool {
	inst.pruneLocked(now)
	return len(inst.window) < inst.RateLimit
}

// pruneLocked drops window entries older than 60s. Caller must hold mu.
func (inst *Instance) pruneLocked(now time.Time) {
	cutoff := now.Add(-60 * time.Second)
	i := 0
	for i < len(inst.window) && inst.window[i].Before(cutoff) {
		i++
	}
	if i > 0 {
		inst.window = inst.window[i:]
	}
}

// HasCapacity reports whether a dispatch can be enqueued right now.
func (inst *Instance) HasCapacity(now time.Time) bool {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	return inst.hasCapacityLocked(now)
}

// NextSlotAt returns the time at which the oldest window entry ages out,
// freeing a slot. Only meaningful when HasCapacity is false.
func (inst *Instance) NextSlotAt() time.Time {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	if len(inst.window) == 0 {
		return time.Now()
	}
	return inst.window[0].Add(60 * time.Second)
}

// WindowLen returns the current window occupancy, for tests.
func (inst *Instance) WindowLen() int {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	return len(inst.window)
}

// beginDispatchLocked enqueues the current timestamp and increments the
// active-request counter. Call only after hasCapacityLocked returned true
// under the same critical section (see tryReserve).
func (inst *Instance) beginDispatchLocked(now time.Time) {
	inst.window = append(inst.window, now)
	inst.activeRequests++
}

// tryReserve atomically checks capacity and reserves a slot if available.
func (inst *Instance) tryReserve(now time.Time) bool {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	if !inst.hasCapacityLocked(now) {
		return false
	}
	inst.beginDispatchLocked(now)
	return true
}

// rollbackReservation undoes tryReserve without recording a failure; used
// when the caller's context is cancelled while the dispatch is in flight.
func (inst *Instance) rollbackReservation(sentAt time.Time) {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	inst.activeRequests--
	for i, ts := range inst.window {
		if ts.Equal(sentAt) {
			inst.window = append(inst.window[:i], inst.window[i+1:]...)
			break
		}
	}
}

// finishSuccess records a successful dispatch outcome.
func (inst *Instance) finishSuccess(totalTokens int64) {
	inst.mu.Lock()
	inst.activeRequests--
	inst.totalRequests++
	inst.totalTokens += totalTokens
	inst.lastUsedAt = time.Now()
	inst.mu.Unlock()
	inst.breaker.RecordSuccess()
}

// finishFailure records a failed dispatch outcome; returns true if this
// failure opened the circuit.
func (inst *Instance) finishFailure() bool {
	inst.mu.Lock()
	inst.activeRequests--
	inst.mu.Unlock()
	return inst.breaker.RecordFailure()
}

// Stats returns a read-only snapshot of this instance.
func (inst *Instance) Stats() InstanceStats {
	inst.mu.Lock()
	total := inst.totalRequests
	tokens := inst.totalTokens
	inst.mu.Unlock()
	return InstanceStats{
		InstanceID:    inst.ID,
		Active:        inst.Active(),
		TotalRequests: total,
		TotalTokens:   tokens,
		ErrorCount:    inst.ErrorCount(),
	}
}
