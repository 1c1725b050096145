package llm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewInstance_StartsActiveWithEmptyWindow(t *testing.T) {
	inst := NewInstance("a-1", FamilyA, "key", "https://api.example.com", "m1", 20)
	assert.True(t, inst.Active())
	assert.Equal(t, 0, inst.WindowLen())
	assert.Equal(t, 0, inst.ErrorCount())
}

func TestInstance_TryReserve_RespectsRateLimit(t *testing.T) {
	inst := NewInstance("a-1", FamilyA, "key", "base", "m1", 2)
	now := time.Now()

	require.True(t, inst.tryReserve(now))
	require.True(t, inst.tryReserve(now))
	assert.False(t, inst.tryReserve(now), "third reservation should exceed rate limit of 2")
	assert.Equal(t, 2, inst.WindowLen())
}

func TestInstance_WindowPrunesExpiredEntries(t *testing.T) {
	inst := NewInstance("a-1", FamilyA, "key", "base", "m1", 1)
	past := time.Now().Add(-61 * time.Second)
	require.True(t, inst.tryReserve(past))

	now := time.Now()
	assert.True(t, inst.HasCapacity(now), "entry older than 60s should have been pruned")
}

func TestInstance_RollbackReservation_FreesSlot(t *testing.T) {
	inst := NewInstance("a-1", FamilyA, "key", "base", "m1", 1)
	now := time.Now()
	require.True(t, inst.tryReserve(now))
	assert.False(t, inst.HasCapacity(now))

	inst.rollbackReservation(now)
	assert.True(t, inst.HasCapacity(now))
	assert.Equal(t, 0, inst.WindowLen())
}

func TestInstance_NextSlotAt_IsOldestEntryPlusWindow(t *testing.T) {
	inst := NewInstance("a-1", FamilyA, "key", "base", "m1", 1)
	now := time.Now()
	require.True(t, inst.tryReserve(now))

	next := inst.NextSlotAt()
	assert.WithinDuration(t, now.Add(60*time.Second), next, time.Second)
}

func TestInstance_FinishSuccess_RecordsStats(t *testing.T) {
	inst := NewInstance("a-1", FamilyA, "key", "base", "m1", 20)
	now := time.Now()
	require.True(t, inst.tryReserve(now))

	inst.finishSuccess(42)
	stats := inst.Stats()
	assert.Equal(t, int64(1), stats.TotalRequests)
	assert.Equal(t, int64(42), stats.TotalTokens)
	assert.True(t, stats.Active)
}

func TestInstance_FinishFailure_OpensBreakerAtThreshold(t *testing.T) {
	inst := NewInstance("a-1", FamilyA, "key", "base", "m1", 20)

	var opened bool
	for i := 0; i < 3; i++ {
		require.True(t, inst.tryReserve(time.Now()))
		opened = inst.finishFailure()
	}
	assert.True(t, opened)
	assert.False(t, inst.Active())
}

func TestInstance_Score_WeightsActiveAboveErrors(t *testing.T) {
	idle := NewInstance("idle", FamilyA, "key", "base", "m1", 20)
	busy := NewInstance("busy", FamilyA, "key", "base", "m1", 20)
	require.True(t, busy.tryReserve(time.Now()))

	assert.Greater(t, busy.Score(), idle.Score())
}
