package breaker

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBreaker_OpensAtThreshold(t *testing.T) {
	b := New(nil)
	assert.Equal(t, StateClosed, b.State())

	for i := 0; i < Threshold-1; i++ {
		opened := b.RecordFailure()
		assert.False(t, opened)
		assert.Equal(t, StateClosed, b.State())
	}

	opened := b.RecordFailure()
	assert.True(t, opened)
	assert.Equal(t, StateOpen, b.State())
}

func TestBreaker_OnlyProbeCloses(t *testing.T) {
	b := New(nil)
	for i := 0; i < Threshold; i++ {
		b.RecordFailure()
	}
	assert.Equal(t, StateOpen, b.State())

	// A plain success (which cannot occur in practice against an open
	// instance) never reopens the path back to closed.
	b.RecordSuccess()
	assert.Equal(t, StateOpen, b.State())

	b.ProbeFailed()
	assert.Equal(t, StateOpen, b.State())

	b.ProbeSucceeded()
	assert.Equal(t, StateClosed, b.State())
	assert.Equal(t, 0, b.Errors())
}

func TestBreaker_SuccessResetsErrorCount(t *testing.T) {
	b := New(nil)
	b.RecordFailure()
	b.RecordFailure()
	assert.Equal(t, 2, b.Errors())

	b.RecordSuccess()
	assert.Equal(t, 0, b.Errors())
}
