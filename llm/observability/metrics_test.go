package observability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/llmpool/types"
)

func TestNewMetrics_RegistersInstruments(t *testing.T) {
	m, err := NewMetrics()
	require.NoError(t, err)
	require.NotNil(t, m)
}

func TestMetrics_RecordMethodsDoNotPanic(t *testing.T) {
	m, err := NewMetrics()
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		m.RecordSuccess("A", 42)
		m.RecordError("A", types.NewError("UPSTREAM_HTTP_ERROR", "bad"))
		m.RecordRetry("A")
		m.RecordLatency("A", 10*time.Millisecond)
	})
}

func TestMetrics_NilReceiverIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordSuccess("A", 1)
		m.RecordError("A", nil)
		m.RecordRetry("A")
		m.RecordLatency("A", time.Second)
	})
}
