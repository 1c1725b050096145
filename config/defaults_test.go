package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "", cfg.LLM.Use)
	assert.NotNil(t, cfg.LLM.Families)
	assert.Equal(t, 3, cfg.LLM.MaxValidatorRetries)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.False(t, cfg.Telemetry.Enabled)
	assert.Equal(t, "llmpool", cfg.Telemetry.ServiceName)
}
