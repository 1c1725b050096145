package tokenizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndGetTokenizer_ExactMatch(t *testing.T) {
	e := NewEstimatorTokenizer("some-model", 0)
	RegisterTokenizer("exact-model-name", e)

	got, err := GetTokenizer("exact-model-name")
	require.NoError(t, err)
	assert.Same(t, e, got)
}

func TestGetTokenizer_PrefixMatch(t *testing.T) {
	e := NewEstimatorTokenizer("custom-prefix", 0)
	RegisterTokenizer("custom-prefix", e)

	got, err := GetTokenizer("custom-prefix-v2-extended")
	require.NoError(t, err)
	assert.Same(t, e, got)
}

func TestGetTokenizer_UnregisteredReturnsError(t *testing.T) {
	_, err := GetTokenizer("never-registered-model-xyz")
	assert.Error(t, err)
}

func TestGetTokenizerOrEstimator_FallsBackToEstimator(t *testing.T) {
	got := GetTokenizerOrEstimator("never-registered-model-abc")
	assert.Equal(t, "estimator", got.Name())
}

func TestGetTokenizerOrEstimator_PrefersRegistered(t *testing.T) {
	e := NewEstimatorTokenizer("registered-fallback-model", 0).WithCharsPerToken(99)
	RegisterTokenizer("registered-fallback-model", e)

	got := GetTokenizerOrEstimator("registered-fallback-model")
	assert.Same(t, e, got)
}
