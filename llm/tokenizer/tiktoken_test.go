package tokenizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTiktokenTokenizer_KnownModel(t *testing.T) {
	tok, err := NewTiktokenTokenizer("gpt-4")
	require.NoError(t, err)
	assert.Equal(t, 8192, tok.MaxTokens())
	assert.Equal(t, "tiktoken[cl100k_base]", tok.Name())
}

func TestNewTiktokenTokenizer_PrefixMatch(t *testing.T) {
	tok, err := NewTiktokenTokenizer("gpt-4o-mini-2024-07-18")
	require.NoError(t, err)
	assert.Equal(t, "tiktoken[o200k_base]", tok.Name())
}

func TestNewTiktokenTokenizer_UnknownModelDefaultsToCl100k(t *testing.T) {
	tok, err := NewTiktokenTokenizer("some-unreleased-model")
	require.NoError(t, err)
	assert.Equal(t, "tiktoken[cl100k_base]", tok.Name())
	assert.Equal(t, 8192, tok.MaxTokens())
}

func TestTiktokenTokenizer_CountTokens(t *testing.T) {
	tok, err := NewTiktokenTokenizer("gpt-4")
	require.NoError(t, err)

	count, err := tok.CountTokens("Hello, world!")
	require.NoError(t, err)
	assert.Greater(t, count, 0)
	assert.LessOrEqual(t, count, 10)
}

func TestTiktokenTokenizer_CountMessages_AddsOverhead(t *testing.T) {
	tok, err := NewTiktokenTokenizer("gpt-4")
	require.NoError(t, err)

	single, err := tok.CountMessages([]Message{{Role: "user", Content: "hi"}})
	require.NoError(t, err)
	double, err := tok.CountMessages([]Message{
		{Role: "user", Content: "hi"},
		{Role: "user", Content: "hi"},
	})
	require.NoError(t, err)
	assert.Greater(t, double, single)
}

func TestTiktokenTokenizer_EncodeDecodeRoundTrip(t *testing.T) {
	tok, err := NewTiktokenTokenizer("gpt-4")
	require.NoError(t, err)

	tokens, err := tok.Encode("Hello, world!")
	require.NoError(t, err)
	assert.NotEmpty(t, tokens)

	text, err := tok.Decode(tokens)
	require.NoError(t, err)
	assert.Equal(t, "Hello, world!", text)
}

func TestRegisterOpenAITokenizers_RegistersKnownModels(t *testing.T) {
	RegisterOpenAITokenizers()

	got, err := GetTokenizer("gpt-4o")
	require.NoError(t, err)
	assert.Equal(t, "tiktoken[o200k_base]", got.Name())
}
