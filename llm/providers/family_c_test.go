package providers

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/llmpool/types"
)

func TestFamilyCAdapter_Supports(t *testing.T) {
	a := &familyCAdapter{}
	assert.True(t, a.Supports(KindChat))
	assert.True(t, a.Supports(KindGenerate))
	assert.False(t, a.Supports(KindEmbed))
}

func TestFamilyCAdapter_BuildRequest_LiftsSystemMessageOutOfTurns(t *testing.T) {
	a := &familyCAdapter{}
	req := &Request{
		Kind: KindChat,
		Messages: []types.Message{
			types.NewSystemMessage("be terse"),
			types.NewUserMessage("hi"),
		},
	}

	httpReq, err := a.BuildRequest(InstanceView{APIKey: "k", APIBase: "https://c.example.com", Model: "m1"}, req)
	require.NoError(t, err)
	assert.Equal(t, "https://c.example.com/v1/messages", httpReq.URL)
	assert.Equal(t, familyCVersion, httpReq.Headers[familyCVersionHeader])

	var body familyCRequest
	require.NoError(t, json.Unmarshal(httpReq.Body, &body))
	assert.Equal(t, "be terse", body.System)
	require.Len(t, body.Messages, 1)
	assert.Equal(t, "hi", body.Messages[0].Content)
}

func TestFamilyCAdapter_BuildRequest_GenerateWrapsPromptAsUserTurn(t *testing.T) {
	a := &familyCAdapter{}
	req := &Request{Kind: KindGenerate, Prompt: "a prompt"}

	httpReq, err := a.BuildRequest(InstanceView{Model: "m1"}, req)
	require.NoError(t, err)

	var body familyCRequest
	require.NoError(t, json.Unmarshal(httpReq.Body, &body))
	require.Len(t, body.Messages, 1)
	assert.Equal(t, string(types.RoleUser), body.Messages[0].Role)
	assert.Equal(t, "a prompt", body.Messages[0].Content)
}

func TestFamilyCAdapter_BuildRequest_RejectsEmbed(t *testing.T) {
	a := &familyCAdapter{}
	_, err := a.BuildRequest(InstanceView{}, &Request{Kind: KindEmbed})
	assert.Error(t, err)
}

func TestFamilyCAdapter_ParseResponse_ExtractsTextAndUsage(t *testing.T) {
	a := &familyCAdapter{}
	body := []byte(`{"content":[{"text":"hello"}],"usage":{"input_tokens":3,"output_tokens":5}}`)

	reply, err := a.ParseResponse(KindChat, 200, body)
	require.NoError(t, err)
	assert.Equal(t, "hello", reply.Text)
	assert.Equal(t, 8, reply.Usage.TotalTokens)
}

func TestFamilyCAdapter_ParseResponse_NonSuccessStatus(t *testing.T) {
	a := &familyCAdapter{}
	_, err := a.ParseResponse(KindChat, 500, []byte(`{"error":{"message":"boom"}}`))
	assert.Error(t, err)
}

func TestFamilyCAdapter_ParseResponse_EmptyContentIsFormatError(t *testing.T) {
	a := &familyCAdapter{}
	_, err := a.ParseResponse(KindChat, 200, []byte(`{"content":[]}`))
	var fe *FormatError
	assert.ErrorAs(t, err, &fe)
}
