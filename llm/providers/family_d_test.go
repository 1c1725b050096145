package providers

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/llmpool/types"
)

func TestFamilyDAdapter_Supports(t *testing.T) {
	a := &familyDAdapter{}
	assert.True(t, a.Supports(KindChat))
	assert.True(t, a.Supports(KindGenerate))
	assert.True(t, a.Supports(KindEmbed))
}

func TestFamilyDAdapter_BuildChatRequest_ModelAndKeyInURL(t *testing.T) {
	a := &familyDAdapter{}
	req := &Request{Kind: KindGenerate, Prompt: "hi"}

	httpReq, err := a.BuildRequest(InstanceView{APIKey: "my-key", APIBase: "https://d.example.com", Model: "gemini-x"}, req)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(httpReq.URL, "https://d.example.com/v1/models/gemini-x:generateContent?key=my-key"))
}

func TestFamilyDAdapter_BuildChatRequest_MapsAssistantRoleToModel(t *testing.T) {
	a := &familyDAdapter{}
	req := &Request{
		Kind: KindChat,
		Messages: []types.Message{
			types.NewUserMessage("hi"),
			types.NewAssistantMessage("hello"),
		},
	}

	httpReq, err := a.BuildRequest(InstanceView{Model: "gemini-x"}, req)
	require.NoError(t, err)

	var body familyDChatRequest
	require.NoError(t, json.Unmarshal(httpReq.Body, &body))
	require.Len(t, body.Contents, 2)
	assert.Equal(t, "user", body.Contents[0].Role)
	assert.Equal(t, "model", body.Contents[1].Role)
}

func TestFamilyDAdapter_BuildChatRequest_SystemMessageBecomesTopLevelField(t *testing.T) {
	a := &familyDAdapter{}
	req := &Request{
		Kind: KindChat,
		Messages: []types.Message{
			types.NewSystemMessage("be terse"),
			types.NewUserMessage("hi"),
		},
	}

	httpReq, err := a.BuildRequest(InstanceView{Model: "gemini-x"}, req)
	require.NoError(t, err)

	var body familyDChatRequest
	require.NoError(t, json.Unmarshal(httpReq.Body, &body))
	require.NotNil(t, body.SystemInstruction)
	assert.Equal(t, "be terse", body.SystemInstruction.Parts[0].Text)
	assert.Len(t, body.Contents, 1)
}

func TestFamilyDAdapter_BuildEmbedRequest_RejectsMultipleTexts(t *testing.T) {
	a := &familyDAdapter{}
	_, err := a.BuildRequest(InstanceView{Model: "embed-x"}, &Request{Kind: KindEmbed, Texts: []string{"a", "b"}})
	assert.Error(t, err)
}

func TestFamilyDAdapter_BuildEmbedRequest_SingleTextUsesEmbedContentPath(t *testing.T) {
	a := &familyDAdapter{}
	httpReq, err := a.BuildRequest(InstanceView{APIKey: "k", APIBase: "https://d.example.com", Model: "embed-x"},
		&Request{Kind: KindEmbed, Texts: []string{"only one"}})
	require.NoError(t, err)
	assert.True(t, strings.Contains(httpReq.URL, ":embedContent"))

	var body familyDEmbedRequest
	require.NoError(t, json.Unmarshal(httpReq.Body, &body))
	assert.Equal(t, "only one", body.Content.Parts[0].Text)
}

func TestFamilyDAdapter_ParseResponse_Chat(t *testing.T) {
	a := &familyDAdapter{}
	body := []byte(`{"candidates":[{"content":{"parts":[{"text":"hi back"}]}}],"usageMetadata":{"promptTokenCount":2,"candidatesTokenCount":3,"totalTokenCount":5}}`)

	reply, err := a.ParseResponse(KindChat, 200, body)
	require.NoError(t, err)
	assert.Equal(t, "hi back", reply.Text)
	assert.Equal(t, 5, reply.Usage.TotalTokens)
}

func TestFamilyDAdapter_ParseResponse_Embed(t *testing.T) {
	a := &familyDAdapter{}
	body := []byte(`{"embedding":{"values":[0.1,0.2,0.3]}}`)

	reply, err := a.ParseResponse(KindEmbed, 200, body)
	require.NoError(t, err)
	require.Len(t, reply.Vectors, 1)
	assert.Equal(t, []float64{0.1, 0.2, 0.3}, reply.Vectors[0])
}

func TestFamilyDAdapter_ParseResponse_EmptyCandidatesIsFormatError(t *testing.T) {
	a := &familyDAdapter{}
	_, err := a.ParseResponse(KindChat, 200, []byte(`{"candidates":[]}`))
	var fe *FormatError
	assert.ErrorAs(t, err, &fe)
}

func TestFamilyDAdapter_ParseResponse_NonSuccessStatus(t *testing.T) {
	a := &familyDAdapter{}
	_, err := a.ParseResponse(KindChat, 503, []byte(`{"error":{"message":"unavailable"}}`))
	assert.Error(t, err)
}
