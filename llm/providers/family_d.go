package providers

import (
	"encoding/json"
	"fmt"

	"github.com/BaSui01/llmpool/types"
)

type familyDPart struct {
	Text string `json:"text"`
}

type familyDContent struct {
	Role  string        `json:"role,omitempty"`
	Parts []familyDPart `json:"parts"`
}

type familyDGenerationConfig struct {
	Temperature     *float64 `json:"temperature,omitempty"`
	MaxOutputTokens *int     `json:"maxOutputTokens,omitempty"`
	TopP            *float64 `json:"topP,omitempty"`
}

type familyDChatRequest struct {
	Contents          []familyDContent         `json:"contents"`
	SystemInstruction *familyDContent          `json:"systemInstruction,omitempty"`
	GenerationConfig  *familyDGenerationConfig `json:"generationConfig,omitempty"`
}

type familyDUsageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

type familyDCandidate struct {
	Content familyDContent `json:"content"`
}

type familyDChatResponse struct {
	Candidates    []familyDCandidate   `json:"candidates"`
	UsageMetadata familyDUsageMetadata `json:"usageMetadata"`
}

type familyDEmbedRequest struct {
	Content familyDContent `json:"content"`
}

type familyDEmbedding struct {
	Values []float64 `json:"values"`
}

type familyDEmbedResponse struct {
	Embedding familyDEmbedding `json:"embedding"`
}

// familyDAdapter implements family D's Gemini-style wire shape: the model
// id is part of the URL path, chat bodies use contents/parts, the system
// prompt is a dedicated top-level field, and embeddings go to a separate
// :embedContent path returning a single `values` vector per call.
type familyDAdapter struct{}

func (a *familyDAdapter) Family() Family { return FamilyD }

func (a *familyDAdapter) Supports(kind RequestKind) bool {
	switch kind {
	case KindChat, KindGenerate, KindEmbed:
		return true
	default:
		return false
	}
}

func (a *familyDAdapter) BuildRequest(inst InstanceView, req *Request) (*HTTPRequest, error) {
	switch req.Kind {
	case KindChat, KindGenerate:
		return a.buildChatRequest(inst, req)
	case KindEmbed:
		return a.buildEmbedRequest(inst, req)
	default:
		return nil, fmt.Errorf("unsupported request kind %q", req.Kind)
	}
}

func (a *familyDAdapter) buildChatRequest(inst InstanceView, req *Request) (*HTTPRequest, error) {
	messages := req.Messages
	if req.Kind == KindGenerate {
		messages = []types.Message{{Role: types.RoleUser, Content: req.Prompt}}
	}

	var system *familyDContent
	contents := make([]familyDContent, 0, len(messages))
	for _, m := range messages {
		if m.Role == types.RoleSystem {
			system = &familyDContent{Parts: []familyDPart{{Text: m.Content}}}
			continue
		}
		role := "user"
		if m.Role == types.RoleAssistant {
			role = "model"
		}
		contents = append(contents, familyDContent{Role: role, Parts: []familyDPart{{Text: m.Content}}})
	}

	body := familyDChatRequest{
		Contents:          contents,
		SystemInstruction: system,
		GenerationConfig: &familyDGenerationConfig{
			Temperature:     req.Params.Temperature,
			MaxOutputTokens: req.Params.MaxTokens,
			TopP:            req.Params.TopP,
		},
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	return &HTTPRequest{
		Method: "POST",
		URL:    fmt.Sprintf("%s/v1/models/%s:generateContent?key=%s", inst.APIBase, inst.Model, inst.APIKey),
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
		Body: raw,
	}, nil
}

func (a *familyDAdapter) buildEmbedRequest(inst InstanceView, req *Request) (*HTTPRequest, error) {
	if len(req.Texts) != 1 {
		return nil, fmt.Errorf("family D embeds one text per call")
	}
	body := familyDEmbedRequest{
		Content: familyDContent{Parts: []familyDPart{{Text: req.Texts[0]}}},
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	return &HTTPRequest{
		Method: "POST",
		URL:    fmt.Sprintf("%s/v1/models/%s:embedContent?key=%s", inst.APIBase, inst.Model, inst.APIKey),
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
		Body: raw,
	}, nil
}

func (a *familyDAdapter) ParseResponse(kind RequestKind, status int, body []byte) (*NormalizedReply, error) {
	if status < 200 || status >= 300 {
		return nil, MapHTTPError(status, body)
	}

	switch kind {
	case KindChat, KindGenerate:
		var resp familyDChatResponse
		if err := json.Unmarshal(body, &resp); err != nil || len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
			return nil, &FormatError{Cause: fmt.Errorf("decode family D response: %w", err)}
		}
		return &NormalizedReply{
			Text: resp.Candidates[0].Content.Parts[0].Text,
			Usage: types.TokenUsage{
				PromptTokens:     resp.UsageMetadata.PromptTokenCount,
				CompletionTokens: resp.UsageMetadata.CandidatesTokenCount,
				TotalTokens:      resp.UsageMetadata.TotalTokenCount,
			},
		}, nil
	case KindEmbed:
		var resp familyDEmbedResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, &FormatError{Cause: fmt.Errorf("decode family D embedding: %w", err)}
		}
		return &NormalizedReply{Vectors: [][]float64{resp.Embedding.Values}}, nil
	default:
		return nil, fmt.Errorf("unsupported request kind %q", kind)
	}
}
