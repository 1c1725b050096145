package providers

import (
	"encoding/json"
	"fmt"

	"github.com/BaSui01/llmpool/types"
)

// familyCVersionHeader is the mandatory version header family C requires on
// every request, mirroring the anthropic-version convention.
const familyCVersionHeader = "X-Provider-Version"

// familyCVersion is the wire-protocol version this adapter speaks.
const familyCVersion = "2025-01-01"

type familyCMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type familyCRequest struct {
	Model       string           `json:"model"`
	System      string           `json:"system,omitempty"`
	Messages    []familyCMessage `json:"messages"`
	MaxTokens   *int             `json:"max_tokens,omitempty"`
	Temperature *float64         `json:"temperature,omitempty"`
	TopP        *float64         `json:"top_p,omitempty"`
}

type familyCUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type familyCContentBlock struct {
	Text string `json:"text"`
}

type familyCResponse struct {
	Content []familyCContentBlock `json:"content"`
	Usage   familyCUsage          `json:"usage"`
}

// familyCAdapter implements family C's bespoke messages schema: the system
// prompt is a top-level field, never a "system" role turn, and a version
// header is mandatory on every call. It has no embeddings endpoint.
type familyCAdapter struct{}

func (a *familyCAdapter) Family() Family { return FamilyC }

func (a *familyCAdapter) Supports(kind RequestKind) bool {
	return kind == KindChat || kind == KindGenerate
}

func (a *familyCAdapter) BuildRequest(inst InstanceView, req *Request) (*HTTPRequest, error) {
	if req.Kind != KindChat && req.Kind != KindGenerate {
		return nil, fmt.Errorf("family C does not support %q", req.Kind)
	}

	messages := req.Messages
	if req.Kind == KindGenerate {
		messages = []types.Message{{Role: types.RoleUser, Content: req.Prompt}}
	}

	var system string
	wire := make([]familyCMessage, 0, len(messages))
	for _, m := range messages {
		if m.Role == types.RoleSystem {
			system = m.Content
			continue
		}
		wire = append(wire, familyCMessage{Role: string(m.Role), Content: m.Content})
	}

	body := familyCRequest{
		Model:       inst.Model,
		System:      system,
		Messages:    wire,
		MaxTokens:   req.Params.MaxTokens,
		Temperature: req.Params.Temperature,
		TopP:        req.Params.TopP,
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	return &HTTPRequest{
		Method: "POST",
		URL:    inst.APIBase + "/v1/messages",
		Headers: map[string]string{
			"Authorization":      "Bearer " + inst.APIKey,
			"Content-Type":       "application/json",
			familyCVersionHeader: familyCVersion,
		},
		Body: raw,
	}, nil
}

func (a *familyCAdapter) ParseResponse(kind RequestKind, status int, body []byte) (*NormalizedReply, error) {
	if status < 200 || status >= 300 {
		return nil, MapHTTPError(status, body)
	}
	var resp familyCResponse
	if err := json.Unmarshal(body, &resp); err != nil || len(resp.Content) == 0 {
		return nil, &FormatError{Cause: fmt.Errorf("decode family C response: %w", err)}
	}
	return &NormalizedReply{
		Text: resp.Content[0].Text,
		Usage: types.TokenUsage{
			PromptTokens:     resp.Usage.InputTokens,
			CompletionTokens: resp.Usage.OutputTokens,
			TotalTokens:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
		},
	}, nil
}
