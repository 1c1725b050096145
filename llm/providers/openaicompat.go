package providers

import (
	"encoding/json"
	"fmt"

	"github.com/BaSui01/llmpool/types"
)

// openaiMessage is the wire shape of one chat message for OpenAI-compatible
// upstreams.
type openaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openaiChatRequest struct {
	Model       string          `json:"model"`
	Messages    []openaiMessage `json:"messages"`
	MaxTokens   *int            `json:"max_tokens,omitempty"`
	Temperature *float64        `json:"temperature,omitempty"`
	TopP        *float64        `json:"top_p,omitempty"`
	Stream      bool            `json:"stream"`
}

type openaiChatChoice struct {
	Message openaiMessage `json:"message"`
}

type openaiUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type openaiChatResponse struct {
	Choices []openaiChatChoice `json:"choices"`
	Usage   openaiUsage        `json:"usage"`
}

type openaiEmbedRequest struct {
	Model          string   `json:"model"`
	Input          []string `json:"input"`
	EncodingFormat string   `json:"encoding_format,omitempty"`
}

type openaiEmbedDatum struct {
	Embedding []float64 `json:"embedding"`
	Index     int        `json:"index"`
}

type openaiEmbedResponse struct {
	Data  []openaiEmbedDatum `json:"data"`
	Usage openaiUsage        `json:"usage"`
}

// openaiCompatAdapter implements the shared OpenAI-compatible wire shape
// used by Families A, B, E, and F. The only axis of variation across those
// families is embeddings support, controlled by embeddings.
type openaiCompatAdapter struct {
	family     Family
	embeddings bool
}

func newOpenAICompat(family Family, embeddings bool) *openaiCompatAdapter {
	return &openaiCompatAdapter{family: family, embeddings: embeddings}
}

func (a *openaiCompatAdapter) Family() Family { return a.family }

func (a *openaiCompatAdapter) Supports(kind RequestKind) bool {
	switch kind {
	case KindChat, KindGenerate:
		return true
	case KindEmbed:
		return a.embeddings
	default:
		return false
	}
}

func (a *openaiCompatAdapter) BuildRequest(inst InstanceView, req *Request) (*HTTPRequest, error) {
	switch req.Kind {
	case KindChat, KindGenerate:
		return a.buildChatRequest(inst, req)
	case KindEmbed:
		if !a.embeddings {
			return nil, fmt.Errorf("family %s does not support embeddings", a.family)
		}
		return a.buildEmbedRequest(inst, req)
	default:
		return nil, fmt.Errorf("unsupported request kind %q", req.Kind)
	}
}

func (a *openaiCompatAdapter) buildChatRequest(inst InstanceView, req *Request) (*HTTPRequest, error) {
	messages := req.Messages
	if req.Kind == KindGenerate {
		messages = []types.Message{{Role: types.RoleUser, Content: req.Prompt}}
	}

	wire := make([]openaiMessage, len(messages))
	for i, m := range messages {
		wire[i] = openaiMessage{Role: string(m.Role), Content: m.Content}
	}

	body := openaiChatRequest{
		Model:       inst.Model,
		Messages:    wire,
		MaxTokens:   req.Params.MaxTokens,
		Temperature: req.Params.Temperature,
		TopP:        req.Params.TopP,
		Stream:      false,
	}

	raw, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	return &HTTPRequest{
		Method: "POST",
		URL:    inst.APIBase + "/v1/chat/completions",
		Headers: map[string]string{
			"Authorization": "Bearer " + inst.APIKey,
			"Content-Type":  "application/json",
		},
		Body: raw,
	}, nil
}

func (a *openaiCompatAdapter) buildEmbedRequest(inst InstanceView, req *Request) (*HTTPRequest, error) {
	body := openaiEmbedRequest{
		Model:          inst.Model,
		Input:          req.Texts,
		EncodingFormat: req.Params.EncodingFormat,
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	return &HTTPRequest{
		Method: "POST",
		URL:    inst.APIBase + "/v1/embeddings",
		Headers: map[string]string{
			"Authorization": "Bearer " + inst.APIKey,
			"Content-Type":  "application/json",
		},
		Body: raw,
	}, nil
}

func (a *openaiCompatAdapter) ParseResponse(kind RequestKind, status int, body []byte) (*NormalizedReply, error) {
	if status < 200 || status >= 300 {
		return nil, MapHTTPError(status, body)
	}

	switch kind {
	case KindChat, KindGenerate:
		var resp openaiChatResponse
		if err := json.Unmarshal(body, &resp); err != nil || len(resp.Choices) == 0 {
			return nil, &FormatError{Cause: fmt.Errorf("decode chat completion: %w", err)}
		}
		return &NormalizedReply{
			Text: resp.Choices[0].Message.Content,
			Usage: types.TokenUsage{
				PromptTokens:     resp.Usage.PromptTokens,
				CompletionTokens: resp.Usage.CompletionTokens,
				TotalTokens:      resp.Usage.TotalTokens,
			},
		}, nil
	case KindEmbed:
		var resp openaiEmbedResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, &FormatError{Cause: fmt.Errorf("decode embeddings: %w", err)}
		}
		vectors := make([][]float64, len(resp.Data))
		for _, d := range resp.Data {
			if d.Index < 0 || d.Index >= len(vectors) {
				return nil, &FormatError{Cause: fmt.Errorf("embedding index %d out of range", d.Index)}
			}
			vectors[d.Index] = d.Embedding
		}
		return &NormalizedReply{
			Vectors: vectors,
			Usage: types.TokenUsage{
				PromptTokens: resp.Usage.PromptTokens,
				TotalTokens:  resp.Usage.TotalTokens,
			},
		}, nil
	default:
		return nil, fmt.Errorf("unsupported request kind %q", kind)
	}
}
