package providers

import (
	"encoding/json"
	"fmt"
)

// UpstreamHTTPError carries a non-2xx upstream response. The balancer maps
// this into llm.Error{Kind: KindUpstreamHTTPError} at the dispatch layer;
// adapters only need to report status and body.
type UpstreamHTTPError struct {
	Status int
	Body   string
}

func (e *UpstreamHTTPError) Error() string {
	return fmt.Sprintf("upstream http %d: %s", e.Status, e.Body)
}

// FormatError wraps a 2xx response whose JSON does not match what the
// adapter expected.
type FormatError struct {
	Cause error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("unexpected upstream response shape: %v", e.Cause)
}

func (e *FormatError) Unwrap() error {
	return e.Cause
}

// errorEnvelope is the common shape of `{"error": {"message": "..."}}`
// bodies used by most OpenAI-compatible and Gemini-style upstreams.
type errorEnvelope struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// ReadErrorMessage extracts a human-readable message from a non-2xx body,
// falling back to the raw body when it doesn't parse as an error envelope.
func ReadErrorMessage(body []byte) string {
	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err == nil && env.Error.Message != "" {
		return env.Error.Message
	}
	if len(body) > 512 {
		return string(body[:512])
	}
	return string(body)
}

// MapHTTPError builds an UpstreamHTTPError for any non-2xx status, reading
// the message out of the body first.
func MapHTTPError(status int, body []byte) error {
	return &UpstreamHTTPError{Status: status, Body: ReadErrorMessage(body)}
}

// ChooseModel returns reqModel if set, else the instance's configured
// default.
func ChooseModel(reqModel, defaultModel string) string {
	if reqModel != "" {
		return reqModel
	}
	return defaultModel
}
