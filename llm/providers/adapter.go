// Package providers implements one Adapter per upstream wire-shape family.
// Adapters are pure, stateless translators: build an HTTP request for one
// logical call, parse an HTTP response into a NormalizedReply. This package
// is a leaf — it has no dependency on the balancer or client packages, so
// that the orchestration layer can depend on it without a cycle.
package providers

import "github.com/BaSui01/llmpool/types"

// Family identifies one of the six supported upstream wire-shape families.
type Family string

const (
	FamilyA Family = "A"
	FamilyB Family = "B"
	FamilyC Family = "C"
	FamilyD Family = "D"
	FamilyE Family = "E"
	FamilyF Family = "F"
)

// RequestKind identifies the logical operation being dispatched.
type RequestKind string

const (
	KindChat     RequestKind = "chat"
	KindGenerate RequestKind = "generate"
	KindEmbed    RequestKind = "embed"
)

// ParamBag carries the recognized per-call parameters plus vendor-specific
// extras, forwarded transparently to the adapter.
type ParamBag struct {
	Temperature    *float64
	MaxTokens      *int
	TopP           *float64
	EncodingFormat string
	Extra          map[string]any
}

// InstanceView is the read-only slice of ProviderInstance state an adapter
// needs: identity, not live counters.
type InstanceView struct {
	APIKey  string
	APIBase string
	Model   string
}

// Request is the adapter-facing view of a LogicalRequest.
type Request struct {
	Kind   RequestKind
	Messages []types.Message // chat
	Prompt   string          // generate, pre-wrapping: build_request wraps it as a single user message
	Texts    []string        // embed
	Params   ParamBag
}

// HTTPRequest is everything needed to perform one HTTP call.
type HTTPRequest struct {
	Method string
	URL    string
	Headers map[string]string
	Body    []byte
}

// NormalizedReply is the adapter's parsed, vendor-neutral result.
type NormalizedReply struct {
	Text    string
	Vectors [][]float64
	Usage   types.TokenUsage
}

// Adapter translates one logical request into one upstream family's wire
// shape and parses its reply. Implementations never retry and never touch
// instance-level counters.
type Adapter interface {
	Family() Family
	Supports(kind RequestKind) bool
	BuildRequest(inst InstanceView, req *Request) (*HTTPRequest, error)
	ParseResponse(kind RequestKind, status int, body []byte) (*NormalizedReply, error)
}

// Registry maps each family to its adapter.
type Registry map[Family]Adapter

// DefaultRegistry returns the registry of all six family adapters.
func DefaultRegistry() Registry {
	return Registry{
		FamilyA: newOpenAICompat(FamilyA, true),
		FamilyB: newOpenAICompat(FamilyB, true),
		FamilyC: &familyCAdapter{},
		FamilyD: &familyDAdapter{},
		FamilyE: newOpenAICompat(FamilyE, false),
		FamilyF: newOpenAICompat(FamilyF, true),
	}
}
