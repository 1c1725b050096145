package llm

import (
	"github.com/BaSui01/llmpool/llm/providers"
	"github.com/BaSui01/llmpool/llm/validator"
	"github.com/BaSui01/llmpool/types"
)

// Family and RequestKind are owned by the providers package, since adapters
// are the leaf that defines what a family or kind means; the balancer and
// client reuse them by alias.
type Family = providers.Family
type RequestKind = providers.RequestKind
type ParamBag = providers.ParamBag

const (
	FamilyA = providers.FamilyA
	FamilyB = providers.FamilyB
	FamilyC = providers.FamilyC
	FamilyD = providers.FamilyD
	FamilyE = providers.FamilyE
	FamilyF = providers.FamilyF
)

const (
	KindChat     = providers.KindChat
	KindGenerate = providers.KindGenerate
	KindEmbed    = providers.KindEmbed
)

// RetryPolicy is the caller-selected retry behavior for one LogicalRequest.
type RetryPolicy string

const (
	RetryOnce     RetryPolicy = "retry_once"
	RetryFixed    RetryPolicy = "fixed"
	RetryInfinite RetryPolicy = "infinite"
)

// DefaultFixedAttempts is the attempt cap used by RetryFixed when the caller
// does not override it.
const DefaultFixedAttempts = 3

// Validator and ValidationOutcome are owned by llm/validator, which defines
// the three concrete variants; the client reuses them by alias.
type Validator = validator.Validator
type ValidationOutcome = validator.Outcome

// LogicalRequest is a caller's single logical operation: a chat, a
// generate, or an embed call.
type LogicalRequest struct {
	TraceID             string
	Kind                RequestKind
	Messages            []types.Message // chat
	Prompt              string          // generate
	Texts               []string        // embed
	Params              ParamBag
	RetryPolicy         RetryPolicy
	FixedAttempts       int    // only meaningful for RetryFixed; 0 means DefaultFixedAttempts
	Pin                 Family // optional: forces selection within one family
	Validator           Validator
	MaxValidatorRetries int // not read by Client or Balancer; Client.Chat takes its cap from CallOptions
}

// NormalizedReply is the dispatch-layer result: the adapter's parsed reply
// plus which provider instance served it.
type NormalizedReply struct {
	Text     string
	Vectors  [][]float64
	Usage    types.TokenUsage
	Provider string
}

// InstanceStats is a read-only snapshot of one ProviderInstance.
type InstanceStats struct {
	InstanceID    string
	Active        bool
	TotalRequests int64
	TotalTokens   int64
	ErrorCount    int
}

// StatsSnapshot is the per-family view returned by Client.Stats.
type StatsSnapshot map[Family][]InstanceStats
