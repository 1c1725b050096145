package llm

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/BaSui01/llmpool/internal/ctxkeys"
	"github.com/BaSui01/llmpool/types"
)

// DefaultMaxValidatorRetries is the validation-loop retry cap used when
// CallOptions.MaxValidatorRetries is zero or negative.
const DefaultMaxValidatorRetries = 3

// Client is a small facade over a Balancer: Chat, Generate, Embed, Batch,
// and Stats, plus the validation retry loop.
type Client struct {
	balancer *Balancer
}

// NewClient wraps balancer in a Client facade.
func NewClient(balancer *Balancer) *Client {
	return &Client{balancer: balancer}
}

// CallOptions are the caller-selected knobs common to Chat/Generate/Embed.
type CallOptions struct {
	Params              ParamBag
	RetryPolicy         RetryPolicy
	FixedAttempts       int
	Pin                 Family
	Validator           Validator
	MaxValidatorRetries int
}

// ChatResult is Chat's return value: the assistant's text plus which
// provider instance ultimately served it and token usage.
type ChatResult struct {
	Text     string
	Provider string
	Usage    types.TokenUsage
}

// Chat dispatches an ordered message list and runs the validation retry
// loop. Calling Chat with a ctx that already carries the dispatch mark
// (ctxkeys.WithDispatch) fails with ErrSyncFromWithinDispatch. Chat marks
// only the ctx it passes to the balancer, so a Validator predicate that
// reuses the caller's ctx to call back into the client is not detected.
func (c *Client) Chat(ctx context.Context, messages []types.Message, opts CallOptions) (*ChatResult, error) {
	if ctxkeys.InsideDispatch(ctx) {
		return nil, errSyncFromWithinDispatch()
	}
	ctx = ctxkeys.WithDispatch(ctx)
	traceID := newTraceID(ctx)
	ctx = ctxkeys.WithTraceID(ctx, traceID)

	maxRetries := opts.MaxValidatorRetries
	if maxRetries <= 0 {
		maxRetries = DefaultMaxValidatorRetries
	}

	turns := append([]types.Message(nil), messages...)
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		req := &LogicalRequest{
			TraceID:       traceID,
			Kind:          KindChat,
			Messages:      turns,
			Params:        opts.Params,
			RetryPolicy:   opts.RetryPolicy,
			FixedAttempts: opts.FixedAttempts,
			Pin:           opts.Pin,
		}

		reply, err := c.balancer.Dispatch(ctx, req)
		if err != nil {
			return nil, err
		}

		if opts.Validator == nil {
			return &ChatResult{Text: reply.Text, Provider: reply.Provider, Usage: reply.Usage}, nil
		}

		outcome := opts.Validator.Validate(reply.Text)
		if outcome.OK {
			return &ChatResult{Text: reply.Text, Provider: reply.Provider, Usage: reply.Usage}, nil
		}

		lastErr = fmt.Errorf("validation failed: %s", outcome.ErrorMessage)
		if attempt == maxRetries {
			break
		}
		turns = append(turns, types.NewAssistantMessage(reply.Text), types.NewUserMessage(outcome.RetryPromptSuffix))
	}

	return nil, errValidationExhausted(lastErr.Error(), lastErr)
}

// newTraceID returns ctx's existing trace id, if the caller already set one
// via ctxkeys.WithTraceID, or mints a fresh one. Every dispatch gets a trace
// id either way, so the balancer's logs can correlate one logical call's
// selection, retries, and outcome.
func newTraceID(ctx context.Context) string {
	if id, ok := ctxkeys.TraceID(ctx); ok {
		return id
	}
	return uuid.NewString()
}

// Generate is a convenience wrapper: build a single user turn from prompt
// and call Chat.
func (c *Client) Generate(ctx context.Context, prompt string, opts CallOptions) (*ChatResult, error) {
	return c.Chat(ctx, []types.Message{types.NewUserMessage(prompt)}, opts)
}

// EmbedResult is Embed's return value: one vector per input text, index
// aligned.
type EmbedResult struct {
	Vectors  [][]float64
	Provider string
}

// Embed dispatches one LogicalRequest per input text, regardless of
// whether the selected family's wire format could batch multiple texts
// into a single call. This keeps dispatch uniform across all families,
// including Family D's Gemini-style embedContent endpoint which only
// ever accepts one piece of content per call. Embedding calls never run
// through a Validator.
func (c *Client) Embed(ctx context.Context, texts []string, opts CallOptions) (*EmbedResult, error) {
	if ctxkeys.InsideDispatch(ctx) {
		return nil, errSyncFromWithinDispatch()
	}
	ctx = ctxkeys.WithDispatch(ctx)
	traceID := newTraceID(ctx)
	ctx = ctxkeys.WithTraceID(ctx, traceID)

	vectors := make([][]float64, len(texts))
	provider := ""
	for i, text := range texts {
		req := &LogicalRequest{
			TraceID:       traceID,
			Kind:          KindEmbed,
			Texts:         []string{text},
			Params:        opts.Params,
			RetryPolicy:   opts.RetryPolicy,
			FixedAttempts: opts.FixedAttempts,
			Pin:           opts.Pin,
		}
		reply, err := c.balancer.Dispatch(ctx, req)
		if err != nil {
			return nil, err
		}
		if len(reply.Vectors) > 0 {
			vectors[i] = reply.Vectors[0]
		}
		provider = reply.Provider
	}
	return &EmbedResult{Vectors: vectors, Provider: provider}, nil
}

// BatchResult is one Batch entry: either a successful ChatResult or the
// error that dispatching its prompt produced. Exactly one of the two is
// set.
type BatchResult struct {
	Result *ChatResult
	Err    error
}

// Batch dispatches every prompt concurrently via Generate, using
// errgroup to track the fan-out; the number of concurrent dispatches is
// not limited. Each prompt's failure is
// isolated into its own result slot rather than cancelling its siblings;
// the returned slice is index-aligned with prompts.
func (c *Client) Batch(ctx context.Context, prompts []string, opts CallOptions) ([]BatchResult, error) {
	results := make([]BatchResult, len(prompts))

	g, gctx := errgroup.WithContext(ctx)
	for i, prompt := range prompts {
		i, prompt := i, prompt
		g.Go(func() error {
			result, err := c.Generate(gctx, prompt, opts)
			results[i] = BatchResult{Result: result, Err: err}
			return nil
		})
	}
	// g.Wait's error is always nil: every goroutine absorbs its own error
	// into results[i] instead of returning it, so no single failure
	// cancels gctx for its siblings.
	_ = g.Wait()
	return results, nil
}

// Stats returns a per-family snapshot of every instance in the pool.
func (c *Client) Stats() StatsSnapshot {
	snapshot := make(StatsSnapshot)
	for _, family := range c.balancer.pool.Enabled {
		for _, inst := range c.balancer.pool.Instances[family] {
			snapshot[family] = append(snapshot[family], inst.Stats())
		}
	}
	return snapshot
}

// ChatSync is a blocking convenience wrapper over Chat using a background
// context. Prefer Chat when a caller-scoped context is available.
func (c *Client) ChatSync(messages []types.Message, opts CallOptions) (*ChatResult, error) {
	return c.Chat(context.Background(), messages, opts)
}

// GenerateSync is a blocking convenience wrapper over Generate.
func (c *Client) GenerateSync(prompt string, opts CallOptions) (*ChatResult, error) {
	return c.Generate(context.Background(), prompt, opts)
}

// EmbedSync is a blocking convenience wrapper over Embed.
func (c *Client) EmbedSync(texts []string, opts CallOptions) (*EmbedResult, error) {
	return c.Embed(context.Background(), texts, opts)
}

// BatchSync is a blocking convenience wrapper over Batch.
func (c *Client) BatchSync(prompts []string, opts CallOptions) ([]BatchResult, error) {
	return c.Batch(context.Background(), prompts, opts)
}
