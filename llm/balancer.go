package llm

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/llmpool/internal/tlsutil"
	"github.com/BaSui01/llmpool/llm/observability"
	"github.com/BaSui01/llmpool/llm/providers"
	"github.com/BaSui01/llmpool/llm/retry"
	"github.com/BaSui01/llmpool/llm/tokenizer"
	"github.com/BaSui01/llmpool/types"
)

// DispatchTimeout is the default total timeout for one HTTP call.
const DispatchTimeout = 60 * time.Second

// HealthCheckInterval is how often the health-check loop probes inactive
// instances.
const HealthCheckInterval = 5 * time.Minute

// Balancer owns a Pool and an adapter registry, selects an instance per
// request, enforces rate limits, dispatches through the adapter, records
// outcomes, and drives the circuit breaker / health-check loop.
type Balancer struct {
	pool     *Pool
	adapters providers.Registry
	client   *http.Client
	logger   *zap.Logger
	metrics  *observability.Metrics

	healthCancel context.CancelFunc
}

var registerTokenizersOnce sync.Once

// NewBalancer constructs a Balancer over pool using the default adapter
// registry.
func NewBalancer(pool *Pool, opts ...BalancerOption) *Balancer {
	registerTokenizersOnce.Do(tokenizer.RegisterOpenAITokenizers)

	b := &Balancer{
		pool:     pool,
		adapters: providers.DefaultRegistry(),
		client:   tlsutil.SecureHTTPClient(DispatchTimeout),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// BalancerOption configures a Balancer at construction time.
type BalancerOption func(*Balancer)

// WithLogger sets a structured logger; defaults to a no-op logger.
func WithLogger(logger *zap.Logger) BalancerOption {
	return func(b *Balancer) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithMetrics sets an observability sink; nil (the default) collects
// nothing.
func WithMetrics(m *observability.Metrics) BalancerOption {
	return func(b *Balancer) { b.metrics = m }
}

// WithHTTPClient overrides the HTTP client used for upstream calls.
func WithHTTPClient(c *http.Client) BalancerOption {
	return func(b *Balancer) {
		if c != nil {
			b.client = c
		}
	}
}

// candidateScore is used only for sorting; it is not exported state.
type candidateScore struct {
	inst  *Instance
	score float64
	last  time.Time
	seq   int
}

// selectionCandidates returns every eligible instance for kind/pin, ordered
// best-first per the section 4.2 scoring rule: lowest score, tie-broken by
// oldest last_used_at, tie-broken by stable insertion order.
func (b *Balancer) selectionCandidates(kind RequestKind, pin Family) []*Instance {
	raw := b.pool.Candidates(kind, pin, func(f Family, k RequestKind) bool {
		a, ok := b.adapters[f]
		return ok && a.Supports(k)
	})

	scored := make([]candidateScore, 0, len(raw))
	for i, inst := range raw {
		if !inst.Active() {
			continue
		}
		scored = append(scored, candidateScore{inst: inst, score: inst.Score(), last: inst.LastUsedAt(), seq: i})
	}
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score < scored[j].score
		}
		if !scored[i].last.Equal(scored[j].last) {
			return scored[i].last.Before(scored[j].last)
		}
		return scored[i].seq < scored[j].seq
	})

	out := make([]*Instance, len(scored))
	for i, c := range scored {
		out[i] = c.inst
	}
	return out
}

// reserve walks candidates best-first and reserves the first one with
// rate-limit capacity, skipping excluded instances. Returns nil if none had
// capacity.
func (b *Balancer) reserve(candidates []*Instance, exclude map[string]bool, now time.Time) *Instance {
	for _, inst := range candidates {
		if exclude[inst.ID] {
			continue
		}
		if inst.tryReserve(now) {
			return inst
		}
	}
	return nil
}

// effectiveExclude returns exclude unchanged unless every candidate is in
// it, in which case it returns an empty set instead. Section 4.2: an
// instance tried earlier is not reused unless it is the only candidate and
// has regained capacity — excluding it permanently would starve a
// single-instance pool forever.
func effectiveExclude(candidates []*Instance, exclude map[string]bool) map[string]bool {
	for _, inst := range candidates {
		if !exclude[inst.ID] {
			return exclude
		}
	}
	return nil
}

// earliestFreeSlot returns the soonest time any candidate's window will
// free a slot, for the async rate-limit wait.
func earliestFreeSlot(candidates []*Instance) time.Time {
	var earliest time.Time
	for _, inst := range candidates {
		t := inst.NextSlotAt()
		if earliest.IsZero() || t.Before(earliest) {
			earliest = t
		}
	}
	if earliest.IsZero() {
		return time.Now().Add(time.Second)
	}
	return earliest
}

// dispatchOnce selects one instance, dispatches through its adapter, and
// records the outcome. It never retries.
func (b *Balancer) dispatchOnce(ctx context.Context, req *LogicalRequest, exclude map[string]bool) (*NormalizedReply, *Instance, error) {
	candidates := b.selectionCandidates(req.Kind, req.Pin)
	if len(candidates) == 0 {
		return nil, nil, errNoProvidersAvailable(req.Kind)
	}

	waitStart := time.Now()
	now := waitStart
	inst := b.reserve(candidates, effectiveExclude(candidates, exclude), now)
	for inst == nil {
		if time.Since(waitStart) > DispatchTimeout {
			return nil, nil, errNoProvidersAvailable(req.Kind)
		}
		wait := earliestFreeSlot(candidates)
		timer := time.NewTimer(time.Until(wait))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, nil, errCancelled(ctx.Err())
		case <-timer.C:
		}
		now = time.Now()
		inst = b.reserve(candidates, effectiveExclude(candidates, exclude), now)
	}

	callStart := time.Now()
	reply, err := b.callAdapter(ctx, inst, req)
	if b.metrics != nil {
		b.metrics.RecordLatency(string(inst.Family), time.Since(callStart))
	}
	if err != nil {
		if ctx.Err() != nil {
			inst.rollbackReservation(now)
			return nil, inst, errCancelled(ctx.Err())
		}
		opened := inst.finishFailure()
		if opened {
			b.logger.Warn("provider circuit opened",
				zap.String("instance", inst.ID),
				zap.String("trace_id", req.TraceID))
		}
		if b.metrics != nil {
			b.metrics.RecordError(string(inst.Family), err)
		}
		return nil, inst, err
	}

	inst.finishSuccess(int64(reply.Usage.TotalTokens))
	if b.metrics != nil {
		b.metrics.RecordSuccess(string(inst.Family), reply.Usage.TotalTokens)
	}
	reply.Provider = inst.ID
	return reply, inst, nil
}

// callAdapter performs the actual HTTP round trip through the instance's
// adapter.
func (b *Balancer) callAdapter(ctx context.Context, inst *Instance, req *LogicalRequest) (*NormalizedReply, error) {
	adapter, ok := b.adapters[inst.Family]
	if !ok {
		return nil, errConfig("no adapter registered for family " + string(inst.Family))
	}

	httpReq, err := adapter.BuildRequest(providers.InstanceView{
		APIKey:  inst.APIKey,
		APIBase: inst.APIBase,
		Model:   inst.Model,
	}, &providers.Request{
		Kind:     req.Kind,
		Messages: req.Messages,
		Prompt:   req.Prompt,
		Texts:    req.Texts,
		Params:   req.Params,
	})
	if err != nil {
		return nil, errConfig(err.Error())
	}

	httpCtx, cancel := context.WithTimeout(ctx, DispatchTimeout)
	defer cancel()

	httpResp, err := doHTTP(httpCtx, b.client, httpReq)
	if err != nil {
		return nil, errTransport(inst.ID, err)
	}
	defer httpResp.Body.Close()

	body, status, err := readBody(httpResp)
	if err != nil {
		return nil, errTransport(inst.ID, err)
	}

	if status == http.StatusTooManyRequests {
		return nil, errRateLimited(inst.ID)
	}

	reply, err := adapter.ParseResponse(req.Kind, status, body)
	if err != nil {
		if httpErr, ok := err.(*providers.UpstreamHTTPError); ok {
			return nil, errUpstreamHTTP(inst.ID, httpErr.Status, httpErr.Body)
		}
		return nil, errUpstreamFormat(inst.ID, err)
	}

	normalized := &NormalizedReply{Text: reply.Text, Vectors: reply.Vectors, Usage: reply.Usage}
	estimateUsage(inst.Model, req, normalized)
	return normalized, nil
}

// estimateUsage fills in usage.TotalTokens from the tokenizer registry
// when an upstream's parsed reply omitted token counts (section 2.9's
// documented fallback), using tiktoken-backed counts for known OpenAI
// models and the character-based estimator otherwise.
func estimateUsage(model string, req *LogicalRequest, reply *NormalizedReply) {
	if reply.Usage.TotalTokens != 0 {
		return
	}

	tk := tokenizer.GetTokenizerOrEstimator(model)

	var promptTokens int
	switch {
	case len(req.Messages) > 0:
		msgs := make([]tokenizer.Message, len(req.Messages))
		for i, m := range req.Messages {
			msgs[i] = tokenizer.Message{Role: string(m.Role), Content: m.Content}
		}
		if n, err := tk.CountMessages(msgs); err == nil {
			promptTokens = n
		}
	case req.Prompt != "":
		if n, err := tk.CountTokens(req.Prompt); err == nil {
			promptTokens = n
		}
	case len(req.Texts) > 0:
		for _, text := range req.Texts {
			if n, err := tk.CountTokens(text); err == nil {
				promptTokens += n
			}
		}
	}

	var completionTokens int
	if reply.Text != "" {
		if n, err := tk.CountTokens(reply.Text); err == nil {
			completionTokens = n
		}
	}

	reply.Usage = types.TokenUsage{
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
		TotalTokens:      promptTokens + completionTokens,
	}
}

// Dispatch runs the full retry policy matrix for req and returns the final
// reply or the terminal error.
func (b *Balancer) Dispatch(ctx context.Context, req *LogicalRequest) (*NormalizedReply, error) {
	policy := req.RetryPolicy
	if policy == "" {
		policy = RetryOnce
	}

	switch policy {
	case RetryOnce:
		return b.dispatchRetryOnce(ctx, req)
	case RetryFixed:
		attempts := req.FixedAttempts
		if attempts <= 0 {
			attempts = DefaultFixedAttempts
		}
		return b.dispatchWithBackoff(ctx, req, attempts)
	case RetryInfinite:
		return b.dispatchWithBackoff(ctx, req, 0)
	default:
		return nil, errConfig("unknown retry policy " + string(policy))
	}
}

func (b *Balancer) dispatchRetryOnce(ctx context.Context, req *LogicalRequest) (*NormalizedReply, error) {
	exclude := map[string]bool{}
	reply, inst, err := b.dispatchOnce(ctx, req, exclude)
	if err == nil {
		return reply, nil
	}
	if !retryable(err) {
		return nil, err
	}
	if inst != nil {
		exclude[inst.ID] = true
	}
	if b.metrics != nil {
		b.metrics.RecordRetry(string(req.Pin))
	}
	reply, _, err = b.dispatchOnce(ctx, req, exclude)
	return reply, err
}

// dispatchWithBackoff implements both `fixed` (maxAttempts > 0) and
// `infinite` (maxAttempts == 0) policies: re-select each attempt, backing
// off exponentially between attempts, honoring cancellation throughout.
func (b *Balancer) dispatchWithBackoff(ctx context.Context, req *LogicalRequest, maxAttempts int) (*NormalizedReply, error) {
	exclude := map[string]bool{}
	var lastErr error
	for attempt := 1; maxAttempts == 0 || attempt <= maxAttempts; attempt++ {
		reply, inst, err := b.dispatchOnce(ctx, req, exclude)
		if err == nil {
			return reply, nil
		}
		lastErr = err
		if !retryable(err) {
			return nil, err
		}
		if inst != nil {
			exclude[inst.ID] = true
		}
		if b.metrics != nil {
			b.metrics.RecordRetry(string(req.Pin))
		}

		if maxAttempts != 0 && attempt >= maxAttempts {
			break
		}

		delay := retry.Backoff(attempt)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, errCancelled(ctx.Err())
		case <-timer.C:
		}
	}
	return nil, lastErr
}

// retryable reports whether err should trigger another attempt. ConfigError
// and Cancelled never retry.
func retryable(err error) bool {
	e, ok := err.(*Error)
	if !ok {
		return true
	}
	switch e.Code {
	case KindConfigError, KindCancelled:
		return false
	default:
		return true
	}
}

// StartHealthLoop launches the background health-check task if it is not
// already running. Safe to call multiple times in sequence; only the first
// call starts the loop. Dispatch does not call it, so the loop runs only
// once a caller has started it.
func (b *Balancer) StartHealthLoop(ctx context.Context) {
	if b.healthCancel != nil {
		return
	}
	loopCtx, cancel := context.WithCancel(ctx)
	b.healthCancel = cancel
	go b.healthLoop(loopCtx)
}

// StopHealthLoop stops the background health-check task, if running.
func (b *Balancer) StopHealthLoop() {
	if b.healthCancel != nil {
		b.healthCancel()
		b.healthCancel = nil
	}
}

func (b *Balancer) healthLoop(ctx context.Context) {
	ticker := time.NewTicker(HealthCheckInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.probeInactive(ctx)
		}
	}
}

// probeInactive runs a minimal probe against every inactive instance and
// closes its breaker on success.
func (b *Balancer) probeInactive(ctx context.Context) {
	for _, inst := range b.pool.All() {
		if inst.Active() {
			continue
		}
		b.probeOne(ctx, inst)
	}
}

func (b *Balancer) probeOne(ctx context.Context, inst *Instance) {
	adapter, ok := b.adapters[inst.Family]
	if !ok {
		return
	}

	req := &LogicalRequest{Kind: KindGenerate, Prompt: "ping"}
	if !adapter.Supports(KindGenerate) {
		req.Kind = KindEmbed
		req.Texts = []string{"ping"}
	}

	probeCtx, cancel := context.WithTimeout(ctx, DispatchTimeout)
	defer cancel()

	_, err := b.callAdapter(probeCtx, inst, req)
	if err == nil {
		inst.breaker.ProbeSucceeded()
	} else {
		inst.breaker.ProbeFailed()
	}
}
