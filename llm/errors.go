package llm

import (
	"errors"

	"github.com/BaSui01/llmpool/types"
)

// ErrSyncFromWithinDispatch is returned by Chat/Generate/Embed when called
// with a context already marked by ctxkeys.WithDispatch. Chat and Embed set
// that mark only on the context they hand to the balancer, and validators
// receive no context, so a Validator predicate that calls back into the
// client with the caller's original context is not detected.
var ErrSyncFromWithinDispatch = errors.New("llm: called from within an active dispatch")

func errSyncFromWithinDispatch() error {
	return ErrSyncFromWithinDispatch
}

// Error is the unified error type returned across the fan-out client. It
// mirrors types.Error and adds nothing beyond a domain-specific set of Kind
// constants.
type Error = types.Error

// Error kinds, per the taxonomy in section 7.
const (
	KindConfigError          types.ErrorCode = "CONFIG_ERROR"
	KindTransportError       types.ErrorCode = "TRANSPORT_ERROR"
	KindUpstreamHTTPError    types.ErrorCode = "UPSTREAM_HTTP_ERROR"
	KindUpstreamFormatError  types.ErrorCode = "UPSTREAM_FORMAT_ERROR"
	KindRateLimited          types.ErrorCode = "RATE_LIMITED"
	KindNoProvidersAvailable types.ErrorCode = "NO_PROVIDERS_AVAILABLE"
	KindValidationExhausted  types.ErrorCode = "VALIDATION_EXHAUSTED"
	KindCancelled            types.ErrorCode = "CANCELLED"
)

func newError(kind types.ErrorCode, msg string) *types.Error {
	return types.NewError(kind, msg)
}

// errConfig builds a fatal, non-retryable ConfigError.
func errConfig(msg string) *types.Error {
	return newError(KindConfigError, msg)
}

// errTransport wraps a transport-layer failure (dial/read/timeout) as
// retryable.
func errTransport(provider string, cause error) *types.Error {
	return newError(KindTransportError, "transport failure").
		WithCause(cause).
		WithProvider(provider).
		WithRetryable(true)
}

// errUpstreamHTTP wraps a non-2xx upstream response.
func errUpstreamHTTP(provider string, status int, body string) *types.Error {
	return newError(KindUpstreamHTTPError, body).
		WithProvider(provider).
		WithHTTPStatus(status).
		WithRetryable(status >= 500 || status == 429)
}

// errUpstreamFormat wraps a 2xx response whose body does not match the
// adapter's expected schema.
func errUpstreamFormat(provider string, cause error) *types.Error {
	return newError(KindUpstreamFormatError, "unexpected upstream response shape").
		WithCause(cause).
		WithProvider(provider).
		WithRetryable(false)
}

// errRateLimited wraps an explicit upstream 429.
func errRateLimited(provider string) *types.Error {
	return newError(KindRateLimited, "upstream rate limited the request").
		WithProvider(provider).
		WithHTTPStatus(429).
		WithRetryable(true)
}

// errNoProvidersAvailable signals an empty selection set with no policy
// left to keep waiting.
func errNoProvidersAvailable(kind RequestKind) *types.Error {
	return newError(KindNoProvidersAvailable, "no provider instance available for "+string(kind))
}

// errValidationExhausted signals that all validator retries were consumed.
func errValidationExhausted(lastMessage string, cause error) *types.Error {
	return newError(KindValidationExhausted, lastMessage).WithCause(cause)
}

// errCancelled wraps context cancellation.
func errCancelled(cause error) *types.Error {
	return newError(KindCancelled, "request cancelled").WithCause(cause)
}
