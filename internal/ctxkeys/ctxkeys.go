// Package ctxkeys holds the module's context.Context key types and
// accessors, kept in one place so every package agrees on the key identity.
package ctxkeys

import "context"

type contextKey string

const (
	traceIDKey  contextKey = "trace_id"
	dispatchKey contextKey = "inside_dispatch"
)

// WithTraceID attaches a trace id for log correlation across one request's
// adapter calls and retries.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

// TraceID retrieves the trace id set by WithTraceID.
func TraceID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(traceIDKey).(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// WithDispatch marks ctx as running inside a Balancer dispatch. Client.Chat
// and Client.Embed check their incoming ctx for this mark and fail with
// ErrSyncFromWithinDispatch when it is set. They mark only the ctx they pass
// on to the balancer, so a context created by the caller before the call
// never carries the mark.
func WithDispatch(ctx context.Context) context.Context {
	return context.WithValue(ctx, dispatchKey, true)
}

// InsideDispatch reports whether ctx was marked by WithDispatch.
func InsideDispatch(ctx context.Context) bool {
	v, _ := ctx.Value(dispatchKey).(bool)
	return v
}
