// Package observability wraps OpenTelemetry metrics for the fan-out
// client's dispatch path: request counts, token counts, error counts,
// retry counts, and dispatch latency. It carries no tracing or cost
// accounting.
package observability
