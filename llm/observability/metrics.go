package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/BaSui01/llmpool/types"
)

const instrumentationName = "github.com/BaSui01/llmpool/llm"

// Metrics is an OpenTelemetry-backed sink for dispatch outcomes. A nil
// *Metrics is always safe to call through RecordSuccess/RecordError/
// RecordRetry/RecordLatency's nil-receiver guards, matching the zap
// NewNop() no-op convention used for logging.
type Metrics struct {
	meter metric.Meter

	requestTotal    metric.Int64Counter
	tokenTotal      metric.Int64Counter
	errorTotal      metric.Int64Counter
	retryTotal      metric.Int64Counter
	requestDuration metric.Float64Histogram
}

// NewMetrics registers the module's instruments against the global
// MeterProvider. Call otel.SetMeterProvider before this if you want metrics
// to go anywhere other than the default no-op provider.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(instrumentationName)
	m := &Metrics{meter: meter}

	var err error
	if m.requestTotal, err = meter.Int64Counter("llm.request.total",
		metric.WithDescription("Total number of dispatched requests"),
		metric.WithUnit("{request}")); err != nil {
		return nil, err
	}
	if m.tokenTotal, err = meter.Int64Counter("llm.token.total",
		metric.WithDescription("Total tokens consumed across all requests"),
		metric.WithUnit("{token}")); err != nil {
		return nil, err
	}
	if m.errorTotal, err = meter.Int64Counter("llm.error.total",
		metric.WithDescription("Total number of dispatch errors"),
		metric.WithUnit("{error}")); err != nil {
		return nil, err
	}
	if m.retryTotal, err = meter.Int64Counter("llm.retry.total",
		metric.WithDescription("Total number of retry attempts"),
		metric.WithUnit("{retry}")); err != nil {
		return nil, err
	}
	if m.requestDuration, err = meter.Float64Histogram("llm.request.duration",
		metric.WithDescription("Dispatch latency in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30)); err != nil {
		return nil, err
	}
	return m, nil
}

// RecordSuccess records one successful dispatch for family, along with the
// total tokens it consumed.
func (m *Metrics) RecordSuccess(family string, totalTokens int) {
	if m == nil {
		return
	}
	ctx := context.Background()
	attrs := metric.WithAttributes(attribute.String("family", family), attribute.String("status", "ok"))
	m.requestTotal.Add(ctx, 1, attrs)
	if totalTokens > 0 {
		m.tokenTotal.Add(ctx, int64(totalTokens), metric.WithAttributes(attribute.String("family", family)))
	}
}

// RecordError records one failed dispatch for family, tagged with err's
// classification when it carries one.
func (m *Metrics) RecordError(family string, err error) {
	if m == nil {
		return
	}
	ctx := context.Background()
	code := string(types.GetErrorCode(err))
	if code == "" {
		code = "unknown"
	}
	attrs := metric.WithAttributes(attribute.String("family", family), attribute.String("status", "error"))
	m.requestTotal.Add(ctx, 1, attrs)
	m.errorTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("family", family), attribute.String("code", code)))
}

// RecordRetry records one retry attempt for family.
func (m *Metrics) RecordRetry(family string) {
	if m == nil {
		return
	}
	m.retryTotal.Add(context.Background(), 1, metric.WithAttributes(attribute.String("family", family)))
}

// RecordLatency records one dispatch's wall-clock duration for family.
func (m *Metrics) RecordLatency(family string, d time.Duration) {
	if m == nil {
		return
	}
	m.requestDuration.Record(context.Background(), d.Seconds(), metric.WithAttributes(attribute.String("family", family)))
}
