// Package observe provides application-wide observability primitives for
// phonexa: OpenTelemetry metrics, distributed tracing, structured logging,
// and HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all phonexa metrics.
const meterName = "github.com/MrWong99/phonexa"

// Analysis outcome labels for [Metrics.RecordAnalysis].
const (
	StatusOK       = "ok"
	StatusFailed   = "failed"
	StatusRejected = "rejected"
)

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use.
type Metrics struct {
	// AlignmentDuration tracks the time spent segmenting and scoring one
	// utterance.
	AlignmentDuration metric.Float64Histogram

	// Similarity tracks the 0–100 score of every aligned word.
	Similarity metric.Float64Histogram

	// Symbols tracks the length of the recognised phoneme stream.
	Symbols metric.Int64Histogram

	// AnalysisRequests counts analyses. Use with attribute:
	//   attribute.String("status", StatusOK|StatusFailed|StatusRejected)
	AnalysisRequests metric.Int64Counter

	// StoreErrors counts attempt store failures. Use with attribute:
	//   attribute.String("op", ...)
	StoreErrors metric.Int64Counter

	// BreakerTransitions counts circuit breaker state changes. Use with
	// attributes: attribute.String("name", ...), attribute.String("to", ...)
	BreakerTransitions metric.Int64Counter

	// HTTPRequestDuration tracks HTTP request processing time. Use with
	// attributes: attribute.String("method", ...), attribute.String("route", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds). Short
// sentences align in well under a millisecond; long ones approach the
// configured timeout.
var latencyBuckets = []float64{
	0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10,
}

var similarityBuckets = []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 95, 100}

var symbolBuckets = []float64{4, 8, 16, 32, 64, 128, 256, 512}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider].
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.AlignmentDuration, err = m.Float64Histogram("phonexa.alignment.duration",
		metric.WithDescription("Latency of phoneme segmentation and scoring."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.Similarity, err = m.Float64Histogram("phonexa.alignment.similarity",
		metric.WithDescription("Per-word pronunciation similarity of successful analyses."),
		metric.WithUnit("%"),
		metric.WithExplicitBucketBoundaries(similarityBuckets...),
	); err != nil {
		return nil, err
	}
	if met.Symbols, err = m.Int64Histogram("phonexa.alignment.symbols",
		metric.WithDescription("Number of recognised phoneme symbols per analysis."),
		metric.WithExplicitBucketBoundaries(symbolBuckets...),
	); err != nil {
		return nil, err
	}

	if met.AnalysisRequests, err = m.Int64Counter("phonexa.alignment.requests",
		metric.WithDescription("Total analyses by outcome."),
	); err != nil {
		return nil, err
	}
	if met.StoreErrors, err = m.Int64Counter("phonexa.store.errors",
		metric.WithDescription("Total attempt store errors by operation."),
	); err != nil {
		return nil, err
	}
	if met.BreakerTransitions, err = m.Int64Counter("phonexa.breaker.transitions",
		metric.WithDescription("Circuit breaker state changes by breaker and target state."),
	); err != nil {
		return nil, err
	}

	if met.HTTPRequestDuration, err = m.Float64Histogram("phonexa.http.request.duration",
		metric.WithDescription("HTTP request latency by method and route."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Panics if instrument creation
// fails.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String].
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordAnalysis increments the analysis counter for the given outcome.
func (m *Metrics) RecordAnalysis(ctx context.Context, status string) {
	m.AnalysisRequests.Add(ctx, 1,
		metric.WithAttributes(attribute.String("status", status)),
	)
}

// RecordStoreError increments the store error counter for op.
func (m *Metrics) RecordStoreError(ctx context.Context, op string) {
	m.StoreErrors.Add(ctx, 1,
		metric.WithAttributes(attribute.String("op", op)),
	)
}

// RecordBreakerTransition increments the breaker transition counter.
func (m *Metrics) RecordBreakerTransition(ctx context.Context, name, to string) {
	m.BreakerTransitions.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("name", name),
			attribute.String("to", to),
		),
	)
}
