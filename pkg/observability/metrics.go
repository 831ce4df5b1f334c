package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricRequestsTotal      = "iter2tail.requests.total"
	metricRequestDuration    = "iter2tail.request.duration.seconds"
	metricErrorsTotal        = "iter2tail.errors.total"
	metricInflightRequests   = "iter2tail.inflight.requests"
	metricConversionsTotal   = "iter2tail.conversions.total"
	metricConversionDuration = "iter2tail.conversion.duration.seconds"

	attrOp      = "op"
	attrStatus  = "status"
	attrOutcome = "outcome"

	// StatusOK marks a successful request.
	StatusOK = "ok"
	// StatusError marks a failed request.
	StatusError = "error"
)

// requestBuckets spans a single small conversion up to a large file batch.
var requestBuckets = []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30}

// REDMetrics holds the Rate, Error and Duration instruments for requests
// served by the CLI and the MCP tools.
type REDMetrics struct {
	requestsTotal    metric.Int64Counter
	requestDuration  metric.Float64Histogram
	errorsTotal      metric.Int64Counter
	inflightRequests metric.Int64UpDownCounter
}

// NewREDMetrics creates RED instruments from mt.
func NewREDMetrics(mt metric.Meter) (*REDMetrics, error) {
	reqTotal, err := mt.Int64Counter(metricRequestsTotal,
		metric.WithDescription("Total number of requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricRequestsTotal, err)
	}

	reqDuration, err := mt.Float64Histogram(metricRequestDuration,
		metric.WithDescription("Request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(requestBuckets...),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricRequestDuration, err)
	}

	errTotal, err := mt.Int64Counter(metricErrorsTotal,
		metric.WithDescription("Total number of failed requests"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricErrorsTotal, err)
	}

	inflight, err := mt.Int64UpDownCounter(metricInflightRequests,
		metric.WithDescription("Number of in-flight requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricInflightRequests, err)
	}

	return &REDMetrics{
		requestsTotal:    reqTotal,
		requestDuration:  reqDuration,
		errorsTotal:      errTotal,
		inflightRequests: inflight,
	}, nil
}

// RecordRequest records one completed request.
func (rm *REDMetrics) RecordRequest(ctx context.Context, op, status string, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String(attrOp, op),
		attribute.String(attrStatus, status),
	)

	rm.requestsTotal.Add(ctx, 1, attrs)
	rm.requestDuration.Record(ctx, duration.Seconds(), attrs)

	if status == StatusError {
		rm.errorsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrOp, op)))
	}
}

// TrackInflight increments the in-flight gauge and returns its decrement.
func (rm *REDMetrics) TrackInflight(ctx context.Context, op string) func() {
	attrs := metric.WithAttributes(attribute.String(attrOp, op))
	rm.inflightRequests.Add(ctx, 1, attrs)

	return func() {
		rm.inflightRequests.Add(ctx, -1, attrs)
	}
}

// ConversionMetrics counts loop conversions by outcome. It satisfies
// tailrec.Recorder.
type ConversionMetrics struct {
	total    metric.Int64Counter
	duration metric.Float64Histogram
}

// NewConversionMetrics creates conversion instruments from mt.
func NewConversionMetrics(mt metric.Meter) (*ConversionMetrics, error) {
	total, err := mt.Int64Counter(metricConversionsTotal,
		metric.WithDescription("Loop conversions by outcome"),
		metric.WithUnit("{conversion}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricConversionsTotal, err)
	}

	duration, err := mt.Float64Histogram(metricConversionDuration,
		metric.WithDescription("Time spent converting one function"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(requestBuckets...),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricConversionDuration, err)
	}

	return &ConversionMetrics{total: total, duration: duration}, nil
}

// RecordConversion records one conversion attempt.
func (cm *ConversionMetrics) RecordConversion(ctx context.Context, outcome string, duration time.Duration) {
	attrs := metric.WithAttributes(attribute.String(attrOutcome, outcome))

	cm.total.Add(ctx, 1, attrs)
	cm.duration.Record(ctx, duration.Seconds(), attrs)
}
