package observability

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	attrErrorType   = "error.type"
	attrErrorSource = "error.source"
)

// Error sources.
const (
	ErrSourceInput    = "input"
	ErrSourceInternal = "internal"
)

// RecordSpanError marks span as failed and classifies err. A nil err is a no-op.
func RecordSpanError(span trace.Span, err error, errType, errSource string) {
	if err == nil {
		return
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.SetAttributes(
		attribute.String(attrErrorType, errType),
		attribute.String(attrErrorSource, errSource),
	)
}
