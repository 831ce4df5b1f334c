package observability_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/Sumatoshi-tech/iter2tail/pkg/observability"
)

func serveTraced(t *testing.T, red *observability.REDMetrics, req *http.Request, status int) (*tracetest.InMemoryExporter, *httptest.ResponseRecorder) {
	t.Helper()

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))

	t.Cleanup(func() { require.NoError(t, tp.Shutdown(context.Background())) })

	handler := http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		assert.NotNil(t, r.Context())
		rw.WriteHeader(status)
	})

	rec := httptest.NewRecorder()
	observability.HTTPMiddleware(tp.Tracer("test"), red, handler).ServeHTTP(rec, req)

	return exporter, rec
}

func TestHTTPMiddleware_NamesSpanAfterRoute(t *testing.T) {
	t.Parallel()

	exporter, rec := serveTraced(t, nil, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody), http.StatusOK)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "GET /metrics", spans[0].Name)
	assert.Equal(t, codes.Unset, spans[0].Status.Code)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHTTPMiddleware_ExtractsTraceParent(t *testing.T) {
	t.Parallel()

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	parentTraceID := "0af7651916cd43dd8448eb211c80319c"
	parentSpanID := "00f067aa0ba902b7"

	req := httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody)
	req.Header.Set("Traceparent", "00-"+parentTraceID+"-"+parentSpanID+"-01")

	exporter, _ := serveTraced(t, nil, req, http.StatusOK)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, parentTraceID, spans[0].SpanContext.TraceID().String())
	assert.Equal(t, parentSpanID, spans[0].Parent.SpanID().String())
}

func TestHTTPMiddleware_ServerErrorRecorded(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	red, err := observability.NewREDMetrics(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)).Meter("test"))
	require.NoError(t, err)

	exporter, rec := serveTraced(t, red, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody), http.StatusInternalServerError)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	rm := collectMetrics(t, reader)
	assert.NotNil(t, findMetric(rm, "iter2tail.errors.total"))
}
