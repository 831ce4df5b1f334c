package mcp_test

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/Sumatoshi-tech/iter2tail/pkg/mcp"
	"github.com/Sumatoshi-tech/iter2tail/pkg/observability"
	"github.com/Sumatoshi-tech/iter2tail/pkg/tailrec"
)

const factorialCode = `def factorial(n):
    r = 1
    while n > 1:
        r *= n
        n -= 1
    return r
`

// connect starts srv on in-memory transports and returns a client session.
func connect(t *testing.T, srv *mcp.Server) *mcpsdk.ClientSession {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)

	clientTransport, serverTransport := mcpsdk.NewInMemoryTransports()
	serverDone := make(chan error, 1)

	go func() {
		serverDone <- srv.RunWithTransport(ctx, serverTransport)
	}()

	client := mcpsdk.NewClient(&mcpsdk.Implementation{Name: "test-client", Version: "1.0.0"}, nil)

	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = session.Close()

		cancel()
		<-serverDone
	})

	return session
}

func callTool(t *testing.T, session *mcpsdk.ClientSession, name string, args map[string]any) *mcpsdk.CallToolResult {
	t.Helper()

	result, err := session.CallTool(context.Background(), &mcpsdk.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)

	return result
}

func firstText(t *testing.T, result *mcpsdk.CallToolResult) string {
	t.Helper()

	text, ok := result.Content[0].(*mcpsdk.TextContent)
	require.True(t, ok)

	return text.Text
}

func TestNewServer_ToolsRegistered(t *testing.T) {
	t.Parallel()

	srv := mcp.NewServer(mcp.ServerDeps{})

	assert.Equal(t, []string{"iter2tail_analyze", "iter2tail_convert"}, srv.ListToolNames())
}

func TestServer_ListTools(t *testing.T) {
	t.Parallel()

	session := connect(t, mcp.NewServer(mcp.ServerDeps{}))

	tools, err := session.ListTools(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, tools.Tools, 2)

	for _, tool := range tools.Tools {
		assert.NotNil(t, tool.InputSchema, "tool %s missing input schema", tool.Name)
		assert.NotEmpty(t, tool.Description)
	}
}

func TestServer_Convert(t *testing.T) {
	t.Parallel()

	session := connect(t, mcp.NewServer(mcp.ServerDeps{}))

	result := callTool(t, session, mcp.ToolNameConvert, map[string]any{
		"code":        factorialCode,
		"function":    "factorial",
		"state_order": "params-first",
	})
	require.False(t, result.IsError, firstText(t, result))

	var out mcp.ConvertResult
	require.NoError(t, json.Unmarshal([]byte(firstText(t, result)), &out))

	assert.Equal(t, "factorial__tail", out.Function)
	assert.Equal(t, []string{"n", "r"}, out.State)
	assert.True(t, strings.HasPrefix(out.Source, "def factorial__tail(n):\n    def loop(n, r):\n"))
	assert.Empty(t, out.Warnings)
}

func TestServer_ReusesParsedSource(t *testing.T) {
	t.Parallel()

	srv := mcp.NewServer(mcp.ServerDeps{})
	session := connect(t, srv)

	convert := callTool(t, session, mcp.ToolNameConvert, map[string]any{"code": factorialCode, "function": "factorial"})
	require.False(t, convert.IsError, firstText(t, convert))

	analyze := callTool(t, session, mcp.ToolNameAnalyze, map[string]any{"code": factorialCode})
	require.False(t, analyze.IsError, firstText(t, analyze))

	stats := srv.CacheStats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, 1, stats.Entries)

	off := mcp.NewServer(mcp.ServerDeps{ParseCacheSize: -1})
	offSession := connect(t, off)

	for range 2 {
		res := callTool(t, offSession, mcp.ToolNameAnalyze, map[string]any{"code": factorialCode})
		require.False(t, res.IsError, firstText(t, res))
	}

	assert.Zero(t, off.CacheStats().Hits)
}

func TestServer_ConvertUsesBaseOptions(t *testing.T) {
	t.Parallel()

	opts := tailrec.DefaultOptions()
	opts.HelperName = "step"
	opts.Suffix = "_rec"

	session := connect(t, mcp.NewServer(mcp.ServerDeps{Options: &opts}))

	result := callTool(t, session, mcp.ToolNameConvert, map[string]any{"code": factorialCode, "function": "factorial"})
	require.False(t, result.IsError, firstText(t, result))

	var out mcp.ConvertResult
	require.NoError(t, json.Unmarshal([]byte(firstText(t, result)), &out))

	assert.Equal(t, "factorial_rec", out.Function)
	assert.Contains(t, out.Source, "def step(r, n):")
}

func TestServer_ConvertErrors(t *testing.T) {
	t.Parallel()

	session := connect(t, mcp.NewServer(mcp.ServerDeps{}))

	tests := []struct {
		name string
		args map[string]any
		want string
	}{
		{"empty code", map[string]any{"code": "", "function": "f"}, mcp.ErrEmptyCode.Error()},
		{"empty function", map[string]any{"code": factorialCode, "function": ""}, mcp.ErrEmptyFunction.Error()},
		{"syntax", map[string]any{"code": "def f(:\n", "function": "f"}, "invalid syntax"},
		{"missing", map[string]any{"code": factorialCode, "function": "g"}, "function not found"},
		{"no loop", map[string]any{"code": "def f(n):\n    return n\n", "function": "f"}, tailrec.ErrNoLoop.Error()},
		{"order", map[string]any{"code": factorialCode, "function": "factorial", "state_order": "reverse"}, "invalid conversion option"},
	}

	for _, tt := range tests {
		result := callTool(t, session, mcp.ToolNameConvert, tt.args)

		assert.True(t, result.IsError, tt.name)
		assert.Contains(t, firstText(t, result), tt.want, tt.name)
	}
}

func TestServer_Analyze(t *testing.T) {
	t.Parallel()

	session := connect(t, mcp.NewServer(mcp.ServerDeps{}))

	code := factorialCode + "\ndef ident(x):\n    return x\n"

	result := callTool(t, session, mcp.ToolNameAnalyze, map[string]any{"code": code})
	require.False(t, result.IsError, firstText(t, result))

	var out []tailrec.FunctionSummary
	require.NoError(t, json.Unmarshal([]byte(firstText(t, result)), &out))
	require.Len(t, out, 2)

	assert.Equal(t, "factorial", out[0].Name)
	assert.True(t, out[0].Convertible)
	assert.Equal(t, []string{"r", "n"}, out[0].State)
	assert.Equal(t, "ident", out[1].Name)
	assert.False(t, out[1].Convertible)
}

func TestServer_TracingAndMetrics(t *testing.T) {
	t.Parallel()

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))

	t.Cleanup(func() { require.NoError(t, tp.Shutdown(context.Background())) })

	reader := sdkmetric.NewManualReader()
	meter := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)).Meter("test")

	red, err := observability.NewREDMetrics(meter)
	require.NoError(t, err)

	conversions, err := observability.NewConversionMetrics(meter)
	require.NoError(t, err)

	session := connect(t, mcp.NewServer(mcp.ServerDeps{
		Tracer:      tp.Tracer("test"),
		Metrics:     red,
		Conversions: conversions,
	}))

	result := callTool(t, session, mcp.ToolNameConvert, map[string]any{"code": factorialCode, "function": "factorial"})
	require.False(t, result.IsError)

	last, ok := result.Content[len(result.Content)-1].(*mcpsdk.TextContent)
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(last.Text, "trace_id="))

	names := make([]string, 0, 2)
	for _, span := range exporter.GetSpans() {
		names = append(names, span.Name)
	}

	assert.Contains(t, names, "mcp.iter2tail_convert")
	assert.Contains(t, names, "tailrec.convert")

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	found := make(map[string]bool)

	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			found[m.Name] = true
		}
	}

	assert.True(t, found["iter2tail.requests.total"])
	assert.True(t, found["iter2tail.conversions.total"])
}

func TestServer_RunCanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, serverTransport := mcpsdk.NewInMemoryTransports()

	require.Error(t, mcp.NewServer(mcp.ServerDeps{}).RunWithTransport(ctx, serverTransport))
}
