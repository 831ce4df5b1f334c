// Package mcp exposes loop-to-recursion conversion as Model Context
// Protocol tools over stdio.
package mcp

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/iter2tail/pkg/cache"
	"github.com/Sumatoshi-tech/iter2tail/pkg/observability"
	"github.com/Sumatoshi-tech/iter2tail/pkg/pyast"
	"github.com/Sumatoshi-tech/iter2tail/pkg/pyparse"
	"github.com/Sumatoshi-tech/iter2tail/pkg/tailrec"
	"github.com/Sumatoshi-tech/iter2tail/pkg/version"
)

const (
	serverName = "iter2tail"
	toolCount  = 2

	spanPrefix     = "mcp."
	traceIDMetaKey = "trace_id"
)

// ServerDeps holds injectable dependencies. Zero values fall back to
// defaults or disable the feature.
type ServerDeps struct {
	Logger *slog.Logger

	// Options are the base conversion options. Tool inputs may override
	// individual fields. Zero value means tailrec.DefaultOptions().
	Options *tailrec.Options

	Metrics     *observability.REDMetrics
	Conversions tailrec.Recorder
	Tracer      trace.Tracer

	// ParseCacheSize bounds, in source bytes, the cache of parsed inputs.
	// Zero means DefaultParseCacheSize; negative disables the cache.
	ParseCacheSize int64
}

// DefaultParseCacheSize is the parse cache budget in source bytes.
const DefaultParseCacheSize = 32 << 20

// Server wraps the MCP SDK server with the iter2tail tools.
type Server struct {
	inner  *mcpsdk.Server
	parser *pyparse.Parser
	deps   ServerDeps
	base   tailrec.Options
	parsed *cache.LRU[[sha256.Size]byte, *pyast.Module]

	mu    sync.RWMutex
	tools []string
}

// NewServer creates a server with every tool registered.
func NewServer(deps ServerDeps) *Server {
	opts := &mcpsdk.ServerOptions{}
	if deps.Logger != nil {
		opts.Logger = deps.Logger
	}

	base := tailrec.DefaultOptions()
	if deps.Options != nil {
		base = *deps.Options
	}

	cacheSize := deps.ParseCacheSize
	if cacheSize == 0 {
		cacheSize = DefaultParseCacheSize
	}

	srv := &Server{
		inner: mcpsdk.NewServer(&mcpsdk.Implementation{
			Name:    serverName,
			Version: version.Version,
		}, opts),
		parser: pyparse.NewParser(),
		deps:   deps,
		base:   base,
		parsed: cache.NewLRU[[sha256.Size]byte, *pyast.Module](cacheSize),
		tools:  make([]string, 0, toolCount),
	}

	srv.registerTools()

	return srv
}

// ListToolNames returns the sorted names of all registered tools.
func (s *Server) ListToolNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, len(s.tools))
	copy(names, s.tools)
	sort.Strings(names)

	return names
}

// CacheStats reports parse cache counters.
func (s *Server) CacheStats() cache.Stats {
	return s.parsed.Stats()
}

// parse returns the module for code, reusing earlier parses of the same text.
// Cached trees are shared and must not be mutated.
func (s *Server) parse(ctx context.Context, code string) (*pyast.Module, error) {
	key := sha256.Sum256([]byte(code))

	if mod, ok := s.parsed.Get(key); ok {
		return mod, nil
	}

	mod, err := s.parser.ParseString(ctx, code)
	if err != nil {
		return nil, err
	}

	s.parsed.Put(key, mod, int64(len(code)))

	return mod, nil
}

// Run serves on stdio until ctx is canceled or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	return s.RunWithTransport(ctx, &mcpsdk.StdioTransport{})
}

// RunWithTransport serves on transport until ctx is canceled or the
// connection closes.
func (s *Server) RunWithTransport(ctx context.Context, transport mcpsdk.Transport) error {
	if err := s.inner.Run(ctx, transport); err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}

	return nil
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.inner, &mcpsdk.Tool{
		Name:        ToolNameConvert,
		Description: convertToolDescription,
	}, withMetrics(s.deps.Metrics, ToolNameConvert, withTracing(s.deps.Tracer, ToolNameConvert, s.handleConvert)))
	s.trackTool(ToolNameConvert)

	mcpsdk.AddTool(s.inner, &mcpsdk.Tool{
		Name:        ToolNameAnalyze,
		Description: analyzeToolDescription,
	}, withMetrics(s.deps.Metrics, ToolNameAnalyze, withTracing(s.deps.Tracer, ToolNameAnalyze, s.handleAnalyze)))
	s.trackTool(ToolNameAnalyze)
}

func (s *Server) trackTool(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tools = append(s.tools, name)
}

// withTracing opens a span per call and appends the trace ID to sampled results.
func withTracing[In any](
	tracer trace.Tracer,
	toolName string,
	handler func(context.Context, *mcpsdk.CallToolRequest, In) (*mcpsdk.CallToolResult, ToolOutput, error),
) func(context.Context, *mcpsdk.CallToolRequest, In) (*mcpsdk.CallToolResult, ToolOutput, error) {
	if tracer == nil {
		return handler
	}

	return func(ctx context.Context, req *mcpsdk.CallToolRequest, input In) (*mcpsdk.CallToolResult, ToolOutput, error) {
		ctx, span := tracer.Start(ctx, spanPrefix+toolName,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(attribute.String("mcp.tool", toolName)),
		)
		defer span.End()

		result, output, err := handler(ctx, req, input)

		if result != nil && result.IsError {
			span.SetAttributes(attribute.Bool("error", true))
		}

		if sc := span.SpanContext(); sc.IsSampled() && result != nil {
			result.Content = append(result.Content, &mcpsdk.TextContent{
				Text: traceIDMetaKey + "=" + sc.TraceID().String(),
			})
		}

		return result, output, err
	}
}

// withMetrics records RED metrics per call.
func withMetrics[In any](
	metrics *observability.REDMetrics,
	toolName string,
	handler func(context.Context, *mcpsdk.CallToolRequest, In) (*mcpsdk.CallToolResult, ToolOutput, error),
) func(context.Context, *mcpsdk.CallToolRequest, In) (*mcpsdk.CallToolResult, ToolOutput, error) {
	if metrics == nil {
		return handler
	}

	op := spanPrefix + toolName

	return func(ctx context.Context, req *mcpsdk.CallToolRequest, input In) (*mcpsdk.CallToolResult, ToolOutput, error) {
		start := time.Now()

		done := metrics.TrackInflight(ctx, op)
		defer done()

		result, output, err := handler(ctx, req, input)

		status := observability.StatusOK
		if err != nil || (result != nil && result.IsError) {
			status = observability.StatusError
		}

		metrics.RecordRequest(ctx, op, status, time.Since(start))

		return result, output, err
	}
}

const (
	convertToolDescription = "Convert a Python function built around a single while loop " +
		"into an equivalent tail-recursive function named <function>__tail. " +
		"Accepts inline Python source and the function name."

	analyzeToolDescription = "Describe every function in Python source: parameters, " +
		"top-level while loops, their updates, and whether the function can be converted."
)
