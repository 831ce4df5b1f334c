// Package observability wires OpenTelemetry tracing, metrics and structured
// logging for the iter2tail CLI and its MCP server.
package observability

import (
	"io"
	"log/slog"
	"time"
)

// AppMode identifies how the binary was launched.
type AppMode string

const (
	// ModeCLI is a one-shot command invocation.
	ModeCLI AppMode = "cli"
	// ModeMCP is the long-running MCP stdio server.
	ModeMCP AppMode = "mcp"
)

const (
	defaultServiceName     = "iter2tail"
	defaultShutdownTimeout = 5 * time.Second
)

// Config holds all observability configuration.
type Config struct {
	ServiceName    string
	ServiceVersion string
	Mode           AppMode

	// OTLPEndpoint is the OTLP gRPC collector address (e.g. "localhost:4317").
	// Empty disables export.
	OTLPEndpoint string
	OTLPHeaders  map[string]string
	OTLPInsecure bool

	// SampleRatio is the root trace sampling ratio. Zero samples everything.
	SampleRatio float64

	// Prometheus attaches a Prometheus reader to the meter provider and
	// exposes its scrape handler as Providers.MetricsHandler.
	Prometheus bool

	LogLevel slog.Level
	LogJSON  bool

	// LogOutput receives log records. Nil means os.Stderr.
	LogOutput io.Writer

	// DebugAttributes logs span attributes dropped by the attribute filter.
	DebugAttributes bool

	ShutdownTimeout time.Duration
}

// DefaultConfig returns a Config for zero-config startup.
func DefaultConfig() Config {
	return Config{
		ServiceName:     defaultServiceName,
		Mode:            ModeCLI,
		LogLevel:        slog.LevelInfo,
		ShutdownTimeout: defaultShutdownTimeout,
	}
}
