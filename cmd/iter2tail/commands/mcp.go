package commands

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/iter2tail/pkg/mcp"
	"github.com/Sumatoshi-tech/iter2tail/pkg/observability"
)

const (
	mcpCommandName  = "mcp"
	metricsAddrFlag = "metrics-addr"
	metricsPath     = "/metrics"

	readHeaderTimeout = 5 * time.Second
)

func newMCPCommand(a *app) *cobra.Command {
	var metricsAddr string

	cmd := &cobra.Command{
		Use:   mcpCommandName,
		Short: "Start an MCP server for AI agent integration",
		Long: `Start a Model Context Protocol (MCP) server on stdio transport.

The server exposes two tools:
  - iter2tail_convert: convert one function given its source and name
  - iter2tail_analyze: describe every function and loop of a source

With --metrics-addr, Prometheus metrics are served on <addr>/metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runMCP(cmd.Context(), metricsAddr)
		},
	}

	cmd.Flags().StringVar(&metricsAddr, metricsAddrFlag, "", "serve Prometheus metrics on this address (e.g. :9464)")

	return cmd
}

func (a *app) runMCP(ctx context.Context, metricsAddr string) error {
	if metricsAddr != "" && a.providers.MetricsHandler != nil {
		stop, err := a.serveMetrics(ctx, metricsAddr)
		if err != nil {
			return err
		}

		defer stop()
	}

	opts := a.cfg.Options()

	srv := mcp.NewServer(mcp.ServerDeps{
		Logger:      a.providers.Logger,
		Options:     &opts,
		Metrics:     a.red,
		Conversions: a.conversions,
		Tracer:      a.providers.Tracer,
	})

	a.providers.Logger.InfoContext(ctx, "mcp server starting", "tools", srv.ListToolNames())

	return srv.Run(ctx)
}

// serveMetrics starts the scrape endpoint and returns a func that stops it.
func (a *app) serveMetrics(ctx context.Context, addr string) (func(), error) {
	ln, err := (&net.ListenConfig{}).Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle(metricsPath, observability.HTTPMiddleware(a.providers.Tracer, a.red, a.providers.MetricsHandler))

	httpSrv := &http.Server{Handler: mux, ReadHeaderTimeout: readHeaderTimeout}

	go func() {
		if serveErr := httpSrv.Serve(ln); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			a.providers.Logger.Error("metrics server failed", "error", serveErr)
		}
	}()

	a.providers.Logger.InfoContext(ctx, "serving metrics", "addr", ln.Addr().String(), "path", metricsPath)

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), readHeaderTimeout)
		defer cancel()

		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			a.providers.Logger.Warn("metrics server shutdown failed", "error", err)
		}
	}, nil
}
