// Package commands implements the iter2tail subcommands.
package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/iter2tail/pkg/config"
	"github.com/Sumatoshi-tech/iter2tail/pkg/observability"
	"github.com/Sumatoshi-tech/iter2tail/pkg/pyparse"
	"github.com/Sumatoshi-tech/iter2tail/pkg/tailrec"
	"github.com/Sumatoshi-tech/iter2tail/pkg/version"
)

// ErrConflictingFlags reports --verbose combined with --quiet.
var ErrConflictingFlags = errors.New("--verbose and --quiet are mutually exclusive")

// app is the state shared by every subcommand of one invocation.
type app struct {
	configPath string
	verbose    bool
	quiet      bool
	logJSON    bool

	cfg         *config.Config
	providers   observability.Providers
	red         *observability.REDMetrics
	conversions *observability.ConversionMetrics
	parser      *pyparse.Parser
}

// NewRootCommand builds the iter2tail command tree.
func NewRootCommand() *cobra.Command {
	a := &app{parser: pyparse.NewParser()}

	root := &cobra.Command{
		Use:   "iter2tail",
		Short: "Rewrite accumulator while loops in Python functions as tail recursion",
		Long: `iter2tail rewrites a Python function built around a single accumulator-style
while loop into an equivalent tail-recursive function named <function>__tail.

Commands:
  run       Convert a function and write <file>__tail.py
  analyze   Describe the functions and loops of a file
  diff      Show the original and converted function side by side
  check     Evaluate original and converted function on sample arguments
  validate  Check the converted tree against the node schema
  mcp       Serve the conversion as MCP tools over stdio`,
		Version:           version.Version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return a.shutdown(cmd.Context())
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "config file (default is ./.iter2tail.yaml or $HOME/.iter2tail.yaml)")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "debug logging")
	flags.BoolVarP(&a.quiet, "quiet", "q", false, "only print results and errors")
	flags.BoolVar(&a.logJSON, "log-json", false, "JSON log lines on stderr")

	root.AddCommand(
		newRunCommand(a),
		newAnalyzeCommand(a),
		newDiffCommand(a),
		newCheckCommand(a),
		newValidateCommand(a),
		newMCPCommand(a),
		newVersionCommand(),
	)

	return root
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if a.verbose && a.quiet {
		return ErrConflictingFlags
	}

	cfg, err := config.LoadConfig(a.configPath)
	if err != nil {
		return err
	}

	a.cfg = cfg

	obs := observability.DefaultConfig()
	obs.ServiceVersion = version.Version
	obs.LogOutput = cmd.ErrOrStderr()
	cfg.Apply(&obs)

	switch {
	case a.verbose:
		obs.LogLevel = slog.LevelDebug
	case a.quiet:
		obs.LogLevel = slog.LevelError
	}

	if a.logJSON {
		obs.LogJSON = true
	}

	if cmd.Name() == mcpCommandName {
		obs.Mode = observability.ModeMCP
		obs.Prometheus = cmd.Flags().Changed(metricsAddrFlag)
	}

	providers, err := observability.Init(cmd.Context(), obs)
	if err != nil {
		return fmt.Errorf("init observability: %w", err)
	}

	a.providers = providers

	if a.red, err = observability.NewREDMetrics(providers.Meter); err != nil {
		return err
	}

	if a.conversions, err = observability.NewConversionMetrics(providers.Meter); err != nil {
		return err
	}

	return nil
}

func (a *app) shutdown(ctx context.Context) error {
	if a.providers.Shutdown == nil {
		return nil
	}

	if err := a.providers.Shutdown(context.WithoutCancel(ctx)); err != nil {
		a.providers.Logger.Warn("observability shutdown failed", "error", err)
	}

	return nil
}

// converter returns a Converter configured from the loaded config.
func (a *app) converter() *tailrec.Converter {
	conv := tailrec.NewConverter(a.cfg.Options())
	conv.Logger = a.providers.Logger
	conv.Tracer = a.providers.Tracer
	conv.Recorder = a.conversions

	return conv
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}
