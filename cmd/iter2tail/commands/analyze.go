package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/iter2tail/pkg/tailrec"
)

// ErrUnsupportedFormat reports an unknown --format value.
var ErrUnsupportedFormat = errors.New("unsupported format")

// Output formats of the analyze command.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

func newAnalyzeCommand(a *app) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "analyze <source_file>",
		Short: "Describe every function and its loops",
		Long: `List every function, methods and nested functions included, with its
parameters, its while loops, the updates made inside them and whether the
first loop can be converted.

Examples:
  iter2tail analyze examples.py
  iter2tail analyze -f json examples.py`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runAnalyze(cmd, args[0], format)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", FormatTable, "output format (table, json, yaml)")

	return cmd
}

func (a *app) runAnalyze(cmd *cobra.Command, path, format string) error {
	src, err := a.loadSource(cmd.Context(), path)
	if err != nil {
		return err
	}

	order, err := tailrec.ParseStateOrder(a.cfg.Transform.StateOrder)
	if err != nil {
		return err
	}

	fds := tailrec.AnalyzeModule(src.module)
	summaries := make([]tailrec.FunctionSummary, len(fds))

	for i, fd := range fds {
		summaries[i] = tailrec.Summarize(fd, order)
	}

	return writeSummaries(cmd.OutOrStdout(), summaries, format)
}

func writeSummaries(w io.Writer, summaries []tailrec.FunctionSummary, format string) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")

		if err := enc.Encode(summaries); err != nil {
			return fmt.Errorf("encode json: %w", err)
		}

		return nil
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		defer enc.Close()

		if err := enc.Encode(summaries); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}

		return nil
	case FormatTable:
		renderTable(w, summaries)

		return nil
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

func renderTable(w io.Writer, summaries []tailrec.FunctionSummary) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(table.Row{"Function", "Line", "Params", "Loops", "State", "Status"})

	convertible := 0

	for _, s := range summaries {
		status := "ok"
		if s.Convertible {
			convertible++
		} else {
			status = s.Reason
		}

		tw.AppendRow(table.Row{
			s.Name,
			s.Line,
			strings.Join(s.Params, ", "),
			len(s.Loops),
			strings.Join(s.State, ", "),
			status,
		})
	}

	tw.AppendFooter(table.Row{"", "", "", "", "convertible", fmt.Sprintf("%d/%d", convertible, len(summaries))})
	tw.Render()
}
