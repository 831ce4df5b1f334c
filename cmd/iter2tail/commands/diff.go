package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/iter2tail/pkg/pyast"
)

func newDiffCommand(a *app) *cobra.Command {
	var noColor bool

	cmd := &cobra.Command{
		Use:   "diff <source_file> <function_name>",
		Short: "Show a line diff between a function and its converted form",
		Long: `Convert the named function and print a line diff from the original
definition to the generated one. Nothing is written to disk.

Examples:
  iter2tail diff examples.py factorial
  iter2tail diff --no-color examples.py fibonacci | less`,
		Args: cobra.ExactArgs(runArgCount),
		RunE: func(cmd *cobra.Command, args []string) error {
			if noColor {
				color.NoColor = true //nolint:reassign // intentional override of library global
			}

			return a.runDiff(cmd, args[0], args[1])
		},
	}

	cmd.Flags().BoolVar(&noColor, "no-color", false, "disable colored output")

	return cmd
}

func (a *app) runDiff(cmd *cobra.Command, path, name string) error {
	ctx := cmd.Context()

	_, fn, err := a.loadFunction(ctx, path, name)
	if err != nil {
		return err
	}

	res, err := a.converter().Convert(ctx, fn)
	if err != nil {
		return fmt.Errorf("convert %s: %w", name, err)
	}

	before := pyast.Unparse(fn) + "\n"
	after := res.Source() + "\n"

	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "--- %s:%s\n+++ %s:%s\n", path, fn.Name, outputPath(path, a.cfg.Transform.Suffix), res.Function.Name)
	writeLineDiff(out, lineDiff(before, after))

	return nil
}

// lineDiff diffs before and after line by line.
func lineDiff(before, after string) []diffmatchpatch.Diff {
	dmp := diffmatchpatch.New()
	src, dst, lines := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffMain(src, dst, false)

	return dmp.DiffCharsToLines(diffs, lines)
}

func writeLineDiff(w io.Writer, diffs []diffmatchpatch.Diff) {
	added := color.New(color.FgGreen)
	removed := color.New(color.FgRed)

	for _, d := range diffs {
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}

			line = strings.TrimSuffix(line, "\n")

			switch d.Type {
			case diffmatchpatch.DiffInsert:
				added.Fprintf(w, "+%s\n", line)
			case diffmatchpatch.DiffDelete:
				removed.Fprintf(w, "-%s\n", line)
			case diffmatchpatch.DiffEqual:
				fmt.Fprintf(w, " %s\n", line)
			}
		}
	}
}
