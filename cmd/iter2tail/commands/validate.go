package commands

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/iter2tail/pkg/pyast"
)

// ErrNotCompliant reports a generated tree that fails validation.
var ErrNotCompliant = errors.New("generated tree is not compliant")

// complianceMax is the maximum compliance percentage.
const complianceMax = 100

func newValidateCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <source_file> <function_name>",
		Short: "Check the converted syntax tree against the node schema",
		Long: `Convert the named function and check that every node of the generated
tree carries a position and the fields its kind requires.

Examples:
  iter2tail validate examples.py factorial`,
		Args: cobra.ExactArgs(runArgCount),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runValidate(cmd, args[0], args[1])
		},
	}
}

func (a *app) runValidate(cmd *cobra.Command, path, name string) error {
	ctx := cmd.Context()

	_, fn, err := a.loadFunction(ctx, path, name)
	if err != nil {
		return err
	}

	res, err := a.converter().Convert(ctx, fn)
	if err != nil {
		return fmt.Errorf("convert %s: %w", name, err)
	}

	schema, err := pyast.ValidateSchema(res.Function)
	if err != nil {
		return err
	}

	structural := pyast.Validate(res.Function)
	out := cmd.OutOrStdout()
	label := res.Function.Name

	if schema.Valid && structural == nil {
		color.New(color.FgGreen).Fprintf(out, "tree is valid (%s)\n", label)
		color.New(color.FgGreen).Fprintf(out, "  Compliance: %d%%\n", complianceMax)

		return nil
	}

	total := countNodes(res.Function)
	failing := len(schema.Errors)

	if structural != nil && schema.Valid {
		failing = 1
	}

	compliance := complianceMax * max(total-failing, 0) / max(total, 1)

	color.New(color.FgRed).Fprintf(out, "tree validation failed (%s)\n", label)
	color.New(color.FgYellow).Fprintf(out, "  Compliance: %d%%\n", compliance)
	fmt.Fprintf(out, "\nErrors:\n")

	for _, e := range schema.Errors {
		color.New(color.FgRed).Fprintf(out, "  - %s\n", e)
	}

	if structural != nil && schema.Valid {
		color.New(color.FgRed).Fprintf(out, "  - %v\n", structural)
	}

	return fmt.Errorf("%w: %s", ErrNotCompliant, label)
}

func countNodes(node pyast.Node) int {
	n := 0

	pyast.Inspect(node, func(pyast.Node) bool {
		n++

		return true
	})

	return n
}
