package commands

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/iter2tail/pkg/pyast"
	"github.com/Sumatoshi-tech/iter2tail/pkg/pyeval"
)

// ErrMismatch reports a converted function whose result differs from the original.
var ErrMismatch = errors.New("converted function disagrees with the original")

func newCheckCommand(a *app) *cobra.Command {
	var (
		argSets []string
		limit   int
	)

	cmd := &cobra.Command{
		Use:   "check <source_file> <function_name>",
		Short: "Run the original and converted function on sample arguments",
		Long: `Convert the named function, evaluate the source module and the generated
function, then call both with each --args set and compare the results.
Each --args value is a comma-separated list of Python literals.

Examples:
  iter2tail check examples.py factorial --args 0 --args 5 --args 10
  iter2tail check examples.py power --args 2,10`,
		Args: cobra.ExactArgs(runArgCount),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runCheck(cmd, args[0], args[1], argSets, limit)
		},
	}

	cmd.Flags().StringArrayVar(&argSets, "args", nil, "comma-separated literal arguments for one call (repeatable)")
	cmd.Flags().IntVar(&limit, "recursion-limit", pyeval.DefaultRecursionLimit, "maximum call depth during evaluation")

	return cmd
}

func (a *app) runCheck(cmd *cobra.Command, path, name string, argSets []string, limit int) error {
	ctx := cmd.Context()

	src, fn, err := a.loadFunction(ctx, path, name)
	if err != nil {
		return err
	}

	res, err := a.converter().Convert(ctx, fn)
	if err != nil {
		return fmt.Errorf("convert %s: %w", name, err)
	}

	a.printWarnings(cmd, res)

	in := pyeval.New(pyeval.WithRecursionLimit(limit), pyeval.WithOutput(cmd.ErrOrStderr()))

	if err := in.Exec(ctx, src.module); err != nil {
		return fmt.Errorf("evaluate %s: %w", path, err)
	}

	if err := in.Exec(ctx, &pyast.Module{Body: []pyast.Stmt{res.Function}}); err != nil {
		return fmt.Errorf("evaluate %s: %w", res.Function.Name, err)
	}

	if len(argSets) == 0 {
		argSets = []string{""}
	}

	out := cmd.OutOrStdout()
	failed := 0

	for _, set := range argSets {
		args := parseArgs(set)

		want, wantErr := in.Call(ctx, fn.Name, args...)
		got, gotErr := in.Call(ctx, res.Function.Name, args...)

		call := fmt.Sprintf("%s(%s)", fn.Name, set)

		switch {
		case wantErr != nil:
			color.New(color.FgYellow).Fprintf(out, "SKIP %s: original raised %v\n", call, wantErr)
		case gotErr != nil:
			failed++

			color.New(color.FgRed).Fprintf(out, "FAIL %s: %s, converted raised %v\n", call, pyeval.Repr(want), gotErr)
		case !pyeval.Equal(want, got):
			failed++

			color.New(color.FgRed).Fprintf(out, "FAIL %s: %s != %s\n", call, pyeval.Repr(want), pyeval.Repr(got))
		default:
			color.New(color.FgGreen).Fprintf(out, "ok   %s = %s\n", call, pyeval.Repr(got))
		}
	}

	if failed > 0 {
		return fmt.Errorf("%w: %d of %d calls", ErrMismatch, failed, len(argSets))
	}

	return nil
}

func parseArgs(set string) []pyeval.Value {
	if strings.TrimSpace(set) == "" {
		return nil
	}

	parts := strings.Split(set, ",")
	args := make([]pyeval.Value, len(parts))

	for i, p := range parts {
		args[i] = pyeval.ParseLiteral(p)
	}

	return args
}
