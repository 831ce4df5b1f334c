package commands

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/iter2tail/pkg/tailrec"
)

const (
	runArgCount = 2
	outputPerm  = 0o644
)

func newRunCommand(a *app) *cobra.Command {
	var toStdout bool

	cmd := &cobra.Command{
		Use:   "run <source_file> <function_name>",
		Short: "Convert a function and write it next to the source file",
		Long: `Convert the first function named <function_name> to tail-recursive form and write
the generated function to <source_file_without_ext>__tail<ext>.

Examples:
  iter2tail run examples.py factorial
  iter2tail run --stdout examples.py fibonacci`,
		Args: cobra.ExactArgs(runArgCount),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runConvert(cmd, args[0], args[1], toStdout)
		},
	}

	cmd.Flags().BoolVar(&toStdout, "stdout", false, "print the generated function instead of writing a file")

	return cmd
}

func (a *app) runConvert(cmd *cobra.Command, path, name string, toStdout bool) error {
	ctx := cmd.Context()

	_, fn, err := a.loadFunction(ctx, path, name)
	if err != nil {
		return err
	}

	res, err := a.converter().Convert(ctx, fn)
	if err != nil {
		return fmt.Errorf("convert %s: %w", name, err)
	}

	a.printWarnings(cmd, res)

	text := res.Source() + "\n"

	if toStdout {
		fmt.Fprint(cmd.OutOrStdout(), text)

		return nil
	}

	out := outputPath(path, a.cfg.Transform.Suffix)

	if err := os.WriteFile(out, []byte(text), outputPerm); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}

	a.providers.Logger.InfoContext(ctx, "wrote converted function",
		"file", out, "function", res.Function.Name, "state", res.Info.Names())

	color.New(color.FgGreen).Fprintln(cmd.OutOrStdout(), out)

	return nil
}

func (a *app) printWarnings(cmd *cobra.Command, res *tailrec.Result) {
	if a.quiet {
		return
	}

	for _, w := range res.Warnings() {
		color.New(color.FgYellow).Fprintf(cmd.ErrOrStderr(), "warning: %s\n", w)
	}
}
