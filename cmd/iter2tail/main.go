// Package main provides the entry point for the iter2tail CLI.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"

	"github.com/Sumatoshi-tech/iter2tail/cmd/iter2tail/commands"
	"github.com/Sumatoshi-tech/iter2tail/pkg/version"
)

func main() {
	version.Init()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := commands.NewRootCommand().ExecuteContext(ctx)

	stop()

	if err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
