// Package main provides the entry point for the geokb CLI tool.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/geokb/geokb/cmd/geokb/commands"
	"github.com/geokb/geokb/pkg/logging"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	root := commands.NewRootCommand()
	if err := root.ExecuteContext(ctx); err != nil {
		logging.Error().Err(err).Msg("Command failed")
		os.Exit(1)
	}
}
