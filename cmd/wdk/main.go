// Package main provides the entry point for the wdk command-line tool.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/EuPathDB/WSF/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cli.NewRootCommand().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
