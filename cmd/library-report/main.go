// Package main provides the entry point for the library report.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/listenupapp/library-report/internal/di"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run opens the configured catalog and prints the report to stdout. Any
// failure is reported once on stderr and nothing reaches stdout.
func run(ctx context.Context, stdout, stderr io.Writer) int {
	injector := di.NewContainer()
	defer injector.Shutdown()

	c, err := di.Bootstrap(injector)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	cat, err := c.Opener.Open(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer func() {
		if err := cat.Close(); err != nil {
			c.Logger.Warn("failed to close catalog", "error", err)
		}
	}()

	if err := c.Generator.Generate(ctx, cat, stdout); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
