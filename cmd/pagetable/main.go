// Package main is the entry point for pagetable.
//
// pagetable fetches a remote JSON list page by page, keeps the accumulated
// rows in a local key/value store and presents them as a sortable table
// over HTTP, in a terminal UI or on the command line. Configuration is read
// from a YAML file, PAGETABLE_* environment variables and CLI flags.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/maruel/pagetable/cmd/pagetable/commands"
)

func main() {
	if err := mainImpl(); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "pagetable: %v\n", err)
		os.Exit(1)
	}
}

func mainImpl() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()
	return commands.Execute(ctx, stop)
}
