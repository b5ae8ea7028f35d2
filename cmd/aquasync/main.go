// Command aquasync is the fish compatibility and tankmate engine CLI.
package main

import (
	"aquasync/internal/cli"
	"context"
	"os"
	"os/signal"
	"syscall"
)

var exitFunc = os.Exit

func main() {
	exitFunc(run(os.Args[1:]))
}

func run(args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return cli.Run(ctx, args, os.Stdout, os.Stderr)
}
