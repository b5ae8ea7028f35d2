// Command recompute-compatibility rebuilds the pairwise compatibility matrix
// and the tankmate profiles.
//
// Usage:
//
//	recompute-compatibility [--limit N] [--force] [--batch-size N]
//
// Exit codes: 0 success, 1 configuration or input error, 2 completed with
// chunk failures or cancelled.
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
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli.RunRecompute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	exitFunc(code)
}
