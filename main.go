package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"srcset/cli"
)

func main() {
	// Cancel on interrupt so serve --watch shuts down cleanly
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cli.RootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
