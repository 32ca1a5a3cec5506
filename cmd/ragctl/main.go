// Command ragctl builds the physiology corpus and queries it from the shell
// or over MCP.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root, cleanup := newRootCmd(openApp)
	err := root.ExecuteContext(ctx)
	if cerr := cleanup(); cerr != nil {
		fmt.Fprintln(os.Stderr, "Error: cleanup:", cerr)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}
