// Command entmeta loads entity declarations and describes, exports or
// generates code from the built entities.
//
//	entmeta describe Book
//	entmeta graphql --out schema.graphql
//	entmeta gen --target ./model
//	entmeta watch --gen
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
