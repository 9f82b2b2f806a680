// Command crossfade previews and exports blurred cross-fade transitions
// between two video streams.
//
// Usage:
//
//	crossfade preview --first intro.cfs --second outro.cfs
//	crossfade export --first intro.cfs --second outro.cfs --format png
//	crossfade kernels --force
//	crossfade exports
//	crossfade config --write ~/.config/crossfade/crossfade.yaml
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "crossfade: %v\n", err)
		stop()
		os.Exit(1)
	}
}
