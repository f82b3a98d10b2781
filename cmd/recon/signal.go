package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

// signalContext returns a context that is cancelled on SIGINT or SIGTERM.
//
// Only the first signal cancels; after that the handler is removed, so a
// second ctrl-c terminates the process immediately instead of waiting for
// in-flight operations to wind down.
func signalContext(ctx context.Context) context.Context {
	ctx, cancel := context.WithCancel(ctx)

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

		s := <-sig
		fmt.Fprintf(os.Stderr, "\nReceived %s, stopping.. (ctrl-c again to terminate immediately)\n", s)
		cancel()
		signal.Stop(sig)
	}()

	return ctx
}
