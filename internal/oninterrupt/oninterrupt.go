// Package oninterrupt cancels a context on SIGINT, so an in-progress
// Scheduler run tears down its worker pool instead of leaving goroutines
// running past the user's Ctrl-C (spec.md §5, "Cancellation and
// timeouts": "An external SIGINT tears down worker processes; partially-
// written outputs in temp directories are discarded").
//
// This resolves the teacher's own TODO (distri's internal/oninterrupt used
// to call os.Exit directly from a package-level signal handler) by
// deriving a cancellable context instead, which is what the Scheduler's
// Execute already respects via ctx.Done().
package oninterrupt

import (
	"context"
	"os"
	"os/signal"
)

// WithCancelOnInterrupt returns a child of ctx that is canceled as soon as
// the process receives SIGINT (or the parent ctx is canceled, whichever
// comes first). The returned stop function releases the signal
// subscription and must be called once the caller no longer needs to
// observe interrupts (typically via defer).
func WithCancelOnInterrupt(ctx context.Context) (context.Context, func()) {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	return ctx, stop
}
