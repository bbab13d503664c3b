// Command ptsync mirrors a YouTube channel to a self-hosted PeerTube
// instance: fetch videos locally, reconcile them against the instance, and
// keep metadata in sync across repeated runs.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	// Interrupts cancel the context so a run stops at the next video
	// boundary instead of mid-upload.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
