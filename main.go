// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"rtaudio/cmd"
	"rtaudio/internal/log"
	"rtaudio/pkg/build"
)

// main wires process-level concerns and hands over to the CLI:
//
//  1. Build information from -ldflags (development builds keep defaults).
//  2. A context cancelled on SIGINT/SIGTERM, so running streams stop cleanly.
//  3. Command dispatch; every command owns its engine and backend.
func main() {
	if err := build.Initialize(); err != nil {
		log.Debugf("build info incomplete, using development defaults: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.NewRootCommand().ExecuteContext(ctx); err != nil {
		stop()
		log.Fatalf("%v", err)
	}
}
