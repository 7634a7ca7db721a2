package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	_ "embed"

	"github.com/tigerroll/forecastpipe/internal/support/logger"
)

// embeddedConfig is the base application configuration.
//
//go:embed resources/application.yaml
var embeddedConfig []byte

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Signal handling for graceful shutdown (e.g., Ctrl+C)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Warnf("Received signal '%v'. Stopping...", sig)
		cancel()
	}()

	if err := newRootCmd(ctx).Execute(); err != nil {
		// Execute prints the error.
		os.Exit(1)
	}
}
