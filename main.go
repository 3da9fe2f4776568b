package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"page_marker/infrastructure/config"
	"page_marker/infrastructure/logging"
	"page_marker/presentation/terminal"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if len(os.Args) > 1 {
		cfg.StartURL = os.Args[1]
	}

	logger := logging.New(cfg.LogLevel, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	termInterface, err := terminal.NewTerminalInterface(ctx, cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	defer termInterface.Close()

	if err := termInterface.Run(ctx); err != nil && ctx.Err() == nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		termInterface.Close()
		os.Exit(1)
	}
}
