package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joshu-sajeev/destinations/internal/cli"
	"github.com/joshu-sajeev/destinations/internal/config"
	"github.com/joshu-sajeev/destinations/internal/destinations"
	"github.com/joshu-sajeev/destinations/internal/logger"
	"github.com/rs/zerolog"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	// Diagnostics go to stderr so command output stays parseable.
	log, err := logger.New(cfg.Env, cfg.LogLevel, zerolog.ConsoleWriter{Out: os.Stderr})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	registry := destinations.FromConfig(ctx, cfg, nil)
	return cli.NewRootCommand(registry, cfg.FeatureSet(), *log).ExecuteContext(log.WithContext(ctx))
}
