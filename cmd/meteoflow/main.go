package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/avolkhov/meteoflow/internal/meteoflow"
	"github.com/avolkhov/meteoflow/internal/meteoflow/loader"
)

func main() {
	command := "serve"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	cfg := meteoflow.FromEnv()

	var err error
	switch command {
	case "serve":
		err = serve(cfg)
	case "run":
		err = runOnce(cfg)
	case "migrate":
		err = migrate(cfg)
	default:
		fmt.Fprintf(os.Stderr, "usage: %s [serve|run|migrate]\n", os.Args[0])
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", command, err)
		os.Exit(1)
	}
}

// serve runs the scheduled pipeline with its HTTP API until SIGINT/SIGTERM.
func serve(cfg meteoflow.Config) error {
	srv, err := meteoflow.InitializeServer(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return srv.Run(ctx)
}

// runOnce executes a single pipeline run and exits, for cron-style
// deployments and manual backfills.
func runOnce(cfg meteoflow.Config) error {
	srv, err := meteoflow.InitializeServer(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return srv.RunOnce(ctx)
}

// migrate creates the ClickHouse database and tables.
func migrate(cfg meteoflow.Config) error {
	logger := meteoflow.NewLogger(cfg)
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return loader.Migrate(ctx, &loader.ClickHouseOptions{
		Addr:     cfg.ClickHouseAddr,
		Database: cfg.ClickHouseDatabase,
		Username: cfg.ClickHouseUsername,
		Password: cfg.ClickHousePassword,
	}, logger)
}
