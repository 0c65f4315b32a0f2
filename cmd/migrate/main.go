package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/hszk-dev/gotube/internal/config"
	"github.com/hszk-dev/gotube/internal/infrastructure/postgres"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	steps := fs.Int("steps", 1, "number of migrations to roll back with down")
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "usage: migrate [-steps N] up|down")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	switch fs.Arg(0) {
	case "up":
		return postgres.MigrateUp(cfg.Database.DSN())
	case "down":
		if err := postgres.MigrateDown(cfg.Database.DSN(), *steps); err != nil {
			return err
		}
		slog.Info("migrations rolled back", slog.Int("steps", *steps))
		return nil
	default:
		fs.Usage()
		return fmt.Errorf("unknown command %q", fs.Arg(0))
	}
}
