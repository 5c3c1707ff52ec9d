// Package main applies or reverts the postgres schema migrations
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"github.com/JosephChataignon/hAIckers-team/internal/infrastructure/config"
	"github.com/JosephChataignon/hAIckers-team/internal/infrastructure/persistence/migrations"
	"github.com/JosephChataignon/hAIckers-team/pkg/logger"
)

const usage = `usage: migrate [-config path] <command>

commands:
  up          apply all pending migrations
  down        revert the last migration
  reset       revert every migration
  steps N     apply (N > 0) or revert (N < 0) N migrations
  force V     set the version without running migrations
  version     print the current version and pending count
`

func main() {
	configPath := flag.String("config", "", "Configuration file path")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.Logging.Level,
		Format:      "console",
		Development: cfg.IsDevelopment(),
		Service:     "migrate",
		Environment: cfg.App.Environment,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log, flag.Args()); err != nil {
		log.Error("Migration failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *zap.Logger, args []string) error {
	if cfg.Database.Driver == "sqlite" {
		return fmt.Errorf("migrations target postgres; sqlite schemas are created on startup")
	}

	// The migrator closes db
	db, err := sql.Open("pgx", cfg.GetURL())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	m, err := migrations.New(db, cfg.Database.Name, log)
	if err != nil {
		db.Close()
		return err
	}
	defer func() {
		if err := m.Close(); err != nil {
			log.Warn("Failed to close migrator", zap.Error(err))
		}
	}()

	switch args[0] {
	case "up":
		return m.Up()
	case "down":
		return m.Down()
	case "reset":
		return m.Reset()
	case "steps":
		n, err := intArg(args)
		if err != nil {
			return err
		}
		return m.Steps(n)
	case "force":
		v, err := intArg(args)
		if err != nil {
			return err
		}
		return m.Force(v)
	case "version":
		status, err := m.Status()
		if err != nil {
			return err
		}
		fmt.Println(status)
		if status.Pending() {
			fmt.Printf("%d migration(s) pending\n", status.Latest-status.Version)
		}
		return nil
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func intArg(args []string) (int, error) {
	if len(args) < 2 {
		return 0, fmt.Errorf("%s needs a number", args[0])
	}
	var n int
	if _, err := fmt.Sscanf(args[1], "%d", &n); err != nil {
		return 0, fmt.Errorf("invalid number %q: %w", args[1], err)
	}
	return n, nil
}
