package main

import (
	"errors"
	"flag"
	"log/slog"
	"os"

	"github.com/golang-migrate/migrate/v4"

	"github.com/joao-fontenele/chopflow/internal/config"
	"github.com/joao-fontenele/chopflow/internal/postgres"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	flag.Parse()
	args := flag.Args()
	if len(args) < 1 {
		logger.Error("usage: migrate <up|down|version>")
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if cfg.Database.URL == "" {
		logger.Error("POSTGRES_URL environment variable is required")
		os.Exit(1)
	}

	m, err := postgres.NewMigrator(cfg.Database.MigrationsPath, cfg.Database.URL)
	if err != nil {
		logger.Error("failed to create migrate instance", "error", err)
		os.Exit(1)
	}
	defer func() { _, _ = m.Close() }()

	switch command := args[0]; command {
	case "up":
		err = m.Up()
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Info("no pending migrations")
			return
		}
		if err != nil {
			logger.Error("migration up failed", "error", err)
			os.Exit(1)
		}
		logger.Info("migrations applied successfully")

	case "down":
		err = m.Steps(-1)
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Info("no migrations to rollback")
			return
		}
		if err != nil {
			logger.Error("migration down failed", "error", err)
			os.Exit(1)
		}
		logger.Info("migration rolled back successfully")

	case "version":
		version, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			logger.Info("no migrations applied yet")
			return
		}
		if err != nil {
			logger.Error("failed to get version", "error", err)
			os.Exit(1)
		}
		logger.Info("current migration version", slog.Uint64("version", uint64(version)), slog.Bool("dirty", dirty))

	default:
		logger.Error("unknown command", "command", command)
		os.Exit(1)
	}
}
