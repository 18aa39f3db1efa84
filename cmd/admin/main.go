// Command admin grants or revokes the admin role for an existing user.
//
//	admin grant ops@example.com
//	admin revoke ops@example.com
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	_ "github.com/lib/pq"

	"github.com/joao-fontenele/chopflow/internal/config"
	"github.com/joao-fontenele/chopflow/internal/telemetry"
	"github.com/joao-fontenele/chopflow/internal/users"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	flag.Usage = func() {
		fmt.Fprintln(flag.CommandLine.Output(), "usage: admin <grant|revoke> <email>")
		flag.PrintDefaults()
	}
	timeout := flag.Duration("timeout", 10*time.Second, "database operation timeout")
	flag.Parse()

	args := flag.Args()
	if len(args) != 2 {
		flag.Usage()
		os.Exit(2)
	}

	var isAdmin bool
	switch args[0] {
	case "grant":
		isAdmin = true
	case "revoke":
		isAdmin = false
	default:
		flag.Usage()
		os.Exit(2)
	}
	email := args[1]

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if cfg.Database.URL == "" {
		logger.Error("POSTGRES_URL environment variable is required")
		os.Exit(1)
	}

	db, err := telemetry.OpenDB(cfg.Database)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	user, err := users.NewUserRepository(db).SetAdmin(ctx, email, isAdmin)
	if err != nil {
		logger.Error("failed to update admin flag", "email", email, "error", err)
		os.Exit(1)
	}

	logger.Info("admin flag updated", "user_id", user.ID, "email", user.Email, "is_admin", user.IsAdmin)
}
