package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/phrazzld/taskflow-api/internal/config"
	"github.com/phrazzld/taskflow-api/internal/platform/postgres"
)

// handleMigrations runs a goose command against the configured PostgreSQL
// database. MongoDB has no schema migrations; its indexes are created at
// startup.
func handleMigrations(ctx context.Context, cfg *config.Config, command string, lg *slog.Logger) error {
	if cfg.Database.Driver != "postgres" {
		return fmt.Errorf("migrations are only supported for the postgres driver, got %q", cfg.Database.Driver)
	}

	db, err := postgres.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			lg.Error("failed to close database connection", "error", cerr)
		}
	}()

	return postgres.Migrate(ctx, db, command, lg)
}
