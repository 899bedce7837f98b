package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const migrationsDir = "migrations"

// MigrationTableName is the goose version table.
const MigrationTableName = "schema_migrations"

// ErrUnknownMigrationCommand is returned for commands other than those in
// MigrationCommands.
var ErrUnknownMigrationCommand = errors.New("unknown migration command")

// MigrationCommands lists the accepted Migrate commands.
var MigrationCommands = []string{"up", "down", "reset", "status", "version"}

// slogGooseLogger forwards goose output to slog. Fatalf does not exit so the
// caller decides how to terminate.
type slogGooseLogger struct {
	log *slog.Logger
}

func (l slogGooseLogger) Printf(format string, v ...any) {
	l.log.Info(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l slogGooseLogger) Fatalf(format string, v ...any) {
	l.log.Error(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func configureGoose(log *slog.Logger) error {
	goose.SetBaseFS(migrationsFS)
	goose.SetLogger(slogGooseLogger{log: log})
	goose.SetTableName(MigrationTableName)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set dialect: %w", err)
	}
	return nil
}

// Migrate runs a goose command against db using the embedded migrations.
func Migrate(ctx context.Context, db *sql.DB, command string, log *slog.Logger) error {
	log = log.With("component", "migrations", "command", command)

	var run func(context.Context, *sql.DB, string, ...goose.OptionsFunc) error
	switch command {
	case "up":
		run = goose.UpContext
	case "down":
		run = goose.DownContext
	case "reset":
		run = goose.ResetContext
	case "status":
		run = goose.StatusContext
	case "version":
		run = goose.VersionContext
	default:
		return fmt.Errorf("%w: %q (expected one of %s)",
			ErrUnknownMigrationCommand, command, strings.Join(MigrationCommands, ", "))
	}

	if err := configureGoose(log); err != nil {
		return err
	}

	log.Info("running migration command")
	if err := run(ctx, db, migrationsDir); err != nil {
		log.Error("migration command failed", "error", err)
		return fmt.Errorf("migration %s failed: %w", command, err)
	}
	log.Info("migration command finished")
	return nil
}

// Migrations returns the embedded migrations in version order.
func Migrations(log *slog.Logger) (goose.Migrations, error) {
	if err := configureGoose(log); err != nil {
		return nil, err
	}
	return goose.CollectMigrations(migrationsDir, 0, goose.MaxVersion)
}
