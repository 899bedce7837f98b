package postgres

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/phrazzld/taskflow-api/internal/store"
)

// Repository bundles the PostgreSQL stores around one connection pool.
type Repository struct {
	db     *sql.DB
	logger *slog.Logger
	users  *PostgresUserStore
	tasks  *PostgresTaskStore
}

var _ store.Repository = (*Repository)(nil)

// NewRepository creates a Repository over db.
func NewRepository(db *sql.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		logger: logger,
		users:  NewPostgresUserStore(db, logger),
		tasks:  NewPostgresTaskStore(db, logger),
	}
}

func (r *Repository) Users() store.UserStore { return r.users }

func (r *Repository) Tasks() store.TaskStore { return r.tasks }

// RunInTx implements store.Repository with a SQL transaction.
func (r *Repository) RunInTx(
	ctx context.Context,
	fn func(ctx context.Context, users store.UserStore, tasks store.TaskStore) error,
) error {
	return store.RunInTransaction(ctx, r.db, func(ctx context.Context, tx *sql.Tx) error {
		return fn(ctx, NewPostgresUserStore(tx, r.logger), NewPostgresTaskStore(tx, r.logger))
	})
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *Repository) Close(context.Context) error {
	return r.db.Close()
}
