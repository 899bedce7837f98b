package mongo

import (
	"context"
	"log/slog"

	"github.com/phrazzld/taskflow-api/internal/store"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Repository bundles the MongoDB stores around one client.
type Repository struct {
	client *mongodriver.Client
	users  *UserStore
	tasks  *TaskStore
}

var _ store.Repository = (*Repository)(nil)

// NewRepository creates a Repository on db owned by client.
func NewRepository(client *mongodriver.Client, db *mongodriver.Database, logger *slog.Logger) *Repository {
	return &Repository{
		client: client,
		users:  NewUserStore(db, logger),
		tasks:  NewTaskStore(db, logger),
	}
}

func (r *Repository) Users() store.UserStore { return r.users }

func (r *Repository) Tasks() store.TaskStore { return r.tasks }

// RunInTx runs fn against the plain stores. Standalone MongoDB deployments
// have no multi-document transactions, so steps are applied one by one.
func (r *Repository) RunInTx(
	ctx context.Context,
	fn func(ctx context.Context, users store.UserStore, tasks store.TaskStore) error,
) error {
	return fn(ctx, r.users, r.tasks)
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx, readpref.Primary())
}

func (r *Repository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}
