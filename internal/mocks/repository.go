package mocks

import (
	"context"

	"github.com/phrazzld/taskflow-api/internal/store"
)

// MockRepository exposes mock stores through store.Repository. RunInTx runs
// fn directly against the same stores unless TxErr is set.
type MockRepository struct {
	UserStore *MockUserStore
	TaskStore *MockTaskStore

	// TxErr, when set, is returned by RunInTx without calling fn.
	TxErr   error
	PingErr error

	TxCalls int
	Closed  bool
}

var _ store.Repository = (*MockRepository)(nil)

// NewMockRepository creates a repository backed by fresh mock stores.
func NewMockRepository() *MockRepository {
	return &MockRepository{
		UserStore: &MockUserStore{},
		TaskStore: &MockTaskStore{},
	}
}

func (r *MockRepository) Users() store.UserStore { return r.UserStore }
func (r *MockRepository) Tasks() store.TaskStore { return r.TaskStore }

func (r *MockRepository) RunInTx(
	ctx context.Context,
	fn func(ctx context.Context, users store.UserStore, tasks store.TaskStore) error,
) error {
	r.TxCalls++
	if r.TxErr != nil {
		return r.TxErr
	}
	return fn(ctx, r.UserStore, r.TaskStore)
}

func (r *MockRepository) Ping(context.Context) error { return r.PingErr }

func (r *MockRepository) Close(context.Context) error {
	r.Closed = true
	return nil
}
