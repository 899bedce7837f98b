package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/store"
	"github.com/stretchr/testify/mock"
)

// MockTaskStore is a mock of store.TaskStore for use with testify/mock.
type MockTaskStore struct {
	mock.Mock
}

var _ store.TaskStore = (*MockTaskStore)(nil)

func (m *MockTaskStore) Create(ctx context.Context, task *domain.Task) error {
	args := m.Called(ctx, task)
	return args.Error(0)
}

func (m *MockTaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	args := m.Called(ctx, id)
	if task, ok := args.Get(0).(*domain.Task); ok {
		return task, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockTaskStore) Update(ctx context.Context, task *domain.Task) error {
	args := m.Called(ctx, task)
	return args.Error(0)
}

func (m *MockTaskStore) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockTaskStore) List(
	ctx context.Context,
	filter store.TaskFilter,
	page store.Page,
) ([]*domain.Task, int, error) {
	args := m.Called(ctx, filter, page)
	tasks, _ := args.Get(0).([]*domain.Task)
	return tasks, args.Int(1), args.Error(2)
}

func (m *MockTaskStore) AddComment(ctx context.Context, taskID uuid.UUID, comment domain.Comment) error {
	args := m.Called(ctx, taskID, comment)
	return args.Error(0)
}

func (m *MockTaskStore) AddSubtask(ctx context.Context, taskID uuid.UUID, subtask domain.Subtask) error {
	args := m.Called(ctx, taskID, subtask)
	return args.Error(0)
}

func (m *MockTaskStore) UpdateSubtask(ctx context.Context, taskID uuid.UUID, subtask domain.Subtask) error {
	args := m.Called(ctx, taskID, subtask)
	return args.Error(0)
}

func (m *MockTaskStore) Count(ctx context.Context, filter store.TaskFilter) (int, error) {
	args := m.Called(ctx, filter)
	return args.Int(0), args.Error(1)
}

func (m *MockTaskStore) CountBy(
	ctx context.Context,
	filter store.TaskFilter,
	field store.GroupField,
) (map[string]int, error) {
	args := m.Called(ctx, filter, field)
	counts, _ := args.Get(0).(map[string]int)
	return counts, args.Error(1)
}

func (m *MockTaskStore) UnassignOpen(ctx context.Context, userID uuid.UUID) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}
