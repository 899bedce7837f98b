package api

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/access"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/service"
	"github.com/phrazzld/taskflow-api/internal/store"
)

var errNotConfigured = errors.New("mock function not configured")

// mockUserService implements service.UserService with function fields.
// Calls to unset functions fail with an error.
type mockUserService struct {
	RegisterFn          func(ctx context.Context, in service.RegisterInput) (*domain.User, error)
	AuthenticateFn      func(ctx context.Context, email, password string) (*domain.User, error)
	GetUserFn           func(ctx context.Context, userID uuid.UUID) (*domain.User, error)
	ResolveActiveFn     func(ctx context.Context, userID uuid.UUID) (*domain.User, error)
	UpdateUserFn        func(ctx context.Context, actor access.Principal, targetID uuid.UUID, upd service.UserUpdate) (*domain.User, error)
	UpdatePreferencesFn func(ctx context.Context, userID uuid.UUID, upd service.PreferencesUpdate) (*domain.Preferences, error)
	ChangePasswordFn    func(ctx context.Context, userID uuid.UUID, current, next string) error
	ListUsersFn         func(ctx context.Context, filter store.UserFilter, page store.Page) ([]*domain.User, int, error)
	ListActiveFn        func(ctx context.Context) ([]*domain.User, error)
	SearchUsersFn       func(ctx context.Context, query string, limit int) ([]*domain.User, error)
	DeactivateUserFn    func(ctx context.Context, actor access.Principal, targetID uuid.UUID) (int, error)
}

var _ service.UserService = (*mockUserService)(nil)

func (m *mockUserService) Register(ctx context.Context, in service.RegisterInput) (*domain.User, error) {
	if m.RegisterFn == nil {
		return nil, errNotConfigured
	}
	return m.RegisterFn(ctx, in)
}

func (m *mockUserService) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	if m.AuthenticateFn == nil {
		return nil, errNotConfigured
	}
	return m.AuthenticateFn(ctx, email, password)
}

func (m *mockUserService) GetUser(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	if m.GetUserFn == nil {
		return nil, errNotConfigured
	}
	return m.GetUserFn(ctx, userID)
}

func (m *mockUserService) ResolveActive(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	if m.ResolveActiveFn == nil {
		return nil, errNotConfigured
	}
	return m.ResolveActiveFn(ctx, userID)
}

func (m *mockUserService) UpdateUser(
	ctx context.Context,
	actor access.Principal,
	targetID uuid.UUID,
	upd service.UserUpdate,
) (*domain.User, error) {
	if m.UpdateUserFn == nil {
		return nil, errNotConfigured
	}
	return m.UpdateUserFn(ctx, actor, targetID, upd)
}

func (m *mockUserService) UpdatePreferences(
	ctx context.Context,
	userID uuid.UUID,
	upd service.PreferencesUpdate,
) (*domain.Preferences, error) {
	if m.UpdatePreferencesFn == nil {
		return nil, errNotConfigured
	}
	return m.UpdatePreferencesFn(ctx, userID, upd)
}

func (m *mockUserService) ChangePassword(ctx context.Context, userID uuid.UUID, current, next string) error {
	if m.ChangePasswordFn == nil {
		return errNotConfigured
	}
	return m.ChangePasswordFn(ctx, userID, current, next)
}

func (m *mockUserService) ListUsers(
	ctx context.Context,
	filter store.UserFilter,
	page store.Page,
) ([]*domain.User, int, error) {
	if m.ListUsersFn == nil {
		return nil, 0, errNotConfigured
	}
	return m.ListUsersFn(ctx, filter, page)
}

func (m *mockUserService) ListActive(ctx context.Context) ([]*domain.User, error) {
	if m.ListActiveFn == nil {
		return nil, errNotConfigured
	}
	return m.ListActiveFn(ctx)
}

func (m *mockUserService) SearchUsers(ctx context.Context, query string, limit int) ([]*domain.User, error) {
	if m.SearchUsersFn == nil {
		return nil, errNotConfigured
	}
	return m.SearchUsersFn(ctx, query, limit)
}

func (m *mockUserService) DeactivateUser(ctx context.Context, actor access.Principal, targetID uuid.UUID) (int, error) {
	if m.DeactivateUserFn == nil {
		return 0, errNotConfigured
	}
	return m.DeactivateUserFn(ctx, actor, targetID)
}

// mockTaskService implements service.TaskService with function fields.
type mockTaskService struct {
	CreateFn        func(ctx context.Context, actor access.Principal, in service.CreateTaskInput) (*domain.Task, error)
	GetFn           func(ctx context.Context, actor access.Principal, taskID uuid.UUID) (*domain.Task, error)
	ListFn          func(ctx context.Context, actor access.Principal, q service.TaskQuery, page store.Page) ([]*domain.Task, int, error)
	UpdateFn        func(ctx context.Context, actor access.Principal, taskID uuid.UUID, upd service.TaskUpdate) (*domain.Task, error)
	DeleteFn        func(ctx context.Context, actor access.Principal, taskID uuid.UUID) error
	AddCommentFn    func(ctx context.Context, actor access.Principal, taskID uuid.UUID, text string) (*domain.Comment, error)
	AddSubtaskFn    func(ctx context.Context, actor access.Principal, taskID uuid.UUID, title string) (*domain.Subtask, error)
	UpdateSubtaskFn func(ctx context.Context, actor access.Principal, taskID, subtaskID uuid.UUID, upd service.SubtaskUpdate) (*domain.Subtask, error)
}

var _ service.TaskService = (*mockTaskService)(nil)

func (m *mockTaskService) Create(ctx context.Context, actor access.Principal, in service.CreateTaskInput) (*domain.Task, error) {
	if m.CreateFn == nil {
		return nil, errNotConfigured
	}
	return m.CreateFn(ctx, actor, in)
}

func (m *mockTaskService) Get(ctx context.Context, actor access.Principal, taskID uuid.UUID) (*domain.Task, error) {
	if m.GetFn == nil {
		return nil, errNotConfigured
	}
	return m.GetFn(ctx, actor, taskID)
}

func (m *mockTaskService) List(
	ctx context.Context,
	actor access.Principal,
	q service.TaskQuery,
	page store.Page,
) ([]*domain.Task, int, error) {
	if m.ListFn == nil {
		return nil, 0, errNotConfigured
	}
	return m.ListFn(ctx, actor, q, page)
}

func (m *mockTaskService) Update(
	ctx context.Context,
	actor access.Principal,
	taskID uuid.UUID,
	upd service.TaskUpdate,
) (*domain.Task, error) {
	if m.UpdateFn == nil {
		return nil, errNotConfigured
	}
	return m.UpdateFn(ctx, actor, taskID, upd)
}

func (m *mockTaskService) Delete(ctx context.Context, actor access.Principal, taskID uuid.UUID) error {
	if m.DeleteFn == nil {
		return errNotConfigured
	}
	return m.DeleteFn(ctx, actor, taskID)
}

func (m *mockTaskService) AddComment(
	ctx context.Context,
	actor access.Principal,
	taskID uuid.UUID,
	text string,
) (*domain.Comment, error) {
	if m.AddCommentFn == nil {
		return nil, errNotConfigured
	}
	return m.AddCommentFn(ctx, actor, taskID, text)
}

func (m *mockTaskService) AddSubtask(
	ctx context.Context,
	actor access.Principal,
	taskID uuid.UUID,
	title string,
) (*domain.Subtask, error) {
	if m.AddSubtaskFn == nil {
		return nil, errNotConfigured
	}
	return m.AddSubtaskFn(ctx, actor, taskID, title)
}

func (m *mockTaskService) UpdateSubtask(
	ctx context.Context,
	actor access.Principal,
	taskID, subtaskID uuid.UUID,
	upd service.SubtaskUpdate,
) (*domain.Subtask, error) {
	if m.UpdateSubtaskFn == nil {
		return nil, errNotConfigured
	}
	return m.UpdateSubtaskFn(ctx, actor, taskID, subtaskID, upd)
}

// mockStatsService implements service.StatsService with function fields.
type mockStatsService struct {
	TaskStatsFn     func(ctx context.Context, actor access.Principal, timeframeDays int) (*service.TaskStats, error)
	UserStatsFn     func(ctx context.Context, actor access.Principal, targetID uuid.UUID) (*domain.User, *service.UserStats, error)
	PersonalStatsFn func(ctx context.Context, userID uuid.UUID) (*service.PersonalStats, error)
}

var _ service.StatsService = (*mockStatsService)(nil)

func (m *mockStatsService) TaskStats(ctx context.Context, actor access.Principal, timeframeDays int) (*service.TaskStats, error) {
	if m.TaskStatsFn == nil {
		return nil, errNotConfigured
	}
	return m.TaskStatsFn(ctx, actor, timeframeDays)
}

func (m *mockStatsService) UserStats(
	ctx context.Context,
	actor access.Principal,
	targetID uuid.UUID,
) (*domain.User, *service.UserStats, error) {
	if m.UserStatsFn == nil {
		return nil, nil, errNotConfigured
	}
	return m.UserStatsFn(ctx, actor, targetID)
}

func (m *mockStatsService) PersonalStats(ctx context.Context, userID uuid.UUID) (*service.PersonalStats, error) {
	if m.PersonalStatsFn == nil {
		return nil, errNotConfigured
	}
	return m.PersonalStatsFn(ctx, userID)
}
