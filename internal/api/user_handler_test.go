package api

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/access"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/service"
	"github.com/phrazzld/taskflow-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type onlineFunc func(ctx context.Context) ([]uuid.UUID, error)

func (f onlineFunc) OnlineUsers(ctx context.Context) ([]uuid.UUID, error) { return f(ctx) }

func newTestUserHandler(users *mockUserService, stats *mockStatsService, online onlineFunc) *UserHandler {
	if stats == nil {
		stats = &mockStatsService{}
	}
	if online == nil {
		online = func(context.Context) ([]uuid.UUID, error) { return nil, nil }
	}
	return NewUserHandler(users, stats, online, discardLogger())
}

func TestUserHandlerList(t *testing.T) {
	t.Parallel()

	admin := testUser(domain.RoleAdmin)
	var gotFilter store.UserFilter
	var gotPage store.Page
	h := newTestUserHandler(&mockUserService{
		ListUsersFn: func(_ context.Context, f store.UserFilter, p store.Page) ([]*domain.User, int, error) {
			gotFilter, gotPage = f, p
			return []*domain.User{testUser(domain.RoleManager)}, 1, nil
		},
	}, nil, nil)

	rec, env := serve(h.List, newRequest(http.MethodGet, "/api/users?role=manager&isActive=false&search=ann", "", admin, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, domain.RoleManager, gotFilter.Role)
	require.NotNil(t, gotFilter.Active)
	assert.False(t, *gotFilter.Active)
	assert.Equal(t, "ann", gotFilter.Search)
	assert.Equal(t, store.SortName, gotPage.Sort)
	assert.False(t, gotPage.Desc)

	var users []domain.User
	dataField(t, env, "users", &users)
	assert.Len(t, users, 1)
	var pagination Pagination
	dataField(t, env, "pagination", &pagination)
	require.NotNil(t, pagination.TotalUsers)
	assert.Equal(t, 1, *pagination.TotalUsers)
	assert.Nil(t, pagination.TotalTasks)

	rec, env = serve(h.List, newRequest(http.MethodGet, "/api/users?role=owner&isActive=maybe", "", admin, nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.ElementsMatch(t, []string{"role", "isActive"}, errorFields(env))
}

func TestUserHandlerActiveAndSearch(t *testing.T) {
	t.Parallel()

	user := testUser(domain.RoleUser)
	var gotQuery string
	var gotLimit int
	h := newTestUserHandler(&mockUserService{
		ListActiveFn: func(context.Context) ([]*domain.User, error) { return nil, nil },
		SearchUsersFn: func(_ context.Context, q string, limit int) ([]*domain.User, error) {
			gotQuery, gotLimit = q, limit
			return []*domain.User{user}, nil
		},
	}, nil, nil)

	rec, _ := serve(h.Active, newRequest(http.MethodGet, "/api/users/active", "", user, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"data":{"users":[]}}`, rec.Body.String())

	rec, env := serve(h.Search, newRequest(http.MethodGet, "/api/users/search?q=ada&limit=5", "", user, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ada", gotQuery)
	assert.Equal(t, 5, gotLimit)
	var users []domain.User
	dataField(t, env, "users", &users)
	require.Len(t, users, 1)
	assert.Equal(t, user.ID, users[0].ID)
}

func TestUserHandlerOnline(t *testing.T) {
	t.Parallel()

	ids := []uuid.UUID{uuid.New(), uuid.New()}
	h := newTestUserHandler(&mockUserService{}, nil, func(context.Context) ([]uuid.UUID, error) {
		return ids, nil
	})

	rec, env := serve(h.Online, newRequest(http.MethodGet, "/api/users/online", "", testUser(domain.RoleUser), nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var got []uuid.UUID
	dataField(t, env, "userIds", &got)
	assert.Equal(t, ids, got)
	var count int
	dataField(t, env, "count", &count)
	assert.Equal(t, 2, count)

	h = newTestUserHandler(&mockUserService{}, nil, func(context.Context) ([]uuid.UUID, error) {
		return nil, errors.New("redis: connection refused")
	})
	rec, env = serve(h.Online, newRequest(http.MethodGet, "/api/users/online", "", testUser(domain.RoleUser), nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Failed to list online users", env.Message)
}

func TestUserHandlerGet(t *testing.T) {
	t.Parallel()

	user := testUser(domain.RoleUser)
	h := newTestUserHandler(&mockUserService{
		GetUserFn: func(_ context.Context, id uuid.UUID) (*domain.User, error) {
			if id != user.ID {
				return nil, store.ErrUserNotFound
			}
			return user, nil
		},
	}, nil, nil)

	rec, _ := serve(h.Get, newRequest(http.MethodGet, "/", "", user, map[string]string{"id": user.ID.String()}))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, env := serve(h.Get, newRequest(http.MethodGet, "/", "", user, map[string]string{"id": uuid.NewString()}))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "User not found", env.Message)
}

func TestUserHandlerUpdate(t *testing.T) {
	t.Parallel()

	admin := testUser(domain.RoleAdmin)
	target := testUser(domain.RoleUser)
	var got service.UserUpdate
	h := newTestUserHandler(&mockUserService{
		UpdateUserFn: func(_ context.Context, actor access.Principal, id uuid.UUID, upd service.UserUpdate) (*domain.User, error) {
			assert.Equal(t, domain.RoleAdmin, actor.Role)
			assert.Equal(t, target.ID, id)
			got = upd
			return target, nil
		},
	}, nil, nil)

	rec, env := serve(h.Update, newRequest(http.MethodPut, "/", `{"role":"manager","isActive":false}`, admin,
		map[string]string{"id": target.ID.String()}))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "User updated successfully", env.Message)
	require.NotNil(t, got.Role)
	assert.Equal(t, domain.RoleManager, *got.Role)
	require.NotNil(t, got.IsActive)
	assert.False(t, *got.IsActive)

	rec, env = serve(h.Update, newRequest(http.MethodPut, "/", `{"role":"owner"}`, admin,
		map[string]string{"id": target.ID.String()}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.Len(t, env.Errors, 1)
	assert.Equal(t, "role must be one of: user, manager, admin", env.Errors[0].Message)
}

func TestUserHandlerDelete(t *testing.T) {
	t.Parallel()

	admin := testUser(domain.RoleAdmin)
	target := uuid.New()

	tests := []struct {
		name       string
		target     uuid.UUID
		err        error
		wantStatus int
	}{
		{"deactivates", target, nil, http.StatusOK},
		{"self", admin.ID, domain.NewValidationError("id", "cannot deactivate your own account", nil), http.StatusBadRequest},
		{"forbidden", target, access.ErrForbidden, http.StatusForbidden},
		{"missing", target, store.ErrUserNotFound, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			h := newTestUserHandler(&mockUserService{
				DeactivateUserFn: func(_ context.Context, _ access.Principal, id uuid.UUID) (int, error) {
					assert.Equal(t, tt.target, id)
					if tt.err != nil {
						return 0, tt.err
					}
					return 3, nil
				},
			}, nil, nil)

			rec, env := serve(h.Delete, newRequest(http.MethodDelete, "/", "", admin,
				map[string]string{"id": tt.target.String()}))
			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.err == nil {
				var n int
				dataField(t, env, "tasksUnassigned", &n)
				assert.Equal(t, 3, n)
			}
		})
	}
}

func TestUserHandlerStats(t *testing.T) {
	t.Parallel()

	manager := testUser(domain.RoleManager)
	target := testUser(domain.RoleUser)
	h := newTestUserHandler(&mockUserService{}, &mockStatsService{
		UserStatsFn: func(_ context.Context, actor access.Principal, id uuid.UUID) (*domain.User, *service.UserStats, error) {
			if actor.Role == domain.RoleUser && actor.UserID != id {
				return nil, nil, access.ErrForbidden
			}
			return target, &service.UserStats{TasksAssigned: 4, TasksCompleted: 3, CompletionRate: 75}, nil
		},
	}, nil)

	rec, env := serve(h.Stats, newRequest(http.MethodGet, "/", "", manager, map[string]string{"id": target.ID.String()}))
	require.Equal(t, http.StatusOK, rec.Code)
	var stats service.UserStats
	dataField(t, env, "stats", &stats)
	assert.Equal(t, 75, stats.CompletionRate)
	var user domain.User
	dataField(t, env, "user", &user)
	assert.Equal(t, target.ID, user.ID)

	outsider := testUser(domain.RoleUser)
	rec, _ = serve(h.Stats, newRequest(http.MethodGet, "/", "", outsider, map[string]string{"id": target.ID.String()}))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
