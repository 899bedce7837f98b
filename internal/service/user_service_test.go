package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/access"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestUserService_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("creates user with default role", func(t *testing.T) {
		svc, repo := newUserServiceForTest()
		repo.UserStore.On("Create", mock.Anything, mock.AnythingOfType("*domain.User")).Return(nil)

		user, err := svc.Register(ctx, RegisterInput{
			Name:       "  Grace Hopper ",
			Email:      "Grace@Example.com",
			Password:   "Secret123",
			Department: "Engineering",
		})
		require.NoError(t, err)

		assert.Equal(t, "Grace Hopper", user.Name)
		assert.Equal(t, "grace@example.com", user.Email)
		assert.Equal(t, domain.RoleUser, user.Role)
		assert.Equal(t, "hashed:Secret123", user.HashedPassword)
		assert.Equal(t, "Engineering", user.Department)
		require.NotNil(t, user.LastLogin)
		assert.Equal(t, fixedNow, *user.LastLogin)
		repo.UserStore.AssertExpectations(t)
	})

	t.Run("rejects weak password", func(t *testing.T) {
		svc, repo := newUserServiceForTest()

		_, err := svc.Register(ctx, RegisterInput{Name: "Grace", Email: "g@example.com", Password: "secret"})
		assert.ErrorIs(t, err, domain.ErrWeakPassword)
		assert.ErrorIs(t, err, domain.ErrValidation)
		repo.UserStore.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("duplicate email", func(t *testing.T) {
		svc, repo := newUserServiceForTest()
		repo.UserStore.On("Create", mock.Anything, mock.Anything).Return(store.ErrEmailExists)

		_, err := svc.Register(ctx, RegisterInput{Name: "Grace", Email: "g@example.com", Password: "Secret123"})
		assert.ErrorIs(t, err, store.ErrEmailExists)
		assert.ErrorIs(t, err, store.ErrDuplicate)
	})
}

func TestUserService_Authenticate(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown email", func(t *testing.T) {
		svc, repo := newUserServiceForTest()
		repo.UserStore.On("GetByEmail", mock.Anything, "nobody@example.com").Return(nil, store.ErrUserNotFound)

		_, err := svc.Authenticate(ctx, "nobody@example.com", "Secret123")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("deactivated account", func(t *testing.T) {
		svc, repo := newUserServiceForTest()
		user := newTestUser(domain.RoleUser)
		user.IsActive = false
		repo.UserStore.On("GetByEmail", mock.Anything, user.Email).Return(user, nil)

		_, err := svc.Authenticate(ctx, user.Email, "Secret123")
		assert.ErrorIs(t, err, ErrAccountDeactivated)
	})

	t.Run("wrong password", func(t *testing.T) {
		svc, repo := newUserServiceForTest()
		user := newTestUser(domain.RoleUser)
		repo.UserStore.On("GetByEmail", mock.Anything, user.Email).Return(user, nil)

		_, err := svc.Authenticate(ctx, user.Email, "Wrong123")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
		repo.UserStore.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("success stamps last login", func(t *testing.T) {
		svc, repo := newUserServiceForTest()
		user := newTestUser(domain.RoleUser)
		repo.UserStore.On("GetByEmail", mock.Anything, user.Email).Return(user, nil)
		repo.UserStore.On("Update", mock.Anything, user).Return(nil)

		got, err := svc.Authenticate(ctx, user.Email, "Secret123")
		require.NoError(t, err)
		require.NotNil(t, got.LastLogin)
		assert.Equal(t, fixedNow, *got.LastLogin)
		repo.UserStore.AssertExpectations(t)
	})

	t.Run("store failure is not a credential error", func(t *testing.T) {
		svc, repo := newUserServiceForTest()
		repo.UserStore.On("GetByEmail", mock.Anything, "a@example.com").Return(nil, errors.New("connection reset"))

		_, err := svc.Authenticate(ctx, "a@example.com", "Secret123")
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestUserService_ResolveActive(t *testing.T) {
	ctx := context.Background()
	svc, repo := newUserServiceForTest()

	active := newTestUser(domain.RoleUser)
	inactive := newTestUser(domain.RoleUser)
	inactive.IsActive = false
	missing := uuid.New()

	repo.UserStore.On("GetByID", mock.Anything, active.ID).Return(active, nil)
	repo.UserStore.On("GetByID", mock.Anything, inactive.ID).Return(inactive, nil)
	repo.UserStore.On("GetByID", mock.Anything, missing).Return(nil, store.ErrUserNotFound)

	got, err := svc.ResolveActive(ctx, active.ID)
	require.NoError(t, err)
	assert.Equal(t, active, got)

	_, err = svc.ResolveActive(ctx, inactive.ID)
	assert.ErrorIs(t, err, ErrAccountDeactivated)

	_, err = svc.ResolveActive(ctx, missing)
	assert.ErrorIs(t, err, store.ErrUserNotFound)
}

func TestUserService_UpdateUser(t *testing.T) {
	ctx := context.Background()

	t.Run("self updates profile", func(t *testing.T) {
		svc, repo := newUserServiceForTest()
		user := newTestUser(domain.RoleUser)
		repo.UserStore.On("GetByID", mock.Anything, user.ID).Return(user, nil)
		repo.UserStore.On("Update", mock.Anything, user).Return(nil)

		name := "Ada King"
		email := " ADA@Example.com "
		got, err := svc.UpdateUser(ctx, access.PrincipalFor(user), user.ID, UserUpdate{Name: &name, Email: &email})
		require.NoError(t, err)
		assert.Equal(t, "Ada King", got.Name)
		assert.Equal(t, "ada@example.com", got.Email)
	})

	t.Run("user cannot change own role", func(t *testing.T) {
		svc, repo := newUserServiceForTest()
		user := newTestUser(domain.RoleUser)
		role := domain.RoleAdmin

		_, err := svc.UpdateUser(ctx, access.PrincipalFor(user), user.ID, UserUpdate{Role: &role})
		assert.ErrorIs(t, err, access.ErrForbidden)
		repo.UserStore.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("user cannot edit another user", func(t *testing.T) {
		svc, _ := newUserServiceForTest()
		user := newTestUser(domain.RoleUser)
		name := "Mallory"

		_, err := svc.UpdateUser(ctx, access.PrincipalFor(user), uuid.New(), UserUpdate{Name: &name})
		assert.ErrorIs(t, err, access.ErrForbidden)
	})

	t.Run("admin changes role and status", func(t *testing.T) {
		svc, repo := newUserServiceForTest()
		admin := newTestUser(domain.RoleAdmin)
		target := newTestUser(domain.RoleUser)
		repo.UserStore.On("GetByID", mock.Anything, target.ID).Return(target, nil)
		repo.UserStore.On("Update", mock.Anything, target).Return(nil)

		role := domain.RoleManager
		active := false
		got, err := svc.UpdateUser(ctx, access.PrincipalFor(admin), target.ID, UserUpdate{Role: &role, IsActive: &active})
		require.NoError(t, err)
		assert.Equal(t, domain.RoleManager, got.Role)
		assert.False(t, got.IsActive)
	})

	t.Run("invalid role is a validation error", func(t *testing.T) {
		svc, repo := newUserServiceForTest()
		admin := newTestUser(domain.RoleAdmin)
		target := newTestUser(domain.RoleUser)
		repo.UserStore.On("GetByID", mock.Anything, target.ID).Return(target, nil)

		role := domain.Role("owner")
		_, err := svc.UpdateUser(ctx, access.PrincipalFor(admin), target.ID, UserUpdate{Role: &role})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("email taken", func(t *testing.T) {
		svc, repo := newUserServiceForTest()
		user := newTestUser(domain.RoleUser)
		repo.UserStore.On("GetByID", mock.Anything, user.ID).Return(user, nil)
		repo.UserStore.On("Update", mock.Anything, user).Return(store.ErrEmailExists)

		email := "taken@example.com"
		_, err := svc.UpdateUser(ctx, access.PrincipalFor(user), user.ID, UserUpdate{Email: &email})
		assert.ErrorIs(t, err, store.ErrEmailExists)
	})
}

func TestUserService_UpdatePreferences(t *testing.T) {
	svc, repo := newUserServiceForTest()
	user := newTestUser(domain.RoleUser)
	repo.UserStore.On("GetByID", mock.Anything, user.ID).Return(user, nil)
	repo.UserStore.On("Update", mock.Anything, user).Return(nil)

	off := false
	theme := domain.ThemeDark
	prefs, err := svc.UpdatePreferences(context.Background(), user.ID, PreferencesUpdate{PushNotifications: &off, Theme: &theme})
	require.NoError(t, err)

	assert.Equal(t, domain.ThemeDark, prefs.Theme)
	assert.False(t, prefs.Notifications.Push)
	assert.True(t, prefs.Notifications.Email)
	assert.True(t, prefs.Notifications.TaskAssignments)
}

func TestUserService_ChangePassword(t *testing.T) {
	ctx := context.Background()

	t.Run("wrong current password", func(t *testing.T) {
		svc, repo := newUserServiceForTest()
		user := newTestUser(domain.RoleUser)
		repo.UserStore.On("GetByID", mock.Anything, user.ID).Return(user, nil)

		err := svc.ChangePassword(ctx, user.ID, "Nope1234", "Newpass1")
		assert.ErrorIs(t, err, ErrWrongPassword)
	})

	t.Run("weak new password", func(t *testing.T) {
		svc, repo := newUserServiceForTest()
		user := newTestUser(domain.RoleUser)
		repo.UserStore.On("GetByID", mock.Anything, user.ID).Return(user, nil)

		err := svc.ChangePassword(ctx, user.ID, "Secret123", "short")
		assert.ErrorIs(t, err, domain.ErrWeakPassword)
	})

	t.Run("success", func(t *testing.T) {
		svc, repo := newUserServiceForTest()
		user := newTestUser(domain.RoleUser)
		repo.UserStore.On("GetByID", mock.Anything, user.ID).Return(user, nil)
		repo.UserStore.On("Update", mock.Anything, user).Return(nil)

		require.NoError(t, svc.ChangePassword(ctx, user.ID, "Secret123", "Newpass1"))
		assert.Equal(t, "hashed:Newpass1", user.HashedPassword)
	})
}

func TestUserService_Listing(t *testing.T) {
	ctx := context.Background()

	t.Run("search requires a query", func(t *testing.T) {
		svc, repo := newUserServiceForTest()
		_, err := svc.SearchUsers(ctx, "  ", 10)
		assert.ErrorIs(t, err, domain.ErrValidation)
		repo.UserStore.AssertNotCalled(t, "List", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("search covers active users by name", func(t *testing.T) {
		svc, repo := newUserServiceForTest()
		users := []*domain.User{newTestUser(domain.RoleUser)}
		repo.UserStore.On("List", mock.Anything,
			mock.MatchedBy(func(f store.UserFilter) bool {
				return f.Search == "ada" && f.Active != nil && *f.Active
			}),
			store.Page{Number: 1, Limit: store.DefaultLimit, Sort: store.SortName},
		).Return(users, 1, nil)

		got, err := svc.SearchUsers(ctx, "ada", 0)
		require.NoError(t, err)
		assert.Equal(t, users, got)
	})

	t.Run("active users are unpaged", func(t *testing.T) {
		svc, repo := newUserServiceForTest()
		repo.UserStore.On("List", mock.Anything, mock.Anything, store.Page{Sort: store.SortName}).
			Return([]*domain.User{}, 0, nil)

		got, err := svc.ListActive(ctx)
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestUserService_DeactivateUser(t *testing.T) {
	ctx := context.Background()

	t.Run("admin deactivates and unassigns", func(t *testing.T) {
		svc, repo := newUserServiceForTest()
		admin := newTestUser(domain.RoleAdmin)
		target := newTestUser(domain.RoleUser)
		repo.UserStore.On("GetByID", mock.Anything, target.ID).Return(target, nil)
		repo.UserStore.On("Update", mock.Anything, mock.MatchedBy(func(u *domain.User) bool {
			return u.ID == target.ID && !u.IsActive
		})).Return(nil)
		repo.TaskStore.On("UnassignOpen", mock.Anything, target.ID).Return(3, nil)

		n, err := svc.DeactivateUser(ctx, access.PrincipalFor(admin), target.ID)
		require.NoError(t, err)
		assert.Equal(t, 3, n)
		assert.Equal(t, 1, repo.TxCalls)
		repo.UserStore.AssertExpectations(t)
		repo.TaskStore.AssertExpectations(t)
	})

	t.Run("self deletion is rejected", func(t *testing.T) {
		svc, repo := newUserServiceForTest()
		admin := newTestUser(domain.RoleAdmin)

		_, err := svc.DeactivateUser(ctx, access.PrincipalFor(admin), admin.ID)
		assert.ErrorIs(t, err, domain.ErrValidation)
		assert.Zero(t, repo.TxCalls)
	})

	t.Run("non-admin deleting self is forbidden", func(t *testing.T) {
		svc, repo := newUserServiceForTest()
		for _, role := range []domain.Role{domain.RoleUser, domain.RoleManager} {
			u := newTestUser(role)
			_, err := svc.DeactivateUser(ctx, access.PrincipalFor(u), u.ID)
			assert.ErrorIs(t, err, access.ErrForbidden, role)
			assert.NotErrorIs(t, err, domain.ErrValidation, role)
		}
		assert.Zero(t, repo.TxCalls)
	})

	t.Run("manager is forbidden", func(t *testing.T) {
		svc, _ := newUserServiceForTest()
		manager := newTestUser(domain.RoleManager)

		_, err := svc.DeactivateUser(ctx, access.PrincipalFor(manager), uuid.New())
		assert.ErrorIs(t, err, access.ErrForbidden)
	})

	t.Run("unknown user", func(t *testing.T) {
		svc, repo := newUserServiceForTest()
		admin := newTestUser(domain.RoleAdmin)
		missing := uuid.New()
		repo.UserStore.On("GetByID", mock.Anything, missing).Return(nil, store.ErrUserNotFound)

		_, err := svc.DeactivateUser(ctx, access.PrincipalFor(admin), missing)
		assert.ErrorIs(t, err, store.ErrUserNotFound)
		repo.TaskStore.AssertNotCalled(t, "UnassignOpen", mock.Anything, mock.Anything)
	})
}
