package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/access"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/platform/logger"
	"github.com/phrazzld/taskflow-api/internal/service/auth"
	"github.com/phrazzld/taskflow-api/internal/store"
)

// RegisterInput carries the fields accepted at registration. Any role sent
// by the client is ignored; new accounts always start as domain.RoleUser.
type RegisterInput struct {
	Name       string
	Email      string
	Password   string
	Department string
	Phone      string
}

// UserUpdate is a partial update of a user. Nil fields are left unchanged.
type UserUpdate struct {
	Name       *string
	Email      *string
	Avatar     *string
	Department *string
	Phone      *string
	Role       *domain.Role
	IsActive   *bool
}

// PreferencesUpdate is a partial update of a user's preferences.
type PreferencesUpdate struct {
	EmailNotifications *bool
	PushNotifications  *bool
	TaskUpdates        *bool
	TaskAssignments    *bool
	Theme              *domain.Theme
}

// UserService provides account and user-directory operations.
type UserService interface {
	// Register creates an account and stamps its first login.
	Register(ctx context.Context, in RegisterInput) (*domain.User, error)

	// Authenticate verifies credentials and stamps the login time.
	// Returns ErrInvalidCredentials or ErrAccountDeactivated.
	Authenticate(ctx context.Context, email, password string) (*domain.User, error)

	// GetUser retrieves a user by their ID
	GetUser(ctx context.Context, userID uuid.UUID) (*domain.User, error)

	// ResolveActive retrieves a user that may still act on the system.
	// Returns ErrAccountDeactivated for deactivated accounts.
	ResolveActive(ctx context.Context, userID uuid.UUID) (*domain.User, error)

	// UpdateUser applies a partial update to targetID on behalf of actor.
	UpdateUser(ctx context.Context, actor access.Principal, targetID uuid.UUID, upd UserUpdate) (*domain.User, error)

	UpdatePreferences(ctx context.Context, userID uuid.UUID, upd PreferencesUpdate) (*domain.Preferences, error)

	// ChangePassword replaces the password after checking the current one.
	// Returns ErrWrongPassword on mismatch.
	ChangePassword(ctx context.Context, userID uuid.UUID, current, next string) error

	ListUsers(ctx context.Context, filter store.UserFilter, page store.Page) ([]*domain.User, int, error)

	// ListActive returns every active user sorted by name.
	ListActive(ctx context.Context) ([]*domain.User, error)

	// SearchUsers matches active users by name, email or department.
	SearchUsers(ctx context.Context, query string, limit int) ([]*domain.User, error)

	// DeactivateUser soft-deletes targetID and unassigns its open tasks.
	// It returns the number of tasks unassigned.
	DeactivateUser(ctx context.Context, actor access.Principal, targetID uuid.UUID) (int, error)
}

// UserServiceImpl implements the UserService interface
type UserServiceImpl struct {
	repo   store.Repository
	hasher auth.PasswordHasher
	logger *slog.Logger
	now    func() time.Time
}

var _ UserService = (*UserServiceImpl)(nil)

// NewUserService creates a new UserService
func NewUserService(repo store.Repository, hasher auth.PasswordHasher, logger *slog.Logger) *UserServiceImpl {
	return &UserServiceImpl{
		repo:   repo,
		hasher: hasher,
		logger: logger.With("component", "user_service"),
		now:    time.Now,
	}
}

func (s *UserServiceImpl) log(ctx context.Context) *slog.Logger {
	return logger.FromContextOrDefault(ctx, s.logger)
}

// Register creates a new account with the default role.
func (s *UserServiceImpl) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	if err := domain.ValidatePasswordStrength(in.Password); err != nil {
		return nil, err
	}

	hashed, err := s.hasher.Hash(in.Password)
	if err != nil {
		s.log(ctx).Error("failed to hash password", "error", err)
		return nil, newServiceError("user", "register", err)
	}

	now := s.now()
	user, err := domain.NewUser(in.Name, in.Email, hashed, domain.RoleUser, now)
	if err != nil {
		return nil, err
	}
	user.Department = strings.TrimSpace(in.Department)
	user.Phone = strings.TrimSpace(in.Phone)
	user.RecordLogin(now)

	if err := s.repo.Users().Create(ctx, user); err != nil {
		if errors.Is(err, store.ErrEmailExists) {
			s.log(ctx).Debug("attempted to register with existing email", "email", user.Email)
			return nil, err
		}
		s.log(ctx).Error("failed to save user", "error", err, "email", user.Email)
		return nil, newServiceError("user", "register", err)
	}

	s.log(ctx).Info("user registered", "user_id", user.ID)
	return user, nil
}

// Authenticate checks email and password.
func (s *UserServiceImpl) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	user, err := s.repo.Users().GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.log(ctx).Debug("login for unknown email")
			return nil, ErrInvalidCredentials
		}
		return nil, newServiceError("user", "authenticate", err)
	}

	if !user.IsActive {
		s.log(ctx).Debug("login for deactivated account", "user_id", user.ID)
		return nil, ErrAccountDeactivated
	}

	if err := s.hasher.Compare(user.HashedPassword, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			s.log(ctx).Debug("login with wrong password", "user_id", user.ID)
			return nil, ErrInvalidCredentials
		}
		return nil, newServiceError("user", "authenticate", err)
	}

	user.RecordLogin(s.now())
	if err := s.repo.Users().Update(ctx, user); err != nil {
		s.log(ctx).Error("failed to record login", "error", err, "user_id", user.ID)
		return nil, newServiceError("user", "authenticate", err)
	}

	return user, nil
}

// GetUser retrieves a user by their ID
func (s *UserServiceImpl) GetUser(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	user, err := s.repo.Users().GetByID(ctx, userID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			s.log(ctx).Error("failed to retrieve user", "error", err, "user_id", userID)
		}
		return nil, fmt.Errorf("failed to retrieve user: %w", err)
	}
	return user, nil
}

// ResolveActive retrieves userID and rejects deactivated accounts.
func (s *UserServiceImpl) ResolveActive(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrAccountDeactivated
	}
	return user, nil
}

// UpdateUser follows the pattern of getting the complete user first, then
// updating only the requested fields.
func (s *UserServiceImpl) UpdateUser(
	ctx context.Context,
	actor access.Principal,
	targetID uuid.UUID,
	upd UserUpdate,
) (*domain.User, error) {
	if err := access.AuthorizeMutateUser(actor, targetID, access.FieldProfile); err != nil {
		return nil, err
	}
	if upd.Role != nil {
		if err := access.AuthorizeMutateUser(actor, targetID, access.FieldRole); err != nil {
			return nil, err
		}
	}
	if upd.IsActive != nil {
		if err := access.AuthorizeMutateUser(actor, targetID, access.FieldActive); err != nil {
			return nil, err
		}
	}

	user, err := s.GetUser(ctx, targetID)
	if err != nil {
		return nil, err
	}

	if upd.Name != nil {
		user.Name = strings.TrimSpace(*upd.Name)
	}
	if upd.Email != nil {
		user.Email = domain.NormalizeEmail(*upd.Email)
	}
	if upd.Avatar != nil {
		user.Avatar = strings.TrimSpace(*upd.Avatar)
	}
	if upd.Department != nil {
		user.Department = strings.TrimSpace(*upd.Department)
	}
	if upd.Phone != nil {
		user.Phone = strings.TrimSpace(*upd.Phone)
	}
	if upd.Role != nil {
		user.Role = *upd.Role
	}
	if upd.IsActive != nil {
		user.IsActive = *upd.IsActive
	}
	user.UpdatedAt = s.now().UTC()

	if err := user.Validate(); err != nil {
		return nil, err
	}

	if err := s.repo.Users().Update(ctx, user); err != nil {
		if errors.Is(err, store.ErrEmailExists) {
			s.log(ctx).Debug("attempted to update to an existing email", "user_id", targetID)
			return nil, err
		}
		s.log(ctx).Error("failed to update user", "error", err, "user_id", targetID)
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	s.log(ctx).Info("user updated", "user_id", targetID, "actor_id", actor.UserID)
	return user, nil
}

// UpdatePreferences applies a partial preferences update.
func (s *UserServiceImpl) UpdatePreferences(
	ctx context.Context,
	userID uuid.UUID,
	upd PreferencesUpdate,
) (*domain.Preferences, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	prefs := &user.Preferences
	setBool(&prefs.Notifications.Email, upd.EmailNotifications)
	setBool(&prefs.Notifications.Push, upd.PushNotifications)
	setBool(&prefs.Notifications.TaskUpdates, upd.TaskUpdates)
	setBool(&prefs.Notifications.TaskAssignments, upd.TaskAssignments)
	if upd.Theme != nil {
		prefs.Theme = *upd.Theme
	}
	user.UpdatedAt = s.now().UTC()

	if err := user.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.Users().Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update preferences: %w", err)
	}
	return prefs, nil
}

// ChangePassword verifies current and stores the hash of next.
func (s *UserServiceImpl) ChangePassword(ctx context.Context, userID uuid.UUID, current, next string) error {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return err
	}

	if err := s.hasher.Compare(user.HashedPassword, current); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return ErrWrongPassword
		}
		return newServiceError("user", "change_password", err)
	}
	if err := domain.ValidatePasswordStrength(next); err != nil {
		return err
	}

	hashed, err := s.hasher.Hash(next)
	if err != nil {
		return newServiceError("user", "change_password", err)
	}
	user.HashedPassword = hashed
	user.UpdatedAt = s.now().UTC()

	if err := s.repo.Users().Update(ctx, user); err != nil {
		s.log(ctx).Error("failed to update password", "error", err, "user_id", userID)
		return fmt.Errorf("failed to update password: %w", err)
	}

	s.log(ctx).Info("password changed", "user_id", userID)
	return nil
}

// ListUsers returns one page of users.
func (s *UserServiceImpl) ListUsers(
	ctx context.Context,
	filter store.UserFilter,
	page store.Page,
) ([]*domain.User, int, error) {
	users, total, err := s.repo.Users().List(ctx, filter, page)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	return users, total, nil
}

// ListActive returns all active users by name.
func (s *UserServiceImpl) ListActive(ctx context.Context) ([]*domain.User, error) {
	active := true
	users, _, err := s.repo.Users().List(ctx,
		store.UserFilter{Active: &active},
		store.Page{Sort: store.SortName})
	if err != nil {
		return nil, fmt.Errorf("failed to list active users: %w", err)
	}
	return users, nil
}

// SearchUsers matches active users. An empty query is a validation error.
func (s *UserServiceImpl) SearchUsers(ctx context.Context, query string, limit int) ([]*domain.User, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.NewValidationError("q", "Search query is required", nil)
	}
	if limit < 1 || limit > store.MaxLimit {
		limit = store.DefaultLimit
	}

	active := true
	users, _, err := s.repo.Users().List(ctx,
		store.UserFilter{Search: query, Active: &active},
		store.Page{Number: 1, Limit: limit, Sort: store.SortName})
	if err != nil {
		return nil, fmt.Errorf("failed to search users: %w", err)
	}
	return users, nil
}

// DeactivateUser soft-deletes a user in one unit of work.
func (s *UserServiceImpl) DeactivateUser(ctx context.Context, actor access.Principal, targetID uuid.UUID) (int, error) {
	// Only admins learn that self-deletion is the obstacle.
	if actor.Role == domain.RoleAdmin && actor.UserID == targetID {
		return 0, domain.NewValidationError("id", "Cannot delete your own account", nil)
	}
	if err := access.AuthorizeMutateUser(actor, targetID, access.FieldDeletion); err != nil {
		return 0, err
	}

	var unassigned int
	err := s.repo.RunInTx(ctx, func(ctx context.Context, users store.UserStore, tasks store.TaskStore) error {
		user, err := users.GetByID(ctx, targetID)
		if err != nil {
			return fmt.Errorf("failed to retrieve user for deactivation: %w", err)
		}

		user.IsActive = false
		user.UpdatedAt = s.now().UTC()
		if err := users.Update(ctx, user); err != nil {
			return fmt.Errorf("failed to deactivate user: %w", err)
		}

		unassigned, err = tasks.UnassignOpen(ctx, targetID)
		if err != nil {
			return fmt.Errorf("failed to unassign tasks: %w", err)
		}
		return nil
	})
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			s.log(ctx).Error("failed to deactivate user", "error", err, "user_id", targetID)
		}
		return 0, err
	}

	s.log(ctx).Info("user deactivated",
		"user_id", targetID,
		"actor_id", actor.UserID,
		"unassigned_tasks", unassigned)
	return unassigned, nil
}

func setBool(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}
