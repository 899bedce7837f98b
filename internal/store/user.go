package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/domain"
)

// UserFilter narrows user listings. Zero values match everything.
type UserFilter struct {
	// Search matches name, email or department case-insensitively.
	Search string
	Role   domain.Role
	Active *bool
}

// UserStore defines the interface for user data persistence.
type UserStore interface {
	// Create saves a new user. Returns ErrEmailExists if the email is taken.
	Create(ctx context.Context, user *domain.User) error

	// GetByID returns ErrUserNotFound if the user does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)

	// GetByEmail looks up a normalized email. Returns ErrUserNotFound if absent.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// Update replaces every mutable field of an existing user.
	// Returns ErrUserNotFound or ErrEmailExists.
	Update(ctx context.Context, user *domain.User) error

	// List returns one page of matching users and the total match count.
	List(ctx context.Context, filter UserFilter, page Page) ([]*domain.User, int, error)
}
