package domain

import (
	"net/mail"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Role is a user's authorization level.
type Role string

const (
	RoleUser    Role = "user"
	RoleManager Role = "manager"
	RoleAdmin   Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleManager, RoleAdmin:
		return true
	}
	return false
}

// IsPrivileged reports whether r sees and manages every task.
func (r Role) IsPrivileged() bool {
	return r == RoleAdmin || r == RoleManager
}

// Theme is the UI theme preference.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
	ThemeAuto  Theme = "auto"
)

// Valid reports whether t is a known theme.
func (t Theme) Valid() bool {
	return t == ThemeLight || t == ThemeDark || t == ThemeAuto
}

// NotificationPreferences toggles the channels a user is notified on.
type NotificationPreferences struct {
	Email           bool `json:"email"`
	Push            bool `json:"push"`
	TaskUpdates     bool `json:"taskUpdates"`
	TaskAssignments bool `json:"taskAssignments"`
}

// Preferences holds per-user settings.
type Preferences struct {
	Notifications NotificationPreferences `json:"notifications"`
	Theme         Theme                   `json:"theme"`
}

// DefaultPreferences returns the settings a newly registered user starts with.
func DefaultPreferences() Preferences {
	return Preferences{
		Notifications: NotificationPreferences{
			Email:           true,
			Push:            true,
			TaskUpdates:     true,
			TaskAssignments: true,
		},
		Theme: ThemeLight,
	}
}

// Field limits for users.
const (
	MaxUserNameLength = 50
	MinPasswordLength = 6
)

// User represents a registered account.
type User struct {
	ID             uuid.UUID   `json:"id"`
	Name           string      `json:"name"`
	Email          string      `json:"email"`
	HashedPassword string      `json:"-"`
	Role           Role        `json:"role"`
	Avatar         string      `json:"avatar,omitempty"`
	Department     string      `json:"department,omitempty"`
	Phone          string      `json:"phone,omitempty"`
	IsActive       bool        `json:"isActive"`
	LastLogin      *time.Time  `json:"lastLogin,omitempty"`
	Teams          []uuid.UUID `json:"teams"`
	Preferences    Preferences `json:"preferences"`
	CreatedAt      time.Time   `json:"createdAt"`
	UpdatedAt      time.Time   `json:"updatedAt"`
}

// NewUser creates an active user with default preferences.
// hashedPassword must already be hashed; an empty role becomes RoleUser.
func NewUser(name, email, hashedPassword string, role Role, now time.Time) (*User, error) {
	if role == "" {
		role = RoleUser
	}
	user := &User{
		ID:             uuid.New(),
		Name:           strings.TrimSpace(name),
		Email:          NormalizeEmail(email),
		HashedPassword: hashedPassword,
		Role:           role,
		IsActive:       true,
		Teams:          []uuid.UUID{},
		Preferences:    DefaultPreferences(),
		CreatedAt:      now.UTC(),
		UpdatedAt:      now.UTC(),
	}

	if err := user.Validate(); err != nil {
		return nil, err
	}
	return user, nil
}

// Validate checks if the User has valid data.
func (u *User) Validate() error {
	if u.ID == uuid.Nil {
		return NewValidationError("id", "cannot be empty", ErrInvalidID)
	}
	name := strings.TrimSpace(u.Name)
	if name == "" {
		return NewValidationError("name", "is required", nil)
	}
	if utf8.RuneCountInString(name) > MaxUserNameLength {
		return NewValidationError("name", "cannot exceed 50 characters", nil)
	}
	if !ValidEmail(u.Email) {
		return NewValidationError("email", "must be a valid email address", ErrInvalidEmail)
	}
	if u.HashedPassword == "" {
		return NewValidationError("password", "is required", nil)
	}
	if !u.Role.Valid() {
		return NewValidationError("role", "must be one of user, manager, admin", ErrInvalidEnum)
	}
	if !u.Preferences.Theme.Valid() {
		return NewValidationError("theme", "must be one of light, dark, auto", ErrInvalidEnum)
	}
	return nil
}

// RecordLogin stamps the last successful login.
func (u *User) RecordLogin(now time.Time) {
	t := now.UTC()
	u.LastLogin = &t
	u.UpdatedAt = t
}

// NormalizeEmail trims and lowercases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidEmail reports whether email is a bare address such as a@b.co.
func ValidEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return false
	}
	at := strings.LastIndex(email, "@")
	return at > 0 && strings.Contains(email[at+1:], ".")
}

// ValidatePasswordStrength requires at least six characters with an upper-case
// letter, a lower-case letter and a digit.
func ValidatePasswordStrength(password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return NewValidationError("password", "must be at least 6 characters long", ErrWeakPassword)
	}
	var upper, lower, digit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !upper || !lower || !digit {
		return NewValidationError("password",
			"must contain at least one uppercase letter, one lowercase letter, and one number",
			ErrWeakPassword)
	}
	return nil
}
