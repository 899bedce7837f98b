package realtime

import (
	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/domain"
)

// State is the lifecycle stage of a connection.
type State int32

const (
	StateConnecting State = iota
	StateAuthenticating
	StateAdmitted
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAuthenticating:
		return "authenticating"
	case StateAdmitted:
		return "admitted"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// Session is the identity bound to a connection after token verification.
// It does not change for the lifetime of the connection.
type Session struct {
	UserID uuid.UUID
	Name   string
	Email  string
	Role   domain.Role
	Teams  []uuid.UUID
}

// NewSession snapshots the fields of u a connection needs.
func NewSession(u *domain.User) *Session {
	teams := make([]uuid.UUID, len(u.Teams))
	copy(teams, u.Teams)
	return &Session{
		UserID: u.ID,
		Name:   u.Name,
		Email:  u.Email,
		Role:   u.Role,
		Teams:  teams,
	}
}

// userRef is the public view of a session included in presence and comment
// frames.
type userRef struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
}

func (s *Session) ref() userRef {
	return userRef{ID: s.UserID, Name: s.Name, Email: s.Email}
}
