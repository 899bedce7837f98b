package access

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/domain"
)

// ErrForbidden indicates the principal may not perform the operation.
// API layer should map this to HTTP 403 Forbidden.
var ErrForbidden = errors.New("forbidden")

// Principal is the authenticated actor a check is evaluated for.
type Principal struct {
	UserID uuid.UUID
	Role   domain.Role
}

// PrincipalFor builds the principal of a resolved user.
func PrincipalFor(u *domain.User) Principal {
	return Principal{UserID: u.ID, Role: u.Role}
}

// TaskAction is a mutation applied to a task.
type TaskAction int

const (
	ActionUpdate TaskAction = iota
	ActionDelete
)

func (a TaskAction) String() string {
	switch a {
	case ActionUpdate:
		return "update"
	case ActionDelete:
		return "delete"
	}
	return "unknown"
}

// UserField groups the user attributes that share a permission rule.
type UserField int

const (
	// FieldProfile covers name, avatar, department, phone and preferences.
	FieldProfile UserField = iota
	// FieldRole covers the role attribute.
	FieldRole
	// FieldActive covers the isActive attribute.
	FieldActive
	// FieldDeletion covers soft deletion of the account.
	FieldDeletion
)

func (f UserField) String() string {
	switch f {
	case FieldProfile:
		return "profile"
	case FieldRole:
		return "role"
	case FieldActive:
		return "active status"
	case FieldDeletion:
		return "deletion"
	}
	return "unknown"
}

func (p Principal) isAdmin() bool {
	return p.Role == domain.RoleAdmin
}

// CanViewTask reports whether p may read task. Privileged roles see every
// task; others only tasks they created or are assigned to.
func CanViewTask(p Principal, task *domain.Task) bool {
	if task == nil {
		return false
	}
	if p.Role.IsPrivileged() {
		return true
	}
	return task.CreatedBy == p.UserID || task.IsAssignedTo(p.UserID)
}

// CanMutateTask reports whether p may apply action to task.
func CanMutateTask(p Principal, task *domain.Task, action TaskAction) bool {
	if task == nil {
		return false
	}
	switch action {
	case ActionUpdate:
		return CanViewTask(p, task)
	case ActionDelete:
		return p.Role.IsPrivileged() || task.CreatedBy == p.UserID
	}
	return false
}

// CanMutateUser reports whether p may change field of the user targetID.
func CanMutateUser(p Principal, targetID uuid.UUID, field UserField) bool {
	switch field {
	case FieldProfile:
		return p.UserID == targetID || p.Role.IsPrivileged()
	case FieldRole, FieldActive:
		return p.isAdmin()
	case FieldDeletion:
		return p.isAdmin() && p.UserID != targetID
	}
	return false
}

// CanViewUserStats reports whether p may read the statistics of targetID.
func CanViewUserStats(p Principal, targetID uuid.UUID) bool {
	return p.UserID == targetID || p.Role.IsPrivileged()
}

// AuthorizeViewTask returns ErrForbidden unless CanViewTask holds.
func AuthorizeViewTask(p Principal, task *domain.Task) error {
	if !CanViewTask(p, task) {
		return forbidden("view task", p, taskID(task))
	}
	return nil
}

// AuthorizeMutateTask returns ErrForbidden unless CanMutateTask holds.
func AuthorizeMutateTask(p Principal, task *domain.Task, action TaskAction) error {
	if !CanMutateTask(p, task, action) {
		return forbidden(action.String()+" task", p, taskID(task))
	}
	return nil
}

// AuthorizeMutateUser returns ErrForbidden unless CanMutateUser holds.
func AuthorizeMutateUser(p Principal, targetID uuid.UUID, field UserField) error {
	if !CanMutateUser(p, targetID, field) {
		return forbidden("change user "+field.String(), p, targetID)
	}
	return nil
}

// AuthorizeViewUserStats returns ErrForbidden unless CanViewUserStats holds.
func AuthorizeViewUserStats(p Principal, targetID uuid.UUID) error {
	if !CanViewUserStats(p, targetID) {
		return forbidden("view user stats", p, targetID)
	}
	return nil
}

func forbidden(op string, p Principal, target uuid.UUID) error {
	return fmt.Errorf("%w: %s %s by user %s (%s)", ErrForbidden, op, target, p.UserID, p.Role)
}

func taskID(task *domain.Task) uuid.UUID {
	if task == nil {
		return uuid.Nil
	}
	return task.ID
}
