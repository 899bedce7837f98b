package service

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the services. The API layer maps them to
// status codes with errors.Is.
var (
	// ErrInvalidCredentials indicates an unknown email or a wrong password at
	// login. The two cases are deliberately indistinguishable to callers.
	// API layer should map this to HTTP 401 Unauthorized.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrAccountDeactivated indicates the account exists but has been
	// deactivated by an administrator.
	// API layer should map this to HTTP 401 Unauthorized.
	ErrAccountDeactivated = errors.New("account is deactivated")

	// ErrWrongPassword indicates the current password supplied to a password
	// change did not match.
	// API layer should map this to HTTP 400 Bad Request.
	ErrWrongPassword = errors.New("current password is incorrect")

	// ErrAssigneeNotFound indicates a task was assigned to a user that does
	// not exist.
	// API layer should map this to HTTP 400 Bad Request.
	ErrAssigneeNotFound = errors.New("assigned user not found")
)

// ServiceError wraps a failure with the service and operation it came from.
type ServiceError struct {
	Service string
	Op      string
	Err     error
}

func (e *ServiceError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s service %s operation failed", e.Service, e.Op)
	}
	return fmt.Sprintf("%s service %s operation failed: %v", e.Service, e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func newServiceError(service, op string, err error) error {
	return &ServiceError{Service: service, Op: op, Err: err}
}
