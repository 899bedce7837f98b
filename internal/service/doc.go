// Package service contains the application use cases of the task tracker.
//
// Services coordinate domain entities with the repository interfaces from
// internal/store and enforce the rules of internal/access. They never depend
// on a concrete backend. Task mutations publish events.TaskEvent values after
// the change is persisted; emit failures are logged and do not fail the call.
//
// Sentinel errors (ErrInvalidCredentials, ErrAccountDeactivated,
// ErrWrongPassword, ErrAssigneeNotFound) are matched by the API layer with
// errors.Is. Store and access errors pass through wrapped with %w.
package service
