// Package access holds the capability checks that guard task and user
// operations.
//
// Every check is a pure function of a Principal and the target resource, so
// the same rules apply to REST handlers and to realtime task-room gating.
// Each Can* check has an Authorize* twin that returns ErrForbidden wrapped
// with the attempted operation.
package access
