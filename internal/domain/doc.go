// Package domain defines users and tasks, their enumerations and the
// invariants that hold regardless of storage or transport.
package domain
