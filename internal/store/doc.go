// Package store defines the persistence contracts for users and tasks.
//
// Backends live under internal/platform and translate driver errors into
// the sentinel errors declared here so callers never depend on a specific
// database.
package store
