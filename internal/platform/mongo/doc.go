// Package mongo implements the store interfaces on MongoDB. Comments and
// subtasks are embedded in task documents; identifiers are stored as UUID
// strings so both backends expose the same IDs.
package mongo
