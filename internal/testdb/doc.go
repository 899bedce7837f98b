// Package testdb provides helpers for integration tests that need a real
// PostgreSQL database.
//
// Tests using it are compiled only with the integration build tag and are
// skipped when no database URL is configured:
//
//	TASKFLOW_TEST_DATABASE_URL=postgres://... go test -tags=integration ./...
//
// The schema is migrated once per test binary with the embedded goose
// migrations. Each test then runs inside a transaction that is rolled back
// when it finishes, so tests may run in parallel without cleaning up.
package testdb
