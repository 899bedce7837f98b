package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/phrazzld/taskflow-api/internal/store"
	"github.com/stretchr/testify/assert"
)

func newPgError(code, constraint string) *pgconn.PgError {
	return &pgconn.PgError{
		Code:           code,
		Message:        "error message",
		TableName:      "users",
		ColumnName:     "email",
		ConstraintName: constraint,
	}
}

func TestMapError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want error
	}{
		{name: "no rows", err: sql.ErrNoRows, want: store.ErrNotFound},
		{name: "email unique", err: newPgError(uniqueViolationCode, usersEmailConstraint), want: store.ErrEmailExists},
		{name: "other unique", err: newPgError(uniqueViolationCode, "tasks_pkey"), want: store.ErrDuplicate},
		{name: "wrapped unique", err: fmt.Errorf("exec: %w", newPgError(uniqueViolationCode, "x")), want: store.ErrDuplicate},
		{name: "foreign key", err: newPgError(foreignKeyViolationCode, "tasks_created_by_fkey"), want: store.ErrInvalidEntity},
		{name: "check", err: newPgError(checkViolationCode, "tasks_progress_check"), want: store.ErrInvalidEntity},
		{name: "not null", err: newPgError(notNullViolationCode, ""), want: store.ErrInvalidEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.ErrorIs(t, MapError(tt.err), tt.want)
		})
	}

	t.Run("nil", func(t *testing.T) {
		assert.NoError(t, MapError(nil))
	})

	t.Run("unmapped passes through", func(t *testing.T) {
		original := errors.New("connection reset")
		assert.Equal(t, original, MapError(original))
	})

	t.Run("email is not a generic not-found", func(t *testing.T) {
		err := MapError(newPgError(uniqueViolationCode, usersEmailConstraint))
		assert.False(t, errors.Is(err, store.ErrNotFound))
		assert.True(t, IsUniqueViolation(newPgError(uniqueViolationCode, "")))
		assert.False(t, IsUniqueViolation(errors.New("plain")))
	})
}

func TestCheckRowsAffected(t *testing.T) {
	assert.NoError(t, checkRowsAffected(sqlmock.NewResult(0, 1), store.ErrTaskNotFound))
	assert.ErrorIs(t, checkRowsAffected(sqlmock.NewResult(0, 0), store.ErrTaskNotFound), store.ErrTaskNotFound)

	broken := sqlmock.NewErrorResult(errors.New("driver does not support RowsAffected"))
	err := checkRowsAffected(broken, store.ErrTaskNotFound)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, store.ErrTaskNotFound)
}
