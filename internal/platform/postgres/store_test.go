package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

var taskColumnNames = []string{
	"id", "title", "description", "status", "priority", "category", "assigned_to",
	"created_by", "due_date", "estimated_hours", "actual_hours", "tags", "progress",
	"is_archived", "completed_at", "last_activity", "created_at", "updated_at",
}

var userColumnNames = []string{
	"id", "name", "email", "hashed_password", "role", "avatar", "department", "phone",
	"is_active", "last_login", "teams", "preferences", "created_at", "updated_at",
}

func taskRow(id, creator uuid.UUID, assignee any) []driver.Value {
	return []driver.Value{
		id.String(), "Write docs", "", "todo", "high", "task", assignee,
		creator.String(), nil, 4.5, 0.0, []byte(`["docs","api"]`), int64(0),
		false, nil, fixedNow, fixedNow, fixedNow,
	}
}

func TestTaskStore_GetByIDLoadsChildren(t *testing.T) {
	db, mock := newMock(t)
	s := NewPostgresTaskStore(db, discardLogger())

	taskID, creator, commentID, subtaskID := uuid.New(), uuid.New(), uuid.New(), uuid.New()

	mock.ExpectQuery(`SELECT (.+) FROM tasks WHERE id = \$1`).
		WithArgs(taskID).
		WillReturnRows(sqlmock.NewRows(taskColumnNames).AddRow(taskRow(taskID, creator, nil)...))
	mock.ExpectQuery(`FROM task_comments WHERE task_id IN \(\$1\)`).
		WithArgs(taskID.String()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "task_id", "user_id", "text", "created_at"}).
			AddRow(commentID.String(), taskID.String(), creator.String(), "first", fixedNow))
	mock.ExpectQuery(`FROM task_subtasks WHERE task_id IN \(\$1\)`).
		WithArgs(taskID.String()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "task_id", "title", "completed", "created_at"}).
			AddRow(subtaskID.String(), taskID.String(), "outline", true, fixedNow))

	task, err := s.GetByID(context.Background(), taskID)
	require.NoError(t, err)

	assert.Equal(t, taskID, task.ID)
	assert.Equal(t, domain.PriorityHigh, task.Priority)
	assert.Nil(t, task.AssignedTo)
	require.NotNil(t, task.EstimatedHours)
	assert.InDelta(t, 4.5, *task.EstimatedHours, 0.001)
	assert.Equal(t, []string{"docs", "api"}, task.Tags)
	require.Len(t, task.Comments, 1)
	assert.Equal(t, "first", task.Comments[0].Text)
	require.Len(t, task.Subtasks, 1)
	assert.True(t, task.Subtasks[0].Completed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskStore_GetByIDNotFound(t *testing.T) {
	db, mock := newMock(t)
	s := NewPostgresTaskStore(db, discardLogger())

	mock.ExpectQuery(`FROM tasks WHERE id`).WillReturnError(sql.ErrNoRows)

	_, err := s.GetByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, store.ErrTaskNotFound)
}

func TestTaskStore_UpdateAndDeleteMissing(t *testing.T) {
	db, mock := newMock(t)
	s := NewPostgresTaskStore(db, discardLogger())

	mock.ExpectExec(`UPDATE tasks`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`DELETE FROM tasks WHERE id = \$1`).WillReturnResult(sqlmock.NewResult(0, 0))

	task := domain.NewTask("Missing task", "", uuid.New(), fixedNow)
	assert.ErrorIs(t, s.Update(context.Background(), task), store.ErrTaskNotFound)
	assert.ErrorIs(t, s.Delete(context.Background(), task.ID), store.ErrTaskNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskStore_AddCommentTouchesTask(t *testing.T) {
	db, mock := newMock(t)
	s := NewPostgresTaskStore(db, discardLogger())

	taskID := uuid.New()
	comment := domain.Comment{ID: uuid.New(), UserID: uuid.New(), Text: "ship it", CreatedAt: fixedNow}

	mock.ExpectExec(`UPDATE tasks SET last_activity = \$2, updated_at = \$2 WHERE id = \$1`).
		WithArgs(taskID, fixedNow).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO task_comments`).
		WithArgs(comment.ID, taskID, comment.UserID, "ship it", fixedNow).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.AddComment(context.Background(), taskID, comment))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskStore_AddCommentToMissingTask(t *testing.T) {
	db, mock := newMock(t)
	s := NewPostgresTaskStore(db, discardLogger())

	mock.ExpectExec(`UPDATE tasks SET last_activity`).WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.AddComment(context.Background(), uuid.New(), domain.Comment{ID: uuid.New(), CreatedAt: fixedNow})
	assert.ErrorIs(t, err, store.ErrTaskNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskStore_UpdateSubtaskMissing(t *testing.T) {
	db, mock := newMock(t)
	s := NewPostgresTaskStore(db, discardLogger())

	mock.ExpectExec(`UPDATE task_subtasks`).WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.UpdateSubtask(context.Background(), uuid.New(), domain.Subtask{ID: uuid.New(), Title: "x"})
	assert.ErrorIs(t, err, store.ErrSubtaskNotFound)
}

func TestTaskStore_ListCountsThenPages(t *testing.T) {
	db, mock := newMock(t)
	s := NewPostgresTaskStore(db, discardLogger())

	viewer := uuid.New()
	taskID := uuid.New()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM tasks WHERE is_archived = FALSE AND \(created_by = \$1 OR assigned_to = \$1\)`).
		WithArgs(viewer).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(11)))
	mock.ExpectQuery(`ORDER BY created_at DESC, id DESC LIMIT \$2 OFFSET \$3`).
		WithArgs(viewer, 10, 10).
		WillReturnRows(sqlmock.NewRows(taskColumnNames).AddRow(taskRow(taskID, viewer, viewer.String())...))
	mock.ExpectQuery(`FROM task_comments`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "task_id", "user_id", "text", "created_at"}))
	mock.ExpectQuery(`FROM task_subtasks`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "task_id", "title", "completed", "created_at"}))

	tasks, total, err := s.List(context.Background(),
		store.TaskFilter{VisibleTo: &viewer},
		store.Page{Number: 2, Limit: 10})
	require.NoError(t, err)

	assert.Equal(t, 11, total)
	require.Len(t, tasks, 1)
	require.NotNil(t, tasks[0].AssignedTo)
	assert.Equal(t, viewer, *tasks[0].AssignedTo)
	assert.Empty(t, tasks[0].Comments)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskStore_CountBy(t *testing.T) {
	db, mock := newMock(t)
	s := NewPostgresTaskStore(db, discardLogger())

	mock.ExpectQuery(`SELECT priority, COUNT\(\*\) FROM tasks WHERE is_archived = FALSE GROUP BY priority`).
		WillReturnRows(sqlmock.NewRows([]string{"priority", "count"}).
			AddRow("high", int64(3)).
			AddRow("low", int64(1)))

	counts, err := s.CountBy(context.Background(), store.TaskFilter{}, store.GroupByPriority)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"high": 3, "low": 1}, counts)

	_, err = s.CountBy(context.Background(), store.TaskFilter{}, store.GroupField("title"))
	assert.ErrorIs(t, err, store.ErrInvalidEntity)
}

func TestTaskStore_UnassignOpen(t *testing.T) {
	db, mock := newMock(t)
	s := NewPostgresTaskStore(db, discardLogger())

	userID := uuid.New()
	mock.ExpectExec(`UPDATE tasks SET assigned_to = NULL`).
		WithArgs(userID, "completed").
		WillReturnResult(sqlmock.NewResult(0, 4))

	n, err := s.UnassignOpen(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestUserStore_CreateDuplicateEmail(t *testing.T) {
	db, mock := newMock(t)
	s := NewPostgresUserStore(db, discardLogger())

	user, err := domain.NewUser("Ada", "ada@example.com", "$2a$10$hash", domain.RoleUser, fixedNow)
	require.NoError(t, err)

	mock.ExpectExec(`INSERT INTO users`).
		WillReturnError(newPgError(uniqueViolationCode, usersEmailConstraint))

	err = s.Create(context.Background(), user)
	assert.ErrorIs(t, err, store.ErrEmailExists)
}

func TestUserStore_GetByEmail(t *testing.T) {
	db, mock := newMock(t)
	s := NewPostgresUserStore(db, discardLogger())

	id, team := uuid.New(), uuid.New()
	mock.ExpectQuery(`FROM users WHERE email = \$1`).
		WithArgs("ada@example.com").
		WillReturnRows(sqlmock.NewRows(userColumnNames).AddRow(
			id.String(), "Ada", "ada@example.com", "hash", "admin", "", "eng", "",
			true, fixedNow, []byte(`["`+team.String()+`"]`),
			[]byte(`{"notifications":{"email":false,"push":true,"taskUpdates":true,"taskAssignments":true},"theme":"dark"}`),
			fixedNow, fixedNow,
		))

	user, err := s.GetByEmail(context.Background(), "  ADA@example.com ")
	require.NoError(t, err)

	assert.Equal(t, id, user.ID)
	assert.Equal(t, domain.RoleAdmin, user.Role)
	assert.Equal(t, []uuid.UUID{team}, user.Teams)
	assert.Equal(t, domain.ThemeDark, user.Preferences.Theme)
	assert.False(t, user.Preferences.Notifications.Email)
	require.NotNil(t, user.LastLogin)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserStore_GetByIDNotFound(t *testing.T) {
	db, mock := newMock(t)
	s := NewPostgresUserStore(db, discardLogger())

	mock.ExpectQuery(`FROM users WHERE id = \$1`).WillReturnError(sql.ErrNoRows)

	_, err := s.GetByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, store.ErrUserNotFound)
}

func TestUserStore_UpdateMissing(t *testing.T) {
	db, mock := newMock(t)
	s := NewPostgresUserStore(db, discardLogger())

	user, err := domain.NewUser("Ada", "ada@example.com", "hash", domain.RoleUser, fixedNow)
	require.NoError(t, err)

	mock.ExpectExec(`UPDATE users`).WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, s.Update(context.Background(), user), store.ErrUserNotFound)
}

func TestRepository_RunInTxRollsBack(t *testing.T) {
	db, mock := newMock(t)
	repo := NewRepository(db, discardLogger())

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE tasks SET assigned_to = NULL`).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectRollback()

	boom := errors.New("user update failed")
	err := repo.RunInTx(context.Background(), func(ctx context.Context, _ store.UserStore, tasks store.TaskStore) error {
		if _, err := tasks.UnassignOpen(ctx, uuid.New()); err != nil {
			return err
		}
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}
