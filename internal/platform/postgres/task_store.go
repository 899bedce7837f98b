package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/platform/logger"
	"github.com/phrazzld/taskflow-api/internal/store"
)

const taskColumns = `id, title, description, status, priority, category, assigned_to,
	created_by, due_date, estimated_hours, actual_hours, tags, progress, is_archived,
	completed_at, last_activity, created_at, updated_at`

// PostgresTaskStore implements store.TaskStore on PostgreSQL. Comments and
// subtasks live in child tables and are loaded in one query per kind.
type PostgresTaskStore struct {
	db     store.DBTX
	logger *slog.Logger
}

var _ store.TaskStore = (*PostgresTaskStore)(nil)

// NewPostgresTaskStore creates a task store over db.
func NewPostgresTaskStore(db store.DBTX, logger *slog.Logger) *PostgresTaskStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresTaskStore{db: db, logger: logger.With("component", "task_store")}
}

func scanTask(row rowScanner) (*domain.Task, error) {
	var (
		t          domain.Task
		assignedTo uuid.NullUUID
		dueDate    sql.NullTime
		estimated  sql.NullFloat64
		completed  sql.NullTime
		tags       []byte
	)
	err := row.Scan(&t.ID, &t.Title, &t.Description, &t.Status, &t.Priority, &t.Category,
		&assignedTo, &t.CreatedBy, &dueDate, &estimated, &t.ActualHours, &tags,
		&t.Progress, &t.IsArchived, &completed, &t.LastActivity, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if assignedTo.Valid {
		id := assignedTo.UUID
		t.AssignedTo = &id
	}
	if dueDate.Valid {
		d := dueDate.Time.UTC()
		t.DueDate = &d
	}
	if estimated.Valid {
		h := estimated.Float64
		t.EstimatedHours = &h
	}
	if completed.Valid {
		c := completed.Time.UTC()
		t.CompletedAt = &c
	}
	t.Tags = []string{}
	if len(tags) > 0 {
		if err := json.Unmarshal(tags, &t.Tags); err != nil {
			return nil, fmt.Errorf("failed to decode tags: %w", err)
		}
	}
	t.Comments = []domain.Comment{}
	t.Subtasks = []domain.Subtask{}
	return &t, nil
}

func encodeTags(tags []string) ([]byte, error) {
	if tags == nil {
		tags = []string{}
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return nil, fmt.Errorf("failed to encode tags: %w", err)
	}
	return b, nil
}

func nullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}

// Create implements store.TaskStore.
func (s *PostgresTaskStore) Create(ctx context.Context, task *domain.Task) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	tags, err := encodeTags(task.Tags)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO tasks (`+taskColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
		task.ID, task.Title, task.Description, string(task.Status), string(task.Priority),
		string(task.Category), nullUUID(task.AssignedTo), task.CreatedBy, task.DueDate,
		task.EstimatedHours, task.ActualHours, tags, task.Progress, task.IsArchived,
		task.CompletedAt, task.LastActivity, task.CreatedAt, task.UpdatedAt,
	)
	if err != nil {
		log.Error("failed to insert task", slog.String("task_id", task.ID.String()), slog.Any("error", err))
		return fmt.Errorf("failed to create task: %w", MapError(err))
	}

	for _, c := range task.Comments {
		if err := s.insertComment(ctx, task.ID, c); err != nil {
			return err
		}
	}
	for _, st := range task.Subtasks {
		if err := s.insertSubtask(ctx, task.ID, st); err != nil {
			return err
		}
	}
	return nil
}

// GetByID implements store.TaskStore.
func (s *PostgresTaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	task, err := scanTask(s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrTaskNotFound
		}
		log.Error("failed to load task", slog.String("task_id", id.String()), slog.Any("error", err))
		return nil, fmt.Errorf("failed to get task: %w", MapError(err))
	}

	if err := s.loadChildren(ctx, []*domain.Task{task}); err != nil {
		return nil, err
	}
	return task, nil
}

// Update implements store.TaskStore.
func (s *PostgresTaskStore) Update(ctx context.Context, task *domain.Task) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	tags, err := encodeTags(task.Tags)
	if err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE tasks
		SET title = $2, description = $3, status = $4, priority = $5, category = $6,
			assigned_to = $7, due_date = $8, estimated_hours = $9, actual_hours = $10,
			tags = $11, progress = $12, is_archived = $13, completed_at = $14,
			last_activity = $15, updated_at = $16
		WHERE id = $1`,
		task.ID, task.Title, task.Description, string(task.Status), string(task.Priority),
		string(task.Category), nullUUID(task.AssignedTo), task.DueDate, task.EstimatedHours,
		task.ActualHours, tags, task.Progress, task.IsArchived, task.CompletedAt,
		task.LastActivity, task.UpdatedAt,
	)
	if err != nil {
		log.Error("failed to update task", slog.String("task_id", task.ID.String()), slog.Any("error", err))
		return fmt.Errorf("failed to update task: %w", MapError(err))
	}
	return checkRowsAffected(result, store.ErrTaskNotFound)
}

// Delete implements store.TaskStore. Children are removed by ON DELETE CASCADE.
func (s *PostgresTaskStore) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to delete task",
			slog.String("task_id", id.String()), slog.Any("error", err))
		return fmt.Errorf("failed to delete task: %w", MapError(err))
	}
	return checkRowsAffected(result, store.ErrTaskNotFound)
}

// List implements store.TaskStore.
func (s *PostgresTaskStore) List(ctx context.Context, filter store.TaskFilter, page store.Page) ([]*domain.Task, int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	total, err := s.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	where := buildTaskWhere(filter)
	query := `SELECT ` + taskColumns + ` FROM tasks` + where.clause() + taskOrderBy(page) + where.limit(page)
	rows, err := s.db.QueryContext(ctx, query, where.args...)
	if err != nil {
		log.Error("failed to list tasks", slog.Any("error", err))
		return nil, 0, fmt.Errorf("failed to list tasks: %w", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	tasks := make([]*domain.Task, 0)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating task rows: %w", err)
	}

	if err := s.loadChildren(ctx, tasks); err != nil {
		return nil, 0, err
	}
	return tasks, total, nil
}

func (s *PostgresTaskStore) loadChildren(ctx context.Context, tasks []*domain.Task) error {
	if len(tasks) == 0 {
		return nil
	}
	byID := make(map[uuid.UUID]*domain.Task, len(tasks))
	ids := make([]string, 0, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
		ids = append(ids, t.ID.String())
	}

	b := &whereBuilder{}
	set := b.in(ids)
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, task_id, user_id, text, created_at FROM task_comments
		WHERE task_id IN `+set+` ORDER BY created_at, id`, b.args...)
	if err != nil {
		return fmt.Errorf("failed to load comments: %w", MapError(err))
	}
	for rows.Next() {
		var c domain.Comment
		var taskID uuid.UUID
		if err := rows.Scan(&c.ID, &taskID, &c.UserID, &c.Text, &c.CreatedAt); err != nil {
			_ = rows.Close()
			return fmt.Errorf("failed to scan comment: %w", err)
		}
		if t, ok := byID[taskID]; ok {
			t.Comments = append(t.Comments, c)
		}
	}
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating comment rows: %w", err)
	}

	rows, err = s.db.QueryContext(ctx,
		`SELECT id, task_id, title, completed, created_at FROM task_subtasks
		WHERE task_id IN `+set+` ORDER BY created_at, id`, b.args...)
	if err != nil {
		return fmt.Errorf("failed to load subtasks: %w", MapError(err))
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var st domain.Subtask
		var taskID uuid.UUID
		if err := rows.Scan(&st.ID, &taskID, &st.Title, &st.Completed, &st.CreatedAt); err != nil {
			return fmt.Errorf("failed to scan subtask: %w", err)
		}
		if t, ok := byID[taskID]; ok {
			t.Subtasks = append(t.Subtasks, st)
		}
	}
	return rows.Err()
}

func (s *PostgresTaskStore) touch(ctx context.Context, taskID uuid.UUID, at time.Time) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET last_activity = $2, updated_at = $2 WHERE id = $1`, taskID, at)
	if err != nil {
		return fmt.Errorf("failed to touch task: %w", MapError(err))
	}
	return checkRowsAffected(result, store.ErrTaskNotFound)
}

func (s *PostgresTaskStore) insertComment(ctx context.Context, taskID uuid.UUID, c domain.Comment) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO task_comments (id, task_id, user_id, text, created_at) VALUES ($1, $2, $3, $4, $5)`,
		c.ID, taskID, c.UserID, c.Text, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert comment: %w", MapError(err))
	}
	return nil
}

func (s *PostgresTaskStore) insertSubtask(ctx context.Context, taskID uuid.UUID, st domain.Subtask) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO task_subtasks (id, task_id, title, completed, created_at) VALUES ($1, $2, $3, $4, $5)`,
		st.ID, taskID, st.Title, st.Completed, st.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert subtask: %w", MapError(err))
	}
	return nil
}

// AddComment implements store.TaskStore.
func (s *PostgresTaskStore) AddComment(ctx context.Context, taskID uuid.UUID, comment domain.Comment) error {
	if err := s.touch(ctx, taskID, comment.CreatedAt); err != nil {
		return err
	}
	return s.insertComment(ctx, taskID, comment)
}

// AddSubtask implements store.TaskStore.
func (s *PostgresTaskStore) AddSubtask(ctx context.Context, taskID uuid.UUID, subtask domain.Subtask) error {
	if err := s.touch(ctx, taskID, subtask.CreatedAt); err != nil {
		return err
	}
	return s.insertSubtask(ctx, taskID, subtask)
}

// UpdateSubtask implements store.TaskStore.
func (s *PostgresTaskStore) UpdateSubtask(ctx context.Context, taskID uuid.UUID, subtask domain.Subtask) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE task_subtasks SET title = $3, completed = $4 WHERE id = $1 AND task_id = $2`,
		subtask.ID, taskID, subtask.Title, subtask.Completed)
	if err != nil {
		return fmt.Errorf("failed to update subtask: %w", MapError(err))
	}
	return checkRowsAffected(result, store.ErrSubtaskNotFound)
}

// Count implements store.TaskStore.
func (s *PostgresTaskStore) Count(ctx context.Context, filter store.TaskFilter) (int, error) {
	where := buildTaskWhere(filter)
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks`+where.clause(), where.args...).Scan(&n); err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to count tasks", slog.Any("error", err))
		return 0, fmt.Errorf("failed to count tasks: %w", MapError(err))
	}
	return n, nil
}

var groupColumns = map[store.GroupField]string{
	store.GroupByStatus:   "status",
	store.GroupByPriority: "priority",
}

// CountBy implements store.TaskStore.
func (s *PostgresTaskStore) CountBy(ctx context.Context, filter store.TaskFilter, field store.GroupField) (map[string]int, error) {
	col, ok := groupColumns[field]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported group field %q", store.ErrInvalidEntity, field)
	}

	where := buildTaskWhere(filter)
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+col+`, COUNT(*) FROM tasks`+where.clause()+` GROUP BY `+col, where.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to group tasks: %w", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[string]int)
	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		counts[key] = n
	}
	return counts, rows.Err()
}

// UnassignOpen implements store.TaskStore.
func (s *PostgresTaskStore) UnassignOpen(ctx context.Context, userID uuid.UUID) (int, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE tasks SET assigned_to = NULL, updated_at = NOW()
		WHERE assigned_to = $1 AND status <> $2`,
		userID, string(domain.StatusCompleted))
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to unassign tasks",
			slog.String("user_id", userID.String()), slog.Any("error", err))
		return 0, fmt.Errorf("failed to unassign tasks: %w", MapError(err))
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(n), nil
}
