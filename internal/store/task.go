package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/domain"
)

// TaskFilter narrows task queries. Zero values match everything except
// archived tasks, which are excluded unless IncludeArchived is set.
type TaskFilter struct {
	// VisibleTo limits results to tasks the user created or is assigned to.
	VisibleTo       *uuid.UUID
	CreatedBy       *uuid.UUID
	AssignedTo      *uuid.UUID
	Statuses        []domain.TaskStatus
	ExcludeStatuses []domain.TaskStatus
	Priority        domain.Priority
	Category        domain.Category
	// Search matches title or description case-insensitively.
	Search          string
	DueBefore       *time.Time
	CreatedAfter    *time.Time
	IncludeArchived bool
}

// GroupField names a column tasks can be counted by.
type GroupField string

const (
	GroupByStatus   GroupField = "status"
	GroupByPriority GroupField = "priority"
)

// TaskStore defines the interface for task persistence. Tasks are returned
// with their comments and subtasks loaded.
type TaskStore interface {
	// Create saves a new task with its comments and subtasks.
	Create(ctx context.Context, task *domain.Task) error

	// GetByID returns ErrTaskNotFound if the task does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error)

	// Update replaces the scalar fields of a task. Comments and subtasks are
	// changed only through their dedicated methods.
	Update(ctx context.Context, task *domain.Task) error

	// Delete removes a task and its children. Returns ErrTaskNotFound.
	Delete(ctx context.Context, id uuid.UUID) error

	// List returns one page of matching tasks and the total match count.
	List(ctx context.Context, filter TaskFilter, page Page) ([]*domain.Task, int, error)

	// AddComment appends a comment and refreshes the task's activity stamp.
	AddComment(ctx context.Context, taskID uuid.UUID, comment domain.Comment) error

	// AddSubtask appends a subtask and refreshes the task's activity stamp.
	AddSubtask(ctx context.Context, taskID uuid.UUID, subtask domain.Subtask) error

	// UpdateSubtask replaces a subtask's title and completion flag.
	// Returns ErrSubtaskNotFound when the pair does not exist.
	UpdateSubtask(ctx context.Context, taskID uuid.UUID, subtask domain.Subtask) error

	// Count returns the number of matching tasks.
	Count(ctx context.Context, filter TaskFilter) (int, error)

	// CountBy groups matching tasks by field and counts each group.
	CountBy(ctx context.Context, filter TaskFilter, field GroupField) (map[string]int, error)

	// UnassignOpen clears the assignee of every task assigned to userID that
	// is not completed, cancelled ones included, and returns how many changed.
	UnassignOpen(ctx context.Context, userID uuid.UUID) (int, error)
}

// Repository is the pair of stores plus a unit-of-work boundary.
type Repository interface {
	Users() UserStore
	Tasks() TaskStore

	// RunInTx executes fn with stores bound to a single unit of work. Backends
	// without multi-document transactions run fn directly.
	RunInTx(ctx context.Context, fn func(ctx context.Context, users UserStore, tasks TaskStore) error) error

	// Ping checks connectivity.
	Ping(ctx context.Context) error

	Close(ctx context.Context) error
}
