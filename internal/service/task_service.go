package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/access"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/events"
	"github.com/phrazzld/taskflow-api/internal/platform/logger"
	"github.com/phrazzld/taskflow-api/internal/store"
)

// CreateTaskInput carries the fields accepted when creating a task.
// Zero enum values take the task defaults.
type CreateTaskInput struct {
	Title          string
	Description    string
	Status         domain.TaskStatus
	Priority       domain.Priority
	Category       domain.Category
	AssignedTo     *uuid.UUID
	DueDate        *time.Time
	EstimatedHours *float64
	Tags           []string
}

// TaskUpdate is a partial update of a task. Nil fields are left unchanged.
type TaskUpdate struct {
	Title          *string
	Description    *string
	Status         *domain.TaskStatus
	Priority       *domain.Priority
	Category       *domain.Category
	AssignedTo     *uuid.UUID
	Unassign       bool
	DueDate        *time.Time
	ClearDueDate   bool
	EstimatedHours *float64
	ActualHours    *float64
	Progress       *int
	Tags           []string
	IsArchived     *bool
}

// SubtaskUpdate is a partial update of a subtask.
type SubtaskUpdate struct {
	Title     *string
	Completed *bool
}

// TaskQuery holds the listing filters a client may set.
type TaskQuery struct {
	Status     domain.TaskStatus
	Priority   domain.Priority
	Category   domain.Category
	AssignedTo *uuid.UUID
	Search     string
}

// TaskService provides task operations guarded by the access rules. Every
// successful mutation emits a domain event after it is persisted.
type TaskService interface {
	Create(ctx context.Context, actor access.Principal, in CreateTaskInput) (*domain.Task, error)
	Get(ctx context.Context, actor access.Principal, taskID uuid.UUID) (*domain.Task, error)

	// List returns one page of tasks visible to actor.
	List(ctx context.Context, actor access.Principal, q TaskQuery, page store.Page) ([]*domain.Task, int, error)

	Update(ctx context.Context, actor access.Principal, taskID uuid.UUID, upd TaskUpdate) (*domain.Task, error)
	Delete(ctx context.Context, actor access.Principal, taskID uuid.UUID) error
	AddComment(ctx context.Context, actor access.Principal, taskID uuid.UUID, text string) (*domain.Comment, error)
	AddSubtask(ctx context.Context, actor access.Principal, taskID uuid.UUID, title string) (*domain.Subtask, error)

	// UpdateSubtask returns store.ErrSubtaskNotFound when the subtask is not
	// part of the task.
	UpdateSubtask(
		ctx context.Context,
		actor access.Principal,
		taskID, subtaskID uuid.UUID,
		upd SubtaskUpdate,
	) (*domain.Subtask, error)
}

// TaskServiceImpl implements TaskService.
type TaskServiceImpl struct {
	repo    store.Repository
	emitter events.EventEmitter
	logger  *slog.Logger
	now     func() time.Time
}

var _ TaskService = (*TaskServiceImpl)(nil)

// NewTaskService creates a new TaskService.
func NewTaskService(repo store.Repository, emitter events.EventEmitter, logger *slog.Logger) *TaskServiceImpl {
	return &TaskServiceImpl{
		repo:    repo,
		emitter: emitter,
		logger:  logger.With("component", "task_service"),
		now:     time.Now,
	}
}

func (s *TaskServiceImpl) log(ctx context.Context) *slog.Logger {
	return logger.FromContextOrDefault(ctx, s.logger)
}

// emit publishes events in order. Failures are logged and never reach the
// caller, whose change is already committed.
func (s *TaskServiceImpl) emit(ctx context.Context, evs ...*events.TaskEvent) {
	if s.emitter == nil {
		return
	}
	for _, ev := range evs {
		if err := s.emitter.EmitEvent(ctx, ev); err != nil {
			s.log(ctx).Warn("failed to emit task event",
				"error", err,
				"event_kind", ev.Kind.String(),
				"task_id", ev.TaskID)
		}
	}
}

func (s *TaskServiceImpl) checkAssignee(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.Users().GetByID(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrAssigneeNotFound
		}
		return fmt.Errorf("failed to resolve assignee: %w", err)
	}
	return nil
}

// Create validates and stores a new task owned by actor.
func (s *TaskServiceImpl) Create(ctx context.Context, actor access.Principal, in CreateTaskInput) (*domain.Task, error) {
	if in.AssignedTo != nil {
		if err := s.checkAssignee(ctx, *in.AssignedTo); err != nil {
			return nil, err
		}
	}

	now := s.now()
	task := domain.NewTask(in.Title, in.Description, actor.UserID, now)
	if in.Priority != "" {
		task.Priority = in.Priority
	}
	if in.Category != "" {
		task.Category = in.Category
	}
	if in.Status != "" {
		task.SetStatus(in.Status, now)
	}
	task.AssignedTo = in.AssignedTo
	task.DueDate = in.DueDate
	task.EstimatedHours = in.EstimatedHours
	task.Tags = domain.NormalizeTags(in.Tags)

	if err := task.ValidateNew(now); err != nil {
		return nil, err
	}

	if err := s.repo.Tasks().Create(ctx, task); err != nil {
		s.log(ctx).Error("failed to save task", "error", err, "user_id", actor.UserID)
		return nil, newServiceError("task", "create", err)
	}

	s.log(ctx).Info("task created", "task_id", task.ID, "user_id", actor.UserID)

	evs := []*events.TaskEvent{events.NewTaskEvent(events.TaskCreated, task, actor.UserID)}
	if task.AssignedTo != nil {
		evs = append(evs, events.NewTaskEvent(events.TaskAssigned, task, actor.UserID))
	}
	s.emit(ctx, evs...)

	return task, nil
}

// Get returns a task actor may view.
func (s *TaskServiceImpl) Get(ctx context.Context, actor access.Principal, taskID uuid.UUID) (*domain.Task, error) {
	task, err := s.repo.Tasks().GetByID(ctx, taskID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			s.log(ctx).Error("failed to retrieve task", "error", err, "task_id", taskID)
		}
		return nil, fmt.Errorf("failed to retrieve task: %w", err)
	}
	if err := access.AuthorizeViewTask(actor, task); err != nil {
		return nil, err
	}
	return task, nil
}

// List scopes the query to the tasks actor may view.
func (s *TaskServiceImpl) List(
	ctx context.Context,
	actor access.Principal,
	q TaskQuery,
	page store.Page,
) ([]*domain.Task, int, error) {
	filter := store.TaskFilter{
		Priority:   q.Priority,
		Category:   q.Category,
		AssignedTo: q.AssignedTo,
		Search:     strings.TrimSpace(q.Search),
	}
	if q.Status != "" {
		filter.Statuses = []domain.TaskStatus{q.Status}
	}
	if !actor.Role.IsPrivileged() {
		id := actor.UserID
		filter.VisibleTo = &id
	}

	tasks, total, err := s.repo.Tasks().List(ctx, filter, page)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, total, nil
}

// Update applies upd and emits task-updated, followed by task-assigned when
// the task moved to a new assignee.
func (s *TaskServiceImpl) Update(
	ctx context.Context,
	actor access.Principal,
	taskID uuid.UUID,
	upd TaskUpdate,
) (*domain.Task, error) {
	task, err := s.repo.Tasks().GetByID(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve task for update: %w", err)
	}
	if err := access.AuthorizeMutateTask(actor, task, access.ActionUpdate); err != nil {
		return nil, err
	}

	reassigned := upd.AssignedTo != nil && !task.IsAssignedTo(*upd.AssignedTo)
	if reassigned {
		if err := s.checkAssignee(ctx, *upd.AssignedTo); err != nil {
			return nil, err
		}
	}

	now := s.now()
	applyTaskUpdate(task, upd, now)
	task.Touch(now)

	if err := task.Validate(); err != nil {
		return nil, err
	}

	if err := s.repo.Tasks().Update(ctx, task); err != nil {
		s.log(ctx).Error("failed to update task", "error", err, "task_id", taskID)
		return nil, newServiceError("task", "update", err)
	}

	evs := []*events.TaskEvent{events.NewTaskEvent(events.TaskUpdated, task, actor.UserID)}
	if reassigned {
		evs = append(evs, events.NewTaskEvent(events.TaskAssigned, task, actor.UserID))
	}
	s.emit(ctx, evs...)

	return task, nil
}

func applyTaskUpdate(task *domain.Task, upd TaskUpdate, now time.Time) {
	if upd.Title != nil {
		task.Title = strings.TrimSpace(*upd.Title)
	}
	if upd.Description != nil {
		task.Description = strings.TrimSpace(*upd.Description)
	}
	if upd.Priority != nil {
		task.Priority = *upd.Priority
	}
	if upd.Category != nil {
		task.Category = *upd.Category
	}
	switch {
	case upd.Unassign:
		task.AssignedTo = nil
	case upd.AssignedTo != nil:
		id := *upd.AssignedTo
		task.AssignedTo = &id
	}
	switch {
	case upd.ClearDueDate:
		task.DueDate = nil
	case upd.DueDate != nil:
		due := upd.DueDate.UTC()
		task.DueDate = &due
	}
	if upd.EstimatedHours != nil {
		task.EstimatedHours = upd.EstimatedHours
	}
	if upd.ActualHours != nil {
		task.ActualHours = *upd.ActualHours
	}
	if upd.Progress != nil {
		task.Progress = *upd.Progress
	}
	if upd.Tags != nil {
		task.Tags = domain.NormalizeTags(upd.Tags)
	}
	if upd.IsArchived != nil {
		task.IsArchived = *upd.IsArchived
	}
	// Status last so completion overrides an explicit progress value.
	if upd.Status != nil {
		task.SetStatus(*upd.Status, now)
	}
}

// Delete removes a task actor created or manages.
func (s *TaskServiceImpl) Delete(ctx context.Context, actor access.Principal, taskID uuid.UUID) error {
	task, err := s.repo.Tasks().GetByID(ctx, taskID)
	if err != nil {
		return fmt.Errorf("failed to retrieve task for deletion: %w", err)
	}
	if err := access.AuthorizeMutateTask(actor, task, access.ActionDelete); err != nil {
		return err
	}

	if err := s.repo.Tasks().Delete(ctx, taskID); err != nil {
		s.log(ctx).Error("failed to delete task", "error", err, "task_id", taskID)
		return newServiceError("task", "delete", err)
	}

	s.log(ctx).Info("task deleted", "task_id", taskID, "user_id", actor.UserID)
	s.emit(ctx, events.NewTaskDeletedEvent(taskID, actor.UserID))
	return nil
}

// AddComment appends a comment by actor.
func (s *TaskServiceImpl) AddComment(
	ctx context.Context,
	actor access.Principal,
	taskID uuid.UUID,
	text string,
) (*domain.Comment, error) {
	task, err := s.repo.Tasks().GetByID(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve task for comment: %w", err)
	}
	if err := access.AuthorizeViewTask(actor, task); err != nil {
		return nil, err
	}

	comment, err := task.AddComment(actor.UserID, text, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.repo.Tasks().AddComment(ctx, taskID, *comment); err != nil {
		s.log(ctx).Error("failed to save comment", "error", err, "task_id", taskID)
		return nil, newServiceError("task", "add_comment", err)
	}

	s.emit(ctx, events.NewCommentEvent(task, comment, actor.UserID))
	return comment, nil
}

// AddSubtask appends a subtask and emits task-updated.
func (s *TaskServiceImpl) AddSubtask(
	ctx context.Context,
	actor access.Principal,
	taskID uuid.UUID,
	title string,
) (*domain.Subtask, error) {
	task, err := s.repo.Tasks().GetByID(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve task for subtask: %w", err)
	}
	if err := access.AuthorizeMutateTask(actor, task, access.ActionUpdate); err != nil {
		return nil, err
	}

	subtask, err := task.AddSubtask(title, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.repo.Tasks().AddSubtask(ctx, taskID, *subtask); err != nil {
		s.log(ctx).Error("failed to save subtask", "error", err, "task_id", taskID)
		return nil, newServiceError("task", "add_subtask", err)
	}

	s.emit(ctx, events.NewTaskEvent(events.TaskUpdated, task, actor.UserID))
	return subtask, nil
}

// UpdateSubtask changes a subtask and the task's activity stamp together.
func (s *TaskServiceImpl) UpdateSubtask(
	ctx context.Context,
	actor access.Principal,
	taskID, subtaskID uuid.UUID,
	upd SubtaskUpdate,
) (*domain.Subtask, error) {
	task, err := s.repo.Tasks().GetByID(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve task for subtask update: %w", err)
	}
	if err := access.AuthorizeMutateTask(actor, task, access.ActionUpdate); err != nil {
		return nil, err
	}

	subtask, ok := task.FindSubtask(subtaskID)
	if !ok {
		return nil, store.ErrSubtaskNotFound
	}
	if upd.Title != nil {
		title := strings.TrimSpace(*upd.Title)
		if title == "" || len([]rune(title)) > domain.MaxTaskTitleLength {
			return nil, domain.NewValidationError("title", "must be between 1 and 100 characters", nil)
		}
		subtask.Title = title
	}
	if upd.Completed != nil {
		subtask.Completed = *upd.Completed
	}
	task.Touch(s.now())

	err = s.repo.RunInTx(ctx, func(ctx context.Context, _ store.UserStore, tasks store.TaskStore) error {
		if err := tasks.UpdateSubtask(ctx, taskID, *subtask); err != nil {
			return err
		}
		return tasks.Update(ctx, task)
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		s.log(ctx).Error("failed to update subtask", "error", err, "task_id", taskID, "subtask_id", subtaskID)
		return nil, newServiceError("task", "update_subtask", err)
	}

	s.emit(ctx, events.NewTaskEvent(events.TaskUpdated, task, actor.UserID))
	return subtask, nil
}
