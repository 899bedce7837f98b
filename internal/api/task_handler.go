package api

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/api/shared"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/platform/logger"
	"github.com/phrazzld/taskflow-api/internal/service"
	"github.com/phrazzld/taskflow-api/internal/store"
)

// TaskHandler handles task endpoints.
type TaskHandler struct {
	tasks  service.TaskService
	stats  service.StatsService
	logger *slog.Logger
	now    func() time.Time
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(tasks service.TaskService, stats service.StatsService, log *slog.Logger) *TaskHandler {
	if log == nil {
		log = slog.Default()
	}
	return &TaskHandler{
		tasks:  tasks,
		stats:  stats,
		logger: log.With("component", "task_handler"),
		now:    time.Now,
	}
}

// List handles GET /api/tasks.
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	p, ok := currentPrincipal(w, r)
	if !ok {
		return
	}
	page, errs := pageFromQuery(r, "-createdAt", store.ParseTaskSort)
	if errs != nil {
		shared.RespondWithValidationErrors(w, r, errs)
		return
	}
	q, errs := taskQueryFrom(r)
	if errs != nil {
		shared.RespondWithValidationErrors(w, r, errs)
		return
	}

	tasks, total, err := h.tasks.List(r.Context(), p, q, page)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list tasks")
		return
	}

	pagination := newPagination(page, len(tasks), total)
	pagination.TotalTasks = &total
	shared.RespondWithData(w, r, http.StatusOK, map[string]any{
		"tasks":      newTaskResponses(tasks, h.now()),
		"pagination": pagination,
	})
}

func taskQueryFrom(r *http.Request) (service.TaskQuery, []shared.FieldError) {
	v := r.URL.Query()
	q := service.TaskQuery{
		Status:   domain.TaskStatus(v.Get("status")),
		Priority: domain.Priority(v.Get("priority")),
		Category: domain.Category(v.Get("category")),
		Search:   strings.TrimSpace(v.Get("search")),
	}

	var errs []shared.FieldError
	if q.Status != "" && !q.Status.Valid() {
		errs = append(errs, shared.FieldError{Field: "status", Message: "status is invalid", Value: string(q.Status)})
	}
	if q.Priority != "" && !q.Priority.Valid() {
		errs = append(errs, shared.FieldError{Field: "priority", Message: "priority is invalid", Value: string(q.Priority)})
	}
	if q.Category != "" && !q.Category.Valid() {
		errs = append(errs, shared.FieldError{Field: "category", Message: "category is invalid", Value: string(q.Category)})
	}
	if raw := v.Get("assignedTo"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			errs = append(errs, shared.FieldError{Field: "assignedTo", Message: "assignedTo must be a valid ID", Value: raw})
		} else {
			q.AssignedTo = &id
		}
	}
	return q, errs
}

// Create handles POST /api/tasks.
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	p, ok := currentPrincipal(w, r)
	if !ok {
		return
	}
	var req CreateTaskRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	task, err := h.tasks.Create(r.Context(), p, req.toInput())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to create task")
		return
	}
	shared.RespondWithMessage(w, r, http.StatusCreated, "Task created successfully",
		map[string]any{"task": newTaskResponse(task, h.now())})
}

// Stats handles GET /api/tasks/stats.
func (h *TaskHandler) Stats(w http.ResponseWriter, r *http.Request) {
	p, ok := currentPrincipal(w, r)
	if !ok {
		return
	}
	days := queryInt(r, "timeframe", service.DefaultStatsTimeframeDays)

	stats, err := h.stats.TaskStats(r.Context(), p, days)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load task statistics")
		return
	}
	shared.RespondWithData(w, r, http.StatusOK, map[string]any{"stats": stats})
}

// Get handles GET /api/tasks/{id}.
func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, id, ok := principalAndPathUUID(w, r, "id")
	if !ok {
		return
	}
	task, err := h.tasks.Get(r.Context(), p, id)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load task")
		return
	}
	shared.RespondWithData(w, r, http.StatusOK, map[string]any{"task": newTaskResponse(task, h.now())})
}

// Update handles PUT /api/tasks/{id}.
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	p, id, ok := principalAndPathUUID(w, r, "id")
	if !ok {
		return
	}
	var req UpdateTaskRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	task, err := h.tasks.Update(r.Context(), p, id, req.toUpdate())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to update task")
		return
	}
	shared.RespondWithMessage(w, r, http.StatusOK, "Task updated successfully",
		map[string]any{"task": newTaskResponse(task, h.now())})
}

// Delete handles DELETE /api/tasks/{id}.
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	p, id, ok := principalAndPathUUID(w, r, "id")
	if !ok {
		return
	}
	if err := h.tasks.Delete(r.Context(), p, id); err != nil {
		HandleAPIError(w, r, err, "Failed to delete task")
		return
	}
	logger.FromContextOrDefault(r.Context(), h.logger).Info("task deleted", "task_id", id, "user_id", p.UserID)
	shared.RespondWithMessage(w, r, http.StatusOK, "Task deleted successfully", nil)
}

// AddComment handles POST /api/tasks/{id}/comments.
func (h *TaskHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	p, id, ok := principalAndPathUUID(w, r, "id")
	if !ok {
		return
	}
	var req CommentRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	comment, err := h.tasks.AddComment(r.Context(), p, id, req.Text)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to add comment")
		return
	}
	shared.RespondWithMessage(w, r, http.StatusCreated, "Comment added successfully",
		map[string]any{"comment": comment})
}

// AddSubtask handles POST /api/tasks/{id}/subtasks.
func (h *TaskHandler) AddSubtask(w http.ResponseWriter, r *http.Request) {
	p, id, ok := principalAndPathUUID(w, r, "id")
	if !ok {
		return
	}
	var req SubtaskRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	subtask, err := h.tasks.AddSubtask(r.Context(), p, id, req.Title)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to add subtask")
		return
	}
	shared.RespondWithMessage(w, r, http.StatusCreated, "Subtask added successfully",
		map[string]any{"subtask": subtask})
}

// UpdateSubtask handles PUT /api/tasks/{id}/subtasks/{subtaskId}.
func (h *TaskHandler) UpdateSubtask(w http.ResponseWriter, r *http.Request) {
	p, taskID, ok := principalAndPathUUID(w, r, "id")
	if !ok {
		return
	}
	subtaskID, err := getPathUUID(r, "subtaskId")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	var req UpdateSubtaskRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	subtask, err := h.tasks.UpdateSubtask(r.Context(), p, taskID, subtaskID, service.SubtaskUpdate{
		Title:     req.Title,
		Completed: req.Completed,
	})
	if err != nil {
		HandleAPIError(w, r, err, "Failed to update subtask")
		return
	}
	shared.RespondWithMessage(w, r, http.StatusOK, "Subtask updated successfully",
		map[string]any{"subtask": subtask})
}
