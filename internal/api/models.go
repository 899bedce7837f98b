package api

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/service"
)

// RegisterRequest defines the payload for the user registration endpoint.
// A role sent by the client is ignored.
type RegisterRequest struct {
	Name       string `json:"name"       validate:"required,min=2,max=50"`
	Email      string `json:"email"      validate:"required,email"`
	Password   string `json:"password"   validate:"required,min=6,max=72,strongpassword"`
	Department string `json:"department" validate:"omitempty,max=100"`
	Phone      string `json:"phone"      validate:"omitempty,max=30"`
}

// LoginRequest defines the payload for the user login endpoint.
type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	Token string       `json:"token"`
	User  *domain.User `json:"user"`
}

// UpdateProfileRequest is a partial profile update of the signed-in user.
type UpdateProfileRequest struct {
	Name       *string `json:"name"       validate:"omitempty,min=2,max=50"`
	Email      *string `json:"email"      validate:"omitempty,email"`
	Avatar     *string `json:"avatar"     validate:"omitempty,max=500"`
	Department *string `json:"department" validate:"omitempty,max=100"`
	Phone      *string `json:"phone"      validate:"omitempty,max=30"`
}

func (req UpdateProfileRequest) toUpdate() service.UserUpdate {
	return service.UserUpdate{
		Name:       req.Name,
		Email:      req.Email,
		Avatar:     req.Avatar,
		Department: req.Department,
		Phone:      req.Phone,
	}
}

// UpdateUserRequest is a partial update of any user by a manager or admin.
type UpdateUserRequest struct {
	UpdateProfileRequest
	Role     *string `json:"role"     validate:"omitempty,oneof=user manager admin"`
	IsActive *bool   `json:"isActive"`
}

func (req UpdateUserRequest) toUpdate() service.UserUpdate {
	upd := req.UpdateProfileRequest.toUpdate()
	if req.Role != nil {
		role := domain.Role(*req.Role)
		upd.Role = &role
	}
	upd.IsActive = req.IsActive
	return upd
}

// PreferencesRequest is a partial update of notification and theme settings.
type PreferencesRequest struct {
	Notifications *struct {
		Email           *bool `json:"email"`
		Push            *bool `json:"push"`
		TaskUpdates     *bool `json:"taskUpdates"`
		TaskAssignments *bool `json:"taskAssignments"`
	} `json:"notifications"`
	Theme *string `json:"theme" validate:"omitempty,oneof=light dark auto"`
}

func (req PreferencesRequest) toUpdate() service.PreferencesUpdate {
	var upd service.PreferencesUpdate
	if n := req.Notifications; n != nil {
		upd.EmailNotifications = n.Email
		upd.PushNotifications = n.Push
		upd.TaskUpdates = n.TaskUpdates
		upd.TaskAssignments = n.TaskAssignments
	}
	if req.Theme != nil {
		theme := domain.Theme(*req.Theme)
		upd.Theme = &theme
	}
	return upd
}

// ChangePasswordRequest defines the payload for a password change.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword"     validate:"required,min=6,max=72,strongpassword"`
}

// Nullable distinguishes an absent JSON field from an explicit null.
type Nullable[T any] struct {
	Set   bool
	Value *T
}

func (n *Nullable[T]) UnmarshalJSON(data []byte) error {
	n.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		n.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	n.Value = &v
	return nil
}

// CreateTaskRequest defines the payload for creating a task.
type CreateTaskRequest struct {
	Title          string     `json:"title"          validate:"required,min=3,max=100"`
	Description    string     `json:"description"    validate:"omitempty,min=10,max=1000"`
	Status         string     `json:"status"         validate:"omitempty,oneof=todo in-progress review completed cancelled"`
	Priority       string     `json:"priority"       validate:"omitempty,oneof=low medium high urgent"`
	Category       string     `json:"category"       validate:"omitempty,oneof=bug feature improvement task research"`
	AssignedTo     *uuid.UUID `json:"assignedTo"`
	DueDate        *time.Time `json:"dueDate"`
	EstimatedHours *float64   `json:"estimatedHours" validate:"omitempty,gte=0,lte=1000"`
	Tags           []string   `json:"tags"           validate:"omitempty,max=20,dive,max=30"`
}

func (req CreateTaskRequest) toInput() service.CreateTaskInput {
	return service.CreateTaskInput{
		Title:          req.Title,
		Description:    req.Description,
		Status:         domain.TaskStatus(req.Status),
		Priority:       domain.Priority(req.Priority),
		Category:       domain.Category(req.Category),
		AssignedTo:     req.AssignedTo,
		DueDate:        req.DueDate,
		EstimatedHours: req.EstimatedHours,
		Tags:           req.Tags,
	}
}

// UpdateTaskRequest is a partial task update. assignedTo and dueDate accept
// null to clear the field.
type UpdateTaskRequest struct {
	Title          *string             `json:"title"          validate:"omitempty,min=3,max=100"`
	Description    *string             `json:"description"    validate:"omitempty,max=1000"`
	Status         *string             `json:"status"         validate:"omitempty,oneof=todo in-progress review completed cancelled"`
	Priority       *string             `json:"priority"       validate:"omitempty,oneof=low medium high urgent"`
	Category       *string             `json:"category"       validate:"omitempty,oneof=bug feature improvement task research"`
	AssignedTo     Nullable[uuid.UUID] `json:"assignedTo"`
	DueDate        Nullable[time.Time] `json:"dueDate"`
	EstimatedHours *float64            `json:"estimatedHours" validate:"omitempty,gte=0,lte=1000"`
	ActualHours    *float64            `json:"actualHours"    validate:"omitempty,gte=0"`
	Progress       *int                `json:"progress"       validate:"omitempty,gte=0,lte=100"`
	Tags           []string            `json:"tags"           validate:"omitempty,max=20,dive,max=30"`
	IsArchived     *bool               `json:"isArchived"`
}

func (req UpdateTaskRequest) toUpdate() service.TaskUpdate {
	upd := service.TaskUpdate{
		Title:          req.Title,
		Description:    req.Description,
		EstimatedHours: req.EstimatedHours,
		ActualHours:    req.ActualHours,
		Progress:       req.Progress,
		Tags:           req.Tags,
		IsArchived:     req.IsArchived,
	}
	if req.Status != nil {
		s := domain.TaskStatus(*req.Status)
		upd.Status = &s
	}
	if req.Priority != nil {
		p := domain.Priority(*req.Priority)
		upd.Priority = &p
	}
	if req.Category != nil {
		c := domain.Category(*req.Category)
		upd.Category = &c
	}
	if req.AssignedTo.Set {
		upd.AssignedTo = req.AssignedTo.Value
		upd.Unassign = req.AssignedTo.Value == nil
	}
	if req.DueDate.Set {
		upd.DueDate = req.DueDate.Value
		upd.ClearDueDate = req.DueDate.Value == nil
	}
	return upd
}

// CommentRequest defines the payload for adding a comment.
type CommentRequest struct {
	Text string `json:"text" validate:"required,min=1,max=500"`
}

// SubtaskRequest defines the payload for adding a subtask.
type SubtaskRequest struct {
	Title string `json:"title" validate:"required,min=3,max=100"`
}

// UpdateSubtaskRequest is a partial subtask update.
type UpdateSubtaskRequest struct {
	Title     *string `json:"title"     validate:"omitempty,min=3,max=100"`
	Completed *bool   `json:"completed"`
}

// TaskResponse adds derived fields to a task.
type TaskResponse struct {
	*domain.Task
	IsOverdue            bool `json:"isOverdue"`
	DaysUntilDue         *int `json:"daysUntilDue,omitempty"`
	CompletionPercentage int  `json:"completionPercentage"`
}

func newTaskResponse(t *domain.Task, now time.Time) TaskResponse {
	return TaskResponse{
		Task:                 t,
		IsOverdue:            t.IsOverdue(now),
		DaysUntilDue:         t.DaysUntilDue(now),
		CompletionPercentage: t.CompletionPercentage(),
	}
}

func newTaskResponses(tasks []*domain.Task, now time.Time) []TaskResponse {
	out := make([]TaskResponse, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, newTaskResponse(t, now))
	}
	return out
}

// nonNilUsers keeps empty lists serialized as [].
func nonNilUsers(users []*domain.User) []*domain.User {
	if users == nil {
		return []*domain.User{}
	}
	return users
}
