package domain

import (
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// TaskStatus is the workflow state of a task.
type TaskStatus string

const (
	StatusTodo       TaskStatus = "todo"
	StatusInProgress TaskStatus = "in-progress"
	StatusReview     TaskStatus = "review"
	StatusCompleted  TaskStatus = "completed"
	StatusCancelled  TaskStatus = "cancelled"
)

// Valid reports whether s is a known status.
func (s TaskStatus) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusReview, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// IsClosed reports whether no further work is expected.
func (s TaskStatus) IsClosed() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Priority ranks task urgency.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Category classifies the kind of work.
type Category string

const (
	CategoryBug         Category = "bug"
	CategoryFeature     Category = "feature"
	CategoryImprovement Category = "improvement"
	CategoryTask        Category = "task"
	CategoryResearch    Category = "research"
)

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case CategoryBug, CategoryFeature, CategoryImprovement, CategoryTask, CategoryResearch:
		return true
	}
	return false
}

// Field limits for tasks.
const (
	MaxTaskTitleLength       = 100
	MaxTaskDescriptionLength = 1000
	MaxCommentLength         = 500
	MaxEstimatedHours        = 1000
)

// Comment is a note left on a task.
type Comment struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"userId"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

// Subtask is a checklist item of a task.
type Subtask struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"createdAt"`
}

// Task is a unit of work owned by its creator and optionally assigned to a user.
type Task struct {
	ID             uuid.UUID  `json:"id"`
	Title          string     `json:"title"`
	Description    string     `json:"description,omitempty"`
	Status         TaskStatus `json:"status"`
	Priority       Priority   `json:"priority"`
	Category       Category   `json:"category"`
	AssignedTo     *uuid.UUID `json:"assignedTo,omitempty"`
	CreatedBy      uuid.UUID  `json:"createdBy"`
	DueDate        *time.Time `json:"dueDate,omitempty"`
	EstimatedHours *float64   `json:"estimatedHours,omitempty"`
	ActualHours    float64    `json:"actualHours"`
	Tags           []string   `json:"tags"`
	Comments       []Comment  `json:"comments"`
	Subtasks       []Subtask  `json:"subtasks"`
	Progress       int        `json:"progress"`
	IsArchived     bool       `json:"isArchived"`
	CompletedAt    *time.Time `json:"completedAt,omitempty"`
	LastActivity   time.Time  `json:"lastActivity"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// NewTask creates a todo task with medium priority in the task category.
// Callers adjust optional fields and then call ValidateNew.
func NewTask(title, description string, createdBy uuid.UUID, now time.Time) *Task {
	now = now.UTC()
	return &Task{
		ID:           uuid.New(),
		Title:        strings.TrimSpace(title),
		Description:  strings.TrimSpace(description),
		Status:       StatusTodo,
		Priority:     PriorityMedium,
		Category:     CategoryTask,
		CreatedBy:    createdBy,
		Tags:         []string{},
		Comments:     []Comment{},
		Subtasks:     []Subtask{},
		LastActivity: now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Validate checks field limits and enumerations.
func (t *Task) Validate() error {
	if t.ID == uuid.Nil {
		return NewValidationError("id", "cannot be empty", ErrInvalidID)
	}
	if t.CreatedBy == uuid.Nil {
		return NewValidationError("createdBy", "cannot be empty", ErrInvalidID)
	}
	title := strings.TrimSpace(t.Title)
	if title == "" {
		return NewValidationError("title", "is required", nil)
	}
	if utf8.RuneCountInString(title) > MaxTaskTitleLength {
		return NewValidationError("title", "cannot exceed 100 characters", nil)
	}
	if utf8.RuneCountInString(t.Description) > MaxTaskDescriptionLength {
		return NewValidationError("description", "cannot exceed 1000 characters", nil)
	}
	if !t.Status.Valid() {
		return NewValidationError("status", "is not a valid status", ErrInvalidEnum)
	}
	if !t.Priority.Valid() {
		return NewValidationError("priority", "is not a valid priority", ErrInvalidEnum)
	}
	if !t.Category.Valid() {
		return NewValidationError("category", "is not a valid category", ErrInvalidEnum)
	}
	if t.EstimatedHours != nil && (*t.EstimatedHours < 0 || *t.EstimatedHours > MaxEstimatedHours) {
		return NewValidationError("estimatedHours", "must be between 0 and 1000", nil)
	}
	if t.ActualHours < 0 {
		return NewValidationError("actualHours", "cannot be negative", nil)
	}
	if t.Progress < 0 || t.Progress > 100 {
		return NewValidationError("progress", "must be between 0 and 100", nil)
	}
	return nil
}

// ValidateNew applies Validate plus the creation-only rule that a due date
// lies in the future.
func (t *Task) ValidateNew(now time.Time) error {
	if err := t.Validate(); err != nil {
		return err
	}
	if t.DueDate != nil && !t.DueDate.After(now) {
		return NewValidationError("dueDate", "must be in the future", nil)
	}
	return nil
}

// SetStatus moves the task to s. Completing stamps CompletedAt and sets
// progress to 100; reopening clears CompletedAt.
func (t *Task) SetStatus(s TaskStatus, now time.Time) {
	if s == StatusCompleted {
		if t.Status != StatusCompleted || t.CompletedAt == nil {
			ts := now.UTC()
			t.CompletedAt = &ts
		}
		t.Progress = 100
	} else {
		t.CompletedAt = nil
	}
	t.Status = s
}

// Touch records activity on the task.
func (t *Task) Touch(now time.Time) {
	now = now.UTC()
	t.LastActivity = now
	t.UpdatedAt = now
}

// AddComment appends a comment by userID.
func (t *Task) AddComment(userID uuid.UUID, text string, now time.Time) (*Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, NewValidationError("text", "is required", nil)
	}
	if utf8.RuneCountInString(text) > MaxCommentLength {
		return nil, NewValidationError("text", "cannot exceed 500 characters", nil)
	}
	c := Comment{ID: uuid.New(), UserID: userID, Text: text, CreatedAt: now.UTC()}
	t.Comments = append(t.Comments, c)
	t.Touch(now)
	return &t.Comments[len(t.Comments)-1], nil
}

// AddSubtask appends an incomplete subtask.
func (t *Task) AddSubtask(title string, now time.Time) (*Subtask, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, NewValidationError("title", "is required", nil)
	}
	if utf8.RuneCountInString(title) > MaxTaskTitleLength {
		return nil, NewValidationError("title", "cannot exceed 100 characters", nil)
	}
	s := Subtask{ID: uuid.New(), Title: title, CreatedAt: now.UTC()}
	t.Subtasks = append(t.Subtasks, s)
	t.Touch(now)
	return &t.Subtasks[len(t.Subtasks)-1], nil
}

// FindSubtask returns a pointer into t.Subtasks for id.
func (t *Task) FindSubtask(id uuid.UUID) (*Subtask, bool) {
	for i := range t.Subtasks {
		if t.Subtasks[i].ID == id {
			return &t.Subtasks[i], true
		}
	}
	return nil, false
}

// IsAssignedTo reports whether userID is the assignee.
func (t *Task) IsAssignedTo(userID uuid.UUID) bool {
	return t.AssignedTo != nil && *t.AssignedTo == userID
}

// DaysUntilDue returns whole days (rounded up) until the due date, negative
// when past due, or nil without a due date.
func (t *Task) DaysUntilDue(now time.Time) *int {
	if t.DueDate == nil {
		return nil
	}
	days := int(math.Ceil(t.DueDate.Sub(now).Hours() / 24))
	return &days
}

// CompletionPercentage is the share of completed subtasks, or Progress when
// the task has none.
func (t *Task) CompletionPercentage() int {
	if len(t.Subtasks) == 0 {
		return t.Progress
	}
	done := 0
	for _, s := range t.Subtasks {
		if s.Completed {
			done++
		}
	}
	return int(math.Round(float64(done) / float64(len(t.Subtasks)) * 100))
}

// IsOverdue reports whether the due date has passed on an open task.
func (t *Task) IsOverdue(now time.Time) bool {
	return t.DueDate != nil && t.DueDate.Before(now) && !t.Status.IsClosed()
}

// NormalizeTags lowercases, trims and de-duplicates tags, dropping empties.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}
