package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/domain"
)

// Kind enumerates the event types exchanged with realtime clients.
type Kind int

const (
	KindUnknown Kind = iota
	TaskCreated
	TaskUpdated
	TaskDeleted
	TaskAssigned
	NewComment
	TypingIndicator
	PresenceOnline
	PresenceOffline
)

var wireNames = map[Kind]string{
	TaskCreated:     "task:created",
	TaskUpdated:     "task:updated",
	TaskDeleted:     "task:deleted",
	TaskAssigned:    "task:assigned",
	NewComment:      "task:new_comment",
	TypingIndicator: "task:user_typing",
	PresenceOnline:  "user:online",
	PresenceOffline: "user:offline",
}

// String returns the wire name used in outbound frames.
func (k Kind) String() string {
	if name, ok := wireNames[k]; ok {
		return name
	}
	return "unknown"
}

// ParseKind maps a wire name back to its Kind.
func ParseKind(name string) (Kind, bool) {
	for k, n := range wireNames {
		if n == name {
			return k, true
		}
	}
	return KindUnknown, false
}

// TaskEvent describes a committed change to a task.
type TaskEvent struct {
	ID   uuid.UUID
	Kind Kind

	// TaskID is always set; Task is nil for TaskDeleted.
	TaskID uuid.UUID
	Task   *domain.Task

	// Comment is set for NewComment.
	Comment *domain.Comment

	// ActorID is the user whose request produced the event.
	ActorID    uuid.UUID
	OccurredAt time.Time
}

// NewTaskEvent creates an event of kind for task.
func NewTaskEvent(kind Kind, task *domain.Task, actorID uuid.UUID) *TaskEvent {
	return &TaskEvent{
		ID:         uuid.New(),
		Kind:       kind,
		TaskID:     task.ID,
		Task:       task,
		ActorID:    actorID,
		OccurredAt: time.Now().UTC(),
	}
}

// NewTaskDeletedEvent creates a TaskDeleted event, which carries no task body.
func NewTaskDeletedEvent(taskID, actorID uuid.UUID) *TaskEvent {
	return &TaskEvent{
		ID:         uuid.New(),
		Kind:       TaskDeleted,
		TaskID:     taskID,
		ActorID:    actorID,
		OccurredAt: time.Now().UTC(),
	}
}

// NewCommentEvent creates a NewComment event for comment on task.
func NewCommentEvent(task *domain.Task, comment *domain.Comment, actorID uuid.UUID) *TaskEvent {
	e := NewTaskEvent(NewComment, task, actorID)
	e.Comment = comment
	return e
}

// EventHandler defines an interface for components that can handle events.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	HandleEvent(ctx context.Context, event *TaskEvent) error
}

// EventEmitter defines an interface for components that can emit events.
// This allows services to publish events without direct knowledge of handlers.
type EventEmitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	EmitEvent(ctx context.Context, event *TaskEvent) error
}

// HandlerFunc adapts a function to EventHandler.
type HandlerFunc func(ctx context.Context, event *TaskEvent) error

func (f HandlerFunc) HandleEvent(ctx context.Context, event *TaskEvent) error {
	return f(ctx, event)
}
