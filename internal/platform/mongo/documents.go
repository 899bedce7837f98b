package mongo

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/domain"
)

type notificationsDoc struct {
	Email           bool `bson:"email"`
	Push            bool `bson:"push"`
	TaskUpdates     bool `bson:"task_updates"`
	TaskAssignments bool `bson:"task_assignments"`
}

type preferencesDoc struct {
	Notifications notificationsDoc `bson:"notifications"`
	Theme         string           `bson:"theme"`
}

type userDoc struct {
	ID             string         `bson:"_id"`
	Name           string         `bson:"name"`
	Email          string         `bson:"email"`
	HashedPassword string         `bson:"hashed_password"`
	Role           string         `bson:"role"`
	Avatar         string         `bson:"avatar,omitempty"`
	Department     string         `bson:"department,omitempty"`
	Phone          string         `bson:"phone,omitempty"`
	IsActive       bool           `bson:"is_active"`
	LastLogin      *time.Time     `bson:"last_login,omitempty"`
	Teams          []string       `bson:"teams"`
	Preferences    preferencesDoc `bson:"preferences"`
	CreatedAt      time.Time      `bson:"created_at"`
	UpdatedAt      time.Time      `bson:"updated_at"`
}

type commentDoc struct {
	ID        string    `bson:"id"`
	UserID    string    `bson:"user_id"`
	Text      string    `bson:"text"`
	CreatedAt time.Time `bson:"created_at"`
}

type subtaskDoc struct {
	ID        string    `bson:"id"`
	Title     string    `bson:"title"`
	Completed bool      `bson:"completed"`
	CreatedAt time.Time `bson:"created_at"`
}

type taskDoc struct {
	ID             string       `bson:"_id"`
	Title          string       `bson:"title"`
	Description    string       `bson:"description"`
	Status         string       `bson:"status"`
	Priority       string       `bson:"priority"`
	PriorityRank   int          `bson:"priority_rank"`
	Category       string       `bson:"category"`
	AssignedTo     *string      `bson:"assigned_to"`
	CreatedBy      string       `bson:"created_by"`
	DueDate        *time.Time   `bson:"due_date"`
	EstimatedHours *float64     `bson:"estimated_hours,omitempty"`
	ActualHours    float64      `bson:"actual_hours"`
	Tags           []string     `bson:"tags"`
	Comments       []commentDoc `bson:"comments"`
	Subtasks       []subtaskDoc `bson:"subtasks"`
	Progress       int          `bson:"progress"`
	IsArchived     bool         `bson:"is_archived"`
	CompletedAt    *time.Time   `bson:"completed_at,omitempty"`
	LastActivity   time.Time    `bson:"last_activity"`
	CreatedAt      time.Time    `bson:"created_at"`
	UpdatedAt      time.Time    `bson:"updated_at"`
}

var priorityRanks = map[domain.Priority]int{
	domain.PriorityLow:    1,
	domain.PriorityMedium: 2,
	domain.PriorityHigh:   3,
	domain.PriorityUrgent: 4,
}

func toUserDoc(u *domain.User) userDoc {
	teams := make([]string, len(u.Teams))
	for i, t := range u.Teams {
		teams[i] = t.String()
	}
	n := u.Preferences.Notifications
	return userDoc{
		ID:             u.ID.String(),
		Name:           u.Name,
		Email:          u.Email,
		HashedPassword: u.HashedPassword,
		Role:           string(u.Role),
		Avatar:         u.Avatar,
		Department:     u.Department,
		Phone:          u.Phone,
		IsActive:       u.IsActive,
		LastLogin:      u.LastLogin,
		Teams:          teams,
		Preferences: preferencesDoc{
			Notifications: notificationsDoc{
				Email:           n.Email,
				Push:            n.Push,
				TaskUpdates:     n.TaskUpdates,
				TaskAssignments: n.TaskAssignments,
			},
			Theme: string(u.Preferences.Theme),
		},
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func (d userDoc) toDomain() (*domain.User, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid user id %q: %w", d.ID, err)
	}
	teams := make([]uuid.UUID, 0, len(d.Teams))
	for _, t := range d.Teams {
		tid, err := uuid.Parse(t)
		if err != nil {
			return nil, fmt.Errorf("invalid team id %q: %w", t, err)
		}
		teams = append(teams, tid)
	}
	n := d.Preferences.Notifications
	return &domain.User{
		ID:             id,
		Name:           d.Name,
		Email:          d.Email,
		HashedPassword: d.HashedPassword,
		Role:           domain.Role(d.Role),
		Avatar:         d.Avatar,
		Department:     d.Department,
		Phone:          d.Phone,
		IsActive:       d.IsActive,
		LastLogin:      utcPtr(d.LastLogin),
		Teams:          teams,
		Preferences: domain.Preferences{
			Notifications: domain.NotificationPreferences{
				Email:           n.Email,
				Push:            n.Push,
				TaskUpdates:     n.TaskUpdates,
				TaskAssignments: n.TaskAssignments,
			},
			Theme: domain.Theme(d.Preferences.Theme),
		},
		CreatedAt: d.CreatedAt.UTC(),
		UpdatedAt: d.UpdatedAt.UTC(),
	}, nil
}

func toCommentDoc(c domain.Comment) commentDoc {
	return commentDoc{ID: c.ID.String(), UserID: c.UserID.String(), Text: c.Text, CreatedAt: c.CreatedAt}
}

func toSubtaskDoc(s domain.Subtask) subtaskDoc {
	return subtaskDoc{ID: s.ID.String(), Title: s.Title, Completed: s.Completed, CreatedAt: s.CreatedAt}
}

func toTaskDoc(t *domain.Task) taskDoc {
	var assigned *string
	if t.AssignedTo != nil {
		s := t.AssignedTo.String()
		assigned = &s
	}
	tags := t.Tags
	if tags == nil {
		tags = []string{}
	}
	comments := make([]commentDoc, len(t.Comments))
	for i, c := range t.Comments {
		comments[i] = toCommentDoc(c)
	}
	subtasks := make([]subtaskDoc, len(t.Subtasks))
	for i, s := range t.Subtasks {
		subtasks[i] = toSubtaskDoc(s)
	}
	return taskDoc{
		ID:             t.ID.String(),
		Title:          t.Title,
		Description:    t.Description,
		Status:         string(t.Status),
		Priority:       string(t.Priority),
		PriorityRank:   priorityRanks[t.Priority],
		Category:       string(t.Category),
		AssignedTo:     assigned,
		CreatedBy:      t.CreatedBy.String(),
		DueDate:        t.DueDate,
		EstimatedHours: t.EstimatedHours,
		ActualHours:    t.ActualHours,
		Tags:           tags,
		Comments:       comments,
		Subtasks:       subtasks,
		Progress:       t.Progress,
		IsArchived:     t.IsArchived,
		CompletedAt:    t.CompletedAt,
		LastActivity:   t.LastActivity,
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
	}
}

func (d taskDoc) toDomain() (*domain.Task, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid task id %q: %w", d.ID, err)
	}
	createdBy, err := uuid.Parse(d.CreatedBy)
	if err != nil {
		return nil, fmt.Errorf("invalid creator id %q: %w", d.CreatedBy, err)
	}
	t := &domain.Task{
		ID:             id,
		Title:          d.Title,
		Description:    d.Description,
		Status:         domain.TaskStatus(d.Status),
		Priority:       domain.Priority(d.Priority),
		Category:       domain.Category(d.Category),
		CreatedBy:      createdBy,
		DueDate:        utcPtr(d.DueDate),
		EstimatedHours: d.EstimatedHours,
		ActualHours:    d.ActualHours,
		Tags:           d.Tags,
		Comments:       make([]domain.Comment, 0, len(d.Comments)),
		Subtasks:       make([]domain.Subtask, 0, len(d.Subtasks)),
		Progress:       d.Progress,
		IsArchived:     d.IsArchived,
		CompletedAt:    utcPtr(d.CompletedAt),
		LastActivity:   d.LastActivity.UTC(),
		CreatedAt:      d.CreatedAt.UTC(),
		UpdatedAt:      d.UpdatedAt.UTC(),
	}
	if t.Tags == nil {
		t.Tags = []string{}
	}
	if d.AssignedTo != nil {
		a, err := uuid.Parse(*d.AssignedTo)
		if err != nil {
			return nil, fmt.Errorf("invalid assignee id %q: %w", *d.AssignedTo, err)
		}
		t.AssignedTo = &a
	}
	for _, c := range d.Comments {
		cid, err1 := uuid.Parse(c.ID)
		uid, err2 := uuid.Parse(c.UserID)
		if err1 != nil || err2 != nil {
			return nil, fmt.Errorf("invalid comment ids on task %s", d.ID)
		}
		t.Comments = append(t.Comments, domain.Comment{ID: cid, UserID: uid, Text: c.Text, CreatedAt: c.CreatedAt.UTC()})
	}
	for _, s := range d.Subtasks {
		sid, err := uuid.Parse(s.ID)
		if err != nil {
			return nil, fmt.Errorf("invalid subtask id %q: %w", s.ID, err)
		}
		t.Subtasks = append(t.Subtasks, domain.Subtask{ID: sid, Title: s.Title, Completed: s.Completed, CreatedAt: s.CreatedAt.UTC()})
	}
	return t, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
