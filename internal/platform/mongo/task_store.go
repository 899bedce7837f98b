package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/platform/logger"
	"github.com/phrazzld/taskflow-api/internal/store"
	"go.mongodb.org/mongo-driver/bson"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
)

// TaskStore implements store.TaskStore on a MongoDB collection.
type TaskStore struct {
	coll   *mongodriver.Collection
	logger *slog.Logger
	now    func() time.Time
}

var _ store.TaskStore = (*TaskStore)(nil)

// NewTaskStore creates a task store on db's tasks collection.
func NewTaskStore(db *mongodriver.Database, logger *slog.Logger) *TaskStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &TaskStore{
		coll:   db.Collection(TasksCollection),
		logger: logger.With("component", "task_store"),
		now:    time.Now,
	}
}

func (s *TaskStore) Create(ctx context.Context, task *domain.Task) error {
	if _, err := s.coll.InsertOne(ctx, toTaskDoc(task)); err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to insert task",
			slog.String("task_id", task.ID.String()), slog.Any("error", err))
		return fmt.Errorf("failed to create task: %w", MapError(err))
	}
	return nil
}

func (s *TaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	var doc taskDoc
	if err := s.coll.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc); err != nil {
		if errors.Is(err, mongodriver.ErrNoDocuments) {
			return nil, store.ErrTaskNotFound
		}
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to load task",
			slog.String("task_id", id.String()), slog.Any("error", err))
		return nil, fmt.Errorf("failed to get task: %w", MapError(err))
	}
	return doc.toDomain()
}

func (s *TaskStore) Update(ctx context.Context, task *domain.Task) error {
	doc := toTaskDoc(task)
	set := bson.M{
		"title":           doc.Title,
		"description":     doc.Description,
		"status":          doc.Status,
		"priority":        doc.Priority,
		"priority_rank":   doc.PriorityRank,
		"category":        doc.Category,
		"assigned_to":     doc.AssignedTo,
		"due_date":        doc.DueDate,
		"estimated_hours": doc.EstimatedHours,
		"actual_hours":    doc.ActualHours,
		"tags":            doc.Tags,
		"progress":        doc.Progress,
		"is_archived":     doc.IsArchived,
		"completed_at":    doc.CompletedAt,
		"last_activity":   doc.LastActivity,
		"updated_at":      doc.UpdatedAt,
	}
	return s.updateTask(ctx, task.ID, bson.M{"$set": set})
}

func (s *TaskStore) updateTask(ctx context.Context, id uuid.UUID, update bson.M) error {
	result, err := s.coll.UpdateOne(ctx, bson.M{"_id": id.String()}, update)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to update task",
			slog.String("task_id", id.String()), slog.Any("error", err))
		return fmt.Errorf("failed to update task: %w", MapError(err))
	}
	if result.MatchedCount == 0 {
		return store.ErrTaskNotFound
	}
	return nil
}

func (s *TaskStore) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := s.coll.DeleteOne(ctx, bson.M{"_id": id.String()})
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", MapError(err))
	}
	if result.DeletedCount == 0 {
		return store.ErrTaskNotFound
	}
	return nil
}

func (s *TaskStore) List(ctx context.Context, filter store.TaskFilter, page store.Page) ([]*domain.Task, int, error) {
	f := taskFilterDoc(filter)
	total, err := s.coll.CountDocuments(ctx, f)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count tasks: %w", MapError(err))
	}

	cur, err := s.coll.Find(ctx, f, findOptions(page, sortDoc(page, taskSortKeys, "created_at", true)))
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to list tasks", slog.Any("error", err))
		return nil, 0, fmt.Errorf("failed to list tasks: %w", MapError(err))
	}
	var docs []taskDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, 0, fmt.Errorf("failed to decode tasks: %w", err)
	}

	tasks := make([]*domain.Task, 0, len(docs))
	for _, d := range docs {
		t, err := d.toDomain()
		if err != nil {
			return nil, 0, err
		}
		tasks = append(tasks, t)
	}
	return tasks, int(total), nil
}

func (s *TaskStore) AddComment(ctx context.Context, taskID uuid.UUID, comment domain.Comment) error {
	return s.updateTask(ctx, taskID, bson.M{
		"$push": bson.M{"comments": toCommentDoc(comment)},
		"$set":  bson.M{"last_activity": comment.CreatedAt, "updated_at": comment.CreatedAt},
	})
}

func (s *TaskStore) AddSubtask(ctx context.Context, taskID uuid.UUID, subtask domain.Subtask) error {
	return s.updateTask(ctx, taskID, bson.M{
		"$push": bson.M{"subtasks": toSubtaskDoc(subtask)},
		"$set":  bson.M{"last_activity": subtask.CreatedAt, "updated_at": subtask.CreatedAt},
	})
}

func (s *TaskStore) UpdateSubtask(ctx context.Context, taskID uuid.UUID, subtask domain.Subtask) error {
	result, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": taskID.String(), "subtasks.id": subtask.ID.String()},
		bson.M{"$set": bson.M{
			"subtasks.$.title":     subtask.Title,
			"subtasks.$.completed": subtask.Completed,
		}})
	if err != nil {
		return fmt.Errorf("failed to update subtask: %w", MapError(err))
	}
	if result.MatchedCount == 0 {
		return store.ErrSubtaskNotFound
	}
	return nil
}

func (s *TaskStore) Count(ctx context.Context, filter store.TaskFilter) (int, error) {
	n, err := s.coll.CountDocuments(ctx, taskFilterDoc(filter))
	if err != nil {
		return 0, fmt.Errorf("failed to count tasks: %w", MapError(err))
	}
	return int(n), nil
}

var groupKeys = map[store.GroupField]string{
	store.GroupByStatus:   "$status",
	store.GroupByPriority: "$priority",
}

func (s *TaskStore) CountBy(ctx context.Context, filter store.TaskFilter, field store.GroupField) (map[string]int, error) {
	key, ok := groupKeys[field]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported group field %q", store.ErrInvalidEntity, field)
	}

	pipeline := mongodriver.Pipeline{
		{{Key: "$match", Value: taskFilterDoc(filter)}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: key},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}
	cur, err := s.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to group tasks: %w", MapError(err))
	}

	var groups []struct {
		ID    string `bson:"_id"`
		Count int    `bson:"count"`
	}
	if err := cur.All(ctx, &groups); err != nil {
		return nil, fmt.Errorf("failed to decode groups: %w", err)
	}

	counts := make(map[string]int, len(groups))
	for _, g := range groups {
		counts[g.ID] = g.Count
	}
	return counts, nil
}

func (s *TaskStore) UnassignOpen(ctx context.Context, userID uuid.UUID) (int, error) {
	result, err := s.coll.UpdateMany(ctx,
		unassignFilter(userID),
		bson.M{"$set": bson.M{"assigned_to": nil, "updated_at": s.now().UTC()}})
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to unassign tasks",
			slog.String("user_id", userID.String()), slog.Any("error", err))
		return 0, fmt.Errorf("failed to unassign tasks: %w", MapError(err))
	}
	return int(result.ModifiedCount), nil
}
