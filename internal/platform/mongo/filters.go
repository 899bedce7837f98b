package mongo

import (
	"regexp"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/store"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func containsRegex(s string) primitive.Regex {
	return primitive.Regex{Pattern: regexp.QuoteMeta(s), Options: "i"}
}

func statusValues(statuses []domain.TaskStatus) bson.A {
	out := make(bson.A, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

func taskFilterDoc(f store.TaskFilter) bson.M {
	m := bson.M{}
	if !f.IncludeArchived {
		m["is_archived"] = false
	}
	var and bson.A
	if f.VisibleTo != nil {
		id := f.VisibleTo.String()
		and = append(and, bson.M{"$or": bson.A{
			bson.M{"created_by": id},
			bson.M{"assigned_to": id},
		}})
	}
	if f.CreatedBy != nil {
		m["created_by"] = f.CreatedBy.String()
	}
	if f.AssignedTo != nil {
		m["assigned_to"] = f.AssignedTo.String()
	}
	status := bson.M{}
	if len(f.Statuses) > 0 {
		status["$in"] = statusValues(f.Statuses)
	}
	if len(f.ExcludeStatuses) > 0 {
		status["$nin"] = statusValues(f.ExcludeStatuses)
	}
	if len(status) > 0 {
		m["status"] = status
	}
	if f.Priority != "" {
		m["priority"] = string(f.Priority)
	}
	if f.Category != "" {
		m["category"] = string(f.Category)
	}
	if f.Search != "" {
		re := containsRegex(f.Search)
		and = append(and, bson.M{"$or": bson.A{
			bson.M{"title": re},
			bson.M{"description": re},
		}})
	}
	if f.DueBefore != nil {
		m["due_date"] = bson.M{"$lt": *f.DueBefore}
	}
	if f.CreatedAfter != nil {
		m["created_at"] = bson.M{"$gte": *f.CreatedAfter}
	}
	if len(and) > 0 {
		m["$and"] = and
	}
	return m
}

func userFilterDoc(f store.UserFilter) bson.M {
	m := bson.M{}
	if f.Search != "" {
		re := containsRegex(f.Search)
		m["$or"] = bson.A{
			bson.M{"name": re},
			bson.M{"email": re},
			bson.M{"department": re},
		}
	}
	if f.Role != "" {
		m["role"] = string(f.Role)
	}
	if f.Active != nil {
		m["is_active"] = *f.Active
	}
	return m
}

var taskSortKeys = map[store.SortField]string{
	store.SortCreatedAt: "created_at",
	store.SortUpdatedAt: "updated_at",
	store.SortDueDate:   "due_date",
	store.SortPriority:  "priority_rank",
	store.SortTitle:     "title",
	store.SortStatus:    "status",
}

var userSortKeys = map[store.SortField]string{
	store.SortName:      "name",
	store.SortCreatedAt: "created_at",
}

func sortDoc(page store.Page, keys map[store.SortField]string, fallback string, fallbackDesc bool) bson.D {
	key, ok := keys[page.Sort]
	desc := page.Desc
	if !ok {
		key, desc = fallback, fallbackDesc
	}
	dir := 1
	if desc {
		dir = -1
	}
	return bson.D{{Key: key, Value: dir}, {Key: "_id", Value: dir}}
}

func findOptions(page store.Page, sort bson.D) *options.FindOptions {
	opts := options.Find().SetSort(sort)
	if page.Limit > 0 {
		opts.SetSkip(int64(page.Offset())).SetLimit(int64(page.Limit))
	}
	return opts
}

// unassignFilter matches the tasks of userID that are not completed.
func unassignFilter(userID uuid.UUID) bson.M {
	return bson.M{
		"assigned_to": userID.String(),
		"status":      bson.M{"$ne": string(domain.StatusCompleted)},
	}
}
