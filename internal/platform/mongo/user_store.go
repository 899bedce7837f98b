package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/platform/logger"
	"github.com/phrazzld/taskflow-api/internal/store"
	"go.mongodb.org/mongo-driver/bson"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
)

// UserStore implements store.UserStore on a MongoDB collection.
type UserStore struct {
	coll   *mongodriver.Collection
	logger *slog.Logger
}

var _ store.UserStore = (*UserStore)(nil)

// NewUserStore creates a user store on db's users collection.
func NewUserStore(db *mongodriver.Database, logger *slog.Logger) *UserStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &UserStore{coll: db.Collection(UsersCollection), logger: logger.With("component", "user_store")}
}

func (s *UserStore) Create(ctx context.Context, user *domain.User) error {
	if _, err := s.coll.InsertOne(ctx, toUserDoc(user)); err != nil {
		if mongodriver.IsDuplicateKeyError(err) {
			return store.ErrEmailExists
		}
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to insert user",
			slog.String("user_id", user.ID.String()), slog.Any("error", err))
		return fmt.Errorf("failed to create user: %w", MapError(err))
	}
	return nil
}

func (s *UserStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return s.findOne(ctx, bson.M{"_id": id.String()})
}

func (s *UserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.findOne(ctx, bson.M{"email": domain.NormalizeEmail(email)})
}

func (s *UserStore) findOne(ctx context.Context, filter bson.M) (*domain.User, error) {
	var doc userDoc
	if err := s.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongodriver.ErrNoDocuments) {
			return nil, store.ErrUserNotFound
		}
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to load user", slog.Any("error", err))
		return nil, fmt.Errorf("failed to get user: %w", MapError(err))
	}
	return doc.toDomain()
}

func (s *UserStore) Update(ctx context.Context, user *domain.User) error {
	doc := toUserDoc(user)
	result, err := s.coll.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc)
	if err != nil {
		if mongodriver.IsDuplicateKeyError(err) {
			return store.ErrEmailExists
		}
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to update user",
			slog.String("user_id", doc.ID), slog.Any("error", err))
		return fmt.Errorf("failed to update user: %w", MapError(err))
	}
	if result.MatchedCount == 0 {
		return store.ErrUserNotFound
	}
	return nil
}

func (s *UserStore) List(ctx context.Context, filter store.UserFilter, page store.Page) ([]*domain.User, int, error) {
	f := userFilterDoc(filter)
	total, err := s.coll.CountDocuments(ctx, f)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", MapError(err))
	}

	cur, err := s.coll.Find(ctx, f, findOptions(page, sortDoc(page, userSortKeys, "name", false)))
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to list users", slog.Any("error", err))
		return nil, 0, fmt.Errorf("failed to list users: %w", MapError(err))
	}
	var docs []userDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, 0, fmt.Errorf("failed to decode users: %w", err)
	}

	users := make([]*domain.User, 0, len(docs))
	for _, d := range docs {
		u, err := d.toDomain()
		if err != nil {
			return nil, 0, err
		}
		users = append(users, u)
	}
	return users, int(total), nil
}
