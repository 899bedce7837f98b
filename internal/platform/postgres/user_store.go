package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/platform/logger"
	"github.com/phrazzld/taskflow-api/internal/store"
)

const userColumns = `id, name, email, hashed_password, role, avatar, department, phone,
	is_active, last_login, teams, preferences, created_at, updated_at`

// PostgresUserStore implements store.UserStore on PostgreSQL.
type PostgresUserStore struct {
	db     store.DBTX
	logger *slog.Logger
}

var _ store.UserStore = (*PostgresUserStore)(nil)

// NewPostgresUserStore creates a user store over db, which may be a *sql.DB
// or a *sql.Tx.
func NewPostgresUserStore(db store.DBTX, logger *slog.Logger) *PostgresUserStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresUserStore{db: db, logger: logger.With("component", "user_store")}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*domain.User, error) {
	var (
		u         domain.User
		lastLogin sql.NullTime
		teams     []byte
		prefs     []byte
	)
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.HashedPassword, &u.Role, &u.Avatar,
		&u.Department, &u.Phone, &u.IsActive, &lastLogin, &teams, &prefs,
		&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if lastLogin.Valid {
		t := lastLogin.Time.UTC()
		u.LastLogin = &t
	}
	u.Teams = []uuid.UUID{}
	if len(teams) > 0 {
		if err := json.Unmarshal(teams, &u.Teams); err != nil {
			return nil, fmt.Errorf("failed to decode teams: %w", err)
		}
	}
	u.Preferences = domain.DefaultPreferences()
	if len(prefs) > 0 {
		if err := json.Unmarshal(prefs, &u.Preferences); err != nil {
			return nil, fmt.Errorf("failed to decode preferences: %w", err)
		}
	}
	return &u, nil
}

func encodeUserJSON(u *domain.User) (teams, prefs []byte, err error) {
	t := u.Teams
	if t == nil {
		t = []uuid.UUID{}
	}
	if teams, err = json.Marshal(t); err != nil {
		return nil, nil, fmt.Errorf("failed to encode teams: %w", err)
	}
	if prefs, err = json.Marshal(u.Preferences); err != nil {
		return nil, nil, fmt.Errorf("failed to encode preferences: %w", err)
	}
	return teams, prefs, nil
}

// Create implements store.UserStore.
func (s *PostgresUserStore) Create(ctx context.Context, user *domain.User) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	teams, prefs, err := encodeUserJSON(user)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		user.ID, user.Name, user.Email, user.HashedPassword, string(user.Role),
		user.Avatar, user.Department, user.Phone, user.IsActive, user.LastLogin,
		teams, prefs, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		mapped := MapError(err)
		if errors.Is(mapped, store.ErrEmailExists) {
			log.Debug("email already registered", slog.String("user_id", user.ID.String()))
			return store.ErrEmailExists
		}
		log.Error("failed to insert user", slog.String("user_id", user.ID.String()), slog.Any("error", err))
		return fmt.Errorf("failed to create user: %w", mapped)
	}
	return nil
}

// GetByID implements store.UserStore.
func (s *PostgresUserStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return s.getOne(ctx, row, slog.String("user_id", id.String()))
}

// GetByEmail implements store.UserStore.
func (s *PostgresUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`,
		domain.NormalizeEmail(email))
	return s.getOne(ctx, row, slog.String("lookup", "email"))
}

func (s *PostgresUserStore) getOne(ctx context.Context, row *sql.Row, attr slog.Attr) (*domain.User, error) {
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrUserNotFound
		}
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to load user", attr, slog.Any("error", err))
		return nil, fmt.Errorf("failed to get user: %w", MapError(err))
	}
	return user, nil
}

// Update implements store.UserStore.
func (s *PostgresUserStore) Update(ctx context.Context, user *domain.User) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	teams, prefs, err := encodeUserJSON(user)
	if err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET name = $2, email = $3, hashed_password = $4, role = $5, avatar = $6,
			department = $7, phone = $8, is_active = $9, last_login = $10,
			teams = $11, preferences = $12, updated_at = $13
		WHERE id = $1`,
		user.ID, user.Name, user.Email, user.HashedPassword, string(user.Role),
		user.Avatar, user.Department, user.Phone, user.IsActive, user.LastLogin,
		teams, prefs, user.UpdatedAt,
	)
	if err != nil {
		mapped := MapError(err)
		if errors.Is(mapped, store.ErrEmailExists) {
			return store.ErrEmailExists
		}
		log.Error("failed to update user", slog.String("user_id", user.ID.String()), slog.Any("error", err))
		return fmt.Errorf("failed to update user: %w", mapped)
	}
	return checkRowsAffected(result, store.ErrUserNotFound)
}

// List implements store.UserStore.
func (s *PostgresUserStore) List(ctx context.Context, filter store.UserFilter, page store.Page) ([]*domain.User, int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	where := buildUserWhere(filter)
	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`+where.clause(), where.args...).Scan(&total); err != nil {
		log.Error("failed to count users", slog.Any("error", err))
		return nil, 0, fmt.Errorf("failed to count users: %w", MapError(err))
	}

	query := `SELECT ` + userColumns + ` FROM users` + where.clause() + userOrderBy(page) + where.limit(page)
	rows, err := s.db.QueryContext(ctx, query, where.args...)
	if err != nil {
		log.Error("failed to list users", slog.Any("error", err))
		return nil, 0, fmt.Errorf("failed to list users: %w", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	users := make([]*domain.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating user rows: %w", err)
	}
	return users, total, nil
}
