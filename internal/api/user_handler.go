package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/api/shared"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/platform/logger"
	"github.com/phrazzld/taskflow-api/internal/service"
	"github.com/phrazzld/taskflow-api/internal/store"
)

// OnlineLister reports which users have a live realtime connection.
type OnlineLister interface {
	OnlineUsers(ctx context.Context) ([]uuid.UUID, error)
}

// UserHandler handles the user directory endpoints.
type UserHandler struct {
	users    service.UserService
	stats    service.StatsService
	presence OnlineLister
	logger   *slog.Logger
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(
	users service.UserService,
	stats service.StatsService,
	presence OnlineLister,
	log *slog.Logger,
) *UserHandler {
	if log == nil {
		log = slog.Default()
	}
	return &UserHandler{
		users:    users,
		stats:    stats,
		presence: presence,
		logger:   log.With("component", "user_handler"),
	}
}

// List handles GET /api/users.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	page, errs := pageFromQuery(r, "name", store.ParseUserSort)
	if errs != nil {
		shared.RespondWithValidationErrors(w, r, errs)
		return
	}
	filter, errs := userFilterFrom(r)
	if errs != nil {
		shared.RespondWithValidationErrors(w, r, errs)
		return
	}

	users, total, err := h.users.ListUsers(r.Context(), filter, page)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list users")
		return
	}

	pagination := newPagination(page, len(users), total)
	pagination.TotalUsers = &total
	shared.RespondWithData(w, r, http.StatusOK, map[string]any{
		"users":      nonNilUsers(users),
		"pagination": pagination,
	})
}

func userFilterFrom(r *http.Request) (store.UserFilter, []shared.FieldError) {
	v := r.URL.Query()
	filter := store.UserFilter{
		Search: strings.TrimSpace(v.Get("search")),
		Role:   domain.Role(v.Get("role")),
	}
	var errs []shared.FieldError
	if filter.Role != "" && !filter.Role.Valid() {
		errs = append(errs, shared.FieldError{Field: "role", Message: "role is invalid", Value: string(filter.Role)})
	}
	if raw := v.Get("isActive"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			errs = append(errs, shared.FieldError{Field: "isActive", Message: "isActive must be true or false", Value: raw})
		} else {
			filter.Active = &active
		}
	}
	return filter, errs
}

// Active handles GET /api/users/active.
func (h *UserHandler) Active(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.ListActive(r.Context())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list users")
		return
	}
	shared.RespondWithData(w, r, http.StatusOK, map[string]any{"users": nonNilUsers(users)})
}

// Search handles GET /api/users/search.
func (h *UserHandler) Search(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.SearchUsers(r.Context(), r.URL.Query().Get("q"), queryInt(r, "limit", store.DefaultLimit))
	if err != nil {
		HandleAPIError(w, r, err, "Failed to search users")
		return
	}
	shared.RespondWithData(w, r, http.StatusOK, map[string]any{"users": nonNilUsers(users)})
}

// Online handles GET /api/users/online.
func (h *UserHandler) Online(w http.ResponseWriter, r *http.Request) {
	ids, err := h.presence.OnlineUsers(r.Context())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list online users")
		return
	}
	if ids == nil {
		ids = []uuid.UUID{}
	}
	shared.RespondWithData(w, r, http.StatusOK, map[string]any{"userIds": ids, "count": len(ids)})
}

// Get handles GET /api/users/{id}.
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	user, err := h.users.GetUser(r.Context(), id)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load user")
		return
	}
	shared.RespondWithData(w, r, http.StatusOK, map[string]any{"user": user})
}

// Update handles PUT /api/users/{id}.
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	p, id, ok := principalAndPathUUID(w, r, "id")
	if !ok {
		return
	}
	var req UpdateUserRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	user, err := h.users.UpdateUser(r.Context(), p, id, req.toUpdate())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to update user")
		return
	}
	shared.RespondWithMessage(w, r, http.StatusOK, "User updated successfully", map[string]any{"user": user})
}

// Delete handles DELETE /api/users/{id}. The account is deactivated and its
// open tasks are unassigned.
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	p, id, ok := principalAndPathUUID(w, r, "id")
	if !ok {
		return
	}
	unassigned, err := h.users.DeactivateUser(r.Context(), p, id)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to deactivate user")
		return
	}
	logger.FromContextOrDefault(r.Context(), h.logger).Info("user deactivated",
		"user_id", id, "by", p.UserID, "tasks_unassigned", unassigned)
	shared.RespondWithMessage(w, r, http.StatusOK, "User deactivated successfully",
		map[string]any{"tasksUnassigned": unassigned})
}

// Stats handles GET /api/users/{id}/stats.
func (h *UserHandler) Stats(w http.ResponseWriter, r *http.Request) {
	p, id, ok := principalAndPathUUID(w, r, "id")
	if !ok {
		return
	}
	user, stats, err := h.stats.UserStats(r.Context(), p, id)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load user statistics")
		return
	}
	shared.RespondWithData(w, r, http.StatusOK, map[string]any{"user": user, "stats": stats})
}
