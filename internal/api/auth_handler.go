package api

import (
	"log/slog"
	"net/http"

	"github.com/phrazzld/taskflow-api/internal/api/shared"
	"github.com/phrazzld/taskflow-api/internal/platform/logger"
	"github.com/phrazzld/taskflow-api/internal/redact"
	"github.com/phrazzld/taskflow-api/internal/service"
	"github.com/phrazzld/taskflow-api/internal/service/auth"
)

// AuthHandler handles account endpoints of the signed-in user.
type AuthHandler struct {
	users      service.UserService
	stats      service.StatsService
	jwtService auth.JWTService
	logger     *slog.Logger
}

// NewAuthHandler creates a new AuthHandler with the given dependencies.
func NewAuthHandler(
	users service.UserService,
	stats service.StatsService,
	jwtService auth.JWTService,
	log *slog.Logger,
) *AuthHandler {
	if log == nil {
		log = slog.Default()
	}
	return &AuthHandler{
		users:      users,
		stats:      stats,
		jwtService: jwtService,
		logger:     log.With("component", "auth_handler"),
	}
}

func (h *AuthHandler) log(r *http.Request) *slog.Logger {
	return logger.FromContextOrDefault(r.Context(), h.logger)
}

// Register handles POST /api/auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	user, err := h.users.Register(r.Context(), service.RegisterInput{
		Name:       req.Name,
		Email:      req.Email,
		Password:   req.Password,
		Department: req.Department,
		Phone:      req.Phone,
	})
	if err != nil {
		HandleAPIError(w, r, err, "Failed to register user")
		return
	}

	token, err := h.jwtService.GenerateToken(r.Context(), user.ID)
	if err != nil {
		h.log(r).Error("failed to generate token", "user_id", user.ID, redact.Attr(err))
		HandleAPIError(w, r, err, "Failed to generate authentication token")
		return
	}

	h.log(r).Info("user registered", "user_id", user.ID)
	shared.RespondWithMessage(w, r, http.StatusCreated, "User registered successfully",
		AuthResponse{Token: token, User: user})
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	user, err := h.users.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to authenticate user")
		return
	}

	token, err := h.jwtService.GenerateToken(r.Context(), user.ID)
	if err != nil {
		h.log(r).Error("failed to generate token", "user_id", user.ID, redact.Attr(err))
		HandleAPIError(w, r, err, "Failed to generate authentication token")
		return
	}

	shared.RespondWithMessage(w, r, http.StatusOK, "Login successful",
		AuthResponse{Token: token, User: user})
}

// Me handles GET /api/auth/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	shared.RespondWithData(w, r, http.StatusOK, map[string]any{"user": user})
}

// UpdateMe handles PUT /api/auth/me.
func (h *AuthHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	p, ok := currentPrincipal(w, r)
	if !ok {
		return
	}
	var req UpdateProfileRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	user, err := h.users.UpdateUser(r.Context(), p, p.UserID, req.toUpdate())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to update profile")
		return
	}
	shared.RespondWithMessage(w, r, http.StatusOK, "Profile updated successfully",
		map[string]any{"user": user})
}

// UpdatePreferences handles PUT /api/auth/preferences.
func (h *AuthHandler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	p, ok := currentPrincipal(w, r)
	if !ok {
		return
	}
	var req PreferencesRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	prefs, err := h.users.UpdatePreferences(r.Context(), p.UserID, req.toUpdate())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to update preferences")
		return
	}
	shared.RespondWithMessage(w, r, http.StatusOK, "Preferences updated successfully",
		map[string]any{"preferences": prefs})
}

// ChangePassword handles PUT /api/auth/change-password.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	p, ok := currentPrincipal(w, r)
	if !ok {
		return
	}
	var req ChangePasswordRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.users.ChangePassword(r.Context(), p.UserID, req.CurrentPassword, req.NewPassword); err != nil {
		HandleAPIError(w, r, err, "Failed to change password")
		return
	}
	shared.RespondWithMessage(w, r, http.StatusOK, "Password changed successfully", nil)
}

// Logout handles POST /api/auth/logout. Tokens are stateless, so the client
// discards its copy.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if _, ok := currentUser(w, r); !ok {
		return
	}
	shared.RespondWithMessage(w, r, http.StatusOK, "Logged out successfully", nil)
}

// Stats handles GET /api/auth/stats.
func (h *AuthHandler) Stats(w http.ResponseWriter, r *http.Request) {
	p, ok := currentPrincipal(w, r)
	if !ok {
		return
	}
	stats, err := h.stats.PersonalStats(r.Context(), p.UserID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load statistics")
		return
	}
	shared.RespondWithData(w, r, http.StatusOK, map[string]any{"stats": stats})
}
