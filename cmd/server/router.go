package main

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/taskflow-api/internal/api"
	apiMiddleware "github.com/phrazzld/taskflow-api/internal/api/middleware"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/realtime"
)

// apiRequestTimeout bounds REST handlers. Websocket routes are long-lived and
// sit outside it.
const apiRequestTimeout = 30 * time.Second

// setupRouter registers the REST routes, the websocket endpoints and the
// health check.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.NewTraceMiddleware(app.logger))

	authHandler := api.NewAuthHandler(app.userService, app.statsService, app.jwtService, app.logger)
	taskHandler := api.NewTaskHandler(app.taskService, app.statsService, app.logger)
	userHandler := api.NewUserHandler(app.userService, app.statsService, app.gateway, app.logger)
	authMiddleware := apiMiddleware.NewAuthMiddleware(app.jwtService, app.userService)
	managers := apiMiddleware.RequireRole(domain.RoleManager, domain.RoleAdmin)
	admins := apiMiddleware.RequireRole(domain.RoleAdmin)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(apiRequestTimeout))
		if rl := app.config.Server.RateLimit; rl.Requests > 0 {
			r.Use(apiMiddleware.NewRateLimiter(rl.Requests, rl.Window).Middleware)
		}

		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)

			r.Get("/auth/me", authHandler.Me)
			r.Put("/auth/me", authHandler.UpdateMe)
			r.Put("/auth/preferences", authHandler.UpdatePreferences)
			r.Put("/auth/change-password", authHandler.ChangePassword)
			r.Post("/auth/logout", authHandler.Logout)
			r.Get("/auth/stats", authHandler.Stats)

			r.Route("/tasks", func(r chi.Router) {
				r.Get("/", taskHandler.List)
				r.Post("/", taskHandler.Create)
				r.Get("/stats", taskHandler.Stats)
				r.Get("/{id}", taskHandler.Get)
				r.Put("/{id}", taskHandler.Update)
				r.Delete("/{id}", taskHandler.Delete)
				r.Post("/{id}/comments", taskHandler.AddComment)
				r.Post("/{id}/subtasks", taskHandler.AddSubtask)
				r.Put("/{id}/subtasks/{subtaskId}", taskHandler.UpdateSubtask)
			})

			r.Route("/users", func(r chi.Router) {
				r.Get("/active", userHandler.Active)
				r.Get("/search", userHandler.Search)
				r.Get("/online", userHandler.Online)
				r.Get("/{id}", userHandler.Get)
				r.Put("/{id}", userHandler.Update)
				r.Get("/{id}/stats", userHandler.Stats)
				r.With(managers).Get("/", userHandler.List)
				r.With(admins).Delete("/{id}", userHandler.Delete)
			})
		})
	})

	ws := realtime.NewHandler(app.gateway)
	r.Handle("/ws", ws)
	r.Handle("/socket", ws)

	r.Method(http.MethodGet, "/health", api.NewHealthHandler(app.repo))

	return r
}
