package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/phrazzld/taskflow-api/internal/config"
	"github.com/phrazzld/taskflow-api/internal/events"
	"github.com/phrazzld/taskflow-api/internal/platform/mongo"
	"github.com/phrazzld/taskflow-api/internal/platform/postgres"
	"github.com/phrazzld/taskflow-api/internal/platform/redis"
	"github.com/phrazzld/taskflow-api/internal/realtime"
	"github.com/phrazzld/taskflow-api/internal/service"
	"github.com/phrazzld/taskflow-api/internal/service/auth"
	"github.com/phrazzld/taskflow-api/internal/store"
	goredis "github.com/redis/go-redis/v9"
)

// application holds the shared dependencies and owns their shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger

	repo  store.Repository
	redis *goredis.Client

	jwtService   auth.JWTService
	userService  service.UserService
	taskService  service.TaskService
	statsService service.StatsService

	eventEmitter *events.InMemoryEventEmitter
	gateway      *realtime.Gateway
}

// newApplication connects the configured backends and wires the services,
// the event emitter and the realtime gateway.
func newApplication(ctx context.Context, cfg *config.Config, lg *slog.Logger) (*application, error) {
	app := &application{config: cfg, logger: lg}

	repo, err := openRepository(ctx, cfg.Database, lg)
	if err != nil {
		return nil, err
	}
	app.repo = repo

	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		app.cleanup(ctx)
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}
	lg.Info("JWT authentication service initialized",
		"token_lifetime_minutes", cfg.Auth.TokenLifetimeMinutes)

	var presence realtime.PresenceStore
	if cfg.Redis.Enabled {
		app.redis, err = redis.NewClient(ctx, cfg.Redis)
		if err != nil {
			app.cleanup(ctx)
			return nil, err
		}
		presence = redis.NewPresenceStore(app.redis, cfg.Redis.PresenceTTL)
		lg.Info("Redis presence store enabled", "addr", cfg.Redis.Addr)
	}

	app.eventEmitter = events.NewInMemoryEventEmitter(lg)
	app.userService = service.NewUserService(repo, auth.NewBcryptHasher(cfg.Auth.BcryptCost), lg)
	app.taskService = service.NewTaskService(repo, app.eventEmitter, lg)
	app.statsService = service.NewStatsService(repo, lg)

	app.gateway, err = realtime.NewGateway(cfg.Realtime, app.jwtService, app.userService,
		repo.Tasks(), presence, lg)
	if err != nil {
		app.cleanup(ctx)
		return nil, fmt.Errorf("failed to create realtime gateway: %w", err)
	}
	app.eventEmitter.RegisterHandler(app.gateway)

	lg.Info("Application initialized successfully")
	return app, nil
}

// openRepository connects the store backend named by cfg.Driver.
func openRepository(ctx context.Context, cfg config.DatabaseConfig, lg *slog.Logger) (store.Repository, error) {
	switch cfg.Driver {
	case "mongo":
		client, db, err := mongo.Connect(ctx, cfg)
		if err != nil {
			return nil, err
		}
		if err := mongo.EnsureIndexes(ctx, db, lg); err != nil {
			_ = client.Disconnect(ctx)
			return nil, err
		}
		lg.Info("MongoDB connection established", "database", cfg.MongoDatabase)
		return mongo.NewRepository(client, db, lg), nil
	case "postgres":
		db, err := postgres.Open(ctx, cfg)
		if err != nil {
			return nil, err
		}
		lg.Info("Database connection established")
		return postgres.NewRepository(db, lg), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (app *application) Run(ctx context.Context) error {
	router := app.setupRouter()
	if err := app.startHTTPServer(ctx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup releases the gateway, Redis and the repository.
func (app *application) cleanup(ctx context.Context) {
	if app.gateway != nil {
		app.gateway.Close(ctx)
	}
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Error("Error closing redis connection", "error", err)
		}
	}
	if app.repo != nil {
		if err := app.repo.Close(ctx); err != nil {
			app.logger.Error("Error closing database connection", "error", err)
		}
	}
	app.logger.Info("Application shutdown completed")
}
