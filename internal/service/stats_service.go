package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/access"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/store"
	"golang.org/x/sync/errgroup"
)

// DefaultStatsTimeframeDays is the window counted as "recent" when the
// caller does not choose one.
const DefaultStatsTimeframeDays = 30

// TaskStats summarises the tasks visible to a user.
type TaskStats struct {
	Total          int            `json:"total"`
	Completed      int            `json:"completed"`
	InProgress     int            `json:"inProgress"`
	Overdue        int            `json:"overdue"`
	Recent         int            `json:"recent"`
	CompletionRate int            `json:"completionRate"`
	ByPriority     map[string]int `json:"byPriority"`
	ByStatus       map[string]int `json:"byStatus"`
}

// UserStats summarises the workload of one user.
type UserStats struct {
	TasksAssigned   int            `json:"tasksAssigned"`
	TasksCompleted  int            `json:"tasksCompleted"`
	TasksOverdue    int            `json:"tasksOverdue"`
	TasksInProgress int            `json:"tasksInProgress"`
	TasksCreated    int            `json:"tasksCreated"`
	CompletionRate  int            `json:"completionRate"`
	TasksByPriority map[string]int `json:"tasksByPriority"`
}

// PersonalStats is the dashboard summary of the signed-in user.
type PersonalStats struct {
	TotalTasks     int `json:"totalTasks"`
	CompletedTasks int `json:"completedTasks"`
	AssignedTasks  int `json:"assignedTasks"`
	OverdueTasks   int `json:"overdueTasks"`
	CompletionRate int `json:"completionRate"`
}

// StatsService computes task aggregates. Independent counts run concurrently.
type StatsService interface {
	// TaskStats covers the tasks actor may view; timeframeDays bounds Recent.
	TaskStats(ctx context.Context, actor access.Principal, timeframeDays int) (*TaskStats, error)

	// UserStats returns targetID's profile and workload.
	UserStats(ctx context.Context, actor access.Principal, targetID uuid.UUID) (*domain.User, *UserStats, error)

	PersonalStats(ctx context.Context, userID uuid.UUID) (*PersonalStats, error)
}

// StatsServiceImpl implements StatsService.
type StatsServiceImpl struct {
	repo   store.Repository
	logger *slog.Logger
	now    func() time.Time
}

var _ StatsService = (*StatsServiceImpl)(nil)

// NewStatsService creates a new StatsService.
func NewStatsService(repo store.Repository, logger *slog.Logger) *StatsServiceImpl {
	return &StatsServiceImpl{
		repo:   repo,
		logger: logger.With("component", "stats_service"),
		now:    time.Now,
	}
}

var closedStatuses = []domain.TaskStatus{domain.StatusCompleted, domain.StatusCancelled}

// TaskStats counts the tasks visible to actor.
func (s *StatsServiceImpl) TaskStats(ctx context.Context, actor access.Principal, timeframeDays int) (*TaskStats, error) {
	if timeframeDays <= 0 {
		timeframeDays = DefaultStatsTimeframeDays
	}
	now := s.now().UTC()
	since := now.AddDate(0, 0, -timeframeDays)

	base := store.TaskFilter{}
	if !actor.Role.IsPrivileged() {
		id := actor.UserID
		base.VisibleTo = &id
	}

	with := func(mod func(f *store.TaskFilter)) store.TaskFilter {
		f := base
		mod(&f)
		return f
	}

	stats := &TaskStats{}
	tasks := s.repo.Tasks()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		stats.Total, err = tasks.Count(gctx, base)
		return err
	})
	g.Go(func() (err error) {
		stats.Completed, err = tasks.Count(gctx, with(func(f *store.TaskFilter) {
			f.Statuses = []domain.TaskStatus{domain.StatusCompleted}
		}))
		return err
	})
	g.Go(func() (err error) {
		stats.InProgress, err = tasks.Count(gctx, with(func(f *store.TaskFilter) {
			f.Statuses = []domain.TaskStatus{domain.StatusInProgress}
		}))
		return err
	})
	g.Go(func() (err error) {
		stats.Overdue, err = tasks.Count(gctx, with(func(f *store.TaskFilter) {
			f.DueBefore = &now
			f.ExcludeStatuses = closedStatuses
		}))
		return err
	})
	g.Go(func() (err error) {
		stats.Recent, err = tasks.Count(gctx, with(func(f *store.TaskFilter) {
			f.CreatedAfter = &since
		}))
		return err
	})
	g.Go(func() (err error) {
		stats.ByPriority, err = tasks.CountBy(gctx, base, store.GroupByPriority)
		return err
	})
	g.Go(func() (err error) {
		stats.ByStatus, err = tasks.CountBy(gctx, base, store.GroupByStatus)
		return err
	})

	if err := g.Wait(); err != nil {
		s.logger.Error("failed to compute task stats", "error", err, "user_id", actor.UserID)
		return nil, newServiceError("stats", "task_stats", err)
	}

	stats.CompletionRate = completionRate(stats.Completed, stats.Total)
	return stats, nil
}

// UserStats reports on targetID's assigned and created tasks.
func (s *StatsServiceImpl) UserStats(
	ctx context.Context,
	actor access.Principal,
	targetID uuid.UUID,
) (*domain.User, *UserStats, error) {
	if err := access.AuthorizeViewUserStats(actor, targetID); err != nil {
		return nil, nil, err
	}

	now := s.now().UTC()
	assigned := store.TaskFilter{AssignedTo: &targetID}
	with := func(mod func(f *store.TaskFilter)) store.TaskFilter {
		f := assigned
		mod(&f)
		return f
	}

	var user *domain.User
	stats := &UserStats{}
	tasks := s.repo.Tasks()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		user, err = s.repo.Users().GetByID(gctx, targetID)
		return err
	})
	g.Go(func() (err error) {
		stats.TasksAssigned, err = tasks.Count(gctx, assigned)
		return err
	})
	g.Go(func() (err error) {
		stats.TasksCompleted, err = tasks.Count(gctx, with(func(f *store.TaskFilter) {
			f.Statuses = []domain.TaskStatus{domain.StatusCompleted}
		}))
		return err
	})
	g.Go(func() (err error) {
		stats.TasksOverdue, err = tasks.Count(gctx, with(func(f *store.TaskFilter) {
			f.DueBefore = &now
			f.ExcludeStatuses = closedStatuses
		}))
		return err
	})
	g.Go(func() (err error) {
		stats.TasksInProgress, err = tasks.Count(gctx, with(func(f *store.TaskFilter) {
			f.Statuses = []domain.TaskStatus{domain.StatusInProgress}
		}))
		return err
	})
	g.Go(func() (err error) {
		stats.TasksCreated, err = tasks.Count(gctx, store.TaskFilter{CreatedBy: &targetID})
		return err
	})
	g.Go(func() (err error) {
		stats.TasksByPriority, err = tasks.CountBy(gctx, assigned, store.GroupByPriority)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, nil, fmt.Errorf("failed to compute user stats: %w", err)
	}

	stats.CompletionRate = completionRate(stats.TasksCompleted, stats.TasksAssigned)
	return user, stats, nil
}

// PersonalStats counts every task userID created or is assigned to,
// archived ones included.
func (s *StatsServiceImpl) PersonalStats(ctx context.Context, userID uuid.UUID) (*PersonalStats, error) {
	now := s.now().UTC()
	involved := store.TaskFilter{VisibleTo: &userID, IncludeArchived: true}

	stats := &PersonalStats{}
	tasks := s.repo.Tasks()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		stats.TotalTasks, err = tasks.Count(gctx, involved)
		return err
	})
	g.Go(func() (err error) {
		f := involved
		f.Statuses = []domain.TaskStatus{domain.StatusCompleted}
		stats.CompletedTasks, err = tasks.Count(gctx, f)
		return err
	})
	g.Go(func() (err error) {
		stats.AssignedTasks, err = tasks.Count(gctx, store.TaskFilter{
			AssignedTo:      &userID,
			ExcludeStatuses: []domain.TaskStatus{domain.StatusCompleted},
			IncludeArchived: true,
		})
		return err
	})
	g.Go(func() (err error) {
		stats.OverdueTasks, err = tasks.Count(gctx, store.TaskFilter{
			AssignedTo:      &userID,
			DueBefore:       &now,
			ExcludeStatuses: closedStatuses,
			IncludeArchived: true,
		})
		return err
	})

	if err := g.Wait(); err != nil {
		s.logger.Error("failed to compute personal stats", "error", err, "user_id", userID)
		return nil, newServiceError("stats", "personal_stats", err)
	}

	stats.CompletionRate = completionRate(stats.CompletedTasks, stats.TotalTasks)
	return stats, nil
}

func completionRate(done, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(done) / float64(total) * 100))
}
