package reminder

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/taskboard/backend/domain"
	"github.com/taskboard/backend/repository"
)

const sweepTimeout = 30 * time.Second

// OverdueNotifier records an overdue reminder for a task's assignee.
type OverdueNotifier interface {
	TaskOverdue(ctx context.Context, task *domain.Task) error
}

// Sweeper periodically scans for overdue tasks and pushes reminders
// to their assignees.
type Sweeper struct {
	tasks    repository.TaskRepository
	notifier OverdueNotifier
	logger   *zap.Logger
	cron     *cron.Cron
	schedule string
}

func NewSweeper(tasks repository.TaskRepository, notifier OverdueNotifier, schedule string, logger *zap.Logger) *Sweeper {
	if schedule == "" {
		schedule = "@every 15m"
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Sweeper{
		tasks:    tasks,
		notifier: notifier,
		logger:   logger,
		cron:     cron.New(),
		schedule: schedule,
	}

	_, _ = s.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
		defer cancel()
		if err := s.Sweep(ctx); err != nil {
			s.logger.Error("overdue sweep failed", zap.Error(err))
		}
	})

	return s
}

// Start launches the cron scheduler.
func (s *Sweeper) Start() {
	if s == nil || s.cron == nil {
		return
	}
	s.cron.Start()
	s.logger.Info("overdue reminder sweeper started", zap.String("schedule", s.schedule))
}

// Stop gracefully stops the scheduler.
func (s *Sweeper) Stop(ctx context.Context) {
	if s == nil || s.cron == nil {
		return
	}
	stopCtx := s.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
	}
	s.logger.Info("overdue reminder sweeper stopped")
}

// Sweep scans for overdue tasks synchronously. A failure for one task
// does not stop the rest of the batch.
func (s *Sweeper) Sweep(ctx context.Context) error {
	overdue, err := s.tasks.ListOverdue(ctx, time.Now().UTC())
	if err != nil {
		return err
	}

	var notified int
	for i := range overdue {
		task := overdue[i]
		if task.AssignedToID == "" {
			continue
		}
		if err := s.notifier.TaskOverdue(ctx, &task); err != nil {
			s.logger.Warn("overdue reminder failed",
				zap.String("task_id", task.ID),
				zap.String("user_id", task.AssignedToID),
				zap.Error(err),
			)
			continue
		}
		notified++
	}

	if notified > 0 {
		s.logger.Info("overdue reminders delivered", zap.Int("count", notified))
	}
	return nil
}
