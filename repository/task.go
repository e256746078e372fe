package repository

import (
	"context"
	"time"

	"github.com/taskboard/backend/domain"
)

type TaskRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Task, error)
	Create(ctx context.Context, task *domain.Task) (*domain.Task, error)
	// Update persists the task only if the stored row still carries
	// expectedUpdatedAt; it returns domain.ErrUpdateConflict when another
	// writer got there first and domain.ErrTaskNotFound when the row is gone.
	Update(ctx context.Context, task *domain.Task, expectedUpdatedAt time.Time) error
	Delete(ctx context.Context, id string) error
	// ListByUser returns tasks where the user is creator or assignee.
	ListByUser(ctx context.Context, userID string) ([]domain.Task, error)
	// ListOverdueByAssignee returns non-completed tasks assigned to the user
	// whose due date precedes now.
	ListOverdueByAssignee(ctx context.Context, userID string, now time.Time) ([]domain.Task, error)
	// ListOverdue returns every non-completed task past due, for background sweeps.
	ListOverdue(ctx context.Context, now time.Time) ([]domain.Task, error)
}
