package repository

import (
	"context"

	"github.com/taskboard/backend/domain"
)

type NotificationRepository interface {
	Create(ctx context.Context, notification *domain.Notification) (*domain.Notification, error)
	// ListByUser returns the recipient's notifications newest-first, capped at limit.
	ListByUser(ctx context.Context, userID string, limit int) ([]domain.Notification, error)
	// MarkRead flips the read flag on a single notification owned by userID.
	MarkRead(ctx context.Context, id, userID string) (*domain.Notification, error)
	MarkAllRead(ctx context.Context, userID string) error
	Delete(ctx context.Context, id, userID string) error
	// HasUnreadForTask reports whether the recipient already has an unread
	// notification referencing the task.
	HasUnreadForTask(ctx context.Context, userID, taskID string) (bool, error)
}
