package notification

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/taskboard/backend/domain"
	"github.com/taskboard/backend/repository"
)

// Dispatcher pushes an event to every live connection of a user.
type Dispatcher interface {
	EmitToUser(userID, event string, payload interface{})
}

// listLimit caps how many notifications a single fetch returns.
const listLimit = 50

type UseCase struct {
	notifications repository.NotificationRepository
	events        Dispatcher
	logger        *zap.Logger
}

func New(notifications repository.NotificationRepository, events Dispatcher, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		notifications: notifications,
		events:        events,
		logger:        logger,
	}
}

func (uc *UseCase) ListForUser(ctx context.Context, userID string) ([]domain.Notification, error) {
	return uc.notifications.ListByUser(ctx, userID, listLimit)
}

func (uc *UseCase) MarkRead(ctx context.Context, id, userID string) (*domain.Notification, error) {
	return uc.notifications.MarkRead(ctx, id, userID)
}

func (uc *UseCase) MarkAllRead(ctx context.Context, userID string) error {
	return uc.notifications.MarkAllRead(ctx, userID)
}

func (uc *UseCase) Delete(ctx context.Context, id, userID string) error {
	return uc.notifications.Delete(ctx, id, userID)
}

// AssignmentChanged persists a notification for the affected assignee and
// pushes it to their live connections. It implements the task service's
// Notifier port.
func (uc *UseCase) AssignmentChanged(ctx context.Context, change domain.AssignmentChange) error {
	if change.Task == nil || change.NewAssignee == "" {
		return domain.ErrInvalidPayload
	}

	var message string
	switch change.Kind {
	case domain.ChangeCreated:
		message = fmt.Sprintf("You have been assigned a new task: %s", change.Task.Title)
	case domain.ChangeReassigned:
		message = fmt.Sprintf("Task reassigned to you: %s", change.Task.Title)
	case domain.ChangeDeleted:
		message = fmt.Sprintf("A task assigned to you was deleted: %s", change.Task.Title)
	default:
		return domain.ErrInvalidPayload
	}

	return uc.push(ctx, change.NewAssignee, message, change.Task.ID)
}

// TaskOverdue notifies the assignee that a task slipped past its due date.
// Repeated sweeps are deduplicated against an existing unread notification for
// the same task.
func (uc *UseCase) TaskOverdue(ctx context.Context, task *domain.Task) error {
	if task == nil || task.AssignedToID == "" {
		return domain.ErrInvalidPayload
	}

	pending, err := uc.notifications.HasUnreadForTask(ctx, task.AssignedToID, task.ID)
	if err != nil {
		return err
	}
	if pending {
		return nil
	}

	message := fmt.Sprintf("Task overdue: %s", task.Title)
	return uc.push(ctx, task.AssignedToID, message, task.ID)
}

func (uc *UseCase) push(ctx context.Context, userID, message, taskID string) error {
	created, err := uc.notifications.Create(ctx, &domain.Notification{
		UserID:  userID,
		Message: message,
		TaskID:  taskID,
	})
	if err != nil {
		return err
	}

	if uc.events != nil {
		uc.events.EmitToUser(userID, domain.EventNotification, created)
	}
	uc.logger.Debug("notification delivered",
		zap.String("user_id", userID),
		zap.String("task_id", taskID))
	return nil
}
