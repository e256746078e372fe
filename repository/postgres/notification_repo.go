package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskboard/backend/domain"
	"github.com/taskboard/backend/repository"
)

type notificationRepository struct {
	pool *pgxpool.Pool
}

// NewNotificationRepository returns a Postgres-backed NotificationRepository.
func NewNotificationRepository(pool *pgxpool.Pool) repository.NotificationRepository {
	return &notificationRepository{pool: pool}
}

func (r *notificationRepository) Create(ctx context.Context, notification *domain.Notification) (*domain.Notification, error) {
	if notification == nil || notification.UserID == "" || notification.Message == "" {
		return nil, domain.ErrInvalidPayload
	}
	if notification.ID == "" {
		notification.ID = uuid.NewString()
	}

	const query = `
	INSERT INTO notifications (id, user_id, message, task_id, read)
	VALUES ($1, $2, $3, NULLIF($4, '')::uuid, $5)
	RETURNING created_at
	`
	if err := r.pool.QueryRow(ctx, query,
		notification.ID,
		notification.UserID,
		notification.Message,
		notification.TaskID,
		notification.Read,
	).Scan(&notification.CreatedAt); err != nil {
		return nil, err
	}
	return notification, nil
}

func (r *notificationRepository) ListByUser(ctx context.Context, userID string, limit int) ([]domain.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `
	SELECT id, user_id, message, COALESCE(task_id::text, ''), read, created_at
	FROM notifications
	WHERE user_id = $1
	ORDER BY created_at DESC
	LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notifications []domain.Notification
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Message, &n.TaskID, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

func (r *notificationRepository) MarkRead(ctx context.Context, id, userID string) (*domain.Notification, error) {
	const query = `
	UPDATE notifications
	SET read = TRUE
	WHERE id = $1 AND user_id = $2
	RETURNING id, user_id, message, COALESCE(task_id::text, ''), read, created_at
	`
	var n domain.Notification
	if err := r.pool.QueryRow(ctx, query, id, userID).
		Scan(&n.ID, &n.UserID, &n.Message, &n.TaskID, &n.Read, &n.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotificationNotFound
		}
		return nil, err
	}
	return &n, nil
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, userID string) error {
	const query = `UPDATE notifications SET read = TRUE WHERE user_id = $1 AND read = FALSE`
	_, err := r.pool.Exec(ctx, query, userID)
	return err
}

func (r *notificationRepository) Delete(ctx context.Context, id, userID string) error {
	const query = `DELETE FROM notifications WHERE id = $1 AND user_id = $2`
	tag, err := r.pool.Exec(ctx, query, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotificationNotFound
	}
	return nil
}

func (r *notificationRepository) HasUnreadForTask(ctx context.Context, userID, taskID string) (bool, error) {
	const query = `
	SELECT EXISTS (
		SELECT 1 FROM notifications
		WHERE user_id = $1 AND task_id = $2 AND read = FALSE
	)
	`
	var exists bool
	if err := r.pool.QueryRow(ctx, query, userID, taskID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}
