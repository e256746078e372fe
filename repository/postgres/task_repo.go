package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskboard/backend/domain"
	"github.com/taskboard/backend/repository"
)

type taskRepository struct {
	pool *pgxpool.Pool
}

// NewTaskRepository returns a Postgres-backed implementation of TaskRepository.
func NewTaskRepository(pool *pgxpool.Pool) repository.TaskRepository {
	return &taskRepository{pool: pool}
}

const taskColumns = `id, title, description, due_date, priority, status, creator_id, assigned_to_id, created_at, updated_at`

func (r *taskRepository) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	const query = `
	SELECT ` + taskColumns + `
	FROM tasks
	WHERE id = $1
	`
	row := r.pool.QueryRow(ctx, query, id)
	return scanTask(row)
}

func (r *taskRepository) Create(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	if task == nil {
		return nil, domain.ErrInvalidPayload
	}
	if task.ID == "" {
		task.ID = uuid.NewString()
	}

	const query = `
	INSERT INTO tasks (id, title, description, due_date, priority, status, creator_id, assigned_to_id)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	RETURNING created_at, updated_at
	`

	if err := r.pool.QueryRow(ctx, query,
		task.ID,
		task.Title,
		task.Description,
		task.DueDate,
		task.Priority,
		task.Status,
		task.CreatorID,
		task.AssignedToID,
	).Scan(&task.CreatedAt, &task.UpdatedAt); err != nil {
		return nil, err
	}

	return task, nil
}

func (r *taskRepository) Update(ctx context.Context, task *domain.Task, expectedUpdatedAt time.Time) error {
	if task == nil {
		return domain.ErrInvalidPayload
	}

	const query = `
	UPDATE tasks
	SET title = $2,
		description = $3,
		due_date = $4,
		priority = $5,
		status = $6,
		assigned_to_id = $7,
		updated_at = NOW()
	WHERE id = $1 AND updated_at = $8
	RETURNING updated_at
	`

	err := r.pool.QueryRow(ctx, query,
		task.ID,
		task.Title,
		task.Description,
		task.DueDate,
		task.Priority,
		task.Status,
		task.AssignedToID,
		expectedUpdatedAt,
	).Scan(&task.UpdatedAt)
	if err == nil {
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return err
	}

	// Zero rows means either the row vanished or another writer bumped
	// updated_at. Tell the two apart so callers can retry on conflict.
	var exists bool
	if probeErr := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM tasks WHERE id = $1)`, task.ID).Scan(&exists); probeErr != nil {
		return probeErr
	}
	if exists {
		return domain.ErrUpdateConflict
	}
	return domain.ErrTaskNotFound
}

func (r *taskRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM tasks WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTaskNotFound
	}
	return nil
}

func (r *taskRepository) ListByUser(ctx context.Context, userID string) ([]domain.Task, error) {
	const query = `
	SELECT ` + taskColumns + `
	FROM tasks
	WHERE creator_id = $1 OR assigned_to_id = $1
	ORDER BY created_at DESC
	`
	return r.list(ctx, query, userID)
}

func (r *taskRepository) ListOverdueByAssignee(ctx context.Context, userID string, now time.Time) ([]domain.Task, error) {
	const query = `
	SELECT ` + taskColumns + `
	FROM tasks
	WHERE assigned_to_id = $1
	  AND due_date < $2
	  AND status <> $3
	ORDER BY due_date ASC
	`
	return r.list(ctx, query, userID, now, domain.StatusCompleted)
}

func (r *taskRepository) ListOverdue(ctx context.Context, now time.Time) ([]domain.Task, error) {
	const query = `
	SELECT ` + taskColumns + `
	FROM tasks
	WHERE due_date < $1
	  AND status <> $2
	ORDER BY due_date ASC
	`
	return r.list(ctx, query, now, domain.StatusCompleted)
}

func (r *taskRepository) list(ctx context.Context, query string, args ...interface{}) ([]domain.Task, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []domain.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}
	return tasks, rows.Err()
}

func scanTask(row interface {
	Scan(dest ...interface{}) error
}) (*domain.Task, error) {
	var task domain.Task
	if err := row.Scan(
		&task.ID,
		&task.Title,
		&task.Description,
		&task.DueDate,
		&task.Priority,
		&task.Status,
		&task.CreatorID,
		&task.AssignedToID,
		&task.CreatedAt,
		&task.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTaskNotFound
		}
		return nil, err
	}
	return &task, nil
}
