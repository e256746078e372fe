package task

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/taskboard/backend/domain"
	"github.com/taskboard/backend/repository"
)

// Dispatcher pushes an event to every live connection of a user. Fan-out is
// best-effort; implementations must never fail the calling mutation.
type Dispatcher interface {
	EmitToUser(userID, event string, payload interface{})
}

// Notifier consumes assignment changes produced by task mutations and turns
// them into persisted notifications plus live pushes.
type Notifier interface {
	AssignmentChanged(ctx context.Context, change domain.AssignmentChange) error
}

// maxUpdateAttempts bounds the re-read cycle when a conditional update loses
// the race against a concurrent writer.
const maxUpdateAttempts = 3

type UseCase struct {
	tasks    repository.TaskRepository
	notifier Notifier
	events   Dispatcher
	logger   *zap.Logger
}

func New(tasks repository.TaskRepository, notifier Notifier, events Dispatcher, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		tasks:    tasks,
		notifier: notifier,
		events:   events,
		logger:   logger,
	}
}

// CreateInput carries the fields a client may set when creating a task.
type CreateInput struct {
	Title        string
	Description  string
	DueDate      time.Time
	Priority     domain.Priority
	Status       domain.Status
	AssignedToID string
}

// Patch carries a partial update; nil fields are left untouched.
type Patch struct {
	Title        *string
	Description  *string
	DueDate      *time.Time
	Priority     *domain.Priority
	Status       *domain.Status
	AssignedToID *string
}

// UserTasks is the result of ListForUser. The two slices are independent
// queries; an overdue assigned task appears in both.
type UserTasks struct {
	Tasks        []domain.Task `json:"tasks"`
	OverdueTasks []domain.Task `json:"overdueTasks"`
}

func (uc *UseCase) Create(ctx context.Context, creatorID string, input CreateInput) (*domain.Task, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	task := &domain.Task{
		Title:        input.Title,
		Description:  input.Description,
		DueDate:      input.DueDate,
		Priority:     input.Priority,
		Status:       input.Status,
		CreatorID:    creatorID,
		AssignedToID: input.AssignedToID,
	}
	if task.Priority == "" {
		task.Priority = domain.PriorityLow
	}
	if task.Status == "" {
		task.Status = domain.StatusToDo
	}

	created, err := uc.tasks.Create(ctx, task)
	if err != nil {
		return nil, err
	}

	uc.broadcast(domain.EventTaskCreated, created, created.CreatorID, created.AssignedToID)
	uc.notify(ctx, domain.AssignmentChange{
		Kind:        domain.ChangeCreated,
		Task:        created,
		NewAssignee: created.AssignedToID,
	})

	return created, nil
}

func (uc *UseCase) Get(ctx context.Context, taskID string) (*domain.Task, error) {
	return uc.tasks.GetByID(ctx, taskID)
}

// Update applies a partial patch on behalf of the requester, who must be the
// task's creator or its current assignee. The previous assignee is captured
// from the same read the conditional write is keyed on, so a lost race is
// detected as a conflict and retried rather than misattributing the diff.
func (uc *UseCase) Update(ctx context.Context, taskID, requesterID string, patch Patch) (*domain.Task, error) {
	if err := patch.validate(); err != nil {
		return nil, err
	}

	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		task, err := uc.tasks.GetByID(ctx, taskID)
		if err != nil {
			return nil, err
		}
		if !task.CanMutate(requesterID) {
			return nil, domain.ErrTaskForbidden
		}

		previousAssignee := task.AssignedToID
		updated := *task
		patch.apply(&updated)

		if err := uc.tasks.Update(ctx, &updated, task.UpdatedAt); err != nil {
			if errors.Is(err, domain.ErrUpdateConflict) {
				uc.logger.Debug("task update conflict, retrying",
					zap.String("task_id", taskID),
					zap.Int("attempt", attempt+1))
				continue
			}
			return nil, err
		}

		uc.broadcast(domain.EventTaskUpdated, &updated, updated.CreatorID, updated.AssignedToID)
		if updated.AssignedToID != previousAssignee {
			uc.notify(ctx, domain.AssignmentChange{
				Kind:             domain.ChangeReassigned,
				Task:             &updated,
				PreviousAssignee: previousAssignee,
				NewAssignee:      updated.AssignedToID,
			})
		}
		return &updated, nil
	}
	return nil, domain.ErrUpdateConflict
}

// Delete removes a task on behalf of the requester, who must be its creator.
// The full deleted task is returned and used as the event payload.
func (uc *UseCase) Delete(ctx context.Context, taskID, requesterID string) (*domain.Task, error) {
	task, err := uc.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if !task.CanDelete(requesterID) {
		return nil, domain.ErrDeleteForbidden
	}

	if err := uc.tasks.Delete(ctx, task.ID); err != nil {
		return nil, err
	}

	uc.broadcast(domain.EventTaskDeleted, task, task.CreatorID, task.AssignedToID)
	uc.notify(ctx, domain.AssignmentChange{
		Kind:             domain.ChangeDeleted,
		Task:             task,
		PreviousAssignee: task.AssignedToID,
		NewAssignee:      task.AssignedToID,
	})

	return task, nil
}

// ListForUser returns the user's tasks (creator or assignee) alongside the
// independently computed overdue set (assignee only, due date passed, not
// completed).
func (uc *UseCase) ListForUser(ctx context.Context, userID string) (*UserTasks, error) {
	tasks, err := uc.tasks.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	overdue, err := uc.tasks.ListOverdueByAssignee(ctx, userID, time.Now())
	if err != nil {
		return nil, err
	}
	return &UserTasks{Tasks: tasks, OverdueTasks: overdue}, nil
}

// broadcast emits the event once per distinct target, so creator == assignee
// receives a single delivery.
func (uc *UseCase) broadcast(event string, task *domain.Task, targets ...string) {
	if uc.events == nil {
		return
	}
	seen := make(map[string]struct{}, len(targets))
	for _, target := range targets {
		if target == "" {
			continue
		}
		if _, dup := seen[target]; dup {
			continue
		}
		seen[target] = struct{}{}
		uc.events.EmitToUser(target, event, task)
	}
}

// notify hands the assignment change to the notifier. The mutation has already
// committed, so notifier failures are logged and swallowed.
func (uc *UseCase) notify(ctx context.Context, change domain.AssignmentChange) {
	if uc.notifier == nil {
		return
	}
	if err := uc.notifier.AssignmentChanged(ctx, change); err != nil {
		uc.logger.Error("assignment notification failed",
			zap.String("task_id", change.Task.ID),
			zap.String("kind", string(change.Kind)),
			zap.Error(err))
	}
}

func (in CreateInput) validate() error {
	if in.Title == "" {
		return domain.NewError(domain.ErrCodeInvalid, "title is required")
	}
	if len(in.Title) > domain.MaxTitleLength {
		return domain.NewError(domain.ErrCodeInvalid, "title exceeds 100 characters")
	}
	if in.DueDate.IsZero() {
		return domain.NewError(domain.ErrCodeInvalid, "due date is required")
	}
	if _, err := uuid.Parse(in.AssignedToID); err != nil {
		return domain.NewError(domain.ErrCodeInvalid, "assignedToId is not a valid user id")
	}
	if in.Priority != "" && !in.Priority.Valid() {
		return domain.NewError(domain.ErrCodeInvalid, "unknown priority")
	}
	if in.Status != "" && !in.Status.Valid() {
		return domain.NewError(domain.ErrCodeInvalid, "unknown status")
	}
	return nil
}

func (p Patch) validate() error {
	if p.Title != nil {
		if *p.Title == "" {
			return domain.NewError(domain.ErrCodeInvalid, "title cannot be empty")
		}
		if len(*p.Title) > domain.MaxTitleLength {
			return domain.NewError(domain.ErrCodeInvalid, "title exceeds 100 characters")
		}
	}
	if p.AssignedToID != nil {
		if _, err := uuid.Parse(*p.AssignedToID); err != nil {
			return domain.NewError(domain.ErrCodeInvalid, "assignedToId is not a valid user id")
		}
	}
	if p.Priority != nil && !p.Priority.Valid() {
		return domain.NewError(domain.ErrCodeInvalid, "unknown priority")
	}
	if p.Status != nil && !p.Status.Valid() {
		return domain.NewError(domain.ErrCodeInvalid, "unknown status")
	}
	return nil
}

func (p Patch) apply(task *domain.Task) {
	if p.Title != nil {
		task.Title = *p.Title
	}
	if p.Description != nil {
		task.Description = *p.Description
	}
	if p.DueDate != nil {
		task.DueDate = *p.DueDate
	}
	if p.Priority != nil {
		task.Priority = *p.Priority
	}
	if p.Status != nil {
		task.Status = *p.Status
	}
	if p.AssignedToID != nil {
		task.AssignedToID = *p.AssignedToID
	}
}
