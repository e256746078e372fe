package domain

import "time"

// Priority levels a task can carry, ordered from least to most pressing.
type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
	PriorityUrgent Priority = "Urgent"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Status tracks a task through its workflow.
type Status string

const (
	StatusToDo       Status = "To Do"
	StatusInProgress Status = "In Progress"
	StatusReview     Status = "Review"
	StatusCompleted  Status = "Completed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusToDo, StatusInProgress, StatusReview, StatusCompleted:
		return true
	}
	return false
}

// MaxTitleLength bounds task titles.
const MaxTitleLength = 100

// Task represents a unit of work created by one user and assigned to another
// (or the same) user. CreatorID is immutable; AssignedToID may change on update.
type Task struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	DueDate      time.Time `json:"dueDate"`
	Priority     Priority  `json:"priority"`
	Status       Status    `json:"status"`
	CreatorID    string    `json:"creatorId"`
	AssignedToID string    `json:"assignedToId"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// IsOverdue reports whether the task's due date has passed without the task
// reaching its terminal status. Derived on every call, never stored.
func (t *Task) IsOverdue(reference time.Time) bool {
	if t == nil {
		return false
	}
	if reference.IsZero() {
		reference = time.Now()
	}
	return t.DueDate.Before(reference) && t.Status != StatusCompleted
}

// CanMutate reports whether the given user may update the task.
func (t *Task) CanMutate(userID string) bool {
	return t != nil && (t.CreatorID == userID || t.AssignedToID == userID)
}

// CanDelete reports whether the given user may delete the task. Only the
// creator may delete; the assignee may not.
func (t *Task) CanDelete(userID string) bool {
	return t != nil && t.CreatorID == userID
}
