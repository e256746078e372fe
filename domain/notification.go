package domain

import "time"

// Notification is a per-user message derived from a task mutation. TaskID is a
// weak back-reference: deleting the task does not remove the notification.
type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Message   string    `json:"message"`
	TaskID    string    `json:"taskId,omitempty"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"createdAt"`
}
