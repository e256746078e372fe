package domain

// Wire-level event names pushed to live client connections. Task events carry
// the full Task as payload; EventNotification carries a Notification.
const (
	EventTaskCreated  = "task-created"
	EventTaskUpdated  = "task-updated"
	EventTaskDeleted  = "task-deleted"
	EventNotification = "notification"
)

// ChangeKind classifies the task mutation behind an assignment change.
type ChangeKind string

const (
	ChangeCreated    ChangeKind = "created"
	ChangeReassigned ChangeKind = "reassigned"
	ChangeDeleted    ChangeKind = "deleted"
)

// AssignmentChange is the domain event the task service produces whenever a
// mutation affects who a task is assigned to. A separate notifier consumes it
// so the task service never touches the notification store directly.
type AssignmentChange struct {
	Kind             ChangeKind
	Task             *Task
	PreviousAssignee string
	NewAssignee      string
}
