// Package reconciler merges a point-in-time REST snapshot of tasks and
// notifications with a live event stream into one consistent client view. The
// snapshot and the stream race each other, so every apply is idempotent: the
// view converges to whichever writer arrived last for a given task id.
package reconciler

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/taskboard/backend/domain"
)

// View is the per-session client state: an arrival-ordered, id-keyed task
// cache plus a newest-first notification list.
type View struct {
	mu            sync.Mutex
	order         []string
	tasks         map[string]domain.Task
	notifications []domain.Notification
	initialized   bool
}

func NewView() *View {
	return &View{tasks: make(map[string]domain.Task)}
}

// SeedTasks replaces the task cache wholesale with a REST snapshot and marks
// the view initialized. Snapshot order becomes the arrival order.
func (v *View) SeedTasks(tasks []domain.Task) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.order = v.order[:0]
	v.tasks = make(map[string]domain.Task, len(tasks))
	for _, t := range tasks {
		if _, dup := v.tasks[t.ID]; !dup {
			v.order = append(v.order, t.ID)
		}
		v.tasks[t.ID] = t
	}
	v.initialized = true
}

// SeedNotifications replaces the notification list with a REST snapshot.
func (v *View) SeedNotifications(notifications []domain.Notification) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.notifications = append(v.notifications[:0], notifications...)
}

func (v *View) Initialized() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.initialized
}

// ApplyCreated folds a task-created event in. An existing entry with the same
// id is replaced in place, never duplicated: the REST fetch may land after the
// event already delivered the task.
func (v *View) ApplyCreated(task domain.Task) {
	v.upsert(task)
}

// ApplyUpdated folds a task-updated event in. A missing entry is inserted:
// an update may arrive before the initial fetch completes.
func (v *View) ApplyUpdated(task domain.Task) {
	v.upsert(task)
}

// ApplyDeleted removes the entry with the event's id; unknown ids are a no-op.
func (v *View) ApplyDeleted(task domain.Task) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if _, ok := v.tasks[task.ID]; !ok {
		return
	}
	delete(v.tasks, task.ID)
	for i, id := range v.order {
		if id == task.ID {
			v.order = append(v.order[:i], v.order[i+1:]...)
			break
		}
	}
}

// ApplyNotification prepends a pushed notification (newest-first by arrival).
func (v *View) ApplyNotification(n domain.Notification) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.notifications = append([]domain.Notification{n}, v.notifications...)
}

// Apply routes a wire-level event by name into the view.
func (v *View) Apply(event string, data []byte) error {
	switch event {
	case domain.EventTaskCreated, domain.EventTaskUpdated, domain.EventTaskDeleted:
		var task domain.Task
		if err := json.Unmarshal(data, &task); err != nil {
			return err
		}
		switch event {
		case domain.EventTaskCreated:
			v.ApplyCreated(task)
		case domain.EventTaskUpdated:
			v.ApplyUpdated(task)
		default:
			v.ApplyDeleted(task)
		}
		return nil
	case domain.EventNotification:
		var n domain.Notification
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		v.ApplyNotification(n)
		return nil
	default:
		return fmt.Errorf("unknown event %q", event)
	}
}

// MarkRead mirrors a successful PATCH notification read.
func (v *View) MarkRead(id string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for i := range v.notifications {
		if v.notifications[i].ID == id {
			v.notifications[i].Read = true
			return
		}
	}
}

// MarkAllRead mirrors a successful PATCH notifications read-all.
func (v *View) MarkAllRead() {
	v.mu.Lock()
	defer v.mu.Unlock()
	for i := range v.notifications {
		v.notifications[i].Read = true
	}
}

// RemoveNotification mirrors a successful DELETE notification.
func (v *View) RemoveNotification(id string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for i := range v.notifications {
		if v.notifications[i].ID == id {
			v.notifications = append(v.notifications[:i], v.notifications[i+1:]...)
			return
		}
	}
}

// Tasks returns the cache in arrival order.
func (v *View) Tasks() []domain.Task {
	v.mu.Lock()
	defer v.mu.Unlock()

	out := make([]domain.Task, 0, len(v.order))
	for _, id := range v.order {
		out = append(out, v.tasks[id])
	}
	return out
}

// Notifications returns the notification list newest-first.
func (v *View) Notifications() []domain.Notification {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]domain.Notification(nil), v.notifications...)
}

func (v *View) upsert(task domain.Task) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if _, exists := v.tasks[task.ID]; !exists {
		v.order = append(v.order, task.ID)
	}
	v.tasks[task.ID] = task
}
