package reconciler

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/taskboard/backend/domain"
)

func task(id, title string) domain.Task {
	return domain.Task{ID: id, Title: title, Status: domain.StatusToDo}
}

func TestEventBeforeSnapshotConverges(t *testing.T) {
	v := NewView()

	// Live event lands before the REST fetch completes.
	v.ApplyCreated(task("t-1", "from stream"))
	if v.Initialized() {
		t.Fatal("view must not report initialized before the snapshot")
	}

	// Snapshot arrives carrying the same task plus an older one.
	v.SeedTasks([]domain.Task{task("t-0", "old"), task("t-1", "from fetch")})
	if !v.Initialized() {
		t.Fatal("view must report initialized after the snapshot")
	}

	tasks := v.Tasks()
	if len(tasks) != 2 {
		t.Fatalf("tasks = %d, want 2", len(tasks))
	}
	if tasks[1].Title != "from fetch" {
		t.Fatalf("last writer = %q, want snapshot to win after replace", tasks[1].Title)
	}
}

func TestSnapshotBeforeEventConverges(t *testing.T) {
	v := NewView()
	v.SeedTasks([]domain.Task{task("t-1", "stale title")})

	v.ApplyUpdated(task("t-1", "fresh title"))

	tasks := v.Tasks()
	if len(tasks) != 1 {
		t.Fatalf("tasks = %d, want 1 (no duplicate for same id)", len(tasks))
	}
	if tasks[0].Title != "fresh title" {
		t.Fatalf("title = %q, want event to win", tasks[0].Title)
	}
}

func TestUpdateBeforeCreateInsertsOnce(t *testing.T) {
	v := NewView()
	v.SeedTasks(nil)

	// Out-of-order arrival: the update for a task the view has never seen.
	v.ApplyUpdated(task("t-7", "renamed"))
	v.ApplyCreated(task("t-7", "renamed"))

	if got := len(v.Tasks()); got != 1 {
		t.Fatalf("tasks = %d, want 1", got)
	}
}

func TestDeleteUnknownIsNoOp(t *testing.T) {
	v := NewView()
	v.SeedTasks([]domain.Task{task("t-1", "keep me")})

	v.ApplyDeleted(task("t-404", "never existed"))

	if got := len(v.Tasks()); got != 1 {
		t.Fatalf("tasks = %d, want 1", got)
	}

	// A replayed delete after the entry is gone stays a no-op.
	v.ApplyDeleted(task("t-1", ""))
	v.ApplyDeleted(task("t-1", ""))
	if got := len(v.Tasks()); got != 0 {
		t.Fatalf("tasks = %d, want 0", got)
	}
}

func TestArrivalOrderStableAcrossUpdates(t *testing.T) {
	v := NewView()
	v.SeedTasks([]domain.Task{task("a", "first"), task("b", "second")})
	v.ApplyCreated(task("c", "third"))

	// Updating an existing task must not move it.
	v.ApplyUpdated(task("a", "first, renamed"))

	var ids []string
	for _, tk := range v.Tasks() {
		ids = append(ids, tk.ID)
	}
	want := []string{"a", "b", "c"}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("order = %v, want %v", ids, want)
		}
	}
}

func TestApplyRoutesWireEvents(t *testing.T) {
	v := NewView()
	v.SeedTasks(nil)

	created, _ := json.Marshal(task("t-1", "wired"))
	if err := v.Apply(domain.EventTaskCreated, created); err != nil {
		t.Fatalf("Apply created: %v", err)
	}

	renamed, _ := json.Marshal(task("t-1", "wired, renamed"))
	if err := v.Apply(domain.EventTaskUpdated, renamed); err != nil {
		t.Fatalf("Apply updated: %v", err)
	}

	if tasks := v.Tasks(); len(tasks) != 1 || tasks[0].Title != "wired, renamed" {
		t.Fatalf("tasks = %+v", tasks)
	}

	deleted, _ := json.Marshal(task("t-1", ""))
	if err := v.Apply(domain.EventTaskDeleted, deleted); err != nil {
		t.Fatalf("Apply deleted: %v", err)
	}
	if got := len(v.Tasks()); got != 0 {
		t.Fatalf("tasks = %d, want 0", got)
	}

	if err := v.Apply("presence-changed", []byte(`{}`)); err == nil {
		t.Fatal("unknown event must be rejected")
	}
	if err := v.Apply(domain.EventTaskCreated, []byte(`{not json`)); err == nil {
		t.Fatal("malformed payload must be rejected")
	}
}

func TestNotificationsNewestFirst(t *testing.T) {
	v := NewView()
	base := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	v.SeedNotifications([]domain.Notification{
		{ID: "n-2", Message: "second", CreatedAt: base.Add(time.Minute)},
		{ID: "n-1", Message: "first", CreatedAt: base},
	})

	payload, _ := json.Marshal(domain.Notification{ID: "n-3", Message: "third"})
	if err := v.Apply(domain.EventNotification, payload); err != nil {
		t.Fatalf("Apply notification: %v", err)
	}

	list := v.Notifications()
	if len(list) != 3 {
		t.Fatalf("notifications = %d, want 3", len(list))
	}
	if list[0].ID != "n-3" || list[1].ID != "n-2" || list[2].ID != "n-1" {
		t.Fatalf("order = %q, %q, %q", list[0].ID, list[1].ID, list[2].ID)
	}
}

func TestNotificationReadAndRemove(t *testing.T) {
	v := NewView()
	v.SeedNotifications([]domain.Notification{
		{ID: "n-1"}, {ID: "n-2"}, {ID: "n-3"},
	})

	v.MarkRead("n-2")
	list := v.Notifications()
	if list[0].Read || !list[1].Read || list[2].Read {
		t.Fatalf("read flags = %v %v %v, want only n-2 read", list[0].Read, list[1].Read, list[2].Read)
	}

	v.MarkAllRead()
	for _, n := range v.Notifications() {
		if !n.Read {
			t.Fatalf("notification %q still unread after MarkAllRead", n.ID)
		}
	}

	v.RemoveNotification("n-1")
	v.RemoveNotification("n-1")
	if got := len(v.Notifications()); got != 2 {
		t.Fatalf("notifications = %d, want 2", got)
	}
}
