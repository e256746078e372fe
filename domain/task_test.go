package domain

import (
	"testing"
	"time"
)

func TestTaskIsOverdue(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name   string
		due    time.Time
		status Status
		want   bool
	}{
		{"past due and open", now.Add(-time.Hour), StatusToDo, true},
		{"past due in progress", now.Add(-time.Hour), StatusInProgress, true},
		{"past due but completed", now.Add(-time.Hour), StatusCompleted, false},
		{"not yet due", now.Add(time.Hour), StatusToDo, false},
		{"due exactly now", now, StatusToDo, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			task := &Task{DueDate: tc.due, Status: tc.status}
			if got := task.IsOverdue(now); got != tc.want {
				t.Fatalf("IsOverdue() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestTaskIsOverdueNil(t *testing.T) {
	var task *Task
	if task.IsOverdue(time.Now()) {
		t.Fatal("nil task must not be overdue")
	}
}

func TestTaskAuthorization(t *testing.T) {
	task := &Task{CreatorID: "creator", AssignedToID: "assignee"}

	if !task.CanMutate("creator") {
		t.Fatal("creator must be able to mutate")
	}
	if !task.CanMutate("assignee") {
		t.Fatal("assignee must be able to mutate")
	}
	if task.CanMutate("stranger") {
		t.Fatal("stranger must not be able to mutate")
	}

	if !task.CanDelete("creator") {
		t.Fatal("creator must be able to delete")
	}
	if task.CanDelete("assignee") {
		t.Fatal("assignee must not be able to delete")
	}
	if task.CanDelete("stranger") {
		t.Fatal("stranger must not be able to delete")
	}
}

func TestEnumValidation(t *testing.T) {
	for _, p := range []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent} {
		if !p.Valid() {
			t.Fatalf("priority %q should be valid", p)
		}
	}
	if Priority("Critical").Valid() {
		t.Fatal("unknown priority accepted")
	}

	for _, s := range []Status{StatusToDo, StatusInProgress, StatusReview, StatusCompleted} {
		if !s.Valid() {
			t.Fatalf("status %q should be valid", s)
		}
	}
	if Status("Done").Valid() {
		t.Fatal("unknown status accepted")
	}
}
