package task

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/taskboard/backend/domain"
)

type emission struct {
	userID string
	event  string
}

type fakeDispatcher struct {
	mu        sync.Mutex
	emissions []emission
}

func (d *fakeDispatcher) EmitToUser(userID, event string, payload interface{}) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.emissions = append(d.emissions, emission{userID: userID, event: event})
}

func (d *fakeDispatcher) sent() []emission {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]emission, len(d.emissions))
	copy(out, d.emissions)
	return out
}

type fakeNotifier struct {
	changes []domain.AssignmentChange
	err     error
}

func (n *fakeNotifier) AssignmentChanged(_ context.Context, change domain.AssignmentChange) error {
	n.changes = append(n.changes, change)
	return n.err
}

type fakeTaskRepo struct {
	mu    sync.Mutex
	tasks map[string]domain.Task

	// conflicts makes the next N Update calls fail with ErrUpdateConflict.
	conflicts int
	getCalls  int
}

func newFakeTaskRepo() *fakeTaskRepo {
	return &fakeTaskRepo{tasks: make(map[string]domain.Task)}
}

func (r *fakeTaskRepo) GetByID(_ context.Context, id string) (*domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.getCalls++
	task, ok := r.tasks[id]
	if !ok {
		return nil, domain.ErrTaskNotFound
	}
	copied := task
	return &copied, nil
}

func (r *fakeTaskRepo) Create(_ context.Context, task *domain.Task) (*domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	task.CreatedAt = now
	task.UpdatedAt = now
	r.tasks[task.ID] = *task
	copied := *task
	return &copied, nil
}

func (r *fakeTaskRepo) Update(_ context.Context, task *domain.Task, expectedUpdatedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.tasks[task.ID]
	if !ok {
		return domain.ErrTaskNotFound
	}
	if r.conflicts > 0 {
		r.conflicts--
		return domain.ErrUpdateConflict
	}
	if !stored.UpdatedAt.Equal(expectedUpdatedAt) {
		return domain.ErrUpdateConflict
	}
	task.UpdatedAt = stored.UpdatedAt.Add(time.Millisecond)
	r.tasks[task.ID] = *task
	return nil
}

func (r *fakeTaskRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tasks[id]; !ok {
		return domain.ErrTaskNotFound
	}
	delete(r.tasks, id)
	return nil
}

func (r *fakeTaskRepo) ListByUser(_ context.Context, userID string) ([]domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Task
	for _, task := range r.tasks {
		if task.CreatorID == userID || task.AssignedToID == userID {
			out = append(out, task)
		}
	}
	return out, nil
}

func (r *fakeTaskRepo) ListOverdueByAssignee(_ context.Context, userID string, now time.Time) ([]domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Task
	for _, task := range r.tasks {
		if task.AssignedToID == userID && task.IsOverdue(now) {
			out = append(out, task)
		}
	}
	return out, nil
}

func (r *fakeTaskRepo) ListOverdue(_ context.Context, now time.Time) ([]domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Task
	for _, task := range r.tasks {
		if task.IsOverdue(now) {
			out = append(out, task)
		}
	}
	return out, nil
}

var (
	creatorID  = uuid.NewString()
	assigneeID = uuid.NewString()
	strangerID = uuid.NewString()
)

func validInput() CreateInput {
	return CreateInput{
		Title:        "Ship release notes",
		Description:  "Collect changes since last tag",
		DueDate:      time.Now().Add(48 * time.Hour),
		AssignedToID: assigneeID,
	}
}

func newTestUseCase() (*UseCase, *fakeTaskRepo, *fakeDispatcher, *fakeNotifier) {
	repo := newFakeTaskRepo()
	dispatcher := &fakeDispatcher{}
	notifier := &fakeNotifier{}
	return New(repo, notifier, dispatcher, nil), repo, dispatcher, notifier
}

func TestCreateAppliesDefaults(t *testing.T) {
	uc, _, _, _ := newTestUseCase()

	created, err := uc.Create(context.Background(), creatorID, validInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.Priority != domain.PriorityLow {
		t.Fatalf("priority = %q, want %q", created.Priority, domain.PriorityLow)
	}
	if created.Status != domain.StatusToDo {
		t.Fatalf("status = %q, want %q", created.Status, domain.StatusToDo)
	}
	if created.CreatorID != creatorID {
		t.Fatalf("creator = %q, want %q", created.CreatorID, creatorID)
	}
}

func TestCreateValidation(t *testing.T) {
	uc, repo, dispatcher, notifier := newTestUseCase()

	cases := []struct {
		name   string
		mutate func(*CreateInput)
	}{
		{"empty title", func(in *CreateInput) { in.Title = "" }},
		{"title too long", func(in *CreateInput) {
			long := make([]byte, domain.MaxTitleLength+1)
			for i := range long {
				long[i] = 'x'
			}
			in.Title = string(long)
		}},
		{"zero due date", func(in *CreateInput) { in.DueDate = time.Time{} }},
		{"bad assignee id", func(in *CreateInput) { in.AssignedToID = "not-a-uuid" }},
		{"unknown priority", func(in *CreateInput) { in.Priority = "Critical" }},
		{"unknown status", func(in *CreateInput) { in.Status = "Done" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			input := validInput()
			tc.mutate(&input)
			if _, err := uc.Create(context.Background(), creatorID, input); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}

	if len(repo.tasks) != 0 {
		t.Fatalf("rejected input persisted %d tasks", len(repo.tasks))
	}
	if len(dispatcher.sent()) != 0 || len(notifier.changes) != 0 {
		t.Fatal("rejected input must not emit events or notifications")
	}
}

func TestCreateFansOutToCreatorAndAssignee(t *testing.T) {
	uc, _, dispatcher, notifier := newTestUseCase()

	if _, err := uc.Create(context.Background(), creatorID, validInput()); err != nil {
		t.Fatalf("Create: %v", err)
	}

	sent := dispatcher.sent()
	if len(sent) != 2 {
		t.Fatalf("emissions = %d, want 2", len(sent))
	}
	targets := map[string]bool{}
	for _, e := range sent {
		if e.event != domain.EventTaskCreated {
			t.Fatalf("event = %q, want %q", e.event, domain.EventTaskCreated)
		}
		targets[e.userID] = true
	}
	if !targets[creatorID] || !targets[assigneeID] {
		t.Fatalf("targets = %v, want creator and assignee", targets)
	}

	if len(notifier.changes) != 1 {
		t.Fatalf("notifications = %d, want 1", len(notifier.changes))
	}
	change := notifier.changes[0]
	if change.Kind != domain.ChangeCreated || change.NewAssignee != assigneeID {
		t.Fatalf("unexpected change: %+v", change)
	}
}

func TestCreateSelfAssignedSingleDelivery(t *testing.T) {
	uc, _, dispatcher, _ := newTestUseCase()

	input := validInput()
	input.AssignedToID = creatorID
	if _, err := uc.Create(context.Background(), creatorID, input); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if sent := dispatcher.sent(); len(sent) != 1 {
		t.Fatalf("emissions = %d, want 1 when creator is also assignee", len(sent))
	}
}

func TestUpdateForbiddenForStranger(t *testing.T) {
	uc, repo, dispatcher, notifier := newTestUseCase()

	created, err := uc.Create(context.Background(), creatorID, validInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	dispatcher.emissions = nil
	notifier.changes = nil

	title := "hijacked"
	_, err = uc.Update(context.Background(), created.ID, strangerID, Patch{Title: &title})
	if !errors.Is(err, domain.ErrTaskForbidden) {
		t.Fatalf("err = %v, want ErrTaskForbidden", err)
	}

	stored := repo.tasks[created.ID]
	if stored.Title != created.Title {
		t.Fatal("rejected update mutated the store")
	}
	if len(dispatcher.sent()) != 0 || len(notifier.changes) != 0 {
		t.Fatal("rejected update must not emit events or notifications")
	}
}

func TestUpdateByAssignee(t *testing.T) {
	uc, _, dispatcher, notifier := newTestUseCase()

	created, err := uc.Create(context.Background(), creatorID, validInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	dispatcher.emissions = nil
	notifier.changes = nil

	status := domain.StatusInProgress
	updated, err := uc.Update(context.Background(), created.ID, assigneeID, Patch{Status: &status})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Status != domain.StatusInProgress {
		t.Fatalf("status = %q, want %q", updated.Status, domain.StatusInProgress)
	}

	for _, e := range dispatcher.sent() {
		if e.event != domain.EventTaskUpdated {
			t.Fatalf("event = %q, want %q", e.event, domain.EventTaskUpdated)
		}
	}
	if len(notifier.changes) != 0 {
		t.Fatal("status change must not produce an assignment notification")
	}
}

func TestUpdateReassignmentNotifiesNewAssigneeOnce(t *testing.T) {
	uc, _, _, notifier := newTestUseCase()

	created, err := uc.Create(context.Background(), creatorID, validInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	notifier.changes = nil

	newAssignee := uuid.NewString()
	if _, err := uc.Update(context.Background(), created.ID, creatorID, Patch{AssignedToID: &newAssignee}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	if len(notifier.changes) != 1 {
		t.Fatalf("notifications = %d, want exactly 1", len(notifier.changes))
	}
	change := notifier.changes[0]
	if change.Kind != domain.ChangeReassigned {
		t.Fatalf("kind = %q, want %q", change.Kind, domain.ChangeReassigned)
	}
	if change.PreviousAssignee != assigneeID || change.NewAssignee != newAssignee {
		t.Fatalf("assignees = %q -> %q, want %q -> %q",
			change.PreviousAssignee, change.NewAssignee, assigneeID, newAssignee)
	}
}

func TestUpdateSameAssigneeNoNotification(t *testing.T) {
	uc, _, _, notifier := newTestUseCase()

	created, err := uc.Create(context.Background(), creatorID, validInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	notifier.changes = nil

	same := assigneeID
	if _, err := uc.Update(context.Background(), created.ID, creatorID, Patch{AssignedToID: &same}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if len(notifier.changes) != 0 {
		t.Fatal("reassignment to the same user must not notify")
	}
}

func TestUpdateRetriesOnConflict(t *testing.T) {
	uc, repo, _, _ := newTestUseCase()

	created, err := uc.Create(context.Background(), creatorID, validInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	repo.conflicts = 2
	title := "second writer wins eventually"
	updated, err := uc.Update(context.Background(), created.ID, creatorID, Patch{Title: &title})
	if err != nil {
		t.Fatalf("Update after conflicts: %v", err)
	}
	if updated.Title != title {
		t.Fatalf("title = %q, want %q", updated.Title, title)
	}
}

func TestUpdateGivesUpAfterRepeatedConflicts(t *testing.T) {
	uc, repo, _, _ := newTestUseCase()

	created, err := uc.Create(context.Background(), creatorID, validInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	repo.conflicts = maxUpdateAttempts
	title := "never lands"
	_, err = uc.Update(context.Background(), created.ID, creatorID, Patch{Title: &title})
	if !errors.Is(err, domain.ErrUpdateConflict) {
		t.Fatalf("err = %v, want ErrUpdateConflict", err)
	}
}

func TestDeleteByCreator(t *testing.T) {
	uc, repo, dispatcher, notifier := newTestUseCase()

	created, err := uc.Create(context.Background(), creatorID, validInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	dispatcher.emissions = nil
	notifier.changes = nil

	deleted, err := uc.Delete(context.Background(), created.ID, creatorID)
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if deleted.ID != created.ID {
		t.Fatalf("deleted id = %q, want %q", deleted.ID, created.ID)
	}
	if _, ok := repo.tasks[created.ID]; ok {
		t.Fatal("task still present after delete")
	}

	for _, e := range dispatcher.sent() {
		if e.event != domain.EventTaskDeleted {
			t.Fatalf("event = %q, want %q", e.event, domain.EventTaskDeleted)
		}
	}
	if len(notifier.changes) != 1 || notifier.changes[0].Kind != domain.ChangeDeleted {
		t.Fatalf("unexpected notifications: %+v", notifier.changes)
	}
}

func TestDeleteForbiddenForAssignee(t *testing.T) {
	uc, repo, dispatcher, _ := newTestUseCase()

	created, err := uc.Create(context.Background(), creatorID, validInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	dispatcher.emissions = nil

	_, err = uc.Delete(context.Background(), created.ID, assigneeID)
	if !errors.Is(err, domain.ErrDeleteForbidden) {
		t.Fatalf("err = %v, want ErrDeleteForbidden", err)
	}
	if _, ok := repo.tasks[created.ID]; !ok {
		t.Fatal("rejected delete removed the task")
	}
	if len(dispatcher.sent()) != 0 {
		t.Fatal("rejected delete must not emit events")
	}
}

func TestNotifierFailureDoesNotFailMutation(t *testing.T) {
	uc, repo, _, notifier := newTestUseCase()
	notifier.err = errors.New("notification store down")

	created, err := uc.Create(context.Background(), creatorID, validInput())
	if err != nil {
		t.Fatalf("Create must succeed despite notifier error: %v", err)
	}
	if _, ok := repo.tasks[created.ID]; !ok {
		t.Fatal("task not persisted")
	}
}

func TestListForUserSplitsOverdue(t *testing.T) {
	uc, _, _, _ := newTestUseCase()

	overdueInput := validInput()
	overdueInput.Title = "already late"
	overdueInput.DueDate = time.Now().Add(-time.Hour)
	if _, err := uc.Create(context.Background(), creatorID, overdueInput); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := uc.Create(context.Background(), creatorID, validInput()); err != nil {
		t.Fatalf("Create: %v", err)
	}

	result, err := uc.ListForUser(context.Background(), assigneeID)
	if err != nil {
		t.Fatalf("ListForUser: %v", err)
	}
	if len(result.Tasks) != 2 {
		t.Fatalf("tasks = %d, want 2", len(result.Tasks))
	}
	if len(result.OverdueTasks) != 1 {
		t.Fatalf("overdue = %d, want 1", len(result.OverdueTasks))
	}
	if result.OverdueTasks[0].Title != "already late" {
		t.Fatalf("overdue task = %q", result.OverdueTasks[0].Title)
	}
}
