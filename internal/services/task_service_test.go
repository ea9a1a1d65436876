package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"taskflow/internal/models"
	"taskflow/internal/realtime"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// captureConn records every event pushed through the hub.
type captureConn struct {
	mu     sync.Mutex
	events []realtime.Event
}

func (c *captureConn) WriteJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, v.(realtime.Event))
	return nil
}

func (c *captureConn) Close() error { return nil }

func (c *captureConn) named(event string) []realtime.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := []realtime.Event{}
	for _, ev := range c.events {
		if ev.Event == event {
			out = append(out, ev)
		}
	}
	return out
}

type taskFixture struct {
	users         *fakeUserRepo
	tasks         *fakeTaskRepo
	notifications *fakeNotificationRepo
	hub           *realtime.Hub
	svc           TaskService

	creator  *models.User
	assignee *models.User
	stranger *models.User
	conns    map[primitive.ObjectID]*captureConn
}

func newTaskFixture(t *testing.T) *taskFixture {
	t.Helper()
	f := &taskFixture{
		users:         newFakeUserRepo(),
		tasks:         newFakeTaskRepo(),
		notifications: newFakeNotificationRepo(),
		hub:           realtime.NewHub(),
		conns:         make(map[primitive.ObjectID]*captureConn),
	}
	f.creator = f.users.add("Alice", "alice@example.com")
	f.assignee = f.users.add("Bob", "bob@example.com")
	f.stranger = f.users.add("Carol", "carol@example.com")

	for _, u := range []*models.User{f.creator, f.assignee, f.stranger} {
		conn := &captureConn{}
		f.hub.Register(u.ID.Hex(), conn)
		f.conns[u.ID] = conn
	}

	notificationSvc := NewNotificationService(f.notifications, f.users, f.tasks)
	f.svc = NewTaskService(f.tasks, f.users, notificationSvc, nil, f.hub)
	return f
}

func (f *taskFixture) create(t *testing.T, input models.CreateTaskInput, actor primitive.ObjectID) *models.TaskView {
	t.Helper()
	view, err := f.svc.Create(context.Background(), input, actor)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return view
}

func TestTaskCreateDefaults(t *testing.T) {
	f := newTaskFixture(t)

	view := f.create(t, models.CreateTaskInput{
		Title:   "Write quarterly report",
		DueDate: time.Now().Add(24 * time.Hour),
	}, f.creator.ID)

	if view.Priority != models.PriorityMedium {
		t.Errorf("priority = %q, want %q", view.Priority, models.PriorityMedium)
	}
	if view.Status != models.StatusToDo {
		t.Errorf("status = %q, want %q", view.Status, models.StatusToDo)
	}
	if view.Creator == nil || view.Creator.ID != f.creator.ID {
		t.Errorf("creator projection = %+v, want id %s", view.Creator, f.creator.ID.Hex())
	}
	if view.AssignedTo != nil {
		t.Errorf("assignedTo = %+v, want nil", view.AssignedTo)
	}

	if got := len(f.conns[f.stranger.ID].named("task:created")); got != 1 {
		t.Errorf("task:created broadcasts seen by stranger = %d, want 1", got)
	}
}

func TestTaskCreateNotifiesAssignee(t *testing.T) {
	f := newTaskFixture(t)

	f.create(t, models.CreateTaskInput{
		Title:        "Review pull request",
		DueDate:      time.Now().Add(time.Hour),
		AssignedToID: &f.assignee.ID,
	}, f.creator.ID)

	stored, err := f.notifications.FindByUser(context.Background(), f.assignee.ID, nil)
	if err != nil {
		t.Fatalf("FindByUser: %v", err)
	}
	if len(stored) != 1 {
		t.Fatalf("stored notifications = %d, want 1", len(stored))
	}
	if stored[0].Type != models.NotificationTaskAssigned {
		t.Errorf("type = %q, want %q", stored[0].Type, models.NotificationTaskAssigned)
	}

	if got := len(f.conns[f.assignee.ID].named("notification:new")); got != 1 {
		t.Errorf("notification:new pushes to assignee = %d, want 1", got)
	}
	if got := len(f.conns[f.stranger.ID].named("notification:new")); got != 0 {
		t.Errorf("notification:new pushes to stranger = %d, want 0", got)
	}
}

func TestTaskCreateSelfAssignedSkipsNotification(t *testing.T) {
	f := newTaskFixture(t)

	f.create(t, models.CreateTaskInput{
		Title:        "Personal errand",
		DueDate:      time.Now().Add(time.Hour),
		AssignedToID: &f.creator.ID,
	}, f.creator.ID)

	stored, _ := f.notifications.FindByUser(context.Background(), f.creator.ID, nil)
	if len(stored) != 0 {
		t.Errorf("stored notifications = %d, want 0", len(stored))
	}
	if got := len(f.conns[f.creator.ID].named("notification:new")); got != 0 {
		t.Errorf("notification:new pushes = %d, want 0", got)
	}
}

func TestTaskUpdateAuthorization(t *testing.T) {
	newTitle := "Renamed"
	tests := []struct {
		name    string
		actor   func(f *taskFixture) primitive.ObjectID
		wantErr error
	}{
		{"creator may update", func(f *taskFixture) primitive.ObjectID { return f.creator.ID }, nil},
		{"assignee may update", func(f *taskFixture) primitive.ObjectID { return f.assignee.ID }, nil},
		{"stranger may not update", func(f *taskFixture) primitive.ObjectID { return f.stranger.ID }, ErrNotAuthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newTaskFixture(t)
			view := f.create(t, models.CreateTaskInput{
				Title:        "Shared task",
				DueDate:      time.Now().Add(time.Hour),
				AssignedToID: &f.assignee.ID,
			}, f.creator.ID)

			_, _, err := f.svc.Update(context.Background(), view.ID,
				models.UpdateTaskInput{Title: &newTitle}, tt.actor(f))
			if err != tt.wantErr {
				t.Fatalf("Update err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestTaskUpdateNotFound(t *testing.T) {
	f := newTaskFixture(t)
	_, _, err := f.svc.Update(context.Background(), primitive.NewObjectID(),
		models.UpdateTaskInput{}, f.creator.ID)
	if err != ErrNotFound {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestTaskUpdateChangeSet(t *testing.T) {
	f := newTaskFixture(t)
	view := f.create(t, models.CreateTaskInput{
		Title:        "Track changes",
		DueDate:      time.Now().Add(time.Hour),
		AssignedToID: &f.assignee.ID,
	}, f.creator.ID)

	t.Run("no-op patch reports no changes", func(t *testing.T) {
		_, changes, err := f.svc.Update(context.Background(), view.ID,
			models.UpdateTaskInput{}, f.creator.ID)
		if err != nil {
			t.Fatalf("Update: %v", err)
		}
		if changes.StatusChanged || changes.PriorityChanged || changes.AssigneeChanged {
			t.Errorf("changes = %+v, want all false", changes)
		}
	})

	t.Run("status and priority flagged", func(t *testing.T) {
		status := models.StatusInProgress
		priority := models.PriorityUrgent
		_, changes, err := f.svc.Update(context.Background(), view.ID,
			models.UpdateTaskInput{Status: &status, Priority: &priority}, f.creator.ID)
		if err != nil {
			t.Fatalf("Update: %v", err)
		}
		if !changes.StatusChanged || !changes.PriorityChanged {
			t.Errorf("changes = %+v, want status and priority flagged", changes)
		}
		if changes.AssigneeChanged {
			t.Errorf("assigneeChanged = true, want false")
		}
	})

	t.Run("reassignment carries old and new ids", func(t *testing.T) {
		_, changes, err := f.svc.Update(context.Background(), view.ID,
			models.UpdateTaskInput{AssignedToID: &f.stranger.ID}, f.creator.ID)
		if err != nil {
			t.Fatalf("Update: %v", err)
		}
		if !changes.AssigneeChanged {
			t.Fatalf("assigneeChanged = false, want true")
		}
		if changes.OldAssignedToID == nil || *changes.OldAssignedToID != f.assignee.ID.Hex() {
			t.Errorf("oldAssignedToId = %v, want %s", changes.OldAssignedToID, f.assignee.ID.Hex())
		}
		if changes.NewAssignedToID == nil || *changes.NewAssignedToID != f.stranger.ID.Hex() {
			t.Errorf("newAssignedToId = %v, want %s", changes.NewAssignedToID, f.stranger.ID.Hex())
		}
	})

	t.Run("clearing the assignee", func(t *testing.T) {
		updated, changes, err := f.svc.Update(context.Background(), view.ID,
			models.UpdateTaskInput{ClearAssignee: true}, f.creator.ID)
		if err != nil {
			t.Fatalf("Update: %v", err)
		}
		if !changes.AssigneeChanged {
			t.Errorf("assigneeChanged = false, want true")
		}
		if changes.NewAssignedToID != nil {
			t.Errorf("newAssignedToId = %v, want nil", changes.NewAssignedToID)
		}
		if updated.AssignedTo != nil {
			t.Errorf("assignedTo = %+v, want nil", updated.AssignedTo)
		}
	})
}

func TestTaskUpdateKeepsCreatorAndSkipsNotifications(t *testing.T) {
	f := newTaskFixture(t)
	view := f.create(t, models.CreateTaskInput{
		Title:   "Immutable creator",
		DueDate: time.Now().Add(time.Hour),
	}, f.creator.ID)

	status := models.StatusCompleted
	updated, _, err := f.svc.Update(context.Background(), view.ID,
		models.UpdateTaskInput{Status: &status, AssignedToID: &f.assignee.ID}, f.creator.ID)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Creator == nil || updated.Creator.ID != f.creator.ID {
		t.Errorf("creator = %+v, want %s", updated.Creator, f.creator.ID.Hex())
	}

	// Assignment during update is push-only; nothing is persisted.
	stored, _ := f.notifications.FindByUser(context.Background(), f.assignee.ID, nil)
	if len(stored) != 0 {
		t.Errorf("stored notifications after update = %d, want 0", len(stored))
	}

	events := f.conns[f.stranger.ID].named("task:updated")
	if len(events) != 1 {
		t.Fatalf("task:updated broadcasts = %d, want 1", len(events))
	}
	payload, ok := events[0].Data.(map[string]interface{})
	if !ok {
		t.Fatalf("payload type = %T, want map", events[0].Data)
	}
	if _, ok := payload["task"]; !ok {
		t.Errorf("payload missing task")
	}
	if _, ok := payload["changes"]; !ok {
		t.Errorf("payload missing changes")
	}
}

func TestTaskDelete(t *testing.T) {
	t.Run("assignee may not delete", func(t *testing.T) {
		f := newTaskFixture(t)
		view := f.create(t, models.CreateTaskInput{
			Title:        "Protected",
			DueDate:      time.Now().Add(time.Hour),
			AssignedToID: &f.assignee.ID,
		}, f.creator.ID)

		if err := f.svc.Delete(context.Background(), view.ID, f.assignee.ID); err != ErrNotAuthorized {
			t.Fatalf("err = %v, want ErrNotAuthorized", err)
		}
	})

	t.Run("creator delete cascades notifications", func(t *testing.T) {
		f := newTaskFixture(t)
		view := f.create(t, models.CreateTaskInput{
			Title:        "Doomed",
			DueDate:      time.Now().Add(time.Hour),
			AssignedToID: &f.assignee.ID,
		}, f.creator.ID)

		if err := f.svc.Delete(context.Background(), view.ID, f.creator.ID); err != nil {
			t.Fatalf("Delete: %v", err)
		}
		if _, err := f.svc.GetByID(context.Background(), view.ID); err != ErrNotFound {
			t.Errorf("GetByID after delete err = %v, want ErrNotFound", err)
		}

		stored, _ := f.notifications.FindByUser(context.Background(), f.assignee.ID, nil)
		if len(stored) != 0 {
			t.Errorf("notifications after cascade = %d, want 0", len(stored))
		}

		events := f.conns[f.stranger.ID].named("task:deleted")
		if len(events) != 1 {
			t.Fatalf("task:deleted broadcasts = %d, want 1", len(events))
		}
		payload := events[0].Data.(map[string]interface{})
		if payload["taskId"] != view.ID.Hex() {
			t.Errorf("taskId = %v, want %s", payload["taskId"], view.ID.Hex())
		}
	})

	t.Run("missing task", func(t *testing.T) {
		f := newTaskFixture(t)
		if err := f.svc.Delete(context.Background(), primitive.NewObjectID(), f.creator.ID); err != ErrNotFound {
			t.Fatalf("err = %v, want ErrNotFound", err)
		}
	})
}

func TestTaskListOverdue(t *testing.T) {
	f := newTaskFixture(t)
	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(time.Hour)

	f.create(t, models.CreateTaskInput{Title: "Overdue created", DueDate: past}, f.creator.ID)
	f.create(t, models.CreateTaskInput{Title: "Overdue assigned", DueDate: past, AssignedToID: &f.creator.ID}, f.assignee.ID)
	f.create(t, models.CreateTaskInput{Title: "Still open", DueDate: future}, f.creator.ID)
	f.create(t, models.CreateTaskInput{Title: "Someone else's", DueDate: past}, f.stranger.ID)

	done := f.create(t, models.CreateTaskInput{Title: "Finished late", DueDate: past}, f.creator.ID)
	status := models.StatusCompleted
	if _, _, err := f.svc.Update(context.Background(), done.ID, models.UpdateTaskInput{Status: &status}, f.creator.ID); err != nil {
		t.Fatalf("Update: %v", err)
	}

	views, err := f.svc.ListOverdue(context.Background(), f.creator.ID, models.TaskFilter{}, models.TaskSort{})
	if err != nil {
		t.Fatalf("ListOverdue: %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("overdue tasks = %d, want 2", len(views))
	}
	titles := map[string]bool{}
	for _, v := range views {
		titles[v.Title] = true
	}
	if !titles["Overdue created"] || !titles["Overdue assigned"] {
		t.Errorf("overdue titles = %v, want the created and assigned ones", titles)
	}
}

func TestTaskListFiltersAndScopes(t *testing.T) {
	f := newTaskFixture(t)
	due := time.Now().Add(time.Hour)
	high := models.PriorityHigh

	f.create(t, models.CreateTaskInput{Title: "Mine high", DueDate: due, Priority: high}, f.creator.ID)
	f.create(t, models.CreateTaskInput{Title: "Mine low", DueDate: due, Priority: models.PriorityLow}, f.creator.ID)
	f.create(t, models.CreateTaskInput{Title: "For me", DueDate: due, AssignedToID: &f.creator.ID}, f.assignee.ID)

	created, err := f.svc.ListCreated(context.Background(), f.creator.ID, models.TaskFilter{Priority: &high}, models.TaskSort{})
	if err != nil {
		t.Fatalf("ListCreated: %v", err)
	}
	if len(created) != 1 || created[0].Title != "Mine high" {
		t.Errorf("filtered created = %+v, want only Mine high", created)
	}

	assigned, err := f.svc.ListAssigned(context.Background(), f.creator.ID, models.TaskFilter{}, models.TaskSort{})
	if err != nil {
		t.Fatalf("ListAssigned: %v", err)
	}
	if len(assigned) != 1 || assigned[0].Title != "For me" {
		t.Errorf("assigned = %+v, want only For me", assigned)
	}

	all, err := f.svc.List(context.Background(), models.TaskFilter{}, models.TaskSort{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("all tasks = %d, want 3", len(all))
	}
}
