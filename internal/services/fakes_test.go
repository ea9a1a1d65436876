package services

import (
	"context"
	"sort"
	"time"

	"taskflow/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// In-memory repository fakes backing the workflow tests.

type fakeUserRepo struct {
	users map[primitive.ObjectID]*models.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[primitive.ObjectID]*models.User)}
}

func (r *fakeUserRepo) add(name, email string) *models.User {
	u := &models.User{
		ID:        primitive.NewObjectID(),
		Name:      name,
		Email:     email,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	r.users[u.ID] = u
	return u
}

func (r *fakeUserRepo) Create(_ context.Context, user *models.User) error {
	for _, u := range r.users {
		if u.Email == user.Email {
			return mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000}}}
		}
	}
	user.ID = primitive.NewObjectID()
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	cp := *user
	r.users[user.ID] = &cp
	return nil
}

func (r *fakeUserRepo) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	if u, ok := r.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (r *fakeUserRepo) FindByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) FindByIDs(_ context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]*models.User, error) {
	out := make(map[primitive.ObjectID]*models.User)
	for _, id := range ids {
		if u, ok := r.users[id]; ok {
			cp := *u
			out[id] = &cp
		}
	}
	return out, nil
}

func (r *fakeUserRepo) UpdateName(_ context.Context, id primitive.ObjectID, name string) (*models.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	u.Name = name
	u.UpdatedAt = time.Now()
	cp := *u
	return &cp, nil
}

func (r *fakeUserRepo) List(_ context.Context) ([]models.UserSummary, error) {
	out := []models.UserSummary{}
	for _, u := range r.users {
		out = append(out, models.UserSummary{ID: u.ID, Name: u.Name, Email: u.Email, CreatedAt: u.CreatedAt})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *fakeUserRepo) EnsureIndexes(context.Context) error { return nil }

type fakeTaskRepo struct {
	tasks map[primitive.ObjectID]*models.Task
}

func newFakeTaskRepo() *fakeTaskRepo {
	return &fakeTaskRepo{tasks: make(map[primitive.ObjectID]*models.Task)}
}

func (r *fakeTaskRepo) Store(_ context.Context, task *models.Task) error {
	task.ID = primitive.NewObjectID()
	task.CreatedAt = time.Now()
	task.UpdatedAt = task.CreatedAt
	cp := *task
	r.tasks[task.ID] = &cp
	return nil
}

func (r *fakeTaskRepo) FindByID(_ context.Context, id primitive.ObjectID) (*models.Task, error) {
	if t, ok := r.tasks[id]; ok {
		cp := *t
		return &cp, nil
	}
	return nil, nil
}

func (r *fakeTaskRepo) matching(pred func(*models.Task) bool, filter models.TaskFilter, s models.TaskSort) []models.Task {
	out := []models.Task{}
	for _, t := range r.tasks {
		if !pred(t) {
			continue
		}
		if filter.Status != nil && t.Status != *filter.Status {
			continue
		}
		if filter.Priority != nil && t.Priority != *filter.Priority {
			continue
		}
		out = append(out, *t)
	}
	field := s.Field
	if field == "" {
		field = "dueDate"
	}
	sort.Slice(out, func(i, j int) bool {
		var less bool
		switch field {
		case "createdAt":
			less = out[i].CreatedAt.Before(out[j].CreatedAt)
		case "title":
			less = out[i].Title < out[j].Title
		case "priority":
			less = out[i].Priority < out[j].Priority
		case "status":
			less = out[i].Status < out[j].Status
		default:
			less = out[i].DueDate.Before(out[j].DueDate)
		}
		if s.Desc {
			return !less
		}
		return less
	})
	return out
}

func (r *fakeTaskRepo) FindAll(_ context.Context, filter models.TaskFilter, s models.TaskSort) ([]models.Task, error) {
	return r.matching(func(*models.Task) bool { return true }, filter, s), nil
}

func (r *fakeTaskRepo) FindByCreator(_ context.Context, creatorID primitive.ObjectID, filter models.TaskFilter, s models.TaskSort) ([]models.Task, error) {
	return r.matching(func(t *models.Task) bool { return t.CreatorID == creatorID }, filter, s), nil
}

func (r *fakeTaskRepo) FindByAssignee(_ context.Context, assigneeID primitive.ObjectID, filter models.TaskFilter, s models.TaskSort) ([]models.Task, error) {
	return r.matching(func(t *models.Task) bool {
		return t.AssignedToID != nil && *t.AssignedToID == assigneeID
	}, filter, s), nil
}

func (r *fakeTaskRepo) FindOverdue(_ context.Context, userID *primitive.ObjectID, filter models.TaskFilter, s models.TaskSort) ([]models.Task, error) {
	now := time.Now()
	return r.matching(func(t *models.Task) bool {
		if !t.DueDate.Before(now) || t.Status == models.StatusCompleted {
			return false
		}
		if userID == nil {
			return true
		}
		if t.CreatorID == *userID {
			return true
		}
		return t.AssignedToID != nil && *t.AssignedToID == *userID
	}, filter, s), nil
}

func (r *fakeTaskRepo) Update(_ context.Context, task *models.Task) error {
	task.UpdatedAt = time.Now()
	cp := *task
	r.tasks[task.ID] = &cp
	return nil
}

func (r *fakeTaskRepo) Delete(_ context.Context, id primitive.ObjectID) error {
	delete(r.tasks, id)
	return nil
}

func (r *fakeTaskRepo) EnsureIndexes(context.Context) error { return nil }

type fakeNotificationRepo struct {
	notifications map[primitive.ObjectID]*models.Notification
	seq           int
}

func newFakeNotificationRepo() *fakeNotificationRepo {
	return &fakeNotificationRepo{notifications: make(map[primitive.ObjectID]*models.Notification)}
}

func (r *fakeNotificationRepo) Store(_ context.Context, n *models.Notification) error {
	n.ID = primitive.NewObjectID()
	// strictly increasing timestamps so newest-first ordering is stable
	r.seq++
	n.CreatedAt = time.Now().Add(time.Duration(r.seq) * time.Millisecond)
	n.UpdatedAt = n.CreatedAt
	cp := *n
	r.notifications[n.ID] = &cp
	return nil
}

func (r *fakeNotificationRepo) FindByUser(_ context.Context, userID primitive.ObjectID, read *bool) ([]models.Notification, error) {
	out := []models.Notification{}
	for _, n := range r.notifications {
		if n.UserID != userID {
			continue
		}
		if read != nil && n.Read != *read {
			continue
		}
		out = append(out, *n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > 50 {
		out = out[:50]
	}
	return out, nil
}

func (r *fakeNotificationRepo) CountUnread(_ context.Context, userID primitive.ObjectID) (int64, error) {
	var count int64
	for _, n := range r.notifications {
		if n.UserID == userID && !n.Read {
			count++
		}
	}
	return count, nil
}

func (r *fakeNotificationRepo) MarkRead(_ context.Context, id, userID primitive.ObjectID) (*models.Notification, error) {
	n, ok := r.notifications[id]
	if !ok || n.UserID != userID {
		return nil, nil
	}
	now := time.Now()
	n.Read = true
	n.ReadAt = &now
	cp := *n
	return &cp, nil
}

func (r *fakeNotificationRepo) MarkAllRead(_ context.Context, userID primitive.ObjectID) error {
	now := time.Now()
	for _, n := range r.notifications {
		if n.UserID == userID && !n.Read {
			n.Read = true
			n.ReadAt = &now
		}
	}
	return nil
}

func (r *fakeNotificationRepo) Delete(_ context.Context, id, userID primitive.ObjectID) (bool, error) {
	n, ok := r.notifications[id]
	if !ok || n.UserID != userID {
		return false, nil
	}
	delete(r.notifications, id)
	return true, nil
}

func (r *fakeNotificationRepo) DeleteAllByUser(_ context.Context, userID primitive.ObjectID) error {
	for id, n := range r.notifications {
		if n.UserID == userID {
			delete(r.notifications, id)
		}
	}
	return nil
}

func (r *fakeNotificationRepo) DeleteByTask(_ context.Context, taskID primitive.ObjectID) error {
	for id, n := range r.notifications {
		if n.TaskID == taskID {
			delete(r.notifications, id)
		}
	}
	return nil
}

func (r *fakeNotificationRepo) EnsureIndexes(context.Context) error { return nil }
