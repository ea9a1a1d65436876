package services

import (
	"context"
	"log"

	"taskflow/internal/models"
	"taskflow/internal/realtime"
	"taskflow/internal/repositories"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TaskService orchestrates task mutations: authorization, change detection
// and realtime fan-out. Task events are broadcast globally; clients filter
// relevance locally. Only notification:new is targeted.
type TaskService interface {
	Create(ctx context.Context, input models.CreateTaskInput, actorID primitive.ObjectID) (*models.TaskView, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.TaskView, error)
	List(ctx context.Context, filter models.TaskFilter, sort models.TaskSort) ([]models.TaskView, error)
	ListCreated(ctx context.Context, userID primitive.ObjectID, filter models.TaskFilter, sort models.TaskSort) ([]models.TaskView, error)
	ListAssigned(ctx context.Context, userID primitive.ObjectID, filter models.TaskFilter, sort models.TaskSort) ([]models.TaskView, error)
	ListOverdue(ctx context.Context, userID primitive.ObjectID, filter models.TaskFilter, sort models.TaskSort) ([]models.TaskView, error)
	Update(ctx context.Context, id primitive.ObjectID, patch models.UpdateTaskInput, actorID primitive.ObjectID) (*models.TaskView, *models.TaskChanges, error)
	Delete(ctx context.Context, id, actorID primitive.ObjectID) error
}

type taskService struct {
	repo          repositories.TaskRepository
	users         repositories.UserRepository
	notifications NotificationService
	emails        EmailService
	hub           *realtime.Hub
}

func NewTaskService(repo repositories.TaskRepository, users repositories.UserRepository, notifications NotificationService, emails EmailService, hub *realtime.Hub) TaskService {
	return &taskService{
		repo:          repo,
		users:         users,
		notifications: notifications,
		emails:        emails,
		hub:           hub,
	}
}

func (s *taskService) Create(ctx context.Context, input models.CreateTaskInput, actorID primitive.ObjectID) (*models.TaskView, error) {
	task := &models.Task{
		Title:        input.Title,
		Description:  input.Description,
		DueDate:      input.DueDate,
		Priority:     input.Priority,
		Status:       input.Status,
		CreatorID:    actorID,
		AssignedToID: input.AssignedToID,
	}
	if task.Priority == "" {
		task.Priority = models.PriorityMedium
	}
	if task.Status == "" {
		task.Status = models.StatusToDo
	}

	if err := s.repo.Store(ctx, task); err != nil {
		return nil, err
	}

	view, err := s.resolve(ctx, task)
	if err != nil {
		return nil, err
	}

	if s.hub != nil {
		s.hub.Broadcast("task:created", view)
	}

	if task.AssignedToID != nil && *task.AssignedToID != actorID {
		s.notifyAssigned(ctx, task, view)
	}
	return view, nil
}

// notifyAssigned persists a TASK_ASSIGNED notification, pushes it to the
// assignee's room and sends a best-effort email. Failures here never fail
// the task mutation that triggered them.
func (s *taskService) notifyAssigned(ctx context.Context, task *models.Task, view *models.TaskView) {
	assigneeID := *task.AssignedToID

	notification, err := s.notifications.Create(ctx, assigneeID, models.NotificationTaskAssigned,
		"You have been assigned to task: "+task.Title, task.ID)
	if err != nil {
		log.Printf("[task][notify][warn] create notification task=%s assignee=%s: %v",
			task.ID.Hex(), assigneeID.Hex(), err)
		return
	}

	if s.hub != nil {
		s.hub.SendToUser(assigneeID.Hex(), "notification:new", notification)
	}

	if s.emails != nil && view.AssignedTo != nil {
		if err := s.emails.SendTaskAssignedEmail(view.AssignedTo.Email, view.AssignedTo.Name, task.Title, task.DueDate); err != nil {
			log.Printf("[task][notify][warn] assignment email to %s failed: %v", view.AssignedTo.Email, err)
		}
	}
}

func (s *taskService) GetByID(ctx context.Context, id primitive.ObjectID) (*models.TaskView, error) {
	task, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, ErrNotFound
	}
	return s.resolve(ctx, task)
}

func (s *taskService) List(ctx context.Context, filter models.TaskFilter, sort models.TaskSort) ([]models.TaskView, error) {
	tasks, err := s.repo.FindAll(ctx, filter, sort)
	if err != nil {
		return nil, err
	}
	return s.resolveMany(ctx, tasks)
}

func (s *taskService) ListCreated(ctx context.Context, userID primitive.ObjectID, filter models.TaskFilter, sort models.TaskSort) ([]models.TaskView, error) {
	tasks, err := s.repo.FindByCreator(ctx, userID, filter, sort)
	if err != nil {
		return nil, err
	}
	return s.resolveMany(ctx, tasks)
}

func (s *taskService) ListAssigned(ctx context.Context, userID primitive.ObjectID, filter models.TaskFilter, sort models.TaskSort) ([]models.TaskView, error) {
	tasks, err := s.repo.FindByAssignee(ctx, userID, filter, sort)
	if err != nil {
		return nil, err
	}
	return s.resolveMany(ctx, tasks)
}

func (s *taskService) ListOverdue(ctx context.Context, userID primitive.ObjectID, filter models.TaskFilter, sort models.TaskSort) ([]models.TaskView, error) {
	tasks, err := s.repo.FindOverdue(ctx, &userID, filter, sort)
	if err != nil {
		return nil, err
	}
	return s.resolveMany(ctx, tasks)
}

// Update applies a partial patch. Allowed for the creator or the current
// assignee; the creator reference itself is immutable. The returned
// change-set compares this caller's before/after view only; concurrent
// updates race with last-write-wins.
func (s *taskService) Update(ctx context.Context, id primitive.ObjectID, patch models.UpdateTaskInput, actorID primitive.ObjectID) (*models.TaskView, *models.TaskChanges, error) {
	task, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if task == nil {
		return nil, nil, ErrNotFound
	}
	if !canModify(task, actorID) {
		return nil, nil, ErrNotAuthorized
	}

	oldStatus := task.Status
	oldPriority := task.Priority
	oldAssignee := task.AssignedToID

	if patch.Title != nil {
		task.Title = *patch.Title
	}
	if patch.Description != nil {
		task.Description = *patch.Description
	}
	if patch.DueDate != nil {
		task.DueDate = *patch.DueDate
	}
	if patch.Priority != nil {
		task.Priority = *patch.Priority
	}
	if patch.Status != nil {
		task.Status = *patch.Status
	}
	if patch.ClearAssignee {
		task.AssignedToID = nil
	} else if patch.AssignedToID != nil {
		task.AssignedToID = patch.AssignedToID
	}

	if err := s.repo.Update(ctx, task); err != nil {
		return nil, nil, err
	}

	changes := &models.TaskChanges{
		StatusChanged:   oldStatus != task.Status,
		PriorityChanged: oldPriority != task.Priority,
		AssigneeChanged: !assigneeEqual(oldAssignee, task.AssignedToID),
		OldAssignedToID: hexOrNil(oldAssignee),
		NewAssignedToID: hexOrNil(task.AssignedToID),
	}

	view, err := s.resolve(ctx, task)
	if err != nil {
		return nil, nil, err
	}

	// Update events are transient push-only; no notification is persisted.
	if s.hub != nil {
		s.hub.Broadcast("task:updated", map[string]interface{}{
			"task":    view,
			"changes": changes,
		})
	}
	return view, changes, nil
}

// Delete is creator-only; the assignee may not delete. Notifications linked
// to the task are removed with it.
func (s *taskService) Delete(ctx context.Context, id, actorID primitive.ObjectID) error {
	task, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if task == nil {
		return ErrNotFound
	}
	if task.CreatorID != actorID {
		return ErrNotAuthorized
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.notifications.DeleteByTask(ctx, id); err != nil {
		log.Printf("[task][delete][warn] cascade notifications task=%s: %v", id.Hex(), err)
	}

	if s.hub != nil {
		s.hub.Broadcast("task:deleted", map[string]interface{}{"taskId": id.Hex()})
	}
	return nil
}

func canModify(task *models.Task, actorID primitive.ObjectID) bool {
	if task.CreatorID == actorID {
		return true
	}
	return task.AssignedToID != nil && *task.AssignedToID == actorID
}

func assigneeEqual(a, b *primitive.ObjectID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func hexOrNil(id *primitive.ObjectID) *string {
	if id == nil {
		return nil
	}
	h := id.Hex()
	return &h
}

func (s *taskService) resolve(ctx context.Context, task *models.Task) (*models.TaskView, error) {
	views, err := s.resolveMany(ctx, []models.Task{*task})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// resolveMany batches the user lookups for a page of tasks and builds views
// with creator/assignee projections (populate equivalent).
func (s *taskService) resolveMany(ctx context.Context, tasks []models.Task) ([]models.TaskView, error) {
	idSet := make(map[primitive.ObjectID]struct{})
	for i := range tasks {
		idSet[tasks[i].CreatorID] = struct{}{}
		if tasks[i].AssignedToID != nil {
			idSet[*tasks[i].AssignedToID] = struct{}{}
		}
	}
	ids := make([]primitive.ObjectID, 0, len(idSet))
	for id := range idSet {
		ids = append(ids, id)
	}

	users, err := s.users.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	ref := func(id primitive.ObjectID) *models.UserRef {
		if u, ok := users[id]; ok {
			return u.Ref()
		}
		return nil
	}

	views := make([]models.TaskView, 0, len(tasks))
	for i := range tasks {
		t := &tasks[i]
		view := models.TaskView{
			ID:          t.ID,
			Title:       t.Title,
			Description: t.Description,
			DueDate:     t.DueDate,
			Priority:    t.Priority,
			Status:      t.Status,
			Creator:     ref(t.CreatorID),
			CreatedAt:   t.CreatedAt,
			UpdatedAt:   t.UpdatedAt,
		}
		if t.AssignedToID != nil {
			view.AssignedTo = ref(*t.AssignedToID)
		}
		views = append(views, view)
	}
	return views, nil
}
