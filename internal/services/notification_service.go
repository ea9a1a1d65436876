package services

import (
	"context"

	"taskflow/internal/models"
	"taskflow/internal/repositories"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NotificationService creates, lists and mutates per-user notifications.
// All reads and mutations are scoped to the owning user.
type NotificationService interface {
	Create(ctx context.Context, userID primitive.ObjectID, typ models.NotificationType, message string, taskID primitive.ObjectID) (*models.NotificationView, error)
	ListForUser(ctx context.Context, userID primitive.ObjectID, read *bool) ([]models.NotificationView, error)
	UnreadCount(ctx context.Context, userID primitive.ObjectID) (int64, error)
	MarkRead(ctx context.Context, id, userID primitive.ObjectID) (*models.NotificationView, error)
	MarkAllRead(ctx context.Context, userID primitive.ObjectID) error
	Delete(ctx context.Context, id, userID primitive.ObjectID) error
	DeleteAll(ctx context.Context, userID primitive.ObjectID) error
	DeleteByTask(ctx context.Context, taskID primitive.ObjectID) error
}

type notificationService struct {
	repo  repositories.NotificationRepository
	users repositories.UserRepository
	tasks repositories.TaskRepository
}

func NewNotificationService(repo repositories.NotificationRepository, users repositories.UserRepository, tasks repositories.TaskRepository) NotificationService {
	return &notificationService{repo: repo, users: users, tasks: tasks}
}

func (s *notificationService) Create(ctx context.Context, userID primitive.ObjectID, typ models.NotificationType, message string, taskID primitive.ObjectID) (*models.NotificationView, error) {
	n := &models.Notification{
		UserID:  userID,
		Type:    typ,
		Message: message,
		TaskID:  taskID,
		Read:    false,
	}
	if err := s.repo.Store(ctx, n); err != nil {
		return nil, err
	}
	return s.resolve(ctx, n)
}

func (s *notificationService) ListForUser(ctx context.Context, userID primitive.ObjectID, read *bool) ([]models.NotificationView, error) {
	notifications, err := s.repo.FindByUser(ctx, userID, read)
	if err != nil {
		return nil, err
	}
	views := make([]models.NotificationView, 0, len(notifications))
	for i := range notifications {
		v, err := s.resolve(ctx, &notifications[i])
		if err != nil {
			return nil, err
		}
		views = append(views, *v)
	}
	return views, nil
}

func (s *notificationService) UnreadCount(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	return s.repo.CountUnread(ctx, userID)
}

func (s *notificationService) MarkRead(ctx context.Context, id, userID primitive.ObjectID) (*models.NotificationView, error) {
	n, err := s.repo.MarkRead(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, ErrNotFound
	}
	return s.resolve(ctx, n)
}

func (s *notificationService) MarkAllRead(ctx context.Context, userID primitive.ObjectID) error {
	return s.repo.MarkAllRead(ctx, userID)
}

func (s *notificationService) Delete(ctx context.Context, id, userID primitive.ObjectID) error {
	deleted, err := s.repo.Delete(ctx, id, userID)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrNotFound
	}
	return nil
}

func (s *notificationService) DeleteAll(ctx context.Context, userID primitive.ObjectID) error {
	return s.repo.DeleteAllByUser(ctx, userID)
}

func (s *notificationService) DeleteByTask(ctx context.Context, taskID primitive.ObjectID) error {
	return s.repo.DeleteByTask(ctx, taskID)
}

// resolve attaches the user and task projections. A vanished reference
// leaves the projection nil instead of failing the read.
func (s *notificationService) resolve(ctx context.Context, n *models.Notification) (*models.NotificationView, error) {
	view := &models.NotificationView{
		ID:        n.ID,
		Type:      n.Type,
		Message:   n.Message,
		Read:      n.Read,
		ReadAt:    n.ReadAt,
		CreatedAt: n.CreatedAt,
	}

	user, err := s.users.FindByID(ctx, n.UserID)
	if err != nil {
		return nil, err
	}
	if user != nil {
		view.User = user.Ref()
	}

	task, err := s.tasks.FindByID(ctx, n.TaskID)
	if err != nil {
		return nil, err
	}
	if task != nil {
		view.Task = &models.TaskRef{
			ID:          task.ID,
			Title:       task.Title,
			Description: task.Description,
			Status:      task.Status,
			Priority:    task.Priority,
			DueDate:     task.DueDate,
		}
	}
	return view, nil
}
