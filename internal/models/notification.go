package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type NotificationType string

const (
	NotificationTaskAssigned  NotificationType = "TASK_ASSIGNED"
	NotificationTaskUpdated   NotificationType = "TASK_UPDATED"
	NotificationTaskCompleted NotificationType = "TASK_COMPLETED"
)

type Notification struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    primitive.ObjectID `bson:"userId" json:"userId"`
	Type      NotificationType   `bson:"type" json:"type"`
	Message   string             `bson:"message" json:"message"`
	TaskID    primitive.ObjectID `bson:"taskId" json:"taskId"`
	Read      bool               `bson:"read" json:"read"`
	ReadAt    *time.Time         `bson:"readAt,omitempty" json:"readAt"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// TaskRef is the task projection embedded in notification payloads.
type TaskRef struct {
	ID          primitive.ObjectID `json:"id"`
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Status      TaskStatus         `json:"status"`
	Priority    TaskPriority       `json:"priority"`
	DueDate     time.Time          `json:"dueDate"`
}

// NotificationView resolves the user and task references for responses and
// for the notification:new push payload.
type NotificationView struct {
	ID        primitive.ObjectID `json:"id"`
	User      *UserRef           `json:"userId"`
	Type      NotificationType   `json:"type"`
	Message   string             `json:"message"`
	Task      *TaskRef           `json:"taskId"`
	Read      bool               `json:"read"`
	ReadAt    *time.Time         `json:"readAt"`
	CreatedAt time.Time          `json:"createdAt"`
}
