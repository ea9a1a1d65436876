package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TaskStatus defines the possible statuses for a task.
type TaskStatus string

const (
	StatusToDo       TaskStatus = "To Do"
	StatusInProgress TaskStatus = "In Progress"
	StatusReview     TaskStatus = "Review"
	StatusCompleted  TaskStatus = "Completed"
)

func (s TaskStatus) Valid() bool {
	switch s {
	case StatusToDo, StatusInProgress, StatusReview, StatusCompleted:
		return true
	}
	return false
}

type TaskPriority string

const (
	PriorityLow    TaskPriority = "Low"
	PriorityMedium TaskPriority = "Medium"
	PriorityHigh   TaskPriority = "High"
	PriorityUrgent TaskPriority = "Urgent"
)

func (p TaskPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Task is the persisted shape. CreatorID is set at creation and never changes.
type Task struct {
	ID           primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Title        string              `bson:"title" json:"title"`
	Description  string              `bson:"description" json:"description"`
	DueDate      time.Time           `bson:"dueDate" json:"dueDate"`
	Priority     TaskPriority        `bson:"priority" json:"priority"`
	Status       TaskStatus          `bson:"status" json:"status"`
	CreatorID    primitive.ObjectID  `bson:"creatorId" json:"creatorId"`
	AssignedToID *primitive.ObjectID `bson:"assignedToId,omitempty" json:"assignedToId,omitempty"`
	CreatedAt    time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time           `bson:"updatedAt" json:"updatedAt"`
}

// TaskView is a task with creator/assignee resolved into projections.
// This is what every read path and every realtime event carries.
type TaskView struct {
	ID          primitive.ObjectID `json:"id"`
	Title       string             `json:"title"`
	Description string             `json:"description"`
	DueDate     time.Time          `json:"dueDate"`
	Priority    TaskPriority       `json:"priority"`
	Status      TaskStatus         `json:"status"`
	Creator     *UserRef           `json:"creatorId"`
	AssignedTo  *UserRef           `json:"assignedToId"`
	CreatedAt   time.Time          `json:"createdAt"`
	UpdatedAt   time.Time          `json:"updatedAt"`
}

/// TaskChanges is the change-set attached to task:updated events. Each flag
// compares the caller's own before/after view; concurrent writers race with
// last-write-wins and may both report the same change.
type TaskChanges struct {
	StatusChanged   bool    `json:"statusChanged"`
	PriorityChanged bool    `json:"priorityChanged"`
	AssigneeChanged bool    `json:"assigneeChanged"`
	OldAssignedToID *string `json:"oldAssignedToId"`
	NewAssignedToID *string `json:"newAssignedToId"`
}

// TaskFilter defines the available parameters for filtering tasks.
type TaskFilter struct {
	Status   *TaskStatus
	Priority *TaskPriority
}

// TaskSort is a whitelisted sort field plus direction.
type TaskSort struct {
	Field string // dueDate, createdAt, priority, status, title
	Desc  bool
}

// CreateTaskInput is the parsed, validated input to the task workflow.
type CreateTaskInput struct {
	Title        string
	Description  string
	DueDate      time.Time
	Priority     TaskPriority
	Status       TaskStatus
	AssignedToID *primitive.ObjectID
}

// UpdateTaskInput carries only the fields present in the patch.
type UpdateTaskInput struct {
	Title         *string
	Description   *string
	DueDate       *time.Time
	Priority      *TaskPriority
	Status        *TaskStatus
	AssignedToID  *primitive.ObjectID
	ClearAssignee bool
}
