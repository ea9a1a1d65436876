package repositories

import (
	"context"
	"time"

	"taskflow/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type TaskRepository interface {
	Store(ctx context.Context, task *models.Task) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Task, error)
	FindAll(ctx context.Context, filter models.TaskFilter, sort models.TaskSort) ([]models.Task, error)
	FindByCreator(ctx context.Context, creatorID primitive.ObjectID, filter models.TaskFilter, sort models.TaskSort) ([]models.Task, error)
	FindByAssignee(ctx context.Context, assigneeID primitive.ObjectID, filter models.TaskFilter, sort models.TaskSort) ([]models.Task, error)
	FindOverdue(ctx context.Context, userID *primitive.ObjectID, filter models.TaskFilter, sort models.TaskSort) ([]models.Task, error)
	Update(ctx context.Context, task *models.Task) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	EnsureIndexes(ctx context.Context) error
}

type taskRepository struct {
	coll *mongo.Collection
}

func NewTaskRepository(db *mongo.Database) TaskRepository {
	return &taskRepository{coll: db.Collection("tasks")}
}

func (r *taskRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "creatorId", Value: 1}}},
		{Keys: bson.D{{Key: "assignedToId", Value: 1}}},
		{Keys: bson.D{{Key: "dueDate", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "priority", Value: 1}}},
	})
	return err
}

func (r *taskRepository) Store(ctx context.Context, task *models.Task) error {
	now := time.Now()
	task.CreatedAt = now
	task.UpdatedAt = now
	res, err := r.coll.InsertOne(ctx, task)
	if err != nil {
		return err
	}
	task.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

func (r *taskRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Task, error) {
	var task models.Task
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&task)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *taskRepository) FindAll(ctx context.Context, filter models.TaskFilter, sort models.TaskSort) ([]models.Task, error) {
	return r.find(ctx, bson.M{}, filter, sort)
}

func (r *taskRepository) FindByCreator(ctx context.Context, creatorID primitive.ObjectID, filter models.TaskFilter, sort models.TaskSort) ([]models.Task, error) {
	return r.find(ctx, bson.M{"creatorId": creatorID}, filter, sort)
}

func (r *taskRepository) FindByAssignee(ctx context.Context, assigneeID primitive.ObjectID, filter models.TaskFilter, sort models.TaskSort) ([]models.Task, error) {
	return r.find(ctx, bson.M{"assignedToId": assigneeID}, filter, sort)
}

// FindOverdue returns tasks past due and not completed. With a userID the
// view is restricted to tasks the user created or is assigned to.
func (r *taskRepository) FindOverdue(ctx context.Context, userID *primitive.ObjectID, filter models.TaskFilter, sort models.TaskSort) ([]models.Task, error) {
	base := bson.M{
		"dueDate": bson.M{"$lt": time.Now()},
		"status":  bson.M{"$ne": models.StatusCompleted},
	}
	if userID != nil {
		base["$or"] = []bson.M{
			{"creatorId": *userID},
			{"assignedToId": *userID},
		}
	}
	return r.find(ctx, base, filter, sort)
}

func (r *taskRepository) find(ctx context.Context, base bson.M, filter models.TaskFilter, sort models.TaskSort) ([]models.Task, error) {
	if filter.Status != nil {
		base["status"] = *filter.Status
	}
	if filter.Priority != nil {
		base["priority"] = *filter.Priority
	}

	dir := 1
	if sort.Desc {
		dir = -1
	}
	field := sort.Field
	if field == "" {
		field = "dueDate"
	}
	opts := options.Find().SetSort(bson.D{{Key: field, Value: dir}})

	cursor, err := r.coll.Find(ctx, base, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	tasks := []models.Task{}
	if err := cursor.All(ctx, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *taskRepository) Update(ctx context.Context, task *models.Task) error {
	task.UpdatedAt = time.Now()
	update := bson.M{"$set": bson.M{
		"title":       task.Title,
		"description": task.Description,
		"dueDate":     task.DueDate,
		"priority":    task.Priority,
		"status":      task.Status,
		"updatedAt":   task.UpdatedAt,
	}}
	// assignedToId is unset rather than stored as null when cleared
	if task.AssignedToID != nil {
		update["$set"].(bson.M)["assignedToId"] = *task.AssignedToID
	} else {
		update["$unset"] = bson.M{"assignedToId": ""}
	}
	_, err := r.coll.UpdateOne(ctx, bson.M{"_id": task.ID}, update)
	return err
}

func (r *taskRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	return err
}
