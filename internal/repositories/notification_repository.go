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

// listLimit caps notification listings at the 50 newest records.
const listLimit = 50

type NotificationRepository interface {
	Store(ctx context.Context, n *models.Notification) error
	FindByUser(ctx context.Context, userID primitive.ObjectID, read *bool) ([]models.Notification, error)
	CountUnread(ctx context.Context, userID primitive.ObjectID) (int64, error)
	MarkRead(ctx context.Context, id, userID primitive.ObjectID) (*models.Notification, error)
	MarkAllRead(ctx context.Context, userID primitive.ObjectID) error
	Delete(ctx context.Context, id, userID primitive.ObjectID) (bool, error)
	DeleteAllByUser(ctx context.Context, userID primitive.ObjectID) error
	DeleteByTask(ctx context.Context, taskID primitive.ObjectID) error
	EnsureIndexes(ctx context.Context) error
}

type notificationRepository struct {
	coll *mongo.Collection
}

func NewNotificationRepository(db *mongo.Database) NotificationRepository {
	return &notificationRepository{coll: db.Collection("notifications")}
}

func (r *notificationRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "read", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "taskId", Value: 1}}},
	})
	return err
}

func (r *notificationRepository) Store(ctx context.Context, n *models.Notification) error {
	now := time.Now()
	n.CreatedAt = now
	n.UpdatedAt = now
	res, err := r.coll.InsertOne(ctx, n)
	if err != nil {
		return err
	}
	n.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

func (r *notificationRepository) FindByUser(ctx context.Context, userID primitive.ObjectID, read *bool) ([]models.Notification, error) {
	query := bson.M{"userId": userID}
	if read != nil {
		query["read"] = *read
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(listLimit)

	cursor, err := r.coll.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	notifications := []models.Notification{}
	if err := cursor.All(ctx, &notifications); err != nil {
		return nil, err
	}
	return notifications, nil
}

func (r *notificationRepository) CountUnread(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	return r.coll.CountDocuments(ctx, bson.M{"userId": userID, "read": false})
}

func (r *notificationRepository) MarkRead(ctx context.Context, id, userID primitive.ObjectID) (*models.Notification, error) {
	now := time.Now()
	update := bson.M{"$set": bson.M{"read": true, "readAt": now, "updatedAt": now}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var n models.Notification
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id, "userId": userID}, update, opts).Decode(&n)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, userID primitive.ObjectID) error {
	now := time.Now()
	_, err := r.coll.UpdateMany(ctx,
		bson.M{"userId": userID, "read": false},
		bson.M{"$set": bson.M{"read": true, "readAt": now, "updatedAt": now}},
	)
	return err
}

func (r *notificationRepository) Delete(ctx context.Context, id, userID primitive.ObjectID) (bool, error) {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id, "userId": userID})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}

func (r *notificationRepository) DeleteAllByUser(ctx context.Context, userID primitive.ObjectID) error {
	_, err := r.coll.DeleteMany(ctx, bson.M{"userId": userID})
	return err
}

func (r *notificationRepository) DeleteByTask(ctx context.Context, taskID primitive.ObjectID) error {
	_, err := r.coll.DeleteMany(ctx, bson.M{"taskId": taskID})
	return err
}
