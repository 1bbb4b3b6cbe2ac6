// internal/interface/repository/mongo_notification_repo.go
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"crewmission-service/internal/domain/entity"
	"crewmission-service/internal/domain/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoNotificationRepository implements NotificationRepository
type MongoNotificationRepository struct {
	collection *mongo.Collection
}

// NewMongoNotificationRepository creates a new MongoDB notification repository
func NewMongoNotificationRepository(db *mongo.Database) *MongoNotificationRepository {
	collection := db.Collection("notifications")

	ctx := context.Background()

	// Dedup lookups by entity and category, newest first
	dedupIndex := mongo.IndexModel{
		Keys: bson.D{
			{Key: "metadata.entityId", Value: 1},
			{Key: "category", Value: 1},
			{Key: "createdAt", Value: -1},
		},
	}

	// Inbox listing per user and per role
	userIndex := mongo.IndexModel{
		Keys: bson.D{{Key: "targetUserId", Value: 1}, {Key: "createdAt", Value: -1}},
	}
	roleIndex := mongo.IndexModel{
		Keys: bson.D{{Key: "targetRole", Value: 1}, {Key: "createdAt", Value: -1}},
	}

	collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		dedupIndex,
		userIndex,
		roleIndex,
	})

	return &MongoNotificationRepository{
		collection: collection,
	}
}

// Save inserts a notification
func (r *MongoNotificationRepository) Save(ctx context.Context, notification *entity.Notification) error {
	if notification.ID == "" {
		notification.ID = primitive.NewObjectID().Hex()
	}
	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = time.Now().UTC()
	}
	if _, err := r.collection.InsertOne(ctx, notification); err != nil {
		return fmt.Errorf("failed to save notification: %w", err)
	}
	return nil
}

// FindLastByKey returns the newest notification for entity, category and recipient
func (r *MongoNotificationRepository) FindLastByKey(ctx context.Context, key repository.DedupKey) (*entity.Notification, error) {
	filter := bson.M{
		"metadata.entityId": key.EntityID,
		"category":          key.Category,
	}
	if key.TargetUserID != "" {
		filter["targetUserId"] = key.TargetUserID
	} else {
		filter["targetUserId"] = bson.M{"$in": bson.A{"", nil}}
	}

	var notification entity.Notification
	opts := options.FindOne().SetSort(bson.M{"createdAt": -1})
	err := r.collection.FindOne(ctx, filter, opts).Decode(&notification)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find notification: %w", err)
	}
	return &notification, nil
}

// List returns notifications addressed to the user or the role, newest first
func (r *MongoNotificationRepository) List(ctx context.Context, query repository.NotificationQuery) ([]*entity.Notification, error) {
	var targets []bson.M
	if query.UserID != "" {
		targets = append(targets, bson.M{"targetUserId": query.UserID})
	}
	if query.Role != "" {
		targets = append(targets, bson.M{"targetRole": query.Role, "targetUserId": bson.M{"$in": bson.A{"", nil}}})
	}
	if len(targets) == 0 {
		return nil, nil
	}

	filter := bson.M{"$or": targets}
	if query.UnreadOnly {
		filter["read"] = false
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if query.Limit > 0 {
		opts.SetLimit(int64(query.Limit))
	}

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer cursor.Close(ctx)

	var notifications []*entity.Notification
	if err := cursor.All(ctx, &notifications); err != nil {
		return nil, fmt.Errorf("failed to decode notifications: %w", err)
	}
	return notifications, nil
}

// MarkRead flags a notification as read
func (r *MongoNotificationRepository) MarkRead(ctx context.Context, id string) error {
	result, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{
			"read":   true,
			"readAt": time.Now().UTC(),
		}},
	)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("notification %s: %w", id, repository.ErrNotFound)
	}
	return nil
}
