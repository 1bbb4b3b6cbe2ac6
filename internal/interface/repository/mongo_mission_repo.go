package repository

import (
	"context"
	"errors"
	"fmt"

	"crewmission-service/internal/domain/entity"
	"crewmission-service/internal/domain/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoMissionRepository implements MissionRepository on the mission_orders collection
type MongoMissionRepository struct {
	collection *mongo.Collection
}

// NewMongoMissionRepository creates a new mission repository
func NewMongoMissionRepository(db *mongo.Database) *MongoMissionRepository {
	collection := db.Collection("mission_orders")

	ctx := context.Background()
	collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "timestamps.updatedAt", Value: -1}}},
		{Keys: bson.M{"clientId": 1}},
		{Keys: bson.M{"crew.id": 1}},
	})

	return &MongoMissionRepository{
		collection: collection,
	}
}

// Create inserts a new mission
func (r *MongoMissionRepository) Create(ctx context.Context, mission *entity.MissionOrder) error {
	if mission.ID == "" {
		mission.ID = primitive.NewObjectID().Hex()
	}
	if _, err := r.collection.InsertOne(ctx, mission); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("mission %s: %w", mission.ID, repository.ErrConflict)
		}
		return fmt.Errorf("failed to insert mission: %w", err)
	}
	return nil
}

// FindByID finds a mission by its id
func (r *MongoMissionRepository) FindByID(ctx context.Context, id string) (*entity.MissionOrder, error) {
	var mission entity.MissionOrder
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&mission)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("mission %s: %w", id, repository.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to find mission: %w", err)
	}
	return &mission, nil
}

// List returns missions matching the filter, most recently updated first
func (r *MongoMissionRepository) List(ctx context.Context, filter repository.MissionFilter) ([]*entity.MissionOrder, error) {
	query := bson.M{}
	if len(filter.Statuses) > 0 {
		query["status"] = bson.M{"$in": filter.Statuses}
	}
	if filter.Type != "" {
		query["type"] = filter.Type
	}
	if filter.ClientID != "" {
		query["clientId"] = filter.ClientID
	}
	if filter.CrewMemberID != "" {
		id := filter.CrewMemberID
		query["$or"] = bson.A{
			bson.M{"crew.id": id},
			bson.M{"crew.captain.id": id},
			bson.M{"crew.firstOfficer.id": id},
			bson.M{"crew.cabinCrew.id": id},
		}
	}

	opts := options.Find().SetSort(bson.M{"timestamps.updatedAt": -1})
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}

	cursor, err := r.collection.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list missions: %w", err)
	}
	defer cursor.Close(ctx)

	var missions []*entity.MissionOrder
	if err := cursor.All(ctx, &missions); err != nil {
		return nil, fmt.Errorf("failed to decode missions: %w", err)
	}
	return missions, nil
}

// Update replaces the mission only if status and version still match
func (r *MongoMissionRepository) Update(ctx context.Context, mission *entity.MissionOrder, expectedStatus entity.MissionStatus) error {
	filter := bson.M{
		"_id":     mission.ID,
		"status":  expectedStatus,
		"version": mission.Version,
	}

	next := *mission
	next.Version = mission.Version + 1

	result, err := r.collection.ReplaceOne(ctx, filter, &next)
	if err != nil {
		return fmt.Errorf("failed to update mission: %w", err)
	}
	if result.MatchedCount == 0 {
		count, err := r.collection.CountDocuments(ctx, bson.M{"_id": mission.ID})
		if err != nil {
			return fmt.Errorf("failed to check mission: %w", err)
		}
		if count == 0 {
			return fmt.Errorf("mission %s: %w", mission.ID, repository.ErrNotFound)
		}
		return fmt.Errorf("mission %s: %w", mission.ID, repository.ErrConflict)
	}

	mission.Version = next.Version
	return nil
}

// Upsert writes an unconditional copy of the mission
func (r *MongoMissionRepository) Upsert(ctx context.Context, mission *entity.MissionOrder) error {
	opts := options.Replace().SetUpsert(true)
	if _, err := r.collection.ReplaceOne(ctx, bson.M{"_id": mission.ID}, mission, opts); err != nil {
		return fmt.Errorf("failed to upsert mission: %w", err)
	}
	return nil
}
