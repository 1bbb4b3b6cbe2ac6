package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"crewmission-service/internal/domain/entity"
	"crewmission-service/pkg/logger"

	"gorm.io/gorm"
)

// GormActivityRepository implements the ActivityRepository interface
type GormActivityRepository struct {
	db     *gorm.DB
	logger logger.Logger
}

// NewGormActivityRepository creates a new GORM activity repository
func NewGormActivityRepository(db *gorm.DB, logger logger.Logger) *GormActivityRepository {
	return &GormActivityRepository{
		db:     db,
		logger: logger,
	}
}

// ActivityLogs GORM model for database mapping
type ActivityLogs struct {
	gorm.Model
	Type        string `gorm:"column:type"`
	Description string `gorm:"column:description"`
	MissionID   string `gorm:"column:mission_id;index"`
	UserID      string `gorm:"column:user_id"`
	Metadata    string `gorm:"column:metadata;type:text"`
}

// TableName overrides the default table name
func (ActivityLogs) TableName() string {
	return "activity_logs"
}

// Log inserts a new activity into the database
func (r *GormActivityRepository) Log(ctx context.Context, activity *entity.Activity) error {
	var metadata string
	if len(activity.Metadata) > 0 {
		data, err := json.Marshal(activity.Metadata)
		if err != nil {
			return fmt.Errorf("failed to encode activity metadata: %w", err)
		}
		metadata = string(data)
	}

	model := ActivityLogs{
		Type:        activity.Type,
		Description: activity.Description,
		MissionID:   activity.MissionID,
		UserID:      activity.UserID,
		Metadata:    metadata,
	}

	result := r.db.WithContext(ctx).Create(&model)
	if result.Error != nil {
		return fmt.Errorf("failed to log activity: %w", result.Error)
	}

	activity.ID = strconv.FormatUint(uint64(model.ID), 10)
	activity.CreatedAt = model.CreatedAt
	return nil
}

// ListByMission returns the newest activities of a mission
func (r *GormActivityRepository) ListByMission(ctx context.Context, missionID string, limit int) ([]*entity.Activity, error) {
	var logs []ActivityLogs
	query := r.db.WithContext(ctx).Where("mission_id = ?", missionID).Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("failed to list activities: %w", err)
	}

	// Convert to domain entities
	activities := make([]*entity.Activity, 0, len(logs))
	for _, l := range logs {
		a, err := activityFromLog(l)
		if err != nil {
			r.logger.Warn("Activity metadata could not be decoded",
				"activityId", a.ID,
				"missionId", missionID,
				"error", err)
		}
		activities = append(activities, a)
	}
	return activities, nil
}

// activityFromLog converts a row. Undecodable metadata is kept verbatim
// under "raw" and reported as an error.
func activityFromLog(l ActivityLogs) (*entity.Activity, error) {
	a := &entity.Activity{
		ID:          strconv.FormatUint(uint64(l.ID), 10),
		Type:        l.Type,
		Description: l.Description,
		MissionID:   l.MissionID,
		UserID:      l.UserID,
		CreatedAt:   l.CreatedAt,
	}
	if l.Metadata == "" {
		return a, nil
	}
	if err := json.Unmarshal([]byte(l.Metadata), &a.Metadata); err != nil {
		a.Metadata = map[string]interface{}{"raw": l.Metadata}
		return a, fmt.Errorf("failed to decode metadata of activity %s: %w", a.ID, err)
	}
	return a, nil
}
