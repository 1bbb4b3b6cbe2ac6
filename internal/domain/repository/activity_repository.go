package repository

import (
	"context"

	"crewmission-service/internal/domain/entity"
)

// ActivityRepository defines the interface for the audit activity log
type ActivityRepository interface {
	Log(ctx context.Context, activity *entity.Activity) error
	ListByMission(ctx context.Context, missionID string, limit int) ([]*entity.Activity, error)
}
