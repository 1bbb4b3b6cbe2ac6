package repository

import (
	"context"

	"crewmission-service/internal/domain/entity"
)

// MissionFilter narrows a mission listing; zero values match everything
type MissionFilter struct {
	Statuses     []entity.MissionStatus
	Type         entity.MissionType
	ClientID     string
	CrewMemberID string
	Limit        int
}

// MissionRepository defines the interface for mission order storage
type MissionRepository interface {
	Create(ctx context.Context, mission *entity.MissionOrder) error
	FindByID(ctx context.Context, id string) (*entity.MissionOrder, error)
	List(ctx context.Context, filter MissionFilter) ([]*entity.MissionOrder, error)
	// Update writes mission only if the stored copy still has expectedStatus and
	// mission.Version. On success mission.Version is incremented.
	Update(ctx context.Context, mission *entity.MissionOrder, expectedStatus entity.MissionStatus) error
}

// MissionMirror is implemented by stores that can take an unconditional copy
type MissionMirror interface {
	Upsert(ctx context.Context, mission *entity.MissionOrder) error
}
