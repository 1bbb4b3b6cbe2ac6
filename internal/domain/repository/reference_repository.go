package repository

import (
	"context"

	"crewmission-service/internal/domain/entity"
)

// CrewRepository defines the interface for crew directory lookups
type CrewRepository interface {
	GetByID(ctx context.Context, id string) (*entity.CrewProfile, error)
}

// AircraftRepository defines the interface for aircraft lookups
type AircraftRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Aircraft, error)
}

// MarginRepository defines the interface for per-client margin lookups
type MarginRepository interface {
	GetByClientID(ctx context.Context, clientID string) (*entity.ClientMargin, error)
}
