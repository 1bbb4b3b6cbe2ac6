package repository

import (
	"context"

	"crewmission-service/internal/domain/entity"
)

// AssignmentResult is what the crew backend reports after binding a mission
type AssignmentResult struct {
	ContractGenerated bool
	ContractURL       string
}

// CrewAssignmentRepository defines the interface for the external crew assignment backend.
// AssignToCrew must be idempotent per mission.
type CrewAssignmentRepository interface {
	AssignToCrew(ctx context.Context, mission *entity.MissionOrder, generateContract bool) (*AssignmentResult, error)
}
