package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"crewmission-service/internal/domain/entity"
	"crewmission-service/internal/domain/repository"

	"github.com/google/uuid"
)

// MemoryMissionRepository keeps missions in process memory. It backs the
// last hop of the read fallback chain and local runs without a database.
type MemoryMissionRepository struct {
	mu       sync.RWMutex
	missions map[string][]byte
}

// NewMemoryMissionRepository creates an empty in-memory mission store
func NewMemoryMissionRepository() *MemoryMissionRepository {
	return &MemoryMissionRepository{
		missions: make(map[string][]byte),
	}
}

func encodeMission(m *entity.MissionOrder) ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to encode mission: %w", err)
	}
	return data, nil
}

func decodeMission(data []byte) (*entity.MissionOrder, error) {
	var m entity.MissionOrder
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to decode mission: %w", err)
	}
	return &m, nil
}

// Create stores a new mission
func (r *MemoryMissionRepository) Create(_ context.Context, mission *entity.MissionOrder) error {
	if mission.ID == "" {
		mission.ID = uuid.NewString()
	}
	data, err := encodeMission(mission)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.missions[mission.ID]; exists {
		return fmt.Errorf("mission %s: %w", mission.ID, repository.ErrConflict)
	}
	r.missions[mission.ID] = data
	return nil
}

// FindByID returns a private copy of the stored mission
func (r *MemoryMissionRepository) FindByID(_ context.Context, id string) (*entity.MissionOrder, error) {
	r.mu.RLock()
	data, ok := r.missions[id]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("mission %s: %w", id, repository.ErrNotFound)
	}
	return decodeMission(data)
}

// List returns missions matching the filter, most recently updated first
func (r *MemoryMissionRepository) List(_ context.Context, filter repository.MissionFilter) ([]*entity.MissionOrder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var missions []*entity.MissionOrder
	for _, data := range r.missions {
		m, err := decodeMission(data)
		if err != nil {
			return nil, err
		}
		if matchesFilter(m, filter) {
			missions = append(missions, m)
		}
	}

	sort.Slice(missions, func(i, j int) bool {
		return missions[i].Timestamps.UpdatedAt.After(missions[j].Timestamps.UpdatedAt)
	})
	if filter.Limit > 0 && len(missions) > filter.Limit {
		missions = missions[:filter.Limit]
	}
	return missions, nil
}

func matchesFilter(m *entity.MissionOrder, filter repository.MissionFilter) bool {
	if len(filter.Statuses) > 0 {
		found := false
		for _, s := range filter.Statuses {
			if m.Status == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if filter.Type != "" && m.Type != filter.Type {
		return false
	}
	if filter.ClientID != "" && m.ClientID != filter.ClientID {
		return false
	}
	if filter.CrewMemberID != "" && !m.Crew.HasMember(filter.CrewMemberID) {
		return false
	}
	return true
}

// Update writes the mission only if status and version still match
func (r *MemoryMissionRepository) Update(_ context.Context, mission *entity.MissionOrder, expectedStatus entity.MissionStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, ok := r.missions[mission.ID]
	if !ok {
		return fmt.Errorf("mission %s: %w", mission.ID, repository.ErrNotFound)
	}
	stored, err := decodeMission(data)
	if err != nil {
		return err
	}
	if stored.Status != expectedStatus || stored.Version != mission.Version {
		return fmt.Errorf("mission %s: %w", mission.ID, repository.ErrConflict)
	}

	next := *mission
	next.Version = mission.Version + 1
	encoded, err := encodeMission(&next)
	if err != nil {
		return err
	}
	r.missions[mission.ID] = encoded
	mission.Version = next.Version
	return nil
}

// Upsert stores an unconditional copy of the mission
func (r *MemoryMissionRepository) Upsert(_ context.Context, mission *entity.MissionOrder) error {
	data, err := encodeMission(mission)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.missions[mission.ID] = data
	r.mu.Unlock()
	return nil
}
