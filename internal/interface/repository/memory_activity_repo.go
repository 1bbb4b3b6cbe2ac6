package repository

import (
	"context"
	"strconv"
	"sync"
	"time"

	"crewmission-service/internal/domain/entity"
)

// MemoryActivityRepository keeps activities in process memory
type MemoryActivityRepository struct {
	mu         sync.RWMutex
	seq        int
	activities []*entity.Activity
}

// NewMemoryActivityRepository creates an empty in-memory activity log
func NewMemoryActivityRepository() *MemoryActivityRepository {
	return &MemoryActivityRepository{}
}

// Log appends an activity
func (r *MemoryActivityRepository) Log(_ context.Context, activity *entity.Activity) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	activity.ID = strconv.Itoa(r.seq)
	if activity.CreatedAt.IsZero() {
		activity.CreatedAt = time.Now().UTC()
	}
	cp := *activity
	r.activities = append(r.activities, &cp)
	return nil
}

// ListByMission returns the newest activities of a mission
func (r *MemoryActivityRepository) ListByMission(_ context.Context, missionID string, limit int) ([]*entity.Activity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*entity.Activity
	for i := len(r.activities) - 1; i >= 0; i-- {
		if r.activities[i].MissionID != missionID {
			continue
		}
		cp := *r.activities[i]
		out = append(out, &cp)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}
