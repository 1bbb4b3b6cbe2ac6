package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"crewmission-service/internal/domain/entity"
	"crewmission-service/internal/domain/repository"

	"github.com/google/uuid"
)

// MemoryNotificationRepository keeps notifications in process memory
type MemoryNotificationRepository struct {
	mu            sync.RWMutex
	notifications []*entity.Notification
}

// NewMemoryNotificationRepository creates an empty in-memory notification store
func NewMemoryNotificationRepository() *MemoryNotificationRepository {
	return &MemoryNotificationRepository{}
}

// Save stores a copy of the notification
func (r *MemoryNotificationRepository) Save(_ context.Context, notification *entity.Notification) error {
	if notification.ID == "" {
		notification.ID = uuid.NewString()
	}
	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = time.Now().UTC()
	}
	cp := *notification

	r.mu.Lock()
	r.notifications = append(r.notifications, &cp)
	r.mu.Unlock()
	return nil
}

// FindLastByKey returns the newest notification for entity, category and recipient
func (r *MemoryNotificationRepository) FindLastByKey(_ context.Context, key repository.DedupKey) (*entity.Notification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for i := len(r.notifications) - 1; i >= 0; i-- {
		n := r.notifications[i]
		if n.Metadata.EntityID == key.EntityID && n.Category == key.Category && n.TargetUserID == key.TargetUserID {
			cp := *n
			return &cp, nil
		}
	}
	return nil, nil
}

// List returns notifications addressed to the user or the role, newest first
func (r *MemoryNotificationRepository) List(_ context.Context, query repository.NotificationQuery) ([]*entity.Notification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*entity.Notification
	for _, n := range r.notifications {
		forUser := query.UserID != "" && n.TargetUserID == query.UserID
		forRole := query.Role != "" && n.TargetUserID == "" && n.TargetRole == query.Role
		if !forUser && !forRole {
			continue
		}
		if query.UnreadOnly && n.Read {
			continue
		}
		cp := *n
		out = append(out, &cp)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if query.Limit > 0 && len(out) > query.Limit {
		out = out[:query.Limit]
	}
	return out, nil
}

// MarkRead flags a notification as read
func (r *MemoryNotificationRepository) MarkRead(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, n := range r.notifications {
		if n.ID == id {
			now := time.Now().UTC()
			n.Read = true
			n.ReadAt = &now
			return nil
		}
	}
	return fmt.Errorf("notification %s: %w", id, repository.ErrNotFound)
}

// All returns every stored notification in insertion order
func (r *MemoryNotificationRepository) All() []*entity.Notification {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*entity.Notification, len(r.notifications))
	for i, n := range r.notifications {
		cp := *n
		out[i] = &cp
	}
	return out
}
