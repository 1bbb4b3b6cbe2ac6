package repository

import (
	"context"

	"crewmission-service/internal/domain/entity"
)

// NotificationQuery selects notifications addressed to a user or a role
type NotificationQuery struct {
	UserID     string
	Role       entity.Role
	UnreadOnly bool
	Limit      int
}

// DedupKey identifies a persisting condition for one recipient. Role-wide
// notifications leave TargetUserID empty.
type DedupKey struct {
	EntityID     string
	Category     string
	TargetUserID string
}

// NotificationRepository defines the interface for notification storage
type NotificationRepository interface {
	Save(ctx context.Context, notification *entity.Notification) error
	// FindLastByKey returns the newest notification for the dedup key, or nil when none exists
	FindLastByKey(ctx context.Context, key DedupKey) (*entity.Notification, error)
	List(ctx context.Context, query NotificationQuery) ([]*entity.Notification, error)
	MarkRead(ctx context.Context, id string) error
}
