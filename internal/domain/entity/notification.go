package entity

import "time"

// NotificationType is the visual severity of a notification
type NotificationType string

const (
	NotificationInfo    NotificationType = "info"
	NotificationWarning NotificationType = "warning"
	NotificationError   NotificationType = "error"
	NotificationSuccess NotificationType = "success"
)

// Urgency escalates persisting conditions across polls
type Urgency string

const (
	UrgencyNormal   Urgency = "normal"
	UrgencyUrgent   Urgency = "urgent"
	UrgencyCritical Urgency = "critical"
)

// Rank orders urgencies; unknown values rank lowest
func (u Urgency) Rank() int {
	switch u {
	case UrgencyNormal:
		return 1
	case UrgencyUrgent:
		return 2
	case UrgencyCritical:
		return 3
	}
	return 0
}

// Exceeds reports whether u is strictly more urgent than other
func (u Urgency) Exceeds(other Urgency) bool {
	return u.Rank() > other.Rank()
}

// NotificationMetadata links a notification back to its entity
type NotificationMetadata struct {
	EntityID string                 `bson:"entityId" json:"entityId"`
	Action   string                 `bson:"action,omitempty" json:"action,omitempty"`
	Link     string                 `bson:"link,omitempty" json:"link,omitempty"`
	Extra    map[string]interface{} `bson:"extra,omitempty" json:"extra,omitempty"`
}

// Notification is a message for a role or a single user
type Notification struct {
	ID           string               `bson:"_id" json:"id"`
	Type         NotificationType     `bson:"type" json:"type"`
	Title        string               `bson:"title" json:"title"`
	Message      string               `bson:"message" json:"message"`
	Category     string               `bson:"category" json:"category"`
	TargetUserID string               `bson:"targetUserId,omitempty" json:"targetUserId,omitempty"`
	TargetRole   Role                 `bson:"targetRole,omitempty" json:"targetRole,omitempty"`
	Urgency      Urgency              `bson:"urgency,omitempty" json:"urgency,omitempty"`
	Escalating   bool                 `bson:"escalating" json:"escalating"`
	Metadata     NotificationMetadata `bson:"metadata" json:"metadata"`
	Read         bool                 `bson:"read" json:"read"`
	CreatedAt    time.Time            `bson:"createdAt" json:"createdAt"`
	ReadAt       *time.Time           `bson:"readAt,omitempty" json:"readAt,omitempty"`
}

// Activity is an audit entry emitted by the lifecycle engine
type Activity struct {
	ID          string                 `json:"id"`
	Type        string                 `json:"type"`
	Description string                 `json:"description"`
	MissionID   string                 `json:"missionId,omitempty"`
	UserID      string                 `json:"userId"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt   time.Time              `json:"createdAt"`
}
