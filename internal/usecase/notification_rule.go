package usecase

import (
	"crewmission-service/internal/domain/entity"
	"crewmission-service/internal/domain/workflow"
)

// NotificationRule turns an applied transition into notifications
type NotificationRule interface {
	// CanHandle determines if this rule reacts to the event
	CanHandle(ev workflow.Event) bool

	// Build returns the notifications to emit for the transition
	Build(tc TransitionContext) []*entity.Notification
}

// RuleRouter routes transitions to the rules that handle them
type RuleRouter interface {
	// Register registers a rule
	Register(rule NotificationRule)

	// GetRules returns every rule that handles ev
	GetRules(ev workflow.Event) []NotificationRule
}
