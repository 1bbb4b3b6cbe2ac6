package router

import (
	"fmt"

	"crewmission-service/internal/domain/workflow"
	"crewmission-service/internal/usecase"
	"crewmission-service/pkg/logger"
)

// EventRouter routes mission transitions to notification rules by event
type EventRouter struct {
	rules  []usecase.NotificationRule
	logger logger.Logger
}

// NewEventRouter creates a new event router
func NewEventRouter(logger logger.Logger) *EventRouter {
	return &EventRouter{
		rules:  make([]usecase.NotificationRule, 0),
		logger: logger,
	}
}

// Register registers a rule
func (r *EventRouter) Register(rule usecase.NotificationRule) {
	r.rules = append(r.rules, rule)
	r.logger.Info("Registered notification rule", "rule", fmt.Sprintf("%T", rule))
}

// GetRules returns every rule that handles the event, in registration order
func (r *EventRouter) GetRules(ev workflow.Event) []usecase.NotificationRule {
	var matched []usecase.NotificationRule
	for _, rule := range r.rules {
		if rule.CanHandle(ev) {
			matched = append(matched, rule)
		}
	}
	return matched
}
