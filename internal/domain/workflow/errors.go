package workflow

import (
	"errors"
	"fmt"

	"crewmission-service/internal/domain/entity"
)

// ErrForbidden is matched by errors.Is for every RoleError and membership failure
var ErrForbidden = errors.New("forbidden")

// TransitionError is returned when an event is not allowed from the current status
type TransitionError struct {
	From  entity.MissionStatus
	Event Event
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot apply %q to mission in status %q", e.Event, e.From)
}

// ValidationError is returned when the payload misses a required field
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// RoleError is returned when the actor role may not fire the event
type RoleError struct {
	Role  entity.Role
	Event Event
}

func (e *RoleError) Error() string {
	return fmt.Sprintf("role %q may not apply %q", e.Role, e.Event)
}

func (e *RoleError) Unwrap() error { return ErrForbidden }

// IsTransitionError reports whether err is or wraps a TransitionError
func IsTransitionError(err error) bool {
	var te *TransitionError
	return errors.As(err, &te)
}

// IsValidationError reports whether err is or wraps a ValidationError
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
