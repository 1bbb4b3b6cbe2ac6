// Package workflow holds the mission lifecycle state machine. It performs no
// I/O: callers load the mission, ask Transition for the next status, then
// persist and notify.
package workflow

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"crewmission-service/internal/domain/entity"
	"crewmission-service/pkg/utils"
)

// MaxReasonLength bounds rejection and cancellation reasons
const MaxReasonLength = 500

// Event is an action that may move a mission to another status
type Event string

const (
	// EventCreate marks the creation entry in a mission history. Transition never accepts it.
	EventCreate Event = "create"

	EventFinanceApprove          Event = "finance_approve"
	EventFinanceReject           Event = "finance_reject"
	EventRequestOwnerApproval    Event = "request_owner_approval"
	EventOwnerApprove            Event = "owner_approve"
	EventOwnerReject             Event = "owner_reject"
	EventClientApprove           Event = "client_approve"
	EventClientReject            Event = "client_reject"
	EventLegacyApprove           Event = "legacy_approve"
	EventLegacyReject            Event = "legacy_reject"
	EventAssignToCrew            Event = "assign_to_crew"
	EventStartExecution          Event = "start_execution"
	EventCompleteExecution       Event = "complete_execution"
	EventRequestValidation       Event = "request_validation"
	EventSubmitValidation        Event = "submit_validation"
	EventAttachInvoice           Event = "attach_invoice"
	EventRequestDateModification Event = "request_date_modification"
	EventApproveDateModification Event = "approve_date_modification"
	EventRejectDateModification  Event = "reject_date_modification"
	EventCancel                  Event = "cancel"
	EventClose                   Event = "close"
)

// AllEvents lists every event Transition understands
func AllEvents() []Event {
	return []Event{
		EventFinanceApprove,
		EventFinanceReject,
		EventRequestOwnerApproval,
		EventOwnerApprove,
		EventOwnerReject,
		EventClientApprove,
		EventClientReject,
		EventLegacyApprove,
		EventLegacyReject,
		EventAssignToCrew,
		EventStartExecution,
		EventCompleteExecution,
		EventRequestValidation,
		EventSubmitValidation,
		EventAttachInvoice,
		EventRequestDateModification,
		EventApproveDateModification,
		EventRejectDateModification,
		EventCancel,
		EventClose,
	}
}

// Payload carries the mission facts an event depends on
type Payload struct {
	Reason      string
	CrewID      string
	MissionType entity.MissionType

	ContractEndDate time.Time
	ActualEndDate   *time.Time
	ExtensionReason string

	InvoiceComplete    bool
	ValidationRecorded bool

	// ResumeStatus is the status recorded when a date modification was opened
	ResumeStatus entity.MissionStatus
}

// Outcome is the result of an accepted transition
type Outcome struct {
	Next        entity.MissionStatus
	WasExtended bool
}

type rule struct {
	sources []entity.MissionStatus
	roles   []entity.Role
}

var (
	preExecution = []entity.MissionStatus{
		entity.StatusPendingFinanceReview,
		entity.StatusFinanceApproved,
		entity.StatusPendingApproval,
		entity.StatusWaitingOwnerApproval,
		entity.StatusPendingClientApproval,
		entity.StatusApproved,
		entity.StatusPendingExecution,
	}
	executable = []entity.MissionStatus{
		entity.StatusPendingExecution,
		entity.StatusInProgress,
		entity.StatusMissionOver,
	}
)

var rules = map[Event]rule{
	EventFinanceApprove:          {sources: statuses(entity.StatusPendingFinanceReview), roles: roles(entity.RoleFinance, entity.RoleAdmin)},
	EventFinanceReject:           {sources: statuses(entity.StatusPendingFinanceReview), roles: roles(entity.RoleFinance, entity.RoleAdmin)},
	EventRequestOwnerApproval:    {sources: statuses(entity.StatusFinanceApproved), roles: roles(entity.RoleFinance, entity.RoleAdmin)},
	EventOwnerApprove:            {sources: statuses(entity.StatusWaitingOwnerApproval), roles: roles(entity.RoleOwner, entity.RoleAdmin)},
	EventOwnerReject:             {sources: statuses(entity.StatusWaitingOwnerApproval), roles: roles(entity.RoleOwner, entity.RoleAdmin)},
	EventClientApprove:           {sources: statuses(entity.StatusPendingClientApproval), roles: roles(entity.RoleAdmin)},
	EventClientReject:            {sources: statuses(entity.StatusPendingClientApproval), roles: roles(entity.RoleAdmin)},
	EventLegacyApprove:           {sources: statuses(entity.StatusPendingApproval), roles: roles(entity.RoleAdmin, entity.RoleOwner)},
	EventLegacyReject:            {sources: statuses(entity.StatusPendingApproval), roles: roles(entity.RoleAdmin, entity.RoleOwner)},
	EventAssignToCrew:            {sources: statuses(entity.StatusApproved), roles: roles(entity.RoleSystem, entity.RoleAdmin)},
	EventStartExecution:          {sources: statuses(entity.StatusPendingExecution), roles: roles(entity.RoleCrew, entity.RoleAdmin)},
	EventCompleteExecution:       {sources: statuses(entity.StatusInProgress), roles: roles(entity.RoleCrew, entity.RoleAdmin)},
	EventRequestValidation:       {sources: statuses(entity.StatusInProgress, entity.StatusMissionOver), roles: roles(entity.RoleSystem, entity.RoleAdmin)},
	EventSubmitValidation:        {sources: statuses(entity.StatusMissionOver, entity.StatusPendingValidation), roles: roles(entity.RoleCrew, entity.RoleAdmin)},
	EventAttachInvoice:           {sources: statuses(entity.StatusPendingValidation), roles: roles(entity.RoleCrew, entity.RoleAdmin, entity.RoleSystem)},
	EventRequestDateModification: {sources: executable, roles: roles(entity.RoleCrew, entity.RoleAdmin)},
	EventApproveDateModification: {sources: statuses(entity.StatusPendingDateModification), roles: roles(entity.RoleAdmin)},
	EventRejectDateModification:  {sources: statuses(entity.StatusPendingDateModification), roles: roles(entity.RoleAdmin)},
	EventCancel:                  {sources: preExecution, roles: roles(entity.RoleAdmin)},
	EventClose:                   {sources: statuses(entity.StatusValidated), roles: roles(entity.RoleAdmin, entity.RoleFinance)},
}

func statuses(s ...entity.MissionStatus) []entity.MissionStatus { return s }
func roles(r ...entity.Role) []entity.Role                       { return r }

// Sources returns the statuses ev may be applied from
func Sources(ev Event) []entity.MissionStatus {
	r, ok := rules[ev]
	if !ok {
		return nil
	}
	out := make([]entity.MissionStatus, len(r.sources))
	copy(out, r.sources)
	return out
}

// Allows reports whether ev may be applied from current, ignoring payload and role
func Allows(current entity.MissionStatus, ev Event) bool {
	r, ok := rules[ev]
	return ok && containsStatus(r.sources, current)
}

// Transition validates ev against the current status, payload and actor role
// and returns the next status. Checks run in that order so a missing reason is
// reported the same way for every role.
func Transition(current entity.MissionStatus, ev Event, role entity.Role, p Payload) (Outcome, error) {
	r, ok := rules[ev]
	if !ok || !containsStatus(r.sources, current) {
		return Outcome{}, &TransitionError{From: current, Event: ev}
	}

	out, err := resolve(current, ev, p)
	if err != nil {
		return Outcome{}, err
	}

	if !containsRole(r.roles, role) {
		return Outcome{}, &RoleError{Role: role, Event: ev}
	}
	return out, nil
}

func resolve(current entity.MissionStatus, ev Event, p Payload) (Outcome, error) {
	switch ev {
	case EventFinanceApprove:
		return Outcome{Next: entity.StatusFinanceApproved}, nil
	case EventFinanceReject:
		return next(entity.StatusRejected, requireReason(p.Reason))
	case EventRequestOwnerApproval:
		return Outcome{Next: entity.StatusWaitingOwnerApproval}, nil
	case EventOwnerApprove:
		return Outcome{Next: entity.StatusPendingClientApproval}, nil
	case EventOwnerReject:
		return next(entity.StatusOwnerRejected, requireReason(p.Reason))
	case EventClientApprove:
		return next(entity.StatusApproved, boundReason(p.Reason))
	case EventClientReject:
		return next(entity.StatusClientRejected, requireReason(p.Reason))
	case EventLegacyApprove:
		return Outcome{Next: entity.StatusApproved}, nil
	case EventLegacyReject:
		return next(entity.StatusRejected, requireReason(p.Reason))
	case EventAssignToCrew:
		if strings.TrimSpace(p.CrewID) == "" {
			return Outcome{}, &ValidationError{Field: "crew.id", Message: "crew id is required to assign a mission"}
		}
		return Outcome{Next: entity.StatusPendingExecution}, nil
	case EventStartExecution:
		return Outcome{Next: entity.StatusInProgress}, nil
	case EventCompleteExecution:
		return completeExecution(p)
	case EventRequestValidation:
		return Outcome{Next: entity.StatusPendingValidation}, nil
	case EventSubmitValidation:
		return submitValidation(current, p)
	case EventAttachInvoice:
		if !p.InvoiceComplete {
			return Outcome{}, &ValidationError{Field: "serviceInvoice", Message: "a complete service invoice is required"}
		}
		if !p.ValidationRecorded {
			return Outcome{}, &ValidationError{Field: "validation", Message: "crew validation has not been submitted"}
		}
		return Outcome{Next: entity.StatusValidated}, nil
	case EventRequestDateModification:
		return next(entity.StatusPendingDateModification, requireReason(p.Reason))
	case EventApproveDateModification:
		return resumeFromDateModification(p)
	case EventRejectDateModification:
		if err := requireReason(p.Reason); err != nil {
			return Outcome{}, err
		}
		return resumeFromDateModification(p)
	case EventCancel:
		return next(entity.StatusCancelled, requireReason(p.Reason))
	case EventClose:
		return Outcome{Next: entity.StatusCompleted}, nil
	}
	return Outcome{}, &TransitionError{From: current, Event: ev}
}

func next(status entity.MissionStatus, err error) (Outcome, error) {
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Next: status}, nil
}

func completeExecution(p Payload) (Outcome, error) {
	if p.ActualEndDate == nil || p.ActualEndDate.IsZero() {
		return Outcome{}, &ValidationError{Field: "actualEndDate", Message: "actual end date is required"}
	}
	if RequiresExtension(p.ContractEndDate, *p.ActualEndDate) {
		if strings.TrimSpace(p.ExtensionReason) == "" {
			return Outcome{}, &ValidationError{Field: "extensionReason", Message: "an extension reason is required when the actual end date differs from the contract"}
		}
		if err := boundReason(p.ExtensionReason); err != nil {
			return Outcome{}, err
		}
		return Outcome{Next: entity.StatusMissionOver, WasExtended: true}, nil
	}
	return Outcome{Next: entity.StatusMissionOver}, nil
}

func submitValidation(current entity.MissionStatus, p Payload) (Outcome, error) {
	if p.MissionType != entity.MissionTypeService || p.InvoiceComplete {
		return Outcome{Next: entity.StatusValidated}, nil
	}
	// Service missions park in pending_validation until the invoice arrives.
	if current == entity.StatusMissionOver {
		return Outcome{Next: entity.StatusPendingValidation}, nil
	}
	return Outcome{}, &ValidationError{Field: "serviceInvoice", Message: "service missions require a complete invoice before validation"}
}

func resumeFromDateModification(p Payload) (Outcome, error) {
	if !p.ResumeStatus.IsExecutable() {
		return Outcome{}, &ValidationError{Field: "priorStatus", Message: fmt.Sprintf("cannot resume date modification into %q", p.ResumeStatus)}
	}
	return Outcome{Next: p.ResumeStatus}, nil
}

// RequiresExtension reports whether actual differs from the contract end day
func RequiresExtension(contractEnd, actual time.Time) bool {
	return !utils.SameDay(contractEnd, actual)
}

func requireReason(reason string) error {
	if strings.TrimSpace(reason) == "" {
		return &ValidationError{Field: "reason", Message: "a reason is required"}
	}
	return boundReason(reason)
}

func boundReason(reason string) error {
	if utf8.RuneCountInString(reason) > MaxReasonLength {
		return &ValidationError{Field: "reason", Message: fmt.Sprintf("reason exceeds %d characters", MaxReasonLength)}
	}
	return nil
}

func containsStatus(list []entity.MissionStatus, s entity.MissionStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func containsRole(list []entity.Role, r entity.Role) bool {
	for _, v := range list {
		if v == r {
			return true
		}
	}
	return false
}
