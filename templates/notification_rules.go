package templates

import (
	"fmt"

	"crewmission-service/internal/domain/entity"
	"crewmission-service/internal/domain/workflow"
	"crewmission-service/internal/usecase"
	"crewmission-service/pkg/utils"
)

// DefaultRules returns the notification rules of the mission lifecycle.
// linkBase is the admin app URL used for deep links.
func DefaultRules(linkBase string) []usecase.NotificationRule {
	return []usecase.NotificationRule{
		&ApprovalFlowRule{linkBase: linkBase},
		&RejectionRule{linkBase: linkBase},
		&CrewAssignmentRule{linkBase: linkBase},
		&ExecutionRule{linkBase: linkBase},
		&DateModificationRule{linkBase: linkBase},
	}
}

func handles(ev workflow.Event, events ...workflow.Event) bool {
	for _, e := range events {
		if e == ev {
			return true
		}
	}
	return false
}

func missionNotification(linkBase string, m *entity.MissionOrder, nType entity.NotificationType, category, title, message, action string) *entity.Notification {
	return &entity.Notification{
		Type:     nType,
		Title:    title,
		Message:  message,
		Category: category,
		Urgency:  entity.UrgencyNormal,
		Metadata: entity.NotificationMetadata{
			EntityID: m.ID,
			Action:   action,
			Link:     fmt.Sprintf("%s/missions/%s", linkBase, m.ID),
		},
	}
}

func forRole(n *entity.Notification, role entity.Role) *entity.Notification {
	n.TargetRole = role
	return n
}

func forCrew(linkBase string, m *entity.MissionOrder, nType entity.NotificationType, category, title, message, action string) []*entity.Notification {
	var out []*entity.Notification
	for _, id := range m.Crew.MemberIDs() {
		n := missionNotification(linkBase, m, nType, category, title, message, action)
		n.TargetRole = entity.RoleCrew
		n.TargetUserID = id
		out = append(out, n)
	}
	return out
}

// ApprovalFlowRule tells the next gate that a mission is waiting for it
type ApprovalFlowRule struct {
	linkBase string
}

// CanHandle determines if this rule reacts to the event
func (r *ApprovalFlowRule) CanHandle(ev workflow.Event) bool {
	return handles(ev,
		workflow.EventCreate,
		workflow.EventFinanceApprove,
		workflow.EventRequestOwnerApproval,
		workflow.EventOwnerApprove,
		workflow.EventClientApprove,
		workflow.EventLegacyApprove,
	)
}

// Build returns the notifications for the transition
func (r *ApprovalFlowRule) Build(tc usecase.TransitionContext) []*entity.Notification {
	m := tc.Mission
	crew := m.Crew.Name

	switch tc.Event {
	case workflow.EventCreate:
		if m.Status == entity.StatusPendingApproval {
			return []*entity.Notification{forRole(missionNotification(r.linkBase, m, entity.NotificationInfo,
				"mission_created", "New mission to approve",
				fmt.Sprintf("A %s mission for %s awaits approval", m.Type, crew), "approve"), entity.RoleAdmin)}
		}
		return []*entity.Notification{forRole(missionNotification(r.linkBase, m, entity.NotificationInfo,
			"finance_review_requested", "Mission awaiting finance review",
			fmt.Sprintf("A %s mission for %s needs a cost review", m.Type, crew), "finance_review"), entity.RoleFinance)}
	case workflow.EventFinanceApprove:
		return []*entity.Notification{forRole(missionNotification(r.linkBase, m, entity.NotificationSuccess,
			"finance_approved", "Finance approved a mission",
			fmt.Sprintf("Mission for %s passed finance review", crew), "submit_to_owner"), entity.RoleAdmin)}
	case workflow.EventRequestOwnerApproval:
		return []*entity.Notification{forRole(missionNotification(r.linkBase, m, entity.NotificationInfo,
			"owner_approval_requested", "Mission awaiting your approval",
			fmt.Sprintf("Mission for %s (%s) awaits owner approval", crew, m.Aircraft.Registration), "owner_review"), entity.RoleOwner)}
	case workflow.EventOwnerApprove:
		total := 0.0
		if m.EmailData != nil {
			total = m.EmailData.Fees.TotalWithMargin
		}
		return []*entity.Notification{forRole(missionNotification(r.linkBase, m, entity.NotificationSuccess,
			"client_email_ready", "Client quote ready",
			fmt.Sprintf("Owner approved the mission for %s. Quote of %.2f %s is ready to send", crew, total, m.Contract.Currency),
			"send_client_email"), entity.RoleAdmin)}
	case workflow.EventClientApprove, workflow.EventLegacyApprove:
		return []*entity.Notification{forRole(missionNotification(r.linkBase, m, entity.NotificationSuccess,
			"mission_approved", "Mission approved",
			fmt.Sprintf("Mission for %s is approved and will be assigned to the crew", crew), "view"), entity.RoleAdmin)}
	}
	return nil
}

// RejectionRule reports terminal rejections and cancellations to admins
type RejectionRule struct {
	linkBase string
}

// CanHandle determines if this rule reacts to the event
func (r *RejectionRule) CanHandle(ev workflow.Event) bool {
	return handles(ev,
		workflow.EventFinanceReject,
		workflow.EventOwnerReject,
		workflow.EventClientReject,
		workflow.EventLegacyReject,
		workflow.EventCancel,
	)
}

// Build returns the notifications for the transition
func (r *RejectionRule) Build(tc usecase.TransitionContext) []*entity.Notification {
	m := tc.Mission
	category, title := "mission_rejected", "Mission rejected"
	if tc.Event == workflow.EventCancel {
		category, title = "mission_cancelled", "Mission cancelled"
	}

	out := []*entity.Notification{forRole(missionNotification(r.linkBase, m, entity.NotificationWarning,
		category, title,
		fmt.Sprintf("Mission for %s moved to %s: %s", m.Crew.Name, m.Status, tc.Reason), "view"), entity.RoleAdmin)}

	// Crew already told about the assignment hear about the cancellation too.
	if tc.Event == workflow.EventCancel && tc.From == entity.StatusPendingExecution {
		out = append(out, forCrew(r.linkBase, m, entity.NotificationWarning, category, title,
			fmt.Sprintf("Your mission starting %s was cancelled: %s", m.Contract.StartDate.Format(utils.DATE_LAYOUT), tc.Reason),
			"view")...)
	}
	return out
}

// CrewAssignmentRule tells crew members about work that needs them
type CrewAssignmentRule struct {
	linkBase string
}

// CanHandle determines if this rule reacts to the event
func (r *CrewAssignmentRule) CanHandle(ev workflow.Event) bool {
	return handles(ev, workflow.EventAssignToCrew, workflow.EventRequestValidation)
}

// Build returns the notifications for the transition
func (r *CrewAssignmentRule) Build(tc usecase.TransitionContext) []*entity.Notification {
	m := tc.Mission
	start := m.Contract.StartDate.Format(utils.DATE_LAYOUT)
	end := m.Contract.EndDate.Format(utils.DATE_LAYOUT)

	if tc.Event == workflow.EventAssignToCrew {
		return forCrew(r.linkBase, m, entity.NotificationInfo, "mission_assigned", "New mission assigned",
			fmt.Sprintf("You are assigned to a mission on %s from %s to %s", m.Aircraft.Registration, start, end),
			"start_mission")
	}
	return forCrew(r.linkBase, m, entity.NotificationInfo, "validation_requested", "Mission ready for validation",
		fmt.Sprintf("Your mission from %s to %s has ended. Please validate it", start, end),
		"validate_mission")
}

// ExecutionRule keeps admins and finance informed about execution progress
type ExecutionRule struct {
	linkBase string
}

// CanHandle determines if this rule reacts to the event
func (r *ExecutionRule) CanHandle(ev workflow.Event) bool {
	return handles(ev,
		workflow.EventStartExecution,
		workflow.EventCompleteExecution,
		workflow.EventSubmitValidation,
		workflow.EventAttachInvoice,
		workflow.EventClose,
	)
}

// Build returns the notifications for the transition
func (r *ExecutionRule) Build(tc usecase.TransitionContext) []*entity.Notification {
	m := tc.Mission
	crew := m.Crew.Name

	switch tc.Event {
	case workflow.EventStartExecution:
		return []*entity.Notification{forRole(missionNotification(r.linkBase, m, entity.NotificationInfo,
			"mission_started", "Mission started",
			fmt.Sprintf("%s started the mission", crew), "view"), entity.RoleAdmin)}
	case workflow.EventCompleteExecution:
		if tc.Outcome.WasExtended && m.Execution != nil {
			return []*entity.Notification{forRole(missionNotification(r.linkBase, m, entity.NotificationWarning,
				"mission_extended", "Mission ended off contract dates",
				fmt.Sprintf("%s ended the mission on %s instead of %s: %s", crew,
					m.Execution.ActualEndDate.Format(utils.DATE_LAYOUT),
					m.Contract.EndDate.Format(utils.DATE_LAYOUT),
					m.Execution.ExtensionReason), "review"), entity.RoleAdmin)}
		}
		return []*entity.Notification{forRole(missionNotification(r.linkBase, m, entity.NotificationInfo,
			"mission_completed", "Mission completed",
			fmt.Sprintf("%s completed the mission", crew), "view"), entity.RoleAdmin)}
	case workflow.EventSubmitValidation, workflow.EventAttachInvoice:
		if m.Status == entity.StatusPendingValidation {
			return forCrew(r.linkBase, m, entity.NotificationInfo, "invoice_required", "Invoice required",
				"Attach your service invoice to finish validating the mission", "upload_invoice")
		}
		out := []*entity.Notification{
			forRole(missionNotification(r.linkBase, m, entity.NotificationSuccess,
				"mission_validated", "Mission validated",
				fmt.Sprintf("%s validated the mission", crew), "view"), entity.RoleAdmin),
			forRole(missionNotification(r.linkBase, m, entity.NotificationSuccess,
				"mission_ready_for_payment", "Mission ready for payment",
				fmt.Sprintf("Mission for %s is validated and can be invoiced", crew), "close"), entity.RoleFinance),
		}
		if m.Validation != nil && (m.Validation.PaymentIssue || len(m.Validation.Issues) > 0) {
			out = append(out, forRole(missionNotification(r.linkBase, m, entity.NotificationWarning,
				"validation_issues", "Crew reported issues",
				fmt.Sprintf("%s reported %d issue(s), payment issue: %t", crew, len(m.Validation.Issues), m.Validation.PaymentIssue),
				"review"), entity.RoleAdmin))
		}
		return out
	case workflow.EventClose:
		return []*entity.Notification{forRole(missionNotification(r.linkBase, m, entity.NotificationSuccess,
			"mission_closed", "Mission closed",
			fmt.Sprintf("Mission for %s is completed", crew), "view"), entity.RoleFinance)}
	}
	return nil
}

// DateModificationRule routes date change requests and their outcome
type DateModificationRule struct {
	linkBase string
}

// CanHandle determines if this rule reacts to the event
func (r *DateModificationRule) CanHandle(ev workflow.Event) bool {
	return handles(ev,
		workflow.EventRequestDateModification,
		workflow.EventApproveDateModification,
		workflow.EventRejectDateModification,
	)
}

// Build returns the notifications for the transition
func (r *DateModificationRule) Build(tc usecase.TransitionContext) []*entity.Notification {
	m := tc.Mission
	dm := m.DateModification
	if dm == nil {
		return nil
	}
	requested := fmt.Sprintf("%s to %s",
		dm.RequestedStartDate.Format(utils.DATE_LAYOUT),
		dm.RequestedEndDate.Format(utils.DATE_LAYOUT))

	if tc.Event == workflow.EventRequestDateModification {
		return []*entity.Notification{forRole(missionNotification(r.linkBase, m, entity.NotificationWarning,
			"date_modification_requested", "Date change requested",
			fmt.Sprintf("New dates %s requested for the mission of %s: %s", requested, m.Crew.Name, dm.Reason),
			"review_date_modification"), entity.RoleAdmin)}
	}

	if dm.RequestedBy == "" || dm.RequestedByRole != entity.RoleCrew {
		return nil
	}
	n := missionNotification(r.linkBase, m, entity.NotificationSuccess,
		"date_modification_resolved", "Date change approved",
		fmt.Sprintf("Your mission now runs %s", requested), "view")
	if tc.Event == workflow.EventRejectDateModification {
		n.Type = entity.NotificationWarning
		n.Title = "Date change rejected"
		n.Message = fmt.Sprintf("Your request for %s was rejected: %s", requested, dm.RejectionReason)
	}
	n.TargetRole = entity.RoleCrew
	n.TargetUserID = dm.RequestedBy
	return []*entity.Notification{n}
}
