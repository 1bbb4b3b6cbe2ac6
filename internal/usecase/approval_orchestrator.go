package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"crewmission-service/internal/domain/entity"
	"crewmission-service/internal/domain/repository"
	"crewmission-service/internal/domain/workflow"
	"crewmission-service/pkg/logger"
)

const (
	opSendClientEmail workflow.Event = "send_client_email"
	opApprove         workflow.Event = "approve"
	opReject          workflow.Event = "reject"
)

// ClientDecision is the client's answer relayed by an admin
type ClientDecision struct {
	Approved bool
	Reason   string
	Comments string
	Channel  string
}

// ApprovalOrchestrator runs the finance, owner and client gates and the
// legacy single-gate variant
type ApprovalOrchestrator struct {
	transitioner *Transitioner
	missions     repository.MissionRepository
	mailer       repository.MailRepository
	composer     EmailComposer
	dates        *DateModificationService
	logger       logger.Logger
}

// NewApprovalOrchestrator creates a new approval orchestrator
func NewApprovalOrchestrator(
	transitioner *Transitioner,
	missions repository.MissionRepository,
	mailer repository.MailRepository,
	composer EmailComposer,
	dates *DateModificationService,
	logger logger.Logger,
) *ApprovalOrchestrator {
	return &ApprovalOrchestrator{
		transitioner: transitioner,
		missions:     missions,
		mailer:       mailer,
		composer:     composer,
		dates:        dates,
		logger:       logger,
	}
}

func decision(gate string, approved bool, actor Actor, reason, comment string, now time.Time) *entity.ApprovalDecision {
	return &entity.ApprovalDecision{
		Gate:      gate,
		Approved:  approved,
		ActorID:   actor.ID,
		Role:      actor.Role,
		Reason:    reason,
		Comment:   comment,
		DecidedAt: now,
	}
}

// FinanceApprove accepts the base cost
func (o *ApprovalOrchestrator) FinanceApprove(ctx context.Context, actor Actor, id, comment string) (*entity.MissionOrder, error) {
	return o.transitioner.Fire(ctx, TransitionRequest{
		MissionID: id,
		Event:     workflow.EventFinanceApprove,
		Actor:     actor,
		Apply: func(m *entity.MissionOrder, _ entity.MissionStatus, _ workflow.Outcome, now time.Time) error {
			m.FinanceDecision = decision("finance", true, actor, "", comment, now)
			return nil
		},
	})
}

// FinanceReject refuses the base cost
func (o *ApprovalOrchestrator) FinanceReject(ctx context.Context, actor Actor, id, reason string) (*entity.MissionOrder, error) {
	return o.transitioner.Fire(ctx, TransitionRequest{
		MissionID: id,
		Event:     workflow.EventFinanceReject,
		Actor:     actor,
		Reason:    reason,
		Apply: func(m *entity.MissionOrder, _ entity.MissionStatus, _ workflow.Outcome, now time.Time) error {
			m.FinanceDecision = decision("finance", false, actor, reason, "", now)
			m.ClosingReason = reason
			return nil
		},
	})
}

// SubmitToOwner hands a finance-approved mission to the owner
func (o *ApprovalOrchestrator) SubmitToOwner(ctx context.Context, actor Actor, id string) (*entity.MissionOrder, error) {
	return o.transitioner.Fire(ctx, TransitionRequest{
		MissionID: id,
		Event:     workflow.EventRequestOwnerApproval,
		Actor:     actor,
	})
}

// OwnerApprove accepts the mission and regenerates the client email from current fees
func (o *ApprovalOrchestrator) OwnerApprove(ctx context.Context, actor Actor, id, comment string) (*entity.MissionOrder, error) {
	return o.transitioner.Fire(ctx, TransitionRequest{
		MissionID: id,
		Event:     workflow.EventOwnerApprove,
		Actor:     actor,
		Apply: func(m *entity.MissionOrder, _ entity.MissionStatus, _ workflow.Outcome, now time.Time) error {
			m.OwnerDecision = decision("owner", true, actor, "", comment, now)
			return refreshDerived(m, o.composer, now)
		},
	})
}

// OwnerReject ends the mission at the owner gate
func (o *ApprovalOrchestrator) OwnerReject(ctx context.Context, actor Actor, id, reason string) (*entity.MissionOrder, error) {
	return o.transitioner.Fire(ctx, TransitionRequest{
		MissionID: id,
		Event:     workflow.EventOwnerReject,
		Actor:     actor,
		Reason:    reason,
		Apply: func(m *entity.MissionOrder, _ entity.MissionStatus, _ workflow.Outcome, now time.Time) error {
			m.OwnerDecision = decision("owner", false, actor, reason, "", now)
			m.ClosingReason = reason
			return nil
		},
	})
}

// SendClientEmail delivers the quote to the client. It records the delivery
// but never changes the mission status.
func (o *ApprovalOrchestrator) SendClientEmail(ctx context.Context, actor Actor, id string) (*entity.MissionOrder, error) {
	if err := requireRole(actor, "send client emails", entity.RoleAdmin, entity.RoleOwner); err != nil {
		return nil, err
	}

	m, err := o.transitioner.Mutate(ctx, id, opSendClientEmail, []entity.MissionStatus{entity.StatusPendingClientApproval}, func(m *entity.MissionOrder, now time.Time) error {
		if m.EmailData == nil || strings.TrimSpace(m.EmailData.Recipient) == "" {
			return &workflow.ValidationError{Field: "emailData.recipient", Message: "client email recipient is missing"}
		}

		messageID, err := o.mailer.Send(ctx, repository.OutgoingMail{
			To:      m.EmailData.Recipient,
			Subject: m.EmailData.Subject,
			Body:    m.EmailData.Body,
		})
		if err != nil {
			return fmt.Errorf("failed to send client email: %w", err)
		}

		sentAt := now
		m.EmailData.SendCount++
		m.EmailData.LastSentAt = &sentAt
		m.EmailData.MessageID = messageID
		m.Timestamps.Stamp(&m.Timestamps.ClientEmailSentAt, now)
		return nil
	})
	if err != nil {
		return nil, err
	}

	o.transitioner.LogActivity(ctx, &entity.Activity{
		Type:        "client_email_sent",
		Description: fmt.Sprintf("Quote emailed to %s", m.EmailData.Recipient),
		MissionID:   m.ID,
		UserID:      actor.ID,
		Metadata:    map[string]interface{}{"sendCount": m.EmailData.SendCount, "messageId": m.EmailData.MessageID},
	})
	return m, nil
}

// RecordClientDecision stores the client's answer and moves the mission accordingly
func (o *ApprovalOrchestrator) RecordClientDecision(ctx context.Context, actor Actor, id string, d ClientDecision) (*entity.MissionOrder, error) {
	event := workflow.EventClientReject
	if d.Approved {
		event = workflow.EventClientApprove
	}
	reason := d.Reason
	if d.Approved {
		reason = d.Comments
	}

	return o.transitioner.Fire(ctx, TransitionRequest{
		MissionID: id,
		Event:     event,
		Actor:     actor,
		Reason:    reason,
		Apply: func(m *entity.MissionOrder, _ entity.MissionStatus, _ workflow.Outcome, now time.Time) error {
			m.ClientResponse = &entity.ClientResponse{
				Approved:   d.Approved,
				Reason:     d.Reason,
				Comments:   d.Comments,
				Channel:    d.Channel,
				RecordedBy: actor.ID,
				RecordedAt: now,
			}
			if !d.Approved {
				m.ClosingReason = d.Reason
			}
			return nil
		},
	})
}

// LegacyApprove approves a single-gate legacy mission
func (o *ApprovalOrchestrator) LegacyApprove(ctx context.Context, actor Actor, id, comment string) (*entity.MissionOrder, error) {
	return o.transitioner.Fire(ctx, TransitionRequest{
		MissionID: id,
		Event:     workflow.EventLegacyApprove,
		Actor:     actor,
		Apply: func(m *entity.MissionOrder, _ entity.MissionStatus, _ workflow.Outcome, now time.Time) error {
			m.OwnerDecision = decision("legacy", true, actor, "", comment, now)
			return nil
		},
	})
}

// LegacyReject rejects a single-gate legacy mission
func (o *ApprovalOrchestrator) LegacyReject(ctx context.Context, actor Actor, id, reason string) (*entity.MissionOrder, error) {
	return o.transitioner.Fire(ctx, TransitionRequest{
		MissionID: id,
		Event:     workflow.EventLegacyReject,
		Actor:     actor,
		Reason:    reason,
		Apply: func(m *entity.MissionOrder, _ entity.MissionStatus, _ workflow.Outcome, now time.Time) error {
			m.OwnerDecision = decision("legacy", false, actor, reason, "", now)
			m.ClosingReason = reason
			return nil
		},
	})
}

// Approve applies the approval that fits the mission's current gate
func (o *ApprovalOrchestrator) Approve(ctx context.Context, actor Actor, id, comment string) (*entity.MissionOrder, error) {
	m, err := o.missions.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	switch m.Status {
	case entity.StatusPendingFinanceReview:
		return o.FinanceApprove(ctx, actor, id, comment)
	case entity.StatusFinanceApproved:
		return o.SubmitToOwner(ctx, actor, id)
	case entity.StatusWaitingOwnerApproval:
		return o.OwnerApprove(ctx, actor, id, comment)
	case entity.StatusPendingClientApproval:
		return o.RecordClientDecision(ctx, actor, id, ClientDecision{Approved: true, Comments: comment})
	case entity.StatusPendingApproval:
		return o.LegacyApprove(ctx, actor, id, comment)
	case entity.StatusPendingDateModification:
		if o.dates != nil {
			return o.dates.Approve(ctx, actor, id, comment)
		}
	}
	return nil, &workflow.TransitionError{From: m.Status, Event: opApprove}
}

// Reject applies the rejection that fits the mission's current gate
func (o *ApprovalOrchestrator) Reject(ctx context.Context, actor Actor, id, reason string) (*entity.MissionOrder, error) {
	m, err := o.missions.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	switch m.Status {
	case entity.StatusPendingFinanceReview:
		return o.FinanceReject(ctx, actor, id, reason)
	case entity.StatusWaitingOwnerApproval:
		return o.OwnerReject(ctx, actor, id, reason)
	case entity.StatusPendingClientApproval:
		return o.RecordClientDecision(ctx, actor, id, ClientDecision{Approved: false, Reason: reason})
	case entity.StatusPendingApproval:
		return o.LegacyReject(ctx, actor, id, reason)
	case entity.StatusPendingDateModification:
		if o.dates != nil {
			return o.dates.Reject(ctx, actor, id, reason)
		}
	}
	return nil, &workflow.TransitionError{From: m.Status, Event: opReject}
}
