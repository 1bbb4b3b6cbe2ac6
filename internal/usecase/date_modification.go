package usecase

import (
	"context"
	"time"

	"crewmission-service/internal/domain/entity"
	"crewmission-service/internal/domain/workflow"
	"crewmission-service/pkg/logger"

	"github.com/google/uuid"
)

// DateModificationRequest asks to move the contract dates
type DateModificationRequest struct {
	StartDate time.Time
	EndDate   time.Time
	Reason    string
}

// DateModificationService negotiates contract date changes after assignment
type DateModificationService struct {
	transitioner *Transitioner
	composer     EmailComposer
	logger       logger.Logger
}

// NewDateModificationService creates a new date modification service
func NewDateModificationService(transitioner *Transitioner, composer EmailComposer, logger logger.Logger) *DateModificationService {
	return &DateModificationService{
		transitioner: transitioner,
		composer:     composer,
		logger:       logger,
	}
}

// Request opens a date modification and parks the mission until it is resolved
func (s *DateModificationService) Request(ctx context.Context, actor Actor, id string, req DateModificationRequest) (*entity.MissionOrder, error) {
	return s.transitioner.Fire(ctx, TransitionRequest{
		MissionID: id,
		Event:     workflow.EventRequestDateModification,
		Actor:     actor,
		Reason:    req.Reason,
		Prepare: func(m *entity.MissionOrder, _ *workflow.Payload) error {
			if err := requireCrewMember(m, actor); err != nil {
				return err
			}
			if m.DateModification.IsPending() {
				return &workflow.ValidationError{Field: "dateModification", Message: "a date modification is already pending"}
			}
			if req.StartDate.IsZero() || req.EndDate.IsZero() {
				return &workflow.ValidationError{Field: "requestedDates", Message: "requested start and end dates are required"}
			}
			if req.EndDate.Before(req.StartDate) {
				return &workflow.ValidationError{Field: "requestedEndDate", Message: "requested end date is before the start date"}
			}
			return nil
		},
		Apply: func(m *entity.MissionOrder, from entity.MissionStatus, _ workflow.Outcome, now time.Time) error {
			m.DateModification = &entity.DateModification{
				ID:                 uuid.NewString(),
				Status:             entity.DateModificationPending,
				Reason:             req.Reason,
				RequestedBy:        actor.ID,
				RequestedByRole:    actor.Role,
				RequestedAt:        now,
				OriginalStartDate:  m.Contract.StartDate,
				OriginalEndDate:    m.Contract.EndDate,
				RequestedStartDate: req.StartDate.UTC(),
				RequestedEndDate:   req.EndDate.UTC(),
				PriorStatus:        from,
			}
			return nil
		},
	})
}

// Approve applies the requested dates and resumes the prior status
func (s *DateModificationService) Approve(ctx context.Context, actor Actor, id, comment string) (*entity.MissionOrder, error) {
	return s.transitioner.Fire(ctx, TransitionRequest{
		MissionID: id,
		Event:     workflow.EventApproveDateModification,
		Actor:     actor,
		Prepare:   requirePendingDateModification,
		Apply: func(m *entity.MissionOrder, _ entity.MissionStatus, _ workflow.Outcome, now time.Time) error {
			dm := m.DateModification
			m.Contract.StartDate = dm.RequestedStartDate
			m.Contract.EndDate = dm.RequestedEndDate
			if err := refreshDerived(m, s.composer, now); err != nil {
				return err
			}

			resolvedAt := now
			dm.Status = entity.DateModificationApproved
			dm.ResolvedBy = actor.ID
			dm.ResolvedAt = &resolvedAt
			dm.ApproverComment = comment
			m.DateModificationHistory = append(m.DateModificationHistory, *dm)
			return nil
		},
	})
}

// Reject keeps the original dates and resumes the prior status
func (s *DateModificationService) Reject(ctx context.Context, actor Actor, id, reason string) (*entity.MissionOrder, error) {
	return s.transitioner.Fire(ctx, TransitionRequest{
		MissionID: id,
		Event:     workflow.EventRejectDateModification,
		Actor:     actor,
		Reason:    reason,
		Prepare:   requirePendingDateModification,
		Apply: func(m *entity.MissionOrder, _ entity.MissionStatus, _ workflow.Outcome, now time.Time) error {
			dm := m.DateModification
			m.Contract.StartDate = dm.OriginalStartDate
			m.Contract.EndDate = dm.OriginalEndDate

			resolvedAt := now
			dm.Status = entity.DateModificationRejected
			dm.ResolvedBy = actor.ID
			dm.ResolvedAt = &resolvedAt
			dm.RejectionReason = reason
			m.DateModificationHistory = append(m.DateModificationHistory, *dm)
			return nil
		},
	})
}

func requirePendingDateModification(m *entity.MissionOrder, _ *workflow.Payload) error {
	if !m.DateModification.IsPending() {
		return &workflow.ValidationError{Field: "dateModification", Message: "no pending date modification"}
	}
	return nil
}
