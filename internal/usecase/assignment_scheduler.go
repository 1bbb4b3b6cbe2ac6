package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"crewmission-service/internal/domain/entity"
	"crewmission-service/internal/domain/repository"
	"crewmission-service/internal/domain/workflow"
	"crewmission-service/pkg/logger"
	"crewmission-service/pkg/metrics"

	"go.uber.org/multierr"
)

// AssignmentOutcome is the result of binding a mission to its crew
type AssignmentOutcome struct {
	Mission           *entity.MissionOrder `json:"mission"`
	ContractGenerated bool                 `json:"contractGenerated"`
}

// AssignmentScheduler binds approved missions to their crew on the crew backend
type AssignmentScheduler struct {
	missions         repository.MissionRepository
	backend          repository.CrewAssignmentRepository
	transitioner     *Transitioner
	dispatcher       *NotificationDispatcher
	generateContract bool
	inflight         sync.Map
	logger           logger.Logger
	metrics          *metrics.Metrics
}

// NewAssignmentScheduler creates a new assignment scheduler
func NewAssignmentScheduler(
	missions repository.MissionRepository,
	backend repository.CrewAssignmentRepository,
	transitioner *Transitioner,
	dispatcher *NotificationDispatcher,
	generateContract bool,
	logger logger.Logger,
	metrics *metrics.Metrics,
) *AssignmentScheduler {
	return &AssignmentScheduler{
		missions:         missions,
		backend:          backend,
		transitioner:     transitioner,
		dispatcher:       dispatcher,
		generateContract: generateContract,
		logger:           logger,
		metrics:          metrics,
	}
}

func eligibleForAssignment(m *entity.MissionOrder) bool {
	return m.Status == entity.StatusApproved && m.Timestamps.AssignedToCrewAt == nil && m.Crew.ID != ""
}

// RunOnce assigns every eligible mission. Failures leave the mission
// eligible for the next run.
func (s *AssignmentScheduler) RunOnce(ctx context.Context) error {
	missions, err := s.missions.List(ctx, repository.MissionFilter{
		Statuses: []entity.MissionStatus{entity.StatusApproved},
	})
	if err != nil {
		return fmt.Errorf("failed to list approved missions: %w", err)
	}

	var errs error
	assigned := 0
	for _, m := range missions {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !eligibleForAssignment(m) {
			continue
		}
		out, err := s.assign(ctx, m.ID, SystemActor)
		if errors.Is(err, errAssignmentRunning) {
			continue
		}
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("mission %s: %w", m.ID, err))
			continue
		}
		if out != nil {
			assigned++
		}
	}

	if assigned > 0 || errs != nil {
		s.logger.Info("Assignment run finished",
			"candidates", len(missions),
			"assigned", assigned,
			"failed", len(multierr.Errors(errs)))
	}
	if s.dispatcher != nil {
		if errs != nil {
			s.dispatcher.ReportBatchFailure(ctx, assignmentBatch, errs)
		} else {
			s.dispatcher.BatchSucceeded(assignmentBatch)
		}
	}
	return errs
}

// AssignToCrew assigns one mission on demand
func (s *AssignmentScheduler) AssignToCrew(ctx context.Context, actor Actor, id string) (*AssignmentOutcome, error) {
	if err := requireRole(actor, "assign missions", entity.RoleAdmin, entity.RoleSystem); err != nil {
		return nil, err
	}
	out, err := s.assign(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	if out == nil {
		m, err := s.missions.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return nil, &workflow.TransitionError{From: m.Status, Event: workflow.EventAssignToCrew}
	}
	return out, nil
}

// assign returns nil without error when the mission is no longer eligible
func (s *AssignmentScheduler) assign(ctx context.Context, id string, actor Actor) (*AssignmentOutcome, error) {
	if _, busy := s.inflight.LoadOrStore(id, struct{}{}); busy {
		return nil, fmt.Errorf("mission %s: %w", id, errAssignmentRunning)
	}
	defer s.inflight.Delete(id)

	// Eligibility comes from the stored mission, not from the listing.
	m, err := s.missions.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !eligibleForAssignment(m) {
		return nil, nil
	}

	started := time.Now()
	result, err := s.backend.AssignToCrew(ctx, m, s.generateContract)
	s.metrics.ObserveAssignment(time.Since(started).Seconds())
	if err != nil {
		s.logger.Error("Crew assignment failed", "missionId", id, "crewId", m.Crew.ID, "error", err)
		s.notifyFailure(ctx, m, err)
		return nil, fmt.Errorf("failed to assign mission to crew: %w", err)
	}

	updated, err := s.transitioner.Fire(ctx, TransitionRequest{
		MissionID: id,
		Event:     workflow.EventAssignToCrew,
		Actor:     actor,
		Apply: func(m *entity.MissionOrder, _ entity.MissionStatus, _ workflow.Outcome, _ time.Time) error {
			m.ContractGenerated = m.ContractGenerated || result.ContractGenerated
			return nil
		},
	})
	if err != nil {
		return nil, err
	}

	return &AssignmentOutcome{
		Mission:           updated,
		ContractGenerated: result.ContractGenerated,
	}, nil
}

// notifyFailure raises an admin error that escalates while the mission stays unassigned
func (s *AssignmentScheduler) notifyFailure(ctx context.Context, m *entity.MissionOrder, cause error) {
	if s.dispatcher == nil {
		return
	}
	since := m.Timestamps.UpdatedAt
	if m.Timestamps.ApprovedAt != nil {
		since = *m.Timestamps.ApprovedAt
	}

	n := &entity.Notification{
		Type:       entity.NotificationError,
		Title:      "Crew assignment failed",
		Message:    fmt.Sprintf("Mission %s could not be assigned to crew %s: %v", m.ID, m.Crew.Name, cause),
		Category:   CategoryAssignmentFailed,
		TargetRole: entity.RoleAdmin,
		Urgency:    UrgencyFor(s.transitioner.Now().Sub(since)),
		Escalating: true,
		Metadata: entity.NotificationMetadata{
			EntityID: m.ID,
			Action:   "assign",
			Link:     s.dispatcher.missionLink(m.ID),
		},
	}
	if _, err := s.dispatcher.Notify(ctx, n); err != nil {
		s.logger.Error("Failed to notify assignment failure", "missionId", m.ID, "error", err)
	}
}

const assignmentBatch = "Crew assignment"

var errAssignmentRunning = fmt.Errorf("%w: assignment already running", repository.ErrConflict)
