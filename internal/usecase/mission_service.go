package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"crewmission-service/internal/domain/entity"
	"crewmission-service/internal/domain/repository"
	"crewmission-service/internal/domain/workflow"
	"crewmission-service/pkg/logger"

	"github.com/google/uuid"
)

const opUpdateContract workflow.Event = "update_contract"

// contractEditable lists the statuses in which the contract may still change
var contractEditable = []entity.MissionStatus{
	entity.StatusPendingFinanceReview,
	entity.StatusFinanceApproved,
	entity.StatusWaitingOwnerApproval,
	entity.StatusPendingApproval,
}

// MissionDraft is the input of mission creation. Crew and aircraft are either
// looked up by id in the reference directory or given inline.
type MissionDraft struct {
	Type        entity.MissionType
	ClientID    string
	ClientEmail string

	CrewID   string
	Crew     *entity.CrewSnapshot
	Aircraft *entity.AircraftSnapshot
	// AircraftID is used when Aircraft is nil
	AircraftID string
	Flights    []entity.FlightSnapshot

	Contract entity.Contract
	Margin   *entity.MarginConfig
	Legacy   bool
}

// MissionService owns mission creation, queries and the non-gated updates
type MissionService struct {
	missions      repository.MissionRepository
	crews         repository.CrewRepository
	aircraft      repository.AircraftRepository
	margins       repository.MarginRepository
	transitioner  *Transitioner
	observer      TransitionObserver
	composer      EmailComposer
	defaultMargin entity.MarginConfig
	logger        logger.Logger
}

// NewMissionService creates a new mission service. Reference repositories may be nil.
func NewMissionService(
	missions repository.MissionRepository,
	crews repository.CrewRepository,
	aircraft repository.AircraftRepository,
	margins repository.MarginRepository,
	transitioner *Transitioner,
	observer TransitionObserver,
	composer EmailComposer,
	defaultMargin entity.MarginConfig,
	logger logger.Logger,
) *MissionService {
	return &MissionService{
		missions:      missions,
		crews:         crews,
		aircraft:      aircraft,
		margins:       margins,
		transitioner:  transitioner,
		observer:      observer,
		composer:      composer,
		defaultMargin: defaultMargin,
		logger:        logger,
	}
}

// Create builds a mission from the draft with frozen snapshots and derived fees
func (s *MissionService) Create(ctx context.Context, actor Actor, draft MissionDraft) (*entity.MissionOrder, error) {
	if err := requireRole(actor, "create missions", entity.RoleAdmin, entity.RoleSystem); err != nil {
		return nil, err
	}
	if !draft.Type.Valid() {
		return nil, &workflow.ValidationError{Field: "type", Message: fmt.Sprintf("unknown mission type %q", draft.Type)}
	}
	if draft.Contract.StartDate.IsZero() || draft.Contract.EndDate.IsZero() {
		return nil, &workflow.ValidationError{Field: "contract", Message: "start and end dates are required"}
	}
	if draft.Contract.SalaryAmount < 0 {
		return nil, &workflow.ValidationError{Field: "contract.salaryAmount", Message: "salary must not be negative"}
	}

	crew, err := s.resolveCrew(ctx, draft)
	if err != nil {
		return nil, err
	}
	aircraft, err := s.resolveAircraft(ctx, draft)
	if err != nil {
		return nil, err
	}
	margin, recipient, err := s.resolveMargin(ctx, draft)
	if err != nil {
		return nil, err
	}

	status := entity.StatusPendingFinanceReview
	if draft.Legacy {
		status = entity.StatusPendingApproval
	}

	now := s.transitioner.Now()
	m := &entity.MissionOrder{
		ID:        uuid.NewString(),
		Type:      draft.Type,
		Status:    status,
		ClientID:  draft.ClientID,
		CreatedBy: actor.ID,
		Timestamps: entity.MissionTimestamps{
			CreatedAt: now,
			UpdatedAt: now,
		},
		Crew:      crew,
		Aircraft:  aircraft,
		Flights:   draft.Flights,
		Contract:  normalizeContract(draft.Contract),
		Margin:    margin,
		EmailData: &entity.EmailData{Recipient: recipient},
		History: []entity.TransitionRecord{{
			To:      status,
			Event:   string(workflow.EventCreate),
			ActorID: actor.ID,
			Role:    actor.Role,
			At:      now,
		}},
	}
	if err := refreshDerived(m, s.composer, now); err != nil {
		return nil, err
	}

	if err := s.missions.Create(ctx, m); err != nil {
		return nil, fmt.Errorf("failed to create mission: %w", err)
	}

	s.logger.Info("Mission created",
		"missionId", m.ID,
		"type", m.Type,
		"status", m.Status,
		"crewId", m.Crew.ID,
		"totalWithMargin", m.EmailData.Fees.TotalWithMargin)

	s.transitioner.LogActivity(ctx, &entity.Activity{
		Type:        "mission_created",
		Description: fmt.Sprintf("Mission created for crew %s", m.Crew.Name),
		MissionID:   m.ID,
		UserID:      actor.ID,
		Metadata:    map[string]interface{}{"type": string(m.Type), "legacy": draft.Legacy},
	})
	if s.observer != nil {
		tc := TransitionContext{Mission: m, Event: workflow.EventCreate, Actor: actor, Outcome: workflow.Outcome{Next: status}}
		if err := s.observer.OnTransition(ctx, tc); err != nil {
			s.logger.Warn("Failed to notify mission creation", "missionId", m.ID, "error", err)
		}
	}
	return m, nil
}

func (s *MissionService) resolveCrew(ctx context.Context, draft MissionDraft) (entity.CrewSnapshot, error) {
	if draft.Crew != nil {
		if strings.TrimSpace(draft.Crew.ID) == "" {
			return entity.CrewSnapshot{}, &workflow.ValidationError{Field: "crew.id", Message: "crew id is required"}
		}
		return *draft.Crew, nil
	}
	if draft.CrewID == "" {
		return entity.CrewSnapshot{}, &workflow.ValidationError{Field: "crew", Message: "a crew id or crew snapshot is required"}
	}
	if s.crews == nil {
		return entity.CrewSnapshot{}, &workflow.ValidationError{Field: "crew", Message: "crew directory unavailable, pass an inline crew snapshot"}
	}
	profile, err := s.crews.GetByID(ctx, draft.CrewID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return entity.CrewSnapshot{}, &workflow.ValidationError{Field: "crewId", Message: fmt.Sprintf("crew %s not found", draft.CrewID)}
		}
		return entity.CrewSnapshot{}, fmt.Errorf("failed to load crew: %w", err)
	}
	return profile.Snapshot(), nil
}

func (s *MissionService) resolveAircraft(ctx context.Context, draft MissionDraft) (entity.AircraftSnapshot, error) {
	if draft.Aircraft != nil {
		return *draft.Aircraft, nil
	}
	if draft.AircraftID == "" || s.aircraft == nil {
		return entity.AircraftSnapshot{}, nil
	}
	aircraft, err := s.aircraft.GetByID(ctx, draft.AircraftID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return entity.AircraftSnapshot{}, &workflow.ValidationError{Field: "aircraftId", Message: fmt.Sprintf("aircraft %s not found", draft.AircraftID)}
		}
		return entity.AircraftSnapshot{}, fmt.Errorf("failed to load aircraft: %w", err)
	}
	return aircraft.Snapshot(), nil
}

// resolveMargin picks the draft margin, then the client's negotiated one, then the default
func (s *MissionService) resolveMargin(ctx context.Context, draft MissionDraft) (entity.MarginConfig, string, error) {
	recipient := draft.ClientEmail
	margin := s.defaultMargin

	if draft.ClientID != "" && s.margins != nil {
		cm, err := s.margins.GetByClientID(ctx, draft.ClientID)
		switch {
		case err == nil:
			margin = cm.Margin
			if recipient == "" {
				recipient = cm.ContactEmail
			}
		case errors.Is(err, repository.ErrNotFound):
		default:
			s.logger.Warn("Failed to load client margin, using default", "clientId", draft.ClientID, "error", err)
		}
	}
	if draft.Margin != nil {
		margin = *draft.Margin
	}
	if err := margin.Validate(); err != nil {
		return entity.MarginConfig{}, "", &workflow.ValidationError{Field: "margin", Message: err.Error()}
	}
	return margin, recipient, nil
}

func normalizeContract(c entity.Contract) entity.Contract {
	c.StartDate = c.StartDate.UTC()
	c.EndDate = c.EndDate.UTC()
	if c.SalaryType == "" {
		c.SalaryType = entity.SalaryDaily
	}
	return c
}

// Get returns one mission. Crew actors may only read their own missions.
func (s *MissionService) Get(ctx context.Context, actor Actor, id string) (*entity.MissionOrder, error) {
	m, err := s.missions.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := requireCrewMember(m, actor); err != nil {
		return nil, err
	}
	return m, nil
}

// List returns missions matching the filter
func (s *MissionService) List(ctx context.Context, filter repository.MissionFilter) ([]*entity.MissionOrder, error) {
	return s.missions.List(ctx, filter)
}

// UpdateContract replaces the contract terms before the owner has approved
// and regenerates duration and email data
func (s *MissionService) UpdateContract(ctx context.Context, actor Actor, id string, contract entity.Contract) (*entity.MissionOrder, error) {
	if err := requireRole(actor, "update contracts", entity.RoleAdmin, entity.RoleFinance); err != nil {
		return nil, err
	}
	if contract.StartDate.IsZero() || contract.EndDate.IsZero() {
		return nil, &workflow.ValidationError{Field: "contract", Message: "start and end dates are required"}
	}

	m, err := s.transitioner.Mutate(ctx, id, opUpdateContract, contractEditable, func(m *entity.MissionOrder, now time.Time) error {
		m.Contract = normalizeContract(contract)
		return refreshDerived(m, s.composer, now)
	})
	if err != nil {
		return nil, err
	}

	s.transitioner.LogActivity(ctx, &entity.Activity{
		Type:        "mission_contract_updated",
		Description: "Contract terms updated",
		MissionID:   m.ID,
		UserID:      actor.ID,
		Metadata:    map[string]interface{}{"duration": m.Duration, "totalWithMargin": m.EmailData.Fees.TotalWithMargin},
	})
	return m, nil
}

// Cancel stops a mission that has not started executing
func (s *MissionService) Cancel(ctx context.Context, actor Actor, id, reason string) (*entity.MissionOrder, error) {
	return s.transitioner.Fire(ctx, TransitionRequest{
		MissionID: id,
		Event:     workflow.EventCancel,
		Actor:     actor,
		Reason:    reason,
		Apply: func(m *entity.MissionOrder, _ entity.MissionStatus, _ workflow.Outcome, _ time.Time) error {
			m.ClosingReason = reason
			return nil
		},
	})
}

// Close marks a validated mission as invoiced and completed
func (s *MissionService) Close(ctx context.Context, actor Actor, id string) (*entity.MissionOrder, error) {
	return s.transitioner.Fire(ctx, TransitionRequest{
		MissionID: id,
		Event:     workflow.EventClose,
		Actor:     actor,
	})
}

// Activity returns the audit trail of a mission
func (s *MissionService) Activity(ctx context.Context, actor Actor, id string, limit int) ([]*entity.Activity, error) {
	if _, err := s.Get(ctx, actor, id); err != nil {
		return nil, err
	}
	if s.transitioner.activities == nil {
		return nil, nil
	}
	return s.transitioner.activities.ListByMission(ctx, id, limit)
}
