package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"crewmission-service/internal/domain/entity"
	"crewmission-service/internal/domain/repository"
	"crewmission-service/internal/domain/workflow"
	"crewmission-service/pkg/logger"
	"crewmission-service/pkg/metrics"
)

// Actor is whoever fires an event: a user with a role, or the system pollers
type Actor struct {
	ID   string
	Role entity.Role
}

// SystemActor is used by background pollers
var SystemActor = Actor{ID: "system", Role: entity.RoleSystem}

// TransitionContext describes an applied transition to observers
type TransitionContext struct {
	Mission *entity.MissionOrder
	From    entity.MissionStatus
	Event   workflow.Event
	Actor   Actor
	Reason  string
	Outcome workflow.Outcome
}

// TransitionObserver is told about every persisted transition
type TransitionObserver interface {
	OnTransition(ctx context.Context, tc TransitionContext) error
}

// TransitionRequest asks the engine to fire one event on one mission
type TransitionRequest struct {
	MissionID string
	Event     workflow.Event
	Actor     Actor
	Reason    string

	// Prepare adds request facts to the payload. It may reject the request.
	Prepare func(m *entity.MissionOrder, p *workflow.Payload) error
	// Apply mutates the mission once the transition is accepted
	Apply func(m *entity.MissionOrder, from entity.MissionStatus, out workflow.Outcome, now time.Time) error
}

// Transitioner loads a mission, runs the state machine, persists the result
// under an optimistic status+version check and notifies observers.
type Transitioner struct {
	missions   repository.MissionRepository
	activities repository.ActivityRepository
	observer   TransitionObserver
	logger     logger.Logger
	metrics    *metrics.Metrics
	now        func() time.Time
}

// NewTransitioner creates a new transitioner
func NewTransitioner(
	missions repository.MissionRepository,
	activities repository.ActivityRepository,
	observer TransitionObserver,
	logger logger.Logger,
	metrics *metrics.Metrics,
	now func() time.Time,
) *Transitioner {
	if now == nil {
		now = time.Now
	}
	return &Transitioner{
		missions:   missions,
		activities: activities,
		observer:   observer,
		logger:     logger,
		metrics:    metrics,
		now:        now,
	}
}

// Now returns the engine clock in UTC
func (t *Transitioner) Now() time.Time {
	return t.now().UTC()
}

// Fire applies req and returns the persisted mission
func (t *Transitioner) Fire(ctx context.Context, req TransitionRequest) (*entity.MissionOrder, error) {
	m, err := t.missions.FindByID(ctx, req.MissionID)
	if err != nil {
		return nil, err
	}

	from := m.Status
	if !workflow.Allows(from, req.Event) {
		t.metrics.TransitionFailed(string(req.Event), "transition")
		return nil, &workflow.TransitionError{From: from, Event: req.Event}
	}

	payload := basePayload(m, req.Reason)
	if req.Prepare != nil {
		if err := req.Prepare(m, &payload); err != nil {
			t.metrics.TransitionFailed(string(req.Event), failureKind(err))
			return nil, err
		}
	}

	out, err := workflow.Transition(from, req.Event, req.Actor.Role, payload)
	if err != nil {
		t.metrics.TransitionFailed(string(req.Event), failureKind(err))
		t.logger.Info("Transition rejected",
			"missionId", m.ID,
			"event", req.Event,
			"status", from,
			"role", req.Actor.Role,
			"error", err)
		return nil, err
	}

	now := t.Now()
	if req.Apply != nil {
		if err := req.Apply(m, from, out, now); err != nil {
			t.metrics.TransitionFailed(string(req.Event), failureKind(err))
			return nil, err
		}
	}

	m.Status = out.Next
	stampTransition(m, req.Event, out, now)
	m.Timestamps.UpdatedAt = now
	m.History = append(m.History, entity.TransitionRecord{
		From:    from,
		To:      out.Next,
		Event:   string(req.Event),
		ActorID: req.Actor.ID,
		Role:    req.Actor.Role,
		Reason:  req.Reason,
		At:      now,
	})

	if err := t.missions.Update(ctx, m, from); err != nil {
		t.metrics.TransitionFailed(string(req.Event), failureKind(err))
		t.logger.Warn("Failed to persist transition",
			"missionId", m.ID,
			"event", req.Event,
			"from", from,
			"to", out.Next,
			"error", err)
		return nil, err
	}

	t.metrics.TransitionApplied(string(req.Event))
	t.logger.Info("Mission transitioned",
		"missionId", m.ID,
		"event", req.Event,
		"from", from,
		"to", out.Next,
		"actorId", req.Actor.ID)

	t.afterTransition(ctx, TransitionContext{
		Mission: m,
		From:    from,
		Event:   req.Event,
		Actor:   req.Actor,
		Reason:  req.Reason,
		Outcome: out,
	})
	return m, nil
}

// Mutate updates fields of a mission without changing its status. op names
// the operation in errors when the mission is not in one of allowed.
func (t *Transitioner) Mutate(
	ctx context.Context,
	missionID string,
	op workflow.Event,
	allowed []entity.MissionStatus,
	fn func(m *entity.MissionOrder, now time.Time) error,
) (*entity.MissionOrder, error) {
	m, err := t.missions.FindByID(ctx, missionID)
	if err != nil {
		return nil, err
	}
	if !statusIn(m.Status, allowed) {
		return nil, &workflow.TransitionError{From: m.Status, Event: op}
	}

	now := t.Now()
	if err := fn(m, now); err != nil {
		return nil, err
	}
	m.Timestamps.UpdatedAt = now

	if err := t.missions.Update(ctx, m, m.Status); err != nil {
		t.logger.Warn("Failed to persist mission update", "missionId", m.ID, "op", op, "error", err)
		return nil, err
	}
	return m, nil
}

// LogActivity records an audit entry; failures are logged and swallowed
func (t *Transitioner) LogActivity(ctx context.Context, activity *entity.Activity) {
	if t.activities == nil {
		return
	}
	if activity.CreatedAt.IsZero() {
		activity.CreatedAt = t.Now()
	}
	if err := t.activities.Log(ctx, activity); err != nil {
		t.logger.Warn("Failed to log activity",
			"type", activity.Type,
			"missionId", activity.MissionID,
			"error", err)
	}
}

func (t *Transitioner) afterTransition(ctx context.Context, tc TransitionContext) {
	t.LogActivity(ctx, &entity.Activity{
		Type:        "mission_" + string(tc.Event),
		Description: fmt.Sprintf("Mission moved from %s to %s", tc.From, tc.Mission.Status),
		MissionID:   tc.Mission.ID,
		UserID:      tc.Actor.ID,
		Metadata: map[string]interface{}{
			"from":   string(tc.From),
			"to":     string(tc.Mission.Status),
			"role":   string(tc.Actor.Role),
			"reason": tc.Reason,
		},
	})

	if t.observer == nil {
		return
	}
	if err := t.observer.OnTransition(ctx, tc); err != nil {
		t.logger.Warn("Failed to notify transition",
			"missionId", tc.Mission.ID,
			"event", tc.Event,
			"error", err)
	}
}

func basePayload(m *entity.MissionOrder, reason string) workflow.Payload {
	p := workflow.Payload{
		Reason:             reason,
		CrewID:             m.Crew.ID,
		MissionType:        m.Type,
		ContractEndDate:    m.Contract.EndDate,
		InvoiceComplete:    m.ServiceInvoice.Complete() == nil,
		ValidationRecorded: m.Validation != nil,
	}
	if m.DateModification.IsPending() {
		p.ResumeStatus = m.DateModification.PriorStatus
	}
	return p
}

// stampTransition sets the lifecycle timestamps owned by each event
func stampTransition(m *entity.MissionOrder, ev workflow.Event, out workflow.Outcome, now time.Time) {
	ts := &m.Timestamps
	switch ev {
	case workflow.EventFinanceApprove:
		ts.Stamp(&ts.FinanceApprovedAt, now)
	case workflow.EventFinanceReject:
		ts.Stamp(&ts.FinanceRejectedAt, now)
		ts.Stamp(&ts.RejectedAt, now)
	case workflow.EventRequestOwnerApproval:
		ts.Stamp(&ts.OwnerSubmittedAt, now)
	case workflow.EventOwnerApprove:
		ts.Stamp(&ts.OwnerApprovedAt, now)
	case workflow.EventOwnerReject:
		ts.Stamp(&ts.OwnerRejectedAt, now)
	case workflow.EventClientApprove:
		ts.Stamp(&ts.ClientApprovedAt, now)
		ts.Stamp(&ts.ApprovedAt, now)
	case workflow.EventClientReject:
		ts.Stamp(&ts.ClientRejectedAt, now)
	case workflow.EventLegacyApprove:
		ts.Stamp(&ts.ApprovedAt, now)
	case workflow.EventLegacyReject:
		ts.Stamp(&ts.RejectedAt, now)
	case workflow.EventAssignToCrew:
		ts.Stamp(&ts.AssignedToCrewAt, now)
	case workflow.EventStartExecution:
		ts.Stamp(&ts.ExecutionStartedAt, now)
	case workflow.EventCompleteExecution:
		ts.Stamp(&ts.ExecutionCompletedAt, now)
	case workflow.EventRequestValidation:
		ts.Stamp(&ts.ValidationRequestedAt, now)
	case workflow.EventSubmitValidation, workflow.EventAttachInvoice:
		if out.Next == entity.StatusValidated {
			ts.Stamp(&ts.ValidatedAt, now)
		} else {
			ts.Stamp(&ts.ValidationRequestedAt, now)
		}
	case workflow.EventCancel:
		ts.Stamp(&ts.CancelledAt, now)
	case workflow.EventClose:
		ts.Stamp(&ts.ClosedAt, now)
	}
}

func failureKind(err error) string {
	switch {
	case workflow.IsTransitionError(err):
		return "transition"
	case workflow.IsValidationError(err):
		return "validation"
	case errors.Is(err, workflow.ErrForbidden):
		return "forbidden"
	case errors.Is(err, repository.ErrConflict):
		return "conflict"
	case errors.Is(err, repository.ErrNotFound):
		return "not_found"
	case errors.Is(err, repository.ErrUnavailable):
		return "unavailable"
	}
	return "internal"
}

func statusIn(s entity.MissionStatus, list []entity.MissionStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// requireRole returns a forbidden error unless actor has one of roles
func requireRole(actor Actor, op string, roles ...entity.Role) error {
	for _, r := range roles {
		if actor.Role == r {
			return nil
		}
	}
	return fmt.Errorf("%w: role %q may not %s", workflow.ErrForbidden, actor.Role, op)
}

// requireCrewMember rejects crew actors who are not on the mission's crew
func requireCrewMember(m *entity.MissionOrder, actor Actor) error {
	if actor.Role != entity.RoleCrew {
		return nil
	}
	if !m.Crew.HasMember(actor.ID) {
		return fmt.Errorf("%w: user %s is not on the crew of mission %s", workflow.ErrForbidden, actor.ID, m.ID)
	}
	return nil
}
