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
	"crewmission-service/pkg/utils"

	"go.uber.org/multierr"
)

// CheckResult reports how many missions were moved to pending_validation
type CheckResult struct {
	Updated int `json:"updated"`
}

// ValidationChecker moves missions whose execution window has elapsed into pending_validation
type ValidationChecker struct {
	missions     repository.MissionRepository
	transitioner *Transitioner
	logger       logger.Logger
}

// NewValidationChecker creates a new validation checker
func NewValidationChecker(missions repository.MissionRepository, transitioner *Transitioner, logger logger.Logger) *ValidationChecker {
	return &ValidationChecker{
		missions:     missions,
		transitioner: transitioner,
		logger:       logger,
	}
}

// windowElapsed reports whether the last day of the mission is behind today
func windowElapsed(m *entity.MissionOrder, now time.Time) bool {
	end := m.Contract.EndDate
	if m.Status == entity.StatusMissionOver && m.Execution != nil && !m.Execution.ActualEndDate.IsZero() {
		end = m.Execution.ActualEndDate
	}
	if end.IsZero() {
		return false
	}
	return utils.DateOnly(now).After(utils.DateOnly(end))
}

// CheckForValidation applies request_validation to every elapsed mission.
// Missions already reconciled are not listed again, so reruns are no-ops.
func (c *ValidationChecker) CheckForValidation(ctx context.Context) (CheckResult, error) {
	missions, err := c.missions.List(ctx, repository.MissionFilter{
		Statuses: []entity.MissionStatus{entity.StatusInProgress, entity.StatusMissionOver},
	})
	if err != nil {
		return CheckResult{}, fmt.Errorf("failed to list missions for validation: %w", err)
	}

	now := c.transitioner.Now()
	var result CheckResult
	var errs error
	for _, m := range missions {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		if !windowElapsed(m, now) {
			continue
		}

		_, err := c.transitioner.Fire(ctx, TransitionRequest{
			MissionID: m.ID,
			Event:     workflow.EventRequestValidation,
			Actor:     SystemActor,
			Prepare: func(current *entity.MissionOrder, _ *workflow.Payload) error {
				if !windowElapsed(current, now) {
					return errNotElapsed
				}
				return nil
			},
			Apply: func(m *entity.MissionOrder, from entity.MissionStatus, _ workflow.Outcome, _ time.Time) error {
				if from != entity.StatusInProgress {
					return nil
				}
				end := utils.DateOnly(m.Contract.EndDate)
				m.Timestamps.Stamp(&m.Timestamps.ExecutionCompletedAt, end)
				m.Execution = &entity.ExecutionReport{
					ActualEndDate: end,
					WasExtended:   false,
					CompletedBy:   SystemActor.ID,
				}
				return nil
			},
		})
		switch {
		case err == nil:
			result.Updated++
		case errors.Is(err, errNotElapsed), errors.Is(err, repository.ErrConflict), workflow.IsTransitionError(err):
			// Another actor moved the mission since it was listed.
			c.logger.Debug("Skipping mission already reconciled", "missionId", m.ID, "error", err)
		default:
			c.logger.Error("Failed to request validation", "missionId", m.ID, "error", err)
			errs = multierr.Append(errs, fmt.Errorf("mission %s: %w", m.ID, err))
		}
	}

	if result.Updated > 0 {
		c.logger.Info("Missions moved to pending validation", "updated", result.Updated)
	}
	return result, errs
}

// Run adapts CheckForValidation to the poller signature
func (c *ValidationChecker) Run(ctx context.Context) error {
	_, err := c.CheckForValidation(ctx)
	return err
}

var errNotElapsed = errors.New("execution window has not elapsed")
