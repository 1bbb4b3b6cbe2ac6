package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"crewmission-service/internal/domain/entity"
	"crewmission-service/internal/domain/repository"
	"crewmission-service/pkg/logger"
	"crewmission-service/pkg/metrics"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/multierr"
)

// StoreHop is one named store in the fallback chain
type StoreHop struct {
	Name  string
	Store repository.MissionRepository
}

// ResilienceConfig bounds every store call
type ResilienceConfig struct {
	Timeout    time.Duration
	Retries    int
	RetryDelay time.Duration
}

// ResilientMissionRepository reads through primary, secondary and cache in
// order. Writes go to the primary only and are then mirrored to the other hops.
type ResilientMissionRepository struct {
	primary   StoreHop
	fallbacks []StoreHop
	cfg       ResilienceConfig
	logger    logger.Logger
	metrics   *metrics.Metrics
}

// NewResilientMissionRepository creates the fallback chain. Hops with a nil store are skipped.
func NewResilientMissionRepository(primary StoreHop, fallbacks []StoreHop, cfg ResilienceConfig, logger logger.Logger, m *metrics.Metrics) *ResilientMissionRepository {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 200 * time.Millisecond
	}

	var hops []StoreHop
	for _, h := range fallbacks {
		if h.Store != nil {
			hops = append(hops, h)
		}
	}

	return &ResilientMissionRepository{
		primary:   primary,
		fallbacks: hops,
		cfg:       cfg,
		logger:    logger,
		metrics:   m,
	}
}

func retry[T any](ctx context.Context, cfg ResilienceConfig, op func(ctx context.Context) (T, error)) (T, error) {
	return backoff.Retry(ctx, func() (T, error) {
		attemptCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()

		res, err := op(attemptCtx)
		if err != nil && (errors.Is(err, repository.ErrNotFound) || errors.Is(err, repository.ErrConflict)) {
			return res, backoff.Permanent(err)
		}
		return res, err
	},
		backoff.WithBackOff(backoff.NewConstantBackOff(cfg.RetryDelay)),
		backoff.WithMaxTries(uint(cfg.Retries+1)),
	)
}

func readThrough[T any](ctx context.Context, r *ResilientMissionRepository, op string, read func(ctx context.Context, store repository.MissionRepository) (T, error)) (T, string, error) {
	var errs error

	for i, hop := range append([]StoreHop{r.primary}, r.fallbacks...) {
		res, err := retry(ctx, r.cfg, func(ctx context.Context) (T, error) {
			return read(ctx, hop.Store)
		})
		if err == nil {
			if i > 0 {
				r.metrics.StoreFallback(hop.Name)
				r.logger.Warn("Mission read served by fallback store", "op", op, "hop", hop.Name)
			}
			return res, hop.Name, nil
		}
		// The primary's answer about a missing mission is authoritative.
		if i == 0 && errors.Is(err, repository.ErrNotFound) {
			var zero T
			return zero, hop.Name, err
		}
		if ctx.Err() != nil {
			var zero T
			return zero, hop.Name, ctx.Err()
		}

		r.logger.Warn("Mission store read failed", "op", op, "hop", hop.Name, "error", err)
		errs = multierr.Append(errs, fmt.Errorf("%s: %w", hop.Name, err))
	}

	var zero T
	return zero, "", fmt.Errorf("%w: %v", repository.ErrUnavailable, errs)
}

// FindByID reads the mission from the first store that answers
func (r *ResilientMissionRepository) FindByID(ctx context.Context, id string) (*entity.MissionOrder, error) {
	mission, hop, err := readThrough(ctx, r, "find", func(ctx context.Context, store repository.MissionRepository) (*entity.MissionOrder, error) {
		return store.FindByID(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	if hop == r.primary.Name {
		r.mirror(ctx, mission)
	}
	return mission, nil
}

// List reads missions from the first store that answers
func (r *ResilientMissionRepository) List(ctx context.Context, filter repository.MissionFilter) ([]*entity.MissionOrder, error) {
	missions, _, err := readThrough(ctx, r, "list", func(ctx context.Context, store repository.MissionRepository) ([]*entity.MissionOrder, error) {
		return store.List(ctx, filter)
	})
	return missions, err
}

// Create inserts into the primary and mirrors the result
func (r *ResilientMissionRepository) Create(ctx context.Context, mission *entity.MissionOrder) error {
	ambiguous := false
	_, err := retry(ctx, r.cfg, func(ctx context.Context) (struct{}, error) {
		err := r.primary.Store.Create(ctx, mission)
		if isAmbiguous(err) {
			ambiguous = true
		}
		return struct{}{}, err
	})
	if err != nil && ambiguous && errors.Is(err, repository.ErrConflict) {
		err = r.confirmWrite(ctx, "create", mission, func(stored *entity.MissionOrder) bool {
			return sameInstant(stored.Timestamps.CreatedAt, mission.Timestamps.CreatedAt) &&
				stored.Version == mission.Version
		})
	}
	if err != nil {
		return r.writeError("create", err)
	}
	r.mirror(ctx, mission)
	return nil
}

// Update performs the guarded write on the primary and mirrors the result
func (r *ResilientMissionRepository) Update(ctx context.Context, mission *entity.MissionOrder, expectedStatus entity.MissionStatus) error {
	ambiguous := false
	_, err := retry(ctx, r.cfg, func(ctx context.Context) (struct{}, error) {
		err := r.primary.Store.Update(ctx, mission, expectedStatus)
		if isAmbiguous(err) {
			ambiguous = true
		}
		return struct{}{}, err
	})
	if err != nil && ambiguous && errors.Is(err, repository.ErrConflict) {
		err = r.confirmWrite(ctx, "update", mission, func(stored *entity.MissionOrder) bool {
			return stored.Version == mission.Version+1 &&
				stored.Status == mission.Status &&
				sameInstant(stored.Timestamps.UpdatedAt, mission.Timestamps.UpdatedAt)
		})
	}
	if err != nil {
		return r.writeError("update", err)
	}
	r.mirror(ctx, mission)
	return nil
}

// confirmWrite re-reads the primary after an attempt whose outcome was lost.
// When the stored mission matches what this write produced, the write is
// taken as applied and mission adopts the stored version.
func (r *ResilientMissionRepository) confirmWrite(ctx context.Context, op string, mission *entity.MissionOrder, applied func(stored *entity.MissionOrder) bool) error {
	stored, err := retry(ctx, r.cfg, func(ctx context.Context) (*entity.MissionOrder, error) {
		return r.primary.Store.FindByID(ctx, mission.ID)
	})
	if err != nil {
		r.logger.Warn("Failed to confirm mission write", "op", op, "missionId", mission.ID, "error", err)
		return fmt.Errorf("mission %s: %w", mission.ID, repository.ErrConflict)
	}
	if !applied(stored) {
		return fmt.Errorf("mission %s: %w", mission.ID, repository.ErrConflict)
	}
	r.logger.Info("Mission write confirmed after lost response", "op", op, "missionId", mission.ID, "version", stored.Version)
	mission.Version = stored.Version
	return nil
}

// isAmbiguous reports whether a failed attempt may still have been applied
func isAmbiguous(err error) bool {
	return err != nil &&
		!errors.Is(err, repository.ErrConflict) &&
		!errors.Is(err, repository.ErrNotFound) &&
		!errors.Is(err, context.Canceled)
}

// sameInstant compares timestamps at the millisecond precision every store keeps
func sameInstant(a, b time.Time) bool {
	return a.Truncate(time.Millisecond).Equal(b.Truncate(time.Millisecond))
}

func (r *ResilientMissionRepository) writeError(op string, err error) error {
	if errors.Is(err, repository.ErrNotFound) || errors.Is(err, repository.ErrConflict) || errors.Is(err, context.Canceled) {
		return err
	}
	r.logger.Error("Mission store write failed", "op", op, "hop", r.primary.Name, "error", err)
	return fmt.Errorf("%w: %s: %v", repository.ErrUnavailable, r.primary.Name, err)
}

func (r *ResilientMissionRepository) mirror(ctx context.Context, mission *entity.MissionOrder) {
	for _, hop := range r.fallbacks {
		mirror, ok := hop.Store.(repository.MissionMirror)
		if !ok {
			continue
		}
		mctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
		if err := mirror.Upsert(mctx, mission); err != nil {
			r.logger.Warn("Failed to mirror mission", "hop", hop.Name, "missionId", mission.ID, "error", err)
		}
		cancel()
	}
}
