package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"crewmission-service/internal/domain/entity"
	"crewmission-service/internal/domain/repository"
	"crewmission-service/pkg/logger"
	"crewmission-service/pkg/metrics"

	"go.uber.org/multierr"
)

// Escalation thresholds for persisting conditions
const (
	UrgentAfter   = 8 * time.Hour
	CriticalAfter = 24 * time.Hour
)

// Notification categories raised by the escalation scan
const (
	CategoryClientResponsePending   = "client_response_pending"
	CategoryClientEmailUnsent       = "client_email_unsent"
	CategoryDateModificationPending = "date_modification_pending"
	CategoryValidationPending       = "validation_pending"
	CategoryAssignmentFailed        = "assignment_failed"
	CategoryBatchFailure            = "batch_failure"
)

// UrgencyFor maps how long a condition has persisted to an urgency
func UrgencyFor(elapsed time.Duration) entity.Urgency {
	switch {
	case elapsed >= CriticalAfter:
		return entity.UrgencyCritical
	case elapsed >= UrgentAfter:
		return entity.UrgencyUrgent
	}
	return entity.UrgencyNormal
}

// NotificationDispatcher routes transitions to rules, escalates persisting
// conditions and de-duplicates by entity, category and recipient
type NotificationDispatcher struct {
	repo     repository.NotificationRepository
	missions repository.MissionRepository
	router   RuleRouter
	logger   logger.Logger
	metrics  *metrics.Metrics
	linkBase string
	now      func() time.Time

	batchMu      sync.Mutex
	failingSince map[string]time.Time
}

// NewNotificationDispatcher creates a new notification dispatcher
func NewNotificationDispatcher(
	repo repository.NotificationRepository,
	missions repository.MissionRepository,
	router RuleRouter,
	logger logger.Logger,
	metrics *metrics.Metrics,
	linkBase string,
	now func() time.Time,
) *NotificationDispatcher {
	if now == nil {
		now = time.Now
	}
	return &NotificationDispatcher{
		repo:     repo,
		missions: missions,
		router:   router,
		logger:   logger,
		metrics:  metrics,
		linkBase:     linkBase,
		now:          now,
		failingSince: make(map[string]time.Time),
	}
}

// Notify stores n. Escalating notifications are dropped unless their urgency
// strictly exceeds the last one recorded for the same key. It reports whether
// n was stored.
func (d *NotificationDispatcher) Notify(ctx context.Context, n *entity.Notification) (bool, error) {
	if n.Escalating {
		last, err := d.repo.FindLastByKey(ctx, repository.DedupKey{
			EntityID:     n.Metadata.EntityID,
			Category:     n.Category,
			TargetUserID: n.TargetUserID,
		})
		if err != nil {
			return false, fmt.Errorf("failed to look up last notification: %w", err)
		}
		if last != nil && !n.Urgency.Exceeds(last.Urgency) {
			d.metrics.NotificationSuppressed(n.Category)
			d.logger.Debug("Notification suppressed",
				"entityId", n.Metadata.EntityID,
				"category", n.Category,
				"urgency", n.Urgency,
				"lastUrgency", last.Urgency)
			return false, nil
		}
	}

	if n.CreatedAt.IsZero() {
		n.CreatedAt = d.now().UTC()
	}
	if err := d.repo.Save(ctx, n); err != nil {
		return false, fmt.Errorf("failed to save notification: %w", err)
	}

	d.metrics.NotificationEmitted(n.Category, string(n.Urgency))
	d.logger.Info("Notification emitted",
		"category", n.Category,
		"entityId", n.Metadata.EntityID,
		"targetUserId", n.TargetUserID,
		"targetRole", n.TargetRole,
		"urgency", n.Urgency)
	return true, nil
}

// OnTransition emits the notifications of every rule handling the event.
// One failing notification does not stop the others.
func (d *NotificationDispatcher) OnTransition(ctx context.Context, tc TransitionContext) error {
	if d.router == nil {
		return nil
	}

	var errs error
	for _, rule := range d.router.GetRules(tc.Event) {
		for _, n := range rule.Build(tc) {
			if _, err := d.Notify(ctx, n); err != nil {
				errs = multierr.Append(errs, fmt.Errorf("%s for %s: %w", n.Category, n.Metadata.EntityID, err))
			}
		}
	}
	return errs
}

// List returns the notifications addressed to the user or role
func (d *NotificationDispatcher) List(ctx context.Context, query repository.NotificationQuery) ([]*entity.Notification, error) {
	return d.repo.List(ctx, query)
}

// MarkRead flags a notification as read
func (d *NotificationDispatcher) MarkRead(ctx context.Context, id string) error {
	return d.repo.MarkRead(ctx, id)
}

// escalationStatuses are the statuses with conditions that can persist
var escalationStatuses = []entity.MissionStatus{
	entity.StatusPendingClientApproval,
	entity.StatusPendingDateModification,
	entity.StatusMissionOver,
	entity.StatusPendingValidation,
}

// ScanEscalations re-derives persisting conditions from stored missions and
// emits escalated notifications. Per-item failures are collected into a
// single admin summary.
func (d *NotificationDispatcher) ScanEscalations(ctx context.Context) error {
	missions, err := d.missions.List(ctx, repository.MissionFilter{Statuses: escalationStatuses})
	if err != nil {
		return fmt.Errorf("failed to list missions for escalation: %w", err)
	}

	now := d.now().UTC()
	var errs error
	emitted := 0
	for _, m := range missions {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		for _, n := range d.escalations(m, now) {
			stored, err := d.Notify(ctx, n)
			if err != nil {
				d.logger.Error("Failed to emit escalation",
					"missionId", m.ID,
					"category", n.Category,
					"targetUserId", n.TargetUserID,
					"error", err)
				errs = multierr.Append(errs, fmt.Errorf("mission %s %s: %w", m.ID, n.Category, err))
				continue
			}
			if stored {
				emitted++
			}
		}
	}

	d.logger.Info("Escalation scan finished", "missions", len(missions), "emitted", emitted)

	if errs != nil {
		d.ReportBatchFailure(ctx, "Escalation scan", errs)
	} else {
		d.BatchSucceeded("Escalation scan")
	}
	return errs
}

func (d *NotificationDispatcher) escalations(m *entity.MissionOrder, now time.Time) []*entity.Notification {
	var out []*entity.Notification
	ts := m.Timestamps
	link := d.missionLink(m.ID)

	switch m.Status {
	case entity.StatusPendingClientApproval:
		if m.ClientResponse != nil {
			break
		}
		if ts.ClientEmailSentAt != nil {
			out = append(out, d.escalation(m.ID, CategoryClientResponsePending, now.Sub(*ts.ClientEmailSentAt),
				"Client response pending",
				fmt.Sprintf("No client decision for mission %s since the quote was emailed", m.ID),
				"record_client_decision", link))
		} else {
			since := ts.UpdatedAt
			if ts.OwnerApprovedAt != nil {
				since = *ts.OwnerApprovedAt
			}
			out = append(out, d.escalation(m.ID, CategoryClientEmailUnsent, now.Sub(since),
				"Client email not sent",
				fmt.Sprintf("Mission %s is owner-approved but the client has not been emailed", m.ID),
				"send_client_email", link))
		}
	case entity.StatusPendingDateModification:
		dm := m.DateModification
		if !dm.IsPending() {
			break
		}
		n := d.escalation(dm.ID, CategoryDateModificationPending, now.Sub(dm.RequestedAt),
			"Date modification pending",
			fmt.Sprintf("Date change requested for mission %s awaits a decision", m.ID),
			"review_date_modification", link)
		n.Metadata.Extra = map[string]interface{}{"missionId": m.ID}
		out = append(out, n)
	case entity.StatusMissionOver, entity.StatusPendingValidation:
		if m.Validation != nil {
			break
		}
		since := ts.UpdatedAt
		if ts.ValidationRequestedAt != nil {
			since = *ts.ValidationRequestedAt
		} else if ts.ExecutionCompletedAt != nil {
			since = *ts.ExecutionCompletedAt
		}
		for _, userID := range m.Crew.MemberIDs() {
			n := d.escalation(m.ID, CategoryValidationPending, now.Sub(since),
				"Mission validation pending",
				fmt.Sprintf("Please validate mission %s", m.ID),
				"validate_mission", link)
			n.TargetRole = entity.RoleCrew
			n.TargetUserID = userID
			out = append(out, n)
		}
	}
	return out
}

func (d *NotificationDispatcher) escalation(entityID, category string, elapsed time.Duration, title, message, action, link string) *entity.Notification {
	urgency := UrgencyFor(elapsed)
	nType := entity.NotificationInfo
	if urgency != entity.UrgencyNormal {
		nType = entity.NotificationWarning
	}
	return &entity.Notification{
		Type:       nType,
		Title:      title,
		Message:    message,
		Category:   category,
		TargetRole: entity.RoleAdmin,
		Urgency:    urgency,
		Escalating: true,
		Metadata: entity.NotificationMetadata{
			EntityID: entityID,
			Action:   action,
			Link:     link,
		},
	}
}

// ReportBatchFailure sends one admin summary per outage of a batch. Repeated
// failures escalate it by how long the batch has been failing; a batch that
// recovers and fails again starts a new outage.
func (d *NotificationDispatcher) ReportBatchFailure(ctx context.Context, batch string, errs error) {
	now := d.now().UTC()

	d.batchMu.Lock()
	since, ok := d.failingSince[batch]
	if !ok {
		since = now
		d.failingSince[batch] = since
	}
	d.batchMu.Unlock()

	failures := multierr.Errors(errs)
	urgency := UrgencyFor(now.Sub(since))
	n := &entity.Notification{
		Type:       entity.NotificationError,
		Title:      batch + " had failures",
		Message:    fmt.Sprintf("%s failed for %d item(s): %v", batch, len(failures), errs),
		Category:   CategoryBatchFailure,
		TargetRole: entity.RoleAdmin,
		Urgency:    urgency,
		Escalating: true,
		Metadata: entity.NotificationMetadata{
			EntityID: batchOutageID(batch, since),
			Action:   "review_logs",
			Extra:    map[string]interface{}{"batch": batch, "failures": len(failures), "failingSince": since, "at": now},
		},
	}
	if _, err := d.Notify(ctx, n); err != nil {
		d.logger.Error("Failed to report batch failure", "batch", batch, "error", err)
	}
}

// BatchSucceeded ends the current outage of batch, if any
func (d *NotificationDispatcher) BatchSucceeded(batch string) {
	d.batchMu.Lock()
	defer d.batchMu.Unlock()
	if since, ok := d.failingSince[batch]; ok {
		delete(d.failingSince, batch)
		d.logger.Info("Batch recovered", "batch", batch, "failingSince", since)
	}
}

func batchOutageID(batch string, since time.Time) string {
	return batch + "@" + since.Format(time.RFC3339)
}

func (d *NotificationDispatcher) missionLink(id string) string {
	return fmt.Sprintf("%s/missions/%s", d.linkBase, id)
}
