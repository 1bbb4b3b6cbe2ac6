package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crewmission-service/internal/domain/entity"
	"crewmission-service/internal/domain/repository"
	repo "crewmission-service/internal/interface/repository"
	"crewmission-service/pkg/logger"
)

func TestUrgencyFor(t *testing.T) {
	assert.Equal(t, entity.UrgencyNormal, UrgencyFor(0))
	assert.Equal(t, entity.UrgencyNormal, UrgencyFor(UrgentAfter-time.Second))
	assert.Equal(t, entity.UrgencyUrgent, UrgencyFor(UrgentAfter))
	assert.Equal(t, entity.UrgencyUrgent, UrgencyFor(CriticalAfter-time.Second))
	assert.Equal(t, entity.UrgencyCritical, UrgencyFor(CriticalAfter))
	assert.Equal(t, entity.UrgencyCritical, UrgencyFor(72*time.Hour))
}

func escalating(entityID string, urgency entity.Urgency) *entity.Notification {
	return &entity.Notification{
		Type:       entity.NotificationWarning,
		Title:      "pending",
		Category:   CategoryClientResponsePending,
		TargetRole: entity.RoleAdmin,
		Urgency:    urgency,
		Escalating: true,
		Metadata:   entity.NotificationMetadata{EntityID: entityID},
	}
}

func TestNotifySuppressesUnlessUrgencyRises(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	steps := []struct {
		urgency entity.Urgency
		stored  bool
	}{
		{entity.UrgencyNormal, true},
		{entity.UrgencyNormal, false},
		{entity.UrgencyUrgent, true},
		{entity.UrgencyUrgent, false},
		{entity.UrgencyNormal, false},
		{entity.UrgencyCritical, true},
		{entity.UrgencyCritical, false},
	}
	for i, step := range steps {
		stored, err := h.dispatcher.Notify(ctx, escalating("m-1", step.urgency))
		require.NoError(t, err)
		assert.Equal(t, step.stored, stored, "step %d (%s)", i, step.urgency)
	}
	assert.Len(t, h.byCategory(CategoryClientResponsePending), 3)

	stored, err := h.dispatcher.Notify(ctx, escalating("m-2", entity.UrgencyUrgent))
	require.NoError(t, err)
	assert.True(t, stored, "keys are per entity")
}

func TestNotifyDedupIsPerRecipient(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	for _, user := range []string{"cpt-1", "fo-1", "cpt-1"} {
		n := escalating("m-1", entity.UrgencyNormal)
		n.Category = CategoryValidationPending
		n.TargetUserID = user
		_, err := h.dispatcher.Notify(ctx, n)
		require.NoError(t, err)
	}
	assert.Len(t, h.byCategory(CategoryValidationPending), 2)
}

func TestNonEscalatingNotificationsAreNeverSuppressed(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		n := escalating("m-1", entity.UrgencyNormal)
		n.Escalating = false
		stored, err := h.dispatcher.Notify(ctx, n)
		require.NoError(t, err)
		assert.True(t, stored)
	}
}

func TestScanEscalatesClientResponse(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	id := h.create(t, entity.MissionTypeFreelance).ID
	_, err := h.approvals.FinanceApprove(ctx, finance, id, "")
	require.NoError(t, err)
	_, err = h.approvals.SubmitToOwner(ctx, finance, id)
	require.NoError(t, err)
	_, err = h.approvals.OwnerApprove(ctx, owner, id, "")
	require.NoError(t, err)

	// Not yet emailed: the unsent condition is raised.
	require.NoError(t, h.dispatcher.ScanEscalations(ctx))
	unsent := h.byCategory(CategoryClientEmailUnsent)
	require.Len(t, unsent, 1)
	assert.Equal(t, entity.UrgencyNormal, unsent[0].Urgency)

	_, err = h.approvals.SendClientEmail(ctx, admin, id)
	require.NoError(t, err)

	h.clock.Advance(9 * time.Hour)
	require.NoError(t, h.dispatcher.ScanEscalations(ctx))
	require.NoError(t, h.dispatcher.ScanEscalations(ctx))
	pending := h.byCategory(CategoryClientResponsePending)
	require.Len(t, pending, 1, "urgent is emitted once")
	assert.Equal(t, entity.UrgencyUrgent, pending[0].Urgency)
	assert.Equal(t, entity.RoleAdmin, pending[0].TargetRole)
	assert.Equal(t, "http://admin.test/missions/"+id, pending[0].Metadata.Link)

	h.clock.Advance(16 * time.Hour)
	require.NoError(t, h.dispatcher.ScanEscalations(ctx))
	require.NoError(t, h.dispatcher.ScanEscalations(ctx))
	pending = h.byCategory(CategoryClientResponsePending)
	require.Len(t, pending, 2)
	assert.Equal(t, entity.UrgencyCritical, pending[1].Urgency)

	_, err = h.approvals.RecordClientDecision(ctx, admin, id, ClientDecision{Approved: true})
	require.NoError(t, err)
	h.clock.Advance(48 * time.Hour)
	require.NoError(t, h.dispatcher.ScanEscalations(ctx))
	assert.Len(t, h.byCategory(CategoryClientResponsePending), 2, "resolved conditions stop escalating")
}

func TestScanEscalatesValidationPerCrewMember(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	id := h.inProgress(t, entity.MissionTypeFreelance)

	_, err := h.execution.Complete(ctx, captain, id, CompletionReport{ActualEndDate: day(7, 10)})
	require.NoError(t, err)

	h.clock.Advance(8 * time.Hour)
	require.NoError(t, h.dispatcher.ScanEscalations(ctx))

	pending := h.byCategory(CategoryValidationPending)
	require.Len(t, pending, 3, "crew account, captain and first officer")
	for _, n := range pending {
		assert.Equal(t, entity.UrgencyUrgent, n.Urgency)
		assert.NotEmpty(t, n.TargetUserID)
	}

	list, err := h.dispatcher.List(ctx, repository.NotificationQuery{UserID: "fo-1", Role: entity.RoleCrew})
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, h.dispatcher.MarkRead(ctx, list[0].ID))
	unread, err := h.dispatcher.List(ctx, repository.NotificationQuery{UserID: "fo-1", UnreadOnly: true})
	require.NoError(t, err)
	assert.Empty(t, unread)
}

// refusingInbox fails to store notifications for one user
type refusingInbox struct {
	*repo.MemoryNotificationRepository
	userID string
}

func (r refusingInbox) Save(ctx context.Context, n *entity.Notification) error {
	if n.TargetUserID == r.userID {
		return errors.New("inbox unavailable")
	}
	return r.MemoryNotificationRepository.Save(ctx, n)
}

func TestScanFailureSummaryIsNotRepeatedEveryTick(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	id := h.inProgress(t, entity.MissionTypeFreelance)
	_, err := h.execution.Complete(ctx, captain, id, CompletionReport{ActualEndDate: day(7, 10)})
	require.NoError(t, err)

	inbox := refusingInbox{MemoryNotificationRepository: h.notifications, userID: "fo-1"}
	dispatcher := NewNotificationDispatcher(inbox, h.missions, h.rules, logger.NewNop(), nil, "http://admin.test", h.clock.Now)

	for i := 0; i < 5; i++ {
		require.Error(t, dispatcher.ScanEscalations(ctx))
		h.clock.Advance(5 * time.Minute)
	}
	summaries := h.byCategory(CategoryBatchFailure)
	require.Len(t, summaries, 1)
	assert.Equal(t, entity.UrgencyNormal, summaries[0].Urgency)
	assert.Equal(t, entity.RoleAdmin, summaries[0].TargetRole)

	h.clock.Advance(8 * time.Hour)
	require.Error(t, dispatcher.ScanEscalations(ctx))
	require.Error(t, dispatcher.ScanEscalations(ctx))
	summaries = h.byCategory(CategoryBatchFailure)
	require.Len(t, summaries, 2)
	assert.Equal(t, entity.UrgencyUrgent, summaries[1].Urgency)
}

func TestOnTransitionRunsMatchingRules(t *testing.T) {
	h := newHarness(t)
	h.rules.Register(&staticRule{event: "finance_approve"})

	id := h.create(t, entity.MissionTypeFreelance).ID
	_, err := h.approvals.FinanceApprove(context.Background(), finance, id, "")
	require.NoError(t, err)

	got := h.byCategory("static")
	require.Len(t, got, 1)
	assert.Equal(t, id, got[0].Metadata.EntityID)
}
