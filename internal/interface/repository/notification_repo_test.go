package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crewmission-service/internal/domain/entity"
	"crewmission-service/internal/domain/repository"
)

func TestMemoryNotificationRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryNotificationRepository()
	base := time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC)

	save := func(user string, role entity.Role, urgency entity.Urgency, at time.Time) *entity.Notification {
		n := &entity.Notification{
			Category:     "validation_pending",
			TargetUserID: user,
			TargetRole:   role,
			Urgency:      urgency,
			Metadata:     entity.NotificationMetadata{EntityID: "m-1"},
			CreatedAt:    at,
		}
		require.NoError(t, repo.Save(ctx, n))
		return n
	}
	save("cpt-1", entity.RoleCrew, entity.UrgencyNormal, base)
	save("cpt-1", entity.RoleCrew, entity.UrgencyUrgent, base.Add(time.Hour))
	save("", entity.RoleAdmin, entity.UrgencyNormal, base.Add(2*time.Hour))

	last, err := repo.FindLastByKey(ctx, repository.DedupKey{EntityID: "m-1", Category: "validation_pending", TargetUserID: "cpt-1"})
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, entity.UrgencyUrgent, last.Urgency)

	none, err := repo.FindLastByKey(ctx, repository.DedupKey{EntityID: "m-1", Category: "validation_pending", TargetUserID: "fo-1"})
	require.NoError(t, err)
	assert.Nil(t, none)

	mine, err := repo.List(ctx, repository.NotificationQuery{UserID: "cpt-1", Role: entity.RoleCrew})
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, entity.UrgencyUrgent, mine[0].Urgency, "newest first")

	admins, err := repo.List(ctx, repository.NotificationQuery{UserID: "admin-1", Role: entity.RoleAdmin})
	require.NoError(t, err)
	require.Len(t, admins, 1)

	require.NoError(t, repo.MarkRead(ctx, admins[0].ID))
	unread, err := repo.List(ctx, repository.NotificationQuery{Role: entity.RoleAdmin, UnreadOnly: true})
	require.NoError(t, err)
	assert.Empty(t, unread)

	assert.ErrorIs(t, repo.MarkRead(ctx, "missing"), repository.ErrNotFound)
}
