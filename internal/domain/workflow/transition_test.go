package workflow

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crewmission-service/internal/domain/entity"
)

// validPayload satisfies every event's payload requirements.
func validPayload() Payload {
	end := time.Date(2026, 7, 10, 0, 0, 0, 0, time.UTC)
	return Payload{
		Reason:             "documented reason",
		CrewID:             "crew-1",
		MissionType:        entity.MissionTypeFreelance,
		ContractEndDate:    end,
		ActualEndDate:      &end,
		InvoiceComplete:    true,
		ValidationRecorded: true,
		ResumeStatus:       entity.StatusInProgress,
	}
}

// expectedNext is the full lifecycle table; pairs not listed must fail.
var expectedNext = map[Event]map[entity.MissionStatus]entity.MissionStatus{
	EventFinanceApprove:       {entity.StatusPendingFinanceReview: entity.StatusFinanceApproved},
	EventFinanceReject:        {entity.StatusPendingFinanceReview: entity.StatusRejected},
	EventRequestOwnerApproval: {entity.StatusFinanceApproved: entity.StatusWaitingOwnerApproval},
	EventOwnerApprove:         {entity.StatusWaitingOwnerApproval: entity.StatusPendingClientApproval},
	EventOwnerReject:          {entity.StatusWaitingOwnerApproval: entity.StatusOwnerRejected},
	EventClientApprove:        {entity.StatusPendingClientApproval: entity.StatusApproved},
	EventClientReject:         {entity.StatusPendingClientApproval: entity.StatusClientRejected},
	EventLegacyApprove:        {entity.StatusPendingApproval: entity.StatusApproved},
	EventLegacyReject:         {entity.StatusPendingApproval: entity.StatusRejected},
	EventAssignToCrew:         {entity.StatusApproved: entity.StatusPendingExecution},
	EventStartExecution:       {entity.StatusPendingExecution: entity.StatusInProgress},
	EventCompleteExecution:    {entity.StatusInProgress: entity.StatusMissionOver},
	EventRequestValidation: {
		entity.StatusInProgress:  entity.StatusPendingValidation,
		entity.StatusMissionOver: entity.StatusPendingValidation,
	},
	EventSubmitValidation: {
		entity.StatusMissionOver:       entity.StatusValidated,
		entity.StatusPendingValidation: entity.StatusValidated,
	},
	EventAttachInvoice: {entity.StatusPendingValidation: entity.StatusValidated},
	EventRequestDateModification: {
		entity.StatusPendingExecution: entity.StatusPendingDateModification,
		entity.StatusInProgress:       entity.StatusPendingDateModification,
		entity.StatusMissionOver:      entity.StatusPendingDateModification,
	},
	EventApproveDateModification: {entity.StatusPendingDateModification: entity.StatusInProgress},
	EventRejectDateModification:  {entity.StatusPendingDateModification: entity.StatusInProgress},
	EventCancel: {
		entity.StatusPendingFinanceReview:  entity.StatusCancelled,
		entity.StatusFinanceApproved:       entity.StatusCancelled,
		entity.StatusPendingApproval:       entity.StatusCancelled,
		entity.StatusWaitingOwnerApproval:  entity.StatusCancelled,
		entity.StatusPendingClientApproval: entity.StatusCancelled,
		entity.StatusApproved:              entity.StatusCancelled,
		entity.StatusPendingExecution:      entity.StatusCancelled,
	},
	EventClose: {entity.StatusValidated: entity.StatusCompleted},
}

func permittedRole(ev Event) entity.Role {
	return rules[ev].roles[0]
}

func TestTransitionIsExhaustive(t *testing.T) {
	require.Len(t, expectedNext, len(AllEvents()), "every event needs an expectation row")

	for _, ev := range AllEvents() {
		for _, status := range entity.AllStatuses() {
			out, err := Transition(status, ev, permittedRole(ev), validPayload())

			want, allowed := expectedNext[ev][status]
			if allowed {
				require.NoError(t, err, "%s from %s", ev, status)
				assert.Equal(t, want, out.Next, "%s from %s", ev, status)
				continue
			}

			require.Error(t, err, "%s from %s", ev, status)
			var te *TransitionError
			require.True(t, errors.As(err, &te), "%s from %s: %v", ev, status, err)
			assert.Equal(t, status, te.From)
			assert.Equal(t, ev, te.Event)
			assert.Contains(t, err.Error(), string(status))
			assert.Contains(t, err.Error(), string(ev))
		}
	}
}

func TestTransitionRejectsUnknownAndCreateEvents(t *testing.T) {
	for _, ev := range []Event{EventCreate, "teleport"} {
		_, err := Transition(entity.StatusPendingFinanceReview, ev, entity.RoleAdmin, validPayload())
		assert.True(t, IsTransitionError(err), "event %s", ev)
	}
}

func TestRejectionWithoutReasonFailsForEveryRole(t *testing.T) {
	cases := []struct {
		event  Event
		status entity.MissionStatus
	}{
		{EventFinanceReject, entity.StatusPendingFinanceReview},
		{EventOwnerReject, entity.StatusWaitingOwnerApproval},
		{EventClientReject, entity.StatusPendingClientApproval},
		{EventLegacyReject, entity.StatusPendingApproval},
		{EventRejectDateModification, entity.StatusPendingDateModification},
		{EventCancel, entity.StatusApproved},
	}
	allRoles := []entity.Role{entity.RoleAdmin, entity.RoleFinance, entity.RoleOwner, entity.RoleCrew, entity.RoleSystem}

	for _, c := range cases {
		for _, role := range allRoles {
			for _, reason := range []string{"", "   "} {
				p := validPayload()
				p.Reason = reason
				_, err := Transition(c.status, c.event, role, p)
				assert.True(t, IsValidationError(err), "%s as %s: %v", c.event, role, err)
			}
		}
	}
}

func TestReasonLengthIsBounded(t *testing.T) {
	p := validPayload()
	long := make([]rune, MaxReasonLength+1)
	for i := range long {
		long[i] = 'x'
	}
	p.Reason = string(long)

	_, err := Transition(entity.StatusPendingClientApproval, EventClientReject, entity.RoleAdmin, p)
	assert.True(t, IsValidationError(err))

	p.Reason = string(long[:MaxReasonLength])
	_, err = Transition(entity.StatusPendingClientApproval, EventClientReject, entity.RoleAdmin, p)
	assert.NoError(t, err)
}

func TestRoleChecks(t *testing.T) {
	_, err := Transition(entity.StatusWaitingOwnerApproval, EventOwnerApprove, entity.RoleCrew, validPayload())
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = Transition(entity.StatusPendingClientApproval, EventClientApprove, entity.RoleOwner, validPayload())
	assert.ErrorIs(t, err, ErrForbidden, "client decisions are recorded by admins only")

	_, err = Transition(entity.StatusPendingFinanceReview, EventFinanceApprove, entity.RoleFinance, validPayload())
	assert.NoError(t, err)
}

func TestAssignRequiresCrewID(t *testing.T) {
	p := validPayload()
	p.CrewID = ""
	_, err := Transition(entity.StatusApproved, EventAssignToCrew, entity.RoleSystem, p)
	assert.True(t, IsValidationError(err))
}

func TestCompleteExecutionExtension(t *testing.T) {
	contractEnd := time.Date(2026, 7, 10, 0, 0, 0, 0, time.UTC)

	t.Run("same day never needs a reason", func(t *testing.T) {
		sameDayLater := contractEnd.Add(17 * time.Hour)
		out, err := Transition(entity.StatusInProgress, EventCompleteExecution, entity.RoleCrew, Payload{
			ContractEndDate: contractEnd,
			ActualEndDate:   &sameDayLater,
		})
		require.NoError(t, err)
		assert.False(t, out.WasExtended)
		assert.Equal(t, entity.StatusMissionOver, out.Next)
	})

	for _, delta := range []int{-2, 1, 5} {
		actual := contractEnd.AddDate(0, 0, delta)

		_, err := Transition(entity.StatusInProgress, EventCompleteExecution, entity.RoleCrew, Payload{
			ContractEndDate: contractEnd,
			ActualEndDate:   &actual,
		})
		assert.True(t, IsValidationError(err), "delta %d without reason", delta)

		out, err := Transition(entity.StatusInProgress, EventCompleteExecution, entity.RoleCrew, Payload{
			ContractEndDate: contractEnd,
			ActualEndDate:   &actual,
			ExtensionReason: "weather hold",
		})
		require.NoError(t, err)
		assert.True(t, out.WasExtended, "delta %d", delta)
	}

	_, err := Transition(entity.StatusInProgress, EventCompleteExecution, entity.RoleCrew, Payload{ContractEndDate: contractEnd})
	assert.True(t, IsValidationError(err), "actual end date is mandatory")
}

func TestServiceMissionNeedsInvoiceToValidate(t *testing.T) {
	p := validPayload()
	p.MissionType = entity.MissionTypeService
	p.InvoiceComplete = false

	out, err := Transition(entity.StatusMissionOver, EventSubmitValidation, entity.RoleCrew, p)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusPendingValidation, out.Next)

	_, err = Transition(entity.StatusPendingValidation, EventSubmitValidation, entity.RoleCrew, p)
	assert.True(t, IsValidationError(err))

	_, err = Transition(entity.StatusPendingValidation, EventAttachInvoice, entity.RoleCrew, p)
	assert.True(t, IsValidationError(err))

	p.InvoiceComplete = true
	out, err = Transition(entity.StatusPendingValidation, EventAttachInvoice, entity.RoleCrew, p)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusValidated, out.Next)
}

func TestDateModificationResumesRecordedStatus(t *testing.T) {
	for _, prior := range []entity.MissionStatus{entity.StatusPendingExecution, entity.StatusInProgress, entity.StatusMissionOver} {
		p := validPayload()
		p.ResumeStatus = prior

		out, err := Transition(entity.StatusPendingDateModification, EventApproveDateModification, entity.RoleAdmin, p)
		require.NoError(t, err)
		assert.Equal(t, prior, out.Next)

		out, err = Transition(entity.StatusPendingDateModification, EventRejectDateModification, entity.RoleAdmin, p)
		require.NoError(t, err)
		assert.Equal(t, prior, out.Next)
	}

	p := validPayload()
	p.ResumeStatus = entity.StatusApproved
	_, err := Transition(entity.StatusPendingDateModification, EventApproveDateModification, entity.RoleAdmin, p)
	assert.True(t, IsValidationError(err))
}

func TestLegacyAndGatedVariantsDoNotMix(t *testing.T) {
	gated := []Event{EventFinanceApprove, EventRequestOwnerApproval, EventOwnerApprove, EventClientApprove}
	for _, ev := range gated {
		assert.False(t, Allows(entity.StatusPendingApproval, ev), "%s from legacy status", ev)
	}
	for _, ev := range []Event{EventLegacyApprove, EventLegacyReject} {
		for _, s := range []entity.MissionStatus{entity.StatusPendingFinanceReview, entity.StatusFinanceApproved, entity.StatusWaitingOwnerApproval, entity.StatusPendingClientApproval} {
			assert.False(t, Allows(s, ev), "%s from %s", ev, s)
		}
	}
}
