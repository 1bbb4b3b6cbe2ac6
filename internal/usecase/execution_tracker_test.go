package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crewmission-service/internal/domain/entity"
	"crewmission-service/internal/domain/workflow"
)

func TestCompleteExecution(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	id := h.inProgress(t, entity.MissionTypeFreelance)

	_, err := h.execution.Complete(ctx, outsider, id, CompletionReport{ActualEndDate: day(7, 10)})
	assert.ErrorIs(t, err, workflow.ErrForbidden)

	_, err = h.execution.Complete(ctx, captain, id, CompletionReport{ActualEndDate: day(7, 11)})
	assert.True(t, workflow.IsValidationError(err), "a different end day needs a reason")
	assert.Equal(t, entity.StatusInProgress, h.get(t, id).Status)

	m, err := h.execution.Complete(ctx, captain, id, CompletionReport{ActualEndDate: day(7, 11), ExtensionReason: "weather"})
	require.NoError(t, err)
	assert.Equal(t, entity.StatusMissionOver, m.Status)
	require.NotNil(t, m.Execution)
	assert.True(t, m.Execution.WasExtended)
	assert.Equal(t, "weather", m.Execution.ExtensionReason)
	assert.Equal(t, "cpt-1", m.Execution.CompletedBy)
}

func TestValidateFreelanceMission(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	id := h.inProgress(t, entity.MissionTypeFreelance)
	_, err := h.execution.Complete(ctx, captain, id, CompletionReport{ActualEndDate: day(7, 10)})
	require.NoError(t, err)

	_, err = h.execution.Validate(ctx, captain, id, ValidationData{})
	assert.True(t, workflow.IsValidationError(err), "bank details must be confirmed")

	m, err := h.execution.Validate(ctx, captain, id, ValidationData{RIBConfirmed: true, Issues: []string{"late hotel"}})
	require.NoError(t, err)
	assert.Equal(t, entity.StatusValidated, m.Status)
	assert.NotNil(t, m.Timestamps.ValidatedAt)

	m, err = h.service.Close(ctx, finance, id)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusCompleted, m.Status)
}

func TestServiceInvoiceGatesValidation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	id := h.inProgress(t, entity.MissionTypeService)
	_, err := h.execution.Complete(ctx, captain, id, CompletionReport{ActualEndDate: day(7, 10)})
	require.NoError(t, err)

	m, err := h.execution.Validate(ctx, captain, id, ValidationData{RIBConfirmed: true})
	require.NoError(t, err)
	assert.Equal(t, entity.StatusPendingValidation, m.Status, "no invoice yet")

	draft := InvoiceInput{
		Number:    "INV-7",
		LineItems: []entity.InvoiceLineItem{{Description: "Ferry flight", Quantity: 2, UnitPrice: 150}},
		Currency:  "eur",
	}
	m, err = h.execution.UpdateServiceInvoice(ctx, captain, id, draft)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusPendingValidation, m.Status, "tax rate still missing")
	assert.Equal(t, 300.0, m.ServiceInvoice.Subtotal)

	rate := 20.0
	draft.TaxRate = &rate
	m, err = h.execution.UpdateServiceInvoice(ctx, captain, id, draft)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusValidated, m.Status)
	require.NotNil(t, m.ServiceInvoice.Total)
	assert.Equal(t, 360.0, *m.ServiceInvoice.Total)
	assert.Equal(t, "EUR", m.ServiceInvoice.Currency)
}

func TestServiceInvoiceBeforeValidation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	id := h.inProgress(t, entity.MissionTypeService)

	rate := 0.0
	_, err := h.execution.UpdateServiceInvoice(ctx, captain, id, InvoiceInput{
		LineItems: []entity.InvoiceLineItem{{Description: "Positioning", Quantity: 1, UnitPrice: 900}},
		TaxRate:   &rate,
		Currency:  "EUR",
	})
	require.NoError(t, err)

	_, err = h.execution.Complete(ctx, captain, id, CompletionReport{ActualEndDate: day(7, 10)})
	require.NoError(t, err)
	m, err := h.execution.Validate(ctx, captain, id, ValidationData{RIBConfirmed: true})
	require.NoError(t, err)
	assert.Equal(t, entity.StatusValidated, m.Status)
}

func TestInvoiceOnlyForServiceMissions(t *testing.T) {
	h := newHarness(t)
	id := h.inProgress(t, entity.MissionTypeFreelance)

	rate := 10.0
	_, err := h.execution.UpdateServiceInvoice(context.Background(), captain, id, InvoiceInput{
		LineItems: []entity.InvoiceLineItem{{Description: "x", Quantity: 1, UnitPrice: 1}},
		TaxRate:   &rate,
		Currency:  "EUR",
	})
	assert.True(t, workflow.IsValidationError(err))
}

func TestBuildInvoice(t *testing.T) {
	rate := 5.5
	inv, err := BuildInvoice(InvoiceInput{
		LineItems: []entity.InvoiceLineItem{
			{Description: "Day rate", Quantity: 3, UnitPrice: 333.33},
			{Description: "Fuel", Quantity: 1, UnitPrice: 0.01},
		},
		TaxRate:  &rate,
		Currency: "usd",
	}, day(7, 1))
	require.NoError(t, err)
	assert.Equal(t, 999.99, inv.LineItems[0].Amount)
	assert.Equal(t, 1000.0, inv.Subtotal)
	assert.Equal(t, 55.0, inv.TaxAmount)
	assert.Equal(t, 1055.0, *inv.Total)
	assert.NoError(t, inv.Complete())

	_, err = BuildInvoice(InvoiceInput{LineItems: []entity.InvoiceLineItem{{Description: "", Quantity: 1}}}, day(7, 1))
	assert.True(t, workflow.IsValidationError(err))
}
