package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"crewmission-service/internal/domain/entity"
	"crewmission-service/internal/domain/workflow"
	"crewmission-service/pkg/logger"
	"crewmission-service/pkg/utils"
)

const opUpdateServiceInvoice workflow.Event = "update_service_invoice"

// invoiceEditable lists the statuses in which a service invoice may be attached
var invoiceEditable = []entity.MissionStatus{
	entity.StatusInProgress,
	entity.StatusMissionOver,
	entity.StatusPendingValidation,
}

// CompletionReport is the crew's account of how the mission ended
type CompletionReport struct {
	ActualEndDate   time.Time
	ExtensionReason string
}

// ValidationData is the crew's post-mission confirmation
type ValidationData struct {
	RIBConfirmed bool
	Issues       []string
	PaymentIssue bool
	Comments     string
}

// InvoiceInput is what the crew provides; amounts are derived from it
type InvoiceInput struct {
	Number    string
	LineItems []entity.InvoiceLineItem
	TaxRate   *float64
	Currency  string
}

// ExecutionTracker handles the crew-facing execution and validation actions
type ExecutionTracker struct {
	transitioner *Transitioner
	logger       logger.Logger
}

// NewExecutionTracker creates a new execution tracker
func NewExecutionTracker(transitioner *Transitioner, logger logger.Logger) *ExecutionTracker {
	return &ExecutionTracker{
		transitioner: transitioner,
		logger:       logger,
	}
}

func memberOnly(actor Actor) func(m *entity.MissionOrder, _ *workflow.Payload) error {
	return func(m *entity.MissionOrder, _ *workflow.Payload) error {
		return requireCrewMember(m, actor)
	}
}

// Start begins execution
func (t *ExecutionTracker) Start(ctx context.Context, actor Actor, id string) (*entity.MissionOrder, error) {
	return t.transitioner.Fire(ctx, TransitionRequest{
		MissionID: id,
		Event:     workflow.EventStartExecution,
		Actor:     actor,
		Prepare:   memberOnly(actor),
	})
}

// Complete ends execution. An end date other than the contract end day needs a reason.
func (t *ExecutionTracker) Complete(ctx context.Context, actor Actor, id string, report CompletionReport) (*entity.MissionOrder, error) {
	return t.transitioner.Fire(ctx, TransitionRequest{
		MissionID: id,
		Event:     workflow.EventCompleteExecution,
		Actor:     actor,
		Reason:    report.ExtensionReason,
		Prepare: func(m *entity.MissionOrder, p *workflow.Payload) error {
			if err := requireCrewMember(m, actor); err != nil {
				return err
			}
			if !report.ActualEndDate.IsZero() {
				actual := report.ActualEndDate
				p.ActualEndDate = &actual
			}
			p.ExtensionReason = report.ExtensionReason
			return nil
		},
		Apply: func(m *entity.MissionOrder, _ entity.MissionStatus, out workflow.Outcome, _ time.Time) error {
			m.Execution = &entity.ExecutionReport{
				ActualEndDate:   utils.DateOnly(report.ActualEndDate),
				WasExtended:     out.WasExtended,
				ExtensionReason: strings.TrimSpace(report.ExtensionReason),
				CompletedBy:     actor.ID,
			}
			return nil
		},
	})
}

// Validate records the crew confirmation. Service missions without a complete
// invoice wait in pending_validation.
func (t *ExecutionTracker) Validate(ctx context.Context, actor Actor, id string, data ValidationData) (*entity.MissionOrder, error) {
	return t.transitioner.Fire(ctx, TransitionRequest{
		MissionID: id,
		Event:     workflow.EventSubmitValidation,
		Actor:     actor,
		Prepare: func(m *entity.MissionOrder, p *workflow.Payload) error {
			if err := requireCrewMember(m, actor); err != nil {
				return err
			}
			if !data.RIBConfirmed {
				return &workflow.ValidationError{Field: "ribConfirmed", Message: "bank details must be confirmed"}
			}
			p.ValidationRecorded = true
			return nil
		},
		Apply: func(m *entity.MissionOrder, _ entity.MissionStatus, _ workflow.Outcome, now time.Time) error {
			m.Validation = &entity.ValidationReport{
				RIBConfirmed: data.RIBConfirmed,
				Issues:       data.Issues,
				PaymentIssue: data.PaymentIssue,
				Comments:     data.Comments,
				SubmittedBy:  actor.ID,
				SubmittedAt:  now,
			}
			if data.PaymentIssue || len(data.Issues) > 0 {
				t.logger.Warn("Crew reported issues on validation",
					"missionId", m.ID,
					"paymentIssue", data.PaymentIssue,
					"issues", len(data.Issues))
			}
			return nil
		},
	})
}

// BuildInvoice derives line amounts, subtotal, tax and total from the input
func BuildInvoice(in InvoiceInput, now time.Time) (*entity.ServiceInvoice, error) {
	inv := &entity.ServiceInvoice{
		Number:    in.Number,
		Currency:  strings.ToUpper(strings.TrimSpace(in.Currency)),
		UpdatedAt: now,
	}

	var subtotal float64
	for i, item := range in.LineItems {
		if strings.TrimSpace(item.Description) == "" {
			return nil, &workflow.ValidationError{Field: fmt.Sprintf("lineItems[%d].description", i), Message: "description is required"}
		}
		if item.Quantity <= 0 || item.UnitPrice < 0 {
			return nil, &workflow.ValidationError{Field: fmt.Sprintf("lineItems[%d]", i), Message: "quantity must be positive and unit price non-negative"}
		}
		item.Amount = utils.RoundCents(item.Quantity * item.UnitPrice)
		subtotal += item.Amount
		inv.LineItems = append(inv.LineItems, item)
	}
	inv.Subtotal = utils.RoundCents(subtotal)

	if in.TaxRate != nil {
		if *in.TaxRate < 0 {
			return nil, &workflow.ValidationError{Field: "taxRate", Message: "tax rate must not be negative"}
		}
		rate := *in.TaxRate
		inv.TaxRate = &rate
		inv.TaxAmount = utils.RoundCents(inv.Subtotal * rate / 100)
		if len(inv.LineItems) > 0 {
			total := utils.RoundCents(inv.Subtotal + inv.TaxAmount)
			inv.Total = &total
		}
	}
	return inv, nil
}

// UpdateServiceInvoice stores the invoice of a service mission. When the crew
// has already validated and the invoice is complete, the mission is validated.
func (t *ExecutionTracker) UpdateServiceInvoice(ctx context.Context, actor Actor, id string, in InvoiceInput) (*entity.MissionOrder, error) {
	if err := requireRole(actor, "update service invoices", entity.RoleCrew, entity.RoleAdmin, entity.RoleSystem); err != nil {
		return nil, err
	}
	inv, err := BuildInvoice(in, t.transitioner.Now())
	if err != nil {
		return nil, err
	}

	m, err := t.transitioner.missions.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := requireCrewMember(m, actor); err != nil {
		return nil, err
	}
	if m.Type != entity.MissionTypeService {
		return nil, &workflow.ValidationError{Field: "type", Message: "only service missions carry an invoice"}
	}

	if m.Status == entity.StatusPendingValidation && m.Validation != nil && inv.Complete() == nil {
		return t.transitioner.Fire(ctx, TransitionRequest{
			MissionID: id,
			Event:     workflow.EventAttachInvoice,
			Actor:     actor,
			Prepare: func(_ *entity.MissionOrder, p *workflow.Payload) error {
				p.InvoiceComplete = true
				return nil
			},
			Apply: func(m *entity.MissionOrder, _ entity.MissionStatus, _ workflow.Outcome, _ time.Time) error {
				m.ServiceInvoice = inv
				return nil
			},
		})
	}

	updated, err := t.transitioner.Mutate(ctx, id, opUpdateServiceInvoice, invoiceEditable, func(m *entity.MissionOrder, _ time.Time) error {
		m.ServiceInvoice = inv
		return nil
	})
	if err != nil {
		return nil, err
	}

	t.transitioner.LogActivity(ctx, &entity.Activity{
		Type:        "service_invoice_updated",
		Description: "Service invoice updated",
		MissionID:   id,
		UserID:      actor.ID,
		Metadata:    map[string]interface{}{"subtotal": inv.Subtotal, "complete": inv.Complete() == nil},
	})
	return updated, nil
}
