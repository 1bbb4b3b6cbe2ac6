package usecase

import (
	"fmt"
	"time"

	"crewmission-service/internal/domain/entity"
	"crewmission-service/internal/domain/fees"
	"crewmission-service/internal/domain/workflow"
)

// EmailComposer renders the client-facing quote for a mission
type EmailComposer interface {
	Compose(m *entity.MissionOrder, f entity.Fees) (subject, body string, err error)
}

// refreshDerived recomputes duration, fees and email data from the contract
// and margin. Delivery counters survive regeneration.
func refreshDerived(m *entity.MissionOrder, composer EmailComposer, now time.Time) error {
	duration, err := fees.Duration(m.Contract)
	if err != nil {
		return &workflow.ValidationError{Field: "contract", Message: err.Error()}
	}
	m.Duration = duration

	breakdown, err := fees.FromContract(m.Contract, m.Margin)
	if err != nil {
		return &workflow.ValidationError{Field: "contract", Message: err.Error()}
	}

	subject, body, err := composer.Compose(m, breakdown)
	if err != nil {
		return fmt.Errorf("failed to compose client email: %w", err)
	}

	var recipient string
	if m.EmailData != nil {
		recipient = m.EmailData.Recipient
	}
	data, err := entity.NewEmailData(breakdown, m.Margin, recipient, subject, body, now)
	if err != nil {
		return fmt.Errorf("failed to build email data: %w", err)
	}
	if prev := m.EmailData; prev != nil {
		data.SendCount = prev.SendCount
		data.LastSentAt = prev.LastSentAt
		data.MessageID = prev.MessageID
	}
	m.EmailData = data
	return nil
}
