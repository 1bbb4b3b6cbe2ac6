package httpserver

import (
	"time"

	"crewmission-service/internal/domain/entity"
	"crewmission-service/internal/domain/workflow"
	"crewmission-service/internal/usecase"
	"crewmission-service/pkg/utils"
)

// ContractRequest carries calendar dates as YYYY-MM-DD or RFC 3339 strings
type ContractRequest struct {
	StartDate    string            `json:"startDate"`
	EndDate      string            `json:"endDate"`
	SalaryAmount float64           `json:"salaryAmount"`
	SalaryType   entity.SalaryType `json:"salaryType"`
	Currency     string            `json:"currency"`
	PerDiem      *float64          `json:"perDiem,omitempty"`
}

func (c ContractRequest) toEntity() (entity.Contract, error) {
	start, err := parseDateField("contract.startDate", c.StartDate)
	if err != nil {
		return entity.Contract{}, err
	}
	end, err := parseDateField("contract.endDate", c.EndDate)
	if err != nil {
		return entity.Contract{}, err
	}
	return entity.Contract{
		StartDate:    start,
		EndDate:      end,
		SalaryAmount: c.SalaryAmount,
		SalaryType:   c.SalaryType,
		Currency:     c.Currency,
		PerDiem:      c.PerDiem,
	}, nil
}

// CreateMissionRequest is the body of POST /missions
type CreateMissionRequest struct {
	Type        entity.MissionType       `json:"type"`
	ClientID    string                   `json:"clientId"`
	ClientEmail string                   `json:"clientEmail"`
	CrewID      string                   `json:"crewId"`
	Crew        *entity.CrewSnapshot     `json:"crew,omitempty"`
	AircraftID  string                   `json:"aircraftId"`
	Aircraft    *entity.AircraftSnapshot `json:"aircraft,omitempty"`
	Flights     []entity.FlightSnapshot  `json:"flights,omitempty"`
	Contract    ContractRequest          `json:"contract"`
	Margin      *entity.MarginConfig     `json:"margin,omitempty"`
	Legacy      bool                     `json:"legacy"`
}

func (r CreateMissionRequest) toDraft() (usecase.MissionDraft, error) {
	contract, err := r.Contract.toEntity()
	if err != nil {
		return usecase.MissionDraft{}, err
	}
	return usecase.MissionDraft{
		Type:        r.Type,
		ClientID:    r.ClientID,
		ClientEmail: r.ClientEmail,
		CrewID:      r.CrewID,
		Crew:        r.Crew,
		AircraftID:  r.AircraftID,
		Aircraft:    r.Aircraft,
		Flights:     r.Flights,
		Contract:    contract,
		Margin:      r.Margin,
		Legacy:      r.Legacy,
	}, nil
}

// DecisionRequest is the body of approve and reject calls
type DecisionRequest struct {
	Comment string `json:"comment"`
	Reason  string `json:"reason"`
}

// ClientDecisionRequest relays the client's answer
type ClientDecisionRequest struct {
	Approved bool   `json:"approved"`
	Reason   string `json:"reason"`
	Comments string `json:"comments"`
	Channel  string `json:"channel"`
}

// CompleteRequest is the body of POST /missions/{id}/complete
type CompleteRequest struct {
	ActualEndDate   string `json:"actualEndDate"`
	ExtensionReason string `json:"extensionReason"`
}

// ValidateRequest is the body of POST /missions/{id}/validate
type ValidateRequest struct {
	RIBConfirmed bool     `json:"ribConfirmed"`
	Issues       []string `json:"issues"`
	PaymentIssue bool     `json:"paymentIssue"`
	Comments     string   `json:"comments"`
}

// InvoiceRequest is the body of PUT /missions/{id}/invoice
type InvoiceRequest struct {
	Number    string                   `json:"number"`
	LineItems []entity.InvoiceLineItem `json:"lineItems"`
	TaxRate   *float64                 `json:"taxRate"`
	Currency  string                   `json:"currency"`
}

// DateModificationRequest is the body of POST /missions/{id}/date-modification
type DateModificationRequest struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
	Reason    string `json:"reason"`
}

func (r DateModificationRequest) toUsecase() (usecase.DateModificationRequest, error) {
	start, err := parseDateField("startDate", r.StartDate)
	if err != nil {
		return usecase.DateModificationRequest{}, err
	}
	end, err := parseDateField("endDate", r.EndDate)
	if err != nil {
		return usecase.DateModificationRequest{}, err
	}
	return usecase.DateModificationRequest{StartDate: start, EndDate: end, Reason: r.Reason}, nil
}

func parseDateField(field, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, &workflow.ValidationError{Field: field, Message: "is required"}
	}
	t, err := utils.ParseDate(value)
	if err != nil {
		return time.Time{}, &workflow.ValidationError{Field: field, Message: err.Error()}
	}
	return t, nil
}
