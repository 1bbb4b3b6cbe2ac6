package entity

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// SalaryType tells how the contract salary amount is expressed
type SalaryType string

const (
	SalaryDaily   SalaryType = "daily"
	SalaryMonthly SalaryType = "monthly"
)

// Contract holds the commercial terms of a mission
type Contract struct {
	StartDate    time.Time  `bson:"startDate" json:"startDate"`
	EndDate      time.Time  `bson:"endDate" json:"endDate"`
	SalaryAmount float64    `bson:"salaryAmount" json:"salaryAmount"`
	SalaryType   SalaryType `bson:"salaryType" json:"salaryType"`
	Currency     string     `bson:"currency" json:"currency"`
	PerDiem      *float64   `bson:"perDiem,omitempty" json:"perDiem,omitempty"`
}

// MarginType selects how the margin is derived from the fees
type MarginType string

const (
	MarginPercentage MarginType = "percentage"
	MarginFixed      MarginType = "fixed"
)

// MarginConfig is the margin applied on top of crew fees
type MarginConfig struct {
	Type  MarginType `bson:"type" json:"type"`
	Value float64    `bson:"value" json:"value"`
}

// Validate checks the margin type and a non-negative value
func (c MarginConfig) Validate() error {
	if c.Type != MarginPercentage && c.Type != MarginFixed {
		return fmt.Errorf("unknown margin type %q", c.Type)
	}
	if c.Value < 0 {
		return errors.New("margin value must not be negative")
	}
	return nil
}

// Fees is the derived cost breakdown of a mission
type Fees struct {
	DailyRate       float64 `bson:"dailyRate" json:"dailyRate"`
	PerDiem         float64 `bson:"perDiem" json:"perDiem"`
	Duration        int     `bson:"duration" json:"duration"`
	TotalSalary     float64 `bson:"totalSalary" json:"totalSalary"`
	TotalPerDiem    float64 `bson:"totalPerDiem" json:"totalPerDiem"`
	TotalFees       float64 `bson:"totalFees" json:"totalFees"`
	Margin          float64 `bson:"margin" json:"margin"`
	TotalWithMargin float64 `bson:"totalWithMargin" json:"totalWithMargin"`
	Currency        string  `bson:"currency" json:"currency"`
}

// EmailData is the client-facing quote generated from the fees
type EmailData struct {
	Fees        Fees         `bson:"fees" json:"fees"`
	Margin      MarginConfig `bson:"marginConfig" json:"marginConfig"`
	Recipient   string       `bson:"recipient" json:"recipient"`
	Subject     string       `bson:"subject" json:"subject"`
	Body        string       `bson:"body" json:"body"`
	GeneratedAt time.Time    `bson:"generatedAt" json:"generatedAt"`
	SendCount   int          `bson:"sendCount" json:"sendCount"`
	LastSentAt  *time.Time   `bson:"lastSentAt,omitempty" json:"lastSentAt,omitempty"`
	MessageID   string       `bson:"messageId,omitempty" json:"messageId,omitempty"`
}

// NewEmailData builds email data and refuses fee breakdowns whose totals do not add up
func NewEmailData(fees Fees, margin MarginConfig, recipient, subject, body string, generatedAt time.Time) (*EmailData, error) {
	if math.Abs(fees.TotalFees+fees.Margin-fees.TotalWithMargin) > 0.005 {
		return nil, fmt.Errorf("fees out of balance: %.2f + %.2f != %.2f", fees.TotalFees, fees.Margin, fees.TotalWithMargin)
	}
	if subject == "" {
		return nil, errors.New("email subject is empty")
	}
	return &EmailData{
		Fees:        fees,
		Margin:      margin,
		Recipient:   recipient,
		Subject:     subject,
		Body:        body,
		GeneratedAt: generatedAt.UTC(),
	}, nil
}

// DateModificationStatus tracks the resolution of a date change request
type DateModificationStatus string

const (
	DateModificationPending  DateModificationStatus = "pending"
	DateModificationApproved DateModificationStatus = "approved"
	DateModificationRejected DateModificationStatus = "rejected"
)

// DateModification is a request to move the contract dates after assignment
type DateModification struct {
	ID                 string                 `bson:"id" json:"id"`
	Status             DateModificationStatus `bson:"status" json:"status"`
	Reason             string                 `bson:"reason" json:"reason"`
	RequestedBy        string                 `bson:"requestedBy" json:"requestedBy"`
	RequestedByRole    Role                   `bson:"requestedByRole" json:"requestedByRole"`
	RequestedAt        time.Time              `bson:"requestedAt" json:"requestedAt"`
	OriginalStartDate  time.Time              `bson:"originalStartDate" json:"originalStartDate"`
	OriginalEndDate    time.Time              `bson:"originalEndDate" json:"originalEndDate"`
	RequestedStartDate time.Time              `bson:"requestedStartDate" json:"requestedStartDate"`
	RequestedEndDate   time.Time              `bson:"requestedEndDate" json:"requestedEndDate"`
	PriorStatus        MissionStatus          `bson:"priorStatus" json:"priorStatus"`
	ResolvedBy         string                 `bson:"resolvedBy,omitempty" json:"resolvedBy,omitempty"`
	ResolvedAt         *time.Time             `bson:"resolvedAt,omitempty" json:"resolvedAt,omitempty"`
	ApproverComment    string                 `bson:"approverComment,omitempty" json:"approverComment,omitempty"`
	RejectionReason    string                 `bson:"rejectionReason,omitempty" json:"rejectionReason,omitempty"`
}

// IsPending reports whether the request still awaits a decision
func (d *DateModification) IsPending() bool {
	return d != nil && d.Status == DateModificationPending
}

// InvoiceLineItem is one billed line of a service invoice
type InvoiceLineItem struct {
	Description string  `bson:"description" json:"description"`
	Quantity    float64 `bson:"quantity" json:"quantity"`
	UnitPrice   float64 `bson:"unitPrice" json:"unitPrice"`
	Amount      float64 `bson:"amount" json:"amount"`
}

// ServiceInvoice is the invoice a service-type crew member attaches before validation
type ServiceInvoice struct {
	Number    string            `bson:"number,omitempty" json:"number,omitempty"`
	LineItems []InvoiceLineItem `bson:"lineItems" json:"lineItems"`
	Subtotal  float64           `bson:"subtotal" json:"subtotal"`
	TaxRate   *float64          `bson:"taxRate,omitempty" json:"taxRate,omitempty"`
	TaxAmount float64           `bson:"taxAmount" json:"taxAmount"`
	Total     *float64          `bson:"total,omitempty" json:"total,omitempty"`
	Currency  string            `bson:"currency" json:"currency"`
	UpdatedAt time.Time         `bson:"updatedAt" json:"updatedAt"`
}

// Complete returns an error naming the first missing invoice field
func (inv *ServiceInvoice) Complete() error {
	switch {
	case inv == nil:
		return errors.New("service invoice is missing")
	case len(inv.LineItems) == 0:
		return errors.New("service invoice has no line items")
	case inv.TaxRate == nil:
		return errors.New("service invoice tax rate is missing")
	case inv.Total == nil:
		return errors.New("service invoice total is missing")
	case inv.Currency == "":
		return errors.New("service invoice currency is missing")
	}
	return nil
}
