// internal/domain/entity/mission.go
package entity

import (
	"time"
)

// MissionType decides which validation path a mission follows
type MissionType string

const (
	MissionTypeExtraDay  MissionType = "extra_day"
	MissionTypeFreelance MissionType = "freelance"
	MissionTypeService   MissionType = "service"
)

// Valid reports whether t is one of the known mission types
func (t MissionType) Valid() bool {
	switch t {
	case MissionTypeExtraDay, MissionTypeFreelance, MissionTypeService:
		return true
	}
	return false
}

// MissionStatus is the workflow position of a mission order
type MissionStatus string

const (
	StatusPendingFinanceReview    MissionStatus = "pending_finance_review"
	StatusFinanceApproved         MissionStatus = "finance_approved"
	StatusPendingApproval         MissionStatus = "pending_approval" // legacy single-gate variant
	StatusWaitingOwnerApproval    MissionStatus = "waiting_owner_approval"
	StatusOwnerRejected           MissionStatus = "owner_rejected"
	StatusPendingClientApproval   MissionStatus = "pending_client_approval"
	StatusApproved                MissionStatus = "approved"
	StatusClientRejected          MissionStatus = "client_rejected"
	StatusRejected                MissionStatus = "rejected"
	StatusPendingExecution        MissionStatus = "pending_execution"
	StatusInProgress              MissionStatus = "in_progress"
	StatusMissionOver             MissionStatus = "mission_over"
	StatusPendingValidation       MissionStatus = "pending_validation"
	StatusValidated               MissionStatus = "validated"
	StatusPendingDateModification MissionStatus = "pending_date_modification"
	StatusCompleted               MissionStatus = "completed"
	StatusCancelled               MissionStatus = "cancelled"
)

// AllStatuses lists every mission status in lifecycle order
func AllStatuses() []MissionStatus {
	return []MissionStatus{
		StatusPendingFinanceReview,
		StatusFinanceApproved,
		StatusPendingApproval,
		StatusWaitingOwnerApproval,
		StatusOwnerRejected,
		StatusPendingClientApproval,
		StatusApproved,
		StatusClientRejected,
		StatusRejected,
		StatusPendingExecution,
		StatusInProgress,
		StatusMissionOver,
		StatusPendingValidation,
		StatusValidated,
		StatusPendingDateModification,
		StatusCompleted,
		StatusCancelled,
	}
}

// Valid reports whether s is a known status
func (s MissionStatus) Valid() bool {
	for _, known := range AllStatuses() {
		if s == known {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the crew workflow has ended for s
func (s MissionStatus) IsTerminal() bool {
	switch s {
	case StatusValidated, StatusRejected, StatusCancelled, StatusClientRejected, StatusOwnerRejected, StatusCompleted:
		return true
	}
	return false
}

// IsExecutable reports whether a date modification may be opened from s
func (s MissionStatus) IsExecutable() bool {
	switch s {
	case StatusPendingExecution, StatusInProgress, StatusMissionOver:
		return true
	}
	return false
}

// Role identifies the kind of actor firing an event
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleFinance Role = "finance"
	RoleOwner   Role = "owner"
	RoleCrew    Role = "crew"
	RoleSystem  Role = "system"
)

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleFinance, RoleOwner, RoleCrew, RoleSystem:
		return true
	}
	return false
}

// MissionOrder is a flight-crew work order moving through the approval lifecycle
type MissionOrder struct {
	ID        string        `bson:"_id" json:"id"`
	Type      MissionType   `bson:"type" json:"type"`
	Status    MissionStatus `bson:"status" json:"status"`
	Version   int64         `bson:"version" json:"version"`
	ClientID  string        `bson:"clientId" json:"clientId,omitempty"`
	CreatedBy string        `bson:"createdBy" json:"createdBy,omitempty"`

	Timestamps MissionTimestamps `bson:"timestamps" json:"timestamps"`

	// Snapshots taken at creation, never refreshed from the live records
	Crew     CrewSnapshot     `bson:"crew" json:"crew"`
	Aircraft AircraftSnapshot `bson:"aircraft" json:"aircraft"`
	Flights  []FlightSnapshot `bson:"flights" json:"flights"`

	Contract Contract     `bson:"contract" json:"contract"`
	Duration int          `bson:"duration" json:"duration"`
	Margin   MarginConfig `bson:"margin" json:"margin"`

	EmailData       *EmailData        `bson:"emailData,omitempty" json:"emailData,omitempty"`
	FinanceDecision *ApprovalDecision `bson:"financeDecision,omitempty" json:"financeDecision,omitempty"`
	OwnerDecision   *ApprovalDecision `bson:"ownerDecision,omitempty" json:"ownerDecision,omitempty"`
	ClientResponse  *ClientResponse   `bson:"clientResponse,omitempty" json:"clientResponse,omitempty"`

	DateModification        *DateModification  `bson:"dateModification,omitempty" json:"dateModification,omitempty"`
	DateModificationHistory []DateModification `bson:"dateModificationHistory,omitempty" json:"dateModificationHistory,omitempty"`

	Execution         *ExecutionReport  `bson:"execution,omitempty" json:"execution,omitempty"`
	Validation        *ValidationReport `bson:"validation,omitempty" json:"validation,omitempty"`
	ServiceInvoice    *ServiceInvoice   `bson:"serviceInvoice,omitempty" json:"serviceInvoice,omitempty"`
	ContractGenerated bool              `bson:"contractGenerated" json:"contractGenerated"`

	ClosingReason string             `bson:"closingReason,omitempty" json:"closingReason,omitempty"`
	History       []TransitionRecord `bson:"history" json:"history"`
}

// MissionTimestamps holds one timestamp per lifecycle step; each is set at most once
type MissionTimestamps struct {
	CreatedAt             time.Time  `bson:"createdAt" json:"createdAt"`
	UpdatedAt             time.Time  `bson:"updatedAt" json:"updatedAt"`
	FinanceApprovedAt     *time.Time `bson:"financeApprovedAt,omitempty" json:"financeApprovedAt,omitempty"`
	FinanceRejectedAt     *time.Time `bson:"financeRejectedAt,omitempty" json:"financeRejectedAt,omitempty"`
	OwnerSubmittedAt      *time.Time `bson:"ownerSubmittedAt,omitempty" json:"ownerSubmittedAt,omitempty"`
	OwnerApprovedAt       *time.Time `bson:"ownerApprovedAt,omitempty" json:"ownerApprovedAt,omitempty"`
	OwnerRejectedAt       *time.Time `bson:"ownerRejectedAt,omitempty" json:"ownerRejectedAt,omitempty"`
	ClientEmailSentAt     *time.Time `bson:"clientEmailSentAt,omitempty" json:"clientEmailSentAt,omitempty"`
	ClientApprovedAt      *time.Time `bson:"clientApprovedAt,omitempty" json:"clientApprovedAt,omitempty"`
	ClientRejectedAt      *time.Time `bson:"clientRejectedAt,omitempty" json:"clientRejectedAt,omitempty"`
	ApprovedAt            *time.Time `bson:"approvedAt,omitempty" json:"approvedAt,omitempty"`
	RejectedAt            *time.Time `bson:"rejectedAt,omitempty" json:"rejectedAt,omitempty"`
	AssignedToCrewAt      *time.Time `bson:"assignedToCrewAt,omitempty" json:"assignedToCrewAt,omitempty"`
	ExecutionStartedAt    *time.Time `bson:"executionStartedAt,omitempty" json:"executionStartedAt,omitempty"`
	ExecutionCompletedAt  *time.Time `bson:"executionCompletedAt,omitempty" json:"executionCompletedAt,omitempty"`
	ValidationRequestedAt *time.Time `bson:"validationRequestedAt,omitempty" json:"validationRequestedAt,omitempty"`
	ValidatedAt           *time.Time `bson:"validatedAt,omitempty" json:"validatedAt,omitempty"`
	CancelledAt           *time.Time `bson:"cancelledAt,omitempty" json:"cancelledAt,omitempty"`
	ClosedAt              *time.Time `bson:"closedAt,omitempty" json:"closedAt,omitempty"`
}

func (ts *MissionTimestamps) all() []*time.Time {
	return []*time.Time{
		&ts.CreatedAt,
		ts.FinanceApprovedAt, ts.FinanceRejectedAt,
		ts.OwnerSubmittedAt, ts.OwnerApprovedAt, ts.OwnerRejectedAt,
		ts.ClientEmailSentAt, ts.ClientApprovedAt, ts.ClientRejectedAt,
		ts.ApprovedAt, ts.RejectedAt, ts.AssignedToCrewAt,
		ts.ExecutionStartedAt, ts.ExecutionCompletedAt,
		ts.ValidationRequestedAt, ts.ValidatedAt,
		ts.CancelledAt, ts.ClosedAt,
	}
}

// Latest returns the most recent lifecycle timestamp
func (ts *MissionTimestamps) Latest() time.Time {
	var latest time.Time
	for _, t := range ts.all() {
		if t != nil && t.After(latest) {
			latest = *t
		}
	}
	return latest
}

// Stamp sets *dst to at unless it is already set. The stored value never
// precedes an earlier lifecycle timestamp. It reports whether dst was written.
func (ts *MissionTimestamps) Stamp(dst **time.Time, at time.Time) bool {
	if *dst != nil {
		return false
	}
	if latest := ts.Latest(); at.Before(latest) {
		at = latest
	}
	v := at.UTC()
	*dst = &v
	return true
}

// CrewMember is a single person on a crew
type CrewMember struct {
	ID    string `bson:"id" json:"id"`
	Name  string `bson:"name" json:"name"`
	Email string `bson:"email,omitempty" json:"email,omitempty"`
	Rank  string `bson:"rank,omitempty" json:"rank,omitempty"`
}

// CrewSnapshot is the crew as it was when the mission was created
type CrewSnapshot struct {
	ID           string       `bson:"id" json:"id"`
	Name         string       `bson:"name" json:"name"`
	Email        string       `bson:"email,omitempty" json:"email,omitempty"`
	Captain      *CrewMember  `bson:"captain,omitempty" json:"captain,omitempty"`
	FirstOfficer *CrewMember  `bson:"firstOfficer,omitempty" json:"first_officer,omitempty"`
	CabinCrew    []CrewMember `bson:"cabinCrew,omitempty" json:"cabin_crew,omitempty"`
}

// HasMember reports whether userID belongs to this crew
func (c CrewSnapshot) HasMember(userID string) bool {
	if userID == "" {
		return false
	}
	for _, id := range c.MemberIDs() {
		if id == userID {
			return true
		}
	}
	return false
}

// MemberIDs lists the distinct user ids attached to the crew
func (c CrewSnapshot) MemberIDs() []string {
	seen := make(map[string]bool)
	var ids []string
	add := func(id string) {
		if id != "" && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	add(c.ID)
	if c.Captain != nil {
		add(c.Captain.ID)
	}
	if c.FirstOfficer != nil {
		add(c.FirstOfficer.ID)
	}
	for _, m := range c.CabinCrew {
		add(m.ID)
	}
	return ids
}

// AircraftSnapshot is the aircraft as it was when the mission was created
type AircraftSnapshot struct {
	ID           string `bson:"id" json:"id"`
	Registration string `bson:"registration" json:"registration"`
	Model        string `bson:"model,omitempty" json:"model,omitempty"`
	Operator     string `bson:"operator,omitempty" json:"operator,omitempty"`
}

// FlightSnapshot is one planned flight leg
type FlightSnapshot struct {
	FlightNumber     string    `bson:"flightNumber" json:"flightNumber"`
	DepartureAirport string    `bson:"departureAirport" json:"departureAirport"`
	ArrivalAirport   string    `bson:"arrivalAirport" json:"arrivalAirport"`
	DepartureUTC     time.Time `bson:"departureUtc" json:"departureUtc"`
	ArrivalUTC       time.Time `bson:"arrivalUtc" json:"arrivalUtc"`
}

// TransitionRecord is one applied status change
type TransitionRecord struct {
	From    MissionStatus `bson:"from,omitempty" json:"from,omitempty"`
	To      MissionStatus `bson:"to" json:"to"`
	Event   string        `bson:"event" json:"event"`
	ActorID string        `bson:"actorId" json:"actorId"`
	Role    Role          `bson:"role" json:"role"`
	Reason  string        `bson:"reason,omitempty" json:"reason,omitempty"`
	At      time.Time     `bson:"at" json:"at"`
}

// ApprovalDecision is the immutable outcome of a finance or owner gate
type ApprovalDecision struct {
	Gate      string    `bson:"gate" json:"gate"`
	Approved  bool      `bson:"approved" json:"approved"`
	ActorID   string    `bson:"actorId" json:"actorId"`
	Role      Role      `bson:"role" json:"role"`
	Reason    string    `bson:"reason,omitempty" json:"reason,omitempty"`
	Comment   string    `bson:"comment,omitempty" json:"comment,omitempty"`
	DecidedAt time.Time `bson:"decidedAt" json:"decidedAt"`
}

// ClientResponse is the client's decision relayed by an admin
type ClientResponse struct {
	Approved   bool      `bson:"approved" json:"approved"`
	Reason     string    `bson:"reason,omitempty" json:"reason,omitempty"`
	Comments   string    `bson:"comments,omitempty" json:"comments,omitempty"`
	Channel    string    `bson:"channel,omitempty" json:"channel,omitempty"`
	RecordedBy string    `bson:"recordedBy" json:"recordedBy"`
	RecordedAt time.Time `bson:"recordedAt" json:"recordedAt"`
}

// ExecutionReport captures how the mission actually ended
type ExecutionReport struct {
	ActualEndDate   time.Time `bson:"actualEndDate" json:"actualEndDate"`
	WasExtended     bool      `bson:"wasExtended" json:"wasExtended"`
	ExtensionReason string    `bson:"extensionReason,omitempty" json:"extensionReason,omitempty"`
	CompletedBy     string    `bson:"completedBy" json:"completedBy"`
}

// ValidationReport is the crew-submitted confirmation after completion
type ValidationReport struct {
	RIBConfirmed bool      `bson:"ribConfirmed" json:"ribConfirmed"`
	Issues       []string  `bson:"issues,omitempty" json:"issues,omitempty"`
	PaymentIssue bool      `bson:"paymentIssue" json:"paymentIssue"`
	Comments     string    `bson:"comments,omitempty" json:"comments,omitempty"`
	SubmittedBy  string    `bson:"submittedBy" json:"submittedBy"`
	SubmittedAt  time.Time `bson:"submittedAt" json:"submittedAt"`
}
