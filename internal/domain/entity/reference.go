package entity

import (
	"time"
)

// CrewProfile is a crew record in the reference directory
type CrewProfile struct {
	ID        string
	Name      string
	Email     string
	Members   []CrewMember
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Snapshot freezes the profile into the shape stored on a mission
func (p CrewProfile) Snapshot() CrewSnapshot {
	s := CrewSnapshot{ID: p.ID, Name: p.Name, Email: p.Email}
	for _, m := range p.Members {
		m := m
		switch m.Rank {
		case "captain":
			if s.Captain == nil {
				s.Captain = &m
				continue
			}
		case "first_officer":
			if s.FirstOfficer == nil {
				s.FirstOfficer = &m
				continue
			}
		}
		s.CabinCrew = append(s.CabinCrew, m)
	}
	return s
}

// Aircraft is an aircraft record in the reference directory
type Aircraft struct {
	ID           string
	Registration string
	Model        string
	Operator     string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Snapshot freezes the aircraft into the shape stored on a mission
func (a Aircraft) Snapshot() AircraftSnapshot {
	return AircraftSnapshot{
		ID:           a.ID,
		Registration: a.Registration,
		Model:        a.Model,
		Operator:     a.Operator,
	}
}

// ClientMargin is the negotiated margin for one client
type ClientMargin struct {
	ClientID     string
	ContactEmail string
	Margin       MarginConfig
}
