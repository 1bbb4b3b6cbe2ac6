package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"crewmission-service/internal/domain/entity"
	"crewmission-service/internal/domain/repository"

	"gorm.io/gorm"
)

// GormCrewRepository implements the CrewRepository interface
type GormCrewRepository struct {
	db *gorm.DB
}

// NewGormCrewRepository creates a new GORM crew repository
func NewGormCrewRepository(db *gorm.DB) *GormCrewRepository {
	return &GormCrewRepository{
		db: db,
	}
}

// Crews GORM model for database mapping
type Crews struct {
	ID        string         `gorm:"primaryKey;column:id"`
	Name      string         `gorm:"column:name"`
	Email     string         `gorm:"column:email"`
	Members   []CrewMembers  `gorm:"foreignKey:CrewID"`
	DeletedAt gorm.DeletedAt `gorm:"index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName overrides the default table name
func (Crews) TableName() string {
	return "m_crews"
}

// CrewMembers GORM model for database mapping
type CrewMembers struct {
	ID       uint   `gorm:"primaryKey"`
	CrewID   string `gorm:"column:crew_id;index"`
	UserID   string `gorm:"column:user_id"`
	Name     string `gorm:"column:name"`
	Email    string `gorm:"column:email"`
	Rank     string `gorm:"column:rank"`
	Position int    `gorm:"column:position"`
}

// TableName overrides the default table name
func (CrewMembers) TableName() string {
	return "m_crew_members"
}

// GetByID finds a crew and its members
func (r *GormCrewRepository) GetByID(ctx context.Context, id string) (*entity.CrewProfile, error) {
	var crew Crews
	result := r.db.WithContext(ctx).
		Preload("Members", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where("id = ?", id).
		First(&crew)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("crew %s: %w", id, repository.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to find crew: %w", result.Error)
	}

	// Convert GORM model to domain entity
	profile := &entity.CrewProfile{
		ID:        crew.ID,
		Name:      crew.Name,
		Email:     crew.Email,
		CreatedAt: crew.CreatedAt,
		UpdatedAt: crew.UpdatedAt,
	}
	for _, m := range crew.Members {
		profile.Members = append(profile.Members, entity.CrewMember{
			ID:    m.UserID,
			Name:  m.Name,
			Email: m.Email,
			Rank:  m.Rank,
		})
	}
	return profile, nil
}

// GormAircraftRepository implements the AircraftRepository interface
type GormAircraftRepository struct {
	db *gorm.DB
}

// NewGormAircraftRepository creates a new GORM aircraft repository
func NewGormAircraftRepository(db *gorm.DB) *GormAircraftRepository {
	return &GormAircraftRepository{
		db: db,
	}
}

// Aircrafts GORM model for database mapping
type Aircrafts struct {
	ID           string         `gorm:"primaryKey;column:id"`
	Registration string         `gorm:"column:registration;unique"`
	Model        string         `gorm:"column:model"`
	Operator     string         `gorm:"column:operator"`
	DeletedAt    gorm.DeletedAt `gorm:"index"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TableName overrides the default table name
func (Aircrafts) TableName() string {
	return "m_aircrafts"
}

// GetByID finds an aircraft by id
func (r *GormAircraftRepository) GetByID(ctx context.Context, id string) (*entity.Aircraft, error) {
	var aircraft Aircrafts
	result := r.db.WithContext(ctx).Where("id = ?", id).First(&aircraft)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("aircraft %s: %w", id, repository.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to find aircraft: %w", result.Error)
	}

	return &entity.Aircraft{
		ID:           aircraft.ID,
		Registration: aircraft.Registration,
		Model:        aircraft.Model,
		Operator:     aircraft.Operator,
		CreatedAt:    aircraft.CreatedAt,
		UpdatedAt:    aircraft.UpdatedAt,
	}, nil
}
