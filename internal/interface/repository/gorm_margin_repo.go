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

// GormMarginRepository implements the MarginRepository interface
type GormMarginRepository struct {
	db *gorm.DB
}

// NewGormMarginRepository creates a new GORM client margin repository
func NewGormMarginRepository(db *gorm.DB) *GormMarginRepository {
	return &GormMarginRepository{
		db: db,
	}
}

// ClientMargins GORM model for database mapping
type ClientMargins struct {
	ClientID     string         `gorm:"primaryKey;column:client_id"`
	ContactEmail string         `gorm:"column:contact_email"`
	MarginType   string         `gorm:"column:margin_type"`
	MarginValue  float64        `gorm:"column:margin_value"`
	DeletedAt    gorm.DeletedAt `gorm:"index"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TableName overrides the default table name
func (ClientMargins) TableName() string {
	return "m_client_margins"
}

// GetByClientID finds the negotiated margin of a client
func (r *GormMarginRepository) GetByClientID(ctx context.Context, clientID string) (*entity.ClientMargin, error) {
	var margin ClientMargins
	result := r.db.WithContext(ctx).Where("client_id = ?", clientID).First(&margin)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("client margin %s: %w", clientID, repository.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to find client margin: %w", result.Error)
	}

	return &entity.ClientMargin{
		ClientID:     margin.ClientID,
		ContactEmail: margin.ContactEmail,
		Margin: entity.MarginConfig{
			Type:  entity.MarginType(margin.MarginType),
			Value: margin.MarginValue,
		},
	}, nil
}
