package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"crewmission-service/internal/domain/entity"
	"crewmission-service/internal/domain/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormMissionRepository implements MissionRepository on postgres. The full
// mission is kept as a JSON document next to the columns used for filtering.
type GormMissionRepository struct {
	db *gorm.DB
}

// NewGormMissionRepository creates a new GORM mission repository
func NewGormMissionRepository(db *gorm.DB) *GormMissionRepository {
	return &GormMissionRepository{
		db: db,
	}
}

// MissionOrders GORM model for database mapping
type MissionOrders struct {
	ID        string `gorm:"primaryKey;column:id"`
	Type      string `gorm:"column:type;index"`
	Status    string `gorm:"column:status;index"`
	Version   int64  `gorm:"column:version"`
	ClientID  string `gorm:"column:client_id;index"`
	CrewIDs   string `gorm:"column:crew_ids"`
	Document  string `gorm:"column:document;type:text"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName overrides the default table name
func (MissionOrders) TableName() string {
	return "mission_orders"
}

func toMissionModel(m *entity.MissionOrder) (*MissionOrders, error) {
	doc, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to encode mission: %w", err)
	}
	return &MissionOrders{
		ID:        m.ID,
		Type:      string(m.Type),
		Status:    string(m.Status),
		Version:   m.Version,
		ClientID:  m.ClientID,
		CrewIDs:   "," + strings.Join(m.Crew.MemberIDs(), ",") + ",",
		Document:  string(doc),
		CreatedAt: m.Timestamps.CreatedAt,
		UpdatedAt: m.Timestamps.UpdatedAt,
	}, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// crewMemberPattern matches one member id inside the comma-delimited
// crew_ids column. Ids containing the delimiter never match.
func crewMemberPattern(memberID string) (string, bool) {
	if strings.Contains(memberID, ",") {
		return "", false
	}
	return "%," + likeEscaper.Replace(memberID) + ",%", true
}

func (model MissionOrders) toEntity() (*entity.MissionOrder, error) {
	var m entity.MissionOrder
	if err := json.Unmarshal([]byte(model.Document), &m); err != nil {
		return nil, fmt.Errorf("failed to decode mission %s: %w", model.ID, err)
	}
	m.Version = model.Version
	return &m, nil
}

// Create inserts a new mission
func (r *GormMissionRepository) Create(ctx context.Context, mission *entity.MissionOrder) error {
	if mission.ID == "" {
		mission.ID = uuid.NewString()
	}
	model, err := toMissionModel(mission)
	if err != nil {
		return err
	}
	result := r.db.WithContext(ctx).Create(model)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("mission %s: %w", mission.ID, repository.ErrConflict)
		}
		return fmt.Errorf("failed to insert mission: %w", result.Error)
	}
	return nil
}

// FindByID finds a mission by its id
func (r *GormMissionRepository) FindByID(ctx context.Context, id string) (*entity.MissionOrder, error) {
	var model MissionOrders
	result := r.db.WithContext(ctx).Where("id = ?", id).First(&model)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("mission %s: %w", id, repository.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to find mission: %w", result.Error)
	}
	return model.toEntity()
}

// List returns missions matching the filter, most recently updated first
func (r *GormMissionRepository) List(ctx context.Context, filter repository.MissionFilter) ([]*entity.MissionOrder, error) {
	query := r.db.WithContext(ctx).Model(&MissionOrders{})
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		query = query.Where("status IN ?", statuses)
	}
	if filter.Type != "" {
		query = query.Where("type = ?", string(filter.Type))
	}
	if filter.ClientID != "" {
		query = query.Where("client_id = ?", filter.ClientID)
	}
	if filter.CrewMemberID != "" {
		pattern, ok := crewMemberPattern(filter.CrewMemberID)
		if !ok {
			return []*entity.MissionOrder{}, nil
		}
		query = query.Where(`crew_ids LIKE ? ESCAPE '\'`, pattern)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var models []MissionOrders
	if err := query.Order("updated_at DESC").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list missions: %w", err)
	}

	missions := make([]*entity.MissionOrder, 0, len(models))
	for _, model := range models {
		m, err := model.toEntity()
		if err != nil {
			return nil, err
		}
		missions = append(missions, m)
	}
	return missions, nil
}

// Update writes the mission only if status and version still match
func (r *GormMissionRepository) Update(ctx context.Context, mission *entity.MissionOrder, expectedStatus entity.MissionStatus) error {
	next := *mission
	next.Version = mission.Version + 1
	model, err := toMissionModel(&next)
	if err != nil {
		return err
	}

	result := r.db.WithContext(ctx).Model(&MissionOrders{}).
		Where("id = ? AND status = ? AND version = ?", mission.ID, string(expectedStatus), mission.Version).
		Updates(map[string]interface{}{
			"type":       model.Type,
			"status":     model.Status,
			"version":    model.Version,
			"client_id":  model.ClientID,
			"crew_ids":   model.CrewIDs,
			"document":   model.Document,
			"updated_at": model.UpdatedAt,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update mission: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).Model(&MissionOrders{}).Where("id = ?", mission.ID).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check mission: %w", err)
		}
		if count == 0 {
			return fmt.Errorf("mission %s: %w", mission.ID, repository.ErrNotFound)
		}
		return fmt.Errorf("mission %s: %w", mission.ID, repository.ErrConflict)
	}

	mission.Version = next.Version
	return nil
}

// Upsert writes an unconditional copy of the mission
func (r *GormMissionRepository) Upsert(ctx context.Context, mission *entity.MissionOrder) error {
	model, err := toMissionModel(mission)
	if err != nil {
		return err
	}
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(model)
	if result.Error != nil {
		return fmt.Errorf("failed to upsert mission: %w", result.Error)
	}
	return nil
}
