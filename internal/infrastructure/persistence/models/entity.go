package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/syncbridge/backend/internal/domain/shared"
)

// EntityModel is the persistence model for the generic entity row. Every
// aggregate (connector, data mapping, sync job, sync run) is stored as one
// entity plus its field rows.
type EntityModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	OrgID     uuid.UUID `gorm:"type:uuid;not null;index:idx_entities_org_type,priority:1"`
	Type      string    `gorm:"type:varchar(50);not null;index:idx_entities_org_type,priority:2"`
	Name      string    `gorm:"type:varchar(200);not null"`
	SmartCode string    `gorm:"type:varchar(100);not null"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (EntityModel) TableName() string {
	return "entities"
}

// ToDomain converts the persistence model to a domain Entity
func (m *EntityModel) ToDomain() *shared.Entity {
	return &shared.Entity{
		ID:        m.ID,
		OrgID:     m.OrgID,
		Type:      m.Type,
		Name:      m.Name,
		SmartCode: shared.SmartCode(m.SmartCode),
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// EntityFieldModel is the persistence model for one typed field of an entity.
// Value always holds a JSON-encoded payload.
type EntityFieldModel struct {
	EntityID  uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name      string    `gorm:"type:varchar(100);primaryKey"`
	Value     string    `gorm:"type:text;not null"`
	ValueType string    `gorm:"type:varchar(20);not null;default:'json'"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (EntityFieldModel) TableName() string {
	return "entity_fields"
}

// ToDomain converts the persistence model to a domain Field
func (m *EntityFieldModel) ToDomain() shared.Field {
	return shared.Field{
		EntityID:  m.EntityID,
		Name:      m.Name,
		Value:     m.Value,
		ValueType: m.ValueType,
		UpdatedAt: m.UpdatedAt,
	}
}

// AutoMigrate creates or updates the entity tables
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&EntityModel{},
		&EntityFieldModel{},
	)
}
