package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/syncbridge/backend/internal/domain/shared"
	"github.com/syncbridge/backend/internal/infrastructure/persistence/models"
)

// GormEntityStore implements shared.EntityStore over the generic entities and
// entity_fields tables. The aggregate repositories are built on top of it.
type GormEntityStore struct {
	db *gorm.DB
}

var _ shared.EntityStore = (*GormEntityStore)(nil)

// NewGormEntityStore creates a new GormEntityStore
func NewGormEntityStore(db *gorm.DB) *GormEntityStore {
	return &GormEntityStore{db: db}
}

// CreateEntity persists a new entity with a generated ID
func (s *GormEntityStore) CreateEntity(ctx context.Context, orgID uuid.UUID, entityType, name string, smartCode shared.SmartCode) (uuid.UUID, error) {
	if orgID == uuid.Nil || entityType == "" {
		return uuid.Nil, shared.ErrInvalidEntityRef
	}

	now := time.Now()
	model := models.EntityModel{
		ID:        uuid.New(),
		OrgID:     orgID,
		Type:      entityType,
		Name:      name,
		SmartCode: string(smartCode),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.db.WithContext(ctx).Create(&model).Error; err != nil {
		return uuid.Nil, err
	}
	return model.ID, nil
}

// UpsertEntity creates or refreshes an entity keeping the caller's ID
func (s *GormEntityStore) UpsertEntity(ctx context.Context, entity shared.Entity) error {
	if entity.ID == uuid.Nil || entity.OrgID == uuid.Nil || entity.Type == "" {
		return shared.ErrInvalidEntityRef
	}

	model := models.EntityModel{
		ID:        entity.ID,
		OrgID:     entity.OrgID,
		Type:      entity.Type,
		Name:      entity.Name,
		SmartCode: string(entity.SmartCode),
		CreatedAt: entity.CreatedAt,
		UpdatedAt: time.Now(),
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "updated_at"}),
		}).
		Create(&model).Error
}

// GetEntity retrieves an entity by ID
func (s *GormEntityStore) GetEntity(ctx context.Context, id uuid.UUID) (*shared.Entity, error) {
	var model models.EntityModel
	if err := s.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrEntityNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// SetField creates or replaces one field on an entity
func (s *GormEntityStore) SetField(ctx context.Context, entityID uuid.UUID, name, value, valueType string) error {
	if entityID == uuid.Nil || name == "" {
		return shared.ErrInvalidEntityRef
	}

	field := models.EntityFieldModel{
		EntityID:  entityID,
		Name:      name,
		Value:     value,
		ValueType: valueType,
		UpdatedAt: time.Now(),
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "entity_id"}, {Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "value_type", "updated_at"}),
		}).
		Create(&field).Error
}

// CompareAndSwapField replaces a field value only while it still holds
// oldValue, reporting whether the swap landed
func (s *GormEntityStore) CompareAndSwapField(ctx context.Context, entityID uuid.UUID, name, oldValue, newValue string) (bool, error) {
	result := s.db.WithContext(ctx).Model(&models.EntityFieldModel{}).
		Where("entity_id = ? AND name = ? AND value = ?", entityID, name, oldValue).
		Updates(map[string]any{"value": newValue, "updated_at": time.Now()})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// ListEntities lists entities for an organization matching the filter.
// A nil orgID lists across all organizations.
func (s *GormEntityStore) ListEntities(ctx context.Context, orgID uuid.UUID, filter shared.EntityFilter) ([]shared.Entity, error) {
	order := "created_at DESC"
	if filter.Ascending {
		order = "created_at ASC"
	}

	query := s.db.WithContext(ctx).
		Model(&models.EntityModel{}).
		Order(order)
	if orgID != uuid.Nil {
		query = query.Where("org_id = ?", orgID)
	}
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if filter.Name != "" {
		query = query.Where("name = ?", filter.Name)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var entityModels []models.EntityModel
	if err := query.Find(&entityModels).Error; err != nil {
		return nil, err
	}

	entities := make([]shared.Entity, len(entityModels))
	for i, model := range entityModels {
		entities[i] = *model.ToDomain()
	}
	return entities, nil
}

// FindByFieldValue lists entities of a type holding a field with the given
// value, newest first
func (s *GormEntityStore) FindByFieldValue(ctx context.Context, entityType, fieldName, fieldValue string, limit int) ([]shared.Entity, error) {
	query := s.db.WithContext(ctx).
		Model(&models.EntityModel{}).
		Joins("JOIN entity_fields ON entity_fields.entity_id = entities.id AND entity_fields.name = ?", fieldName).
		Where("entities.type = ? AND entity_fields.value = ?", entityType, fieldValue).
		Order("entities.created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var entityModels []models.EntityModel
	if err := query.Find(&entityModels).Error; err != nil {
		return nil, err
	}

	entities := make([]shared.Entity, len(entityModels))
	for i, model := range entityModels {
		entities[i] = *model.ToDomain()
	}
	return entities, nil
}

// ListFields returns all fields of an entity
func (s *GormEntityStore) ListFields(ctx context.Context, entityID uuid.UUID) ([]shared.Field, error) {
	var fieldModels []models.EntityFieldModel
	if err := s.db.WithContext(ctx).
		Where("entity_id = ?", entityID).
		Order("name ASC").
		Find(&fieldModels).Error; err != nil {
		return nil, err
	}

	fields := make([]shared.Field, len(fieldModels))
	for i, model := range fieldModels {
		fields[i] = model.ToDomain()
	}
	return fields, nil
}

// DeleteEntity removes an entity and its fields
func (s *GormEntityStore) DeleteEntity(ctx context.Context, id uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("entity_id = ?", id).Delete(&models.EntityFieldModel{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", id).Delete(&models.EntityModel{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrEntityNotFound
		}
		return nil
	})
}

// Atomically runs fn against a store bound to one transaction
func (s *GormEntityStore) Atomically(ctx context.Context, fn func(shared.EntityStore) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormEntityStore{db: tx})
	})
}
