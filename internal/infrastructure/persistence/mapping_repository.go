package persistence

import (
	"context"
	"errors"
	"sort"
	"strconv"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/syncbridge/backend/internal/domain/mapping"
	"github.com/syncbridge/backend/internal/domain/shared"
)

const entityTypeMapping = "data_mapping"

// mappingDefinition is the JSON payload holding the mapping contents. Custom
// transform and rule functions are runtime-only and do not survive a round
// trip through the store.
type mappingDefinition struct {
	FieldMappings []mapping.FieldMapping       `json:"field_mappings"`
	Transforms    []mapping.TransformOperation `json:"transforms,omitempty"`
	Rules         []mapping.ValidationRule     `json:"rules,omitempty"`
}

// GormMappingRepository implements mapping.Repository on top of the entity
// store. Each mapping version is its own entity; replacement never touches
// prior versions.
type GormMappingRepository struct {
	store shared.EntityStore
}

// NewGormMappingRepository creates a new GormMappingRepository
func NewGormMappingRepository(db *gorm.DB) *GormMappingRepository {
	return &GormMappingRepository{store: NewGormEntityStore(db)}
}

// Save persists a mapping version
func (r *GormMappingRepository) Save(ctx context.Context, m *mapping.DataMapping) error {
	definitionJSON, err := encodeJSON(mappingDefinition{
		FieldMappings: m.FieldMappings,
		Transforms:    m.Transforms,
		Rules:         m.Rules,
	})
	if err != nil {
		return err
	}

	return r.store.Atomically(ctx, func(s shared.EntityStore) error {
		if err := s.UpsertEntity(ctx, shared.Entity{
			ID:        m.ID,
			OrgID:     m.OrgID,
			Type:      entityTypeMapping,
			Name:      m.Resource,
			SmartCode: m.SmartCode,
			CreatedAt: m.CreatedAt,
		}); err != nil {
			return err
		}
		if err := s.SetField(ctx, m.ID, "connector_id", m.ConnectorID.String(), fieldTypeText); err != nil {
			return err
		}
		if err := s.SetField(ctx, m.ID, "version", strconv.Itoa(m.Version), fieldTypeNumber); err != nil {
			return err
		}
		return s.SetField(ctx, m.ID, "definition", definitionJSON, fieldTypeJSON)
	})
}

// FindByID finds a mapping version by its ID
func (r *GormMappingRepository) FindByID(ctx context.Context, id uuid.UUID) (*mapping.DataMapping, error) {
	entity, err := r.store.GetEntity(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrEntityNotFound) {
			return nil, mapping.ErrMappingNotFound
		}
		return nil, err
	}
	if entity.Type != entityTypeMapping {
		return nil, mapping.ErrMappingNotFound
	}
	return r.hydrate(ctx, entity)
}

// FindCurrent finds the highest version for a connector and resource
func (r *GormMappingRepository) FindCurrent(ctx context.Context, orgID, connectorID uuid.UUID, resource string) (*mapping.DataMapping, error) {
	versions, err := r.FindVersions(ctx, orgID, connectorID, resource)
	if err != nil {
		return nil, err
	}
	if len(versions) == 0 {
		return nil, mapping.ErrMappingNotFound
	}
	// FindVersions returns newest first
	return &versions[0], nil
}

// FindAll lists the current mapping versions for an organization, one per
// connector and resource pair.
func (r *GormMappingRepository) FindAll(ctx context.Context, orgID uuid.UUID) ([]mapping.DataMapping, error) {
	all, err := r.loadAll(ctx, orgID, "")
	if err != nil {
		return nil, err
	}

	type pair struct {
		connectorID uuid.UUID
		resource    string
	}
	current := make(map[pair]mapping.DataMapping)
	for _, m := range all {
		key := pair{m.ConnectorID, m.Resource}
		if existing, ok := current[key]; !ok || m.Version > existing.Version {
			current[key] = m
		}
	}

	result := make([]mapping.DataMapping, 0, len(current))
	for _, m := range current {
		result = append(result, m)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

// FindVersions lists all versions for a connector and resource, newest first
func (r *GormMappingRepository) FindVersions(ctx context.Context, orgID, connectorID uuid.UUID, resource string) ([]mapping.DataMapping, error) {
	all, err := r.loadAll(ctx, orgID, resource)
	if err != nil {
		return nil, err
	}

	var versions []mapping.DataMapping
	for _, m := range all {
		if m.ConnectorID == connectorID {
			versions = append(versions, m)
		}
	}
	sort.Slice(versions, func(i, j int) bool {
		return versions[i].Version > versions[j].Version
	})
	return versions, nil
}

// loadAll hydrates every mapping entity for an organization, optionally
// narrowed to one resource (stored as the entity name).
func (r *GormMappingRepository) loadAll(ctx context.Context, orgID uuid.UUID, resource string) ([]mapping.DataMapping, error) {
	entities, err := r.store.ListEntities(ctx, orgID, shared.EntityFilter{
		Type: entityTypeMapping,
		Name: resource,
	})
	if err != nil {
		return nil, err
	}

	mappings := make([]mapping.DataMapping, 0, len(entities))
	for i := range entities {
		m, err := r.hydrate(ctx, &entities[i])
		if err != nil {
			return nil, err
		}
		mappings = append(mappings, *m)
	}
	return mappings, nil
}

func (r *GormMappingRepository) hydrate(ctx context.Context, entity *shared.Entity) (*mapping.DataMapping, error) {
	fieldList, err := r.store.ListFields(ctx, entity.ID)
	if err != nil {
		return nil, err
	}
	fields := shared.FieldMap(fieldList)

	connectorID, err := uuid.Parse(fields["connector_id"])
	if err != nil {
		return nil, mapping.ErrMappingInvalidConnID
	}
	version, err := strconv.Atoi(fields["version"])
	if err != nil {
		version = 1
	}

	var definition mappingDefinition
	if raw, ok := fields["definition"]; ok {
		if err := decodeJSON(raw, &definition); err != nil {
			return nil, err
		}
	}

	return &mapping.DataMapping{
		ID:            entity.ID,
		OrgID:         entity.OrgID,
		ConnectorID:   connectorID,
		Resource:      entity.Name,
		Version:       version,
		FieldMappings: definition.FieldMappings,
		Transforms:    definition.Transforms,
		Rules:         definition.Rules,
		SmartCode:     entity.SmartCode,
		CreatedAt:     entity.CreatedAt,
	}, nil
}
