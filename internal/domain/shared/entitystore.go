package shared

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Entity store errors
var (
	ErrEntityNotFound   = errors.New("shared: entity not found")
	ErrFieldNotFound    = errors.New("shared: entity field not found")
	ErrInvalidEntityRef = errors.New("shared: invalid entity reference")
)

// Entity is a generic persisted record. Every aggregate in the engine
// (connector, mapping, sync job, sync run) is stored as one entity plus a set
// of typed fields.
type Entity struct {
	// ID is the unique identifier of the entity
	ID uuid.UUID
	// OrgID is the organization the entity belongs to
	OrgID uuid.UUID
	// Type is the logical entity type (e.g. "connector", "sync_job")
	Type string
	// Name is a human-readable label
	Name string
	// SmartCode is the audit classification tag stamped at creation
	SmartCode SmartCode
	// CreatedAt is when the entity was created
	CreatedAt time.Time
	// UpdatedAt is when the entity was last updated
	UpdatedAt time.Time
}

// Field is one key-value attribute attached to an entity. Value holds the
// JSON-encoded payload; ValueType records the declared type for readers.
type Field struct {
	// EntityID is the owning entity
	EntityID uuid.UUID
	// Name is the field name
	Name string
	// Value is the JSON-encoded field value
	Value string
	// ValueType is the declared value type (e.g. "text", "json", "number")
	ValueType string
	// UpdatedAt is when the field was last written
	UpdatedAt time.Time
}

// FieldMap keys a field list by name for aggregate hydration
func FieldMap(fields []Field) map[string]string {
	m := make(map[string]string, len(fields))
	for _, f := range fields {
		m[f.Name] = f.Value
	}
	return m
}

// EntityFilter defines filter criteria for listing entities
type EntityFilter struct {
	// Type filters by entity type (optional)
	Type string
	// Name filters by exact name (optional)
	Name string
	// Limit caps the number of returned entities (0 = no limit)
	Limit int
	// Ascending returns oldest entities first instead of newest first
	Ascending bool
}

// EntityStore is the generic persistence substrate the repositories are built
// on. Implementations live in the infrastructure layer; no physical schema
// detail is part of the domain.
type EntityStore interface {
	// CreateEntity persists a new entity with a generated ID
	CreateEntity(ctx context.Context, orgID uuid.UUID, entityType, name string, smartCode SmartCode) (uuid.UUID, error)

	// UpsertEntity creates or refreshes an entity keeping the caller's ID.
	// Only the name and update timestamp change on an existing entity.
	UpsertEntity(ctx context.Context, entity Entity) error

	// GetEntity retrieves an entity by ID
	GetEntity(ctx context.Context, id uuid.UUID) (*Entity, error)

	// SetField creates or replaces one field on an entity
	SetField(ctx context.Context, entityID uuid.UUID, name, value, valueType string) error

	// CompareAndSwapField replaces a field value only while it still holds
	// oldValue, reporting whether the swap landed
	CompareAndSwapField(ctx context.Context, entityID uuid.UUID, name, oldValue, newValue string) (bool, error)

	// ListEntities lists entities for an organization matching the filter.
	// A nil orgID lists across all organizations.
	ListEntities(ctx context.Context, orgID uuid.UUID, filter EntityFilter) ([]Entity, error)

	// FindByFieldValue lists entities of a type holding a field with the
	// given value, newest first
	FindByFieldValue(ctx context.Context, entityType, fieldName, fieldValue string, limit int) ([]Entity, error)

	// ListFields returns all fields of an entity
	ListFields(ctx context.Context, entityID uuid.UUID) ([]Field, error)

	// DeleteEntity removes an entity and its fields
	DeleteEntity(ctx context.Context, id uuid.UUID) error

	// Atomically runs fn against a store whose writes commit or roll back
	// together
	Atomically(ctx context.Context, fn func(EntityStore) error) error
}
