package mapping

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/syncbridge/backend/internal/domain/shared"
)

// ---------------------------------------------------------------------------
// Mapping Errors
// ---------------------------------------------------------------------------

var (
	ErrMappingNotFound       = errors.New("mapping: data mapping not found")
	ErrMappingInvalidOrgID   = errors.New("mapping: invalid organization ID")
	ErrMappingInvalidConnID  = errors.New("mapping: invalid connector ID")
	ErrMappingEmptyResource  = errors.New("mapping: resource type is required")
	ErrMappingNoFieldTargets = errors.New("mapping: field mapping requires source and target fields")
	ErrUnknownTransformRef   = errors.New("mapping: unknown transform reference")
)

// TransformError indicates malformed input to a transform stage. It is
// recovered per record by the sync engine.
type TransformError struct {
	Kind  TransformKind
	Field string
	Err   error
}

// Error implements the error interface
func (e *TransformError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("mapping: %s transform failed on field %q: %v", e.Kind, e.Field, e.Err)
	}
	return fmt.Sprintf("mapping: %s transform failed: %v", e.Kind, e.Err)
}

// Unwrap returns the underlying cause
func (e *TransformError) Unwrap() error {
	return e.Err
}

// RuleViolation is one failed validation check
type RuleViolation struct {
	// Field is the dot-notation path the violation refers to
	Field string `json:"field"`
	// Message describes the failed check
	Message string `json:"message"`
}

// ValidationError aggregates every violated check for a record into a single
// error instead of failing on the first.
type ValidationError struct {
	Violations []RuleViolation
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	messages := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		messages[i] = fmt.Sprintf("%s: %s", v.Field, v.Message)
	}
	return "mapping: validation failed: " + strings.Join(messages, "; ")
}

// ---------------------------------------------------------------------------
// FieldMapping Value Object
// ---------------------------------------------------------------------------

// FieldMapping is one source-path to target-path correspondence. An optional
// named transform is applied to the resolved value, an optional default fills
// in for absent source values, and IsKey marks the field as usable for
// idempotent upsert matching at the target.
type FieldMapping struct {
	// SourceField is the dot-notation path in the source record
	SourceField string `json:"source_field"`
	// TargetField is the dot-notation path in the target record
	TargetField string `json:"target_field"`
	// Transform is an optional named transform reference (e.g. "uppercase")
	Transform string `json:"transform,omitempty"`
	// DefaultValue is used when the source path is absent
	DefaultValue any `json:"default_value,omitempty"`
	// IsKey marks the field as an upsert matching key
	IsKey bool `json:"is_key"`
}

// Validate checks the field mapping is structurally sound
func (m *FieldMapping) Validate() error {
	if m.SourceField == "" || m.TargetField == "" {
		return ErrMappingNoFieldTargets
	}
	if m.Transform != "" && !IsKnownTransformRef(m.Transform) {
		return fmt.Errorf("%w: %q", ErrUnknownTransformRef, m.Transform)
	}
	return nil
}

// ApplyFieldMappings builds a target record from a source record. For each
// mapping the source value is resolved by nested path; if absent, the default
// value is used when present, otherwise the target key is omitted entirely
// (never written as nil). The named transform, if any, runs before the write.
func ApplyFieldMappings(source Record, mappings []FieldMapping) (Record, error) {
	target := make(Record)
	for _, m := range mappings {
		value, ok := GetPath(source, m.SourceField)
		if !ok {
			if m.DefaultValue == nil {
				continue
			}
			value = m.DefaultValue
		}

		if m.Transform != "" {
			transformed, err := ApplyNamedTransform(m.Transform, value)
			if err != nil {
				return nil, &TransformError{Kind: TransformMap, Field: m.SourceField, Err: err}
			}
			value = transformed
		}

		SetPath(target, m.TargetField, value)
	}
	return target, nil
}

// ---------------------------------------------------------------------------
// ValidationRule Value Object
// ---------------------------------------------------------------------------

// RuleType is the kind of a standalone validation rule
type RuleType string

const (
	RuleRequired RuleType = "required"
	RuleFormat   RuleType = "format"
	RuleRange    RuleType = "range"
	RuleCustom   RuleType = "custom"
)

// IsValid returns true if the rule type is valid
func (t RuleType) IsValid() bool {
	switch t {
	case RuleRequired, RuleFormat, RuleRange, RuleCustom:
		return true
	default:
		return false
	}
}

// RuleConfig carries the variant-specific settings of a validation rule
type RuleConfig struct {
	// Format names the built-in format for format rules ("email", "phone")
	Format string `json:"format,omitempty"`
	// Min is the inclusive lower bound for range rules
	Min *float64 `json:"min,omitempty"`
	// Max is the inclusive upper bound for range rules
	Max *float64 `json:"max,omitempty"`
	// Check is the caller-supplied predicate for custom rules
	Check func(value any) error `json:"-"`
}

// ValidationRule checks one field of a record
type ValidationRule struct {
	// Field is the dot-notation path to validate
	Field string `json:"field"`
	// Type selects the rule variant
	Type RuleType `json:"type"`
	// Config holds variant-specific settings
	Config RuleConfig `json:"config"`
	// ErrorMessage overrides the default violation message when set
	ErrorMessage string `json:"error_message,omitempty"`
}

// ---------------------------------------------------------------------------
// DataMapping Aggregate
// ---------------------------------------------------------------------------

// DataMapping is the full field-correspondence, transform and validation
// configuration for moving one resource type through a connector. Mappings
// are versioned by replacement: editing creates a new version and keeps the
// old one so historical sync runs stay auditable.
type DataMapping struct {
	// ID is the unique identifier of this mapping version
	ID uuid.UUID
	// OrgID is the organization this mapping belongs to
	OrgID uuid.UUID
	// ConnectorID is the connector this mapping applies to
	ConnectorID uuid.UUID
	// Resource is the logical entity type this mapping moves (e.g. "contacts")
	Resource string
	// Version is the replacement version number, starting at 1
	Version int
	// FieldMappings is the ordered list of field correspondences
	FieldMappings []FieldMapping
	// Transforms is the ordered transform pipeline
	Transforms []TransformOperation
	// Rules are the standalone validation rules applied before sync
	Rules []ValidationRule
	// SmartCode is the audit classification tag
	SmartCode shared.SmartCode
	// CreatedAt is when this version was created
	CreatedAt time.Time
}

// NewDataMapping creates version 1 of a mapping
func NewDataMapping(orgID, connectorID uuid.UUID, resource string, fieldMappings []FieldMapping) (*DataMapping, error) {
	if orgID == uuid.Nil {
		return nil, ErrMappingInvalidOrgID
	}
	if connectorID == uuid.Nil {
		return nil, ErrMappingInvalidConnID
	}
	if strings.TrimSpace(resource) == "" {
		return nil, ErrMappingEmptyResource
	}
	for i := range fieldMappings {
		if err := fieldMappings[i].Validate(); err != nil {
			return nil, err
		}
	}

	return &DataMapping{
		ID:            uuid.New(),
		OrgID:         orgID,
		ConnectorID:   connectorID,
		Resource:      resource,
		Version:       1,
		FieldMappings: fieldMappings,
		SmartCode:     shared.NewSmartCode("SYNC", "CONNECTOR", "MAPPING", 1),
		CreatedAt:     time.Now(),
	}, nil
}

// NextVersion builds the replacement version of this mapping with new
// contents. The receiver is left untouched.
func (m *DataMapping) NextVersion(fieldMappings []FieldMapping, transforms []TransformOperation, rules []ValidationRule) (*DataMapping, error) {
	for i := range fieldMappings {
		if err := fieldMappings[i].Validate(); err != nil {
			return nil, err
		}
	}
	version := m.Version + 1
	return &DataMapping{
		ID:            uuid.New(),
		OrgID:         m.OrgID,
		ConnectorID:   m.ConnectorID,
		Resource:      m.Resource,
		Version:       version,
		FieldMappings: fieldMappings,
		Transforms:    transforms,
		Rules:         rules,
		SmartCode:     shared.NewSmartCode("SYNC", "CONNECTOR", "MAPPING", version),
		CreatedAt:     time.Now(),
	}, nil
}

// KeyFields returns the target paths of all upsert-key field mappings
func (m *DataMapping) KeyFields() []string {
	var keys []string
	for _, fm := range m.FieldMappings {
		if fm.IsKey {
			keys = append(keys, fm.TargetField)
		}
	}
	return keys
}

// ---------------------------------------------------------------------------
// Repository Interface
// ---------------------------------------------------------------------------

// Repository defines the interface for data mapping persistence
type Repository interface {
	// Save persists a mapping version
	Save(ctx context.Context, mapping *DataMapping) error

	// FindByID finds a mapping version by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*DataMapping, error)

	// FindCurrent finds the highest version for a connector and resource
	FindCurrent(ctx context.Context, orgID, connectorID uuid.UUID, resource string) (*DataMapping, error)

	// FindAll lists the current mapping versions for an organization
	FindAll(ctx context.Context, orgID uuid.UUID) ([]DataMapping, error)

	// FindVersions lists all versions for a connector and resource, newest first
	FindVersions(ctx context.Context, orgID, connectorID uuid.UUID, resource string) ([]DataMapping, error)
}
