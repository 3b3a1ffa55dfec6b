package dto

import (
	"time"

	"github.com/syncbridge/backend/internal/domain/mapping"
)

// CreateMappingRequest is the payload for creating a mapping or a new
// version of an existing one. Nested definitions use the domain wire
// format directly.
type CreateMappingRequest struct {
	ConnectorID   string                       `json:"connector_id" binding:"required,uuid"`
	Resource      string                       `json:"resource" binding:"required,resourcetype"`
	FieldMappings []mapping.FieldMapping       `json:"field_mappings" binding:"required,min=1"`
	Transforms    []mapping.TransformOperation `json:"transforms"`
	Rules         []mapping.ValidationRule     `json:"rules"`
}

// AutoGenerateRequest carries the two schemas to infer correspondences from
type AutoGenerateRequest struct {
	SourceFields []mapping.FieldDescriptor `json:"source_fields" binding:"required,min=1"`
	TargetFields []mapping.FieldDescriptor `json:"target_fields" binding:"required,min=1"`
}

// RecordRequest carries one sample record for preview or validation
type RecordRequest struct {
	Record mapping.Record `json:"record" binding:"required"`
}

// PreviewResponse is the outcome of running a record through a mapping.
// Filtered is true when the transform pipeline dropped the record; Result
// is absent in that case.
type PreviewResponse struct {
	Result   any  `json:"result,omitempty"`
	Filtered bool `json:"filtered"`
}

// MappingResponse is the API form of one mapping version
type MappingResponse struct {
	ID            string                       `json:"id"`
	ConnectorID   string                       `json:"connector_id"`
	Resource      string                       `json:"resource"`
	Version       int                          `json:"version"`
	FieldMappings []mapping.FieldMapping       `json:"field_mappings"`
	Transforms    []mapping.TransformOperation `json:"transforms,omitempty"`
	Rules         []mapping.ValidationRule     `json:"rules,omitempty"`
	SmartCode     string                       `json:"smart_code"`
	CreatedAt     time.Time                    `json:"created_at"`
}

// MappingResponseFromDomain converts a mapping to its response form
func MappingResponseFromDomain(m *mapping.DataMapping) MappingResponse {
	return MappingResponse{
		ID:            m.ID.String(),
		ConnectorID:   m.ConnectorID.String(),
		Resource:      m.Resource,
		Version:       m.Version,
		FieldMappings: m.FieldMappings,
		Transforms:    m.Transforms,
		Rules:         m.Rules,
		SmartCode:     string(m.SmartCode),
		CreatedAt:     m.CreatedAt,
	}
}
