package mapping

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	connectordomain "github.com/syncbridge/backend/internal/domain/connector"
	"github.com/syncbridge/backend/internal/domain/mapping"
)

// Service implements the mapping engine use cases: versioned mapping
// configuration, auto-generation of field correspondences, and record-level
// preview/validation for operators building a mapping.
type Service struct {
	mappingRepo   mapping.Repository
	connectorRepo connectordomain.Repository
	logger        *zap.Logger
}

// NewService creates a new mapping Service
func NewService(mappingRepo mapping.Repository, connectorRepo connectordomain.Repository, logger *zap.Logger) *Service {
	return &Service{
		mappingRepo:   mappingRepo,
		connectorRepo: connectorRepo,
		logger:        logger,
	}
}

// CreateMapping creates a mapping for a connector and resource. If a mapping
// already exists for the pair, a replacement version is created instead of
// mutating in place, keeping historical sync runs auditable.
func (s *Service) CreateMapping(
	ctx context.Context,
	orgID, connectorID uuid.UUID,
	resource string,
	fieldMappings []mapping.FieldMapping,
	transforms []mapping.TransformOperation,
	rules []mapping.ValidationRule,
) (*mapping.DataMapping, error) {
	conn, err := s.connectorRepo.FindByID(ctx, connectorID)
	if err != nil {
		return nil, err
	}
	if conn.OrgID != orgID {
		return nil, connectordomain.ErrConnectorNotFound
	}
	if !conn.HasCapability(connectordomain.ResourceType(resource)) {
		return nil, connectordomain.ErrCapabilityNotDeclared
	}

	current, err := s.mappingRepo.FindCurrent(ctx, orgID, connectorID, resource)
	switch {
	case err == nil:
		next, err := current.NextVersion(fieldMappings, transforms, rules)
		if err != nil {
			return nil, err
		}
		if err := s.mappingRepo.Save(ctx, next); err != nil {
			return nil, err
		}
		s.logger.Info("Mapping version created",
			zap.String("mapping_id", next.ID.String()),
			zap.String("resource", next.Resource),
			zap.Int("version", next.Version),
		)
		return next, nil
	case errors.Is(err, mapping.ErrMappingNotFound):
		created, err := mapping.NewDataMapping(orgID, connectorID, resource, fieldMappings)
		if err != nil {
			return nil, err
		}
		created.Transforms = transforms
		created.Rules = rules
		if err := s.mappingRepo.Save(ctx, created); err != nil {
			return nil, err
		}
		s.logger.Info("Mapping created",
			zap.String("mapping_id", created.ID.String()),
			zap.String("resource", created.Resource),
		)
		return created, nil
	default:
		return nil, err
	}
}

// GetMapping retrieves a mapping version scoped to an organization
func (s *Service) GetMapping(ctx context.Context, orgID, id uuid.UUID) (*mapping.DataMapping, error) {
	m, err := s.mappingRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if m.OrgID != orgID {
		return nil, mapping.ErrMappingNotFound
	}
	return m, nil
}

// GetCurrentMapping retrieves the highest mapping version for a connector and resource
func (s *Service) GetCurrentMapping(ctx context.Context, orgID, connectorID uuid.UUID, resource string) (*mapping.DataMapping, error) {
	return s.mappingRepo.FindCurrent(ctx, orgID, connectorID, resource)
}

// ListMappings lists the current mapping versions for an organization
func (s *Service) ListMappings(ctx context.Context, orgID uuid.UUID) ([]mapping.DataMapping, error) {
	return s.mappingRepo.FindAll(ctx, orgID)
}

// ListVersions lists all versions for a connector and resource, newest first
func (s *Service) ListVersions(ctx context.Context, orgID, connectorID uuid.UUID, resource string) ([]mapping.DataMapping, error) {
	return s.mappingRepo.FindVersions(ctx, orgID, connectorID, resource)
}

// AutoGenerate infers field correspondences between a source and target
// schema without persisting anything; the caller reviews and then creates
// the mapping explicitly.
func (s *Service) AutoGenerate(sourceFields, targetFields []mapping.FieldDescriptor) []mapping.FieldMapping {
	return mapping.AutoGenerateMappings(sourceFields, targetFields)
}

// PreviewTransform runs a sample record through a mapping's field
// correspondences and transform pipeline, returning the result or the error
// a sync run would record for it. A nil result with no error means the
// pipeline filtered the record out.
func (s *Service) PreviewTransform(ctx context.Context, orgID, mappingID uuid.UUID, record mapping.Record) (mapping.Record, error) {
	m, err := s.GetMapping(ctx, orgID, mappingID)
	if err != nil {
		return nil, err
	}

	mapped, err := mapping.ApplyFieldMappings(record, m.FieldMappings)
	if err != nil {
		return nil, err
	}

	out, err := mapping.ApplyTransformPipeline(mapped, m.Transforms)
	if err != nil {
		return nil, err
	}
	if out == nil {
		return nil, nil
	}
	result, ok := out.(mapping.Record)
	if !ok {
		return nil, &mapping.TransformError{Kind: mapping.TransformMap,
			Err: errors.New("pipeline produced a non-record value")}
	}
	return result, nil
}

// ValidateRecord evaluates a mapping's standalone rules against a record
func (s *Service) ValidateRecord(ctx context.Context, orgID, mappingID uuid.UUID, record mapping.Record) (mapping.ValidationResult, error) {
	m, err := s.GetMapping(ctx, orgID, mappingID)
	if err != nil {
		return mapping.ValidationResult{}, err
	}
	return mapping.ValidateData(record, m.Rules), nil
}
