package connector

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/syncbridge/backend/internal/domain/connector"
)

// RegistryService implements the connector registry use cases: validating and
// storing per-vendor connection configuration and serving capability metadata
// to the UI layer and the sync engine.
type RegistryService struct {
	repo   connector.Repository
	logger *zap.Logger
}

// NewRegistryService creates a new RegistryService
func NewRegistryService(repo connector.Repository, logger *zap.Logger) *RegistryService {
	return &RegistryService{
		repo:   repo,
		logger: logger,
	}
}

// CreateConnector validates the config against the vendor's required fields
// and persists the connector. A ConfigurationError lists every missing field;
// nothing is persisted on validation failure.
func (s *RegistryService) CreateConnector(ctx context.Context, orgID uuid.UUID, vendor connector.VendorCode, name string, config map[string]string) (*connector.Connector, error) {
	conn, err := connector.NewConnector(orgID, vendor, name, config)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Save(ctx, conn); err != nil {
		return nil, err
	}

	s.logger.Info("Connector created",
		zap.String("connector_id", conn.ID.String()),
		zap.String("vendor", conn.Vendor.String()),
		zap.String("name", conn.Name),
	)
	return conn, nil
}

// GetVendorConfig returns the static descriptor for a vendor
func (s *RegistryService) GetVendorConfig(vendor connector.VendorCode) (connector.VendorDescriptor, error) {
	return connector.GetVendorConfig(vendor)
}

// ListVendors lists all supported vendor descriptors
func (s *RegistryService) ListVendors() []connector.VendorDescriptor {
	return connector.ListVendors()
}

// ValidateConfig performs a pure pre-flight check and returns all missing
// required fields without persisting anything
func (s *RegistryService) ValidateConfig(vendor connector.VendorCode, config map[string]string) []string {
	return connector.ValidateConfig(vendor, config)
}

// GetConnector retrieves a connector scoped to an organization
func (s *RegistryService) GetConnector(ctx context.Context, orgID, id uuid.UUID) (*connector.Connector, error) {
	conn, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if conn.OrgID != orgID {
		return nil, connector.ErrConnectorNotFound
	}
	return conn, nil
}

// ListConnectors lists all connectors for an organization
func (s *RegistryService) ListConnectors(ctx context.Context, orgID uuid.UUID) ([]connector.Connector, error) {
	return s.repo.FindAll(ctx, orgID)
}

// SetStatus enables or disables a connector
func (s *RegistryService) SetStatus(ctx context.Context, orgID, id uuid.UUID, enabled bool) (*connector.Connector, error) {
	conn, err := s.GetConnector(ctx, orgID, id)
	if err != nil {
		return nil, err
	}

	if enabled {
		conn.Enable()
	} else {
		conn.Disable()
	}
	if err := s.repo.Save(ctx, conn); err != nil {
		return nil, err
	}

	s.logger.Info("Connector status changed",
		zap.String("connector_id", conn.ID.String()),
		zap.String("status", conn.Status.String()),
	)
	return conn, nil
}
