package connector

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/syncbridge/backend/internal/domain/shared"
)

// ---------------------------------------------------------------------------
// Connector Errors
// ---------------------------------------------------------------------------

var (
	ErrConnectorNotFound     = errors.New("connector: connector not found")
	ErrConnectorDisabled     = errors.New("connector: connector is disabled")
	ErrInvalidOrgID          = errors.New("connector: invalid organization ID")
	ErrInvalidConnectorName  = errors.New("connector: connector name is required")
	ErrCapabilityNotDeclared = errors.New("connector: resource type not in vendor capabilities")
)

// ConfigurationError reports every missing required config field at once so
// operators can fix the whole configuration in one pass.
type ConfigurationError struct {
	Vendor        VendorCode
	MissingFields []string
}

// Error implements the error interface
func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("connector: %s configuration missing required fields: %s",
		e.Vendor, strings.Join(e.MissingFields, ", "))
}

// ---------------------------------------------------------------------------
// ConnectorStatus
// ---------------------------------------------------------------------------

// ConnectorStatus represents the lifecycle status of a connector
type ConnectorStatus string

const (
	// ConnectorStatusActive indicates the connector can be used by sync jobs
	ConnectorStatusActive ConnectorStatus = "active"
	// ConnectorStatusDisabled indicates the connector is switched off
	ConnectorStatusDisabled ConnectorStatus = "disabled"
)

// IsValid returns true if the status is valid
func (s ConnectorStatus) IsValid() bool {
	switch s {
	case ConnectorStatusActive, ConnectorStatusDisabled:
		return true
	default:
		return false
	}
}

// String returns the string representation of ConnectorStatus
func (s ConnectorStatus) String() string {
	return string(s)
}

// ---------------------------------------------------------------------------
// Connector Aggregate
// ---------------------------------------------------------------------------

// Connector represents one configured integration endpoint for an external
// vendor. Connectors are immutable after creation except for their status.
type Connector struct {
	// ID is the unique identifier of this connector
	ID uuid.UUID
	// OrgID is the organization this connector belongs to
	OrgID uuid.UUID
	// Vendor identifies which external vendor this connector targets
	Vendor VendorCode
	// Name is the operator-assigned display name
	Name string
	// Config holds the vendor connection configuration (secrets included)
	Config map[string]string
	// Status is active or disabled
	Status ConnectorStatus
	// SmartCode is the audit classification tag
	SmartCode shared.SmartCode
	// CreatedAt is when this connector was created
	CreatedAt time.Time
	// UpdatedAt is when this connector was last updated
	UpdatedAt time.Time
}

// NewConnector validates the config against the vendor's required fields and
// builds a new active connector. All missing fields are reported together in
// a single ConfigurationError.
func NewConnector(orgID uuid.UUID, vendor VendorCode, name string, config map[string]string) (*Connector, error) {
	if orgID == uuid.Nil {
		return nil, ErrInvalidOrgID
	}
	if strings.TrimSpace(name) == "" {
		return nil, ErrInvalidConnectorName
	}
	if !vendor.IsValid() {
		return nil, ErrUnknownVendor
	}
	if missing := ValidateConfig(vendor, config); len(missing) > 0 {
		return nil, &ConfigurationError{Vendor: vendor, MissingFields: missing}
	}

	now := time.Now()
	return &Connector{
		ID:        uuid.New(),
		OrgID:     orgID,
		Vendor:    vendor,
		Name:      name,
		Config:    config,
		Status:    ConnectorStatusActive,
		SmartCode: shared.NewSmartCode(vendor.String(), "CONNECTOR", "CONFIG", 1),
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// ValidateConfig checks a configuration against the vendor's declared
// required fields without persisting anything. It returns all missing field
// names, sorted, for pre-flight checks.
func ValidateConfig(vendor VendorCode, config map[string]string) []string {
	descriptor, err := GetVendorConfig(vendor)
	if err != nil {
		return []string{fmt.Sprintf("unknown vendor %q", vendor)}
	}

	var missing []string
	for _, field := range descriptor.RequiredFields {
		if strings.TrimSpace(config[field]) == "" {
			missing = append(missing, field)
		}
	}
	sort.Strings(missing)
	return missing
}

// Descriptor returns the vendor descriptor for this connector
func (c *Connector) Descriptor() (VendorDescriptor, error) {
	return GetVendorConfig(c.Vendor)
}

// HasCapability returns true if this connector's vendor supports the resource
func (c *Connector) HasCapability(resource ResourceType) bool {
	descriptor, err := c.Descriptor()
	if err != nil {
		return false
	}
	return descriptor.HasCapability(resource)
}

// IsActive returns true if the connector can be used by sync jobs
func (c *Connector) IsActive() bool {
	return c.Status == ConnectorStatusActive
}

// Enable activates the connector
func (c *Connector) Enable() {
	c.Status = ConnectorStatusActive
	c.UpdatedAt = time.Now()
}

// Disable deactivates the connector
func (c *Connector) Disable() {
	c.Status = ConnectorStatusDisabled
	c.UpdatedAt = time.Now()
}

// ---------------------------------------------------------------------------
// Repository Interface
// ---------------------------------------------------------------------------

// Repository defines the interface for connector persistence
type Repository interface {
	// Save creates or updates a connector
	Save(ctx context.Context, conn *Connector) error

	// FindByID finds a connector by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Connector, error)

	// FindAll lists all connectors for an organization
	FindAll(ctx context.Context, orgID uuid.UUID) ([]Connector, error)

	// Delete removes a connector
	Delete(ctx context.Context, id uuid.UUID) error
}
