package dto

import (
	"sort"
	"time"

	"github.com/syncbridge/backend/internal/domain/connector"
)

// CreateConnectorRequest is the payload for registering a connector
type CreateConnectorRequest struct {
	Vendor string            `json:"vendor" binding:"required"`
	Name   string            `json:"name" binding:"required,max=200"`
	Config map[string]string `json:"config" binding:"required"`
}

// ValidateConfigRequest is the payload for a pre-flight config check
type ValidateConfigRequest struct {
	Config map[string]string `json:"config" binding:"required"`
}

// ValidateConfigResponse reports the result of a pre-flight config check
type ValidateConfigResponse struct {
	Valid         bool     `json:"valid"`
	MissingFields []string `json:"missing_fields,omitempty"`
}

// VendorResponse describes one supported vendor
type VendorResponse struct {
	Code            string   `json:"code"`
	Name            string   `json:"name"`
	AuthType        string   `json:"auth_type"`
	RequiredFields  []string `json:"required_fields"`
	DefaultEndpoint string   `json:"default_endpoint"`
	Capabilities    []string `json:"capabilities"`
}

// VendorResponseFromDomain converts a vendor descriptor to its response form
func VendorResponseFromDomain(d connector.VendorDescriptor) VendorResponse {
	capabilities := make([]string, len(d.Capabilities))
	for i, c := range d.Capabilities {
		capabilities[i] = c.String()
	}
	return VendorResponse{
		Code:            d.Code.String(),
		Name:            d.Name,
		AuthType:        string(d.AuthType),
		RequiredFields:  d.RequiredFields,
		DefaultEndpoint: d.DefaultEndpoint,
		Capabilities:    capabilities,
	}
}

// ConnectorResponse is the API form of a registered connector. The stored
// config is never echoed back; only its key names are exposed.
type ConnectorResponse struct {
	ID         string    `json:"id"`
	Vendor     string    `json:"vendor"`
	Name       string    `json:"name"`
	Status     string    `json:"status"`
	ConfigKeys []string  `json:"config_keys"`
	SmartCode  string    `json:"smart_code"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ConnectorResponseFromDomain converts a connector to its response form
func ConnectorResponseFromDomain(c *connector.Connector) ConnectorResponse {
	keys := make([]string, 0, len(c.Config))
	for k := range c.Config {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return ConnectorResponse{
		ID:         c.ID.String(),
		Vendor:     c.Vendor.String(),
		Name:       c.Name,
		Status:     string(c.Status),
		ConfigKeys: keys,
		SmartCode:  string(c.SmartCode),
		CreatedAt:  c.CreatedAt,
		UpdatedAt:  c.UpdatedAt,
	}
}
