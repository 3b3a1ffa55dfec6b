package handler

import (
	"github.com/gin-gonic/gin"

	connectorapp "github.com/syncbridge/backend/internal/application/connector"
	connectordomain "github.com/syncbridge/backend/internal/domain/connector"
	"github.com/syncbridge/backend/internal/interfaces/http/dto"
)

// RegistryHandler serves the vendor catalog and connector registry endpoints
type RegistryHandler struct {
	BaseHandler
	service *connectorapp.RegistryService
}

// NewRegistryHandler creates a new RegistryHandler
func NewRegistryHandler(service *connectorapp.RegistryService) *RegistryHandler {
	return &RegistryHandler{service: service}
}

// RegisterRoutes registers vendor and connector routes
func (h *RegistryHandler) RegisterRoutes(rg *gin.RouterGroup) {
	vendors := rg.Group("/vendors")
	{
		vendors.GET("", h.ListVendors)
		vendors.GET("/:code", h.GetVendor)
		vendors.POST("/:code/validate", h.ValidateConfig)
	}

	connectors := rg.Group("/connectors")
	{
		connectors.POST("", h.CreateConnector)
		connectors.GET("", h.ListConnectors)
		connectors.GET("/:id", h.GetConnector)
		connectors.POST("/:id/enable", h.EnableConnector)
		connectors.POST("/:id/disable", h.DisableConnector)
	}
}

// ListVendors returns the static vendor catalog
func (h *RegistryHandler) ListVendors(c *gin.Context) {
	descriptors := h.service.ListVendors()
	vendors := make([]dto.VendorResponse, len(descriptors))
	for i, d := range descriptors {
		vendors[i] = dto.VendorResponseFromDomain(d)
	}
	h.List(c, vendors, len(vendors))
}

// GetVendor returns one vendor descriptor
func (h *RegistryHandler) GetVendor(c *gin.Context) {
	descriptor, err := h.service.GetVendorConfig(connectordomain.VendorCode(c.Param("code")))
	if err != nil {
		h.DomainError(c, err)
		return
	}
	h.Success(c, dto.VendorResponseFromDomain(descriptor))
}

// ValidateConfig runs a pre-flight config check without persisting anything
func (h *RegistryHandler) ValidateConfig(c *gin.Context) {
	var req dto.ValidateConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	vendor := connectordomain.VendorCode(c.Param("code"))
	if !vendor.IsValid() {
		h.DomainError(c, connectordomain.ErrUnknownVendor)
		return
	}

	missing := h.service.ValidateConfig(vendor, req.Config)
	h.Success(c, dto.ValidateConfigResponse{
		Valid:         len(missing) == 0,
		MissingFields: missing,
	})
}

// CreateConnector validates and registers a connector
func (h *RegistryHandler) CreateConnector(c *gin.Context) {
	orgID, ok := getOrgID(c)
	if !ok {
		h.Unauthorized(c, "organization context required")
		return
	}

	var req dto.CreateConnectorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	conn, err := h.service.CreateConnector(c.Request.Context(), orgID,
		connectordomain.VendorCode(req.Vendor), req.Name, req.Config)
	if err != nil {
		h.DomainError(c, err)
		return
	}
	h.Created(c, dto.ConnectorResponseFromDomain(conn))
}

// ListConnectors lists the organization's connectors
func (h *RegistryHandler) ListConnectors(c *gin.Context) {
	orgID, ok := getOrgID(c)
	if !ok {
		h.Unauthorized(c, "organization context required")
		return
	}

	conns, err := h.service.ListConnectors(c.Request.Context(), orgID)
	if err != nil {
		h.DomainError(c, err)
		return
	}

	out := make([]dto.ConnectorResponse, len(conns))
	for i := range conns {
		out[i] = dto.ConnectorResponseFromDomain(&conns[i])
	}
	h.List(c, out, len(out))
}

// GetConnector returns one connector
func (h *RegistryHandler) GetConnector(c *gin.Context) {
	orgID, ok := getOrgID(c)
	if !ok {
		h.Unauthorized(c, "organization context required")
		return
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "invalid connector ID")
		return
	}

	conn, err := h.service.GetConnector(c.Request.Context(), orgID, id)
	if err != nil {
		h.DomainError(c, err)
		return
	}
	h.Success(c, dto.ConnectorResponseFromDomain(conn))
}

// EnableConnector reactivates a connector
func (h *RegistryHandler) EnableConnector(c *gin.Context) {
	h.setStatus(c, true)
}

// DisableConnector pauses a connector; running jobs keep their in-flight run
func (h *RegistryHandler) DisableConnector(c *gin.Context) {
	h.setStatus(c, false)
}

func (h *RegistryHandler) setStatus(c *gin.Context, enabled bool) {
	orgID, ok := getOrgID(c)
	if !ok {
		h.Unauthorized(c, "organization context required")
		return
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "invalid connector ID")
		return
	}

	conn, err := h.service.SetStatus(c.Request.Context(), orgID, id, enabled)
	if err != nil {
		h.DomainError(c, err)
		return
	}
	h.Success(c, dto.ConnectorResponseFromDomain(conn))
}
