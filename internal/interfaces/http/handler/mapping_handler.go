package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	mappingapp "github.com/syncbridge/backend/internal/application/mapping"
	"github.com/syncbridge/backend/internal/interfaces/http/dto"
)

// MappingHandler serves the mapping engine endpoints
type MappingHandler struct {
	BaseHandler
	service *mappingapp.Service
}

// NewMappingHandler creates a new MappingHandler
func NewMappingHandler(service *mappingapp.Service) *MappingHandler {
	return &MappingHandler{service: service}
}

// RegisterRoutes registers mapping routes
func (h *MappingHandler) RegisterRoutes(rg *gin.RouterGroup) {
	mappings := rg.Group("/mappings")
	{
		mappings.POST("", h.CreateMapping)
		mappings.GET("", h.ListMappings)
		mappings.POST("/auto-generate", h.AutoGenerate)
		mappings.GET("/versions", h.ListVersions)
		mappings.GET("/:id", h.GetMapping)
		mappings.POST("/:id/preview", h.PreviewTransform)
		mappings.POST("/:id/validate", h.ValidateRecord)
	}
}

// CreateMapping creates a mapping, or a replacement version when one
// already exists for the connector and resource
func (h *MappingHandler) CreateMapping(c *gin.Context) {
	orgID, ok := getOrgID(c)
	if !ok {
		h.Unauthorized(c, "organization context required")
		return
	}

	var req dto.CreateMappingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	connectorID, err := uuid.Parse(req.ConnectorID)
	if err != nil {
		h.BadRequest(c, "invalid connector ID")
		return
	}

	m, err := h.service.CreateMapping(c.Request.Context(), orgID, connectorID,
		req.Resource, req.FieldMappings, req.Transforms, req.Rules)
	if err != nil {
		h.DomainError(c, err)
		return
	}
	h.Created(c, dto.MappingResponseFromDomain(m))
}

// ListMappings lists the current version of every mapping in the organization
func (h *MappingHandler) ListMappings(c *gin.Context) {
	orgID, ok := getOrgID(c)
	if !ok {
		h.Unauthorized(c, "organization context required")
		return
	}

	mappings, err := h.service.ListMappings(c.Request.Context(), orgID)
	if err != nil {
		h.DomainError(c, err)
		return
	}

	out := make([]dto.MappingResponse, len(mappings))
	for i := range mappings {
		out[i] = dto.MappingResponseFromDomain(&mappings[i])
	}
	h.List(c, out, len(out))
}

// ListVersions lists every version for a connector and resource, newest first
func (h *MappingHandler) ListVersions(c *gin.Context) {
	orgID, ok := getOrgID(c)
	if !ok {
		h.Unauthorized(c, "organization context required")
		return
	}
	connectorID, err := uuid.Parse(c.Query("connector_id"))
	if err != nil {
		h.BadRequest(c, "connector_id query parameter is required")
		return
	}
	resource := c.Query("resource")
	if resource == "" {
		h.BadRequest(c, "resource query parameter is required")
		return
	}

	versions, err := h.service.ListVersions(c.Request.Context(), orgID, connectorID, resource)
	if err != nil {
		h.DomainError(c, err)
		return
	}

	out := make([]dto.MappingResponse, len(versions))
	for i := range versions {
		out[i] = dto.MappingResponseFromDomain(&versions[i])
	}
	h.List(c, out, len(out))
}

// GetMapping returns one mapping version
func (h *MappingHandler) GetMapping(c *gin.Context) {
	orgID, ok := getOrgID(c)
	if !ok {
		h.Unauthorized(c, "organization context required")
		return
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "invalid mapping ID")
		return
	}

	m, err := h.service.GetMapping(c.Request.Context(), orgID, id)
	if err != nil {
		h.DomainError(c, err)
		return
	}
	h.Success(c, dto.MappingResponseFromDomain(m))
}

// AutoGenerate infers field correspondences between two schemas without
// persisting anything
func (h *MappingHandler) AutoGenerate(c *gin.Context) {
	var req dto.AutoGenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	generated := h.service.AutoGenerate(req.SourceFields, req.TargetFields)
	h.Success(c, generated)
}

// PreviewTransform runs a sample record through a mapping
func (h *MappingHandler) PreviewTransform(c *gin.Context) {
	orgID, ok := getOrgID(c)
	if !ok {
		h.Unauthorized(c, "organization context required")
		return
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "invalid mapping ID")
		return
	}

	var req dto.RecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.PreviewTransform(c.Request.Context(), orgID, id, req.Record)
	if err != nil {
		h.DomainError(c, err)
		return
	}
	h.Success(c, dto.PreviewResponse{Result: result, Filtered: result == nil})
}

// ValidateRecord evaluates a mapping's validation rules against a record
func (h *MappingHandler) ValidateRecord(c *gin.Context) {
	orgID, ok := getOrgID(c)
	if !ok {
		h.Unauthorized(c, "organization context required")
		return
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "invalid mapping ID")
		return
	}

	var req dto.RecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.ValidateRecord(c.Request.Context(), orgID, id, req.Record)
	if err != nil {
		h.DomainError(c, err)
		return
	}
	h.Success(c, result)
}
