package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	connectordomain "github.com/syncbridge/backend/internal/domain/connector"
	"github.com/syncbridge/backend/internal/domain/mapping"
	syncdomain "github.com/syncbridge/backend/internal/domain/sync"
	"github.com/syncbridge/backend/internal/interfaces/http/dto"
	"github.com/syncbridge/backend/internal/interfaces/http/middleware"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// getOrgID extracts the organization ID set by the OrgContext middleware
func getOrgID(c *gin.Context) (uuid.UUID, bool) {
	return middleware.GetOrgID(c)
}

// parseIDParam parses a uuid path parameter
func parseIDParam(c *gin.Context, name string) (uuid.UUID, error) {
	return uuid.Parse(c.Param(name))
}

// parseUUIDs parses several uuid strings, failing on the first invalid one
func parseUUIDs(values ...string) ([]uuid.UUID, error) {
	out := make([]uuid.UUID, len(values))
	for i, v := range values {
		id, err := uuid.Parse(v)
		if err != nil {
			return nil, err
		}
		out[i] = id
	}
	return out, nil
}

// Success sends a 200 success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// List sends a 200 success response with a total count
func (h *BaseHandler) List(c *gin.Context, data any, total int) {
	c.JSON(http.StatusOK, dto.NewListResponse(data, total))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// Error sends an error response, deriving the status from the code
func (h *BaseHandler) Error(c *gin.Context, code, message string) {
	c.JSON(dto.GetHTTPStatus(code), dto.NewErrorResponse(code, message, middleware.GetRequestID(c)))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, dto.ErrCodeBadRequest, message)
}

// Unauthorized sends a 401 unauthorized response
func (h *BaseHandler) Unauthorized(c *gin.Context, message string) {
	h.Error(c, dto.ErrCodeUnauthorized, message)
}

// DomainError maps a domain error to its API error code and responds.
// Configuration errors additionally carry the missing field list.
func (h *BaseHandler) DomainError(c *gin.Context, err error) {
	var configErr *connectordomain.ConfigurationError
	if errors.As(err, &configErr) {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponseWithDetails(
			dto.ErrCodeValidation,
			configErr.Error(),
			middleware.GetRequestID(c),
			configErr.MissingFields,
		))
		return
	}

	h.Error(c, codeForDomainError(err), err.Error())
}

func codeForDomainError(err error) string {
	var transformErr *mapping.TransformError
	if errors.As(err, &transformErr) {
		return dto.ErrCodeInvalidState
	}
	var validationErr *mapping.ValidationError
	if errors.As(err, &validationErr) {
		return dto.ErrCodeValidation
	}

	switch {
	case errors.Is(err, connectordomain.ErrConnectorNotFound),
		errors.Is(err, mapping.ErrMappingNotFound),
		errors.Is(err, syncdomain.ErrJobNotFound),
		errors.Is(err, syncdomain.ErrRunNotFound):
		return dto.ErrCodeNotFound
	case errors.Is(err, syncdomain.ErrJobAlreadyRunning):
		return dto.ErrCodeConflict
	case errors.Is(err, connectordomain.ErrConnectorDisabled),
		errors.Is(err, syncdomain.ErrJobInactive):
		return dto.ErrCodeInvalidState
	case errors.Is(err, connectordomain.ErrCapabilityNotDeclared):
		return dto.ErrCodeCapability
	case errors.Is(err, connectordomain.ErrUnknownVendor),
		errors.Is(err, connectordomain.ErrInvalidConnectorName),
		errors.Is(err, connectordomain.ErrInvalidOrgID),
		errors.Is(err, mapping.ErrMappingInvalidOrgID),
		errors.Is(err, mapping.ErrMappingInvalidConnID),
		errors.Is(err, mapping.ErrMappingEmptyResource),
		errors.Is(err, mapping.ErrMappingNoFieldTargets),
		errors.Is(err, mapping.ErrUnknownTransformRef),
		errors.Is(err, syncdomain.ErrJobInvalidName),
		errors.Is(err, syncdomain.ErrJobInvalidConnectors),
		errors.Is(err, syncdomain.ErrJobInvalidMapping),
		errors.Is(err, syncdomain.ErrInvalidSyncType),
		errors.Is(err, syncdomain.ErrInvalidDirection),
		errors.Is(err, syncdomain.ErrInvalidSchedule):
		return dto.ErrCodeBadRequest
	default:
		return dto.ErrCodeInternal
	}
}
