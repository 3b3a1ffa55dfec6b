package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/syncbridge/backend/internal/infrastructure/logger"
	"github.com/syncbridge/backend/internal/interfaces/http/dto"
)

const (
	// OrgIDKey is the gin context key holding the organization ID
	OrgIDKey = "org_id"
	// OrgHeaderKey is the header carrying the organization ID
	OrgHeaderKey = "X-Org-ID"
)

// OrgContext extracts the organization ID from the X-Org-ID header and
// rejects requests without one. Every registry, mapping and sync route is
// org-scoped, so the middleware runs before all of them.
func OrgContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(OrgHeaderKey)
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponse(
				dto.ErrCodeUnauthorized,
				"missing "+OrgHeaderKey+" header",
				GetRequestID(c),
			))
			return
		}

		orgID, err := uuid.Parse(raw)
		if err != nil || orgID == uuid.Nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponse(
				dto.ErrCodeUnauthorized,
				"invalid "+OrgHeaderKey+" header",
				GetRequestID(c),
			))
			return
		}

		c.Set(OrgIDKey, orgID)
		ctx, _ := logger.WithOrgID(c.Request.Context(), logger.FromContext(c.Request.Context()), orgID.String())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// GetOrgID returns the organization ID stored by the OrgContext middleware
func GetOrgID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(OrgIDKey)
	if !ok {
		return uuid.Nil, false
	}
	orgID, ok := v.(uuid.UUID)
	return orgID, ok
}
