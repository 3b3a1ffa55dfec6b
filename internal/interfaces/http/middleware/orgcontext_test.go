package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syncbridge/backend/internal/infrastructure/logger"
)

type orgCapture struct {
	orgID    uuid.UUID
	ctxOrgID string
}

func orgTestEngine() (*gin.Engine, *orgCapture) {
	captured := &orgCapture{}
	engine := gin.New()
	engine.Use(RequestID(), OrgContext())
	engine.GET("/ping", func(c *gin.Context) {
		orgID, ok := GetOrgID(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		captured.orgID = orgID
		captured.ctxOrgID = logger.GetOrgID(c.Request.Context())
		c.Status(http.StatusOK)
	})
	return engine, captured
}

func TestOrgContext(t *testing.T) {
	t.Run("forwards a valid org ID", func(t *testing.T) {
		engine, captured := orgTestEngine()
		orgID := uuid.New()

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set(OrgHeaderKey, orgID.String())
		engine.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, orgID, captured.orgID)
		assert.Equal(t, orgID.String(), captured.ctxOrgID,
			"downstream handlers should see the org ID on the request context")
	})

	t.Run("rejects a missing header", func(t *testing.T) {
		engine, _ := orgTestEngine()

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "ERR_UNAUTHORIZED")
	})

	t.Run("rejects a malformed header", func(t *testing.T) {
		engine, _ := orgTestEngine()

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set(OrgHeaderKey, "not-a-uuid")
		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("rejects the nil UUID", func(t *testing.T) {
		engine, _ := orgTestEngine()

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set(OrgHeaderKey, uuid.Nil.String())
		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}
