package logger

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func accessLogEntry(t *testing.T, recorded *observer.ObservedLogs) observer.LoggedEntry {
	t.Helper()
	for _, entry := range recorded.All() {
		if entry.Message == "request completed" {
			return entry
		}
	}
	t.Fatal("no access log entry recorded")
	return observer.LoggedEntry{}
}

func entryFields(entry observer.LoggedEntry) map[string]zapcore.Field {
	fields := make(map[string]zapcore.Field, len(entry.Context))
	for _, f := range entry.Context {
		fields[f.Key] = f
	}
	return fields
}

func TestAccessLog(t *testing.T) {
	gin.SetMode(gin.TestMode)

	core, recorded := observer.New(zapcore.InfoLevel)
	zapLogger := zap.New(core)

	engine := gin.New()
	engine.Use(AccessLog(zapLogger))
	engine.POST("/api/v1/jobs", func(c *gin.Context) {
		c.JSON(http.StatusCreated, gin.H{"id": "j-1"})
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs?limit=5", nil)
	req.Header.Set("User-Agent", "syncbridge-cli/1.0")
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)

	entry := accessLogEntry(t, recorded)
	assert.Equal(t, zapcore.InfoLevel, entry.Level)

	fields := entryFields(entry)
	assert.Equal(t, "POST", fields["method"].String)
	assert.Equal(t, "/api/v1/jobs", fields["path"].String)
	assert.EqualValues(t, http.StatusCreated, fields["status"].Integer)
	assert.Equal(t, "limit=5", fields["query"].String)
	assert.Equal(t, "syncbridge-cli/1.0", fields["user_agent"].String)
	assert.Contains(t, fields, "latency")
	assert.Contains(t, fields, "client_ip")
	assert.Contains(t, fields, "bytes_out")
}

func TestAccessLog_LevelByStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name     string
		status   int
		expected zapcore.Level
	}{
		{name: "2xx logs info", status: http.StatusOK, expected: zapcore.InfoLevel},
		{name: "4xx logs warn", status: http.StatusConflict, expected: zapcore.WarnLevel},
		{name: "5xx logs error", status: http.StatusBadGateway, expected: zapcore.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, recorded := observer.New(zapcore.InfoLevel)
			zapLogger := zap.New(core)

			engine := gin.New()
			engine.Use(AccessLog(zapLogger))
			engine.GET("/status", func(c *gin.Context) {
				c.Status(tt.status)
			})

			w := httptest.NewRecorder()
			engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/status", nil))

			entry := accessLogEntry(t, recorded)
			assert.Equal(t, tt.expected, entry.Level)
		})
	}
}

func TestAccessLog_PropagatesRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)

	core, recorded := observer.New(zapcore.InfoLevel)
	zapLogger := zap.New(core)

	var ctxRequestID string

	engine := gin.New()
	engine.Use(func(c *gin.Context) {
		c.Set("request_id", "req-42")
		c.Next()
	})
	engine.Use(AccessLog(zapLogger))
	engine.GET("/ping", func(c *gin.Context) {
		ctxRequestID = GetRequestID(c.Request.Context())
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	// The handler sees the request ID through the request context, not just
	// the access log line.
	assert.Equal(t, "req-42", ctxRequestID)

	entry := accessLogEntry(t, recorded)
	fields := entryFields(entry)
	assert.Equal(t, "req-42", fields["request_id"].String)
}

func TestAccessLog_IncludesOrgID(t *testing.T) {
	gin.SetMode(gin.TestMode)

	core, recorded := observer.New(zapcore.InfoLevel)
	zapLogger := zap.New(core)

	engine := gin.New()
	engine.Use(AccessLog(zapLogger))
	engine.Use(func(c *gin.Context) {
		ctx, _ := WithOrgID(c.Request.Context(), FromContext(c.Request.Context()), "org-7")
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	})
	engine.GET("/connectors", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/connectors", nil))

	entry := accessLogEntry(t, recorded)
	fields := entryFields(entry)
	assert.Equal(t, "org-7", fields["org_id"].String)
}

func TestAccessLog_CollectsGinErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)

	core, recorded := observer.New(zapcore.InfoLevel)
	zapLogger := zap.New(core)

	engine := gin.New()
	engine.Use(AccessLog(zapLogger))
	engine.GET("/broken", func(c *gin.Context) {
		_ = c.Error(assert.AnError)
		c.Status(http.StatusBadRequest)
	})

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/broken", nil))

	entry := accessLogEntry(t, recorded)
	fields := entryFields(entry)
	require.Contains(t, fields, "errors")
}

func TestRecovery(t *testing.T) {
	gin.SetMode(gin.TestMode)

	core, recorded := observer.New(zapcore.ErrorLevel)
	zapLogger := zap.New(core)

	engine := gin.New()
	engine.Use(Recovery(zapLogger))
	engine.GET("/panic", func(c *gin.Context) {
		panic("adapter exploded")
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/panic", nil)

	assert.NotPanics(t, func() {
		engine.ServeHTTP(w, req)
	})
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	logs := recorded.All()
	require.NotEmpty(t, logs)
	assert.Equal(t, "panic recovered", logs[0].Message)

	fields := entryFields(logs[0])
	assert.Equal(t, "/panic", fields["path"].String)
}
