package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	connectorapp "github.com/syncbridge/backend/internal/application/connector"
	mappingapp "github.com/syncbridge/backend/internal/application/mapping"
	syncapp "github.com/syncbridge/backend/internal/application/sync"
	connectordomain "github.com/syncbridge/backend/internal/domain/connector"
	syncdomain "github.com/syncbridge/backend/internal/domain/sync"
	"github.com/syncbridge/backend/internal/infrastructure/connectors"
	"github.com/syncbridge/backend/internal/infrastructure/locker"
	"github.com/syncbridge/backend/internal/infrastructure/persistence"
	"github.com/syncbridge/backend/internal/infrastructure/persistence/models"
	"github.com/syncbridge/backend/internal/interfaces/http/dto"
	"github.com/syncbridge/backend/internal/interfaces/http/middleware"
	"github.com/syncbridge/backend/internal/interfaces/http/router"
)

// testServer wires the full HTTP stack over an in-memory database and
// in-memory transport adapters
type testServer struct {
	engine *gin.Engine
	orgID  uuid.UUID

	source *connectors.MemoryAdapter
	target *connectors.MemoryAdapter
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, models.AutoMigrate(db))

	connectorRepo := persistence.NewGormConnectorRepository(db)
	mappingRepo := persistence.NewGormMappingRepository(db)
	jobRepo := persistence.NewGormSyncJobRepository(db)
	runRepo := persistence.NewGormSyncRunRepository(db)

	source := connectors.NewMemoryAdapter()
	target := connectors.NewMemoryAdapter()
	registry := connectors.NewRegistry()
	registry.Register(connectordomain.VendorSalesforce, func(*connectordomain.Connector) (syncdomain.Connector, error) {
		return source, nil
	})
	registry.Register(connectordomain.VendorHubspot, func(*connectordomain.Connector) (syncdomain.Connector, error) {
		return target, nil
	})

	log := zap.NewNop()
	registryService := connectorapp.NewRegistryService(connectorRepo, log)
	mappingService := mappingapp.NewService(mappingRepo, connectorRepo, log)
	syncService := syncapp.NewService(jobRepo, runRepo, mappingRepo, connectorRepo,
		registry, locker.NewInMemoryRunLocker(), log)

	engine := gin.New()
	router.NewRouter(engine,
		router.WithAPIMiddleware(middleware.RequestID(), middleware.OrgContext()),
	).
		Register(NewRegistryHandler(registryService)).
		Register(NewMappingHandler(mappingService)).
		Register(NewSyncHandler(syncService)).
		Setup()

	return &testServer{
		engine: engine,
		orgID:  uuid.New(),
		source: source,
		target: target,
	}
}

// do sends a JSON request with the test org header and decodes the envelope
func (s *testServer) do(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, dto.Response) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Org-ID", s.orgID.String())

	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w, resp
}

// dataMap re-decodes the data payload as a JSON object
func dataMap(t *testing.T, resp dto.Response) map[string]any {
	t.Helper()
	out, ok := resp.Data.(map[string]any)
	require.True(t, ok, "expected object data, got %T", resp.Data)
	return out
}

// createConnector registers a connector through the API and returns its ID
func (s *testServer) createConnector(t *testing.T, vendor string, config map[string]string) string {
	t.Helper()
	w, resp := s.do(t, http.MethodPost, "/api/v1/connectors", dto.CreateConnectorRequest{
		Vendor: vendor,
		Name:   vendor + " test",
		Config: config,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return dataMap(t, resp)["id"].(string)
}
