package handler

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syncbridge/backend/internal/domain/mapping"
	"github.com/syncbridge/backend/internal/interfaces/http/dto"
)

func contactFieldMappings() []mapping.FieldMapping {
	return []mapping.FieldMapping{
		{SourceField: "id", TargetField: "external_id", IsKey: true},
		{SourceField: "email", TargetField: "email_address"},
	}
}

func (s *testServer) createMapping(t *testing.T, connectorID string) map[string]any {
	t.Helper()
	w, resp := s.do(t, http.MethodPost, "/api/v1/mappings", dto.CreateMappingRequest{
		ConnectorID:   connectorID,
		Resource:      "contacts",
		FieldMappings: contactFieldMappings(),
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return dataMap(t, resp)
}

func TestMappingHandler_CreateMapping(t *testing.T) {
	s := newTestServer(t)
	connectorID := s.createConnector(t, "salesforce", salesforceConfig())

	t.Run("creates version 1", func(t *testing.T) {
		m := s.createMapping(t, connectorID)
		assert.Equal(t, float64(1), m["version"])
		assert.Equal(t, "contacts", m["resource"])
	})

	t.Run("re-creating makes version 2", func(t *testing.T) {
		m := s.createMapping(t, connectorID)
		assert.Equal(t, float64(2), m["version"])
	})

	t.Run("rejects a resource outside the vendor capabilities", func(t *testing.T) {
		w, resp := s.do(t, http.MethodPost, "/api/v1/mappings", dto.CreateMappingRequest{
			ConnectorID:   connectorID,
			Resource:      "invoices",
			FieldMappings: contactFieldMappings(),
		})
		require.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, dto.ErrCodeCapability, resp.Error.Code)
	})
}

func TestMappingHandler_Versions(t *testing.T) {
	s := newTestServer(t)
	connectorID := s.createConnector(t, "salesforce", salesforceConfig())
	s.createMapping(t, connectorID)
	s.createMapping(t, connectorID)

	w, resp := s.do(t, http.MethodGet,
		"/api/v1/mappings/versions?connector_id="+connectorID+"&resource=contacts", nil)
	require.Equal(t, http.StatusOK, w.Code)

	versions, ok := resp.Data.([]any)
	require.True(t, ok)
	require.Len(t, versions, 2)
	newest := versions[0].(map[string]any)
	assert.Equal(t, float64(2), newest["version"])
}

func TestMappingHandler_AutoGenerate(t *testing.T) {
	s := newTestServer(t)

	w, resp := s.do(t, http.MethodPost, "/api/v1/mappings/auto-generate", dto.AutoGenerateRequest{
		SourceFields: []mapping.FieldDescriptor{
			{Name: "email", Type: "string"},
			{Name: "first_name", Type: "string"},
			{Name: "internal_notes", Type: "string"},
		},
		TargetFields: []mapping.FieldDescriptor{
			{Name: "email_address", Type: "string"},
			{Name: "fname", Type: "string"},
		},
	})
	require.Equal(t, http.StatusOK, w.Code)

	generated, ok := resp.Data.([]any)
	require.True(t, ok)
	require.Len(t, generated, 2)

	bySource := map[string]string{}
	for _, g := range generated {
		m := g.(map[string]any)
		bySource[m["source_field"].(string)] = m["target_field"].(string)
	}
	assert.Equal(t, "email_address", bySource["email"])
	assert.Equal(t, "fname", bySource["first_name"])
}

func TestMappingHandler_Preview(t *testing.T) {
	s := newTestServer(t)
	connectorID := s.createConnector(t, "salesforce", salesforceConfig())
	m := s.createMapping(t, connectorID)
	mappingID := m["id"].(string)

	w, resp := s.do(t, http.MethodPost, "/api/v1/mappings/"+mappingID+"/preview",
		dto.RecordRequest{Record: mapping.Record{
			"id":    "rec-1",
			"email": "kim@example.com",
			"extra": "dropped",
		}})
	require.Equal(t, http.StatusOK, w.Code)

	preview := dataMap(t, resp)
	assert.Equal(t, false, preview["filtered"])
	result := preview["result"].(map[string]any)
	assert.Equal(t, "rec-1", result["external_id"])
	assert.Equal(t, "kim@example.com", result["email_address"])
	assert.NotContains(t, result, "extra")
}

func TestMappingHandler_ValidateRecord(t *testing.T) {
	s := newTestServer(t)
	connectorID := s.createConnector(t, "salesforce", salesforceConfig())

	w, resp := s.do(t, http.MethodPost, "/api/v1/mappings", dto.CreateMappingRequest{
		ConnectorID:   connectorID,
		Resource:      "contacts",
		FieldMappings: contactFieldMappings(),
		Rules: []mapping.ValidationRule{
			{Field: "email", Type: mapping.RuleRequired},
		},
	})
	require.Equal(t, http.StatusCreated, w.Code)
	mappingID := dataMap(t, resp)["id"].(string)

	w, resp = s.do(t, http.MethodPost, "/api/v1/mappings/"+mappingID+"/validate",
		dto.RecordRequest{Record: mapping.Record{"id": "rec-1"}})
	require.Equal(t, http.StatusOK, w.Code)

	result := dataMap(t, resp)
	assert.Equal(t, false, result["valid"])
	violations := result["errors"].([]any)
	require.Len(t, violations, 1)
	assert.Equal(t, "email", violations[0].(map[string]any)["field"])
}
