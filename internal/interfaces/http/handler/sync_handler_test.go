package handler

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	connectordomain "github.com/syncbridge/backend/internal/domain/connector"
	"github.com/syncbridge/backend/internal/domain/mapping"
	"github.com/syncbridge/backend/internal/interfaces/http/dto"
)

// syncFixture creates connectors, a mapping and a manual job through the API
type syncFixture struct {
	server    *testServer
	sourceID  string
	targetID  string
	mappingID string
	jobID     string
}

func newSyncFixture(t *testing.T) *syncFixture {
	t.Helper()
	s := newTestServer(t)

	sourceID := s.createConnector(t, "salesforce", salesforceConfig())
	targetID := s.createConnector(t, "hubspot", hubspotConfig())
	m := s.createMapping(t, sourceID)

	w, resp := s.do(t, http.MethodPost, "/api/v1/jobs", dto.CreateJobRequest{
		Name:              "contacts to hubspot",
		SourceConnectorID: sourceID,
		TargetConnectorID: targetID,
		MappingID:         m["id"].(string),
		SyncType:          "full",
		Direction:         "outbound",
		Schedule:          dto.ScheduleRequest{Type: "manual"},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	return &syncFixture{
		server:    s,
		sourceID:  sourceID,
		targetID:  targetID,
		mappingID: m["id"].(string),
		jobID:     dataMap(t, resp)["id"].(string),
	}
}

func TestSyncHandler_CreateJob(t *testing.T) {
	f := newSyncFixture(t)
	s := f.server

	t.Run("applies option defaults", func(t *testing.T) {
		w, resp := s.do(t, http.MethodGet, "/api/v1/jobs/"+f.jobID, nil)
		require.Equal(t, http.StatusOK, w.Code)

		job := dataMap(t, resp)
		assert.Equal(t, true, job["is_active"])
		options := job["options"].(map[string]any)
		assert.Equal(t, float64(100), options["batch_size"])
		assert.Equal(t, float64(3), options["max_retries"])
	})

	t.Run("rejects an unknown mapping", func(t *testing.T) {
		w, resp := s.do(t, http.MethodPost, "/api/v1/jobs", dto.CreateJobRequest{
			Name:              "broken",
			SourceConnectorID: f.sourceID,
			TargetConnectorID: f.targetID,
			MappingID:         "0d9232cd-8a53-4ef0-9b59-c06440b6c2f5",
			SyncType:          "full",
			Direction:         "outbound",
			Schedule:          dto.ScheduleRequest{Type: "manual"},
		})
		require.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, dto.ErrCodeNotFound, resp.Error.Code)
	})

	t.Run("rejects an invalid cron schedule", func(t *testing.T) {
		w, _ := s.do(t, http.MethodPost, "/api/v1/jobs", dto.CreateJobRequest{
			Name:              "bad cron",
			SourceConnectorID: f.sourceID,
			TargetConnectorID: f.targetID,
			MappingID:         f.mappingID,
			SyncType:          "full",
			Direction:         "outbound",
			Schedule:          dto.ScheduleRequest{Type: "cron", CronExpr: "not a cron"},
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestSyncHandler_TriggerJob(t *testing.T) {
	f := newSyncFixture(t)
	s := f.server

	s.source.Seed(connectordomain.ResourceContacts, []mapping.Record{
		{"id": "rec-1", "email": "a@example.com"},
		{"id": "rec-2", "email": "b@example.com"},
		{"id": "rec-3"},
	})

	w, resp := s.do(t, http.MethodPost, "/api/v1/jobs/"+f.jobID+"/trigger", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	result := dataMap(t, resp)
	assert.Equal(t, true, result["success"])
	assert.Equal(t, "success", result["status"])
	assert.Equal(t, float64(3), result["records_processed"])
	assert.Equal(t, float64(3), result["records_synced"])
	assert.Equal(t, float64(0), result["records_failed"])

	pushed := s.target.Pushed(connectordomain.ResourceContacts)
	require.Len(t, pushed, 3)
	assert.Equal(t, "rec-1", pushed[0]["external_id"])
	assert.Equal(t, "a@example.com", pushed[0]["email_address"])
	_, hasEmail := pushed[2]["email_address"]
	assert.False(t, hasEmail, "absent source fields are omitted, not written as nil")

	t.Run("run history records the execution", func(t *testing.T) {
		w, resp := s.do(t, http.MethodGet, "/api/v1/jobs/"+f.jobID+"/runs", nil)
		require.Equal(t, http.StatusOK, w.Code)

		runs, ok := resp.Data.([]any)
		require.True(t, ok)
		require.Len(t, runs, 1)
		run := runs[0].(map[string]any)
		assert.Equal(t, "success", run["status"])
		assert.Equal(t, float64(3), run["records_processed"])

		runID := run["id"].(string)
		w, resp = s.do(t, http.MethodGet, "/api/v1/runs/"+runID, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, f.jobID, dataMap(t, resp)["job_id"])
	})

	t.Run("job stats reflect the run", func(t *testing.T) {
		_, resp := s.do(t, http.MethodGet, "/api/v1/jobs/"+f.jobID, nil)
		stats := dataMap(t, resp)["stats"].(map[string]any)
		assert.Equal(t, float64(1), stats["total_runs"])
		assert.Equal(t, float64(1), stats["successful_runs"])
		assert.Equal(t, "success", stats["last_status"])
	})
}

func TestSyncHandler_TriggerDeactivatedJob(t *testing.T) {
	f := newSyncFixture(t)
	s := f.server

	w, resp := s.do(t, http.MethodPost, "/api/v1/jobs/"+f.jobID+"/deactivate", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, dataMap(t, resp)["is_active"])

	w, resp = s.do(t, http.MethodPost, "/api/v1/jobs/"+f.jobID+"/trigger", nil)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, dto.ErrCodeInvalidState, resp.Error.Code)

	w, _ = s.do(t, http.MethodPost, "/api/v1/jobs/"+f.jobID+"/activate", nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestSyncHandler_TriggerWithDisabledSource(t *testing.T) {
	f := newSyncFixture(t)
	s := f.server

	w, _ := s.do(t, http.MethodPost, "/api/v1/connectors/"+f.sourceID+"/disable", nil)
	require.Equal(t, http.StatusOK, w.Code)

	// A disabled connector is a job-level failure: the run is created,
	// finalized as failed, and carries a single job-level error entry.
	w, resp := s.do(t, http.MethodPost, "/api/v1/jobs/"+f.jobID+"/trigger", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	result := dataMap(t, resp)
	assert.Equal(t, false, result["success"])
	assert.Equal(t, "failed", result["status"])
	errs := result["errors"].([]any)
	require.Len(t, errs, 1)
	assert.Equal(t, "sync_job", errs[0].(map[string]any)["record_id"])
}

func TestSyncHandler_ListJobs(t *testing.T) {
	f := newSyncFixture(t)

	w, resp := f.server.do(t, http.MethodGet, "/api/v1/jobs", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, resp.Meta.Total)
}
