package dto

import (
	"time"

	syncdomain "github.com/syncbridge/backend/internal/domain/sync"
)

// ScheduleRequest is the wire form of a job schedule
type ScheduleRequest struct {
	Type            string `json:"type" binding:"required,oneof=manual interval cron realtime"`
	IntervalSeconds int    `json:"interval_seconds"`
	CronExpr        string `json:"cron_expr"`
}

// CreateJobRequest is the payload for creating a sync job
type CreateJobRequest struct {
	Name              string                  `json:"name" binding:"required,max=200"`
	SourceConnectorID string                  `json:"source_connector_id" binding:"required,uuid"`
	TargetConnectorID string                  `json:"target_connector_id" binding:"required,uuid"`
	MappingID         string                  `json:"mapping_id" binding:"required,uuid"`
	SyncType          string                  `json:"sync_type" binding:"required,oneof=full incremental delta"`
	Direction         string                  `json:"direction" binding:"required,oneof=inbound outbound bidirectional"`
	Schedule          ScheduleRequest         `json:"schedule" binding:"required"`
	Options           *syncdomain.SyncOptions `json:"options"`
}

// JobResponse is the API form of a sync job
type JobResponse struct {
	ID                string              `json:"id"`
	Name              string              `json:"name"`
	SourceConnectorID string              `json:"source_connector_id"`
	TargetConnectorID string              `json:"target_connector_id"`
	MappingID         string              `json:"mapping_id"`
	SyncType          string              `json:"sync_type"`
	Direction         string              `json:"direction"`
	Schedule          syncdomain.Schedule `json:"schedule"`
	Options           syncdomain.SyncOptions `json:"options"`
	IsActive          bool                `json:"is_active"`
	Stats             syncdomain.JobStats `json:"stats"`
	SmartCode         string              `json:"smart_code"`
	CreatedAt         time.Time           `json:"created_at"`
	UpdatedAt         time.Time           `json:"updated_at"`
}

// JobResponseFromDomain converts a job to its response form
func JobResponseFromDomain(j *syncdomain.SyncJob) JobResponse {
	return JobResponse{
		ID:                j.ID.String(),
		Name:              j.Name,
		SourceConnectorID: j.SourceConnectorID.String(),
		TargetConnectorID: j.TargetConnectorID.String(),
		MappingID:         j.MappingID.String(),
		SyncType:          string(j.SyncType),
		Direction:         string(j.Direction),
		Schedule:          j.Schedule,
		Options:           j.Options,
		IsActive:          j.IsActive,
		Stats:             j.Stats,
		SmartCode:         string(j.SmartCode),
		CreatedAt:         j.CreatedAt,
		UpdatedAt:         j.UpdatedAt,
	}
}

// RunResponse is the API form of a sync run
type RunResponse struct {
	ID               string                  `json:"id"`
	JobID            string                  `json:"job_id"`
	Status           string                  `json:"status"`
	StartTime        time.Time               `json:"start_time"`
	EndTime          *time.Time              `json:"end_time,omitempty"`
	RecordsProcessed int                     `json:"records_processed"`
	RecordsSynced    int                     `json:"records_synced"`
	RecordsFailed    int                     `json:"records_failed"`
	Errors           []syncdomain.RecordError `json:"errors,omitempty"`
}

// RunResponseFromDomain converts a run to its response form
func RunResponseFromDomain(r *syncdomain.SyncRun) RunResponse {
	return RunResponse{
		ID:               r.ID.String(),
		JobID:            r.JobID.String(),
		Status:           r.Status.String(),
		StartTime:        r.StartTime,
		EndTime:          r.EndTime,
		RecordsProcessed: r.RecordsProcessed,
		RecordsSynced:    r.RecordsSynced,
		RecordsFailed:    r.RecordsFailed,
		Errors:           r.Errors,
	}
}
