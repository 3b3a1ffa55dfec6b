package sync

import (
	"time"

	"github.com/google/uuid"

	"github.com/syncbridge/backend/internal/domain/shared"
)

// JobLevelRecordID tags the synthetic error entry of a run aborted before the
// per-record loop began.
const JobLevelRecordID = "sync_job"

// ---------------------------------------------------------------------------
// Run Status
// ---------------------------------------------------------------------------

// RunStatus represents the state of a sync run
type RunStatus string

const (
	// RunStatusRunning indicates the run is in progress
	RunStatusRunning RunStatus = "running"
	// RunStatusSuccess indicates the run finished with zero record errors
	RunStatusSuccess RunStatus = "success"
	// RunStatusPartialSuccess indicates the run finished with some record errors
	RunStatusPartialSuccess RunStatus = "partial_success"
	// RunStatusFailed indicates a job-level abort or exceeded error threshold
	RunStatusFailed RunStatus = "failed"
)

// IsValid returns true if the status is valid
func (s RunStatus) IsValid() bool {
	switch s {
	case RunStatusRunning, RunStatusSuccess, RunStatusPartialSuccess, RunStatusFailed:
		return true
	default:
		return false
	}
}

// IsTerminal returns true if the status is final. Every created run must
// reach a terminal status; an orphaned running record is an invariant
// violation.
func (s RunStatus) IsTerminal() bool {
	return s != RunStatusRunning && s.IsValid()
}

// String returns the string representation of RunStatus
func (s RunStatus) String() string {
	return string(s)
}

// ---------------------------------------------------------------------------
// SyncRun Entity
// ---------------------------------------------------------------------------

// RecordError attributes one failure to one source record
type RecordError struct {
	// RecordID identifies the failed source record (or "sync_job")
	RecordID string `json:"record_id"`
	// Message is the error description
	Message string `json:"error"`
}

// SyncRun is one execution of a SyncJob with its own counts and error list
type SyncRun struct {
	// ID is the unique identifier of this run
	ID uuid.UUID
	// JobID is the executed job
	JobID uuid.UUID
	// OrgID is the organization the run belongs to
	OrgID uuid.UUID
	// Status is the run state; finalized runs are always terminal
	Status RunStatus
	// StartTime is when execution began
	StartTime time.Time
	// EndTime is when the run reached a terminal status
	EndTime *time.Time
	// RecordsProcessed counts every record entering the loop
	RecordsProcessed int
	// RecordsSynced counts records pushed successfully
	RecordsSynced int
	// RecordsFailed counts records that errored anywhere in the pipeline
	RecordsFailed int
	// Errors lists every per-record failure
	Errors []RecordError
	// SmartCode is the audit classification tag
	SmartCode shared.SmartCode
}

// NewSyncRun opens a run for a job with status running
func NewSyncRun(job *SyncJob) *SyncRun {
	return &SyncRun{
		ID:        uuid.New(),
		JobID:     job.ID,
		OrgID:     job.OrgID,
		Status:    RunStatusRunning,
		StartTime: time.Now(),
		SmartCode: shared.NewSmartCode("SYNC", "CONNECTOR", "RUN", 1),
	}
}

// RecordSuccess counts one synced record
func (r *SyncRun) RecordSuccess() {
	r.RecordsProcessed++
	r.RecordsSynced++
}

// RecordFailure counts one failed record and appends its error
func (r *SyncRun) RecordFailure(recordID string, err error) {
	r.RecordsProcessed++
	r.RecordsFailed++
	r.Errors = append(r.Errors, RecordError{RecordID: recordID, Message: err.Error()})
}

// Complete finalizes a run that went through the record loop: success with
// zero errors, partial_success otherwise. When errorThresholdPct is positive
// and the failure ratio exceeds it, the run is classified failed instead.
func (r *SyncRun) Complete(errorThresholdPct float64) {
	now := time.Now()
	r.EndTime = &now

	switch {
	case len(r.Errors) == 0:
		r.Status = RunStatusSuccess
	case errorThresholdPct > 0 && r.failurePct() > errorThresholdPct:
		r.Status = RunStatusFailed
	default:
		r.Status = RunStatusPartialSuccess
	}
}

// CompleteCancelled finalizes a run stopped between records by cancellation,
// keeping the counts accumulated so far.
func (r *SyncRun) CompleteCancelled() {
	now := time.Now()
	r.EndTime = &now
	r.Status = RunStatusPartialSuccess
}

// FailJobLevel finalizes a run aborted before the record loop began. The
// single synthetic error entry carries the job-level record ID so dashboards
// can distinguish it from per-record failures.
func (r *SyncRun) FailJobLevel(err error) {
	now := time.Now()
	r.EndTime = &now
	r.Status = RunStatusFailed
	r.Errors = []RecordError{{RecordID: JobLevelRecordID, Message: err.Error()}}
}

// Duration returns the elapsed run time, up to now for unfinished runs
func (r *SyncRun) Duration() time.Duration {
	if r.EndTime != nil {
		return r.EndTime.Sub(r.StartTime)
	}
	return time.Since(r.StartTime)
}

func (r *SyncRun) failurePct() float64 {
	if r.RecordsProcessed == 0 {
		return 0
	}
	return float64(r.RecordsFailed) / float64(r.RecordsProcessed) * 100
}

// ---------------------------------------------------------------------------
// SyncResult
// ---------------------------------------------------------------------------

// SyncResult is the summary returned to the caller of a sync execution
type SyncResult struct {
	// Success is true only when no error of any kind occurred
	Success bool `json:"success"`
	// RunID identifies the persisted run record
	RunID uuid.UUID `json:"run_id"`
	// Status is the terminal run status
	Status RunStatus `json:"status"`
	// RecordsProcessed counts every record entering the loop
	RecordsProcessed int `json:"records_processed"`
	// RecordsSynced counts records pushed successfully
	RecordsSynced int `json:"records_synced"`
	// RecordsFailed counts records that errored
	RecordsFailed int `json:"records_failed"`
	// Errors lists every failure, per record plus any job-level entry
	Errors []RecordError `json:"errors,omitempty"`
	// Duration is the elapsed run time
	Duration time.Duration `json:"duration"`
}

// ResultFromRun builds the caller-facing summary from a finalized run
func ResultFromRun(run *SyncRun) *SyncResult {
	return &SyncResult{
		Success:          len(run.Errors) == 0 && run.Status == RunStatusSuccess,
		RunID:            run.ID,
		Status:           run.Status,
		RecordsProcessed: run.RecordsProcessed,
		RecordsSynced:    run.RecordsSynced,
		RecordsFailed:    run.RecordsFailed,
		Errors:           run.Errors,
		Duration:         run.Duration(),
	}
}
