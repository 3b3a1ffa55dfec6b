package sync

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/syncbridge/backend/internal/domain/shared"
)

// ---------------------------------------------------------------------------
// Sync Job Errors
// ---------------------------------------------------------------------------

var (
	ErrJobNotFound          = errors.New("sync: sync job not found")
	ErrJobInactive          = errors.New("sync: sync job is not active")
	ErrJobAlreadyRunning    = errors.New("sync: sync job is already running")
	ErrJobInvalidOrgID      = errors.New("sync: invalid organization ID")
	ErrJobInvalidName       = errors.New("sync: job name is required")
	ErrJobInvalidConnectors = errors.New("sync: source and target connector IDs are required")
	ErrJobInvalidMapping    = errors.New("sync: mapping ID is required")
	ErrInvalidSyncType      = errors.New("sync: invalid sync type")
	ErrInvalidDirection     = errors.New("sync: invalid sync direction")
	ErrInvalidSchedule      = errors.New("sync: invalid schedule")
	ErrRunNotFound          = errors.New("sync: sync run not found")
)

// JobExecutionError indicates a job-level failure before the per-record loop
// (source unreachable, capability missing). It always aborts the entire run.
type JobExecutionError struct {
	Stage string
	Err   error
}

// Error implements the error interface
func (e *JobExecutionError) Error() string {
	return fmt.Sprintf("sync: job execution failed during %s: %v", e.Stage, e.Err)
}

// Unwrap returns the underlying cause
func (e *JobExecutionError) Unwrap() error {
	return e.Err
}

// ---------------------------------------------------------------------------
// Sync Job Types
// ---------------------------------------------------------------------------

// SyncType represents the scope of data moved by a job
type SyncType string

const (
	// SyncTypeFull re-syncs the entire source dataset
	SyncTypeFull SyncType = "full"
	// SyncTypeIncremental syncs records changed since the last run
	SyncTypeIncremental SyncType = "incremental"
	// SyncTypeDelta syncs a computed difference set
	SyncTypeDelta SyncType = "delta"
)

// IsValid returns true if the sync type is valid
func (t SyncType) IsValid() bool {
	switch t {
	case SyncTypeFull, SyncTypeIncremental, SyncTypeDelta:
		return true
	default:
		return false
	}
}

// Direction represents which way records flow
type Direction string

const (
	// DirectionInbound pulls records from the vendor into the internal model
	DirectionInbound Direction = "inbound"
	// DirectionOutbound pushes internal records to the vendor
	DirectionOutbound Direction = "outbound"
	// DirectionBidirectional syncs both ways
	DirectionBidirectional Direction = "bidirectional"
)

// IsValid returns true if the direction is valid
func (d Direction) IsValid() bool {
	switch d {
	case DirectionInbound, DirectionOutbound, DirectionBidirectional:
		return true
	default:
		return false
	}
}

// DuplicateHandling controls what happens when a pushed record already exists
type DuplicateHandling string

const (
	DuplicateUpdate DuplicateHandling = "update"
	DuplicateSkip   DuplicateHandling = "skip"
	DuplicateError  DuplicateHandling = "error"
)

// IsValid returns true if the duplicate handling mode is valid
func (d DuplicateHandling) IsValid() bool {
	switch d {
	case DuplicateUpdate, DuplicateSkip, DuplicateError:
		return true
	default:
		return false
	}
}

// ---------------------------------------------------------------------------
// Schedule
// ---------------------------------------------------------------------------

// ScheduleType represents how a job is triggered
type ScheduleType string

const (
	// ScheduleManual jobs only run when triggered explicitly
	ScheduleManual ScheduleType = "manual"
	// ScheduleInterval jobs run every fixed interval
	ScheduleInterval ScheduleType = "interval"
	// ScheduleCron jobs run on a cron expression
	ScheduleCron ScheduleType = "cron"
	// ScheduleRealtime jobs are driven by external events, never by the poller
	ScheduleRealtime ScheduleType = "realtime"
)

// IsValid returns true if the schedule type is valid
func (t ScheduleType) IsValid() bool {
	switch t {
	case ScheduleManual, ScheduleInterval, ScheduleCron, ScheduleRealtime:
		return true
	default:
		return false
	}
}

// Schedule describes when a job becomes due
type Schedule struct {
	// Type selects the trigger mode
	Type ScheduleType `json:"type"`
	// IntervalSeconds is the run interval for interval schedules
	IntervalSeconds int `json:"interval_seconds,omitempty"`
	// CronExpr is the standard 5-field cron expression for cron schedules
	CronExpr string `json:"cron_expr,omitempty"`
}

// Validate checks the schedule is well-formed
func (s Schedule) Validate() error {
	if !s.Type.IsValid() {
		return ErrInvalidSchedule
	}
	switch s.Type {
	case ScheduleInterval:
		if s.IntervalSeconds <= 0 {
			return fmt.Errorf("%w: interval must be positive", ErrInvalidSchedule)
		}
	case ScheduleCron:
		if _, err := cron.ParseStandard(s.CronExpr); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidSchedule, err)
		}
	}
	return nil
}

// NextRunAfter computes the next due time strictly after the given time.
// Manual and realtime schedules are never due on the poll loop; the second
// return value is false for them.
func (s Schedule) NextRunAfter(t time.Time) (time.Time, bool) {
	switch s.Type {
	case ScheduleInterval:
		return t.Add(time.Duration(s.IntervalSeconds) * time.Second), true
	case ScheduleCron:
		spec, err := cron.ParseStandard(s.CronExpr)
		if err != nil {
			return time.Time{}, false
		}
		return spec.Next(t), true
	default:
		return time.Time{}, false
	}
}

// ---------------------------------------------------------------------------
// SyncOptions
// ---------------------------------------------------------------------------

// SyncOptions are the per-job tunables governing batching, retries, error
// tolerance and duplicate handling.
type SyncOptions struct {
	// BatchSize groups records for I/O efficiency; it never changes
	// per-record mapping semantics or error attribution
	BatchSize int `json:"batch_size"`
	// MaxRetries is the number of additional push attempts per record
	MaxRetries int `json:"max_retries"`
	// RetryDelaySeconds is the base backoff delay between attempts
	RetryDelaySeconds int `json:"retry_delay_seconds"`
	// TimeoutSeconds bounds each record push attempt
	TimeoutSeconds int `json:"timeout_seconds"`
	// ErrorThresholdPct reclassifies a run as failed when exceeded (0 = off)
	ErrorThresholdPct float64 `json:"error_threshold_pct"`
	// DuplicateHandling controls behavior on existing target records
	DuplicateHandling DuplicateHandling `json:"duplicate_handling"`
	// DeleteMissing removes target records absent from the source
	DeleteMissing bool `json:"delete_missing"`
	// DryRun maps and transforms but never pushes
	DryRun bool `json:"dry_run"`
}

// DefaultSyncOptions returns the option defaults applied to new jobs
func DefaultSyncOptions() SyncOptions {
	return SyncOptions{
		BatchSize:         100,
		MaxRetries:        3,
		RetryDelaySeconds: 5,
		TimeoutSeconds:    30,
		ErrorThresholdPct: 0,
		DuplicateHandling: DuplicateUpdate,
	}
}

// Normalize fills zero values with defaults and clamps nonsense
func (o *SyncOptions) Normalize() {
	defaults := DefaultSyncOptions()
	if o.BatchSize <= 0 {
		o.BatchSize = defaults.BatchSize
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	if o.RetryDelaySeconds <= 0 {
		o.RetryDelaySeconds = defaults.RetryDelaySeconds
	}
	if o.TimeoutSeconds <= 0 {
		o.TimeoutSeconds = defaults.TimeoutSeconds
	}
	if o.ErrorThresholdPct < 0 || o.ErrorThresholdPct > 100 {
		o.ErrorThresholdPct = 0
	}
	if !o.DuplicateHandling.IsValid() {
		o.DuplicateHandling = defaults.DuplicateHandling
	}
}

// RetryDelay returns the base backoff as a duration
func (o SyncOptions) RetryDelay() time.Duration {
	return time.Duration(o.RetryDelaySeconds) * time.Second
}

// Timeout returns the per-attempt bound as a duration
func (o SyncOptions) Timeout() time.Duration {
	return time.Duration(o.TimeoutSeconds) * time.Second
}

// ---------------------------------------------------------------------------
// JobStats
// ---------------------------------------------------------------------------

// JobStats is the cumulative statistics aggregate owned exclusively by its
// SyncJob. Three outcome buckets are kept so partial successes are never
// silently collapsed into either side. Mutation goes through Record only;
// persistence must apply it as one atomic read-modify-write.
type JobStats struct {
	// TotalRuns increases by exactly one per completed run
	TotalRuns int64 `json:"total_runs"`
	// SuccessfulRuns counts runs that finished with zero record errors
	SuccessfulRuns int64 `json:"successful_runs"`
	// PartialRuns counts runs that finished with some record errors
	PartialRuns int64 `json:"partial_runs"`
	// FailedRuns counts runs aborted by job-level errors or the error threshold
	FailedRuns int64 `json:"failed_runs"`
	// LastRunAt is when the most recent run finished
	LastRunAt *time.Time `json:"last_run_at,omitempty"`
	// LastStatus is the terminal status of the most recent run
	LastStatus RunStatus `json:"last_status,omitempty"`
}

// Record folds one completed run into the aggregate
func (s *JobStats) Record(status RunStatus, at time.Time) {
	s.TotalRuns++
	switch status {
	case RunStatusSuccess:
		s.SuccessfulRuns++
	case RunStatusPartialSuccess:
		s.PartialRuns++
	default:
		s.FailedRuns++
	}
	s.LastRunAt = &at
	s.LastStatus = status
}

// ---------------------------------------------------------------------------
// SyncJob Aggregate
// ---------------------------------------------------------------------------

// SyncJob is a configured, schedulable unit of work linking one data mapping
// and two connectors.
type SyncJob struct {
	// ID is the unique identifier of this job
	ID uuid.UUID
	// OrgID is the organization this job belongs to
	OrgID uuid.UUID
	// Name is the operator-assigned display name
	Name string
	// SourceConnectorID is the connector records are fetched from
	SourceConnectorID uuid.UUID
	// TargetConnectorID is the connector records are pushed to
	TargetConnectorID uuid.UUID
	// MappingID is the data mapping applied to each record
	MappingID uuid.UUID
	// SyncType is the scope of data moved
	SyncType SyncType
	// Direction is which way records flow
	Direction Direction
	// Schedule describes when the job becomes due
	Schedule Schedule
	// Options are the per-job tunables
	Options SyncOptions
	// IsActive gates scheduling; inactive jobs never auto-run
	IsActive bool
	// Stats is the cumulative run statistics aggregate
	Stats JobStats
	// SmartCode is the audit classification tag
	SmartCode shared.SmartCode
	// CreatedAt is when this job was created
	CreatedAt time.Time
	// UpdatedAt is when this job was last updated
	UpdatedAt time.Time
}

// NewSyncJob creates an active sync job with normalized options
func NewSyncJob(
	orgID uuid.UUID,
	name string,
	sourceConnectorID, targetConnectorID, mappingID uuid.UUID,
	syncType SyncType,
	direction Direction,
	schedule Schedule,
	options SyncOptions,
) (*SyncJob, error) {
	if orgID == uuid.Nil {
		return nil, ErrJobInvalidOrgID
	}
	if strings.TrimSpace(name) == "" {
		return nil, ErrJobInvalidName
	}
	if sourceConnectorID == uuid.Nil || targetConnectorID == uuid.Nil {
		return nil, ErrJobInvalidConnectors
	}
	if mappingID == uuid.Nil {
		return nil, ErrJobInvalidMapping
	}
	if !syncType.IsValid() {
		return nil, ErrInvalidSyncType
	}
	if !direction.IsValid() {
		return nil, ErrInvalidDirection
	}
	if err := schedule.Validate(); err != nil {
		return nil, err
	}
	options.Normalize()

	now := time.Now()
	return &SyncJob{
		ID:                uuid.New(),
		OrgID:             orgID,
		Name:              name,
		SourceConnectorID: sourceConnectorID,
		TargetConnectorID: targetConnectorID,
		MappingID:         mappingID,
		SyncType:          syncType,
		Direction:         direction,
		Schedule:          schedule,
		Options:           options,
		IsActive:          true,
		SmartCode:         shared.NewSmartCode("SYNC", "CONNECTOR", "JOB", 1),
		CreatedAt:         now,
		UpdatedAt:         now,
	}, nil
}

// IsDue reports whether the job should run at the given time. Manual and
// realtime schedules are never due; a job that has never run is due
// immediately; otherwise the next activation after the last run must have
// passed.
func (j *SyncJob) IsDue(now time.Time) bool {
	if !j.IsActive {
		return false
	}
	switch j.Schedule.Type {
	case ScheduleManual, ScheduleRealtime:
		return false
	}
	if j.Stats.LastRunAt == nil {
		return true
	}
	next, ok := j.Schedule.NextRunAfter(*j.Stats.LastRunAt)
	if !ok {
		return false
	}
	return !next.After(now)
}

// Activate enables scheduling for the job
func (j *SyncJob) Activate() {
	j.IsActive = true
	j.UpdatedAt = time.Now()
}

// Deactivate disables scheduling for the job
func (j *SyncJob) Deactivate() {
	j.IsActive = false
	j.UpdatedAt = time.Now()
}

// ---------------------------------------------------------------------------
// Repository Interfaces
// ---------------------------------------------------------------------------

// JobRepository defines the interface for sync job persistence
type JobRepository interface {
	// Save creates or updates a job
	Save(ctx context.Context, job *SyncJob) error

	// FindByID finds a job by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*SyncJob, error)

	// FindAll lists all jobs for an organization
	FindAll(ctx context.Context, orgID uuid.UUID) ([]SyncJob, error)

	// FindActive lists active jobs across all organizations, for the
	// scheduler poll loop
	FindActive(ctx context.Context) ([]SyncJob, error)

	// RecordRun folds one completed run into the job's stats as a single
	// atomic mutation; implementations must not use get-then-set
	RecordRun(ctx context.Context, jobID uuid.UUID, status RunStatus, at time.Time) error

	// Delete removes a job
	Delete(ctx context.Context, id uuid.UUID) error
}

// RunRepository defines the interface for sync run persistence
type RunRepository interface {
	// Save creates or updates a run record
	Save(ctx context.Context, run *SyncRun) error

	// FindByID finds a run by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*SyncRun, error)

	// FindByJob lists runs for a job, newest first
	FindByJob(ctx context.Context, jobID uuid.UUID, limit int) ([]SyncRun, error)
}
