package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	connectordomain "github.com/syncbridge/backend/internal/domain/connector"
	"github.com/syncbridge/backend/internal/domain/mapping"
	syncdomain "github.com/syncbridge/backend/internal/domain/sync"
)

// defaultLockTTL bounds how long a crashed process can keep a job locked
const defaultLockTTL = 2 * time.Hour

// Service orchestrates sync job execution: it fetches records through the
// source connector, routes them through the mapping engine, pushes through
// the target connector, and persists run statistics.
type Service struct {
	jobRepo       syncdomain.JobRepository
	runRepo       syncdomain.RunRepository
	mappingRepo   mapping.Repository
	connectorRepo connectordomain.Repository
	provider      syncdomain.ConnectorProvider
	locker        syncdomain.RunLocker
	lockTTL       time.Duration
	logger        *zap.Logger
}

// NewService creates a new sync Service
func NewService(
	jobRepo syncdomain.JobRepository,
	runRepo syncdomain.RunRepository,
	mappingRepo mapping.Repository,
	connectorRepo connectordomain.Repository,
	provider syncdomain.ConnectorProvider,
	locker syncdomain.RunLocker,
	logger *zap.Logger,
) *Service {
	return &Service{
		jobRepo:       jobRepo,
		runRepo:       runRepo,
		mappingRepo:   mappingRepo,
		connectorRepo: connectorRepo,
		provider:      provider,
		locker:        locker,
		lockTTL:       defaultLockTTL,
		logger:        logger,
	}
}

// SetRunLockTTL overrides the run lock expiry, bounding how long a crashed
// process can keep a job locked
func (s *Service) SetRunLockTTL(ttl time.Duration) {
	if ttl > 0 {
		s.lockTTL = ttl
	}
}

// ---------------------------------------------------------------------------
// Job Management
// ---------------------------------------------------------------------------

// CreateJob creates a new sync job after checking both connectors and the
// mapping exist and belong to the organization.
func (s *Service) CreateJob(
	ctx context.Context,
	orgID uuid.UUID,
	name string,
	sourceConnectorID, targetConnectorID, mappingID uuid.UUID,
	syncType syncdomain.SyncType,
	direction syncdomain.Direction,
	schedule syncdomain.Schedule,
	options syncdomain.SyncOptions,
) (*syncdomain.SyncJob, error) {
	for _, connID := range []uuid.UUID{sourceConnectorID, targetConnectorID} {
		conn, err := s.connectorRepo.FindByID(ctx, connID)
		if err != nil {
			return nil, err
		}
		if conn.OrgID != orgID {
			return nil, connectordomain.ErrConnectorNotFound
		}
	}
	m, err := s.mappingRepo.FindByID(ctx, mappingID)
	if err != nil {
		return nil, err
	}
	if m.OrgID != orgID {
		return nil, mapping.ErrMappingNotFound
	}

	job, err := syncdomain.NewSyncJob(orgID, name, sourceConnectorID, targetConnectorID, mappingID, syncType, direction, schedule, options)
	if err != nil {
		return nil, err
	}
	if err := s.jobRepo.Save(ctx, job); err != nil {
		return nil, err
	}

	s.logger.Info("Sync job created",
		zap.String("job_id", job.ID.String()),
		zap.String("name", job.Name),
		zap.String("schedule", string(job.Schedule.Type)),
	)
	return job, nil
}

// GetJob retrieves a job scoped to an organization
func (s *Service) GetJob(ctx context.Context, orgID, id uuid.UUID) (*syncdomain.SyncJob, error) {
	job, err := s.jobRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.OrgID != orgID {
		return nil, syncdomain.ErrJobNotFound
	}
	return job, nil
}

// ListJobs lists all jobs for an organization
func (s *Service) ListJobs(ctx context.Context, orgID uuid.UUID) ([]syncdomain.SyncJob, error) {
	return s.jobRepo.FindAll(ctx, orgID)
}

// SetJobActive toggles whether the poller may schedule the job
func (s *Service) SetJobActive(ctx context.Context, orgID, id uuid.UUID, active bool) (*syncdomain.SyncJob, error) {
	job, err := s.GetJob(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	if active {
		job.Activate()
	} else {
		job.Deactivate()
	}
	if err := s.jobRepo.Save(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

// GetRun retrieves one run record
func (s *Service) GetRun(ctx context.Context, orgID, id uuid.UUID) (*syncdomain.SyncRun, error) {
	run, err := s.runRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if run.OrgID != orgID {
		return nil, syncdomain.ErrRunNotFound
	}
	return run, nil
}

// ListRuns lists recent runs of a job, newest first
func (s *Service) ListRuns(ctx context.Context, orgID, jobID uuid.UUID, limit int) ([]syncdomain.SyncRun, error) {
	if _, err := s.GetJob(ctx, orgID, jobID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.runRepo.FindByJob(ctx, jobID, limit)
}

// GetScheduledJobs returns the active jobs due at the given time. Manual and
// realtime schedules never auto-run; interval and cron jobs are due when
// their next activation after last_run_at has passed.
func (s *Service) GetScheduledJobs(ctx context.Context, orgID uuid.UUID, now time.Time) ([]syncdomain.SyncJob, error) {
	jobs, err := s.jobRepo.FindAll(ctx, orgID)
	if err != nil {
		return nil, err
	}

	due := make([]syncdomain.SyncJob, 0, len(jobs))
	for _, job := range jobs {
		if job.IsDue(now) {
			due = append(due, job)
		}
	}
	return due, nil
}

// DueJobs returns the active jobs across all organizations that are due at
// the given time. The scheduler polls it on its tick.
func (s *Service) DueJobs(ctx context.Context, now time.Time) ([]syncdomain.SyncJob, error) {
	jobs, err := s.jobRepo.FindActive(ctx)
	if err != nil {
		return nil, err
	}

	due := make([]syncdomain.SyncJob, 0, len(jobs))
	for _, job := range jobs {
		if job.IsDue(now) {
			due = append(due, job)
		}
	}
	return due, nil
}

// ---------------------------------------------------------------------------
// Run Execution
// ---------------------------------------------------------------------------

// TriggerJob runs a job by ID on behalf of an operator or the scheduler
func (s *Service) TriggerJob(ctx context.Context, orgID, jobID uuid.UUID) (*syncdomain.SyncResult, error) {
	job, err := s.GetJob(ctx, orgID, jobID)
	if err != nil {
		return nil, err
	}
	return s.RunSync(ctx, job)
}

// RunSync executes one run of a job. Per-record failures are recorded in the
// run's error list and never abort the loop; job-level failures (source
// unreachable, missing capability) finalize the run as failed before the loop
// begins. Every created run reaches a terminal status and every completed run
// updates the job's stats exactly once.
func (s *Service) RunSync(ctx context.Context, job *syncdomain.SyncJob) (*syncdomain.SyncResult, error) {
	if !job.IsActive {
		return nil, syncdomain.ErrJobInactive
	}

	acquired, err := s.locker.TryLock(ctx, job.ID, s.lockTTL)
	if err != nil {
		return nil, err
	}
	if !acquired {
		return nil, syncdomain.ErrJobAlreadyRunning
	}
	defer func() {
		if err := s.locker.Unlock(context.WithoutCancel(ctx), job.ID); err != nil {
			s.logger.Warn("Failed to release job run lock",
				zap.String("job_id", job.ID.String()), zap.Error(err))
		}
	}()

	run := syncdomain.NewSyncRun(job)
	if err := s.runRepo.Save(ctx, run); err != nil {
		return nil, err
	}

	s.logger.Info("Sync run started",
		zap.String("job_id", job.ID.String()),
		zap.String("run_id", run.ID.String()),
		zap.Bool("dry_run", job.Options.DryRun),
	)

	records, m, target, execErr := s.prepare(ctx, job)
	if execErr != nil {
		return s.finishJobLevelFailure(ctx, job, run, execErr)
	}

	resource := connectordomain.ResourceType(m.Resource)
	for i, record := range records {
		if ctx.Err() != nil {
			run.CompleteCancelled()
			return s.finish(ctx, job, run)
		}

		recordID := recordIdentifier(record, i)
		if err := s.syncRecord(ctx, job, m, target, resource, record); err != nil {
			run.RecordFailure(recordID, err)
			s.logger.Debug("Record sync failed",
				zap.String("run_id", run.ID.String()),
				zap.String("record_id", recordID),
				zap.Error(err),
			)
			continue
		}
		run.RecordSuccess()
	}

	run.Complete(job.Options.ErrorThresholdPct)
	return s.finish(ctx, job, run)
}

// prepare resolves the mapping, gates connector capabilities, and fetches the
// source dataset. Any failure here is a job-level error.
func (s *Service) prepare(ctx context.Context, job *syncdomain.SyncJob) ([]mapping.Record, *mapping.DataMapping, syncdomain.Connector, error) {
	m, err := s.mappingRepo.FindByID(ctx, job.MappingID)
	if err != nil {
		return nil, nil, nil, &syncdomain.JobExecutionError{Stage: "mapping lookup", Err: err}
	}
	resource := connectordomain.ResourceType(m.Resource)

	source, err := s.resolveConnector(ctx, job.SourceConnectorID, resource)
	if err != nil {
		return nil, nil, nil, &syncdomain.JobExecutionError{Stage: "source connector", Err: err}
	}
	target, err := s.resolveConnector(ctx, job.TargetConnectorID, resource)
	if err != nil {
		return nil, nil, nil, &syncdomain.JobExecutionError{Stage: "target connector", Err: err}
	}

	sourcePort, err := s.provider.Get(ctx, source)
	if err != nil {
		return nil, nil, nil, &syncdomain.JobExecutionError{Stage: "source adapter", Err: err}
	}
	targetPort, err := s.provider.Get(ctx, target)
	if err != nil {
		return nil, nil, nil, &syncdomain.JobExecutionError{Stage: "target adapter", Err: err}
	}

	records, err := sourcePort.Fetch(ctx, resource)
	if err != nil {
		return nil, nil, nil, &syncdomain.JobExecutionError{Stage: "source fetch", Err: err}
	}
	return records, m, targetPort, nil
}

func (s *Service) resolveConnector(ctx context.Context, id uuid.UUID, resource connectordomain.ResourceType) (*connectordomain.Connector, error) {
	conn, err := s.connectorRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !conn.IsActive() {
		return nil, connectordomain.ErrConnectorDisabled
	}
	if !conn.HasCapability(resource) {
		return nil, fmt.Errorf("%w: %s cannot handle %s",
			connectordomain.ErrCapabilityNotDeclared, conn.Vendor, resource)
	}
	return conn, nil
}

// syncRecord applies the mapping and transform pipeline to one record and
// pushes the result, honoring the job's retry, backoff and timeout options.
func (s *Service) syncRecord(
	ctx context.Context,
	job *syncdomain.SyncJob,
	m *mapping.DataMapping,
	target syncdomain.Connector,
	resource connectordomain.ResourceType,
	record mapping.Record,
) error {
	mapped, err := mapping.ApplyFieldMappings(record, m.FieldMappings)
	if err != nil {
		return err
	}

	transformed, err := mapping.ApplyTransformPipeline(mapped, m.Transforms)
	if err != nil {
		return err
	}
	if transformed == nil {
		// Dropped by a filter stage; nothing to push.
		return nil
	}
	out, ok := transformed.(map[string]any)
	if !ok {
		return &mapping.TransformError{Kind: mapping.TransformMap,
			Err: errors.New("pipeline produced a non-record value")}
	}

	if result := mapping.ValidateData(out, m.Rules); !result.Valid {
		return &mapping.ValidationError{Violations: result.Errors}
	}

	if job.Options.DryRun {
		return nil
	}
	return s.pushWithRetry(ctx, job.Options, target, resource, out)
}

// pushWithRetry attempts the push up to 1+MaxRetries times, doubling the base
// delay between attempts and bounding each attempt with the job timeout.
func (s *Service) pushWithRetry(
	ctx context.Context,
	options syncdomain.SyncOptions,
	target syncdomain.Connector,
	resource connectordomain.ResourceType,
	record mapping.Record,
) error {
	attempts := options.MaxRetries + 1
	delay := options.RetryDelay()

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, options.Timeout())
		lastErr = target.Push(attemptCtx, resource, record)
		cancel()
		if lastErr == nil {
			return nil
		}
		if attempt == attempts || ctx.Err() != nil {
			break
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return fmt.Errorf("push aborted: %w", ctx.Err())
		}
		delay *= 2
	}
	return fmt.Errorf("push failed after %d attempts: %w", attempts, lastErr)
}

// finish persists the terminal run and folds it into the job stats
func (s *Service) finish(ctx context.Context, job *syncdomain.SyncJob, run *syncdomain.SyncRun) (*syncdomain.SyncResult, error) {
	// Finalization must survive a cancelled run context.
	ctx = context.WithoutCancel(ctx)

	if err := s.runRepo.Save(ctx, run); err != nil {
		return nil, err
	}
	if err := s.jobRepo.RecordRun(ctx, job.ID, run.Status, *run.EndTime); err != nil {
		return nil, err
	}
	job.Stats.Record(run.Status, *run.EndTime)

	result := syncdomain.ResultFromRun(run)
	s.logger.Info("Sync run finished",
		zap.String("job_id", job.ID.String()),
		zap.String("run_id", run.ID.String()),
		zap.String("status", run.Status.String()),
		zap.Int("records_processed", result.RecordsProcessed),
		zap.Int("records_synced", result.RecordsSynced),
		zap.Int("records_failed", result.RecordsFailed),
		zap.Duration("duration", result.Duration),
	)
	return result, nil
}

func (s *Service) finishJobLevelFailure(ctx context.Context, job *syncdomain.SyncJob, run *syncdomain.SyncRun, execErr error) (*syncdomain.SyncResult, error) {
	s.logger.Error("Sync run aborted before record loop",
		zap.String("job_id", job.ID.String()),
		zap.String("run_id", run.ID.String()),
		zap.Error(execErr),
	)
	run.FailJobLevel(execErr)
	return s.finish(ctx, job, run)
}

// recordIdentifier extracts a stable identifier from a source record for
// error attribution, falling back to the loop position.
func recordIdentifier(record mapping.Record, index int) string {
	for _, key := range []string{"id", "external_id", "uuid", "guid"} {
		if value, ok := record[key]; ok && value != nil {
			if s := fmt.Sprintf("%v", value); s != "" {
				return s
			}
		}
	}
	return fmt.Sprintf("record_%d", index+1)
}
