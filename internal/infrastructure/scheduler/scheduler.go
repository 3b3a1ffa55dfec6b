package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	syncdomain "github.com/syncbridge/backend/internal/domain/sync"
)

// ---------------------------------------------------------------------------
// Interfaces
// ---------------------------------------------------------------------------

// JobSource provides the jobs due for execution at a point in time
type JobSource interface {
	DueJobs(ctx context.Context, now time.Time) ([]syncdomain.SyncJob, error)
}

// Runner executes one run of a sync job
type Runner interface {
	RunSync(ctx context.Context, job *syncdomain.SyncJob) (*syncdomain.SyncResult, error)
}

// ---------------------------------------------------------------------------
// Config
// ---------------------------------------------------------------------------

// Config holds scheduler configuration
type Config struct {
	// Enabled indicates if the scheduler polls for due jobs
	Enabled bool
	// PollInterval is how often the scheduler checks for due jobs
	PollInterval time.Duration
	// MaxConcurrentJobs is the number of worker goroutines
	MaxConcurrentJobs int
	// JobTimeout is the maximum time one run can take
	JobTimeout time.Duration
}

// DefaultConfig returns default scheduler configuration
func DefaultConfig() Config {
	return Config{
		Enabled:           true,
		PollInterval:      30 * time.Second,
		MaxConcurrentJobs: 3,
		JobTimeout:        30 * time.Minute,
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.PollInterval <= 0 {
		return ErrInvalidConfig
	}
	if c.MaxConcurrentJobs <= 0 {
		return ErrInvalidConfig
	}
	if c.JobTimeout <= 0 {
		return ErrInvalidConfig
	}
	return nil
}

// ---------------------------------------------------------------------------
// Scheduler
// ---------------------------------------------------------------------------

// Scheduler polls for due sync jobs and executes them on a bounded worker
// pool. Overlap protection is the engine's run lock, so a job picked up by
// two ticks runs at most once.
type Scheduler struct {
	config Config
	source JobSource
	runner Runner
	logger *zap.Logger

	jobs      chan *syncdomain.SyncJob
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewScheduler creates a new scheduler
func NewScheduler(config Config, source JobSource, runner Runner, logger *zap.Logger) (*Scheduler, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &Scheduler{
		config: config,
		source: source,
		runner: runner,
		logger: logger,
		jobs:   make(chan *syncdomain.SyncJob, 100),
	}, nil
}

// Start starts the worker pool and the poll loop
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	for i := 0; i < s.config.MaxConcurrentJobs; i++ {
		s.wg.Add(1)
		go s.worker(ctx, i)
	}

	s.wg.Add(1)
	go s.pollLoop(ctx)

	s.logger.Info("Sync scheduler started",
		zap.Int("workers", s.config.MaxConcurrentJobs),
		zap.Duration("poll_interval", s.config.PollInterval),
		zap.Duration("job_timeout", s.config.JobTimeout),
	)

	return nil
}

// Stop gracefully stops the scheduler, waiting for in-flight runs up to the
// context deadline
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Sync scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Sync scheduler stop timed out")
		return ctx.Err()
	}
}

// Submit queues a job for execution outside the poll cycle
func (s *Scheduler) Submit(job *syncdomain.SyncJob) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return ErrSchedulerNotRunning
	}
	s.mu.Unlock()

	select {
	case s.jobs <- job:
		return nil
	default:
		return ErrJobQueueFull
	}
}

// pollLoop queries the job source every tick and queues everything due
func (s *Scheduler) pollLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.pollOnce(ctx, now)
		}
	}
}

func (s *Scheduler) pollOnce(ctx context.Context, now time.Time) {
	due, err := s.source.DueJobs(ctx, now)
	if err != nil {
		s.logger.Error("Failed to query due jobs", zap.Error(err))
		return
	}

	for i := range due {
		job := &due[i]
		select {
		case s.jobs <- job:
			s.logger.Debug("Sync job queued",
				zap.String("job_id", job.ID.String()),
				zap.String("job_name", job.Name),
			)
		default:
			// Queue full; the job stays due and the next tick retries.
			s.logger.Warn("Job queue full, deferring sync job",
				zap.String("job_id", job.ID.String()),
			)
			return
		}
	}
}

// worker processes jobs from the queue
func (s *Scheduler) worker(ctx context.Context, workerID int) {
	defer s.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-s.jobs:
			if !ok {
				return
			}
			s.processJob(ctx, job, workerID)
		}
	}
}

func (s *Scheduler) processJob(ctx context.Context, job *syncdomain.SyncJob, workerID int) {
	runCtx, cancel := context.WithTimeout(ctx, s.config.JobTimeout)
	defer cancel()

	result, err := s.runner.RunSync(runCtx, job)
	if err != nil {
		switch {
		case errors.Is(err, syncdomain.ErrJobAlreadyRunning):
			s.logger.Debug("Sync job already running, skipped",
				zap.Int("worker_id", workerID),
				zap.String("job_id", job.ID.String()),
			)
		case errors.Is(err, syncdomain.ErrJobInactive):
			s.logger.Debug("Sync job deactivated since polling, skipped",
				zap.String("job_id", job.ID.String()),
			)
		default:
			s.logger.Error("Sync job execution failed",
				zap.Int("worker_id", workerID),
				zap.String("job_id", job.ID.String()),
				zap.Error(err),
			)
		}
		return
	}

	s.logger.Info("Sync job completed",
		zap.Int("worker_id", workerID),
		zap.String("job_id", job.ID.String()),
		zap.String("status", result.Status.String()),
		zap.Int("records_processed", result.RecordsProcessed),
		zap.Int("records_failed", result.RecordsFailed),
	)
}
