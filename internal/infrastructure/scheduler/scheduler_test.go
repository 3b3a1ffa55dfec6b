package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/google/uuid"
	"go.uber.org/zap"

	syncdomain "github.com/syncbridge/backend/internal/domain/sync"
)

type stubSource struct {
	mu   sync.Mutex
	jobs []syncdomain.SyncJob
}

func (s *stubSource) DueJobs(ctx context.Context, now time.Time) ([]syncdomain.SyncJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.jobs
	s.jobs = nil
	return out, nil
}

func (s *stubSource) set(jobs []syncdomain.SyncJob) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = jobs
}

type stubRunner struct {
	mu   sync.Mutex
	runs []uuid.UUID
	err  error
	done chan struct{}
}

func newStubRunner(err error) *stubRunner {
	return &stubRunner{err: err, done: make(chan struct{}, 16)}
}

func (r *stubRunner) RunSync(ctx context.Context, job *syncdomain.SyncJob) (*syncdomain.SyncResult, error) {
	r.mu.Lock()
	r.runs = append(r.runs, job.ID)
	r.mu.Unlock()
	r.done <- struct{}{}

	if r.err != nil {
		return nil, r.err
	}
	return &syncdomain.SyncResult{
		Success: true,
		RunID:   uuid.New(),
		Status:  syncdomain.RunStatusSuccess,
	}, nil
}

func (r *stubRunner) ranJobs() []uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]uuid.UUID, len(r.runs))
	copy(out, r.runs)
	return out
}

func testConfig() Config {
	return Config{
		Enabled:           true,
		PollInterval:      10 * time.Millisecond,
		MaxConcurrentJobs: 2,
		JobTimeout:        time.Minute,
	}
}

func waitForRun(t *testing.T, runner *stubRunner) {
	t.Helper()
	select {
	case <-runner.done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a job run")
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := DefaultConfig()
	assert.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero poll interval", func(c *Config) { c.PollInterval = 0 }},
		{"zero workers", func(c *Config) { c.MaxConcurrentJobs = 0 }},
		{"zero job timeout", func(c *Config) { c.JobTimeout = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func TestScheduler_RunsDueJobs(t *testing.T) {
	source := &stubSource{}
	runner := newStubRunner(nil)

	s, err := NewScheduler(testConfig(), source, runner, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop(context.Background())

	job := syncdomain.SyncJob{ID: uuid.New(), Name: "nightly contacts"}
	source.set([]syncdomain.SyncJob{job})

	waitForRun(t, runner)
	assert.Equal(t, []uuid.UUID{job.ID}, runner.ranJobs())
}

func TestScheduler_SkipsLockedJobsQuietly(t *testing.T) {
	source := &stubSource{}
	runner := newStubRunner(syncdomain.ErrJobAlreadyRunning)

	s, err := NewScheduler(testConfig(), source, runner, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop(context.Background())

	source.set([]syncdomain.SyncJob{{ID: uuid.New(), Name: "locked"}})

	waitForRun(t, runner)
	assert.Len(t, runner.ranJobs(), 1)
}

func TestScheduler_Submit(t *testing.T) {
	source := &stubSource{}
	runner := newStubRunner(nil)

	s, err := NewScheduler(testConfig(), source, runner, zap.NewNop())
	require.NoError(t, err)

	job := &syncdomain.SyncJob{ID: uuid.New(), Name: "manual"}
	assert.ErrorIs(t, s.Submit(job), ErrSchedulerNotRunning)

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop(context.Background())

	require.NoError(t, s.Submit(job))
	waitForRun(t, runner)
	assert.Equal(t, []uuid.UUID{job.ID}, runner.ranJobs())
}

func TestScheduler_StopIsGraceful(t *testing.T) {
	source := &stubSource{}
	runner := newStubRunner(nil)

	s, err := NewScheduler(testConfig(), source, runner, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, s.Start(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, s.Stop(ctx))

	// Stopping twice is a no-op.
	assert.NoError(t, s.Stop(ctx))
}

func TestScheduler_StartIsIdempotent(t *testing.T) {
	source := &stubSource{}
	runner := newStubRunner(nil)

	s, err := NewScheduler(testConfig(), source, runner, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Start(context.Background()))
	assert.NoError(t, s.Stop(context.Background()))
}
