package sync

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJob(t *testing.T, schedule Schedule) *SyncJob {
	t.Helper()
	job, err := NewSyncJob(
		uuid.New(), "contacts sync",
		uuid.New(), uuid.New(), uuid.New(),
		SyncTypeFull, DirectionOutbound,
		schedule, SyncOptions{},
	)
	require.NoError(t, err)
	return job
}

func TestNewSyncJob(t *testing.T) {
	t.Run("normalizes options and stamps smart code", func(t *testing.T) {
		job := newTestJob(t, Schedule{Type: ScheduleManual})

		assert.True(t, job.IsActive)
		assert.Equal(t, 100, job.Options.BatchSize)
		assert.Equal(t, DuplicateUpdate, job.Options.DuplicateHandling)
		assert.Equal(t, "SYNC.CONNECTOR.JOB.v1", job.SmartCode.String())
	})

	t.Run("rejects invalid configuration", func(t *testing.T) {
		orgID := uuid.New()
		_, err := NewSyncJob(orgID, "j", uuid.Nil, uuid.New(), uuid.New(),
			SyncTypeFull, DirectionInbound, Schedule{Type: ScheduleManual}, SyncOptions{})
		assert.ErrorIs(t, err, ErrJobInvalidConnectors)

		_, err = NewSyncJob(orgID, "j", uuid.New(), uuid.New(), uuid.New(),
			SyncType("hourly"), DirectionInbound, Schedule{Type: ScheduleManual}, SyncOptions{})
		assert.ErrorIs(t, err, ErrInvalidSyncType)

		_, err = NewSyncJob(orgID, "j", uuid.New(), uuid.New(), uuid.New(),
			SyncTypeFull, DirectionInbound, Schedule{Type: ScheduleCron, CronExpr: "not cron"}, SyncOptions{})
		assert.ErrorIs(t, err, ErrInvalidSchedule)

		_, err = NewSyncJob(orgID, "j", uuid.New(), uuid.New(), uuid.New(),
			SyncTypeFull, DirectionInbound, Schedule{Type: ScheduleInterval}, SyncOptions{})
		assert.ErrorIs(t, err, ErrInvalidSchedule)
	})
}

func TestJobIsDue(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	t.Run("manual never due regardless of last run age", func(t *testing.T) {
		job := newTestJob(t, Schedule{Type: ScheduleManual})
		old := now.Add(-365 * 24 * time.Hour)
		job.Stats.LastRunAt = &old
		assert.False(t, job.IsDue(now))
	})

	t.Run("realtime never due", func(t *testing.T) {
		job := newTestJob(t, Schedule{Type: ScheduleRealtime})
		assert.False(t, job.IsDue(now))
	})

	t.Run("interval job never run is due immediately", func(t *testing.T) {
		job := newTestJob(t, Schedule{Type: ScheduleInterval, IntervalSeconds: 300})
		assert.True(t, job.IsDue(now))
	})

	t.Run("interval due only after last_run_at plus interval", func(t *testing.T) {
		job := newTestJob(t, Schedule{Type: ScheduleInterval, IntervalSeconds: 300})

		recent := now.Add(-2 * time.Minute)
		job.Stats.LastRunAt = &recent
		assert.False(t, job.IsDue(now))

		stale := now.Add(-6 * time.Minute)
		job.Stats.LastRunAt = &stale
		assert.True(t, job.IsDue(now))
	})

	t.Run("cron due at next activation", func(t *testing.T) {
		job := newTestJob(t, Schedule{Type: ScheduleCron, CronExpr: "0 * * * *"})

		last := time.Date(2026, 8, 30, 10, 30, 0, 0, time.UTC)
		job.Stats.LastRunAt = &last
		// next activation 11:00 has passed at 12:00
		assert.True(t, job.IsDue(now))

		last = time.Date(2026, 8, 30, 11, 59, 30, 0, time.UTC)
		job.Stats.LastRunAt = &last
		// next activation 12:00 exactly equals now
		assert.True(t, job.IsDue(now))

		last = now
		job.Stats.LastRunAt = &last
		assert.False(t, job.IsDue(now))
	})

	t.Run("inactive job never due", func(t *testing.T) {
		job := newTestJob(t, Schedule{Type: ScheduleInterval, IntervalSeconds: 1})
		job.Deactivate()
		assert.False(t, job.IsDue(now))
	})
}

func TestJobStatsRecord(t *testing.T) {
	var stats JobStats
	at := time.Now()

	stats.Record(RunStatusSuccess, at)
	stats.Record(RunStatusPartialSuccess, at)
	stats.Record(RunStatusFailed, at)
	stats.Record(RunStatusSuccess, at)

	assert.Equal(t, int64(4), stats.TotalRuns)
	assert.Equal(t, int64(2), stats.SuccessfulRuns)
	assert.Equal(t, int64(1), stats.PartialRuns)
	assert.Equal(t, int64(1), stats.FailedRuns)
	assert.Equal(t, RunStatusSuccess, stats.LastStatus)
	// no bucket policy may mint more runs than were recorded
	assert.LessOrEqual(t, stats.SuccessfulRuns+stats.PartialRuns+stats.FailedRuns, stats.TotalRuns)
}

func TestSyncRunLifecycle(t *testing.T) {
	job := newTestJob(t, Schedule{Type: ScheduleManual})

	t.Run("clean run finalizes success", func(t *testing.T) {
		run := NewSyncRun(job)
		assert.Equal(t, RunStatusRunning, run.Status)

		run.RecordSuccess()
		run.RecordSuccess()
		run.Complete(0)

		assert.Equal(t, RunStatusSuccess, run.Status)
		assert.True(t, run.Status.IsTerminal())
		require.NotNil(t, run.EndTime)
		assert.Equal(t, run.RecordsProcessed, run.RecordsSynced+run.RecordsFailed)
	})

	t.Run("record errors finalize partial_success", func(t *testing.T) {
		run := NewSyncRun(job)
		run.RecordSuccess()
		run.RecordFailure("rec-2", errors.New("push refused"))
		run.Complete(0)

		assert.Equal(t, RunStatusPartialSuccess, run.Status)
		assert.Equal(t, 2, run.RecordsProcessed)
		assert.Equal(t, 1, run.RecordsFailed)
		require.Len(t, run.Errors, 1)
		assert.Equal(t, "rec-2", run.Errors[0].RecordID)
	})

	t.Run("error threshold reclassifies run as failed", func(t *testing.T) {
		run := NewSyncRun(job)
		run.RecordSuccess()
		run.RecordFailure("a", errors.New("x"))
		run.RecordFailure("b", errors.New("y"))
		run.Complete(50)

		assert.Equal(t, RunStatusFailed, run.Status)
	})

	t.Run("job-level failure closes the run", func(t *testing.T) {
		run := NewSyncRun(job)
		run.FailJobLevel(errors.New("source unreachable"))

		assert.Equal(t, RunStatusFailed, run.Status)
		require.NotNil(t, run.EndTime)
		require.Len(t, run.Errors, 1)
		assert.Equal(t, JobLevelRecordID, run.Errors[0].RecordID)

		result := ResultFromRun(run)
		assert.False(t, result.Success)
	})

	t.Run("cancellation finalizes partial_success with counts so far", func(t *testing.T) {
		run := NewSyncRun(job)
		run.RecordSuccess()
		run.CompleteCancelled()

		assert.Equal(t, RunStatusPartialSuccess, run.Status)
		assert.Equal(t, 1, run.RecordsProcessed)
		require.NotNil(t, run.EndTime)
	})
}
