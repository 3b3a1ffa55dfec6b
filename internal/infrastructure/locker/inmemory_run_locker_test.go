package locker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/google/uuid"
)

func TestInMemoryRunLocker_TryLock(t *testing.T) {
	locker := NewInMemoryRunLocker()
	ctx := context.Background()
	jobID := uuid.New()

	acquired, err := locker.TryLock(ctx, jobID, time.Minute)
	require.NoError(t, err)
	assert.True(t, acquired)

	acquired, err = locker.TryLock(ctx, jobID, time.Minute)
	require.NoError(t, err)
	assert.False(t, acquired, "second acquisition should be rejected while held")

	otherAcquired, err := locker.TryLock(ctx, uuid.New(), time.Minute)
	require.NoError(t, err)
	assert.True(t, otherAcquired, "locks are scoped per job")
}

func TestInMemoryRunLocker_Unlock(t *testing.T) {
	locker := NewInMemoryRunLocker()
	ctx := context.Background()
	jobID := uuid.New()

	acquired, err := locker.TryLock(ctx, jobID, time.Minute)
	require.NoError(t, err)
	require.True(t, acquired)

	require.NoError(t, locker.Unlock(ctx, jobID))

	acquired, err = locker.TryLock(ctx, jobID, time.Minute)
	require.NoError(t, err)
	assert.True(t, acquired, "lock should be re-acquirable after unlock")
}

func TestInMemoryRunLocker_ExpiredLockIsReacquirable(t *testing.T) {
	locker := NewInMemoryRunLocker()
	ctx := context.Background()
	jobID := uuid.New()

	acquired, err := locker.TryLock(ctx, jobID, 10*time.Millisecond)
	require.NoError(t, err)
	require.True(t, acquired)

	time.Sleep(20 * time.Millisecond)

	acquired, err = locker.TryLock(ctx, jobID, time.Minute)
	require.NoError(t, err)
	assert.True(t, acquired, "expired lock should be treated as released")
}

func TestInMemoryRunLocker_ConcurrentAcquisition(t *testing.T) {
	locker := NewInMemoryRunLocker()
	ctx := context.Background()
	jobID := uuid.New()

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			acquired, err := locker.TryLock(ctx, jobID, time.Minute)
			require.NoError(t, err)
			if acquired {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins, "exactly one goroutine should win the lock")
}
