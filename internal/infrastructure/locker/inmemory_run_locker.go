package locker

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	syncdomain "github.com/syncbridge/backend/internal/domain/sync"
)

type lockEntry struct {
	expiresAt time.Time
}

// InMemoryRunLocker serializes run execution within a single process.
// Suitable for single-instance deployments and testing; distributed
// deployments should use RedisRunLocker.
type InMemoryRunLocker struct {
	mu    sync.Mutex
	locks map[uuid.UUID]lockEntry
}

// NewInMemoryRunLocker creates an in-memory run locker
func NewInMemoryRunLocker() *InMemoryRunLocker {
	return &InMemoryRunLocker{
		locks: make(map[uuid.UUID]lockEntry),
	}
}

// TryLock acquires the job's run lock. An expired entry is treated as
// released and can be re-acquired.
func (l *InMemoryRunLocker) TryLock(ctx context.Context, jobID uuid.UUID, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if e, held := l.locks[jobID]; held && time.Now().Before(e.expiresAt) {
		return false, nil
	}

	l.locks[jobID] = lockEntry{expiresAt: time.Now().Add(ttl)}
	return true, nil
}

// Unlock releases the job's run lock
func (l *InMemoryRunLocker) Unlock(ctx context.Context, jobID uuid.UUID) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.locks, jobID)
	return nil
}

var _ syncdomain.RunLocker = (*InMemoryRunLocker)(nil)
