package locker

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	syncdomain "github.com/syncbridge/backend/internal/domain/sync"
)

const defaultKeyPrefix = "sync:run-lock:"

// RedisRunLocker serializes run execution across instances using Redis.
// The lock is a SETNX key with a TTL so a crashed worker cannot hold a
// job hostage forever.
type RedisRunLocker struct {
	client    *redis.Client
	keyPrefix string
}

// RedisConfig holds Redis connection settings for the locker
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisRunLocker creates a locker with its own Redis client and
// verifies connectivity before returning
func NewRedisRunLocker(cfg RedisConfig) (*RedisRunLocker, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("locker: failed to connect to redis: %w", err)
	}

	return &RedisRunLocker{
		client:    client,
		keyPrefix: defaultKeyPrefix,
	}, nil
}

// NewRedisRunLockerWithClient creates a locker sharing an existing client
func NewRedisRunLockerWithClient(client *redis.Client, keyPrefix string) *RedisRunLocker {
	if keyPrefix == "" {
		keyPrefix = defaultKeyPrefix
	}
	return &RedisRunLocker{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// TryLock acquires the job's run lock with SETNX. Returns false when
// another run already holds it.
func (l *RedisRunLocker) TryLock(ctx context.Context, jobID uuid.UUID, ttl time.Duration) (bool, error) {
	acquired, err := l.client.SetNX(ctx, l.key(jobID), "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("locker: failed to acquire run lock: %w", err)
	}
	return acquired, nil
}

// Unlock releases the job's run lock
func (l *RedisRunLocker) Unlock(ctx context.Context, jobID uuid.UUID) error {
	if err := l.client.Del(ctx, l.key(jobID)).Err(); err != nil {
		return fmt.Errorf("locker: failed to release run lock: %w", err)
	}
	return nil
}

// Close closes the underlying Redis client
func (l *RedisRunLocker) Close() error {
	return l.client.Close()
}

func (l *RedisRunLocker) key(jobID uuid.UUID) string {
	return l.keyPrefix + jobID.String()
}

var _ syncdomain.RunLocker = (*RedisRunLocker)(nil)
