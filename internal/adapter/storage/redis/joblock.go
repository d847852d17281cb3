package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// JobLock implements ports.JobLocker using Redis SET NX. It keeps two
// scheduler replicas from attempting the same job at the same time; the
// TTL guarantees the lock dies with a crashed worker.
type JobLock struct {
	client *goredis.Client
	prefix string
}

// NewJobLock creates a new Redis-backed job lock.
func NewJobLock(client *goredis.Client) *JobLock {
	return &JobLock{
		client: client,
		prefix: "joblock:",
	}
}

// Acquire attempts to take the per-job lock. Returns true if this
// caller now holds it, false if another attempt is already in flight.
func (l *JobLock) Acquire(ctx context.Context, jobID uuid.UUID, ttl time.Duration) (bool, error) {
	key := l.prefix + jobID.String()
	result, err := l.client.SetArgs(ctx, key, 1, goredis.SetArgs{
		Mode: "NX",
		TTL:  ttl,
	}).Result()
	if err != nil {
		if err == goredis.Nil {
			// Key already exists — another worker holds the lock
			return false, nil
		}
		return false, fmt.Errorf("redis job lock: %w", err)
	}
	return result == "OK", nil
}

// Release drops the lock after an attempt finishes.
func (l *JobLock) Release(ctx context.Context, jobID uuid.UUID) error {
	if err := l.client.Del(ctx, l.prefix+jobID.String()).Err(); err != nil {
		return fmt.Errorf("redis job unlock: %w", err)
	}
	return nil
}
