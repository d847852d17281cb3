package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobLock_Acquire(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	lock := NewJobLock(client)
	ctx := context.Background()
	jobID := uuid.New()

	ok, err := lock.Acquire(ctx, jobID, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "first acquire should succeed")
}

func TestJobLock_AcquireHeldLock(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	lock := NewJobLock(client)
	ctx := context.Background()
	jobID := uuid.New()

	ok, err := lock.Acquire(ctx, jobID, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	// Second worker loses the race
	ok, err = lock.Acquire(ctx, jobID, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "acquire on a held lock should fail")
}

func TestJobLock_DifferentJobsIndependent(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	lock := NewJobLock(client)
	ctx := context.Background()

	ok1, err := lock.Acquire(ctx, uuid.New(), time.Minute)
	require.NoError(t, err)
	assert.True(t, ok1)

	ok2, err := lock.Acquire(ctx, uuid.New(), time.Minute)
	require.NoError(t, err)
	assert.True(t, ok2)
}

func TestJobLock_Release(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	lock := NewJobLock(client)
	ctx := context.Background()
	jobID := uuid.New()

	ok, err := lock.Acquire(ctx, jobID, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, lock.Release(ctx, jobID))

	ok, err = lock.Acquire(ctx, jobID, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "released lock should be acquirable again")
}

func TestJobLock_TTLExpiry(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	lock := NewJobLock(client)
	ctx := context.Background()
	jobID := uuid.New()

	ok, err := lock.Acquire(ctx, jobID, 30*time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	// Crash scenario: the holder never releases; the TTL frees it.
	s.FastForward(31 * time.Second)

	ok, err = lock.Acquire(ctx, jobID, 30*time.Second)
	require.NoError(t, err)
	assert.True(t, ok, "expired lock should be acquirable")
}
