package booking

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisLocker(t *testing.T) (*RedisLocker, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisLocker(client, 5*time.Second, nil), mr
}

func TestRedisLockerExcludesSecondAcquire(t *testing.T) {
	locker, _ := newRedisLocker(t)
	providerID := uuid.New()

	release, err := locker.Acquire(context.Background(), providerID)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 80*time.Millisecond)
	defer cancel()
	_, err = locker.Acquire(ctx, providerID)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	release()
	release2, err := locker.Acquire(context.Background(), providerID)
	require.NoError(t, err)
	release2()
}

func TestRedisLockerIsPerProvider(t *testing.T) {
	locker, _ := newRedisLocker(t)

	releaseA, err := locker.Acquire(context.Background(), uuid.New())
	require.NoError(t, err)
	defer releaseA()

	releaseB, err := locker.Acquire(context.Background(), uuid.New())
	require.NoError(t, err)
	releaseB()
}

func TestRedisLockerReleaseOnlyRemovesOwnLock(t *testing.T) {
	locker, mr := newRedisLocker(t)
	providerID := uuid.New()

	staleRelease, err := locker.Acquire(context.Background(), providerID)
	require.NoError(t, err)

	// The holder's TTL lapses and another process takes the lock.
	mr.FastForward(6 * time.Second)
	release, err := locker.Acquire(context.Background(), providerID)
	require.NoError(t, err)
	defer release()

	// Releasing the stale acquisition must not free the new holder's lock.
	staleRelease()
	ctx, cancel := context.WithTimeout(context.Background(), 80*time.Millisecond)
	defer cancel()
	_, err = locker.Acquire(ctx, providerID)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRedisLockerTTLFreesCrashedHolder(t *testing.T) {
	locker, mr := newRedisLocker(t)
	providerID := uuid.New()

	// Acquire and never release, simulating a crash.
	_, err := locker.Acquire(context.Background(), providerID)
	require.NoError(t, err)

	mr.FastForward(6 * time.Second)
	release, err := locker.Acquire(context.Background(), providerID)
	require.NoError(t, err)
	release()
}
