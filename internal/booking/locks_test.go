package booking

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMutexLockerExcludesSecondAcquire(t *testing.T) {
	locker := NewMutexLocker()
	providerID := uuid.New()

	release, err := locker.Acquire(context.Background(), providerID)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err = locker.Acquire(ctx, providerID)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	release()
	release2, err := locker.Acquire(context.Background(), providerID)
	require.NoError(t, err)
	release2()
}

func TestMutexLockerIsPerProvider(t *testing.T) {
	locker := NewMutexLocker()

	releaseA, err := locker.Acquire(context.Background(), uuid.New())
	require.NoError(t, err)
	defer releaseA()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	releaseB, err := locker.Acquire(ctx, uuid.New())
	require.NoError(t, err, "a different provider must not contend")
	releaseB()
}

func TestMutexLockerReleaseIsIdempotent(t *testing.T) {
	locker := NewMutexLocker()
	providerID := uuid.New()

	release, err := locker.Acquire(context.Background(), providerID)
	require.NoError(t, err)
	release()
	release() // second call must not unlock someone else's acquisition

	release2, err := locker.Acquire(context.Background(), providerID)
	require.NoError(t, err)
	defer release2()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err = locker.Acquire(ctx, providerID)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestMutexLockerSerializesCriticalSections(t *testing.T) {
	locker := NewMutexLocker()
	providerID := uuid.New()

	var inside, peak int
	var mu sync.Mutex
	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := locker.Acquire(context.Background(), providerID)
			require.NoError(t, err)
			defer release()

			mu.Lock()
			inside++
			if inside > peak {
				peak = inside
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			inside--
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, peak, "at most one goroutine inside the section")
}
