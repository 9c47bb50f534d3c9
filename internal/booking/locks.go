package booking

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Locker serializes booking attempts for a single provider. Acquire blocks
// until the provider's lock is held or ctx expires; the returned release
// function must be called exactly once.
type Locker interface {
	Acquire(ctx context.Context, providerID uuid.UUID) (func(), error)
}

// MutexLocker is the single-process Locker. Each provider gets its own slot,
// so bookings for different providers never contend with each other.
type MutexLocker struct {
	mu    sync.Mutex
	slots map[uuid.UUID]chan struct{}
}

// NewMutexLocker creates an in-process per-provider locker.
func NewMutexLocker() *MutexLocker {
	return &MutexLocker{slots: make(map[uuid.UUID]chan struct{})}
}

func (l *MutexLocker) slot(providerID uuid.UUID) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.slots[providerID]
	if !ok {
		s = make(chan struct{}, 1)
		l.slots[providerID] = s
	}
	return s
}

// Acquire takes the provider's slot or gives up when ctx expires.
func (l *MutexLocker) Acquire(ctx context.Context, providerID uuid.UUID) (func(), error) {
	s := l.slot(providerID)
	select {
	case s <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() { <-s })
		}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
