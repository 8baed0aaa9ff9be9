package lifecycle

import (
	"context"
	"sync"
)

// EntityLocker serializes mutations per entity identity. Acquire blocks until
// the lock is held or ctx expires, in which case it fails with Busy. The
// returned release function must be called exactly once.
type EntityLocker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// memoryLocker is an in-process keyed mutex. Suitable for single-replica
// deployments and tests; multi-replica deployments use the Redis lease locker
// from the persistence package.
type memoryLocker struct {
	mu    sync.Mutex
	slots map[string]*lockSlot
}

type lockSlot struct {
	ch   chan struct{}
	refs int
}

// NewMemoryLocker creates an in-process entity locker.
func NewMemoryLocker() EntityLocker {
	return &memoryLocker{slots: make(map[string]*lockSlot)}
}

func (l *memoryLocker) Acquire(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	slot, ok := l.slots[key]
	if !ok {
		slot = &lockSlot{ch: make(chan struct{}, 1)}
		l.slots[key] = slot
	}
	slot.refs++
	l.mu.Unlock()

	select {
	case slot.ch <- struct{}{}:
		return func() {
			<-slot.ch
			l.releaseRef(key, slot)
		}, nil
	case <-ctx.Done():
		l.releaseRef(key, slot)
		return nil, busy(key)
	}
}

func (l *memoryLocker) releaseRef(key string, slot *lockSlot) {
	l.mu.Lock()
	slot.refs--
	if slot.refs == 0 {
		delete(l.slots, key)
	}
	l.mu.Unlock()
}
