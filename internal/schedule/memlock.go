package schedule

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// KeyedMutexLocker serializes schedule writes with one in-process semaphore
// per (doctor, date). Suitable for a single-instance deployment and for
// tests; a multi-instance deployment needs the Redis-backed locker instead.
// Unlike the Redis locker it waits for the lock, so a concurrent loser
// observes the winner's write and fails with SLOT_ALREADY_BOOKED rather than
// ErrScheduleBusy. Waiting ends early when the context does, and entries are
// dropped once the last waiter leaves.
type KeyedMutexLocker struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	sem  chan struct{}
	refs int
}

func NewKeyedMutexLocker() *KeyedMutexLocker {
	return &KeyedMutexLocker{locks: make(map[string]*keyedLock)}
}

func (l *KeyedMutexLocker) acquireRef(key string) *keyedLock {
	l.mu.Lock()
	defer l.mu.Unlock()

	k, ok := l.locks[key]
	if !ok {
		k = &keyedLock{sem: make(chan struct{}, 1)}
		l.locks[key] = k
	}
	k.refs++
	return k
}

func (l *KeyedMutexLocker) releaseRef(key string, k *keyedLock) {
	l.mu.Lock()
	defer l.mu.Unlock()

	k.refs--
	if k.refs == 0 {
		delete(l.locks, key)
	}
}

func (l *KeyedMutexLocker) WithScheduleLock(ctx context.Context, doctorID uuid.UUID, day time.Time, fn func(ctx context.Context) error) error {
	key := doctorID.String() + ":" + DayOf(day).Format("2006-01-02")

	k := l.acquireRef(key)
	defer l.releaseRef(key, k)

	select {
	case k.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-k.sem }()

	return fn(ctx)
}
