package service

import "sync"

type threadLock struct {
	mu   sync.Mutex
	refs int
}

// threadLocks serializes work per thread ID. Entries are dropped once no
// caller holds or waits on them.
type threadLocks struct {
	mu    sync.Mutex
	locks map[string]*threadLock
}

func newThreadLocks() *threadLocks {
	return &threadLocks{locks: make(map[string]*threadLock)}
}

// Lock blocks until the caller owns threadID and returns the release func.
func (t *threadLocks) Lock(threadID string) func() {
	t.mu.Lock()
	lock, ok := t.locks[threadID]
	if !ok {
		lock = &threadLock{}
		t.locks[threadID] = lock
	}
	lock.refs++
	t.mu.Unlock()

	lock.mu.Lock()
	return func() {
		lock.mu.Unlock()

		t.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(t.locks, threadID)
		}
		t.mu.Unlock()
	}
}

func (t *threadLocks) size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.locks)
}
