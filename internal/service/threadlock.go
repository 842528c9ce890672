package service

import "sync"

// threadLocks serializes context updates per conversation thread. Each
// thread id gets its own mutex so unrelated conversations never contend;
// the map-level mutex only guards lock lookup, never the critical section.
type threadLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newThreadLocks() *threadLocks {
	return &threadLocks{
		locks: make(map[string]*sync.Mutex),
	}
}

// Lock acquires the mutex for threadID, creating it on first use, and
// returns the unlock func. Locks are never evicted: a workspace holds at
// most a few thousand active threads and a bare mutex is small.
func (t *threadLocks) Lock(threadID string) func() {
	t.mu.Lock()
	lock, ok := t.locks[threadID]
	if !ok {
		lock = &sync.Mutex{}
		t.locks[threadID] = lock
	}
	t.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}
