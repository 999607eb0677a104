package chain

import (
	"sync"
	"time"

	"github.com/kawchain/core/pkg/types"
)

// DefaultLockTimeout is the default auto-release timeout for a transaction lock.
const DefaultLockTimeout = 30 * time.Second

// lockManager hands out one exclusive lock per transaction id, preventing the
// same transaction from being processed by two flows concurrently.
type lockManager struct {
	mu    sync.Mutex
	locks map[types.Hash]chan struct{}
}

func newLockManager() *lockManager {
	return &lockManager{locks: make(map[types.Hash]chan struct{})}
}

func (m *lockManager) semaphore(id types.Hash) chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch, ok := m.locks[id]
	if !ok {
		ch = make(chan struct{}, 1)
		m.locks[id] = ch
	}
	return ch
}

// acquire blocks until the lock for id is free or timeout elapses. On
// success it returns a release function the caller must call exactly once.
func (m *lockManager) acquire(id types.Hash, timeout time.Duration) (release func(), ok bool) {
	ch := m.semaphore(id)
	select {
	case ch <- struct{}{}:
		return func() { <-ch }, true
	case <-time.After(timeout):
		return nil, false
	}
}
