package player

import "sync"

// LockManager hands out one mutex per player id. The mission engine performs
// no locking of its own; every code path that calls Update for a player must
// hold that player's lock for the whole call.
type LockManager struct {
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

// NewLockManager creates a LockManager.
func NewLockManager() *LockManager {
	return &LockManager{locks: make(map[int64]*sync.Mutex)}
}

// Lock acquires the per-player lock and returns its unlock function.
func (lm *LockManager) Lock(playerID int64) func() {
	lm.mu.Lock()
	l, ok := lm.locks[playerID]
	if !ok {
		l = &sync.Mutex{}
		lm.locks[playerID] = l
	}
	lm.mu.Unlock()
	l.Lock()
	return l.Unlock
}
