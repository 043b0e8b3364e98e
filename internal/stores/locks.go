package stores

import "sync"

// storeLocks serializes mutating operations per store. Replacing a PDF means
// "delete the old pages, then convert the new document"; two concurrent
// uploads for the same store interleaving those halves would mix page sets,
// so each store gets its own mutex. Different stores proceed in parallel.
type storeLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newStoreLocks() *storeLocks {
	return &storeLocks{locks: make(map[string]*sync.Mutex)}
}

// acquire locks the named store and returns the unlock function.
func (l *storeLocks) acquire(storeID string) func() {
	l.mu.Lock()
	m, ok := l.locks[storeID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[storeID] = m
	}
	l.mu.Unlock()
	m.Lock()
	return m.Unlock
}
