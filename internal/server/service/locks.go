package service

import "sync"

// A Locks serializes mutating operations per list.
// A reconciliation must see a stable (clock, items) snapshot between its read
// and its write, so every writer of a list's items takes that list's lock for
// the whole read-compute-apply cycle.
//
// Locks are never evicted; the registry grows with the number of lists ever
// touched by this process, which stays small for an embedded-database server.
type Locks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewLocks returns an empty lock registry.
func NewLocks() *Locks {
	return &Locks{
		locks: map[string]*sync.Mutex{},
	}
}

// Lock acquires the lock of the given list and returns its release function.
func (l *Locks) Lock(listID string) (unlock func()) {
	l.mu.Lock()
	lock, ok := l.locks[listID]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[listID] = lock
	}
	l.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}
