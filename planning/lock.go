package planning

import "sync"

// =============================================================================
// SCOPE LOCK - One active run per planning scope
// =============================================================================

// ScopeLock serializes runs per facility. Concurrent triggers for the same
// facility queue up rather than interleave writes into a batch; different
// facilities run independently.
type ScopeLock struct {
	mu      sync.Mutex
	mutexes map[FacilityID]*sync.Mutex
}

func NewScopeLock() *ScopeLock {
	return &ScopeLock{mutexes: make(map[FacilityID]*sync.Mutex)}
}

func (l *ScopeLock) Lock(scope FacilityID) {
	l.scopeMutex(scope).Lock()
}

func (l *ScopeLock) Unlock(scope FacilityID) {
	l.scopeMutex(scope).Unlock()
}

func (l *ScopeLock) scopeMutex(scope FacilityID) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()

	if mu, ok := l.mutexes[scope]; ok {
		return mu
	}
	mu := &sync.Mutex{}
	l.mutexes[scope] = mu
	return mu
}
