package conversation

import "sync"

// sessionLocks serializes turns per session id. Entries are dropped once no
// goroutine holds or waits on them.
type sessionLocks struct {
	mu    sync.Mutex
	locks map[string]*sessionLock
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

func newSessionLocks() *sessionLocks {
	return &sessionLocks{locks: make(map[string]*sessionLock)}
}

// Lock blocks until the session is free and returns its unlock func.
func (l *sessionLocks) Lock(sessionID string) func() {
	l.mu.Lock()
	lk, ok := l.locks[sessionID]
	if !ok {
		lk = &sessionLock{}
		l.locks[sessionID] = lk
	}
	lk.refs++
	l.mu.Unlock()

	lk.mu.Lock()
	return func() {
		lk.mu.Unlock()
		l.mu.Lock()
		lk.refs--
		if lk.refs == 0 {
			delete(l.locks, sessionID)
		}
		l.mu.Unlock()
	}
}

func (l *sessionLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
