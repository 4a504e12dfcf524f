package service

import (
	"sync"

	"github.com/google/uuid"
)

type sessionKey struct {
	studentID int
	examID    uuid.UUID
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// sessionLocks hands out one mutex per (student, exam). Entries are dropped
// once nobody holds or waits on them.
type sessionLocks struct {
	mu      sync.Mutex
	entries map[sessionKey]*lockEntry
}

func newSessionLocks() *sessionLocks {
	return &sessionLocks{entries: make(map[sessionKey]*lockEntry)}
}

func (l *sessionLocks) lock(studentID int, examID uuid.UUID) (unlock func()) {
	key := sessionKey{studentID: studentID, examID: examID}

	l.mu.Lock()
	e, ok := l.entries[key]
	if !ok {
		e = &lockEntry{}
		l.entries[key] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		l.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.entries, key)
		}
		l.mu.Unlock()
	}
}
