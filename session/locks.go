package session

import (
	"context"
	"sync"
)

// TurnLocks serialises work per session id. Different ids never contend;
// entries are reference counted and dropped when no one holds or waits.
type TurnLocks struct {
	mu    sync.Mutex
	locks map[string]*turnLock
}

type turnLock struct {
	slot chan struct{}
	refs int
}

// NewTurnLocks creates an empty lock table.
func NewTurnLocks() *TurnLocks {
	return &TurnLocks{locks: make(map[string]*turnLock)}
}

// Lock blocks until the session is free or ctx is done. The returned
// function releases the lock and is safe to call more than once.
func (l *TurnLocks) Lock(ctx context.Context, sessionID string) (func(), error) {
	l.mu.Lock()
	tl, ok := l.locks[sessionID]
	if !ok {
		tl = &turnLock{slot: make(chan struct{}, 1)}
		l.locks[sessionID] = tl
	}
	tl.refs++
	l.mu.Unlock()

	select {
	case tl.slot <- struct{}{}:
	case <-ctx.Done():
		l.release(sessionID, tl)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-tl.slot
			l.release(sessionID, tl)
		})
	}, nil
}

// Len reports how many sessions currently hold or wait for a lock.
func (l *TurnLocks) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

func (l *TurnLocks) release(sessionID string, tl *turnLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	tl.refs--
	if tl.refs == 0 {
		delete(l.locks, sessionID)
	}
}
