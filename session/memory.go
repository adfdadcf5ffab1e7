package session

import (
	"container/list"
	"context"
	"log/slog"
	"sync"
	"time"
)

// MemoryOptions configures a MemoryStore.
type MemoryOptions struct {
	// MaxLines caps units per session. Zero means DefaultMaxLines.
	MaxLines int

	// MaxSessions caps the number of live sessions; creating one more evicts
	// the least recently used. Zero disables the cap.
	MaxSessions int

	// IdleTTL evicts sessions untouched for longer than this on Sweep.
	// Zero disables age-based eviction.
	IdleTTL time.Duration

	// Now is the clock; nil means time.Now.
	Now func() time.Time
}

// MemoryStore is a process-local Store. The session map is guarded by one
// short-held mutex; each transcript has its own lock so work on one session
// never blocks another.
type MemoryStore struct {
	opts MemoryOptions

	mu       sync.Mutex
	sessions map[string]*list.Element // value: *transcript
	lru      *list.List               // front = most recently used
}

type transcript struct {
	id       string
	lastUsed time.Time // guarded by MemoryStore.mu

	mu      sync.Mutex
	lines   []string
	removed bool
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(opts MemoryOptions) *MemoryStore {
	if opts.MaxLines <= 0 {
		opts.MaxLines = DefaultMaxLines
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &MemoryStore{
		opts:     opts,
		sessions: make(map[string]*list.Element),
		lru:      list.New(),
	}
}

// Get returns the session transcript. Unknown sessions read as "".
func (s *MemoryStore) Get(_ context.Context, sessionID string) (string, error) {
	t := s.lookup(sessionID, false)
	if t == nil {
		return "", nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return join(t.lines), nil
}

// Append adds one unit to the session, creating it on first use.
func (s *MemoryStore) Append(_ context.Context, sessionID, line string) error {
	for {
		t := s.lookup(sessionID, true)
		t.mu.Lock()
		if t.removed {
			// Cleared or evicted between lookup and lock; start over on a fresh entry.
			t.mu.Unlock()
			continue
		}
		t.lines = appendBounded(t.lines, line, s.opts.MaxLines)
		t.mu.Unlock()
		return nil
	}
}

// Clear removes the session. It is idempotent.
func (s *MemoryStore) Clear(_ context.Context, sessionID string) error {
	s.mu.Lock()
	el, ok := s.sessions[sessionID]
	if ok {
		s.removeLocked(el)
	}
	s.mu.Unlock()
	return nil
}

// Len reports the number of live sessions.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep evicts sessions idle for longer than IdleTTL and returns how many
// were removed.
func (s *MemoryStore) Sweep(now time.Time) int {
	if s.opts.IdleTTL <= 0 {
		return 0
	}
	cutoff := now.Add(-s.opts.IdleTTL)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for el := s.lru.Back(); el != nil; {
		t := el.Value.(*transcript)
		if !t.lastUsed.Before(cutoff) {
			break
		}
		prev := el.Prev()
		s.removeLocked(el)
		removed++
		el = prev
	}
	return removed
}

// Run sweeps idle sessions every interval until ctx is done.
func (s *MemoryStore) Run(ctx context.Context, interval time.Duration, logger *slog.Logger) {
	if s.opts.IdleTTL <= 0 || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(s.opts.Now()); n > 0 && logger != nil {
				logger.Info("Evicted idle sessions", "count", n, "remaining", s.Len())
			}
		}
	}
}

// lookup finds (and optionally creates) the transcript and marks it used.
func (s *MemoryStore) lookup(sessionID string, create bool) *transcript {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.opts.Now()
	if el, ok := s.sessions[sessionID]; ok {
		t := el.Value.(*transcript)
		t.lastUsed = now
		s.lru.MoveToFront(el)
		return t
	}
	if !create {
		return nil
	}

	if s.opts.MaxSessions > 0 {
		for len(s.sessions) >= s.opts.MaxSessions {
			s.removeLocked(s.lru.Back())
		}
	}

	t := &transcript{id: sessionID, lastUsed: now}
	s.sessions[sessionID] = s.lru.PushFront(t)
	return t
}

// removeLocked drops an entry; s.mu must be held.
func (s *MemoryStore) removeLocked(el *list.Element) {
	t := el.Value.(*transcript)
	s.lru.Remove(el)
	delete(s.sessions, t.id)

	t.mu.Lock()
	t.removed = true
	t.lines = nil
	t.mu.Unlock()
}
