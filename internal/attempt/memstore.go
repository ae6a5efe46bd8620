package attempt

import (
	"context"
	"slices"
	"sync"
	"time"
)

// Compile-time assertion that MemStore satisfies the Store interface.
var _ Store = (*MemStore)(nil)

// MemStore is a thread-safe, in-memory implementation of [Store]. Attempts
// are lost when the process exits. The zero value is ready to use.
type MemStore struct {
	mu        sync.RWMutex
	nextID    int64
	attempts  []Attempt
	bySession map[string][]int // indexes into attempts, oldest first
	now       func() time.Time
}

// NewMemStore returns an initialised [MemStore].
func NewMemStore() *MemStore {
	return &MemStore{bySession: make(map[string][]int)}
}

// Save implements [Store.Save].
func (s *MemStore) Save(_ context.Context, a Attempt) (Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.bySession == nil {
		s.bySession = make(map[string][]int)
	}
	s.nextID++
	a.ID = s.nextID
	if a.CreatedAt.IsZero() {
		a.CreatedAt = s.clock().UTC()
	}
	a = cloneAttempt(a)

	s.attempts = append(s.attempts, a)
	s.bySession[a.SessionID] = append(s.bySession[a.SessionID], len(s.attempts)-1)
	return cloneAttempt(a), nil
}

// Get implements [Store.Get].
func (s *MemStore) Get(_ context.Context, id int64) (Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// IDs are dense and start at 1.
	if id < 1 || id > int64(len(s.attempts)) {
		return Attempt{}, ErrNotFound
	}
	return cloneAttempt(s.attempts[id-1]), nil
}

// List implements [Store.List].
func (s *MemStore) List(_ context.Context, sessionID string, limit int) ([]Attempt, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := s.bySession[sessionID]
	out := make([]Attempt, 0, min(limit, len(idx)))
	for i := len(idx) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, cloneAttempt(s.attempts[idx[i]]))
	}
	return out, nil
}

// Ping implements [Store.Ping]. It always succeeds.
func (s *MemStore) Ping(context.Context) error { return nil }

// Close implements [Store.Close]. It is a no-op.
func (s *MemStore) Close() {}

func (s *MemStore) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}

func cloneAttempt(a Attempt) Attempt {
	a.Phonemes = slices.Clone(a.Phonemes)
	a.Words = slices.Clone(a.Words)
	return a
}
