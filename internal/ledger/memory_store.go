package ledger

import (
	"context"
	"sync"
)

// MemoryStore is the in-memory Store used by default and in tests. A single
// mutex guards both the per-user and the global sequences so an append is
// atomic across them.
type MemoryStore struct {
	mu     sync.Mutex
	byUser map[string][]*Entry
	global []*Entry
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byUser: make(map[string][]*Entry)}
}

// Append stores a copy of the entry, evicting the oldest per-user entry
// beyond MaxUserHistory and the oldest global entry beyond MaxGlobalEntries.
func (s *MemoryStore) Append(ctx context.Context, e *Entry) error {
	if e == nil {
		return ErrNilEntry
	}
	cp := *e

	s.mu.Lock()
	defer s.mu.Unlock()

	user := append(s.byUser[e.UserID], &cp)
	if len(user) > MaxUserHistory {
		user = user[len(user)-MaxUserHistory:]
	}
	s.byUser[e.UserID] = user

	s.global = append(s.global, &cp)
	if len(s.global) > MaxGlobalEntries {
		s.global = s.global[len(s.global)-MaxGlobalEntries:]
	}

	return nil
}

// History returns copies of the user's entries in insertion order.
func (s *MemoryStore) History(ctx context.Context, userID string) ([]*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.byUser[userID]
	out := make([]*Entry, len(entries))
	for i, e := range entries {
		cp := *e
		out[i] = &cp
	}
	return out, nil
}

// RecentGlobal returns copies of up to n recent entries, newest first.
func (s *MemoryStore) RecentGlobal(ctx context.Context, n int) ([]*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n > len(s.global) {
		n = len(s.global)
	}
	out := make([]*Entry, 0, n)
	for i := len(s.global) - 1; i >= len(s.global)-n; i-- {
		cp := *s.global[i]
		out = append(out, &cp)
	}
	return out, nil
}

// CountUserInRecent counts the user's entries among the most recent window
// global entries.
func (s *MemoryStore) CountUserInRecent(ctx context.Context, userID string, window int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := len(s.global) - window
	if start < 0 {
		start = 0
	}
	count := 0
	for _, e := range s.global[start:] {
		if e.UserID == userID {
			count++
		}
	}
	return count, nil
}
