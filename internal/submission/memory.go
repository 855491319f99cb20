package submission

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	sub     Submission
	expires time.Time
}

// MemoryStore keeps submissions in process. Expired entries are pruned on
// every Save.
type MemoryStore struct {
	mu    sync.Mutex
	items map[string]memoryEntry
	ttl   time.Duration
	now   func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		items: make(map[string]memoryEntry),
		ttl:   ttl,
		now:   time.Now,
	}
}

func (s *MemoryStore) Save(_ context.Context, sub Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for id, entry := range s.items {
		if !entry.expires.After(now) {
			delete(s.items, id)
		}
	}
	s.items[sub.ID] = memoryEntry{sub: sub, expires: now.Add(s.ttl)}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.items[id]
	if !ok || !entry.expires.After(s.now()) {
		return Submission{}, ErrNotFound
	}
	return entry.sub, nil
}

// Len returns the number of stored entries, expired ones included.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}
