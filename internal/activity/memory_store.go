package activity

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore implements Store using an in-memory slice.
// Used when no journal database is configured, and in tests.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []Entry
	ids     map[string]bool
}

// NewMemoryStore creates a new empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{ids: make(map[string]bool)}
}

func (s *MemoryStore) Append(_ context.Context, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ids[e.ID] {
		return nil
	}
	s.ids[e.ID] = true
	s.entries = append(s.entries, e)
	return nil
}

func (s *MemoryStore) List(_ context.Context, opts QueryOptions) ([]Entry, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cur, hasCursor := decodeCursor(opts.Cursor)

	var matched []Entry
	for _, e := range s.entries {
		if opts.Operation != "" && e.Operation != opts.Operation {
			continue
		}
		if opts.Outcome != "" && e.Outcome != opts.Outcome {
			continue
		}
		if opts.Since != nil && e.OccurredAt.Before(*opts.Since) {
			continue
		}
		if hasCursor && !cur.follows(e) {
			continue
		}
		matched = append(matched, e)
	}

	sort.Slice(matched, func(i, j int) bool { return newer(matched[i], matched[j]) })

	limit := opts.limit()
	var next string
	if len(matched) > limit {
		matched = matched[:limit]
		next = encodeCursor(matched[len(matched)-1])
	}
	return matched, next, nil
}
