package applist

import "sync"

// LiveSet is a liveness oracle backed by a replaceable identifier set.
// The process layer pushes snapshots with Replace; Contains answers queries.
type LiveSet struct {
	mu  sync.RWMutex
	ids map[string]struct{}
}

// NewLiveSet returns an empty set.
func NewLiveSet() *LiveSet {
	return &LiveSet{ids: map[string]struct{}{}}
}

// Replace swaps the whole set. Empty identifiers are ignored.
func (s *LiveSet) Replace(identifiers []string) {
	next := make(map[string]struct{}, len(identifiers))
	for _, id := range identifiers {
		if id == "" {
			continue
		}
		next[id] = struct{}{}
	}
	s.mu.Lock()
	s.ids = next
	s.mu.Unlock()
}

// Contains reports whether identifier is currently live.
func (s *LiveSet) Contains(identifier string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.ids[identifier]
	return ok
}

// Len returns the number of live identifiers.
func (s *LiveSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ids)
}
