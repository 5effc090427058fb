package store

import (
	"sync"

	"github.com/matst80/slask-docs/pkg/types"
)

// ItemStore holds the fetched document collection. Load replaces the whole
// collection atomically, readers always see either the old or the new slice,
// never a partial update.
type ItemStore struct {
	mu         sync.RWMutex
	items      []types.DocumentItem
	generation uint64
}

func NewItemStore() *ItemStore {
	return &ItemStore{items: []types.DocumentItem{}}
}

// Load replaces the held collection. The input is copied so later mutations
// by the caller cannot leak into a render pass.
func (s *ItemStore) Load(items []types.DocumentItem) {
	copied := make([]types.DocumentItem, len(items))
	copy(copied, items)
	s.mu.Lock()
	s.items = copied
	s.generation++
	s.mu.Unlock()
}

// All returns the current collection. The slice is stable for the duration of
// one render pass, callers must not mutate it.
func (s *ItemStore) All() []types.DocumentItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.items
}

func (s *ItemStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Generation increments on every Load, used to detect that facet state built
// from an older collection is stale.
func (s *ItemStore) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}
