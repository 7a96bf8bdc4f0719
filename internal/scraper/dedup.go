package scraper

import (
	"context"
	"sync"
)

// MemoryDedup is the in-process Dedup used when Redis is not configured.
// Seen identifiers are lost on restart, so a redeploy may re-alert once.
type MemoryDedup struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewMemoryDedup returns an empty MemoryDedup.
func NewMemoryDedup() *MemoryDedup {
	return &MemoryDedup{seen: make(map[string]struct{})}
}

// MarkSeen records the identifier and reports whether it was already
// present.
func (m *MemoryDedup) MarkSeen(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.seen[id]; ok {
		return true, nil
	}
	m.seen[id] = struct{}{}
	return false, nil
}
