package cache

import (
	"context"
	"sync"
	"time"

	"vigil/internal/screening/models"
)

// Memory is an in-process TTL cache. Expired entries are dropped lazily on
// read; the working set is small (one entry per distinct call signature)
// so no background sweeper is needed.
type Memory struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.RWMutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	candidates []models.CandidateEntity
	expiresAt  time.Time
}

// NewMemory builds an in-memory cache with the given TTL.
func NewMemory(ttl time.Duration) *Memory {
	return &Memory{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]memoryEntry),
	}
}

// Get implements Store.
func (m *Memory) Get(_ context.Context, key string) ([]models.CandidateEntity, bool) {
	m.mu.RLock()
	entry, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if m.now().After(entry.expiresAt) {
		m.mu.Lock()
		delete(m.entries, key)
		m.mu.Unlock()
		return nil, false
	}
	return entry.candidates, true
}

// Set implements Store.
func (m *Memory) Set(_ context.Context, key string, candidates []models.CandidateEntity) {
	m.mu.Lock()
	m.entries[key] = memoryEntry{
		candidates: candidates,
		expiresAt:  m.now().Add(m.ttl),
	}
	m.mu.Unlock()
}
