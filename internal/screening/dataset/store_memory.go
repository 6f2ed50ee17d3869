package dataset

import (
	"context"
	"sync"

	"vigil/internal/screening/models"
	"vigil/internal/screening/normalize"
)

// MemoryStore indexes entities by every normalized name they carry. Used in
// tests and as the default when no Postgres DSN is configured.
type MemoryStore struct {
	normalizer *normalize.Normalizer

	mu    sync.RWMutex
	index map[string][]models.CandidateEntity
}

// NewMemoryStore builds an empty in-memory dataset.
func NewMemoryStore(normalizer *normalize.Normalizer) *MemoryStore {
	return &MemoryStore{
		normalizer: normalizer,
		index:      make(map[string][]models.CandidateEntity),
	}
}

// Add indexes an entity under the normalized form of each of its names.
// Names that normalize to nothing are skipped.
func (s *MemoryStore) Add(entity models.CandidateEntity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[string]struct{})
	for _, raw := range entity.Names() {
		name, err := s.normalizer.Normalize(raw)
		if err != nil {
			continue
		}
		// Distinct raw names can normalize to one key; index each key once.
		key := name.Full()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		s.index[key] = append(s.index[key], entity)
	}
}

// Lookup implements Store.
func (s *MemoryStore) Lookup(_ context.Context, name normalize.Name) ([]models.CandidateEntity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entities := s.index[name.Full()]
	out := make([]models.CandidateEntity, len(entities))
	copy(out, entities)
	return out, nil
}
