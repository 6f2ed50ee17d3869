package batch

import (
	"context"
	"sort"
	"sync"

	id "vigil/pkg/domain"
	dErrors "vigil/pkg/domain-errors"
	"vigil/internal/screening/models"
)

// JobStore persists batch jobs and their item outcomes.
type JobStore interface {
	Create(ctx context.Context, job models.BatchJob) error
	// Update applies a mutation under the store's lock and returns the
	// resulting snapshot.
	Update(ctx context.Context, jobID id.BatchID, apply func(*models.BatchJob)) (models.BatchJob, error)
	AppendOutcome(ctx context.Context, jobID id.BatchID, outcome models.ItemOutcome) error
	Job(ctx context.Context, jobID id.BatchID) (models.BatchJob, error)
	// Outcomes returns the recorded outcomes ordered by submission index.
	Outcomes(ctx context.Context, jobID id.BatchID) ([]models.ItemOutcome, error)
}

// MemoryStore is an in-process JobStore. Jobs live until process exit.
type MemoryStore struct {
	mu       sync.RWMutex
	jobs     map[id.BatchID]models.BatchJob
	outcomes map[id.BatchID][]models.ItemOutcome
}

// NewMemoryStore builds an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		jobs:     make(map[id.BatchID]models.BatchJob),
		outcomes: make(map[id.BatchID][]models.ItemOutcome),
	}
}

func (s *MemoryStore) Create(_ context.Context, job models.BatchJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[job.ID]; exists {
		return dErrors.Newf(dErrors.CodeConflict, "batch job %s already exists", job.ID)
	}
	s.jobs[job.ID] = job
	return nil
}

func (s *MemoryStore) Update(_ context.Context, jobID id.BatchID, apply func(*models.BatchJob)) (models.BatchJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return models.BatchJob{}, dErrors.Newf(dErrors.CodeNotFound, "batch job %s not found", jobID)
	}
	apply(&job)
	s.jobs[jobID] = job
	return job, nil
}

func (s *MemoryStore) AppendOutcome(_ context.Context, jobID id.BatchID, outcome models.ItemOutcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[jobID]; !ok {
		return dErrors.Newf(dErrors.CodeNotFound, "batch job %s not found", jobID)
	}
	s.outcomes[jobID] = append(s.outcomes[jobID], outcome)
	return nil
}

func (s *MemoryStore) Job(_ context.Context, jobID id.BatchID) (models.BatchJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return models.BatchJob{}, dErrors.Newf(dErrors.CodeNotFound, "batch job %s not found", jobID)
	}
	return job, nil
}

func (s *MemoryStore) Outcomes(_ context.Context, jobID id.BatchID) ([]models.ItemOutcome, error) {
	s.mu.RLock()
	recorded, ok := s.outcomes[jobID]
	if !ok {
		if _, exists := s.jobs[jobID]; !exists {
			s.mu.RUnlock()
			return nil, dErrors.Newf(dErrors.CodeNotFound, "batch job %s not found", jobID)
		}
	}
	out := make([]models.ItemOutcome, len(recorded))
	copy(out, recorded)
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out, nil
}
