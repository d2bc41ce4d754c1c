package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/aretw0/nonplanar/pkg/domain"
)

// Store implements ports.JobStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]*domain.Job
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]*domain.Job),
	}
}

// Save persists a copy of the job in memory.
func (s *Store) Save(ctx context.Context, job *domain.Job) error {
	copied := job.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[job.ID] = copied
	return nil
}

// Load retrieves a copy of the job so callers can't mutate stored state.
func (s *Store) Load(ctx context.Context, id string) (*domain.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.data[id]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	return job.Clone(), nil
}

// Delete removes the job.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, id)
	return nil
}

// List returns job IDs, most recent first.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	jobs := make([]*domain.Job, 0, len(s.data))
	for _, j := range s.data {
		jobs = append(jobs, j)
	}
	s.mu.RUnlock()

	sort.Slice(jobs, func(a, b int) bool {
		if !jobs[a].CreatedAt.Equal(jobs[b].CreatedAt) {
			return jobs[a].CreatedAt.After(jobs[b].CreatedAt)
		}
		return jobs[a].ID < jobs[b].ID
	})
	ids := make([]string, len(jobs))
	for i, j := range jobs {
		ids[i] = j.ID
	}
	return ids, nil
}
