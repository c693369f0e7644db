// Package memory implements store's repository contracts in process memory,
// using a sync.RWMutex-guarded map per repository with shallow copies in
// and out, so assigning to a field of a returned struct never changes stored
// state; maps, slices and pointers inside a record are shared with the
// stored copy.
package memory

import (
	"context"
	"sync"

	"scrapeforge/pkg/apperrors"
	"scrapeforge/pkg/models"
)

type JobStore struct {
	mu   sync.RWMutex
	jobs map[string]*models.Job
}

func NewJobStore() *JobStore {
	return &JobStore{jobs: make(map[string]*models.Job)}
}

func (s *JobStore) Create(ctx context.Context, job *models.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[job.ID]; exists {
		return apperrors.NewConflictError("job already exists: " + job.ID)
	}
	clone := *job
	s.jobs[job.ID] = &clone
	return nil
}

func (s *JobStore) Get(ctx context.Context, id string) (*models.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("job not found: " + id)
	}
	clone := *job
	return &clone, nil
}

func (s *JobStore) Update(ctx context.Context, job *models.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[job.ID]; !ok {
		return apperrors.NewNotFoundError("job not found: " + job.ID)
	}
	clone := *job
	s.jobs[job.ID] = &clone
	return nil
}

func (s *JobStore) List(ctx context.Context) ([]*models.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		clone := *job
		out = append(out, &clone)
	}
	return out, nil
}

func (s *JobStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[id]; !ok {
		return apperrors.NewNotFoundError("job not found: " + id)
	}
	delete(s.jobs, id)
	return nil
}
