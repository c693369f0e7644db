package memory

import (
	"context"
	"sync"

	"scrapeforge/pkg/apperrors"
	"scrapeforge/pkg/models"
)

// ResultStore holds one Result per completed URL: a completed URL has
// exactly one associated Result.
type ResultStore struct {
	mu      sync.RWMutex
	results map[string]*models.Result // urlID -> result
}

func NewResultStore() *ResultStore {
	return &ResultStore{
		results: make(map[string]*models.Result),
	}
}

func (s *ResultStore) Save(ctx context.Context, result *models.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := *result
	s.results[result.URLID] = &clone
	return nil
}

func (s *ResultStore) Get(ctx context.Context, urlID string) (*models.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.results[urlID]
	if !ok {
		return nil, apperrors.NewNotFoundError("result not found for url: " + urlID)
	}
	clone := *r
	return &clone, nil
}

// ListByJob returns the stored results for the given urlIDs, in the order
// the urlIDs were given, skipping ids with no result. jobID is not used to
// filter: a Result carries no job id.
func (s *ResultStore) ListByJob(ctx context.Context, jobID string, urlIDs []string) ([]*models.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Result, 0, len(urlIDs))
	for _, id := range urlIDs {
		if r, ok := s.results[id]; ok {
			clone := *r
			out = append(out, &clone)
		}
	}
	return out, nil
}
