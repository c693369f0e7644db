package memory

import (
	"context"
	"sync"

	"scrapeforge/pkg/apperrors"
	"scrapeforge/pkg/models"
)

// SettingsStore holds per-job CascadeConfig overrides. A job without a
// stored override falls back to the orchestrator's process-wide default.
type SettingsStore struct {
	mu       sync.RWMutex
	cascades map[string]models.CascadeConfig
}

func NewSettingsStore() *SettingsStore {
	return &SettingsStore{cascades: make(map[string]models.CascadeConfig)}
}

func (s *SettingsStore) GetCascadeConfig(ctx context.Context, jobID string) (*models.CascadeConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cfg, ok := s.cascades[jobID]
	if !ok {
		return nil, apperrors.NewNotFoundError("no cascade override for job: " + jobID)
	}
	clone := cfg
	return &clone, nil
}

func (s *SettingsStore) SetCascadeConfig(ctx context.Context, jobID string, cfg models.CascadeConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cascades[jobID] = cfg
	return nil
}
