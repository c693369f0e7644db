// Package store defines the persistence port contracts: Job, URL,
// Rule, Result and Settings repositories. The orchestrator and worker only
// ever depend on these interfaces, never on a concrete backend, so a
// database-backed implementation can replace the in-memory one in
// internal/store/memory without touching business logic.
package store

import (
	"context"

	"scrapeforge/pkg/models"
)

type JobRepository interface {
	Create(ctx context.Context, job *models.Job) error
	Get(ctx context.Context, id string) (*models.Job, error)
	Update(ctx context.Context, job *models.Job) error
	List(ctx context.Context) ([]*models.Job, error)
	Delete(ctx context.Context, id string) error
}

type URLRepository interface {
	Insert(ctx context.Context, rec *models.URLRecord) error
	InsertBatch(ctx context.Context, recs []*models.URLRecord) error
	Get(ctx context.Context, id string) (*models.URLRecord, error)
	Update(ctx context.Context, rec *models.URLRecord) error
	ListByJob(ctx context.Context, jobID string) ([]*models.URLRecord, error)
	ListPendingByJob(ctx context.Context, jobID string, limit int) ([]*models.URLRecord, error)
	CountsByJob(ctx context.Context, jobID string) (models.URLCounts, error)
}

type RuleRepository interface {
	SetRules(ctx context.Context, jobID string, rules []models.Rule) error
	GetRules(ctx context.Context, jobID string) ([]models.Rule, error)
}

type ResultRepository interface {
	Save(ctx context.Context, result *models.Result) error
	Get(ctx context.Context, urlID string) (*models.Result, error)
	ListByJob(ctx context.Context, jobID string, urlIDs []string) ([]*models.Result, error)
}

type SettingsRepository interface {
	GetCascadeConfig(ctx context.Context, jobID string) (*models.CascadeConfig, error)
	SetCascadeConfig(ctx context.Context, jobID string, cfg models.CascadeConfig) error
}
