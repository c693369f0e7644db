// Package fetchers defines the fetcher port the cascade engine dispatches
// against and the cheapest-to-most-expensive tiers that implement it.
package fetchers

import (
	"context"

	"scrapeforge/pkg/models"
)

// Fetcher is the cascade engine's fetcher port. Every tier — plain
// HTTP, residential-proxy HTTP, headless browser, AI-driven — implements
// the same contract so the engine can walk the configured order without
// knowing the concrete tier.
type Fetcher interface {
	Name() string
	Fetch(ctx context.Context, url string, opts models.FetchOptions) (models.FetchResult, error)
}

// Registry maps fetcher names (as used in CascadeConfig.Order) to Fetcher
// instances.
type Registry struct {
	fetchers map[string]Fetcher
}

func NewRegistry() *Registry {
	return &Registry{fetchers: make(map[string]Fetcher)}
}

func (r *Registry) Register(f Fetcher) {
	r.fetchers[f.Name()] = f
}

func (r *Registry) Get(name string) (Fetcher, bool) {
	f, ok := r.fetchers[name]
	return f, ok
}
