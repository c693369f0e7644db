package fetchers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"scrapeforge/pkg/models"
)

type stubFetcher struct {
	name string
}

func (s *stubFetcher) Name() string { return s.name }

func (s *stubFetcher) Fetch(ctx context.Context, url string, opts models.FetchOptions) (models.FetchResult, error) {
	return models.FetchResult{Success: true, HTML: "<html></html>", StatusCode: 200}, nil
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubFetcher{name: "http"})
	r.Register(&stubFetcher{name: "headless"})

	f, ok := r.Get("http")
	assert.True(t, ok)
	assert.Equal(t, "http", f.Name())

	_, ok = r.Get("nonexistent")
	assert.False(t, ok)
}
