package cascade

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scrapeforge/internal/breaker"
	"scrapeforge/internal/cascade/fetchers"
	"scrapeforge/internal/logging"
	"scrapeforge/internal/poison"
	"scrapeforge/pkg/models"
)

type scriptedFetcher struct {
	name   string
	result models.FetchResult
}

func (s *scriptedFetcher) Name() string { return s.name }
func (s *scriptedFetcher) Fetch(ctx context.Context, url string, opts models.FetchOptions) (models.FetchResult, error) {
	return s.result, nil
}

func newTestEngine(t *testing.T, fs ...fetchers.Fetcher) *Engine {
	reg := fetchers.NewRegistry()
	for _, f := range fs {
		reg.Register(f)
	}
	breakers := breaker.NewRegistry(breaker.Config{FailureThreshold: 5, RecoveryTimeout: time.Hour, HalfOpenMaxCalls: 2})
	detector := poison.NewDetector(50)
	return NewEngine(reg, breakers, detector, logging.GetGlobalLogger(), 1000, 1000)
}

func TestEngine_FirstTierSucceeds(t *testing.T) {
	e := newTestEngine(t, &scriptedFetcher{name: "http", result: models.FetchResult{
		Success: true, StatusCode: 200, HTML: "<html>" + stringsRepeat("content ", 100) + "</html>",
	}})

	cfg := models.CascadeConfig{Enabled: true, Order: []string{"http"}, MaxAttempts: 1, FallbackOn: models.DefaultFallbackOn()}
	outcome := e.Fetch(context.Background(), "https://example.com/a", cfg, models.FetchOptions{})

	require.True(t, outcome.Success)
	assert.Equal(t, "http", outcome.MethodUsed)
}

func TestEngine_FallsBackOnBlockedStatus(t *testing.T) {
	http := &scriptedFetcher{name: "http", result: models.FetchResult{Success: false, StatusCode: 403}}
	headless := &scriptedFetcher{name: "headless", result: models.FetchResult{
		Success: true, StatusCode: 200, HTML: "<html>" + stringsRepeat("content ", 100) + "</html>",
	}}
	e := newTestEngine(t, http, headless)

	cfg := models.CascadeConfig{Enabled: true, Order: []string{"http", "headless"}, MaxAttempts: 2, FallbackOn: models.DefaultFallbackOn()}
	outcome := e.Fetch(context.Background(), "https://example.com/a", cfg, models.FetchOptions{})

	require.True(t, outcome.Success)
	assert.Equal(t, "headless", outcome.MethodUsed)
	require.Len(t, outcome.Attempts, 2)
	assert.Equal(t, "status_code", outcome.Attempts[0].FallbackReason)
}

func TestEngine_StopsAtMaxAttempts(t *testing.T) {
	http := &scriptedFetcher{name: "http", result: models.FetchResult{Success: false, StatusCode: 403}}
	headless := &scriptedFetcher{name: "headless", result: models.FetchResult{Success: false, StatusCode: 403}}
	e := newTestEngine(t, http, headless)

	cfg := models.CascadeConfig{Enabled: true, Order: []string{"http", "headless"}, MaxAttempts: 1, FallbackOn: models.DefaultFallbackOn()}
	outcome := e.Fetch(context.Background(), "https://example.com/a", cfg, models.FetchOptions{})

	assert.False(t, outcome.Success)
	assert.Len(t, outcome.Attempts, 1)
}

func TestEngine_BreakerOpenSkipsTier(t *testing.T) {
	reg := fetchers.NewRegistry()
	failing := &scriptedFetcher{name: "http", result: models.FetchResult{Success: false, StatusCode: 403}}
	healthy := &scriptedFetcher{name: "headless", result: models.FetchResult{Success: true, StatusCode: 200, HTML: stringsRepeat("x", 600)}}
	reg.Register(failing)
	reg.Register(healthy)

	breakers := breaker.NewRegistry(breaker.Config{FailureThreshold: 1, RecoveryTimeout: time.Hour, HalfOpenMaxCalls: 1})
	detector := poison.NewDetector(50)
	e := NewEngine(reg, breakers, detector, logging.GetGlobalLogger(), 1000, 1000)

	cfg := models.CascadeConfig{Enabled: true, Order: []string{"http", "headless"}, MaxAttempts: 3, FallbackOn: models.DefaultFallbackOn()}

	outcome := e.Fetch(context.Background(), "https://example.com/a", cfg, models.FetchOptions{})
	require.True(t, outcome.Success)

	outcome2 := e.Fetch(context.Background(), "https://example.com/b", cfg, models.FetchOptions{})
	assert.True(t, outcome2.Success)
	assert.Len(t, outcome2.Attempts, 1, "http breaker should be open for this domain, skipping straight to headless")
}

func stringsRepeat(s string, n int) string {
	out := make([]byte, 0, len(s)*n)
	for i := 0; i < n; i++ {
		out = append(out, s...)
	}
	return string(out)
}
