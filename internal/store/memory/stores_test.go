package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scrapeforge/pkg/models"
)

func TestRuleStore_SetAndGetIsDefensiveCopy(t *testing.T) {
	ctx := context.Background()
	s := NewRuleStore()

	rules := []models.Rule{{JobID: "job1", FieldName: "title", SelectorKind: models.SelectorCSS, Selector: "h1"}}
	require.NoError(t, s.SetRules(ctx, "job1", rules))

	got, err := s.GetRules(ctx, "job1")
	require.NoError(t, err)
	require.Len(t, got, 1)

	got[0].FieldName = "mutated"

	again, err := s.GetRules(ctx, "job1")
	require.NoError(t, err)
	assert.Equal(t, "title", again[0].FieldName)
}

func TestRuleStore_UnknownJobReturnsEmpty(t *testing.T) {
	s := NewRuleStore()
	got, err := s.GetRules(context.Background(), "missing")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestResultStore_SaveAndGet(t *testing.T) {
	ctx := context.Background()
	s := NewResultStore()

	result := &models.Result{URLID: "url1", Data: map[string]models.FieldValue{"title": {Scalar: "hi"}}, Method: "http"}
	require.NoError(t, s.Save(ctx, result))

	got, err := s.Get(ctx, "url1")
	require.NoError(t, err)
	assert.Equal(t, "hi", got.Data["title"].Scalar)
}

func TestResultStore_GetMissingReturnsNotFound(t *testing.T) {
	s := NewResultStore()
	_, err := s.Get(context.Background(), "nope")
	assert.Error(t, err)
}

func TestResultStore_ListByJobPreservesOrderAndSkipsMissing(t *testing.T) {
	ctx := context.Background()
	s := NewResultStore()
	require.NoError(t, s.Save(ctx, &models.Result{URLID: "a", Data: map[string]models.FieldValue{"x": {Scalar: "1"}}}))
	require.NoError(t, s.Save(ctx, &models.Result{URLID: "b", Data: map[string]models.FieldValue{"x": {Scalar: "2"}}}))

	results, err := s.ListByJob(ctx, "job1", []string{"a", "missing", "b"})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].URLID)
	assert.Equal(t, "b", results[1].URLID)
}

func TestSettingsStore_GetWithoutOverrideIsNotFound(t *testing.T) {
	s := NewSettingsStore()
	_, err := s.GetCascadeConfig(context.Background(), "job1")
	assert.Error(t, err)
}

func TestSettingsStore_SetThenGet(t *testing.T) {
	ctx := context.Background()
	s := NewSettingsStore()
	cfg := models.CascadeConfig{Enabled: true, Order: []string{"http"}, MaxAttempts: 1, FallbackOn: models.DefaultFallbackOn()}

	require.NoError(t, s.SetCascadeConfig(ctx, "job1", cfg))

	got, err := s.GetCascadeConfig(ctx, "job1")
	require.NoError(t, err)
	assert.Equal(t, []string{"http"}, got.Order)
}
