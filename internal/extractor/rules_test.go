package extractor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scrapeforge/pkg/models"
)

type fakeVision struct {
	data map[string]models.FieldValue
	err  error
}

func (f *fakeVision) Extract(ctx context.Context, screenshot []byte, rules []models.Rule) (map[string]models.FieldValue, error) {
	return f.data, f.err
}

func TestPipeline_SkipsVisionWhenStructuredSatisfiesRequired(t *testing.T) {
	p := NewPipeline(&fakeVision{data: map[string]models.FieldValue{"title": {Scalar: "should not be used"}}})

	rules := []models.Rule{
		{FieldName: "title", SelectorKind: models.SelectorCSS, Selector: "h1.title", IsRequired: true},
	}

	result, err := p.Run(context.Background(), sampleHTML, nil, rules)
	require.NoError(t, err)
	assert.Equal(t, "Senior Go Engineer", result.Data["title"].Scalar)
	assert.False(t, result.VisionExtracted)
	assert.Equal(t, "structured", result.Method)
}

func TestPipeline_FallsBackToVisionWhenRequiredFieldMissing(t *testing.T) {
	p := NewPipeline(&fakeVision{data: map[string]models.FieldValue{
		"salary": {Scalar: "$150k"},
	}})

	rules := []models.Rule{
		{FieldName: "title", SelectorKind: models.SelectorCSS, Selector: "h1.title", IsRequired: true},
		{FieldName: "salary", SelectorKind: models.SelectorCSS, Selector: ".salary", IsRequired: true},
	}

	result, err := p.Run(context.Background(), sampleHTML, []byte("fake-screenshot"), rules)
	require.NoError(t, err)
	assert.Equal(t, "Senior Go Engineer", result.Data["title"].Scalar)
	assert.Equal(t, "$150k", result.Data["salary"].Scalar)
	assert.True(t, result.VisionExtracted)
	assert.Equal(t, "structured+vision", result.Method)
}

func TestPipeline_FallsBackToVisionWhenAllOptionalRulesEmpty(t *testing.T) {
	p := NewPipeline(&fakeVision{data: map[string]models.FieldValue{
		"tagline": {Scalar: "Now hiring"},
	}})

	rules := []models.Rule{
		{FieldName: "tagline", SelectorKind: models.SelectorCSS, Selector: ".tagline-does-not-exist", IsRequired: false},
	}

	result, err := p.Run(context.Background(), sampleHTML, []byte("fake-screenshot"), rules)
	require.NoError(t, err)
	assert.Equal(t, "Now hiring", result.Data["tagline"].Scalar)
	assert.True(t, result.VisionExtracted)
	assert.Equal(t, "structured+vision", result.Method)
}

func TestPipeline_NoVisionWithoutScreenshot(t *testing.T) {
	p := NewPipeline(&fakeVision{data: map[string]models.FieldValue{"salary": {Scalar: "$150k"}}})

	rules := []models.Rule{
		{FieldName: "salary", SelectorKind: models.SelectorCSS, Selector: ".salary", IsRequired: true},
	}

	result, err := p.Run(context.Background(), sampleHTML, nil, rules)
	require.NoError(t, err)
	assert.False(t, result.VisionExtracted)
	assert.Equal(t, "", result.Data["salary"].Scalar)
}
