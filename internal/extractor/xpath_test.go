package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scrapeforge/pkg/models"
)

func TestXPathExtractor_ScalarAndList(t *testing.T) {
	x := NewXPathExtractor()

	rules := []models.Rule{
		{FieldName: "title", SelectorKind: models.SelectorXPath, Selector: "//h1[@class='title']"},
		{FieldName: "tags", SelectorKind: models.SelectorXPath, Selector: "//ul[@class='tags']/li", IsList: true},
		{FieldName: "apply_url", SelectorKind: models.SelectorXPath, Selector: "//a[@class='apply']", Attribute: "href"},
	}

	data, err := x.Extract(sampleHTML, rules)
	require.NoError(t, err)

	assert.Equal(t, "Senior Go Engineer", data["title"].Scalar)
	assert.Equal(t, []string{"go", "postgres", "kubernetes"}, data["tags"].List)
	assert.Equal(t, "https://example.com/apply", data["apply_url"].Scalar)
}

func TestXPathExtractor_InvalidExpressionEmptiesFieldOnly(t *testing.T) {
	x := NewXPathExtractor()
	rules := []models.Rule{
		{FieldName: "title", SelectorKind: models.SelectorXPath, Selector: "//h1[@class='title']"},
		{FieldName: "broken", SelectorKind: models.SelectorXPath, Selector: "//*[not-a-valid-xpath((("},
	}

	data, err := x.Extract(sampleHTML, rules)
	require.NoError(t, err)
	assert.Equal(t, "Senior Go Engineer", data["title"].Scalar)
	assert.Equal(t, "", data["broken"].Scalar)
}
