package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scrapeforge/pkg/models"
)

const sampleHTML = `
<html>
<body>
  <h1 class="title">Senior Go Engineer</h1>
  <div class="company">Acme Corp</div>
  <ul class="tags">
    <li>go</li>
    <li>postgres</li>
    <li>kubernetes</li>
  </ul>
  <a class="apply" href="https://example.com/apply">Apply</a>
</body>
</html>`

func TestCSSExtractor_ScalarAndList(t *testing.T) {
	c := NewCSSExtractor()

	rules := []models.Rule{
		{FieldName: "title", SelectorKind: models.SelectorCSS, Selector: "h1.title"},
		{FieldName: "company", SelectorKind: models.SelectorCSS, Selector: ".company"},
		{FieldName: "tags", SelectorKind: models.SelectorCSS, Selector: ".tags li", IsList: true},
		{FieldName: "apply_url", SelectorKind: models.SelectorCSS, Selector: "a.apply", Attribute: "href"},
		{FieldName: "missing", SelectorKind: models.SelectorCSS, Selector: ".does-not-exist"},
	}

	data, err := c.Extract(sampleHTML, rules)
	require.NoError(t, err)

	assert.Equal(t, "Senior Go Engineer", data["title"].Scalar)
	assert.Equal(t, "Acme Corp", data["company"].Scalar)
	assert.Equal(t, []string{"go", "postgres", "kubernetes"}, data["tags"].List)
	assert.Equal(t, "https://example.com/apply", data["apply_url"].Scalar)
	assert.Equal(t, "", data["missing"].Scalar)
}

func TestCSSExtractor_InvalidSelectorEmptiesFieldOnly(t *testing.T) {
	c := NewCSSExtractor()
	rules := []models.Rule{
		{FieldName: "title", SelectorKind: models.SelectorCSS, Selector: "h1.title"},
		{FieldName: "broken", SelectorKind: models.SelectorCSS, Selector: ":::not-a-selector((("},
	}

	data, err := c.Extract(sampleHTML, rules)
	require.NoError(t, err)
	assert.Equal(t, "Senior Go Engineer", data["title"].Scalar)
	assert.Equal(t, "", data["broken"].Scalar)
}

func TestCSSExtractor_SkipsNonCSSRules(t *testing.T) {
	c := NewCSSExtractor()
	rules := []models.Rule{
		{FieldName: "title", SelectorKind: models.SelectorXPath, Selector: "//h1"},
	}

	data, err := c.Extract(sampleHTML, rules)
	require.NoError(t, err)
	assert.Empty(t, data)
}
