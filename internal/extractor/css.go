// Package extractor implements the two-phase extraction pipeline:
// structured DOM extraction first (CSS or XPath selectors, field by field),
// falling back to vision/OCR extraction when the structured rules come up
// empty.
package extractor

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"scrapeforge/pkg/models"
)

// CSSExtractor evaluates CSS-selector rules against an HTML document with
// goquery, walking the rule set one field at a time.
type CSSExtractor struct{}

func NewCSSExtractor() *CSSExtractor {
	return &CSSExtractor{}
}

// Extract applies every CSS rule in order and returns one FieldValue per
// field name. A rule marked IsRequired that matches nothing does not fail
// the whole extraction — the worker decides what to do with missing
// required fields.
func (c *CSSExtractor) Extract(html string, rules []models.Rule) (map[string]models.FieldValue, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	out := make(map[string]models.FieldValue, len(rules))
	for _, rule := range rules {
		if rule.SelectorKind != models.SelectorCSS {
			continue
		}
		out[rule.FieldName] = c.extractField(doc, rule)
	}
	return out, nil
}

// extractField evaluates one rule's selector. A malformed CSS selector
// makes goquery/cascadia panic rather than return an error; recovered here
// so one bad rule only empties that field instead of failing the whole
// extraction.
func (c *CSSExtractor) extractField(doc *goquery.Document, rule models.Rule) (fv models.FieldValue) {
	defer func() {
		if r := recover(); r != nil {
			fv = models.FieldValue{}
		}
	}()

	sel := doc.Find(rule.Selector)

	if rule.IsList {
		var values []string
		sel.Each(func(_ int, s *goquery.Selection) {
			if v := fieldFromSelection(s, rule.Attribute); v != "" {
				values = append(values, v)
			}
		})
		return models.FieldValue{IsList: true, List: values}
	}

	return models.FieldValue{Scalar: fieldFromSelection(sel.First(), rule.Attribute)}
}

func fieldFromSelection(s *goquery.Selection, attribute string) string {
	if attribute != "" {
		val, _ := s.Attr(attribute)
		return strings.TrimSpace(val)
	}
	return strings.TrimSpace(s.Text())
}
