package extractor

import (
	"context"

	"scrapeforge/pkg/models"
)

// VisionExtractor is the fallback OCR-style extractor used when structured
// rules produce nothing usable.
type VisionExtractor interface {
	Extract(ctx context.Context, screenshot []byte, rules []models.Rule) (map[string]models.FieldValue, error)
}

// Pipeline runs the two-phase extraction: structured selectors first, then
// vision fallback if the structured pass left required fields empty and a
// screenshot is available.
type Pipeline struct {
	css    *CSSExtractor
	xpath  *XPathExtractor
	vision VisionExtractor
}

func NewPipeline(vision VisionExtractor) *Pipeline {
	return &Pipeline{
		css:    NewCSSExtractor(),
		xpath:  NewXPathExtractor(),
		vision: vision,
	}
}

// Run extracts fields from html according to rules, falling back to vision
// extraction over screenshot when the structured pass produced no data at
// all, or left a required field empty.
func (p *Pipeline) Run(ctx context.Context, html string, screenshot []byte, rules []models.Rule) (*models.Result, error) {
	cssRules, xpathRules := splitRules(rules)

	data := make(map[string]models.FieldValue, len(rules))

	if len(cssRules) > 0 {
		cssData, err := p.css.Extract(html, cssRules)
		if err != nil {
			return nil, err
		}
		mergeInto(data, cssData)
	}

	if len(xpathRules) > 0 {
		xpathData, err := p.xpath.Extract(html, xpathRules)
		if err != nil {
			return nil, err
		}
		mergeInto(data, xpathData)
	}

	result := &models.Result{Data: data, Method: "structured", RawHTML: html}

	noData := len(rules) > 0
	for _, v := range data {
		if !isEmptyValue(v) {
			noData = false
			break
		}
	}
	if (noData || missingRequired(data, rules)) && p.vision != nil && len(screenshot) > 0 {
		visionData, err := p.vision.Extract(ctx, screenshot, rules)
		if err == nil {
			for field, val := range visionData {
				if existing, ok := data[field]; !ok || isEmptyValue(existing) {
					data[field] = val
				}
			}
			result.VisionExtracted = true
			result.Method = "structured+vision"
		}
	}

	return result, nil
}

func splitRules(rules []models.Rule) (css, xpath []models.Rule) {
	for _, r := range rules {
		switch r.SelectorKind {
		case models.SelectorCSS:
			css = append(css, r)
		case models.SelectorXPath:
			xpath = append(xpath, r)
		}
	}
	return css, xpath
}

func mergeInto(dst, src map[string]models.FieldValue) {
	for k, v := range src {
		dst[k] = v
	}
}

func isEmptyValue(v models.FieldValue) bool {
	if v.IsList {
		return len(v.List) == 0
	}
	return v.Scalar == ""
}

func missingRequired(data map[string]models.FieldValue, rules []models.Rule) bool {
	for _, r := range rules {
		if !r.IsRequired {
			continue
		}
		v, ok := data[r.FieldName]
		if !ok || isEmptyValue(v) {
			return true
		}
	}
	return false
}
