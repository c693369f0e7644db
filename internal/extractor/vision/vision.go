// Package vision implements the last-resort OCR extractor used by the
// two-phase extraction pipeline when structured CSS/XPath rules leave
// required fields empty.
//
// The OCR engine and the key-value/list line heuristics are ported from the
// original scraper's Tesseract-based vision extractor: run OCR over the
// page screenshot, then pattern-match "Key: Value", "Key = Value" and
// "Key - Value" lines plus bullet/numbered list lines out of the resulting
// text.
package vision

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"scrapeforge/pkg/models"
)

var kvPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^([A-Za-z][A-Za-z0-9\s]{0,30}):\s*(.+)$`),
	regexp.MustCompile(`^([A-Za-z][A-Za-z0-9\s]{0,30})=\s*(.+)$`),
	regexp.MustCompile(`^([A-Za-z][A-Za-z0-9\s]{0,30})\s+-\s+(.+)$`),
}

var listLinePattern = regexp.MustCompile(`^[-*•\d]+[.)]?\s*(.+)$`)

// Extractor runs Tesseract OCR over a screenshot and heuristically matches
// key-value and list lines against the requested field rules.
type Extractor struct {
	lang string
}

func NewExtractor(lang string) *Extractor {
	if lang == "" {
		lang = "eng"
	}
	return &Extractor{lang: lang}
}

// Extract satisfies extractor.VisionExtractor. It OCRs the screenshot once,
// derives a key-value map and a flat list of bullet lines from the text,
// then maps those onto the requested fields by name/kind.
func (e *Extractor) Extract(ctx context.Context, screenshot []byte, rules []models.Rule) (map[string]models.FieldValue, error) {
	text, err := e.ocr(screenshot)
	if err != nil {
		return nil, err
	}

	kv, listItems := parseStructured(text)

	out := make(map[string]models.FieldValue, len(rules))
	for _, rule := range rules {
		key := normalizeKey(rule.FieldName)
		if rule.IsList {
			out[rule.FieldName] = models.FieldValue{IsList: true, List: listItems}
			continue
		}
		if val, ok := kv[key]; ok {
			out[rule.FieldName] = models.FieldValue{Scalar: val}
		}
	}
	return out, nil
}

func (e *Extractor) ocr(imageData []byte) (string, error) {
	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(e.lang); err != nil {
		return "", fmt.Errorf("vision: set language: %w", err)
	}
	if err := client.SetImageFromBytes(imageData); err != nil {
		return "", fmt.Errorf("vision: load image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("vision: ocr: %w", err)
	}
	return text, nil
}

func parseStructured(text string) (kv map[string]string, listItems []string) {
	kv = make(map[string]string)

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		matched := false
		for _, pattern := range kvPatterns {
			m := pattern.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			key := normalizeKey(m[1])
			value := strings.TrimSpace(m[2])
			if key != "" && value != "" {
				kv[key] = value
			}
			matched = true
			break
		}
		if matched {
			continue
		}

		if m := listLinePattern.FindStringSubmatch(line); m != nil {
			if item := strings.TrimSpace(m[1]); item != "" {
				listItems = append(listItems, item)
			}
		}
	}

	return kv, listItems
}

func normalizeKey(s string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), " ", "_"))
}
