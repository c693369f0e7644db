package extractor

import (
	"strings"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"

	"scrapeforge/pkg/models"
)

// XPathExtractor evaluates XPath-selector rules against an HTML document.
// There is no XPath engine anywhere in the reference pack; antchfx's
// htmlquery/xpath pairing is the ecosystem-standard counterpart to
// goquery/cascadia used by CSSExtractor.
type XPathExtractor struct{}

func NewXPathExtractor() *XPathExtractor {
	return &XPathExtractor{}
}

// Extract applies every XPath rule in order and returns one FieldValue per
// field name.
func (x *XPathExtractor) Extract(htmlSrc string, rules []models.Rule) (map[string]models.FieldValue, error) {
	root, err := htmlquery.Parse(strings.NewReader(htmlSrc))
	if err != nil {
		return nil, err
	}

	out := make(map[string]models.FieldValue, len(rules))
	for _, rule := range rules {
		if rule.SelectorKind != models.SelectorXPath {
			continue
		}
		out[rule.FieldName] = x.extractField(root, rule)
	}
	return out, nil
}

// extractField evaluates one rule's XPath expression. htmlquery.Find panics
// on a malformed expression rather than returning an error; recovered here
// so one bad rule only empties that field instead of failing the whole
// extraction.
func (x *XPathExtractor) extractField(root *html.Node, rule models.Rule) (fv models.FieldValue) {
	defer func() {
		if r := recover(); r != nil {
			fv = models.FieldValue{}
		}
	}()

	nodes := htmlquery.Find(root, rule.Selector)

	if rule.IsList {
		var values []string
		for _, n := range nodes {
			if v := valueFromNode(n, rule.Attribute); v != "" {
				values = append(values, v)
			}
		}
		return models.FieldValue{IsList: true, List: values}
	}

	if len(nodes) == 0 {
		return models.FieldValue{}
	}
	return models.FieldValue{Scalar: valueFromNode(nodes[0], rule.Attribute)}
}

func valueFromNode(n *html.Node, attribute string) string {
	if attribute != "" {
		return strings.TrimSpace(htmlquery.SelectAttr(n, attribute))
	}
	return strings.TrimSpace(htmlquery.InnerText(n))
}
