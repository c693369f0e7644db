package cascade

import (
	"regexp"
	"strings"

	"scrapeforge/pkg/models"
)

// spaIndicators are markers of a client-rendered shell that a plain HTTP
// fetch would never see real content behind.
var spaIndicators = []*regexp.Regexp{
	regexp.MustCompile(`(?i)<div\s+id=["']root["']>\s*</div>`),
	regexp.MustCompile(`(?i)<div\s+id=["']app["']>\s*</div>`),
	regexp.MustCompile(`(?i)<div\s+id=["']__next["']`),
	regexp.MustCompile(`(?i)window\.__INITIAL_STATE__`),
	regexp.MustCompile(`(?i)window\.__NUXT__`),
	regexp.MustCompile(`(?i)ng-app=`),
	regexp.MustCompile(`(?i)data-reactroot`),
}

var bodyTagRe = regexp.MustCompile(`(?is)<body[^>]*>(.*?)</body>`)
var scriptStyleRe = regexp.MustCompile(`(?is)<(script|style)[^>]*>.*?</(script|style)>`)
var tagRe = regexp.MustCompile(`(?s)<[^>]+>`)

// needsJavascript reports whether html looks like a client-rendered shell:
// too short outright, carrying a known SPA framework sentinel, or stripped
// of its body markup down to under 500 characters of real text.
func needsJavascript(html string) bool {
	if html == "" {
		return true
	}
	if len(html) < 1000 {
		return true
	}
	for _, re := range spaIndicators {
		if re.MatchString(html) {
			return true
		}
	}

	body := bodyTagRe.FindStringSubmatch(html)
	if body == nil {
		return false
	}
	stripped := scriptStyleRe.ReplaceAllString(body[1], "")
	stripped = tagRe.ReplaceAllString(stripped, "")
	return len(strings.TrimSpace(stripped)) < 500
}

// shouldFallback decides whether a completed fetch attempt warrants trying
// the next cascade tier, per the job's FallbackOn configuration.
func shouldFallback(fo models.FallbackOn, attempt models.FetchAttempt, pill models.PillResult, contentLength int) (bool, string) {
	if fo.JavascriptRequired && needsJavascript(attempt.HTML) {
		return true, "javascript_required"
	}

	if attempt.StatusCode != 0 {
		if _, ok := fo.StatusCodes[attempt.StatusCode]; ok {
			return true, "status_code"
		}
	}

	if !attempt.Success && attempt.Error != "" {
		for _, pattern := range fo.ErrorPatterns {
			if pattern != "" && strings.Contains(strings.ToLower(attempt.Error), strings.ToLower(pattern)) {
				return true, "error_pattern"
			}
		}
	}

	if !pill.Clean() {
		if _, ok := fo.PoisonPills[pill.Kind]; ok {
			return true, "poison_pill:" + string(pill.Kind)
		}
	}

	if fo.EmptyContent && contentLength == 0 {
		return true, "empty_content"
	}

	if fo.MinContentLength > 0 && contentLength > 0 && contentLength < fo.MinContentLength {
		return true, "content_too_short"
	}

	if !attempt.Success && attempt.StatusCode == 0 {
		return true, "transport_error"
	}

	return false, ""
}

// shouldTryNext reports whether the cascade has budget left to attempt
// another tier.
func shouldTryNext(attemptsMade, maxAttempts int) bool {
	if maxAttempts <= 0 {
		return false
	}
	return attemptsMade < maxAttempts
}
