package poison

import (
	"scrapeforge/pkg/models"
)

// Detector classifies a fetched body. Checks run in a fixed order and
// the first match wins, so a page that happens to mention both "sign in"
// and "rate limit" is classified deterministically.
type Detector struct {
	minContentLength int
}

// NewDetector creates a Detector. minContentLength is the threshold below
// which any body is flagged content_too_short, before any pattern check runs.
func NewDetector(minContentLength int) *Detector {
	if minContentLength <= 0 {
		minContentLength = 500
	}
	return &Detector{minContentLength: minContentLength}
}

// Check runs the ordered pill checks against an HTML body and HTTP status.
// statusCode may be 0 when unknown (e.g. headless fetchers that don't
// surface one reliably).
func (d *Detector) Check(statusCode int, html, extractedText string) models.PillResult {
	if len(extractedText) < d.minContentLength {
		return models.PillResult{Kind: models.PillContentTooShort, Severity: models.SeverityMedium, Retry: true, Action: "fallback_fetcher"}
	}

	if compiledPaywall.MatchString(html) {
		return models.PillResult{Kind: models.PillPaywall, Severity: models.SeverityMedium, Retry: false, Action: "none"}
	}

	if statusCode == 429 {
		return models.PillResult{Kind: models.PillRateLimited, Severity: models.SeverityHigh, Retry: true, Action: "backoff"}
	}

	if compiledRateLimit.MatchString(html) {
		return models.PillResult{Kind: models.PillRateLimited, Severity: models.SeverityMedium, Retry: true, Action: "backoff"}
	}

	if compiledAntiBot.MatchString(html) {
		return models.PillResult{Kind: models.PillAntiBot, Severity: models.SeverityHigh, Retry: true, Action: "fallback_fetcher"}
	}

	if compiledCaptcha.MatchString(html) {
		return models.PillResult{Kind: models.PillCaptcha, Severity: models.SeverityHigh, Retry: true, Action: "solve_captcha"}
	}

	if compiledLoginWall.MatchString(html) {
		return models.PillResult{Kind: models.PillLoginRequired, Severity: models.SeverityMedium, Retry: false, Action: "none"}
	}

	if statusCode == 404 || compiledDeadLink.MatchString(html) {
		return models.PillResult{Kind: models.PillDeadLink, Severity: models.SeverityCritical, Retry: false, Action: "none"}
	}

	return models.PillResult{Kind: models.PillNone}
}
