package poison

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"scrapeforge/pkg/models"
)

func TestDetector_OrderedChecks(t *testing.T) {
	d := NewDetector(500)
	longText := strings.Repeat("word ", 200)

	tests := []struct {
		name       string
		statusCode int
		html       string
		text       string
		want       models.PillKind
	}{
		{"429 status wins outright", 429, "<html>ok</html>", longText, models.PillRateLimited},
		{"captcha detected", 200, "<div class='g-recaptcha'></div>", longText, models.PillCaptcha},
		{"cloudflare challenge", 200, "Checking your browser before accessing", longText, models.PillAntiBot},
		{"rate limit text", 200, "Too Many Requests, please slow down", longText, models.PillRateLimited},
		{"paywall text", 200, "Subscribe to continue reading this story", longText, models.PillPaywall},
		{"login wall text", 200, "Please log in to access this page", longText, models.PillLoginRequired},
		{"404 status", 404, "<html></html>", longText, models.PillDeadLink},
		{"dead link text", 200, "Page Not Found", longText, models.PillDeadLink},
		{"short content", 200, "<html>ok</html>", "short", models.PillContentTooShort},
		{"clean page", 200, "<html>real article content</html>", longText, models.PillNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := d.Check(tt.statusCode, tt.html, tt.text)
			assert.Equal(t, tt.want, got.Kind)
		})
	}
}

func TestDetector_CleanReportsTrue(t *testing.T) {
	d := NewDetector(10)
	result := d.Check(200, "<html>fine</html>", "plenty of real content here")
	assert.True(t, result.Clean())
}

func TestDetector_FirstMatchWinsWhenMultipleIndicatorsPresent(t *testing.T) {
	d := NewDetector(500)
	html := "Too many requests. Please log in to access this content. g-recaptcha present."
	result := d.Check(200, html, strings.Repeat("x", 600))
	assert.Equal(t, models.PillRateLimited, result.Kind, "rate-limit check runs before anti-bot, captcha and login-wall checks")
}

func TestDetector_ContentTooShortBeatsCaptchaMarkup(t *testing.T) {
	d := NewDetector(500)
	html := "<div class='g-recaptcha'></div>"
	result := d.Check(200, html, "short")
	assert.Equal(t, models.PillContentTooShort, result.Kind, "length check runs before any pattern-based check")
}
