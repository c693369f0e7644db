package cascade

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"scrapeforge/pkg/models"
)

func TestShouldFallback_StatusCode(t *testing.T) {
	fo := models.DefaultFallbackOn()
	attempt := models.FetchAttempt{StatusCode: 403, Success: false}
	fallback, reason := shouldFallback(fo, attempt, models.PillResult{}, 0)
	assert.True(t, fallback)
	assert.Equal(t, "status_code", reason)
}

func TestShouldFallback_PoisonPill(t *testing.T) {
	fo := models.DefaultFallbackOn()
	attempt := models.FetchAttempt{StatusCode: 200, Success: true}
	pill := models.PillResult{Kind: models.PillAntiBot}
	fallback, reason := shouldFallback(fo, attempt, pill, 1000)
	assert.True(t, fallback)
	assert.Contains(t, reason, "poison_pill")
}

func TestShouldFallback_CleanSuccessDoesNotFallback(t *testing.T) {
	fo := models.DefaultFallbackOn()
	attempt := models.FetchAttempt{StatusCode: 200, Success: true}
	fallback, _ := shouldFallback(fo, attempt, models.PillResult{}, 1000)
	assert.False(t, fallback)
}

func TestShouldFallback_ContentTooShort(t *testing.T) {
	fo := models.DefaultFallbackOn()
	attempt := models.FetchAttempt{StatusCode: 200, Success: true}
	fallback, reason := shouldFallback(fo, attempt, models.PillResult{}, 10)
	assert.True(t, fallback)
	assert.Equal(t, "content_too_short", reason)
}

func TestShouldFallback_JavascriptRequired(t *testing.T) {
	fo := models.DefaultFallbackOn()
	fo.JavascriptRequired = true
	attempt := models.FetchAttempt{StatusCode: 200, Success: true, HTML: `<html><body><div id="root"></div></body></html>`}
	fallback, reason := shouldFallback(fo, attempt, models.PillResult{}, 1000)
	assert.True(t, fallback)
	assert.Equal(t, "javascript_required", reason)
}

func TestShouldFallback_JavascriptRequiredDisabledIgnoresSPAShell(t *testing.T) {
	fo := models.DefaultFallbackOn()
	attempt := models.FetchAttempt{StatusCode: 200, Success: true, HTML: `<html><body><div id="root"></div></body></html>`}
	fallback, _ := shouldFallback(fo, attempt, models.PillResult{}, 1000)
	assert.False(t, fallback)
}

func TestNeedsJavascript(t *testing.T) {
	assert.True(t, needsJavascript(""))
	assert.True(t, needsJavascript("<html>tiny</html>"))
	assert.True(t, needsJavascript(`<html><body><div id="app"></div></body></html>`+strings.Repeat("x", 1000)))
	assert.False(t, needsJavascript("<html><body>"+strings.Repeat("a", 1200)+"</body></html>"))
}

func TestShouldTryNext(t *testing.T) {
	assert.True(t, shouldTryNext(0, 4))
	assert.True(t, shouldTryNext(3, 4))
	assert.False(t, shouldTryNext(4, 4))
	assert.False(t, shouldTryNext(0, 0))
}
