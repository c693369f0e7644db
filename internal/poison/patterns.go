// Package poison classifies fetched HTML bodies into poison-pill kinds
//: content that is technically a "successful" fetch but is useless
// to the extractor — paywalls, anti-bot challenges, captchas, rate-limit
// pages, login walls, dead links, and suspiciously short bodies.
//
// The substring indicator lists are grounded on common Cloudflare/captcha
// detection heuristics, generalized from a single anti-bot check into the
// full set of pill kinds the cascade engine and worker need to reason about.
package poison

import (
	"regexp"
	"strings"
)

var captchaIndicators = []string{
	"g-recaptcha",
	"recaptcha",
	"turnstile",
	"cf-turnstile",
	"h-captcha",
	"hcaptcha",
}

var antiBotIndicators = []string{
	"cf-challenge",
	"just a moment",
	"please wait while we verify",
	"checking your browser",
	"ddos protection by cloudflare",
	"enable javascript and cookies",
	"cf-browser-verification",
	"__cf_chl_jschl_tk__",
	"perimeterx",
	"press and hold",
	"are you a human",
	"verify you are human",
}

var rateLimitIndicators = []string{
	"rate limit exceeded",
	"too many requests",
	"429 too many requests",
	"slow down",
	"request throttled",
}

var paywallIndicators = []string{
	"subscribe to continue reading",
	"this content is for subscribers",
	"you have reached your article limit",
	"become a member to read",
	"metered-paywall",
	"paywall-overlay",
	"to continue reading, subscribe",
}

var loginWallIndicators = []string{
	"sign in to continue",
	"log in to view this content",
	"please log in to access",
	"you must be logged in",
	"create a free account to continue",
}

var deadLinkIndicators = []string{
	"404 not found",
	"page not found",
	"this page no longer exists",
	"the page you requested could not be found",
	"content has been removed",
}

var compiledCaptcha = compileAny(captchaIndicators)
var compiledAntiBot = compileAny(antiBotIndicators)
var compiledRateLimit = compileAny(rateLimitIndicators)
var compiledPaywall = compileAny(paywallIndicators)
var compiledLoginWall = compileAny(loginWallIndicators)
var compiledDeadLink = compileAny(deadLinkIndicators)

func compileAny(indicators []string) *regexp.Regexp {
	escaped := make([]string, len(indicators))
	for i, s := range indicators {
		escaped[i] = regexp.QuoteMeta(s)
	}
	return regexp.MustCompile("(?i)" + strings.Join(escaped, "|"))
}
