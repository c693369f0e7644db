// Package captcha submits reCAPTCHA/hCaptcha challenges encountered during
// headless fetches to a third-party solving service and waits for the
// token to inject back into the page.
package captcha

import (
	"fmt"
	"time"

	api2captcha "github.com/2captcha/2captcha-go"

	"scrapeforge/internal/logging/types"
)

// Solver wraps a 2captcha client. A nil *Solver is valid and treated by
// callers as "captcha solving disabled".
type Solver struct {
	client *api2captcha.Client
	logger types.Logger
}

// NewSolver builds a Solver against the 2captcha API. Returns nil when
// apiKey is empty so callers can wire it in unconditionally and skip
// solving when no key is configured.
func NewSolver(apiKey string, timeout time.Duration, logger types.Logger) *Solver {
	if apiKey == "" {
		return nil
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	client := api2captcha.NewClient(apiKey)
	client.DefaultTimeout = int(timeout.Seconds())
	return &Solver{client: client, logger: logger}
}

// SolveRecaptchaV2 submits a site key and challenge page URL, blocking
// until the service returns a g-recaptcha-response token.
func (s *Solver) SolveRecaptchaV2(siteKey, pageURL string) (string, error) {
	if s == nil {
		return "", fmt.Errorf("captcha solver not configured")
	}
	req := api2captcha.ReCaptcha{SiteKey: siteKey, Url: pageURL}
	token, err := s.client.Solve(req.ToRequest())
	if err != nil {
		return "", fmt.Errorf("2captcha solve recaptcha: %w", err)
	}
	return token, nil
}

// SolveHCaptcha submits an hCaptcha challenge, blocking until the service
// returns a solved response token.
func (s *Solver) SolveHCaptcha(siteKey, pageURL string) (string, error) {
	if s == nil {
		return "", fmt.Errorf("captcha solver not configured")
	}
	req := api2captcha.HCaptcha{SiteKey: siteKey, Url: pageURL}
	token, err := s.client.Solve(req.ToRequest())
	if err != nil {
		return "", fmt.Errorf("2captcha solve hcaptcha: %w", err)
	}
	return token, nil
}
