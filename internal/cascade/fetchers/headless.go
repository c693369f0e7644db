package fetchers

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"scrapeforge/internal/captcha"
	"scrapeforge/internal/logging/types"
	"scrapeforge/pkg/models"
)

// HeadlessFetcher drives a real Chromium tab through go-rod with the
// stealth patches applied, for pages that require JavaScript execution to
// render. It launches one browser instance per fetch rather than pooling,
// since the cascade engine already bounds concurrency at the worker-pool
// layer.
type HeadlessFetcher struct {
	launcher  *launcher.Launcher
	userAgent string
	solver    *captcha.Solver
	logger    types.Logger
}

// NewHeadlessFetcher builds a HeadlessFetcher. solver may be nil, in which
// case a page that presents a reCAPTCHA challenge is left unsolved and
// the fetch falls through to the cascade's own poison-pill handling.
func NewHeadlessFetcher(headless bool, userAgent string, solver *captcha.Solver, logger types.Logger) *HeadlessFetcher {
	l := launcher.New().
		Headless(headless).
		NoSandbox(true).
		Set("disable-blink-features", "AutomationControlled").
		Set("disable-background-timer-throttling").
		Set("disable-backgrounding-occluded-windows").
		Set("disable-renderer-backgrounding").
		Set("disable-gpu").
		Set("disable-dev-shm-usage")

	if userAgent != "" {
		l = l.Set("user-agent", userAgent)
	}

	return &HeadlessFetcher{launcher: l, userAgent: userAgent, solver: solver, logger: logger}
}

func (h *HeadlessFetcher) Name() string { return "headless" }

func (h *HeadlessFetcher) Fetch(ctx context.Context, url string, opts models.FetchOptions) (models.FetchResult, error) {
	start := time.Now()

	launchURL, err := h.launcher.Launch()
	if err != nil {
		return models.FetchResult{Success: false, Error: fmt.Sprintf("launch browser: %v", err)}, nil
	}

	browser := rod.New().ControlURL(launchURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return models.FetchResult{Success: false, Error: fmt.Sprintf("connect browser: %v", err)}, nil
	}
	defer browser.Close()

	page, err := stealth.Page(browser)
	if err != nil {
		return models.FetchResult{Success: false, Error: fmt.Sprintf("stealth page: %v", err)}, nil
	}

	if err := page.Navigate(url); err != nil {
		return models.FetchResult{Success: false, Error: fmt.Sprintf("navigate: %v", err)}, nil
	}
	if err := page.WaitLoad(); err != nil {
		return models.FetchResult{Success: false, Error: fmt.Sprintf("wait load: %v", err)}, nil
	}

	if el, err := page.Timeout(2 * time.Second).Element("div.g-recaptcha[data-sitekey]"); err == nil && el != nil {
		h.solveRecaptcha(page, el, url)
	}

	if opts.WaitFor != "" {
		if el, err := page.Element(opts.WaitFor); err == nil {
			_ = el.WaitVisible()
		}
	} else {
		time.Sleep(1 * time.Second)
	}

	html, err := page.HTML()
	if err != nil {
		return models.FetchResult{Success: false, Error: fmt.Sprintf("read html: %v", err)}, nil
	}

	result := models.FetchResult{
		Success:        true,
		HTML:           html,
		StatusCode:     200,
		ResponseTimeMs: time.Since(start).Milliseconds(),
	}

	if opts.TakeScreenshot {
		shot, err := page.Screenshot(true, &proto.PageCaptureScreenshot{Format: proto.PageCaptureScreenshotFormatJpeg})
		if err != nil {
			h.logger.Warn("headless screenshot failed", map[string]interface{}{"url": url, "error": err.Error()})
		} else {
			result.Screenshot = shot
		}
	}

	return result, nil
}

// solveRecaptcha submits the challenge's site key to the configured solver
// and, once a token comes back, injects it into the page's response
// textarea and fires the callback reCAPTCHA sites poll for. A nil solver
// or a solve failure leaves the page untouched.
func (h *HeadlessFetcher) solveRecaptcha(page *rod.Page, el *rod.Element, pageURL string) {
	if h.solver == nil {
		return
	}
	siteKey, err := el.Attribute("data-sitekey")
	if err != nil || siteKey == nil {
		return
	}

	token, err := h.solver.SolveRecaptchaV2(*siteKey, pageURL)
	if err != nil {
		h.logger.Warn("captcha solve failed", map[string]interface{}{"url": pageURL, "error": err.Error()})
		return
	}

	_, err = page.Eval(`(token) => {
		let ta = document.getElementById("g-recaptcha-response");
		if (!ta) return;
		ta.style.display = "block";
		ta.value = token;
		if (typeof window.___grecaptcha_cfg !== "undefined") {
			Object.entries(window.___grecaptcha_cfg.clients).forEach(([,client]) => {
				Object.values(client).forEach((v) => {
					if (v && typeof v.callback === "function") v.callback(token);
				});
			});
		}
	}`, token)
	if err != nil {
		h.logger.Warn("captcha token injection failed", map[string]interface{}{"url": pageURL, "error": err.Error()})
	}
}
