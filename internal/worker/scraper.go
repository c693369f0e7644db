// Package worker implements the per-job driver and the end-to-end
// per-URL scrape: cascade fetch, poison-pill re-check, two-phase
// extraction, and the vision fallback, stitched together as one pipeline
// stage per concern.
package worker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"scrapeforge/internal/cascade"
	"scrapeforge/internal/cascade/fetchers"
	"scrapeforge/internal/extractor"
	"scrapeforge/internal/logging/types"
	"scrapeforge/internal/poison"
	"scrapeforge/pkg/models"
)

// ScreenshotStore optionally persists a vision-fallback screenshot to
// object storage.
// A nil ScreenshotStore simply means screenshots are not archived.
type ScreenshotStore interface {
	UploadScreenshot(key string, data []byte) (string, error)
}

// ScrapeOutcome is the end-to-end result of scraping one URL.
type ScrapeOutcome struct {
	Result       *models.Result
	Success      bool
	ErrorKind    models.ErrorKind
	ErrorMessage string
	Attempts     []models.FetchAttempt
	MethodUsed   string
}

// Scraper combines the cascade engine, the poison-pill detector, and the
// extraction pipeline into the single per-URL operation the worker drives.
type Scraper struct {
	engine          *cascade.Engine
	registry        *fetchers.Registry
	detector        *poison.Detector
	pipeline        *extractor.Pipeline
	browserFetchers []string
	screenshots     ScreenshotStore
	logger          types.Logger
}

// NewScraper builds a Scraper. browserFetchers lists the fetcher names
// capable of producing a screenshot for the vision fallback, tried in
// order; screenshots may
// be nil to skip archiving.
func NewScraper(engine *cascade.Engine, registry *fetchers.Registry, detector *poison.Detector, pipeline *extractor.Pipeline, browserFetchers []string, screenshots ScreenshotStore, logger types.Logger) *Scraper {
	if len(browserFetchers) == 0 {
		browserFetchers = []string{"headless"}
	}
	return &Scraper{
		engine:          engine,
		registry:        registry,
		detector:        detector,
		pipeline:        pipeline,
		browserFetchers: browserFetchers,
		screenshots:     screenshots,
		logger:          logger,
	}
}

// Run executes the full fetch-detect-extract pipeline for targetURL.
func (s *Scraper) Run(ctx context.Context, targetURL string, rules []models.Rule, cascadeCfg models.CascadeConfig, visionEnabled bool) (*ScrapeOutcome, error) {
	fetchOutcome := s.engine.Fetch(ctx, targetURL, cascadeCfg, models.FetchOptions{})
	if fetchOutcome.HTML == "" {
		msg := fetchOutcome.Error
		if msg == "" {
			msg = "all cascade methods failed"
		}
		return &ScrapeOutcome{
			Success:      false,
			ErrorKind:    models.ErrException,
			ErrorMessage: msg,
			Attempts:     fetchOutcome.Attempts,
			MethodUsed:   fetchOutcome.MethodUsed,
		}, nil
	}

	// Re-check the final HTML. A pill already covered by the cascade's own
	// retry set is accepted here — the cascade already spent its fallback
	// budget tolerating it — anything else is a hard failure.
	pill := s.detector.Check(fetchOutcome.StatusCode, fetchOutcome.HTML, fetchOutcome.HTML)
	if !pill.Clean() {
		if _, retryable := cascadeCfg.FallbackOn.PoisonPills[pill.Kind]; !retryable {
			return &ScrapeOutcome{
				Success:      false,
				ErrorKind:    models.ErrorKind(pill.Kind),
				ErrorMessage: "poison pill detected: " + string(pill.Kind),
				Attempts:     fetchOutcome.Attempts,
				MethodUsed:   fetchOutcome.MethodUsed,
			}, nil
		}
	}

	result, err := s.pipeline.Run(ctx, fetchOutcome.HTML, nil, rules)
	if err != nil {
		return nil, err
	}
	result.Method = fetchOutcome.MethodUsed
	result.ScrapedAt = time.Now()

	fieldErrs := requiredFieldErrors(result.Data, rules)
	noData := len(rules) > 0 && allEmpty(result.Data)

	if (noData || len(fieldErrs) > 0) && visionEnabled && len(rules) > 0 {
		if shot, ok := s.captureScreenshot(ctx, targetURL); ok {
			if s.screenshots != nil {
				if _, uerr := s.screenshots.UploadScreenshot(screenshotKey(targetURL), shot); uerr != nil {
					s.logger.Warn("vision screenshot upload failed", map[string]interface{}{"url": targetURL, "error": uerr.Error()})
				}
			}

			visResult, verr := s.pipeline.Run(ctx, fetchOutcome.HTML, shot, rules)
			if verr == nil && visResult.VisionExtracted {
				result.Data = visResult.Data
				result.Method = visResult.Method
				result.VisionExtracted = true
				fieldErrs = requiredFieldErrors(result.Data, rules)
			}
		}
	}

	if allEmpty(result.Data) {
		return &ScrapeOutcome{
			Success:      false,
			ErrorKind:    models.ErrExtractionFailed,
			ErrorMessage: fmt.Sprintf("No data extracted (0/%d selectors matched)", len(rules)),
			Attempts:     fetchOutcome.Attempts,
			MethodUsed:   result.Method,
		}, nil
	}

	if len(fieldErrs) > 0 {
		return &ScrapeOutcome{
			Success:      false,
			ErrorKind:    models.ErrExtractionFailed,
			ErrorMessage: strings.Join(fieldErrs, "; "),
			Attempts:     fetchOutcome.Attempts,
			MethodUsed:   result.Method,
		}, nil
	}

	return &ScrapeOutcome{
		Result:     result,
		Success:    true,
		Attempts:   fetchOutcome.Attempts,
		MethodUsed: result.Method,
	}, nil
}

// captureScreenshot tries each configured browser-capable fetcher in order
// and returns the first screenshot produced.
func (s *Scraper) captureScreenshot(ctx context.Context, targetURL string) ([]byte, bool) {
	for _, name := range s.browserFetchers {
		f, ok := s.registry.Get(name)
		if !ok {
			continue
		}
		result, err := f.Fetch(ctx, targetURL, models.FetchOptions{TakeScreenshot: true})
		if err != nil || !result.Success || len(result.Screenshot) == 0 {
			continue
		}
		return result.Screenshot, true
	}
	return nil, false
}

func requiredFieldErrors(data map[string]models.FieldValue, rules []models.Rule) []string {
	var errs []string
	for _, r := range rules {
		if !r.IsRequired {
			continue
		}
		v, ok := data[r.FieldName]
		if ok && !isEmpty(v) {
			continue
		}
		errs = append(errs, fmt.Sprintf("field %q: no match for selector %q", r.FieldName, r.Selector))
	}
	return errs
}

func isEmpty(v models.FieldValue) bool {
	if v.IsList {
		return len(v.List) == 0
	}
	return v.Scalar == ""
}

func allEmpty(data map[string]models.FieldValue) bool {
	for _, v := range data {
		if !isEmpty(v) {
			return false
		}
	}
	return true
}

func screenshotKey(targetURL string) string {
	return strings.NewReplacer("://", "_", "/", "_", "?", "_").Replace(targetURL)
}
