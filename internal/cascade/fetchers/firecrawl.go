package fetchers

import (
	"context"
	"fmt"
	"time"

	"github.com/mendableai/firecrawl-go"

	"scrapeforge/internal/logging/types"
	"scrapeforge/pkg/models"
)

// FirecrawlFetcher is the most expensive cascade tier: an AI-driven scrape
// via the hosted Firecrawl service, used as the last resort when every
// cheaper tier has failed or tripped its breaker.
type FirecrawlFetcher struct {
	app        *firecrawl.FirecrawlApp
	formats    []string
	maxRetries int
	logger     types.Logger
}

func NewFirecrawlFetcher(apiKey, apiURL string, formats []string, maxRetries int, logger types.Logger) (*FirecrawlFetcher, error) {
	app, err := firecrawl.NewFirecrawlApp(apiKey, apiURL)
	if err != nil {
		return nil, fmt.Errorf("init firecrawl app: %w", err)
	}
	if maxRetries <= 0 {
		maxRetries = 1
	}
	return &FirecrawlFetcher{app: app, formats: formats, maxRetries: maxRetries, logger: logger}, nil
}

func (f *FirecrawlFetcher) Name() string { return "firecrawl" }

func (f *FirecrawlFetcher) Fetch(ctx context.Context, url string, opts models.FetchOptions) (models.FetchResult, error) {
	start := time.Now()

	params := &firecrawl.ScrapeParams{Formats: f.formats}

	var doc *firecrawl.FirecrawlDocument
	var lastErr error

	for attempt := 1; attempt <= f.maxRetries; attempt++ {
		doc, lastErr = f.app.ScrapeURL(url, params)
		if lastErr == nil {
			break
		}
		f.logger.Debug("firecrawl attempt failed", map[string]interface{}{"url": url, "attempt": attempt, "error": lastErr.Error()})
		if attempt < f.maxRetries {
			time.Sleep(time.Duration(attempt) * time.Second)
		}
	}

	elapsed := time.Since(start).Milliseconds()
	if lastErr != nil {
		return models.FetchResult{Success: false, Error: lastErr.Error(), ResponseTimeMs: elapsed}, nil
	}
	if doc == nil {
		return models.FetchResult{Success: false, Error: "firecrawl returned no document", ResponseTimeMs: elapsed}, nil
	}

	content := doc.HTML
	if content == "" {
		content = doc.Markdown
	}
	if content == "" {
		return models.FetchResult{Success: false, Error: "firecrawl document had no html or markdown content", ResponseTimeMs: elapsed}, nil
	}

	return models.FetchResult{Success: true, HTML: content, StatusCode: 200, ResponseTimeMs: elapsed}, nil
}
